// Package export writes a board's stored content to PDF or PNG.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"image/png"
	"io"
	"math"

	"LiveCanvas/internal/geometry"
	"LiveCanvas/internal/render"
	"LiveCanvas/internal/state"

	"github.com/jung-kurt/gofpdf"
)

var ErrEmpty = errors.New("nothing to export")

const (
	pageMargin = 10.0 // mm
	mmPerPoint = 0.3528
)

// Bounds is the world box enclosing every object and every connection
// waypoint.
func Bounds(objs []state.BoardObject, conns []state.Connection) (geometry.Rect, error) {
	if len(objs) == 0 {
		return geometry.Rect{}, ErrEmpty
	}
	r := geometry.SelectionBounds(objs)
	for _, c := range conns {
		for _, p := range c.Points {
			r = r.Union(geometry.Rect{X: p.X, Y: p.Y, Width: 1e-6, Height: 1e-6})
		}
	}
	if r.IsEmpty() {
		return r, ErrEmpty
	}
	return r, nil
}

type pdfWriter struct {
	pdf   *gofpdf.Fpdf
	tr    func(string) string
	scale float64 // mm per world unit
	ox    float64
	oy    float64
	imgs  int
}

// PDF lays the board out on a single landscape A4 page, fitted inside the
// margins and centered.
func PDF(w io.Writer, objs []state.BoardObject, conns []state.Connection) error {
	bounds, err := Bounds(objs, conns)
	if err != nil {
		return err
	}

	p := gofpdf.New("L", "mm", "A4", "")
	p.SetAutoPageBreak(false, 0)
	p.AddPage()
	pw, ph := p.GetPageSize()
	scale := math.Min((pw-2*pageMargin)/bounds.Width, (ph-2*pageMargin)/bounds.Height)

	out := &pdfWriter{
		pdf:   p,
		tr:    p.UnicodeTranslatorFromDescriptor(""),
		scale: scale,
		ox:    (pw-bounds.Width*scale)/2 - bounds.X*scale,
		oy:    (ph-bounds.Height*scale)/2 - bounds.Y*scale,
	}

	byID := make(map[string]state.BoardObject, len(objs))
	for _, o := range objs {
		byID[o.ID] = geometry.Sanitize(o, 1)
	}
	back, front := split(objs)
	for _, o := range back {
		out.object(byID[o.ID])
	}
	for _, c := range conns {
		from, ok1 := byID[c.FromID]
		to, ok2 := byID[c.ToID]
		if ok1 && ok2 {
			out.connection(c, from, to)
		}
	}
	for _, o := range front {
		out.object(byID[o.ID])
	}

	if err := p.Output(w); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}
	return nil
}

// split keeps the caller's order but moves frames and back-layer objects
// ahead of everything else.
func split(objs []state.BoardObject) (back, front []state.BoardObject) {
	for _, o := range objs {
		if o.SentToBack || o.IsFrame() {
			back = append(back, o)
		} else {
			front = append(front, o)
		}
	}
	return back, front
}

func (w *pdfWriter) pt(p state.Point) (float64, float64) {
	return w.ox + p.X*w.scale, w.oy + p.Y*w.scale
}

func rgb(hex string, fallback color.Color) (int, int, int) {
	r, g, b, _ := render.ParseHex(hex, fallback).RGBA()
	return int(r >> 8), int(g >> 8), int(b >> 8)
}

func (w *pdfWriter) object(o state.BoardObject) {
	p := w.pdf
	x, y := w.pt(state.Point{X: o.X, Y: o.Y})
	wd, ht := o.Width*w.scale, o.Height*w.scale
	cx, cy := x+wd/2, y+ht/2

	p.TransformBegin()
	if o.Rotation != 0 {
		// gofpdf rotates counter-clockwise; board rotation is clockwise on screen.
		p.TransformRotate(-o.Rotation, cx, cy)
	}
	p.SetDrawColor(120, 120, 120)
	p.SetLineWidth(0.2)
	p.SetFillColor(rgb(o.Color, color.White))

	switch o.Type {
	case state.TypeStickyNote:
		p.Rect(x, y, wd, ht, "F")
		w.text(o.Text, x+2, y+2, wd-4, 16)
	case state.TypeRectangle:
		p.Rect(x, y, wd, ht, "FD")
		w.text(o.Text, x+2, cy-2, wd-4, 16)
	case state.TypeCircle:
		p.Circle(cx, cy, math.Min(wd, ht)/2, "FD")
		w.text(o.Text, x+2, cy-2, wd-4, 16)
	case state.TypeStar:
		p.Polygon(starPoints(cx, cy, math.Min(wd, ht)/2), "FD")
	case state.TypeText:
		size := 16.0
		switch o.HeadingLevel {
		case 1:
			size = 32
		case 2:
			size = 24
		case 3:
			size = 20
		}
		p.SetTextColor(rgb(o.Color, color.Black))
		w.text(o.Text, x, y, wd, size)
		p.SetTextColor(0, 0, 0)
	case state.TypeImage:
		if !w.image(o, x, y, wd, ht) {
			p.SetFillColor(224, 224, 224)
			p.Rect(x, y, wd, ht, "FD")
		}
	case state.TypeFrame:
		p.SetDashPattern([]float64{2, 1}, 0)
		p.Rect(x, y, wd, ht, "FD")
		p.SetDashPattern([]float64{}, 0)
		title := o.Text
		if title == "" {
			title = "Frame"
		}
		p.SetFont("Helvetica", "", 8)
		p.Text(x, y-1, w.tr(title))
	}
	p.TransformEnd()
}

func (w *pdfWriter) text(s string, x, y, width, worldSize float64) {
	if s == "" || width <= 0 {
		return
	}
	size := math.Max(worldSize*w.scale/mmPerPoint, 4)
	w.pdf.SetFont("Helvetica", "", size)
	w.pdf.SetXY(x, y)
	lineHeight := size * mmPerPoint * 1.3
	w.pdf.MultiCell(width, lineHeight, w.tr(s), "", "L", false)
}

// image re-encodes the stored payload as PNG so gofpdf needs only one decoder.
func (w *pdfWriter) image(o state.BoardObject, x, y, wd, ht float64) bool {
	img, err := render.DecodeImage(o.ImageData)
	if err != nil {
		return false
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return false
	}
	w.imgs++
	name := fmt.Sprintf("img%d", w.imgs)
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	w.pdf.RegisterImageOptionsReader(name, opts, &buf)
	if !w.pdf.Ok() {
		w.pdf.ClearError()
		return false
	}
	w.pdf.ImageOptions(name, x, y, wd, ht, false, opts, 0, "")
	return true
}

func (w *pdfWriter) connection(c state.Connection, from, to state.BoardObject) {
	path := []state.Point{geometry.AnchorWorldPoint(from, c.FromAnchor)}
	path = append(path, c.Points...)
	path = append(path, geometry.AnchorWorldPoint(to, c.ToAnchor))

	p := w.pdf
	r, g, b := rgb(c.Color, color.RGBA{R: 0x54, G: 0x6e, B: 0x7a, A: 255})
	p.SetDrawColor(r, g, b)
	p.SetFillColor(r, g, b)
	p.SetLineWidth(0.4)
	for i := 1; i < len(path); i++ {
		x1, y1 := w.pt(path[i-1])
		x2, y2 := w.pt(path[i])
		p.Line(x1, y1, x2, y2)
	}

	n := len(path)
	x1, y1 := w.pt(path[n-2])
	x2, y2 := w.pt(path[n-1])
	dx, dy := x2-x1, y2-y1
	l := math.Hypot(dx, dy)
	if l < 1e-9 {
		return
	}
	dx, dy = dx/l, dy/l
	size := 2.5
	p.Polygon([]gofpdf.PointType{
		{X: x2, Y: y2},
		{X: x2 - size*dx + size*dy*0.5, Y: y2 - size*dy - size*dx*0.5},
		{X: x2 - size*dx - size*dy*0.5, Y: y2 - size*dy + size*dx*0.5},
	}, "F")
}

func starPoints(cx, cy, r float64) []gofpdf.PointType {
	pts := make([]gofpdf.PointType, 0, 10)
	for i := 0; i < 10; i++ {
		a := -math.Pi/2 + float64(i)*math.Pi/5
		rr := r
		if i%2 == 1 {
			rr = r * 0.45
		}
		pts = append(pts, gofpdf.PointType{X: cx + rr*math.Cos(a), Y: cy + rr*math.Sin(a)})
	}
	return pts
}
