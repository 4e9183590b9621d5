// Package render paints a canvas.Scene into a raster image.
package render

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"LiveCanvas/internal/canvas"
	"LiveCanvas/internal/geometry"
	"LiveCanvas/internal/state"
	"LiveCanvas/internal/viewport"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
)

const (
	gridSpacing  = 40.0
	baseFontSize = 16.0
	arrowSize    = 10.0
	arrowAngle   = 0.5
	handleSize   = 8.0
	cursorSize   = 14.0
	badgeFont    = 11.0
)

var headingSizes = map[int]float64{1: 32, 2: 24, 3: 20}

var (
	background    = color.RGBA{R: 250, G: 250, B: 250, A: 255}
	gridColor     = color.RGBA{R: 210, G: 210, B: 218, A: 255}
	selectColor   = color.RGBA{R: 33, G: 150, B: 243, A: 255}
	lockColor     = color.RGBA{R: 255, G: 112, B: 67, A: 255}
	outlineColor  = color.RGBA{R: 120, G: 120, B: 120, A: 255}
	textColor     = color.RGBA{R: 33, G: 33, B: 33, A: 255}
	pendingColor  = color.RGBA{R: 33, G: 150, B: 243, A: 160}
	areaFillColor = color.RGBA{R: 33, G: 150, B: 243, A: 40}
)

// Painter caches font faces and decoded images between frames. It is not
// safe for concurrent use.
type Painter struct {
	font   *truetype.Font
	faces  map[float64]font.Face
	images map[string]image.Image
	// ratio is the device pixel ratio of the frame being painted. gg strokes
	// in device pixels regardless of the current transform.
	ratio float64
	// Grid toggles the dotted background.
	Grid bool
}

func NewPainter() (*Painter, error) {
	f, err := truetype.Parse(gomono.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	return &Painter{
		font:   f,
		faces:  make(map[float64]font.Face),
		images: make(map[string]image.Image),
		Grid:   true,
	}, nil
}

func (p *Painter) face(size float64) font.Face {
	if f, ok := p.faces[size]; ok {
		return f
	}
	f := truetype.NewFace(p.font, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	p.faces[size] = f
	return f
}

// Paint renders s into a width x height image. ratio is the device pixel
// ratio; width and height are in device pixels.
func (p *Painter) Paint(s canvas.Scene, width, height int, ratio float64) image.Image {
	if width <= 0 || height <= 0 {
		return image.NewRGBA(image.Rect(0, 0, 1, 1))
	}
	if ratio <= 0 {
		ratio = 1
	}
	p.ratio = ratio
	dc := gg.NewContext(width, height)
	dc.SetColor(background)
	dc.Clear()
	dc.Scale(ratio, ratio)

	view := s.View
	if view.Scale <= 0 || math.IsNaN(view.Scale) {
		view.Scale = 1
	}
	if p.Grid {
		drawGrid(dc, view, float64(width)/ratio, float64(height)/ratio)
	}

	dc.Push()
	dc.Translate(view.X, view.Y)
	dc.Scale(view.Scale, view.Scale)
	px := 1 / view.Scale // one screen pixel in world units

	// Frames and back-layer objects paint under connections.
	i := 0
	for ; i < len(s.Objects) && (s.Objects[i].SentToBack || s.Objects[i].IsFrame()); i++ {
		p.drawObject(dc, s.Objects[i], px)
	}
	for _, c := range s.Connections {
		if c.Visible {
			drawConnection(dc, c, px, ratio)
		}
	}
	for ; i < len(s.Objects); i++ {
		p.drawObject(dc, s.Objects[i], px)
	}

	if len(s.Pending) > 1 {
		dc.SetColor(pendingColor)
		dc.SetLineWidth(2 * ratio)
		dc.SetDash(6*ratio, 4*ratio)
		strokePath(dc, s.Pending)
		dc.SetDash()
	}
	if s.Area != nil {
		dc.DrawRectangle(s.Area.X, s.Area.Y, s.Area.Width, s.Area.Height)
		dc.SetColor(areaFillColor)
		dc.FillPreserve()
		dc.SetColor(selectColor)
		dc.SetLineWidth(ratio)
		dc.Stroke()
	}
	for _, h := range s.Handles {
		drawHandle(dc, h, px, ratio)
	}
	for _, c := range s.Cursors {
		p.drawCursor(dc, c, px)
	}
	dc.Pop()
	return dc.Image()
}

// drawGrid dots the visible area in screen space. Spacing doubles until the
// dots are at least 12px apart.
func drawGrid(dc *gg.Context, view viewport.View, w, h float64) {
	step := gridSpacing * view.Scale
	for step < 12 {
		step *= 2
	}
	ox := math.Mod(view.X, step)
	oy := math.Mod(view.Y, step)
	dc.SetColor(gridColor)
	for x := ox; x < w; x += step {
		for y := oy; y < h; y += step {
			dc.DrawRectangle(x, y, 1.5, 1.5)
		}
	}
	dc.Fill()
}

func (p *Painter) drawObject(dc *gg.Context, o canvas.SceneObject, px float64) {
	c := o.Center()
	w, h := o.Width, o.Height
	dc.Push()
	dc.Translate(c.X, c.Y)
	dc.Rotate(geometry.Radians(o.Rotation))

	fill := ParseHex(o.Color, color.White)
	switch o.Type {
	case state.TypeStickyNote:
		dc.DrawRectangle(-w/2+3*px, -h/2+3*px, w, h)
		dc.SetColor(color.RGBA{A: 30})
		dc.Fill()
		dc.DrawRectangle(-w/2, -h/2, w, h)
		dc.SetColor(fill)
		dc.Fill()
		p.drawText(dc, o.Text, baseFontSize, -w/2+12, -h/2+12, w-24, gg.AlignLeft)
	case state.TypeRectangle:
		dc.DrawRectangle(-w/2, -h/2, w, h)
		fillAndOutline(dc, fill, p.ratio)
		p.drawCentered(dc, o.Text, w)
	case state.TypeCircle:
		dc.DrawCircle(0, 0, math.Min(w, h)/2)
		fillAndOutline(dc, fill, p.ratio)
		p.drawCentered(dc, o.Text, w)
	case state.TypeStar:
		starPath(dc, math.Min(w, h)/2)
		fillAndOutline(dc, fill, p.ratio)
	case state.TypeText:
		size := baseFontSize
		if s, ok := headingSizes[o.HeadingLevel]; ok {
			size = s
		}
		p.drawTextColored(dc, o.Text, size, -w/2+4, -h/2+4, w-8, gg.AlignLeft, fill)
	case state.TypeImage:
		if img := p.image(o.ID, o.ImageData); img != nil {
			b := img.Bounds()
			dc.Push()
			dc.Scale(w/float64(b.Dx()), h/float64(b.Dy()))
			dc.DrawImageAnchored(img, 0, 0, 0.5, 0.5)
			dc.Pop()
		} else {
			dc.DrawRectangle(-w/2, -h/2, w, h)
			fillAndOutline(dc, color.RGBA{R: 224, G: 224, B: 224, A: 255}, p.ratio)
		}
	case state.TypeFrame:
		dc.DrawRectangle(-w/2, -h/2, w, h)
		dc.SetColor(withAlpha(fill, 160))
		dc.FillPreserve()
		dc.SetColor(outlineColor)
		dc.SetLineWidth(p.ratio)
		dc.SetDash(8*p.ratio, 4*p.ratio)
		dc.Stroke()
		dc.SetDash()
		title := o.Text
		if title == "" {
			title = "Frame"
		}
		dc.Push()
		dc.Translate(-w/2, -h/2-6*px)
		dc.Scale(px, px)
		dc.SetFontFace(p.face(badgeFont))
		dc.SetColor(outlineColor)
		dc.DrawString(title, 0, 0)
		dc.Pop()
	}

	switch {
	case o.Selected:
		outline(dc, o.Type, w, h, selectColor, 4*px, 2*p.ratio)
	case o.LockedBy != "":
		outline(dc, o.Type, w, h, lockColor, 4*px, 2*p.ratio)
		p.drawBadge(dc, o.LockedBy, -w/2, -h/2-4*px, px)
	}
	dc.Pop()
}

func fillAndOutline(dc *gg.Context, fill color.Color, lineWidth float64) {
	dc.SetColor(fill)
	dc.FillPreserve()
	dc.SetColor(outlineColor)
	dc.SetLineWidth(lineWidth)
	dc.Stroke()
}

func outline(dc *gg.Context, t state.ObjectType, w, h float64, c color.Color, pad, lineWidth float64) {
	switch t {
	case state.TypeCircle:
		dc.DrawCircle(0, 0, math.Min(w, h)/2+pad)
	default:
		dc.DrawRectangle(-w/2-pad, -h/2-pad, w+2*pad, h+2*pad)
	}
	dc.SetColor(c)
	dc.SetLineWidth(lineWidth)
	dc.Stroke()
}

// starPath traces a five-pointed star whose outer tips match the star anchors.
func starPath(dc *gg.Context, r float64) {
	inner := r * 0.45
	for i := 0; i < 10; i++ {
		a := -math.Pi/2 + float64(i)*math.Pi/5
		rr := r
		if i%2 == 1 {
			rr = inner
		}
		x, y := rr*math.Cos(a), rr*math.Sin(a)
		if i == 0 {
			dc.MoveTo(x, y)
		} else {
			dc.LineTo(x, y)
		}
	}
	dc.ClosePath()
}

func (p *Painter) drawText(dc *gg.Context, text string, size, x, y, width float64, align gg.Align) {
	p.drawTextColored(dc, text, size, x, y, width, align, textColor)
}

func (p *Painter) drawTextColored(dc *gg.Context, text string, size, x, y, width float64, align gg.Align, c color.Color) {
	if text == "" || width <= 0 {
		return
	}
	dc.SetFontFace(p.face(size))
	dc.SetColor(c)
	dc.DrawStringWrapped(text, x, y, 0, 0, width, 1.3, align)
}

func (p *Painter) drawCentered(dc *gg.Context, text string, width float64) {
	if text == "" {
		return
	}
	dc.SetFontFace(p.face(baseFontSize))
	dc.SetColor(textColor)
	dc.DrawStringWrapped(text, 0, 0, 0.5, 0.5, math.Max(width-16, 1), 1.3, gg.AlignCenter)
}

func (p *Painter) drawBadge(dc *gg.Context, name string, x, y, px float64) {
	dc.SetFontFace(p.face(badgeFont))
	dc.Push()
	dc.Translate(x, y)
	dc.Scale(px, px)
	tw, th := dc.MeasureString(name)
	dc.DrawRoundedRectangle(0, -th-6, tw+10, th+6, 3)
	dc.SetColor(lockColor)
	dc.Fill()
	dc.SetColor(color.White)
	dc.DrawString(name, 5, -4)
	dc.Pop()
}

func strokePath(dc *gg.Context, pts []geometry.Point) {
	if len(pts) < 2 {
		return
	}
	dc.MoveTo(pts[0].X, pts[0].Y)
	for _, q := range pts[1:] {
		dc.LineTo(q.X, q.Y)
	}
	dc.Stroke()
}

func drawConnection(dc *gg.Context, c canvas.SceneConnection, px, ratio float64) {
	col := ParseHex(c.Color, ParseHex(canvas.DefaultConnectionColor, outlineColor))
	width := 2 * ratio
	if c.Selected {
		col = selectColor
		width = 3 * ratio
	}
	dc.SetColor(col)
	dc.SetLineWidth(width)
	strokePath(dc, c.Path)
	n := len(c.Path)
	if n >= 2 {
		drawArrow(dc, c.Path[n-2], c.Path[n-1], arrowSize*px)
	}
}

func drawArrow(dc *gg.Context, from, to geometry.Point, size float64) {
	dx, dy := to.X-from.X, to.Y-from.Y
	length := math.Hypot(dx, dy)
	if length < 1e-9 {
		return
	}
	dx /= length
	dy /= length
	dc.MoveTo(to.X, to.Y)
	dc.LineTo(to.X-size*dx+size*dy*arrowAngle, to.Y-size*dy-size*dx*arrowAngle)
	dc.LineTo(to.X-size*dx-size*dy*arrowAngle, to.Y-size*dy+size*dx*arrowAngle)
	dc.ClosePath()
	dc.Fill()
}

func drawHandle(dc *gg.Context, h canvas.Handle, px, ratio float64) {
	s := handleSize * px
	switch h.Kind {
	case canvas.HandleRotate:
		dc.DrawCircle(h.At.X, h.At.Y, s/2+px)
	default:
		dc.DrawRectangle(h.At.X-s/2, h.At.Y-s/2, s, s)
	}
	dc.SetColor(color.White)
	dc.FillPreserve()
	dc.SetColor(selectColor)
	dc.SetLineWidth(1.5 * ratio)
	dc.Stroke()
}

func (p *Painter) drawCursor(dc *gg.Context, c state.Cursor, px float64) {
	col := ParseHex(c.Color, selectColor)
	dc.Push()
	dc.Translate(c.X, c.Y)
	dc.Scale(px, px)
	dc.MoveTo(0, 0)
	dc.LineTo(0, cursorSize)
	dc.LineTo(cursorSize*0.3, cursorSize*0.75)
	dc.LineTo(cursorSize*0.75, cursorSize*0.75)
	dc.ClosePath()
	dc.SetColor(col)
	dc.FillPreserve()
	dc.SetColor(color.White)
	dc.SetLineWidth(p.ratio)
	dc.Stroke()
	if c.Name != "" {
		dc.SetFontFace(p.face(badgeFont))
		tw, th := dc.MeasureString(c.Name)
		dc.DrawRoundedRectangle(cursorSize*0.6, cursorSize, tw+10, th+6, 3)
		dc.SetColor(col)
		dc.Fill()
		dc.SetColor(color.White)
		dc.DrawString(c.Name, cursorSize*0.6+5, cursorSize+th+2)
	}
	dc.Pop()
}

func withAlpha(c color.Color, a uint8) color.Color {
	r, g, b, _ := c.RGBA()
	return color.NRGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: a}
}
