package geometry

import (
	"fmt"
	"math"

	"LiveCanvas/internal/state"
)

const (
	AnchorTop         = "top"
	AnchorRight       = "right"
	AnchorBottom      = "bottom"
	AnchorLeft        = "left"
	AnchorTopLeft     = "top-left"
	AnchorTopRight    = "top-right"
	AnchorBottomRight = "bottom-right"
	AnchorBottomLeft  = "bottom-left"
)

const starTips = 5

var (
	rectAnchors = []string{
		AnchorTop, AnchorRight, AnchorBottom, AnchorLeft,
		AnchorTopLeft, AnchorTopRight, AnchorBottomRight, AnchorBottomLeft,
	}
	circleAnchors = []string{AnchorTop, AnchorRight, AnchorBottom, AnchorLeft}
	starAnchors   = func() []string {
		out := make([]string, starTips)
		for i := range out {
			out[i] = StarTip(i)
		}
		return out
	}()
)

// StarTip names the i-th outer tip of a star, counted clockwise from the top.
func StarTip(i int) string { return fmt.Sprintf("tip-%d", i) }

// Anchors lists the anchor ids of a shape family in their fixed search order.
func Anchors(t state.ObjectType) []string {
	switch t {
	case state.TypeCircle:
		return circleAnchors
	case state.TypeStar:
		return starAnchors
	default:
		return rectAnchors
	}
}

// AnchorOffset returns the unrotated offset of anchor from the object center.
// The second result is false when the shape has no such anchor.
func AnchorOffset(o state.BoardObject, anchor string) (Point, bool) {
	switch o.Type {
	case state.TypeCircle:
		r := math.Min(o.Width, o.Height) / 2
		switch anchor {
		case AnchorTop:
			return Point{X: 0, Y: -r}, true
		case AnchorRight:
			return Point{X: r, Y: 0}, true
		case AnchorBottom:
			return Point{X: 0, Y: r}, true
		case AnchorLeft:
			return Point{X: -r, Y: 0}, true
		}
		return Point{}, false
	case state.TypeStar:
		var i int
		if _, err := fmt.Sscanf(anchor, "tip-%d", &i); err != nil || i < 0 || i >= starTips {
			return Point{}, false
		}
		r := math.Min(o.Width, o.Height) / 2
		a := -math.Pi/2 + float64(i)*2*math.Pi/starTips
		return Point{X: r * math.Cos(a), Y: r * math.Sin(a)}, true
	}
	hw, hh := o.Width/2, o.Height/2
	switch anchor {
	case AnchorTop:
		return Point{X: 0, Y: -hh}, true
	case AnchorRight:
		return Point{X: hw, Y: 0}, true
	case AnchorBottom:
		return Point{X: 0, Y: hh}, true
	case AnchorLeft:
		return Point{X: -hw, Y: 0}, true
	case AnchorTopLeft:
		return Point{X: -hw, Y: -hh}, true
	case AnchorTopRight:
		return Point{X: hw, Y: -hh}, true
	case AnchorBottomRight:
		return Point{X: hw, Y: hh}, true
	case AnchorBottomLeft:
		return Point{X: -hw, Y: hh}, true
	}
	return Point{}, false
}

// AnchorWorldPoint resolves anchor on o to world space, applying the object's
// rotation about its center. Unknown anchors resolve to the center.
func AnchorWorldPoint(o state.BoardObject, anchor string) Point {
	c := o.Center()
	off, ok := AnchorOffset(o, anchor)
	if !ok {
		return c
	}
	r := RotateVector(off, o.Rotation)
	return Point{X: c.X + r.X, Y: c.Y + r.Y}
}

// NearestAnchor picks the anchor closest to p by squared distance. Ties keep
// the earlier anchor in search order.
func NearestAnchor(o state.BoardObject, p Point) string {
	best := ""
	bestD := math.Inf(1)
	for _, a := range Anchors(o.Type) {
		w := AnchorWorldPoint(o, a)
		dx, dy := w.X-p.X, w.Y-p.Y
		if d := dx*dx + dy*dy; d < bestD {
			best, bestD = a, d
		}
	}
	return best
}

// AnchorAt returns the anchor of o within radius of p, if any.
func AnchorAt(o state.BoardObject, p Point, radius float64) (string, bool) {
	a := NearestAnchor(o, p)
	if a == "" {
		return "", false
	}
	w := AnchorWorldPoint(o, a)
	if math.Hypot(w.X-p.X, w.Y-p.Y) <= radius {
		return a, true
	}
	return "", false
}
