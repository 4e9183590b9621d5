// Package geometry holds the pure spatial math the canvas runs every frame:
// anchors, rotation, bounding boxes and hit tests. Nothing here keeps state.
package geometry

import (
	"math"

	"LiveCanvas/internal/state"
)

type Point = state.Point

// Rect is an axis-aligned rectangle in world space.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func RectOf(o state.BoardObject) Rect {
	return Rect{X: o.X, Y: o.Y, Width: o.Width, Height: o.Height}
}

// RectFromPoints returns the rectangle spanned by two corners in any order.
func RectFromPoints(a, b Point) Rect {
	return Rect{
		X:      math.Min(a.X, b.X),
		Y:      math.Min(a.Y, b.Y),
		Width:  math.Abs(b.X - a.X),
		Height: math.Abs(b.Y - a.Y),
	}
}

func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width && p.Y >= r.Y && p.Y <= r.Y+r.Height
}

func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Union returns the smallest rect containing both. An empty operand is ignored.
func (r Rect) Union(other Rect) Rect {
	if r.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return r
	}
	minX := math.Min(r.X, other.X)
	minY := math.Min(r.Y, other.Y)
	maxX := math.Max(r.X+r.Width, other.X+other.Width)
	maxY := math.Max(r.Y+r.Height, other.Y+other.Height)
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// Normalize flips negative extents so Width and Height are non-negative.
func (r Rect) Normalize() Rect {
	if r.Width < 0 {
		r.X += r.Width
		r.Width = -r.Width
	}
	if r.Height < 0 {
		r.Y += r.Height
		r.Height = -r.Height
	}
	return r
}

// RectsOverlap is a half-open interval test: rectangles that only share an
// edge do not overlap. It is symmetric in its arguments.
func RectsOverlap(a, b Rect) bool {
	return a.X < b.X+b.Width && b.X < a.X+a.Width &&
		a.Y < b.Y+b.Height && b.Y < a.Y+a.Height
}

func Radians(deg float64) float64 { return deg * math.Pi / 180 }

func Degrees(rad float64) float64 { return rad * 180 / math.Pi }

// RotatePoint rotates p about center by deg degrees, clockwise on a y-down screen.
func RotatePoint(p, center Point, deg float64) Point {
	if deg == 0 {
		return p
	}
	s, c := math.Sincos(Radians(deg))
	dx, dy := p.X-center.X, p.Y-center.Y
	return Point{
		X: center.X + dx*c - dy*s,
		Y: center.Y + dx*s + dy*c,
	}
}

// RotateVector rotates an offset about the origin.
func RotateVector(v Point, deg float64) Point {
	return RotatePoint(v, Point{}, deg)
}

func isUpright(deg float64) bool {
	return math.Mod(deg, 360) == 0
}

// Corners returns the four rotated corners in the order
// top-left, top-right, bottom-right, bottom-left.
func Corners(o state.BoardObject) [4]Point {
	c := o.Center()
	hw, hh := o.Width/2, o.Height/2
	local := [4]Point{{X: -hw, Y: -hh}, {X: hw, Y: -hh}, {X: hw, Y: hh}, {X: -hw, Y: hh}}
	var out [4]Point
	for i, v := range local {
		r := RotateVector(v, o.Rotation)
		out[i] = Point{X: c.X + r.X, Y: c.Y + r.Y}
	}
	return out
}

// RotatedAABB returns the axis-aligned box enclosing o at its rotation. With
// no rotation it is exactly the object's own rectangle.
func RotatedAABB(o state.BoardObject) Rect {
	if isUpright(o.Rotation) {
		return RectOf(o)
	}
	cs := Corners(o)
	minX, minY := cs[0].X, cs[0].Y
	maxX, maxY := minX, minY
	for _, p := range cs[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// SelectionBounds unions the rotated boxes of every object.
func SelectionBounds(objs []state.BoardObject) Rect {
	var r Rect
	for _, o := range objs {
		r = r.Union(RotatedAABB(o))
	}
	return r
}

// ContainsPoint reports whether world point p falls on o, honoring rotation.
// Circles hit on their inscribed radius.
func ContainsPoint(o state.BoardObject, p Point) bool {
	c := o.Center()
	local := RotatePoint(p, c, -o.Rotation)
	dx, dy := local.X-c.X, local.Y-c.Y
	if o.Type == state.TypeCircle {
		r := math.Min(o.Width, o.Height) / 2
		return dx*dx+dy*dy <= r*r
	}
	return math.Abs(dx) <= o.Width/2 && math.Abs(dy) <= o.Height/2
}

// DistanceToPolyline is the shortest distance from p to any segment of pts.
func DistanceToPolyline(p Point, pts []Point) float64 {
	if len(pts) == 0 {
		return math.Inf(1)
	}
	if len(pts) == 1 {
		return math.Hypot(p.X-pts[0].X, p.Y-pts[0].Y)
	}
	best := math.Inf(1)
	for i := 1; i < len(pts); i++ {
		best = math.Min(best, distanceToSegment(p, pts[i-1], pts[i]))
	}
	return best
}

func distanceToSegment(p, a, b Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return math.Hypot(p.X-a.X, p.Y-a.Y)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / l2
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(p.X-(a.X+t*dx), p.Y-(a.Y+t*dy))
}

// Sanitize clamps non-finite coordinates to zero and sizes below minSize up
// to minSize so degenerate records still render and edit.
func Sanitize(o state.BoardObject, minSize float64) state.BoardObject {
	o.X = finite(o.X, 0)
	o.Y = finite(o.Y, 0)
	o.Rotation = finite(o.Rotation, 0)
	o.Width = finite(o.Width, minSize)
	o.Height = finite(o.Height, minSize)
	if o.Width < minSize {
		o.Width = minSize
	}
	if o.Height < minSize {
		o.Height = minSize
	}
	return o
}

func finite(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}

// MinConnectionFootprint is the smallest on-screen endpoint size, in pixels,
// for which a connection is still drawn.
const MinConnectionFootprint = 12.0

// ConnectionVisible applies the presentation rule that keeps arrowheads from
// dwarfing their targets. It never affects stored data.
func ConnectionVisible(from, to state.BoardObject, scale float64) bool {
	footprint := func(o state.BoardObject) float64 {
		return math.Min(o.Width, o.Height) * scale
	}
	return footprint(from) >= MinConnectionFootprint && footprint(to) >= MinConnectionFootprint
}
