package canvas

import (
	"LiveCanvas/internal/geometry"
	"LiveCanvas/internal/state"
)

// gesture is the pointer state machine. Exactly one variant is active at a
// time; connection drawing lives beside it in Engine.drawing.
type gesture interface{ name() string }

type idle struct{}

type panning struct {
	last geometry.Point // screen
}

type dragMember struct {
	start   state.BoardObject
	carried bool // child moved along with its frame
}

type dragging struct {
	origin  geometry.Point // world
	members []dragMember
	dx, dy  float64
}

type resizing struct {
	corner   int // index into geometry.Corners
	start    state.BoardObject
	current  state.BoardObject
	children []state.BoardObject
	resized  []state.BoardObject
}

type rotating struct {
	center     geometry.Point
	startAngle float64
	start      []state.BoardObject
	delta      float64
}

type areaSelecting struct {
	start, current geometry.Point // world
}

func (idle) name() string           { return "idle" }
func (*panning) name() string       { return "panning" }
func (*dragging) name() string      { return "dragging" }
func (*resizing) name() string      { return "resizing" }
func (*rotating) name() string      { return "rotating" }
func (*areaSelecting) name() string { return "areaSelecting" }

// drawing is an in-progress connection. armed is false until the press that
// started it has been released.
type drawing struct {
	fromID     string
	fromAnchor string
	points     []geometry.Point
	cursor     geometry.Point
	armed      bool
}

// transient returns the geometry o shows mid-gesture, which differs from the
// stored record until the gesture commits on release.
func (d *dragging) transient(o state.BoardObject) (state.BoardObject, bool) {
	for _, m := range d.members {
		if m.start.ID == o.ID {
			o.X = m.start.X + d.dx
			o.Y = m.start.Y + d.dy
			return o, true
		}
	}
	return o, false
}

func (r *resizing) transient(o state.BoardObject) (state.BoardObject, bool) {
	if o.ID == r.current.ID {
		return withGeometry(o, r.current), true
	}
	for _, c := range r.resized {
		if c.ID == o.ID {
			return withGeometry(o, c), true
		}
	}
	return o, false
}

func (r *rotating) transient(o state.BoardObject) (state.BoardObject, bool) {
	for _, s := range r.start {
		if s.ID == o.ID {
			return withGeometry(o, rotateAbout(s, r.center, r.delta)), true
		}
	}
	return o, false
}

func withGeometry(o, g state.BoardObject) state.BoardObject {
	o.X, o.Y, o.Width, o.Height, o.Rotation = g.X, g.Y, g.Width, g.Height, g.Rotation
	return o
}
