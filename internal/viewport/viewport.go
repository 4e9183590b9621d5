// Package viewport owns the local pan/zoom transform and coalesces
// high-frequency wheel and drag input into at most one commit per frame.
package viewport

import (
	"math"

	"LiveCanvas/internal/state"
)

// View maps world to screen: screen = world*Scale + (X, Y).
type View struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Scale float64 `json:"scale"`
}

var Identity = View{Scale: 1}

func (v View) ScreenToWorld(px, py float64) state.Point {
	s := v.safeScale()
	return state.Point{X: (px - v.X) / s, Y: (py - v.Y) / s}
}

func (v View) WorldToScreen(wx, wy float64) state.Point {
	return state.Point{X: wx*v.Scale + v.X, Y: wy*v.Scale + v.Y}
}

func (v View) safeScale() float64 {
	if v.Scale <= 0 || math.IsNaN(v.Scale) || math.IsInf(v.Scale, 0) {
		return 1
	}
	return v.Scale
}

// Scheduler runs fn once at the next display refresh.
type Scheduler interface {
	RequestFrame(fn func())
}

// SchedulerFunc adapts a plain function to Scheduler.
type SchedulerFunc func(fn func())

func (f SchedulerFunc) RequestFrame(fn func()) { f(fn) }

// Immediate runs every frame request synchronously.
var Immediate Scheduler = SchedulerFunc(func(fn func()) { fn() })

const (
	DefaultSensitivity = 0.001
	minZoomFactor      = 0.05
	maxZoomFactor      = 20
)

// Controller holds two transforms: the live one every input updates
// immediately and the committed one the renderer sees.
type Controller struct {
	live        View
	committed   View
	dirty       bool
	scheduled   bool
	sched       Scheduler
	sensitivity float64

	// OnCommit is called with the new committed view.
	OnCommit func(View)
}

func NewController(sched Scheduler) *Controller {
	if sched == nil {
		sched = Immediate
	}
	return &Controller{
		live:        Identity,
		committed:   Identity,
		sched:       sched,
		sensitivity: DefaultSensitivity,
	}
}

func (c *Controller) SetSensitivity(s float64) {
	if s > 0 {
		c.sensitivity = s
	}
}

// Live is the transform including not yet committed input. Hit testing uses it.
func (c *Controller) Live() View { return c.live }

// Committed is the last transform handed to the renderer.
func (c *Controller) Committed() View { return c.committed }

func (c *Controller) Scale() float64 { return c.live.safeScale() }

func (c *Controller) ScreenToWorld(px, py float64) state.Point {
	return c.live.ScreenToWorld(px, py)
}

func (c *Controller) WorldToScreen(wx, wy float64) state.Point {
	return c.live.WorldToScreen(wx, wy)
}

// Set replaces the transform and commits it at once, e.g. on session restore.
func (c *Controller) Set(v View) {
	if v.Scale <= 0 || math.IsNaN(v.Scale) || math.IsInf(v.Scale, 0) {
		v.Scale = 1
	}
	c.live = v
	c.dirty = true
	c.FlushNow()
}

// ApplyWheel zooms about the screen point (px, py) so the world point under
// the pointer stays put. Positive deltaY zooms out.
func (c *Controller) ApplyWheel(px, py, deltaY float64) {
	if deltaY == 0 || math.IsNaN(deltaY) || math.IsInf(deltaY, 0) {
		return
	}
	factor := 1 - deltaY*c.sensitivity
	factor = math.Max(minZoomFactor, math.Min(maxZoomFactor, factor))

	world := c.live.ScreenToWorld(px, py)
	scale := c.live.safeScale() * factor
	if scale <= 0 || math.IsInf(scale, 0) {
		return
	}
	c.live = View{
		X:     px - world.X*scale,
		Y:     py - world.Y*scale,
		Scale: scale,
	}
	c.markDirty()
}

// ApplyPanDelta accumulates a screen-space drag delta.
func (c *Controller) ApplyPanDelta(dx, dy float64) {
	if dx == 0 && dy == 0 {
		return
	}
	c.live.X += dx
	c.live.Y += dy
	c.markDirty()
}

// EndPan flushes any residual pan delta when the drag gesture ends.
func (c *Controller) EndPan() { c.FlushNow() }

// FlushNow commits the live transform synchronously. Call it before any
// action that must see the true current transform.
func (c *Controller) FlushNow() {
	if !c.dirty {
		return
	}
	c.dirty = false
	c.committed = c.live
	if c.OnCommit != nil {
		c.OnCommit(c.committed)
	}
}

// Pending reports whether uncommitted input exists.
func (c *Controller) Pending() bool { return c.dirty }

func (c *Controller) markDirty() {
	c.dirty = true
	if c.scheduled {
		return
	}
	c.scheduled = true
	c.sched.RequestFrame(func() {
		c.scheduled = false
		c.FlushNow()
	})
}

// Fit returns the view that shows the world box (x, y, w, h) centered in a
// width by height surface with padding pixels on every side.
func Fit(x, y, w, h, width, height, padding float64) View {
	if w <= 0 || h <= 0 || width <= 2*padding || height <= 2*padding {
		return View{X: width/2 - x, Y: height/2 - y, Scale: 1}
	}
	scale := math.Min((width-2*padding)/w, (height-2*padding)/h)
	return View{
		X:     (width-w*scale)/2 - x*scale,
		Y:     (height-h*scale)/2 - y*scale,
		Scale: scale,
	}
}
