package viewport_test

import (
	"testing"

	"LiveCanvas/internal/viewport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// frames queues frame callbacks until the test ticks them.
type frames struct {
	queue []func()
}

func (f *frames) RequestFrame(fn func()) { f.queue = append(f.queue, fn) }

func (f *frames) tick() {
	q := f.queue
	f.queue = nil
	for _, fn := range q {
		fn()
	}
}

func TestView_ScreenWorldRoundTrip(t *testing.T) {
	v := viewport.View{X: 30, Y: -12, Scale: 2.5}
	w := v.ScreenToWorld(130, 88)
	assert.InDelta(t, 40, w.X, 1e-9)
	assert.InDelta(t, 40, w.Y, 1e-9)

	s := v.WorldToScreen(w.X, w.Y)
	assert.InDelta(t, 130, s.X, 1e-9)
	assert.InDelta(t, 88, s.Y, 1e-9)
}

func TestController_WheelKeepsPointerAnchored(t *testing.T) {
	c := viewport.NewController(&frames{})
	c.Set(viewport.View{X: 15, Y: 40, Scale: 1.3})

	before := c.ScreenToWorld(200, 150)
	c.ApplyWheel(200, 150, -120)
	after := c.ScreenToWorld(200, 150)

	assert.Greater(t, c.Live().Scale, 1.3)
	assert.InDelta(t, before.X, after.X, 1e-9)
	assert.InDelta(t, before.Y, after.Y, 1e-9)
}

func TestController_CoalescesToOneCommitPerFrame(t *testing.T) {
	f := &frames{}
	c := viewport.NewController(f)
	var commits []viewport.View
	c.OnCommit = func(v viewport.View) { commits = append(commits, v) }

	for i := 0; i < 10; i++ {
		c.ApplyWheel(100, 100, 10)
		c.ApplyPanDelta(1, 2)
	}
	require.Len(t, f.queue, 1, "only one frame is requested per batch")
	assert.Empty(t, commits)
	assert.Equal(t, viewport.Identity, c.Committed())

	f.tick()
	require.Len(t, commits, 1)
	assert.Equal(t, c.Live(), c.Committed(), "the latest accumulated state is committed")

	c.ApplyPanDelta(5, 5)
	f.tick()
	assert.Len(t, commits, 2)
}

func TestController_FlushNowBeforeFrame(t *testing.T) {
	f := &frames{}
	c := viewport.NewController(f)
	commits := 0
	c.OnCommit = func(viewport.View) { commits++ }

	c.ApplyPanDelta(10, -4)
	assert.True(t, c.Pending())
	c.FlushNow()
	assert.False(t, c.Pending())
	assert.Equal(t, viewport.View{X: 10, Y: -4, Scale: 1}, c.Committed())

	// The frame that was already scheduled finds nothing left to commit.
	f.tick()
	assert.Equal(t, 1, commits)
}

func TestController_EndPanFlushesResidual(t *testing.T) {
	c := viewport.NewController(&frames{})
	c.ApplyPanDelta(3, 4)
	c.ApplyPanDelta(3, 4)
	c.EndPan()
	assert.Equal(t, viewport.View{X: 6, Y: 8, Scale: 1}, c.Committed())
}

func TestController_DegenerateInput(t *testing.T) {
	c := viewport.NewController(nil)
	c.ApplyWheel(0, 0, 1e9)
	assert.Greater(t, c.Live().Scale, 0.0, "a huge wheel delta never flips the scale")

	c.Set(viewport.View{Scale: 0})
	assert.Equal(t, 1.0, c.Committed().Scale)

	c.ApplyWheel(0, 0, 0)
	assert.False(t, c.Pending())
}
