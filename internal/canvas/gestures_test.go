package canvas_test

import (
	"testing"

	"LiveCanvas/internal/canvas"
	"LiveCanvas/internal/geometry"
	"LiveCanvas/internal/state"
	"LiveCanvas/internal/viewport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAreaSelectScenario(t *testing.T) {
	f := newFixture(t)
	f.rect("a", 0, 0, 100, 100)
	f.rect("b", 150, 0, 100, 100)

	// Start in empty space just left of A so the press hits nothing.
	f.down(-30, 50, 0)
	f.move(120, 0, 0)
	assert.NotNil(t, f.engine.Scene().Area)
	f.up(120, 0)

	assert.Equal(t, []string{"a"}, f.engine.Selection())
	assert.Equal(t, me.UserID, f.obj("a").SelectedBy)
	assert.Empty(t, f.obj("b").SelectedBy)
	assert.Nil(t, f.engine.Scene().Area)
}

func TestAreaSelectBelowMinimumIsAClick(t *testing.T) {
	f := newFixture(t)
	f.rect("a", 0, 0, 100, 100)
	f.click(50, 50)

	f.down(300, 300, 0)
	f.move(303, 302, 0)
	f.up(303, 302)
	assert.Empty(t, f.engine.Selection(), "a short drag on empty canvas just clears")
}

func TestAreaSelectCancelledByEscape(t *testing.T) {
	f := newFixture(t)
	f.rect("a", 0, 0, 100, 100)
	f.down(-50, -50, 0)
	f.move(200, 200, 0)
	f.key(canvas.KeyEscape, 0)
	assert.Nil(t, f.engine.Scene().Area)
	f.up(200, 200)
	assert.Empty(t, f.engine.Selection())
}

func TestDragFrameCarriesChildren(t *testing.T) {
	f := newFixture(t)
	f.add(state.TypeFrame, "f", 0, 0, 400, 300)
	f.rect("c", 50, 50, 100, 100)
	f.board.PatchObject("c", state.ObjectPatch{FrameID: state.String("f")})

	f.down(300, 200, 0)
	f.move(310, 210, 0)
	f.move(320, 220, 0)

	// Mid-gesture the store is untouched; only the scene shows the move.
	assert.Equal(t, 0.0, f.obj("f").X)
	for _, o := range f.engine.Scene().Objects {
		if o.ID == "c" {
			assert.Equal(t, 70.0, o.X)
		}
	}
	f.up(320, 220)

	assert.Equal(t, 20.0, f.obj("f").X)
	assert.Equal(t, 20.0, f.obj("f").Y)
	assert.Equal(t, 70.0, f.obj("c").X)
	assert.Equal(t, 70.0, f.obj("c").Y)
	assert.Equal(t, "f", f.obj("c").FrameID)
	assert.Empty(t, f.obj("f").FrameID, "frames are never re-parented")

	f.engine.UndoLast()
	assert.Equal(t, 0.0, f.obj("f").X)
	assert.Equal(t, 50.0, f.obj("c").X)
	assert.Equal(t, 50.0, f.obj("c").Y)
	assert.Equal(t, "f", f.obj("c").FrameID)
}

func TestDragIntoAndOutOfFrame(t *testing.T) {
	f := newFixture(t)
	f.add(state.TypeFrame, "f", 0, 0, 400, 300)
	f.rect("o", 500, 500, 50, 50)

	f.drag(525, 525, 225, 225)
	assert.Equal(t, 200.0, f.obj("o").X)
	assert.Equal(t, "f", f.obj("o").FrameID)

	f.drag(225, 225, 925, 925)
	assert.Empty(t, f.obj("o").FrameID, "leaving every frame clears membership")

	f.engine.UndoLast()
	assert.Equal(t, 200.0, f.obj("o").X)
	assert.Equal(t, "f", f.obj("o").FrameID)

	f.engine.UndoLast()
	assert.Equal(t, 500.0, f.obj("o").X)
	assert.Equal(t, 500.0, f.obj("o").Y)
	assert.Empty(t, f.obj("o").FrameID)
}

func TestDragOverlappingFramesPicksDeterministically(t *testing.T) {
	f := newFixture(t)
	f.add(state.TypeFrame, "f1", 0, 0, 300, 300)
	f.add(state.TypeFrame, "f2", 200, 0, 300, 300)
	f.rect("o", 800, 800, 50, 50)

	// Dropped across both frames: the first in board order wins.
	f.drag(825, 825, 250, 150)
	assert.Equal(t, "f1", f.obj("o").FrameID)

	// Already inside f2 and still overlapping it: membership is kept.
	f.board.PatchObject("o", state.ObjectPatch{FrameID: state.String("f2")})
	f.drag(250, 150, 255, 155)
	assert.Equal(t, "f2", f.obj("o").FrameID)
}

func TestGroupDragMovesRigidly(t *testing.T) {
	f := newFixture(t)
	f.rect("a", 0, 0, 100, 100)
	f.rect("b", 200, 0, 100, 100)
	f.click(50, 50)
	f.down(250, 50, canvas.ModShift)
	f.up(250, 50)

	f.drag(50, 50, 60, 80)
	assert.Equal(t, 10.0, f.obj("a").X)
	assert.Equal(t, 30.0, f.obj("a").Y)
	assert.Equal(t, 210.0, f.obj("b").X)
	assert.Equal(t, 30.0, f.obj("b").Y)
	assert.Equal(t, 1, f.engine.Undo().Len(), "one entry for the whole group")
}

func TestResizeFromCorner(t *testing.T) {
	f := newFixture(t)
	f.rect("r", 0, 0, 100, 100)
	f.click(50, 50)

	f.drag(100, 100, 150, 120)
	r := f.obj("r")
	assert.Equal(t, 0.0, r.X)
	assert.Equal(t, 0.0, r.Y)
	assert.Equal(t, 150.0, r.Width)
	assert.Equal(t, 120.0, r.Height)

	// Dragging the top-left corner past the opposite one clamps to the minimum.
	f.drag(0, 0, 400, 400)
	r = f.obj("r")
	assert.InDelta(t, 20.0, r.Width, 1e-9)
	assert.InDelta(t, 20.0, r.Height, 1e-9)
	assert.InDelta(t, 130.0, r.X, 1e-9, "bottom-right corner stays put")
	assert.InDelta(t, 100.0, r.Y, 1e-9)

	f.engine.UndoLast()
	f.engine.UndoLast()
	r = f.obj("r")
	assert.Equal(t, [4]float64{0, 0, 100, 100}, [4]float64{r.X, r.Y, r.Width, r.Height})
}

func TestResizeRotatedKeepsOppositeCorner(t *testing.T) {
	f := newFixture(t)
	f.rect("r", 0, 0, 100, 100)
	f.board.PatchObject("r", state.ObjectPatch{Rotation: state.Float(45)})
	f.click(50, 50)

	before := geometry.Corners(f.obj("r"))
	br := before[2]
	f.drag(br.X, br.Y, br.X+30, br.Y+30)

	after := geometry.Corners(f.obj("r"))
	assert.InDelta(t, before[0].X, after[0].X, 1e-9)
	assert.InDelta(t, before[0].Y, after[0].Y, 1e-9)
	assert.Equal(t, 45.0, f.obj("r").Rotation)
}

func TestResizeFrameRescalesChildren(t *testing.T) {
	f := newFixture(t)
	f.add(state.TypeFrame, "f", 0, 0, 200, 100)
	f.rect("c", 100, 50, 50, 25)
	f.board.PatchObject("c", state.ObjectPatch{FrameID: state.String("f")})
	f.click(10, 80)
	require.Equal(t, []string{"f"}, f.engine.Selection())

	f.drag(200, 100, 400, 200)
	fr, c := f.obj("f"), f.obj("c")
	assert.Equal(t, [4]float64{0, 0, 400, 200}, [4]float64{fr.X, fr.Y, fr.Width, fr.Height})
	assert.Equal(t, [4]float64{200, 100, 100, 50}, [4]float64{c.X, c.Y, c.Width, c.Height})

	f.engine.UndoLast()
	fr, c = f.obj("f"), f.obj("c")
	assert.Equal(t, [4]float64{0, 0, 200, 100}, [4]float64{fr.X, fr.Y, fr.Width, fr.Height})
	assert.Equal(t, [4]float64{100, 50, 50, 25}, [4]float64{c.X, c.Y, c.Width, c.Height})
}

func TestRotateSingleAndSnap(t *testing.T) {
	f := newFixture(t)
	f.rect("r", 0, 0, 100, 100)
	f.click(50, 50)

	// The rotation handle sits 30px above the top edge.
	f.down(50, -30, 0)
	f.move(130, 45, canvas.ModShift)
	f.up(130, 45)

	r := f.obj("r")
	assert.InDelta(t, 90.0, r.Rotation, 1e-9)
	assert.InDelta(t, 0.0, r.X, 1e-9, "a single object pivots on its own center")
	assert.InDelta(t, 0.0, r.Y, 1e-9)

	f.engine.UndoLast()
	assert.Equal(t, 0.0, f.obj("r").Rotation)
}

func TestRotateGroupAboutCombinedCenter(t *testing.T) {
	f := newFixture(t)
	f.rect("a", 0, 0, 100, 100)
	f.rect("b", 200, 0, 100, 100)
	f.down(-20, -20, 0)
	f.up(320, 120)
	require.Len(t, f.engine.Selection(), 2)

	f.down(150, -30, 0)
	f.move(230, 50, 0)
	f.up(230, 50)

	a, b := f.obj("a"), f.obj("b")
	assert.InDelta(t, 90.0, a.Rotation, 1e-9)
	assert.InDelta(t, 100.0, a.X, 1e-9)
	assert.InDelta(t, -100.0, a.Y, 1e-9)
	assert.InDelta(t, 100.0, b.X, 1e-9)
	assert.InDelta(t, 100.0, b.Y, 1e-9)

	f.engine.UndoLast()
	a, b = f.obj("a"), f.obj("b")
	assert.Equal(t, [3]float64{0, 0, 0}, [3]float64{a.X, a.Y, a.Rotation})
	assert.Equal(t, [3]float64{200, 0, 0}, [3]float64{b.X, b.Y, b.Rotation})
}

func connectXY(t *testing.T, f *fixture) {
	t.Helper()
	f.rect("x", 0, 0, 100, 100)
	f.rect("y", 300, 0, 100, 100)

	f.click(100, 50) // x's right anchor
	require.True(t, f.engine.Drawing(), "releasing the starting press keeps drawing")
	f.click(200, 200) // waypoint
	require.True(t, f.engine.Drawing())
}

func TestConnectionDrawingScenario(t *testing.T) {
	f := newFixture(t)
	connectXY(t, f)
	f.move(250, 100, 0)
	assert.Len(t, f.engine.Scene().Pending, 3)

	f.click(300, 50) // y's left anchor
	assert.False(t, f.engine.Drawing())

	conns := f.board.Connections()
	require.Len(t, conns, 1)
	c := conns[0]
	assert.Equal(t, "x", c.FromID)
	assert.Equal(t, "right", c.FromAnchor)
	assert.Equal(t, "y", c.ToID)
	assert.Equal(t, "left", c.ToAnchor)
	assert.Equal(t, []state.Point{{X: 200, Y: 200}}, c.Points)

	sc := f.engine.Scene().Connections
	require.Len(t, sc, 1)
	path := sc[0].Path
	assert.Equal(t, geometry.AnchorWorldPoint(f.obj("x"), "right"), path[0])
	assert.Equal(t, geometry.AnchorWorldPoint(f.obj("y"), "left"), path[len(path)-1])
	assert.True(t, sc[0].Visible)

	f.engine.UndoLast()
	assert.Empty(t, f.board.Connections())
}

func TestConnectionDropOnBodyUsesNearestAnchor(t *testing.T) {
	f := newFixture(t)
	connectXY(t, f)
	f.click(390, 60)
	conns := f.board.Connections()
	require.Len(t, conns, 1)
	assert.Equal(t, "right", conns[0].ToAnchor)
}

func TestConnectionDrawingCancels(t *testing.T) {
	f := newFixture(t)
	connectXY(t, f)
	f.key(canvas.KeyEscape, 0)
	assert.False(t, f.engine.Drawing())

	f.click(100, 50)
	f.engine.PointerDown(canvas.PointerEvent{X: 10, Y: 10, Button: canvas.ButtonSecondary})
	assert.False(t, f.engine.Drawing(), "right-click cancels")

	f.click(100, 50)
	f.click(100, 50)
	assert.False(t, f.engine.Drawing(), "dropping on the origin anchor cancels")
	assert.Empty(t, f.board.Connections())
	assert.Zero(t, f.engine.Undo().Len())
}

func TestConnectionHitSelectAndDelete(t *testing.T) {
	f := newFixture(t)
	f.rect("x", 0, 0, 100, 100)
	f.rect("y", 300, 0, 100, 100)
	f.board.CreateConnection(state.Connection{ID: "c", FromID: "x", ToID: "y", FromAnchor: "right", ToAnchor: "left"})

	f.click(200, 53)
	assert.Equal(t, "c", f.engine.SelectedConnection())

	f.engine.SetColor("#e53935")
	c, _ := f.board.Connection("c")
	assert.Equal(t, "#e53935", c.Color)

	f.key(canvas.KeyDelete, 0)
	assert.Empty(t, f.board.Connections())
	assert.False(t, f.gone("x"), "deleting a connection leaves its ends")

	f.engine.UndoLast()
	f.engine.UndoLast()
	c, ok := f.board.Connection("c")
	require.True(t, ok)
	assert.Empty(t, c.Color)
}

func TestSmallEndpointsHideConnection(t *testing.T) {
	f := newFixture(t)
	f.rect("x", 0, 0, 10, 10)
	f.rect("y", 300, 0, 100, 100)
	f.board.CreateConnection(state.Connection{ID: "c", FromID: "x", ToID: "y", FromAnchor: "right", ToAnchor: "left"})

	sc := f.engine.Scene().Connections
	require.Len(t, sc, 1)
	assert.False(t, sc[0].Visible)
	_, ok := f.board.Connection("c")
	assert.True(t, ok, "visibility never touches stored data")
}

func TestZoomedOutObjectStaysSelectableAndDraggable(t *testing.T) {
	f := newFixture(t)
	f.rect("r", 0, 0, 100, 100)
	f.view.Set(viewport.View{Scale: 0.1})

	f.click(5, 5)
	assert.False(t, f.engine.Drawing(), "the body center is not an anchor")
	assert.Equal(t, []string{"r"}, f.engine.Selection())

	f.drag(5, 5, 50, 50)
	assert.False(t, f.engine.Drawing())
	assert.InDelta(t, 450, f.obj("r").X, 1e-9)
	assert.InDelta(t, 450, f.obj("r").Y, 1e-9)
}

func TestCoveredAnchorLosesToBodyAbove(t *testing.T) {
	f := newFixture(t)
	f.rect("below", 0, 0, 100, 100)
	f.rect("above", 50, 0, 100, 100) // covers below's right anchor at (100, 50)

	f.click(100, 50)
	assert.False(t, f.engine.Drawing())
	assert.Equal(t, []string{"above"}, f.engine.Selection())
}
