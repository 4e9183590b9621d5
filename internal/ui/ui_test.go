package ui

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LiveCanvas/internal/canvas"
	"LiveCanvas/internal/render"
	"LiveCanvas/internal/state"
	"LiveCanvas/internal/store"
	"LiveCanvas/internal/undo"
	"LiveCanvas/internal/viewport"
)

func newTestWidget(t *testing.T) (*BoardWidget, *state.Board) {
	t.Helper()
	test.NewApp()
	board := state.NewBoard(store.NewMemory(), "main")
	board.Mount()
	t.Cleanup(board.Unmount)
	engine := canvas.New(canvas.Config{
		Board:    board,
		View:     viewport.NewController(viewport.Immediate),
		Identity: state.Identity{UserID: "u1", Name: "Ann"},
		Undo:     undo.NewStack(0),
	})
	painter, err := render.NewPainter()
	require.NoError(t, err)
	w := NewBoardWidget(engine, painter)
	w.Resize(fyne.NewSize(800, 600))
	return w, board
}

func press(w *BoardWidget, x, y float32) {
	w.MouseDown(&desktop.MouseEvent{
		PointEvent: fyne.PointEvent{Position: fyne.NewPos(x, y)},
		Button:     desktop.MouseButtonPrimary,
	})
}

func release(w *BoardWidget, x, y float32) {
	w.MouseUp(&desktop.MouseEvent{
		PointEvent: fyne.PointEvent{Position: fyne.NewPos(x, y)},
		Button:     desktop.MouseButtonPrimary,
	})
}

func TestBoardWidget_CreateDragAndDelete(t *testing.T) {
	w, board := newTestWidget(t)
	w.Engine().SetTool(canvas.ToolStickyNote)

	press(w, 100, 100)
	release(w, 100, 100)
	objs := board.Objects()
	require.Len(t, objs, 1)
	id := objs[0].ID
	assert.Equal(t, state.TypeStickyNote, objs[0].Type)
	assert.Equal(t, canvas.ToolSelect, w.Engine().Tool())

	press(w, 150, 150)
	w.Dragged(&fyne.DragEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(200, 170)}})
	w.DragEnd()
	release(w, 200, 170) // arrives after DragEnd and is ignored
	o, ok := board.Object(id)
	require.True(t, ok)
	assert.InDelta(t, 150, o.X, 1e-9)
	assert.InDelta(t, 120, o.Y, 1e-9)

	w.TypedKey(&fyne.KeyEvent{Name: fyne.KeyDelete})
	assert.Empty(t, board.Objects())

	w.TypedShortcut(&fyne.ShortcutUndo{})
	_, ok = board.Object(id)
	assert.True(t, ok, "undo restores the deleted note")
}

func TestBoardWidget_ScrollZoomsAboutPointer(t *testing.T) {
	w, _ := newTestWidget(t)
	view := w.Engine().View()
	before := view.ScreenToWorld(400, 300)

	w.Scrolled(&fyne.ScrollEvent{
		PointEvent: fyne.PointEvent{Position: fyne.NewPos(400, 300)},
		Scrolled:   fyne.Delta{DY: 10},
	})
	assert.Greater(t, view.Scale(), 1.0, "scrolling up zooms in")
	after := view.ScreenToWorld(400, 300)
	assert.InDelta(t, before.X, after.X, 1e-9)
	assert.InDelta(t, before.Y, after.Y, 1e-9)
}

func TestBoardWidget_ModifierKeysReachGestures(t *testing.T) {
	w, board := newTestWidget(t)
	board.CreateObject(state.BoardObject{ID: "a", Type: state.TypeRectangle, Width: 50, Height: 50, CreatedBy: "u2"})
	board.CreateObject(state.BoardObject{ID: "b", Type: state.TypeRectangle, X: 100, Width: 50, Height: 50, CreatedBy: "u2"})

	press(w, 25, 25)
	release(w, 25, 25)
	w.KeyDown(&fyne.KeyEvent{Name: desktop.KeyShiftLeft})
	press(w, 125, 25)
	release(w, 125, 25)
	w.KeyUp(&fyne.KeyEvent{Name: desktop.KeyShiftLeft})

	assert.ElementsMatch(t, []string{"a", "b"}, w.Engine().Selection())
}

func TestBoardWidget_DoubleTapEditsText(t *testing.T) {
	w, board := newTestWidget(t)
	board.CreateObject(state.BoardObject{ID: "n", Type: state.TypeStickyNote, Width: 100, Height: 100, Text: "hi", CreatedBy: "u2"})
	board.CreateObject(state.BoardObject{ID: "img", Type: state.TypeImage, X: 200, Width: 100, Height: 100, ImageData: "x", CreatedBy: "u2"})

	var edited []string
	w.OnEditText = func(o state.BoardObject) { edited = append(edited, o.ID) }
	w.DoubleTapped(&fyne.PointEvent{Position: fyne.NewPos(50, 50)})
	w.DoubleTapped(&fyne.PointEvent{Position: fyne.NewPos(250, 50)})
	w.DoubleTapped(&fyne.PointEvent{Position: fyne.NewPos(500, 500)})
	assert.Equal(t, []string{"n"}, edited)
}

func TestModsFrom(t *testing.T) {
	m := modsFrom(fyne.KeyModifierShift | fyne.KeyModifierSuper)
	assert.True(t, m.Has(canvas.ModShift))
	assert.True(t, m.Command())
	assert.False(t, m.Has(canvas.ModAlt))
	assert.Equal(t, canvas.ButtonMiddle, buttonFrom(desktop.MouseButtonTertiary))
}

func TestImageDataURL(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	data, w, h, err := imageDataURL(&buf)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(data, "data:image/png;base64,"))
	assert.Equal(t, 3, w)
	assert.Equal(t, 2, h)

	decoded, err := render.DecodeImage(data)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 3, 2), decoded.Bounds())

	_, _, _, err = imageDataURL(strings.NewReader("not an image"))
	assert.Error(t, err)
}
