package ui

import (
	"image"
	"log"

	"fyne.io/fyne/v2"
	fcanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"LiveCanvas/internal/canvas"
	"LiveCanvas/internal/render"
	"LiveCanvas/internal/state"
)

// wheelScale converts fyne scroll steps to wheel deltas of the size the
// viewport controller expects from a mouse notch.
const wheelScale = 10

// BoardWidget paints an engine's scene into a raster and forwards pointer
// and keyboard input to it. It holds no board state of its own.
type BoardWidget struct {
	widget.BaseWidget
	engine  *canvas.Engine
	painter *render.Painter
	raster  *fcanvas.Raster

	held   canvas.Mods // modifier keys reported through KeyDown/KeyUp
	mods   canvas.Mods // modifiers of the gesture in progress
	button canvas.Button
	down   bool
	last   fyne.Position

	// OnEditText is called when an object that carries text is double tapped.
	OnEditText func(o state.BoardObject)
}

var _ fyne.Widget = (*BoardWidget)(nil)
var _ fyne.Draggable = (*BoardWidget)(nil)
var _ fyne.Scrollable = (*BoardWidget)(nil)
var _ fyne.Shortcutable = (*BoardWidget)(nil)
var _ fyne.DoubleTappable = (*BoardWidget)(nil)
var _ desktop.Mouseable = (*BoardWidget)(nil)
var _ desktop.Hoverable = (*BoardWidget)(nil)
var _ desktop.Keyable = (*BoardWidget)(nil)

func NewBoardWidget(engine *canvas.Engine, painter *render.Painter) *BoardWidget {
	b := &BoardWidget{engine: engine, painter: painter}
	b.raster = fcanvas.NewRaster(b.paint)
	b.ExtendBaseWidget(b)
	return b
}

func (b *BoardWidget) Engine() *canvas.Engine { return b.engine }

// paint runs on the render loop with the raster's size in device pixels.
func (b *BoardWidget) paint(w, h int) image.Image {
	ratio := 1.0
	if size := b.Size(); size.Width > 0 {
		ratio = float64(w) / float64(size.Width)
	}
	return b.painter.Paint(b.engine.Scene(), w, h, ratio)
}

// Center is the world point in the middle of the visible area.
func (b *BoardWidget) Center() state.Point {
	size := b.Size()
	return b.engine.View().ScreenToWorld(float64(size.Width)/2, float64(size.Height)/2)
}

func modsFrom(m fyne.KeyModifier) canvas.Mods {
	var out canvas.Mods
	if m&fyne.KeyModifierShift != 0 {
		out |= canvas.ModShift
	}
	if m&fyne.KeyModifierControl != 0 {
		out |= canvas.ModCtrl
	}
	if m&fyne.KeyModifierAlt != 0 {
		out |= canvas.ModAlt
	}
	if m&fyne.KeyModifierSuper != 0 {
		out |= canvas.ModSuper
	}
	return out
}

func buttonFrom(b desktop.MouseButton) canvas.Button {
	switch {
	case b&desktop.MouseButtonSecondary != 0:
		return canvas.ButtonSecondary
	case b&desktop.MouseButtonTertiary != 0:
		return canvas.ButtonMiddle
	}
	return canvas.ButtonPrimary
}

func (b *BoardWidget) event(pos fyne.Position) canvas.PointerEvent {
	b.last = pos
	return canvas.PointerEvent{
		X:      float64(pos.X),
		Y:      float64(pos.Y),
		Button: b.button,
		Mods:   b.mods | b.held,
	}
}

func (b *BoardWidget) MouseDown(e *desktop.MouseEvent) {
	if c := fyne.CurrentApp().Driver().CanvasForObject(b); c != nil {
		c.Focus(b)
	}
	b.button = buttonFrom(e.Button)
	b.mods = modsFrom(e.Modifier)
	b.down = true
	b.engine.PointerDown(b.event(e.Position))
}

// MouseUp and DragEnd both end a press; whichever arrives first wins.
func (b *BoardWidget) MouseUp(e *desktop.MouseEvent) {
	b.release(e.Position)
}

func (b *BoardWidget) Dragged(e *fyne.DragEvent) {
	b.engine.PointerMove(b.event(e.Position))
}

// DragEnd carries no position, so the press ends where the last move was.
func (b *BoardWidget) DragEnd() {
	b.release(b.last)
}

func (b *BoardWidget) release(pos fyne.Position) {
	if !b.down {
		return
	}
	b.down = false
	b.engine.PointerUp(b.event(pos))
	b.mods = 0
}

func (b *BoardWidget) MouseIn(*desktop.MouseEvent) {}

func (b *BoardWidget) MouseMoved(e *desktop.MouseEvent) {
	if !b.down {
		b.mods = modsFrom(e.Modifier)
	}
	b.engine.PointerMove(b.event(e.Position))
}

func (b *BoardWidget) MouseOut() {}

func (b *BoardWidget) Scrolled(e *fyne.ScrollEvent) {
	b.engine.Wheel(float64(e.Position.X), float64(e.Position.Y), float64(-e.Scrolled.DY*wheelScale))
}

func (b *BoardWidget) DoubleTapped(e *fyne.PointEvent) {
	o, ok := b.engine.ObjectAt(float64(e.Position.X), float64(e.Position.Y))
	if !ok || o.Type == state.TypeImage || b.OnEditText == nil {
		return
	}
	b.OnEditText(o)
}

// Keyboard.

func (b *BoardWidget) FocusGained() {}

func (b *BoardWidget) FocusLost() {
	b.held = 0
}

func (b *BoardWidget) TypedRune(rune) {}

func (b *BoardWidget) TypedKey(e *fyne.KeyEvent) {
	switch e.Name {
	case fyne.KeyDelete, fyne.KeyBackspace, fyne.KeyEscape:
		b.engine.KeyDown(canvas.KeyEvent{Key: canvas.Key(e.Name), Mods: b.held})
	}
}

var modifierKeys = map[fyne.KeyName]canvas.Mods{
	desktop.KeyShiftLeft:    canvas.ModShift,
	desktop.KeyShiftRight:   canvas.ModShift,
	desktop.KeyControlLeft:  canvas.ModCtrl,
	desktop.KeyControlRight: canvas.ModCtrl,
	desktop.KeyAltLeft:      canvas.ModAlt,
	desktop.KeyAltRight:     canvas.ModAlt,
	desktop.KeySuperLeft:    canvas.ModSuper,
	desktop.KeySuperRight:   canvas.ModSuper,
}

func (b *BoardWidget) KeyDown(e *fyne.KeyEvent) {
	b.held |= modifierKeys[e.Name]
}

func (b *BoardWidget) KeyUp(e *fyne.KeyEvent) {
	b.held &^= modifierKeys[e.Name]
}

func (b *BoardWidget) TypedShortcut(s fyne.Shortcut) {
	switch sc := s.(type) {
	case *fyne.ShortcutCopy:
		b.engine.KeyDown(canvas.KeyEvent{Key: canvas.KeyC, Mods: canvas.ModCtrl})
	case *fyne.ShortcutPaste:
		b.engine.KeyDown(canvas.KeyEvent{Key: canvas.KeyV, Mods: canvas.ModCtrl})
	case *fyne.ShortcutUndo:
		b.engine.KeyDown(canvas.KeyEvent{Key: canvas.KeyZ, Mods: canvas.ModCtrl})
	case *desktop.CustomShortcut:
		b.engine.KeyDown(canvas.KeyEvent{Key: canvas.Key(sc.KeyName), Mods: modsFrom(sc.Modifier)})
	default:
		log.Printf("[CANVAS] unhandled shortcut %s", s.ShortcutName())
	}
}

func (b *BoardWidget) CreateRenderer() fyne.WidgetRenderer {
	return &boardWidgetRenderer{board: b}
}

type boardWidgetRenderer struct {
	board *BoardWidget
}

func (r *boardWidgetRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.board.raster}
}

func (r *boardWidgetRenderer) Refresh() {
	r.board.raster.Refresh()
}

func (r *boardWidgetRenderer) Layout(size fyne.Size) {
	r.board.raster.Resize(size)
}

func (r *boardWidgetRenderer) MinSize() fyne.Size {
	return fyne.NewSize(300, 300)
}

func (r *boardWidgetRenderer) Destroy() {}
