// Package canvas is the interaction core of a board: tool mode, selection,
// the pointer gesture state machine and the undo wiring. It owns no
// rendering surface; callers feed it input events and paint its Scene.
package canvas

import (
	"log"
	"math"
	"sort"

	"LiveCanvas/internal/geometry"
	"LiveCanvas/internal/state"
	"LiveCanvas/internal/undo"
	"LiveCanvas/internal/viewport"
)

// Screen-pixel tolerances. Each is divided by the current zoom before use.
const (
	handleRadius     = 8.0
	anchorRadius     = 8.0
	connectionSlop   = 6.0
	rotateHandleGap  = 30.0
	minAreaDrag      = 5.0
	minResizePx      = 20.0
	pasteOffset      = 20.0
	rotationSnapStep = 15.0
)

// Clipboard mirrors copied objects to the system clipboard so a paste can
// cross process boundaries.
type Clipboard interface {
	ReadAll() (string, error)
	WriteAll(text string) error
}

type Config struct {
	Board     *state.Board
	Presence  *state.Presence // optional
	View      *viewport.Controller
	Identity  state.Identity
	Undo      *undo.Stack
	Clipboard Clipboard // optional
	Logger    *log.Logger
	// OnChange fires after any change a renderer should pick up.
	OnChange func()
}

type Engine struct {
	board     *state.Board
	presence  *state.Presence
	view      *viewport.Controller
	me        state.Identity
	undo      *undo.Stack
	clipboard Clipboard
	logger    *log.Logger
	onChange  func()

	tool         Tool
	selection    []string
	selectedConn string
	gesture      gesture
	drawing      *drawing
	textEditing  bool

	copied      []state.BoardObject
	copiedConns []state.Connection
	pasteCount  int
}

func New(cfg Config) *Engine {
	e := &Engine{
		board:     cfg.Board,
		presence:  cfg.Presence,
		view:      cfg.View,
		me:        cfg.Identity,
		undo:      cfg.Undo,
		clipboard: cfg.Clipboard,
		logger:    cfg.Logger,
		onChange:  cfg.OnChange,
		gesture:   idle{},
	}
	if e.view == nil {
		e.view = viewport.NewController(nil)
	}
	if e.undo == nil {
		e.undo = undo.NewStack(0)
	}
	if e.logger == nil {
		e.logger = log.Default()
	}
	return e
}

func (e *Engine) SetOnChange(fn func()) { e.onChange = fn }

func (e *Engine) Board() *state.Board { return e.board }
func (e *Engine) View() *viewport.Controller { return e.view }
func (e *Engine) Undo() *undo.Stack { return e.undo }
func (e *Engine) Identity() state.Identity { return e.me }
func (e *Engine) Tool() Tool { return e.tool }
func (e *Engine) SelectedConnection() string { return e.selectedConn }
func (e *Engine) Drawing() bool { return e.drawing != nil }
func (e *Engine) GestureName() string { return e.gesture.name() }

func (e *Engine) SetTool(t Tool) {
	e.tool = t
	e.changed()
}

// SetTextEditing tells the engine a text input holds focus. Keyboard
// shortcuts are ignored until it is cleared.
func (e *Engine) SetTextEditing(on bool) { e.textEditing = on }

func (e *Engine) TextEditing() bool { return e.textEditing }

// Selection returns the selected ids still present on the board.
func (e *Engine) Selection() []string {
	out := make([]string, 0, len(e.selection))
	for _, id := range e.selection {
		if _, ok := e.board.Object(id); ok {
			out = append(out, id)
		}
	}
	return out
}

func (e *Engine) IsSelected(id string) bool {
	for _, s := range e.selection {
		if s == id {
			return true
		}
	}
	return false
}

func (e *Engine) selectedObjects() []state.BoardObject {
	var out []state.BoardObject
	for _, id := range e.selection {
		if o, ok := e.board.Object(id); ok {
			out = append(out, o)
		}
	}
	return out
}

func (e *Engine) changed() {
	if e.onChange != nil {
		e.onChange()
	}
}

// guard keeps a failing handler from taking down the interaction loop. The
// gesture is reset so the next input starts clean.
func (e *Engine) guard(what string) {
	if r := recover(); r != nil {
		e.logger.Printf("[CANVAS] %s failed: %v", what, r)
		e.gesture = idle{}
	}
}

func (e *Engine) markSelected(id string) {
	e.board.PatchObject(id, state.ObjectPatch{
		SelectedBy:     state.String(e.me.UserID),
		SelectedByName: state.String(e.me.Name),
	})
}

// unmark clears our advisory marker. A marker another user has since taken
// is left alone.
func (e *Engine) unmark(id string) {
	o, ok := e.board.Object(id)
	if !ok || o.SelectedBy != e.me.UserID {
		return
	}
	e.board.PatchObject(id, state.ObjectPatch{
		SelectedBy:     state.String(""),
		SelectedByName: state.String(""),
	})
}

// ClearSelection deselects everything, objects and connection alike.
func (e *Engine) ClearSelection() {
	for _, id := range e.selection {
		e.unmark(id)
	}
	e.selection = nil
	e.selectedConn = ""
	e.changed()
}

// Select replaces the selection with ids.
func (e *Engine) Select(ids ...string) {
	keep := make(map[string]bool, len(ids))
	for _, id := range ids {
		keep[id] = true
	}
	for _, id := range e.selection {
		if !keep[id] {
			e.unmark(id)
		}
	}
	e.selection = nil
	e.selectedConn = ""
	for _, id := range ids {
		if _, ok := e.board.Object(id); !ok || e.IsSelected(id) {
			continue
		}
		e.selection = append(e.selection, id)
		e.markSelected(id)
	}
	e.changed()
}

func (e *Engine) toggle(id string) {
	if e.IsSelected(id) {
		out := e.selection[:0]
		for _, s := range e.selection {
			if s != id {
				out = append(out, s)
			}
		}
		e.selection = out
		e.unmark(id)
	} else {
		e.selection = append(e.selection, id)
		e.markSelected(id)
	}
	e.selectedConn = ""
	e.changed()
}

// layers returns the objects in paint order: sent-to-back first, then frames,
// then everything else, each group in board order.
func layers(objs []state.BoardObject) []state.BoardObject {
	rank := func(o state.BoardObject) int {
		switch {
		case o.SentToBack:
			return 0
		case o.IsFrame():
			return 1
		}
		return 2
	}
	out := append([]state.BoardObject(nil), objs...)
	sort.SliceStable(out, func(i, j int) bool { return rank(out[i]) < rank(out[j]) })
	return out
}

// objectAt returns the topmost object under world point p.
func (e *Engine) objectAt(p geometry.Point) (state.BoardObject, bool) {
	objs := layers(e.board.Objects())
	for i := len(objs) - 1; i >= 0; i-- {
		o := geometry.Sanitize(objs[i], 1)
		if geometry.ContainsPoint(o, p) {
			return objs[i], true
		}
	}
	return state.BoardObject{}, false
}

// ObjectAt is objectAt for a screen position, for callers such as a
// double-click text editor.
func (e *Engine) ObjectAt(x, y float64) (state.BoardObject, bool) {
	return e.objectAt(e.view.ScreenToWorld(x, y))
}

// edgeZoneShare caps anchor and corner hit zones at this share of the
// object's shorter side, so a zoomed-out object keeps a clickable body.
const edgeZoneShare = 0.25

// edgeZone is the world radius of an anchor or corner zone on o.
func (e *Engine) edgeZone(o state.BoardObject, screenPx float64) float64 {
	o = geometry.Sanitize(o, 1)
	return math.Min(screenPx/e.view.Scale(), edgeZoneShare*math.Min(o.Width, o.Height))
}

// anchorAt finds a connection anchor near p, topmost object first. An object
// whose body covers p hides the anchors of everything below it.
func (e *Engine) anchorAt(p geometry.Point) (state.BoardObject, string, bool) {
	objs := layers(e.board.Objects())
	for i := len(objs) - 1; i >= 0; i-- {
		o := geometry.Sanitize(objs[i], 1)
		if a, ok := geometry.AnchorAt(o, p, e.edgeZone(o, anchorRadius)); ok {
			return objs[i], a, true
		}
		if geometry.ContainsPoint(o, p) {
			break
		}
	}
	return state.BoardObject{}, "", false
}

func (e *Engine) connectionAt(p geometry.Point) (state.Connection, bool) {
	slop := connectionSlop / e.view.Scale()
	conns := e.board.Connections()
	for i := len(conns) - 1; i >= 0; i-- {
		path, ok := e.connectionPath(conns[i], nil)
		if ok && geometry.DistanceToPolyline(p, path) <= slop {
			return conns[i], true
		}
	}
	return state.Connection{}, false
}

// connectionPath resolves a connection to world points: source anchor,
// waypoints, target anchor. shown maps ids to mid-gesture geometry.
func (e *Engine) connectionPath(c state.Connection, shown func(state.BoardObject) state.BoardObject) ([]geometry.Point, bool) {
	from, ok1 := e.board.Object(c.FromID)
	to, ok2 := e.board.Object(c.ToID)
	if !ok1 || !ok2 {
		return nil, false
	}
	if shown != nil {
		from, to = shown(from), shown(to)
	}
	path := make([]geometry.Point, 0, len(c.Points)+2)
	path = append(path, geometry.AnchorWorldPoint(from, c.FromAnchor))
	path = append(path, c.Points...)
	path = append(path, geometry.AnchorWorldPoint(to, c.ToAnchor))
	return path, true
}

// frameFor picks the frame o should belong to: its current frame when that
// still overlaps, otherwise the first overlapping frame in board order.
func (e *Engine) frameFor(o state.BoardObject) string {
	box := geometry.RotatedAABB(o)
	first := ""
	for _, f := range e.board.Frames() {
		if f.ID == o.ID || !geometry.RectsOverlap(box, geometry.RotatedAABB(f)) {
			continue
		}
		if f.ID == o.FrameID {
			return f.ID
		}
		if first == "" {
			first = f.ID
		}
	}
	return first
}
