package canvas

import (
	"LiveCanvas/internal/geometry"
	"LiveCanvas/internal/state"
	"LiveCanvas/internal/viewport"
)

// Scene is everything a renderer needs for one frame. Building it has no
// side effects, so it can be taken every animation frame.
type Scene struct {
	View        viewport.View
	Me          state.Identity
	Objects     []SceneObject
	Connections []SceneConnection
	// Pending is the in-progress connection from its source anchor through
	// the waypoints to the pointer.
	Pending []geometry.Point
	Area    *geometry.Rect
	Handles []Handle
	Cursors []state.Cursor
}

type SceneObject struct {
	state.BoardObject
	Selected bool // by the local user
	// LockedBy names another user holding the advisory selection marker.
	LockedBy string
}

type SceneConnection struct {
	state.Connection
	Path     []geometry.Point
	Visible  bool
	Selected bool
}

type HandleKind int

const (
	HandleCorner HandleKind = iota
	HandleRotate
)

type Handle struct {
	Kind HandleKind
	At   geometry.Point // world
}

func (e *Engine) shown(o state.BoardObject) state.BoardObject {
	switch g := e.gesture.(type) {
	case *dragging:
		o, _ = g.transient(o)
	case *resizing:
		o, _ = g.transient(o)
	case *rotating:
		o, _ = g.transient(o)
	}
	return geometry.Sanitize(o, 1)
}

func (e *Engine) Scene() Scene {
	view := e.view.Committed()
	s := Scene{View: view, Me: e.me}

	var selected []state.BoardObject
	for _, o := range layers(e.board.Objects()) {
		o = e.shown(o)
		so := SceneObject{BoardObject: o, Selected: e.IsSelected(o.ID)}
		if o.SelectedBy != "" && o.SelectedBy != e.me.UserID {
			so.LockedBy = o.SelectedByName
			if so.LockedBy == "" {
				so.LockedBy = o.SelectedBy
			}
		}
		if so.Selected {
			selected = append(selected, o)
		}
		s.Objects = append(s.Objects, so)
	}

	for _, c := range e.board.Connections() {
		path, ok := e.connectionPath(c, e.shown)
		if !ok {
			continue
		}
		from, _ := e.board.Object(c.FromID)
		to, _ := e.board.Object(c.ToID)
		s.Connections = append(s.Connections, SceneConnection{
			Connection: c,
			Path:       path,
			Visible:    geometry.ConnectionVisible(e.shown(from), e.shown(to), view.Scale),
			Selected:   c.ID == e.selectedConn,
		})
	}

	if d := e.drawing; d != nil {
		if from, ok := e.board.Object(d.fromID); ok {
			s.Pending = append(s.Pending, geometry.AnchorWorldPoint(e.shown(from), d.fromAnchor))
			s.Pending = append(s.Pending, d.points...)
			s.Pending = append(s.Pending, d.cursor)
		}
	}

	if g, ok := e.gesture.(*areaSelecting); ok {
		r := geometry.RectFromPoints(g.start, g.current)
		s.Area = &r
	}

	if len(selected) > 0 {
		if len(selected) == 1 {
			for _, c := range geometry.Corners(selected[0]) {
				s.Handles = append(s.Handles, Handle{Kind: HandleCorner, At: c})
			}
		}
		s.Handles = append(s.Handles, Handle{Kind: HandleRotate, At: e.rotateHandlePos(selected)})
	}

	if e.presence != nil {
		s.Cursors = e.presence.Cursors()
	}
	return s
}

// Content returns the stored objects and connections without any gesture
// state, for export.
func (e *Engine) Content() ([]state.BoardObject, []state.Connection) {
	return layers(e.board.Objects()), e.board.Connections()
}

// StaticScene lays out stored content with no interaction state, as an
// export or a headless peer sees it.
func StaticScene(objs []state.BoardObject, conns []state.Connection, view viewport.View) Scene {
	s := Scene{View: view}
	byID := make(map[string]state.BoardObject, len(objs))
	for _, o := range layers(objs) {
		o = geometry.Sanitize(o, 1)
		byID[o.ID] = o
		s.Objects = append(s.Objects, SceneObject{BoardObject: o})
	}
	for _, c := range conns {
		from, ok1 := byID[c.FromID]
		to, ok2 := byID[c.ToID]
		if !ok1 || !ok2 {
			continue
		}
		path := append([]geometry.Point{geometry.AnchorWorldPoint(from, c.FromAnchor)}, c.Points...)
		path = append(path, geometry.AnchorWorldPoint(to, c.ToAnchor))
		s.Connections = append(s.Connections, SceneConnection{
			Connection: c,
			Path:       path,
			Visible:    geometry.ConnectionVisible(from, to, view.Scale),
		})
	}
	return s
}
