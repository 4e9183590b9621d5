package canvas

import (
	"encoding/json"
	"errors"
	"fmt"

	"LiveCanvas/internal/state"
)

// KeyDown dispatches a keyboard shortcut. Nothing happens while a text
// input holds focus.
func (e *Engine) KeyDown(ev KeyEvent) {
	defer e.guard("key down")
	if e.textEditing {
		return
	}
	switch {
	case ev.Key == KeyEscape:
		e.cancelDrawing()
		if _, ok := e.gesture.(*areaSelecting); ok {
			e.gesture = idle{}
			e.changed()
		}
	case ev.Key == KeyDelete || ev.Key == KeyBackspace:
		e.DeleteSelection()
	case ev.Mods.Command() && ev.Key == KeyC:
		e.Copy()
	case ev.Mods.Command() && ev.Key == KeyV:
		e.Paste()
	case ev.Mods.Command() && ev.Key == KeyZ:
		e.UndoLast()
	}
}

// UndoLast pops and runs the newest undo entry, then drops selected ids that
// the compensation removed.
func (e *Engine) UndoLast() {
	defer e.guard("undo")
	if _, ok := e.undo.Undo(); !ok {
		return
	}
	e.selection = e.Selection()
	if _, ok := e.board.Connection(e.selectedConn); !ok {
		e.selectedConn = ""
	}
	e.changed()
}

// DeleteSelection removes the selected connection if there is one, otherwise
// every selected object together with its connections. Children of a deleted
// frame are released from it.
func (e *Engine) DeleteSelection() {
	if e.selectedConn != "" {
		e.deleteSelectedConnection()
		return
	}
	objs := e.selectedObjects()
	if len(objs) == 0 {
		return
	}
	doomed := make(map[string]bool, len(objs))
	for _, o := range objs {
		doomed[o.ID] = true
	}

	var released []state.BoardObject
	var conns []state.Connection
	for _, o := range objs {
		if o.IsFrame() {
			for _, c := range e.board.ChildrenOf(o.ID) {
				if !doomed[c.ID] {
					released = append(released, c)
				}
			}
		}
	}
	for _, c := range released {
		e.board.PatchObject(c.ID, state.ObjectPatch{FrameID: state.String("")})
	}
	for _, o := range objs {
		conns = append(conns, e.board.DeleteConnectionsForObject(o.ID)...)
		e.board.DeleteObject(o.ID)
	}
	e.selection = nil

	e.undo.Push(undoEntry(fmt.Sprintf("delete %d objects", len(objs)), func() {
		for _, o := range objs {
			o.SelectedBy, o.SelectedByName = "", ""
			e.board.CreateObject(o)
		}
		for _, c := range conns {
			e.board.CreateConnection(c)
		}
		for _, c := range released {
			e.board.PatchObject(c.ID, state.ObjectPatch{FrameID: state.String(c.FrameID)})
		}
	}))
	e.changed()
}

func (e *Engine) deleteSelectedConnection() {
	c, ok := e.board.Connection(e.selectedConn)
	e.selectedConn = ""
	if !ok {
		e.changed()
		return
	}
	e.board.DeleteConnection(c.ID)
	e.undo.Push(undoEntry("delete connection", func() { e.board.CreateConnection(c) }))
	e.changed()
}

// clipPayload is what Copy mirrors to the system clipboard.
type clipPayload struct {
	Kind        string              `json:"kind"`
	Objects     []state.BoardObject `json:"objects"`
	Connections []state.Connection  `json:"connections,omitempty"`
}

const clipKind = "livecanvas/objects"

var errNotBoardClip = errors.New("clipboard holds no board objects")

// Copy snapshots the objects the local user has selected and the
// connections running between them.
func (e *Engine) Copy() {
	var objs []state.BoardObject
	in := make(map[string]bool)
	for _, o := range e.board.Objects() {
		if o.SelectedBy == e.me.UserID {
			objs = append(objs, o)
			in[o.ID] = true
		}
	}
	if len(objs) == 0 {
		return
	}
	var conns []state.Connection
	for _, c := range e.board.Connections() {
		if in[c.FromID] && in[c.ToID] {
			conns = append(conns, c.Clone())
		}
	}
	e.copied, e.copiedConns, e.pasteCount = objs, conns, 0

	if e.clipboard == nil {
		return
	}
	b, err := json.Marshal(clipPayload{Kind: clipKind, Objects: objs, Connections: conns})
	if err != nil {
		e.logger.Printf("[CANVAS] encode clipboard: %v", err)
		return
	}
	if err := e.clipboard.WriteAll(string(b)); err != nil {
		e.logger.Printf("[CANVAS] write clipboard: %v", err)
	}
}

func (e *Engine) readClipboard() ([]state.BoardObject, []state.Connection, error) {
	if e.clipboard == nil {
		return nil, nil, errNotBoardClip
	}
	text, err := e.clipboard.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read clipboard: %w", err)
	}
	var p clipPayload
	if err := json.Unmarshal([]byte(text), &p); err != nil || p.Kind != clipKind {
		return nil, nil, errNotBoardClip
	}
	return p.Objects, p.Connections, nil
}

// Paste clones the copied objects at a cascading offset with fresh ids and
// selects the clones. Frame membership and connections inside the copied set
// follow the clones.
func (e *Engine) Paste() {
	objs, conns := e.copied, e.copiedConns
	if len(objs) == 0 {
		var err error
		if objs, conns, err = e.readClipboard(); err != nil {
			if !errors.Is(err, errNotBoardClip) {
				e.logger.Printf("[CANVAS] paste: %v", err)
			}
			return
		}
		e.copied, e.copiedConns = objs, conns
	}
	if len(objs) == 0 {
		return
	}
	// Each repeat of the same copy moves another pasteOffset down and right,
	// so clones never land on top of each other. Copy resets the count.
	e.pasteCount++
	off := pasteOffset * float64(e.pasteCount)

	ids := make(map[string]string, len(objs))
	for _, o := range objs {
		ids[o.ID] = state.NewID()
	}
	e.Select()
	now := state.NowMillis()
	var created []string
	for _, o := range objs {
		clone := o
		clone.ID = ids[o.ID]
		clone.X += off
		clone.Y += off
		clone.CreatedBy = e.me.UserID
		clone.CreatedAt = now
		clone.SelectedBy = e.me.UserID
		clone.SelectedByName = e.me.Name
		if nf, ok := ids[o.FrameID]; ok {
			clone.FrameID = nf
		} else if _, ok := e.board.Object(o.FrameID); !ok {
			clone.FrameID = ""
		}
		e.board.CreateObject(clone)
		created = append(created, clone.ID)
	}
	var createdConns []string
	for _, c := range conns {
		from, ok1 := ids[c.FromID]
		to, ok2 := ids[c.ToID]
		if !ok1 || !ok2 {
			continue
		}
		clone := c.Clone()
		clone.ID = state.NewID()
		clone.FromID, clone.ToID = from, to
		clone.CreatedBy = e.me.UserID
		clone.CreatedAt = now
		for i := range clone.Points {
			clone.Points[i].X += off
			clone.Points[i].Y += off
		}
		e.board.CreateConnection(clone)
		createdConns = append(createdConns, clone.ID)
	}
	e.selection = created

	e.undo.Push(undoEntry(fmt.Sprintf("paste %d objects", len(created)), func() {
		for _, id := range createdConns {
			e.board.DeleteConnection(id)
		}
		for _, id := range created {
			e.board.DeleteConnectionsForObject(id)
			e.board.DeleteObject(id)
		}
	}))
	e.changed()
}
