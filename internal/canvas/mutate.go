package canvas

import (
	"math"

	"LiveCanvas/internal/geometry"
	"LiveCanvas/internal/state"
	"LiveCanvas/internal/undo"
)

func undoEntry(desc string, fn func()) undo.Entry {
	return undo.Entry{Description: desc, Undo: fn}
}

// SetColor recolors the selected connection, or else every selected object.
func (e *Engine) SetColor(color string) {
	defer e.guard("set color")
	if c, ok := e.board.Connection(e.selectedConn); ok {
		if c.Color == color {
			return
		}
		e.board.PatchConnection(c.ID, state.ConnectionPatch{Color: state.String(color)})
		prev := c.Color
		e.undo.Push(undoEntry("recolor connection", func() {
			e.board.PatchConnection(c.ID, state.ConnectionPatch{Color: state.String(prev)})
		}))
		return
	}
	prior := make(map[string]string)
	for _, o := range e.selectedObjects() {
		if o.Color == color {
			continue
		}
		prior[o.ID] = o.Color
		e.board.PatchObject(o.ID, state.ObjectPatch{Color: state.String(color)})
	}
	if len(prior) == 0 {
		return
	}
	e.undo.Push(undoEntry("recolor", func() {
		for id, c := range prior {
			e.board.PatchObject(id, state.ObjectPatch{Color: state.String(c)})
		}
	}))
}

// SetText replaces the text of one object.
func (e *Engine) SetText(id, text string) {
	defer e.guard("set text")
	o, ok := e.board.Object(id)
	if !ok || o.Text == text {
		return
	}
	e.board.PatchObject(id, state.ObjectPatch{Text: state.String(text)})
	prev := o.Text
	e.undo.Push(undoEntry("edit text", func() {
		e.board.PatchObject(id, state.ObjectPatch{Text: state.String(prev)})
	}))
}

// SetHeadingLevel applies a heading level (0 for body text, up to 3) to the
// selected text objects.
func (e *Engine) SetHeadingLevel(level int) {
	defer e.guard("set heading")
	if level < 0 || level > 3 {
		return
	}
	prior := make(map[string]int)
	for _, o := range e.selectedObjects() {
		if o.Type != state.TypeText || o.HeadingLevel == level {
			continue
		}
		prior[o.ID] = o.HeadingLevel
		e.board.PatchObject(o.ID, state.ObjectPatch{HeadingLevel: state.Int(level)})
	}
	if len(prior) == 0 {
		return
	}
	e.undo.Push(undoEntry("heading", func() {
		for id, l := range prior {
			e.board.PatchObject(id, state.ObjectPatch{HeadingLevel: state.Int(l)})
		}
	}))
}

// ToggleSendToBack flips the back-layer flag of every selected object.
func (e *Engine) ToggleSendToBack() {
	defer e.guard("send to back")
	prior := make(map[string]bool)
	for _, o := range e.selectedObjects() {
		prior[o.ID] = o.SentToBack
		e.board.PatchObject(o.ID, state.ObjectPatch{SentToBack: state.Bool(!o.SentToBack)})
	}
	if len(prior) == 0 {
		return
	}
	e.undo.Push(undoEntry("z-order", func() {
		for id, v := range prior {
			e.board.PatchObject(id, state.ObjectPatch{SentToBack: state.Bool(v)})
		}
	}))
}

const maxImageScreenSize = 400.0

// InsertImage places an image centered on world point at. width and height
// are the image's pixel size; large images are scaled down to fit on screen.
func (e *Engine) InsertImage(data string, width, height float64, at geometry.Point) string {
	defer e.guard("insert image")
	if data == "" || width <= 0 || height <= 0 {
		return ""
	}
	scale := e.view.Scale()
	fit := math.Min(1, maxImageScreenSize/math.Max(width, height))
	w, h := width*fit/scale, height*fit/scale
	o := state.BoardObject{
		ID:             state.NewID(),
		Type:           state.TypeImage,
		X:              at.X - w/2,
		Y:              at.Y - h/2,
		Width:          w,
		Height:         h,
		ImageData:      data,
		CreatedBy:      e.me.UserID,
		CreatedAt:      state.NowMillis(),
		SelectedBy:     e.me.UserID,
		SelectedByName: e.me.Name,
	}
	o.FrameID = e.frameFor(o)
	e.Select()
	e.board.CreateObject(o)
	e.selection = []string{o.ID}
	id := o.ID
	e.undo.Push(undoEntry("insert image", func() {
		e.board.DeleteConnectionsForObject(id)
		e.board.DeleteObject(id)
	}))
	e.changed()
	return id
}
