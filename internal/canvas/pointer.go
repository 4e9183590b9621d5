package canvas

import (
	"math"

	"LiveCanvas/internal/geometry"
	"LiveCanvas/internal/state"
)

// Handle indexes: 0-3 are the corners in geometry.Corners order.
const rotateHandle = 4

func (e *Engine) PointerDown(ev PointerEvent) {
	defer e.guard("pointer down")
	e.view.FlushNow()
	p := e.view.ScreenToWorld(ev.X, ev.Y)

	if ev.Button == ButtonSecondary {
		e.cancelDrawing()
		return
	}
	if ev.Button == ButtonMiddle || e.tool == ToolMove {
		e.gesture = &panning{last: geometry.Point{X: ev.X, Y: ev.Y}}
		return
	}
	if e.tool != ToolSelect {
		e.createAt(p)
		return
	}
	if e.drawing != nil {
		e.drawing.cursor = p
		if _, hit := e.objectAt(p); !hit {
			if _, _, onAnchor := e.anchorAt(p); !onAnchor {
				e.drawing.points = append(e.drawing.points, p)
				e.changed()
			}
		}
		return
	}
	if h, ok := e.handleAt(p); ok {
		if h == rotateHandle {
			e.beginRotate(p)
		} else {
			e.beginResize(h)
		}
		return
	}
	if o, a, ok := e.anchorAt(p); ok {
		e.drawing = &drawing{fromID: o.ID, fromAnchor: a, cursor: p}
		e.changed()
		return
	}
	if o, ok := e.objectAt(p); ok {
		if ev.Mods.Has(ModShift) || ev.Mods.Command() {
			e.toggle(o.ID)
			return
		}
		if !e.IsSelected(o.ID) {
			e.Select(o.ID)
		}
		e.beginDrag(p)
		return
	}
	if c, ok := e.connectionAt(p); ok {
		e.Select()
		e.selectedConn = c.ID
		e.changed()
		return
	}
	e.gesture = &areaSelecting{start: p, current: p}
	e.changed()
}

func (e *Engine) PointerMove(ev PointerEvent) {
	defer e.guard("pointer move")
	p := e.view.ScreenToWorld(ev.X, ev.Y)
	if e.presence != nil {
		e.presence.Publish(p.X, p.Y)
	}
	if e.drawing != nil {
		e.drawing.cursor = p
		e.changed()
	}

	switch g := e.gesture.(type) {
	case *panning:
		e.view.ApplyPanDelta(ev.X-g.last.X, ev.Y-g.last.Y)
		g.last = geometry.Point{X: ev.X, Y: ev.Y}
	case *dragging:
		g.dx, g.dy = p.X-g.origin.X, p.Y-g.origin.Y
		e.changed()
	case *resizing:
		e.updateResize(g, p)
		e.changed()
	case *rotating:
		d := pointerAngle(g.center, p) - g.startAngle
		if ev.Mods.Has(ModShift) {
			d = math.Round(d/rotationSnapStep) * rotationSnapStep
		}
		g.delta = d
		e.changed()
	case *areaSelecting:
		g.current = p
		e.changed()
	}
}

func (e *Engine) PointerUp(ev PointerEvent) {
	defer e.guard("pointer up")
	p := e.view.ScreenToWorld(ev.X, ev.Y)
	g := e.gesture
	e.gesture = idle{}

	switch g := g.(type) {
	case *panning:
		e.view.EndPan()
	case *dragging:
		e.commitDrag(g)
	case *resizing:
		e.commitResize(g)
	case *rotating:
		e.commitRotate(g)
	case *areaSelecting:
		g.current = p
		e.commitArea(g)
	default:
		if e.drawing != nil && ev.Button == ButtonPrimary {
			e.releaseDrawing(p)
		}
	}
	e.changed()
}

// Wheel zooms about the pointer.
func (e *Engine) Wheel(x, y, deltaY float64) {
	defer e.guard("wheel")
	e.view.ApplyWheel(x, y, deltaY)
}

func pointerAngle(center, p geometry.Point) float64 {
	return geometry.Degrees(math.Atan2(p.Y-center.Y, p.X-center.X))
}

// Creation.

var defaultScreenSize = map[Tool][2]float64{
	ToolStickyNote: {200, 200},
	ToolRectangle:  {150, 100},
	ToolCircle:     {100, 100},
	ToolStar:       {100, 100},
	ToolText:       {200, 50},
	ToolFrame:      {400, 300},
}

var toolTypes = map[Tool]state.ObjectType{
	ToolStickyNote: state.TypeStickyNote,
	ToolRectangle:  state.TypeRectangle,
	ToolCircle:     state.TypeCircle,
	ToolStar:       state.TypeStar,
	ToolText:       state.TypeText,
	ToolFrame:      state.TypeFrame,
}

var DefaultColors = map[state.ObjectType]string{
	state.TypeStickyNote: "#fff59d",
	state.TypeRectangle:  "#90caf9",
	state.TypeCircle:     "#a5d6a7",
	state.TypeStar:       "#ffcc80",
	state.TypeText:       "#212121",
	state.TypeFrame:      "#eceff1",
	state.TypeImage:      "#ffffff",
}

const DefaultConnectionColor = "#546e7a"

func (e *Engine) createAt(p geometry.Point) {
	typ, ok := toolTypes[e.tool]
	if !ok {
		return
	}
	size := defaultScreenSize[e.tool]
	scale := e.view.Scale()
	o := state.BoardObject{
		ID:             state.NewID(),
		Type:           typ,
		X:              p.X,
		Y:              p.Y,
		Width:          size[0] / scale,
		Height:         size[1] / scale,
		Color:          DefaultColors[typ],
		CreatedBy:      e.me.UserID,
		CreatedAt:      state.NowMillis(),
		SelectedBy:     e.me.UserID,
		SelectedByName: e.me.Name,
	}
	switch typ {
	case state.TypeText:
		o.Text = "Text"
	case state.TypeFrame:
		o.Text = "Frame"
	}
	if !o.IsFrame() {
		o.FrameID = e.frameFor(o)
	}
	e.Select()
	e.board.CreateObject(o)
	e.selection = []string{o.ID}
	e.tool = ToolSelect

	id := o.ID
	e.undo.Push(undoEntry("create "+string(typ), func() {
		e.board.DeleteConnectionsForObject(id)
		e.board.DeleteObject(id)
	}))
	e.changed()
}

// Dragging.

func (e *Engine) beginDrag(p geometry.Point) {
	g := &dragging{origin: p}
	seen := make(map[string]bool)
	for _, o := range e.selectedObjects() {
		g.members = append(g.members, dragMember{start: o})
		seen[o.ID] = true
	}
	for _, o := range e.selectedObjects() {
		if !o.IsFrame() {
			continue
		}
		for _, c := range e.board.ChildrenOf(o.ID) {
			if !seen[c.ID] {
				g.members = append(g.members, dragMember{start: c, carried: true})
				seen[c.ID] = true
			}
		}
	}
	e.gesture = g
}

func (e *Engine) commitDrag(g *dragging) {
	if g.dx == 0 && g.dy == 0 {
		return
	}
	type before struct {
		id      string
		x, y    float64
		frameID string
	}
	var prior []before
	var moved []string
	for _, m := range g.members {
		if _, ok := e.board.Object(m.start.ID); !ok {
			continue
		}
		prior = append(prior, before{m.start.ID, m.start.X, m.start.Y, m.start.FrameID})
		e.board.PatchObject(m.start.ID, state.ObjectPatch{
			X: state.Float(m.start.X + g.dx),
			Y: state.Float(m.start.Y + g.dy),
		})
		if !m.carried && !m.start.IsFrame() {
			moved = append(moved, m.start.ID)
		}
	}
	for _, id := range moved {
		o, ok := e.board.Object(id)
		if !ok {
			continue
		}
		if f := e.frameFor(o); f != o.FrameID {
			e.board.PatchObject(id, state.ObjectPatch{FrameID: state.String(f)})
		}
	}
	if len(prior) == 0 {
		return
	}
	e.undo.Push(undoEntry("move", func() {
		for _, b := range prior {
			e.board.PatchObject(b.id, state.ObjectPatch{
				X:       state.Float(b.x),
				Y:       state.Float(b.y),
				FrameID: state.String(b.frameID),
			})
		}
	}))
}

// Resizing.

// handleAt reports which selection handle sits under p. Corner handles only
// exist for a single selection; the rotation handle for any selection.
func (e *Engine) handleAt(p geometry.Point) (int, bool) {
	sel := e.selectedObjects()
	if len(sel) == 0 {
		return 0, false
	}
	r := handleRadius / e.view.Scale()
	near := func(q geometry.Point) bool { return math.Hypot(q.X-p.X, q.Y-p.Y) <= r }
	if near(e.rotateHandlePos(sel)) {
		return rotateHandle, true
	}
	if len(sel) == 1 {
		cr := e.edgeZone(sel[0], handleRadius)
		for i, c := range geometry.Corners(sel[0]) {
			if math.Hypot(c.X-p.X, c.Y-p.Y) <= cr {
				return i, true
			}
		}
	}
	return 0, false
}

// rotateHandlePos sits above the top edge: on the object's own rotated axis
// for a single selection, above the combined box otherwise.
func (e *Engine) rotateHandlePos(sel []state.BoardObject) geometry.Point {
	gap := rotateHandleGap / e.view.Scale()
	if len(sel) == 1 {
		o := sel[0]
		off := geometry.RotateVector(geometry.Point{Y: -o.Height/2 - gap}, o.Rotation)
		c := o.Center()
		return geometry.Point{X: c.X + off.X, Y: c.Y + off.Y}
	}
	b := geometry.SelectionBounds(sel)
	return geometry.Point{X: b.X + b.Width/2, Y: b.Y - gap}
}

var cornerSigns = [4][2]float64{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}

func (e *Engine) beginResize(corner int) {
	sel := e.selectedObjects()
	if len(sel) != 1 {
		return
	}
	o := sel[0]
	g := &resizing{corner: corner, start: o, current: o}
	if o.IsFrame() {
		g.children = e.board.ChildrenOf(o.ID)
		g.resized = append([]state.BoardObject(nil), g.children...)
	}
	e.gesture = g
}

// updateResize keeps the corner opposite the dragged one fixed in world space
// and measures the new size along the object's own rotated axes.
func (e *Engine) updateResize(g *resizing, p geometry.Point) {
	o := g.start
	anchor := geometry.Corners(o)[(g.corner+2)%4]
	local := geometry.RotateVector(geometry.Point{X: p.X - anchor.X, Y: p.Y - anchor.Y}, -o.Rotation)
	sx, sy := cornerSigns[g.corner][0], cornerSigns[g.corner][1]

	minSize := minResizePx / e.view.Scale()
	w := math.Max(minSize, local.X*sx)
	h := math.Max(minSize, local.Y*sy)

	half := geometry.RotateVector(geometry.Point{X: sx * w / 2, Y: sy * h / 2}, o.Rotation)
	cx, cy := anchor.X+half.X, anchor.Y+half.Y

	g.current = o
	g.current.X, g.current.Y = cx-w/2, cy-h/2
	g.current.Width, g.current.Height = w, h

	if len(g.children) > 0 {
		g.resized = g.resized[:0]
		for _, c := range g.children {
			g.resized = append(g.resized, rescaleChild(c, o, g.current))
		}
	}
}

// rescaleChild keeps c at the same fractional position and size within the
// frame as it had in the frame's pre-resize box.
func rescaleChild(c, from, to state.BoardObject) state.BoardObject {
	if from.Width == 0 || from.Height == 0 {
		return c
	}
	fx, fy := (c.X-from.X)/from.Width, (c.Y-from.Y)/from.Height
	fw, fh := c.Width/from.Width, c.Height/from.Height
	c.X = to.X + fx*to.Width
	c.Y = to.Y + fy*to.Height
	c.Width = fw * to.Width
	c.Height = fh * to.Height
	return c
}

func geometryPatch(o state.BoardObject) state.ObjectPatch {
	return state.ObjectPatch{
		X:      state.Float(o.X),
		Y:      state.Float(o.Y),
		Width:  state.Float(o.Width),
		Height: state.Float(o.Height),
	}
}

func sameBox(a, b state.BoardObject) bool {
	return a.X == b.X && a.Y == b.Y && a.Width == b.Width && a.Height == b.Height
}

func (e *Engine) commitResize(g *resizing) {
	if sameBox(g.start, g.current) {
		return
	}
	if _, ok := e.board.Object(g.start.ID); !ok {
		return
	}
	e.board.PatchObject(g.start.ID, geometryPatch(g.current))
	for _, c := range g.resized {
		e.board.PatchObject(c.ID, geometryPatch(c))
	}
	start := g.start
	children := append([]state.BoardObject(nil), g.children...)
	e.undo.Push(undoEntry("resize", func() {
		e.board.PatchObject(start.ID, geometryPatch(start))
		for _, c := range children {
			e.board.PatchObject(c.ID, geometryPatch(c))
		}
	}))
}

// Rotation.

func (e *Engine) beginRotate(p geometry.Point) {
	sel := e.selectedObjects()
	if len(sel) == 0 {
		return
	}
	center := geometry.SelectionBounds(sel).Center()
	if len(sel) == 1 {
		center = sel[0].Center()
	}
	e.gesture = &rotating{
		center:     center,
		startAngle: pointerAngle(center, p),
		start:      sel,
	}
}

// rotateAbout turns o about pivot, moving its center along and adding the
// same angle to its own rotation.
func rotateAbout(o state.BoardObject, pivot geometry.Point, deg float64) state.BoardObject {
	c := geometry.RotatePoint(o.Center(), pivot, deg)
	o.X, o.Y = c.X-o.Width/2, c.Y-o.Height/2
	o.Rotation = normalizeDegrees(o.Rotation + deg)
	return o
}

func normalizeDegrees(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	return d
}

func (e *Engine) commitRotate(g *rotating) {
	if g.delta == 0 {
		return
	}
	var prior []state.BoardObject
	for _, s := range g.start {
		if _, ok := e.board.Object(s.ID); !ok {
			continue
		}
		r := rotateAbout(s, g.center, g.delta)
		e.board.PatchObject(s.ID, state.ObjectPatch{
			X:        state.Float(r.X),
			Y:        state.Float(r.Y),
			Rotation: state.Float(r.Rotation),
		})
		prior = append(prior, s)
	}
	if len(prior) == 0 {
		return
	}
	e.undo.Push(undoEntry("rotate", func() {
		for _, s := range prior {
			e.board.PatchObject(s.ID, state.ObjectPatch{
				X:        state.Float(s.X),
				Y:        state.Float(s.Y),
				Rotation: state.Float(s.Rotation),
			})
		}
	}))
}

// Area select.

func (e *Engine) commitArea(g *areaSelecting) {
	dist := math.Hypot(g.current.X-g.start.X, g.current.Y-g.start.Y)
	if dist < minAreaDrag/e.view.Scale() {
		e.ClearSelection()
		return
	}
	rect := geometry.RectFromPoints(g.start, g.current)
	var ids []string
	for _, o := range e.board.Objects() {
		if geometry.RectsOverlap(geometry.RotatedAABB(o), rect) {
			ids = append(ids, o.ID)
		}
	}
	e.Select(ids...)
}

// Connection drawing.

func (e *Engine) cancelDrawing() {
	if e.drawing == nil {
		return
	}
	e.drawing = nil
	e.changed()
}

// releaseDrawing resolves the drop target at p. The release of the press
// that began drawing only completes onto a different target; any later
// release onto the origin anchor cancels.
func (e *Engine) releaseDrawing(p geometry.Point) {
	d := e.drawing
	d.cursor = p
	target, anchor, ok := e.anchorAt(p)
	if !ok {
		if target, ok = e.objectAt(p); ok {
			anchor = geometry.NearestAnchor(target, p)
		}
	}
	armed := d.armed
	d.armed = true
	if !ok {
		return
	}
	if target.ID == d.fromID && anchor == d.fromAnchor {
		if armed {
			e.cancelDrawing()
		}
		return
	}
	if !armed && target.ID == d.fromID {
		return
	}
	e.completeConnection(target.ID, anchor)
}

func (e *Engine) completeConnection(toID, toAnchor string) {
	d := e.drawing
	e.drawing = nil
	c := state.Connection{
		ID:         state.NewID(),
		FromID:     d.fromID,
		ToID:       toID,
		FromAnchor: d.fromAnchor,
		ToAnchor:   toAnchor,
		Points:     append([]geometry.Point(nil), d.points...),
		Color:      DefaultConnectionColor,
		CreatedBy:  e.me.UserID,
		CreatedAt:  state.NowMillis(),
	}
	if _, ok := e.board.Object(c.FromID); !ok {
		return
	}
	e.board.CreateConnection(c)
	id := c.ID
	e.undo.Push(undoEntry("connect", func() { e.board.DeleteConnection(id) }))
}
