package state

import (
	"context"
	"encoding/json"
	"log"
	"sort"

	"LiveCanvas/internal/store"
)

// Executor runs fn on the interaction loop. Remote snapshots arrive on
// transport goroutines and are handed to it before touching the mirror.
type Executor func(fn func())

func inline(fn func()) { fn() }

// Board mirrors a board's objects and connections from the realtime store.
// Local writes are applied to the mirror at once and pushed to the store
// without waiting; the next remote snapshot replaces the mirror outright.
type Board struct {
	id       string
	store    store.Store
	exec     Executor
	logger   *log.Logger
	onChange func()

	objects     map[string]BoardObject
	connections map[string]Connection
	unsubs      []func()
}

type BoardOption func(*Board)

func WithLogger(l *log.Logger) BoardOption {
	return func(b *Board) {
		if l != nil {
			b.logger = l
		}
	}
}

func WithExecutor(e Executor) BoardOption {
	return func(b *Board) {
		if e != nil {
			b.exec = e
		}
	}
}

// WithOnChange registers a callback fired after every mirror change, local or remote.
func WithOnChange(fn func()) BoardOption {
	return func(b *Board) { b.onChange = fn }
}

func NewBoard(st store.Store, boardID string, opts ...BoardOption) *Board {
	b := &Board{
		id:          boardID,
		store:       st,
		exec:        inline,
		logger:      log.Default(),
		objects:     make(map[string]BoardObject),
		connections: make(map[string]Connection),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Board) ID() string { return b.id }

// SetOnChange replaces the change callback.
func (b *Board) SetOnChange(fn func()) { b.onChange = fn }

// Mount subscribes to both collections. Calling it twice is a no-op.
func (b *Board) Mount() {
	if len(b.unsubs) > 0 {
		return
	}
	b.unsubs = append(b.unsubs,
		b.store.Subscribe(store.ObjectsPath(b.id), func(s store.Snapshot) {
			objs, err := decodeCollection[BoardObject](s, b.logger)
			if err != nil {
				b.logger.Printf("[SYNC] bad objects snapshot for %s: %v", b.id, err)
				return
			}
			b.exec(func() {
				b.objects = objs
				b.changed()
			})
		}),
		b.store.Subscribe(store.ConnectionsPath(b.id), func(s store.Snapshot) {
			conns, err := decodeCollection[Connection](s, b.logger)
			if err != nil {
				b.logger.Printf("[SYNC] bad connections snapshot for %s: %v", b.id, err)
				return
			}
			b.exec(func() {
				b.connections = conns
				b.changed()
			})
		}),
	)
}

func (b *Board) Unmount() {
	for _, u := range b.unsubs {
		u()
	}
	b.unsubs = nil
}

// record is a mirrored collection entry. A merge that lands after a
// concurrent delete leaves a partial record behind, which is not complete.
type record interface {
	complete() bool
}

func decodeCollection[T record](s store.Snapshot, logger *log.Logger) (map[string]T, error) {
	out := make(map[string]T)
	if !s.Exists() {
		return out, nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(s.Value, &raw); err != nil {
		return nil, err
	}
	for id, v := range raw {
		var item T
		if err := json.Unmarshal(v, &item); err != nil {
			// One malformed record must not hide the rest of the board.
			logger.Printf("[SYNC] skipping record %s: %v", id, err)
			continue
		}
		if !item.complete() {
			logger.Printf("[SYNC] skipping incomplete record %s", id)
			continue
		}
		out[id] = item
	}
	return out, nil
}

func (b *Board) changed() {
	if b.onChange != nil {
		b.onChange()
	}
}

func (b *Board) Object(id string) (BoardObject, bool) {
	o, ok := b.objects[id]
	return o, ok
}

// Objects returns every object ordered by creation time, then id.
func (b *Board) Objects() []BoardObject {
	out := make([]BoardObject, 0, len(b.objects))
	for id, o := range b.objects {
		if o.ID == "" {
			o.ID = id
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Frames returns the frame objects in Objects order.
func (b *Board) Frames() []BoardObject {
	var out []BoardObject
	for _, o := range b.Objects() {
		if o.IsFrame() {
			out = append(out, o)
		}
	}
	return out
}

// ChildrenOf returns the objects whose frameId is frameID.
func (b *Board) ChildrenOf(frameID string) []BoardObject {
	var out []BoardObject
	for _, o := range b.Objects() {
		if o.FrameID == frameID && o.ID != frameID {
			out = append(out, o)
		}
	}
	return out
}

func (b *Board) Connection(id string) (Connection, bool) {
	c, ok := b.connections[id]
	return c, ok
}

func (b *Board) Connections() []Connection {
	out := make([]Connection, 0, len(b.connections))
	for id, c := range b.connections {
		if c.ID == "" {
			c.ID = id
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ConnectionsFor returns the connections touching objectID at either end.
func (b *Board) ConnectionsFor(objectID string) []Connection {
	var out []Connection
	for _, c := range b.Connections() {
		if c.Touches(objectID) {
			out = append(out, c)
		}
	}
	return out
}

func (b *Board) CreateObject(o BoardObject) {
	if o.ID == "" || !o.Type.Valid() {
		b.logger.Printf("[SYNC] refusing object without id or with type %q", o.Type)
		return
	}
	b.objects[o.ID] = o
	b.changed()
	b.send("create object", b.store.Write(context.Background(), store.ObjectPath(b.id, o.ID), o))
}

// PatchObject merges only the fields set in p. Empty patches and ids that
// are no longer present locally are ignored.
func (b *Board) PatchObject(id string, p ObjectPatch) {
	fields := p.Fields()
	if len(fields) == 0 {
		return
	}
	o, ok := b.objects[id]
	if !ok {
		return
	}
	b.objects[id] = p.Apply(o)
	b.changed()
	b.send("patch object", b.store.Merge(context.Background(), store.ObjectPath(b.id, id), fields))
}

func (b *Board) DeleteObject(id string) {
	delete(b.objects, id)
	b.changed()
	b.send("delete object", b.store.Remove(context.Background(), store.ObjectPath(b.id, id)))
}

func (b *Board) CreateConnection(c Connection) {
	if c.ID == "" || c.FromID == "" || c.ToID == "" {
		b.logger.Printf("[SYNC] refusing incomplete connection %+v", c)
		return
	}
	b.connections[c.ID] = c
	b.changed()
	b.send("create connection", b.store.Write(context.Background(), store.ConnectionPath(b.id, c.ID), c))
}

func (b *Board) PatchConnection(id string, p ConnectionPatch) {
	fields := p.Fields()
	if len(fields) == 0 {
		return
	}
	c, ok := b.connections[id]
	if !ok {
		return
	}
	b.connections[id] = p.Apply(c)
	b.changed()
	b.send("patch connection", b.store.Merge(context.Background(), store.ConnectionPath(b.id, id), fields))
}

func (b *Board) DeleteConnection(id string) {
	delete(b.connections, id)
	b.changed()
	b.send("delete connection", b.store.Remove(context.Background(), store.ConnectionPath(b.id, id)))
}

// DeleteConnectionsForObject removes every connection touching objectID in a
// single multi-path write and returns what it removed.
func (b *Board) DeleteConnectionsForObject(objectID string) []Connection {
	doomed := b.ConnectionsFor(objectID)
	if len(doomed) == 0 {
		return nil
	}
	updates := make(map[string]any, len(doomed))
	for _, c := range doomed {
		delete(b.connections, c.ID)
		updates[store.ConnectionPath(b.id, c.ID)] = nil
	}
	b.changed()
	b.send("delete connections", b.store.Update(context.Background(), updates))
	return doomed
}

// send logs a failed write. Writes are never retried: the mirror already
// holds the intended state and the next snapshot heals any drift.
func (b *Board) send(what string, err error) {
	if err != nil {
		b.logger.Printf("[SYNC] %s on board %s failed: %v", what, b.id, err)
	}
}
