package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Memory is an in-process Store holding a JSON tree. The hub serves it to
// remote peers and tests use it directly.
type Memory struct {
	mu      sync.Mutex
	root    map[string]any
	subs    map[int]*subscription
	nextSub int
	version uint64
	pending map[string]map[string]struct{} // session id -> remove-on-disconnect paths
	closed  bool
}

type subscription struct {
	parts []string
	path  string
	fn    func(Snapshot)

	mu   sync.Mutex
	seen bool
	last uint64
	done bool
}

type notification struct {
	sub     *subscription
	version uint64
	snap    Snapshot
}

const defaultSession = ""

func NewMemory() *Memory {
	return &Memory{
		root:    make(map[string]any),
		subs:    make(map[int]*subscription),
		pending: make(map[string]map[string]struct{}),
	}
}

func (m *Memory) Subscribe(path string, fn func(Snapshot)) func() {
	parts, err := Split(path)
	if err != nil {
		return func() {}
	}
	sub := &subscription{parts: parts, path: Join(parts...), fn: fn}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return func() {}
	}
	id := m.nextSub
	m.nextSub++
	m.subs[id] = sub
	n := notification{sub: sub, version: m.version, snap: m.snapshotLocked(parts)}
	m.mu.Unlock()

	deliver([]notification{n})

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
			sub.mu.Lock()
			sub.done = true
			sub.mu.Unlock()
		})
	}
}

// Get returns the current snapshot at path without subscribing.
func (m *Memory) Get(path string) (Snapshot, error) {
	parts, err := Split(path)
	if err != nil {
		return Snapshot{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked(parts), nil
}

func (m *Memory) Write(_ context.Context, path string, value any) error {
	return m.apply(map[string]any{path: value})
}

func (m *Memory) Merge(_ context.Context, path string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	updates := make(map[string]any, len(fields))
	for k, v := range fields {
		updates[Join(path, k)] = v
	}
	return m.apply(updates)
}

func (m *Memory) Remove(_ context.Context, path string) error {
	return m.apply(map[string]any{path: nil})
}

func (m *Memory) Update(_ context.Context, updates map[string]any) error {
	return m.apply(updates)
}

func (m *Memory) RemoveOnDisconnect(_ context.Context, path string) error {
	return m.registerOnDisconnect(defaultSession, path)
}

// Close fires the remove-on-disconnect registrations made directly on m and
// drops every subscription.
func (m *Memory) Close() error {
	m.disconnect(defaultSession)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.subs = make(map[int]*subscription)
	return nil
}

func (m *Memory) registerOnDisconnect(session, path string) error {
	parts, err := Split(path)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	paths, ok := m.pending[session]
	if !ok {
		paths = make(map[string]struct{})
		m.pending[session] = paths
	}
	paths[Join(parts...)] = struct{}{}
	return nil
}

func (m *Memory) disconnect(session string) {
	m.mu.Lock()
	paths := m.pending[session]
	delete(m.pending, session)
	m.mu.Unlock()
	if len(paths) == 0 {
		return
	}
	updates := make(map[string]any, len(paths))
	for p := range paths {
		updates[p] = nil
	}
	_ = m.apply(updates)
}

// apply writes every update under one lock so subscribers never observe a
// partial batch, then notifies each affected subscriber once.
func (m *Memory) apply(updates map[string]any) error {
	type change struct {
		parts []string
		value any
	}
	changes := make([]change, 0, len(updates))
	for path, v := range updates {
		parts, err := Split(path)
		if err != nil {
			return err
		}
		norm, err := normalize(v)
		if err != nil {
			return fmt.Errorf("encode %s: %w", path, err)
		}
		changes = append(changes, change{parts: parts, value: norm})
	}
	// Shallow paths first so a parent replace never wipes a sibling child write.
	sort.Slice(changes, func(i, j int) bool {
		return len(changes[i].parts) < len(changes[j].parts)
	})

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	for _, c := range changes {
		m.setLocked(c.parts, c.value)
	}
	m.version++
	ids := make([]int, 0, len(m.subs))
	for id := range m.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	var out []notification
	for _, id := range ids {
		sub := m.subs[id]
		for _, c := range changes {
			if related(sub.parts, c.parts) {
				out = append(out, notification{sub: sub, version: m.version, snap: m.snapshotLocked(sub.parts)})
				break
			}
		}
	}
	m.mu.Unlock()

	deliver(out)
	return nil
}

// deliver runs callbacks outside the store lock. A subscriber never sees an
// older version after a newer one.
func deliver(ns []notification) {
	for _, n := range ns {
		n.sub.mu.Lock()
		stale := n.sub.done || (n.sub.seen && n.version <= n.sub.last)
		if !stale {
			n.sub.seen = true
			n.sub.last = n.version
		}
		n.sub.mu.Unlock()
		if stale {
			continue
		}
		n.sub.fn(n.snap)
	}
}

func (m *Memory) snapshotLocked(parts []string) Snapshot {
	snap := Snapshot{Path: Join(parts...)}
	v, ok := lookup(m.root, parts)
	if !ok {
		return snap
	}
	b, err := json.Marshal(v)
	if err != nil {
		return snap
	}
	snap.Value = b
	return snap
}

func (m *Memory) setLocked(parts []string, value any) {
	if len(parts) == 0 {
		if obj, ok := value.(map[string]any); ok {
			m.root = obj
		} else {
			m.root = make(map[string]any)
		}
		return
	}
	node := m.root
	trail := []map[string]any{node}
	for _, p := range parts[:len(parts)-1] {
		next, ok := node[p].(map[string]any)
		if !ok {
			if value == nil {
				return
			}
			next = make(map[string]any)
			node[p] = next
		}
		node = next
		trail = append(trail, node)
	}
	leaf := parts[len(parts)-1]
	if value == nil {
		delete(node, leaf)
	} else {
		node[leaf] = value
	}
	// Prune maps emptied by the removal.
	for i := len(trail) - 1; i > 0; i-- {
		if len(trail[i]) != 0 {
			break
		}
		delete(trail[i-1], parts[i-1])
	}
}

func lookup(root map[string]any, parts []string) (any, bool) {
	var cur any = root
	if len(parts) == 0 && len(root) == 0 {
		return nil, false
	}
	for _, p := range parts {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// normalize turns any JSON-serializable value into the generic tree form.
// Empty maps collapse to nil so they read back as absent.
func normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	var b []byte
	switch raw := v.(type) {
	case json.RawMessage:
		b = raw
	default:
		var err error
		if b, err = json.Marshal(v); err != nil {
			return nil, err
		}
	}
	if strings.TrimSpace(string(b)) == "null" {
		return nil, nil
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	if obj, ok := out.(map[string]any); ok && len(obj) == 0 {
		return nil, nil
	}
	return out, nil
}

// Session is a per-connection view of a Memory store. Subscriptions opened
// through it and its remove-on-disconnect registrations end with Disconnect.
type Session struct {
	mem *Memory
	id  string

	mu     sync.Mutex
	unsubs []func()
}

func (m *Memory) Session(id string) *Session {
	return &Session{mem: m, id: id}
}

func (s *Session) Subscribe(path string, fn func(Snapshot)) func() {
	unsub := s.mem.Subscribe(path, fn)
	s.mu.Lock()
	s.unsubs = append(s.unsubs, unsub)
	s.mu.Unlock()
	return unsub
}

func (s *Session) Write(ctx context.Context, path string, value any) error {
	return s.mem.Write(ctx, path, value)
}

func (s *Session) Merge(ctx context.Context, path string, fields map[string]any) error {
	return s.mem.Merge(ctx, path, fields)
}

func (s *Session) Remove(ctx context.Context, path string) error {
	return s.mem.Remove(ctx, path)
}

func (s *Session) Update(ctx context.Context, updates map[string]any) error {
	return s.mem.Update(ctx, updates)
}

func (s *Session) RemoveOnDisconnect(_ context.Context, path string) error {
	return s.mem.registerOnDisconnect(s.id, path)
}

// Disconnect cancels the session's subscriptions and removes every path it
// registered for removal.
func (s *Session) Disconnect() {
	s.mu.Lock()
	unsubs := s.unsubs
	s.unsubs = nil
	s.mu.Unlock()
	for _, u := range unsubs {
		u()
	}
	s.mem.disconnect(s.id)
}

var (
	_ Store = (*Memory)(nil)
	_ Store = (*Session)(nil)
)
