package state

import (
	"context"
	"log"
	"sort"
	"time"

	"LiveCanvas/internal/store"
)

const (
	DefaultCursorThrottle   = 16 * time.Millisecond
	DefaultCursorStaleAfter = 30 * time.Second
	DefaultCursorSweepEvery = 10 * time.Second
)

// Presence publishes the local cursor and mirrors everyone else's. It is a
// separate, ephemeral stream next to the durable board data.
type Presence struct {
	store    store.Store
	boardID  string
	me       Identity
	color    string
	logger   *log.Logger
	exec     Executor
	now      func() time.Time
	throttle time.Duration
	stale    time.Duration
	sweep    time.Duration
	onChange func()

	cursors  map[string]Cursor
	lastSent time.Time
	pending  *Point
	trailing *time.Timer
	unsub    func()
	cancel   context.CancelFunc
}

type PresenceOption func(*Presence)

func WithThrottle(d time.Duration) PresenceOption {
	return func(p *Presence) { p.throttle = d }
}

func WithStaleAfter(d time.Duration) PresenceOption {
	return func(p *Presence) {
		if d > 0 {
			p.stale = d
		}
	}
}

func WithSweepEvery(d time.Duration) PresenceOption {
	return func(p *Presence) {
		if d > 0 {
			p.sweep = d
		}
	}
}

func WithClock(now func() time.Time) PresenceOption {
	return func(p *Presence) {
		if now != nil {
			p.now = now
		}
	}
}

func WithPresenceExecutor(e Executor) PresenceOption {
	return func(p *Presence) {
		if e != nil {
			p.exec = e
		}
	}
}

func WithPresenceLogger(l *log.Logger) PresenceOption {
	return func(p *Presence) {
		if l != nil {
			p.logger = l
		}
	}
}

func WithCursorChange(fn func()) PresenceOption {
	return func(p *Presence) { p.onChange = fn }
}

func NewPresence(st store.Store, boardID string, me Identity, opts ...PresenceOption) *Presence {
	p := &Presence{
		store:    st,
		boardID:  boardID,
		me:       me,
		color:    CursorColor(me.UserID),
		logger:   log.Default(),
		exec:     inline,
		now:      time.Now,
		throttle: DefaultCursorThrottle,
		stale:    DefaultCursorStaleAfter,
		sweep:    DefaultCursorSweepEvery,
		cursors:  make(map[string]Cursor),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Presence) SetOnChange(fn func()) { p.onChange = fn }

func (p *Presence) ownPath() string { return store.CursorPath(p.boardID, p.me.UserID) }

// Start registers server-side cleanup of our own entry, subscribes to every
// cursor, and sweeps stale entries until ctx ends or Stop is called.
func (p *Presence) Start(ctx context.Context) {
	if p.unsub != nil {
		return
	}
	if err := p.store.RemoveOnDisconnect(ctx, p.ownPath()); err != nil {
		p.logger.Printf("[PRESENCE] remove-on-disconnect for %s failed: %v", p.me.UserID, err)
	}
	p.unsub = p.store.Subscribe(store.CursorsPath(p.boardID), func(s store.Snapshot) {
		cursors := make(map[string]Cursor)
		if err := s.Decode(&cursors); err != nil {
			p.logger.Printf("[PRESENCE] bad cursor snapshot: %v", err)
			return
		}
		p.exec(func() {
			p.cursors = cursors
			if p.onChange != nil {
				p.onChange()
			}
		})
	})

	ctx, p.cancel = context.WithCancel(ctx)
	go func() {
		t := time.NewTicker(p.sweep)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				p.exec(p.Sweep)
			}
		}
	}()
}

// Publish reports the local cursor at world point (x, y). Calls closer
// together than the throttle interval are folded into one trailing write.
func (p *Presence) Publish(x, y float64) {
	now := p.now()
	if p.lastSent.IsZero() || now.Sub(p.lastSent) >= p.throttle {
		p.pending = nil
		p.write(x, y, now)
		return
	}
	p.pending = &Point{X: x, Y: y}
	if p.trailing == nil {
		wait := p.throttle - now.Sub(p.lastSent)
		p.trailing = time.AfterFunc(wait, func() { p.exec(p.FlushPending) })
	}
}

// FlushPending writes a cursor position held back by the throttle.
func (p *Presence) FlushPending() {
	if p.trailing != nil {
		p.trailing.Stop()
		p.trailing = nil
	}
	if p.pending == nil {
		return
	}
	pt := *p.pending
	p.pending = nil
	p.write(pt.X, pt.Y, p.now())
}

func (p *Presence) write(x, y float64, now time.Time) {
	p.lastSent = now
	c := Cursor{
		UserID:     p.me.UserID,
		Name:       p.me.Name,
		X:          x,
		Y:          y,
		Color:      p.color,
		LastUpdate: now.UnixMilli(),
	}
	if err := p.store.Write(context.Background(), p.ownPath(), c); err != nil {
		p.logger.Printf("[PRESENCE] cursor write failed: %v", err)
	}
}

func (p *Presence) isStale(c Cursor, now time.Time) bool {
	return now.Sub(time.UnixMilli(c.LastUpdate)) > p.stale
}

// Cursors returns the fresh cursors of other users, ordered by name then id.
func (p *Presence) Cursors() []Cursor {
	now := p.now()
	out := make([]Cursor, 0, len(p.cursors))
	for id, c := range p.cursors {
		if id == p.me.UserID || p.isStale(c, now) {
			continue
		}
		if c.UserID == "" {
			c.UserID = id
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}

// Sweep removes stale cursor entries from the store. Any client may run it;
// it never touches our own entry.
func (p *Presence) Sweep() {
	now := p.now()
	updates := make(map[string]any)
	for id, c := range p.cursors {
		if id == p.me.UserID || !p.isStale(c, now) {
			continue
		}
		updates[store.CursorPath(p.boardID, id)] = nil
	}
	if len(updates) == 0 {
		return
	}
	if err := p.store.Update(context.Background(), updates); err != nil {
		p.logger.Printf("[PRESENCE] sweep failed: %v", err)
	}
}

// Stop removes our own entry eagerly and ends the subscription and sweeper.
func (p *Presence) Stop() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	if p.trailing != nil {
		p.trailing.Stop()
		p.trailing = nil
	}
	p.pending = nil
	if p.unsub != nil {
		p.unsub()
		p.unsub = nil
	}
	if err := p.store.Remove(context.Background(), p.ownPath()); err != nil {
		p.logger.Printf("[PRESENCE] removing own cursor failed: %v", err)
	}
}
