package net

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"LiveCanvas/internal/store"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 << 20 // images travel inline as base64
	sendBuffer     = 256
)

// peer is one websocket connection on the hub. Everything it does to the
// store goes through its own session, so a dropped socket fires its
// remove-on-disconnect registrations.
type peer struct {
	id          string
	addr        string
	connectedAt time.Time
	conn        *websocket.Conn
	session     *store.Session
	send        chan Message
	logger      *log.Logger
	onClose     func(*peer)

	mu   sync.Mutex
	subs map[int]func()

	done      chan struct{}
	closeOnce sync.Once
}

func newPeer(id string, conn *websocket.Conn, session *store.Session, logger *log.Logger) *peer {
	return &peer{
		id:          id,
		addr:        conn.RemoteAddr().String(),
		connectedAt: time.Now(),
		conn:        conn,
		session:     session,
		send:        make(chan Message, sendBuffer),
		logger:      logger,
		subs:        make(map[int]func()),
		done:        make(chan struct{}),
	}
}

// enqueue never blocks the store's notification path. A peer that cannot
// drain its buffer is dropped.
func (p *peer) enqueue(m Message) {
	select {
	case <-p.done:
	case p.send <- m:
	default:
		p.logger.Printf("[HUB] peer %s is not keeping up, dropping it", p.id)
		go p.close()
	}
}

func (p *peer) close() {
	p.closeOnce.Do(func() {
		close(p.done)
		p.mu.Lock()
		subs := p.subs
		p.subs = nil
		p.mu.Unlock()
		for _, unsub := range subs {
			unsub()
		}
		p.session.Disconnect()
		_ = p.conn.Close()
		if p.onClose != nil {
			p.onClose(p)
		}
	})
}

func (p *peer) readLoop(ctx context.Context) {
	defer p.close()
	p.conn.SetReadLimit(maxMessageSize)
	_ = p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		var msg Message
		if err := p.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				p.logger.Printf("[HUB] peer %s read failed: %v", p.id, err)
			}
			return
		}
		if err := p.handle(ctx, msg); err != nil {
			p.logger.Printf("[HUB] peer %s %s %q: %v", p.id, msg.Type, msg.Path, err)
			p.enqueue(Message{Type: MsgError, ID: msg.ID, Path: msg.Path, Error: err.Error()})
		}
	}
}

func (p *peer) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		p.close()
	}()
	for {
		select {
		case <-p.done:
			_ = p.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case m := <-p.send:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteJSON(m); err != nil {
				p.logger.Printf("[HUB] peer %s write failed: %v", p.id, err)
				return
			}
		case <-ticker.C:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func rawOrNil(v json.RawMessage) any {
	if len(v) == 0 {
		return nil
	}
	return v
}

func (p *peer) handle(ctx context.Context, m Message) error {
	switch m.Type {
	case MsgSubscribe:
		return p.subscribe(m.ID, m.Path)
	case MsgUnsubscribe:
		p.mu.Lock()
		unsub := p.subs[m.ID]
		delete(p.subs, m.ID)
		p.mu.Unlock()
		if unsub != nil {
			unsub()
		}
		return nil
	case MsgWrite:
		return p.session.Write(ctx, m.Path, rawOrNil(m.Value))
	case MsgMerge:
		return p.session.Merge(ctx, m.Path, decodeMap(m.Fields))
	case MsgRemove:
		return p.session.Remove(ctx, m.Path)
	case MsgUpdate:
		return p.session.Update(ctx, decodeMap(m.Updates))
	case MsgOnDisconnect:
		return p.session.RemoveOnDisconnect(ctx, m.Path)
	default:
		return fmt.Errorf("unknown message type %q", m.Type)
	}
}

func (p *peer) subscribe(id int, path string) error {
	if _, err := store.Split(path); err != nil {
		return err
	}
	p.mu.Lock()
	old := p.subs[id]
	delete(p.subs, id)
	p.mu.Unlock()
	if old != nil {
		old()
	}

	unsub := p.session.Subscribe(path, func(s store.Snapshot) {
		p.enqueue(Message{Type: MsgSnapshot, ID: id, Path: s.Path, Value: s.Value})
	})

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.subs == nil {
		unsub()
		return nil
	}
	p.subs[id] = unsub
	return nil
}
