package net

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"LiveCanvas/internal/store"

	"github.com/gorilla/websocket"
)

// Client is a store.Store backed by a remote hub. Writes are queued and sent
// by a single writer goroutine; snapshot callbacks run on the reader
// goroutine, so callers hop to their own loop before touching UI state.
type Client struct {
	conn   *websocket.Conn
	logger *log.Logger
	onLost func(error)

	mu     sync.Mutex
	subs   map[int]func(store.Snapshot)
	nextID int
	queue  []Message
	closed bool

	wake      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

type ClientOption func(*Client)

func WithClientLogger(l *log.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithConnectionLost registers a callback fired once if the hub goes away
// before Close is called.
func WithConnectionLost(fn func(error)) ClientOption {
	return func(c *Client) { c.onLost = fn }
}

// Dial connects to a hub's websocket endpoint, e.g. "ws://10.0.0.5:8888/ws".
func Dial(ctx context.Context, url string, opts ...ClientOption) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	c := &Client{
		conn:   conn,
		logger: log.Default(),
		subs:   make(map[int]func(store.Snapshot)),
		nextID: 1,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.conn.SetReadLimit(maxMessageSize)
	c.wg.Add(2)
	go c.readLoop()
	go c.writeLoop()
	return c, nil
}

func (c *Client) push(m Message) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return store.ErrClosed
	}
	c.queue = append(c.queue, m)
	c.mu.Unlock()
	select {
	case c.wake <- struct{}{}:
	default:
	}
	return nil
}

func (c *Client) Subscribe(path string, fn func(store.Snapshot)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.mu.Unlock()

	if err := c.push(Message{Type: MsgSubscribe, ID: id, Path: path}); err != nil {
		return func() {}
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
			_ = c.push(Message{Type: MsgUnsubscribe, ID: id})
		})
	}
}

func (c *Client) Write(_ context.Context, path string, value any) error {
	raw, err := encodeValue(value)
	if err != nil {
		return err
	}
	return c.push(Message{Type: MsgWrite, Path: path, Value: raw})
}

func (c *Client) Merge(_ context.Context, path string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	enc, err := encodeMap(fields)
	if err != nil {
		return err
	}
	return c.push(Message{Type: MsgMerge, Path: path, Fields: enc})
}

func (c *Client) Remove(_ context.Context, path string) error {
	return c.push(Message{Type: MsgRemove, Path: path})
}

func (c *Client) Update(_ context.Context, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	enc, err := encodeMap(updates)
	if err != nil {
		return err
	}
	return c.push(Message{Type: MsgUpdate, Updates: enc})
}

func (c *Client) RemoveOnDisconnect(_ context.Context, path string) error {
	return c.push(Message{Type: MsgOnDisconnect, Path: path})
}

// Close flushes queued writes, says goodbye and waits for both loops.
func (c *Client) Close() error {
	c.shutdown(nil)
	c.wg.Wait()
	return nil
}

func (c *Client) shutdown(cause error) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.done)
		if cause != nil {
			c.logger.Printf("[SYNC] connection to hub lost: %v", cause)
			_ = c.conn.Close()
			if c.onLost != nil {
				c.onLost(cause)
			}
		}
	})
}

func (c *Client) readLoop() {
	defer c.wg.Done()
	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			select {
			case <-c.done:
			default:
				c.shutdown(err)
			}
			return
		}
		switch msg.Type {
		case MsgSnapshot:
			c.mu.Lock()
			fn := c.subs[msg.ID]
			c.mu.Unlock()
			if fn != nil {
				fn(store.Snapshot{Path: msg.Path, Value: msg.Value})
			}
		case MsgError:
			c.logger.Printf("[SYNC] hub rejected %q: %s", msg.Path, msg.Error)
		}
	}
}

func (c *Client) drain() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	q := c.queue
	c.queue = nil
	return q
}

func (c *Client) send(msgs []Message) error {
	for _, m := range msgs {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(m); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) writeLoop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.wake:
			if err := c.send(c.drain()); err != nil {
				c.shutdown(err)
				return
			}
		case <-c.done:
			// Flush whatever was queued before Close, then close politely.
			if err := c.send(c.drain()); err == nil {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			}
			_ = c.conn.Close()
			return
		}
	}
}

var _ store.Store = (*Client)(nil)
