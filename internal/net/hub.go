package net

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"LiveCanvas/internal/export"
	"LiveCanvas/internal/state"
	"LiveCanvas/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	defaultPNGWidth  = 1600
	defaultPNGHeight = 1000
	maxPNGSide       = 4096
	shutdownTimeout  = 5 * time.Second
)

// Hub serves one in-memory store to every peer over websockets and exposes
// board exports over plain HTTP.
type Hub struct {
	mem      *store.Memory
	peers    *PeerManager
	engine   *gin.Engine
	upgrader websocket.Upgrader
	logger   *log.Logger
}

type HubOption func(*Hub)

func WithHubLogger(l *log.Logger) HubOption {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}

func NewHub(mem *store.Memory, opts ...HubOption) *Hub {
	h := &Hub{
		mem:    mem,
		logger: log.Default(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.peers = NewPeerManager(h.logger)

	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/ws", h.serveWS)
	r.GET("/healthz", h.health)
	r.GET("/boards/:board", h.getBoard)
	r.GET("/boards/:board/export.pdf", h.exportPDF)
	r.GET("/boards/:board/export.png", h.exportPNG)
	h.engine = r
	return h
}

func (h *Hub) Handler() http.Handler { return h.engine }

func (h *Hub) Peers() *PeerManager { return h.peers }

// Run listens on addr until ctx ends, then drops every peer and shuts the
// HTTP server down.
func (h *Hub) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: h.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		h.logger.Printf("[HUB] listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	h.logger.Println("[HUB] shutting down")
	h.peers.CloseAll()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("hub forced to shutdown: %w", err)
	}
	h.logger.Println("[HUB] exited properly")
	return nil
}

func (h *Hub) serveWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		h.logger.Printf("[HUB] websocket upgrade from %s failed: %v", c.Request.RemoteAddr, err)
		return
	}
	id := uuid.NewString()
	p := newPeer(id, conn, h.mem.Session(id), h.logger)
	p.onClose = func(p *peer) { h.peers.Remove(p.id) }
	h.peers.Add(p)

	go p.writeLoop()
	p.readLoop(c.Request.Context())
}

func (h *Hub) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "peers": h.peers.List()})
}

// content reads a board straight from the hub's store. Memory delivers the
// initial snapshot during Subscribe, so the mirror is complete after Mount.
func (h *Hub) content(boardID string) ([]state.BoardObject, []state.Connection) {
	b := state.NewBoard(h.mem, boardID, state.WithLogger(h.logger))
	b.Mount()
	defer b.Unmount()
	return b.Objects(), b.Connections()
}

type BoardResponse struct {
	ID          string              `json:"id"`
	Objects     []state.BoardObject `json:"objects"`
	Connections []state.Connection  `json:"connections"`
}

func (h *Hub) getBoard(c *gin.Context) {
	id := c.Param("board")
	objs, conns := h.content(id)
	if objs == nil {
		objs = []state.BoardObject{}
	}
	if conns == nil {
		conns = []state.Connection{}
	}
	c.JSON(http.StatusOK, BoardResponse{ID: id, Objects: objs, Connections: conns})
}

func (h *Hub) exportPDF(c *gin.Context) {
	objs, conns := h.content(c.Param("board"))
	var buf bytes.Buffer
	if err := export.PDF(&buf, objs, conns); err != nil {
		h.exportFailed(c, err)
		return
	}
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

func (h *Hub) exportPNG(c *gin.Context) {
	width, ok := sizeParam(c, "w", defaultPNGWidth)
	if !ok {
		return
	}
	height, ok := sizeParam(c, "h", defaultPNGHeight)
	if !ok {
		return
	}
	objs, conns := h.content(c.Param("board"))
	var buf bytes.Buffer
	if err := export.PNG(&buf, objs, conns, width, height); err != nil {
		h.exportFailed(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

func sizeParam(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 16 || v > maxPNGSide {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%s must be between 16 and %d", name, maxPNGSide)})
		return 0, false
	}
	return v, true
}

func (h *Hub) exportFailed(c *gin.Context, err error) {
	if errors.Is(err, export.ErrEmpty) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Board is empty"})
		return
	}
	h.logger.Printf("[HUB] export of %s failed: %v", c.Param("board"), err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export board"})
}
