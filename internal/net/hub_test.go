package net_test

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	lcnet "LiveCanvas/internal/net"
	"LiveCanvas/internal/state"
	"LiveCanvas/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tick    = 10 * time.Millisecond
)

var quiet = log.New(io.Discard, "", 0)

func startHub(t *testing.T) (*store.Memory, *lcnet.Hub, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	mem := store.NewMemory()
	hub := lcnet.NewHub(mem, lcnet.WithHubLogger(quiet))
	srv := httptest.NewServer(hub.Handler())
	t.Cleanup(func() {
		hub.Peers().CloseAll()
		srv.Close()
	})
	return mem, hub, srv
}

func dial(t *testing.T, srv *httptest.Server, opts ...lcnet.ClientOption) *lcnet.Client {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	c, err := lcnet.Dial(context.Background(), url, append([]lcnet.ClientOption{lcnet.WithClientLogger(quiet)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func exists(mem *store.Memory, path string) func() bool {
	return func() bool {
		snap, err := mem.Get(path)
		return err == nil && snap.Exists()
	}
}

func TestClientWritesReachHubAndOtherPeers(t *testing.T) {
	mem, _, srv := startHub(t)
	a := dial(t, srv)
	b := dial(t, srv)

	var seen atomic.Value
	unsub := b.Subscribe(store.ObjectsPath("main"), func(s store.Snapshot) { seen.Store(string(s.Value)) })
	defer unsub()

	board := state.NewBoard(a, "main", state.WithLogger(quiet))
	board.CreateObject(state.BoardObject{ID: "n1", Type: state.TypeStickyNote, Width: 100, Height: 100, Color: "#ffeb3b", CreatedBy: "u1"})
	require.Eventually(t, exists(mem, store.ObjectPath("main", "n1")), waitFor, tick)
	require.Eventually(t, func() bool {
		v, _ := seen.Load().(string)
		return strings.Contains(v, `"n1"`)
	}, waitFor, tick, "the other peer receives the snapshot")

	board.PatchObject("n1", state.ObjectPatch{Text: state.String("hello"), Color: state.String("")})
	require.Eventually(t, exists(mem, store.Join(store.ObjectPath("main", "n1"), "text")), waitFor, tick)
	assert.False(t, exists(mem, store.Join(store.ObjectPath("main", "n1"), "color"))(), "a cleared field is removed")

	board.DeleteObject("n1")
	require.Eventually(t, func() bool { return !exists(mem, store.ObjectPath("main", "n1"))() }, waitFor, tick)
}

func TestSubscribeDeliversInitialSnapshot(t *testing.T) {
	mem, _, srv := startHub(t)
	require.NoError(t, mem.Write(context.Background(), store.ObjectPath("main", "a"), map[string]any{"id": "a"}))
	c := dial(t, srv)

	got := make(chan store.Snapshot, 4)
	c.Subscribe(store.ObjectsPath("main"), func(s store.Snapshot) { got <- s })
	select {
	case s := <-got:
		assert.True(t, s.Exists())
		assert.Equal(t, store.ObjectsPath("main"), s.Path)
	case <-time.After(waitFor):
		t.Fatal("no initial snapshot")
	}

	unsub := c.Subscribe(store.CursorsPath("main"), func(s store.Snapshot) { got <- s })
	select {
	case s := <-got:
		assert.False(t, s.Exists(), "an empty path still answers")
	case <-time.After(waitFor):
		t.Fatal("no snapshot for empty path")
	}
	unsub()
}

func TestUpdateAppliesEveryPath(t *testing.T) {
	mem, _, srv := startHub(t)
	ctx := context.Background()
	require.NoError(t, mem.Write(ctx, store.ConnectionPath("main", "c1"), map[string]any{"id": "c1"}))
	c := dial(t, srv)

	require.NoError(t, c.Update(ctx, map[string]any{
		store.ConnectionPath("main", "c1"): nil,
		store.ObjectPath("main", "o1"):     map[string]any{"id": "o1"},
	}))
	require.Eventually(t, exists(mem, store.ObjectPath("main", "o1")), waitFor, tick)
	assert.False(t, exists(mem, store.ConnectionPath("main", "c1"))())
}

func TestDisconnectRemovesRegisteredPaths(t *testing.T) {
	mem, hub, srv := startHub(t)
	ctx := context.Background()
	c := dial(t, srv)
	path := store.CursorPath("main", "u1")

	require.NoError(t, c.RemoveOnDisconnect(ctx, path))
	require.NoError(t, c.Write(ctx, path, state.Cursor{UserID: "u1", X: 1, Y: 2}))
	require.Eventually(t, exists(mem, path), waitFor, tick)
	require.Eventually(t, func() bool { return hub.Peers().Count() == 1 }, waitFor, tick)

	require.NoError(t, c.Close())
	require.Eventually(t, func() bool { return !exists(mem, path)() }, waitFor, tick)
	require.Eventually(t, func() bool { return hub.Peers().Count() == 0 }, waitFor, tick)
	assert.ErrorIs(t, c.Write(ctx, path, 1), store.ErrClosed)
}

func TestRejectedWriteKeepsConnection(t *testing.T) {
	mem, _, srv := startHub(t)
	ctx := context.Background()
	c := dial(t, srv)

	require.NoError(t, c.Write(ctx, "boards/main/bad.key", 1), "errors come back asynchronously")
	require.NoError(t, c.Write(ctx, store.ObjectPath("main", "ok"), map[string]any{"id": "ok"}))
	require.Eventually(t, exists(mem, store.ObjectPath("main", "ok")), waitFor, tick)
}

func TestConnectionLostIsReported(t *testing.T) {
	_, hub, srv := startHub(t)
	lost := make(chan error, 1)
	dial(t, srv, lcnet.WithConnectionLost(func(err error) { lost <- err }))
	require.Eventually(t, func() bool { return hub.Peers().Count() == 1 }, waitFor, tick)

	hub.Peers().CloseAll()
	select {
	case err := <-lost:
		assert.Error(t, err)
	case <-time.After(waitFor):
		t.Fatal("connection loss not reported")
	}
}

func TestHTTPEndpoints(t *testing.T) {
	mem, _, srv := startHub(t)
	ctx := context.Background()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/boards/main/export.pdf")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "an empty board has nothing to export")
	resp.Body.Close()

	require.NoError(t, mem.Write(ctx, store.ObjectPath("main", "a"), state.BoardObject{
		ID: "a", Type: state.TypeRectangle, Width: 100, Height: 50, CreatedBy: "u1",
	}))

	resp, err = http.Get(srv.URL + "/boards/main")
	require.NoError(t, err)
	var board lcnet.BoardResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&board))
	resp.Body.Close()
	require.Len(t, board.Objects, 1)
	assert.Empty(t, board.Connections)

	resp, err = http.Get(srv.URL + "/boards/main/export.pdf")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/boards/main/export.png?w=320&h=200")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/boards/main/export.png?w=huge")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestRunStopsOnCancel(t *testing.T) {
	hub := lcnet.NewHub(store.NewMemory(), lcnet.WithHubLogger(quiet))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.Run(ctx, "127.0.0.1:0") }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("Run did not return")
	}
}

func TestLinks(t *testing.T) {
	link := lcnet.ShareLink("10.0.0.5:8888", "team board")
	assert.Equal(t, "livecanvas://10.0.0.5:8888/team%20board", link)

	addr, board, err := lcnet.ParseLink(link)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5:8888", addr)
	assert.Equal(t, "team board", board)

	_, board, err = lcnet.ParseLink("livecanvas://10.0.0.5:8888")
	require.NoError(t, err)
	assert.Equal(t, lcnet.DefaultBoard, board)

	for _, bad := range []string{"http://10.0.0.5:8888", "livecanvas://10.0.0.5", "livecanvas://h:1/a/b", "::"} {
		_, _, err := lcnet.ParseLink(bad)
		assert.Error(t, err, bad)
	}

	assert.Equal(t, "ws://10.0.0.5:8888/ws", lcnet.WebSocketURL("10.0.0.5:8888"))
}
