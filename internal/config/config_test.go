package config_test

import (
	"testing"
	"time"

	"LiveCanvas/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"LIVECANVAS_PORT", "LIVECANVAS_BOARD", "LIVECANVAS_USER_ID", "LIVECANVAS_USER_NAME",
		"LIVECANVAS_SESSION_DB", "LIVECANVAS_UNDO_LIMIT", "LIVECANVAS_CURSOR_STALE", "LIVECANVAS_MDNS"} {
		t.Setenv(k, "")
	}
	cfg := config.FromEnv()
	assert.Equal(t, 8888, cfg.Port)
	assert.Equal(t, "main", cfg.Board)
	assert.Len(t, cfg.UserID, 36, "a fresh uuid")
	assert.NotEmpty(t, cfg.UserName)
	assert.Contains(t, cfg.SessionDB, "session.db")
	assert.Equal(t, 200, cfg.UndoLimit)
	assert.Equal(t, 30*time.Second, cfg.CursorStale)
	assert.True(t, cfg.MDNS)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("LIVECANVAS_PORT", "9999")
	t.Setenv("LIVECANVAS_BOARD", "retro")
	t.Setenv("LIVECANVAS_USER_ID", "u-42")
	t.Setenv("LIVECANVAS_USER_NAME", "Ann")
	t.Setenv("LIVECANVAS_UNDO_LIMIT", "oops")
	t.Setenv("LIVECANVAS_CURSOR_STALE", "5s")
	t.Setenv("LIVECANVAS_MDNS", "false")

	cfg := config.FromEnv()
	assert.Equal(t, 9999, cfg.Port)
	assert.Equal(t, "retro", cfg.Board)
	assert.Equal(t, "u-42", cfg.UserID)
	assert.Equal(t, "Ann", cfg.UserName)
	assert.Equal(t, 200, cfg.UndoLimit, "unparsable values fall back")
	assert.Equal(t, 5*time.Second, cfg.CursorStale)
	assert.False(t, cfg.MDNS)
}
