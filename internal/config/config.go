package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

type Config struct {
	Port        int
	Board       string
	UserID      string
	UserName    string
	SessionDB   string
	UndoLimit   int
	CursorStale time.Duration
	MDNS        bool
}

// Load reads .env when present, then the environment, falling back to
// defaults for anything unset or unparsable.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[HOST] no .env file found, using system environment variables")
	}
	return FromEnv()
}

func FromEnv() *Config {
	return &Config{
		Port:        getInt("LIVECANVAS_PORT", 8888),
		Board:       getEnv("LIVECANVAS_BOARD", "main"),
		UserID:      getEnv("LIVECANVAS_USER_ID", uuid.NewString()),
		UserName:    getEnv("LIVECANVAS_USER_NAME", defaultName()),
		SessionDB:   getEnv("LIVECANVAS_SESSION_DB", defaultSessionDB()),
		UndoLimit:   getInt("LIVECANVAS_UNDO_LIMIT", 200),
		CursorStale: getDuration("LIVECANVAS_CURSOR_STALE", 30*time.Second),
		MDNS:        getBool("LIVECANVAS_MDNS", true),
	}
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists && strings.TrimSpace(value) != "" {
		return value
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil || v < 0 {
		return defaultVal
	}
	return v
}

func getBool(key string, defaultVal bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultVal
	}
	return v
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || v <= 0 {
		return defaultVal
	}
	return v
}

func defaultName() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return "Guest"
}

func defaultSessionDB() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "livecanvas", "session.db")
	}
	return filepath.Join(home, ".livecanvas", "session.db")
}
