// Package session keeps per-machine state that must survive a restart but
// never belongs on the shared board: the last viewport and an unfinished
// text edit, both keyed by board id.
package session

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"LiveCanvas/internal/viewport"

	_ "github.com/mattn/go-sqlite3"
)

var ErrNotFound = errors.New("session entry not found")

// Draft is text typed into an edit dialog that has not been committed yet.
type Draft struct {
	ObjectID string
	Text     string
	SavedAt  time.Time
}

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open creates the database file and its directory if needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}
	s, err := New(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an already open database and makes sure the schema exists.
func New(db *sql.DB) (*Store, error) {
	s := &Store{db: db, now: time.Now}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS views (
			board_id TEXT PRIMARY KEY,
			x REAL NOT NULL,
			y REAL NOT NULL,
			scale REAL NOT NULL,
			updated_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS drafts (
			board_id TEXT PRIMARY KEY,
			object_id TEXT NOT NULL,
			text TEXT NOT NULL,
			saved_at INTEGER NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// LoadView returns the last saved viewport. A stored scale that is not a
// positive finite number is reported as ErrNotFound.
func (s *Store) LoadView(boardID string) (viewport.View, error) {
	var v viewport.View
	err := s.db.QueryRow(`SELECT x, y, scale FROM views WHERE board_id = ?`, boardID).Scan(&v.X, &v.Y, &v.Scale)
	if errors.Is(err, sql.ErrNoRows) {
		return viewport.View{}, ErrNotFound
	}
	if err != nil {
		return viewport.View{}, fmt.Errorf("failed to load view for %s: %w", boardID, err)
	}
	if v.Scale <= 0 || math.IsNaN(v.Scale) || math.IsInf(v.Scale, 0) {
		return viewport.View{}, ErrNotFound
	}
	return v, nil
}

func (s *Store) SaveView(boardID string, v viewport.View) error {
	_, err := s.db.Exec(`
		INSERT INTO views (board_id, x, y, scale, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(board_id) DO UPDATE SET x = excluded.x, y = excluded.y, scale = excluded.scale, updated_at = excluded.updated_at`,
		boardID, v.X, v.Y, v.Scale, s.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to save view for %s: %w", boardID, err)
	}
	return nil
}

func (s *Store) LoadDraft(boardID string) (Draft, error) {
	var (
		d       Draft
		savedAt int64
	)
	err := s.db.QueryRow(`SELECT object_id, text, saved_at FROM drafts WHERE board_id = ?`, boardID).
		Scan(&d.ObjectID, &d.Text, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Draft{}, ErrNotFound
	}
	if err != nil {
		return Draft{}, fmt.Errorf("failed to load draft for %s: %w", boardID, err)
	}
	d.SavedAt = time.UnixMilli(savedAt)
	return d, nil
}

// SaveDraft keeps a single draft per board; a newer one replaces it.
func (s *Store) SaveDraft(boardID string, d Draft) error {
	if d.ObjectID == "" {
		return errors.New("draft needs an object id")
	}
	_, err := s.db.Exec(`
		INSERT INTO drafts (board_id, object_id, text, saved_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(board_id) DO UPDATE SET object_id = excluded.object_id, text = excluded.text, saved_at = excluded.saved_at`,
		boardID, d.ObjectID, d.Text, s.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to save draft for %s: %w", boardID, err)
	}
	return nil
}

func (s *Store) ClearDraft(boardID string) error {
	if _, err := s.db.Exec(`DELETE FROM drafts WHERE board_id = ?`, boardID); err != nil {
		return fmt.Errorf("failed to clear draft for %s: %w", boardID, err)
	}
	return nil
}
