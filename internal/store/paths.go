package store

import (
	"fmt"
	"strings"
)

const (
	boardsRoot     = "boards"
	objectsKey     = "objects"
	connectionsKey = "connections"
	cursorsKey     = "cursors"
)

func BoardPath(boardID string) string { return Join(boardsRoot, boardID) }

func ObjectsPath(boardID string) string { return Join(boardsRoot, boardID, objectsKey) }

func ObjectPath(boardID, id string) string { return Join(boardsRoot, boardID, objectsKey, id) }

func ConnectionsPath(boardID string) string { return Join(boardsRoot, boardID, connectionsKey) }

func ConnectionPath(boardID, id string) string {
	return Join(boardsRoot, boardID, connectionsKey, id)
}

func CursorsPath(boardID string) string { return Join(boardsRoot, boardID, cursorsKey) }

func CursorPath(boardID, userID string) string { return Join(boardsRoot, boardID, cursorsKey, userID) }

// Join builds a path from segments, dropping surrounding slashes.
func Join(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(p, "/")
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "/")
}

// Split validates path and returns its segments. The empty path is the root.
func Split(path string) ([]string, error) {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil, nil
	}
	parts := strings.Split(path, "/")
	for _, p := range parts {
		if p == "" || strings.ContainsAny(p, ".#$[]") {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
	}
	return parts, nil
}

// related reports whether a change at one path is visible from the other.
func related(a, b []string) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
