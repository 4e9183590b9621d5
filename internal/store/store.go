// Package store defines the realtime collection store the board syncs through
// and ships an in-memory JSON tree implementation of it.
//
// Paths are slash separated, e.g. "boards/main/objects/abc". A subscriber on a
// path receives the full subtree under it whenever anything at, above or below
// that path changes.
package store

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	ErrInvalidPath = errors.New("invalid store path")
	ErrClosed      = errors.New("store closed")
)

// Snapshot is the state of one path at a point in time. Value is nil when
// nothing is stored there.
type Snapshot struct {
	Path  string
	Value json.RawMessage
}

func (s Snapshot) Exists() bool {
	return len(s.Value) > 0 && string(s.Value) != "null"
}

// Decode unmarshals the snapshot into v. Decoding a missing value leaves v untouched.
func (s Snapshot) Decode(v any) error {
	if !s.Exists() {
		return nil
	}
	return json.Unmarshal(s.Value, v)
}

// Store is the realtime key-value store contract. Writes must not block on the
// network; implementations queue them and report only local failures.
type Store interface {
	// Subscribe delivers the current value at path immediately and again on
	// every change. The returned func cancels the subscription.
	Subscribe(path string, fn func(Snapshot)) (unsubscribe func())
	// Write replaces whatever is stored at path.
	Write(ctx context.Context, path string, value any) error
	// Merge sets only the named child fields of path. A nil field value
	// removes that field. Fields not named are untouched.
	Merge(ctx context.Context, path string, fields map[string]any) error
	Remove(ctx context.Context, path string) error
	// Update applies several path writes atomically. Nil values remove.
	Update(ctx context.Context, updates map[string]any) error
	// RemoveOnDisconnect asks the store to remove path once this client's
	// connection goes away.
	RemoveOnDisconnect(ctx context.Context, path string) error
}
