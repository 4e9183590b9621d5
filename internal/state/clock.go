package state

import (
	"time"

	"github.com/google/uuid"
)

// NewID and Now are package variables so tests can pin ids and timestamps.
var (
	NewID = func() string { return uuid.NewString() }
	Now   = func() time.Time { return time.Now() }
)

// NowMillis is the timestamp format stored in createdAt and lastUpdate.
func NowMillis() int64 {
	return Now().UnixMilli()
}
