package repository

import (
	"context"
	"time"
)

// SeenRepository defines the interface for the fast-path deduplication
// index over normalized URL hashes. It is a cache in front of the queue
// store's unique constraint, never the authority: a miss or an index
// outage only means the duplicate check falls through to the store.
type SeenRepository interface {
	// MarkSeen records a normalized URL hash with the given expiry.
	MarkSeen(ctx context.Context, hash string, expiry time.Duration) error
	// FilterSeen reports, per hash, whether it is currently in the index.
	FilterSeen(ctx context.Context, hashes []string) (map[string]bool, error)
	// RemoveSeen drops a hash from the index, used when its row is deleted.
	RemoveSeen(ctx context.Context, hash string) error
}
