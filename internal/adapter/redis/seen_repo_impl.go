package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const seenKeyPrefix = "queue:seen:"

// SeenRepoImpl provides a concrete implementation for the SeenRepository
// interface using Redis. Keys are normalized URL hashes with a TTL; the
// queue store's unique constraint remains the deduplication authority.
type SeenRepoImpl struct {
	client *redis.Client
}

// NewSeenRepo creates a new instance of SeenRepoImpl.
func NewSeenRepo(client *redis.Client) *SeenRepoImpl {
	return &SeenRepoImpl{client: client}
}

// Ping reports whether Redis is reachable.
func (r *SeenRepoImpl) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// MarkSeen records a hash with the given expiry.
func (r *SeenRepoImpl) MarkSeen(ctx context.Context, hash string, expiry time.Duration) error {
	// SETEX is atomic and sets the key with an expiry.
	return r.client.SetEx(ctx, seenKeyPrefix+hash, "1", expiry).Err()
}

// FilterSeen checks all hashes in one pipelined round trip.
func (r *SeenRepoImpl) FilterSeen(ctx context.Context, hashes []string) (map[string]bool, error) {
	if len(hashes) == 0 {
		return map[string]bool{}, nil
	}

	pipe := r.client.Pipeline()
	cmds := make([]*redis.IntCmd, len(hashes))
	for i, h := range hashes {
		cmds[i] = pipe.Exists(ctx, seenKeyPrefix+h)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(hashes))
	for i, h := range hashes {
		seen[h] = cmds[i].Val() == 1
	}
	return seen, nil
}

// RemoveSeen drops a hash from the index.
func (r *SeenRepoImpl) RemoveSeen(ctx context.Context, hash string) error {
	return r.client.Del(ctx, seenKeyPrefix+hash).Err()
}
