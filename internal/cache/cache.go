// Package cache provides TTL key-value stores for analysis results.
package cache

import (
	"context"
	"time"

	"github.com/iconidentify/chalkboard/internal/domain"
)

// DefaultTTL is used when Set is called with a non-positive ttl.
const DefaultTTL = 300 * time.Second

// Cache is a key-value store whose entries expire.
type Cache[V any] interface {
	// Get returns the value for key. A miss is (zero, false, nil).
	Get(ctx context.Context, key string) (V, bool, error)
	// Set stores value under key. ttl <= 0 uses the store's default TTL.
	Set(ctx context.Context, key string, value V, ttl time.Duration) error
	// Delete removes key if present.
	Delete(ctx context.Context, key string) error
	// ClearExpired removes expired entries and reports how many were removed.
	ClearExpired() int
	// Ping reports whether the backing store answers.
	Ping(ctx context.Context) error
}

// Lookup probes the neighbour keys of (videoID, timestamp) in order and
// returns the first hit along with the key that matched.
// Backend errors on one key are treated as misses so a flaky store degrades
// to recomputation.
func Lookup[V any](ctx context.Context, c Cache[V], videoID string, timestamp float64) (V, string, bool) {
	var zero V
	for _, key := range domain.NeighborKeys(videoID, timestamp) {
		v, ok, err := c.Get(ctx, key)
		if err != nil || !ok {
			continue
		}
		return v, key, true
	}
	return zero, "", false
}
