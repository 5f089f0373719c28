// Package cache stores version lookup results so repeated alignment runs
// against the same service configuration skip the network.
package cache

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("cache entry not found")

// Entry is one cached lookup result. Value may be empty: a remembered
// "no recommendation" is still a hit.
type Entry struct {
	Key      string
	Value    string
	StoredAt time.Time
}

// Store is a TTL'd key/value store. Get treats entries older than the
// store's TTL as absent; Prune deletes them. Put stamps StoredAt with the
// store's clock. A TTL of zero keeps entries forever.
type Store interface {
	Get(ctx context.Context, key string) (Entry, error)
	Put(ctx context.Context, e Entry) error
	Prune(ctx context.Context) (int64, error)
	Close() error
}
