package cacheports

import (
	"context"
	"time"
)

// Entry is the stored unit the cache owns inside a Store. Value bytes are
// opaque to the store; timestamps drive TTL checks and LRU eviction.
type Entry struct {
	Key            string
	Value          []byte
	CreatedAt      time.Time
	LastAccessedAt time.Time
	Size           int64
}

// Store is the storage backend contract consumed by the memoizer.
//
// Get must refresh the entry's recency on a hit. A missing key is (nil,
// false, nil), not an error; errors are reserved for backend failures and
// must be classified with the errs sentinels.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Put(ctx context.Context, key string, value []byte) error
	Evict(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}

// Keyer derives the canonical cache key for a computation's argument.
// Implementations must be deterministic: value-equal arguments produce
// identical keys regardless of object identity.
type Keyer interface {
	Key(arg any) (string, error)
}
