package adapters

import (
	"context"
	"fmt"
	"sync"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/cespare/xxhash/v2"

	"github.com/ZanzyTHEbar/memoflow/memoflow/errs"
	ports "github.com/ZanzyTHEbar/memoflow/memoflow/cache/ports"
)

// MemcacheStore maps the store contract onto a memcached cluster. Memcached
// enforces its own LRU and key limits, so the raw key is hashed into a safe
// fixed-length name and eviction under capacity pressure is left to the
// server.
//
// Memcached cannot enumerate keys, so Keys reflects only keys written
// through this client instance.
type MemcacheStore struct {
	client *memcache.Client
	ttl    int32

	mu   sync.Mutex
	seen map[string]string // memcache name -> original key
}

// NewMemcacheStore connects to the given "host:port" addresses.
// ttlSeconds <= 0 stores entries without server-side expiry.
func NewMemcacheStore(ttlSeconds int32, addrs ...string) *MemcacheStore {
	return &MemcacheStore{
		client: memcache.New(addrs...),
		ttl:    ttlSeconds,
		seen:   make(map[string]string),
	}
}

// Get fetches the value for key. A cache miss is not an error; any other
// client error is surfaced as a store failure.
func (s *MemcacheStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	item, err := s.client.Get(s.name(key))
	return interpretFetch(item, err)
}

// interpretFetch splits a client fetch into miss, hit and store failure.
func interpretFetch(item *memcache.Item, err error) ([]byte, bool, error) {
	if err == memcache.ErrCacheMiss {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errs.StoreUnavailable(fmt.Errorf("memcache get: %w", err))
	}
	return item.Value, true, nil
}

// Put stores the value under the hashed key name.
func (s *MemcacheStore) Put(ctx context.Context, key string, value []byte) error {
	name := s.name(key)
	err := s.client.Set(&memcache.Item{
		Key:        name,
		Value:      value,
		Expiration: s.ttl,
	})
	if err != nil {
		return errs.StoreUnavailable(fmt.Errorf("memcache set: %w", err))
	}

	s.mu.Lock()
	s.seen[name] = key
	s.mu.Unlock()
	return nil
}

// Evict removes the key. A miss on delete is not an error.
func (s *MemcacheStore) Evict(ctx context.Context, key string) error {
	name := s.name(key)
	err := s.client.Delete(name)
	if err != nil && err != memcache.ErrCacheMiss {
		return errs.StoreUnavailable(fmt.Errorf("memcache delete: %w", err))
	}

	s.mu.Lock()
	delete(s.seen, name)
	s.mu.Unlock()
	return nil
}

// Keys returns the keys this client has written and not evicted.
func (s *MemcacheStore) Keys(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.seen))
	for _, key := range s.seen {
		keys = append(keys, key)
	}
	return keys, nil
}

func (s *MemcacheStore) name(key string) string {
	return fmt.Sprintf("memoflow:%016x", xxhash.Sum64String(key))
}

// Ensure MemcacheStore implements the Store interface.
var _ ports.Store = (*MemcacheStore)(nil)
