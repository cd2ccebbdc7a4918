package adapters

import (
	"context"
	"sync"
	"time"

	ports "github.com/ZanzyTHEbar/memoflow/memoflow/cache/ports"
)

// MemoryStore implements an in-process store with LRU eviction.
// Recency is tracked with a doubly linked list; the tail is always the
// least recently accessed entry. Capacity can bound the entry count, the
// total value bytes, or both.
type MemoryStore struct {
	mu         sync.Mutex
	capacity   int
	maxBytes   int64
	totalBytes int64
	items      map[string]*memoryItem
	head       *memoryItem
	tail       *memoryItem
	stats      StoreStats
}

type memoryItem struct {
	entry ports.Entry
	prev  *memoryItem
	next  *memoryItem
}

// StoreStats counts store activity since creation.
type StoreStats struct {
	Entries   int
	Bytes     int64
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// NewMemoryStore creates a memory store bounded by entry count.
// capacity <= 0 means unbounded.
func NewMemoryStore(capacity int) *MemoryStore {
	return NewMemoryStoreSized(capacity, 0)
}

// NewMemoryStoreSized creates a memory store bounded by entry count and by
// total value bytes. Either bound is disabled when <= 0.
func NewMemoryStoreSized(capacity int, maxBytes int64) *MemoryStore {
	return &MemoryStore{
		capacity: capacity,
		maxBytes: maxBytes,
		items:    make(map[string]*memoryItem),
	}
}

// Get retrieves a value and marks the entry most recently used.
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, exists := s.items[key]
	if !exists {
		s.stats.Misses++
		return nil, false, nil
	}

	item.entry.LastAccessedAt = time.Now()
	s.moveToFront(item)
	s.stats.Hits++

	return item.entry.Value, true, nil
}

// Put inserts or replaces an entry, evicting from the tail when over capacity.
func (s *MemoryStore) Put(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()

	if item, exists := s.items[key]; exists {
		s.totalBytes += int64(len(value)) - item.entry.Size
		item.entry.Value = value
		item.entry.Size = int64(len(value))
		item.entry.LastAccessedAt = now
		s.moveToFront(item)
		s.evictOverflow()
		return nil
	}

	item := &memoryItem{
		entry: ports.Entry{
			Key:            key,
			Value:          value,
			CreatedAt:      now,
			LastAccessedAt: now,
			Size:           int64(len(value)),
		},
	}

	s.addToFront(item)
	s.items[key] = item
	s.totalBytes += item.entry.Size

	s.evictOverflow()
	return nil
}

// Evict removes a key. Evicting an absent key is not an error.
func (s *MemoryStore) Evict(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, exists := s.items[key]
	if !exists {
		return nil
	}

	s.removeItem(item)
	delete(s.items, key)
	s.totalBytes -= item.entry.Size
	return nil
}

// Keys returns a snapshot of all stored keys.
func (s *MemoryStore) Keys(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	return keys, nil
}

// Stats returns a snapshot of store counters.
func (s *MemoryStore) Stats() StoreStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := s.stats
	stats.Entries = len(s.items)
	stats.Bytes = s.totalBytes
	return stats
}

func (s *MemoryStore) moveToFront(item *memoryItem) {
	if item == s.head {
		return
	}

	s.removeItem(item)
	s.addToFront(item)
}

func (s *MemoryStore) addToFront(item *memoryItem) {
	item.next = s.head
	item.prev = nil

	if s.head != nil {
		s.head.prev = item
	}
	s.head = item

	if s.tail == nil {
		s.tail = item
	}
}

func (s *MemoryStore) removeItem(item *memoryItem) {
	if item.prev != nil {
		item.prev.next = item.next
	} else {
		s.head = item.next
	}

	if item.next != nil {
		item.next.prev = item.prev
	} else {
		s.tail = item.prev
	}

	item.prev = nil
	item.next = nil
}

// evictOverflow drops least recently used entries until both bounds hold.
func (s *MemoryStore) evictOverflow() {
	for len(s.items) > 0 {
		overCount := s.capacity > 0 && len(s.items) > s.capacity
		overBytes := s.maxBytes > 0 && s.totalBytes > s.maxBytes
		if !overCount && !overBytes {
			return
		}
		s.evictLRU()
	}
}

func (s *MemoryStore) evictLRU() {
	if s.tail == nil {
		return
	}

	item := s.tail
	s.removeItem(item)
	delete(s.items, item.entry.Key)
	s.totalBytes -= item.entry.Size
	s.stats.Evictions++
}

// Ensure MemoryStore implements the Store interface.
var _ ports.Store = (*MemoryStore)(nil)
