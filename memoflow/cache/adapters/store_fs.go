package adapters

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/ZanzyTHEbar/memoflow/memoflow/errs"
	ports "github.com/ZanzyTHEbar/memoflow/memoflow/cache/ports"
)

// FSStore persists one file per key under a directory. Files are named by a
// content hash of the key; the original key is kept in a small header so
// Keys can recover it. File modification time stands in for last access and
// drives LRU eviction when an entry or byte bound is set.
type FSStore struct {
	mu       sync.Mutex
	dir      string
	capacity int
	maxBytes int64
}

const fsEntryExt = ".entry"

// NewFSStore creates the directory if needed. capacity <= 0 means unbounded.
func NewFSStore(dir string, capacity int) (*FSStore, error) {
	return NewFSStoreSized(dir, capacity, 0)
}

// NewFSStoreSized bounds the store by entry count and by total file bytes.
// Either bound is disabled when <= 0.
func NewFSStoreSized(dir string, capacity int, maxBytes int64) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.StoreUnavailable(fmt.Errorf("create cache dir %s: %w", dir, err))
	}
	return &FSStore{dir: dir, capacity: capacity, maxBytes: maxBytes}, nil
}

// Get reads the entry file and touches its mtime to record the access.
func (s *FSStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.entryPath(key)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errs.StoreUnavailable(fmt.Errorf("read entry: %w", err))
	}

	storedKey, value, err := decodeEntryFile(data)
	if err != nil {
		return nil, false, errs.Serialization(err)
	}
	if storedKey != key {
		// Hash collision between distinct keys. Treat as a miss rather than
		// serving the wrong value.
		return nil, false, nil
	}

	now := time.Now()
	if err := os.Chtimes(path, now, now); err != nil {
		return nil, false, errs.StoreUnavailable(fmt.Errorf("touch entry: %w", err))
	}

	return value, true, nil
}

// Put writes the entry atomically via a temp file rename, then enforces the
// capacity bound by deleting the files with the oldest mtimes.
func (s *FSStore) Put(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.entryPath(key)
	tmp, err := os.CreateTemp(s.dir, "put-*")
	if err != nil {
		return errs.StoreUnavailable(fmt.Errorf("create temp entry: %w", err))
	}

	data := encodeEntryFile(key, value)
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errs.StoreUnavailable(fmt.Errorf("write entry: %w", err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errs.StoreUnavailable(fmt.Errorf("close entry: %w", err))
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return errs.StoreUnavailable(fmt.Errorf("rename entry: %w", err))
	}

	return s.enforceCapacity()
}

// Evict removes the entry file for key, if present.
func (s *FSStore) Evict(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.entryPath(key))
	if err != nil && !os.IsNotExist(err) {
		return errs.StoreUnavailable(fmt.Errorf("remove entry: %w", err))
	}
	return nil
}

// Keys recovers the original keys from the entry file headers.
func (s *FSStore) Keys(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	paths, err := s.entryFiles()
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, errs.StoreUnavailable(fmt.Errorf("read entry: %w", err))
		}
		key, _, err := decodeEntryFile(data)
		if err != nil {
			return nil, errs.Serialization(err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (s *FSStore) entryPath(key string) string {
	name := fmt.Sprintf("%016x%s", xxhash.Sum64String(key), fsEntryExt)
	return filepath.Join(s.dir, name)
}

func (s *FSStore) entryFiles() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*"+fsEntryExt))
	if err != nil {
		return nil, errs.StoreUnavailable(fmt.Errorf("list entries: %w", err))
	}
	return matches, nil
}

type fsEntryInfo struct {
	path  string
	mtime time.Time
	size  int64
}

func (s *FSStore) enforceCapacity() error {
	if s.capacity <= 0 && s.maxBytes <= 0 {
		return nil
	}

	paths, err := s.entryFiles()
	if err != nil {
		return err
	}

	entries := make([]fsEntryInfo, 0, len(paths))
	var totalBytes int64
	for _, path := range paths {
		info, err := os.Stat(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return errs.StoreUnavailable(fmt.Errorf("stat entry: %w", err))
		}
		entries = append(entries, fsEntryInfo{path: path, mtime: info.ModTime(), size: info.Size()})
		totalBytes += info.Size()
	}

	for len(entries) > 0 {
		overCount := s.capacity > 0 && len(entries) > s.capacity
		overBytes := s.maxBytes > 0 && totalBytes > s.maxBytes
		if !overCount && !overBytes {
			return nil
		}

		oldest := 0
		for i := range entries {
			if entries[i].mtime.Before(entries[oldest].mtime) {
				oldest = i
			}
		}
		if err := os.Remove(entries[oldest].path); err != nil && !os.IsNotExist(err) {
			return errs.StoreUnavailable(fmt.Errorf("evict entry: %w", err))
		}
		totalBytes -= entries[oldest].size
		entries = append(entries[:oldest], entries[oldest+1:]...)
	}
	return nil
}

// encodeEntryFile lays out an entry as: key length (8 bytes, big endian),
// key bytes, value bytes.
func encodeEntryFile(key string, value []byte) []byte {
	buf := make([]byte, 8+len(key)+len(value))
	binary.BigEndian.PutUint64(buf, uint64(len(key)))
	copy(buf[8:], key)
	copy(buf[8+len(key):], value)
	return buf
}

func decodeEntryFile(data []byte) (key string, value []byte, err error) {
	if len(data) < 8 {
		return "", nil, fmt.Errorf("entry file truncated: %d bytes", len(data))
	}
	keyLen := binary.BigEndian.Uint64(data)
	if uint64(len(data)-8) < keyLen {
		return "", nil, fmt.Errorf("entry file truncated: key length %d exceeds payload", keyLen)
	}
	key = string(data[8 : 8+keyLen])
	value = data[8+keyLen:]
	return key, value, nil
}

// Ensure FSStore implements the Store interface.
var _ ports.Store = (*FSStore)(nil)
