package adapters

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ZanzyTHEbar/memoflow/memoflow/errs"
	ports "github.com/ZanzyTHEbar/memoflow/memoflow/cache/ports"
)

// LibSQLStore persists entries in a single libsql table with access
// timestamps, so LRU eviction is a SQL delete ordered by last_accessed_at.
type LibSQLStore struct {
	db       *sql.DB
	capacity int
}

// NewLibSQLStore creates the entries table if needed.
// capacity <= 0 means unbounded.
func NewLibSQLStore(ctx context.Context, db *sql.DB, capacity int) (*LibSQLStore, error) {
	schema := `
		CREATE TABLE IF NOT EXISTS cache_entries (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			size INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL,
			last_accessed_at TIMESTAMP NOT NULL
		)
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, errs.StoreUnavailable(fmt.Errorf("failed to create cache_entries table: %w", err))
	}
	return &LibSQLStore{db: db, capacity: capacity}, nil
}

// Get reads the value and bumps last_accessed_at.
func (s *LibSQLStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	query := `SELECT value FROM cache_entries WHERE key = ?`
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errs.StoreUnavailable(fmt.Errorf("failed to query entry: %w", err))
	}

	touch := `UPDATE cache_entries SET last_accessed_at = ? WHERE key = ?`
	if _, err := s.db.ExecContext(ctx, touch, time.Now(), key); err != nil {
		return nil, false, errs.StoreUnavailable(fmt.Errorf("failed to touch entry: %w", err))
	}

	return value, true, nil
}

// Put upserts the entry and enforces the capacity bound.
func (s *LibSQLStore) Put(ctx context.Context, key string, value []byte) error {
	now := time.Now()
	query := `
		INSERT INTO cache_entries (key, value, size, created_at, last_accessed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			size = excluded.size,
			last_accessed_at = excluded.last_accessed_at
	`
	if _, err := s.db.ExecContext(ctx, query, key, value, len(value), now, now); err != nil {
		return errs.StoreUnavailable(fmt.Errorf("failed to save entry: %w", err))
	}

	if s.capacity <= 0 {
		return nil
	}

	evict := `
		DELETE FROM cache_entries WHERE key IN (
			SELECT key FROM cache_entries
			ORDER BY last_accessed_at ASC
			LIMIT max((SELECT count(*) FROM cache_entries) - ?, 0)
		)
	`
	if _, err := s.db.ExecContext(ctx, evict, s.capacity); err != nil {
		return errs.StoreUnavailable(fmt.Errorf("failed to evict entries: %w", err))
	}
	return nil
}

// Evict deletes the entry for key.
func (s *LibSQLStore) Evict(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key); err != nil {
		return errs.StoreUnavailable(fmt.Errorf("failed to delete entry: %w", err))
	}
	return nil
}

// Keys lists all stored keys.
func (s *LibSQLStore) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM cache_entries`)
	if err != nil {
		return nil, errs.StoreUnavailable(fmt.Errorf("failed to list keys: %w", err))
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, errs.StoreUnavailable(fmt.Errorf("failed to scan key: %w", err))
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.StoreUnavailable(fmt.Errorf("error iterating keys: %w", err))
	}
	return keys, nil
}

// Ensure LibSQLStore implements the Store interface.
var _ ports.Store = (*LibSQLStore)(nil)
