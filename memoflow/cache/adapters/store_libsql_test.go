package adapters

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "github.com/tursodatabase/go-libsql"
)

func createTestDB(t *testing.T) *sql.DB {
	// Use in-memory libSQL, one named database per test so state never
	// leaks between tests through the shared cache.
	conn, err := sql.Open("libsql", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestLibSQLStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewLibSQLStore(ctx, createTestDB(t), 0)
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "k", []byte("value")))

	got, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("value"), got)

	_, ok, err = store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLibSQLStore_Overwrite(t *testing.T) {
	ctx := context.Background()
	store, err := NewLibSQLStore(ctx, createTestDB(t), 0)
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "k", []byte("v1")))
	require.NoError(t, store.Put(ctx, "k", []byte("v2")))

	got, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v2"), got)
}

func TestLibSQLStore_LRUEviction(t *testing.T) {
	ctx := context.Background()
	store, err := NewLibSQLStore(ctx, createTestDB(t), 2)
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "a", []byte{1}))
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, store.Put(ctx, "b", []byte{2}))
	time.Sleep(2 * time.Millisecond)

	// Touch "a" so "b" is the least recently accessed entry.
	_, ok, err := store.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	time.Sleep(2 * time.Millisecond)

	require.NoError(t, store.Put(ctx, "c", []byte{3}))

	_, ok, err = store.Get(ctx, "b")
	require.NoError(t, err)
	assert.False(t, ok, "the entry with the oldest last_accessed_at is evicted")

	_, ok, err = store.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLibSQLStore_EvictAndKeys(t *testing.T) {
	ctx := context.Background()
	store, err := NewLibSQLStore(ctx, createTestDB(t), 0)
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "a", []byte{1}))
	require.NoError(t, store.Put(ctx, "b", []byte{2}))

	keys, err := store.Keys(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, keys)

	require.NoError(t, store.Evict(ctx, "a"))
	require.NoError(t, store.Evict(ctx, "a"), "evicting an absent key is not an error")

	keys, err = store.Keys(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"b"}, keys)
}
