package adapters

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/memoflow/memoflow/errs"
)

func TestMemcacheStore_NameHashing(t *testing.T) {
	s := NewMemcacheStore(0)

	a := s.name("alpha")
	b := s.name("beta")
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, s.name("alpha"), "names must be deterministic")

	for _, n := range []string{a, b, s.name("key with spaces\r\n")} {
		assert.True(t, strings.HasPrefix(n, "memoflow:"))
		assert.Len(t, n, len("memoflow:")+16, "hashed names have a fixed length")
		assert.NotContains(t, n, " ")
	}
}

func TestMemcacheStore_InterpretFetch(t *testing.T) {
	_, ok, err := interpretFetch(nil, memcache.ErrCacheMiss)
	require.NoError(t, err)
	assert.False(t, ok, "a cache miss is not a store failure")

	_, _, err = interpretFetch(nil, errors.New("connect timeout"))
	require.ErrorIs(t, err, errs.ErrStoreUnavailable)

	got, ok, err := interpretFetch(&memcache.Item{Value: []byte("v")}, nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)
}

func TestMemcacheStore_UnreachableServer(t *testing.T) {
	// Grab a port and close it again so the address is known dead.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	s := NewMemcacheStore(0, addr)
	ctx := context.Background()

	_, _, err = s.Get(ctx, "k")
	require.ErrorIs(t, err, errs.ErrStoreUnavailable)

	require.ErrorIs(t, s.Put(ctx, "k", []byte("v")), errs.ErrStoreUnavailable)

	// A failed write must not count as seen.
	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestMemcacheStore_KeysBookkeeping(t *testing.T) {
	s := NewMemcacheStore(0)
	ctx := context.Background()

	s.seen[s.name("a")] = "a"
	s.seen[s.name("b")] = "b"

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, keys, "Keys recovers the original keys, not the hashed names")
}
