package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/memoflow/memoflow/cache/adapters"
	ports "github.com/ZanzyTHEbar/memoflow/memoflow/cache/ports"
	"github.com/ZanzyTHEbar/memoflow/memoflow/errs"
)

// failingStore implements Store with injectable failures for testing.
type failingStore struct {
	getErr error
	putErr error
	inner  ports.Store
}

func (s *failingStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s.getErr != nil {
		return nil, false, s.getErr
	}
	return s.inner.Get(ctx, key)
}

func (s *failingStore) Put(ctx context.Context, key string, value []byte) error {
	if s.putErr != nil {
		return s.putErr
	}
	return s.inner.Put(ctx, key, value)
}

func (s *failingStore) Evict(ctx context.Context, key string) error {
	return s.inner.Evict(ctx, key)
}

func (s *failingStore) Keys(ctx context.Context) ([]string, error) {
	return s.inner.Keys(ctx)
}

// Ensure failingStore implements the Store interface.
var _ ports.Store = (*failingStore)(nil)

func TestMemoized_Idempotence(t *testing.T) {
	var calls atomic.Int32
	double := func(ctx context.Context, n int) (int, error) {
		calls.Add(1)
		return n * 2, nil
	}

	memo := Wrap(double)

	for i := 0; i < 5; i++ {
		got, err := memo.Call(context.Background(), 21)
		require.NoError(t, err)
		assert.Equal(t, 42, got)
	}

	assert.Equal(t, int32(1), calls.Load(), "computation should run once for a fixed argument")
}

func TestMemoized_KeySensitivity(t *testing.T) {
	var calls atomic.Int32
	join := func(ctx context.Context, parts []string) (string, error) {
		calls.Add(1)
		out := ""
		for _, p := range parts {
			out += p
		}
		return out, nil
	}

	memo := Wrap(join)

	first, err := memo.Call(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, "ab", first)

	// Same values in a different order must be a distinct key.
	second, err := memo.Call(context.Background(), []string{"b", "a"})
	require.NoError(t, err)
	assert.Equal(t, "ba", second)

	assert.Equal(t, int32(2), calls.Load())

	// Value-equal argument, distinct backing array: still a hit.
	_, err = memo.Call(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestMemoized_FailureNeverCached(t *testing.T) {
	var calls atomic.Int32
	boom := errors.New("compute failed")
	flaky := func(ctx context.Context, n int) (int, error) {
		if calls.Add(1) == 1 {
			return 0, boom
		}
		return n, nil
	}

	memo := Wrap(flaky)

	_, err := memo.Call(context.Background(), 7)
	require.ErrorIs(t, err, boom, "the first failure propagates untouched")

	got, err := memo.Call(context.Background(), 7)
	require.NoError(t, err, "the second call must re-invoke the computation")
	assert.Equal(t, 7, got)
	assert.Equal(t, int32(2), calls.Load())

	// The success is what got cached.
	_, err = memo.Call(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestMemoized_TTLExpiry(t *testing.T) {
	var calls atomic.Int32
	now := func(ctx context.Context, _ struct{}) (int32, error) {
		return calls.Add(1), nil
	}

	memo := Wrap(now, WithTTL(20*time.Millisecond))

	first, err := memo.Call(context.Background(), struct{}{})
	require.NoError(t, err)
	assert.Equal(t, int32(1), first)

	// Within TTL: served from the store.
	second, err := memo.Call(context.Background(), struct{}{})
	require.NoError(t, err)
	assert.Equal(t, int32(1), second)

	time.Sleep(30 * time.Millisecond)

	third, err := memo.Call(context.Background(), struct{}{})
	require.NoError(t, err)
	assert.Equal(t, int32(2), third, "an expired entry is a miss")
}

func TestMemoized_StoreUnavailablePropagates(t *testing.T) {
	store := &failingStore{
		getErr: errs.StoreUnavailable(errors.New("connection refused")),
		inner:  adapters.NewMemoryStore(0),
	}

	memo := Wrap(func(ctx context.Context, n int) (int, error) {
		return n, nil
	}, WithStore(store))

	_, err := memo.Call(context.Background(), 1)
	require.ErrorIs(t, err, errs.ErrStoreUnavailable)
}

func TestMemoized_FallbackToCompute(t *testing.T) {
	var calls atomic.Int32
	store := &failingStore{
		getErr: errs.StoreUnavailable(errors.New("connection refused")),
		putErr: errs.StoreUnavailable(errors.New("connection refused")),
		inner:  adapters.NewMemoryStore(0),
	}

	memo := Wrap(func(ctx context.Context, n int) (int, error) {
		return int(calls.Add(1)), nil
	}, WithStore(store), WithFallbackToCompute())

	got, err := memo.Call(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, got)

	// Nothing was cached, so the computation runs again.
	got, err = memo.Call(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, got)
}

func TestMemoized_KeyDerivationErrorBeforeCompute(t *testing.T) {
	var calls atomic.Int32

	type withChan struct {
		C chan int
	}

	memo := Wrap(func(ctx context.Context, arg withChan) (int, error) {
		calls.Add(1)
		return 0, nil
	})

	_, err := memo.Call(context.Background(), withChan{C: make(chan int)})
	require.ErrorIs(t, err, errs.ErrKeyDerivation)
	assert.Equal(t, int32(0), calls.Load(), "the computation must not run when the key is not derivable")
}

func TestMemoized_CustomKeyFunc(t *testing.T) {
	var calls atomic.Int32

	type query struct {
		SQL  string
		Conn *sync.Mutex // stands in for a connection handle
	}

	// The key func excludes the connection from the key.
	memo := Wrap(func(ctx context.Context, q query) (string, error) {
		calls.Add(1)
		return q.SQL, nil
	}, WithKeyFunc(func(arg any) (string, error) {
		q, ok := arg.(query)
		if !ok {
			return "", fmt.Errorf("unexpected argument type %T", arg)
		}
		return "sql:" + q.SQL, nil
	}))

	_, err := memo.Call(context.Background(), query{SQL: "SELECT 1", Conn: &sync.Mutex{}})
	require.NoError(t, err)

	// Different connection, same SQL: a hit.
	_, err = memo.Call(context.Background(), query{SQL: "SELECT 1", Conn: &sync.Mutex{}})
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestMemoized_DuplicateSuppression(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})

	slow := func(ctx context.Context, n int) (int, error) {
		calls.Add(1)
		<-release
		return n, nil
	}

	memo := Wrap(slow)

	var wg sync.WaitGroup
	results := make([]int, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := memo.Call(context.Background(), 5)
			assert.NoError(t, err)
			results[i] = got
		}(i)
	}

	// Give the goroutines time to pile onto the same key.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load(), "concurrent callers of one key share one computation")
	for _, got := range results {
		assert.Equal(t, 5, got)
	}
}

func TestMemoized_InvalidateAndFlush(t *testing.T) {
	var calls atomic.Int32
	memo := Wrap(func(ctx context.Context, n int) (int, error) {
		calls.Add(1)
		return n, nil
	})

	ctx := context.Background()

	_, err := memo.Call(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, memo.Invalidate(ctx, 1))

	_, err = memo.Call(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load(), "invalidation forces recomputation")

	_, err = memo.Call(ctx, 2)
	require.NoError(t, err)
	require.NoError(t, memo.Flush(ctx))

	_, err = memo.Call(ctx, 1)
	require.NoError(t, err)
	_, err = memo.Call(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int32(5), calls.Load(), "flush drops every entry")
}
