// Package cache wraps computations with result memoization over pluggable
// store backends.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/ZanzyTHEbar/memoflow/memoflow/cache/adapters"
	ports "github.com/ZanzyTHEbar/memoflow/memoflow/cache/ports"
	"github.com/ZanzyTHEbar/memoflow/memoflow/errs"
)

// Options configure a memoized computation.
type Options struct {
	store           ports.Store
	keyer           ports.Keyer
	capacity        int
	maxBytes        int64
	ttl             time.Duration
	fallbackOnStore bool
	tracer          ports.Tracer
	logger          zerolog.Logger
	namespace       string
}

// Option mutates Options.
type Option func(*Options)

// WithStore selects the storage backend. Default is an in-memory LRU store.
func WithStore(store ports.Store) Option {
	return func(o *Options) { o.store = store }
}

// WithKeyer replaces the default hash-based key derivation.
func WithKeyer(keyer ports.Keyer) Option {
	return func(o *Options) { o.keyer = keyer }
}

// WithKeyFunc replaces key derivation with a plain function.
func WithKeyFunc(fn KeyFunc) Option {
	return func(o *Options) { o.keyer = fn }
}

// WithCapacity bounds the default in-memory store by entry count. Ignored
// when WithStore is given; backend stores carry their own capacity.
func WithCapacity(capacity int) Option {
	return func(o *Options) { o.capacity = capacity }
}

// WithMaxBytes bounds the default in-memory store by total value bytes.
// Ignored when WithStore is given.
func WithMaxBytes(maxBytes int64) Option {
	return func(o *Options) { o.maxBytes = maxBytes }
}

// WithTTL treats entries older than ttl as misses. Zero means no expiry.
func WithTTL(ttl time.Duration) Option {
	return func(o *Options) { o.ttl = ttl }
}

// WithFallbackToCompute computes directly when the store is unreachable
// instead of propagating the store failure. Off by default.
func WithFallbackToCompute() Option {
	return func(o *Options) { o.fallbackOnStore = true }
}

// WithTracer attaches a tracer to lookups.
func WithTracer(tracer ports.Tracer) Option {
	return func(o *Options) { o.tracer = tracer }
}

// WithLogger attaches a logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *Options) { o.logger = logger }
}

// WithNamespace sets the key namespace used by the default keyer. Wrapped
// computations sharing a store need distinct namespaces.
func WithNamespace(namespace string) Option {
	return func(o *Options) { o.namespace = namespace }
}

// Memoized is a wrapped computation with the same call contract as the
// original function. Concurrent callers of the same key share one
// computation via singleflight; failures are never cached.
type Memoized[A, R any] struct {
	fn       func(ctx context.Context, arg A) (R, error)
	store    ports.Store
	keyer    ports.Keyer
	ttl      time.Duration
	fallback bool
	tracer   ports.Tracer
	logger   zerolog.Logger
	sf       singleflight.Group
}

// Wrap memoizes fn. The returned value's Call method has the same
// input/output contract as fn.
func Wrap[A, R any](fn func(ctx context.Context, arg A) (R, error), opts ...Option) *Memoized[A, R] {
	o := Options{
		namespace: "memo",
		tracer:    adapters.NoopTracer{},
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.store == nil {
		o.store = adapters.NewMemoryStoreSized(o.capacity, o.maxBytes)
	}
	if o.keyer == nil {
		o.keyer = NewHashKeyer(o.namespace)
	}

	return &Memoized[A, R]{
		fn:       fn,
		store:    o.store,
		keyer:    o.keyer,
		ttl:      o.ttl,
		fallback: o.fallbackOnStore,
		tracer:   o.tracer,
		logger:   o.logger,
	}
}

// Call returns the cached result for arg, computing and caching it on a
// miss. A caller sees identical failure behavior to calling the unwrapped
// computation directly, except that failures are never cached.
func (m *Memoized[A, R]) Call(ctx context.Context, arg A) (R, error) {
	var zero R

	key, err := m.keyer.Key(arg)
	if err != nil {
		return zero, err
	}

	ctx, finish := m.tracer.StartSpan(ctx, "cache.call", map[string]any{"key": key})

	value, err := m.lookup(ctx, key, arg)
	finish(err)
	return value, err
}

func (m *Memoized[A, R]) lookup(ctx context.Context, key string, arg A) (R, error) {
	var zero R

	raw, ok, err := m.store.Get(ctx, key)
	if err != nil {
		if !m.fallback {
			return zero, err
		}
		m.logger.Warn().Err(err).Str("key", key).Msg("store unreachable, computing directly")
		return m.fn(ctx, arg)
	}

	if ok {
		env, decErr := decodeEnvelope[R](raw)
		if decErr != nil {
			return zero, decErr
		}
		if m.ttl <= 0 || time.Since(env.CreatedAt) < m.ttl {
			m.tracer.Event(ctx, "cache.hit", map[string]any{"key": key})
			return env.Value, nil
		}
		m.tracer.Event(ctx, "cache.expired", map[string]any{"key": key})
	}

	result, err, _ := m.sf.Do(key, func() (any, error) {
		value, err := m.fn(ctx, arg)
		if err != nil {
			// Computation failures propagate untouched and are never cached.
			return nil, err
		}

		raw, err := encodeEnvelope(envelope[R]{CreatedAt: time.Now(), Value: value})
		if err != nil {
			return nil, err
		}

		if putErr := m.store.Put(ctx, key, raw); putErr != nil {
			if !m.fallback || !errors.Is(putErr, errs.ErrStoreUnavailable) {
				return nil, putErr
			}
			m.logger.Warn().Err(putErr).Str("key", key).Msg("store unreachable, result not cached")
		}
		return value, nil
	})
	if err != nil {
		return zero, err
	}

	m.tracer.Event(ctx, "cache.miss", map[string]any{"key": key})
	return result.(R), nil
}

// Invalidate drops the cached entry for arg, if any.
func (m *Memoized[A, R]) Invalidate(ctx context.Context, arg A) error {
	key, err := m.keyer.Key(arg)
	if err != nil {
		return err
	}
	return m.store.Evict(ctx, key)
}

// Flush drops every entry the store currently holds.
func (m *Memoized[A, R]) Flush(ctx context.Context) error {
	keys, err := m.store.Keys(ctx)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := m.store.Evict(ctx, key); err != nil {
			return err
		}
	}
	return nil
}
