package cache

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ZanzyTHEbar/memoflow/memoflow/cache/adapters"
	ports "github.com/ZanzyTHEbar/memoflow/memoflow/cache/ports"
	"github.com/ZanzyTHEbar/memoflow/memoflow/config"
	"github.com/ZanzyTHEbar/memoflow/memoflow/db"
)

// Factory creates store adapters and memoizer options from configuration.
type Factory struct {
	cfg    *config.Config
	db     *sql.DB // Optional, for the libsql backend
	logger zerolog.Logger
}

// NewFactory creates a new cache factory. conn may be nil; the libsql
// backend then opens the embedded database configured under
// store.database.
func NewFactory(cfg *config.Config, conn *sql.DB, logger zerolog.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		db:     conn,
		logger: logger,
	}
}

// CreateStore builds the configured storage backend.
func (f *Factory) CreateStore(ctx context.Context) (ports.Store, error) {
	store := f.cfg.Store

	switch store.Backend {
	case "memory":
		return adapters.NewMemoryStoreSized(f.cfg.Cache.Capacity, f.cfg.Cache.MaxBytes), nil

	case "fs":
		return adapters.NewFSStoreSized(store.Dir, f.cfg.Cache.Capacity, f.cfg.Cache.MaxBytes)

	case "libsql":
		if f.db == nil {
			conn, err := db.Connect(store.Database.DSN)
			if err != nil {
				return nil, err
			}
			f.db = conn
		}
		return adapters.NewLibSQLStore(ctx, f.db, f.cfg.Cache.Capacity)

	case "memcache":
		return adapters.NewMemcacheStore(store.Memcache.TTLSeconds, store.Memcache.Addrs...), nil

	case "minio":
		return adapters.NewMinioStore(ctx, adapters.MinioConfig{
			Endpoint:  store.Minio.Endpoint,
			AccessKey: store.Minio.AccessKey,
			SecretKey: store.Minio.SecretKey,
			Secure:    store.Minio.Secure,
			Bucket:    store.Minio.Bucket,
			Prefix:    store.Minio.Prefix,
		})

	default:
		return nil, fmt.Errorf("unknown store backend %q", store.Backend)
	}
}

// DB returns the database connection in use, if any. Callers that let the
// factory open the embedded database close it through here.
func (f *Factory) DB() *sql.DB {
	return f.db
}

// CreateTracer builds the configured tracer.
func (f *Factory) CreateTracer() ports.Tracer {
	if !f.cfg.Cache.EnableTracing {
		return adapters.NoopTracer{}
	}
	return adapters.NewZerologTracer(f.logger)
}

// CreateOptions assembles Wrap options from config: store, tracer, TTL,
// namespace and the fallback policy.
func (f *Factory) CreateOptions(ctx context.Context) ([]Option, error) {
	store, err := f.CreateStore(ctx)
	if err != nil {
		return nil, err
	}

	opts := []Option{
		WithStore(store),
		WithTracer(f.CreateTracer()),
		WithLogger(f.logger),
		WithNamespace(f.cfg.Cache.Namespace),
		WithTTL(f.cfg.Cache.TTL),
	}
	if f.cfg.Cache.FallbackToCompute {
		opts = append(opts, WithFallbackToCompute())
	}

	return opts, nil
}
