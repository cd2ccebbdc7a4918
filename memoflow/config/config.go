package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	internal "github.com/ZanzyTHEbar/memoflow/memoflow"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Cache     CacheConfig     `mapstructure:"cache"`
	Store     StoreConfig     `mapstructure:"store"`
	Reconcile ReconcileConfig `mapstructure:"reconcile"`
}

// CacheConfig stores memoizer behavior.
type CacheConfig struct {
	Capacity          int           `mapstructure:"capacity"`            // Max entries; <= 0 means unbounded
	MaxBytes          int64         `mapstructure:"max_bytes"`           // Max total value bytes; <= 0 means unbounded
	TTL               time.Duration `mapstructure:"ttl"`                 // Entry max age; 0 means no expiry
	FallbackToCompute bool          `mapstructure:"fallback_to_compute"` // Compute directly when the store is unreachable
	EnableTracing     bool          `mapstructure:"enable_tracing"`      // Enable structured span logging
	Namespace         string        `mapstructure:"namespace"`           // Key namespace for the default keyer
}

// StoreConfig selects and configures the storage backend.
type StoreConfig struct {
	Backend  string         `mapstructure:"backend"` // "memory", "fs", "libsql", "memcache", "minio"
	Dir      string         `mapstructure:"dir"`     // Directory for the fs backend
	Database DatabaseConfig `mapstructure:"database"`
	Memcache MemcacheConfig `mapstructure:"memcache"`
	Minio    MinioConfig    `mapstructure:"minio"`
}

// DatabaseConfig stores embedded database connection details.
type DatabaseConfig struct {
	DSN  string `mapstructure:"dsn"`
	Type string `mapstructure:"type"`
	// Directory for database files
	DataDir string `mapstructure:"data_dir"`
}

// MemcacheConfig stores memcached cluster details.
type MemcacheConfig struct {
	Addrs      []string `mapstructure:"addrs"`       // "host:port" addresses
	TTLSeconds int32    `mapstructure:"ttl_seconds"` // Server-side expiry; 0 keeps entries until evicted
}

// MinioConfig stores S3-compatible object store details.
type MinioConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Secure    bool   `mapstructure:"secure"`
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// ReconcileConfig stores reconciler behavior.
type ReconcileConfig struct {
	Policy         string `mapstructure:"policy"`          // "latest_wins" or "ordered"
	MaxWorkers     int    `mapstructure:"max_workers"`     // Dispatcher pool size; <= 0 means unbounded
	ObserverBuffer int    `mapstructure:"observer_buffer"` // Channel observer buffer size
}

var AppConfig Config

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(configPath string) (*Config, error) {
	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("..")
		viper.AddConfigPath(filepath.Join("etc", internal.DefaultAppName))
		viper.AddConfigPath(internal.DefaultConfigPath)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	// Cache defaults
	viper.SetDefault("cache.capacity", 1000)
	viper.SetDefault("cache.max_bytes", 0)
	viper.SetDefault("cache.ttl", "0s")
	viper.SetDefault("cache.fallback_to_compute", false)
	viper.SetDefault("cache.enable_tracing", true)
	viper.SetDefault("cache.namespace", internal.DefaultAppName)

	// Store defaults (in-process memory store)
	viper.SetDefault("store.backend", "memory")
	viper.SetDefault("store.dir", internal.DefaultCacheDir)
	viper.SetDefault("store.database.dsn", internal.DefaultDatabaseDSN)
	viper.SetDefault("store.database.type", internal.DefaultDatabaseType)
	viper.SetDefault("store.database.data_dir", internal.DefaultDatabaseDir)
	viper.SetDefault("store.memcache.addrs", []string{"127.0.0.1:11211"})
	viper.SetDefault("store.memcache.ttl_seconds", 0)
	viper.SetDefault("store.minio.endpoint", "127.0.0.1:9000")
	viper.SetDefault("store.minio.secure", false)
	viper.SetDefault("store.minio.bucket", internal.DefaultAppName)
	viper.SetDefault("store.minio.prefix", "entries/")

	// Reconciler defaults
	viper.SetDefault("reconcile.policy", "latest_wins")
	viper.SetDefault("reconcile.max_workers", 8)
	viper.SetDefault("reconcile.observer_buffer", 16)

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; defaults will be used.
	}

	err := viper.Unmarshal(&AppConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	return &AppConfig, nil
}
