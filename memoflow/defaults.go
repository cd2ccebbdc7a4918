package memoflow

import (
	"os"
	"path/filepath"
)

const (
	// DefaultAppName is used for config and data directory discovery.
	DefaultAppName = "memoflow"

	// DefaultDatabaseType selects the embedded libsql store backend.
	DefaultDatabaseType = "libsql"
)

var (
	// DefaultConfigPath is the fallback directory searched for config.yaml.
	DefaultConfigPath = filepath.Join(userHome(), "."+DefaultAppName)

	// DefaultCacheDir is where the filesystem store keeps its entries
	// unless configured otherwise.
	DefaultCacheDir = filepath.Join(userHome(), "."+DefaultAppName, "cache")

	// DefaultDatabaseDir holds embedded database files.
	DefaultDatabaseDir = filepath.Join(userHome(), "."+DefaultAppName, "db")

	// DefaultDatabaseDSN is the embedded database file used by the libsql store.
	DefaultDatabaseDSN = filepath.Join(DefaultDatabaseDir, DefaultAppName+".db")
)

func userHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
