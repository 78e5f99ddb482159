package app

import (
	"fmt"
	"strings"
	"time"

	"wakeloop/internal/config"
	"wakeloop/internal/platform"
)

// openExecutor constructs the SQLExecutor named by cfg.Storage. "mem" is
// purely in-memory (used by tests and by alarmctl's ad-hoc seeding runs
// when no path is given); "file" is the dependency-free journaled
// fallback; "sqlite" requires building with -tags sqlite.
func openExecutor(sc config.StorageConfig) (platform.SQLExecutor, error) {
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	path := strings.TrimSpace(sc.Path)

	switch driver {
	case "", "mem":
		return platform.NewMemExecutor("")
	case "file":
		return platform.NewMemExecutor(path)
	case "sqlite", "sqlite3":
		if path == "" {
			return nil, fmt.Errorf("storage.path is required when storage.driver=sqlite")
		}
		busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, time.Second)
		if err != nil {
			return nil, err
		}
		return openSQLiteExecutor(path, busy)
	default:
		return nil, fmt.Errorf("unknown storage.driver: %s", sc.Driver)
	}
}

// OpenStorage is openExecutor exported for callers outside this package
// that need direct store access without a running App (alarmctl's
// subcommands operate against a unit's store this way).
func OpenStorage(sc config.StorageConfig) (platform.SQLExecutor, error) {
	return openExecutor(sc)
}

// validateStorageConfig mirrors openExecutor's checks without opening a
// sqlite file on every hot-reload validation pass.
func validateStorageConfig(sc config.StorageConfig) error {
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	switch driver {
	case "", "mem", "file":
		return nil
	case "sqlite", "sqlite3":
		if strings.TrimSpace(sc.Path) == "" {
			return fmt.Errorf("storage.path is required when storage.driver=sqlite")
		}
		_, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, time.Second)
		return err
	default:
		return fmt.Errorf("unknown storage.driver: %s", sc.Driver)
	}
}
