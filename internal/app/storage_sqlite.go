//go:build sqlite
// +build sqlite

package app

import (
	"time"

	"wakeloop/internal/platform"
)

func openSQLiteExecutor(path string, busyTimeout time.Duration) (platform.SQLExecutor, error) {
	return platform.OpenSQLiteExecutor(path, busyTimeout)
}
