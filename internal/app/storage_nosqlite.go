//go:build !sqlite
// +build !sqlite

package app

import (
	"fmt"
	"time"

	"wakeloop/internal/platform"
)

func openSQLiteExecutor(path string, busyTimeout time.Duration) (platform.SQLExecutor, error) {
	return nil, fmt.Errorf("storage.driver=sqlite requires building with -tags sqlite")
}
