//go:build sqlite
// +build sqlite

package platform

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteExecutor is the production SQLExecutor, backed by database/sql and
// the pure-Go modernc.org/sqlite driver. It is only compiled in with
// -tags sqlite, mirroring the teacher repo's own cgo-avoidance build tag
// for its SQL backend.
type SQLiteExecutor struct {
	db *sql.DB
}

// OpenSQLiteExecutor opens (creating if needed) a SQLite database file and
// returns an executor over it. busyTimeout of 0 uses the driver default.
func OpenSQLiteExecutor(path string, busyTimeout time.Duration) (*SQLiteExecutor, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if busyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	return &SQLiteExecutor{db: db}, nil
}

func (e *SQLiteExecutor) Close() error {
	if e == nil || e.db == nil {
		return nil
	}
	return e.db.Close()
}

// Exec implements SQLExecutor. Binds are passed through to database/sql
// as variadic scalars, never as a wrapping slice, preserving the
// positional-bind testable property all the way to the driver boundary.
func (e *SQLiteExecutor) Exec(ctx context.Context, query string, args ...any) (QueryResult, error) {
	trimmed := strings.TrimSpace(strings.ToUpper(query))
	if strings.HasPrefix(trimmed, "SELECT") {
		return e.query(ctx, query, args...)
	}
	_, err := e.db.ExecContext(ctx, query, args...)
	return QueryResult{Shape: ShapeColumnNamesResults, ColumnNames: &ColumnNamesResult{}}, err
}

func (e *SQLiteExecutor) query(ctx context.Context, query string, args ...any) (QueryResult, error) {
	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return QueryResult{}, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return QueryResult{}, err
	}

	var results [][]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return QueryResult{}, err
		}
		results = append(results, vals)
	}
	if err := rows.Err(); err != nil {
		return QueryResult{}, err
	}

	return QueryResult{
		Shape:       ShapeColumnNamesResults,
		ColumnNames: &ColumnNamesResult{ColumnNames: cols, Results: results},
	}, nil
}
