package db

import (
	"context"
	"path/filepath"
	"testing"
)

// NewTestDB opens a migrated SQLite database in a per-test temp directory.
func NewTestDB(tb testing.TB) *DB {
	tb.Helper()
	d, err := New(context.Background(), DriverSQLite, filepath.Join(tb.TempDir(), "notes.db"), nil)
	if err != nil {
		tb.Fatalf("failed to init test db: %v", err)
	}
	tb.Cleanup(func() { d.Close() })
	return d
}
