package db

import (
	"database/sql"
	"path/filepath"
	"testing"
)

// OpenTestCatalog opens a hardened SQLite write/read pool pair for a catalog
// store in t.TempDir(), runs all pending catalog migrations on the write
// pool, and registers cleanup.
//
// Tests that don't need the read/write split can use writeDB for everything.
func OpenTestCatalog(t *testing.T) (writeDB, readDB *sql.DB) {
	t.Helper()
	return openTestStore(t, "catalog.sqlite", MigrateCatalog)
}

// OpenTestBenchmarks opens a migrated benchmark reference store in
// t.TempDir() and registers cleanup.
func OpenTestBenchmarks(t *testing.T) (writeDB, readDB *sql.DB) {
	t.Helper()
	return openTestStore(t, "benchmarks.sqlite", MigrateBenchmarks)
}

func openTestStore(t *testing.T, name string, migrate func(*sql.DB) error) (writeDB, readDB *sql.DB) {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)

	writeDB, readDB, err := OpenSQLitePair(path, 4)
	if err != nil {
		t.Fatalf("open test sqlite: %v", err)
	}
	t.Cleanup(func() {
		_ = readDB.Close()
		_ = writeDB.Close()
	})

	if err := migrate(writeDB); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	return writeDB, readDB
}
