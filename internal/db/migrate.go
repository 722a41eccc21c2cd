package db

import (
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
)

// MigrateCatalog executes all pending goose migrations against the partition
// catalog store.
func MigrateCatalog(db *sql.DB) error {
	return runMigrations(db, "migrations/catalog")
}

// MigrateBenchmarks executes all pending goose migrations against the
// benchmark reference store.
func MigrateBenchmarks(db *sql.DB) error {
	return runMigrations(db, "migrations/benchmark")
}

func runMigrations(db *sql.DB, dir string) error {
	goose.SetBaseFS(EmbedMigrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("goose set dialect: %w", err)
	}

	if err := goose.Up(db, dir); err != nil {
		return fmt.Errorf("goose up (%s): %w", dir, err)
	}

	return nil
}
