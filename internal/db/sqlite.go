// Package db provides SQLite connectivity helpers and migration support for
// the partition catalog and the benchmark reference store.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"
)

// SQLite DSN parameters for production hardening.
const (
	defaultBusyTimeout = "5000" // 5 seconds
	defaultSynchronous = "NORMAL"
	defaultJournalMode = "WAL"
)

// defaultReadPoolSize applies when a caller passes a non-positive read pool
// size. Both stores are read-mostly (the catalog is populated by an external
// ingestion job), so reads carry almost all of the traffic.
const defaultReadPoolSize = 4

// Stores bundles the two SQLite databases behind the analytics core: the
// partition catalog and the benchmark reference store. Each opens as a
// write/read pool pair; the single-connection write pool runs migrations and
// seeding, request-path queries go through the read pools.
type Stores struct {
	CatalogWrite   *sql.DB
	CatalogRead    *sql.DB
	BenchmarkWrite *sql.DB
	BenchmarkRead  *sql.DB
}

// OpenStores opens both stores and brings their schemas up to date.
// readMaxOpen sizes each read pool (non-positive defaults to 4). On failure
// anything already opened is closed before returning.
func OpenStores(catalogPath, benchmarkPath string, readMaxOpen int) (*Stores, error) {
	s := &Stores{}

	var err error
	if s.CatalogWrite, s.CatalogRead, err = OpenSQLitePair(catalogPath, readMaxOpen); err != nil {
		return nil, fmt.Errorf("catalog store: %w", err)
	}
	if err := MigrateCatalog(s.CatalogWrite); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("catalog migrations: %w", err)
	}

	if s.BenchmarkWrite, s.BenchmarkRead, err = OpenSQLitePair(benchmarkPath, readMaxOpen); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("benchmark store: %w", err)
	}
	if err := MigrateBenchmarks(s.BenchmarkWrite); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("benchmark migrations: %w", err)
	}

	return s, nil
}

// Close closes every open pool and joins the errors.
func (s *Stores) Close() error {
	var errs []error
	for _, db := range []*sql.DB{s.CatalogRead, s.CatalogWrite, s.BenchmarkRead, s.BenchmarkWrite} {
		if db != nil {
			errs = append(errs, db.Close())
		}
	}
	return errors.Join(errs...)
}

// OpenSQLitePair opens both a write pool (MaxOpenConns=1, _txlock=immediate)
// and a read pool for the same SQLite file. readMaxOpen controls the read
// pool size (non-positive defaults to 4).
func OpenSQLitePair(path string, readMaxOpen int) (writeDB, readDB *sql.DB, err error) {
	writeDB, err = openPool(path, true, 1)
	if err != nil {
		return nil, nil, err
	}

	readDB, err = openPool(path, false, readMaxOpen)
	if err != nil {
		_ = writeDB.Close()
		return nil, nil, err
	}

	return writeDB, readDB, nil
}

// openPool opens one *sql.DB over the SQLite file with hardened settings.
// Writable pools are capped at a single connection and take immediate write
// locks, so writers never deadlock against each other under WAL.
func openPool(path string, writable bool, maxOpen int) (*sql.DB, error) {
	if maxOpen <= 0 {
		maxOpen = defaultReadPoolSize
	}
	if writable {
		maxOpen = 1
	}

	db, err := sql.Open("sqlite3", hardenedDSN(path, writable))
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}

	return db, nil
}

// hardenedDSN renders the DSN with WAL journaling, a 5s busy timeout,
// synchronous=NORMAL, and foreign keys on.
func hardenedDSN(path string, writable bool) string {
	params := url.Values{}
	params.Set("_journal_mode", defaultJournalMode)
	params.Set("_busy_timeout", defaultBusyTimeout)
	params.Set("_synchronous", defaultSynchronous)
	params.Set("_foreign_keys", "on")
	if writable {
		params.Set("_txlock", "immediate")
	}
	return path + "?" + params.Encode()
}
