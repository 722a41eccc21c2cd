// Package engine manages pooled DuckDB connections over local columnar data
// sources.
package engine

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"ratelens/internal/domain"
)

// sourceView is the name each pooled connection registers over its data
// source, so callers query one stable relation regardless of the source path.
const sourceView = "commercial_rates"

// Pool maintains one DuckDB connection per data source, keyed by file path.
// It is safe for concurrent use; the map is the only state shared across
// requests. Every retrieval runs a liveness probe and a failed probe causes
// the entry to be discarded and recreated.
type Pool struct {
	mu     sync.Mutex
	conns  map[string]*sql.DB
	logger *slog.Logger
}

// NewPool creates an empty connection pool.
func NewPool(logger *slog.Logger) *Pool {
	return &Pool{
		conns:  make(map[string]*sql.DB),
		logger: logger,
	}
}

// Get returns a live connection for the given source path, opening one and
// registering a view over the source on first use. When the source file does
// not exist, the view is backed by a small synthetic dataset so option
// listing and demos keep working without data files.
func (p *Pool) Get(ctx context.Context, sourcePath string) (*sql.DB, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if conn, ok := p.conns[sourcePath]; ok {
		if err := probe(ctx, conn); err == nil {
			return conn, nil
		} else {
			// Discard and recreate below.
			p.logger.Warn("pooled connection failed liveness probe, recreating",
				"source", sourcePath,
				"error", &domain.CacheCorruptionError{Key: sourcePath, Err: err})
			_ = conn.Close()
			delete(p.conns, sourcePath)
		}
	}

	conn, err := p.open(ctx, sourcePath)
	if err != nil {
		return nil, err
	}
	p.conns[sourcePath] = conn
	return conn, nil
}

// Release closes and removes the connection for one source, if present.
// Fetchers use it for connections over short-lived temp files.
func (p *Pool) Release(sourcePath string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if conn, ok := p.conns[sourcePath]; ok {
		_ = conn.Close()
		delete(p.conns, sourcePath)
	}
}

// CleanupAll closes and clears every pooled connection. Invoked periodically
// by the maintenance scheduler and on shutdown.
func (p *Pool) CleanupAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for key, conn := range p.conns {
		_ = conn.Close()
		delete(p.conns, key)
	}
	p.logger.Debug("connection pool cleared")
}

// Len returns the number of pooled connections.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.conns)
}

// ViewName returns the relation name registered over every pooled source.
func (p *Pool) ViewName() string { return sourceView }

func (p *Pool) open(ctx context.Context, sourcePath string) (*sql.DB, error) {
	conn, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb for %s: %w", sourcePath, err)
	}

	if _, statErr := os.Stat(sourcePath); statErr == nil {
		ddl := fmt.Sprintf(`CREATE VIEW %s AS SELECT * FROM read_parquet('%s')`,
			sourceView, escapeSQLString(sourcePath))
		if _, err := conn.ExecContext(ctx, ddl); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("register view over %s: %w", sourcePath, err)
		}
	} else {
		p.logger.Warn("data source not found, registering synthetic sample", "source", sourcePath)
		if err := createSampleTable(ctx, conn, sourceView); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("register sample view: %w", err)
		}
	}

	return conn, nil
}

// probe runs a trivial query to verify the connection is still usable.
func probe(ctx context.Context, conn *sql.DB) error {
	var one int
	return conn.QueryRowContext(ctx, "SELECT 1").Scan(&one)
}

// escapeSQLString doubles single quotes for embedding a path in DDL; DuckDB
// DDL does not accept bound parameters.
func escapeSQLString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
