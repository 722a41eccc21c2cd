package storage

import (
	"context"
	"log/slog"
	"strings"

	"ratelens/internal/domain"
	"ratelens/internal/engine"
)

var _ domain.PartitionFetcher = (*LocalFetcher)(nil)

// LocalFetcher reads partition locations as local filesystem paths. It backs
// development setups without object storage: locations that do not exist on
// disk resolve to the pool's synthetic sample source.
type LocalFetcher struct {
	pool   *engine.Pool
	logger *slog.Logger
}

// NewLocalFetcher creates a fetcher over the shared connection pool.
func NewLocalFetcher(pool *engine.Pool, logger *slog.Logger) *LocalFetcher {
	return &LocalFetcher{pool: pool, logger: logger.With("component", "local-fetcher")}
}

// Fetch reads the partition at location, treating an s3:// URI's key as a
// relative path. The pooled connection stays cached across loads.
func (f *LocalFetcher) Fetch(ctx context.Context, location string, columns []string) ([]domain.Row, []string, error) {
	path := location
	if strings.HasPrefix(location, "s3://") {
		if _, key, err := ParseS3Path(location); err == nil {
			path = key
		}
	}

	rows, cols, err := ReadParquet(ctx, f.pool, path, columns)
	if err != nil {
		return nil, nil, &domain.PartitionFetchError{Location: location, Err: err}
	}
	f.logger.Debug("local partition read", "location", location, "rows", len(rows))
	return rows, cols, nil
}
