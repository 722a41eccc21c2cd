package engine

import (
	"context"
	"io"
	"log/slog"
	"testing"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPool_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("missing_file_serves_sample_source", func(t *testing.T) {
		pool := NewPool(testLogger())
		t.Cleanup(pool.CleanupAll)

		conn, err := pool.Get(ctx, "/nonexistent/rates.parquet")
		require.NoError(t, err)

		var count int
		require.NoError(t, conn.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM "+pool.ViewName()).Scan(&count))
		assert.Equal(t, len(sampleRecords), count)
	})

	t.Run("connections_are_reused", func(t *testing.T) {
		pool := NewPool(testLogger())
		t.Cleanup(pool.CleanupAll)

		first, err := pool.Get(ctx, "/nonexistent/a.parquet")
		require.NoError(t, err)
		second, err := pool.Get(ctx, "/nonexistent/a.parquet")
		require.NoError(t, err)

		assert.Same(t, first, second)
		assert.Equal(t, 1, pool.Len())
	})

	t.Run("distinct_sources_get_distinct_connections", func(t *testing.T) {
		pool := NewPool(testLogger())
		t.Cleanup(pool.CleanupAll)

		_, err := pool.Get(ctx, "/nonexistent/a.parquet")
		require.NoError(t, err)
		_, err = pool.Get(ctx, "/nonexistent/b.parquet")
		require.NoError(t, err)

		assert.Equal(t, 2, pool.Len())
	})

	t.Run("corrupt_connection_is_recreated", func(t *testing.T) {
		pool := NewPool(testLogger())
		t.Cleanup(pool.CleanupAll)

		first, err := pool.Get(ctx, "/nonexistent/a.parquet")
		require.NoError(t, err)
		require.NoError(t, first.Close())

		second, err := pool.Get(ctx, "/nonexistent/a.parquet")
		require.NoError(t, err)

		assert.NotSame(t, first, second)
		var one int
		assert.NoError(t, second.QueryRowContext(ctx, "SELECT 1").Scan(&one))
	})
}

func TestPool_ReleaseAndCleanup(t *testing.T) {
	ctx := context.Background()
	pool := NewPool(testLogger())

	_, err := pool.Get(ctx, "/nonexistent/a.parquet")
	require.NoError(t, err)
	_, err = pool.Get(ctx, "/nonexistent/b.parquet")
	require.NoError(t, err)

	pool.Release("/nonexistent/a.parquet")
	assert.Equal(t, 1, pool.Len())

	// Releasing an unknown source is a no-op.
	pool.Release("/nonexistent/never-opened.parquet")
	assert.Equal(t, 1, pool.Len())

	pool.CleanupAll()
	assert.Equal(t, 0, pool.Len())
}
