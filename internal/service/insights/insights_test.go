package insights

import (
	"context"
	"io"
	"log/slog"
	"testing"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ratelens/internal/domain"
	"ratelens/internal/engine"
)

// The synthetic sample source backs these tests: pointing the pool at a
// missing file materialises the deterministic demo table.
const testSource = "/nonexistent/insights.parquet"

func newTestService(t *testing.T) *Service {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pool := engine.NewPool(logger)
	t.Cleanup(pool.CleanupAll)
	return NewService(pool, logger)
}

func TestService_UniqueValues(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	t.Run("distinct_ordered", func(t *testing.T) {
		values, err := svc.UniqueValues(ctx, testSource, "state", nil)

		require.NoError(t, err)
		assert.Equal(t, []string{"GA", "TX"}, values)
	})

	t.Run("filters_narrow", func(t *testing.T) {
		values, err := svc.UniqueValues(ctx, testSource, "billing_code",
			Filters{"billing_class": "professional", "state": "TX"})

		require.NoError(t, err)
		assert.Equal(t, []string{"99213", "99215"}, values)
	})

	t.Run("column_outside_allowlist", func(t *testing.T) {
		_, err := svc.UniqueValues(ctx, testSource, "negotiated_rate; DROP TABLE x", nil)

		var validation *domain.ValidationError
		assert.ErrorAs(t, err, &validation)
	})

	t.Run("filter_key_outside_allowlist", func(t *testing.T) {
		_, err := svc.UniqueValues(ctx, testSource, "state", Filters{"1=1 OR x": "y"})

		var validation *domain.ValidationError
		assert.ErrorAs(t, err, &validation)
	})
}

func TestService_AggregatedStats(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	t.Run("full_source", func(t *testing.T) {
		stats, err := svc.AggregatedStats(ctx, testSource, nil)

		require.NoError(t, err)
		assert.Equal(t, 8, stats.RecordCount)
		assert.Equal(t, 4, stats.DistinctProviders)
		require.NotNil(t, stats.AvgProfessional)
		require.NotNil(t, stats.AvgInstitutional)
		assert.Greater(t, *stats.AvgInstitutional, *stats.AvgProfessional)
		require.NotNil(t, stats.MinNegotiated)
		assert.InDelta(t, 99.99, *stats.MinNegotiated, 1e-9)
	})

	t.Run("filtered_to_one_class", func(t *testing.T) {
		stats, err := svc.AggregatedStats(ctx, testSource, Filters{"billing_class": "professional"})

		require.NoError(t, err)
		assert.Equal(t, 4, stats.RecordCount)
		assert.Nil(t, stats.AvgInstitutional)
	})
}

func TestService_LeavesPooledConnectionOpen(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pool := engine.NewPool(logger)
	t.Cleanup(pool.CleanupAll)
	svc := NewService(pool, logger)
	ctx := context.Background()

	conn, err := pool.Get(ctx, testSource)
	require.NoError(t, err)

	_, err = svc.UniqueValues(ctx, testSource, "state", nil)
	require.NoError(t, err)

	// The handle obtained before the query must survive it; the pool, not
	// individual requests, owns connection lifetimes.
	var one int
	require.NoError(t, conn.QueryRowContext(ctx, "SELECT 1").Scan(&one))
	assert.Equal(t, 1, one)
}

func TestService_SampleRecords(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	t.Run("limit_respected", func(t *testing.T) {
		rows, err := svc.SampleRecords(ctx, testSource, nil, 3)

		require.NoError(t, err)
		assert.Len(t, rows, 3)
	})

	t.Run("rows_carry_all_columns", func(t *testing.T) {
		rows, err := svc.SampleRecords(ctx, testSource, Filters{"payer": "aetna"}, 0)

		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Contains(t, rows[0], "negotiated_rate")
		assert.Contains(t, rows[0], "matched_address")
	})
}
