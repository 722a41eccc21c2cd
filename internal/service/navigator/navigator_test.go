package navigator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ratelens/internal/domain"
)

var errTest = errors.New("boom")

type mockPartitionRepo struct {
	SearchFn        func(ctx context.Context, filters *domain.ResolvedFilters, limit int) ([]domain.PartitionDescriptor, error)
	FilterOptionsFn func(ctx context.Context) (domain.FilterOptions, error)
	searchCalls     int
}

func (m *mockPartitionRepo) Search(ctx context.Context, filters *domain.ResolvedFilters, limit int) ([]domain.PartitionDescriptor, error) {
	m.searchCalls++
	return m.SearchFn(ctx, filters, limit)
}

func (m *mockPartitionRepo) FilterOptions(ctx context.Context) (domain.FilterOptions, error) {
	return m.FilterOptionsFn(ctx)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func descriptors(n int) []domain.PartitionDescriptor {
	out := make([]domain.PartitionDescriptor, n)
	for i := range out {
		out[i] = domain.PartitionDescriptor{
			Location:  "s3://rates/part-" + string(rune('a'+i)) + ".parquet",
			PayerSlug: "aetna",
			State:     "GA",
		}
	}
	return out
}

func TestService_SearchPartitions(t *testing.T) {
	required := map[string][]string{
		"payer_slug":    {"aetna"},
		"state":         {"GA"},
		"billing_class": {"professional"},
	}

	t.Run("gated_when_required_missing", func(t *testing.T) {
		repo := &mockPartitionRepo{}
		svc := NewService(repo, NewSelectionTTLCache(0), true, testLogger())

		got, err := svc.SearchPartitions(context.Background(), map[string][]string{"state": {"GA"}})

		require.NoError(t, err)
		assert.Empty(t, got)
		assert.Equal(t, 0, repo.searchCalls, "catalog must not be queried")
	})

	t.Run("ungated_searches_on_partial_filters", func(t *testing.T) {
		repo := &mockPartitionRepo{
			SearchFn: func(_ context.Context, _ *domain.ResolvedFilters, _ int) ([]domain.PartitionDescriptor, error) {
				return descriptors(1), nil
			},
		}
		svc := NewService(repo, NewSelectionTTLCache(0), false, testLogger())

		got, err := svc.SearchPartitions(context.Background(), map[string][]string{"state": {"GA"}})

		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("caps_search_limit", func(t *testing.T) {
		var capturedLimit int
		repo := &mockPartitionRepo{
			SearchFn: func(_ context.Context, _ *domain.ResolvedFilters, limit int) ([]domain.PartitionDescriptor, error) {
				capturedLimit = limit
				return nil, nil
			},
		}
		svc := NewService(repo, NewSelectionTTLCache(0), true, testLogger())

		_, err := svc.SearchPartitions(context.Background(), required)

		require.NoError(t, err)
		assert.Equal(t, 1000, capturedLimit)
	})

	t.Run("repo_error", func(t *testing.T) {
		repo := &mockPartitionRepo{
			SearchFn: func(_ context.Context, _ *domain.ResolvedFilters, _ int) ([]domain.PartitionDescriptor, error) {
				return nil, errTest
			},
		}
		svc := NewService(repo, NewSelectionTTLCache(0), true, testLogger())

		_, err := svc.SearchPartitions(context.Background(), required)

		assert.ErrorIs(t, err, errTest)
	})
}

func TestService_SelectPartitions(t *testing.T) {
	filters := &domain.ResolvedFilters{
		PayerSlugs: []string{"aetna"}, State: "GA", BillingClass: "professional",
	}

	t.Run("caches_selection", func(t *testing.T) {
		repo := &mockPartitionRepo{
			SearchFn: func(_ context.Context, _ *domain.ResolvedFilters, _ int) ([]domain.PartitionDescriptor, error) {
				return descriptors(3), nil
			},
		}
		svc := NewService(repo, NewSelectionTTLCache(time.Hour), true, testLogger())

		first, err := svc.SelectPartitions(context.Background(), filters, 1000, 10)
		require.NoError(t, err)
		second, err := svc.SelectPartitions(context.Background(), filters, 1000, 10)
		require.NoError(t, err)

		assert.Equal(t, 1, repo.searchCalls, "second call must replay the cached selection")
		assert.Equal(t, first, second)
	})

	t.Run("different_budgets_miss_the_cache", func(t *testing.T) {
		repo := &mockPartitionRepo{
			SearchFn: func(_ context.Context, _ *domain.ResolvedFilters, _ int) ([]domain.PartitionDescriptor, error) {
				return descriptors(3), nil
			},
		}
		svc := NewService(repo, NewSelectionTTLCache(time.Hour), true, testLogger())

		_, err := svc.SelectPartitions(context.Background(), filters, 1000, 10)
		require.NoError(t, err)
		_, err = svc.SelectPartitions(context.Background(), filters, 2000, 10)
		require.NoError(t, err)

		assert.Equal(t, 2, repo.searchCalls)
	})

	t.Run("truncates_to_max_partitions", func(t *testing.T) {
		repo := &mockPartitionRepo{
			SearchFn: func(_ context.Context, _ *domain.ResolvedFilters, _ int) ([]domain.PartitionDescriptor, error) {
				return descriptors(5), nil
			},
		}
		svc := NewService(repo, NewSelectionTTLCache(time.Hour), true, testLogger())

		meta, err := svc.SelectPartitions(context.Background(), filters, 1000, 2)

		require.NoError(t, err)
		assert.Len(t, meta.Descriptors, 2)
		assert.Equal(t, 2, meta.MaxPartitions)
		assert.Equal(t, 1000, meta.MaxRows)
	})
}

func TestService_SummarizePartitions(t *testing.T) {
	t.Run("partial_filters_bypass_the_gate", func(t *testing.T) {
		repo := &mockPartitionRepo{
			SearchFn: func(_ context.Context, filters *domain.ResolvedFilters, _ int) ([]domain.PartitionDescriptor, error) {
				assert.Equal(t, "GA", filters.State)
				return descriptors(2), nil
			},
		}
		svc := NewService(repo, NewSelectionTTLCache(0), true, testLogger())

		summary, err := svc.SummarizePartitions(context.Background(), map[string][]string{"state": {"GA"}})

		require.NoError(t, err)
		assert.Equal(t, 1, repo.searchCalls, "summary must query the catalog even with required filters missing")
		assert.Equal(t, 2, summary.PartitionCount)
	})

	t.Run("unknown_filter_rejected", func(t *testing.T) {
		repo := &mockPartitionRepo{}
		svc := NewService(repo, NewSelectionTTLCache(0), true, testLogger())

		_, err := svc.SummarizePartitions(context.Background(), map[string][]string{"bogus": {"x"}})

		var filterErr *domain.FilterError
		assert.ErrorAs(t, err, &filterErr)
		assert.Equal(t, 0, repo.searchCalls)
	})
}

func TestService_Summarize(t *testing.T) {
	svc := NewService(&mockPartitionRepo{}, NewSelectionTTLCache(0), true, testLogger())

	summary := svc.Summarize([]domain.PartitionDescriptor{
		{PayerSlug: "aetna", State: "GA", BillingClass: "professional", FileSizeMB: 10.5, EstimatedRecords: 100, Year: "2025"},
		{PayerSlug: "aetna", State: "TX", BillingClass: "professional", FileSizeMB: 4.5, EstimatedRecords: 50},
		{PayerSlug: "bcbs", State: "GA", BillingClass: "institutional", FileSizeMB: 1.0, EstimatedRecords: 25},
	})

	assert.Equal(t, 3, summary.PartitionCount)
	assert.InDelta(t, 16.0, summary.TotalSizeMB, 1e-9)
	assert.Equal(t, int64(175), summary.TotalEstimatedRecords)
	assert.Equal(t, map[string]int{"aetna": 2, "bcbs": 1}, summary.ByPayer)
	assert.Equal(t, []string{"GA", "TX"}, summary.AvailableFilters["state"])
	assert.Equal(t, []string{"2025"}, summary.AvailableFilters["year"])
}
