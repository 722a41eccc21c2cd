// Package dataset fetches selected partitions in parallel and merges them
// into a single bounded in-memory table with provenance columns.
package dataset

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"ratelens/internal/domain"
)

// Engine runs the fetch/merge stage of a dataset load. Fetches run
// concurrently up to a fixed limit; the merge is deterministic regardless of
// completion order.
type Engine struct {
	fetcher      domain.PartitionFetcher
	concurrency  int
	fetchTimeout time.Duration
	logger       *slog.Logger
}

// NewEngine wires a combine engine over a partition fetcher. concurrency
// bounds in-flight fetches; fetchTimeout bounds each individual fetch.
func NewEngine(fetcher domain.PartitionFetcher, concurrency int, fetchTimeout time.Duration, logger *slog.Logger) *Engine {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Engine{
		fetcher:      fetcher,
		concurrency:  concurrency,
		fetchTimeout: fetchTimeout,
		logger:       logger.With("component", "combine"),
	}
}

// partitionResult carries one fetch outcome back to the merge pass. Results
// are merged in descriptor order, not completion order. fetched distinguishes
// a completed fetch (even an empty one) from a partition never attempted.
type partitionResult struct {
	rows    []domain.Row
	columns []string
	err     error
	fetched bool
}

// Combine fetches the selected partitions and merges them into one dataset.
// Dispatch stops once already-fetched rows cover the row budget, so trailing
// partitions may never be attempted. Individual fetch failures are counted
// and skipped; Combine fails only when not a single partition loaded.
func (e *Engine) Combine(ctx context.Context, meta *domain.SelectionMetadata, columns []string) (*domain.Dataset, error) {
	if len(meta.Descriptors) == 0 {
		return nil, domain.ErrNoData("no partitions matched the selection")
	}

	started := time.Now()
	loadID := uuid.NewString()
	logger := e.logger.With("load_id", loadID)
	logger.Info("combine started",
		"partitions", len(meta.Descriptors),
		"max_rows", meta.MaxRows,
		"concurrency", e.concurrency)

	results := make([]partitionResult, len(meta.Descriptors))
	var fetchedRows atomic.Int64
	var attempted atomic.Int64
	budgetCovered := func() bool {
		return meta.MaxRows > 0 && fetchedRows.Load() >= int64(meta.MaxRows)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, desc := range meta.Descriptors {
		if gctx.Err() != nil || budgetCovered() {
			break
		}
		g.Go(func() error {
			// Re-check after acquiring a slot: fetches completed while this
			// one queued may already cover the budget.
			if budgetCovered() {
				return nil
			}
			attempted.Add(1)
			fctx := gctx
			if e.fetchTimeout > 0 {
				var cancel context.CancelFunc
				fctx, cancel = context.WithTimeout(gctx, e.fetchTimeout)
				defer cancel()
			}
			rows, cols, err := e.fetcher.Fetch(fctx, desc.Location, columns)
			if err != nil {
				logger.Warn("partition fetch failed", "location", desc.Location, "error", err)
				results[i] = partitionResult{err: err}
				return nil
			}
			fetchedRows.Add(int64(len(rows)))
			results[i] = partitionResult{rows: rows, columns: cols, fetched: true}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	// Caller cancellation discards the load outright, partial results
	// included. Per-fetch timeouts are not cancellation; only the parent
	// context counts.
	if err := ctx.Err(); err != nil {
		logger.Warn("combine cancelled", "error", err)
		return nil, err
	}

	ds := e.merge(meta, results, loadID)
	ds.Summary.TotalPartitions = len(meta.Descriptors)
	ds.Summary.Attempted = int(attempted.Load())
	ds.Summary.Elapsed = time.Since(started)

	if ds.Summary.Successful == 0 {
		return nil, domain.ErrNoData("no partition source reachable: %d of %d fetches failed",
			ds.Summary.Failed, ds.Summary.Attempted)
	}

	logger.Info("combine finished",
		"rows", ds.Summary.TotalRows,
		"successful", ds.Summary.Successful,
		"failed", ds.Summary.Failed,
		"elapsed", ds.Summary.Elapsed)
	return ds, nil
}

// merge concatenates fetched partitions in descriptor order, stamps
// provenance columns, and truncates to the row budget.
func (e *Engine) merge(meta *domain.SelectionMetadata, results []partitionResult, loadID string) *domain.Dataset {
	ds := &domain.Dataset{Summary: domain.LoadSummary{LoadID: loadID}}
	loadedAt := time.Now().UTC().Format(time.RFC3339)

	for i, res := range results {
		if res.err != nil {
			ds.Summary.Failed++
			continue
		}
		if !res.fetched {
			continue
		}
		ds.Summary.Successful++
		for _, col := range res.columns {
			ds.AddColumn(col)
		}
		source := meta.Descriptors[i].Location
		for _, row := range res.rows {
			if meta.MaxRows > 0 && len(ds.Rows) >= meta.MaxRows {
				break
			}
			row[domain.ColPartitionSource] = source
			row[domain.ColPartitionIndex] = i
			row[domain.ColLoadTimestamp] = loadedAt
			ds.Rows = append(ds.Rows, row)
		}
	}

	if ds.Summary.Successful > 0 {
		ds.AddColumn(domain.ColPartitionSource)
		ds.AddColumn(domain.ColPartitionIndex)
		ds.AddColumn(domain.ColLoadTimestamp)
	}
	ds.Summary.TotalRows = len(ds.Rows)
	return ds
}
