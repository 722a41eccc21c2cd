// Package app wires the repositories, engine, and services into a running
// application, keeping main() thin.
package app

import (
	"database/sql"
	"log/slog"

	"ratelens/internal/config"
	"ratelens/internal/db/repository"
	"ratelens/internal/domain"
	"ratelens/internal/engine"
	"ratelens/internal/service/benchmark"
	"ratelens/internal/service/dataset"
	"ratelens/internal/service/insights"
	"ratelens/internal/service/navigator"
	"ratelens/internal/storage"
)

// Deps holds the external dependencies that main() must provide: database
// handles, the optional S3 client, config, and the root logger.
type Deps struct {
	Cfg         *config.Config
	CatalogDB   *sql.DB              // read pool over the partition catalog
	BenchmarkDB *sql.DB              // read pool over the reference rate store; nil disables enrichment
	S3          storage.ObjectGetter // nil disables remote partition fetch
	Logger      *slog.Logger
}

// Services groups the wired services the HTTP layer needs. Insights is nil
// only when the connection pool could not be created, which cannot happen
// today; Enricher wiring is conditional on a benchmark store.
type Services struct {
	Navigator *navigator.Service
	Dataset   *dataset.Service
	Insights  *insights.Service
}

// App is the fully wired application.
type App struct {
	Services Services
	Pool     *engine.Pool
	Cache    *navigator.SelectionTTLCache
}

// New wires the full pipeline from the provided deps.
func New(deps Deps) *App {
	cfg := deps.Cfg
	logger := deps.Logger

	pool := engine.NewPool(logger.With("component", "pool"))
	cache := navigator.NewSelectionTTLCache(cfg.CacheTTL)

	partitionRepo := repository.NewPartitionRepo(deps.CatalogDB)
	nav := navigator.NewService(partitionRepo, cache, true, logger)

	var fetcher domain.PartitionFetcher
	if deps.S3 != nil {
		fetcher = storage.NewS3Fetcher(deps.S3, pool, cfg.DataDir, logger)
	} else {
		fetcher = storage.NewLocalFetcher(pool, logger)
	}
	combineEngine := dataset.NewEngine(fetcher, cfg.FetchConcurrency, cfg.FetchTimeout, logger)

	var enricher dataset.Enricher
	if deps.BenchmarkDB != nil {
		benchmarkRepo := repository.NewBenchmarkRepo(deps.BenchmarkDB)
		enricher = benchmark.NewEnricher(benchmarkRepo, cfg.BenchmarkYear, logger)
	}

	datasets := dataset.NewService(nav, combineEngine, enricher,
		cfg.MaxRowsDefault, cfg.MaxPartitionsDefault, logger).
		WithCombineTimeout(cfg.CombineTimeout)

	return &App{
		Services: Services{
			Navigator: nav,
			Dataset:   datasets,
			Insights:  insights.NewService(pool, logger),
		},
		Pool:  pool,
		Cache: cache,
	}
}
