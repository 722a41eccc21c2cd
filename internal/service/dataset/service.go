package dataset

import (
	"context"
	"log/slog"
	"time"

	"ratelens/internal/domain"
	"ratelens/internal/service/navigator"
)

// Enricher appends derived columns to a combined dataset in place.
type Enricher interface {
	Enrich(ctx context.Context, ds *domain.Dataset) error
}

// CombineRequest is a full dataset-load request. Zero limits fall back to
// the service defaults.
type CombineRequest struct {
	Filters       map[string][]string `json:"filters"`
	Columns       []string            `json:"columns,omitempty"`
	MaxRows       int                 `json:"max_rows,omitempty"`
	MaxPartitions int                 `json:"max_partitions,omitempty"`
	Enrich        bool                `json:"enrich"`
}

// Service drives the full load pipeline: resolve filters, select partitions,
// fetch and merge them, then optionally enrich with reference rates.
type Service struct {
	navigator         *navigator.Service
	engine            *Engine
	enricher          Enricher
	defaultRows       int
	defaultPartitions int
	combineTimeout    time.Duration
	logger            *slog.Logger
}

// NewService wires the dataset pipeline. enricher may be nil when no
// benchmark store is configured; Enrich requests then merge without it.
func NewService(nav *navigator.Service, engine *Engine, enricher Enricher, defaultRows, defaultPartitions int, logger *slog.Logger) *Service {
	return &Service{
		navigator:         nav,
		engine:            engine,
		enricher:          enricher,
		defaultRows:       defaultRows,
		defaultPartitions: defaultPartitions,
		logger:            logger.With("component", "dataset"),
	}
}

// WithCombineTimeout bounds the wall clock of each Combine call, enrichment
// included. Zero leaves the caller's deadline in charge.
func (s *Service) WithCombineTimeout(d time.Duration) *Service {
	s.combineTimeout = d
	return s
}

// Combine runs the pipeline for one request and returns the merged dataset.
func (s *Service) Combine(ctx context.Context, req CombineRequest) (*domain.Dataset, error) {
	if s.combineTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.combineTimeout)
		defer cancel()
	}

	filters, err := navigator.ResolveFilters(req.Filters)
	if err != nil {
		return nil, err
	}
	if !filters.HasAllRequired() {
		return nil, domain.ErrFilter("payer_slug, state, and billing_class are required to combine a dataset")
	}

	maxRows := req.MaxRows
	if maxRows <= 0 {
		maxRows = s.defaultRows
	}
	maxPartitions := req.MaxPartitions
	if maxPartitions <= 0 {
		maxPartitions = s.defaultPartitions
	}

	meta, err := s.navigator.SelectPartitions(ctx, filters, maxRows, maxPartitions)
	if err != nil {
		return nil, err
	}

	ds, err := s.engine.Combine(ctx, meta, req.Columns)
	if err != nil {
		return nil, err
	}

	if req.Enrich && s.enricher != nil {
		if err := s.enricher.Enrich(ctx, ds); err != nil {
			return nil, err
		}
	}
	return ds, nil
}
