package navigator

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"ratelens/internal/domain"
)

// maxSearchResults caps a single catalog search; partitions come back in
// descending file size order so the cap keeps the largest ones.
const maxSearchResults = 1000

// Service discovers partitions for a filter selection. Selections are cached
// by fingerprint so repeated identical requests skip the catalog.
type Service struct {
	repo             domain.PartitionRepository
	cache            domain.SelectionCache
	requireTopLevels bool
	logger           *slog.Logger
}

// NewService wires a navigator over the catalog repository. When
// requireTopLevels is true, searches missing any required filter return
// empty without touching the catalog.
func NewService(repo domain.PartitionRepository, cache domain.SelectionCache, requireTopLevels bool, logger *slog.Logger) *Service {
	return &Service{
		repo:             repo,
		cache:            cache,
		requireTopLevels: requireTopLevels,
		logger:           logger.With("component", "navigator"),
	}
}

// SearchPartitions resolves raw filters and lists matching partitions. The
// result is ordered by file size descending and capped at maxSearchResults.
func (s *Service) SearchPartitions(ctx context.Context, raw map[string][]string) ([]domain.PartitionDescriptor, error) {
	filters, err := ResolveFilters(raw)
	if err != nil {
		return nil, err
	}
	return s.search(ctx, filters, s.requireTopLevels)
}

// SummarizePartitions aggregates the partitions matching raw filters.
// Summaries are exploratory, so the required-filter gate never applies: a
// partial selection still reports what it would match.
func (s *Service) SummarizePartitions(ctx context.Context, raw map[string][]string) (domain.PartitionSummary, error) {
	filters, err := ResolveFilters(raw)
	if err != nil {
		return domain.PartitionSummary{}, err
	}
	descriptors, err := s.search(ctx, filters, false)
	if err != nil {
		return domain.PartitionSummary{}, err
	}
	return s.Summarize(descriptors), nil
}

func (s *Service) search(ctx context.Context, filters *domain.ResolvedFilters, requireTopLevels bool) ([]domain.PartitionDescriptor, error) {
	if requireTopLevels && !filters.HasAllRequired() {
		s.logger.Debug("search skipped, required filters missing")
		return []domain.PartitionDescriptor{}, nil
	}

	descriptors, err := s.repo.Search(ctx, filters, maxSearchResults)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("partition search", "matches", len(descriptors))
	return descriptors, nil
}

// SelectPartitions builds (or replays) a capped selection of partitions for
// a dataset load. The returned metadata is cached under its fingerprint.
func (s *Service) SelectPartitions(ctx context.Context, filters *domain.ResolvedFilters, maxRows, maxPartitions int) (*domain.SelectionMetadata, error) {
	key := Fingerprint(filters, maxRows, maxPartitions)
	if meta, ok := s.cache.Get(key); ok {
		s.logger.Debug("selection cache hit", "key", key)
		return meta, nil
	}

	descriptors, err := s.search(ctx, filters, s.requireTopLevels)
	if err != nil {
		return nil, err
	}
	if maxPartitions > 0 && len(descriptors) > maxPartitions {
		descriptors = descriptors[:maxPartitions]
	}

	meta := &domain.SelectionMetadata{
		Descriptors:   descriptors,
		MaxRows:       maxRows,
		MaxPartitions: maxPartitions,
		CreatedAt:     time.Now().UTC(),
	}
	s.cache.Put(key, meta)
	return meta, nil
}

// FilterOptions lists the distinct usable values per filter field for
// populating selection UIs.
func (s *Service) FilterOptions(ctx context.Context) (domain.FilterOptions, error) {
	return s.repo.FilterOptions(ctx)
}

// Summarize aggregates a set of descriptors into totals for display before
// a load is committed.
func (s *Service) Summarize(descriptors []domain.PartitionDescriptor) domain.PartitionSummary {
	summary := domain.PartitionSummary{
		PartitionCount:   len(descriptors),
		ByPayer:          make(map[string]int),
		AvailableFilters: make(map[string][]string),
	}
	available := make(map[string]map[string]struct{})
	for _, d := range descriptors {
		summary.TotalSizeMB += d.FileSizeMB
		summary.TotalEstimatedRecords += d.EstimatedRecords
		summary.ByPayer[d.PayerSlug]++
		for field, value := range map[string]string{
			domain.FieldState:        d.State,
			domain.FieldBillingClass: d.BillingClass,
			domain.FieldProcedureSet: d.ProcedureSet,
			domain.FieldTaxonomyCode: d.TaxonomyCode,
			domain.FieldStatAreaName: d.StatAreaName,
			domain.FieldYear:         d.Year,
			domain.FieldMonth:        d.Month,
		} {
			if value == "" {
				continue
			}
			if available[field] == nil {
				available[field] = make(map[string]struct{})
			}
			available[field][value] = struct{}{}
		}
	}
	for field, values := range available {
		list := make([]string, 0, len(values))
		for v := range values {
			list = append(list, v)
		}
		sort.Strings(list)
		summary.AvailableFilters[field] = list
	}
	return summary
}
