package domain

import "context"

// PartitionRepository queries the partition catalog store.
type PartitionRepository interface {
	// Search returns descriptors matching the filters, ordered by descending
	// file size, capped at limit. Tier gating is the navigator's concern; the
	// repository applies whatever filters are present.
	Search(ctx context.Context, filters *ResolvedFilters, limit int) ([]PartitionDescriptor, error)

	// FilterOptions returns the distinct non-placeholder values for every
	// filter field, drawing from the partitions table and dimension tables.
	FilterOptions(ctx context.Context) (FilterOptions, error)
}

// PartitionFetcher retrieves one remote partition and decodes it into rows.
// The returned column list preserves the file's column order.
type PartitionFetcher interface {
	Fetch(ctx context.Context, location string, columns []string) ([]Row, []string, error)
}

// BenchmarkRepository looks up government reference rates. A missing rate is
// (nil, nil); only store-level failures return an error.
type BenchmarkRepository interface {
	ProfessionalRate(ctx context.Context, code, zip string, year int) (*float64, error)
	ProfessionalStateAverage(ctx context.Context, code, state string, year int) (*float64, error)
	InstitutionalRates(ctx context.Context, code, state string, year int) (InstitutionalRates, error)
}

// SelectionCache stores partition-selection metadata under a deterministic
// fingerprint with a bounded lifetime.
type SelectionCache interface {
	Get(key string) (*SelectionMetadata, bool)
	Put(key string, meta *SelectionMetadata)
}
