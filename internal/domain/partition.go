package domain

import "time"

// PartitionDescriptor identifies one remote columnar file group in the
// catalog. Required-tier fields are never empty on descriptors returned from
// a search that enforced the required filters.
type PartitionDescriptor struct {
	Location         string  `json:"location"` // s3://bucket/key
	PayerSlug        string  `json:"payer_slug"`
	PayerDisplayName string  `json:"payer_display_name,omitempty"`
	State            string  `json:"state"`
	BillingClass     string  `json:"billing_class"`
	ProcedureSet     string  `json:"procedure_set,omitempty"`
	TaxonomyCode     string  `json:"taxonomy_code,omitempty"`
	TaxonomyDesc     string  `json:"taxonomy_desc,omitempty"`
	StatAreaName     string  `json:"stat_area_name,omitempty"`
	Year             string  `json:"year,omitempty"`
	Month            string  `json:"month,omitempty"`
	FileSizeMB       float64 `json:"file_size_mb"`
	EstimatedRecords int64   `json:"estimated_records"`
}

// FilterOptions maps each filter field to the distinct values currently
// present in the catalog, used to populate filter pickers. Payer options are
// formatted "slug|display name".
type FilterOptions map[string][]string

// PartitionSummary aggregates the partitions matching a filter set.
type PartitionSummary struct {
	PartitionCount        int                 `json:"partition_count"`
	TotalSizeMB           float64             `json:"total_size_mb"`
	TotalEstimatedRecords int64               `json:"total_estimated_records"`
	ByPayer               map[string]int      `json:"by_payer"`
	AvailableFilters      map[string][]string `json:"available_filters"`
}

// SelectionMetadata is the cached result of a partition search: which
// partitions a filter set resolved to under the given budgets. Rows are
// never cached, only the selection.
type SelectionMetadata struct {
	Descriptors   []PartitionDescriptor `json:"descriptors"`
	MaxRows       int                   `json:"max_rows"`
	MaxPartitions int                   `json:"max_partitions"`
	CreatedAt     time.Time             `json:"created_at"`
}

// Locations returns the remote locations of the selected partitions in
// search order.
func (m *SelectionMetadata) Locations() []string {
	out := make([]string, len(m.Descriptors))
	for i, d := range m.Descriptors {
		out[i] = d.Location
	}
	return out
}
