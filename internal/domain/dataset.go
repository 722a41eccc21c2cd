package domain

import "time"

// Provenance columns appended to every merged row.
const (
	ColPartitionSource = "_partition_source"
	ColPartitionIndex  = "_partition_index"
	ColLoadTimestamp   = "_load_timestamp"
)

// Row is one record of a combined dataset.
type Row map[string]interface{}

// LoadSummary describes how a combine operation went: how many partitions
// were attempted, how many succeeded or failed, and how long it took.
type LoadSummary struct {
	LoadID          string        `json:"load_id"`
	TotalPartitions int           `json:"total_partitions"`
	Attempted       int           `json:"total_partitions_attempted"`
	Successful      int           `json:"successful_loads"`
	Failed          int           `json:"failed_loads"`
	TotalRows       int           `json:"total_rows"`
	Elapsed         time.Duration `json:"load_time"`
}

// Dataset is the unified in-memory table produced by a combine operation.
// It is mutated only during the merge pass; enrichment appends columns to
// the same dataset rather than producing a copy.
type Dataset struct {
	Columns []string    `json:"columns"`
	Rows    []Row       `json:"rows"`
	Summary LoadSummary `json:"load_summary"`
}

// AddColumn registers a column name if not already present.
func (d *Dataset) AddColumn(name string) {
	for _, c := range d.Columns {
		if c == name {
			return
		}
	}
	d.Columns = append(d.Columns, name)
}

// HasColumn reports whether the dataset's column set contains name.
func (d *Dataset) HasColumn(name string) bool {
	for _, c := range d.Columns {
		if c == name {
			return true
		}
	}
	return false
}
