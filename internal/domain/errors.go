// Package domain defines core types, ports, and errors for the rate analytics core.
package domain

import "fmt"

// FilterError indicates a malformed filter request: the search cannot run
// until the caller completes or corrects the filters.
type FilterError struct {
	Message string
}

func (e *FilterError) Error() string { return e.Message }

// NoDataError indicates that no partitions matched a search, or that no
// partition fetch succeeded. It is surfaced as an empty-result condition.
type NoDataError struct {
	Message string
}

func (e *NoDataError) Error() string { return e.Message }

// PartitionFetchError indicates a single partition was unreachable or
// malformed. It is recovered locally by skipping the partition; it only
// reaches the caller wrapped in a NoDataError when every partition failed.
type PartitionFetchError struct {
	Location string
	Err      error
}

func (e *PartitionFetchError) Error() string {
	return fmt.Sprintf("fetch partition %s: %v", e.Location, e.Err)
}

func (e *PartitionFetchError) Unwrap() error { return e.Err }

// BenchmarkLookupError indicates a reference-rate lookup failed for one key.
// The enricher recovers by leaving that key's benchmark columns null.
type BenchmarkLookupError struct {
	Code     string
	Location string
	Err      error
}

func (e *BenchmarkLookupError) Error() string {
	return fmt.Sprintf("benchmark lookup code=%s loc=%s: %v", e.Code, e.Location, e.Err)
}

func (e *BenchmarkLookupError) Unwrap() error { return e.Err }

// CacheCorruptionError indicates a pooled connection or cache entry is
// unusable. Recovered by discarding and recreating the entry.
type CacheCorruptionError struct {
	Key string
	Err error
}

func (e *CacheCorruptionError) Error() string {
	return fmt.Sprintf("corrupt cache entry %q: %v", e.Key, e.Err)
}

func (e *CacheCorruptionError) Unwrap() error { return e.Err }

// ValidationError indicates invalid input outside the filter schema.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ErrFilter creates a FilterError with a formatted message.
func ErrFilter(format string, args ...interface{}) *FilterError {
	return &FilterError{Message: fmt.Sprintf(format, args...)}
}

// ErrNoData creates a NoDataError with a formatted message.
func ErrNoData(format string, args ...interface{}) *NoDataError {
	return &NoDataError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
