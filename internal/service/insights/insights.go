// Package insights runs aggregate queries over a state-scoped commercial
// rates source through the shared analytical connection pool.
package insights

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"ratelens/internal/domain"
	"ratelens/internal/engine"
)

// defaultSampleLimit bounds SampleRecords when the caller passes no limit.
const defaultSampleLimit = 100

// maxSampleLimit is the hard cap on sampled rows per request.
const maxSampleLimit = 1000

// queryableColumns is the allowlist of columns insights queries accept, both
// as the target of UniqueValues and as filter keys. Everything else is
// rejected before any SQL is built.
var queryableColumns = map[string]struct{}{
	"payer":           {},
	"organization":    {},
	"procedure_set":   {},
	"procedure_class": {},
	"billing_code":    {},
	"billing_class":   {},
	"state":           {},
	"matched_address": {},
}

// Filters narrow an insights query to matching rows. Keys must be queryable
// columns; values are matched by equality.
type Filters map[string]string

// Stats is the aggregate view of a rate source under a filter set.
type Stats struct {
	RecordCount       int      `json:"record_count"`
	AvgProfessional   *float64 `json:"avg_professional_rate"`
	AvgInstitutional  *float64 `json:"avg_institutional_rate"`
	MinNegotiated     *float64 `json:"min_negotiated_rate"`
	MaxNegotiated     *float64 `json:"max_negotiated_rate"`
	DistinctProviders int      `json:"distinct_providers"`
	DistinctCodes     int      `json:"distinct_codes"`
}

// Service answers aggregate questions about a rates source. Every query is
// built from allowlisted column names with parameterized values.
type Service struct {
	pool   *engine.Pool
	logger *slog.Logger
}

// NewService wires an insights service over the shared connection pool.
func NewService(pool *engine.Pool, logger *slog.Logger) *Service {
	return &Service{pool: pool, logger: logger.With("component", "insights")}
}

// UniqueValues lists the distinct non-null values of one column, ordered.
func (s *Service) UniqueValues(ctx context.Context, source, column string, filters Filters) ([]string, error) {
	if _, ok := queryableColumns[column]; !ok {
		return nil, domain.ErrValidation("column %q is not queryable", column)
	}
	where, args, err := buildWhere(filters)
	if err != nil {
		return nil, err
	}

	conn, err := s.pool.Get(ctx, source)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT DISTINCT %s FROM %s WHERE %s IS NOT NULL%s ORDER BY %s",
		column, s.pool.ViewName(), column, where, column)
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("unique values for %s: %w", column, err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan unique value: %w", err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// AggregatedStats computes record counts, professional and institutional
// rate averages, the negotiated-rate range, and distinct provider and code
// counts for the filtered source.
func (s *Service) AggregatedStats(ctx context.Context, source string, filters Filters) (*Stats, error) {
	where, args, err := buildWhere(filters)
	if err != nil {
		return nil, err
	}

	conn, err := s.pool.Get(ctx, source)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT
  COUNT(*),
  AVG(CASE WHEN billing_class = 'professional' THEN negotiated_rate END),
  AVG(CASE WHEN billing_class = 'institutional' THEN negotiated_rate END),
  MIN(negotiated_rate),
  MAX(negotiated_rate),
  COUNT(DISTINCT organization),
  COUNT(DISTINCT billing_code)
FROM %s WHERE 1=1%s`, s.pool.ViewName(), where)

	var stats Stats
	var avgProf, avgInst, minRate, maxRate sql.NullFloat64
	err = conn.QueryRowContext(ctx, query, args...).Scan(
		&stats.RecordCount, &avgProf, &avgInst, &minRate, &maxRate,
		&stats.DistinctProviders, &stats.DistinctCodes)
	if err != nil {
		return nil, fmt.Errorf("aggregate stats: %w", err)
	}
	stats.AvgProfessional = nullableFloat(avgProf)
	stats.AvgInstitutional = nullableFloat(avgInst)
	stats.MinNegotiated = nullableFloat(minRate)
	stats.MaxNegotiated = nullableFloat(maxRate)
	return &stats, nil
}

// SampleRecords returns up to limit matching rows for inspection.
func (s *Service) SampleRecords(ctx context.Context, source string, filters Filters, limit int) ([]domain.Row, error) {
	if limit <= 0 {
		limit = defaultSampleLimit
	}
	if limit > maxSampleLimit {
		limit = maxSampleLimit
	}
	where, args, err := buildWhere(filters)
	if err != nil {
		return nil, err
	}

	conn, err := s.pool.Get(ctx, source)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT * FROM %s WHERE 1=1%s LIMIT %d", s.pool.ViewName(), where, limit)
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sample records: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("sample columns: %w", err)
	}

	var out []domain.Row
	values := make([]interface{}, len(cols))
	ptrs := make([]interface{}, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan sample row: %w", err)
		}
		row := make(domain.Row, len(cols))
		for i, col := range cols {
			row[col] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// buildWhere renders filters as " AND col = ?" clauses with bound values.
// Filter keys outside the allowlist are a ValidationError.
func buildWhere(filters Filters) (string, []interface{}, error) {
	if len(filters) == 0 {
		return "", nil, nil
	}
	var sb strings.Builder
	args := make([]interface{}, 0, len(filters))
	for _, col := range orderedKeys(filters) {
		if _, ok := queryableColumns[col]; !ok {
			return "", nil, domain.ErrValidation("filter column %q is not queryable", col)
		}
		sb.WriteString(" AND ")
		sb.WriteString(col)
		sb.WriteString(" = ?")
		args = append(args, filters[col])
	}
	return sb.String(), args, nil
}

// orderedKeys sorts filter keys so clause order is deterministic.
func orderedKeys(filters Filters) []string {
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func nullableFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}
