// Package repository implements the catalog and benchmark store ports over
// SQLite.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"ratelens/internal/domain"
)

// Compile-time check: PartitionRepo implements domain.PartitionRepository.
var _ domain.PartitionRepository = (*PartitionRepo)(nil)

// PartitionRepo queries the partition catalog: one row per remote file group
// in the partitions table, plus the dim_payers and dim_taxonomies dimension
// tables. The catalog is read-only from this core; an external ingestion job
// populates it.
type PartitionRepo struct {
	db *sql.DB
}

// NewPartitionRepo creates a PartitionRepo on the given read pool.
func NewPartitionRepo(db *sql.DB) *PartitionRepo {
	return &PartitionRepo{db: db}
}

// Search returns descriptors matching the filters, most-complete partitions
// first (descending file size), capped at limit. Multi-valued payer filters
// become an IN predicate; everything else is an equality predicate appended
// only when present.
func (r *PartitionRepo) Search(ctx context.Context, f *domain.ResolvedFilters, limit int) ([]domain.PartitionDescriptor, error) {
	var conds []string
	var args []interface{}

	if len(f.PayerSlugs) > 0 {
		placeholders := strings.Repeat("?,", len(f.PayerSlugs))
		conds = append(conds, fmt.Sprintf("p.payer_slug IN (%s)", placeholders[:len(placeholders)-1]))
		for _, payer := range f.PayerSlugs {
			args = append(args, payer)
		}
	}
	for _, c := range []struct {
		col string
		val string
	}{
		{"state", f.State},
		{"billing_class", f.BillingClass},
		{"procedure_set", f.ProcedureSet},
		{"taxonomy_code", f.TaxonomyCode},
		{"taxonomy_desc", f.TaxonomyDesc},
		{"stat_area_name", f.StatAreaName},
		{"year", f.Year},
		{"month", f.Month},
	} {
		if c.val != "" {
			conds = append(conds, fmt.Sprintf("p.%s = ?", c.col))
			args = append(args, c.val)
		}
	}

	whereClause := ""
	if len(conds) > 0 {
		whereClause = "WHERE " + strings.Join(conds, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT p.location, p.payer_slug, COALESCE(dp.payer_display_name, ''),
			p.state, p.billing_class,
			COALESCE(p.procedure_set, ''), COALESCE(p.taxonomy_code, ''),
			COALESCE(p.taxonomy_desc, ''), COALESCE(p.stat_area_name, ''),
			COALESCE(p.year, ''), COALESCE(p.month, ''),
			p.file_size_mb, p.estimated_records
		FROM partitions p
		LEFT JOIN dim_payers dp ON p.payer_slug = dp.payer_slug
		%s
		ORDER BY p.file_size_mb DESC
		LIMIT ?`, whereClause)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search partitions: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var out []domain.PartitionDescriptor
	for rows.Next() {
		var d domain.PartitionDescriptor
		if err := rows.Scan(
			&d.Location, &d.PayerSlug, &d.PayerDisplayName,
			&d.State, &d.BillingClass,
			&d.ProcedureSet, &d.TaxonomyCode, &d.TaxonomyDesc, &d.StatAreaName,
			&d.Year, &d.Month,
			&d.FileSizeMB, &d.EstimatedRecords,
		); err != nil {
			return nil, fmt.Errorf("scan partition: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// FilterOptions returns, per filter field, the distinct non-placeholder
// values currently in the catalog. Payer options join the dimension table and
// are formatted "slug|display name"; taxonomy codes and descriptions come
// from dim_taxonomies; the rest come from the partitions table directly.
// The literal placeholders empty string and 'none' (any case) are excluded
// everywhere.
func (r *PartitionRepo) FilterOptions(ctx context.Context) (domain.FilterOptions, error) {
	opts := make(domain.FilterOptions)

	payers, err := r.payerOptions(ctx)
	if err != nil {
		return nil, err
	}
	opts[domain.FieldPayerSlug] = payers

	for field, q := range map[string]string{
		domain.FieldState:        distinctColumnQuery("state", "partitions", "ASC"),
		domain.FieldBillingClass: distinctColumnQuery("billing_class", "partitions", "ASC"),
		domain.FieldProcedureSet: distinctColumnQuery("procedure_set", "partitions", "ASC"),
		domain.FieldTaxonomyCode: distinctColumnQuery("taxonomy_code", "dim_taxonomies", "ASC"),
		domain.FieldTaxonomyDesc: distinctColumnQuery("taxonomy_desc", "dim_taxonomies", "ASC"),
		domain.FieldStatAreaName: distinctColumnQuery("stat_area_name", "partitions", "ASC"),
		domain.FieldYear:         distinctColumnQuery("year", "partitions", "DESC"),
		domain.FieldMonth:        distinctColumnQuery("month", "partitions", "DESC"),
	} {
		values, err := r.distinctValues(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("filter options for %s: %w", field, err)
		}
		opts[field] = values
	}

	return opts, nil
}

func (r *PartitionRepo) payerOptions(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT payer_slug, payer_display_name FROM dim_payers ORDER BY payer_display_name`)
	if err != nil {
		return nil, fmt.Errorf("payer options: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var out []string
	for rows.Next() {
		var slug, display string
		if err := rows.Scan(&slug, &display); err != nil {
			return nil, fmt.Errorf("scan payer option: %w", err)
		}
		if isPlaceholder(slug) {
			continue
		}
		out = append(out, slug+"|"+display)
	}
	return out, rows.Err()
}

func (r *PartitionRepo) distinctValues(ctx context.Context, query string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var out []string
	for rows.Next() {
		var v sql.NullString
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		if !v.Valid || isPlaceholder(v.String) {
			continue
		}
		out = append(out, strings.TrimSpace(v.String))
	}
	return out, rows.Err()
}

// distinctColumnQuery builds the distinct-values query for a fixed column and
// table. Callers only pass identifiers from the compile-time maps above,
// never request input.
func distinctColumnQuery(column, table, order string) string {
	return fmt.Sprintf(
		`SELECT DISTINCT %[1]s FROM %[2]s WHERE %[1]s IS NOT NULL AND %[1]s != '' ORDER BY %[1]s %[3]s`,
		column, table, order)
}

// isPlaceholder reports whether a catalog value is a sentinel left behind by
// ingestion (an empty string or a literal "none" token) rather than real data.
func isPlaceholder(v string) bool {
	t := strings.TrimSpace(v)
	return t == "" || strings.EqualFold(t, "none")
}
