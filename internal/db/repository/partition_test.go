package repository

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internaldb "ratelens/internal/db"
	"ratelens/internal/domain"
)

func seedCatalog(t *testing.T, db *sql.DB) {
	t.Helper()

	partitions := []struct {
		location, payer, state, class, procSet, year, month string
		sizeMB                                              float64
		records                                             int64
	}{
		{"s3://rates/aetna-ga-prof-1.parquet", "aetna", "GA", "professional", "Cardiology", "2025", "06", 120.0, 50000},
		{"s3://rates/aetna-ga-prof-2.parquet", "aetna", "GA", "professional", "Orthopedics", "2025", "06", 340.5, 90000},
		{"s3://rates/aetna-tx-inst.parquet", "aetna", "TX", "institutional", "none", "2025", "05", 80.0, 20000},
		{"s3://rates/bcbs-ga-prof.parquet", "bcbs", "GA", "professional", "Cardiology", "2024", "12", 210.0, 61000},
	}
	for _, p := range partitions {
		_, err := db.Exec(`INSERT INTO partitions
			(location, payer_slug, state, billing_class, procedure_set, year, month, file_size_mb, estimated_records)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.location, p.payer, p.state, p.class, p.procSet, p.year, p.month, p.sizeMB, p.records)
		require.NoError(t, err)
	}

	for _, payer := range [][2]string{
		{"aetna", "Aetna Health"},
		{"bcbs", "Blue Cross Blue Shield"},
	} {
		_, err := db.Exec(`INSERT INTO dim_payers (payer_slug, payer_display_name) VALUES (?, ?)`,
			payer[0], payer[1])
		require.NoError(t, err)
	}

	_, err := db.Exec(`INSERT INTO dim_taxonomies (taxonomy_code, taxonomy_desc) VALUES
		('207R00000X', 'Internal Medicine'), ('208D00000X', 'General Practice')`)
	require.NoError(t, err)
}

func TestPartitionRepo_Search(t *testing.T) {
	writeDB, readDB := internaldb.OpenTestCatalog(t)
	seedCatalog(t, writeDB)
	repo := NewPartitionRepo(readDB)
	ctx := context.Background()

	t.Run("ordered_by_size_desc", func(t *testing.T) {
		got, err := repo.Search(ctx, &domain.ResolvedFilters{
			PayerSlugs: []string{"aetna"}, State: "GA", BillingClass: "professional",
		}, 1000)

		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "s3://rates/aetna-ga-prof-2.parquet", got[0].Location)
		assert.Equal(t, "s3://rates/aetna-ga-prof-1.parquet", got[1].Location)
		assert.Equal(t, "Aetna Health", got[0].PayerDisplayName)
	})

	t.Run("multi_payer_in_clause", func(t *testing.T) {
		got, err := repo.Search(ctx, &domain.ResolvedFilters{
			PayerSlugs: []string{"aetna", "bcbs"}, State: "GA", BillingClass: "professional",
		}, 1000)

		require.NoError(t, err)
		assert.Len(t, got, 3)
	})

	t.Run("optional_and_temporal_filters_narrow", func(t *testing.T) {
		got, err := repo.Search(ctx, &domain.ResolvedFilters{
			PayerSlugs: []string{"aetna", "bcbs"}, State: "GA", BillingClass: "professional",
			ProcedureSet: "Cardiology", Year: "2025",
		}, 1000)

		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "s3://rates/aetna-ga-prof-1.parquet", got[0].Location)
	})

	t.Run("limit_applied", func(t *testing.T) {
		got, err := repo.Search(ctx, &domain.ResolvedFilters{
			PayerSlugs: []string{"aetna", "bcbs"},
		}, 2)

		require.NoError(t, err)
		require.Len(t, got, 2)
		// The two largest survive the cap.
		assert.Equal(t, "s3://rates/aetna-ga-prof-2.parquet", got[0].Location)
		assert.Equal(t, "s3://rates/bcbs-ga-prof.parquet", got[1].Location)
	})

	t.Run("no_match", func(t *testing.T) {
		got, err := repo.Search(ctx, &domain.ResolvedFilters{
			PayerSlugs: []string{"cigna"}, State: "GA", BillingClass: "professional",
		}, 1000)

		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestPartitionRepo_FilterOptions(t *testing.T) {
	writeDB, readDB := internaldb.OpenTestCatalog(t)
	seedCatalog(t, writeDB)
	repo := NewPartitionRepo(readDB)

	opts, err := repo.FilterOptions(context.Background())
	require.NoError(t, err)

	t.Run("payers_formatted_with_display_name", func(t *testing.T) {
		assert.Equal(t, []string{"aetna|Aetna Health", "bcbs|Blue Cross Blue Shield"},
			opts[domain.FieldPayerSlug])
	})

	t.Run("placeholders_excluded", func(t *testing.T) {
		// The TX institutional partition carries procedure_set='none'.
		assert.Equal(t, []string{"Cardiology", "Orthopedics"}, opts[domain.FieldProcedureSet])
	})

	t.Run("temporal_values_newest_first", func(t *testing.T) {
		assert.Equal(t, []string{"2025", "2024"}, opts[domain.FieldYear])
		assert.Equal(t, []string{"12", "06", "05"}, opts[domain.FieldMonth])
	})

	t.Run("taxonomies_from_dimension_table", func(t *testing.T) {
		assert.Equal(t, []string{"207R00000X", "208D00000X"}, opts[domain.FieldTaxonomyCode])
		assert.Equal(t, []string{"General Practice", "Internal Medicine"}, opts[domain.FieldTaxonomyDesc])
	})
}
