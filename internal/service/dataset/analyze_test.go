package dataset

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ratelens/internal/domain"
)

func sampleDataset() *domain.Dataset {
	return &domain.Dataset{
		Columns: []string{"billing_code", "negotiated_rate", domain.ColPartitionSource},
		Rows: []domain.Row{
			{"billing_code": "99213", "negotiated_rate": 100.0, domain.ColPartitionSource: "a"},
			{"billing_code": "99213", "negotiated_rate": 200.0, domain.ColPartitionSource: "a"},
			{"billing_code": "99214", "negotiated_rate": 300.0, domain.ColPartitionSource: "b"},
		},
	}
}

func TestAnalyze(t *testing.T) {
	analysis := Analyze(sampleDataset())

	assert.Equal(t, 3, analysis.RowCount)
	assert.Equal(t, 3, analysis.ColumnCount)

	t.Run("numeric_summary", func(t *testing.T) {
		rate, ok := analysis.Numeric["negotiated_rate"]
		require.True(t, ok)
		assert.Equal(t, 3, rate.Count)
		assert.InDelta(t, 200.0, rate.Mean, 1e-9)
		assert.InDelta(t, 100.0, rate.Min, 1e-9)
		assert.InDelta(t, 300.0, rate.Max, 1e-9)
	})

	t.Run("categorical_top_values", func(t *testing.T) {
		codes, ok := analysis.Categorical["billing_code"]
		require.True(t, ok)
		assert.Equal(t, []ValueCount{
			{Value: "99213", Count: 2},
			{Value: "99214", Count: 1},
		}, codes)
	})

	t.Run("provenance_columns_skipped", func(t *testing.T) {
		_, numeric := analysis.Numeric[domain.ColPartitionSource]
		_, categorical := analysis.Categorical[domain.ColPartitionSource]
		assert.False(t, numeric)
		assert.False(t, categorical)
	})

	t.Run("nulls_ignored", func(t *testing.T) {
		ds := &domain.Dataset{
			Columns: []string{"rate"},
			Rows: []domain.Row{
				{"rate": 10.0},
				{"rate": nil},
				{},
			},
		}

		got := Analyze(ds)

		assert.Equal(t, 1, got.Numeric["rate"].Count)
	})
}

func TestExportCSV(t *testing.T) {
	var buf bytes.Buffer

	err := ExportCSV(&buf, sampleDataset())

	require.NoError(t, err)
	assert.Equal(t,
		"billing_code,negotiated_rate,_partition_source\n"+
			"99213,100,a\n"+
			"99213,200,a\n"+
			"99214,300,b\n",
		buf.String())
}

func TestExportCSV_MissingCells(t *testing.T) {
	var buf bytes.Buffer
	ds := &domain.Dataset{
		Columns: []string{"a", "b"},
		Rows:    []domain.Row{{"a": "x"}},
	}

	err := ExportCSV(&buf, ds)

	require.NoError(t, err)
	assert.Equal(t, "a,b\nx,\n", buf.String())
}
