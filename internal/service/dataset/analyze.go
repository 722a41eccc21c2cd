package dataset

import (
	"sort"
	"strconv"

	"ratelens/internal/domain"
)

// categoricalCardinalityCap bounds which text columns get top-value counts;
// above this a column is treated as free text and skipped.
const categoricalCardinalityCap = 25

// topValueLimit caps how many distinct values a categorical summary reports.
const topValueLimit = 10

// NumericSummary describes one numeric column of a combined dataset.
type NumericSummary struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// ValueCount is one categorical value with its occurrence count.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Analysis summarizes a combined dataset's shape and column contents.
type Analysis struct {
	RowCount    int                       `json:"row_count"`
	ColumnCount int                       `json:"column_count"`
	Columns     []string                  `json:"columns"`
	Numeric     map[string]NumericSummary `json:"numeric_columns"`
	Categorical map[string][]ValueCount   `json:"categorical_columns"`
}

// Analyze profiles a combined dataset: numeric columns get count/mean/min/max,
// low-cardinality text columns get top-value counts. Provenance columns are
// excluded.
func Analyze(ds *domain.Dataset) *Analysis {
	analysis := &Analysis{
		RowCount:    len(ds.Rows),
		ColumnCount: len(ds.Columns),
		Columns:     ds.Columns,
		Numeric:     make(map[string]NumericSummary),
		Categorical: make(map[string][]ValueCount),
	}

	for _, col := range ds.Columns {
		if isProvenanceColumn(col) {
			continue
		}
		numeric, counts := profileColumn(ds.Rows, col)
		if numeric != nil {
			analysis.Numeric[col] = *numeric
			continue
		}
		if len(counts) > 0 && len(counts) <= categoricalCardinalityCap {
			analysis.Categorical[col] = topValues(counts, topValueLimit)
		}
	}
	return analysis
}

func isProvenanceColumn(name string) bool {
	return name == domain.ColPartitionSource ||
		name == domain.ColPartitionIndex ||
		name == domain.ColLoadTimestamp
}

// profileColumn scans one column. If at least one numeric value is seen and
// no non-numeric text is, it returns a numeric summary; otherwise it returns
// the distinct-value counts.
func profileColumn(rows []domain.Row, col string) (*NumericSummary, map[string]int) {
	counts := make(map[string]int)
	sum := 0.0
	var minVal, maxVal float64
	numericCount := 0
	textSeen := false

	for _, row := range rows {
		val, ok := row[col]
		if !ok || val == nil {
			continue
		}
		if f, ok := asFloat(val); ok {
			if numericCount == 0 || f < minVal {
				minVal = f
			}
			if numericCount == 0 || f > maxVal {
				maxVal = f
			}
			sum += f
			numericCount++
			continue
		}
		textSeen = true
		counts[asString(val)]++
	}

	if numericCount > 0 && !textSeen {
		return &NumericSummary{
			Count: numericCount,
			Mean:  sum / float64(numericCount),
			Min:   minVal,
			Max:   maxVal,
		}, nil
	}
	return nil, counts
}

func asFloat(val interface{}) (float64, bool) {
	switch v := val.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}

func asString(val interface{}) string {
	switch v := val.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

func topValues(counts map[string]int, limit int) []ValueCount {
	out := make([]ValueCount, 0, len(counts))
	for value, count := range counts {
		out = append(out, ValueCount{Value: value, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
