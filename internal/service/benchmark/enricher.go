// Package benchmark enriches combined rate datasets with government
// reference rates and percent-of-benchmark columns.
package benchmark

import (
	"context"
	"log/slog"
	"math"
	"regexp"
	"strconv"

	"ratelens/internal/domain"
)

// zipPattern matches the first 5-digit run in a free-form address.
var zipPattern = regexp.MustCompile(`\d{5}`)

// Row columns the enricher reads.
const (
	colNegotiatedRate = "negotiated_rate"
	colRateFallback   = "rate"
	colBillingCode    = "billing_code"
	colBillingClass   = "billing_class"
	colState          = "state"
	colMatchedAddress = "matched_address"
)

// Enricher appends reference-rate and percent-of-benchmark columns to a
// combined dataset. Lookups are deduplicated per distinct key, so rows
// sharing a (code, zip) or (code, state) pair cost one repository call.
type Enricher struct {
	repo   domain.BenchmarkRepository
	year   int
	logger *slog.Logger
}

// NewEnricher wires an enricher over a benchmark repository. year selects
// the rate schedule; zero means the default year.
func NewEnricher(repo domain.BenchmarkRepository, year int, logger *slog.Logger) *Enricher {
	if year == 0 {
		year = domain.DefaultBenchmarkYear
	}
	return &Enricher{
		repo:   repo,
		year:   year,
		logger: logger.With("component", "enricher"),
	}
}

type profKey struct{ code, zip string }
type instKey struct{ code, state string }

// Enrich mutates ds in place. Professional rows get the professional rate
// and its percentage; institutional rows get ASC and OPPS state averages and
// their percentages; rows with any other billing class get all three. A
// failed lookup leaves that key's columns nil and the load continues.
func (e *Enricher) Enrich(ctx context.Context, ds *domain.Dataset) error {
	if len(ds.Rows) == 0 {
		return nil
	}

	profRates := make(map[profKey]*float64)
	instRates := make(map[instKey]domain.InstitutionalRates)
	unknownClassWarned := false

	// First pass: collect the distinct lookup keys each row needs.
	for _, row := range ds.Rows {
		code := stringCell(row, colBillingCode)
		if code == "" {
			continue
		}
		class := stringCell(row, colBillingClass)
		wantProf, wantInst := classRouting(class)
		applyAll := !wantProf && !wantInst
		if applyAll && !unknownClassWarned {
			e.logger.Warn("unrecognized billing class, applying all benchmarks", "billing_class", class)
			unknownClassWarned = true
		}
		if wantProf || applyAll {
			if zip := deriveZip(stringCell(row, colMatchedAddress)); zip != "" {
				profRates[profKey{code, zip}] = nil
			}
		}
		if wantInst || applyAll {
			if state := stringCell(row, colState); state != "" {
				instRates[instKey{code, state}] = domain.InstitutionalRates{}
			}
		}
	}

	// Resolve each distinct key once.
	for key := range profRates {
		rate, err := e.repo.ProfessionalRate(ctx, key.code, key.zip, e.year)
		if err != nil {
			e.logger.Warn("professional rate lookup failed", "code", key.code, "zip", key.zip, "error", err)
			continue
		}
		profRates[key] = rate
	}
	for key := range instRates {
		rates, err := e.repo.InstitutionalRates(ctx, key.code, key.state, e.year)
		if err != nil {
			e.logger.Warn("institutional rate lookup failed", "code", key.code, "state", key.state, "error", err)
			continue
		}
		instRates[key] = rates
	}

	// Second pass: stamp rates and percentages onto each row.
	for _, row := range ds.Rows {
		code := stringCell(row, colBillingCode)
		class := stringCell(row, colBillingClass)
		wantProf, wantInst := classRouting(class)
		applyAll := !wantProf && !wantInst
		negotiated := negotiatedRate(row)

		if wantProf || applyAll {
			var prof *float64
			if zip := deriveZip(stringCell(row, colMatchedAddress)); zip != "" && code != "" {
				prof = profRates[profKey{code, zip}]
			}
			setRate(row, domain.ColMedicareProf, prof)
			setRate(row, domain.ColPctOfProfessional, Percentage(negotiated, prof))
		}
		if wantInst || applyAll {
			var rates domain.InstitutionalRates
			if state := stringCell(row, colState); state != "" && code != "" {
				rates = instRates[instKey{code, state}]
			}
			setRate(row, domain.ColMedicareASCStateAvg, rates.ASCStateAvg)
			setRate(row, domain.ColPctOfASC, Percentage(negotiated, rates.ASCStateAvg))
			setRate(row, domain.ColMedicareOPPSAvg, rates.OPPSStateAvg)
			setRate(row, domain.ColPctOfOPPS, Percentage(negotiated, rates.OPPSStateAvg))
		}
	}

	for _, col := range enrichmentColumns() {
		ds.AddColumn(col)
	}
	return nil
}

// Percentage computes the negotiated rate as a percent of a benchmark,
// rounded to two decimals. It is nil when either operand is missing, the
// benchmark is not positive, or the negotiated rate is negative.
func Percentage(negotiated, benchmark *float64) *float64 {
	if negotiated == nil || benchmark == nil {
		return nil
	}
	if *benchmark <= 0 || *negotiated < 0 {
		return nil
	}
	pct := math.Round(*negotiated / *benchmark * 100 * 100) / 100
	return &pct
}

// classRouting maps a billing class to the benchmark families it receives.
// Unrecognized classes get (false, false), which the caller treats as "all".
func classRouting(class string) (professional, institutional bool) {
	switch class {
	case "professional":
		return true, false
	case "institutional":
		return false, true
	default:
		return false, false
	}
}

func enrichmentColumns() []string {
	return []string{
		domain.ColMedicareProf,
		domain.ColPctOfProfessional,
		domain.ColMedicareASCStateAvg,
		domain.ColPctOfASC,
		domain.ColMedicareOPPSAvg,
		domain.ColPctOfOPPS,
	}
}

// deriveZip extracts a 5-digit ZIP from a matched address, empty when none.
func deriveZip(address string) string {
	return zipPattern.FindString(address)
}

func setRate(row domain.Row, col string, val *float64) {
	if val == nil {
		row[col] = nil
		return
	}
	row[col] = *val
}

func stringCell(row domain.Row, col string) string {
	switch v := row[col].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return ""
	}
}

// negotiatedRate reads the row's negotiated rate, tolerating the column
// name and value encodings seen across payer exports.
func negotiatedRate(row domain.Row) *float64 {
	for _, col := range []string{colNegotiatedRate, colRateFallback} {
		val, ok := row[col]
		if !ok || val == nil {
			continue
		}
		switch v := val.(type) {
		case float64:
			return &v
		case float32:
			f := float64(v)
			return &f
		case int64:
			f := float64(v)
			return &f
		case int:
			f := float64(v)
			return &f
		case string:
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return &f
			}
		}
	}
	return nil
}
