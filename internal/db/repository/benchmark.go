package repository

import (
	"context"
	"database/sql"
	"strings"

	"ratelens/internal/domain"
)

// Compile-time check: BenchmarkRepo implements domain.BenchmarkRepository.
var _ domain.BenchmarkRepository = (*BenchmarkRepo)(nil)

// BenchmarkRepo reads government reference rates from the benchmark store.
// Professional rates are derived on the fly from RVU, geographic cost index,
// and conversion-factor tables; institutional rates are precomputed state
// averages.
type BenchmarkRepo struct {
	db *sql.DB
}

// NewBenchmarkRepo creates a BenchmarkRepo on the given read pool.
func NewBenchmarkRepo(db *sql.DB) *BenchmarkRepo {
	return &BenchmarkRepo{db: db}
}

// professionalRateSQL computes the allowed amount for a procedure in one
// locality: each RVU component is scaled by its geographic index, summed,
// and multiplied by the annual conversion factor. The locality is found by
// mapping the ZIP to a carrier+locality and joining locality metadata to the
// cost-index table on the trimmed fee schedule area.
const professionalRateSQL = `
	SELECT
		(
			COALESCE(rvu.work_rvu, 0) * COALESCE(gpci.work_gpci, 0) +
			COALESCE(rvu.practice_expense_rvu, 0) * COALESCE(gpci.pe_gpci, 0) +
			COALESCE(rvu.malpractice_rvu, 0) * COALESCE(gpci.mp_gpci, 0)
		) * COALESCE(cf.conversion_factor, 0) AS allowed_amount
	FROM medicare_locality_map mloc
	JOIN medicare_locality_meta meta
		ON mloc.carrier_code = meta.mac_code
		AND mloc.locality_code = meta.locality_code
	JOIN cms_gpci gpci
		ON TRIM(meta.fee_schedule_area) = TRIM(gpci.locality_name)
		AND mloc.locality_code = gpci.locality_code
	JOIN cms_rvu rvu
		ON 1=1
	JOIN cms_conversion_factor cf
		ON gpci.year = cf.year
	WHERE mloc.zip_code = ?
		AND gpci.year = ?
		AND rvu.year = ?
		AND rvu.procedure_code = ?
		AND (rvu.modifier IS NULL OR rvu.modifier = '')
	LIMIT 1`

// ProfessionalRate returns the ZIP-specific professional reference rate for
// a procedure code, or nil when the store has no row for the key.
func (r *BenchmarkRepo) ProfessionalRate(ctx context.Context, code, zip string, year int) (*float64, error) {
	var amount sql.NullFloat64
	err := r.db.QueryRowContext(ctx, professionalRateSQL, zip, year, year, code).Scan(&amount)
	switch {
	case err == sql.ErrNoRows:
		return nil, nil
	case err != nil:
		return nil, &domain.BenchmarkLookupError{Code: code, Location: zip, Err: err}
	case !amount.Valid:
		return nil, nil
	}
	return &amount.Float64, nil
}

// professionalStateAvgSQL averages the locality-specific allowed amounts
// across every locality in a state.
const professionalStateAvgSQL = `
	SELECT AVG(
		(
			COALESCE(rvu.work_rvu, 0) * COALESCE(gpci.work_gpci, 0) +
			COALESCE(rvu.practice_expense_rvu, 0) * COALESCE(gpci.pe_gpci, 0) +
			COALESCE(rvu.malpractice_rvu, 0) * COALESCE(gpci.mp_gpci, 0)
		) * COALESCE(cf.conversion_factor, 0)
	) AS state_avg_allowed_amount
	FROM medicare_locality_map mloc
	JOIN medicare_locality_meta meta
		ON mloc.carrier_code = meta.mac_code
		AND mloc.locality_code = meta.locality_code
	JOIN cms_gpci gpci
		ON TRIM(meta.fee_schedule_area) = TRIM(gpci.locality_name)
		AND mloc.locality_code = gpci.locality_code
	JOIN cms_rvu rvu
		ON 1=1
	JOIN cms_conversion_factor cf
		ON gpci.year = cf.year
	WHERE mloc.state_code = ?
		AND gpci.year = ?
		AND rvu.year = ?
		AND rvu.procedure_code = ?
		AND (rvu.modifier IS NULL OR rvu.modifier = '')`

// ProfessionalStateAverage returns the state-average professional reference
// rate for a procedure code, or nil when no locality in the state has one.
func (r *BenchmarkRepo) ProfessionalStateAverage(ctx context.Context, code, state string, year int) (*float64, error) {
	var amount sql.NullFloat64
	err := r.db.QueryRowContext(ctx, professionalStateAvgSQL,
		strings.ToUpper(state), year, year, code).Scan(&amount)
	switch {
	case err == sql.ErrNoRows:
		return nil, nil
	case err != nil:
		return nil, &domain.BenchmarkLookupError{Code: code, Location: state, Err: err}
	case !amount.Valid:
		return nil, nil
	}
	return &amount.Float64, nil
}

// InstitutionalRates returns the precomputed ASC and OPPS state averages for
// a procedure code. Either rate may be nil independently.
func (r *BenchmarkRepo) InstitutionalRates(ctx context.Context, code, state string, year int) (domain.InstitutionalRates, error) {
	var rates domain.InstitutionalRates

	asc, err := r.stateAverage(ctx,
		`SELECT medicare_asc_stateavg FROM bench_medicare_asc
		 WHERE code = ? AND state = ? AND data_year = ? LIMIT 1`,
		code, state, year)
	if err != nil {
		return rates, err
	}
	rates.ASCStateAvg = asc

	opps, err := r.stateAverage(ctx,
		`SELECT medicare_opps_stateavg FROM bench_medicare_opps
		 WHERE code = ? AND state = ? AND data_year = ? LIMIT 1`,
		code, state, year)
	if err != nil {
		return rates, err
	}
	rates.OPPSStateAvg = opps

	return rates, nil
}

func (r *BenchmarkRepo) stateAverage(ctx context.Context, query, code, state string, year int) (*float64, error) {
	var rate sql.NullFloat64
	err := r.db.QueryRowContext(ctx, query, code, strings.ToUpper(state), year).Scan(&rate)
	switch {
	case err == sql.ErrNoRows:
		return nil, nil
	case err != nil:
		return nil, &domain.BenchmarkLookupError{Code: code, Location: state, Err: err}
	case !rate.Valid:
		return nil, nil
	}
	return &rate.Float64, nil
}
