package domain

// DefaultBenchmarkYear is the government rate-schedule year used when a
// request does not pin one.
const DefaultBenchmarkYear = 2025

// Benchmark rate columns added by enrichment.
const (
	ColMedicareProf        = "medicare_prof"
	ColMedicareASCStateAvg = "medicare_asc_stateavg"
	ColMedicareOPPSAvg     = "medicare_opps_stateavg"

	ColPctOfProfessional = "negotiated_rate_pct_of_medicare_professional"
	ColPctOfASC          = "negotiated_rate_pct_of_medicare_asc"
	ColPctOfOPPS         = "negotiated_rate_pct_of_medicare_opps"
)

// InstitutionalRates holds the precomputed state-average reference rates for
// the two institutional fee schedules. Nil means no rate published for the
// (code, state, year) key.
type InstitutionalRates struct {
	ASCStateAvg  *float64
	OPPSStateAvg *float64
}
