package domain

import (
	"sort"
	"strings"
)

// Filter field names accepted by the resolver, grouped by tier.
const (
	FieldPayerSlug    = "payer_slug"
	FieldState        = "state"
	FieldBillingClass = "billing_class"

	FieldProcedureSet = "procedure_set"
	FieldTaxonomyCode = "taxonomy_code"
	FieldTaxonomyDesc = "taxonomy_desc"
	FieldStatAreaName = "stat_area_name"

	FieldYear  = "year"
	FieldMonth = "month"
)

// RequiredFilterFields gate whether a partition search executes at all.
var RequiredFilterFields = []string{FieldPayerSlug, FieldState, FieldBillingClass}

// OptionalFilterFields narrow a search when present.
var OptionalFilterFields = []string{FieldProcedureSet, FieldTaxonomyCode, FieldTaxonomyDesc, FieldStatAreaName}

// TemporalFilterFields select a reporting period.
var TemporalFilterFields = []string{FieldYear, FieldMonth}

// ResolvedFilters is a filter request split into its three tiers. Payer is
// the only multi-valued field; all other fields hold the first non-blank
// value supplied.
type ResolvedFilters struct {
	// Required tier
	PayerSlugs   []string
	State        string
	BillingClass string

	// Optional tier
	ProcedureSet string
	TaxonomyCode string
	TaxonomyDesc string
	StatAreaName string

	// Temporal tier
	Year  string
	Month string
}

// HasAllRequired reports whether every required-tier filter is present.
func (f *ResolvedFilters) HasAllRequired() bool {
	return len(f.PayerSlugs) > 0 && f.State != "" && f.BillingClass != ""
}

// IsEmpty reports whether no filter at all is set.
func (f *ResolvedFilters) IsEmpty() bool {
	return len(f.CanonicalMap()) == 0
}

// CanonicalMap returns the filters as a map of non-empty values with
// multi-valued lists sorted. Two logically identical filter sets always
// produce identical canonical maps; the dataset cache fingerprints this form.
func (f *ResolvedFilters) CanonicalMap() map[string][]string {
	m := make(map[string][]string)
	if len(f.PayerSlugs) > 0 {
		payers := make([]string, len(f.PayerSlugs))
		copy(payers, f.PayerSlugs)
		sort.Strings(payers)
		m[FieldPayerSlug] = payers
	}
	for field, v := range map[string]string{
		FieldState:        f.State,
		FieldBillingClass: f.BillingClass,
		FieldProcedureSet: f.ProcedureSet,
		FieldTaxonomyCode: f.TaxonomyCode,
		FieldTaxonomyDesc: f.TaxonomyDesc,
		FieldStatAreaName: f.StatAreaName,
		FieldYear:         f.Year,
		FieldMonth:        f.Month,
	} {
		if strings.TrimSpace(v) != "" {
			m[field] = []string{v}
		}
	}
	return m
}
