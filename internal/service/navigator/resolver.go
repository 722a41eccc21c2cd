// Package navigator resolves filter requests and discovers matching catalog
// partitions, with a TTL cache over partition selections.
package navigator

import (
	"strings"

	"ratelens/internal/domain"
)

// placeholderValue is the sentinel some upstream exporters emit for "no
// value"; it is treated the same as blank.
const placeholderValue = "none"

// ResolveFilters splits raw key/value pairs into the three filter tiers.
// Blank and placeholder values are dropped. Payer is multi-valued and keeps
// every distinct value supplied; all other fields take the first usable
// value. Unknown filter names are a FilterError.
//
// Missing required filters are NOT an error here: option-listing calls need
// results from partially specified filters, so that check belongs to the
// navigator, gated by requireTopLevels.
func ResolveFilters(raw map[string][]string) (*domain.ResolvedFilters, error) {
	resolved := &domain.ResolvedFilters{}

	for name, values := range raw {
		cleaned := cleanValues(values)
		if len(cleaned) == 0 {
			continue
		}
		switch name {
		case domain.FieldPayerSlug:
			resolved.PayerSlugs = cleaned
		case domain.FieldState:
			resolved.State = cleaned[0]
		case domain.FieldBillingClass:
			resolved.BillingClass = cleaned[0]
		case domain.FieldProcedureSet:
			resolved.ProcedureSet = cleaned[0]
		case domain.FieldTaxonomyCode:
			resolved.TaxonomyCode = cleaned[0]
		case domain.FieldTaxonomyDesc:
			resolved.TaxonomyDesc = cleaned[0]
		case domain.FieldStatAreaName:
			resolved.StatAreaName = cleaned[0]
		case domain.FieldYear:
			resolved.Year = cleaned[0]
		case domain.FieldMonth:
			resolved.Month = cleaned[0]
		default:
			return nil, domain.ErrFilter("unknown filter %q", name)
		}
	}

	return resolved, nil
}

// cleanValues trims values and drops blanks, placeholders, and duplicates,
// preserving first-seen order.
func cleanValues(values []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		t := strings.TrimSpace(v)
		if t == "" || strings.EqualFold(t, placeholderValue) {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
