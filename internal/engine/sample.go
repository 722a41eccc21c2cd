package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// sampleRecord mirrors the commercial-rates schema closely enough for option
// listing and local demos when no data file is present.
type sampleRecord struct {
	payer          string
	organization   string
	procedureSet   string
	procedureClass string
	billingCode    string
	billingClass   string
	state          string
	negotiatedRate float64
	matchedAddress string
}

// sampleRecords is a small deterministic stand-in dataset.
var sampleRecords = []sampleRecord{
	{"aetna", "Hospital A", "Cardiology", "Diagnostic", "99213", "professional", "GA", 125.50, "100 Peachtree St, Atlanta, GA 30303"},
	{"aetna", "Hospital A", "Orthopedics", "Surgery", "73721", "institutional", "GA", 842.00, "100 Peachtree St, Atlanta, GA 30303"},
	{"bcbs", "Clinic B", "Cardiology", "Consultation", "99214", "professional", "GA", 180.25, "22 Baker St, Savannah, GA 31401"},
	{"bcbs", "Clinic B", "Neurology", "Diagnostic", "99215", "professional", "TX", 210.00, "5 Main St, Houston, TX 77002"},
	{"cigna", "Center C", "General", "Treatment", "99232", "institutional", "TX", 495.75, "900 Elm Ave, Dallas, TX 75201"},
	{"cigna", "Center C", "Orthopedics", "Surgery", "73721", "institutional", "GA", 910.10, "12 Oak Rd, Augusta, GA 30901"},
	{"united", "Hospital D", "Cardiology", "Diagnostic", "99213", "professional", "TX", 99.99, "41 Bay St, Austin, TX 78701"},
	{"united", "Hospital D", "General", "Consultation", "99214", "institutional", "GA", 310.40, "77 River Dr, Macon, GA 31201"},
}

// createSampleTable materialises the synthetic dataset under the given
// relation name.
func createSampleTable(ctx context.Context, conn *sql.DB, name string) error {
	ddl := fmt.Sprintf(`CREATE TABLE %s (
		payer VARCHAR, organization VARCHAR, procedure_set VARCHAR,
		procedure_class VARCHAR, billing_code VARCHAR, billing_class VARCHAR,
		state VARCHAR, negotiated_rate DOUBLE, matched_address VARCHAR
	)`, name)
	if _, err := conn.ExecContext(ctx, ddl); err != nil {
		return err
	}

	var values []string
	for _, r := range sampleRecords {
		values = append(values, fmt.Sprintf("('%s','%s','%s','%s','%s','%s','%s',%v,'%s')",
			r.payer, r.organization, r.procedureSet, r.procedureClass,
			r.billingCode, r.billingClass, r.state, r.negotiatedRate, r.matchedAddress))
	}
	insert := fmt.Sprintf("INSERT INTO %s VALUES %s", name, strings.Join(values, ","))
	_, err := conn.ExecContext(ctx, insert)
	return err
}
