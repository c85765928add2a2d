package domain

import (
	"strings"
	"time"
)

// CRMRecord is one completed-service event from the uploaded CRM CSV.
// Records are immutable once ingested.
type CRMRecord struct {
	CRMID      string
	Name       string
	Address1   string
	Address2   string
	City       string
	State      string
	PostalCode string
	JobDate    *time.Time
	JobValue   float64
}

// FullAddress joins the non-empty address components with single spaces.
func (c CRMRecord) FullAddress() string {
	return joinAddress(c.Address1, c.Address2, c.City, c.State, c.PostalCode)
}

func joinAddress(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
