package domain

import "time"

// MailRecord is one outbound direct-mail event from the uploaded mail CSV.
// Records are immutable once ingested; the matcher never mutates them.
type MailRecord struct {
	ID         string
	Name       string
	Address1   string
	Address2   string
	City       string
	State      string
	PostalCode string
	SentDate   *time.Time
}

// FullAddress joins the non-empty address components with single spaces.
func (m MailRecord) FullAddress() string {
	return joinAddress(m.Address1, m.Address2, m.City, m.State, m.PostalCode)
}
