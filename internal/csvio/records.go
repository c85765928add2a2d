package csvio

import (
	"strconv"

	"github.com/ZAX3000/mailtrace/internal/domain"
	"github.com/ZAX3000/mailtrace/internal/matching"
)

// Header alias lists, canonical name first. Lifted from the column variants
// observed across mail-provider and CRM exports.
var (
	mailIDAliases    = []string{"id", "mail_id"}
	crmIDAliases     = []string{"crm_id", "id", "lead_id", "job_id"}
	nameAliases      = []string{"name", "full_name", "recipient", "customer"}
	address1Aliases  = []string{"address1", "addr1", "address", "street", "line1"}
	address2Aliases  = []string{"address2", "addr2", "unit", "line2"}
	cityAliases      = []string{"city", "town"}
	stateAliases     = []string{"state", "st"}
	postalAliases    = []string{"postal_code", "zip", "zipcode", "zip_code"}
	sentDateAliases  = []string{"sent_date", "date", "mail_date"}
	jobDateAliases   = []string{"job_date", "date", "completed_at", "created_at"}
	jobValueAliases  = []string{"job_value", "amount", "value", "revenue"}
)

// MailRecords maps a decoded table onto mail records. Dates that fail to
// parse come through as nil; the matcher decides what is malformed.
func MailRecords(t *Table) []domain.MailRecord {
	out := make([]domain.MailRecord, 0, len(t.Rows))
	for _, row := range t.Rows {
		out = append(out, domain.MailRecord{
			ID:         lookup(row, mailIDAliases),
			Name:       lookup(row, nameAliases),
			Address1:   lookup(row, address1Aliases),
			Address2:   lookup(row, address2Aliases),
			City:       lookup(row, cityAliases),
			State:      lookup(row, stateAliases),
			PostalCode: lookup(row, postalAliases),
			SentDate:   matching.ParseDate(lookup(row, sentDateAliases)),
		})
	}
	return out
}

// CRMRecords maps a decoded table onto CRM records.
func CRMRecords(t *Table) []domain.CRMRecord {
	out := make([]domain.CRMRecord, 0, len(t.Rows))
	for _, row := range t.Rows {
		value, _ := strconv.ParseFloat(lookup(row, jobValueAliases), 64)
		out = append(out, domain.CRMRecord{
			CRMID:      lookup(row, crmIDAliases),
			Name:       lookup(row, nameAliases),
			Address1:   lookup(row, address1Aliases),
			Address2:   lookup(row, address2Aliases),
			City:       lookup(row, cityAliases),
			State:      lookup(row, stateAliases),
			PostalCode: lookup(row, postalAliases),
			JobDate:    matching.ParseDate(lookup(row, jobDateAliases)),
			JobValue:   value,
		})
	}
	return out
}
