package domain

import "time"

// Match is one accepted pairing between a mail record and a CRM record,
// persisted as part of a Run. Never mutated after creation.
type Match struct {
	ID                 int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	RunID              string     `gorm:"type:text;not null;index" json:"run_id"`
	CRMID              string     `gorm:"type:text" json:"crm_id"`
	CRMJobDate         *time.Time `gorm:"index" json:"crm_job_date,omitempty"`
	JobValue           float64    `gorm:"default:0" json:"job_value"`
	MailID             string     `gorm:"type:text" json:"mail_id"`
	MatchedMailAddress string     `gorm:"type:text" json:"matched_mail_address"`
	MailDatesInWindow  string     `gorm:"type:text" json:"mail_dates_in_window"`
	MailCountInWindow  int        `gorm:"default:0" json:"mail_count_in_window"`
	ConfidencePercent  int        `gorm:"default:0" json:"confidence_percent"`
	MatchNotes         string     `gorm:"type:text" json:"match_notes"`
	CRMCity            string     `gorm:"type:text" json:"crm_city"`
	CRMState           string     `gorm:"type:text" json:"crm_state"`
	CRMZip             string     `gorm:"type:text" json:"crm_zip"`
	Zip5               string     `gorm:"type:text;size:5" json:"zip5"`
	StateCode          string     `gorm:"type:text;size:2" json:"state_code"`
	LastMailDate       *time.Time `json:"last_mail_date,omitempty"`
}

// TableName returns the database table name for Match.
func (Match) TableName() string {
	return "matches"
}
