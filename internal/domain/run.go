package domain

import "time"

// RunStatus represents the lifecycle state of a matching run.
// Values include RunStatusRunning, RunStatusCompleted, RunStatusFailed,
// and RunStatusCancelled.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Run records one complete execution of the matching algorithm over a pair of
// uploaded record sets, including its aggregate KPIs.
type Run struct {
	ID            string     `gorm:"type:text;primaryKey" json:"id"`
	MailCSVURL    string     `gorm:"type:text" json:"mail_csv_url,omitempty"`
	CRMCSVURL     string     `gorm:"type:text" json:"crm_csv_url,omitempty"`
	MailCount     int        `gorm:"default:0" json:"mail_count"`
	CRMCount      int        `gorm:"default:0" json:"crm_count"`
	MatchCount    int        `gorm:"default:0" json:"match_count"`
	SkippedMail   int        `gorm:"default:0" json:"skipped_mail"`
	SkippedCRM    int        `gorm:"default:0" json:"skipped_crm"`
	MatchRate     float64    `gorm:"default:0" json:"match_rate"`
	AvgConfidence float64    `gorm:"default:0" json:"avg_confidence"`
	MatchRevenue  float64    `gorm:"default:0" json:"match_revenue"`
	Status        RunStatus  `gorm:"type:text;default:running;index" json:"status"`
	Error         string     `gorm:"type:text" json:"error,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
}

// TableName returns the database table name for Run.
func (Run) TableName() string {
	return "runs"
}
