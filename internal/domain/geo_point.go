package domain

import "time"

// GeoPointKind distinguishes which side of a run a point belongs to.
type GeoPointKind string

const (
	GeoPointMail  GeoPointKind = "mail"
	GeoPointCRM   GeoPointKind = "crm"
	GeoPointMatch GeoPointKind = "match"
)

// GeoPoint is a geocoded address used by the map view.
type GeoPoint struct {
	ID        int64        `gorm:"primaryKey;autoIncrement" json:"id"`
	RunID     string       `gorm:"type:text;index" json:"run_id"`
	Kind      GeoPointKind `gorm:"type:text;index" json:"kind"`
	Label     string       `gorm:"type:text" json:"label"`
	Address   string       `gorm:"type:text" json:"address"`
	Lat       float64      `json:"lat"`
	Lon       float64      `json:"lon"`
	EventDate *time.Time   `json:"event_date,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// TableName returns the database table name for GeoPoint.
func (GeoPoint) TableName() string {
	return "geo_points"
}
