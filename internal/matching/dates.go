package matching

import (
	"strings"
	"time"
)

// Accepted input layouts, tried in order. Slashes are normalized to dashes
// first so "01/02/2024" and "01-02-2024" hit the same layout.
var dateLayouts = []string{
	"2006-01-02",
	"01-02-2006",
	"02-01-2006",
	"2006-01-2",
	"1-2-2006",
	"01-02-06",
	"1-2-06",
	"02-01-06",
}

// ParseDate parses a date in any of the layouts the mail and CRM exports use.
// Returns nil when the string is empty or matches no known layout.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	z := strings.ReplaceAll(s, "/", "-")
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, z); err == nil {
			d = d.UTC().Truncate(24 * time.Hour)
			return &d
		}
	}
	return nil
}

// FormatMMDDYY renders a date as mm-dd-yy, the display format the report
// summary uses. Nil dates render as "None provided".
func FormatMMDDYY(d *time.Time) string {
	if d == nil {
		return "None provided"
	}
	return d.Format("01-02-06")
}

// daysBetween returns the whole days from a to b (positive when b is later).
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
