package matching

import (
	"fmt"
	"math"
)

// Config holds the tunable knobs for one matching run. The three weights must
// form a convex combination; validation happens before any records are touched.
type Config struct {
	NameWeight      float64
	AddressWeight   float64
	DateWeight      float64
	DateWindowDays  int
	AcceptThreshold float64
	BatchSize       int
}

// DefaultConfig returns the weights and thresholds used when the caller does
// not override them. Address similarity dominates because the mail and CRM
// exports rarely carry reliable recipient names.
func DefaultConfig() Config {
	return Config{
		NameWeight:      0.15,
		AddressWeight:   0.65,
		DateWeight:      0.20,
		DateWindowDays:  180,
		AcceptThreshold: 0.80,
		BatchSize:       200,
	}
}

// ConfigError marks an invalid matcher configuration. It is fatal and is
// reported before any job starts.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "matching config: " + e.Reason
}

const weightEpsilon = 1e-6

// Validate checks that the configuration is usable. A nil return guarantees
// the matcher cannot fail on configuration grounds afterwards.
func (c Config) Validate() error {
	for name, w := range map[string]float64{
		"name_weight":    c.NameWeight,
		"address_weight": c.AddressWeight,
		"date_weight":    c.DateWeight,
	} {
		if w < 0 || w > 1 {
			return &ConfigError{Reason: fmt.Sprintf("%s %v outside [0,1]", name, w)}
		}
	}
	sum := c.NameWeight + c.AddressWeight + c.DateWeight
	if math.Abs(sum-1.0) > weightEpsilon {
		return &ConfigError{Reason: fmt.Sprintf("weights sum to %v, want 1.0", sum)}
	}
	if c.AcceptThreshold < 0 || c.AcceptThreshold > 1 {
		return &ConfigError{Reason: fmt.Sprintf("accept_threshold %v outside [0,1]", c.AcceptThreshold)}
	}
	if c.DateWindowDays <= 0 {
		return &ConfigError{Reason: fmt.Sprintf("date_window_days %d must be positive", c.DateWindowDays)}
	}
	if c.BatchSize <= 0 {
		return &ConfigError{Reason: fmt.Sprintf("batch_size %d must be positive", c.BatchSize)}
	}
	return nil
}
