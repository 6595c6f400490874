package utils

import (
	"fmt"
	"time"
)

// ParseEvidenceDate returns a time from an ISO-8601 string. Dates arrive from
// collection pipelines either as full RFC 3339 timestamps or bare dates.
func ParseEvidenceDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time: %w", err)
	}
	return t, nil
}
