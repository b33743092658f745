package shared

import (
	"strconv"
	"strings"
	"time"
)

// ParseDate accepts RFC3339 or YYYY-MM-DD.
func ParseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed, nil
	}
	return time.Parse("2006-01-02", value)
}

// Year parses a four digit year, falling back to the current year when raw is empty.
func (v *Validator) Year(field, raw string, now time.Time) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now.Year()
	}
	year, err := strconv.Atoi(raw)
	if err != nil || len(raw) != 4 {
		v.Add(field, "must be a four digit year")
		return 0
	}
	return year
}
