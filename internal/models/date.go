package models

import (
	"fmt"
	"time"
)

// DateLayout is the storage and wire format of calendar dates
const DateLayout = "2006-01-02"

// Date truncates t to midnight UTC of its calendar day
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// FormatDate renders a calendar date as YYYY-MM-DD
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses user input, which must be exactly YYYY-MM-DD
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t, nil
}

// ScanDate reads a DATE column. Drivers return it either as "2024-09-20"
// or as an RFC 3339 timestamp, so only the first ten characters are
// significant.
func ScanDate(s string) (time.Time, error) {
	if len(s) < len(DateLayout) {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return time.ParseInLocation(DateLayout, s[:len(DateLayout)], time.UTC)
}
