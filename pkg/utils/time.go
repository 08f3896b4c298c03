package utils

import "time"

// FormatTimestamp renders t as RFC3339 in UTC, the form stored in
// created_at and updated_at.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// NowTimestamp returns the current time as FormatTimestamp does
func NowTimestamp() string {
	return FormatTimestamp(time.Now())
}

// ParseTimestamp parses an RFC3339 timestamp
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
