package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the storage format for date-only columns.
const DateLayout = "2006-01-02"

// FormatTime serializes a timestamp for storage.
func FormatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

// FormatDate serializes a date-only value for storage.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// NullTime returns a storable value for a timestamp column: nil when zero.
func NullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return FormatTime(t)
}

// NullDate returns a storable value for a date column: nil when zero.
func NullDate(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return FormatDate(t)
}

// NullString returns a storable value for a text column: nil when empty.
func NullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// ParseStoredTime parses a timestamp written by any historical version of
// the serializer. SQLite stores times as text, and the format drifted over
// time, so several layouts are accepted.
func ParseStoredTime(value string) (time.Time, error) {
	if idx := strings.Index(value, " m="); idx != -1 {
		value = value[:idx]
	}
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05.999999999 -0700 MST",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		DateLayout,
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported time format: %q", value)
}

// ParseNullTime parses a nullable timestamp column; NULL or empty maps to
// the zero time.
func ParseNullTime(ns sql.NullString) (time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return time.Time{}, nil
	}
	return ParseStoredTime(ns.String)
}
