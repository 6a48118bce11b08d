package utils

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar-date form accepted for due and return dates
const DateLayout = "2006-01-02"

var acceptedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	DateLayout,
}

// ParseDate parses a client-supplied date. Values without a zone are read
// in loc; a bare calendar date is taken at midnight.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if loc == nil {
		loc = time.UTC
	}

	for _, layout := range acceptedLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized date %q, expected YYYY-MM-DD or RFC 3339", value)
}

// StartOfDay truncates t to midnight in its own location
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// IsDateOverdue checks if a due date has passed as of now.
// A due date on the current calendar day is not yet overdue.
func IsDateOverdue(dueDate, now time.Time) bool {
	return StartOfDay(now.In(dueDate.Location())).After(StartOfDay(dueDate))
}
