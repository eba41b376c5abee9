package matching

import (
	"strings"
	"time"
)

// timestampLayouts are tried in order. Layouts without a zone are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTimestamp parses an ISO-8601 style timestamp and normalizes it to UTC.
func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// stamp is the comparable view of a timestamp: its UTC calendar day and its
// UTC hour:minute. Either is empty when it cannot be extracted.
type stamp struct {
	day   string
	clock string
}

// newStamp derives the comparable day and clock of a raw timestamp.
// Midnight UTC carries no time-of-day: a date-only value and a real 00:00
// are indistinguishable, so both leave clock empty.
func newStamp(raw string) stamp {
	t, ok := parseTimestamp(raw)
	if !ok {
		return stamp{}
	}
	st := stamp{day: t.Format("2006-01-02")}
	if t.Hour() != 0 || t.Minute() != 0 {
		st.clock = t.Format("15:04")
	}
	return st
}

// IsDateString reports whether s is a timestamp the engine can read.
func IsDateString(s string) bool {
	_, ok := parseTimestamp(s)
	return ok
}
