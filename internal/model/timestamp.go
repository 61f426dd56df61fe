package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var errEmptyTimestamp = errors.New("empty timestamp")

// Layouts carrying an explicit offset ("Z" included).
var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02 15:04:05.999999999Z07:00",
}

// Layouts without an offset, as written by Python's naive isoformat().
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
}

// ParseTimestamp parses an ISO-8601 timestamp. A timestamp with an offset keeps it;
// a naive one is read as wall-clock time in loc (time.Local when nil).
func ParseTimestamp(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errEmptyTimestamp
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}

// FormatTimestamp is the layout the coordinator writes: RFC3339 with offset.
func FormatTimestamp(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

// DayKey is the calendar date of t in its own location.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
