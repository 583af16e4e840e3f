package service

import (
	"strings"
	"time"

	"github.com/BrandonDHaskell/portaria/internal/portaria/localtime"
)

// Zone-qualified ISO 8601 forms. "Z" is accepted wherever an offset is.
var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z0700",
	"2006-01-02T15:04Z07:00",
}

// Naive forms carry no zone and are read as UTC.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	localtime.DateLayout,
}

// ParseTimestamp reads an ISO 8601 instant. Offsets are honoured, naive
// values are UTC, and the result is truncated to whole milliseconds.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Truncate(time.Millisecond), true
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.Truncate(time.Millisecond), true
		}
	}
	return time.Time{}, false
}

// ParseDate reads a YYYY-MM-DD local date, reporting ErrInvalidDate.
func ParseDate(s string) (localtime.Date, error) {
	d, err := localtime.ParseDate(s)
	if err != nil {
		return localtime.Date{}, withMessage(ErrInvalidDate, "invalid date %q, use YYYY-MM-DD", strings.TrimSpace(s))
	}
	return d, nil
}
