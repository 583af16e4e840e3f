// Package localtime converts stored UTC instants to the wall clock of the
// single configured local zone and back.
//
// Conversions are zone-aware (daylight-saving rules included), never a fixed
// offset shift. Everything here is pure and safe for concurrent use.
package localtime

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // embedded zoneinfo; hosts without /usr/share/zoneinfo still resolve IANA names
)

// DefaultZoneName is the zone used when none is configured.
const DefaultZoneName = "America/Sao_Paulo"

// ConfirmationLayout renders an instant with its zone abbreviation and offset,
// e.g. "2026-02-15 09:00:00 -03-0300" or "2026-02-15 12:00:00 UTC+0000".
const ConfirmationLayout = "2006-01-02 15:04:05 MST-0700"

// Zone is the fixed local zone used for day bucketing and display.
type Zone struct {
	name string
	loc  *time.Location
}

// LoadZone resolves an IANA zone name.
func LoadZone(name string) (Zone, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultZoneName
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return Zone{}, fmt.Errorf("load zone %q: %w", name, err)
	}
	return Zone{name: name, loc: loc}, nil
}

// MustLoadZone is LoadZone for package-level defaults and tests.
func MustLoadZone(name string) Zone {
	z, err := LoadZone(name)
	if err != nil {
		panic(err)
	}
	return z
}

// UTC is mostly useful in tests.
func UTC() Zone {
	return Zone{name: "UTC", loc: time.UTC}
}

func (z Zone) Name() string { return z.name }

func (z Zone) Location() *time.Location {
	if z.loc == nil {
		return time.UTC
	}
	return z.loc
}

// Label is a human form of the zone name for headers:
// "America/Sao_Paulo" -> "Sao Paulo".
func (z Zone) Label() string {
	name := z.name
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return strings.ReplaceAll(name, "_", " ")
}

// ToLocal returns the wall-clock representation of t in the zone and the
// local calendar date it falls on.
func (z Zone) ToLocal(t time.Time) (time.Time, Date) {
	local := t.In(z.Location())
	return local, DateOf(local)
}

// DateOf is shorthand for the local date of t.
func (z Zone) DateOf(t time.Time) Date {
	_, d := z.ToLocal(t)
	return d
}

// DayBounds returns the half-open UTC window [start, end) covering the local
// calendar day d. On daylight-saving transition days the window is 23 or 25
// hours long.
func (z Zone) DayBounds(d Date) (start, end time.Time) {
	return z.StartOf(d), z.StartOf(d.AddDays(1))
}

// StartOf returns the UTC instant of local midnight on d. When midnight does
// not exist (a spring-forward gap at 00:00) it is the transition instant, the
// first one whose wall clock reads d.
func (z Zone) StartOf(d Date) time.Time {
	t := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, z.Location())
	// time.Date resolves a gap with the pre-transition offset, which lands
	// on the previous evening.
	if DateOf(t).Before(d) {
		if _, end := t.ZoneBounds(); !end.IsZero() {
			t = end
		}
	}
	return t.UTC()
}

// RangeBounds returns the UTC window covering every local day from first to
// last inclusive.
func (z Zone) RangeBounds(first, last Date) (start, end time.Time) {
	if last.Before(first) {
		first, last = last, first
	}
	return z.StartOf(first), z.StartOf(last.AddDays(1))
}

// Today is the local calendar date at instant now.
func (z Zone) Today(now time.Time) Date {
	return z.DateOf(now)
}

// Combine places a local wall-clock time of day on date d and returns the
// UTC instant.
func (z Zone) Combine(d Date, hour, min, sec int) time.Time {
	return time.Date(d.Year, d.Month, d.Day, hour, min, sec, 0, z.Location()).UTC()
}

// FormatConfirmation renders t in the zone using ConfirmationLayout.
func (z Zone) FormatConfirmation(t time.Time) string {
	return t.In(z.Location()).Format(ConfirmationLayout)
}

// FormatUTC renders t in UTC using ConfirmationLayout.
func FormatUTC(t time.Time) string {
	return t.UTC().Format(ConfirmationLayout)
}
