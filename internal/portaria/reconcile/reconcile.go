// Package reconcile turns raw entry/exit events into per-person, per-local-day
// sessions.
//
// Pairing policy for one (person, local day) bucket:
//   - the first entry of the local day is the session entry; later entries
//     only move the open-entry slot that exits are matched against
//   - an exit pairs with the open entry when it is strictly after it, and the
//     session is keyed by the entry's local date, not the exit's
//   - the latest qualifying exit wins; duration is always measured between
//     absolute instants
//   - an exit on a later local day than its entry (overnight) only pairs
//     while the entry's session has no same-day exit, and only when it falls
//     at most carryDays local days after the entry's date
//
// Exits that cannot pair are reported as orphans. Nothing here returns an
// error: absence is a state of the output, not a failure.
package reconcile

import (
	"cmp"
	"slices"
	"time"

	"github.com/BrandonDHaskell/portaria/internal/portaria/localtime"
	"github.com/BrandonDHaskell/portaria/internal/portaria/types"
)

// Event is the reconciler's view of a stored access event. At must be a
// well-formed instant; callers drop anything else upstream.
type Event struct {
	ID         int64
	PersonID   int64
	PersonName string
	At         time.Time
	Type       types.EventType
}

// Key identifies a session bucket.
type Key struct {
	PersonID int64
	Date     localtime.Date
}

// Session is the pairing result for one person on one local day. Entry and
// Exit carry the zone's location, so they are both the absolute instant and
// the local wall clock. A zero Exit means the session is still open.
type Session struct {
	PersonID   int64
	PersonName string
	Date       localtime.Date
	Entry      time.Time
	Exit       time.Time
	Duration   time.Duration
}

// Open reports whether no qualifying exit has been seen.
func (s Session) Open() bool { return s.Exit.IsZero() }

// Key returns the (person, local date) bucket the session is stored under.
func (s Session) Key() Key { return Key{PersonID: s.PersonID, Date: s.Date} }

// Result holds every session produced by one reconciliation run and the
// exits that could not be paired.
type Result struct {
	Sessions    map[Key]Session
	OrphanExits []Event
}

// Lookup returns the session for a person on a local date.
func (r Result) Lookup(personID int64, d localtime.Date) (Session, bool) {
	s, ok := r.Sessions[Key{PersonID: personID, Date: d}]
	return s, ok
}

// Len is the number of sessions, open or closed.
func (r Result) Len() int { return len(r.Sessions) }

// Display orders sessions newest local day first, then by person name.
func (r Result) Display() []Session {
	out := r.collect(func(Session) bool { return true })
	slices.SortFunc(out, func(a, b Session) int {
		if c := b.Date.Compare(a.Date); c != 0 {
			return c
		}
		return compareByName(a, b)
	})
	return out
}

// ForDate returns the sessions keyed to d, ordered by person name.
func (r Result) ForDate(d localtime.Date) []Session {
	out := r.collect(func(s Session) bool { return s.Date == d })
	slices.SortFunc(out, compareByName)
	return out
}

func (r Result) collect(keep func(Session) bool) []Session {
	out := make([]Session, 0, len(r.Sessions))
	for _, s := range r.Sessions {
		if keep(s) {
			out = append(out, s)
		}
	}
	return out
}

func compareByName(a, b Session) int {
	if c := cmp.Compare(a.PersonName, b.PersonName); c != 0 {
		return c
	}
	return cmp.Compare(a.PersonID, b.PersonID)
}

type openEntry struct {
	at  time.Time
	key Key
}

// Unlimited lets a cross-day exit close its session any number of days later.
const Unlimited = -1

// Reconcile pairs events into sessions with no carry limit. The input is not
// modified and may be in any order; the same input always yields the same
// Result.
func Reconcile(events []Event, zone localtime.Zone) Result {
	return ReconcileWithin(events, zone, Unlimited)
}

// ReconcileWithin is Reconcile with cross-day exits limited to carryDays
// local days after the entry's date; later exits are orphans. A caller that
// loads events for dates [first, last] must load through last+carryDays so
// its sessions match an unbounded run.
func ReconcileWithin(events []Event, zone localtime.Zone, carryDays int) Result {
	sorted := sortedCopy(events)

	res := Result{Sessions: make(map[Key]Session)}

	var (
		current int64
		started bool
		open    *openEntry
	)

	for _, ev := range sorted {
		if !started || ev.PersonID != current {
			current = ev.PersonID
			started = true
			open = nil
		}

		local, date := zone.ToLocal(ev.At)

		switch ev.Type {
		case types.EventEntry:
			key := Key{PersonID: ev.PersonID, Date: date}
			if _, ok := res.Sessions[key]; !ok {
				res.Sessions[key] = Session{
					PersonID:   ev.PersonID,
					PersonName: ev.PersonName,
					Date:       date,
					Entry:      local,
				}
			}
			open = &openEntry{at: ev.At, key: key}

		case types.EventExit:
			if open == nil || !ev.At.After(open.at) {
				res.OrphanExits = append(res.OrphanExits, ev)
				continue
			}

			s := res.Sessions[open.key]
			if carryDays >= 0 && date.After(s.Date.AddDays(carryDays)) {
				res.OrphanExits = append(res.OrphanExits, ev)
				continue
			}
			if date.After(s.Date) && !s.Open() && !zone.DateOf(s.Exit).After(s.Date) {
				// The entry's day already closed on that day.
				res.OrphanExits = append(res.OrphanExits, ev)
				continue
			}

			if s.Open() || ev.At.After(s.Exit) {
				s.Exit = local
				s.Duration = ev.At.Sub(s.Entry)
				res.Sessions[open.key] = s
			}
		}
	}

	return res
}

// sortedCopy orders by person, then instant. Entries sort before exits at
// the same instant and event IDs break any remaining tie, so the order is
// total regardless of arrival order.
func sortedCopy(events []Event) []Event {
	out := make([]Event, len(events))
	copy(out, events)
	slices.SortFunc(out, compareEvents)
	return out
}

func compareEvents(a, b Event) int {
	if c := cmp.Compare(a.PersonID, b.PersonID); c != 0 {
		return c
	}
	if c := a.At.Compare(b.At); c != 0 {
		return c
	}
	if c := cmp.Compare(typeRank(a.Type), typeRank(b.Type)); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

func typeRank(t types.EventType) int {
	if t == types.EventEntry {
		return 0
	}
	return 1
}
