package reconcile

import (
	"cmp"
	"slices"
	"sort"
	"time"

	"github.com/BrandonDHaskell/portaria/internal/portaria/localtime"
	"github.com/BrandonDHaskell/portaria/internal/portaria/types"
)

// Stay is one entry paired with the first exit strictly after it. Unlike
// sessions, stays are not bucketed by day: two entries with no exit between
// them both pair with the same exit.
type Stay struct {
	PersonID   int64
	PersonName string
	Entry      time.Time
	Exit       time.Time
	Minutes    int64
}

// Stays lists every entry that has a later exit, ordered by person name and
// entry instant. Minutes are whole minutes, truncated.
func Stays(events []Event, zone localtime.Zone) []Stay {
	sorted := sortedCopy(events)

	var out []Stay
	for start := 0; start < len(sorted); {
		end := start
		for end < len(sorted) && sorted[end].PersonID == sorted[start].PersonID {
			end++
		}
		out = append(out, staysForPerson(sorted[start:end], zone)...)
		start = end
	}

	slices.SortFunc(out, func(a, b Stay) int {
		if c := cmp.Compare(a.PersonName, b.PersonName); c != 0 {
			return c
		}
		if c := a.Entry.Compare(b.Entry); c != 0 {
			return c
		}
		return cmp.Compare(a.PersonID, b.PersonID)
	})
	return out
}

// staysForPerson expects one person's events in chronological order.
func staysForPerson(events []Event, zone localtime.Zone) []Stay {
	exits := make([]Event, 0, len(events))
	for _, ev := range events {
		if ev.Type == types.EventExit {
			exits = append(exits, ev)
		}
	}

	var out []Stay
	for _, ev := range events {
		if ev.Type != types.EventEntry {
			continue
		}
		i := sort.Search(len(exits), func(i int) bool { return exits[i].At.After(ev.At) })
		if i == len(exits) {
			continue
		}
		exit := exits[i]
		entryLocal, _ := zone.ToLocal(ev.At)
		exitLocal, _ := zone.ToLocal(exit.At)
		out = append(out, Stay{
			PersonID:   ev.PersonID,
			PersonName: ev.PersonName,
			Entry:      entryLocal,
			Exit:       exitLocal,
			Minutes:    int64(exit.At.Sub(ev.At) / time.Minute),
		})
	}
	return out
}
