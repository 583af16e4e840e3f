// Package report renders reconciled sessions for people: display rows for
// the day view and CSV for the single-day export.
package report

import (
	"fmt"
	"time"

	"github.com/BrandonDHaskell/portaria/internal/portaria/localtime"
	"github.com/BrandonDHaskell/portaria/internal/portaria/reconcile"
	"github.com/BrandonDHaskell/portaria/internal/portaria/types"
)

const (
	clockLayout = "15:04:05"

	// NotAvailable stands in for the duration of an open session in the day view.
	NotAvailable = "N/A"
)

// FormatClock renders d as "HH:MM:SS". Hours are not capped at 24.
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, secs%3600/60, secs%60)
}

// FormatHoursMinutes renders d as "HHhMMm", dropping seconds.
func FormatHoursMinutes(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	mins := int64(d / time.Minute)
	return fmt.Sprintf("%02dh%02dm", mins/60, mins%60)
}

// SessionRows converts reconciled sessions to day-view rows, keeping their order.
func SessionRows(sessions []reconcile.Session) []types.SessionRow {
	rows := make([]types.SessionRow, 0, len(sessions))
	for _, s := range sessions {
		row := types.SessionRow{
			Date:       s.Date.String(),
			PersonID:   s.PersonID,
			PersonName: s.PersonName,
			Entry:      s.Entry.Format(clockLayout),
			Duration:   NotAvailable,
			Open:       s.Open(),
		}
		if !s.Open() {
			row.Exit = s.Exit.Format(clockLayout)
			row.Duration = FormatClock(s.Duration)
		}
		rows = append(rows, row)
	}
	return rows
}

// StayRows converts stays to wire rows with local "YYYY-MM-DD HH:MM:SS" times.
func StayRows(stays []reconcile.Stay) []types.StayRow {
	rows := make([]types.StayRow, 0, len(stays))
	for _, s := range stays {
		rows = append(rows, types.StayRow{
			PersonID:   s.PersonID,
			PersonName: s.PersonName,
			Entry:      s.Entry.Format(localtime.DateLayout + " " + clockLayout),
			Exit:       s.Exit.Format(localtime.DateLayout + " " + clockLayout),
			Minutes:    s.Minutes,
		})
	}
	return rows
}
