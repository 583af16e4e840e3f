package report

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/BrandonDHaskell/portaria/internal/portaria/localtime"
	"github.com/BrandonDHaskell/portaria/internal/portaria/reconcile"
)

const (
	// Placeholder fills a missing entry or exit time in the export.
	Placeholder = "---"
	// OpenSentinel is the export duration of a session with no exit yet.
	OpenSentinel = "open"
)

// CSVFileName is the attachment name for a day's export.
func CSVFileName(d localtime.Date) string {
	return fmt.Sprintf("entry_exit_logs_%s.csv", d)
}

// CSVHeader labels the local columns with the zone, e.g. "Date (Sao Paulo)".
func CSVHeader(zone localtime.Zone) []string {
	label := zone.Label()
	return []string{
		fmt.Sprintf("Date (%s)", label),
		"Person Name",
		fmt.Sprintf("Entry Time (%s)", label),
		fmt.Sprintf("Exit Time (%s)", label),
		"Duration",
	}
}

// CSVRecords builds the export rows for the sessions keyed to d, ordered by
// person name. Exit-only data never reaches a session, so it is not exported.
func CSVRecords(res reconcile.Result, d localtime.Date) [][]string {
	sessions := res.ForDate(d)
	out := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		entry, exit, duration := Placeholder, Placeholder, OpenSentinel
		if !s.Entry.IsZero() {
			entry = s.Entry.Format(clockLayout)
		}
		if !s.Open() {
			exit = s.Exit.Format(clockLayout)
			duration = FormatHoursMinutes(s.Duration)
		}
		out = append(out, []string{d.String(), s.PersonName, entry, exit, duration})
	}
	return out
}

// WriteCSV writes the header and the day's rows to w.
func WriteCSV(w io.Writer, zone localtime.Zone, res reconcile.Result, d localtime.Date) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader(zone)); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	if err := cw.WriteAll(CSVRecords(res, d)); err != nil {
		return fmt.Errorf("write csv rows: %w", err)
	}
	return nil
}
