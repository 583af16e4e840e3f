package report_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/BrandonDHaskell/portaria/internal/portaria/localtime"
	"github.com/BrandonDHaskell/portaria/internal/portaria/reconcile"
	"github.com/BrandonDHaskell/portaria/internal/portaria/report"
	"github.com/BrandonDHaskell/portaria/internal/portaria/types"
)

var zone = localtime.MustLoadZone("America/Sao_Paulo")

func mustDate(t *testing.T, s string) localtime.Date {
	t.Helper()
	d, err := localtime.ParseDate(s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func sampleDay(t *testing.T) (reconcile.Result, localtime.Date) {
	t.Helper()
	d := mustDate(t, "2026-02-15")
	at := func(dd localtime.Date, h, m int) time.Time { return zone.Combine(dd, h, m, 0) }

	events := []reconcile.Event{
		{ID: 1, PersonID: 2, PersonName: "Bob The Builder", At: at(d, 8, 15), Type: types.EventEntry},
		{ID: 2, PersonID: 1, PersonName: "Alice Wonderland", At: at(d, 9, 0), Type: types.EventEntry},
		{ID: 3, PersonID: 1, PersonName: "Alice Wonderland", At: at(d, 12, 30), Type: types.EventExit},
		{ID: 4, PersonID: 1, PersonName: "Alice Wonderland", At: at(d, 13, 30), Type: types.EventEntry},
		{ID: 5, PersonID: 1, PersonName: "Alice Wonderland", At: at(d, 17, 45), Type: types.EventExit},
		{ID: 6, PersonID: 3, PersonName: "Carol", At: at(d, 18, 0), Type: types.EventExit},
	}
	return reconcile.Reconcile(events, zone), d
}

func TestFormatClock(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{8*time.Hour + 45*time.Minute, "08:45:00"},
		{12 * time.Minute, "00:12:00"},
		{26*time.Hour + 59*time.Second, "26:00:59"},
		{-time.Minute, "00:00:00"},
	}
	for _, c := range cases {
		if got := report.FormatClock(c.in); got != c.want {
			t.Errorf("FormatClock(%s): expected %s, got %s", c.in, c.want, got)
		}
	}
}

func TestFormatHoursMinutes(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{8*time.Hour + 45*time.Minute + 59*time.Second, "08h45m"},
		{12 * time.Minute, "00h12m"},
		{0, "00h00m"},
	}
	for _, c := range cases {
		if got := report.FormatHoursMinutes(c.in); got != c.want {
			t.Errorf("FormatHoursMinutes(%s): expected %s, got %s", c.in, c.want, got)
		}
	}
}

func TestSessionRows(t *testing.T) {
	res, _ := sampleDay(t)
	rows := report.SessionRows(res.Display())

	if len(rows) != 2 {
		t.Fatalf("expected 2 rows (exit-only excluded), got %d", len(rows))
	}

	alice := rows[0]
	if alice.PersonName != "Alice Wonderland" || alice.Entry != "09:00:00" || alice.Exit != "17:45:00" {
		t.Errorf("unexpected Alice row: %+v", alice)
	}
	if alice.Duration != "08:45:00" || alice.Open {
		t.Errorf("expected closed 08:45:00, got %+v", alice)
	}

	bob := rows[1]
	if !bob.Open || bob.Exit != "" || bob.Duration != report.NotAvailable {
		t.Errorf("expected open Bob row, got %+v", bob)
	}
}

func TestCSV_Header(t *testing.T) {
	got := strings.Join(report.CSVHeader(zone), ",")
	want := "Date (Sao Paulo),Person Name,Entry Time (Sao Paulo),Exit Time (Sao Paulo),Duration"
	if got != want {
		t.Errorf("expected header %q, got %q", want, got)
	}
}

func TestWriteCSV(t *testing.T) {
	res, d := sampleDay(t)

	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, zone, res, d); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	want := strings.Join([]string{
		"Date (Sao Paulo),Person Name,Entry Time (Sao Paulo),Exit Time (Sao Paulo),Duration",
		"2026-02-15,Alice Wonderland,09:00:00,17:45:00,08h45m",
		"2026-02-15,Bob The Builder,08:15:00,---,open",
		"",
	}, "\n")
	if buf.String() != want {
		t.Errorf("unexpected csv:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestCSVRecords_OtherDayIsEmpty(t *testing.T) {
	res, d := sampleDay(t)
	if got := report.CSVRecords(res, d.AddDays(1)); len(got) != 0 {
		t.Errorf("expected no rows for the next day, got %d", len(got))
	}
}

func TestCSVFileName(t *testing.T) {
	if got := report.CSVFileName(mustDate(t, "2026-02-15")); got != "entry_exit_logs_2026-02-15.csv" {
		t.Errorf("unexpected file name %q", got)
	}
}

func TestStayRows(t *testing.T) {
	d := mustDate(t, "2026-02-15")
	rows := report.StayRows([]reconcile.Stay{{
		PersonID:   1,
		PersonName: "Alice",
		Entry:      zone.Combine(d, 9, 0, 0).In(zone.Location()),
		Exit:       zone.Combine(d, 12, 30, 0).In(zone.Location()),
		Minutes:    210,
	}})
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].Entry != "2026-02-15 09:00:00" || rows[0].Exit != "2026-02-15 12:30:00" {
		t.Errorf("unexpected stay row: %+v", rows[0])
	}
}
