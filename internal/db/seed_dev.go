package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/BrandonDHaskell/portaria/internal/portaria/localtime"
)

type SeedDevOptions struct {
	// Zone places the sample wall-clock times. Defaults to the default zone.
	Zone localtime.Zone
	// Now anchors "today". Defaults to time.Now.
	Now time.Time
}

// SeedResult counts what SeedDev inserted.
type SeedResult struct {
	People int
	Events int
}

type seedPerson struct {
	name     string
	systemID string
}

type seedEvent struct {
	person    int // index into seedPeople
	daysAgo   int
	hour, min int
	eventType string
}

var seedPeople = []seedPerson{
	{name: "Alice Wonderland", systemID: "ALICE001"},
	{name: "Bob The Builder", systemID: "BOB002"},
}

// Today: Alice with two visits, Bob with one. Yesterday: Bob never left.
// Two days ago: an exit with no entry.
var seedEvents = []seedEvent{
	{0, 0, 9, 0, "entry"},
	{0, 0, 12, 30, "exit"},
	{0, 0, 13, 30, "entry"},
	{0, 0, 17, 45, "exit"},
	{1, 0, 8, 15, "entry"},
	{1, 0, 17, 5, "exit"},
	{0, 1, 9, 5, "entry"},
	{0, 1, 17, 30, "exit"},
	{1, 1, 8, 0, "entry"},
	{0, 2, 17, 0, "exit"},
}

// SeedDev inserts two sample people and three days of events around today.
// People are upserted by system ID; events are only added for a person that
// has none, so running it twice does not duplicate the sample.
func SeedDev(ctx context.Context, db *sql.DB, opt SeedDevOptions) (SeedResult, error) {
	zone := opt.Zone
	if zone.Name() == "" {
		zone = localtime.MustLoadZone(localtime.DefaultZoneName)
	}
	now := opt.Now
	if now.IsZero() {
		now = time.Now()
	}
	nowMs := now.UTC().UnixMilli()
	today := zone.Today(now)

	var res SeedResult

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("seed begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	ids := make([]int64, len(seedPeople))
	fresh := make([]bool, len(seedPeople))
	for i, p := range seedPeople {
		r, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO people(name, system_id, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, ?);`, p.name, p.systemID, nowMs, nowMs)
		if err != nil {
			return res, fmt.Errorf("seed person %s: %w", p.systemID, err)
		}
		if n, _ := r.RowsAffected(); n > 0 {
			res.People++
		}

		if err := tx.QueryRowContext(ctx,
			`SELECT id FROM people WHERE system_id = ?;`, p.systemID,
		).Scan(&ids[i]); err != nil {
			return res, fmt.Errorf("seed lookup %s: %w", p.systemID, err)
		}

		var count int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM access_events WHERE person_id = ?;`, ids[i],
		).Scan(&count); err != nil {
			return res, fmt.Errorf("seed count %s: %w", p.systemID, err)
		}
		fresh[i] = count == 0
	}

	for _, ev := range seedEvents {
		if !fresh[ev.person] {
			continue
		}
		p := seedPeople[ev.person]
		at := zone.Combine(today.AddDays(-ev.daysAgo), ev.hour, ev.min, 0)
		if _, err := tx.ExecContext(ctx, `
INSERT INTO access_events(person_id, person_name, event_type, occurred_at_ms, received_at_ms)
VALUES (?, ?, ?, ?, ?);`, ids[ev.person], p.name, ev.eventType, at.UnixMilli(), nowMs); err != nil {
			return res, fmt.Errorf("seed event for %s: %w", p.systemID, err)
		}
		res.Events++
	}

	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("seed commit: %w", err)
	}
	return res, nil
}
