package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	dbpkg "github.com/BrandonDHaskell/portaria/internal/db"
	"github.com/BrandonDHaskell/portaria/internal/portaria/store"
	"github.com/BrandonDHaskell/portaria/internal/portaria/types"
)

type EventStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewEventStore(db *sql.DB, writer *dbpkg.Worker) *EventStore {
	return &EventStore{db: db, writer: writer}
}

// AppendEvent inserts one event. It returns store.ErrNotFound when the
// person no longer exists.
func (s *EventStore) AppendEvent(ctx context.Context, rec store.EventRecord) (store.EventRecord, error) {
	if rec.ReceivedAt.IsZero() {
		rec.ReceivedAt = time.Now().UTC()
	}
	rec.OccurredAt = rec.OccurredAt.UTC().Truncate(time.Millisecond)
	rec.ReceivedAt = rec.ReceivedAt.UTC().Truncate(time.Millisecond)

	var confidence any
	if rec.Confidence != nil {
		confidence = *rec.Confidence
	}

	var id int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var one int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM people WHERE id = ?;`, rec.PersonID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("AppendEvent resolve person: %w", err)
		}

		res, err := tx.ExecContext(ctx, `
INSERT INTO access_events(
  person_id, person_name, event_type, occurred_at_ms, received_at_ms,
  camera_id, confidence
) VALUES (?, ?, ?, ?, ?, ?, ?);
`,
			rec.PersonID, rec.PersonName, string(rec.Type),
			rec.OccurredAt.UnixMilli(), rec.ReceivedAt.UnixMilli(),
			nullString(rec.CameraID), confidence,
		)
		if err != nil {
			return fmt.Errorf("AppendEvent insert: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("AppendEvent last id: %w", err)
		}
		return nil
	})
	if err != nil {
		return store.EventRecord{}, err
	}

	rec.ID = id
	return rec, nil
}

func (s *EventStore) ListEvents(ctx context.Context, q store.EventQuery) ([]store.EventRecord, error) {
	var (
		where []string
		args  []any
	)
	if q.PersonID != 0 {
		where = append(where, "person_id = ?")
		args = append(args, q.PersonID)
	}
	if !q.From.IsZero() {
		where = append(where, "occurred_at_ms >= ?")
		args = append(args, q.From.UTC().UnixMilli())
	}
	if !q.To.IsZero() {
		where = append(where, "occurred_at_ms < ?")
		args = append(args, q.To.UTC().UnixMilli())
	}

	query := `
SELECT id, person_id, person_name, event_type, occurred_at_ms, received_at_ms,
       camera_id, confidence
FROM access_events`
	if len(where) > 0 {
		query += "\nWHERE " + strings.Join(where, " AND ")
	}
	query += "\nORDER BY occurred_at_ms, id;"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListEvents query: %w", err)
	}
	defer rows.Close()

	var out []store.EventRecord
	for rows.Next() {
		var (
			rec        store.EventRecord
			eventType  string
			occurredMs int64
			receivedMs int64
			cameraID   sql.NullString
			confidence sql.NullFloat64
		)
		if err := rows.Scan(
			&rec.ID, &rec.PersonID, &rec.PersonName, &eventType,
			&occurredMs, &receivedMs, &cameraID, &confidence,
		); err != nil {
			return nil, fmt.Errorf("ListEvents scan: %w", err)
		}
		rec.Type = types.EventType(eventType)
		rec.OccurredAt = fromMillis(occurredMs)
		rec.ReceivedAt = fromMillis(receivedMs)
		rec.CameraID = cameraID.String
		if confidence.Valid {
			c := confidence.Float64
			rec.Confidence = &c
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListEvents rows: %w", err)
	}
	return out, nil
}
