package store

import (
	"context"
	"time"

	"github.com/BrandonDHaskell/portaria/internal/portaria/types"
)

// EventRecord is one stored access event. Events are immutable once
// appended; they leave the store only with their person.
type EventRecord struct {
	ID         int64
	PersonID   int64
	PersonName string // captured at ingestion, not updated on rename
	Type       types.EventType
	OccurredAt time.Time // UTC, millisecond precision
	ReceivedAt time.Time
	CameraID   string   // optional
	Confidence *float64 // optional
}

// EventQuery selects events with OccurredAt in [From, To). A zero bound is
// open on that side; PersonID 0 means every person.
type EventQuery struct {
	From     time.Time
	To       time.Time
	PersonID int64
}

// Matches reports whether rec falls inside the query.
func (q EventQuery) Matches(rec EventRecord) bool {
	if q.PersonID != 0 && rec.PersonID != q.PersonID {
		return false
	}
	if !q.From.IsZero() && rec.OccurredAt.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && !rec.OccurredAt.Before(q.To) {
		return false
	}
	return true
}

// EventStore is the append-only access event log. ListEvents returns events
// ordered by OccurredAt, then ID.
type EventStore interface {
	AppendEvent(ctx context.Context, rec EventRecord) (EventRecord, error)
	ListEvents(ctx context.Context, q EventQuery) ([]EventRecord, error)
}
