// Package memory provides in-process stores for tests and throwaway dev runs.
package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/BrandonDHaskell/portaria/internal/portaria/store"
)

// Store holds people and their events behind one lock so a person delete
// and its event cascade are a single step.
type Store struct {
	mu         sync.RWMutex
	people     map[int64]store.PersonRecord
	events     []store.EventRecord
	nextPerson int64
	nextEvent  int64
	now        func() time.Time
}

func New() *Store {
	return &Store{
		people: make(map[int64]store.PersonRecord),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ── Events ──────────────────────────────────────────────────────────────

func (s *Store) AppendEvent(_ context.Context, rec store.EventRecord) (store.EventRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.people[rec.PersonID]; !ok {
		return store.EventRecord{}, store.ErrNotFound
	}
	if rec.ReceivedAt.IsZero() {
		rec.ReceivedAt = s.now()
	}
	rec.OccurredAt = rec.OccurredAt.UTC().Truncate(time.Millisecond)
	rec.ReceivedAt = rec.ReceivedAt.UTC().Truncate(time.Millisecond)

	s.nextEvent++
	rec.ID = s.nextEvent
	s.events = append(s.events, rec)
	return rec, nil
}

func (s *Store) ListEvents(_ context.Context, q store.EventQuery) ([]store.EventRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []store.EventRecord
	for _, ev := range s.events {
		if q.Matches(ev) {
			out = append(out, ev)
		}
	}
	slices.SortFunc(out, func(a, b store.EventRecord) int {
		if c := a.OccurredAt.Compare(b.OccurredAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

// ── People ──────────────────────────────────────────────────────────────

func (s *Store) CreatePerson(_ context.Context, rec store.PersonRecord) (store.PersonRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.systemIDTaken(rec.SystemID, 0) {
		return store.PersonRecord{}, store.ErrConflict
	}
	now := s.now().Truncate(time.Millisecond)
	s.nextPerson++
	rec.ID = s.nextPerson
	rec.CreatedAt, rec.UpdatedAt = now, now
	s.people[rec.ID] = rec
	return rec, nil
}

func (s *Store) UpdatePerson(_ context.Context, rec store.PersonRecord) (store.PersonRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.people[rec.ID]
	if !ok {
		return store.PersonRecord{}, store.ErrNotFound
	}
	if s.systemIDTaken(rec.SystemID, rec.ID) {
		return store.PersonRecord{}, store.ErrConflict
	}
	rec.CreatedAt = cur.CreatedAt
	rec.UpdatedAt = s.now().Truncate(time.Millisecond)
	s.people[rec.ID] = rec
	return rec, nil
}

func (s *Store) GetPerson(_ context.Context, id int64) (store.PersonRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.people[id]
	if !ok {
		return store.PersonRecord{}, store.ErrNotFound
	}
	return p, nil
}

func (s *Store) GetPersonBySystemID(_ context.Context, systemID string) (store.PersonRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.people {
		if p.SystemID == systemID {
			return p, nil
		}
	}
	return store.PersonRecord{}, store.ErrNotFound
}

func (s *Store) ListPeople(_ context.Context) ([]store.PersonRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.PersonRecord, 0, len(s.people))
	for _, p := range s.people {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b store.PersonRecord) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *Store) DeletePerson(_ context.Context, id int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.people[id]; !ok {
		return 0, store.ErrNotFound
	}
	kept := s.events[:0]
	var removed int64
	for _, ev := range s.events {
		if ev.PersonID == id {
			removed++
			continue
		}
		kept = append(kept, ev)
	}
	s.events = kept
	delete(s.people, id)
	return removed, nil
}

func (s *Store) systemIDTaken(systemID string, except int64) bool {
	for id, p := range s.people {
		if id != except && p.SystemID == systemID {
			return true
		}
	}
	return false
}
