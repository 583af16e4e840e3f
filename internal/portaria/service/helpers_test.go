package service

import (
	"context"
	"testing"
	"time"

	"github.com/BrandonDHaskell/portaria/internal/portaria/biometric"
	"github.com/BrandonDHaskell/portaria/internal/portaria/localtime"
	"github.com/BrandonDHaskell/portaria/internal/portaria/store"
	"github.com/BrandonDHaskell/portaria/internal/portaria/store/memory"
)

var saoPaulo = localtime.MustLoadZone("America/Sao_Paulo")

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func mustDate(t *testing.T, s string) localtime.Date {
	t.Helper()
	d, err := localtime.ParseDate(s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

func addPerson(t *testing.T, st *memory.Store, name, systemID string) store.PersonRecord {
	t.Helper()
	rec, err := st.CreatePerson(context.Background(), store.PersonRecord{Name: name, SystemID: systemID})
	if err != nil {
		t.Fatalf("create person %s: %v", systemID, err)
	}
	return rec
}

func eventRecord(p store.PersonRecord, at time.Time, typ string) store.EventRecord {
	return store.EventRecord{PersonID: p.ID, PersonName: p.Name, Type: eventType(typ), OccurredAt: at}
}

// addEvent stores an event at a Sao Paulo wall-clock time.
func addEvent(t *testing.T, st *memory.Store, p store.PersonRecord, d localtime.Date, hh, mm int, typ string) {
	t.Helper()
	_, err := st.AppendEvent(context.Background(), eventRecord(p, saoPaulo.Combine(d, hh, mm, 0), typ))
	if err != nil {
		t.Fatalf("append event: %v", err)
	}
}

type fakeEncoder struct {
	enc   biometric.Encoding
	err   error
	calls int
}

func (f *fakeEncoder) Encode(_ context.Context, photo []byte, _ string) (biometric.Encoding, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.enc, nil
}

// failingEvents fails every read and write.
type failingEvents struct{ err error }

func (f failingEvents) AppendEvent(context.Context, store.EventRecord) (store.EventRecord, error) {
	return store.EventRecord{}, f.err
}

func (f failingEvents) ListEvents(context.Context, store.EventQuery) ([]store.EventRecord, error) {
	return nil, f.err
}
