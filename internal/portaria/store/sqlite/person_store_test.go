package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BrandonDHaskell/portaria/internal/portaria/store"
	sqlitestore "github.com/BrandonDHaskell/portaria/internal/portaria/store/sqlite"
	"github.com/BrandonDHaskell/portaria/internal/portaria/types"
)

func TestPersonStore_CreateAndGet(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	ps := sqlitestore.NewPersonStore(conn, w)
	ctx := context.Background()

	created, err := ps.CreatePerson(ctx, store.PersonRecord{
		Name:      "Alice Wonderland",
		SystemID:  "ALICE001",
		PhotoPath: "ALICE001_alice.jpg",
		OtherData: "badge 7",
	})
	if err != nil {
		t.Fatalf("CreatePerson: %v", err)
	}

	got, err := ps.GetPerson(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetPerson: %v", err)
	}
	if got.Name != "Alice Wonderland" || got.PhotoPath != "ALICE001_alice.jpg" || got.OtherData != "badge 7" {
		t.Errorf("unexpected person: %+v", got)
	}
	if got.EncodingPath != "" {
		t.Errorf("expected empty encoding path, got %q", got.EncodingPath)
	}
	if !got.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("created_at mismatch: %v vs %v", got.CreatedAt, created.CreatedAt)
	}

	bySys, err := ps.GetPersonBySystemID(ctx, "ALICE001")
	if err != nil || bySys.ID != created.ID {
		t.Errorf("GetPersonBySystemID: %+v, %v", bySys, err)
	}

	if _, err := ps.GetPersonBySystemID(ctx, "NOPE"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPersonStore_DuplicateSystemID(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	ps := sqlitestore.NewPersonStore(conn, w)
	ctx := context.Background()

	seedPerson(t, conn, w, "Alice", "A")
	bob := seedPerson(t, conn, w, "Bob", "B")

	if _, err := ps.CreatePerson(ctx, store.PersonRecord{Name: "Other", SystemID: "A"}); !errors.Is(err, store.ErrConflict) {
		t.Errorf("expected ErrConflict on create, got %v", err)
	}

	bob.SystemID = "A"
	if _, err := ps.UpdatePerson(ctx, bob); !errors.Is(err, store.ErrConflict) {
		t.Errorf("expected ErrConflict on update, got %v", err)
	}
}

func TestPersonStore_Update(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	ps := sqlitestore.NewPersonStore(conn, w)
	ctx := context.Background()

	p := seedPerson(t, conn, w, "Alice", "A")
	p.Name = "Alice W."
	p.EncodingPath = "A_encoding.json"

	got, err := ps.UpdatePerson(ctx, p)
	if err != nil {
		t.Fatalf("UpdatePerson: %v", err)
	}
	if got.Name != "Alice W." || got.EncodingPath != "A_encoding.json" {
		t.Errorf("unexpected updated person: %+v", got)
	}

	p.ID = 999
	if _, err := ps.UpdatePerson(ctx, p); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPersonStore_ListPeopleByName(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	ps := sqlitestore.NewPersonStore(conn, w)

	seedPerson(t, conn, w, "Carol", "C")
	seedPerson(t, conn, w, "Alice", "A")
	seedPerson(t, conn, w, "Bob", "B")

	people, err := ps.ListPeople(context.Background())
	if err != nil {
		t.Fatalf("ListPeople: %v", err)
	}
	if len(people) != 3 || people[0].Name != "Alice" || people[2].Name != "Carol" {
		t.Errorf("unexpected order: %+v", people)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// DeletePerson cascade
// ═══════════════════════════════════════════════════════════════════════════

func TestPersonStore_DeletePerson_Cascades(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	ps := sqlitestore.NewPersonStore(conn, w)
	es := sqlitestore.NewEventStore(conn, w)
	ctx := context.Background()

	alice := seedPerson(t, conn, w, "Alice", "A")
	bob := seedPerson(t, conn, w, "Bob", "B")
	at := time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)
	for _, p := range []store.PersonRecord{alice, alice, alice, bob} {
		if _, err := es.AppendEvent(ctx, store.EventRecord{PersonID: p.ID, PersonName: p.Name, Type: types.EventEntry, OccurredAt: at}); err != nil {
			t.Fatal(err)
		}
	}

	n, err := ps.DeletePerson(ctx, alice.ID)
	if err != nil {
		t.Fatalf("DeletePerson: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 deleted events, got %d", n)
	}
	if c := countEvents(t, conn, alice.ID); c != 0 {
		t.Errorf("expected Alice's events gone, %d left", c)
	}
	if c := countEvents(t, conn, bob.ID); c != 1 {
		t.Errorf("expected Bob's event untouched, got %d", c)
	}
	if _, err := ps.GetPerson(ctx, alice.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected Alice gone, got %v", err)
	}
}

func TestPersonStore_DeletePerson_Unknown(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	ps := sqlitestore.NewPersonStore(conn, w)

	if _, err := ps.DeletePerson(context.Background(), 77); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
