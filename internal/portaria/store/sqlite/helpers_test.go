package sqlite_test

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/BrandonDHaskell/portaria/internal/db"
	"github.com/BrandonDHaskell/portaria/internal/portaria/store"
	sqlitestore "github.com/BrandonDHaskell/portaria/internal/portaria/store/sqlite"
)

// openTestDB returns an in-memory SQLite connection with the production
// PRAGMAs and schema. Closed automatically when the test finishes.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	// Shared cache keeps the in-memory database alive while sql.DB recycles
	// its connection.
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf(
		"file:test_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)",
		name,
	)

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("openTestDB: sql.Open: %v", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	if err := conn.Ping(); err != nil {
		conn.Close()
		t.Fatalf("openTestDB: ping: %v", err)
	}

	if err := db.Migrate(context.Background(), conn); err != nil {
		conn.Close()
		t.Fatalf("openTestDB: migrate: %v", err)
	}

	t.Cleanup(func() { conn.Close() })
	return conn
}

// newTestWriter returns a db.Worker backed by conn, closed with the test.
func newTestWriter(t *testing.T, conn *sql.DB) *db.Worker {
	t.Helper()

	w := db.NewWorker(conn)
	t.Cleanup(func() { w.Close() })
	return w
}

// seedPerson registers a person through the store under test.
func seedPerson(t *testing.T, conn *sql.DB, w *db.Worker, name, systemID string) store.PersonRecord {
	t.Helper()

	p, err := sqlitestore.NewPersonStore(conn, w).CreatePerson(context.Background(), store.PersonRecord{
		Name:     name,
		SystemID: systemID,
	})
	if err != nil {
		t.Fatalf("seedPerson %s: %v", systemID, err)
	}
	return p
}

func countEvents(t *testing.T, conn *sql.DB, personID int64) int {
	t.Helper()

	var n int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM access_events WHERE person_id = ?`, personID).Scan(&n); err != nil {
		t.Fatalf("countEvents: %v", err)
	}
	return n
}
