package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	dbpkg "github.com/BrandonDHaskell/portaria/internal/db"
	"github.com/BrandonDHaskell/portaria/internal/portaria/store"
)

type PersonStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewPersonStore(db *sql.DB, writer *dbpkg.Worker) *PersonStore {
	return &PersonStore{db: db, writer: writer}
}

const personColumns = `id, name, system_id, photo_path, encoding_path, other_data, created_at_ms, updated_at_ms`

func (s *PersonStore) CreatePerson(ctx context.Context, rec store.PersonRecord) (store.PersonRecord, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	ms := now.UnixMilli()

	var id int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
INSERT INTO people(name, system_id, photo_path, encoding_path, other_data, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, ?, ?, ?, ?);
`, rec.Name, rec.SystemID, nullString(rec.PhotoPath), nullString(rec.EncodingPath),
			nullString(rec.OtherData), ms, ms)
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		if err != nil {
			return fmt.Errorf("CreatePerson insert: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("CreatePerson last id: %w", err)
		}
		return nil
	})
	if err != nil {
		return store.PersonRecord{}, err
	}

	rec.ID = id
	rec.CreatedAt, rec.UpdatedAt = now, now
	return rec, nil
}

func (s *PersonStore) UpdatePerson(ctx context.Context, rec store.PersonRecord) (store.PersonRecord, error) {
	ms := time.Now().UTC().UnixMilli()

	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE people
SET name          = ?,
    system_id     = ?,
    photo_path    = ?,
    encoding_path = ?,
    other_data    = ?,
    updated_at_ms = ?
WHERE id = ?;
`, rec.Name, rec.SystemID, nullString(rec.PhotoPath), nullString(rec.EncodingPath),
			nullString(rec.OtherData), ms, rec.ID)
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		if err != nil {
			return fmt.Errorf("UpdatePerson: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return store.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return store.PersonRecord{}, err
	}

	return s.GetPerson(ctx, rec.ID)
}

func (s *PersonStore) GetPerson(ctx context.Context, id int64) (store.PersonRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+personColumns+` FROM people WHERE id = ?;`, id)
	return scanPerson(row)
}

func (s *PersonStore) GetPersonBySystemID(ctx context.Context, systemID string) (store.PersonRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+personColumns+` FROM people WHERE system_id = ?;`, systemID)
	return scanPerson(row)
}

func (s *PersonStore) ListPeople(ctx context.Context) ([]store.PersonRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+personColumns+` FROM people ORDER BY name, id;`)
	if err != nil {
		return nil, fmt.Errorf("ListPeople query: %w", err)
	}
	defer rows.Close()

	var out []store.PersonRecord
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListPeople rows: %w", err)
	}
	return out, nil
}

// DeletePerson removes the person's events and the person row in one
// transaction. When the person does not exist nothing is deleted.
func (s *PersonStore) DeletePerson(ctx context.Context, id int64) (int64, error) {
	var removed int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM access_events WHERE person_id = ?;`, id)
		if err != nil {
			return fmt.Errorf("DeletePerson events: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("DeletePerson events count: %w", err)
		}

		res, err = tx.ExecContext(ctx, `DELETE FROM people WHERE id = ?;`, id)
		if err != nil {
			return fmt.Errorf("DeletePerson person: %w", err)
		}
		if gone, _ := res.RowsAffected(); gone == 0 {
			return store.ErrNotFound
		}
		removed = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPerson(row rowScanner) (store.PersonRecord, error) {
	var (
		p                      store.PersonRecord
		photo, encoding, other sql.NullString
		createdMs, updatedMs   int64
	)
	err := row.Scan(&p.ID, &p.Name, &p.SystemID, &photo, &encoding, &other, &createdMs, &updatedMs)
	if errors.Is(err, sql.ErrNoRows) {
		return store.PersonRecord{}, store.ErrNotFound
	}
	if err != nil {
		return store.PersonRecord{}, fmt.Errorf("scan person: %w", err)
	}
	p.PhotoPath = photo.String
	p.EncodingPath = encoding.String
	p.OtherData = other.String
	p.CreatedAt = fromMillis(createdMs)
	p.UpdatedAt = fromMillis(updatedMs)
	return p, nil
}
