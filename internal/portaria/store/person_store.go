package store

import (
	"context"
	"time"
)

type PersonRecord struct {
	ID           int64
	Name         string
	SystemID     string
	PhotoPath    string // file name under the upload dir; empty when absent
	EncodingPath string
	OtherData    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PersonStore is the registration catalog.
//
// CreatePerson and UpdatePerson return ErrConflict when SystemID is taken by
// another person. DeletePerson removes the person together with all of their
// events in one atomic step and reports how many events went with them.
type PersonStore interface {
	CreatePerson(ctx context.Context, rec PersonRecord) (PersonRecord, error)
	UpdatePerson(ctx context.Context, rec PersonRecord) (PersonRecord, error)
	GetPerson(ctx context.Context, id int64) (PersonRecord, error)
	GetPersonBySystemID(ctx context.Context, systemID string) (PersonRecord, error)
	ListPeople(ctx context.Context) ([]PersonRecord, error)
	DeletePerson(ctx context.Context, id int64) (int64, error)
}
