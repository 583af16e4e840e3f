package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound matches every *NotFoundError.
	ErrNotFound = errors.New("not found")
	// ErrStorage matches every *StorageError.
	ErrStorage = errors.New("storage unavailable")
	// ErrConflict is returned when a person_system_id is already registered.
	ErrConflict = errors.New("conflict")
)

// ValidationError is malformed caller input. Code is a stable machine
// identifier; two ValidationErrors match under errors.Is when their codes do.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	return ok && t.Code == e.Code
}

var (
	ErrMissingFields    = &ValidationError{Code: "missing_fields", Message: "missing required fields"}
	ErrInvalidEventType = &ValidationError{Code: "invalid_event_type", Message: "invalid event_type, must be 'entry' or 'exit'"}
	ErrInvalidTimestamp = &ValidationError{Code: "invalid_timestamp", Message: "invalid timestamp_utc, use ISO 8601 (e.g. 2026-02-15T12:00:00Z or with an offset)"}
	ErrInvalidDate      = &ValidationError{Code: "invalid_date", Message: "invalid date, use YYYY-MM-DD"}
	ErrInvalidPhoto     = &ValidationError{Code: "invalid_photo", Message: "only png, jpg and jpeg photos are allowed"}
	ErrInvalidPerson    = &ValidationError{Code: "invalid_person", Message: "invalid person details"}
	ErrInvalidField     = &ValidationError{Code: "invalid_field", Message: "invalid field"}
)

// withMessage keeps base's code with a more specific message.
func withMessage(base *ValidationError, format string, args ...any) *ValidationError {
	return &ValidationError{Code: base.Code, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError is an unresolved reference, e.g. an unknown person_system_id.
type NotFoundError struct {
	Kind string // "person", "person_id", "events"
	Key  string
}

func (e *NotFoundError) Error() string {
	switch e.Kind {
	case "person":
		return fmt.Sprintf("person with system ID '%s' not found", e.Key)
	case "person_id":
		return fmt.Sprintf("person %s not found", e.Key)
	case "events":
		return fmt.Sprintf("no logs found for %s", e.Key)
	default:
		return fmt.Sprintf("%s %q not found", e.Kind, e.Key)
	}
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// StorageError wraps a failure of the underlying store. It is never masked
// as another kind.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
