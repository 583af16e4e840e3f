// Package store defines the persistence interfaces for access events, the
// person catalog and the camera registry.
package store

import "errors"

var (
	// ErrNotFound is returned when a looked-up row does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrConflict is returned when a write would violate a uniqueness rule.
	ErrConflict = errors.New("store: conflict")
)
