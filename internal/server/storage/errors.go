package storage

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNoFile is returned when an entity exists but has no file attached.
	ErrNoFile = errors.New("no file for entity")
)
