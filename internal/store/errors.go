package store

import "errors"

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a unique constraint rejects a write.
var ErrDuplicate = errors.New("duplicate record")

// ErrInvalidID is returned when an identifier is not a valid object id.
var ErrInvalidID = errors.New("invalid id")
