package persistence

import (
	"errors"
	"fmt"
)

// ErrReadOnly is returned when a mutation is attempted via an instance handle
// that was obtained with the ReadOnly access mode.
var ErrReadOnly = errors.New("instance handle is read-only")

// ErrStoreClosed is returned when performing any operation on a closed store.
var ErrStoreClosed = errors.New("instance store is closed")

// DuplicateError is the error returned when creating an instance with an ID
// that already identifies a stored, non-terminal instance.
type DuplicateError struct {
	// ID is the instance ID that caused the conflict.
	ID string
}

func (e DuplicateError) Error() string {
	return fmt.Sprintf(
		"an instance with ID '%s' already exists",
		e.ID,
	)
}

// Failure is the error returned when a store operation fails at the
// transport or I/O layer.
//
// The caller should treat the instance state as unknown and must not retry
// blindly; the store never retries internally.
type Failure struct {
	// Op is the name of the operation that failed.
	Op string

	// ID is the instance ID the operation was acting on, if any.
	ID string

	// Cause is the underlying error.
	Cause error
}

func (e Failure) Error() string {
	return fmt.Sprintf(
		"persistence failure in %s of instance '%s': %s",
		e.Op,
		e.ID,
		e.Cause,
	)
}

func (e Failure) Unwrap() error {
	return e.Cause
}
