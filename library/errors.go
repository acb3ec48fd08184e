package library

import (
	"errors"
	"fmt"
)

// Field-level error kinds. Validation failures wrap one of these so callers
// can branch with errors.Is without parsing messages.
var (
	ErrInvalidID          = errors.New("invalid id")
	ErrInvalidName        = errors.New("invalid name")
	ErrInvalidTitle       = errors.New("invalid title")
	ErrInvalidUsername    = errors.New("invalid username")
	ErrInvalidLength      = errors.New("value exceeds column length")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidLateFee     = errors.New("invalid late fee")
	ErrInvalidRentalCount = errors.New("invalid rental count")
)

// ErrNotFound is returned when a record does not exist, or exists only as a
// soft-deleted row the caller chose not to see. It is an expected outcome,
// distinct from PersistenceError.
var ErrNotFound = errors.New("not found")

// ValidationError is raised at the point of construction or mutation and
// propagates to the caller unchanged. The core never clamps or defaults an
// invalid value.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(field string, kind error, format string, args ...any) error {
	args = append([]any{kind}, args...)
	return &ValidationError{Field: field, Err: fmt.Errorf("%w: "+format, args...)}
}

// PersistenceError is what handlers raise when the storage boundary fails.
// The underlying StorageError stays attached as the cause.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// StorageError is raised by Repository implementations when the underlying
// engine fails. Handlers translate it into a PersistenceError.
type StorageError struct {
	Op    string
	Table string
	Err   error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s on %s: %v", e.Op, e.Table, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
