package repositories

import "errors"

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned for serialization failures, deadlocks, lock timeouts and
	// unique violations that a caller may resolve by retrying the whole unit of work.
	ErrConflict = errors.New("concurrent modification conflict")
	// ErrDuplicateKey is returned when a unique value such as an email is already taken.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrConstraint is returned when a check constraint rejects a write.
	ErrConstraint = errors.New("constraint violation")
)
