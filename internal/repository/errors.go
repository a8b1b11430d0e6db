package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrStaleCursor is returned when a cursor advance is not strictly
	// after the stored watermark
	ErrStaleCursor = errors.New("stale cursor: watermark not after stored value")

	// ErrAlreadyFinalized is returned when finalizing a decision whose
	// outcome is no longer pending
	ErrAlreadyFinalized = errors.New("decision already finalized")

	// ErrLeaseHeld is returned when a run lease for a tenant+source pair
	// is held by another in-flight run
	ErrLeaseHeld = errors.New("run lease held")

	// ErrConflict is returned when an insert collides with an existing row
	ErrConflict = errors.New("conflict")

	// ErrForeignKeyViolation is returned when a referenced entity doesn't exist
	ErrForeignKeyViolation = errors.New("foreign key violation")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
)
