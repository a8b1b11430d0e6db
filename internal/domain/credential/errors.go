package credential

import "errors"

var (
	// ErrNotConnected indicates no active credential for the tenant+source.
	ErrNotConnected = errors.New("source not connected")
	// ErrInvalidInput indicates invalid input for credential operations.
	ErrInvalidInput = errors.New("invalid credential input")
)
