package decision

import "errors"

var (
	// ErrDecisionNotFound indicates the decision doesn't exist.
	ErrDecisionNotFound = errors.New("decision not found")
	// ErrInvalidInput indicates invalid input for decision operations.
	ErrInvalidInput = errors.New("invalid decision input")
)
