package reconcile

import (
	"context"
	"errors"
)

// ErrCapability indicates the matching capability is unavailable or failed.
// Affected activity stays unreconciled and is retried on the next run.
var ErrCapability = errors.New("matching capability unavailable")

// Candidate is one open work item offered to the matching capability.
type Candidate struct {
	ID          string `json:"id"`
	Identifier  string `json:"identifier"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	StateName   string `json:"state_name"`
	StateType   string `json:"state_type"`
}

// StateChange is a proposed tracker state move for a matched candidate.
type StateChange struct {
	ToStateName string `json:"to_state_name"`
	ToStateType string `json:"to_state_type"`
}

// CandidateMatch is the capability's verdict on one candidate.
type CandidateMatch struct {
	CandidateID string       `json:"candidate_id"`
	Confidence  float64      `json:"confidence"`
	Rationale   string       `json:"rationale"`
	StateChange *StateChange `json:"state_change,omitempty"`
}

// NewWorkSignal is the capability's independent judgement that the
// conversation describes unrequested new work.
type NewWorkSignal struct {
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
	Title      string  `json:"title,omitempty"`
}

// MatchResult is the full output of one matching invocation.
type MatchResult struct {
	Matches []CandidateMatch `json:"matches"`
	NewWork NewWorkSignal    `json:"new_work"`
}

// Matcher is the language-model matching capability, wrapped as a pure
// function so the decision policy is testable against a stub.
type Matcher interface {
	Match(ctx context.Context, contextText string, candidates []Candidate) (MatchResult, error)
}
