package decision

import (
	"context"
	"time"
)

// ListOptions filters audit queries. Results are ordered by proposed-at.
type ListOptions struct {
	Kinds    []Kind
	Outcomes []Outcome
	Since    time.Time
	Limit    int
	Offset   int
}

// Repository provides persistence for the decision log.
type Repository interface {
	Record(ctx context.Context, tenantID string, d *Decision) error
	Get(ctx context.Context, tenantID, id string) (*Decision, error)
	Finalize(ctx context.Context, tenantID, id string, outcome Outcome, appliedAt *time.Time, reason string) error
	List(ctx context.Context, tenantID string, opts ListOptions) ([]Decision, error)
	CountAppliedByKind(ctx context.Context, tenantID string, since time.Time) (map[Kind]int, error)
}

// ActivityCounter reports ingestion volume for metrics.
type ActivityCounter interface {
	CountSince(ctx context.Context, tenantID string, since time.Time) (int, error)
}
