package decision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/loomhq/loom/internal/repository"
	"github.com/google/uuid"
)

// Service handles the tenant-scoped decision audit trail.
type Service struct {
	repo       Repository
	activities ActivityCounter
	logger     *slog.Logger
}

// NewService creates a new decision log service.
func NewService(repo Repository, activities ActivityCounter, logger *slog.Logger) *Service {
	return &Service{repo: repo, activities: activities, logger: logger}
}

// Record inserts a decision with outcome pending. The ID and proposed-at
// timestamp are assigned here.
func (s *Service) Record(ctx context.Context, tenantID string, d *Decision) error {
	if d == nil || tenantID == "" || d.Kind == "" {
		return ErrInvalidInput
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		return fmt.Errorf("%w: confidence %f out of range", ErrInvalidInput, d.Confidence)
	}

	d.ID = uuid.NewString()
	d.TenantID = tenantID
	d.Outcome = OutcomePending
	if d.ProposedAt.IsZero() {
		d.ProposedAt = time.Now()
	}

	if err := s.repo.Record(ctx, tenantID, d); err != nil {
		return fmt.Errorf("recording decision: %w", err)
	}
	return nil
}

// Get returns a decision by ID.
func (s *Service) Get(ctx context.Context, tenantID, id string) (*Decision, error) {
	d, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDecisionNotFound
		}
		return nil, fmt.Errorf("getting decision: %w", err)
	}
	return d, nil
}

// Finalize moves a pending decision to a terminal outcome. This is the only
// permitted mutation; a second call fails with ErrAlreadyFinalized.
func (s *Service) Finalize(ctx context.Context, tenantID, id string, outcome Outcome, appliedAt *time.Time, reason string) error {
	if !outcome.Terminal() {
		return fmt.Errorf("%w: outcome %q is not terminal", ErrInvalidInput, outcome)
	}
	if err := s.repo.Finalize(ctx, tenantID, id, outcome, appliedAt, reason); err != nil {
		return fmt.Errorf("finalizing decision %s: %w", id, err)
	}
	return nil
}

// ListForTenant supports read-only audit queries.
func (s *Service) ListForTenant(ctx context.Context, tenantID string, opts ListOptions) ([]Decision, error) {
	return s.repo.List(ctx, tenantID, opts)
}

// Metrics aggregates decision outcomes and ingestion volume over a window.
func (s *Service) Metrics(ctx context.Context, tenantID string, window time.Duration) (Metrics, error) {
	since := time.Now().Add(-window)

	synced, err := s.activities.CountSince(ctx, tenantID, since)
	if err != nil {
		return Metrics{}, fmt.Errorf("counting activity: %w", err)
	}

	byKind, err := s.repo.CountAppliedByKind(ctx, tenantID, since)
	if err != nil {
		return Metrics{}, fmt.Errorf("counting decisions: %w", err)
	}

	return Metrics{
		Synced:  synced,
		Linked:  byKind[KindLinkToItem],
		Moved:   byKind[KindTransitionItem],
		Created: byKind[KindCreateItem],
	}, nil
}
