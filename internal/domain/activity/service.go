package activity

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/loomhq/loom/internal/domain/source"
	"github.com/google/uuid"
)

// Service handles raw activity ingestion.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a new activity service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Ingest appends a batch of fetched items for a tenant+source. Appending is
// idempotent per (tenant, source, source id); only newly inserted items are
// returned, and only those should flow into reconciliation.
func (s *Service) Ingest(ctx context.Context, tenantID string, src source.Source, items []Item) ([]Item, error) {
	if tenantID == "" || !src.Valid() {
		return nil, ErrInvalidInput
	}

	now := time.Now()
	for i := range items {
		if items[i].SourceID == "" {
			return nil, fmt.Errorf("%w: item %d missing source id", ErrInvalidInput, i)
		}
		items[i].ID = uuid.NewString()
		items[i].TenantID = tenantID
		items[i].Source = src
		items[i].Reconciled = false
		items[i].IngestedAt = now
		if items[i].ItemRefs == nil {
			items[i].ItemRefs = ExtractItemRefs(items[i].Body)
		}
	}

	inserted, err := s.repo.Append(ctx, tenantID, items)
	if err != nil {
		return nil, fmt.Errorf("appending activity: %w", err)
	}

	if s.logger != nil && len(inserted) < len(items) {
		s.logger.Debug("skipped duplicate activity items",
			"tenant", tenantID, "source", src, "skipped", len(items)-len(inserted))
	}
	return inserted, nil
}

// ListUnreconciled returns unreconciled items oldest first, preserving the
// causal order of conversation threads.
func (s *Service) ListUnreconciled(ctx context.Context, tenantID string, limit int) ([]Item, error) {
	return s.repo.ListUnreconciled(ctx, tenantID, limit)
}

// MarkReconciled flips the reconciled flag for the given items.
func (s *Service) MarkReconciled(ctx context.Context, tenantID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return s.repo.MarkReconciled(ctx, tenantID, ids)
}

// CountSince returns how many items were ingested in the window, for
// activity metrics.
func (s *Service) CountSince(ctx context.Context, tenantID string, since time.Time) (int, error) {
	return s.repo.CountSince(ctx, tenantID, since)
}
