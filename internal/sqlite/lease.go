package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/loomhq/loom/internal/domain/source"
	"github.com/loomhq/loom/internal/repository"
)

// LeaseRepository implements repository.LeaseRepository for SQLite
type LeaseRepository struct {
	db *DB
}

// NewLeaseRepository creates a new LeaseRepository
func NewLeaseRepository(db *DB) *LeaseRepository {
	return &LeaseRepository{db: db}
}

// Acquire claims the run lease for a tenant/source pair. A live lease is
// exclusive no matter who asks; only expired leases can be taken over.
func (r *LeaseRepository) Acquire(ctx context.Context, tenantID string, src source.Source, holder string, ttl time.Duration) error {
	now := time.Now()
	query := `
		INSERT INTO run_leases (tenant_id, source, holder, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(tenant_id, source) DO UPDATE SET
			holder = excluded.holder,
			expires_at = excluded.expires_at
		WHERE run_leases.expires_at <= ?
	`

	result, err := r.db.ExecContext(ctx, query,
		tenantID, src, holder, now.Add(ttl).Unix(), now.Unix())
	if err != nil {
		return fmt.Errorf("failed to acquire lease: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrLeaseHeld
	}

	return nil
}

// Release drops the lease if the holder still owns it. Releasing a lease
// that expired and was taken over is a no-op, not an error.
func (r *LeaseRepository) Release(ctx context.Context, tenantID string, src source.Source, holder string) error {
	query := `DELETE FROM run_leases WHERE tenant_id = ? AND source = ? AND holder = ?`

	if _, err := r.db.ExecContext(ctx, query, tenantID, src, holder); err != nil {
		return fmt.Errorf("failed to release lease: %w", err)
	}

	return nil
}
