package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/loomhq/loom/internal/domain/source"
	"github.com/loomhq/loom/internal/repository"
)

// CursorRepository implements repository.CursorRepository for SQLite
type CursorRepository struct {
	db *DB
}

// NewCursorRepository creates a new CursorRepository
func NewCursorRepository(db *DB) *CursorRepository {
	return &CursorRepository{db: db}
}

// Get retrieves the watermark for a tenant/source pair
func (r *CursorRepository) Get(ctx context.Context, tenantID string, src source.Source) (*repository.Cursor, error) {
	query := `
		SELECT tenant_id, source, watermark, updated_at
		FROM sync_cursors
		WHERE tenant_id = ? AND source = ?
	`

	var c repository.Cursor
	err := r.db.QueryRowContext(ctx, query, tenantID, src).Scan(
		&c.TenantID,
		&c.Source,
		&c.Watermark,
		&c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cursor: %w", err)
	}

	return &c, nil
}

// Advance moves the watermark forward in a single compare-and-set. The
// stored row only changes when the new watermark sorts strictly after it,
// so a lost race or a replayed run can never move the cursor backwards.
func (r *CursorRepository) Advance(ctx context.Context, tenantID string, src source.Source, watermark string) error {
	query := `
		INSERT INTO sync_cursors (tenant_id, source, watermark, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(tenant_id, source) DO UPDATE SET
			watermark = excluded.watermark,
			updated_at = excluded.updated_at
		WHERE excluded.watermark > sync_cursors.watermark
	`

	result, err := r.db.ExecContext(ctx, query, tenantID, src, watermark, time.Now())
	if err != nil {
		return fmt.Errorf("failed to advance cursor: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrStaleCursor
	}

	return nil
}
