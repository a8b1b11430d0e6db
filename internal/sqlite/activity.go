package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/loomhq/loom/internal/domain/activity"
)

// ActivityRepository implements activity.Repository for SQLite
type ActivityRepository struct {
	db *DB
}

// NewActivityRepository creates a new ActivityRepository
func NewActivityRepository(db *DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Append inserts activity items, skipping any whose (source, source_id) was
// already ingested for this tenant. It returns only the items actually
// inserted, so callers can count real ingestion volume.
func (r *ActivityRepository) Append(ctx context.Context, tenantID string, items []activity.Item) ([]activity.Item, error) {
	if len(items) == 0 {
		return nil, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT OR IGNORE INTO raw_activity (
			id, tenant_id, source, source_id, type, occurred_at,
			author, body, channel_id, channel_name, thread_id,
			item_refs, reconciled, ingested_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?)
	`

	var inserted []activity.Item
	for _, item := range items {
		refs, err := json.Marshal(item.ItemRefs)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal item refs: %w", err)
		}

		result, err := tx.ExecContext(ctx, query,
			item.ID,
			tenantID,
			item.Source,
			item.SourceID,
			item.Type,
			item.OccurredAt,
			item.Author,
			item.Body,
			item.ChannelID,
			item.ChannelName,
			item.ThreadID,
			string(refs),
			item.IngestedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to append activity: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected > 0 {
			inserted = append(inserted, item)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return inserted, nil
}

// ListUnreconciled returns unprocessed items oldest-first
func (r *ActivityRepository) ListUnreconciled(ctx context.Context, tenantID string, limit int) ([]activity.Item, error) {
	query := `
		SELECT id, tenant_id, source, source_id, type, occurred_at,
		       author, body, channel_id, channel_name, thread_id,
		       item_refs, reconciled, ingested_at
		FROM raw_activity
		WHERE tenant_id = ? AND reconciled = 0
		ORDER BY occurred_at ASC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list unreconciled activity: %w", err)
	}
	defer rows.Close()

	var items []activity.Item
	for rows.Next() {
		var item activity.Item
		var refs string
		err := rows.Scan(
			&item.ID,
			&item.TenantID,
			&item.Source,
			&item.SourceID,
			&item.Type,
			&item.OccurredAt,
			&item.Author,
			&item.Body,
			&item.ChannelID,
			&item.ChannelName,
			&item.ThreadID,
			&refs,
			&item.Reconciled,
			&item.IngestedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity item: %w", err)
		}
		if err := json.Unmarshal([]byte(refs), &item.ItemRefs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal item refs: %w", err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity rows: %w", err)
	}

	return items, nil
}

// MarkReconciled flips the reconciled flag for the given items
func (r *ActivityRepository) MarkReconciled(ctx context.Context, tenantID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, tenantID)
	for i, id := range ids {
		placeholders[i] = "?"
		args = append(args, id)
	}

	query := fmt.Sprintf(
		`UPDATE raw_activity SET reconciled = 1 WHERE tenant_id = ? AND id IN (%s)`,
		strings.Join(placeholders, ","),
	)

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to mark reconciled: %w", err)
	}

	return nil
}

// CountSince counts items ingested at or after the given instant
func (r *ActivityRepository) CountSince(ctx context.Context, tenantID string, since time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM raw_activity WHERE tenant_id = ? AND ingested_at >= ?`

	var count int
	if err := r.db.QueryRowContext(ctx, query, tenantID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count activity: %w", err)
	}

	return count, nil
}
