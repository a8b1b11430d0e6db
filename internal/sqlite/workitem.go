package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/loomhq/loom/internal/domain/workitem"
	"github.com/loomhq/loom/internal/repository"
)

// WorkItemRepository implements repository.WorkItemRepository for SQLite
type WorkItemRepository struct {
	db *DB
}

// NewWorkItemRepository creates a new WorkItemRepository
func NewWorkItemRepository(db *DB) *WorkItemRepository {
	return &WorkItemRepository{db: db}
}

// Upsert inserts or refreshes mirrored work items
func (r *WorkItemRepository) Upsert(ctx context.Context, tenantID string, items []workitem.WorkItem) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO work_items (
			tenant_id, id, identifier, title, description,
			state_name, state_type, url, assignee, parent_id, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, id) DO UPDATE SET
			identifier = excluded.identifier,
			title = excluded.title,
			description = excluded.description,
			state_name = excluded.state_name,
			state_type = excluded.state_type,
			url = excluded.url,
			assignee = excluded.assignee,
			parent_id = excluded.parent_id,
			updated_at = excluded.updated_at
	`

	for _, item := range items {
		_, err := tx.ExecContext(ctx, query,
			tenantID,
			item.ID,
			item.Identifier,
			item.Title,
			item.Description,
			item.StateName,
			item.StateType,
			item.URL,
			item.Assignee,
			item.ParentID,
			item.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert work item %s: %w", item.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Get retrieves a work item by source-native ID
func (r *WorkItemRepository) Get(ctx context.Context, tenantID, id string) (*workitem.WorkItem, error) {
	query := selectWorkItem + ` WHERE tenant_id = ? AND id = ?`
	return r.getOne(ctx, query, tenantID, id)
}

// GetByIdentifier retrieves a work item by its human identifier (e.g. ABC-12)
func (r *WorkItemRepository) GetByIdentifier(ctx context.Context, tenantID, identifier string) (*workitem.WorkItem, error) {
	query := selectWorkItem + ` WHERE tenant_id = ? AND identifier = ?`
	return r.getOne(ctx, query, tenantID, identifier)
}

// ListOpen returns items not yet in a terminal state
func (r *WorkItemRepository) ListOpen(ctx context.Context, tenantID string) ([]workitem.WorkItem, error) {
	query := selectWorkItem + `
		WHERE tenant_id = ? AND state_type NOT IN ('completed', 'cancelled')
		ORDER BY identifier
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list open work items: %w", err)
	}
	defer rows.Close()

	var items []workitem.WorkItem
	for rows.Next() {
		item, err := scanWorkItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan work item: %w", err)
		}
		items = append(items, *item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating work item rows: %w", err)
	}

	return items, nil
}

// SetState updates the mirrored state after an applied transition
func (r *WorkItemRepository) SetState(ctx context.Context, tenantID, id, stateName string, stateType workitem.StateType) error {
	query := `
		UPDATE work_items
		SET state_name = ?, state_type = ?, updated_at = ?
		WHERE tenant_id = ? AND id = ?
	`

	result, err := r.db.ExecContext(ctx, query, stateName, stateType, time.Now(), tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to set work item state: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

const selectWorkItem = `
	SELECT tenant_id, id, identifier, title, description,
	       state_name, state_type, url, assignee, parent_id, updated_at
	FROM work_items
`

func (r *WorkItemRepository) getOne(ctx context.Context, query string, args ...interface{}) (*workitem.WorkItem, error) {
	item, err := scanWorkItem(r.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get work item: %w", err)
	}
	return item, nil
}

func scanWorkItem(row rowScanner) (*workitem.WorkItem, error) {
	var item workitem.WorkItem
	var description, url, assignee, parentID sql.NullString
	err := row.Scan(
		&item.TenantID,
		&item.ID,
		&item.Identifier,
		&item.Title,
		&description,
		&item.StateName,
		&item.StateType,
		&url,
		&assignee,
		&parentID,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	item.Description = description.String
	item.URL = url.String
	item.Assignee = assignee.String
	if parentID.Valid {
		item.ParentID = &parentID.String
	}
	return &item, nil
}
