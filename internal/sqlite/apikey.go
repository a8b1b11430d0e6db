package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/loomhq/loom/internal/repository"
)

// APIKeyRepository implements repository.APIKeyRepository for SQLite
type APIKeyRepository struct {
	db *DB
}

// NewAPIKeyRepository creates a new APIKeyRepository
func NewAPIKeyRepository(db *DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

// Create stores a hashed API key for a tenant
func (r *APIKeyRepository) Create(ctx context.Context, keyHash, tenantID, description string) error {
	query := `INSERT INTO api_keys (key_hash, tenant_id, description) VALUES (?, ?, ?)`

	if _, err := r.db.ExecContext(ctx, query, keyHash, tenantID, description); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("failed to create api key: %w", err)
	}

	return nil
}

// Resolve returns the tenant for a hashed key and bumps last_used
func (r *APIKeyRepository) Resolve(ctx context.Context, keyHash string) (string, error) {
	var tenantID string
	err := r.db.QueryRowContext(ctx,
		`SELECT tenant_id FROM api_keys WHERE key_hash = ?`, keyHash).Scan(&tenantID)
	if err == sql.ErrNoRows {
		return "", repository.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve api key: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`UPDATE api_keys SET last_used = CURRENT_TIMESTAMP WHERE key_hash = ?`, keyHash)
	if err != nil {
		return "", fmt.Errorf("failed to update api key usage: %w", err)
	}

	return tenantID, nil
}
