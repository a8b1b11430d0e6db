package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/loomhq/loom/internal/domain/credential"
	"github.com/loomhq/loom/internal/domain/source"
	"github.com/loomhq/loom/internal/repository"
)

// CredentialRepository implements credential.Repository for SQLite
type CredentialRepository struct {
	db *DB
}

// NewCredentialRepository creates a new CredentialRepository
func NewCredentialRepository(db *DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// Get retrieves the credential for a tenant/source pair
func (r *CredentialRepository) Get(ctx context.Context, tenantID string, src source.Source) (*credential.Credential, error) {
	query := `
		SELECT tenant_id, source, sealed_token, token_expires_at, workspace_id, active, created_at, updated_at
		FROM credentials
		WHERE tenant_id = ? AND source = ?
	`

	var cred credential.Credential
	var tokenExpiresAt sql.NullTime
	var workspaceID sql.NullString
	err := r.db.QueryRowContext(ctx, query, tenantID, src).Scan(
		&cred.TenantID,
		&cred.Source,
		&cred.SealedToken,
		&tokenExpiresAt,
		&workspaceID,
		&cred.Active,
		&cred.CreatedAt,
		&cred.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}

	if tokenExpiresAt.Valid {
		cred.TokenExpiresAt = &tokenExpiresAt.Time
	}
	cred.WorkspaceID = workspaceID.String

	return &cred, nil
}

// Put inserts or replaces the credential for a tenant/source pair
func (r *CredentialRepository) Put(ctx context.Context, tenantID string, cred *credential.Credential) error {
	query := `
		INSERT INTO credentials (tenant_id, source, sealed_token, token_expires_at, workspace_id, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, source) DO UPDATE SET
			sealed_token = excluded.sealed_token,
			token_expires_at = excluded.token_expires_at,
			workspace_id = excluded.workspace_id,
			active = excluded.active,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		tenantID,
		cred.Source,
		cred.SealedToken,
		cred.TokenExpiresAt,
		cred.WorkspaceID,
		cred.Active,
		cred.CreatedAt,
		cred.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		return fmt.Errorf("failed to put credential: %w", err)
	}

	return nil
}

// Revoke deactivates the credential without discarding it
func (r *CredentialRepository) Revoke(ctx context.Context, tenantID string, src source.Source) error {
	query := `
		UPDATE credentials
		SET active = 0, updated_at = CURRENT_TIMESTAMP
		WHERE tenant_id = ? AND source = ?
	`

	result, err := r.db.ExecContext(ctx, query, tenantID, src)
	if err != nil {
		return fmt.Errorf("failed to revoke credential: %w", err)
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

// Delete removes the credential row entirely
func (r *CredentialRepository) Delete(ctx context.Context, tenantID string, src source.Source) error {
	query := `DELETE FROM credentials WHERE tenant_id = ? AND source = ?`

	result, err := r.db.ExecContext(ctx, query, tenantID, src)
	if err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
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
