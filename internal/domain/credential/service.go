package credential

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/loomhq/loom/internal/domain/source"
	"github.com/loomhq/loom/internal/repository"
	"github.com/loomhq/loom/internal/secret"
)

// Service handles credential storage with sealing at rest.
type Service struct {
	repo   Repository
	cipher secret.Cipher
	logger *slog.Logger
}

// NewService creates a new credential service.
func NewService(repo Repository, cipher secret.Cipher, logger *slog.Logger) *Service {
	return &Service{repo: repo, cipher: cipher, logger: logger}
}

// PutRequest describes a credential write.
type PutRequest struct {
	Source         source.Source
	Token          string
	TokenExpiresAt *time.Time
	WorkspaceID    string
}

// Put seals and stores a credential, replacing any previous one for the
// same tenant+source.
func (s *Service) Put(ctx context.Context, tenantID string, req PutRequest) (*Credential, error) {
	if tenantID == "" || !req.Source.Valid() || req.Token == "" {
		return nil, ErrInvalidInput
	}

	sealed, err := s.cipher.Seal(req.Token)
	if err != nil {
		return nil, fmt.Errorf("sealing token: %w", err)
	}

	now := time.Now()
	cred := &Credential{
		TenantID:       tenantID,
		Source:         req.Source,
		SealedToken:    sealed,
		TokenExpiresAt: req.TokenExpiresAt,
		WorkspaceID:    req.WorkspaceID,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Put(ctx, tenantID, cred); err != nil {
		return nil, fmt.Errorf("storing credential: %w", err)
	}
	return cred, nil
}

// Get returns the active credential for a tenant+source with the token
// opened, or ErrNotConnected when absent or revoked.
func (s *Service) Get(ctx context.Context, tenantID string, src source.Source) (*Credential, error) {
	cred, err := s.repo.Get(ctx, tenantID, src)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotConnected
		}
		return nil, fmt.Errorf("loading credential: %w", err)
	}
	if !cred.Active {
		return nil, ErrNotConnected
	}

	token, err := s.cipher.Open(cred.SealedToken)
	if err != nil {
		return nil, fmt.Errorf("opening token: %w", err)
	}
	cred.Token = token
	return cred, nil
}

// Revoke soft-deletes the credential on disconnect; the row remains for
// reconnect bookkeeping until the tenant is deleted.
func (s *Service) Revoke(ctx context.Context, tenantID string, src source.Source) error {
	if err := s.repo.Revoke(ctx, tenantID, src); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotConnected
		}
		return fmt.Errorf("revoking credential: %w", err)
	}
	if s.logger != nil {
		s.logger.Info("credential revoked", "tenant", tenantID, "source", src)
	}
	return nil
}

// Delete physically removes the credential. Used by tenant deletion only.
func (s *Service) Delete(ctx context.Context, tenantID string, src source.Source) error {
	return s.repo.Delete(ctx, tenantID, src)
}
