package credential

import (
	"context"

	"github.com/loomhq/loom/internal/domain/source"
)

// Repository provides persistence for sealed credentials.
type Repository interface {
	Get(ctx context.Context, tenantID string, src source.Source) (*Credential, error)
	Put(ctx context.Context, tenantID string, cred *Credential) error
	Revoke(ctx context.Context, tenantID string, src source.Source) error
	Delete(ctx context.Context, tenantID string, src source.Source) error
}
