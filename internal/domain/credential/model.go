package credential

import (
	"time"

	"github.com/loomhq/loom/internal/domain/source"
)

// Credential holds a tenant's access to one external source. Token material
// is sealed at rest; Token carries the opened value only on reads through
// the service and is never persisted.
type Credential struct {
	TenantID       string        `json:"tenant_id"`
	Source         source.Source `json:"source"`
	Token          string        `json:"-"`
	SealedToken    string        `json:"-"`
	TokenExpiresAt *time.Time    `json:"token_expires_at,omitempty"`
	WorkspaceID    string        `json:"workspace_id,omitempty"`
	Active         bool          `json:"active"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}
