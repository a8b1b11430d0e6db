package repository

import (
	"context"
	"time"

	"github.com/loomhq/loom/internal/domain/source"
	"github.com/loomhq/loom/internal/domain/tenant"
	"github.com/loomhq/loom/internal/domain/workitem"
)

// TenantRepository manages tenant persistence.
type TenantRepository interface {
	Create(ctx context.Context, t *tenant.Tenant) error
	Get(ctx context.Context, id string) (*tenant.Tenant, error)
	Update(ctx context.Context, t *tenant.Tenant) error
	// ListEligible returns tenants whose subscription permits sync at the
	// given instant: active, or trialing with the trial not yet ended.
	ListEligible(ctx context.Context, now time.Time) ([]tenant.Tenant, error)
}

// Cursor is the per-tenant, per-source incremental sync watermark.
type Cursor struct {
	TenantID  string        `json:"tenant_id"`
	Source    source.Source `json:"source"`
	Watermark string        `json:"watermark"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// CursorRepository manages sync watermarks. Watermarks are opaque strings
// whose byte order matches the source's event order; connectors are
// responsible for producing them that way.
type CursorRepository interface {
	// Get returns ErrNotFound when the tenant/source pair has never synced.
	Get(ctx context.Context, tenantID string, src source.Source) (*Cursor, error)
	// Advance moves the watermark forward. A watermark at or behind the
	// stored one fails with ErrStaleCursor and leaves the row untouched.
	Advance(ctx context.Context, tenantID string, src source.Source, watermark string) error
}

// WorkItemRepository manages the local mirror of tracker work items.
type WorkItemRepository interface {
	Upsert(ctx context.Context, tenantID string, items []workitem.WorkItem) error
	Get(ctx context.Context, tenantID, id string) (*workitem.WorkItem, error)
	GetByIdentifier(ctx context.Context, tenantID, identifier string) (*workitem.WorkItem, error)
	ListOpen(ctx context.Context, tenantID string) ([]workitem.WorkItem, error)
	SetState(ctx context.Context, tenantID, id, stateName string, stateType workitem.StateType) error
}

// Lease is an expiring exclusivity claim on one tenant/source sync run.
type Lease struct {
	TenantID  string
	Source    source.Source
	Holder    string
	ExpiresAt time.Time
}

// LeaseRepository serializes sync runs so overlapping schedules and multiple
// workers never run the same tenant/source pair concurrently.
type LeaseRepository interface {
	// Acquire claims the lease, taking over expired ones. A live lease held
	// by someone else fails with ErrLeaseHeld.
	Acquire(ctx context.Context, tenantID string, src source.Source, holder string, ttl time.Duration) error
	// Release drops the lease if the holder still owns it.
	Release(ctx context.Context, tenantID string, src source.Source, holder string) error
}

// APIKeyRepository resolves hashed bearer tokens to tenants.
type APIKeyRepository interface {
	Create(ctx context.Context, keyHash, tenantID, description string) error
	Resolve(ctx context.Context, keyHash string) (tenantID string, err error)
}
