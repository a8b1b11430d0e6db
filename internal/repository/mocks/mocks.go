package mocks

import (
	"context"
	"time"

	"github.com/loomhq/loom/internal/domain/activity"
	"github.com/loomhq/loom/internal/domain/credential"
	"github.com/loomhq/loom/internal/domain/decision"
	"github.com/loomhq/loom/internal/domain/source"
	"github.com/loomhq/loom/internal/domain/tenant"
	"github.com/loomhq/loom/internal/domain/workitem"
	"github.com/loomhq/loom/internal/repository"
	"github.com/stretchr/testify/mock"
)

// TenantRepository is a mock for repository.TenantRepository.
type TenantRepository struct {
	mock.Mock
}

func (m *TenantRepository) Create(ctx context.Context, t *tenant.Tenant) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *TenantRepository) Get(ctx context.Context, id string) (*tenant.Tenant, error) {
	args := m.Called(ctx, id)
	if t, ok := args.Get(0).(*tenant.Tenant); ok {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TenantRepository) Update(ctx context.Context, t *tenant.Tenant) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *TenantRepository) ListEligible(ctx context.Context, now time.Time) ([]tenant.Tenant, error) {
	args := m.Called(ctx, now)
	if list, ok := args.Get(0).([]tenant.Tenant); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// CursorRepository is a mock for repository.CursorRepository.
type CursorRepository struct {
	mock.Mock
}

func (m *CursorRepository) Get(ctx context.Context, tenantID string, src source.Source) (*repository.Cursor, error) {
	args := m.Called(ctx, tenantID, src)
	if c, ok := args.Get(0).(*repository.Cursor); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CursorRepository) Advance(ctx context.Context, tenantID string, src source.Source, watermark string) error {
	args := m.Called(ctx, tenantID, src, watermark)
	return args.Error(0)
}

// WorkItemRepository is a mock for repository.WorkItemRepository.
type WorkItemRepository struct {
	mock.Mock
}

func (m *WorkItemRepository) Upsert(ctx context.Context, tenantID string, items []workitem.WorkItem) error {
	args := m.Called(ctx, tenantID, items)
	return args.Error(0)
}

func (m *WorkItemRepository) Get(ctx context.Context, tenantID, id string) (*workitem.WorkItem, error) {
	args := m.Called(ctx, tenantID, id)
	if item, ok := args.Get(0).(*workitem.WorkItem); ok {
		return item, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *WorkItemRepository) GetByIdentifier(ctx context.Context, tenantID, identifier string) (*workitem.WorkItem, error) {
	args := m.Called(ctx, tenantID, identifier)
	if item, ok := args.Get(0).(*workitem.WorkItem); ok {
		return item, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *WorkItemRepository) ListOpen(ctx context.Context, tenantID string) ([]workitem.WorkItem, error) {
	args := m.Called(ctx, tenantID)
	if list, ok := args.Get(0).([]workitem.WorkItem); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *WorkItemRepository) SetState(ctx context.Context, tenantID, id, stateName string, stateType workitem.StateType) error {
	args := m.Called(ctx, tenantID, id, stateName, stateType)
	return args.Error(0)
}

// LeaseRepository is a mock for repository.LeaseRepository.
type LeaseRepository struct {
	mock.Mock
}

func (m *LeaseRepository) Acquire(ctx context.Context, tenantID string, src source.Source, holder string, ttl time.Duration) error {
	args := m.Called(ctx, tenantID, src, holder, ttl)
	return args.Error(0)
}

func (m *LeaseRepository) Release(ctx context.Context, tenantID string, src source.Source, holder string) error {
	args := m.Called(ctx, tenantID, src, holder)
	return args.Error(0)
}

// APIKeyRepository is a mock for repository.APIKeyRepository.
type APIKeyRepository struct {
	mock.Mock
}

func (m *APIKeyRepository) Create(ctx context.Context, keyHash, tenantID, description string) error {
	args := m.Called(ctx, keyHash, tenantID, description)
	return args.Error(0)
}

func (m *APIKeyRepository) Resolve(ctx context.Context, keyHash string) (string, error) {
	args := m.Called(ctx, keyHash)
	return args.String(0), args.Error(1)
}

// ActivityRepository is a mock for activity.Repository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) Append(ctx context.Context, tenantID string, items []activity.Item) ([]activity.Item, error) {
	args := m.Called(ctx, tenantID, items)
	if list, ok := args.Get(0).([]activity.Item); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ActivityRepository) ListUnreconciled(ctx context.Context, tenantID string, limit int) ([]activity.Item, error) {
	args := m.Called(ctx, tenantID, limit)
	if list, ok := args.Get(0).([]activity.Item); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ActivityRepository) MarkReconciled(ctx context.Context, tenantID string, ids []string) error {
	args := m.Called(ctx, tenantID, ids)
	return args.Error(0)
}

func (m *ActivityRepository) CountSince(ctx context.Context, tenantID string, since time.Time) (int, error) {
	args := m.Called(ctx, tenantID, since)
	return args.Int(0), args.Error(1)
}

// CredentialRepository is a mock for credential.Repository.
type CredentialRepository struct {
	mock.Mock
}

func (m *CredentialRepository) Get(ctx context.Context, tenantID string, src source.Source) (*credential.Credential, error) {
	args := m.Called(ctx, tenantID, src)
	if c, ok := args.Get(0).(*credential.Credential); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CredentialRepository) Put(ctx context.Context, tenantID string, c *credential.Credential) error {
	args := m.Called(ctx, tenantID, c)
	return args.Error(0)
}

func (m *CredentialRepository) Revoke(ctx context.Context, tenantID string, src source.Source) error {
	args := m.Called(ctx, tenantID, src)
	return args.Error(0)
}

func (m *CredentialRepository) Delete(ctx context.Context, tenantID string, src source.Source) error {
	args := m.Called(ctx, tenantID, src)
	return args.Error(0)
}

// DecisionRepository is a mock for decision.Repository.
type DecisionRepository struct {
	mock.Mock
}

func (m *DecisionRepository) Record(ctx context.Context, tenantID string, d *decision.Decision) error {
	args := m.Called(ctx, tenantID, d)
	return args.Error(0)
}

func (m *DecisionRepository) Get(ctx context.Context, tenantID, id string) (*decision.Decision, error) {
	args := m.Called(ctx, tenantID, id)
	if d, ok := args.Get(0).(*decision.Decision); ok {
		return d, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *DecisionRepository) Finalize(ctx context.Context, tenantID, id string, outcome decision.Outcome, appliedAt *time.Time, reason string) error {
	args := m.Called(ctx, tenantID, id, outcome, appliedAt, reason)
	return args.Error(0)
}

func (m *DecisionRepository) List(ctx context.Context, tenantID string, opts decision.ListOptions) ([]decision.Decision, error) {
	args := m.Called(ctx, tenantID, opts)
	if list, ok := args.Get(0).([]decision.Decision); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *DecisionRepository) CountAppliedByKind(ctx context.Context, tenantID string, since time.Time) (map[decision.Kind]int, error) {
	args := m.Called(ctx, tenantID, since)
	if counts, ok := args.Get(0).(map[decision.Kind]int); ok {
		return counts, args.Error(1)
	}
	return nil, args.Error(1)
}
