package decision

import (
	"context"
	"testing"
	"time"

	"github.com/loomhq/loom/internal/repository"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) Record(ctx context.Context, tenantID string, d *Decision) error {
	args := m.Called(ctx, tenantID, d)
	return args.Error(0)
}

func (m *mockRepository) Get(ctx context.Context, tenantID, id string) (*Decision, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Decision), args.Error(1)
}

func (m *mockRepository) Finalize(ctx context.Context, tenantID, id string, outcome Outcome, appliedAt *time.Time, reason string) error {
	args := m.Called(ctx, tenantID, id, outcome, appliedAt, reason)
	return args.Error(0)
}

func (m *mockRepository) List(ctx context.Context, tenantID string, opts ListOptions) ([]Decision, error) {
	args := m.Called(ctx, tenantID, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Decision), args.Error(1)
}

func (m *mockRepository) CountAppliedByKind(ctx context.Context, tenantID string, since time.Time) (map[Kind]int, error) {
	args := m.Called(ctx, tenantID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[Kind]int), args.Error(1)
}

type mockCounter struct {
	mock.Mock
}

func (m *mockCounter) CountSince(ctx context.Context, tenantID string, since time.Time) (int, error) {
	args := m.Called(ctx, tenantID, since)
	return args.Int(0), args.Error(1)
}

func TestRecord(t *testing.T) {
	repo := new(mockRepository)
	svc := NewService(repo, new(mockCounter), nil)

	repo.On("Record", mock.Anything, "tenant1", mock.AnythingOfType("*decision.Decision")).Return(nil)

	d := &Decision{Kind: KindLinkToItem, Confidence: 0.9, Rationale: "looks right"}
	err := svc.Record(context.Background(), "tenant1", d)
	require.NoError(t, err)
	require.NotEmpty(t, d.ID)
	require.Equal(t, "tenant1", d.TenantID)
	require.Equal(t, OutcomePending, d.Outcome)
	require.False(t, d.ProposedAt.IsZero())
	repo.AssertExpectations(t)
}

func TestRecord_Validation(t *testing.T) {
	svc := NewService(new(mockRepository), new(mockCounter), nil)

	err := svc.Record(context.Background(), "tenant1", nil)
	require.ErrorIs(t, err, ErrInvalidInput)

	err = svc.Record(context.Background(), "", &Decision{Kind: KindLinkToItem})
	require.ErrorIs(t, err, ErrInvalidInput)

	err = svc.Record(context.Background(), "tenant1", &Decision{Kind: KindLinkToItem, Confidence: 1.5})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestGet_NotFound(t *testing.T) {
	repo := new(mockRepository)
	svc := NewService(repo, new(mockCounter), nil)

	repo.On("Get", mock.Anything, "tenant1", "missing").Return(nil, repository.ErrNotFound)

	_, err := svc.Get(context.Background(), "tenant1", "missing")
	require.ErrorIs(t, err, ErrDecisionNotFound)
}

func TestFinalize(t *testing.T) {
	repo := new(mockRepository)
	svc := NewService(repo, new(mockCounter), nil)

	now := time.Now()
	repo.On("Finalize", mock.Anything, "tenant1", "d1", OutcomeApplied, &now, "").Return(nil)

	err := svc.Finalize(context.Background(), "tenant1", "d1", OutcomeApplied, &now, "")
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestFinalize_RejectsNonTerminalOutcome(t *testing.T) {
	repo := new(mockRepository)
	svc := NewService(repo, new(mockCounter), nil)

	err := svc.Finalize(context.Background(), "tenant1", "d1", OutcomePending, nil, "")
	require.ErrorIs(t, err, ErrInvalidInput)
	repo.AssertNotCalled(t, "Finalize")
}

func TestFinalize_AlreadyFinalized(t *testing.T) {
	repo := new(mockRepository)
	svc := NewService(repo, new(mockCounter), nil)

	repo.On("Finalize", mock.Anything, "tenant1", "d1", OutcomeRejected, (*time.Time)(nil), "operator veto").
		Return(repository.ErrAlreadyFinalized)

	err := svc.Finalize(context.Background(), "tenant1", "d1", OutcomeRejected, nil, "operator veto")
	require.ErrorIs(t, err, repository.ErrAlreadyFinalized)
}

func TestMetrics(t *testing.T) {
	repo := new(mockRepository)
	counter := new(mockCounter)
	svc := NewService(repo, counter, nil)

	counter.On("CountSince", mock.Anything, "tenant1", mock.AnythingOfType("time.Time")).Return(42, nil)
	repo.On("CountAppliedByKind", mock.Anything, "tenant1", mock.AnythingOfType("time.Time")).
		Return(map[Kind]int{KindLinkToItem: 5, KindTransitionItem: 2}, nil)

	m, err := svc.Metrics(context.Background(), "tenant1", 24*time.Hour)
	require.NoError(t, err)
	require.Equal(t, Metrics{Synced: 42, Linked: 5, Moved: 2, Created: 0}, m)
}
