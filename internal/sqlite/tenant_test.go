package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/loomhq/loom/internal/domain/tenant"
	"github.com/loomhq/loom/internal/repository"
	"github.com/stretchr/testify/require"
)

func TestTenantCreateGet(t *testing.T) {
	db := NewTestDB(t)
	repo := NewTenantRepository(db)
	ctx := context.Background()

	trialEnd := time.Now().Add(14 * 24 * time.Hour).UTC().Truncate(time.Second)
	now := time.Now().UTC().Truncate(time.Second)
	err := repo.Create(ctx, &tenant.Tenant{
		ID:          "t1",
		Name:        "Acme",
		Tier:        tenant.TierFree,
		Status:      tenant.StatusTrial,
		TrialEndsAt: &trialEnd,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	require.NoError(t, err)

	got, err := repo.Get(ctx, "t1")
	require.NoError(t, err)
	require.Equal(t, "Acme", got.Name)
	require.Equal(t, tenant.TierFree, got.Tier)
	require.Equal(t, tenant.StatusTrial, got.Status)
	require.NotNil(t, got.TrialEndsAt)
	require.True(t, got.TrialEndsAt.Equal(trialEnd))
}

func TestTenantGetNotFound(t *testing.T) {
	db := NewTestDB(t)
	repo := NewTenantRepository(db)

	_, err := repo.Get(context.Background(), "missing")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestTenantCreateDuplicate(t *testing.T) {
	db := NewTestDB(t)
	createTestTenant(t, db, "t1")

	now := time.Now()
	err := NewTenantRepository(db).Create(context.Background(), &tenant.Tenant{
		ID:        "t1",
		Name:      "Duplicate",
		Tier:      tenant.TierFree,
		Status:    tenant.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.ErrorIs(t, err, repository.ErrConflict)
}

func TestTenantUpdate(t *testing.T) {
	db := NewTestDB(t)
	repo := NewTenantRepository(db)
	ctx := context.Background()
	createTestTenant(t, db, "t1")

	got, err := repo.Get(ctx, "t1")
	require.NoError(t, err)

	got.Tier = tenant.TierScale
	got.Status = tenant.StatusActive
	got.UpdatedAt = time.Now()
	require.NoError(t, repo.Update(ctx, got))

	got, err = repo.Get(ctx, "t1")
	require.NoError(t, err)
	require.Equal(t, tenant.TierScale, got.Tier)
}

func TestTenantListEligible(t *testing.T) {
	db := NewTestDB(t)
	repo := NewTenantRepository(db)
	ctx := context.Background()
	now := time.Now()

	pastTrial := now.Add(-24 * time.Hour)
	futureTrial := now.Add(24 * time.Hour)

	for _, tc := range []struct {
		id          string
		status      tenant.Status
		trialEndsAt *time.Time
	}{
		{"active", tenant.StatusActive, nil},
		{"live-trial", tenant.StatusTrial, &futureTrial},
		{"open-trial", tenant.StatusTrial, nil},
		{"expired-trial", tenant.StatusTrial, &pastTrial},
		{"cancelled", tenant.StatusCancelled, nil},
		{"expired", tenant.StatusExpired, nil},
	} {
		err := repo.Create(ctx, &tenant.Tenant{
			ID:          tc.id,
			Name:        tc.id,
			Tier:        tenant.TierStarter,
			Status:      tc.status,
			TrialEndsAt: tc.trialEndsAt,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		require.NoError(t, err)
	}

	eligible, err := repo.ListEligible(ctx, now)
	require.NoError(t, err)

	var ids []string
	for _, ten := range eligible {
		ids = append(ids, ten.ID)
	}
	require.ElementsMatch(t, []string{"active", "live-trial", "open-trial"}, ids)
}
