package tenant

import (
	"testing"
	"time"

	"github.com/loomhq/loom/internal/domain/source"
	"github.com/stretchr/testify/require"
)

func TestEligible(t *testing.T) {
	now := time.Now()
	yesterday := now.Add(-24 * time.Hour)
	tomorrow := now.Add(24 * time.Hour)

	cases := []struct {
		name     string
		tenant   Tenant
		eligible bool
	}{
		{"active", Tenant{Status: StatusActive}, true},
		{"trial in window", Tenant{Status: StatusTrial, TrialEndsAt: &tomorrow}, true},
		{"trial no expiry", Tenant{Status: StatusTrial}, true},
		{"trial expired", Tenant{Status: StatusTrial, TrialEndsAt: &yesterday}, false},
		{"cancelled", Tenant{Status: StatusCancelled}, false},
		{"expired", Tenant{Status: StatusExpired, TrialEndsAt: &tomorrow}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.eligible, tc.tenant.Eligible(now))
		})
	}
}

func TestTierAllows(t *testing.T) {
	free := Tenant{Tier: TierFree}
	starter := Tenant{Tier: TierStarter}
	scale := Tenant{Tier: TierScale}

	require.True(t, free.TierAllows(source.Chat))
	require.True(t, free.TierAllows(source.Tracker))
	require.False(t, free.TierAllows(source.CodeHost))
	require.False(t, starter.TierAllows(source.CodeHost))
	require.True(t, scale.TierAllows(source.CodeHost))
}

func TestTierRankOrdering(t *testing.T) {
	require.Less(t, TierFree.Rank(), TierStarter.Rank())
	require.Less(t, TierStarter.Rank(), TierScale.Rank())
	require.Equal(t, -1, Tier("enterprise").Rank())
}
