package tenant

import (
	"time"

	"github.com/loomhq/loom/internal/domain/source"
)

// Tier is an ordered subscription level gating source availability.
type Tier string

const (
	TierFree    Tier = "free"
	TierStarter Tier = "starter"
	TierScale   Tier = "scale"
)

var tierRank = map[Tier]int{
	TierFree:    0,
	TierStarter: 1,
	TierScale:   2,
}

// Rank returns the ordering position of a tier. Unknown tiers rank below free.
func (t Tier) Rank() int {
	if r, ok := tierRank[t]; ok {
		return r
	}
	return -1
}

// Status is the subscription lifecycle state.
type Status string

const (
	StatusTrial     Status = "trial"
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// Tenant is the isolation boundary for all other entities.
type Tenant struct {
	ID          string
	Name        string
	Tier        Tier
	Status      Status
	TrialEndsAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Eligible reports whether scheduled runs may execute for this tenant:
// active subscription, or a trial that has not yet ended.
func (t *Tenant) Eligible(now time.Time) bool {
	switch t.Status {
	case StatusActive:
		return true
	case StatusTrial:
		return t.TrialEndsAt == nil || t.TrialEndsAt.After(now)
	}
	return false
}

// TierAllows reports whether the tenant's tier unlocks the given source.
// The code-host source requires the scale tier; chat and tracker are
// available at every tier.
func (t *Tenant) TierAllows(src source.Source) bool {
	if src == source.CodeHost {
		return t.Tier.Rank() >= TierScale.Rank()
	}
	return true
}
