package decision

import (
	"time"

	"github.com/loomhq/loom/internal/domain/source"
)

// Kind is the category of automated action a decision proposes.
type Kind string

const (
	KindLinkToItem     Kind = "link_to_item"
	KindCreateItem     Kind = "create_item"
	KindTransitionItem Kind = "transition_item"
	KindPostSummary    Kind = "post_summary"
)

// Outcome is the lifecycle state of a decision. A decision is immutable
// once its outcome leaves pending; corrections require a new decision.
type Outcome string

const (
	OutcomePending  Outcome = "pending"
	OutcomeApplied  Outcome = "applied"
	OutcomeRejected Outcome = "rejected"
	OutcomeFailed   Outcome = "failed"
)

// Terminal reports whether o is a final outcome.
func (o Outcome) Terminal() bool {
	switch o {
	case OutcomeApplied, OutcomeRejected, OutcomeFailed:
		return true
	}
	return false
}

// Decision is one proposed or executed automated action, with the model's
// confidence and rationale. It forms the tenant's audit trail.
type Decision struct {
	ID                 string        `json:"id"`
	TenantID           string        `json:"tenant_id"`
	Kind               Kind          `json:"kind"`
	Source             source.Source `json:"source"`
	SubjectActivityIDs []string      `json:"subject_activity_ids,omitempty"`
	ChannelID          string        `json:"channel_id,omitempty"`
	ChannelName        string        `json:"channel_name,omitempty"`
	ThreadID           string        `json:"thread_id,omitempty"`
	TargetItemID       *string       `json:"target_item_id,omitempty"`
	TargetIdentifier   string        `json:"target_identifier,omitempty"`
	Title              string        `json:"title,omitempty"`
	Body               string        `json:"body,omitempty"`
	ToStateName        string        `json:"to_state_name,omitempty"`
	ToStateType        string        `json:"to_state_type,omitempty"`
	Confidence         float64       `json:"confidence"`
	Rationale          string        `json:"rationale"`
	AutoApply          bool          `json:"auto_apply"`
	ProposedAt         time.Time     `json:"proposed_at"`
	Outcome            Outcome       `json:"outcome"`
	AppliedAt          *time.Time    `json:"applied_at,omitempty"`
	FailureReason      string        `json:"failure_reason,omitempty"`
}

// Metrics summarizes automated activity for a tenant over a window.
type Metrics struct {
	Synced  int `json:"synced"`
	Linked  int `json:"linked"`
	Moved   int `json:"moved"`
	Created int `json:"created"`
}
