package apply

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/loomhq/loom/internal/connector"
	"github.com/loomhq/loom/internal/domain/credential"
	"github.com/loomhq/loom/internal/domain/decision"
	"github.com/loomhq/loom/internal/domain/source"
	"github.com/loomhq/loom/internal/domain/workitem"
	"github.com/loomhq/loom/internal/repository"
)

// DecisionStore is the applier's view of the decision log.
type DecisionStore interface {
	Get(ctx context.Context, tenantID, id string) (*decision.Decision, error)
	Finalize(ctx context.Context, tenantID, id string, outcome decision.Outcome, appliedAt *time.Time, reason string) error
}

// CredentialSource yields opened credentials for outbound writes.
type CredentialSource interface {
	Get(ctx context.Context, tenantID string, src source.Source) (*credential.Credential, error)
}

// ItemMirror is the applier's view of the work item mirror.
type ItemMirror interface {
	Upsert(ctx context.Context, tenantID string, items []workitem.WorkItem) error
	SetState(ctx context.Context, tenantID, id, stateName string, stateType workitem.StateType) error
}

// Applier executes pending decisions against external sources. The decision
// outcome is the idempotency guard: a decision whose outcome already left
// pending produces no external write.
type Applier struct {
	decisions   DecisionStore
	credentials CredentialSource
	connectors  connector.Registry
	items       ItemMirror
	maxTries    uint
	logger      *slog.Logger
}

// NewApplier creates a new Applier. maxTries bounds attempts per decision,
// counting the first.
func NewApplier(
	decisions DecisionStore,
	credentials CredentialSource,
	connectors connector.Registry,
	items ItemMirror,
	maxTries uint,
	logger *slog.Logger,
) *Applier {
	if maxTries == 0 {
		maxTries = 3
	}
	return &Applier{
		decisions:   decisions,
		credentials: credentials,
		connectors:  connectors,
		items:       items,
		maxTries:    maxTries,
		logger:      logger,
	}
}

// Apply executes one decision. Transient connector errors are retried with
// exponential backoff up to maxTries; exhaustion or a permanent error
// finalizes the decision as failed. Success finalizes it as applied and
// updates the local mirror.
func (a *Applier) Apply(ctx context.Context, tenantID, decisionID string) error {
	d, err := a.decisions.Get(ctx, tenantID, decisionID)
	if err != nil {
		return fmt.Errorf("loading decision: %w", err)
	}
	if d.Outcome != decision.OutcomePending {
		return fmt.Errorf("decision %s: %w", decisionID, repository.ErrAlreadyFinalized)
	}

	target := targetSource(d)
	conn, err := a.connectors.Get(target)
	if err != nil {
		return a.fail(ctx, tenantID, d, err)
	}

	cred, err := a.credentials.Get(ctx, tenantID, target)
	if err != nil {
		return a.fail(ctx, tenantID, d, fmt.Errorf("no usable credential for %s: %w", target, err))
	}

	spec := buildWriteSpec(d)

	result, err := backoff.Retry(ctx, func() (*connector.WriteResult, error) {
		res, err := conn.ApplyWrite(ctx, cred.Token, spec)
		if err != nil {
			if connector.IsTransient(err) {
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		return res, nil
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(a.maxTries),
	)
	if err != nil {
		return a.fail(ctx, tenantID, d, fmt.Errorf("applying %s write: %w", spec.Kind, err))
	}

	if err := a.updateMirror(ctx, tenantID, d, result); err != nil {
		// The external write landed; report the mirror problem but still
		// finalize so a retry can't write twice.
		if a.logger != nil {
			a.logger.Error("mirror update failed after applied write",
				"tenant", tenantID, "decision", decisionID, "error", err)
		}
	}

	now := time.Now()
	if err := a.decisions.Finalize(ctx, tenantID, decisionID, decision.OutcomeApplied, &now, ""); err != nil {
		return fmt.Errorf("finalizing decision %s: %w", decisionID, err)
	}

	if a.logger != nil {
		a.logger.Info("decision applied",
			"tenant", tenantID, "decision", decisionID, "kind", d.Kind, "target", d.TargetIdentifier)
	}
	return nil
}

func (a *Applier) fail(ctx context.Context, tenantID string, d *decision.Decision, cause error) error {
	if err := a.decisions.Finalize(ctx, tenantID, d.ID, decision.OutcomeFailed, nil, cause.Error()); err != nil {
		return fmt.Errorf("finalizing failed decision %s: %w (apply error: %v)", d.ID, err, cause)
	}
	if a.logger != nil {
		a.logger.Warn("decision failed",
			"tenant", tenantID, "decision", d.ID, "kind", d.Kind, "error", cause)
	}
	return cause
}

func (a *Applier) updateMirror(ctx context.Context, tenantID string, d *decision.Decision, result *connector.WriteResult) error {
	switch d.Kind {
	case decision.KindCreateItem:
		if result != nil && result.Item != nil {
			item := *result.Item
			item.TenantID = tenantID
			return a.items.Upsert(ctx, tenantID, []workitem.WorkItem{item})
		}
	case decision.KindTransitionItem:
		if d.TargetItemID != nil {
			return a.items.SetState(ctx, tenantID, *d.TargetItemID,
				d.ToStateName, workitem.StateType(d.ToStateType))
		}
	}
	return nil
}

// targetSource maps a decision kind to the source it writes to. Links,
// creates, and transitions all land on the tracker regardless of where the
// subject activity came from; summaries go back to chat.
func targetSource(d *decision.Decision) source.Source {
	if d.Kind == decision.KindPostSummary {
		return source.Chat
	}
	return source.Tracker
}

func buildWriteSpec(d *decision.Decision) connector.WriteSpec {
	switch d.Kind {
	case decision.KindLinkToItem:
		itemID := ""
		if d.TargetItemID != nil {
			itemID = *d.TargetItemID
		}
		return connector.WriteSpec{
			Kind:   connector.WriteComment,
			ItemID: itemID,
			Body:   linkCommentBody(d),
		}
	case decision.KindTransitionItem:
		itemID := ""
		if d.TargetItemID != nil {
			itemID = *d.TargetItemID
		}
		return connector.WriteSpec{
			Kind:      connector.WriteTransition,
			ItemID:    itemID,
			StateName: d.ToStateName,
			StateType: d.ToStateType,
		}
	case decision.KindCreateItem:
		body := d.Body
		if body == "" {
			body = d.Rationale
		}
		return connector.WriteSpec{
			Kind:  connector.WriteCreateItem,
			Title: d.Title,
			Body:  body,
		}
	default:
		return connector.WriteSpec{
			Kind: connector.WritePostMessage,
			Body: d.Body,
		}
	}
}

// linkCommentBody renders the comment for a link decision, pointing back at
// the conversation the link came from.
func linkCommentBody(d *decision.Decision) string {
	n := len(d.SubjectActivityIDs)
	noun := "messages"
	if n == 1 {
		noun = "message"
	}
	ref := conversationRef(d)
	if ref != "" {
		return fmt.Sprintf("Linked %d %s from %s %s.\n\n%s", n, noun, d.Source, ref, d.Rationale)
	}
	return fmt.Sprintf("Linked %d %s from %s.\n\n%s", n, noun, d.Source, d.Rationale)
}

func conversationRef(d *decision.Decision) string {
	channel := d.ChannelName
	if channel != "" {
		channel = "#" + channel
	} else {
		channel = d.ChannelID
	}
	switch {
	case channel != "" && d.ThreadID != "":
		return fmt.Sprintf("%s (thread %s)", channel, d.ThreadID)
	case channel != "":
		return channel
	case d.ThreadID != "":
		return fmt.Sprintf("thread %s", d.ThreadID)
	}
	return ""
}
