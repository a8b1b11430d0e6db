package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/loomhq/loom/internal/domain/activity"
	"github.com/loomhq/loom/internal/domain/decision"
	"github.com/loomhq/loom/internal/domain/workitem"
)

// Policy holds the confidence thresholds driving the decision policy.
type Policy struct {
	// AutoApplyThreshold is the confidence at or above which decisions are
	// auto-applicable; state transitions are never proposed below it.
	AutoApplyThreshold float64
	// ProposeThreshold is the confidence below which candidate matches are
	// discarded without recording a decision.
	ProposeThreshold float64
	// NewWorkThreshold gates create-item proposals from the independent
	// new-work signal.
	NewWorkThreshold float64
}

// DefaultPolicy returns the stock thresholds.
func DefaultPolicy() Policy {
	return Policy{
		AutoApplyThreshold: 0.8,
		ProposeThreshold:   0.5,
		NewWorkThreshold:   0.7,
	}
}

// ActivityStore is the engine's view of the raw activity store.
type ActivityStore interface {
	ListUnreconciled(ctx context.Context, tenantID string, limit int) ([]activity.Item, error)
	MarkReconciled(ctx context.Context, tenantID string, ids []string) error
}

// WorkItemStore is the engine's view of the work item mirror.
type WorkItemStore interface {
	ListOpen(ctx context.Context, tenantID string) ([]workitem.WorkItem, error)
}

// DecisionStore is the engine's view of the decision log.
type DecisionStore interface {
	Record(ctx context.Context, tenantID string, d *decision.Decision) error
	ListForTenant(ctx context.Context, tenantID string, opts decision.ListOptions) ([]decision.Decision, error)
}

// Summary reports what one reconciliation pass did.
type Summary struct {
	Scanned        int
	Groups         int
	Recorded       []decision.Decision
	CapabilityDown bool
}

// Service is the reconciliation engine: it consumes unreconciled activity
// and the tenant's open work items and produces decisions.
type Service struct {
	activities    ActivityStore
	items         WorkItemStore
	decisions     DecisionStore
	matcher       Matcher
	policy        Policy
	batchLimit    int
	groupWindow   time.Duration
	maxCandidates int
	logger        *slog.Logger
}

// Options tunes batch sizes and grouping.
type Options struct {
	BatchLimit    int
	GroupWindow   time.Duration
	MaxCandidates int
}

// NewService creates a new reconciliation engine.
func NewService(
	activities ActivityStore,
	items WorkItemStore,
	decisions DecisionStore,
	matcher Matcher,
	policy Policy,
	opts Options,
	logger *slog.Logger,
) *Service {
	if opts.BatchLimit <= 0 {
		opts.BatchLimit = 200
	}
	if opts.GroupWindow <= 0 {
		opts.GroupWindow = 15 * time.Minute
	}
	if opts.MaxCandidates <= 0 {
		opts.MaxCandidates = 25
	}
	return &Service{
		activities:    activities,
		items:         items,
		decisions:     decisions,
		matcher:       matcher,
		policy:        policy,
		batchLimit:    opts.BatchLimit,
		groupWindow:   opts.GroupWindow,
		maxCandidates: opts.MaxCandidates,
		logger:        logger,
	}
}

// Reconcile runs one pass for a tenant. Capability failures are recoverable:
// the affected groups stay unreconciled for the next cycle and no error is
// returned. Store failures abort the pass.
func (s *Service) Reconcile(ctx context.Context, tenantID string) (Summary, error) {
	items, err := s.activities.ListUnreconciled(ctx, tenantID, s.batchLimit)
	if err != nil {
		return Summary{}, fmt.Errorf("listing unreconciled activity: %w", err)
	}
	summary := Summary{Scanned: len(items)}
	if len(items) == 0 {
		return summary, nil
	}

	open, err := s.items.ListOpen(ctx, tenantID)
	if err != nil {
		return summary, fmt.Errorf("listing open work items: %w", err)
	}

	groups := GroupItems(items, s.groupWindow)
	summary.Groups = len(groups)

	for _, g := range groups {
		candidates := SelectCandidates(g, open, s.maxCandidates)

		result, err := s.matcher.Match(ctx, g.ContextText(), candidates)
		if err != nil {
			if s.logger != nil {
				s.logger.Warn("matching capability failed, leaving batch unreconciled",
					"tenant", tenantID, "error", err)
			}
			summary.CapabilityDown = true
			return summary, nil
		}

		decisions := s.decide(g, open, result)
		for i := range decisions {
			if err := s.decisions.Record(ctx, tenantID, &decisions[i]); err != nil {
				return summary, fmt.Errorf("recording decision: %w", err)
			}
		}

		// Items are marked reconciled only after their decisions are durably
		// recorded; a crash in between re-runs the group and the decision
		// log gains a duplicate proposal at worst, never a lost one.
		if err := s.activities.MarkReconciled(ctx, tenantID, g.IDs()); err != nil {
			return summary, fmt.Errorf("marking reconciled: %w", err)
		}
		summary.Recorded = append(summary.Recorded, decisions...)
	}

	return summary, nil
}

// decide applies the confidence policy to one group's match result.
func (s *Service) decide(g *Group, open []workitem.WorkItem, result MatchResult) []decision.Decision {
	byID := make(map[string]workitem.WorkItem, len(open))
	for _, item := range open {
		byID[item.ID] = item
	}

	var out []decision.Decision
	anyMatch := false
	for _, m := range result.Matches {
		if m.Confidence < s.policy.ProposeThreshold {
			continue
		}
		item, ok := byID[m.CandidateID]
		if !ok {
			if s.logger != nil {
				s.logger.Debug("match references unknown candidate", "candidate", m.CandidateID)
			}
			continue
		}
		anyMatch = true

		itemID := item.ID
		out = append(out, decision.Decision{
			Kind:               decision.KindLinkToItem,
			Source:             g.Source,
			SubjectActivityIDs: g.IDs(),
			ChannelID:          g.ChannelID,
			ChannelName:        g.ChannelName,
			ThreadID:           g.ThreadID,
			TargetItemID:       &itemID,
			TargetIdentifier:   item.Identifier,
			Confidence:         m.Confidence,
			Rationale:          m.Rationale,
			// Attaching a comment is non-destructive, so links are
			// auto-applicable at any recorded confidence.
			AutoApply: true,
		})

		if d, ok := s.transitionDecision(g, item, m); ok {
			out = append(out, d)
		}
	}

	if !anyMatch && result.NewWork.Confidence >= s.policy.NewWorkThreshold {
		title := result.NewWork.Title
		if title == "" {
			title = firstLine(g.ContextText())
		}
		out = append(out, decision.Decision{
			Kind:               decision.KindCreateItem,
			Source:             g.Source,
			SubjectActivityIDs: g.IDs(),
			ChannelID:          g.ChannelID,
			ChannelName:        g.ChannelName,
			ThreadID:           g.ThreadID,
			Title:              title,
			Confidence:         result.NewWork.Confidence,
			Rationale:          result.NewWork.Rationale,
			AutoApply:          result.NewWork.Confidence >= s.policy.AutoApplyThreshold,
		})
	}

	return out
}

// transitionDecision evaluates a proposed state move. Transitions are held
// to a stricter bar: the auto-apply threshold, and only forward moves
// unless the rationale carries an explicit negative signal.
func (s *Service) transitionDecision(g *Group, item workitem.WorkItem, m CandidateMatch) (decision.Decision, bool) {
	sc := m.StateChange
	if sc == nil || m.Confidence < s.policy.AutoApplyThreshold {
		return decision.Decision{}, false
	}
	to := workitem.StateType(sc.ToStateType)
	if to == item.StateType && sc.ToStateName == item.StateName {
		return decision.Decision{}, false
	}

	forward := workitem.IsForward(item.StateType, to)
	if !forward && !hasNegativeSignal(m.Rationale) {
		if s.logger != nil {
			s.logger.Debug("dropping backward transition without negative signal",
				"item", item.Identifier, "from", item.StateType, "to", to)
		}
		return decision.Decision{}, false
	}

	itemID := item.ID
	return decision.Decision{
		Kind:               decision.KindTransitionItem,
		Source:             g.Source,
		SubjectActivityIDs: g.IDs(),
		ChannelID:          g.ChannelID,
		ChannelName:        g.ChannelName,
		ThreadID:           g.ThreadID,
		TargetItemID:       &itemID,
		TargetIdentifier:   item.Identifier,
		ToStateName:        sc.ToStateName,
		ToStateType:        sc.ToStateType,
		Confidence:         m.Confidence,
		Rationale:          m.Rationale,
		// Backward moves are recorded for review but never auto-applied.
		AutoApply: forward,
	}, true
}

var negativeSignals = []string{
	"block", "reopen", "regress", "revert", "not done", "still failing", "back to",
}

func hasNegativeSignal(rationale string) bool {
	lower := strings.ToLower(rationale)
	for _, sig := range negativeSignals {
		if strings.Contains(lower, sig) {
			return true
		}
	}
	return false
}

func firstLine(text string) string {
	line := text
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	if len(line) > 80 {
		line = line[:80]
	}
	if line == "" {
		line = "Follow up from team conversation"
	}
	return line
}
