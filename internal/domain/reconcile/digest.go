package reconcile

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/loomhq/loom/internal/domain/decision"
	"github.com/loomhq/loom/internal/domain/source"
	"github.com/loomhq/loom/internal/domain/workitem"
)

// DigestKind selects the digest framing.
type DigestKind string

const (
	DigestDaily  DigestKind = "daily"
	DigestWeekly DigestKind = "weekly"
)

// Window returns the reporting window for the digest kind.
func (k DigestKind) Window() time.Duration {
	if k == DigestWeekly {
		return 7 * 24 * time.Hour
	}
	return 24 * time.Hour
}

// BuildDigest runs the read-only digest framing of the engine: it looks at
// the window's applied decisions and open work, and records a single
// post-summary decision carrying the rendered digest. No matching happens.
func (s *Service) BuildDigest(ctx context.Context, tenantID string, kind DigestKind) (*decision.Decision, error) {
	since := time.Now().Add(-kind.Window())

	applied, err := s.decisions.ListForTenant(ctx, tenantID, decision.ListOptions{
		Outcomes: []decision.Outcome{decision.OutcomeApplied},
		Since:    since,
	})
	if err != nil {
		return nil, fmt.Errorf("listing applied decisions: %w", err)
	}

	open, err := s.items.ListOpen(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("listing open work items: %w", err)
	}

	var linked, moved, created int
	for _, d := range applied {
		switch d.Kind {
		case decision.KindLinkToItem:
			linked++
		case decision.KindTransitionItem:
			moved++
		case decision.KindCreateItem:
			created++
		}
	}

	label := string(kind)
	if len(label) > 0 {
		label = strings.ToUpper(label[:1]) + label[1:]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "*%s digest*\n", label)
	fmt.Fprintf(&b, "Automated activity: %d conversations linked, %d items moved, %d items created.\n", linked, moved, created)
	var inProgress []string
	for _, item := range open {
		if item.StateType == workitem.StateStarted {
			inProgress = append(inProgress, fmt.Sprintf("%s: %s", item.Identifier, item.Title))
		}
	}
	if len(inProgress) > 0 {
		fmt.Fprintf(&b, "In progress (%d):\n", len(inProgress))
		for _, line := range inProgress {
			fmt.Fprintf(&b, "  - %s\n", line)
		}
	}

	d := &decision.Decision{
		Kind:       decision.KindPostSummary,
		Source:     source.Chat,
		Body:       b.String(),
		Confidence: 1,
		Rationale:  fmt.Sprintf("scheduled %s digest", kind),
		AutoApply:  true,
	}
	if err := s.decisions.Record(ctx, tenantID, d); err != nil {
		return nil, fmt.Errorf("recording digest decision: %w", err)
	}
	return d, nil
}
