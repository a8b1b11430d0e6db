package activity

import (
	"regexp"
	"time"

	"github.com/loomhq/loom/internal/domain/source"
)

// Type classifies a raw activity item.
type Type string

const (
	TypeMessage     Type = "message"
	TypeTrackerItem Type = "tracker_item"
	TypeCodeChange  Type = "code_change"
)

// Item is one ingested unit of external activity. Items are immutable once
// written; only the Reconciled flag flips, and only from false to true.
// Uniqueness is on (tenant, source, source id).
type Item struct {
	ID          string        `json:"id"`
	TenantID    string        `json:"tenant_id"`
	Source      source.Source `json:"source"`
	SourceID    string        `json:"source_id"`
	Type        Type          `json:"type"`
	OccurredAt  time.Time     `json:"occurred_at"`
	Author      string        `json:"author,omitempty"`
	Body        string        `json:"body"`
	ChannelID   string        `json:"channel_id,omitempty"`
	ChannelName string        `json:"channel_name,omitempty"`
	ThreadID    string        `json:"thread_id,omitempty"`
	ItemRefs    []string      `json:"item_refs,omitempty"`
	Reconciled  bool          `json:"reconciled"`
	IngestedAt  time.Time     `json:"ingested_at"`
}

var itemRefPattern = regexp.MustCompile(`\b[A-Z][A-Z0-9]+-\d+\b`)

// ExtractItemRefs finds tracker item identifiers (e.g. "ABC-12") in text,
// deduplicated in order of first appearance.
func ExtractItemRefs(text string) []string {
	matches := itemRefPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(matches))
	var refs []string
	for _, m := range matches {
		if !seen[m] {
			seen[m] = true
			refs = append(refs, m)
		}
	}
	return refs
}
