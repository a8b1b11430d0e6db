package reconcile

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/loomhq/loom/internal/domain/activity"
	"github.com/loomhq/loom/internal/domain/source"
)

// Group is a set of activity items sharing conversational locality: same
// source, channel and thread, within a bounded time window. Matching runs
// per group because thread context materially improves match quality.
type Group struct {
	Source      source.Source
	ChannelID   string
	ChannelName string
	ThreadID    string
	Items       []activity.Item
}

// IDs returns the activity IDs in the group.
func (g *Group) IDs() []string {
	ids := make([]string, len(g.Items))
	for i, it := range g.Items {
		ids[i] = it.ID
	}
	return ids
}

// ItemRefs returns the tracker identifiers mentioned anywhere in the group.
func (g *Group) ItemRefs() []string {
	seen := make(map[string]bool)
	var refs []string
	for _, it := range g.Items {
		for _, ref := range it.ItemRefs {
			if !seen[ref] {
				seen[ref] = true
				refs = append(refs, ref)
			}
		}
	}
	return refs
}

// ContextText renders the group as conversation context for matching.
func (g *Group) ContextText() string {
	var b strings.Builder
	for _, it := range g.Items {
		author := it.Author
		if author == "" {
			author = "unknown"
		}
		if g.ChannelName != "" {
			fmt.Fprintf(&b, "[#%s] %s: %s\n", g.ChannelName, author, it.Body)
		} else {
			fmt.Fprintf(&b, "%s: %s\n", author, it.Body)
		}
	}
	return b.String()
}

// GroupItems splits items into conversational groups. Items sharing a
// source+channel+thread key stay together while consecutive items are no
// further apart than the window; a larger gap starts a new group.
func GroupItems(items []activity.Item, window time.Duration) []*Group {
	byKey := make(map[string][]activity.Item)
	var order []string
	for _, it := range items {
		key := string(it.Source) + "|" + it.ChannelID + "|" + it.ThreadID
		if _, ok := byKey[key]; !ok {
			order = append(order, key)
		}
		byKey[key] = append(byKey[key], it)
	}

	var groups []*Group
	for _, key := range order {
		run := byKey[key]
		sort.Slice(run, func(i, j int) bool { return run[i].OccurredAt.Before(run[j].OccurredAt) })

		var current *Group
		for _, it := range run {
			if current != nil {
				last := current.Items[len(current.Items)-1]
				if it.OccurredAt.Sub(last.OccurredAt) > window {
					groups = append(groups, current)
					current = nil
				}
			}
			if current == nil {
				current = &Group{
					Source:      it.Source,
					ChannelID:   it.ChannelID,
					ChannelName: it.ChannelName,
					ThreadID:    it.ThreadID,
				}
			}
			current.Items = append(current.Items, it)
		}
		if current != nil {
			groups = append(groups, current)
		}
	}
	return groups
}
