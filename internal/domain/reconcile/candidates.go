package reconcile

import (
	"sort"
	"strings"

	"github.com/loomhq/loom/internal/domain/workitem"
)

// SelectCandidates pre-filters open work items by cheap lexical overlap to
// bound the candidate set before the expensive matching call. Items whose
// identifier is mentioned in the group always make the cut; the rest are
// ranked by keyword overlap between titles and the conversation.
func SelectCandidates(g *Group, open []workitem.WorkItem, max int) []Candidate {
	if max <= 0 || len(open) == 0 {
		return nil
	}

	mentioned := make(map[string]bool)
	for _, ref := range g.ItemRefs() {
		mentioned[ref] = true
	}
	groupTokens := tokenize(g.ContextText())

	type scored struct {
		item  workitem.WorkItem
		score int
	}
	ranked := make([]scored, 0, len(open))
	for _, item := range open {
		score := 0
		if mentioned[item.Identifier] {
			score += 100
		}
		for tok := range tokenize(item.Title) {
			if groupTokens[tok] {
				score++
			}
		}
		ranked = append(ranked, scored{item: item, score: score})
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	var out []Candidate
	for _, r := range ranked {
		if len(out) >= max {
			break
		}
		out = append(out, Candidate{
			ID:          r.item.ID,
			Identifier:  r.item.Identifier,
			Title:       r.item.Title,
			Description: truncate(r.item.Description, 200),
			StateName:   r.item.StateName,
			StateType:   string(r.item.StateType),
		})
	}
	return out
}

func tokenize(text string) map[string]bool {
	tokens := make(map[string]bool)
	for _, f := range strings.Fields(strings.ToLower(text)) {
		f = strings.Trim(f, ".,:;!?()[]{}\"'`")
		if len(f) >= 4 {
			tokens[f] = true
		}
	}
	return tokens
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
