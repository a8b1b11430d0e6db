package reconcile

import (
	"testing"
	"time"

	"github.com/loomhq/loom/internal/domain/activity"
	"github.com/loomhq/loom/internal/domain/source"
	"github.com/stretchr/testify/require"
)

func msg(id, channel, thread string, at time.Time, body string) activity.Item {
	return activity.Item{
		ID:          id,
		Source:      source.Chat,
		SourceID:    "src-" + id,
		Type:        activity.TypeMessage,
		OccurredAt:  at,
		Author:      "dana",
		Body:        body,
		ChannelID:   channel,
		ChannelName: channel,
		ThreadID:    thread,
		ItemRefs:    activity.ExtractItemRefs(body),
	}
}

func TestGroupItems_SameThreadStaysTogether(t *testing.T) {
	base := time.Now()
	items := []activity.Item{
		msg("a", "eng", "t1", base, "started on ABC-1"),
		msg("b", "eng", "t1", base.Add(2*time.Minute), "ABC-1 is deployed now"),
		msg("c", "general", "", base.Add(time.Minute), "lunch?"),
	}

	groups := GroupItems(items, 15*time.Minute)
	require.Len(t, groups, 2)
	require.Len(t, groups[0].Items, 2)
	require.Equal(t, []string{"a", "b"}, groups[0].IDs())
	require.Equal(t, []string{"ABC-1"}, groups[0].ItemRefs())
	require.Len(t, groups[1].Items, 1)
}

func TestGroupItems_WindowGapSplits(t *testing.T) {
	base := time.Now()
	items := []activity.Item{
		msg("a", "eng", "", base, "first"),
		msg("b", "eng", "", base.Add(5*time.Minute), "second"),
		msg("c", "eng", "", base.Add(2*time.Hour), "much later"),
	}

	groups := GroupItems(items, 15*time.Minute)
	require.Len(t, groups, 2)
	require.Equal(t, []string{"a", "b"}, groups[0].IDs())
	require.Equal(t, []string{"c"}, groups[1].IDs())
}

func TestGroupItems_OrdersWithinGroup(t *testing.T) {
	base := time.Now()
	items := []activity.Item{
		msg("late", "eng", "t1", base.Add(time.Minute), "second"),
		msg("early", "eng", "t1", base, "first"),
	}

	groups := GroupItems(items, 15*time.Minute)
	require.Len(t, groups, 1)
	require.Equal(t, []string{"early", "late"}, groups[0].IDs())
}

func TestContextText(t *testing.T) {
	base := time.Now()
	g := &Group{
		Source:      source.Chat,
		ChannelName: "eng",
		Items:       []activity.Item{msg("a", "eng", "", base, "shipping it")},
	}
	require.Equal(t, "[#eng] dana: shipping it\n", g.ContextText())
}
