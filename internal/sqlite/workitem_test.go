package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/loomhq/loom/internal/domain/workitem"
	"github.com/loomhq/loom/internal/repository"
	"github.com/stretchr/testify/require"
)

func testWorkItem(id, identifier, title string, state workitem.StateType) workitem.WorkItem {
	return workitem.WorkItem{
		ID:         id,
		Identifier: identifier,
		Title:      title,
		StateName:  "State",
		StateType:  state,
		UpdatedAt:  time.Now(),
	}
}

func TestWorkItemUpsert(t *testing.T) {
	db := NewTestDB(t)
	repo := NewWorkItemRepository(db)
	ctx := context.Background()

	err := repo.Upsert(ctx, "t1", []workitem.WorkItem{
		testWorkItem("w1", "ABC-1", "First", workitem.StateStarted),
	})
	require.NoError(t, err)

	got, err := repo.Get(ctx, "t1", "w1")
	require.NoError(t, err)
	require.Equal(t, "First", got.Title)

	// Re-sync with new upstream content replaces the mirror row.
	err = repo.Upsert(ctx, "t1", []workitem.WorkItem{
		testWorkItem("w1", "ABC-1", "First (renamed)", workitem.StateCompleted),
	})
	require.NoError(t, err)

	got, err = repo.Get(ctx, "t1", "w1")
	require.NoError(t, err)
	require.Equal(t, "First (renamed)", got.Title)
	require.Equal(t, workitem.StateCompleted, got.StateType)
}

func TestWorkItemGetByIdentifier(t *testing.T) {
	db := NewTestDB(t)
	repo := NewWorkItemRepository(db)
	ctx := context.Background()

	err := repo.Upsert(ctx, "t1", []workitem.WorkItem{
		testWorkItem("w1", "ABC-1", "First", workitem.StateStarted),
	})
	require.NoError(t, err)

	got, err := repo.GetByIdentifier(ctx, "t1", "ABC-1")
	require.NoError(t, err)
	require.Equal(t, "w1", got.ID)

	_, err = repo.GetByIdentifier(ctx, "t1", "ABC-99")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestWorkItemListOpen(t *testing.T) {
	db := NewTestDB(t)
	repo := NewWorkItemRepository(db)
	ctx := context.Background()

	err := repo.Upsert(ctx, "t1", []workitem.WorkItem{
		testWorkItem("w1", "ABC-1", "Open", workitem.StateStarted),
		testWorkItem("w2", "ABC-2", "Queued", workitem.StateBacklog),
		testWorkItem("w3", "ABC-3", "Done", workitem.StateCompleted),
		testWorkItem("w4", "ABC-4", "Dropped", workitem.StateCancelled),
	})
	require.NoError(t, err)

	open, err := repo.ListOpen(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, open, 2)
	require.Equal(t, "ABC-1", open[0].Identifier)
	require.Equal(t, "ABC-2", open[1].Identifier)
}

func TestWorkItemSetState(t *testing.T) {
	db := NewTestDB(t)
	repo := NewWorkItemRepository(db)
	ctx := context.Background()

	err := repo.Upsert(ctx, "t1", []workitem.WorkItem{
		testWorkItem("w1", "ABC-1", "Task", workitem.StateStarted),
	})
	require.NoError(t, err)

	require.NoError(t, repo.SetState(ctx, "t1", "w1", "Done", workitem.StateCompleted))

	got, err := repo.Get(ctx, "t1", "w1")
	require.NoError(t, err)
	require.Equal(t, "Done", got.StateName)
	require.Equal(t, workitem.StateCompleted, got.StateType)

	require.ErrorIs(t, repo.SetState(ctx, "t1", "missing", "Done", workitem.StateCompleted), repository.ErrNotFound)
	require.ErrorIs(t, repo.SetState(ctx, "t2", "w1", "Done", workitem.StateCompleted), repository.ErrNotFound)
}

func TestWorkItemTenantIsolation(t *testing.T) {
	db := NewTestDB(t)
	repo := NewWorkItemRepository(db)
	ctx := context.Background()

	// Same source-native ID under two tenants: separate rows.
	require.NoError(t, repo.Upsert(ctx, "t1", []workitem.WorkItem{
		testWorkItem("w1", "ABC-1", "Tenant one", workitem.StateStarted),
	}))
	require.NoError(t, repo.Upsert(ctx, "t2", []workitem.WorkItem{
		testWorkItem("w1", "XYZ-1", "Tenant two", workitem.StateStarted),
	}))

	got, err := repo.Get(ctx, "t1", "w1")
	require.NoError(t, err)
	require.Equal(t, "Tenant one", got.Title)

	got, err = repo.Get(ctx, "t2", "w1")
	require.NoError(t, err)
	require.Equal(t, "Tenant two", got.Title)
}
