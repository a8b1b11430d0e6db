package sqlite

import (
	"context"
	"testing"

	"github.com/loomhq/loom/internal/domain/source"
	"github.com/loomhq/loom/internal/repository"
	"github.com/stretchr/testify/require"
)

func TestCursorGetNotFound(t *testing.T) {
	db := NewTestDB(t)
	repo := NewCursorRepository(db)

	_, err := repo.Get(context.Background(), "t1", source.Chat)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCursorAdvance(t *testing.T) {
	db := NewTestDB(t)
	repo := NewCursorRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Advance(ctx, "t1", source.Chat, "2026-01-01T00:00:00Z"))

	c, err := repo.Get(ctx, "t1", source.Chat)
	require.NoError(t, err)
	require.Equal(t, "2026-01-01T00:00:00Z", c.Watermark)

	require.NoError(t, repo.Advance(ctx, "t1", source.Chat, "2026-01-02T00:00:00Z"))

	c, err = repo.Get(ctx, "t1", source.Chat)
	require.NoError(t, err)
	require.Equal(t, "2026-01-02T00:00:00Z", c.Watermark)
}

func TestCursorAdvanceRejectsStale(t *testing.T) {
	db := NewTestDB(t)
	repo := NewCursorRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Advance(ctx, "t1", source.Tracker, "b"))

	// Equal and behind both fail and leave the stored watermark alone.
	require.ErrorIs(t, repo.Advance(ctx, "t1", source.Tracker, "b"), repository.ErrStaleCursor)
	require.ErrorIs(t, repo.Advance(ctx, "t1", source.Tracker, "a"), repository.ErrStaleCursor)

	c, err := repo.Get(ctx, "t1", source.Tracker)
	require.NoError(t, err)
	require.Equal(t, "b", c.Watermark)
}

func TestCursorIsolatedPerTenantAndSource(t *testing.T) {
	db := NewTestDB(t)
	repo := NewCursorRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Advance(ctx, "t1", source.Chat, "x"))
	require.NoError(t, repo.Advance(ctx, "t1", source.Tracker, "y"))
	require.NoError(t, repo.Advance(ctx, "t2", source.Chat, "z"))

	c, err := repo.Get(ctx, "t1", source.Chat)
	require.NoError(t, err)
	require.Equal(t, "x", c.Watermark)

	c, err = repo.Get(ctx, "t2", source.Chat)
	require.NoError(t, err)
	require.Equal(t, "z", c.Watermark)
}
