package stores

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/redline/internal/core/history"
)

func entry(i int, outcome history.Outcome) history.Entry {
	return history.Entry{
		ID:           fmt.Sprintf("h%d", i),
		DiffID:       fmt.Sprintf("d%d", i),
		Strategy:     "block",
		Outcome:      outcome,
		OriginalText: "world",
		Replacement:  "Earth",
		Instruction:  "make it Earth",
		ResolvedAt:   time.Date(2026, 3, 1, 9, i, 0, 0, time.UTC),
	}
}

func TestHistoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("save and get round trip", func(t *testing.T) {
		store := NewHistoryStore(openDB(t))

		want := entry(1, history.OutcomeAccepted)
		want.Fallback = true
		want.Failure = "provider went away"
		require.NoError(t, store.Save(ctx, want, 0))

		got, err := store.Get(ctx, "h1")
		require.NoError(t, err)
		assert.Equal(t, want, got)

		byDiff, err := store.Get(ctx, "d1")
		require.NoError(t, err)
		assert.Equal(t, want, byDiff)
	})

	t.Run("list is newest first and pruned", func(t *testing.T) {
		store := NewHistoryStore(openDB(t))

		for i := 1; i <= 4; i++ {
			require.NoError(t, store.Save(ctx, entry(i, history.OutcomeRejected), 3))
		}

		got, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, []string{"h4", "h3", "h2"}, []string{got[0].ID, got[1].ID, got[2].ID})
	})

	t.Run("last accepted skips rejections and fallbacks", func(t *testing.T) {
		store := NewHistoryStore(openDB(t))

		require.NoError(t, store.Save(ctx, entry(1, history.OutcomeAccepted), 0))
		fallback := entry(2, history.OutcomeAccepted)
		fallback.Fallback = true
		require.NoError(t, store.Save(ctx, fallback, 0))
		require.NoError(t, store.Save(ctx, entry(3, history.OutcomeRejected), 0))

		got, err := store.LastAccepted(ctx)
		require.NoError(t, err)
		assert.Equal(t, "h1", got.ID)
	})

	t.Run("not found", func(t *testing.T) {
		store := NewHistoryStore(openDB(t))

		_, err := store.Get(ctx, "nope")
		require.ErrorIs(t, err, history.ErrNotFound)

		_, err = store.LastAccepted(ctx)
		require.ErrorIs(t, err, history.ErrNotFound)
	})

	t.Run("duplicate id is rejected", func(t *testing.T) {
		store := NewHistoryStore(openDB(t))

		require.NoError(t, store.Save(ctx, entry(1, history.OutcomeAccepted), 0))
		require.ErrorIs(t, store.Save(ctx, entry(1, history.OutcomeAccepted), 0), history.ErrDuplicate)

		got, err := store.List(ctx)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("clear", func(t *testing.T) {
		store := NewHistoryStore(openDB(t))

		require.NoError(t, store.Save(ctx, entry(1, history.OutcomeAccepted), 0))
		require.NoError(t, store.Clear(ctx))

		got, err := store.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.NotNil(t, got)
	})
}
