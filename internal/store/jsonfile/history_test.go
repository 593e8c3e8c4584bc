package jsonfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/redline/internal/core/history"
)

func newEntry(i int, outcome history.Outcome) history.Entry {
	return history.Entry{
		ID:           fmt.Sprintf("h%d", i),
		DiffID:       fmt.Sprintf("d%d", i),
		Strategy:     "inline",
		Outcome:      outcome,
		OriginalText: "world",
		Replacement:  "Earth",
		ResolvedAt:   time.Date(2024, 1, 15, 10, i, 0, 0, time.UTC),
	}
}

func TestHistoryStore_SaveAndList(t *testing.T) {
	ctx := context.Background()
	s := NewHistoryStore(filepath.Join(t.TempDir(), "nested", "history.json"))

	entries, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries, "missing file reads as empty")

	for i := range 5 {
		require.NoError(t, s.Save(ctx, newEntry(i, history.OutcomeAccepted), 3))
	}

	entries, err = s.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "h4", entries[0].ID, "newest first")
	assert.Equal(t, "h2", entries[2].ID)
}

func TestHistoryStore_Get(t *testing.T) {
	ctx := context.Background()
	s := NewHistoryStore(filepath.Join(t.TempDir(), "history.json"))
	require.NoError(t, s.Save(ctx, newEntry(1, history.OutcomeRejected), 0))

	tests := []struct {
		name    string
		id      string
		wantErr error
	}{
		{name: "by entry id", id: "h1"},
		{name: "by diff id", id: "d1"},
		{name: "missing", id: "zzz", wantErr: history.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Get(ctx, tt.id)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, history.OutcomeRejected, got.Outcome)
		})
	}
}

func TestHistoryStore_LastAccepted(t *testing.T) {
	ctx := context.Background()
	s := NewHistoryStore(filepath.Join(t.TempDir(), "history.json"))

	_, err := s.LastAccepted(ctx)
	require.ErrorIs(t, err, history.ErrNotFound)

	require.NoError(t, s.Save(ctx, newEntry(1, history.OutcomeAccepted), 0))
	require.NoError(t, s.Save(ctx, newEntry(2, history.OutcomeRejected), 0))
	fallback := newEntry(3, history.OutcomeAccepted)
	fallback.Fallback = true
	require.NoError(t, s.Save(ctx, fallback, 0))

	got, err := s.LastAccepted(ctx)
	require.NoError(t, err)
	assert.Equal(t, "h1", got.ID)
}

func TestHistoryStore_Clear(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.json")
	s := NewHistoryStore(path)
	require.NoError(t, s.Save(ctx, newEntry(1, history.OutcomeAccepted), 0))

	require.NoError(t, s.Clear(ctx))

	entries, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file is renamed away")
}

func TestHistoryStore_Duplicate(t *testing.T) {
	ctx := context.Background()
	s := NewHistoryStore(filepath.Join(t.TempDir(), "history.json"))

	require.NoError(t, s.Save(ctx, newEntry(1, history.OutcomeAccepted), 0))
	err := s.Save(ctx, newEntry(1, history.OutcomeRejected), 0)
	require.ErrorIs(t, err, history.ErrDuplicate)

	entries, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, history.OutcomeAccepted, entries[0].Outcome, "failed save leaves the file untouched")
}

func TestHistoryStore_BadFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{name: "corrupt", content: "{not json", wantErr: "decode history"},
		{name: "newer version", content: `{"version": 99, "entries": []}`, wantErr: "unsupported version 99"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "history.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))
			s := NewHistoryStore(path)

			_, err := s.List(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)

			err = s.Save(context.Background(), newEntry(1, history.OutcomeAccepted), 0)
			require.Error(t, err)

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, tt.content, string(data), "unreadable file is not overwritten")
		})
	}
}
