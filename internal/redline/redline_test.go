package redline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/redline/internal/core/config"
	"github.com/colonyops/redline/internal/core/notify"
	"github.com/colonyops/redline/internal/engine"
	"github.com/colonyops/redline/internal/generate"
)

func newApp(t *testing.T) *App {
	t.Helper()
	return newAppWith(t, config.StorageJSON)
}

func newAppWith(t *testing.T, backend string) *App {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.Storage.Backend = backend

	a, err := NewApp(&cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	a.Start(ctx)
	return a
}

func writeDoc(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.md")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDocument_EditAndSave(t *testing.T) {
	for _, backend := range []string{config.StorageJSON, config.StorageSQLite} {
		t.Run(backend, func(t *testing.T) {
			editAndSave(t, newAppWith(t, backend))
		})
	}
}

func editAndSave(t *testing.T, a *App) {
	t.Helper()
	ctx := context.Background()
	path := writeDoc(t, "# Title\n\nHello world.\n")

	d, err := a.Open(path)
	require.NoError(t, err)
	require.NoError(t, d.Select("world"))

	s, err := d.Engine.Trigger(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "world", s.OriginalText)

	_, err = d.Engine.Submit(ctx, s.ID, "make it Earth")
	require.NoError(t, err)
	require.NoError(t, d.Engine.Stream(ctx, s.ID, generate.Static{Text: "Earth"}))

	entry, err := d.Engine.Accept(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, entry.Accepted())

	require.NoError(t, d.Save(ctx))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# Title\n\nHello Earth.\n", string(data))

	entries, err := a.History.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "make it Earth", entries[0].Instruction)

	assert.Eventually(t, func() bool {
		notes, err := a.Notifications.List(ctx)
		return err == nil && len(notes) == 1 && notes[0].Level == notify.LevelInfo
	}, time.Second, 10*time.Millisecond)
}

func TestDocument_SaveWhileStreaming(t *testing.T) {
	ctx := context.Background()
	a := newApp(t)
	d, err := a.Open(writeDoc(t, "Hello world.\n"))
	require.NoError(t, err)
	require.NoError(t, d.Select("world"))

	s, err := d.Engine.Trigger(ctx, "")
	require.NoError(t, err)
	_, err = d.Engine.Submit(ctx, s.ID, "x")
	require.NoError(t, err)
	require.NoError(t, d.Engine.UpdateStream(ctx, s.ID, "Ear"))

	require.ErrorIs(t, d.Save(ctx), engine.ErrStreamingSession)
	_, err = d.Markdown()
	require.ErrorIs(t, err, engine.ErrStreamingSession)
}

func TestDocument_Select(t *testing.T) {
	a := newApp(t)

	d, err := a.Open(writeDoc(t, "Hello world.\n"))
	require.NoError(t, err)

	require.ErrorIs(t, d.Select("planet"), ErrNoMatch)
	require.NoError(t, d.Select("llo wo"))
	assert.Equal(t, "llo wo", d.Engine.Editor().Doc().TextBetween(d.Engine.Editor().Selection()))
}

func TestApp_OpenMissing(t *testing.T) {
	a := newApp(t)
	_, err := a.Open(filepath.Join(t.TempDir(), "nope.md"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
