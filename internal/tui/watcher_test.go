package tui

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocWatcher_ReportsWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("Hello world.\n"), 0o644))

	w, err := NewDocWatcher(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	got := make(chan tea.Msg, 1)
	wait := w.Wait()
	go func() { got <- wait() }()

	// a sibling file is not the document
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.md"), []byte("x"), 0o644))
	select {
	case msg := <-got:
		t.Fatalf("unexpected message %#v", msg)
	case <-time.After(200 * time.Millisecond):
	}

	require.NoError(t, os.WriteFile(path, []byte("Hello Earth.\n"), 0o644))
	select {
	case msg := <-got:
		changed, ok := msg.(docChangedMsg)
		require.True(t, ok)
		assert.Equal(t, path, changed.path)
	case <-time.After(2 * time.Second):
		t.Fatal("no change reported")
	}
}

func TestDocWatcher_CloseEndsWait(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.md")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	w, err := NewDocWatcher(path)
	require.NoError(t, err)

	got := make(chan tea.Msg, 1)
	wait := w.Wait()
	go func() { got <- wait() }()
	require.NoError(t, w.Close())

	select {
	case msg := <-got:
		assert.Nil(t, msg)
	case <-time.After(2 * time.Second):
		t.Fatal("wait did not return after close")
	}
}

func TestNewDocWatcher_MissingDir(t *testing.T) {
	_, err := NewDocWatcher(filepath.Join(t.TempDir(), "nope", "notes.md"))
	require.Error(t, err)
}
