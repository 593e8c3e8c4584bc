package tui

import (
	"fmt"
	"path/filepath"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/fsnotify/fsnotify"
)

// docChangedMsg is sent when the reviewed file changes on disk.
type docChangedMsg struct {
	path string
}

// DocWatcher reports changes to a single file. The parent directory is
// watched so editors that save by renaming over the file are still seen.
type DocWatcher struct {
	watcher     *fsnotify.Watcher
	path        string
	debounceDur time.Duration
}

// NewDocWatcher starts watching path.
func NewDocWatcher(path string) (*DocWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	return &DocWatcher{
		watcher:     watcher,
		path:        abs,
		debounceDur: 100 * time.Millisecond,
	}, nil
}

// Wait returns a command that blocks until the file changes. It returns a
// nil message once the watcher is closed.
func (w *DocWatcher) Wait() tea.Cmd {
	return func() tea.Msg {
		for {
			select {
			case event, ok := <-w.watcher.Events:
				if !ok {
					return nil
				}
				if !w.relevant(event) {
					continue
				}

				// let a burst of writes settle into one message
				time.Sleep(w.debounceDur)
				for drained := false; !drained; {
					select {
					case <-w.watcher.Events:
					default:
						drained = true
					}
				}
				return docChangedMsg{path: w.path}

			case _, ok := <-w.watcher.Errors:
				if !ok {
					return nil
				}
			}
		}
	}
}

func (w *DocWatcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove)
}

// Close stops the watcher.
func (w *DocWatcher) Close() error {
	return w.watcher.Close()
}
