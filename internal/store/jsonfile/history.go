// Package jsonfile implements stores backed by a single JSON document on
// disk.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/colonyops/redline/internal/core/history"
)

// historyVersion is written to every file; files with a newer version are
// refused rather than rewritten with fields dropped.
const historyVersion = 1

type historyFile struct {
	Version int             `json:"version"`
	Entries []history.Entry `json:"entries"` // newest first
}

// HistoryStore implements history.Store on a JSON file. The file is read on
// every call so separate processes see each other's writes.
type HistoryStore struct {
	path string
	mu   sync.RWMutex
}

var _ history.Store = (*HistoryStore)(nil)

// NewHistoryStore returns a store for the file at path. The file and its
// directory are created on first write.
func NewHistoryStore(path string) *HistoryStore {
	return &HistoryStore{path: path}
}

func (s *HistoryStore) List(ctx context.Context) ([]history.Entry, error) {
	f, err := s.read()
	if err != nil {
		return nil, err
	}
	if f.Entries == nil {
		return []history.Entry{}, nil
	}
	return f.Entries, nil
}

// Get matches id against both the entry ID and the diff ID.
func (s *HistoryStore) Get(ctx context.Context, id string) (history.Entry, error) {
	return s.find(func(e history.Entry) bool { return e.ID == id || e.DiffID == id })
}

// LastAccepted returns the newest entry whose proposal was applied.
func (s *HistoryStore) LastAccepted(ctx context.Context) (history.Entry, error) {
	return s.find(func(e history.Entry) bool { return e.Accepted() })
}

// Save prepends entry and keeps at most maxEntries (0 keeps everything).
func (s *HistoryStore) Save(ctx context.Context, entry history.Entry, maxEntries int) error {
	return s.update(func(f *historyFile) error {
		if slices.ContainsFunc(f.Entries, func(e history.Entry) bool { return e.ID == entry.ID }) {
			return fmt.Errorf("%w: %s", history.ErrDuplicate, entry.ID)
		}

		f.Entries = slices.Insert(f.Entries, 0, entry)
		if maxEntries > 0 && len(f.Entries) > maxEntries {
			f.Entries = f.Entries[:maxEntries]
		}
		return nil
	})
}

func (s *HistoryStore) Clear(ctx context.Context) error {
	return s.update(func(f *historyFile) error {
		f.Entries = []history.Entry{}
		return nil
	})
}

func (s *HistoryStore) find(match func(history.Entry) bool) (history.Entry, error) {
	f, err := s.read()
	if err != nil {
		return history.Entry{}, err
	}
	if i := slices.IndexFunc(f.Entries, match); i >= 0 {
		return f.Entries[i], nil
	}
	return history.Entry{}, history.ErrNotFound
}

func (s *HistoryStore) read() (historyFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load()
}

// update runs fn on the current contents under the write lock and writes the
// result back only when fn succeeds.
func (s *HistoryStore) update(fn func(*historyFile) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(&f); err != nil {
		return err
	}
	f.Version = historyVersion
	return s.write(f)
}

// load treats a missing or empty file as an empty history.
func (s *HistoryStore) load() (historyFile, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && len(data) == 0) {
		return historyFile{Version: historyVersion}, nil
	}
	if err != nil {
		return historyFile{}, fmt.Errorf("read history: %w", err)
	}

	var f historyFile
	if err := json.Unmarshal(data, &f); err != nil {
		return historyFile{}, fmt.Errorf("decode history %s: %w", s.path, err)
	}
	if f.Version > historyVersion {
		return historyFile{}, fmt.Errorf("history %s: unsupported version %d", s.path, f.Version)
	}
	return f, nil
}

// write replaces the file through a rename so readers never see a partial
// document.
func (s *HistoryStore) write(f historyFile) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return os.Rename(tmp.Name(), s.path)
}
