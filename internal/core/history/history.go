// Package history defines the record of resolved diffs and the store
// interface that persists it.
package history

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no entry matches.
	ErrNotFound = errors.New("history entry not found")
	// ErrDuplicate is returned by Save when the entry ID is already stored.
	ErrDuplicate = errors.New("history entry already exists")
)

// Outcome is how a diff was resolved.
// ENUM(accepted, rejected).
type Outcome string

const (
	OutcomeAccepted Outcome = "accepted"
	OutcomeRejected Outcome = "rejected"
)

// Entry represents one resolved diff.
type Entry struct {
	ID           string    `json:"id"`
	DiffID       string    `json:"diff_id"`
	Strategy     string    `json:"strategy"`
	Outcome      Outcome   `json:"outcome"`
	OriginalText string    `json:"original_text"`
	Replacement  string    `json:"replacement"`
	Instruction  string    `json:"instruction,omitempty"`
	Fallback     bool      `json:"fallback,omitempty"`
	Failure      string    `json:"failure,omitempty"`
	ResolvedAt   time.Time `json:"resolved_at"`
}

// Accepted returns true if the proposal was applied.
func (e *Entry) Accepted() bool {
	return e.Outcome == OutcomeAccepted && !e.Fallback
}

// Store persists resolution history.
type Store interface {
	List(ctx context.Context) ([]Entry, error)
	Get(ctx context.Context, id string) (Entry, error)
	Save(ctx context.Context, entry Entry, maxEntries int) error
	Clear(ctx context.Context) error
	LastAccepted(ctx context.Context) (Entry, error)
}
