// Package diffsession defines the in-memory record of one proposed edit and
// the registry that owns the live records.
package diffsession

import (
	"errors"
	"fmt"
	"time"

	"github.com/colonyops/redline/internal/core/doc"
)

// ErrInvalidTransition is returned when a status change is not allowed.
var ErrInvalidTransition = errors.New("invalid status transition")

// Strategy selects how a proposal is represented in the tree.
// ENUM(inline, block).
type Strategy string

const (
	StrategyInline Strategy = "inline"
	StrategyBlock  Strategy = "block"
)

// IsValid reports whether s names a known strategy.
func (s Strategy) IsValid() bool {
	return s == StrategyInline || s == StrategyBlock
}

// Status is the lifecycle state of a session.
// ENUM(idle, triggered, submitted, streaming, resolved, cancelled, failed).
type Status string

const (
	StatusIdle      Status = "idle"
	StatusTriggered Status = "triggered"
	StatusSubmitted Status = "submitted"
	StatusStreaming Status = "streaming"
	StatusResolved  Status = "resolved"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

var transitions = map[Status][]Status{
	StatusIdle:      {StatusTriggered},
	StatusTriggered: {StatusSubmitted, StatusCancelled},
	StatusSubmitted: {StatusStreaming, StatusCancelled, StatusFailed, StatusResolved},
	StatusStreaming: {StatusStreaming, StatusCancelled, StatusFailed, StatusResolved},
	StatusCancelled: {StatusResolved},
	StatusFailed:    {StatusCancelled, StatusResolved},
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Session is one proposed edit.
//
// The anchor is not stored: the proposal is found by ID and, for the block
// strategy, the original by CompanionID. InsertAt is the one recorded
// position, kept for an inline proposal whose first chunk finds no run.
type Session struct {
	ID             string    `json:"id"`
	Strategy       Strategy  `json:"strategy"`
	OriginalText   string    `json:"original_text"`
	ReplacementRaw string    `json:"replacement_raw"`
	CompanionID    string    `json:"companion_id,omitempty"`
	Instruction    string    `json:"instruction,omitempty"`
	Context        string    `json:"context,omitempty"`
	Streaming      bool      `json:"streaming"`
	Status         Status    `json:"status"`
	Aborted        bool      `json:"aborted"`
	Finished       bool      `json:"finished"`
	Chunks         int       `json:"chunks"`
	Failure        string    `json:"failure,omitempty"`
	InsertAt       doc.Pos   `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// New creates a session in the idle state.
func New(id string, strategy Strategy, now time.Time) *Session {
	return &Session{
		ID:        id,
		Strategy:  strategy,
		Status:    StatusIdle,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Transition moves the session to status to.
func (s *Session) Transition(to Status, now time.Time) error {
	if !CanTransition(s.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Status, to)
	}
	s.Status = to
	s.UpdatedAt = now
	return nil
}

// AcceptsChunks reports whether a streamed chunk may still be applied.
func (s *Session) AcceptsChunks() bool {
	if s.Aborted || s.Finished {
		return false
	}
	return s.Status == StatusSubmitted || s.Status == StatusStreaming
}

// Resolvable reports whether accept or reject is meaningful for the session.
func (s *Session) Resolvable() bool {
	switch s.Status {
	case StatusSubmitted, StatusStreaming, StatusCancelled, StatusFailed:
		return true
	}
	return false
}

// Live reports whether the session may still have content in the tree.
func (s *Session) Live() bool {
	return s.Status != StatusIdle && s.Status != StatusTriggered && s.Status != StatusResolved
}

// Fail records a generation failure.
func (s *Session) Fail(cause error, now time.Time) error {
	if err := s.Transition(StatusFailed, now); err != nil {
		return err
	}
	s.Streaming = false
	if cause != nil {
		s.Failure = cause.Error()
	}
	return nil
}
