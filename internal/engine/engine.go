// Package engine applies streamed text proposals to a document as reviewable
// diffs. Every command re-locates its diff by tag and commits at most one
// atomic transaction; a failed command leaves the document untouched.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/colonyops/redline/internal/core/diffsession"
	"github.com/colonyops/redline/internal/core/doc"
	"github.com/colonyops/redline/internal/core/eventbus"
	"github.com/colonyops/redline/internal/core/history"
	"github.com/colonyops/redline/internal/core/logging"
	"github.com/colonyops/redline/internal/core/markdown"
	"github.com/colonyops/redline/pkg/randid"
)

// Engine owns the diff sessions of one editor. Commands are serialized by
// the engine mutex, so chunk transactions are applied one at a time in
// arrival order.
type Engine struct {
	mu sync.Mutex

	editor     *doc.Editor
	sessions   *diffsession.Registry
	strategies map[diffsession.Strategy]strategy
	pending    *trigger

	defaultStrategy diffsession.Strategy
	bus             *eventbus.EventBus
	history         history.Store
	historyMax      int
	log             zerolog.Logger
	newID           func() string
	now             func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithBus publishes lifecycle events to bus.
func WithBus(bus *eventbus.EventBus) Option {
	return func(e *Engine) { e.bus = bus }
}

// WithLogger sets the engine logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithHistory records every resolution in store, keeping at most
// maxEntries entries.
func WithHistory(store history.Store, maxEntries int) Option {
	return func(e *Engine) {
		e.history = store
		e.historyMax = maxEntries
	}
}

// WithStrategy sets the strategy used when Trigger is not given one.
func WithStrategy(s diffsession.Strategy) Option {
	return func(e *Engine) { e.defaultStrategy = s }
}

// WithIDGenerator replaces the diff ID source.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

// WithClock replaces the time source.
func WithClock(fn func() time.Time) Option {
	return func(e *Engine) { e.now = fn }
}

// New creates an engine for editor. The parser turns block-strategy
// proposals into blocks.
func New(editor *doc.Editor, parser markdown.Parser, opts ...Option) *Engine {
	e := &Engine{
		editor:   editor,
		sessions: diffsession.NewRegistry(),
		strategies: map[diffsession.Strategy]strategy{
			diffsession.StrategyInline: inlineStrategy{},
			diffsession.StrategyBlock:  blockStrategy{parser: parser},
		},
		defaultStrategy: diffsession.StrategyBlock,
		log:             logging.Component("engine"),
		newID:           uuid.NewString,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Editor returns the editor the engine works on.
func (e *Engine) Editor() *doc.Editor { return e.editor }

// Session returns a copy of a live session.
func (e *Engine) Session(diffID string) (diffsession.Session, error) {
	s, err := e.sessions.Get(diffID)
	if err != nil {
		return diffsession.Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, diffID)
	}
	return s, nil
}

// Sessions returns copies of all live sessions, oldest first.
func (e *Engine) Sessions() []diffsession.Session {
	return e.sessions.List()
}

// Snapshot returns the committed document for serialization. It refuses
// while any proposal is still streaming, since the tree would capture a
// partial proposal.
func (e *Engine) Snapshot() (*doc.Node, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, s := range e.sessions.List() {
		if s.Streaming {
			return nil, fmt.Errorf("snapshot: diff %s: %w", s.ID, ErrStreamingSession)
		}
	}
	return e.editor.Doc(), nil
}

// UpdateStream applies the full latest proposal text of a diff. raw replaces
// the previous proposal wholesale, so repeating a chunk is harmless.
func (e *Engine) UpdateStream(ctx context.Context, diffID, raw string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.updateStream(ctx, diffID, raw)
}

func (e *Engine) updateStream(ctx context.Context, diffID, raw string) error {
	ctx = logging.WithDiffID(ctx, diffID)

	cur, err := e.sessions.Get(diffID)
	if err != nil {
		return fmt.Errorf("update stream: %w: %s", ErrSessionNotFound, diffID)
	}
	if cur.Aborted {
		return fmt.Errorf("update stream %s: %w", diffID, ErrAborted)
	}
	if cur.Status == diffsession.StatusFailed {
		return fmt.Errorf("update stream %s: %w", diffID, ErrGeneration)
	}
	if cur.Finished {
		return fmt.Errorf("update stream %s: %w", diffID, ErrStreamFinished)
	}

	st := e.strategies[cur.Strategy]
	updated, err := e.sessions.Update(diffID, func(s *diffsession.Session) error {
		if err := s.Transition(diffsession.StatusStreaming, e.now()); err != nil {
			return err
		}
		s.ReplacementRaw = raw
		s.Streaming = true
		if err := e.editor.Update(func(tr *doc.Transaction) error {
			return st.update(tr, s)
		}); err != nil {
			return err
		}
		s.Chunks++
		return nil
	})
	if err != nil {
		e.log.Warn().Ctx(ctx).Err(err).Msg("chunk not applied")
		return fmt.Errorf("update stream %s: %w", diffID, err)
	}

	e.log.Debug().Ctx(ctx).Int("chunk", updated.Chunks).Int("len", len(raw)).Msg("chunk applied")
	e.bus.PublishDiffChunkApplied(eventbus.DiffChunkAppliedPayload{
		DiffID: diffID,
		Chunk:  updated.Chunks,
		Raw:    raw,
	})
	return nil
}

// FinishStream marks generation complete. The proposal stays in the tree
// until it is accepted or rejected.
func (e *Engine) FinishStream(ctx context.Context, diffID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.finishStream(ctx, diffID)
}

func (e *Engine) finishStream(ctx context.Context, diffID string) error {
	ctx = logging.WithDiffID(ctx, diffID)

	cur, err := e.sessions.Get(diffID)
	if err != nil {
		return fmt.Errorf("finish stream: %w: %s", ErrSessionNotFound, diffID)
	}
	st := e.strategies[cur.Strategy]

	updated, err := e.sessions.Update(diffID, func(s *diffsession.Session) error {
		s.Streaming = false
		s.Finished = true
		s.UpdatedAt = e.now()
		return e.editor.Update(func(tr *doc.Transaction) error {
			return st.finish(tr, s)
		})
	})
	if err != nil {
		return fmt.Errorf("finish stream %s: %w", diffID, err)
	}

	e.log.Debug().Ctx(ctx).Int("chunks", updated.Chunks).Msg("stream finished")
	e.bus.PublishDiffStreamFinished(eventbus.DiffStreamFinishedPayload{DiffID: diffID, Chunks: updated.Chunks})
	return nil
}

// Abort stops applying chunks for a diff. Content already in the tree is
// left as it is; the diff must still be accepted or rejected.
func (e *Engine) Abort(ctx context.Context, diffID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.abort(ctx, diffID)
}

func (e *Engine) abort(ctx context.Context, diffID string) error {
	ctx = logging.WithDiffID(ctx, diffID)

	cur, err := e.sessions.Get(diffID)
	if err != nil {
		return fmt.Errorf("abort: %w: %s", ErrSessionNotFound, diffID)
	}
	if cur.Aborted {
		return nil
	}
	st := e.strategies[cur.Strategy]

	_, err = e.sessions.Update(diffID, func(s *diffsession.Session) error {
		if err := s.Transition(diffsession.StatusCancelled, e.now()); err != nil {
			return err
		}
		s.Aborted = true
		s.Streaming = false
		return nil
	})
	if err != nil {
		return fmt.Errorf("abort %s: %w", diffID, err)
	}

	// The container still says streaming; flipping it is cosmetic, so a
	// missing container does not fail the abort.
	if err := e.editor.Update(func(tr *doc.Transaction) error {
		return st.finish(tr, &cur)
	}); err != nil && !errors.Is(err, ErrAnchorNotFound) {
		e.log.Warn().Ctx(ctx).Err(err).Msg("clear streaming flag")
	}

	e.log.Info().Ctx(ctx).Msg("generation aborted")
	e.bus.PublishDiffAborted(eventbus.DiffAbortedPayload{DiffID: diffID})
	return nil
}

// Fail records a generation failure for a diff. The tree is not touched;
// the diff must still be accepted or rejected.
func (e *Engine) Fail(ctx context.Context, diffID string, cause error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fail(ctx, diffID, cause)
}

func (e *Engine) fail(ctx context.Context, diffID string, cause error) error {
	ctx = logging.WithDiffID(ctx, diffID)

	_, err := e.sessions.Update(diffID, func(s *diffsession.Session) error {
		return s.Fail(cause, e.now())
	})
	if errors.Is(err, diffsession.ErrNotFound) {
		return fmt.Errorf("fail: %w: %s", ErrSessionNotFound, diffID)
	}
	if err != nil {
		return fmt.Errorf("fail %s: %w", diffID, err)
	}

	e.log.Error().Ctx(ctx).Err(cause).Msg("generation failed")
	e.bus.PublishDiffFailed(eventbus.DiffFailedPayload{DiffID: diffID, Err: cause})
	return nil
}

// Accept applies the proposal of a diff and removes every trace of the diff
// from the tree. A second accept of the same diff returns ErrAnchorNotFound
// and changes nothing.
func (e *Engine) Accept(ctx context.Context, diffID string) (history.Entry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resolve(ctx, diffID, history.OutcomeAccepted)
}

// Reject restores the original of a diff and removes every trace of the
// diff from the tree.
func (e *Engine) Reject(ctx context.Context, diffID string) (history.Entry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resolve(ctx, diffID, history.OutcomeRejected)
}

func (e *Engine) resolve(ctx context.Context, diffID string, outcome history.Outcome) (history.Entry, error) {
	ctx = logging.WithDiffID(ctx, diffID)

	cur, err := e.sessions.Get(diffID)
	known := err == nil
	if !known {
		// A diff can outlive its session, e.g. in a reloaded document;
		// the tree says which strategy encoded it.
		kind, ok := detectStrategy(e.editor.Doc(), diffID)
		if !ok {
			return history.Entry{}, fmt.Errorf("%s %s: %w", outcome, diffID, ErrAnchorNotFound)
		}
		cur = diffsession.Session{ID: diffID, Strategy: kind}
	}
	if known && !cur.Resolvable() {
		return history.Entry{}, fmt.Errorf("%s %s: %w: %s", outcome, diffID, diffsession.ErrInvalidTransition, cur.Status)
	}

	st := e.strategies[cur.Strategy]
	var res resolution
	err = e.editor.Update(func(tr *doc.Transaction) error {
		if outcome == history.OutcomeAccepted {
			r, err := st.accept(tr, diffID)
			res = r
			return err
		}
		return st.reject(tr, diffID)
	})
	if errors.Is(err, ErrAnchorNotFound) && known {
		// the tree is authoritative: the diff is gone, so is the session
		e.sessions.Remove(diffID)
		e.log.Warn().Ctx(ctx).Msg("diff no longer in document; session dropped")
	}
	if err != nil {
		return history.Entry{}, fmt.Errorf("%s %s: %w", outcome, diffID, err)
	}
	e.sessions.Remove(diffID)

	if res.Fallback {
		e.log.Warn().Ctx(ctx).Msg("empty proposal; original kept")
	}

	entry := history.Entry{
		ID:           randid.Prefixed("h", 10),
		DiffID:       diffID,
		Strategy:     string(cur.Strategy),
		Outcome:      outcome,
		OriginalText: cur.OriginalText,
		Replacement:  cur.ReplacementRaw,
		Instruction:  cur.Instruction,
		Fallback:     res.Fallback,
		Failure:      cur.Failure,
		ResolvedAt:   e.now(),
	}
	if entry.Replacement == "" {
		entry.Replacement = res.Replacement
	}

	if e.history != nil {
		if err := e.history.Save(ctx, entry, e.historyMax); err != nil {
			e.log.Error().Ctx(ctx).Err(err).Msg("save history")
		}
	}

	e.log.Info().Ctx(ctx).Str("outcome", string(outcome)).Bool("fallback", res.Fallback).Msg("diff resolved")
	e.bus.PublishDiffResolved(eventbus.DiffResolvedPayload{Entry: entry})
	return entry, nil
}
