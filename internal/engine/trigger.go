package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/colonyops/redline/internal/core/diffsession"
	"github.com/colonyops/redline/internal/core/doc"
	"github.com/colonyops/redline/internal/core/eventbus"
	"github.com/colonyops/redline/internal/core/logging"
)

// trigger is the open input affordance: a session that exists only in the
// engine until an instruction is submitted.
type trigger struct {
	session diffsession.Session
	sel     doc.Range
}

// Trigger opens an edit on the editor's current selection. An empty
// strategy uses the engine default. The returned session carries the
// selected text and its surrounding context.
func (e *Engine) Trigger(ctx context.Context, strategy diffsession.Strategy) (diffsession.Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pending != nil {
		return diffsession.Session{}, fmt.Errorf("trigger: %w", ErrTriggerActive)
	}
	if strategy == "" {
		strategy = e.defaultStrategy
	}
	if !strategy.IsValid() {
		return diffsession.Session{}, fmt.Errorf("trigger: unknown strategy %q", strategy)
	}

	root := e.editor.Doc()
	sel := e.editor.Selection()
	if sel.Empty() {
		return diffsession.Session{}, fmt.Errorf("trigger: %w", ErrEmptySelection)
	}
	if err := checkOverlap(root, sel); err != nil {
		return diffsession.Session{}, fmt.Errorf("trigger: %w", err)
	}

	text := root.TextBetween(sel)
	if text == "" {
		return diffsession.Session{}, fmt.Errorf("trigger: %w", ErrEmptySelection)
	}

	if strategy == diffsession.StrategyInline && !sel.SingleBlock() {
		// flat runs cannot hold a selection that crosses blocks
		e.log.Debug().Msg("multi-block selection; using block strategy")
		strategy = diffsession.StrategyBlock
	}

	id := e.newID()
	s := diffsession.New(id, strategy, e.now())
	s.OriginalText = text
	s.Context = surroundingContext(root, sel)
	if strategy == diffsession.StrategyBlock {
		s.CompanionID = id + "-original"
	}
	if err := s.Transition(diffsession.StatusTriggered, e.now()); err != nil {
		return diffsession.Session{}, err
	}
	e.pending = &trigger{session: *s, sel: sel}

	ctx = logging.WithStrategy(logging.WithDiffID(ctx, id), string(strategy))
	e.log.Debug().Ctx(ctx).Int("len", len(text)).Msg("trigger opened")
	e.bus.PublishTriggerOpened(eventbus.TriggerOpenedPayload{
		DiffID:    id,
		Strategy:  strategy,
		Selection: text,
		Context:   s.Context,
	})
	return *s, nil
}

// Pending returns the open trigger, if any.
func (e *Engine) Pending() (diffsession.Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pending == nil {
		return diffsession.Session{}, false
	}
	return e.pending.session, true
}

// CancelTrigger closes the open trigger without touching the document.
func (e *Engine) CancelTrigger(ctx context.Context, diffID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pending == nil || e.pending.session.ID != diffID {
		return fmt.Errorf("cancel trigger %s: %w", diffID, ErrNoTrigger)
	}
	e.pending = nil

	e.log.Debug().Ctx(logging.WithDiffID(ctx, diffID)).Msg("trigger cancelled")
	e.bus.PublishTriggerClosed(eventbus.TriggerClosedPayload{DiffID: diffID})
	return nil
}

// Submit confirms the open trigger with an instruction and puts the empty
// proposal in the tree.
func (e *Engine) Submit(ctx context.Context, diffID, instruction string) (diffsession.Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pending == nil || e.pending.session.ID != diffID {
		return diffsession.Session{}, fmt.Errorf("submit %s: %w", diffID, ErrNoTrigger)
	}
	p := e.pending
	s := p.session
	ctx = logging.WithStrategy(logging.WithDiffID(ctx, diffID), string(s.Strategy))

	// The selection was captured at trigger time; it is only used if it
	// still covers the same text.
	root := e.editor.Doc()
	if err := checkSelection(root, p.sel, s.OriginalText); err != nil {
		e.pending = nil
		e.bus.PublishTriggerClosed(eventbus.TriggerClosedPayload{DiffID: diffID})
		return diffsession.Session{}, fmt.Errorf("submit %s: %w", diffID, err)
	}

	if err := s.Transition(diffsession.StatusSubmitted, e.now()); err != nil {
		return diffsession.Session{}, err
	}
	s.Instruction = instruction

	st := e.strategies[s.Strategy]
	if err := e.editor.Update(func(tr *doc.Transaction) error {
		return st.submit(tr, &s, p.sel)
	}); err != nil {
		return diffsession.Session{}, fmt.Errorf("submit %s: %w", diffID, err)
	}

	e.pending = nil
	e.sessions.Add(&s)

	e.log.Info().Ctx(ctx).Msg("diff submitted")
	e.bus.PublishTriggerClosed(eventbus.TriggerClosedPayload{DiffID: diffID, Submitted: true})
	e.bus.PublishDiffSubmitted(eventbus.DiffSubmittedPayload{Session: s})
	return s, nil
}

func checkSelection(root *doc.Node, sel doc.Range, want string) error {
	for _, p := range []doc.Pos{sel.From, sel.To} {
		tb, err := root.Textblock(p.Path)
		if err != nil || p.Offset > tb.InlineLen() {
			return fmt.Errorf("selection moved: %w", ErrAnchorNotFound)
		}
	}
	if root.TextBetween(sel) != want {
		return fmt.Errorf("selection changed: %w", ErrAnchorNotFound)
	}
	return checkOverlap(root, sel)
}

// checkOverlap rejects selections touching diff-marked text or text inside
// a diff container.
func checkOverlap(root *doc.Node, sel doc.Range) error {
	for _, p := range root.Textblocks(sel) {
		for i := 1; i <= len(p); i++ {
			n, err := root.NodeAt(p[:i])
			if err == nil && n.Type == doc.TypeDiff {
				return fmt.Errorf("%w: %s", ErrOverlappingSession, n.Attrs.Str(doc.AttrDiffID))
			}
		}
	}

	var overlap error
	root.Leaves(func(l doc.Leaf) bool {
		from := doc.Pos{Path: l.Block, Offset: l.From}
		to := doc.Pos{Path: l.Block, Offset: l.To}
		if !sel.Overlaps(doc.Range{From: from, To: to}) {
			return true
		}
		if m, ok := l.Node.MarkOf(doc.MarkInlineDiff); ok {
			overlap = fmt.Errorf("%w: %s", ErrOverlappingSession, m.Attrs.Str(doc.AttrDiffID))
			return false
		}
		if m, ok := l.Node.MarkOf(doc.MarkCompanion); ok {
			overlap = fmt.Errorf("%w: %s", ErrOverlappingSession, m.Attrs.Str(doc.AttrCompanionID))
			return false
		}
		return true
	})
	return overlap
}

// surroundingContext returns the text of the textblocks holding the
// selection plus the textblock before and after them.
func surroundingContext(root *doc.Node, sel doc.Range) string {
	var blocks []*doc.Node
	var paths []doc.Path
	root.Walk(func(p doc.Path, n *doc.Node) bool {
		if n.IsTextblock() {
			blocks = append(blocks, n)
			paths = append(paths, p)
			return false
		}
		return true
	})

	first, last := -1, -1
	for i, p := range paths {
		if p.Compare(sel.From.Path) >= 0 && first < 0 {
			first = i
		}
		if p.Compare(sel.To.Path) <= 0 {
			last = i
		}
	}
	if first < 0 || last < 0 {
		return ""
	}
	first = max(first-1, 0)
	last = min(last+1, len(blocks)-1)

	parts := make([]string, 0, last-first+1)
	for _, b := range blocks[first : last+1] {
		if t := b.TextContent(); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n\n")
}
