package engine

import (
	"fmt"

	"github.com/colonyops/redline/internal/core/diffsession"
	"github.com/colonyops/redline/internal/core/doc"
	"github.com/colonyops/redline/internal/core/locate"
)

// inlineStrategy keeps the proposal as a marked text run in place of the
// selection. The original text survives only in the mark's originalText
// attribute.
type inlineStrategy struct{}

func (inlineStrategy) kind() diffsession.Strategy { return diffsession.StrategyInline }

func (inlineStrategy) submit(tr *doc.Transaction, s *diffsession.Session, sel doc.Range) error {
	if !sel.SingleBlock() {
		return fmt.Errorf("inline diff across textblocks: %w", doc.ErrInvalidPath)
	}
	// Marking the selected runs leaves the text and its formatting as it
	// was, so a reject before any chunk restores the exact original.
	tr.AddMark(sel.From.Path, sel.From.Offset, sel.To.Offset, doc.InlineDiffMark(s.ID, s.OriginalText))
	s.InsertAt = sel.From
	return tr.Err()
}

func (inlineStrategy) update(tr *doc.Transaction, s *diffsession.Session) error {
	if s.ReplacementRaw == "" {
		// an empty run would erase the anchor
		return nil
	}

	r, ok := locate.Locate(tr.Doc(), locate.InlineDiff(s.ID))
	if !ok {
		return insertAtRecorded(tr, s)
	}
	if !r.From.Path.Equal(r.To.Path) {
		return fmt.Errorf("inline diff %s spans textblocks: %w", s.ID, ErrAnchorNotFound)
	}

	first := r.Segments[0].Leaves[0]
	orig := originalOf(first, s.OriginalText)
	marks := append(plainMarks(first.Marks), doc.InlineDiffMark(s.ID, orig))
	tr.ReplaceInline(r.From.Path, r.From.Offset, r.To.Offset, doc.Text(s.ReplacementRaw, marks...))
	return tr.Err()
}

// insertAtRecorded handles a first chunk that finds no marked run. The
// recorded position is checked against the current tree before use.
func insertAtRecorded(tr *doc.Transaction, s *diffsession.Session) error {
	if s.Chunks > 0 || s.InsertAt.Path == nil {
		return fmt.Errorf("inline diff %s: %w", s.ID, ErrAnchorNotFound)
	}
	tb, err := tr.Doc().Textblock(s.InsertAt.Path)
	if err != nil || s.InsertAt.Offset > tb.InlineLen() {
		return fmt.Errorf("inline diff %s: insertion point gone: %w", s.ID, ErrAnchorNotFound)
	}
	run := doc.Text(s.ReplacementRaw, doc.InlineDiffMark(s.ID, s.OriginalText))
	tr.ReplaceInline(s.InsertAt.Path, s.InsertAt.Offset, s.InsertAt.Offset, run)
	return tr.Err()
}

func (inlineStrategy) finish(*doc.Transaction, *diffsession.Session) error {
	return nil
}

func (inlineStrategy) accept(tr *doc.Transaction, diffID string) (resolution, error) {
	r, ok := locate.Locate(tr.Doc(), locate.InlineDiff(diffID))
	if !ok {
		return resolution{}, fmt.Errorf("inline diff %s: %w", diffID, ErrAnchorNotFound)
	}
	for _, seg := range r.Segments {
		tr.RemoveMark(seg.Block, seg.From, seg.To, doc.MarkInlineDiff)
	}
	return resolution{Replacement: r.Content}, tr.Err()
}

func (inlineStrategy) reject(tr *doc.Transaction, diffID string) error {
	r, ok := locate.Locate(tr.Doc(), locate.InlineDiff(diffID))
	if !ok {
		return fmt.Errorf("inline diff %s: %w", diffID, ErrAnchorNotFound)
	}

	first := r.Segments[0].Leaves[0]
	orig := originalOf(first, "")
	if r.Content == orig {
		for _, seg := range r.Segments {
			tr.RemoveMark(seg.Block, seg.From, seg.To, doc.MarkInlineDiff)
		}
		return tr.Err()
	}

	// Segments may sit in several textblocks only when the tree was edited
	// around the diff; the original goes where the first one starts.
	for i := len(r.Segments) - 1; i > 0; i-- {
		seg := r.Segments[i]
		tr.DeleteInline(seg.Block, seg.From, seg.To)
	}
	head := r.Segments[0]
	if orig == "" {
		tr.DeleteInline(head.Block, head.From, head.To)
	} else {
		tr.ReplaceInline(head.Block, head.From, head.To, doc.Text(orig, plainMarks(first.Marks)...))
	}
	return tr.Err()
}

func originalOf(run *doc.Node, fallback string) string {
	m, ok := run.MarkOf(doc.MarkInlineDiff)
	if !ok {
		return fallback
	}
	if orig, ok := m.Attrs[doc.AttrOriginalText].(string); ok {
		return orig
	}
	return fallback
}
