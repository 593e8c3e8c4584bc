package engine

import (
	"fmt"

	"github.com/colonyops/redline/internal/core/diffsession"
	"github.com/colonyops/redline/internal/core/doc"
	"github.com/colonyops/redline/internal/core/locate"
	"github.com/colonyops/redline/internal/core/markdown"
)

// blockStrategy leaves the original in place under a companion mark and
// stages the proposal in an ai_diff container right after it.
type blockStrategy struct {
	parser markdown.Parser
}

func (blockStrategy) kind() diffsession.Strategy { return diffsession.StrategyBlock }

func (b blockStrategy) submit(tr *doc.Transaction, s *diffsession.Session, sel doc.Range) error {
	root := tr.Doc()
	companion := doc.CompanionMark(s.CompanionID)

	blocks := root.Textblocks(sel)
	if len(blocks) == 0 {
		return fmt.Errorf("block diff %s: %w", s.ID, ErrEmptySelection)
	}
	for _, p := range blocks {
		tb, err := root.Textblock(p)
		if err != nil {
			return err
		}
		from, to := 0, tb.InlineLen()
		if p.Equal(sel.From.Path) {
			from = sel.From.Offset
		}
		if p.Equal(sel.To.Path) {
			to = sel.To.Offset
		}
		if from < to {
			tr.AddMark(p, from, to, companion)
		}
	}

	last := blocks[len(blocks)-1]
	container := doc.NewNode(doc.TypeDiff, doc.Attrs{
		doc.AttrDiffID:       s.ID,
		doc.AttrRawContent:   "",
		doc.AttrOriginalText: s.OriginalText,
		doc.AttrCompanionID:  s.CompanionID,
		doc.AttrStreaming:    true,
	}, doc.P(""))
	tr.InsertBlocks(last.Parent(), last.Index()+1, container)
	return tr.Err()
}

func (b blockStrategy) update(tr *doc.Transaction, s *diffsession.Session) error {
	c, ok := locate.LocateNode(tr.Doc(), locate.Container(s.ID))
	if !ok {
		return fmt.Errorf("block diff %s: %w", s.ID, ErrAnchorNotFound)
	}

	children, err := b.parse(s.ReplacementRaw)
	if err != nil {
		return err
	}
	tr.ReplaceBlocks(c.Path, 0, c.Node.ChildCount(), children...)
	tr.SetAttr(c.Path, doc.AttrRawContent, s.ReplacementRaw)
	return tr.Err()
}

// parse turns the full proposal text into container children. Text that
// yields no blocks becomes the empty placeholder.
func (b blockStrategy) parse(raw string) ([]*doc.Node, error) {
	blocks, err := b.parser.ParseToBlocks(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParseFailure, err)
	}
	if len(blocks) == 0 {
		return []*doc.Node{doc.P("")}, nil
	}
	for _, blk := range blocks {
		if blk.Type == doc.TypeDiff {
			return nil, fmt.Errorf("%w: proposal contains a diff container", ErrParseFailure)
		}
	}
	return blocks, nil
}

func (blockStrategy) finish(tr *doc.Transaction, s *diffsession.Session) error {
	c, ok := locate.LocateNode(tr.Doc(), locate.Container(s.ID))
	if !ok {
		return fmt.Errorf("block diff %s: %w", s.ID, ErrAnchorNotFound)
	}
	tr.SetAttr(c.Path, doc.AttrStreaming, false)
	return tr.Err()
}

func (blockStrategy) accept(tr *doc.Transaction, diffID string) (resolution, error) {
	c, ok := locate.LocateNode(tr.Doc(), locate.Container(diffID))
	if !ok {
		return resolution{}, fmt.Errorf("block diff %s: %w", diffID, ErrAnchorNotFound)
	}
	raw := c.Node.Attrs.Str(doc.AttrRawContent)
	companionID := c.Node.Attrs.Str(doc.AttrCompanionID)

	if !hasContent(c.Node) {
		// Nothing usable was proposed: keep the original as plain text.
		stripCompanion(tr, companionID)
		tr.DeleteBlock(c.Path)
		return resolution{Fallback: true}, tr.Err()
	}

	orig, found := locate.Locate(tr.Doc(), locate.Companion(companionID))
	if !found {
		// The original was edited away; dropping the container is the only
		// change that cannot corrupt anything.
		tr.DeleteBlock(c.Path)
		return resolution{Fallback: true}, tr.Err()
	}

	if err := splice(tr, diffID, orig.Segments); err != nil {
		return resolution{}, err
	}
	return resolution{Replacement: raw}, tr.Err()
}

func (blockStrategy) reject(tr *doc.Transaction, diffID string) error {
	c, ok := locate.LocateNode(tr.Doc(), locate.Container(diffID))
	if !ok {
		return fmt.Errorf("block diff %s: %w", diffID, ErrAnchorNotFound)
	}
	stripCompanion(tr, c.Node.Attrs.Str(doc.AttrCompanionID))
	tr.DeleteBlock(c.Path)
	return tr.Err()
}

// hasContent reports whether the container holds anything an accept could
// insert. Empty textblocks, such as the placeholder or an empty heading,
// do not count.
func hasContent(container *doc.Node) bool {
	for _, c := range container.Content {
		if usable(c) {
			return true
		}
	}
	return false
}

func usable(n *doc.Node) bool {
	switch {
	case n.IsTextblock():
		return n.InlineLen() > 0
	case n.Type == doc.TypeRule:
		return true
	}
	for _, c := range n.Content {
		if usable(c) {
			return true
		}
	}
	return false
}

func stripCompanion(tr *doc.Transaction, companionID string) {
	if companionID == "" {
		return
	}
	r, ok := locate.Locate(tr.Doc(), locate.Companion(companionID))
	if !ok {
		return
	}
	for _, seg := range r.Segments {
		tr.RemoveMark(seg.Block, seg.From, seg.To, doc.MarkCompanion)
	}
}
