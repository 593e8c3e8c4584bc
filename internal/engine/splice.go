package engine

import (
	"fmt"
	"slices"

	"github.com/colonyops/redline/internal/core/doc"
	"github.com/colonyops/redline/internal/core/locate"
)

// markedBlock is one textblock holding part of the original.
type markedBlock struct {
	id   uint64
	typ  doc.NodeType
	segs []locate.Segment
	full bool // every run of the block is marked
}

// groupSegments groups companion segments by enclosing textblock and
// classifies each block as fully or partially marked.
func groupSegments(root *doc.Node, segs []locate.Segment) []markedBlock {
	var out []markedBlock
	for _, seg := range segs {
		if n := len(out); n > 0 && out[n-1].id == seg.BlockID {
			out[n-1].segs = append(out[n-1].segs, seg)
			continue
		}
		out = append(out, markedBlock{id: seg.BlockID, segs: []locate.Segment{seg}})
	}
	for i := range out {
		_, tb, ok := root.FindByID(out[i].id)
		if !ok {
			continue
		}
		marked := 0
		for _, seg := range out[i].segs {
			marked += seg.To - seg.From
		}
		out[i].typ = tb.Type
		out[i].full = marked == tb.InlineLen()
	}
	return out
}

// splice replaces the companion-marked original with the container's
// children and removes the container, in one transaction:
//
//  1. group the marked runs by textblock and classify them
//  2. delete fully marked blocks and the marked runs of partial blocks,
//     last block first so earlier paths stay valid
//  3. re-locate the container and place its children, spliced into the
//     last block when it was only partly marked
func splice(tr *doc.Transaction, diffID string, segs []locate.Segment) error {
	groups := groupSegments(tr.Doc(), segs)

	// A partially marked last block takes the proposal where its marked
	// runs were. With more than one block, those runs start the block.
	var target *markedBlock
	if n := len(groups); n > 0 && !groups[n-1].full && splicable(groups[n-1].typ) {
		target = &groups[n-1]
	}

	for i := len(groups) - 1; i >= 0; i-- {
		g := groups[i]
		path, _, ok := tr.Doc().FindByID(g.id)
		if !ok {
			return fmt.Errorf("block diff %s: original block moved: %w", diffID, ErrAnchorNotFound)
		}
		if g.full {
			tr.DeleteBlock(collapseTarget(tr.Doc(), path))
			continue
		}
		for j := len(g.segs) - 1; j >= 0; j-- {
			tr.DeleteInline(path, g.segs[j].From, g.segs[j].To)
		}
	}
	if err := tr.Err(); err != nil {
		return err
	}

	c, ok := locate.LocateNode(tr.Doc(), locate.Container(diffID))
	if !ok {
		return fmt.Errorf("block diff %s: container lost during accept: %w", diffID, ErrAnchorNotFound)
	}

	if target == nil {
		unwrap(tr, c)
		return tr.Err()
	}

	_, para, ok := tr.Doc().FindByID(target.id)
	if !ok {
		unwrap(tr, c)
		return tr.Err()
	}
	offset := target.segs[0].From
	children := c.Node.Content

	if len(children) == 1 && inlineSplicable(para.Type, children[0]) {
		path, _, _ := tr.Doc().FindByID(target.id)
		tr.ReplaceInline(path, offset, offset, freshInline(children[0].Content, para.Type)...)
		tr.DeleteBlock(c.Path)
		return tr.Err()
	}
	if para.Type == doc.TypeCodeBlock {
		// code cannot absorb other blocks
		unwrap(tr, c)
		return tr.Err()
	}

	seq := spliceBlocks(para, offset, children)
	tr.DeleteBlock(c.Path)
	path, _, ok := tr.Doc().FindByID(target.id)
	if !ok {
		return fmt.Errorf("block diff %s: %w", diffID, ErrAnchorNotFound)
	}
	tr.ReplaceBlocks(path.Parent(), path.Index(), path.Index()+1, seq...)
	return tr.Err()
}

// spliceBlocks builds [before+first, middle..., last+after] where before
// and after are the paragraph's content around offset. The first block
// takes over the paragraph's identity.
func spliceBlocks(para *doc.Node, offset int, children []*doc.Node) []*doc.Node {
	before := doc.SliceInline(para.Content, 0, offset)
	after := doc.SliceInline(para.Content, offset, para.InlineLen())

	seq := make([]*doc.Node, 0, len(children)+2)
	for _, c := range children {
		seq = append(seq, c.Fresh())
	}

	if first := seq[0]; first.IsTextblock() {
		first.Content = slices.Concat(freshInline(before, first.Type), first.Content)
		first.ID = para.ID
	} else if len(before) > 0 {
		lead := doc.Paragraph(before...)
		lead.ID = para.ID
		seq = slices.Insert(seq, 0, lead)
	}

	if last := seq[len(seq)-1]; last.IsTextblock() {
		last.Content = slices.Concat(last.Content, freshInline(after, last.Type))
	} else if len(after) > 0 {
		seq = append(seq, doc.Paragraph(after...))
	}
	return seq
}

// unwrap puts the container's children in its place.
func unwrap(tr *doc.Transaction, c locate.Node) {
	i := c.Path.Index()
	tr.ReplaceBlocks(c.Path.Parent(), i, i+1, c.Node.Content...)
}

// collapseTarget returns the highest ancestor of path that would be left
// empty by deleting path.
func collapseTarget(root *doc.Node, path doc.Path) doc.Path {
	for len(path) > 1 {
		parent, err := root.NodeAt(path.Parent())
		if err != nil || parent.ChildCount() > 1 {
			break
		}
		path = path.Parent()
	}
	return path
}

// freshInline copies runs for insertion into a textblock of typ. Code
// blocks keep only diff marks.
func freshInline(runs []*doc.Node, typ doc.NodeType) []*doc.Node {
	out := make([]*doc.Node, 0, len(runs))
	for _, r := range runs {
		cp := r.Fresh()
		if typ == doc.TypeCodeBlock {
			cp.Marks = slices.DeleteFunc(cp.Marks, func(m doc.Mark) bool {
				return m.Type != doc.MarkInlineDiff && m.Type != doc.MarkCompanion
			})
		}
		out = append(out, cp)
	}
	return out
}

func splicable(typ doc.NodeType) bool {
	return typ == doc.TypeParagraph || typ == doc.TypeHeading || typ == doc.TypeCodeBlock
}

// inlineSplicable reports whether child's inline content can go straight
// into a textblock of typ.
func inlineSplicable(typ doc.NodeType, child *doc.Node) bool {
	if typ == doc.TypeCodeBlock {
		return child.IsTextblock()
	}
	return child.Type == doc.TypeParagraph
}
