// Package locate finds the live range of a tagged diff in a document. It
// re-scans the tree on every call; positions are never cached, since any
// unrelated edit may have moved the content since the last lookup.
package locate

import (
	"strings"

	"github.com/colonyops/redline/internal/core/doc"
)

// Tag identifies tagged content: a mark type or node type plus the
// attribute value that names one diff.
type Tag struct {
	Mark  doc.MarkType
	Node  doc.NodeType
	Attr  string
	Value string
}

// MarkTag matches text runs carrying a mark of typ with attr == value.
func MarkTag(typ doc.MarkType, attr, value string) Tag {
	return Tag{Mark: typ, Attr: attr, Value: value}
}

// NodeTag matches a block node of typ with attr == value.
func NodeTag(typ doc.NodeType, attr, value string) Tag {
	return Tag{Node: typ, Attr: attr, Value: value}
}

// InlineDiff is the tag of an inline-strategy proposal.
func InlineDiff(diffID string) Tag {
	return MarkTag(doc.MarkInlineDiff, doc.AttrDiffID, diffID)
}

// Companion is the tag of original text awaiting a block-strategy proposal.
func Companion(companionID string) Tag {
	return MarkTag(doc.MarkCompanion, doc.AttrCompanionID, companionID)
}

// Container is the tag of a block-strategy proposal container.
func Container(diffID string) Tag {
	return NodeTag(doc.TypeDiff, doc.AttrDiffID, diffID)
}

// Segment is a maximal run of matching leaves inside one textblock.
type Segment struct {
	Block   doc.Path
	BlockID uint64
	From    int
	To      int
	Text    string
	Leaves  []*doc.Node
}

// Range is the located span of a tag.
type Range struct {
	From     doc.Pos
	To       doc.Pos
	Content  string
	Segments []Segment
}

// Locate returns the span from the first matching leaf's start to the last
// matching leaf's end. The boolean is false when nothing carries the tag;
// that is a normal outcome, not an error.
func Locate(root *doc.Node, tag Tag) (Range, bool) {
	var segs []Segment
	root.Leaves(func(l doc.Leaf) bool {
		if !l.Node.HasMarkAttr(tag.Mark, tag.Attr, tag.Value) {
			return true
		}
		if n := len(segs); n > 0 && segs[n-1].BlockID == l.BlockID && segs[n-1].To == l.From {
			last := &segs[n-1]
			last.To = l.To
			last.Text += l.Node.Text
			last.Leaves = append(last.Leaves, l.Node)
			return true
		}
		segs = append(segs, Segment{
			Block:   l.Block,
			BlockID: l.BlockID,
			From:    l.From,
			To:      l.To,
			Text:    l.Node.Text,
			Leaves:  []*doc.Node{l.Node},
		})
		return true
	})

	if len(segs) == 0 {
		return Range{}, false
	}

	first, last := segs[0], segs[len(segs)-1]
	return Range{
		From:     doc.Pos{Path: first.Block, Offset: first.From},
		To:       doc.Pos{Path: last.Block, Offset: last.To},
		Content:  joinSegments(segs),
		Segments: segs,
	}, true
}

func joinSegments(segs []Segment) string {
	var b strings.Builder
	for i, s := range segs {
		if i > 0 && s.BlockID != segs[i-1].BlockID {
			b.WriteByte('\n')
		}
		b.WriteString(s.Text)
	}
	return b.String()
}

// Node is a located block node.
type Node struct {
	Path doc.Path
	Node *doc.Node
}

// LocateNode returns the first block node carrying the tag as an attribute.
func LocateNode(root *doc.Node, tag Tag) (Node, bool) {
	var found Node
	ok := false
	root.Walk(func(p doc.Path, n *doc.Node) bool {
		if ok {
			return false
		}
		if n.Type == tag.Node && n.Attrs.Str(tag.Attr) == tag.Value {
			found, ok = Node{Path: p, Node: n}, true
			return false
		}
		return !n.IsTextblock()
	})
	return found, ok
}

// Any reports whether the tag is present at all.
func Any(root *doc.Node, tag Tag) bool {
	if tag.Node != "" {
		_, ok := LocateNode(root, tag)
		return ok
	}
	_, ok := Locate(root, tag)
	return ok
}
