package doc

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// ErrInvalidPath is returned when a path does not address a node.
var ErrInvalidPath = errors.New("invalid path")

// Path addresses a node by child indices from the root.
type Path []int

// Parent returns the path of the parent node.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return nil
	}
	return slices.Clone(p[:len(p)-1])
}

// Index returns the node's index within its parent.
func (p Path) Index() int {
	if len(p) == 0 {
		return -1
	}
	return p[len(p)-1]
}

// Child returns the path of the i-th child.
func (p Path) Child(i int) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = i
	return out
}

// Equal reports whether two paths address the same node.
func (p Path) Equal(o Path) bool { return slices.Equal(p, o) }

// Compare orders paths in document order.
func (p Path) Compare(o Path) int { return slices.Compare(p, o) }

// HasPrefix reports whether p is at or below prefix.
func (p Path) HasPrefix(prefix Path) bool {
	return len(p) >= len(prefix) && slices.Equal(p[:len(prefix)], prefix)
}

func (p Path) String() string {
	parts := make([]string, len(p))
	for i, v := range p {
		parts[i] = strconv.Itoa(v)
	}
	return "/" + strings.Join(parts, "/")
}

// Pos is a point inside a textblock: Path addresses the textblock and
// Offset counts runes of its inline content.
type Pos struct {
	Path   Path `json:"path"`
	Offset int  `json:"offset"`
}

// Compare orders positions in document order.
func (p Pos) Compare(o Pos) int {
	if c := p.Path.Compare(o.Path); c != 0 {
		return c
	}
	switch {
	case p.Offset < o.Offset:
		return -1
	case p.Offset > o.Offset:
		return 1
	}
	return 0
}

func (p Pos) String() string {
	return fmt.Sprintf("%s:%d", p.Path, p.Offset)
}

// Range is a span between two positions. From and To may sit in different
// textblocks.
type Range struct {
	From Pos `json:"from"`
	To   Pos `json:"to"`
}

// Empty reports whether the range selects nothing.
func (r Range) Empty() bool { return r.From.Compare(r.To) >= 0 }

// SingleBlock reports whether both ends sit in the same textblock.
func (r Range) SingleBlock() bool { return r.From.Path.Equal(r.To.Path) }

// Overlaps reports whether two ranges share any content.
func (r Range) Overlaps(o Range) bool {
	return r.From.Compare(o.To) < 0 && o.From.Compare(r.To) < 0
}

// NodeAt returns the node addressed by path.
func (n *Node) NodeAt(path Path) (*Node, error) {
	cur := n
	for depth, idx := range path {
		if idx < 0 || idx >= len(cur.Content) {
			return nil, fmt.Errorf("%w: %s (depth %d)", ErrInvalidPath, path, depth)
		}
		cur = cur.Content[idx]
	}
	return cur, nil
}

// Textblock returns the textblock addressed by path.
func (n *Node) Textblock(path Path) (*Node, error) {
	tb, err := n.NodeAt(path)
	if err != nil {
		return nil, err
	}
	if !tb.IsTextblock() {
		return nil, fmt.Errorf("%w: %s is a %s, not a textblock", ErrInvalidPath, path, tb.Type)
	}
	return tb, nil
}

// FindByID returns the path of the node with the given identity.
func (n *Node) FindByID(id uint64) (Path, *Node, bool) {
	var (
		found     *Node
		foundPath Path
	)
	n.walk(nil, func(p Path, c *Node) bool {
		if found != nil {
			return false
		}
		if c.ID == id {
			found, foundPath = c, slices.Clone(p)
			return false
		}
		return true
	})
	return foundPath, found, found != nil
}

// Walk visits n and its descendants in document order. Returning false from
// fn skips the node's children.
func (n *Node) Walk(fn func(path Path, node *Node) bool) {
	n.walk(nil, fn)
}

func (n *Node) walk(path Path, fn func(Path, *Node) bool) {
	if !fn(path, n) {
		return
	}
	for i, c := range n.Content {
		c.walk(path.Child(i), fn)
	}
}

// Leaf is a text run located inside a textblock.
type Leaf struct {
	Block   Path // path of the enclosing textblock
	BlockID uint64
	From    int // rune offset of the run's start within the textblock
	To      int
	Node    *Node
}

// Leaves visits every text run in document order. Returning false stops the
// walk.
func (n *Node) Leaves(fn func(Leaf) bool) {
	stopped := false
	n.walk(nil, func(p Path, c *Node) bool {
		if stopped {
			return false
		}
		if !c.IsTextblock() {
			return true
		}
		off := 0
		for _, run := range c.Content {
			l := runeLen(run.Text)
			if !fn(Leaf{Block: slices.Clone(p), BlockID: c.ID, From: off, To: off + l, Node: run}) {
				stopped = true
				return false
			}
			off += l
		}
		return false
	})
}

// TextBetween returns the text covered by r. Textblocks are joined with a
// newline.
func (n *Node) TextBetween(r Range) string {
	var b strings.Builder
	var last Path
	n.Leaves(func(l Leaf) bool {
		from := Pos{Path: l.Block, Offset: l.From}
		to := Pos{Path: l.Block, Offset: l.To}
		if to.Compare(r.From) <= 0 || from.Compare(r.To) >= 0 {
			return true
		}
		start, end := 0, l.To-l.From
		if l.Block.Equal(r.From.Path) && r.From.Offset > l.From {
			start = r.From.Offset - l.From
		}
		if l.Block.Equal(r.To.Path) && r.To.Offset < l.To {
			end = r.To.Offset - l.From
		}
		if last != nil && !last.Equal(l.Block) {
			b.WriteByte('\n')
		}
		last = l.Block
		b.WriteString(string([]rune(l.Node.Text)[start:end]))
		return true
	})
	return b.String()
}

// Textblocks returns the paths of all textblocks touched by r, in order.
func (n *Node) Textblocks(r Range) []Path {
	var out []Path
	n.walk(nil, func(p Path, c *Node) bool {
		if !c.IsTextblock() {
			return true
		}
		if p.Compare(r.From.Path) >= 0 && p.Compare(r.To.Path) <= 0 {
			out = append(out, slices.Clone(p))
		}
		return false
	})
	return out
}

// FindText returns the range covering the first occurrence of s, matching
// against the text of all textblocks joined with a newline as TextBetween
// reports it.
func (n *Node) FindText(s string) (Range, bool) {
	if s == "" {
		return Range{}, false
	}

	type block struct {
		path  Path
		start int // rune offset in the joined text
		len   int
	}
	var (
		blocks []block
		b      strings.Builder
		off    int
	)
	n.walk(nil, func(p Path, c *Node) bool {
		if !c.IsTextblock() {
			return true
		}
		if len(blocks) > 0 {
			b.WriteString("\n")
			off++
		}
		l := c.InlineLen()
		blocks = append(blocks, block{path: slices.Clone(p), start: off, len: l})
		b.WriteString(c.TextContent())
		off += l
		return false
	})

	text := b.String()
	i := strings.Index(text, s)
	if i < 0 {
		return Range{}, false
	}
	from := runeLen(text[:i])
	to := from + runeLen(s)

	pos := func(at int) Pos {
		for _, bl := range blocks {
			if at <= bl.start+bl.len {
				return Pos{Path: bl.path, Offset: max(0, at-bl.start)}
			}
		}
		last := blocks[len(blocks)-1]
		return Pos{Path: last.path, Offset: last.len}
	}
	return Range{From: pos(from), To: pos(to)}, true
}
