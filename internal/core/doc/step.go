package doc

import (
	"fmt"
	"slices"
)

// Step is an atomic change to a document. Apply mutates the given working
// tree in place; a transaction owns that tree, so a failed step never
// reaches a committed document.
type Step interface {
	Apply(root *Node) error
	String() string
}

// ReplaceInlineStep replaces the inline range [From, To) of the textblock
// at Path with Content.
type ReplaceInlineStep struct {
	Path    Path
	From    int
	To      int
	Content []*Node
}

func (s ReplaceInlineStep) Apply(root *Node) error {
	tb, err := root.Textblock(s.Path)
	if err != nil {
		return err
	}
	if err := checkInlineRange(tb, s.From, s.To); err != nil {
		return err
	}
	tb.Content = ReplaceInline(tb.Content, s.From, s.To, s.Content)
	return nil
}

func (s ReplaceInlineStep) String() string {
	return fmt.Sprintf("replace-inline %s [%d,%d) with %q", s.Path, s.From, s.To, InlineText(s.Content))
}

// AddMarkStep adds Mark to every run in [From, To) of the textblock at Path.
type AddMarkStep struct {
	Path Path
	From int
	To   int
	Mark Mark
}

func (s AddMarkStep) Apply(root *Node) error {
	tb, err := root.Textblock(s.Path)
	if err != nil {
		return err
	}
	if err := checkInlineRange(tb, s.From, s.To); err != nil {
		return err
	}
	tb.Content = MapMarks(tb.Content, s.From, s.To, func(marks []Mark) []Mark {
		return AddMark(marks, s.Mark)
	})
	return nil
}

func (s AddMarkStep) String() string {
	return fmt.Sprintf("add-mark %s %s [%d,%d)", s.Mark.Type, s.Path, s.From, s.To)
}

// RemoveMarkStep removes marks of Type from every run in [From, To) of the
// textblock at Path.
type RemoveMarkStep struct {
	Path Path
	From int
	To   int
	Type MarkType
}

func (s RemoveMarkStep) Apply(root *Node) error {
	tb, err := root.Textblock(s.Path)
	if err != nil {
		return err
	}
	if err := checkInlineRange(tb, s.From, s.To); err != nil {
		return err
	}
	tb.Content = MapMarks(tb.Content, s.From, s.To, func(marks []Mark) []Mark {
		return RemoveMark(marks, s.Type)
	})
	return nil
}

func (s RemoveMarkStep) String() string {
	return fmt.Sprintf("remove-mark %s %s [%d,%d)", s.Type, s.Path, s.From, s.To)
}

// ReplaceBlocksStep replaces the children [From, To) of the node at Parent
// with Blocks. From == To inserts; empty Blocks deletes.
type ReplaceBlocksStep struct {
	Parent Path
	From   int
	To     int
	Blocks []*Node
}

func (s ReplaceBlocksStep) Apply(root *Node) error {
	parent, err := root.NodeAt(s.Parent)
	if err != nil {
		return err
	}
	if parent.IsTextblock() || parent.IsText() {
		return fmt.Errorf("%w: %s holds inline content", ErrInvalidPath, s.Parent)
	}
	if s.From < 0 || s.To < s.From || s.To > len(parent.Content) {
		return fmt.Errorf("%w: child range [%d,%d) of %s with %d children", ErrInvalidPath, s.From, s.To, s.Parent, len(parent.Content))
	}
	blocks := make([]*Node, len(s.Blocks))
	for i, b := range s.Blocks {
		blocks[i] = b.Clone()
	}
	parent.Content = slices.Concat(parent.Content[:s.From], blocks, parent.Content[s.To:])
	return nil
}

func (s ReplaceBlocksStep) String() string {
	return fmt.Sprintf("replace-blocks %s [%d,%d) with %d blocks", s.Parent, s.From, s.To, len(s.Blocks))
}

// SetAttrStep sets a single attribute on the node at Path.
type SetAttrStep struct {
	Path  Path
	Key   string
	Value any
}

func (s SetAttrStep) Apply(root *Node) error {
	n, err := root.NodeAt(s.Path)
	if err != nil {
		return err
	}
	if n.IsText() {
		return fmt.Errorf("%w: %s is a text run", ErrInvalidPath, s.Path)
	}
	attrs := n.Attrs.clone()
	if attrs == nil {
		attrs = Attrs{}
	}
	attrs[s.Key] = s.Value
	n.Attrs = attrs
	return nil
}

func (s SetAttrStep) String() string {
	return fmt.Sprintf("set-attr %s %s=%v", s.Path, s.Key, s.Value)
}

func checkInlineRange(tb *Node, from, to int) error {
	if from < 0 || to < from || to > tb.InlineLen() {
		return fmt.Errorf("%w: inline range [%d,%d) outside textblock of length %d", ErrInvalidPath, from, to, tb.InlineLen())
	}
	return nil
}
