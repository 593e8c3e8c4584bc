// Package doc is the tree-structured document host: ordered blocks holding
// inline text runs with attached marks, edited only through atomic
// transactions validated against a fixed schema.
package doc

import (
	"strings"
	"sync/atomic"
)

// NodeType names a node kind in the schema.
type NodeType string

// Node types understood by the schema.
const (
	TypeDoc         NodeType = "doc"
	TypeParagraph   NodeType = "paragraph"
	TypeHeading     NodeType = "heading"
	TypeCodeBlock   NodeType = "code_block"
	TypeBlockquote  NodeType = "blockquote"
	TypeBulletList  NodeType = "bullet_list"
	TypeOrderedList NodeType = "ordered_list"
	TypeListItem    NodeType = "list_item"
	TypeRule        NodeType = "horizontal_rule"
	TypeDiff        NodeType = "ai_diff"
	TypeText        NodeType = "text"
)

// Attribute keys used by the diff container and diff marks.
const (
	AttrDiffID       = "diffId"
	AttrCompanionID  = "companionId"
	AttrOriginalText = "originalText"
	AttrRawContent   = "rawContent"
	AttrStreaming    = "streaming"
	AttrLevel        = "level"
	AttrLanguage     = "language"
	AttrStart        = "start"
	AttrHref         = "href"
)

var lastID atomic.Uint64

func nextID() uint64 {
	return lastID.Add(1)
}

// Attrs holds node or mark attributes. Values are strings, bools or ints.
type Attrs map[string]any

// Str returns the string value for key, or "" when absent.
func (a Attrs) Str(key string) string {
	if v, ok := a[key].(string); ok {
		return v
	}
	return ""
}

// Bool returns the bool value for key, or false when absent.
func (a Attrs) Bool(key string) bool {
	if v, ok := a[key].(bool); ok {
		return v
	}
	return false
}

// Int returns the int value for key. JSON-decoded float64 values are
// converted.
func (a Attrs) Int(key string) int {
	switch v := a[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func (a Attrs) clone() Attrs {
	if a == nil {
		return nil
	}
	out := make(Attrs, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Node is a single element of the document tree. Text nodes carry Text and
// Marks; every other node carries Content.
//
// ID is a process-unique identity assigned at construction and preserved by
// Clone, so a node can be re-found after structural edits without keeping
// positions around.
type Node struct {
	ID      uint64   `json:"-"`
	Type    NodeType `json:"type"`
	Attrs   Attrs    `json:"attrs,omitempty"`
	Content []*Node  `json:"content,omitempty"`
	Text    string   `json:"text,omitempty"`
	Marks   []Mark   `json:"marks,omitempty"`
}

// NewNode creates a node of the given type with fresh identity.
func NewNode(typ NodeType, attrs Attrs, content ...*Node) *Node {
	return &Node{ID: nextID(), Type: typ, Attrs: attrs, Content: content}
}

// Text creates a text node.
func Text(s string, marks ...Mark) *Node {
	return &Node{ID: nextID(), Type: TypeText, Text: s, Marks: marks}
}

// Doc creates a document root.
func Doc(blocks ...*Node) *Node { return NewNode(TypeDoc, nil, blocks...) }

// Paragraph creates a paragraph. Plain strings may be passed through Text.
func Paragraph(inline ...*Node) *Node { return NewNode(TypeParagraph, nil, inline...) }

// Heading creates a heading of the given level.
func Heading(level int, inline ...*Node) *Node {
	return NewNode(TypeHeading, Attrs{AttrLevel: level}, inline...)
}

// CodeBlock creates a code block holding a single unmarked text run.
func CodeBlock(language, code string) *Node {
	n := NewNode(TypeCodeBlock, Attrs{AttrLanguage: language})
	if code != "" {
		n.Content = []*Node{Text(code)}
	}
	return n
}

// Blockquote creates a blockquote.
func Blockquote(blocks ...*Node) *Node { return NewNode(TypeBlockquote, nil, blocks...) }

// BulletList creates an unordered list.
func BulletList(items ...*Node) *Node { return NewNode(TypeBulletList, nil, items...) }

// OrderedList creates an ordered list starting at start.
func OrderedList(start int, items ...*Node) *Node {
	return NewNode(TypeOrderedList, Attrs{AttrStart: start}, items...)
}

// ListItem creates a list item.
func ListItem(blocks ...*Node) *Node { return NewNode(TypeListItem, nil, blocks...) }

// Rule creates a horizontal rule.
func Rule() *Node { return NewNode(TypeRule, nil) }

// P is shorthand for a paragraph holding one unmarked text run.
func P(text string) *Node {
	if text == "" {
		return Paragraph()
	}
	return Paragraph(Text(text))
}

// IsText reports whether n is an inline text run.
func (n *Node) IsText() bool { return n.Type == TypeText }

// IsTextblock reports whether n holds inline content directly.
func (n *Node) IsTextblock() bool {
	switch n.Type {
	case TypeParagraph, TypeHeading, TypeCodeBlock:
		return true
	}
	return false
}

// IsAtom reports whether n is edited only as a whole. The diff container is
// an atom: its children are replaced wholesale, never edited in place.
func (n *Node) IsAtom() bool {
	return n.Type == TypeDiff || n.Type == TypeRule
}

// ChildCount returns the number of children.
func (n *Node) ChildCount() int { return len(n.Content) }

// Child returns the i-th child.
func (n *Node) Child(i int) *Node { return n.Content[i] }

// TextContent concatenates all text below n. Sibling blocks are joined with
// a newline.
func (n *Node) TextContent() string {
	if n.IsText() {
		return n.Text
	}
	if n.IsTextblock() {
		var b strings.Builder
		for _, c := range n.Content {
			b.WriteString(c.Text)
		}
		return b.String()
	}
	parts := make([]string, 0, len(n.Content))
	for _, c := range n.Content {
		parts = append(parts, c.TextContent())
	}
	return strings.Join(parts, "\n")
}

// InlineLen returns the rune length of a textblock's inline content.
func (n *Node) InlineLen() int {
	total := 0
	for _, c := range n.Content {
		total += runeLen(c.Text)
	}
	return total
}

// Clone deep-copies n, preserving node identities.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := &Node{
		ID:    n.ID,
		Type:  n.Type,
		Attrs: n.Attrs.clone(),
		Text:  n.Text,
	}
	if len(n.Marks) > 0 {
		out.Marks = cloneMarks(n.Marks)
	}
	if len(n.Content) > 0 {
		out.Content = make([]*Node, len(n.Content))
		for i, c := range n.Content {
			out.Content[i] = c.Clone()
		}
	}
	return out
}

// Fresh deep-copies n and gives every copied node a new identity. Used when
// the same content is inserted in a second place.
func (n *Node) Fresh() *Node {
	out := n.Clone()
	out.walk(nil, func(_ Path, c *Node) bool {
		c.ID = nextID()
		return true
	})
	return out
}

// AssignIDs gives identities to nodes that have none, e.g. after JSON
// decoding.
func (n *Node) AssignIDs() {
	n.walk(nil, func(_ Path, c *Node) bool {
		if c.ID == 0 {
			c.ID = nextID()
		}
		return true
	})
}

func runeLen(s string) int {
	return len([]rune(s))
}
