// Package markdown converts between markdown text and document blocks.
package markdown

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/colonyops/redline/internal/core/doc"
)

// Parser turns proposal text into an ordered sequence of blocks. It must be
// deterministic: the same text always yields the same blocks.
type Parser interface {
	ParseToBlocks(src string) ([]*doc.Node, error)
}

// Goldmark parses CommonMark with goldmark.
type Goldmark struct {
	md goldmark.Markdown
}

// NewGoldmark creates a CommonMark parser.
func NewGoldmark() *Goldmark {
	return &Goldmark{md: goldmark.New()}
}

// ParseToBlocks implements Parser.
func (g *Goldmark) ParseToBlocks(src string) ([]*doc.Node, error) {
	source := []byte(src)
	root := g.md.Parser().Parse(text.NewReader(source))

	c := converter{source: source}
	return c.blocks(root), nil
}

// ParseDocument parses a whole markdown document. An empty source yields a
// document with a single empty paragraph.
func ParseDocument(p Parser, src string) (*doc.Node, error) {
	blocks, err := p.ParseToBlocks(src)
	if err != nil {
		return nil, err
	}
	if len(blocks) == 0 {
		blocks = []*doc.Node{doc.Paragraph()}
	}
	return doc.Doc(blocks...), nil
}

type converter struct {
	source []byte
}

func (c converter) blocks(parent ast.Node) []*doc.Node {
	var out []*doc.Node
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		if b := c.block(n); b != nil {
			out = append(out, b)
		}
	}
	return out
}

func (c converter) block(n ast.Node) *doc.Node {
	switch n := n.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		return doc.Paragraph(c.inline(n, nil)...)
	case *ast.Heading:
		return doc.Heading(n.Level, c.inline(n, nil)...)
	case *ast.FencedCodeBlock:
		return doc.CodeBlock(string(n.Language(c.source)), c.lines(n))
	case *ast.CodeBlock:
		return doc.CodeBlock("", c.lines(n))
	case *ast.HTMLBlock:
		return doc.CodeBlock("html", c.lines(n))
	case *ast.Blockquote:
		inner := c.blocks(n)
		if len(inner) == 0 {
			inner = []*doc.Node{doc.Paragraph()}
		}
		return doc.Blockquote(inner...)
	case *ast.List:
		items := make([]*doc.Node, 0, n.ChildCount())
		for li := n.FirstChild(); li != nil; li = li.NextSibling() {
			inner := c.blocks(li)
			if len(inner) == 0 {
				inner = []*doc.Node{doc.Paragraph()}
			}
			items = append(items, doc.ListItem(inner...))
		}
		if len(items) == 0 {
			return nil
		}
		if n.IsOrdered() {
			return doc.OrderedList(n.Start, items...)
		}
		return doc.BulletList(items...)
	case *ast.ThematicBreak:
		return doc.Rule()
	}
	return nil
}

func (c converter) lines(n ast.Node) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(c.source))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// inline flattens the inline children of n into text runs carrying marks.
func (c converter) inline(n ast.Node, marks []doc.Mark) []*doc.Node {
	var out []*doc.Node
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		switch child := child.(type) {
		case *ast.Text:
			s := string(child.Segment.Value(c.source))
			if child.SoftLineBreak() || child.HardLineBreak() {
				s += " "
			}
			out = appendRun(out, s, marks)
		case *ast.String:
			out = appendRun(out, string(child.Value), marks)
		case *ast.CodeSpan:
			out = append(out, c.inline(child, doc.AddMark(marks, doc.NewMark(doc.MarkCode, nil)))...)
		case *ast.Emphasis:
			typ := doc.MarkEm
			if child.Level >= 2 {
				typ = doc.MarkStrong
			}
			out = append(out, c.inline(child, doc.AddMark(marks, doc.NewMark(typ, nil)))...)
		case *ast.Link:
			link := doc.NewMark(doc.MarkLink, doc.Attrs{doc.AttrHref: string(child.Destination)})
			out = append(out, c.inline(child, doc.AddMark(marks, link))...)
		case *ast.AutoLink:
			url := string(child.URL(c.source))
			link := doc.NewMark(doc.MarkLink, doc.Attrs{doc.AttrHref: url})
			out = appendRun(out, string(child.Label(c.source)), doc.AddMark(marks, link))
		case *ast.RawHTML:
			segs := child.Segments
			for i := 0; i < segs.Len(); i++ {
				seg := segs.At(i)
				out = appendRun(out, string(seg.Value(c.source)), marks)
			}
		default:
			// images and unknown inlines contribute their text
			out = append(out, c.inline(child, marks)...)
		}
	}
	return doc.NormalizeInline(trimTrailingSpace(out))
}

func appendRun(out []*doc.Node, s string, marks []doc.Mark) []*doc.Node {
	if s == "" {
		return out
	}
	return append(out, doc.Text(s, marks...))
}

// trimTrailingSpace drops the space a trailing line break leaves behind.
func trimTrailingSpace(runs []*doc.Node) []*doc.Node {
	if len(runs) == 0 {
		return runs
	}
	last := runs[len(runs)-1]
	trimmed := strings.TrimRight(last.Text, " ")
	if trimmed == last.Text {
		return runs
	}
	if trimmed == "" {
		return runs[:len(runs)-1]
	}
	cp := last.Clone()
	cp.Text = trimmed
	return append(runs[:len(runs)-1:len(runs)-1], cp)
}
