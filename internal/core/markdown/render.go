package markdown

import (
	"fmt"
	"strings"

	"github.com/colonyops/redline/internal/core/doc"
)

// Render serializes a document as markdown. Diff marks are not part of the
// markdown form: an inline proposal renders as its current text, a block
// proposal renders its children after the still-present original.
func Render(root *doc.Node) string {
	var b strings.Builder
	renderBlocks(&b, root.Content, "")
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func renderBlocks(b *strings.Builder, blocks []*doc.Node, prefix string) {
	for i, n := range blocks {
		if i > 0 {
			b.WriteString(strings.TrimRight(prefix, " "))
			b.WriteString("\n")
		}
		renderBlock(b, n, prefix)
	}
}

func renderBlock(b *strings.Builder, n *doc.Node, prefix string) {
	switch n.Type {
	case doc.TypeParagraph:
		writeLine(b, prefix, RenderInline(n.Content))
	case doc.TypeHeading:
		writeLine(b, prefix, strings.Repeat("#", n.Attrs.Int(doc.AttrLevel))+" "+RenderInline(n.Content))
	case doc.TypeCodeBlock:
		writeLine(b, prefix, "```"+n.Attrs.Str(doc.AttrLanguage))
		for _, line := range strings.Split(n.TextContent(), "\n") {
			writeLine(b, prefix, line)
		}
		writeLine(b, prefix, "```")
	case doc.TypeBlockquote:
		renderBlocks(b, n.Content, prefix+"> ")
	case doc.TypeBulletList, doc.TypeOrderedList:
		start := n.Attrs.Int(doc.AttrStart)
		for i, item := range n.Content {
			marker := "- "
			if n.Type == doc.TypeOrderedList {
				marker = fmt.Sprintf("%d. ", start+i)
			}
			renderListItem(b, item, prefix, marker)
		}
	case doc.TypeRule:
		writeLine(b, prefix, "---")
	case doc.TypeDiff:
		renderBlocks(b, n.Content, prefix)
	}
}

func renderListItem(b *strings.Builder, item *doc.Node, prefix, marker string) {
	var inner strings.Builder
	renderBlocks(&inner, item.Content, "")
	indent := strings.Repeat(" ", len(marker))
	for i, line := range strings.Split(strings.TrimRight(inner.String(), "\n"), "\n") {
		switch {
		case i == 0:
			writeLine(b, prefix, marker+line)
		case line == "":
			writeLine(b, prefix, "")
		default:
			writeLine(b, prefix, indent+line)
		}
	}
}

func writeLine(b *strings.Builder, prefix, line string) {
	if line == "" {
		b.WriteString(strings.TrimRight(prefix, " "))
	} else {
		b.WriteString(prefix)
		b.WriteString(line)
	}
	b.WriteString("\n")
}

// RenderInline serializes inline runs, wrapping formatting marks in their
// markdown delimiters.
func RenderInline(runs []*doc.Node) string {
	var b strings.Builder
	for _, run := range runs {
		s := run.Text
		if _, ok := run.MarkOf(doc.MarkCode); ok {
			s = "`" + s + "`"
		}
		if _, ok := run.MarkOf(doc.MarkEm); ok {
			s = "*" + s + "*"
		}
		if _, ok := run.MarkOf(doc.MarkStrong); ok {
			s = "**" + s + "**"
		}
		if m, ok := run.MarkOf(doc.MarkLink); ok {
			s = "[" + s + "](" + m.Attrs.Str(doc.AttrHref) + ")"
		}
		b.WriteString(s)
	}
	return b.String()
}
