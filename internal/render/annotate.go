package render

import (
	"fmt"
	"strings"

	"github.com/colonyops/redline/internal/core/doc"
	"github.com/colonyops/redline/internal/core/markdown"
	"github.com/colonyops/redline/internal/core/styles"
)

// Annotated renders root in markdown layout with diff annotations styled:
// text a proposal would replace is struck through, proposed text is
// highlighted and block proposals are drawn with a left rule.
func Annotated(root *doc.Node) string {
	var b strings.Builder
	annotateBlocks(&b, root.Content, "")
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func annotateBlocks(b *strings.Builder, blocks []*doc.Node, prefix string) {
	for i, n := range blocks {
		if i > 0 {
			b.WriteString(strings.TrimRight(prefix, " "))
			b.WriteString("\n")
		}
		annotateBlock(b, n, prefix)
	}
}

func annotateBlock(b *strings.Builder, n *doc.Node, prefix string) {
	switch n.Type {
	case doc.TypeParagraph:
		line(b, prefix, annotateInline(n.Content))
	case doc.TypeHeading:
		line(b, prefix, strings.Repeat("#", n.Attrs.Int(doc.AttrLevel))+" "+annotateInline(n.Content))
	case doc.TypeCodeBlock:
		line(b, prefix, "```"+n.Attrs.Str(doc.AttrLanguage))
		for _, l := range strings.Split(annotateInline(n.Content), "\n") {
			line(b, prefix, l)
		}
		line(b, prefix, "```")
	case doc.TypeBlockquote:
		annotateBlocks(b, n.Content, prefix+"> ")
	case doc.TypeBulletList, doc.TypeOrderedList:
		start := n.Attrs.Int(doc.AttrStart)
		for i, item := range n.Content {
			marker := "- "
			if n.Type == doc.TypeOrderedList {
				marker = fmt.Sprintf("%d. ", start+i)
			}
			var inner strings.Builder
			annotateBlocks(&inner, item.Content, "")
			indent := strings.Repeat(" ", len(marker))
			for j, l := range strings.Split(strings.TrimRight(inner.String(), "\n"), "\n") {
				if j == 0 {
					line(b, prefix, marker+l)
				} else {
					line(b, prefix, indent+l)
				}
			}
		}
	case doc.TypeRule:
		line(b, prefix, "---")
	case doc.TypeDiff:
		var inner strings.Builder
		annotateBlocks(&inner, n.Content, "")
		body := strings.TrimRight(inner.String(), "\n")
		if body == "" {
			body = styles.MutedStyle.Render("…")
		}
		for _, l := range strings.Split(styles.ContainerStyle.Render(body), "\n") {
			line(b, prefix, l)
		}
	}
}

// annotateInline renders runs, showing the original text of an inline
// proposal once, before its first run.
func annotateInline(runs []*doc.Node) string {
	var (
		b    strings.Builder
		last string
	)
	for _, run := range runs {
		text := markdown.RenderInline([]*doc.Node{run})
		if m, ok := run.MarkOf(doc.MarkInlineDiff); ok {
			id := m.Attrs.Str(doc.AttrDiffID)
			if id != last {
				if orig := m.Attrs.Str(doc.AttrOriginalText); orig != "" {
					b.WriteString(styles.OriginalStyle.Render(orig))
				}
			}
			last = id
			b.WriteString(styles.ProposalStyle.Render(text))
			continue
		}
		last = ""
		if _, ok := run.MarkOf(doc.MarkCompanion); ok {
			b.WriteString(styles.OriginalStyle.Render(text))
			continue
		}
		b.WriteString(text)
	}
	return b.String()
}

func line(b *strings.Builder, prefix, s string) {
	if s == "" {
		b.WriteString(strings.TrimRight(prefix, " "))
	} else {
		b.WriteString(prefix)
		b.WriteString(s)
	}
	b.WriteString("\n")
}
