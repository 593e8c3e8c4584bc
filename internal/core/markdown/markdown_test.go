package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/redline/internal/core/doc"
)

func TestGoldmark_ParseToBlocks(t *testing.T) {
	p := NewGoldmark()

	t.Run("paragraphs", func(t *testing.T) {
		blocks, err := p.ParseToBlocks("X.\n\nY.")
		require.NoError(t, err)
		require.Len(t, blocks, 2)
		assert.Equal(t, doc.TypeParagraph, blocks[0].Type)
		assert.Equal(t, "X.", blocks[0].TextContent())
		assert.Equal(t, "Y.", blocks[1].TextContent())
	})

	t.Run("soft line breaks join with a space", func(t *testing.T) {
		blocks, err := p.ParseToBlocks("The quick\nbrown fox")
		require.NoError(t, err)
		require.Len(t, blocks, 1)
		assert.Equal(t, "The quick brown fox", blocks[0].TextContent())
	})

	t.Run("heading and list", func(t *testing.T) {
		blocks, err := p.ParseToBlocks("## Title\n\n- one\n- two\n")
		require.NoError(t, err)
		require.Len(t, blocks, 2)
		assert.Equal(t, doc.TypeHeading, blocks[0].Type)
		assert.Equal(t, 2, blocks[0].Attrs.Int(doc.AttrLevel))
		assert.Equal(t, doc.TypeBulletList, blocks[1].Type)
		require.Len(t, blocks[1].Content, 2)
		assert.Equal(t, "two", blocks[1].Content[1].TextContent())
	})

	t.Run("emphasis becomes marks", func(t *testing.T) {
		blocks, err := p.ParseToBlocks("plain **bold** and *em*")
		require.NoError(t, err)
		require.Len(t, blocks, 1)
		runs := blocks[0].Content
		require.Len(t, runs, 4)
		assert.Equal(t, "bold", runs[1].Text)
		_, ok := runs[1].MarkOf(doc.MarkStrong)
		assert.True(t, ok)
		assert.Equal(t, "em", runs[3].Text)
		_, ok = runs[3].MarkOf(doc.MarkEm)
		assert.True(t, ok)
	})

	t.Run("fenced code", func(t *testing.T) {
		blocks, err := p.ParseToBlocks("```go\nfmt.Println()\n```\n")
		require.NoError(t, err)
		require.Len(t, blocks, 1)
		assert.Equal(t, doc.TypeCodeBlock, blocks[0].Type)
		assert.Equal(t, "go", blocks[0].Attrs.Str(doc.AttrLanguage))
		assert.Equal(t, "fmt.Println()", blocks[0].TextContent())
	})

	t.Run("empty input", func(t *testing.T) {
		blocks, err := p.ParseToBlocks("")
		require.NoError(t, err)
		assert.Empty(t, blocks)
	})

	t.Run("deterministic", func(t *testing.T) {
		a, err := p.ParseToBlocks("The quick fox\n\n> quoted")
		require.NoError(t, err)
		b, err := p.ParseToBlocks("The quick fox\n\n> quoted")
		require.NoError(t, err)
		assert.Equal(t, Render(doc.Doc(a...)), Render(doc.Doc(b...)))
	})
}

func TestPlain_ParseToBlocks(t *testing.T) {
	blocks, err := Plain{}.ParseToBlocks("first  line\nstill first\n\n\nsecond **not bold**")
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, "first line still first", blocks[0].TextContent())
	assert.Equal(t, "second **not bold**", blocks[1].TextContent())
}

func TestRender(t *testing.T) {
	root := doc.Doc(
		doc.Heading(1, doc.Text("Title")),
		doc.Paragraph(doc.Text("Hello "), doc.Text("world", doc.NewMark(doc.MarkStrong, nil)), doc.Text(".")),
		doc.BulletList(doc.ListItem(doc.P("a")), doc.ListItem(doc.P("b"))),
		doc.Blockquote(doc.P("quote")),
		doc.CodeBlock("sh", "echo hi"),
	)

	want := "# Title\n\nHello **world**.\n\n- a\n- b\n\n> quote\n\n```sh\necho hi\n```\n"
	assert.Equal(t, want, Render(root))
}

func TestRender_RoundTrip(t *testing.T) {
	src := "# Title\n\nHello **world**.\n\n1. one\n2. two\n\n> quote\n"
	root, err := ParseDocument(NewGoldmark(), src)
	require.NoError(t, err)
	require.NoError(t, doc.Validate(root))
	assert.Equal(t, src, Render(root))
}
