package render

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/redline/internal/core/config"
	"github.com/colonyops/redline/internal/core/doc"
	"github.com/colonyops/redline/internal/core/styles"
	"github.com/colonyops/redline/pkg/tuitest"
)

func container(diffID, companionID string, blocks ...*doc.Node) *doc.Node {
	return doc.NewNode(doc.TypeDiff, doc.Attrs{
		doc.AttrDiffID:      diffID,
		doc.AttrCompanionID: companionID,
	}, blocks...)
}

func TestAnnotated(t *testing.T) {
	tests := []struct {
		name string
		root *doc.Node
		want string
	}{
		{
			name: "plain document",
			root: doc.Doc(doc.Heading(1, doc.Text("Title")), doc.P("Hello world.")),
			want: "# Title\n\nHello world.\n",
		},
		{
			name: "inline proposal shows original first",
			root: doc.Doc(doc.Paragraph(
				doc.Text("Hello "),
				doc.Text("Earth", doc.InlineDiffMark("d1", "world")),
				doc.Text("."),
			)),
			want: "Hello worldEarth.\n",
		},
		{
			name: "original shown once across formatted runs",
			root: doc.Doc(doc.Paragraph(
				doc.Text("big ", doc.InlineDiffMark("d1", "small")),
				doc.Text("Earth", doc.InlineDiffMark("d1", "small"), doc.NewMark(doc.MarkStrong, nil)),
			)),
			want: "smallbig **Earth**\n",
		},
		{
			name: "block proposal after companion",
			root: doc.Doc(
				doc.Paragraph(doc.Text("Hello world.", doc.CompanionMark("c1"))),
				container("d1", "c1", doc.P("X."), doc.P("Y.")),
			),
			want: "Hello world.\n\n┃ X.\n┃\n┃ Y.\n",
		},
		{
			name: "empty block proposal",
			root: doc.Doc(container("d1", "c1")),
			want: "┃ …\n",
		},
		{
			name: "list and quote layout",
			root: doc.Doc(
				doc.BulletList(doc.ListItem(doc.P("uno")), doc.ListItem(doc.P("dos"))),
				doc.Blockquote(doc.P("said")),
			),
			want: "- uno\n- dos\n\n> said\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Annotated(tt.root)
			assert.Equal(t, tt.want, tuitest.StripANSI(got))
		})
	}
}

func TestAnnotated_Styles(t *testing.T) {
	root := doc.Doc(doc.Paragraph(
		doc.Text("Hello "),
		doc.Text("Earth", doc.InlineDiffMark("d1", "world")),
	))

	got := Annotated(root)
	assert.Contains(t, got, styles.OriginalStyle.Render("world"))
	assert.Contains(t, got, styles.ProposalStyle.Render("Earth"))
}

func TestWriteAnnotated_NoColorForBuffers(t *testing.T) {
	root := doc.Doc(doc.Paragraph(doc.Text("Earth", doc.InlineDiffMark("d1", "world"))))

	var buf bytes.Buffer
	require.NoError(t, WriteAnnotated(&buf, root))
	assert.Equal(t, "worldEarth\n", buf.String())
}

func TestRenderer_Document(t *testing.T) {
	root := doc.Doc(
		doc.Heading(1, doc.Text("Title")),
		doc.Paragraph(doc.Text("Hello world.", doc.CompanionMark("c1"))),
		container("d1", "c1", doc.P("Hello Earth.")),
	)

	r := New(config.RenderConfig{Style: "auto", Width: 80}, false)
	out, err := r.Document(root)
	require.NoError(t, err)

	plain := tuitest.StripANSI(out)
	assert.Contains(t, plain, "Title")
	assert.Contains(t, plain, "Hello world.")
	assert.Contains(t, plain, "Hello Earth.")
}

func TestRenderer_Styles(t *testing.T) {
	tests := []struct {
		name    string
		style   string
		wantErr bool
	}{
		{name: "auto", style: StyleAuto},
		{name: "theme", style: StyleTheme},
		{name: "built-in", style: "dracula"},
		{name: "unknown", style: "no-such-style", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(config.RenderConfig{Style: tt.style, Width: 40}, true)
			out, err := r.Markdown("Some *text*.")
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, tuitest.StripANSI(out), "text")
		})
	}
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(&bytes.Buffer{}))
}
