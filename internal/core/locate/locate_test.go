package locate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/redline/internal/core/doc"
)

func TestLocate(t *testing.T) {
	c1 := doc.CompanionMark("c1")
	bold := doc.NewMark(doc.MarkStrong, nil)

	root := doc.Doc(
		doc.Paragraph(doc.Text("Hello "), doc.Text("the", c1), doc.Text("re", c1, bold), doc.Text(", friend.")),
		doc.Paragraph(doc.Text("Second", c1), doc.Text(" line")),
	)

	r, ok := Locate(root, Companion("c1"))
	require.True(t, ok)

	assert.Equal(t, doc.Pos{Path: doc.Path{0}, Offset: 6}, r.From)
	assert.Equal(t, doc.Pos{Path: doc.Path{1}, Offset: 6}, r.To)
	assert.Equal(t, "there\nSecond", r.Content)

	require.Len(t, r.Segments, 2, "adjacent runs in one block merge into a segment")
	assert.Equal(t, 6, r.Segments[0].From)
	assert.Equal(t, 11, r.Segments[0].To)
	assert.Len(t, r.Segments[0].Leaves, 2)
	assert.Equal(t, root.Child(0).ID, r.Segments[0].BlockID)
}

func TestLocate_NotFound(t *testing.T) {
	root := doc.Doc(doc.Paragraph(doc.Text("x", doc.CompanionMark("other"))))

	_, ok := Locate(root, Companion("c1"))
	assert.False(t, ok)
	assert.False(t, Any(root, InlineDiff("c1")))
}

func TestLocate_SeparateRunsInOneBlock(t *testing.T) {
	m := doc.InlineDiffMark("d1", "orig")
	root := doc.Doc(doc.Paragraph(doc.Text("a", m), doc.Text(" b "), doc.Text("c", m)))

	r, ok := Locate(root, InlineDiff("d1"))
	require.True(t, ok)
	assert.Len(t, r.Segments, 2)
	assert.Equal(t, 0, r.From.Offset)
	assert.Equal(t, 5, r.To.Offset)
	assert.Equal(t, "ac", r.Content)
}

func TestLocateNode(t *testing.T) {
	container := doc.NewNode(doc.TypeDiff, doc.Attrs{doc.AttrDiffID: "d1"}, doc.P("proposal"))
	root := doc.Doc(doc.P("before"), doc.Blockquote(doc.P("q"), container))

	n, ok := LocateNode(root, Container("d1"))
	require.True(t, ok)
	assert.Equal(t, doc.Path{1, 1}, n.Path)
	assert.Equal(t, container.ID, n.Node.ID)

	_, ok = LocateNode(root, Container("missing"))
	assert.False(t, ok)
	assert.True(t, Any(root, Container("d1")))
}

func TestLocate_ReflectsEdits(t *testing.T) {
	ed, err := doc.NewEditor(doc.Doc(doc.Paragraph(doc.Text("Hello "), doc.Text("world", doc.CompanionMark("c1")))))
	require.NoError(t, err)

	r, ok := Locate(ed.Doc(), Companion("c1"))
	require.True(t, ok)
	assert.Equal(t, 6, r.From.Offset)

	require.NoError(t, ed.Update(func(tr *doc.Transaction) error {
		tr.ReplaceInline(doc.Path{0}, 0, 0, doc.Text("Oh, "))
		return nil
	}))

	r, ok = Locate(ed.Doc(), Companion("c1"))
	require.True(t, ok)
	assert.Equal(t, 10, r.From.Offset, "range is re-derived after an unrelated edit")
}
