package doc

import "maps"

// MarkType names a mark kind in the schema.
type MarkType string

// Mark types understood by the schema.
const (
	MarkStrong     MarkType = "strong"
	MarkEm         MarkType = "em"
	MarkCode       MarkType = "code"
	MarkLink       MarkType = "link"
	MarkInlineDiff MarkType = "ai_inline_diff"
	MarkCompanion  MarkType = "ai_diff_companion"
)

// Mark is a non-positional annotation attached to a text run.
type Mark struct {
	Type  MarkType `json:"type"`
	Attrs Attrs    `json:"attrs,omitempty"`
}

// NewMark creates a mark.
func NewMark(typ MarkType, attrs Attrs) Mark {
	return Mark{Type: typ, Attrs: attrs}
}

// InlineDiffMark tags a text run as the proposal of an inline diff.
func InlineDiffMark(diffID, originalText string) Mark {
	return Mark{Type: MarkInlineDiff, Attrs: Attrs{AttrDiffID: diffID, AttrOriginalText: originalText}}
}

// CompanionMark tags original text that is pending replacement by a block diff.
func CompanionMark(companionID string) Mark {
	return Mark{Type: MarkCompanion, Attrs: Attrs{AttrCompanionID: companionID}}
}

// Eq reports whether two marks have the same type and attributes.
func (m Mark) Eq(other Mark) bool {
	return m.Type == other.Type && maps.Equal(m.Attrs, other.Attrs)
}

// MarkOf returns the first mark of the given type on n.
func (n *Node) MarkOf(typ MarkType) (Mark, bool) {
	for _, m := range n.Marks {
		if m.Type == typ {
			return m, true
		}
	}
	return Mark{}, false
}

// HasMarkAttr reports whether n carries a mark of typ whose attr equals value.
func (n *Node) HasMarkAttr(typ MarkType, attr, value string) bool {
	for _, m := range n.Marks {
		if m.Type == typ && m.Attrs.Str(attr) == value {
			return true
		}
	}
	return false
}

// AddMark returns marks with m added. An existing mark of the same type is
// replaced.
func AddMark(marks []Mark, m Mark) []Mark {
	out := make([]Mark, 0, len(marks)+1)
	for _, existing := range marks {
		if existing.Type != m.Type {
			out = append(out, existing)
		}
	}
	return append(out, m)
}

// RemoveMark returns marks without any mark of typ.
func RemoveMark(marks []Mark, typ MarkType) []Mark {
	out := make([]Mark, 0, len(marks))
	for _, existing := range marks {
		if existing.Type != typ {
			out = append(out, existing)
		}
	}
	return out
}

// SameMarks reports whether two mark sets are equal, ignoring order.
func SameMarks(a, b []Mark) bool {
	if len(a) != len(b) {
		return false
	}
	for _, m := range a {
		found := false
		for _, o := range b {
			if m.Eq(o) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func cloneMarks(marks []Mark) []Mark {
	out := make([]Mark, len(marks))
	for i, m := range marks {
		out[i] = Mark{Type: m.Type, Attrs: m.Attrs.clone()}
	}
	return out
}
