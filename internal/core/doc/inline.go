package doc

import "strings"

// Inline content helpers. Offsets are rune offsets into the concatenated
// text of a textblock's runs. All helpers return fresh slices and never
// modify their input runs.

// SliceInline returns copies of the runs covering [from, to), splitting runs
// at the boundaries.
func SliceInline(content []*Node, from, to int) []*Node {
	if from >= to {
		return nil
	}
	var out []*Node
	off := 0
	for _, run := range content {
		r := []rune(run.Text)
		start, end := off, off+len(r)
		off = end
		if end <= from || start >= to {
			continue
		}
		lo := max(from, start) - start
		hi := min(to, end) - start
		if lo >= hi {
			continue
		}
		part := run.Clone()
		part.Text = string(r[lo:hi])
		if lo > 0 {
			// the leading part of a split run keeps the identity
			part.ID = nextID()
		}
		out = append(out, part)
	}
	return out
}

// ReplaceInline returns content with [from, to) replaced by insert.
func ReplaceInline(content []*Node, from, to int, insert []*Node) []*Node {
	total := inlineLen(content)
	out := SliceInline(content, 0, from)
	for _, n := range insert {
		out = append(out, n.Clone())
	}
	return append(out, SliceInline(content, to, total)...)
}

// MapMarks returns content with fn applied to the mark set of every run in
// [from, to).
func MapMarks(content []*Node, from, to int, fn func([]Mark) []Mark) []*Node {
	total := inlineLen(content)
	out := SliceInline(content, 0, from)
	for _, run := range SliceInline(content, from, to) {
		run.Marks = fn(run.Marks)
		out = append(out, run)
	}
	return append(out, SliceInline(content, to, total)...)
}

// NormalizeInline drops empty runs and merges adjacent runs with equal marks.
func NormalizeInline(content []*Node) []*Node {
	out := make([]*Node, 0, len(content))
	for _, run := range content {
		if run.Text == "" {
			continue
		}
		if n := len(out); n > 0 && SameMarks(out[n-1].Marks, run.Marks) {
			merged := out[n-1].Clone()
			merged.Text += run.Text
			out[n-1] = merged
			continue
		}
		out = append(out, run)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// InlineText concatenates the text of the runs.
func InlineText(content []*Node) string {
	var b strings.Builder
	for _, run := range content {
		b.WriteString(run.Text)
	}
	return b.String()
}

func inlineLen(content []*Node) int {
	total := 0
	for _, run := range content {
		total += runeLen(run.Text)
	}
	return total
}
