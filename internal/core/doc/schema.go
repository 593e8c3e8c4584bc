package doc

import (
	"errors"
	"fmt"
	"slices"
)

// ErrSchema is wrapped by every schema violation.
var ErrSchema = errors.New("schema violation")

// SchemaError describes where a tree stops matching the schema.
type SchemaError struct {
	Path   Path
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s at %s: %s", ErrSchema, e.Path, e.Reason)
}

func (e *SchemaError) Unwrap() error { return ErrSchema }

type markPolicy int

const (
	marksNone markPolicy = iota
	marksDiffOnly
	marksAll
)

type contentRule struct {
	allowed []NodeType
	min     int
	marks   markPolicy
}

var blockGroup = []NodeType{
	TypeParagraph, TypeHeading, TypeCodeBlock, TypeBlockquote,
	TypeBulletList, TypeOrderedList, TypeRule, TypeDiff,
}

var rules = map[NodeType]contentRule{
	TypeDoc:         {allowed: blockGroup, min: 1},
	TypeParagraph:   {allowed: []NodeType{TypeText}, marks: marksAll},
	TypeHeading:     {allowed: []NodeType{TypeText}, marks: marksAll},
	TypeCodeBlock:   {allowed: []NodeType{TypeText}, marks: marksDiffOnly},
	TypeBlockquote:  {allowed: blockGroup, min: 1},
	TypeBulletList:  {allowed: []NodeType{TypeListItem}, min: 1},
	TypeOrderedList: {allowed: []NodeType{TypeListItem}, min: 1},
	TypeListItem:    {allowed: blockGroup, min: 1},
	TypeRule:        {},
	TypeDiff:        {allowed: blockGroup, min: 1},
}

var markAttrs = map[MarkType][]string{
	MarkStrong:     nil,
	MarkEm:         nil,
	MarkCode:       nil,
	MarkLink:       {AttrHref},
	MarkInlineDiff: {AttrDiffID},
	MarkCompanion:  {AttrCompanionID},
}

// IsBlockType reports whether typ belongs to the block group.
func IsBlockType(typ NodeType) bool {
	return slices.Contains(blockGroup, typ)
}

// Validate checks root against the schema. The root must be a doc node.
func Validate(root *Node) error {
	if root == nil || root.Type != TypeDoc {
		return &SchemaError{Reason: "root must be a doc node"}
	}
	return validate(nil, root, false)
}

func validate(path Path, n *Node, insideDiff bool) error {
	if n.IsText() {
		return &SchemaError{Path: path, Reason: "text outside a textblock"}
	}

	rule, ok := rules[n.Type]
	if !ok {
		return &SchemaError{Path: path, Reason: fmt.Sprintf("unknown node type %q", n.Type)}
	}

	if len(n.Content) < rule.min {
		return &SchemaError{Path: path, Reason: fmt.Sprintf("%s requires at least %d child", n.Type, rule.min)}
	}

	switch n.Type {
	case TypeHeading:
		if lvl := n.Attrs.Int(AttrLevel); lvl < 1 || lvl > 6 {
			return &SchemaError{Path: path, Reason: fmt.Sprintf("heading level %d out of range", lvl)}
		}
	case TypeDiff:
		if insideDiff {
			return &SchemaError{Path: path, Reason: "diff containers cannot nest"}
		}
		if n.Attrs.Str(AttrDiffID) == "" {
			return &SchemaError{Path: path, Reason: "diff container without diffId"}
		}
		insideDiff = true
	}

	for i, c := range n.Content {
		cp := path.Child(i)
		if !slices.Contains(rule.allowed, c.Type) {
			return &SchemaError{Path: cp, Reason: fmt.Sprintf("%s not allowed in %s", c.Type, n.Type)}
		}
		if c.IsText() {
			if err := validateText(cp, c, rule.marks); err != nil {
				return err
			}
			continue
		}
		if err := validate(cp, c, insideDiff); err != nil {
			return err
		}
	}
	return nil
}

func validateText(path Path, n *Node, policy markPolicy) error {
	if n.Text == "" {
		return &SchemaError{Path: path, Reason: "empty text run"}
	}
	if len(n.Marks) > 0 && policy == marksNone {
		return &SchemaError{Path: path, Reason: "marks not allowed here"}
	}
	seen := make(map[MarkType]bool, len(n.Marks))
	for _, m := range n.Marks {
		required, ok := markAttrs[m.Type]
		if !ok {
			return &SchemaError{Path: path, Reason: fmt.Sprintf("unknown mark %q", m.Type)}
		}
		if seen[m.Type] {
			return &SchemaError{Path: path, Reason: fmt.Sprintf("duplicate mark %q", m.Type)}
		}
		if policy == marksDiffOnly && m.Type != MarkInlineDiff && m.Type != MarkCompanion {
			return &SchemaError{Path: path, Reason: fmt.Sprintf("mark %q not allowed in code", m.Type)}
		}
		seen[m.Type] = true
		for _, attr := range required {
			if m.Attrs.Str(attr) == "" {
				return &SchemaError{Path: path, Reason: fmt.Sprintf("mark %q missing %s", m.Type, attr)}
			}
		}
	}
	return nil
}
