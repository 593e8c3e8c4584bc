package doc

import (
	"errors"
	"fmt"
	"slices"
)

// ErrStaleTransaction is returned when a transaction was opened against a
// document version that is no longer current.
var ErrStaleTransaction = errors.New("transaction based on a stale document")

// Transaction records steps against a private working copy of the document.
// Steps apply immediately to the copy, so Doc always reflects the steps
// recorded so far and callers can re-locate content between steps. The
// first failing step poisons the transaction; nothing reaches the committed
// document unless the whole transaction succeeds.
type Transaction struct {
	base  int
	doc   *Node
	steps []Step
	err   error
}

// Doc returns the working document including all recorded steps.
func (tr *Transaction) Doc() *Node { return tr.doc }

// Steps returns the recorded steps.
func (tr *Transaction) Steps() []Step { return slices.Clone(tr.steps) }

// DocChanged reports whether any step was recorded.
func (tr *Transaction) DocChanged() bool { return len(tr.steps) > 0 }

// Err returns the first step failure.
func (tr *Transaction) Err() error { return tr.err }

// Step applies s to the working copy. After a failure further steps are
// ignored.
func (tr *Transaction) Step(s Step) *Transaction {
	if tr.err != nil {
		return tr
	}
	if err := s.Apply(tr.doc); err != nil {
		tr.err = fmt.Errorf("step %d (%s): %w", len(tr.steps), s, err)
		return tr
	}
	tr.steps = append(tr.steps, s)
	return tr
}

// ReplaceInline replaces [from, to) in the textblock at path.
func (tr *Transaction) ReplaceInline(path Path, from, to int, content ...*Node) *Transaction {
	return tr.Step(ReplaceInlineStep{Path: path, From: from, To: to, Content: content})
}

// DeleteInline deletes [from, to) in the textblock at path.
func (tr *Transaction) DeleteInline(path Path, from, to int) *Transaction {
	return tr.Step(ReplaceInlineStep{Path: path, From: from, To: to})
}

// AddMark adds m over [from, to) in the textblock at path.
func (tr *Transaction) AddMark(path Path, from, to int, m Mark) *Transaction {
	return tr.Step(AddMarkStep{Path: path, From: from, To: to, Mark: m})
}

// RemoveMark strips marks of typ over [from, to) in the textblock at path.
func (tr *Transaction) RemoveMark(path Path, from, to int, typ MarkType) *Transaction {
	return tr.Step(RemoveMarkStep{Path: path, From: from, To: to, Type: typ})
}

// InsertBlocks inserts blocks as children of parent starting at index.
func (tr *Transaction) InsertBlocks(parent Path, index int, blocks ...*Node) *Transaction {
	return tr.Step(ReplaceBlocksStep{Parent: parent, From: index, To: index, Blocks: blocks})
}

// ReplaceBlocks replaces children [from, to) of parent with blocks.
func (tr *Transaction) ReplaceBlocks(parent Path, from, to int, blocks ...*Node) *Transaction {
	return tr.Step(ReplaceBlocksStep{Parent: parent, From: from, To: to, Blocks: blocks})
}

// DeleteBlock removes the node at path.
func (tr *Transaction) DeleteBlock(path Path) *Transaction {
	if len(path) == 0 {
		tr.err = fmt.Errorf("%w: cannot delete the root", ErrInvalidPath)
		return tr
	}
	i := path.Index()
	return tr.Step(ReplaceBlocksStep{Parent: path.Parent(), From: i, To: i + 1})
}

// SetAttr sets an attribute on the node at path.
func (tr *Transaction) SetAttr(path Path, key string, value any) *Transaction {
	return tr.Step(SetAttrStep{Path: path, Key: key, Value: value})
}

// normalize merges and trims inline runs of every textblock in the working
// copy.
func (tr *Transaction) normalize() {
	tr.doc.Walk(func(_ Path, n *Node) bool {
		if n.IsTextblock() {
			n.Content = NormalizeInline(n.Content)
			return false
		}
		return true
	})
}
