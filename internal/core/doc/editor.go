package doc

import (
	"fmt"
	"sync"
)

// Editor is the host of one document. It owns the committed tree, the
// current selection, and serializes every mutation.
//
// The committed tree is never mutated in place: transactions work on a
// copy that is swapped in on success, so a tree returned by Doc stays valid
// as a read-only snapshot.
type Editor struct {
	mu        sync.Mutex
	doc       *Node
	version   int
	selection Range
	listeners []func(Change)
}

// Change describes a committed transaction.
type Change struct {
	Version int
	Steps   []Step
	Doc     *Node
}

// NewEditor validates root and wraps it in an editor.
func NewEditor(root *Node) (*Editor, error) {
	root = root.Clone()
	root.AssignIDs()
	if err := Validate(root); err != nil {
		return nil, fmt.Errorf("new editor: %w", err)
	}
	return &Editor{doc: root}, nil
}

// Doc returns the committed document.
func (e *Editor) Doc() *Node {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc
}

// Version returns the number of committed transactions.
func (e *Editor) Version() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.version
}

// Selection returns the current selection.
func (e *Editor) Selection() Range {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selection
}

// Select sets the current selection. Both ends must address positions
// inside textblocks of the committed document.
func (e *Editor) Select(r Range) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, p := range []Pos{r.From, r.To} {
		tb, err := e.doc.Textblock(p.Path)
		if err != nil {
			return fmt.Errorf("select: %w", err)
		}
		if p.Offset < 0 || p.Offset > tb.InlineLen() {
			return fmt.Errorf("select: %w: offset %d outside textblock %s", ErrInvalidPath, p.Offset, p.Path)
		}
	}
	if r.To.Compare(r.From) < 0 {
		r.From, r.To = r.To, r.From
	}
	e.selection = r
	return nil
}

// OnChange registers a listener called after every committed transaction.
// Listeners run with the editor unlocked.
func (e *Editor) OnChange(fn func(Change)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, fn)
}

func (e *Editor) begin() *Transaction {
	return &Transaction{base: e.version, doc: e.doc.Clone()}
}

// Update runs fn inside a transaction and commits it. The editor stays
// locked for the whole call, so concurrent updates are serialized and a
// transaction can never be stale.
func (e *Editor) Update(fn func(tr *Transaction) error) error {
	e.mu.Lock()
	tr := e.begin()
	if err := fn(tr); err != nil {
		e.mu.Unlock()
		return err
	}
	change, err := e.apply(tr)
	listeners := e.listeners
	e.mu.Unlock()

	if err != nil {
		return err
	}
	if change != nil {
		for _, l := range listeners {
			l(*change)
		}
	}
	return nil
}

// apply commits tr with e.mu held. It fails without touching the document
// when a step failed, the transaction is stale, or the result violates the
// schema.
func (e *Editor) apply(tr *Transaction) (*Change, error) {
	if tr.err != nil {
		return nil, fmt.Errorf("apply transaction: %w", tr.err)
	}
	if tr.base != e.version {
		return nil, ErrStaleTransaction
	}
	if !tr.DocChanged() {
		return nil, nil
	}

	tr.normalize()
	if err := Validate(tr.doc); err != nil {
		return nil, fmt.Errorf("apply transaction: %w", err)
	}

	e.doc = tr.doc
	e.version++
	e.selection = e.clampSelection(e.selection)

	return &Change{Version: e.version, Steps: tr.Steps(), Doc: e.doc}, nil
}

// clampSelection collapses a selection that no longer fits the document to
// the start of the first textblock.
func (e *Editor) clampSelection(r Range) Range {
	for _, p := range []Pos{r.From, r.To} {
		tb, err := e.doc.Textblock(p.Path)
		if err != nil || p.Offset > tb.InlineLen() {
			var first Path
			e.doc.Walk(func(path Path, n *Node) bool {
				if first != nil {
					return false
				}
				if n.IsTextblock() {
					first = path
					return false
				}
				return true
			})
			return Range{From: Pos{Path: first}, To: Pos{Path: first}}
		}
	}
	return r
}
