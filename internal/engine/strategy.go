package engine

import (
	"github.com/colonyops/redline/internal/core/diffsession"
	"github.com/colonyops/redline/internal/core/doc"
	"github.com/colonyops/redline/internal/core/locate"
)

// resolution describes what an accept did.
type resolution struct {
	// Fallback is set when the original was kept because there was nothing
	// to apply.
	Fallback    bool
	Replacement string
}

// strategy encodes a proposal in the tree. Every method works on the
// transaction's working copy and re-locates its content by tag first;
// nothing positional survives between calls.
type strategy interface {
	kind() diffsession.Strategy
	submit(tr *doc.Transaction, s *diffsession.Session, sel doc.Range) error
	update(tr *doc.Transaction, s *diffsession.Session) error
	finish(tr *doc.Transaction, s *diffsession.Session) error
	accept(tr *doc.Transaction, diffID string) (resolution, error)
	reject(tr *doc.Transaction, diffID string) error
}

// detectStrategy reads the strategy of a diff from the tree.
func detectStrategy(root *doc.Node, diffID string) (diffsession.Strategy, bool) {
	if _, ok := locate.LocateNode(root, locate.Container(diffID)); ok {
		return diffsession.StrategyBlock, true
	}
	if locate.Any(root, locate.InlineDiff(diffID)) {
		return diffsession.StrategyInline, true
	}
	return "", false
}

// plainMarks returns marks without the diff annotations.
func plainMarks(marks []doc.Mark) []doc.Mark {
	out := doc.RemoveMark(marks, doc.MarkInlineDiff)
	return doc.RemoveMark(out, doc.MarkCompanion)
}
