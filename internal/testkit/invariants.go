// Package testkit holds structural invariant checks shared by tests. The
// checks return errors rather than calling t.Fatal so callers decide how
// to report.
package testkit

import (
	"fmt"

	"fortio.org/safecast"

	"fern/internal/source"
	"fern/internal/syntax"
	"fern/internal/trace"
)

// CheckTraceInvariants verifies the structural rules every captured trace
// must satisfy:
// 1) parent indices point at the root or an earlier frame
// 2) visibility is suffix-closed: once frames go invisible, all newer
// frames are invisible too
func CheckTraceInvariants(t *trace.Trace) error {
	if t == nil {
		return fmt.Errorf("nil trace")
	}
	seenHidden := false
	for pos := 1; pos <= t.Len(); pos++ {
		f := t.Frame(pos)
		if f.Parent < 0 || f.Parent >= pos {
			return fmt.Errorf("frame %d: parent %d out of range [0, %d)", pos, f.Parent, pos)
		}
		if seenHidden && f.Visible {
			return fmt.Errorf("frame %d: visible frame after invisible ones", pos)
		}
		if !f.Visible {
			seenHidden = true
		}
	}
	return nil
}

// CheckTreeInvariants verifies a built (or simplified) trace tree:
// 1) node 0 is the root with no parent
// 2) Parent and Children back-references agree
// 3) every node is reachable from the root exactly once
// 4) at most one node carries the error-call mark
func CheckTreeInvariants(tr *trace.Tree) error {
	if tr == nil {
		return fmt.Errorf("nil tree")
	}
	if len(tr.Nodes) == 0 {
		return fmt.Errorf("tree has no root")
	}
	if tr.Nodes[0].Parent != -1 {
		return fmt.Errorf("root has parent %d", tr.Nodes[0].Parent)
	}

	errorCalls := 0
	for id := 1; id < len(tr.Nodes); id++ {
		n := tr.Nodes[id]
		if n.Parent < 0 || int(n.Parent) >= len(tr.Nodes) {
			return fmt.Errorf("node %d: parent %d out of range", id, n.Parent)
		}
		if int(n.Parent) >= id {
			return fmt.Errorf("node %d: parent %d not earlier in arena", id, n.Parent)
		}
		found := false
		for _, c := range tr.Nodes[n.Parent].Children {
			if c == trace.NodeID(id) {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("node %d: missing from parent %d children", id, n.Parent)
		}
		if n.ErrorCall {
			errorCalls++
		}
	}
	if errorCalls > 1 {
		return fmt.Errorf("%d nodes carry the error-call mark", errorCalls)
	}

	reached := make(map[trace.NodeID]bool, len(tr.Nodes))
	var walk func(id trace.NodeID) error
	walk = func(id trace.NodeID) error {
		if reached[id] {
			return fmt.Errorf("node %d reached twice", id)
		}
		reached[id] = true
		for _, c := range tr.Nodes[id].Children {
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(tr.Root()); err != nil {
		return err
	}
	if len(reached) != len(tr.Nodes) {
		return fmt.Errorf("reached %d of %d nodes from root", len(reached), len(tr.Nodes))
	}
	return nil
}

// CheckSpanInvariants runs span sanity checks on a parsed program:
// 1) every statement span is non-empty, within content bounds, and tagged
// with the parsed file's ID
// 2) the program span covers the union of statement spans
func CheckSpanInvariants(prog *syntax.Program, sf *source.File) error {
	if prog == nil || sf == nil {
		return fmt.Errorf("nil program or file")
	}
	lenContent, err := safecast.Conv[uint32](len(sf.Content))
	if err != nil {
		return fmt.Errorf("len content overflow: %w", err)
	}

	var union source.Span
	var haveStmt bool
	for i, stmt := range prog.Stmts {
		sp := stmt.Span()
		if sp.End <= sp.Start {
			return fmt.Errorf("stmt %d: empty span %v", i, sp)
		}
		if sp.File != sf.ID {
			return fmt.Errorf("stmt %d: span file mismatch: got=%d want=%d", i, sp.File, sf.ID)
		}
		if sp.End > lenContent {
			return fmt.Errorf("stmt %d: span end beyond content: %d > %d", i, sp.End, lenContent)
		}
		if !haveStmt {
			union = sp
			haveStmt = true
		} else {
			union = union.Cover(sp)
		}
	}

	if haveStmt {
		ps := prog.Span()
		if union.Start < ps.Start || union.End > ps.End {
			return fmt.Errorf("program span %v does not cover union of statements %v", ps, union)
		}
	}
	return nil
}
