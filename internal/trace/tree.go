package trace

import (
	"fern/internal/syntax"
)

// NodeID indexes a node inside a Tree's arena. The root is always node 0.
type NodeID int

// Node is one call in the reconstructed tree. Nodes live in the owning
// Tree's arena and reference each other by index, so recursion rewiring
// never creates a pointer cycle.
type Node struct {
	Call      syntax.Expr // nil for the root and synthesized nodes
	Label     string      // overrides the deparsed call when non-empty
	Pos       int         // trace position; 0 for root and synthesized nodes
	Env       EnvID
	HasSrcRef bool
	ErrorCall bool // deepest frame, always preserved by simplification
	Hidden    int  // collapsed placeholder: number of elided frames
	Parent    NodeID
	Children  []NodeID
}

// Tree is a rooted call tree isomorphic to a trace's parent relation.
// Child order is insertion order, i.e. order of first appearance in the
// trace.
type Tree struct {
	Nodes []Node

	// Linear marks a tree produced by branch simplification: a single
	// path with no branching, rendered as a flat numbered list instead of
	// tree art.
	Linear bool
}

// NewTree converts a trace into an explicit call tree. Invisible frames
// (capture machinery) produce no node; their children, if any, re-attach
// to the nearest visible ancestor. A parent index at or beyond its own
// position violates the capture contract and panics.
func NewTree(t *Trace) *Tree {
	tree := &Tree{Nodes: []Node{{Parent: -1}}}

	// trace position -> node that represents it (for invisible frames,
	// the node their children should attach to instead).
	attach := make(map[int]NodeID, t.Len())

	for i := 0; i < t.Len(); i++ {
		pos := i + 1
		f := t.Frame(pos)
		if f.Parent >= pos || f.Parent < 0 {
			panic(malformedTrace(pos, f.Parent))
		}

		parent := NodeID(0)
		if f.Parent > 0 {
			parent = attach[f.Parent]
		}
		if !f.Visible {
			attach[pos] = parent
			continue
		}

		id := NodeID(len(tree.Nodes))
		tree.Nodes = append(tree.Nodes, Node{
			Call:      f.Call,
			Pos:       pos,
			Env:       f.Env,
			HasSrcRef: f.HasSrcRef,
			Parent:    parent,
		})
		tree.Nodes[parent].Children = append(tree.Nodes[parent].Children, id)
		attach[pos] = id
	}

	if len(tree.Nodes) > 1 {
		tree.Nodes[len(tree.Nodes)-1].ErrorCall = true
	}
	return tree
}

// Root returns the root node ID.
func (tr *Tree) Root() NodeID { return 0 }

// Node returns the node for id.
func (tr *Tree) Node(id NodeID) *Node { return &tr.Nodes[id] }

// VisibleCount returns the number of non-root nodes.
func (tr *Tree) VisibleCount() int { return len(tr.Nodes) - 1 }

// errorNode returns the node marked as the error call, or 0 when the tree
// is empty.
func (tr *Tree) errorNode() NodeID {
	for id := len(tr.Nodes) - 1; id > 0; id-- {
		if tr.Nodes[id].ErrorCall {
			return NodeID(id)
		}
	}
	return 0
}

// firstFrameNode returns the node holding the oldest trace frame, or 0.
func (tr *Tree) firstFrameNode() NodeID {
	best := NodeID(0)
	bestPos := 0
	for id := 1; id < len(tr.Nodes); id++ {
		if p := tr.Nodes[id].Pos; p > 0 && (bestPos == 0 || p < bestPos) {
			best, bestPos = NodeID(id), p
		}
	}
	return best
}

// LabelOf returns the display text for a node: explicit label, deparsed
// call, or the unknown-call placeholder.
func (tr *Tree) LabelOf(id NodeID) string {
	n := &tr.Nodes[id]
	if n.Label != "" {
		return n.Label
	}
	if n.Call != nil {
		return n.Call.String()
	}
	return UnknownCall
}
