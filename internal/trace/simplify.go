package trace

import (
	"fmt"

	"fern/internal/syntax"
)

// Mode selects a tree-simplification strategy.
type Mode uint8

const (
	// ModeNone renders the tree as captured.
	ModeNone Mode = iota
	// ModeCollapse folds evaluator-indirection and pipe scaffolding frames
	// into single placeholder nodes.
	ModeCollapse
	// ModeBranch reduces the tree to the single path that was executing
	// when the trace was captured.
	ModeBranch
)

func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeCollapse:
		return "collapse"
	case ModeBranch:
		return "branch"
	}
	return "unknown"
}

// ParseMode converts a string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "none":
		return ModeNone, nil
	case "collapse":
		return ModeCollapse, nil
	case "branch":
		return ModeBranch, nil
	default:
		return ModeNone, fmt.Errorf("invalid simplify mode: %q (expected: none|collapse|branch)", s)
	}
}

// indirectionCallees are the evaluator primitives whose frames exist purely
// to perform an "evaluate this expression over there" indirection.
var indirectionCallees = map[string]bool{
	"eval":  true,
	"evalq": true,
}

// Simplify applies the selected strategy and returns the tree to render.
// maxFrames truncates the branch path; combining it with any other mode is
// an InvalidArgumentError. The input tree is never mutated.
func Simplify(tr *Tree, mode Mode, maxFrames int) (*Tree, error) {
	switch mode {
	case ModeNone:
		if maxFrames != 0 {
			return nil, &InvalidArgumentError{Option: "max frames", Mode: mode}
		}
		return tr, nil
	case ModeCollapse:
		if maxFrames != 0 {
			return nil, &InvalidArgumentError{Option: "max frames", Mode: mode}
		}
		return collapse(tr), nil
	case ModeBranch:
		return branch(tr, maxFrames), nil
	default:
		return nil, fmt.Errorf("unknown simplify mode %d", mode)
	}
}

// collapseGroup is a set of nodes that render as one placeholder.
type collapseGroup struct {
	members []NodeID
	label   string
	newID   NodeID // assigned during rebuild
	built   bool
}

// rewrites accumulates the collapse plan: which nodes fold into which
// group, and which surviving nodes re-parent under a group's placeholder
// (the visible tail of a pipe chain).
type rewrites struct {
	grouped map[NodeID]*collapseGroup
	adopted map[NodeID]*collapseGroup
}

// collapse folds synthetic frame groups into placeholder nodes. The very
// first frame and the error frame are anchors and never fold, even when
// they would otherwise qualify.
func collapse(tr *Tree) *Tree {
	rw := &rewrites{
		grouped: make(map[NodeID]*collapseGroup),
		adopted: make(map[NodeID]*collapseGroup),
	}
	first := tr.firstFrameNode()
	errNode := tr.errorNode()

	anchored := func(id NodeID) bool {
		return id == first || id == errNode
	}

	// Evaluator-indirection chains: consecutive single-child frames whose
	// calls match a known indirection shape; the last frame's only child is
	// the real callee and stays visible under the placeholder.
	for id := NodeID(1); int(id) < len(tr.Nodes); id++ {
		if rw.grouped[id] != nil || !isIndirection(tr, id) {
			continue
		}
		if p := tr.Nodes[id].Parent; p > 0 && isIndirection(tr, p) && len(tr.Nodes[p].Children) == 1 {
			continue // interior of a chain handled from its head
		}
		chain := []NodeID{id}
		for cur := id; len(tr.Nodes[cur].Children) == 1; {
			child := tr.Nodes[cur].Children[0]
			if !isIndirection(tr, child) {
				break
			}
			chain = append(chain, child)
			cur = child
		}
		name := syntax.CalleeName(tr.Nodes[chain[0]].Call)
		rw.addSegments(chain, anchored, func([]NodeID) string {
			return fmt.Sprintf("[ %s(...) ]", name)
		})
	}

	// Pipe chains: runs of consecutive sibling stage frames. The deepest
	// stage present stays visible (it is either the final callee or the
	// stage that was still executing at capture time); the expanded prefix
	// folds and the visible stage re-parents under the placeholder.
	for parent := NodeID(0); int(parent) < len(tr.Nodes); parent++ {
		siblings := tr.Nodes[parent].Children
		for i := 0; i < len(siblings); {
			end, ok := pipeRun(tr, siblings, i)
			if !ok || end == i {
				i++
				continue
			}
			prefix := siblings[i:end] // all stages but the deepest present
			groups := rw.addSegments(prefix, anchored, func(seg []NodeID) string {
				return fmt.Sprintf("[ %s ]", tr.LabelOf(seg[len(seg)-1]))
			})
			if len(groups) > 0 {
				rw.adopted[siblings[end]] = groups[len(groups)-1]
			}
			i = end + 1
		}
	}

	if len(rw.grouped) == 0 {
		return tr
	}
	return rebuild(tr, rw)
}

func isIndirection(tr *Tree, id NodeID) bool {
	call := tr.Nodes[id].Call
	if call == nil {
		return false
	}
	return indirectionCallees[syntax.CalleeName(call)]
}

// addSegments splits candidate members at anchor nodes and registers each
// remaining contiguous segment as one collapse group. It returns the
// groups created, in member order.
func (rw *rewrites) addSegments(members []NodeID, anchored func(NodeID) bool, label func([]NodeID) string) []*collapseGroup {
	var out []*collapseGroup
	var seg []NodeID
	flush := func() {
		if len(seg) == 0 {
			return
		}
		g := &collapseGroup{members: seg, label: label(seg)}
		for _, m := range seg {
			rw.grouped[m] = g
		}
		out = append(out, g)
		seg = nil
	}
	for _, m := range members {
		if anchored(m) || rw.grouped[m] != nil {
			flush()
			continue
		}
		seg = append(seg, m)
	}
	flush()
	return out
}

// rebuild copies the tree, replacing each group with a single placeholder
// node and rechaining the children of every member to it.
func rebuild(tr *Tree, rw *rewrites) *Tree {
	out := &Tree{Nodes: []Node{{Parent: -1}}}

	var visit func(oldID, newParent NodeID)
	visit = func(oldID, newParent NodeID) {
		n := tr.Nodes[oldID]
		if g := rw.grouped[oldID]; g != nil {
			if !g.built {
				id := NodeID(len(out.Nodes))
				out.Nodes = append(out.Nodes, Node{
					Label:  g.label,
					Hidden: len(g.members),
					Parent: newParent,
				})
				out.Nodes[newParent].Children = append(out.Nodes[newParent].Children, id)
				g.newID = id
				g.built = true
			}
			for _, c := range n.Children {
				visit(c, g.newID)
			}
			return
		}

		if g := rw.adopted[oldID]; g != nil && g.built {
			newParent = g.newID
		}
		id := NodeID(len(out.Nodes))
		copied := n
		copied.Parent = newParent
		copied.Children = nil
		out.Nodes = append(out.Nodes, copied)
		out.Nodes[newParent].Children = append(out.Nodes[newParent].Children, id)
		for _, c := range n.Children {
			visit(c, id)
		}
	}

	for _, c := range tr.Nodes[0].Children {
		visit(c, 0)
	}
	return out
}

// branch reduces the tree to the path from the root to the deepest frame,
// always following the branch that was actually executing (the error call
// and its ancestors). When maxFrames > 0 and the path is longer, the
// maxFrames-1 frames nearest the error are kept behind a single truncation
// marker, so elision is always visible.
func branch(tr *Tree, maxFrames int) *Tree {
	var path []NodeID
	for id := tr.errorNode(); id > 0; id = tr.Nodes[id].Parent {
		path = append(path, id)
	}
	// path was collected deepest-first; flip to root-first.
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}

	truncated := 0
	if maxFrames > 0 && len(path) > maxFrames {
		truncated = len(path) - (maxFrames - 1)
		path = path[truncated:]
	}

	out := &Tree{Nodes: []Node{{Parent: -1}}, Linear: true}
	parent := NodeID(0)
	if truncated > 0 {
		id := NodeID(len(out.Nodes))
		out.Nodes = append(out.Nodes, Node{
			Label:  fmt.Sprintf("[ ... %d frames ... ]", truncated),
			Hidden: truncated,
			Parent: parent,
		})
		out.Nodes[parent].Children = append(out.Nodes[parent].Children, id)
		parent = id
	}
	for _, oldID := range path {
		n := tr.Nodes[oldID]
		id := NodeID(len(out.Nodes))
		copied := n
		copied.Parent = parent
		copied.Children = nil
		out.Nodes = append(out.Nodes, copied)
		out.Nodes[parent].Children = append(out.Nodes[parent].Children, id)
		parent = id
	}
	return out
}
