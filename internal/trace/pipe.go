package trace

import (
	"fern/internal/syntax"
)

// PipeChain is the logical form of a parse-time-rewritten pipe expression,
// recovered from its nested call structure.
type PipeChain struct {
	// Stages holds the stage calls oldest-first: for `x |> f() |> g()` the
	// stages are [f-stage, g-stage]. For a leading chain the untagged
	// left-most call is Stages[0].
	Stages []*syntax.Call

	// Head is the left-most expression of the chain: the piped-in value,
	// or the leading call (in which case it is also Stages[0]).
	Head syntax.Expr

	// Leading reports that the chain starts with a real call rather than
	// a bare value.
	Leading bool
}

// ReconstructPipe recovers the logical pipe chain from an outermost
// pipe-rewritten call. It repeatedly unwraps one level of the rewritten
// shape, peeling the piped-in operand, until the left-most expression is
// reached: an identifier (or any non-call) terminates the walk as a
// non-leading chain, while a call at the left end is a leading call and
// becomes the first stage. Returns nil when call is not pipe-rewritten.
func ReconstructPipe(call *syntax.Call) *PipeChain {
	if call == nil || call.Pipe != syntax.PipeStage {
		return nil
	}

	var stages []*syntax.Call
	cur := call
	var head syntax.Expr
	for {
		stages = append(stages, cur)
		if len(cur.Args) == 0 {
			head = nil
			break
		}
		operand := cur.Args[0]
		inner, ok := operand.(*syntax.Call)
		if ok && inner.Pipe == syntax.PipeStage {
			cur = inner
			continue
		}
		head = operand
		break
	}

	// stages were collected outermost-first; flip to evaluation order.
	for i, j := 0, len(stages)-1; i < j; i, j = i+1, j-1 {
		stages[i], stages[j] = stages[j], stages[i]
	}

	chain := &PipeChain{Stages: stages, Head: head}
	if leadCall, ok := head.(*syntax.Call); ok {
		chain.Leading = true
		chain.Stages = append([]*syntax.Call{leadCall}, chain.Stages...)
	}
	return chain
}

// pipeRun identifies a maximal run of consecutive sibling nodes that are
// stages of one pipe chain: each successive node's call must directly nest
// the previous node's call as its piped-in operand. The run covers the
// expanded prefix of the chain present in the trace; when capture happened
// mid-chain the run is shorter than the full stage list.
func pipeRun(tr *Tree, siblings []NodeID, start int) (end int, ok bool) {
	first, isCall := tr.Nodes[siblings[start]].Call.(*syntax.Call)
	if !isCall || first.Pipe != syntax.PipeStage {
		return start, false
	}
	end = start
	prev := first
	for i := start + 1; i < len(siblings); i++ {
		next, isCall := tr.Nodes[siblings[i]].Call.(*syntax.Call)
		if !isCall || next.Pipe != syntax.PipeStage {
			break
		}
		if len(next.Args) == 0 || next.Args[0] != syntax.Expr(prev) {
			break
		}
		end = i
		prev = next
	}
	return end, true
}
