// Package trace implements backtrace capture and simplification for the
// Fern runtime.
//
// A Trace is an immutable snapshot of the evaluation stack taken at the
// moment a condition is signalled. The raw stack is a linear sequence of
// heterogeneous frames (user calls, evaluator indirections, pipe-rewriting
// scaffolding, handler invocations); capture reconstructs the logical
// parent of every frame, the tree builder turns the flat table into a call
// tree, and the simplification strategies (none, collapse, branch) reduce
// that tree for display.
//
// Pipeline:
//
//	signal site -> Capture -> Trace (stored on the condition)
//	print site  -> NewTree -> Simplify -> tracefmt rendering
package trace
