package trace

import (
	"fmt"
	"slices"
	"strings"

	"fern/internal/syntax"
)

// EnvID is an opaque identity token for an evaluation environment. It is
// only ever compared for equality; the engine never looks inside an
// environment.
type EnvID uint64

// NoEnv is the zero EnvID, used where no environment applies.
const NoEnv EnvID = 0

// RawFrame describes one live evaluation context as reported by the frame
// source. Positions are 1-based and dense, oldest to newest. CallerPos may
// be non-monotonic: lazily evaluated code runs in a context other than its
// textual nesting suggests.
type RawFrame struct {
	Call      syntax.Expr // nil for the bottom-most frame
	Env       EnvID
	Pos       int
	CallerPos int // 0 = invoked from outside any frame
	HasSrcRef bool
}

// FrameSource enumerates the live evaluation stack. The host runtime (or a
// test fixture) implements it.
type FrameSource interface {
	// ListFrames returns the current stack ordered oldest to newest with
	// dense 1-based positions.
	ListFrames() []RawFrame
}

// CaptureOpts tunes what Capture keeps from the raw stack.
type CaptureOpts struct {
	// SkipUntil names the environment of the capture helper itself; that
	// frame and everything newer is kept but marked invisible so the
	// capture call does not show up in rendered output.
	SkipUntil EnvID

	// Top is an embedding boundary: the newest frame running in this
	// environment and every older frame are excluded entirely. Hosts that
	// wrap the runtime (CLI drivers, test harnesses) set it so their own
	// frames never appear in user backtraces.
	Top EnvID
}

// Frame is one row of a captured trace. Position i in a Trace holds the
// frame at 1-based position i+1; Parent points at another position, or 0
// for the synthetic root.
type Frame struct {
	Call      syntax.Expr
	Parent    int
	Env       EnvID
	Visible   bool
	HasSrcRef bool
}

// Trace is an immutable snapshot of the evaluation stack. The zero value
// is a valid empty trace (root only).
type Trace struct {
	frames []Frame
}

// Capture snapshots the current stack of src. It never fails: outside any
// evaluation context the result is an empty trace.
//
// Parent assignment: each kept frame's parent is the trace row of its
// recorded caller. When the direct caller was excluded, or never produced
// a row (lazy evaluation from a foreign context), caller links are walked
// transitively to the nearest kept ancestor; frames with no kept ancestor
// attach to the root.
func Capture(src FrameSource, opts CaptureOpts) *Trace {
	raw := src.ListFrames()

	// Embedding boundary: drop the newest frame at Top and everything older.
	start := 0
	if opts.Top != NoEnv {
		for i := len(raw) - 1; i >= 0; i-- {
			if raw[i].Env == opts.Top {
				start = i + 1
				break
			}
		}
	}

	// Capture machinery: the oldest frame at SkipUntil and everything newer
	// stays in the trace but never prints.
	invisibleFrom := len(raw) + 1
	if opts.SkipUntil != NoEnv {
		for i := start; i < len(raw); i++ {
			if raw[i].Env == opts.SkipUntil {
				invisibleFrom = raw[i].Pos
				break
			}
		}
	}

	kept := make(map[int]int, len(raw)-start) // raw position -> trace position
	frames := make([]Frame, 0, len(raw)-start)
	for _, rf := range raw[start:] {
		parent := 0
		for caller := rf.CallerPos; caller > 0 && caller <= len(raw); {
			if idx, ok := kept[caller]; ok {
				parent = idx
				break
			}
			caller = raw[caller-1].CallerPos
		}
		frames = append(frames, Frame{
			Call:      rf.Call,
			Parent:    parent,
			Env:       rf.Env,
			Visible:   rf.Pos < invisibleFrom,
			HasSrcRef: rf.HasSrcRef,
		})
		kept[rf.Pos] = len(frames)
	}
	return &Trace{frames: frames}
}

// FromFrames builds a trace directly from rows. Intended for tests and for
// Subset; Parent indices must already satisfy the parent-before-child
// invariant.
func FromFrames(frames []Frame) *Trace {
	return &Trace{frames: frames}
}

// Len returns the number of non-root frames.
func (t *Trace) Len() int {
	return len(t.frames)
}

// Frame returns the frame at 1-based position pos.
func (t *Trace) Frame(pos int) Frame {
	return t.frames[pos-1]
}

// Subset returns a new trace holding the frames at the given 1-based
// positions. The frames keep their relative order from the original trace
// regardless of the order positions arrive in. Parents are remapped to the
// nearest kept ancestor; frames whose ancestors were all dropped attach to
// the root.
func (t *Trace) Subset(positions []int) *Trace {
	positions = slices.Clone(positions)
	slices.Sort(positions)
	remap := make(map[int]int, len(positions))
	for i, pos := range positions {
		remap[pos] = i + 1
	}
	frames := make([]Frame, 0, len(positions))
	for i, pos := range positions {
		f := t.frames[pos-1]
		parent := 0
		for p := f.Parent; p > 0; p = t.frames[p-1].Parent {
			if np, ok := remap[p]; ok && np < i+1 {
				parent = np
				break
			}
		}
		f.Parent = parent
		frames = append(frames, f)
	}
	return &Trace{frames: frames}
}

// String renders the generic one-line-per-frame introspection form:
// position, parent, and the deparsed call. Output is stable and meant for
// debugging, not for user-facing backtraces (see tracefmt).
func (t *Trace) String() string {
	var sb strings.Builder
	for i, f := range t.frames {
		if i > 0 {
			sb.WriteByte('\n')
		}
		label := UnknownCall
		if f.Call != nil {
			label = f.Call.String()
		}
		marker := ""
		if !f.Visible {
			marker = " (hidden)"
		}
		fmt.Fprintf(&sb, "%4d. (%d) %s%s", i+1, f.Parent, label, marker)
	}
	return sb.String()
}

// UnknownCall is the placeholder printed for frames whose call expression
// could not be recovered.
const UnknownCall = "<unknown>"
