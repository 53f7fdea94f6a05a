package trace

import (
	"strings"
	"testing"

	"fern/internal/syntax"
)

// stackSource is a fixed frame list standing in for a live evaluator.
type stackSource []RawFrame

func (s stackSource) ListFrames() []RawFrame { return s }

func mkCall(name string, args ...syntax.Expr) *syntax.Call {
	return &syntax.Call{Fn: &syntax.Ident{Name: name}, Args: args}
}

func linearStack(names ...string) stackSource {
	frames := make(stackSource, 0, len(names))
	for i, name := range names {
		frames = append(frames, RawFrame{
			Call:      mkCall(name),
			Env:       EnvID(i + 1),
			Pos:       i + 1,
			CallerPos: i,
		})
	}
	return frames
}

func TestCaptureLinearStack(t *testing.T) {
	tr := Capture(linearStack("f", "g", "h"), CaptureOpts{})
	if tr.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", tr.Len())
	}
	for pos := 1; pos <= 3; pos++ {
		f := tr.Frame(pos)
		if f.Parent != pos-1 {
			t.Errorf("frame %d: parent = %d, want %d", pos, f.Parent, pos-1)
		}
		if !f.Visible {
			t.Errorf("frame %d: expected visible", pos)
		}
	}
}

func TestCaptureEmptyStack(t *testing.T) {
	tr := Capture(stackSource{}, CaptureOpts{})
	if tr.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", tr.Len())
	}
}

func TestCaptureSkipUntil(t *testing.T) {
	src := linearStack("f", "g", "capture_helper", "internal")
	tr := Capture(src, CaptureOpts{SkipUntil: 3})

	if tr.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", tr.Len())
	}
	wantVisible := []bool{true, true, false, false}
	for pos := 1; pos <= 4; pos++ {
		if got := tr.Frame(pos).Visible; got != wantVisible[pos-1] {
			t.Errorf("frame %d: visible = %v, want %v", pos, got, wantVisible[pos-1])
		}
	}
}

func TestCaptureTopBoundary(t *testing.T) {
	src := linearStack("wrapper", "main", "work", "fail")
	tr := Capture(src, CaptureOpts{Top: 2})

	if tr.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", tr.Len())
	}
	// The excluded caller chain collapses to the root.
	if got := tr.Frame(1).Parent; got != 0 {
		t.Errorf("frame 1: parent = %d, want 0", got)
	}
	if got := tr.Frame(2).Parent; got != 1 {
		t.Errorf("frame 2: parent = %d, want 1", got)
	}
	if name := syntax.CalleeName(tr.Frame(1).Call); name != "work" {
		t.Errorf("frame 1: call = %q, want work", name)
	}
}

func TestCaptureTopPicksNewestMatch(t *testing.T) {
	src := stackSource{
		{Call: mkCall("main"), Env: 7, Pos: 1, CallerPos: 0},
		{Call: mkCall("work"), Env: 2, Pos: 2, CallerPos: 1},
		{Call: mkCall("main"), Env: 7, Pos: 3, CallerPos: 2},
		{Call: mkCall("fail"), Env: 4, Pos: 4, CallerPos: 3},
	}
	tr := Capture(src, CaptureOpts{Top: 7})
	if tr.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", tr.Len())
	}
	if name := syntax.CalleeName(tr.Frame(1).Call); name != "fail" {
		t.Errorf("frame 1: call = %q, want fail", name)
	}
}

func TestCaptureNonMonotonicCaller(t *testing.T) {
	// Frame 3 was evaluated lazily in frame 1's context.
	src := stackSource{
		{Call: mkCall("outer"), Env: 1, Pos: 1, CallerPos: 0},
		{Call: mkCall("inner"), Env: 2, Pos: 2, CallerPos: 1},
		{Call: mkCall("lazy"), Env: 3, Pos: 3, CallerPos: 1},
	}
	tr := Capture(src, CaptureOpts{})
	if got := tr.Frame(3).Parent; got != 1 {
		t.Errorf("frame 3: parent = %d, want 1", got)
	}
}

func TestCaptureTransitiveCallerWalk(t *testing.T) {
	// Frame 3's direct caller is excluded by the boundary; its transitive
	// caller chain must be walked to the nearest kept frame.
	src := stackSource{
		{Call: mkCall("boundary"), Env: 9, Pos: 1, CallerPos: 0},
		{Call: mkCall("kept"), Env: 2, Pos: 2, CallerPos: 1},
		{Call: mkCall("lazy"), Env: 3, Pos: 3, CallerPos: 1},
		{Call: mkCall("deep"), Env: 4, Pos: 4, CallerPos: 3},
	}
	tr := Capture(src, CaptureOpts{Top: 9})
	if tr.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", tr.Len())
	}
	if got := tr.Frame(1).Parent; got != 0 { // kept
		t.Errorf("kept: parent = %d, want 0", got)
	}
	if got := tr.Frame(2).Parent; got != 0 { // lazy: caller excluded
		t.Errorf("lazy: parent = %d, want 0", got)
	}
	if got := tr.Frame(3).Parent; got != 2 { // deep under lazy
		t.Errorf("deep: parent = %d, want 2", got)
	}
}

func TestSubsetRemapsParents(t *testing.T) {
	tr := Capture(linearStack("a", "b", "c", "d"), CaptureOpts{})
	sub := tr.Subset([]int{2, 4})
	if sub.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", sub.Len())
	}
	if got := sub.Frame(1).Parent; got != 0 {
		t.Errorf("frame 1: parent = %d, want 0", got)
	}
	// d's parent c was dropped; the nearest kept ancestor is b.
	if got := sub.Frame(2).Parent; got != 1 {
		t.Errorf("frame 2: parent = %d, want 1", got)
	}
}

func TestSubsetKeepsRelativeOrder(t *testing.T) {
	tr := Capture(linearStack("a", "b", "c", "d"), CaptureOpts{})
	sub := tr.Subset([]int{4, 2})
	if sub.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", sub.Len())
	}
	// b precedes d in the original trace, so it must come first here too.
	if got := labelOf(sub.Frame(1)); got != "b()" {
		t.Errorf("frame 1 = %q, want b()", got)
	}
	if got := labelOf(sub.Frame(2)); got != "d()" {
		t.Errorf("frame 2 = %q, want d()", got)
	}
	if got := sub.Frame(2).Parent; got != 1 {
		t.Errorf("frame 2: parent = %d, want 1", got)
	}
}

func labelOf(f Frame) string {
	if f.Call == nil {
		return ""
	}
	return f.Call.String()
}

func TestTraceStringMarksHidden(t *testing.T) {
	src := linearStack("f", "helper")
	tr := Capture(src, CaptureOpts{SkipUntil: 2})
	out := tr.String()
	if !strings.Contains(out, "f()") {
		t.Errorf("String() missing frame text:\n%s", out)
	}
	if !strings.Contains(out, "(hidden)") {
		t.Errorf("String() missing hidden marker:\n%s", out)
	}
}
