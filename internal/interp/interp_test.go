package interp

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"fern/internal/condition"
	"fern/internal/config"
	"fern/internal/parser"
	"fern/internal/source"
	"fern/internal/testkit"
	"fern/internal/trace"
	"fern/internal/tracefmt"
)

// plainOpts keeps test output independent of the host locale.
func plainOpts() config.Options {
	return config.Options{Simplify: trace.ModeNone, SrcRefs: false, Unicode: false}
}

func runWith(t *testing.T, src string, opts config.Options) (*Interp, Value, error) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("test.fn", []byte(src))
	prog, errs := parser.New(fs.Get(id)).Parse()
	require.Empty(t, errs, "parse errors")

	in := New(fs, config.NewStore(opts))
	in.Stdout = &bytes.Buffer{}
	v, err := in.Run(prog)
	return in, v, err
}

func run(t *testing.T, src string) (*Interp, Value, error) {
	t.Helper()
	return runWith(t, src, plainOpts())
}

// renderTrace renders a captured trace with the given mode, ASCII art, no
// source references.
func renderTrace(t *testing.T, tr *trace.Trace, mode trace.Mode, maxFrames int) []string {
	t.Helper()
	require.NoError(t, testkit.CheckTraceInvariants(tr))
	tree, err := trace.Simplify(trace.NewTree(tr), mode, maxFrames)
	require.NoError(t, err)
	require.NoError(t, testkit.CheckTreeInvariants(tree))
	return tracefmt.Lines(tree, nil, tracefmt.Opts{})
}

func errTrace(t *testing.T, err error) *trace.Trace {
	t.Helper()
	cond, ok := err.(*condition.Condition)
	require.True(t, ok, "error is %T, want condition", err)
	require.NotNil(t, cond.Trace)
	return cond.Trace
}

func TestArithmetic(t *testing.T) {
	_, v, err := run(t, "let x = 1 + 2 * 3\nx")
	require.NoError(t, err)
	require.Equal(t, Number(7), v)
}

func TestFunctionCall(t *testing.T) {
	_, v, err := run(t, "fn add(a, b) { a + b }\nadd(2, 3)")
	require.NoError(t, err)
	require.Equal(t, Number(5), v)
}

func TestStringConcat(t *testing.T) {
	_, v, err := run(t, `"foo" + "bar"`)
	require.NoError(t, err)
	require.Equal(t, String("foobar"), v)
}

func TestIfElse(t *testing.T) {
	_, v, err := run(t, "if 1 < 2 { \"yes\" } else { \"no\" }")
	require.NoError(t, err)
	require.Equal(t, String("yes"), v)

	_, v, err = run(t, "if nil { 1 }")
	require.NoError(t, err)
	require.Equal(t, Nil{}, v)
}

func TestUndefinedVariable(t *testing.T) {
	in, _, err := run(t, "fn f() { missing }\nf()")
	require.Error(t, err)
	require.Contains(t, err.Error(), `object "missing" not found`)
	require.NotNil(t, in.LastError)
}

func TestCallNonFunction(t *testing.T) {
	_, _, err := run(t, "let x = 1\nx(2)")
	require.Error(t, err)
	require.Contains(t, err.Error(), "non-function")
}

func TestArityMismatch(t *testing.T) {
	_, _, err := run(t, "fn f(a) { a }\nf()")
	require.Error(t, err)
	require.Contains(t, err.Error(), "expected 1 arguments, got 0")
}

func TestDivisionByZero(t *testing.T) {
	_, _, err := run(t, "1 / 0")
	require.Error(t, err)
	require.Contains(t, err.Error(), "division by zero")
}

func TestStopCapturesNestedCallTrace(t *testing.T) {
	src := `fn h() { stop("boom") }
fn g() { h() }
fn f() { g() }
f()`
	in, _, err := run(t, src)
	require.Error(t, err)
	require.Contains(t, err.Error(), "boom")

	got := renderTrace(t, errTrace(t, err), trace.ModeNone, 0)
	want := []string{
		"x",
		"`-f()",
		"  `-g()",
		"    `-h()",
	}
	require.Equal(t, want, got)
	require.Same(t, in.LastError.Trace, errTrace(t, err))
}

func TestPipeStagesAreSiblings(t *testing.T) {
	src := `fn f(x) { x }
fn g(x) { x }
fn h(x) { stop("boom") }
fn main() { 1 |> f() |> g() |> h() }
main()`
	_, _, err := run(t, src)
	require.Error(t, err)

	got := renderTrace(t, errTrace(t, err), trace.ModeNone, 0)
	want := []string{
		"x",
		"`-main()",
		"  +-1 |> f()",
		"  +-1 |> f() |> g()",
		"  `-1 |> f() |> g() |> h()",
	}
	require.Equal(t, want, got)
}

func TestPipeChainCollapsesComplete(t *testing.T) {
	src := `fn f(x) { x }
fn g(x) { x }
fn h(x) { stop("boom") }
fn main() { 1 |> f() |> g() |> h() }
main()`
	_, _, err := run(t, src)
	require.Error(t, err)

	got := renderTrace(t, errTrace(t, err), trace.ModeCollapse, 0)
	want := []string{
		"x",
		"`-main()",
		"  `-[ 1 |> f() |> g() ]",
		"    `-1 |> f() |> g() |> h()",
	}
	require.Equal(t, want, got)
}

func TestPipeChainCollapsesIncomplete(t *testing.T) {
	// The chain fails in its second of three stages: only the stages that
	// actually ran appear, and only the expanded prefix folds.
	src := `fn f(x) { x }
fn g(x) { stop("mid") }
fn h(x) { x }
fn main() { 1 |> f() |> g() |> h() }
main()`
	_, _, err := run(t, src)
	require.Error(t, err)

	got := renderTrace(t, errTrace(t, err), trace.ModeCollapse, 0)
	want := []string{
		"x",
		"`-main()",
		"  `-[ 1 |> f() ]",
		"    `-1 |> f() |> g()",
	}
	require.Equal(t, want, got)
}

func TestEvalIndirectionCollapses(t *testing.T) {
	src := `fn g() { stop("boom") }
fn f() { eval(quote(g())) }
f()`
	_, _, err := run(t, src)
	require.Error(t, err)

	got := renderTrace(t, errTrace(t, err), trace.ModeCollapse, 0)
	want := []string{
		"x",
		"`-f()",
		"  `-[ eval(...) ]",
		"    `-g()",
	}
	require.Equal(t, want, got)
}

func TestEvalExplicitEnvParentsAtCaller(t *testing.T) {
	// Code evaluated in the caller's environment must hang off the caller
	// frame, not off the newest frame.
	src := `fn g() { stop("far") }
fn inner() { eval(quote(g()), caller_env()) }
fn outer() { inner() }
outer()`
	_, _, err := run(t, src)
	require.Error(t, err)

	got := renderTrace(t, errTrace(t, err), trace.ModeNone, 0)
	want := []string{
		"x",
		"`-outer()",
		"  +-inner()",
		"  | `-eval(quote(g()), caller_env())",
		"  `-g()",
	}
	require.Equal(t, want, got)
}

func TestWithHandlersSiblingSubtrees(t *testing.T) {
	src := `fn handler(c) { trace_back() }
fn risky() { stop("boom") }
with_handlers(risky(), "error", handler)`
	_, v, err := run(t, src)
	require.NoError(t, err)

	tv, ok := v.(TraceValue)
	require.True(t, ok, "result is %T, want trace", v)

	got := renderTrace(t, tv.Trace, trace.ModeNone, 0)
	want := []string{
		"x",
		`` + "`-" + `with_handlers(risky(), "error", handler)`,
		`  +-risky()`,
		`  | ` + "`-" + `stop("boom")`,
		`  ` + "`-" + `handler(cond)`,
	}
	require.Equal(t, want, got)
}

func TestBranchModeFollowsHandlerPath(t *testing.T) {
	src := `fn handler(c) { trace_back() }
fn risky() { stop("boom") }
with_handlers(risky(), "error", handler)`
	_, v, err := run(t, src)
	require.NoError(t, err)
	tv := v.(TraceValue)

	got := renderTrace(t, tv.Trace, trace.ModeBranch, 0)
	want := []string{
		`with_handlers(risky(), "error", handler)`,
		"handler(cond)",
	}
	require.Equal(t, want, got)
}

func TestRecursionBranchTruncation(t *testing.T) {
	src := `fn rec(n) { if n == 0 { stop("deep") } else { rec(n - 1) } }
rec(5)`
	_, _, err := run(t, src)
	require.Error(t, err)

	got := renderTrace(t, errTrace(t, err), trace.ModeBranch, 4)
	want := []string{
		"[ ... 3 frames ... ]",
		"rec(n - 1)",
		"rec(n - 1)",
		"rec(n - 1)",
	}
	require.Equal(t, want, got)
}

func TestRecursionNoneKeepsEveryActivation(t *testing.T) {
	// N activations render as a straight chain of N nodes under the root.
	src := `fn rec(n) { if n == 0 { stop("deep") } else { rec(n - 1) } }
rec(5)`
	_, _, err := run(t, src)
	require.Error(t, err)

	tr := errTrace(t, err)
	got := renderTrace(t, tr, trace.ModeNone, 0)
	want := []string{
		"x",
		"`-rec(5)",
		"  `-rec(n - 1)",
		"    `-rec(n - 1)",
		"      `-rec(n - 1)",
		"        `-rec(n - 1)",
		"          `-rec(n - 1)",
	}
	require.Equal(t, want, got)
	require.Len(t, trace.NewTree(tr).Nodes, 7)
}

func TestTopEnvBoundsCapture(t *testing.T) {
	opts := plainOpts()
	opts.TopEnvName = "wrapper"
	src := `fn work() { stop("x") }
fn wrapper() { work() }
wrapper()`
	_, _, err := runWith(t, src, opts)
	require.Error(t, err)

	got := renderTrace(t, errTrace(t, err), trace.ModeNone, 0)
	require.Equal(t, []string{"x", "`-work()"}, got)
}

func TestHandlerMatchesSubclass(t *testing.T) {
	src := `fn handler(c) { "caught" }
with_handlers(stop("x", "io_error"), "io_error", handler)`
	_, v, err := run(t, src)
	require.NoError(t, err)
	require.Equal(t, String("caught"), v)
}

func TestHandlerClassMismatchPropagates(t *testing.T) {
	src := `fn handler(c) { "caught" }
with_handlers(stop("x"), "warning", handler)`
	_, _, err := run(t, src)
	require.Error(t, err)
	require.Contains(t, err.Error(), "x")
}

func TestRethrowFromHandler(t *testing.T) {
	// A handler re-signalling the condition must not catch it again.
	src := `fn handler(c) { stop(c) }
with_handlers(stop("orig"), "error", handler)`
	_, _, err := run(t, src)
	require.Error(t, err)
	require.Contains(t, err.Error(), "orig")
}

func TestWarningAccumulatesAndContinues(t *testing.T) {
	src := `fn f() {
	warning("w1")
	42
}
f()`
	in, v, err := run(t, src)
	require.NoError(t, err)
	require.Equal(t, Number(42), v)
	require.Len(t, in.Warnings, 1)
	require.Equal(t, "w1", in.Warnings[0].Message)
}

func TestHandledWarningResumesBody(t *testing.T) {
	src := `fn handler(c) { nil }
fn f() {
	warning("w1")
	42
}
with_handlers(f(), "warning", handler)`
	in, v, err := run(t, src)
	require.NoError(t, err)
	require.Equal(t, Number(42), v)
	require.Empty(t, in.Warnings)
}

func TestUnhandledMessagePrints(t *testing.T) {
	in, v, err := run(t, `message("hello")`)
	require.NoError(t, err)
	require.Equal(t, Nil{}, v)
	require.Equal(t, "hello\n", in.Stdout.(*bytes.Buffer).String())
}

func TestSignalByClassName(t *testing.T) {
	_, _, err := run(t, `signal("error", "bad")`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "bad")

	in, _, err := run(t, `signal("warning", "meh")`)
	require.NoError(t, err)
	require.Len(t, in.Warnings, 1)
}

func TestSignalUnknownClassIsSubclassTag(t *testing.T) {
	src := `fn handler(c) { "tagged" }
with_handlers(signal("custom_thing", "odd"), "custom_thing", handler)`
	_, v, err := run(t, src)
	require.NoError(t, err)
	// Base-class conditions resume after the handler, so the body result
	// is signal's nil, not the handler's value.
	require.Equal(t, Nil{}, v)
}

func TestLastErrorBuiltin(t *testing.T) {
	src := `fn handler(c) { last_error() }
with_handlers(stop("bad"), "error", handler)`
	_, v, err := run(t, src)
	require.NoError(t, err)
	cv, ok := v.(ConditionValue)
	require.True(t, ok, "result is %T, want condition", v)
	require.Equal(t, "bad", cv.Cond.Message)
}

func TestQuoteReturnsExpression(t *testing.T) {
	_, v, err := run(t, "quote(f(1 + 2))")
	require.NoError(t, err)
	ev, ok := v.(ExprValue)
	require.True(t, ok)
	require.Equal(t, "f(1 + 2)", ev.Expr.String())
}

func TestEvalq(t *testing.T) {
	_, v, err := run(t, "let x = 2\nevalq(x + 1)")
	require.NoError(t, err)
	require.Equal(t, Number(3), v)
}

func TestEvalInGlobalEnv(t *testing.T) {
	src := `let y = 5
fn f() { eval(quote(y), global_env()) }
f()`
	_, v, err := run(t, src)
	require.NoError(t, err)
	require.Equal(t, Number(5), v)
}

func TestEvalNonExpressionPassesThrough(t *testing.T) {
	_, v, err := run(t, "eval(41 + 1)")
	require.NoError(t, err)
	require.Equal(t, Number(42), v)
}

func TestPrintTraceWritesConfiguredRendering(t *testing.T) {
	src := `fn handler(c) { print_trace(c) }
fn g() { stop("boom") }
fn f() { g() }
with_handlers(f(), "error", handler)`
	in, _, err := run(t, src)
	require.NoError(t, err)

	out := in.Stdout.(*bytes.Buffer).String()
	require.Contains(t, out, "f()")
	require.Contains(t, out, "g()")
	require.Contains(t, out, "`-")
}

func TestPrintTraceFrameNumbers(t *testing.T) {
	opts := plainOpts()
	opts.FrameNumbers = true
	src := `fn handler(c) { print_trace(c) }
fn g() { stop("boom") }
fn f() { g() }
with_handlers(f(), "error", handler)`
	in, _, err := runWith(t, src, opts)
	require.NoError(t, err)

	out := in.Stdout.(*bytes.Buffer).String()
	require.Contains(t, out, "1. ")
	require.Contains(t, out, "2. ")
}

func TestRecursionDepthLimit(t *testing.T) {
	_, _, err := run(t, "fn loop() { loop() }\nloop()")
	require.Error(t, err)
	require.Contains(t, err.Error(), "nested too deeply")
}

func TestStackUnwindsAfterError(t *testing.T) {
	src := `fn handler(c) { nil }
fn boom() { stop("a") }
with_handlers(boom(), "error", handler)
1`
	in, v, err := run(t, src)
	require.NoError(t, err)
	require.Equal(t, Number(1), v)
	require.Empty(t, in.stack, "stack must be empty at top level")
	require.Empty(t, in.handlers, "handlers must be deregistered")
}

func TestTraceStringDebugForm(t *testing.T) {
	src := `fn f() { stop("boom") }
f()`
	_, _, err := run(t, src)
	require.Error(t, err)
	out := errTrace(t, err).String()
	require.True(t, strings.Contains(out, "f()"))
	require.True(t, strings.Contains(out, "(hidden)"), "stop frame should be hidden:\n%s", out)
}
