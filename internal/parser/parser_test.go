package parser

import (
	"testing"

	"fern/internal/source"
	"fern/internal/syntax"
	"fern/internal/testkit"
)

func parse(t *testing.T, src string) *syntax.Program {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("test.fn", []byte(src))
	prog, errs := New(fs.Get(id)).Parse()
	if len(errs) > 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	if err := testkit.CheckSpanInvariants(prog, fs.Get(id)); err != nil {
		t.Fatalf("span invariants: %v", err)
	}
	return prog
}

func parseExpr(t *testing.T, src string) syntax.Expr {
	t.Helper()
	prog := parse(t, src)
	if len(prog.Stmts) != 1 {
		t.Fatalf("got %d statements, want 1", len(prog.Stmts))
	}
	es, ok := prog.Stmts[0].(*syntax.ExprStmt)
	if !ok {
		t.Fatalf("statement is %T, want expression", prog.Stmts[0])
	}
	return es.X
}

func TestParseDeparseRoundTrip(t *testing.T) {
	cases := []string{
		`f()`,
		`f(1, 2.5, "s", true, nil)`,
		`let x = 1 + 2 * 3`,
		`fn add(a, b) { a + b }`,
		`if x == 1 { f() } else { g() }`,
		`x |> f() |> g(1) |> h()`,
		`f() |> g()`,
	}
	for _, src := range cases {
		prog := parse(t, src)
		if got := prog.String(); got != src {
			t.Errorf("deparse mismatch:\n got %q\nwant %q", got, src)
		}
	}
}

func TestParsePipeRewrite(t *testing.T) {
	x := parseExpr(t, "x |> f(1) |> g()")

	outer, ok := x.(*syntax.Call)
	if !ok || outer.Pipe != syntax.PipeStage {
		t.Fatalf("outer = %T, want pipe-tagged call", x)
	}
	if name := syntax.CalleeName(outer); name != "g" {
		t.Fatalf("outer callee = %q, want g", name)
	}
	if len(outer.Args) != 1 {
		t.Fatalf("outer args = %d, want 1", len(outer.Args))
	}

	inner, ok := outer.Args[0].(*syntax.Call)
	if !ok || inner.Pipe != syntax.PipeStage {
		t.Fatalf("inner = %T, want pipe-tagged call", outer.Args[0])
	}
	if name := syntax.CalleeName(inner); name != "f" {
		t.Fatalf("inner callee = %q, want f", name)
	}
	if len(inner.Args) != 2 {
		t.Fatalf("inner args = %d, want 2 (piped operand + 1)", len(inner.Args))
	}
	if id, ok := inner.Args[0].(*syntax.Ident); !ok || id.Name != "x" {
		t.Errorf("piped operand = %v, want ident x", inner.Args[0])
	}
}

func TestParsePipeRequiresCall(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("test.fn", []byte("x |> y"))
	_, errs := New(fs.Get(id)).Parse()
	if len(errs) == 0 {
		t.Fatal("expected error for non-call pipe target")
	}
}

func TestParseStageString(t *testing.T) {
	x := parseExpr(t, "x |> f(1)")
	call := x.(*syntax.Call)
	if got := call.StageString(); got != "f(1)" {
		t.Errorf("StageString() = %q, want %q", got, "f(1)")
	}
	if got := call.String(); got != "x |> f(1)" {
		t.Errorf("String() = %q, want %q", got, "x |> f(1)")
	}
}

func TestParsePrecedence(t *testing.T) {
	cases := map[string]string{
		"1 + 2 * 3":     "1 + 2 * 3",
		"(1 + 2) * 3":   "1 + 2 * 3", // grouping drops parens; structure checked below
		"a == b + 1":    "a == b + 1",
		"f(x) |> g()":   "f(x) |> g()",
		"1 < 2 == true": "1 < 2 == true",
	}
	for src, want := range cases {
		x := parseExpr(t, src)
		if got := x.String(); got != want {
			t.Errorf("%q deparsed to %q, want %q", src, got, want)
		}
	}

	// (1 + 2) * 3 binds the sum first.
	x := parseExpr(t, "(1 + 2) * 3").(*syntax.Binary)
	if x.Op != "*" {
		t.Fatalf("top op = %q, want *", x.Op)
	}
	if l, ok := x.L.(*syntax.Binary); !ok || l.Op != "+" {
		t.Errorf("left = %v, want 1 + 2", x.L)
	}
}

func TestParseFnDecl(t *testing.T) {
	prog := parse(t, "fn add(a, b) { a + b }")
	fd, ok := prog.Stmts[0].(*syntax.FnDecl)
	if !ok {
		t.Fatalf("stmt = %T, want FnDecl", prog.Stmts[0])
	}
	if fd.Name != "add" {
		t.Errorf("name = %q, want add", fd.Name)
	}
	if len(fd.Params) != 2 || fd.Params[0] != "a" || fd.Params[1] != "b" {
		t.Errorf("params = %v, want [a b]", fd.Params)
	}
	if len(fd.Body.Stmts) != 1 {
		t.Errorf("body statements = %d, want 1", len(fd.Body.Stmts))
	}
}

func TestParseMultilineProgram(t *testing.T) {
	src := `fn f() {
	g(
		1,
		2,
	)
}

# comment between declarations
fn g(a, b) { a }

f()
`
	prog := parse(t, src)
	if len(prog.Stmts) != 3 {
		t.Fatalf("statements = %d, want 3", len(prog.Stmts))
	}
}

func TestParseCallTrailingNewlineBeforeParen(t *testing.T) {
	x := parseExpr(t, "f(\n1\n)")
	call := x.(*syntax.Call)
	if len(call.Args) != 1 {
		t.Fatalf("args = %d, want 1", len(call.Args))
	}
}

func TestParseErrorRecoveryReportsSpan(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("test.fn", []byte("let = 3"))
	_, errs := New(fs.Get(id)).Parse()
	if len(errs) == 0 {
		t.Fatal("expected a parse error")
	}
}

func TestParseUnterminatedBlock(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("test.fn", []byte("fn f() { g()"))
	_, errs := New(fs.Get(id)).Parse()
	if len(errs) == 0 {
		t.Fatal("expected an error for unterminated block")
	}
}
