package syntax

import (
	"strconv"
	"strings"
)

func (p *Program) String() string {
	parts := make([]string, 0, len(p.Stmts))
	for _, s := range p.Stmts {
		parts = append(parts, s.String())
	}
	return strings.Join(parts, "\n")
}

func (s *FnDecl) String() string {
	return "fn " + s.Name + "(" + strings.Join(s.Params, ", ") + ") " + s.Body.String()
}

func (s *LetStmt) String() string {
	return "let " + s.Name + " = " + s.Value.String()
}

func (s *ExprStmt) String() string { return s.X.String() }

func (s *Block) String() string {
	if len(s.Stmts) == 0 {
		return "{ }"
	}
	parts := make([]string, 0, len(s.Stmts))
	for _, st := range s.Stmts {
		parts = append(parts, st.String())
	}
	return "{ " + strings.Join(parts, "; ") + " }"
}

func (e *Ident) String() string { return e.Name }

func (e *Number) String() string {
	if e.Text != "" {
		return e.Text
	}
	return strconv.FormatFloat(e.Value, 'g', -1, 64)
}

func (e *String) String() string { return strconv.Quote(e.Value) }

func (e *Bool) String() string {
	if e.Value {
		return "true"
	}
	return "false"
}

func (e *Nil) String() string { return "nil" }

// String deparses a call. Pipe-rewritten calls print back in their infix
// form: Call{f, [lhs, a]}/PipeStage renders as "lhs |> f(a)".
func (e *Call) String() string {
	if e.Pipe == PipeStage && len(e.Args) > 0 {
		return e.Args[0].String() + " |> " + callText(e.Fn, e.Args[1:])
	}
	return callText(e.Fn, e.Args)
}

// StageString deparses a pipe-stage call as a standalone segment, without
// its piped-in operand: Call{f, [lhs, a]}/PipeStage renders as "f(a)".
// For ordinary calls it is identical to String.
func (e *Call) StageString() string {
	if e.Pipe == PipeStage && len(e.Args) > 0 {
		return callText(e.Fn, e.Args[1:])
	}
	return callText(e.Fn, e.Args)
}

func callText(fn Expr, args []Expr) string {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		parts = append(parts, a.String())
	}
	return fn.String() + "(" + strings.Join(parts, ", ") + ")"
}

func (e *If) String() string {
	out := "if " + e.Cond.String() + " " + e.Then.String()
	if e.Else != nil {
		out += " else " + e.Else.String()
	}
	return out
}

func (e *Binary) String() string {
	return e.L.String() + " " + e.Op + " " + e.R.String()
}
