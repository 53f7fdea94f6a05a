// Package syntax defines the Fern expression AST.
//
// Call expressions produced by parse-time pipe rewriting keep a PipeStage
// tag so that backtrace simplification can recognize and fold pipe
// scaffolding; the tag is also what lets the deparser print such calls back
// in their original infix form.
package syntax

import (
	"fern/internal/source"
)

// Node is the common interface of all AST nodes. String returns the
// deparsed (source-shaped) form of the node and must be deterministic: it
// is what backtrace rendering prints for a call.
type Node interface {
	Span() source.Span
	String() string
}

// Expr is an expression node.
type Expr interface {
	Node
	exprNode()
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Program is a parsed source file.
type Program struct {
	Stmts []Stmt
}

func (p *Program) Span() source.Span {
	if len(p.Stmts) == 0 {
		return source.Span{}
	}
	return p.Stmts[0].Span().Cover(p.Stmts[len(p.Stmts)-1].Span())
}

// FnDecl declares a named function.
type FnDecl struct {
	Sp     source.Span
	Name   string
	Params []string
	Body   *Block
}

// LetStmt binds a name in the current environment.
type LetStmt struct {
	Sp    source.Span
	Name  string
	Value Expr
}

// ExprStmt wraps an expression evaluated for effect or value.
type ExprStmt struct {
	X Expr
}

// Block is a braced statement sequence; its value is the last statement's.
type Block struct {
	Sp    source.Span
	Stmts []Stmt
}

func (s *FnDecl) Span() source.Span   { return s.Sp }
func (s *LetStmt) Span() source.Span  { return s.Sp }
func (s *ExprStmt) Span() source.Span { return s.X.Span() }
func (s *Block) Span() source.Span    { return s.Sp }

func (s *FnDecl) stmtNode()   {}
func (s *LetStmt) stmtNode()  {}
func (s *ExprStmt) stmtNode() {}
func (s *Block) stmtNode()    {}

// Ident is a name reference.
type Ident struct {
	Sp   source.Span
	Name string
}

// Number is a numeric literal. Text preserves the source spelling so the
// deparsed form is byte-stable.
type Number struct {
	Sp    source.Span
	Text  string
	Value float64
}

// String is a string literal (decoded value).
type String struct {
	Sp    source.Span
	Value string
}

// Bool is a boolean literal.
type Bool struct {
	Sp    source.Span
	Value bool
}

// Nil is the nil literal.
type Nil struct {
	Sp source.Span
}

// PipeKind tags how a call expression came to be.
type PipeKind uint8

const (
	// PipeNone marks an ordinary call written by the user.
	PipeNone PipeKind = iota
	// PipeStage marks a call synthesized by rewriting `lhs |> f(args)`
	// into `f(lhs, args...)`. Args[0] is always the piped-in operand.
	PipeStage
)

// Call is a call expression.
type Call struct {
	Sp   source.Span
	Fn   Expr
	Args []Expr
	Pipe PipeKind
}

// If is a conditional expression.
type If struct {
	Sp   source.Span
	Cond Expr
	Then *Block
	Else *Block
}

// Binary is an infix arithmetic or comparison expression.
type Binary struct {
	Sp   source.Span
	Op   string
	L, R Expr
}

func (e *Ident) Span() source.Span  { return e.Sp }
func (e *Number) Span() source.Span { return e.Sp }
func (e *String) Span() source.Span { return e.Sp }
func (e *Bool) Span() source.Span   { return e.Sp }
func (e *Nil) Span() source.Span    { return e.Sp }
func (e *Call) Span() source.Span   { return e.Sp }
func (e *If) Span() source.Span     { return e.Sp }
func (e *Binary) Span() source.Span { return e.Sp }

func (e *Ident) exprNode()  {}
func (e *Number) exprNode() {}
func (e *String) exprNode() {}
func (e *Bool) exprNode()   {}
func (e *Nil) exprNode()    {}
func (e *Call) exprNode()   {}
func (e *If) exprNode()     {}
func (e *Binary) exprNode() {}

// CalleeName returns the identifier a call targets, or "" when the call
// target is not a plain identifier.
func CalleeName(e Expr) string {
	c, ok := e.(*Call)
	if !ok {
		return ""
	}
	id, ok := c.Fn.(*Ident)
	if !ok {
		return ""
	}
	return id.Name
}
