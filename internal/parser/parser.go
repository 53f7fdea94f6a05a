// Package parser builds Fern syntax trees. The pipe operator is rewritten
// here, at parse time: `lhs |> f(args)` becomes the tagged nested call
// `f(lhs, args...)`, so by the time the evaluator sees a pipe chain it is
// ordinary nested calls carrying PipeStage tags.
package parser

import (
	"fmt"
	"strconv"

	"fern/internal/lexer"
	"fern/internal/source"
	"fern/internal/syntax"
	"fern/internal/token"
)

// Operator precedence, lowest binds loosest.
const (
	_ int = iota
	lowest
	pipe       // |>
	equality   // == !=
	comparison // < >
	sum        // + -
	product    // * /
	call       // f(x)
)

var precedences = map[token.Kind]int{
	token.PipeArrow: pipe,
	token.EqEq:      equality,
	token.BangEq:    equality,
	token.Lt:        comparison,
	token.Gt:        comparison,
	token.Plus:      sum,
	token.Minus:     sum,
	token.Star:      product,
	token.Slash:     product,
	token.LParen:    call,
}

type (
	prefixParseFn func() syntax.Expr
	infixParseFn  func(syntax.Expr) syntax.Expr
)

// Parser consumes one token stream and produces a Program.
type Parser struct {
	lx     *lexer.Lexer
	errors []error

	curToken  token.Token
	peekToken token.Token

	prefixParseFns map[token.Kind]prefixParseFn
	infixParseFns  map[token.Kind]infixParseFn
}

// New creates a parser over the given file.
func New(file *source.File) *Parser {
	p := &Parser{lx: lexer.New(file)}

	p.prefixParseFns = map[token.Kind]prefixParseFn{
		token.Ident:     p.parseIdent,
		token.NumberLit: p.parseNumber,
		token.StringLit: p.parseString,
		token.KwTrue:    p.parseBool,
		token.KwFalse:   p.parseBool,
		token.KwNil:     p.parseNil,
		token.KwIf:      p.parseIf,
		token.LParen:    p.parseGrouped,
	}
	p.infixParseFns = map[token.Kind]infixParseFn{
		token.Plus:      p.parseBinary,
		token.Minus:     p.parseBinary,
		token.Star:      p.parseBinary,
		token.Slash:     p.parseBinary,
		token.EqEq:      p.parseBinary,
		token.BangEq:    p.parseBinary,
		token.Lt:        p.parseBinary,
		token.Gt:        p.parseBinary,
		token.LParen:    p.parseCall,
		token.PipeArrow: p.parsePipe,
	}

	// Prime curToken and peekToken.
	p.nextToken()
	p.nextToken()
	return p
}

// Parse consumes the whole file and returns the program along with any
// syntax errors collected on the way.
func (p *Parser) Parse() (*syntax.Program, []error) {
	prog := &syntax.Program{}
	for p.curToken.Kind != token.EOF {
		if p.curToken.Terminates() {
			p.nextToken()
			continue
		}
		if stmt := p.parseStmt(); stmt != nil {
			prog.Stmts = append(prog.Stmts, stmt)
		}
		p.nextToken()
	}
	return prog, p.errors
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.lx.Next()
}

func (p *Parser) errorf(sp source.Span, format string, args ...any) {
	p.errors = append(p.errors, fmt.Errorf("%s: %s", sp, fmt.Sprintf(format, args...)))
}

func (p *Parser) expectPeek(kind token.Kind) bool {
	if p.peekToken.Kind != kind {
		p.errorf(p.peekToken.Span, "expected %s, found %s", kind, p.peekToken.Kind)
		return false
	}
	p.nextToken()
	return true
}

// skipNewlines advances past newline tokens; used where a line break is not
// a statement boundary (after commas, inside blocks before the first
// statement).
func (p *Parser) skipNewlines() {
	for p.curToken.Kind == token.Newline {
		p.nextToken()
	}
}

func (p *Parser) parseStmt() syntax.Stmt {
	switch p.curToken.Kind {
	case token.KwFn:
		return p.parseFnDecl()
	case token.KwLet:
		return p.parseLet()
	default:
		return p.parseExprStmt()
	}
}

func (p *Parser) parseFnDecl() syntax.Stmt {
	start := p.curToken.Span
	if !p.expectPeek(token.Ident) {
		return nil
	}
	name := p.curToken.Text
	if !p.expectPeek(token.LParen) {
		return nil
	}

	var params []string
	for p.peekToken.Kind != token.RParen {
		if !p.expectPeek(token.Ident) {
			return nil
		}
		params = append(params, p.curToken.Text)
		if p.peekToken.Kind == token.Comma {
			p.nextToken()
		}
	}
	p.nextToken() // RParen

	if !p.expectPeek(token.LBrace) {
		return nil
	}
	body := p.parseBlock()
	if body == nil {
		return nil
	}
	return &syntax.FnDecl{
		Sp:     start.Cover(body.Sp),
		Name:   name,
		Params: params,
		Body:   body,
	}
}

func (p *Parser) parseLet() syntax.Stmt {
	start := p.curToken.Span
	if !p.expectPeek(token.Ident) {
		return nil
	}
	name := p.curToken.Text
	if !p.expectPeek(token.Assign) {
		return nil
	}
	p.nextToken()
	value := p.parseExpr(lowest)
	if value == nil {
		return nil
	}
	return &syntax.LetStmt{Sp: start.Cover(value.Span()), Name: name, Value: value}
}

func (p *Parser) parseExprStmt() syntax.Stmt {
	x := p.parseExpr(lowest)
	if x == nil {
		return nil
	}
	return &syntax.ExprStmt{X: x}
}

// parseBlock parses statements until the matching RBrace. curToken must be
// at LBrace on entry and is left at RBrace on exit.
func (p *Parser) parseBlock() *syntax.Block {
	start := p.curToken.Span
	block := &syntax.Block{Sp: start}
	p.nextToken()
	for p.curToken.Kind != token.RBrace {
		if p.curToken.Kind == token.EOF {
			p.errorf(p.curToken.Span, "unterminated block")
			return nil
		}
		if p.curToken.Terminates() {
			p.nextToken()
			continue
		}
		if stmt := p.parseStmt(); stmt != nil {
			block.Stmts = append(block.Stmts, stmt)
		}
		p.nextToken()
	}
	block.Sp = start.Cover(p.curToken.Span)
	return block
}

func (p *Parser) parseExpr(precedence int) syntax.Expr {
	prefix := p.prefixParseFns[p.curToken.Kind]
	if prefix == nil {
		p.errorf(p.curToken.Span, "unexpected token %s", p.curToken.Kind)
		return nil
	}
	left := prefix()

	for left != nil && !p.peekToken.Terminates() && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Kind]
		if infix == nil {
			return left
		}
		p.nextToken()
		left = infix(left)
	}
	return left
}

func (p *Parser) peekPrecedence() int {
	if prec, ok := precedences[p.peekToken.Kind]; ok {
		return prec
	}
	return lowest
}

func (p *Parser) parseIdent() syntax.Expr {
	return &syntax.Ident{Sp: p.curToken.Span, Name: p.curToken.Text}
}

func (p *Parser) parseNumber() syntax.Expr {
	v, err := strconv.ParseFloat(p.curToken.Text, 64)
	if err != nil {
		p.errorf(p.curToken.Span, "malformed number %q", p.curToken.Text)
		return nil
	}
	return &syntax.Number{Sp: p.curToken.Span, Text: p.curToken.Text, Value: v}
}

func (p *Parser) parseString() syntax.Expr {
	return &syntax.String{Sp: p.curToken.Span, Value: p.curToken.Text}
}

func (p *Parser) parseBool() syntax.Expr {
	return &syntax.Bool{Sp: p.curToken.Span, Value: p.curToken.Kind == token.KwTrue}
}

func (p *Parser) parseNil() syntax.Expr {
	return &syntax.Nil{Sp: p.curToken.Span}
}

func (p *Parser) parseIf() syntax.Expr {
	start := p.curToken.Span
	p.nextToken()
	cond := p.parseExpr(lowest)
	if cond == nil {
		return nil
	}
	if !p.expectPeek(token.LBrace) {
		return nil
	}
	then := p.parseBlock()
	if then == nil {
		return nil
	}
	out := &syntax.If{Sp: start.Cover(then.Sp), Cond: cond, Then: then}
	if p.peekToken.Kind == token.KwElse {
		p.nextToken()
		if !p.expectPeek(token.LBrace) {
			return nil
		}
		out.Else = p.parseBlock()
		if out.Else == nil {
			return nil
		}
		out.Sp = start.Cover(out.Else.Sp)
	}
	return out
}

func (p *Parser) parseGrouped() syntax.Expr {
	p.nextToken()
	x := p.parseExpr(lowest)
	if x == nil {
		return nil
	}
	if !p.expectPeek(token.RParen) {
		return nil
	}
	return x
}

func (p *Parser) parseBinary(left syntax.Expr) syntax.Expr {
	op := p.curToken.Text
	prec := precedences[p.curToken.Kind]
	p.nextToken()
	right := p.parseExpr(prec)
	if right == nil {
		return nil
	}
	return &syntax.Binary{Sp: left.Span().Cover(right.Span()), Op: op, L: left, R: right}
}

func (p *Parser) parseCall(fn syntax.Expr) syntax.Expr {
	out := &syntax.Call{Sp: fn.Span(), Fn: fn}
	for p.peekToken.Kind != token.RParen {
		p.nextToken()
		p.skipNewlines()
		if p.curToken.Kind == token.RParen {
			out.Sp = fn.Span().Cover(p.curToken.Span)
			return out
		}
		arg := p.parseExpr(lowest)
		if arg == nil {
			return nil
		}
		out.Args = append(out.Args, arg)
		if p.peekToken.Kind == token.Comma {
			p.nextToken()
		}
	}
	p.nextToken() // RParen
	out.Sp = fn.Span().Cover(p.curToken.Span)
	return out
}

// parsePipe rewrites `lhs |> f(args)` into f(lhs, args...) tagged with
// PipeStage. The right-hand side must be a call; a bare identifier is not a
// valid pipe target.
func (p *Parser) parsePipe(lhs syntax.Expr) syntax.Expr {
	opSpan := p.curToken.Span
	p.nextToken()
	rhs := p.parseExpr(pipe)
	if rhs == nil {
		return nil
	}
	callExpr, ok := rhs.(*syntax.Call)
	if !ok {
		p.errorf(opSpan, "right-hand side of |> must be a call")
		return nil
	}
	return &syntax.Call{
		Sp:   lhs.Span().Cover(callExpr.Span()),
		Fn:   callExpr.Fn,
		Args: append([]syntax.Expr{lhs}, callExpr.Args...),
		Pipe: syntax.PipeStage,
	}
}
