// Package token defines lexical token kinds for the Fern front-end.
// Invariants:
//   - Token.Text is a slice of the original source (no copies), except for
//     string literals, whose Text holds the decoded value.
//   - Token.Span matches the token's byte range exactly.
package token

import (
	"fern/internal/source"
)

// Kind represents the category of a source token.
type Kind uint8

const (
	// Invalid indicates an erroneous token.
	Invalid Kind = iota
	// EOF marks the end of the source input.
	EOF

	// Ident represents an identifier.
	Ident
	// NumberLit represents a numeric literal.
	NumberLit
	// StringLit represents a string literal (Text holds the decoded value).
	StringLit

	KwFn    // fn
	KwLet   // let
	KwIf    // if
	KwElse  // else
	KwTrue  // true
	KwFalse // false
	KwNil   // nil

	Assign    // =
	Plus      // +
	Minus     // -
	Star      // *
	Slash     // /
	EqEq      // ==
	BangEq    // !=
	Lt        // <
	Gt        // >
	PipeArrow // |>
	LParen    // (
	RParen    // )
	LBrace    // {
	RBrace    // }
	Comma     // ,
	Semicolon // ;
	Newline   // statement-terminating newline
)

var kindNames = map[Kind]string{
	Invalid:   "invalid",
	EOF:       "eof",
	Ident:     "ident",
	NumberLit: "number",
	StringLit: "string",
	KwFn:      "fn",
	KwLet:     "let",
	KwIf:      "if",
	KwElse:    "else",
	KwTrue:    "true",
	KwFalse:   "false",
	KwNil:     "nil",
	Assign:    "=",
	Plus:      "+",
	Minus:     "-",
	Star:      "*",
	Slash:     "/",
	EqEq:      "==",
	BangEq:    "!=",
	Lt:        "<",
	Gt:        ">",
	PipeArrow: "|>",
	LParen:    "(",
	RParen:    ")",
	LBrace:    "{",
	RBrace:    "}",
	Comma:     ",",
	Semicolon: ";",
	Newline:   "newline",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

var keywords = map[string]Kind{
	"fn":    KwFn,
	"let":   KwLet,
	"if":    KwIf,
	"else":  KwElse,
	"true":  KwTrue,
	"false": KwFalse,
	"nil":   KwNil,
}

// LookupKeyword reports whether lexeme is a Fern keyword and which one.
func LookupKeyword(lexeme string) (Kind, bool) {
	k, ok := keywords[lexeme]
	return k, ok
}

// Token represents a single source token with its location.
type Token struct {
	Kind Kind
	Span source.Span
	Text string
}

// IsLiteral reports whether the token is a numeric, boolean, string, or nil literal.
func (t Token) IsLiteral() bool {
	switch t.Kind {
	case NumberLit, StringLit, KwTrue, KwFalse, KwNil:
		return true
	default:
		return false
	}
}

// Terminates reports whether the token ends a statement.
func (t Token) Terminates() bool {
	return t.Kind == Semicolon || t.Kind == Newline || t.Kind == EOF
}
