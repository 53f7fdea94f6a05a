// Package lexer turns Fern source bytes into tokens.
package lexer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"fern/internal/source"
	"fern/internal/token"
)

// Lexer scans one source file. It is single-use: create, then call Next
// until EOF.
type Lexer struct {
	file *source.File
	src  []byte
	off  uint32
}

// New creates a lexer over the given file.
func New(file *source.File) *Lexer {
	return &Lexer{file: file, src: file.Content}
}

// Next returns the next token. After the end of input it keeps returning
// EOF tokens.
func (l *Lexer) Next() token.Token {
	l.skipBlanksAndComments()

	start := l.off
	ch, size := l.peek()

	switch {
	case ch == 0:
		return l.make(token.EOF, start, start)
	case ch == '\n':
		l.off += size
		return l.make(token.Newline, start, l.off)
	case isIdentStart(ch):
		return l.scanIdent(start)
	case unicode.IsDigit(ch):
		return l.scanNumber(start)
	case ch == '"':
		return l.scanString(start)
	default:
		return l.scanOperator(start)
	}
}

func (l *Lexer) peek() (rune, uint32) {
	if int(l.off) >= len(l.src) {
		return 0, 0
	}
	r, size := utf8.DecodeRune(l.src[l.off:])
	return r, uint32(size)
}

func (l *Lexer) peekAt(n uint32) byte {
	if int(l.off+n) >= len(l.src) {
		return 0
	}
	return l.src[l.off+n]
}

func (l *Lexer) make(kind token.Kind, start, end uint32) token.Token {
	return token.Token{
		Kind: kind,
		Span: source.Span{File: l.file.ID, Start: start, End: end},
		Text: string(l.src[start:end]),
	}
}

// skipBlanksAndComments consumes spaces, tabs, and '#' line comments.
// Newlines are significant (statement terminators) and are not skipped.
func (l *Lexer) skipBlanksAndComments() {
	for int(l.off) < len(l.src) {
		switch l.src[l.off] {
		case ' ', '\t', '\r':
			l.off++
		case '#':
			for int(l.off) < len(l.src) && l.src[l.off] != '\n' {
				l.off++
			}
		default:
			return
		}
	}
}

func (l *Lexer) scanIdent(start uint32) token.Token {
	for {
		ch, size := l.peek()
		if ch == 0 || !isIdentPart(ch) {
			break
		}
		l.off += size
	}
	tok := l.make(token.Ident, start, l.off)
	if kw, ok := token.LookupKeyword(tok.Text); ok {
		tok.Kind = kw
	}
	return tok
}

func (l *Lexer) scanNumber(start uint32) token.Token {
	seenDot := false
	for int(l.off) < len(l.src) {
		c := l.src[l.off]
		if c == '.' && !seenDot && int(l.off+1) < len(l.src) && isASCIIDigit(l.src[l.off+1]) {
			seenDot = true
			l.off++
			continue
		}
		if !isASCIIDigit(c) {
			break
		}
		l.off++
	}
	return l.make(token.NumberLit, start, l.off)
}

// scanString decodes a double-quoted literal. Escapes: \" \\ \n \t.
// The decoded value is NFC-normalized so identical-looking literals compare
// and render identically regardless of how the source was typed.
func (l *Lexer) scanString(start uint32) token.Token {
	l.off++ // opening quote
	var sb strings.Builder
	for int(l.off) < len(l.src) {
		c := l.src[l.off]
		if c == '"' {
			l.off++
			tok := l.make(token.StringLit, start, l.off)
			tok.Text = norm.NFC.String(sb.String())
			return tok
		}
		if c == '\\' && int(l.off+1) < len(l.src) {
			switch l.src[l.off+1] {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case '"':
				sb.WriteByte('"')
			case '\\':
				sb.WriteByte('\\')
			default:
				sb.WriteByte(l.src[l.off+1])
			}
			l.off += 2
			continue
		}
		if c == '\n' {
			break // unterminated
		}
		sb.WriteByte(c)
		l.off++
	}
	return l.make(token.Invalid, start, l.off)
}

func (l *Lexer) scanOperator(start uint32) token.Token {
	c := l.src[l.off]
	two := func(kind token.Kind) token.Token {
		l.off += 2
		return l.make(kind, start, l.off)
	}
	one := func(kind token.Kind) token.Token {
		l.off++
		return l.make(kind, start, l.off)
	}

	switch c {
	case '|':
		if l.peekAt(1) == '>' {
			return two(token.PipeArrow)
		}
	case '=':
		if l.peekAt(1) == '=' {
			return two(token.EqEq)
		}
		return one(token.Assign)
	case '!':
		if l.peekAt(1) == '=' {
			return two(token.BangEq)
		}
	case '+':
		return one(token.Plus)
	case '-':
		return one(token.Minus)
	case '*':
		return one(token.Star)
	case '/':
		return one(token.Slash)
	case '<':
		return one(token.Lt)
	case '>':
		return one(token.Gt)
	case '(':
		return one(token.LParen)
	case ')':
		return one(token.RParen)
	case '{':
		return one(token.LBrace)
	case '}':
		return one(token.RBrace)
	case ',':
		return one(token.Comma)
	case ';':
		return one(token.Semicolon)
	}
	return one(token.Invalid)
}

func isIdentStart(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}

func isIdentPart(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch) || unicode.IsDigit(ch)
}

func isASCIIDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
