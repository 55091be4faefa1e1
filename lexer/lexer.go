// Package lexer turns nanoScript source text into tokens.
package lexer

import (
	"fmt"

	"simonwaldherr.de/go/nanoscript/token"
)

// Error is a lexical error (LexError) at a source position.
type Error struct {
	Line int
	Col  int
	Msg  string
}

func (e *Error) Error() string { return fmt.Sprintf("%d:%d: LexError: %s", e.Line, e.Col, e.Msg) }

const errUnterminated = "unterminated string"

// Incomplete reports whether the source ended inside a string literal.
func (e *Error) Incomplete() bool { return e.Msg == errUnterminated }

type lexer struct {
	src    string
	start  int // offset of the current lexeme
	pos    int
	line   int
	col    int // column of src[pos]
	sline  int // line of the current lexeme
	scol   int // column of the current lexeme
	tokens []token.Token
}

// Tokenize scans the whole source and returns its tokens terminated by EOF.
func Tokenize(src string) ([]token.Token, error) {
	l := &lexer{src: src, line: 1, col: 1}
	for l.pos < len(l.src) {
		l.start, l.sline, l.scol = l.pos, l.line, l.col
		if err := l.scan(); err != nil {
			return nil, err
		}
	}
	l.tokens = append(l.tokens, token.Token{Kind: token.EOF, Line: l.line, Col: l.col, Offset: len(l.src)})
	return l.tokens, nil
}

func (l *lexer) advance() byte {
	ch := l.src[l.pos]
	l.pos++
	if ch == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return ch
}

func (l *lexer) peek() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *lexer) lookahead() byte {
	if l.pos+1 >= len(l.src) {
		return 0
	}
	return l.src[l.pos+1]
}

func (l *lexer) match(expected byte) bool {
	if l.peek() != expected {
		return false
	}
	l.advance()
	return true
}

func (l *lexer) emit(k token.Kind) {
	l.tokens = append(l.tokens, token.Token{
		Kind:   k,
		Lexeme: l.src[l.start:l.pos],
		Line:   l.sline,
		Col:    l.scol,
		Offset: l.start,
	})
}

func (l *lexer) errorf(format string, args ...any) error {
	return &Error{Line: l.sline, Col: l.scol, Msg: fmt.Sprintf(format, args...)}
}

func (l *lexer) scan() error {
	ch := l.advance()
	switch ch {
	case ' ', '\t', '\r', '\n':
	case '#':
		for l.pos < len(l.src) && l.peek() != '\n' {
			l.advance()
		}
	case '(':
		l.emit(token.LParen)
	case ')':
		l.emit(token.RParen)
	case '{':
		l.emit(token.LCurly)
	case '}':
		l.emit(token.RCurly)
	case '[':
		l.emit(token.LSquare)
	case ']':
		l.emit(token.RSquare)
	case ',':
		l.emit(token.Comma)
	case '.':
		l.emit(token.Dot)
	case '+':
		l.emit(token.Plus)
	case '-':
		l.emit(token.Minus)
	case '*':
		l.emit(token.Star)
	case '/':
		l.emit(token.Slash)
	case '^':
		l.emit(token.Caret)
	case '%':
		l.emit(token.Mod)
	case ';':
		l.emit(token.Semicolon)
	case '?':
		l.emit(token.Question)
	case ':':
		if l.match('=') {
			l.emit(token.Assign)
		} else {
			l.emit(token.Colon)
		}
	case '>':
		switch {
		case l.match('='):
			l.emit(token.Ge)
		case l.match('>'):
			l.emit(token.GtGt)
		default:
			l.emit(token.Gt)
		}
	case '<':
		switch {
		case l.match('='):
			l.emit(token.Le)
		case l.match('<'):
			l.emit(token.LtLt)
		default:
			l.emit(token.Lt)
		}
	case '=':
		if !l.match('=') {
			return l.errorf("unexpected character '=' (use := to assign)")
		}
		l.emit(token.Eq)
	case '~':
		if l.match('=') {
			l.emit(token.Ne)
		} else {
			l.emit(token.Not)
		}
	case '"', '\'':
		return l.scanString(ch)
	default:
		switch {
		case isDigit(ch):
			l.scanNumber()
		case isAlpha(ch):
			l.scanIdentifier()
		default:
			return l.errorf("unexpected character %q", ch)
		}
	}
	return nil
}

func (l *lexer) scanNumber() {
	for isDigit(l.peek()) {
		l.advance()
	}
	if l.peek() == '.' && isDigit(l.lookahead()) {
		l.advance()
		for isDigit(l.peek()) {
			l.advance()
		}
		l.emit(token.Float)
		return
	}
	l.emit(token.Integer)
}

// scanString reads up to the matching quote. There are no escape sequences.
func (l *lexer) scanString(quote byte) error {
	for l.pos < len(l.src) && l.peek() != quote {
		l.advance()
	}
	if l.pos >= len(l.src) {
		return l.errorf(errUnterminated)
	}
	l.advance()
	l.emit(token.String)
	return nil
}

func (l *lexer) scanIdentifier() {
	for isAlpha(l.peek()) || isDigit(l.peek()) {
		l.advance()
	}
	l.emit(token.Lookup(l.src[l.start:l.pos]))
}

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }

func isAlpha(ch byte) bool {
	return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch == '_'
}
