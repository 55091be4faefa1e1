// Package parser builds the nanoScript syntax tree with a recursive-descent
// parser, one function per precedence level.
package parser

import (
	"fmt"
	"strconv"

	"simonwaldherr.de/go/nanoscript/ast"
	"simonwaldherr.de/go/nanoscript/lexer"
	"simonwaldherr.de/go/nanoscript/token"
)

// Error is a syntax error (ParseError) at the offending token.
type Error struct {
	Tok token.Token
	Msg string
}

func (e *Error) Error() string {
	near := "end of input"
	if e.Tok.Kind != token.EOF {
		near = strconv.Quote(e.Tok.Lexeme)
	}
	return fmt.Sprintf("%d:%d: ParseError: %s (near %s)", e.Tok.Line, e.Tok.Col, e.Msg, near)
}

// Incomplete reports whether the input ended before the construct did, so
// that more input could still make it valid.
func (e *Error) Incomplete() bool { return e.Tok.Kind == token.EOF }

type parser struct {
	toks []token.Token
	cur  int
}

func newParser(toks []token.Token) *parser {
	if len(toks) == 0 || toks[len(toks)-1].Kind != token.EOF {
		eof := token.Token{Kind: token.EOF, Line: 1, Col: 1}
		if len(toks) > 0 {
			last := toks[len(toks)-1]
			eof.Line, eof.Col, eof.Offset = last.Line, last.Col+len(last.Lexeme), last.End()
		}
		toks = append(toks[:len(toks):len(toks)], eof)
	}
	return &parser{toks: toks}
}

// Parse parses a whole program. A top-level `end` or `else` with no open
// block ends the program; it is recorded in Program.Stray.
func Parse(toks []token.Token) (*ast.Program, error) {
	p := newParser(toks)
	stmts, err := p.stmts()
	if err != nil {
		return nil, err
	}
	prog := &ast.Program{Stmts: stmts}
	if tok := p.peek(); tok.Kind != token.EOF {
		prog.Stray = &tok
	}
	return prog, nil
}

// ParseSource lexes and parses src.
func ParseSource(src string) (*ast.Program, error) {
	toks, err := lexer.Tokenize(src)
	if err != nil {
		return nil, err
	}
	return Parse(toks)
}

// ParseExpr parses src as a single expression.
func ParseExpr(src string) (ast.Expr, error) {
	toks, err := lexer.Tokenize(src)
	if err != nil {
		return nil, err
	}
	p := newParser(toks)
	e, err := p.expr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.Kind != token.EOF {
		return nil, p.errorf(tok, "unexpected %s after expression", tok.Kind)
	}
	return e, nil
}

// ---------------- token helpers ----------------

func (p *parser) peek() token.Token { return p.toks[p.cur] }

func (p *parser) peekAt(n int) token.Token {
	if p.cur+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.cur+n]
}

func (p *parser) advance() token.Token {
	tok := p.toks[p.cur]
	if tok.Kind != token.EOF {
		p.cur++
	}
	return tok
}

func (p *parser) check(kinds ...token.Kind) bool {
	k := p.peek().Kind
	for _, want := range kinds {
		if k == want {
			return true
		}
	}
	return false
}

func (p *parser) match(kinds ...token.Kind) (token.Token, bool) {
	if p.check(kinds...) {
		return p.advance(), true
	}
	return token.Token{}, false
}

func (p *parser) expect(k token.Kind, context string) (token.Token, error) {
	if tok, ok := p.match(k); ok {
		return tok, nil
	}
	tok := p.peek()
	return tok, p.errorf(tok, "expected %q %s, found %s", k.String(), context, describe(tok))
}

func (p *parser) errorf(tok token.Token, format string, args ...any) error {
	return &Error{Tok: tok, Msg: fmt.Sprintf(format, args...)}
}

func describe(tok token.Token) string {
	switch {
	case tok.Kind == token.EOF:
		return "end of input"
	case tok.Kind.IsKeyword():
		return "keyword " + strconv.Quote(tok.Lexeme)
	case tok.Kind == token.Identifier, tok.Kind == token.String, tok.Kind == token.Integer, tok.Kind == token.Float:
		return tok.Kind.String() + " " + tok.Lexeme
	default:
		return strconv.Quote(tok.Lexeme)
	}
}

// ---------------- statements ----------------

// stmts parses statements until `else`, `end` or EOF. Block ends are
// matched lexically: the first `end` closes the innermost open block.
func (p *parser) stmts() ([]ast.Stmt, error) {
	list := []ast.Stmt{}
	for {
		for p.check(token.Semicolon) {
			p.advance()
		}
		if p.check(token.Else, token.End, token.EOF) {
			return list, nil
		}
		s, err := p.stmt()
		if err != nil {
			return nil, err
		}
		list = append(list, s)
	}
}

func (p *parser) stmt() (ast.Stmt, error) {
	tok := p.peek()
	switch tok.Kind {
	case token.Print:
		p.advance()
		v, err := p.expr()
		if err != nil {
			return nil, err
		}
		return &ast.Print{At: ast.PosOf(tok), Value: v}, nil
	case token.Println:
		p.advance()
		v, err := p.expr()
		if err != nil {
			return nil, err
		}
		return &ast.Println{At: ast.PosOf(tok), Value: v}, nil
	case token.If:
		return p.ifStmt()
	case token.While:
		return p.whileStmt()
	case token.For:
		return p.forStmt()
	case token.Func:
		return p.funcDecl()
	case token.Ret:
		return p.returnStmt()
	case token.Local:
		p.advance()
		name, err := p.expect(token.Identifier, "after local")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.Assign, "after local variable name"); err != nil {
			return nil, err
		}
		v, err := p.expr()
		if err != nil {
			return nil, err
		}
		return &ast.LocalAssign{At: ast.PosOf(tok), Name: name.Lexeme, Value: v}, nil
	case token.Identifier:
		if p.peekAt(1).Kind == token.Assign {
			p.advance()
			p.advance()
			v, err := p.expr()
			if err != nil {
				return nil, err
			}
			return &ast.Assign{At: ast.PosOf(tok), Name: tok.Lexeme, Value: v}, nil
		}
		e, err := p.expr()
		if err != nil {
			return nil, err
		}
		if call, ok := e.(*ast.Call); ok {
			return &ast.CallStmt{Call: call}, nil
		}
		return nil, p.errorf(tok, "expression is not a statement (only calls may stand alone)")
	default:
		return nil, p.errorf(tok, "unexpected %s at start of statement", describe(tok))
	}
}

func (p *parser) ifStmt() (ast.Stmt, error) {
	tok := p.advance()
	test, err := p.expr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Then, "after if condition"); err != nil {
		return nil, err
	}
	then, err := p.stmts()
	if err != nil {
		return nil, err
	}
	els := []ast.Stmt{}
	if _, ok := p.match(token.Else); ok {
		if els, err = p.stmts(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(token.End, "to close if"); err != nil {
		return nil, err
	}
	return &ast.If{At: ast.PosOf(tok), Test: test, Then: then, Else: els}, nil
}

func (p *parser) whileStmt() (ast.Stmt, error) {
	tok := p.advance()
	test, err := p.expr()
	if err != nil {
		return nil, err
	}
	if _, ok := p.match(token.Then, token.Do); !ok {
		next := p.peek()
		return nil, p.errorf(next, "expected \"then\" after while condition, found %s", describe(next))
	}
	body, err := p.stmts()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.End, "to close while"); err != nil {
		return nil, err
	}
	return &ast.While{At: ast.PosOf(tok), Test: test, Body: body}, nil
}

func (p *parser) forStmt() (ast.Stmt, error) {
	tok := p.advance()
	name, err := p.expect(token.Identifier, "after for")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Assign, "after for variable"); err != nil {
		return nil, err
	}
	start, err := p.expr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Comma, "after for start value"); err != nil {
		return nil, err
	}
	stop, err := p.expr()
	if err != nil {
		return nil, err
	}
	var step ast.Expr = &ast.IntegerLit{At: ast.PosOf(tok), Value: 1}
	if _, ok := p.match(token.Comma); ok {
		if step, err = p.expr(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(token.Do, "after for range"); err != nil {
		return nil, err
	}
	body, err := p.stmts()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.End, "to close for"); err != nil {
		return nil, err
	}
	return &ast.For{At: ast.PosOf(tok), Var: name.Lexeme, Start: start, Stop: stop, Step: step, Body: body}, nil
}

func (p *parser) funcDecl() (ast.Stmt, error) {
	tok := p.advance()
	name, err := p.expect(token.Identifier, "after func")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LParen, "after function name"); err != nil {
		return nil, err
	}
	params := []*ast.Param{}
	seen := map[string]bool{}
	if !p.check(token.RParen) {
		for {
			pt, err := p.expect(token.Identifier, "in parameter list")
			if err != nil {
				return nil, err
			}
			if seen[pt.Lexeme] {
				return nil, p.errorf(pt, "duplicate parameter %s in func %s", pt.Lexeme, name.Lexeme)
			}
			seen[pt.Lexeme] = true
			params = append(params, &ast.Param{At: ast.PosOf(pt), Name: pt.Lexeme})
			if _, ok := p.match(token.Comma); !ok {
				break
			}
		}
	}
	if _, err := p.expect(token.RParen, "to close parameter list"); err != nil {
		return nil, err
	}
	body, err := p.stmts()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.End, "to close func "+name.Lexeme); err != nil {
		return nil, err
	}
	return &ast.FuncDecl{At: ast.PosOf(tok), Name: name.Lexeme, Params: params, Body: body}, nil
}

// returnStmt parses `ret expr`; a bare `ret` before a block end returns null.
func (p *parser) returnStmt() (ast.Stmt, error) {
	tok := p.advance()
	if p.check(token.End, token.Else, token.EOF, token.Semicolon) {
		return &ast.Return{At: ast.PosOf(tok), Value: &ast.NullLit{At: ast.PosOf(tok)}}, nil
	}
	v, err := p.expr()
	if err != nil {
		return nil, err
	}
	return &ast.Return{At: ast.PosOf(tok), Value: v}, nil
}

// ---------------- expressions ----------------

func (p *parser) expr() (ast.Expr, error) { return p.logicalOr() }

func (p *parser) logicalOr() (ast.Expr, error) {
	left, err := p.logicalAnd()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.match(token.Or)
		if !ok {
			return left, nil
		}
		right, err := p.logicalAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.Logical{At: ast.PosOf(op), Op: op.Kind, Left: left, Right: right}
	}
}

func (p *parser) logicalAnd() (ast.Expr, error) {
	left, err := p.equality()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.match(token.And)
		if !ok {
			return left, nil
		}
		right, err := p.equality()
		if err != nil {
			return nil, err
		}
		left = &ast.Logical{At: ast.PosOf(op), Op: op.Kind, Left: left, Right: right}
	}
}

// binaryLevel parses a left-associative chain of ops over next.
func (p *parser) binaryLevel(next func() (ast.Expr, error), ops ...token.Kind) (ast.Expr, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.match(ops...)
		if !ok {
			return left, nil
		}
		right, err := next()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{At: ast.PosOf(op), Op: op.Kind, Left: left, Right: right}
	}
}

func (p *parser) equality() (ast.Expr, error) {
	return p.binaryLevel(p.comparison, token.Eq, token.Ne)
}

func (p *parser) comparison() (ast.Expr, error) {
	return p.binaryLevel(p.additive, token.Lt, token.Gt, token.Le, token.Ge)
}

func (p *parser) additive() (ast.Expr, error) {
	return p.binaryLevel(p.multiplicative, token.Plus, token.Minus)
}

func (p *parser) multiplicative() (ast.Expr, error) {
	return p.binaryLevel(p.modulo, token.Star, token.Slash)
}

func (p *parser) modulo() (ast.Expr, error) {
	return p.binaryLevel(p.exponent, token.Mod)
}

// exponent recurses on its right operand, so 2^3^2 is 2^(3^2).
func (p *parser) exponent() (ast.Expr, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	op, ok := p.match(token.Caret)
	if !ok {
		return left, nil
	}
	right, err := p.exponent()
	if err != nil {
		return nil, err
	}
	return &ast.Binary{At: ast.PosOf(op), Op: op.Kind, Left: left, Right: right}, nil
}

func (p *parser) unary() (ast.Expr, error) {
	if op, ok := p.match(token.Minus, token.Plus, token.Not); ok {
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{At: ast.PosOf(op), Op: op.Kind, X: x}, nil
	}
	return p.primary()
}

func (p *parser) primary() (ast.Expr, error) {
	tok := p.peek()
	at := ast.PosOf(tok)
	switch tok.Kind {
	case token.Integer:
		p.advance()
		// Numbers are float64, so long digit runs round instead of overflowing.
		n, _ := strconv.ParseFloat(tok.Lexeme, 64)
		return &ast.IntegerLit{At: at, Value: n, Raw: tok.Lexeme}, nil
	case token.Float:
		p.advance()
		f, err := strconv.ParseFloat(tok.Lexeme, 64)
		if err != nil {
			return nil, p.errorf(tok, "invalid float literal %s", tok.Lexeme)
		}
		return &ast.FloatLit{At: at, Value: f, Raw: tok.Lexeme}, nil
	case token.True, token.False:
		p.advance()
		return &ast.BoolLit{At: at, Value: tok.Kind == token.True}, nil
	case token.Null:
		p.advance()
		return &ast.NullLit{At: at}, nil
	case token.String:
		p.advance()
		return &ast.StringLit{At: at, Value: tok.Lexeme[1 : len(tok.Lexeme)-1], Quote: tok.Lexeme[0]}, nil
	case token.Identifier:
		p.advance()
		if !p.check(token.LParen) {
			return &ast.Ident{At: at, Name: tok.Lexeme}, nil
		}
		p.advance()
		args, err := p.arguments()
		if err != nil {
			return nil, err
		}
		return &ast.Call{At: at, Name: tok.Lexeme, Args: args}, nil
	case token.LParen:
		p.advance()
		x, err := p.expr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RParen, "to close group"); err != nil {
			return nil, err
		}
		return &ast.Grouping{At: at, X: x}, nil
	default:
		return nil, p.errorf(tok, "expected expression, found %s", describe(tok))
	}
}

// arguments parses a call's argument list after the opening parenthesis.
func (p *parser) arguments() ([]ast.Expr, error) {
	args := []ast.Expr{}
	if _, ok := p.match(token.RParen); ok {
		return args, nil
	}
	for {
		a, err := p.expr()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
		if _, ok := p.match(token.Comma); !ok {
			break
		}
	}
	if _, err := p.expect(token.RParen, "to close argument list"); err != nil {
		return nil, err
	}
	return args, nil
}
