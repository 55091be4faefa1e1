package parser

import (
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"simonwaldherr.de/go/nanoscript/ast"
	"simonwaldherr.de/go/nanoscript/lexer"
	"simonwaldherr.de/go/nanoscript/token"
)

var ignorePos = cmpopts.IgnoreTypes(ast.Pos{})

func num(n int64) *ast.IntegerLit {
	return &ast.IntegerLit{Value: float64(n), Raw: strconv.FormatInt(n, 10)}
}

func ident(name string) *ast.Ident { return &ast.Ident{Name: name} }

func bin(op token.Kind, l, r ast.Expr) *ast.Binary { return &ast.Binary{Op: op, Left: l, Right: r} }

func mustParse(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, err := ParseSource(src)
	if err != nil {
		t.Fatalf("ParseSource(%q): %v", src, err)
	}
	return prog
}

func TestExpressionPrecedence(t *testing.T) {
	cases := []struct {
		src  string
		want ast.Expr
	}{
		{"1 + 2 * 3", bin(token.Plus, num(1), bin(token.Star, num(2), num(3)))},
		{"1 - 2 - 3", bin(token.Minus, bin(token.Minus, num(1), num(2)), num(3))},
		{"2 ^ 3 ^ 2", bin(token.Caret, num(2), bin(token.Caret, num(3), num(2)))},
		{"7 * 5 % 3", bin(token.Star, num(7), bin(token.Mod, num(5), num(3)))},
		{"8 % 3 ^ 2", bin(token.Mod, num(8), bin(token.Caret, num(3), num(2)))},
		{"1 < 2 == 3 > 4", bin(token.Eq, bin(token.Lt, num(1), num(2)), bin(token.Gt, num(3), num(4)))},
		{"a or b and c", &ast.Logical{Op: token.Or, Left: ident("a"), Right: &ast.Logical{Op: token.And, Left: ident("b"), Right: ident("c")}}},
		{"a == b and c ~= d", &ast.Logical{Op: token.And, Left: bin(token.Eq, ident("a"), ident("b")), Right: bin(token.Ne, ident("c"), ident("d"))}},
		{"-2 ^ 2", bin(token.Caret, &ast.Unary{Op: token.Minus, X: num(2)}, num(2))},
		{"not ~true", &ast.Unary{Op: token.Not, X: &ast.Unary{Op: token.Not, X: &ast.BoolLit{Value: true}}}},
		{"(1 + 2) * 3", bin(token.Star, &ast.Grouping{X: bin(token.Plus, num(1), num(2))}, num(3))},
		{"f(1, g(), 'x')", &ast.Call{Name: "f", Args: []ast.Expr{num(1), &ast.Call{Name: "g", Args: []ast.Expr{}}, &ast.StringLit{Value: "x", Quote: '\''}}}},
		{"null", &ast.NullLit{}},
		{"2.5", &ast.FloatLit{Value: 2.5, Raw: "2.5"}},
	}
	for _, c := range cases {
		got, err := ParseExpr(c.src)
		if err != nil {
			t.Errorf("ParseExpr(%q): %v", c.src, err)
			continue
		}
		if diff := cmp.Diff(c.want, got, ignorePos); diff != "" {
			t.Errorf("ParseExpr(%q) mismatch (-want +got):\n%s", c.src, diff)
		}
	}
}

func TestStatements(t *testing.T) {
	src := `
x := 1; local y := x
if x then print 1 else println 2 end
if false then print 3 end
while x < 3 then x := x + 1 end
for i := 10, 0, -2 do print i end
for j := 1, 3 do end
func add(a, b)
  ret a + b
end
add(1, 2)
ret
`
	want := &ast.Program{Stmts: []ast.Stmt{
		&ast.Assign{Name: "x", Value: num(1)},
		&ast.LocalAssign{Name: "y", Value: ident("x")},
		&ast.If{Test: ident("x"), Then: []ast.Stmt{&ast.Print{Value: num(1)}}, Else: []ast.Stmt{&ast.Println{Value: num(2)}}},
		&ast.If{Test: &ast.BoolLit{Value: false}, Then: []ast.Stmt{&ast.Print{Value: num(3)}}, Else: []ast.Stmt{}},
		&ast.While{Test: bin(token.Lt, ident("x"), num(3)), Body: []ast.Stmt{&ast.Assign{Name: "x", Value: bin(token.Plus, ident("x"), num(1))}}},
		&ast.For{Var: "i", Start: num(10), Stop: num(0), Step: &ast.Unary{Op: token.Minus, X: num(2)}, Body: []ast.Stmt{&ast.Print{Value: ident("i")}}},
		&ast.For{Var: "j", Start: num(1), Stop: num(3), Step: &ast.IntegerLit{Value: 1}, Body: []ast.Stmt{}},
		&ast.FuncDecl{Name: "add", Params: []*ast.Param{{Name: "a"}, {Name: "b"}}, Body: []ast.Stmt{
			&ast.Return{Value: bin(token.Plus, ident("a"), ident("b"))},
		}},
		&ast.CallStmt{Call: &ast.Call{Name: "add", Args: []ast.Expr{num(1), num(2)}}},
		&ast.Return{Value: &ast.NullLit{}},
	}}
	got := mustParse(t, src)
	if diff := cmp.Diff(want, got, ignorePos); diff != "" {
		t.Errorf("program mismatch (-want +got):\n%s", diff)
	}
}

func TestWhileAcceptsDo(t *testing.T) {
	prog := mustParse(t, "while false do print 1 end")
	if _, ok := prog.Stmts[0].(*ast.While); !ok {
		t.Fatalf("got %T, want *ast.While", prog.Stmts[0])
	}
}

func TestStrayEndTerminatesProgram(t *testing.T) {
	prog := mustParse(t, "print 1\nif true then print 2 end end\nprint 3")
	if len(prog.Stmts) != 2 {
		t.Fatalf("got %d statements, want 2", len(prog.Stmts))
	}
	if prog.Stray == nil || prog.Stray.Kind != token.End || prog.Stray.Line != 2 {
		t.Fatalf("Stray = %v, want end on line 2", prog.Stray)
	}
}

func TestNestedEndClosesInnermostBlock(t *testing.T) {
	prog := mustParse(t, "while true then if x then print 1 end print 2 end")
	w := prog.Stmts[0].(*ast.While)
	if len(w.Body) != 2 {
		t.Fatalf("while body has %d statements, want 2", len(w.Body))
	}
}

func TestPositions(t *testing.T) {
	prog := mustParse(t, "x := 1\n  println x + 2")
	pl := prog.Stmts[1].(*ast.Println)
	if pl.At != (ast.Pos{Line: 2, Col: 3}) {
		t.Errorf("println at %v, want 2:3", pl.At)
	}
	if op := pl.Value.(*ast.Binary); op.At != (ast.Pos{Line: 2, Col: 13}) {
		t.Errorf("+ at %v, want 2:13", op.At)
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		src        string
		msg        string
		line, col  int
		incomplete bool
	}{
		{"if x print 1 end", `expected "then"`, 1, 6, false},
		{"if x then print 1", `expected "end"`, 1, 18, true},
		{"print (1 + 2", "to close group", 1, 13, true},
		{"x + 1", "not a statement", 1, 1, false},
		{"print", "expected expression", 1, 6, true},
		{"func f(a, a) end", "duplicate parameter a", 1, 11, false},
		{"for i = 1, 2 do end", "", 0, 0, false},
		{"for i := 1 do end", `expected ","`, 1, 12, false},
		{"then", "unexpected keyword", 1, 1, false},
		{"while x print 1 end", `expected "then"`, 1, 9, false},
	}
	for _, c := range cases {
		_, err := ParseSource(c.src)
		if err == nil {
			t.Errorf("ParseSource(%q): expected error", c.src)
			continue
		}
		if c.msg == "" {
			// lexical failure: bare '=' is not an operator
			var lerr *lexer.Error
			if !errors.As(err, &lerr) {
				t.Errorf("ParseSource(%q): want *lexer.Error, got %T", c.src, err)
			}
			continue
		}
		var perr *Error
		if !errors.As(err, &perr) {
			t.Errorf("ParseSource(%q): want *Error, got %T %v", c.src, err, err)
			continue
		}
		if !strings.Contains(perr.Msg, c.msg) {
			t.Errorf("ParseSource(%q): message %q does not contain %q", c.src, perr.Msg, c.msg)
		}
		if perr.Tok.Line != c.line || perr.Tok.Col != c.col {
			t.Errorf("ParseSource(%q): error at %d:%d, want %d:%d", c.src, perr.Tok.Line, perr.Tok.Col, c.line, c.col)
		}
		if perr.Incomplete() != c.incomplete {
			t.Errorf("ParseSource(%q): Incomplete() = %v, want %v", c.src, perr.Incomplete(), c.incomplete)
		}
		if !strings.Contains(perr.Error(), "ParseError") {
			t.Errorf("Error() = %q, want ParseError kind", perr.Error())
		}
	}
}

func TestParseExprRejectsTrailingTokens(t *testing.T) {
	if _, err := ParseExpr("1 2"); err == nil {
		t.Fatal("expected error for trailing tokens")
	}
}

func TestParseWithoutEOFToken(t *testing.T) {
	toks, err := lexer.Tokenize("print 1")
	if err != nil {
		t.Fatal(err)
	}
	prog, err := Parse(toks[:len(toks)-1])
	if err != nil {
		t.Fatalf("Parse without EOF: %v", err)
	}
	if len(prog.Stmts) != 1 {
		t.Fatalf("got %d statements, want 1", len(prog.Stmts))
	}
}

func TestLongIntegerLiteral(t *testing.T) {
	prog, err := ParseSource("print 99999999999999999999")
	if err != nil {
		t.Fatalf("ParseSource: %v", err)
	}
	want := []ast.Stmt{&ast.Print{Value: &ast.IntegerLit{Value: 1e20, Raw: "99999999999999999999"}}}
	if diff := cmp.Diff(want, prog.Stmts, ignorePos); diff != "" {
		t.Errorf("AST mismatch (-want +got):\n%s", diff)
	}
}
