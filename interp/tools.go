// interp/tools.go
package interp

import (
	"fmt"
	"strconv"
	"strings"

	"simonwaldherr.de/go/nanoscript/ast"
	"simonwaldherr.de/go/nanoscript/parser"
	"simonwaldherr.de/go/nanoscript/token"
)

// FormatSource parses src and returns its canonical form. It refuses
// sources with a stray top-level end, since formatting would drop the rest
// of the file.
func FormatSource(src string) (string, error) {
	prog, err := parser.ParseSource(src)
	if err != nil {
		return src, err
	}
	if prog.Stray != nil {
		return src, fmt.Errorf("%d:%d: stray %q ends the program; refusing to drop the rest of the file",
			prog.Stray.Line, prog.Stray.Col, prog.Stray.Lexeme)
	}
	return Format(prog), nil
}

// Format pretty-prints prog with two-space indentation, one statement per
// line. Comments are not preserved.
func Format(prog *ast.Program) string {
	var f formatter
	f.stmts(prog.Stmts)
	return f.b.String()
}

type formatter struct {
	b     strings.Builder
	depth int
}

func (f *formatter) line(format string, args ...any) {
	f.b.WriteString(strings.Repeat("  ", f.depth))
	fmt.Fprintf(&f.b, format, args...)
	f.b.WriteByte('\n')
}

func (f *formatter) block(stmts []ast.Stmt) {
	f.depth++
	f.stmts(stmts)
	f.depth--
}

func (f *formatter) stmts(stmts []ast.Stmt) {
	for _, s := range stmts {
		f.stmt(s)
	}
}

func (f *formatter) stmt(s ast.Stmt) {
	switch st := s.(type) {
	case *ast.Print:
		f.line("print %s", exprString(st.Value))
	case *ast.Println:
		f.line("println %s", exprString(st.Value))
	case *ast.Assign:
		f.line("%s := %s", st.Name, exprString(st.Value))
	case *ast.LocalAssign:
		f.line("local %s := %s", st.Name, exprString(st.Value))
	case *ast.If:
		f.line("if %s then", exprString(st.Test))
		f.block(st.Then)
		if len(st.Else) > 0 {
			f.line("else")
			f.block(st.Else)
		}
		f.line("end")
	case *ast.While:
		f.line("while %s then", exprString(st.Test))
		f.block(st.Body)
		f.line("end")
	case *ast.For:
		head := fmt.Sprintf("for %s := %s, %s", st.Var, exprString(st.Start), exprString(st.Stop))
		if lit, ok := st.Step.(*ast.IntegerLit); !ok || lit.Raw != "" {
			head += ", " + exprString(st.Step)
		}
		f.line("%s do", head)
		f.block(st.Body)
		f.line("end")
	case *ast.FuncDecl:
		names := make([]string, len(st.Params))
		for i, p := range st.Params {
			names[i] = p.Name
		}
		f.line("func %s(%s)", st.Name, strings.Join(names, ", "))
		f.block(st.Body)
		f.line("end")
	case *ast.Return:
		f.line("ret %s", exprString(st.Value))
	case *ast.CallStmt:
		f.line("%s", exprString(st.Call))
	}
}

// exprString prints e without adding parentheses; Grouping nodes carry the
// ones written in the source, which is enough to parse back the same tree.
func exprString(e ast.Expr) string {
	switch ex := e.(type) {
	case *ast.IntegerLit:
		if ex.Raw != "" {
			return ex.Raw
		}
		return strconv.FormatFloat(ex.Value, 'f', 0, 64)
	case *ast.FloatLit:
		if ex.Raw != "" {
			return ex.Raw
		}
		return strconv.FormatFloat(ex.Value, 'f', -1, 64)
	case *ast.BoolLit:
		return strconv.FormatBool(ex.Value)
	case *ast.StringLit:
		q := ex.Quote
		if q == 0 {
			q = '"'
			if strings.IndexByte(ex.Value, '"') >= 0 {
				q = '\''
			}
		}
		return string(q) + ex.Value + string(q)
	case *ast.NullLit:
		return "null"
	case *ast.Ident:
		return ex.Name
	case *ast.Grouping:
		return "(" + exprString(ex.X) + ")"
	case *ast.Unary:
		if ex.Op == token.Not {
			return "not " + exprString(ex.X)
		}
		return ex.Op.String() + exprString(ex.X)
	case *ast.Binary:
		return exprString(ex.Left) + " " + ex.Op.String() + " " + exprString(ex.Right)
	case *ast.Logical:
		return exprString(ex.Left) + " " + ex.Op.String() + " " + exprString(ex.Right)
	case *ast.Call:
		args := make([]string, len(ex.Args))
		for i, a := range ex.Args {
			args[i] = exprString(a)
		}
		return ex.Name + "(" + strings.Join(args, ", ") + ")"
	}
	return fmt.Sprintf("<%T>", e)
}

// VetIssue describes a potential problem found by Vet.
type VetIssue struct {
	Line    int
	Column  int
	Message string
}

func (v VetIssue) String() string {
	return fmt.Sprintf("%d:%d: %s", v.Line, v.Column, v.Message)
}

// VetSource parses src and runs Vet on it.
func VetSource(src string) ([]VetIssue, error) {
	prog, err := parser.ParseSource(src)
	if err != nil {
		return nil, err
	}
	return Vet(prog), nil
}

// Vet performs basic static analysis: unreachable statements after ret,
// self-assignments, calls to undeclared functions, arity mismatches and a
// stray top-level end or else.
func Vet(prog *ast.Program) []VetIssue {
	v := &vetter{}
	v.block(prog.Stmts, false)
	if tok := prog.Stray; tok != nil {
		v.report(ast.PosOf(*tok), "stray %q ends the program; the rest of the file is ignored", tok.Lexeme)
	}
	return v.issues
}

// vetScope mirrors a runtime scope's function table. declared grows in
// textual order; all holds every declaration of the block and is consulted
// from inside function bodies, which run after the enclosing block has
// been executed further.
type vetScope struct {
	declared map[string]*ast.FuncDecl
	all      map[string]*ast.FuncDecl
	fnBody   bool
}

type vetter struct {
	scopes []*vetScope
	issues []VetIssue
}

func (v *vetter) report(at ast.Pos, format string, args ...any) {
	v.issues = append(v.issues, VetIssue{Line: at.Line, Column: at.Col, Message: fmt.Sprintf(format, args...)})
}

func (v *vetter) block(stmts []ast.Stmt, fnBody bool) {
	s := &vetScope{declared: map[string]*ast.FuncDecl{}, all: map[string]*ast.FuncDecl{}, fnBody: fnBody}
	for _, st := range stmts {
		if fd, ok := st.(*ast.FuncDecl); ok {
			s.all[fd.Name] = fd
		}
	}
	v.scopes = append(v.scopes, s)
	defer func() { v.scopes = v.scopes[:len(v.scopes)-1] }()

	unreachable := false
	for i, st := range stmts {
		if i > 0 && !unreachable {
			if _, ok := stmts[i-1].(*ast.Return); ok {
				v.report(st.Position(), "unreachable code")
				unreachable = true // only the first per block
			}
		}
		v.stmt(st)
	}
}

func (v *vetter) stmt(s ast.Stmt) {
	switch st := s.(type) {
	case *ast.Print:
		v.expr(st.Value)
	case *ast.Println:
		v.expr(st.Value)
	case *ast.Assign:
		if id, ok := st.Value.(*ast.Ident); ok && id.Name == st.Name {
			v.report(st.At, "self-assignment: %s := %s has no effect", st.Name, id.Name)
		}
		v.expr(st.Value)
	case *ast.LocalAssign:
		v.expr(st.Value)
	case *ast.If:
		v.expr(st.Test)
		v.block(st.Then, false)
		v.block(st.Else, false)
	case *ast.While:
		v.expr(st.Test)
		v.block(st.Body, false)
	case *ast.For:
		v.expr(st.Start)
		v.expr(st.Stop)
		v.expr(st.Step)
		v.block(st.Body, false)
	case *ast.FuncDecl:
		v.scopes[len(v.scopes)-1].declared[st.Name] = st
		v.block(st.Body, true)
	case *ast.Return:
		v.expr(st.Value)
	case *ast.CallStmt:
		v.expr(st.Call)
	}
}

func (v *vetter) expr(e ast.Expr) {
	switch ex := e.(type) {
	case *ast.Grouping:
		v.expr(ex.X)
	case *ast.Unary:
		v.expr(ex.X)
	case *ast.Binary:
		v.expr(ex.Left)
		v.expr(ex.Right)
	case *ast.Logical:
		v.expr(ex.Left)
		v.expr(ex.Right)
	case *ast.Call:
		for _, a := range ex.Args {
			v.expr(a)
		}
		v.checkCall(ex)
	}
}

func (v *vetter) checkCall(call *ast.Call) {
	want := -1
	if fd := v.lookup(call.Name); fd != nil {
		want = len(fd.Params)
	} else if n, ok := builtinArity[call.Name]; ok {
		want = n
	} else {
		v.report(call.At, "call to undeclared function %s", call.Name)
		return
	}
	if want != len(call.Args) {
		v.report(call.At, "%s expects %d argument(s) but %d given", call.Name, want, len(call.Args))
	}
}

func (v *vetter) lookup(name string) *ast.FuncDecl {
	crossed := false
	for i := len(v.scopes) - 1; i >= 0; i-- {
		s := v.scopes[i]
		m := s.declared
		if crossed {
			m = s.all
		}
		if fd, ok := m[name]; ok {
			return fd
		}
		if s.fnBody {
			crossed = true
		}
	}
	return nil
}
