// Package ast declares the syntax tree produced by the parser.
//
// Expressions and statements are closed sets of pointer types; the
// evaluator and the tools switch over them exhaustively.
package ast

import (
	"fmt"

	"simonwaldherr.de/go/nanoscript/token"
)

// Pos is a 1-based source position.
type Pos struct {
	Line int
	Col  int
}

func (p Pos) String() string { return fmt.Sprintf("%d:%d", p.Line, p.Col) }

// PosOf returns the position of a token.
func PosOf(t token.Token) Pos { return Pos{Line: t.Line, Col: t.Col} }

// Node is implemented by every expression and statement.
type Node interface {
	Position() Pos
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

// ---------------- Expressions ----------------

type IntegerLit struct {
	At    Pos
	Value float64
	Raw   string
}

type FloatLit struct {
	At    Pos
	Value float64
	Raw   string
}

type BoolLit struct {
	At    Pos
	Value bool
}

// StringLit holds the literal text without its quotes. Quote is the
// delimiter used in the source.
type StringLit struct {
	At    Pos
	Value string
	Quote byte
}

type NullLit struct {
	At Pos
}

type Ident struct {
	At   Pos
	Name string
}

type Grouping struct {
	At Pos
	X  Expr
}

type Unary struct {
	At Pos
	Op token.Kind // Minus, Plus, Not
	X  Expr
}

// Binary is an arithmetic or comparison operation.
type Binary struct {
	At    Pos
	Op    token.Kind
	Left  Expr
	Right Expr
}

// Logical is a short-circuiting and/or.
type Logical struct {
	At    Pos
	Op    token.Kind // And, Or
	Left  Expr
	Right Expr
}

type Call struct {
	At   Pos
	Name string
	Args []Expr
}

func (e *IntegerLit) Position() Pos { return e.At }
func (e *FloatLit) Position() Pos   { return e.At }
func (e *BoolLit) Position() Pos    { return e.At }
func (e *StringLit) Position() Pos  { return e.At }
func (e *NullLit) Position() Pos    { return e.At }
func (e *Ident) Position() Pos      { return e.At }
func (e *Grouping) Position() Pos   { return e.At }
func (e *Unary) Position() Pos      { return e.At }
func (e *Binary) Position() Pos     { return e.At }
func (e *Logical) Position() Pos    { return e.At }
func (e *Call) Position() Pos       { return e.At }

func (*IntegerLit) exprNode() {}
func (*FloatLit) exprNode()   {}
func (*BoolLit) exprNode()    {}
func (*StringLit) exprNode()  {}
func (*NullLit) exprNode()    {}
func (*Ident) exprNode()      {}
func (*Grouping) exprNode()   {}
func (*Unary) exprNode()      {}
func (*Binary) exprNode()     {}
func (*Logical) exprNode()    {}
func (*Call) exprNode()       {}

// ---------------- Statements ----------------

type Print struct {
	At    Pos
	Value Expr
}

type Println struct {
	At    Pos
	Value Expr
}

// Assign is the write-through form `name := value`.
type Assign struct {
	At    Pos
	Name  string
	Value Expr
}

// LocalAssign always binds in the current scope: `local name := value`.
type LocalAssign struct {
	At    Pos
	Name  string
	Value Expr
}

// If always has both branches; Else may be empty.
type If struct {
	At   Pos
	Test Expr
	Then []Stmt
	Else []Stmt
}

type While struct {
	At   Pos
	Test Expr
	Body []Stmt
}

// For is `for Var := Start, Stop[, Step] do Body end`. An omitted step is
// an IntegerLit 1 with an empty Raw.
type For struct {
	At    Pos
	Var   string
	Start Expr
	Stop  Expr
	Step  Expr
	Body  []Stmt
}

type Param struct {
	At   Pos
	Name string
}

type FuncDecl struct {
	At     Pos
	Name   string
	Params []*Param
	Body   []Stmt
}

type Return struct {
	At    Pos
	Value Expr
}

// CallStmt is a call whose result is discarded.
type CallStmt struct {
	Call *Call
}

func (s *Print) Position() Pos       { return s.At }
func (s *Println) Position() Pos     { return s.At }
func (s *Assign) Position() Pos      { return s.At }
func (s *LocalAssign) Position() Pos { return s.At }
func (s *If) Position() Pos          { return s.At }
func (s *While) Position() Pos       { return s.At }
func (s *For) Position() Pos         { return s.At }
func (s *Param) Position() Pos       { return s.At }
func (s *FuncDecl) Position() Pos    { return s.At }
func (s *Return) Position() Pos      { return s.At }
func (s *CallStmt) Position() Pos    { return s.Call.At }

func (*Print) stmtNode()       {}
func (*Println) stmtNode()     {}
func (*Assign) stmtNode()      {}
func (*LocalAssign) stmtNode() {}
func (*If) stmtNode()          {}
func (*While) stmtNode()       {}
func (*For) stmtNode()         {}
func (*Param) stmtNode()       {}
func (*FuncDecl) stmtNode()    {}
func (*Return) stmtNode()      {}
func (*CallStmt) stmtNode()    {}

// Program is a parsed source unit. Stray is set when a top-level `end` or
// `else` ended the program before EOF; everything after it was not parsed.
type Program struct {
	Stmts []Stmt
	Stray *token.Token
}
