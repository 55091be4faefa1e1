// interp/evaluator.go
package interp

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"simonwaldherr.de/go/nanoscript/ast"
	"simonwaldherr.de/go/nanoscript/parser"
	"simonwaldherr.de/go/nanoscript/token"
)

// Run lexes, parses and evaluates one source unit in the global scope.
// Lex and parse errors are returned before anything executes.
func (vm *Interpreter) Run(src string) (any, error) {
	prog, err := parser.ParseSource(src)
	if err != nil {
		return nil, err
	}
	return vm.Eval(prog)
}

// Eval executes prog in the global scope and returns the value of a
// top-level ret, or nil.
func (vm *Interpreter) Eval(prog *ast.Program) (any, error) { return vm.EvalIn(prog, vm.globals) }

func (vm *Interpreter) EvalIn(prog *ast.Program, env *Env) (any, error) {
	vm.frames = vm.frames[:0]
	c, err := vm.execBlock(prog.Stmts, env)
	if err != nil {
		return nil, err
	}
	if c.kind == controlReturn {
		return c.val, nil
	}
	return nil, nil
}

// EvalExpr evaluates a single expression in the global scope.
func (vm *Interpreter) EvalExpr(e ast.Expr) (any, error) {
	vm.frames = vm.frames[:0]
	return vm.evalExpr(e, vm.globals)
}

// ---------------- Expression evaluation ---------------------------

func (vm *Interpreter) evalExpr(e ast.Expr, env *Env) (any, error) {
	switch ex := e.(type) {
	case *ast.IntegerLit:
		return ex.Value, nil
	case *ast.FloatLit:
		return ex.Value, nil
	case *ast.BoolLit:
		return ex.Value, nil
	case *ast.StringLit:
		return ex.Value, nil
	case *ast.NullLit:
		return nil, nil
	case *ast.Ident:
		v, _ := env.Get(ex.Name)
		return v, nil
	case *ast.Grouping:
		return vm.evalExpr(ex.X, env)
	case *ast.Unary:
		v, err := vm.evalExpr(ex.X, env)
		if err != nil {
			return nil, err
		}
		switch ex.Op {
		case token.Minus, token.Plus:
			n, ok := v.(float64)
			if !ok {
				return nil, vm.errorf(TypeMismatch, ex.At, "unary %s expects a number, got %s", ex.Op, TypeName(v))
			}
			if ex.Op == token.Minus {
				return -n, nil
			}
			return n, nil
		case token.Not:
			b, ok := v.(bool)
			if !ok {
				return nil, vm.errorf(TypeMismatch, ex.At, "not expects a boolean, got %s", TypeName(v))
			}
			return !b, nil
		}
		return nil, vm.errorf(TypeMismatch, ex.At, "unsupported unary operator %s", ex.Op)
	case *ast.Logical:
		l, err := vm.evalExpr(ex.Left, env)
		if err != nil {
			return nil, err
		}
		lb, ok := l.(bool)
		if !ok {
			return nil, vm.errorf(TypeMismatch, ex.At, "left operand of %s must be a boolean, got %s", ex.Op, TypeName(l))
		}
		if ex.Op == token.Or && lb {
			return true, nil
		}
		if ex.Op == token.And && !lb {
			return false, nil
		}
		return vm.evalExpr(ex.Right, env)
	case *ast.Binary:
		l, err := vm.evalExpr(ex.Left, env)
		if err != nil {
			return nil, err
		}
		r, err := vm.evalExpr(ex.Right, env)
		if err != nil {
			return nil, err
		}
		return vm.applyBinaryOp(ex, l, r)
	case *ast.Call:
		return vm.call(ex, env)
	default:
		return nil, fmt.Errorf("interp: unsupported expression %T", e)
	}
}

// ---------------- Statement execution ----------------------------

type controlKind int

const (
	controlNone controlKind = iota
	controlReturn
)

type controlFlow struct {
	kind controlKind
	val  any
}

// execBlock runs stmts in env and stops at the first ret.
func (vm *Interpreter) execBlock(stmts []ast.Stmt, env *Env) (controlFlow, error) {
	for _, st := range stmts {
		c, err := vm.evalStmt(st, env)
		if err != nil || c.kind == controlReturn {
			return c, err
		}
	}
	return controlFlow{}, nil
}

func (vm *Interpreter) evalStmt(s ast.Stmt, env *Env) (controlFlow, error) {
	switch st := s.(type) {
	case *ast.Print:
		return controlFlow{}, vm.print(st.Value, env, "")
	case *ast.Println:
		return controlFlow{}, vm.print(st.Value, env, "\n")

	case *ast.Assign:
		v, err := vm.evalExpr(st.Value, env)
		if err != nil {
			return controlFlow{}, err
		}
		env.Set(st.Name, v)
		return controlFlow{}, nil

	case *ast.LocalAssign:
		v, err := vm.evalExpr(st.Value, env)
		if err != nil {
			return controlFlow{}, err
		}
		env.SetLocal(st.Name, v)
		return controlFlow{}, nil

	case *ast.If:
		ok, err := vm.condition(st.Test, env)
		if err != nil {
			return controlFlow{}, err
		}
		branch := st.Else
		if ok {
			branch = st.Then
		}
		return vm.execBlock(branch, NewEnv(env))

	case *ast.While:
		loop := NewEnv(env)
		for {
			if err := vm.ctx.Err(); err != nil {
				return controlFlow{}, err
			}
			ok, err := vm.condition(st.Test, loop)
			if err != nil || !ok {
				return controlFlow{}, err
			}
			c, err := vm.execBlock(st.Body, loop)
			if err != nil || c.kind == controlReturn {
				return c, err
			}
		}

	case *ast.For:
		return vm.execFor(st, NewEnv(env))

	case *ast.FuncDecl:
		params := make([]string, len(st.Params))
		for i, p := range st.Params {
			params[i] = p.Name
		}
		env.DefineFunc(&Function{Name: st.Name, Params: params, Body: st.Body, Env: env, Decl: st})
		return controlFlow{}, nil

	case *ast.Return:
		v, err := vm.evalExpr(st.Value, env)
		if err != nil {
			return controlFlow{}, err
		}
		return controlFlow{kind: controlReturn, val: v}, nil

	case *ast.CallStmt:
		_, err := vm.call(st.Call, env)
		return controlFlow{}, err

	case *ast.Param:
		return controlFlow{}, nil

	default:
		return controlFlow{}, fmt.Errorf("interp: unsupported statement %T", s)
	}
}

func (vm *Interpreter) print(e ast.Expr, env *Env, suffix string) error {
	v, err := vm.evalExpr(e, env)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(vm.stdout, ToString(v)+suffix); err != nil {
		return fmt.Errorf("print: %w", err)
	}
	return nil
}

func (vm *Interpreter) condition(test ast.Expr, env *Env) (bool, error) {
	v, err := vm.evalExpr(test, env)
	if err != nil {
		return false, err
	}
	b, ok := Truthy(v)
	if !ok {
		return false, vm.errorf(NoneCondition, test.Position(), "condition evaluated to none")
	}
	return b, nil
}

// execFor runs a counted loop. The bounds are evaluated once; the direction
// is fixed by comparing start and stop.
func (vm *Interpreter) execFor(st *ast.For, loop *Env) (controlFlow, error) {
	bound := func(e ast.Expr, what string) (float64, error) {
		v, err := vm.evalExpr(e, loop)
		if err != nil {
			return 0, err
		}
		n, ok := v.(float64)
		if !ok {
			return 0, vm.errorf(TypeMismatch, e.Position(), "for %s must be a number, got %s", what, TypeName(v))
		}
		return n, nil
	}
	start, err := bound(st.Start, "start")
	if err != nil {
		return controlFlow{}, err
	}
	loop.Set(st.Var, start)
	stop, err := bound(st.Stop, "stop")
	if err != nil {
		return controlFlow{}, err
	}
	step, err := bound(st.Step, "step")
	if err != nil {
		return controlFlow{}, err
	}
	ascending := start <= stop
	for cur := start; ; {
		if ascending && cur >= stop || !ascending && cur <= stop {
			return controlFlow{}, nil
		}
		if err := vm.ctx.Err(); err != nil {
			return controlFlow{}, err
		}
		c, err := vm.execBlock(st.Body, loop)
		if err != nil || c.kind == controlReturn {
			return c, err
		}
		cur += step
		loop.Set(st.Var, cur)
	}
}

// ---------------- Calls ------------------------------------------

func (vm *Interpreter) call(ex *ast.Call, env *Env) (any, error) {
	fn, ok := env.LookupFunc(ex.Name)
	if !ok {
		fn, ok = vm.natives[ex.Name]
	}
	if !ok {
		return nil, vm.errorf(UndefinedFunction, ex.At, "undefined function %s", ex.Name)
	}
	if fn.Native == nil && len(ex.Args) != len(fn.Params) {
		return nil, vm.errorf(ArityMismatch, ex.At, "%s expects %d argument(s), got %d", fn.Name, len(fn.Params), len(ex.Args))
	}
	args := make([]any, len(ex.Args))
	for i, a := range ex.Args {
		v, err := vm.evalExpr(a, env)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return vm.callFunction(fn, ex.At, args)
}

func (vm *Interpreter) callFunction(fn *Function, at ast.Pos, args []any) (any, error) {
	if err := vm.ctx.Err(); err != nil {
		return nil, err
	}
	vm.pushFrame(fn.Name, at)
	defer vm.popFrame()
	vm.log.Debug("call", "func", fn.Name, "at", at.String(), "depth", len(vm.frames))

	if fn.Native != nil {
		ret, err := fn.Native(args)
		if err != nil {
			var ee *EvalError
			if errors.As(err, &ee) {
				return nil, err
			}
			e := vm.errorf(NativeError, at, "%s: %v", fn.Name, err)
			e.Err = err
			return nil, e
		}
		return ret, nil
	}

	local := NewEnv(fn.Env)
	for i, p := range fn.Params {
		local.SetLocal(p, args[i])
	}
	c, err := vm.execBlock(fn.Body, local)
	if err != nil {
		return nil, err
	}
	vm.log.Debug("return", "func", fn.Name, "value", ToString(c.val))
	if c.kind == controlReturn {
		return c.val, nil
	}
	return nil, nil
}

// ---------------- Helpers ----------------------------------------

const maxStringLen = 1 << 30

func (vm *Interpreter) applyBinaryOp(ex *ast.Binary, left, right any) (any, error) {
	if l, ok := toNumber(left); ok {
		if r, ok := toNumber(right); ok {
			return arith(ex.Op, l, r)
		}
	}
	if ls, ok := left.(string); ok {
		switch r := right.(type) {
		case string:
			switch ex.Op {
			case token.Plus:
				return ls + r, nil
			case token.Eq:
				return ls == r, nil
			case token.Ne:
				return ls != r, nil
			}
		case float64:
			switch ex.Op {
			case token.Plus:
				return ls + FormatNumber(r), nil
			case token.Star:
				n := math.Trunc(r)
				if n <= 0 || math.IsNaN(n) || ls == "" {
					return "", nil
				}
				if math.IsInf(n, 1) || n*float64(len(ls)) > maxStringLen {
					return nil, vm.errorf(TypeMismatch, ex.At, "string repeat count %s is too large", FormatNumber(n))
				}
				return strings.Repeat(ls, int(n)), nil
			}
		}
	}
	return nil, vm.errorf(TypeMismatch, ex.At, "cannot apply %s to %s and %s", ex.Op, TypeName(left), TypeName(right))
}

func arith(op token.Kind, l, r float64) (any, error) {
	switch op {
	case token.Plus:
		return l + r, nil
	case token.Minus:
		return l - r, nil
	case token.Star:
		return l * r, nil
	case token.Slash:
		return l / r, nil
	case token.Caret:
		return math.Pow(l, r), nil
	case token.Mod:
		if !finite(l) || !finite(r) || math.Abs(l) >= 1<<63 || math.Abs(r) >= 1<<63 {
			return math.NaN(), nil
		}
		li, ri := int64(l), int64(r)
		if ri == 0 {
			return math.NaN(), nil
		}
		return float64(li % ri), nil
	case token.Eq:
		return l == r, nil
	case token.Ne:
		return l != r, nil
	case token.Lt:
		return l < r, nil
	case token.Gt:
		return l > r, nil
	case token.Le:
		return l <= r, nil
	case token.Ge:
		return l >= r, nil
	}
	return nil, fmt.Errorf("interp: unsupported binary operator %s", op)
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
