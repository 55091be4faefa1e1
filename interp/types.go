// interp/types.go
package interp

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"simonwaldherr.de/go/nanoscript/ast"
)

// ErrorKind classifies evaluation failures.
type ErrorKind int

const (
	UndefinedFunction ErrorKind = iota + 1
	ArityMismatch
	TypeMismatch
	NoneCondition
	NativeError
)

var errorKindNames = map[ErrorKind]string{
	UndefinedFunction: "UndefinedFunction",
	ArityMismatch:     "ArityMismatch",
	TypeMismatch:      "TypeMismatch",
	NoneCondition:     "NoneCondition",
	NativeError:       "NativeError",
}

func (k ErrorKind) String() string {
	if s, ok := errorKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// EvalError is a runtime fault. Stack lists the active calls, innermost
// first, at the moment the error was raised.
type EvalError struct {
	Kind  ErrorKind
	Pos   ast.Pos
	Msg   string
	Stack []string
	Err   error // underlying native error, if any
}

func (e *EvalError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: EvalError: %s: %s", e.Pos, e.Kind, e.Msg)
	for _, fr := range e.Stack {
		b.WriteString("\n\tin ")
		b.WriteString(fr)
	}
	return b.String()
}

func (e *EvalError) Unwrap() error { return e.Err }

func (vm *Interpreter) errorf(kind ErrorKind, at ast.Pos, format string, args ...any) *EvalError {
	return &EvalError{Kind: kind, Pos: at, Msg: fmt.Sprintf(format, args...), Stack: vm.stack()}
}

// Function is either a user-defined function closing over its defining
// scope, or a host native.
type Function struct {
	Name   string
	Params []string
	Body   []ast.Stmt
	Env    *Env
	Decl   *ast.FuncDecl
	Native func(args []any) (any, error)
}

// TypeName names the dynamic type of a value as it appears in messages.
func TypeName(v any) string {
	switch v.(type) {
	case nil:
		return "none"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case string:
		return "string"
	case *Function:
		return "function"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// ToString returns the display form used by print: whole numbers without a
// decimal point, other numbers in %f, none as the empty string.
func ToString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return FormatNumber(x)
	case bool:
		if x {
			return "true"
		}
		return "false"
	case *Function:
		return "<func " + x.Name + ">"
	}
	return fmt.Sprintf("%v", v)
}

func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case f == 0:
		return "0"
	case f == math.Trunc(f):
		return strconv.FormatFloat(f, 'f', 0, 64)
	}
	return fmt.Sprintf("%f", f)
}

// Truthy converts a condition value. ok is false for none, which has no
// truth value.
func Truthy(v any) (val, ok bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case float64:
		return x != 0, true
	case string:
		return x != "", true
	case nil:
		return false, false
	}
	return true, true
}

// toNumber accepts numbers and booleans (true is 1, false is 0).
func toNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}
