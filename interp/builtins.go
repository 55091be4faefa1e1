// interp/builtins.go
package interp

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// --------------- Builtins -----------------------

// builtinArity lists the natives every interpreter starts with.
var builtinArity = map[string]int{
	"len":   1,
	"str":   1,
	"num":   1,
	"floor": 1,
	"sqrt":  1,
	"abs":   1,
	"clock": 0,
}

func (vm *Interpreter) registerBuiltins() {
	vm.RegisterNative("len", builtinLen)
	vm.RegisterNative("str", func(args []any) (any, error) {
		if err := wantArgs("str", args, 1); err != nil {
			return nil, err
		}
		return ToString(args[0]), nil
	})
	vm.RegisterNative("num", builtinNum)
	vm.RegisterNative("floor", mathFunc("floor", math.Floor))
	vm.RegisterNative("sqrt", mathFunc("sqrt", math.Sqrt))
	vm.RegisterNative("abs", mathFunc("abs", math.Abs))
	vm.RegisterNative("clock", func(args []any) (any, error) {
		if err := wantArgs("clock", args, 0); err != nil {
			return nil, err
		}
		return float64(time.Since(vm.started).Milliseconds()), nil
	})
}

func wantArgs(name string, args []any, n int) error {
	if len(args) != n {
		return fmt.Errorf("%s expects %d argument(s), got %d", name, n, len(args))
	}
	return nil
}

func builtinLen(args []any) (any, error) {
	if err := wantArgs("len", args, 1); err != nil {
		return nil, err
	}
	s, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("len expects a string, got %s", TypeName(args[0]))
	}
	return float64(len(s)), nil
}

// builtinNum converts strings (surrounding blanks ignored) and booleans to
// numbers; numbers pass through.
func builtinNum(args []any) (any, error) {
	if err := wantArgs("num", args, 1); err != nil {
		return nil, err
	}
	switch x := args[0].(type) {
	case float64:
		return x, nil
	case bool:
		n, _ := toNumber(x)
		return n, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return nil, fmt.Errorf("num: cannot convert %q", x)
		}
		return f, nil
	}
	return nil, fmt.Errorf("num expects a string, number or boolean, got %s", TypeName(args[0]))
}

func mathFunc(name string, f func(float64) float64) func(args []any) (any, error) {
	return func(args []any) (any, error) {
		if err := wantArgs(name, args, 1); err != nil {
			return nil, err
		}
		n, ok := args[0].(float64)
		if !ok {
			return nil, fmt.Errorf("%s expects a number, got %s", name, TypeName(args[0]))
		}
		return f(n), nil
	}
}
