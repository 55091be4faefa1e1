// interp/environment.go
package interp

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"simonwaldherr.de/go/nanoscript/ast"
)

// Env is a lexical scope chaining to a parent environment. Variables and
// functions live in separate tables.
type Env struct {
	Vars   map[string]any
	Funcs  map[string]*Function
	Parent *Env
}

func NewEnv(parent *Env) *Env {
	return &Env{Vars: map[string]any{}, Funcs: map[string]*Function{}, Parent: parent}
}

// Get resolves name by walking the scope chain.
func (e *Env) Get(name string) (any, bool) {
	for s := e; s != nil; s = s.Parent {
		if v, ok := s.Vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Set updates the nearest existing binding of name, or defines it in e when
// no enclosing scope has one.
func (e *Env) Set(name string, val any) {
	for s := e; s != nil; s = s.Parent {
		if _, ok := s.Vars[name]; ok {
			s.Vars[name] = val
			return
		}
	}
	e.Vars[name] = val
}

// SetLocal binds name in e, shadowing any outer binding.
func (e *Env) SetLocal(name string, val any) { e.Vars[name] = val }

func (e *Env) DefineFunc(fn *Function) { e.Funcs[fn.Name] = fn }

func (e *Env) LookupFunc(name string) (*Function, bool) {
	for s := e; s != nil; s = s.Parent {
		if fn, ok := s.Funcs[name]; ok {
			return fn, true
		}
	}
	return nil, false
}

// Interpreter holds global state: the top-level scope, host natives and the
// active call stack.
type Interpreter struct {
	globals *Env
	natives map[string]*Function

	// frames is the stack of active user and native calls, innermost last.
	frames []*callFrame

	ctx     context.Context
	stdout  io.Writer
	log     *slog.Logger
	started time.Time
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithStdout redirects print and println.
func WithStdout(w io.Writer) Option { return func(vm *Interpreter) { vm.stdout = w } }

// WithContext makes loops and calls stop with ctx.Err() once ctx is done.
func WithContext(ctx context.Context) Option { return func(vm *Interpreter) { vm.ctx = ctx } }

// WithLogger enables debug tracing of calls.
func WithLogger(l *slog.Logger) Option { return func(vm *Interpreter) { vm.log = l } }

func NewInterpreter(opts ...Option) *Interpreter {
	vm := &Interpreter{
		globals: NewEnv(nil),
		natives: map[string]*Function{},
		frames:  []*callFrame{},
		ctx:     context.Background(),
		stdout:  os.Stdout,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		started: time.Now(),
	}
	for _, opt := range opts {
		opt(vm)
	}
	vm.registerBuiltins()
	return vm
}

// Globals returns the top-level scope. It persists across Run calls.
func (vm *Interpreter) Globals() *Env { return vm.globals }

// RegisterNative installs a host function. User functions with the same name
// take precedence.
func (vm *Interpreter) RegisterNative(name string, f func(args []any) (any, error)) {
	vm.natives[name] = &Function{Name: name, Native: f}
}

// ------------------- Call frames for diagnostics ------------------

type callFrame struct {
	name string
	at   ast.Pos
}

func (vm *Interpreter) pushFrame(name string, at ast.Pos) *callFrame {
	fr := &callFrame{name: name, at: at}
	vm.frames = append(vm.frames, fr)
	return fr
}

func (vm *Interpreter) popFrame() *callFrame {
	if len(vm.frames) == 0 {
		return nil
	}
	fr := vm.frames[len(vm.frames)-1]
	vm.frames = vm.frames[:len(vm.frames)-1]
	return fr
}

// stack renders the active frames innermost first.
func (vm *Interpreter) stack() []string {
	out := make([]string, 0, len(vm.frames))
	for i := len(vm.frames) - 1; i >= 0; i-- {
		fr := vm.frames[i]
		out = append(out, fr.name+" (called at "+fr.at.String()+")")
	}
	return out
}
