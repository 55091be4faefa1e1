//go:build js && wasm

// runtime/host_js.go
package runtime

import (
	"fmt"
	"math/rand"
	"syscall/js"
	"time"

	"simonwaldherr.de/go/nanoscript/interp"
)

// sendMessage calls the page hook nanoScriptPostMessage(msg) when present,
// which lets the interpreter run in a web worker. Otherwise it falls back
// to the console.
func sendMessage(msg map[string]any) {
	hook := js.Global().Get("nanoScriptPostMessage")
	if hook.Truthy() {
		obj := js.Global().Get("Object").New()
		for k, v := range msg {
			switch t := v.(type) {
			case string, bool, float64:
				obj.Set(k, t)
			default:
				obj.Set(k, fmt.Sprintf("%v", t))
			}
		}
		hook.Invoke(obj)
		return
	}
	console := js.Global().Get("console")
	switch msg["type"] {
	case "warn":
		console.Call("warn", msg["text"])
	case "error":
		console.Call("error", msg["text"])
	default:
		console.Call("log", msg["text"])
	}
}

func ConsoleLog(s string)   { sendMessage(map[string]any{"type": "log", "text": s}) }
func ConsoleError(s string) { sendMessage(map[string]any{"type": "error", "text": s}) }

// Console returns a writer that sends script output to the host line by line.
func Console() *LineWriter { return NewLineWriter(ConsoleLog) }

func element(id string) js.Value {
	doc := js.Global().Get("document")
	if !doc.Truthy() {
		return js.Undefined()
	}
	return doc.Call("getElementById", id)
}

func stringArgs(name string, args []any, n int) ([]string, error) {
	if len(args) != n {
		return nil, fmt.Errorf("%s expects %d argument(s) but %d given", name, n, len(args))
	}
	out := make([]string, n)
	for i, a := range args {
		out[i] = interp.ToString(a)
	}
	return out, nil
}

// RegisterHostNatives installs the browser functions: alert, dom_set,
// dom_get, storage_set, storage_get, random and now.
func RegisterHostNatives(vm *interp.Interpreter) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	vm.RegisterNative("alert", func(args []any) (any, error) {
		s, err := stringArgs("alert", args, 1)
		if err != nil {
			return nil, err
		}
		if js.Global().Get("nanoScriptPostMessage").Truthy() {
			sendMessage(map[string]any{"type": "alert", "text": s[0]})
		} else {
			js.Global().Call("alert", s[0])
		}
		return nil, nil
	})
	vm.RegisterNative("dom_set", func(args []any) (any, error) {
		s, err := stringArgs("dom_set", args, 2)
		if err != nil {
			return nil, err
		}
		if el := element(s[0]); el.Truthy() {
			el.Set("textContent", s[1])
			return true, nil
		}
		sendMessage(map[string]any{"type": "dom-set", "id": s[0], "text": s[1]})
		return false, nil
	})
	vm.RegisterNative("dom_get", func(args []any) (any, error) {
		s, err := stringArgs("dom_get", args, 1)
		if err != nil {
			return nil, err
		}
		el := element(s[0])
		if !el.Truthy() {
			return nil, nil
		}
		if v := el.Get("value"); v.Type() == js.TypeString {
			return v.String(), nil
		}
		return el.Get("textContent").String(), nil
	})
	vm.RegisterNative("storage_set", func(args []any) (any, error) {
		s, err := stringArgs("storage_set", args, 2)
		if err != nil {
			return nil, err
		}
		if ls := js.Global().Get("localStorage"); ls.Truthy() {
			ls.Call("setItem", s[0], s[1])
		}
		return nil, nil
	})
	vm.RegisterNative("storage_get", func(args []any) (any, error) {
		s, err := stringArgs("storage_get", args, 1)
		if err != nil {
			return nil, err
		}
		ls := js.Global().Get("localStorage")
		if !ls.Truthy() {
			return nil, nil
		}
		if v := ls.Call("getItem", s[0]); v.Truthy() {
			return v.String(), nil
		}
		return nil, nil
	})
	vm.RegisterNative("random", func(args []any) (any, error) {
		if len(args) != 0 {
			return nil, fmt.Errorf("random expects 0 argument(s) but %d given", len(args))
		}
		return rng.Float64(), nil
	})
	vm.RegisterNative("now", func(args []any) (any, error) {
		if len(args) != 0 {
			return nil, fmt.Errorf("now expects 0 argument(s) but %d given", len(args))
		}
		return float64(time.Now().UnixMilli()), nil
	})
}
