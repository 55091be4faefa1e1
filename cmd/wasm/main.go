//go:build js && wasm

// cmd/wasm/main.go
package main

import (
	"syscall/js"

	"simonwaldherr.de/go/nanoscript/interp"
	"simonwaldherr.de/go/nanoscript/runtime"
)

// result builds the {value, error} object handed back to JavaScript.
func result(value string, err error) any {
	obj := js.Global().Get("Object").New()
	obj.Set("value", value)
	if err != nil {
		obj.Set("error", err.Error())
	} else {
		obj.Set("error", js.Null())
	}
	return obj
}

func sourceArg(name string, args []js.Value) (string, bool) {
	if len(args) < 1 || args[0].Type() != js.TypeString {
		runtime.ConsoleError(name + ": missing source")
		return "", false
	}
	return args[0].String(), true
}

// jsRun runs a program with output streamed to the host console. Each call
// starts from a fresh global scope.
func jsRun(this js.Value, args []js.Value) any {
	src, ok := sourceArg("nanoScriptRun", args)
	if !ok {
		return nil
	}
	out := runtime.Console()
	defer out.Flush()

	vm := interp.NewInterpreter(interp.WithStdout(out))
	runtime.RegisterHostNatives(vm)
	v, err := vm.Run(src)
	if err != nil {
		out.Flush()
		runtime.ConsoleError(err.Error())
	}
	return result(interp.ToString(v), err)
}

func jsFormat(this js.Value, args []js.Value) any {
	src, ok := sourceArg("nanoScriptFormat", args)
	if !ok {
		return nil
	}
	return result(interp.FormatSource(src))
}

func jsVet(this js.Value, args []js.Value) any {
	src, ok := sourceArg("nanoScriptVet", args)
	if !ok {
		return nil
	}
	issues, err := interp.VetSource(src)
	list := js.Global().Get("Array").New()
	for _, issue := range issues {
		list.Call("push", issue.String())
	}
	obj := result("", err).(js.Value)
	obj.Set("issues", list)
	return obj
}

func main() {
	js.Global().Set("nanoScriptRun", js.FuncOf(jsRun))
	js.Global().Set("nanoScriptFormat", js.FuncOf(jsFormat))
	js.Global().Set("nanoScriptVet", js.FuncOf(jsVet))

	// Block forever for the browser event loop.
	select {}
}
