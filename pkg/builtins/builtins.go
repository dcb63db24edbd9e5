// Package builtins is the global initializer: it populates a freshly
// constructed Heap's prototype objects and global bindings with the
// ES5 standard library — Object, Function, Array, String, Number,
// Boolean, Date, RegExp, the Error hierarchy, Math, and JSON — plus
// the in-language polyfills (Array.prototype.sort's bubble sort among
// them).
//
// This package deliberately does not import pkg/interp: it talks to
// the evaluator only through the Host interface below, which a
// *interp.Interpreter satisfies structurally. That keeps the natural
// dependency direction (interp imports builtins to wire up a fresh
// heap) from becoming a cycle.
package builtins

import (
	"sandbox5/pkg/regexpiso"
	"sandbox5/pkg/value"
)

// Host is everything Install and the native functions it registers
// need from the evaluator: object/array/error allocation, synchronous
// and asynchronous re-entry, the regex backend, and the host bridge.
type Host interface {
	value.Realm
	CreateNativeFunction(name string, arity int, fn value.NativeFunc) *value.Object
	CreateAsyncFunction(name string, arity int, fn value.AsyncFunc) *value.Object
	RegexBackend() *regexpiso.Backend
	NativeToPseudo(v interface{}) (value.Value, error)
	PseudoToNative(v value.Value) (interface{}, error)
	// CompileFunction parses and evaluates src (a single "(function(...){...})"
	// expression) against the global scope, backing the Function constructor.
	CompileFunction(src string) (value.Value, *value.Throw)
}

// Install populates h's prototypes and global object. runPolyfill
// executes a snippet of ES5 source against the global scope once,
// outside the step-wise evaluator loop (see interp.Interpreter's
// runPolyfillSource for why that matters).
func Install(h *value.Heap, host Host, runPolyfill func(string) error) {
	h.ObjectProto = value.NewRawObject("Object", nil)
	h.FunctionProto = value.NewRawObject("Function", h.ObjectProto)
	h.FunctionProto.FuncKind = value.FuncNative
	h.FunctionProto.Native = func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		return value.Undefined, nil
	}
	h.ArrayProto = value.NewRawObject("Array", h.ObjectProto)
	h.ArrayProto.DefineOwn("length", &value.Property{Value: value.Int(0), Attrs: value.Attrs{Writable: true}})
	h.StringProto = value.NewRawObject("String", h.ObjectProto)
	h.StringProto.Data = ""
	h.NumberProto = value.NewRawObject("Number", h.ObjectProto)
	h.NumberProto.Data = float64(0)
	h.BooleanProto = value.NewRawObject("Boolean", h.ObjectProto)
	h.BooleanProto.Data = false
	h.DateProto = value.NewRawObject("Date", h.ObjectProto)
	h.RegExpProto = value.NewRawObject("RegExp", h.ObjectProto)

	for _, kind := range []string{"Error", "EvalError", "RangeError", "ReferenceError", "SyntaxError", "TypeError", "URIError"} {
		parent := h.ObjectProto
		if kind != "Error" {
			parent = h.ErrorProtos["Error"]
		}
		proto := value.NewRawObject("Error", parent)
		proto.DefineOwn("name", &value.Property{Value: value.String(kind), Attrs: value.NonEnumerable})
		proto.DefineOwn("message", &value.Property{Value: value.String(""), Attrs: value.NonEnumerable})
		h.ErrorProtos[kind] = proto
	}

	h.Global = value.NewRawObject("global", h.ObjectProto)
	h.GlobalScope = value.NewScope(nil, false)
	h.GlobalScope.Object = h.Global

	installObject(h, host)
	installFunction(h, host)
	installArray(h, host)
	installString(h, host)
	installNumber(h, host)
	installBoolean(h, host)
	installDate(h, host)
	installRegExp(h, host)
	installErrors(h, host)
	installMath(h, host)
	installJSON(h, host)
	installGlobalFunctions(h, host)

	if err := runPolyfill(arrayPolyfillSource); err != nil {
		panic("builtins: array polyfill failed to install: " + err.Error())
	}
	if err := runPolyfill(stringPolyfillSource); err != nil {
		panic("builtins: string polyfill failed to install: " + err.Error())
	}

	// Polyfill sources install methods by plain assignment, which
	// produces enumerable properties; re-stamp them with the same
	// attributes the native installers use so for-in over an array
	// doesn't produce "sort".
	for _, proto := range []*value.Object{h.ArrayProto, h.StringProto} {
		for _, k := range proto.OwnKeys() {
			if p := proto.GetOwn(k); p != nil && p.Value.IsCallable() {
				p.Attrs.Enumerable = false
			}
		}
	}
}

// defineGlobal installs a binding directly on the global object as a
// writable, configurable, non-enumerable property (unlike a top-level
// `var`, which is enumerable and non-configurable).
func defineGlobal(h *value.Heap, name string, v value.Value) {
	h.Global.DefineOwn(name, &value.Property{Value: v, Attrs: value.NonEnumerable})
}

func method(h *value.Heap, obj *value.Object, name string, arity int, fn value.NativeFunc) {
	obj.DefineOwn(name, &value.Property{Value: value.FromObject(h.NewNativeFunction(name, arity, fn)), Attrs: value.NonEnumerable})
}

func arg(args []value.Value, i int) value.Value {
	if i < len(args) {
		return args[i]
	}
	return value.Undefined
}
