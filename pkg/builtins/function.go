package builtins

import (
	"sandbox5/pkg/value"
)

// installFunction wires the Function constructor and
// Function.prototype (call/apply/bind) on top of the evaluator's
// Realm.Call/Construct.
func installFunction(h *value.Heap, host Host) {
	ctor := h.NewNativeFunction("Function", 1, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		body := ""
		params := ""
		if len(args) > 0 {
			body = value.ToStringPrimitive(args[len(args)-1])
		}
		for i := 0; i < len(args)-1; i++ {
			if i > 0 {
				params += ","
			}
			params += value.ToStringPrimitive(args[i])
		}
		src := "(function (" + params + ") {\n" + body + "\n})"
		v, thrown := host.CompileFunction(src)
		if thrown != nil {
			return value.Undefined, thrown
		}
		return v, nil
	})
	ctor.DefineOwn("prototype", &value.Property{Value: value.FromObject(h.FunctionProto), Attrs: value.NonConfigurableReadonlyNonEnumerable})
	h.FunctionProto.DefineOwn("constructor", &value.Property{Value: value.FromObject(ctor), Attrs: value.NonEnumerable})
	defineGlobal(h, "Function", value.FromObject(ctor))

	method(h, h.FunctionProto, "call", 1, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		if !this.IsCallable() {
			return value.Undefined, value.NewThrow(h.NewError("TypeError", "Function.prototype.call called on non-callable"))
		}
		var callThis value.Value
		var rest []value.Value
		if len(args) > 0 {
			callThis, rest = args[0], args[1:]
		}
		return r.Call(this, callThis, rest)
	})

	method(h, h.FunctionProto, "apply", 2, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		if !this.IsCallable() {
			return value.Undefined, value.NewThrow(h.NewError("TypeError", "Function.prototype.apply called on non-callable"))
		}
		var callThis value.Value
		if len(args) > 0 {
			callThis = args[0]
		}
		var callArgs []value.Value
		if len(args) > 1 && args[1].IsObject() {
			lengthVal, _, _ := h.GetProperty(args[1], "length")
			n := uint32(value.ToNumber(lengthVal))
			callArgs = make([]value.Value, n)
			for i := uint32(0); i < n; i++ {
				v, _, _ := h.GetProperty(args[1], itoa(int(i)))
				callArgs[i] = v
			}
		}
		return r.Call(this, callThis, callArgs)
	})

	method(h, h.FunctionProto, "bind", 1, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		if !this.IsCallable() {
			return value.Undefined, value.NewThrow(h.NewError("TypeError", "Function.prototype.bind called on non-callable"))
		}
		var boundThis value.Value
		var boundArgs []value.Value
		if len(args) > 0 {
			boundThis, boundArgs = args[0], append([]value.Value{}, args[1:]...)
		}
		bound := value.NewRawObject("Function", h.FunctionProto)
		bound.FuncKind = value.FuncBound
		bound.BoundTarget = this
		bound.BoundThis = boundThis
		bound.BoundArgs = boundArgs
		bound.FuncID = h.NextFuncID()
		name := ""
		if p := this.AsObject().GetOwn("name"); p != nil {
			name = p.Value.AsString()
		}
		bound.DefineOwn("name", &value.Property{Value: value.String("bound " + name), Attrs: value.NonConfigurableReadonlyNonEnumerable})
		bound.IllegalConstructor = this.AsObject().IllegalConstructor
		return value.FromObject(bound), nil
	})

	method(h, h.FunctionProto, "toString", 0, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		if !this.IsObject() || !this.AsObject().IsCallable() {
			return value.Undefined, value.NewThrow(h.NewError("TypeError", "Function.prototype.toString called on non-callable"))
		}
		name := this.AsObject().FuncDisplayName
		return value.String("function " + name + "() { [native code] }"), nil
	})
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}
