package builtins

import "sandbox5/pkg/value"

// installBoolean wires the Boolean constructor and Boolean.prototype.
func installBoolean(h *value.Heap, host Host) {
	ctor := h.NewNativeFunction("Boolean", 1, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		b := value.ToBoolean(arg(args, 0))
		if this.IsObject() && this.AsObject().Class == "Object" {
			obj := this.AsObject()
			obj.Class = "Boolean"
			obj.Data = b
			return value.FromObject(obj), nil
		}
		return value.Bool(b), nil
	})
	ctor.DefineOwn("prototype", &value.Property{Value: value.FromObject(h.BooleanProto), Attrs: value.NonConfigurableReadonlyNonEnumerable})
	h.BooleanProto.DefineOwn("constructor", &value.Property{Value: value.FromObject(ctor), Attrs: value.NonEnumerable})
	defineGlobal(h, "Boolean", value.FromObject(ctor))

	method(h, h.BooleanProto, "valueOf", 0, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		b, thrown := thisBoolean(h, this)
		return value.Bool(b), thrown
	})

	method(h, h.BooleanProto, "toString", 0, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		b, thrown := thisBoolean(h, this)
		if thrown != nil {
			return value.Undefined, thrown
		}
		return value.String(value.ToStringPrimitive(value.Bool(b))), nil
	})
}

func thisBoolean(h *value.Heap, this value.Value) (bool, *value.Throw) {
	if this.IsBoolean() {
		return this.AsBoolean(), nil
	}
	if this.IsObject() && this.AsObject().Class == "Boolean" {
		if b, ok := this.AsObject().Data.(bool); ok {
			return b, nil
		}
	}
	return false, value.NewThrow(h.NewError("TypeError", "Boolean.prototype method called on incompatible receiver"))
}
