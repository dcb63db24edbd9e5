package builtins

import (
	"strconv"

	"sandbox5/pkg/value"
)

// installObject wires the Object constructor, its static methods, and
// Object.prototype, building the descriptor-composition statics
// (defineProperty/getOwnPropertyDescriptor) directly on
// Heap.DefineProperty.
func installObject(h *value.Heap, host Host) {
	ctor := h.NewNativeFunction("Object", 1, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		a := arg(args, 0)
		if a.IsNullOrUndefined() || len(args) == 0 {
			return value.FromObject(h.NewObject("Object", h.ObjectProto)), nil
		}
		if a.IsObject() {
			return a, nil
		}
		return boxPrimitive(h, a), nil
	})
	ctor.DefineOwn("prototype", &value.Property{Value: value.FromObject(h.ObjectProto), Attrs: value.NonConfigurableReadonlyNonEnumerable})
	h.ObjectProto.DefineOwn("constructor", &value.Property{Value: value.FromObject(ctor), Attrs: value.NonEnumerable})
	defineGlobal(h, "Object", value.FromObject(ctor))

	method(h, ctor, "keys", 1, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		o := arg(args, 0)
		if !o.IsObject() {
			return value.Undefined, value.NewThrow(h.NewError("TypeError", "Object.keys called on non-object"))
		}
		var keys []value.Value
		for _, k := range o.AsObject().OwnKeys() {
			if p := o.AsObject().GetOwn(k); p != nil && p.Attrs.Enumerable {
				keys = append(keys, value.String(k))
			}
		}
		return value.FromObject(h.NewArray(keys)), nil
	})

	method(h, ctor, "getOwnPropertyNames", 1, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		o := arg(args, 0)
		if !o.IsObject() {
			return value.Undefined, value.NewThrow(h.NewError("TypeError", "Object.getOwnPropertyNames called on non-object"))
		}
		var keys []value.Value
		for _, k := range o.AsObject().OwnKeys() {
			keys = append(keys, value.String(k))
		}
		return value.FromObject(h.NewArray(keys)), nil
	})

	method(h, ctor, "create", 2, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		protoVal := arg(args, 0)
		var proto *value.Object
		if protoVal.IsObject() {
			proto = protoVal.AsObject()
		} else if !protoVal.IsNull() {
			return value.Undefined, value.NewThrow(h.NewError("TypeError", "Object prototype may only be an Object or null"))
		}
		obj := h.NewObject("Object", proto)
		if len(args) > 1 && args[1].IsObject() {
			if thrown := applyPropertiesObject(h, obj, args[1].AsObject()); thrown != nil {
				return value.Undefined, thrown
			}
		}
		return value.FromObject(obj), nil
	})

	method(h, ctor, "getPrototypeOf", 1, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		o := arg(args, 0)
		if !o.IsObject() {
			return value.Undefined, value.NewThrow(h.NewError("TypeError", "Object.getPrototypeOf called on non-object"))
		}
		return value.FromObject(o.AsObject().Proto()), nil
	})

	method(h, ctor, "defineProperty", 3, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		o := arg(args, 0)
		if !o.IsObject() {
			return value.Undefined, value.NewThrow(h.NewError("TypeError", "Object.defineProperty called on non-object"))
		}
		name := value.ToStringPrimitive(arg(args, 1))
		desc := arg(args, 2)
		if !desc.IsObject() {
			return value.Undefined, value.NewThrow(h.NewError("TypeError", "Property description must be an object"))
		}
		input, thrown := descriptorInputFromObject(h, desc.AsObject())
		if thrown != nil {
			return value.Undefined, thrown
		}
		if thrown := h.DefineProperty(o.AsObject(), name, input); thrown != nil {
			return value.Undefined, thrown
		}
		return o, nil
	})

	method(h, ctor, "defineProperties", 2, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		o := arg(args, 0)
		props := arg(args, 1)
		if !o.IsObject() || !props.IsObject() {
			return value.Undefined, value.NewThrow(h.NewError("TypeError", "Object.defineProperties called on non-object"))
		}
		if thrown := applyPropertiesObject(h, o.AsObject(), props.AsObject()); thrown != nil {
			return value.Undefined, thrown
		}
		return o, nil
	})

	method(h, ctor, "getOwnPropertyDescriptor", 2, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		o := arg(args, 0)
		if !o.IsObject() {
			return value.Undefined, value.NewThrow(h.NewError("TypeError", "Object.getOwnPropertyDescriptor called on non-object"))
		}
		p := o.AsObject().GetOwn(value.ToStringPrimitive(arg(args, 1)))
		if p == nil {
			return value.Undefined, nil
		}
		desc := h.NewObject("Object", h.ObjectProto)
		if p.IsAccessor() {
			desc.DefineOwn("get", &value.Property{Value: value.FromObject(p.Getter), Attrs: value.Plain})
			desc.DefineOwn("set", &value.Property{Value: value.FromObject(p.Setter), Attrs: value.Plain})
		} else {
			desc.DefineOwn("value", &value.Property{Value: p.Value, Attrs: value.Plain})
			desc.DefineOwn("writable", &value.Property{Value: value.Bool(p.Attrs.Writable), Attrs: value.Plain})
		}
		desc.DefineOwn("enumerable", &value.Property{Value: value.Bool(p.Attrs.Enumerable), Attrs: value.Plain})
		desc.DefineOwn("configurable", &value.Property{Value: value.Bool(p.Attrs.Configurable), Attrs: value.Plain})
		return value.FromObject(desc), nil
	})

	method(h, ctor, "freeze", 1, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		o := arg(args, 0)
		if !o.IsObject() {
			return o, nil
		}
		obj := o.AsObject()
		obj.Extensible = false
		for _, k := range obj.OwnKeys() {
			p := obj.GetOwn(k)
			p.Attrs.Writable = false
			p.Attrs.Configurable = false
		}
		return o, nil
	})

	method(h, ctor, "preventExtensions", 1, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		o := arg(args, 0)
		if o.IsObject() {
			o.AsObject().Extensible = false
		}
		return o, nil
	})

	method(h, ctor, "isExtensible", 1, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		o := arg(args, 0)
		return value.Bool(o.IsObject() && o.AsObject().Extensible), nil
	})

	method(h, ctor, "seal", 1, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		o := arg(args, 0)
		if !o.IsObject() {
			return o, nil
		}
		obj := o.AsObject()
		obj.Extensible = false
		for _, k := range obj.OwnKeys() {
			obj.GetOwn(k).Attrs.Configurable = false
		}
		return o, nil
	})

	method(h, ctor, "isSealed", 1, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		o := arg(args, 0)
		if !o.IsObject() {
			return value.True, nil
		}
		obj := o.AsObject()
		if obj.Extensible {
			return value.False, nil
		}
		for _, k := range obj.OwnKeys() {
			if obj.GetOwn(k).Attrs.Configurable {
				return value.False, nil
			}
		}
		return value.True, nil
	})

	method(h, ctor, "isFrozen", 1, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		o := arg(args, 0)
		if !o.IsObject() {
			return value.True, nil
		}
		obj := o.AsObject()
		if obj.Extensible {
			return value.False, nil
		}
		for _, k := range obj.OwnKeys() {
			p := obj.GetOwn(k)
			if p.Attrs.Writable || p.Attrs.Configurable {
				return value.False, nil
			}
		}
		return value.True, nil
	})

	// --- Object.prototype --------------------------------------------------

	method(h, h.ObjectProto, "hasOwnProperty", 1, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		if this.IsString() {
			_, ok := stringIndexOrLength(this.AsString(), value.ToStringPrimitive(arg(args, 0)))
			return value.Bool(ok), nil
		}
		if !this.IsObject() {
			return value.False, nil
		}
		return value.Bool(this.AsObject().HasOwn(value.ToStringPrimitive(arg(args, 0)))), nil
	})

	method(h, h.ObjectProto, "isPrototypeOf", 1, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		o := arg(args, 0)
		if !o.IsObject() || !this.IsObject() {
			return value.False, nil
		}
		for cur := o.AsObject().Proto(); cur != nil; cur = cur.Proto() {
			if cur == this.AsObject() {
				return value.True, nil
			}
		}
		return value.False, nil
	})

	method(h, h.ObjectProto, "propertyIsEnumerable", 1, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		if !this.IsObject() {
			return value.False, nil
		}
		p := this.AsObject().GetOwn(value.ToStringPrimitive(arg(args, 0)))
		return value.Bool(p != nil && p.Attrs.Enumerable), nil
	})

	method(h, h.ObjectProto, "toString", 0, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		class := "Object"
		if this.IsObject() {
			class = this.AsObject().Class
		} else if this.IsNullOrUndefined() {
			class = map[bool]string{true: "Null", false: "Undefined"}[this.IsNull()]
		}
		return value.String("[object " + class + "]"), nil
	})

	method(h, h.ObjectProto, "toLocaleString", 0, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		return r.Call(mustGet(h, this, "toString"), this, nil)
	})

	method(h, h.ObjectProto, "valueOf", 0, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		return this, nil
	})
}

// applyPropertiesObject implements the shared core of Object.create's
// second argument and Object.defineProperties: each own enumerable key
// of props is itself a property-descriptor object.
func applyPropertiesObject(h *value.Heap, target *value.Object, props *value.Object) *value.Throw {
	for _, k := range props.OwnKeys() {
		p := props.GetOwn(k)
		if p == nil || !p.Attrs.Enumerable || !p.Value.IsObject() {
			continue
		}
		input, thrown := descriptorInputFromObject(h, p.Value.AsObject())
		if thrown != nil {
			return thrown
		}
		if thrown := h.DefineProperty(target, k, input); thrown != nil {
			return thrown
		}
	}
	return nil
}

func descriptorInputFromObject(h *value.Heap, desc *value.Object) (value.PropDescriptorInput, *value.Throw) {
	var in value.PropDescriptorInput
	if p := desc.GetOwn("value"); p != nil {
		in.HasValue, in.Value = true, p.Value
	}
	if p := desc.GetOwn("writable"); p != nil {
		in.HasWritable, in.Writable = true, value.ToBoolean(p.Value)
	}
	if p := desc.GetOwn("enumerable"); p != nil {
		in.HasEnumerable, in.Enumerable = true, value.ToBoolean(p.Value)
	}
	if p := desc.GetOwn("configurable"); p != nil {
		in.HasConfigurable, in.Configurable = true, value.ToBoolean(p.Value)
	}
	if p := desc.GetOwn("get"); p != nil {
		if !p.Value.IsObject() || !p.Value.IsCallable() {
			return in, value.NewThrow(h.NewError("TypeError", "Getter must be a function"))
		}
		in.HasGet, in.Get = true, p.Value.AsObject()
	}
	if p := desc.GetOwn("set"); p != nil {
		if !p.Value.IsObject() || !p.Value.IsCallable() {
			return in, value.NewThrow(h.NewError("TypeError", "Setter must be a function"))
		}
		in.HasSet, in.Set = true, p.Value.AsObject()
	}
	return in, nil
}

func boxPrimitive(h *value.Heap, v value.Value) value.Value {
	switch v.Kind() {
	case value.KindString:
		o := h.NewObject("String", h.StringProto)
		o.Data = v.AsString()
		return value.FromObject(o)
	case value.KindNumber:
		o := h.NewObject("Number", h.NumberProto)
		o.Data = v.AsNumber()
		return value.FromObject(o)
	case value.KindBoolean:
		o := h.NewObject("Boolean", h.BooleanProto)
		o.Data = v.AsBoolean()
		return value.FromObject(o)
	}
	return v
}

// mustGet reads an own-or-inherited data property without going
// through the accessor re-entry protocol: when the property is an
// accessor its getter is not called and the result is undefined. This
// applies to every caller, including those reading user array elements
// and JSON values.
func mustGet(h *value.Heap, recv value.Value, name string) value.Value {
	v, _, _ := h.GetProperty(recv, name)
	return v
}

func stringIndexOrLength(s, name string) (value.Value, bool) {
	runes := []rune(s)
	if name == "length" {
		return value.Int(len(runes)), true
	}
	if idx, err := strconv.Atoi(name); err == nil && idx >= 0 && idx < len(runes) {
		return value.String(string(runes[idx])), true
	}
	return value.Undefined, false
}
