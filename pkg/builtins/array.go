package builtins

import (
	"sandbox5/pkg/value"
)

// installArray wires the Array constructor, Array.isArray, and
// Array.prototype's native methods. Array.prototype.sort is
// deliberately left to the in-language bubble-sort polyfill installed
// by Install (see arrayPolyfillSource) rather than implemented here
// in Go, so its comparator calls travel the same interpreted
// call path user code uses.
func installArray(h *value.Heap, host Host) {
	ctor := h.NewNativeFunction("Array", 1, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		if len(args) == 1 && args[0].IsNumber() {
			n := args[0].AsNumber()
			if n < 0 || n != float64(uint32(n)) {
				return value.Undefined, value.NewThrow(h.NewError("RangeError", "Invalid array length"))
			}
			arr := h.NewArray(nil)
			arr.ShrinkLength(uint32(n))
			return value.FromObject(arr), nil
		}
		return value.FromObject(h.NewArray(args)), nil
	})
	ctor.DefineOwn("prototype", &value.Property{Value: value.FromObject(h.ArrayProto), Attrs: value.NonConfigurableReadonlyNonEnumerable})
	h.ArrayProto.DefineOwn("constructor", &value.Property{Value: value.FromObject(ctor), Attrs: value.NonEnumerable})
	defineGlobal(h, "Array", value.FromObject(ctor))

	method(h, ctor, "isArray", 1, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		a := arg(args, 0)
		return value.Bool(a.IsObject() && a.AsObject().IsArray()), nil
	})

	method(h, h.ArrayProto, "push", 1, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		n := arrayLikeLength(h, this)
		for _, a := range args {
			h.SetProperty(this, itoa(int(n)), a, false)
			n++
		}
		h.SetProperty(this, "length", value.Number(float64(n)), false)
		return value.Number(float64(n)), nil
	})

	method(h, h.ArrayProto, "pop", 0, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		n := arrayLikeLength(h, this)
		if n == 0 {
			return value.Undefined, nil
		}
		v := mustGet(h, this, itoa(int(n-1)))
		if this.IsObject() && this.AsObject().IsArray() {
			this.AsObject().DeleteOwn(itoa(int(n - 1)))
			this.AsObject().ShrinkLength(n - 1)
		} else {
			h.SetProperty(this, "length", value.Number(float64(n-1)), false)
		}
		return v, nil
	})

	method(h, h.ArrayProto, "shift", 0, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		n := arrayLikeLength(h, this)
		if n == 0 {
			return value.Undefined, nil
		}
		first := mustGet(h, this, "0")
		for i := uint32(1); i < n; i++ {
			v := mustGet(h, this, itoa(int(i)))
			h.SetProperty(this, itoa(int(i-1)), v, false)
		}
		if this.IsObject() && this.AsObject().IsArray() {
			this.AsObject().ShrinkLength(n - 1)
		} else {
			h.SetProperty(this, "length", value.Number(float64(n-1)), false)
		}
		return first, nil
	})

	method(h, h.ArrayProto, "unshift", 1, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		n := arrayLikeLength(h, this)
		k := uint32(len(args))
		for i := n; i > 0; i-- {
			v := mustGet(h, this, itoa(int(i-1)))
			h.SetProperty(this, itoa(int(i-1+k)), v, false)
		}
		for i, a := range args {
			h.SetProperty(this, itoa(i), a, false)
		}
		h.SetProperty(this, "length", value.Number(float64(n+k)), false)
		return value.Number(float64(n + k)), nil
	})

	method(h, h.ArrayProto, "slice", 2, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		n := int(arrayLikeLength(h, this))
		start := relativeIndex(arg(args, 0), n, 0)
		end := relativeIndex(arg(args, 1), n, n)
		var out []value.Value
		for i := start; i < end; i++ {
			out = append(out, mustGet(h, this, itoa(i)))
		}
		return value.FromObject(h.NewArray(out)), nil
	})

	method(h, h.ArrayProto, "splice", 2, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		n := int(arrayLikeLength(h, this))
		start := relativeIndex(arg(args, 0), n, 0)
		deleteCount := n - start
		if len(args) > 1 {
			dc := int(value.ToNumber(args[1]))
			if dc < 0 {
				dc = 0
			}
			if dc > n-start {
				dc = n - start
			}
			deleteCount = dc
		}
		var inserted []value.Value
		if len(args) > 2 {
			inserted = args[2:]
		}
		var removed []value.Value
		for i := 0; i < deleteCount; i++ {
			removed = append(removed, mustGet(h, this, itoa(start+i)))
		}
		rest := make([]value.Value, 0, n-start-deleteCount)
		for i := start + deleteCount; i < n; i++ {
			rest = append(rest, mustGet(h, this, itoa(i)))
		}
		newLen := start + len(inserted) + len(rest)
		for i, v := range inserted {
			h.SetProperty(this, itoa(start+i), v, false)
		}
		for i, v := range rest {
			h.SetProperty(this, itoa(start+len(inserted)+i), v, false)
		}
		if this.IsObject() && this.AsObject().IsArray() {
			this.AsObject().ShrinkLength(uint32(newLen))
		} else {
			h.SetProperty(this, "length", value.Number(float64(newLen)), false)
		}
		return value.FromObject(h.NewArray(removed)), nil
	})

	method(h, h.ArrayProto, "concat", 1, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		var out []value.Value
		append1 := func(v value.Value) {
			if v.IsObject() && v.AsObject().IsArray() {
				n := v.AsObject().ArrayLength()
				for i := uint32(0); i < n; i++ {
					out = append(out, mustGet(h, v, itoa(int(i))))
				}
				return
			}
			out = append(out, v)
		}
		append1(this)
		for _, a := range args {
			append1(a)
		}
		return value.FromObject(h.NewArray(out)), nil
	})

	method(h, h.ArrayProto, "join", 1, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		sep := ","
		if len(args) > 0 && !args[0].IsUndefined() {
			sep = value.ToStringPrimitive(args[0])
		}
		n := int(arrayLikeLength(h, this))
		out := ""
		for i := 0; i < n; i++ {
			if i > 0 {
				out += sep
			}
			v := mustGet(h, this, itoa(i))
			if !v.IsNullOrUndefined() {
				s, thrown := toStringViaToString(r, h, v)
				if thrown != nil {
					return value.Undefined, thrown
				}
				out += s
			}
		}
		return value.String(out), nil
	})

	method(h, h.ArrayProto, "toString", 0, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		return r.Call(mustGet(h, this, "join"), this, nil)
	})

	method(h, h.ArrayProto, "reverse", 0, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		n := int(arrayLikeLength(h, this))
		for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
			vi := mustGet(h, this, itoa(i))
			vj := mustGet(h, this, itoa(j))
			h.SetProperty(this, itoa(i), vj, false)
			h.SetProperty(this, itoa(j), vi, false)
		}
		return this, nil
	})

	method(h, h.ArrayProto, "indexOf", 1, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		n := int(arrayLikeLength(h, this))
		target := arg(args, 0)
		start := 0
		if len(args) > 1 {
			start = relativeIndex(args[1], n, 0)
		}
		for i := start; i < n; i++ {
			if value.StrictEquals(mustGet(h, this, itoa(i)), target) {
				return value.Number(float64(i)), nil
			}
		}
		return value.Number(-1), nil
	})

	method(h, h.ArrayProto, "lastIndexOf", 1, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		n := int(arrayLikeLength(h, this))
		target := arg(args, 0)
		for i := n - 1; i >= 0; i-- {
			if value.StrictEquals(mustGet(h, this, itoa(i)), target) {
				return value.Number(float64(i)), nil
			}
		}
		return value.Number(-1), nil
	})

	method(h, h.ArrayProto, "forEach", 1, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		cb := arg(args, 0)
		cbThis := arg(args, 1)
		n := int(arrayLikeLength(h, this))
		for i := 0; i < n; i++ {
			v := mustGet(h, this, itoa(i))
			if _, thrown := r.Call(cb, cbThis, []value.Value{v, value.Number(float64(i)), this}); thrown != nil {
				return value.Undefined, thrown
			}
		}
		return value.Undefined, nil
	})

	method(h, h.ArrayProto, "map", 1, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		cb := arg(args, 0)
		cbThis := arg(args, 1)
		n := int(arrayLikeLength(h, this))
		out := make([]value.Value, n)
		for i := 0; i < n; i++ {
			v := mustGet(h, this, itoa(i))
			res, thrown := r.Call(cb, cbThis, []value.Value{v, value.Number(float64(i)), this})
			if thrown != nil {
				return value.Undefined, thrown
			}
			out[i] = res
		}
		return value.FromObject(h.NewArray(out)), nil
	})

	method(h, h.ArrayProto, "filter", 1, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		cb := arg(args, 0)
		cbThis := arg(args, 1)
		n := int(arrayLikeLength(h, this))
		var out []value.Value
		for i := 0; i < n; i++ {
			v := mustGet(h, this, itoa(i))
			res, thrown := r.Call(cb, cbThis, []value.Value{v, value.Number(float64(i)), this})
			if thrown != nil {
				return value.Undefined, thrown
			}
			if value.ToBoolean(res) {
				out = append(out, v)
			}
		}
		return value.FromObject(h.NewArray(out)), nil
	})

	method(h, h.ArrayProto, "some", 1, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		cb := arg(args, 0)
		cbThis := arg(args, 1)
		n := int(arrayLikeLength(h, this))
		for i := 0; i < n; i++ {
			v := mustGet(h, this, itoa(i))
			res, thrown := r.Call(cb, cbThis, []value.Value{v, value.Number(float64(i)), this})
			if thrown != nil {
				return value.Undefined, thrown
			}
			if value.ToBoolean(res) {
				return value.True, nil
			}
		}
		return value.False, nil
	})

	method(h, h.ArrayProto, "every", 1, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		cb := arg(args, 0)
		cbThis := arg(args, 1)
		n := int(arrayLikeLength(h, this))
		for i := 0; i < n; i++ {
			v := mustGet(h, this, itoa(i))
			res, thrown := r.Call(cb, cbThis, []value.Value{v, value.Number(float64(i)), this})
			if thrown != nil {
				return value.Undefined, thrown
			}
			if !value.ToBoolean(res) {
				return value.False, nil
			}
		}
		return value.True, nil
	})

	method(h, h.ArrayProto, "reduce", 1, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		return reduceArray(r, h, this, args, false)
	})

	method(h, h.ArrayProto, "reduceRight", 1, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		return reduceArray(r, h, this, args, true)
	})
}

func reduceArray(r value.Realm, h *value.Heap, this value.Value, args []value.Value, right bool) (value.Value, *value.Throw) {
	cb := arg(args, 0)
	n := int(arrayLikeLength(h, this))
	indices := make([]int, n)
	for i := range indices {
		if right {
			indices[i] = n - 1 - i
		} else {
			indices[i] = i
		}
	}
	var acc value.Value
	start := 0
	if len(args) > 1 {
		acc = args[1]
	} else {
		if n == 0 {
			return value.Undefined, value.NewThrow(h.NewError("TypeError", "Reduce of empty array with no initial value"))
		}
		acc = mustGet(h, this, itoa(indices[0]))
		start = 1
	}
	for _, i := range indices[start:] {
		v := mustGet(h, this, itoa(i))
		res, thrown := r.Call(cb, value.Undefined, []value.Value{acc, v, value.Number(float64(i)), this})
		if thrown != nil {
			return value.Undefined, thrown
		}
		acc = res
	}
	return acc, nil
}

func arrayLikeLength(h *value.Heap, v value.Value) uint32 {
	if v.IsObject() && v.AsObject().IsArray() {
		return v.AsObject().ArrayLength()
	}
	lv, _, _ := h.GetProperty(v, "length")
	return uint32(value.ToNumber(lv))
}

// relativeIndex implements the ToIntegerOrInfinity-then-clamp rule
// shared by slice/splice/indexOf's start arguments (ES5 §15.4.4.10 &co).
func relativeIndex(v value.Value, length int, def int) int {
	if v.IsUndefined() {
		return def
	}
	n := int(value.ToNumber(v))
	if n < 0 {
		n += length
	}
	if n < 0 {
		n = 0
	}
	if n > length {
		n = length
	}
	return n
}

func toStringViaToString(r value.Realm, h *value.Heap, v value.Value) (string, *value.Throw) {
	if !v.IsObject() {
		return value.ToStringPrimitive(v), nil
	}
	toStr := mustGet(h, v, "toString")
	if !toStr.IsCallable() {
		return value.ToStringPrimitive(v), nil
	}
	res, thrown := r.Call(toStr, v, nil)
	if thrown != nil {
		return "", thrown
	}
	return value.ToStringPrimitive(res), nil
}
