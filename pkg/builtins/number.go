package builtins

import (
	"math"
	"strconv"

	"sandbox5/pkg/value"
)

// installNumber wires the Number constructor, its ES5 static
// constants, and Number.prototype (toString/toFixed/valueOf). The
// ES2015 additions (isInteger, isSafeInteger, EPSILON) are
// intentionally left out: this is an ES5 sandbox.
func installNumber(h *value.Heap, host Host) {
	ctor := h.NewNativeFunction("Number", 1, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		n := 0.0
		if len(args) > 0 {
			n = value.ToNumber(args[0])
		}
		if this.IsObject() && this.AsObject().Class == "Object" {
			obj := this.AsObject()
			obj.Class = "Number"
			obj.Data = n
			return value.FromObject(obj), nil
		}
		return value.Number(n), nil
	})
	ctor.DefineOwn("prototype", &value.Property{Value: value.FromObject(h.NumberProto), Attrs: value.NonConfigurableReadonlyNonEnumerable})
	h.NumberProto.DefineOwn("constructor", &value.Property{Value: value.FromObject(ctor), Attrs: value.NonEnumerable})
	defineGlobal(h, "Number", value.FromObject(ctor))

	constants := map[string]float64{
		"MAX_VALUE":         math.MaxFloat64,
		"MIN_VALUE":         5e-324,
		"NaN":               math.NaN(),
		"POSITIVE_INFINITY": math.Inf(1),
		"NEGATIVE_INFINITY": math.Inf(-1),
	}
	for name, v := range constants {
		ctor.DefineOwn(name, &value.Property{Value: value.Number(v), Attrs: value.NonConfigurableReadonlyNonEnumerable})
	}

	method(h, h.NumberProto, "valueOf", 0, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		n, thrown := thisNumber(h, this)
		return value.Number(n), thrown
	})

	method(h, h.NumberProto, "toString", 1, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		n, thrown := thisNumber(h, this)
		if thrown != nil {
			return value.Undefined, thrown
		}
		radix := 10
		if len(args) > 0 && !args[0].IsUndefined() {
			radix = int(value.ToNumber(args[0]))
		}
		if radix == 10 {
			return value.String(value.NumberToString(n)), nil
		}
		if radix < 2 || radix > 36 {
			return value.Undefined, value.NewThrow(h.NewError("RangeError", "toString() radix must be between 2 and 36"))
		}
		if math.IsNaN(n) {
			return value.String("NaN"), nil
		}
		neg := n < 0
		i := int64(math.Trunc(math.Abs(n)))
		s := strconv.FormatInt(i, radix)
		if neg {
			s = "-" + s
		}
		return value.String(s), nil
	})

	method(h, h.NumberProto, "toFixed", 1, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		n, thrown := thisNumber(h, this)
		if thrown != nil {
			return value.Undefined, thrown
		}
		digits := 0
		if len(args) > 0 {
			digits = int(value.ToNumber(args[0]))
		}
		if digits < 0 || digits > 100 {
			return value.Undefined, value.NewThrow(h.NewError("RangeError", "toFixed() digits argument must be between 0 and 100"))
		}
		if math.IsNaN(n) {
			return value.String("NaN"), nil
		}
		return value.String(strconv.FormatFloat(n, 'f', digits, 64)), nil
	})

	method(h, h.NumberProto, "toPrecision", 1, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		n, thrown := thisNumber(h, this)
		if thrown != nil {
			return value.Undefined, thrown
		}
		if len(args) == 0 || args[0].IsUndefined() {
			return value.String(value.NumberToString(n)), nil
		}
		prec := int(value.ToNumber(args[0]))
		return value.String(strconv.FormatFloat(n, 'g', prec, 64)), nil
	})
}

func thisNumber(h *value.Heap, this value.Value) (float64, *value.Throw) {
	if this.IsNumber() {
		return this.AsNumber(), nil
	}
	if this.IsObject() && this.AsObject().Class == "Number" {
		if n, ok := this.AsObject().Data.(float64); ok {
			return n, nil
		}
	}
	return 0, value.NewThrow(h.NewError("TypeError", "Number.prototype method called on incompatible receiver"))
}
