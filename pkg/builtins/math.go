package builtins

import (
	"math"
	"math/rand"

	"sandbox5/pkg/value"
)

// installMath wires the Math object with exactly the ES5 §15.8
// surface (constants plus abs/acos/asin/atan/atan2/ceil/cos/exp/
// floor/log/max/min/pow/random/round/sin/sqrt/tan). The ES2015
// additions (cbrt, clz32, fround, hypot, imul, log2, log10, log1p,
// expm1, the hyperbolic family, sign, trunc) are deliberately absent:
// this is an ES5 sandbox.
func installMath(h *value.Heap, host Host) {
	m := h.NewObject("Object", h.ObjectProto)
	defineGlobal(h, "Math", value.FromObject(m))

	constants := map[string]float64{
		"E":       math.E,
		"LN10":    math.Log(10),
		"LN2":     math.Log(2),
		"LOG2E":   1 / math.Log(2),
		"LOG10E":  1 / math.Log(10),
		"PI":      math.Pi,
		"SQRT1_2": math.Sqrt(0.5),
		"SQRT2":   math.Sqrt2,
	}
	for name, v := range constants {
		m.DefineOwn(name, &value.Property{Value: value.Number(v), Attrs: value.NonConfigurableReadonlyNonEnumerable})
	}

	unary := func(name string, fn func(float64) float64) {
		method(h, m, name, 1, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
			return value.Number(fn(value.ToNumber(arg(args, 0)))), nil
		})
	}
	unary("abs", math.Abs)
	unary("acos", math.Acos)
	unary("asin", math.Asin)
	unary("atan", math.Atan)
	unary("ceil", math.Ceil)
	unary("cos", math.Cos)
	unary("exp", math.Exp)
	unary("floor", math.Floor)
	unary("log", math.Log)
	unary("sin", math.Sin)
	unary("sqrt", math.Sqrt)
	unary("tan", math.Tan)
	unary("round", func(n float64) float64 {
		if math.IsNaN(n) {
			return n
		}
		return math.Floor(n + 0.5)
	})

	method(h, m, "atan2", 2, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		return value.Number(math.Atan2(value.ToNumber(arg(args, 0)), value.ToNumber(arg(args, 1)))), nil
	})

	method(h, m, "pow", 2, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		return value.Number(math.Pow(value.ToNumber(arg(args, 0)), value.ToNumber(arg(args, 1)))), nil
	})

	method(h, m, "max", 2, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		best := math.Inf(-1)
		for _, a := range args {
			n := value.ToNumber(a)
			if math.IsNaN(n) {
				return value.Number(math.NaN()), nil
			}
			if n > best {
				best = n
			}
		}
		return value.Number(best), nil
	})

	method(h, m, "min", 2, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		best := math.Inf(1)
		for _, a := range args {
			n := value.ToNumber(a)
			if math.IsNaN(n) {
				return value.Number(math.NaN()), nil
			}
			if n < best {
				best = n
			}
		}
		return value.Number(best), nil
	})

	method(h, m, "random", 0, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		return value.Number(rand.Float64()), nil
	})
}
