package value

import (
	"math"
	"testing"
)

func TestToBoolean(t *testing.T) {
	cases := []struct {
		name string
		v    Value
		want bool
	}{
		{"undefined", Undefined, false},
		{"null", Null, false},
		{"false", False, false},
		{"true", True, true},
		{"zero", Number(0), false},
		{"negZero", Number(math.Copysign(0, -1)), false},
		{"nan", Number(math.NaN()), false},
		{"one", Number(1), true},
		{"emptyString", String(""), false},
		{"nonEmptyString", String("a"), true},
		{"object", FromObject(NewRawObject("Object", nil)), true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := ToBoolean(c.v); got != c.want {
				t.Errorf("ToBoolean(%v) = %v, want %v", c.v, got, c.want)
			}
		})
	}
}

func TestToNumber(t *testing.T) {
	cases := []struct {
		name string
		v    Value
		want float64
	}{
		{"undefined", Undefined, math.NaN()},
		{"null", Null, 0},
		{"true", True, 1},
		{"false", False, 0},
		{"number", Number(42), 42},
		{"numericString", String("  3.5  "), 3.5},
		{"hexString", String("0x1F"), 31},
		{"emptyString", String(""), 0},
		{"garbageString", String("abc"), math.NaN()},
		{"infinityString", String("Infinity"), math.Inf(1)},
		{"negInfinityString", String("-Infinity"), math.Inf(-1)},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := ToNumber(c.v)
			if math.IsNaN(c.want) {
				if !math.IsNaN(got) {
					t.Errorf("ToNumber(%v) = %v, want NaN", c.v, got)
				}
				return
			}
			if got != c.want {
				t.Errorf("ToNumber(%v) = %v, want %v", c.v, got, c.want)
			}
		})
	}
}

func TestNumberToString(t *testing.T) {
	cases := []struct {
		n    float64
		want string
	}{
		{0, "0"},
		{math.Copysign(0, -1), "0"},
		{math.NaN(), "NaN"},
		{math.Inf(1), "Infinity"},
		{math.Inf(-1), "-Infinity"},
		{123, "123"},
		{1.5, "1.5"},
		{1e21, "1e+21"},
		{1e-7, "1e-7"},
	}
	for _, c := range cases {
		if got := NumberToString(c.n); got != c.want {
			t.Errorf("NumberToString(%v) = %q, want %q", c.n, got, c.want)
		}
	}
}

func TestSameValueVsStrictEquals(t *testing.T) {
	nan := Number(math.NaN())
	if !SameValue(nan, nan) {
		t.Error("SameValue(NaN, NaN) should be true")
	}
	if StrictEquals(nan, nan) {
		t.Error("StrictEquals(NaN, NaN) should be false")
	}

	zero := Number(0)
	negZero := Number(math.Copysign(0, -1))
	if SameValue(zero, negZero) {
		t.Error("SameValue(+0, -0) should be false")
	}
	if !StrictEquals(zero, negZero) {
		t.Error("StrictEquals(+0, -0) should be true")
	}
}

func TestTypeOf(t *testing.T) {
	fn := NewRawObject("Function", nil)
	fn.FuncKind = FuncNative
	cases := []struct {
		name string
		v    Value
		want string
	}{
		{"undefined", Undefined, "undefined"},
		{"null", Null, "object"},
		{"bool", True, "boolean"},
		{"number", Number(1), "number"},
		{"string", String("x"), "string"},
		{"object", FromObject(NewRawObject("Object", nil)), "object"},
		{"function", FromObject(fn), "function"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := TypeOf(c.v); got != c.want {
				t.Errorf("TypeOf(%s) = %q, want %q", c.name, got, c.want)
			}
		})
	}
}

func TestToInt32AndToUint32(t *testing.T) {
	if ToInt32(math.NaN()) != 0 {
		t.Error("ToInt32(NaN) should be 0")
	}
	if ToInt32(4294967296) != 0 {
		t.Errorf("ToInt32(2^32) should wrap to 0, got %d", ToInt32(4294967296))
	}
	if ToInt32(-1) != -1 {
		t.Errorf("ToInt32(-1) = %d, want -1", ToInt32(-1))
	}
	if ToUint32(-1) != 4294967295 {
		t.Errorf("ToUint32(-1) = %d, want 4294967295", ToUint32(-1))
	}
}
