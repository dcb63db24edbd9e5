package builtins

import (
	"time"

	"sandbox5/pkg/value"
)

// installDate wires the Date constructor and Date.prototype, storing
// the interpreted object's timestamp as a time.Time in its Data slot
// (consistent with interp.Interpreter.dateObjectFrom, which the
// bridge uses when lifting a host time.Time into the interpreted
// world).
func installDate(h *value.Heap, host Host) {
	ctor := h.NewNativeFunction("Date", 7, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		t, thrown := dateFromArgs(h, args)
		if thrown != nil {
			return value.Undefined, thrown
		}
		var obj *value.Object
		if this.IsObject() && this.AsObject().Class == "Object" {
			obj = this.AsObject()
			obj.Class = "Date"
		} else {
			obj = h.NewObject("Date", h.DateProto)
		}
		obj.Data = t
		return value.FromObject(obj), nil
	})
	ctor.DefineOwn("prototype", &value.Property{Value: value.FromObject(h.DateProto), Attrs: value.NonConfigurableReadonlyNonEnumerable})
	h.DateProto.DefineOwn("constructor", &value.Property{Value: value.FromObject(ctor), Attrs: value.NonEnumerable})
	defineGlobal(h, "Date", value.FromObject(ctor))

	method(h, ctor, "now", 0, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		return value.Number(float64(nowFunc().UnixNano() / int64(time.Millisecond))), nil
	})

	method(h, ctor, "parse", 1, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		s := value.ToStringPrimitive(arg(args, 0))
		t, err := parseDateString(s)
		if err != nil {
			return value.Number(nan()), nil
		}
		return value.Number(float64(t.UnixNano() / int64(time.Millisecond))), nil
	})

	getter := func(name string, fn func(time.Time) float64) {
		method(h, h.DateProto, name, 0, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
			t, thrown := thisDate(h, this)
			if thrown != nil {
				return value.Undefined, thrown
			}
			return value.Number(fn(t)), nil
		})
	}
	getter("getTime", func(t time.Time) float64 { return float64(t.UnixNano() / int64(time.Millisecond)) })
	getter("valueOf", func(t time.Time) float64 { return float64(t.UnixNano() / int64(time.Millisecond)) })
	getter("getFullYear", func(t time.Time) float64 { return float64(t.Year()) })
	getter("getUTCFullYear", func(t time.Time) float64 { return float64(t.UTC().Year()) })
	getter("getMonth", func(t time.Time) float64 { return float64(t.Month() - 1) })
	getter("getUTCMonth", func(t time.Time) float64 { return float64(t.UTC().Month() - 1) })
	getter("getDate", func(t time.Time) float64 { return float64(t.Day()) })
	getter("getUTCDate", func(t time.Time) float64 { return float64(t.UTC().Day()) })
	getter("getDay", func(t time.Time) float64 { return float64(t.Weekday()) })
	getter("getUTCDay", func(t time.Time) float64 { return float64(t.UTC().Weekday()) })
	getter("getHours", func(t time.Time) float64 { return float64(t.Hour()) })
	getter("getUTCHours", func(t time.Time) float64 { return float64(t.UTC().Hour()) })
	getter("getMinutes", func(t time.Time) float64 { return float64(t.Minute()) })
	getter("getUTCMinutes", func(t time.Time) float64 { return float64(t.UTC().Minute()) })
	getter("getSeconds", func(t time.Time) float64 { return float64(t.Second()) })
	getter("getUTCSeconds", func(t time.Time) float64 { return float64(t.UTC().Second()) })
	getter("getMilliseconds", func(t time.Time) float64 { return float64(t.Nanosecond() / int(time.Millisecond)) })
	getter("getUTCMilliseconds", func(t time.Time) float64 { return float64(t.UTC().Nanosecond() / int(time.Millisecond)) })
	getter("getTimezoneOffset", func(t time.Time) float64 {
		_, offset := t.Zone()
		return float64(-offset / 60)
	})

	setter := func(name string, fn func(time.Time, []value.Value) time.Time) {
		method(h, h.DateProto, name, 1, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
			if !this.IsObject() || this.AsObject().Class != "Date" {
				return value.Undefined, value.NewThrow(h.NewError("TypeError", "Date.prototype method called on incompatible receiver"))
			}
			t, thrown := thisDate(h, this)
			if thrown != nil {
				return value.Undefined, thrown
			}
			t = fn(t, args)
			this.AsObject().Data = t
			return value.Number(float64(t.UnixNano() / int64(time.Millisecond))), nil
		})
	}
	setter("setTime", func(t time.Time, args []value.Value) time.Time {
		ms := value.ToNumber(arg(args, 0))
		return time.Unix(0, int64(ms)*int64(time.Millisecond)).UTC()
	})
	setter("setFullYear", func(t time.Time, args []value.Value) time.Time {
		y := int(value.ToNumber(arg(args, 0)))
		return time.Date(y, t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	})
	setter("setMonth", func(t time.Time, args []value.Value) time.Time {
		m := int(value.ToNumber(arg(args, 0)))
		return time.Date(t.Year(), time.Month(m+1), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	})
	setter("setDate", func(t time.Time, args []value.Value) time.Time {
		d := int(value.ToNumber(arg(args, 0)))
		return time.Date(t.Year(), t.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	})
	setter("setHours", func(t time.Time, args []value.Value) time.Time {
		hh := int(value.ToNumber(arg(args, 0)))
		return time.Date(t.Year(), t.Month(), t.Day(), hh, t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	})
	setter("setMinutes", func(t time.Time, args []value.Value) time.Time {
		mm := int(value.ToNumber(arg(args, 0)))
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), mm, t.Second(), t.Nanosecond(), t.Location())
	})
	setter("setSeconds", func(t time.Time, args []value.Value) time.Time {
		ss := int(value.ToNumber(arg(args, 0)))
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), ss, t.Nanosecond(), t.Location())
	})
	setter("setMilliseconds", func(t time.Time, args []value.Value) time.Time {
		msec := int(value.ToNumber(arg(args, 0)))
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), msec*int(time.Millisecond), t.Location())
	})

	method(h, h.DateProto, "toISOString", 0, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		t, thrown := thisDate(h, this)
		if thrown != nil {
			return value.Undefined, thrown
		}
		return value.String(t.UTC().Format("2006-01-02T15:04:05.000Z")), nil
	})

	method(h, h.DateProto, "toJSON", 0, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		return r.Call(mustGet(h, this, "toISOString"), this, nil)
	})

	method(h, h.DateProto, "toString", 0, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		t, thrown := thisDate(h, this)
		if thrown != nil {
			return value.Undefined, thrown
		}
		return value.String(t.Format("Mon Jan 02 2006 15:04:05 GMT-0700 (MST)")), nil
	})
	method(h, h.DateProto, "toDateString", 0, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		t, thrown := thisDate(h, this)
		if thrown != nil {
			return value.Undefined, thrown
		}
		return value.String(t.Format("Mon Jan 02 2006")), nil
	})
	method(h, h.DateProto, "toTimeString", 0, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		t, thrown := thisDate(h, this)
		if thrown != nil {
			return value.Undefined, thrown
		}
		return value.String(t.Format("15:04:05 GMT-0700 (MST)")), nil
	})
}

// nowFunc is indirected so tests can substitute a fixed clock without
// the evaluator ever calling time.Now() through an untestable path.
var nowFunc = time.Now

func thisDate(h *value.Heap, this value.Value) (time.Time, *value.Throw) {
	if this.IsObject() && this.AsObject().Class == "Date" {
		if t, ok := this.AsObject().Data.(time.Time); ok {
			return t, nil
		}
	}
	return time.Time{}, value.NewThrow(h.NewError("TypeError", "Date.prototype method called on incompatible receiver"))
}

func dateFromArgs(h *value.Heap, args []value.Value) (time.Time, *value.Throw) {
	switch len(args) {
	case 0:
		return nowFunc(), nil
	case 1:
		if args[0].IsString() {
			t, err := parseDateString(args[0].AsString())
			if err != nil {
				return time.Time{}, value.NewThrow(h.NewError("Error", "Invalid Date"))
			}
			return t, nil
		}
		ms := value.ToNumber(args[0])
		return time.Unix(0, int64(ms)*int64(time.Millisecond)).UTC(), nil
	default:
		get := func(i int, def int) int {
			if i < len(args) {
				return int(value.ToNumber(args[i]))
			}
			return def
		}
		year := get(0, 1970)
		if year >= 0 && year <= 99 {
			year += 1900
		}
		month := get(1, 0)
		day := get(2, 1)
		hour := get(3, 0)
		min := get(4, 0)
		sec := get(5, 0)
		msec := get(6, 0)
		return time.Date(year, time.Month(month+1), day, hour, min, sec, msec*int(time.Millisecond), time.UTC), nil
	}
}

func parseDateString(s string) (time.Time, error) {
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05.000Z",
		"2006-01-02",
		"Mon Jan 02 2006 15:04:05 GMT-0700 (MST)",
		time.RFC1123,
	}
	var lastErr error
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}
	return time.Time{}, lastErr
}
