// Package bridge implements the bidirectional host<->interpreted
// value conversion: walk with reflect, special-case time.Time and
// *regexp.Regexp, recurse into maps, slices, and structs.
package bridge

import (
	"reflect"
	"regexp"
	"time"

	"sandbox5/pkg/value"
)

// Bridge owns the heap it converts values into and out of, plus the
// cycle-tracking state pseudoToNative needs.
type Bridge struct {
	Heap *value.Heap
	// Call is used by createNativeFunction wrappers to invoke an
	// interpreted function from host Go code; it is filled in by the
	// evaluator (pkg/interp) after construction to avoid an import
	// cycle between bridge and interp.
	Call func(fn value.Value, this value.Value, args []value.Value) (value.Value, *value.Throw)

	// DateFactory / RegExpFactory let pkg/builtins hand this Bridge
	// proper constructors once the global object graph exists, since
	// bridge must not import builtins (builtins imports bridge).
	DateFactory   func(t time.Time) *value.Object
	RegExpFactory func(source, flags string) *value.Object
}

func New(h *value.Heap) *Bridge {
	return &Bridge{Heap: h}
}

// nativeSeen tracks host objects already converted during one
// nativeToPseudo call so identical Go pointers become the same
// interpreted object, and so true cycles are detected and rejected
// rather than looping forever.
type nativeSeen struct {
	ptrs []uintptr
	vals []value.Value
	// active marks pointers currently being converted (on the call
	// stack), as opposed to already-finished ones — used to detect a
	// true cycle rather than merely revisiting a shared substructure.
	active map[uintptr]bool
}

// NativeToPseudo converts a host Go value into an interpreted Value.
// Panics with a *value.Throw-carrying error are
// not used; a cycle is instead reported by returning a plain Go error
// (*cycleError) via the second return.
func (b *Bridge) NativeToPseudo(v interface{}) (value.Value, error) {
	seen := &nativeSeen{active: make(map[uintptr]bool)}
	return b.nativeToPseudo(reflect.ValueOf(v), seen)
}

func (b *Bridge) nativeToPseudo(rv reflect.Value, seen *nativeSeen) (value.Value, error) {
	if !rv.IsValid() {
		return value.Undefined, nil
	}

	switch rv.Kind() {
	case reflect.Interface:
		if rv.IsNil() {
			return value.Undefined, nil
		}
		return b.nativeToPseudo(rv.Elem(), seen)
	case reflect.Ptr:
		if rv.IsNil() {
			return value.Null, nil
		}
		return b.nativeToPseudoPtr(rv, seen)
	case reflect.Bool:
		return value.Bool(rv.Bool()), nil
	case reflect.String:
		return value.String(rv.String()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return value.Number(float64(rv.Int())), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return value.Number(float64(rv.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return value.Number(rv.Float()), nil
	case reflect.Slice, reflect.Array:
		return b.nativeSliceToPseudo(rv, seen)
	case reflect.Map:
		return b.nativeMapToPseudo(rv, seen)
	case reflect.Struct:
		if t, ok := rv.Interface().(time.Time); ok {
			return value.FromObject(b.dateObject(t)), nil
		}
		return b.nativeStructToPseudo(rv, seen)
	case reflect.Func:
		return value.FromObject(b.wrapHostFunc(rv)), nil
	default:
		return value.Undefined, nil
	}
}

func (b *Bridge) nativeToPseudoPtr(rv reflect.Value, seen *nativeSeen) (value.Value, error) {
	if re, ok := rv.Interface().(*regexp.Regexp); ok {
		return value.FromObject(b.regexpObject(re.String(), "")), nil
	}
	ptr := rv.Pointer()
	if seen.active[ptr] {
		return value.Undefined, &cycleError{}
	}
	for i, p := range seen.ptrs {
		if p == ptr {
			return seen.vals[i], nil
		}
	}
	seen.active[ptr] = true
	defer delete(seen.active, ptr)
	v, err := b.nativeToPseudo(rv.Elem(), seen)
	if err != nil {
		return value.Undefined, err
	}
	if v.IsObject() {
		seen.ptrs = append(seen.ptrs, ptr)
		seen.vals = append(seen.vals, v)
	}
	return v, nil
}

func (b *Bridge) nativeSliceToPseudo(rv reflect.Value, seen *nativeSeen) (value.Value, error) {
	elems := make([]value.Value, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		v, err := b.nativeToPseudo(rv.Index(i), seen)
		if err != nil {
			return value.Undefined, err
		}
		elems[i] = v
	}
	return value.FromObject(b.Heap.NewArray(elems)), nil
}

func (b *Bridge) nativeMapToPseudo(rv reflect.Value, seen *nativeSeen) (value.Value, error) {
	obj := b.Heap.NewObject("Object", b.Heap.ObjectProto)
	iter := rv.MapRange()
	for iter.Next() {
		key := iter.Key()
		var name string
		if key.Kind() == reflect.String {
			name = key.String()
		} else {
			name = value.ToStringPrimitive(mustConvert(b.nativeToPseudo(key, seen)))
		}
		v, err := b.nativeToPseudo(iter.Value(), seen)
		if err != nil {
			return value.Undefined, err
		}
		obj.DefineOwn(name, &value.Property{Value: v, Attrs: value.Plain})
	}
	return value.FromObject(obj), nil
}

func (b *Bridge) nativeStructToPseudo(rv reflect.Value, seen *nativeSeen) (value.Value, error) {
	obj := b.Heap.NewObject("Object", b.Heap.ObjectProto)
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" {
			continue // unexported
		}
		v, err := b.nativeToPseudo(rv.Field(i), seen)
		if err != nil {
			return value.Undefined, err
		}
		obj.DefineOwn(f.Name, &value.Property{Value: v, Attrs: value.Plain})
	}
	return value.FromObject(obj), nil
}

func mustConvert(v value.Value, err error) value.Value {
	if err != nil {
		return value.Undefined
	}
	return v
}

type cycleError struct{}

func (*cycleError) Error() string { return "cyclic host value cannot be converted" }

func (b *Bridge) dateObject(t time.Time) *value.Object {
	if b.DateFactory != nil {
		return b.DateFactory(t)
	}
	o := b.Heap.NewObject("Date", b.Heap.DateProto)
	o.Data = t
	return o
}

func (b *Bridge) regexpObject(source, flags string) *value.Object {
	if b.RegExpFactory != nil {
		return b.RegExpFactory(source, flags)
	}
	o := b.Heap.NewObject("RegExp", b.Heap.RegExpProto)
	return o
}

func (b *Bridge) wrapHostFunc(rv reflect.Value) *value.Object {
	t := rv.Type()
	return b.Heap.NewNativeFunction("", t.NumIn(), func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		in := make([]reflect.Value, t.NumIn())
		for i := 0; i < t.NumIn(); i++ {
			var a value.Value
			if i < len(args) {
				a = args[i]
			}
			native, err := b.PseudoToNative(a)
			if err != nil {
				return value.Undefined, value.NewThrow(b.Heap.NewError("TypeError", err.Error()))
			}
			pv := reflect.ValueOf(native)
			if !pv.IsValid() {
				in[i] = reflect.Zero(t.In(i))
			} else if pv.Type().ConvertibleTo(t.In(i)) {
				in[i] = pv.Convert(t.In(i))
			} else {
				in[i] = reflect.Zero(t.In(i))
			}
		}
		out := rv.Call(in)
		if len(out) == 0 {
			return value.Undefined, nil
		}
		v, err := b.NativeToPseudo(out[0].Interface())
		if err != nil {
			return value.Undefined, value.NewThrow(b.Heap.NewError("TypeError", err.Error()))
		}
		return v, nil
	})
}
