package value

import (
	"fmt"
	"strconv"
)

// Heap anchors the interpreted world's shared, per-interpreter state: the
// built-in prototypes every object ultimately chains to, the global
// object, and the monotonic counter used to give native/async function
// wrappers a stable identity. One Heap belongs to exactly one
// Interpreter instance; nothing here is safe to share between
// interpreters, since each sandbox owns an independent heap.
//
// Go's garbage collector handles arbitrary object cycles, so no arena
// or reference counting backs heap references; the id counter exists
// only to give native function wrappers a small stable integer id.
type Heap struct {
	ObjectProto   *Object
	FunctionProto *Object
	ArrayProto    *Object
	StringProto   *Object
	NumberProto   *Object
	BooleanProto  *Object
	DateProto     *Object
	RegExpProto   *Object
	ErrorProtos   map[string]*Object // "Error", "TypeError", "RangeError", ...

	Global      *Object
	GlobalScope *Scope

	nextID uint64
}

func NewHeap() *Heap {
	return &Heap{ErrorProtos: make(map[string]*Object)}
}

// NextFuncID hands out the next identity for a native or async
// function wrapper.
func (h *Heap) NextFuncID() uint64 {
	h.nextID++
	return h.nextID
}

// NewObject allocates a plain Object with the given class tag and
// prototype. Most call sites pass h.ObjectProto.
func (h *Heap) NewObject(class string, proto *Object) *Object {
	return NewRawObject(class, proto)
}

// NewArray allocates an Array-classed object pre-populated with elems
// at indices 0..len(elems)-1.
func (h *Heap) NewArray(elems []Value) *Object {
	arr := NewRawObject("Array", h.ArrayProto)
	arr.DefineOwn("length", &Property{Value: Number(0), Attrs: Attrs{Writable: true}})
	for i, v := range elems {
		arr.putOwn(strconv.Itoa(i), &Property{Value: v, Attrs: Plain})
	}
	arr.props["length"].Value = Number(float64(len(elems)))
	return arr
}

// ObjectPrototypeFor returns the default prototype object new instances
// of the given class tag should chain to.
func (h *Heap) ObjectPrototypeFor(class string) *Object {
	switch class {
	case "Array":
		return h.ArrayProto
	case "Function":
		return h.FunctionProto
	case "String":
		return h.StringProto
	case "Number":
		return h.NumberProto
	case "Boolean":
		return h.BooleanProto
	case "Date":
		return h.DateProto
	case "RegExp":
		return h.RegExpProto
	default:
		if p, ok := h.ErrorProtos[class]; ok {
			return p
		}
		return h.ObjectProto
	}
}

// NewError allocates an interpreted error object of the named kind
// ("Error", "TypeError", "RangeError", "ReferenceError", "SyntaxError",
// "EvalError", "URIError") with the given message, chained to that
// kind's prototype so `e instanceof TypeError` and `e.name` behave.
func (h *Heap) NewError(kind, msg string) Value {
	proto, ok := h.ErrorProtos[kind]
	if !ok {
		proto = h.ErrorProtos["Error"]
	}
	obj := NewRawObject("Error", proto)
	obj.DefineOwn("message", &Property{Value: String(msg), Attrs: NonEnumerable})
	return FromObject(obj)
}

// NewNativeFunction wraps fn as a callable interpreted Function object.
func (h *Heap) NewNativeFunction(name string, arity int, fn NativeFunc) *Object {
	f := NewRawObject("Function", h.FunctionProto)
	f.FuncKind = FuncNative
	f.Native = fn
	f.FuncID = h.NextFuncID()
	f.FuncDisplayName = name
	f.DefineOwn("name", &Property{Value: String(name), Attrs: NonConfigurableReadonlyNonEnumerable})
	f.DefineOwn("length", &Property{Value: Int(arity), Attrs: NonConfigurableReadonlyNonEnumerable})
	return f
}

// NewAsyncFunction wraps fn as a callable interpreted Function object
// that suspends the evaluator until its resume callback fires.
func (h *Heap) NewAsyncFunction(name string, arity int, fn AsyncFunc) *Object {
	f := NewRawObject("Function", h.FunctionProto)
	f.FuncKind = FuncAsync
	f.Async = fn
	f.FuncID = h.NextFuncID()
	f.FuncDisplayName = name
	f.DefineOwn("name", &Property{Value: String(name), Attrs: NonConfigurableReadonlyNonEnumerable})
	f.DefineOwn("length", &Property{Value: Int(arity), Attrs: NonConfigurableReadonlyNonEnumerable})
	return f
}

// --- property protocol ------------------------------------------------------

// GetProperty reads name through recv's prototype chain. When the
// property found along the prototype chain is an accessor, GetProperty
// returns a non-nil pending getter object instead of a value; the
// evaluator must synthesize a call to that getter and resume with its
// result in place of the zero Value also returned here.
func (h *Heap) GetProperty(recv Value, name string) (Value, *Object, *Throw) {
	if recv.IsNullOrUndefined() {
		return Undefined, nil, NewThrow(h.NewError("TypeError",
			fmt.Sprintf("Cannot read property '%s' of %s", name, ToStringPrimitive(recv))))
	}

	if recv.IsString() {
		if v, ok := stringOwnProperty(recv.AsString(), name); ok {
			return v, nil, nil
		}
		return h.getFromProto(h.StringProto, recv, name)
	}
	if recv.IsNumber() {
		return h.getFromProto(h.NumberProto, recv, name)
	}
	if recv.IsBoolean() {
		return h.getFromProto(h.BooleanProto, recv, name)
	}

	obj := recv.AsObject()
	if obj.Class == "String" {
		if s, ok := obj.Data.(string); ok {
			if v, ok := stringOwnProperty(s, name); ok {
				return v, nil, nil
			}
		}
	}

	cur := obj
	for cur != nil {
		if p := cur.GetOwn(name); p != nil {
			if p.IsAccessor() {
				if p.Getter == nil {
					return Undefined, nil, nil
				}
				return Undefined, p.Getter, nil
			}
			return p.Value, nil, nil
		}
		cur = cur.Proto()
	}
	return Undefined, nil, nil
}

func (h *Heap) getFromProto(proto *Object, recv Value, name string) (Value, *Object, *Throw) {
	cur := proto
	for cur != nil {
		if p := cur.GetOwn(name); p != nil {
			if p.IsAccessor() {
				if p.Getter == nil {
					return Undefined, nil, nil
				}
				return Undefined, p.Getter, nil
			}
			return p.Value, nil, nil
		}
		cur = cur.Proto()
	}
	return Undefined, nil, nil
}

func stringOwnProperty(s string, name string) (Value, bool) {
	runes := []rune(s)
	if name == "length" {
		return Int(len(runes)), true
	}
	if idx, err := strconv.Atoi(name); err == nil && idx >= 0 && idx < len(runes) {
		return String(string(runes[idx])), true
	}
	return Undefined, false
}

// SetProperty writes name on recv, honoring descriptors and the
// prototype chain. When a setter is found along the chain, it is returned without
// writing anything; the evaluator must synthesize a call to that
// setter with `value` as its sole argument. A non-nil Throw always
// means nothing was written and no setter is pending.
func (h *Heap) SetProperty(recv Value, name string, v Value, strict bool) (*Object, *Throw) {
	if recv.IsNullOrUndefined() {
		return nil, NewThrow(h.NewError("TypeError",
			fmt.Sprintf("Cannot set property '%s' of %s", name, ToStringPrimitive(recv))))
	}
	if !recv.IsObject() {
		// Writes to primitives are observable no-ops in loose mode; a
		// thrown TypeError only matters in strict mode and only when
		// the property is actually read-only, which primitives always
		// are for indexable names. Treat as silent no-op either way
		// since boxing a throwaway wrapper to re-check buys nothing.
		return nil, nil
	}
	obj := recv.AsObject()

	if obj.Class == "String" {
		// Only the character indices and length of a boxed String are
		// read-only; other property names write normally.
		if s, ok := obj.Data.(string); ok {
			if _, readonly := stringOwnProperty(s, name); readonly {
				if strict {
					return nil, NewThrow(h.NewError("TypeError", "Cannot assign to read only property '"+name+"' of String"))
				}
				return nil, nil
			}
		}
	}

	if obj.IsArray() && name == "length" {
		n := ToNumber(v)
		if n < 0 || n != float64(uint32(n)) {
			return nil, NewThrow(h.NewError("RangeError", "Invalid array length"))
		}
		obj.ShrinkLength(uint32(n))
		return nil, nil
	}

	// Walk the chain looking for an existing definition (own or
	// inherited) to find a setter, or to confirm writability.
	cur := obj
	for cur != nil {
		if p := cur.GetOwn(name); p != nil {
			if p.IsAccessor() {
				return p.Setter, nil
			}
			if cur == obj {
				if !p.Attrs.Writable {
					if strict {
						return nil, NewThrow(h.NewError("TypeError", "Cannot assign to read only property '"+name+"' of "+obj.Class))
					}
					return nil, nil
				}
				p.Value = v
				return nil, nil
			}
			// Inherited data property: shadow with an own property on
			// obj, honoring the inherited writability.
			if !p.Attrs.Writable {
				if strict {
					return nil, NewThrow(h.NewError("TypeError", "Cannot assign to read only property '"+name+"' of "+obj.Class))
				}
				return nil, nil
			}
			break
		}
		cur = cur.Proto()
	}

	if !obj.Extensible {
		if strict {
			return nil, NewThrow(h.NewError("TypeError", "Cannot add property "+name+", object is not extensible"))
		}
		return nil, nil
	}
	obj.putOwn(name, &Property{Value: v, Attrs: Plain})
	return nil, nil
}

// PropDescriptorInput mirrors the plain object passed to
// Object.defineProperty's third argument, already extracted into Go
// values by the caller in pkg/builtins.
type PropDescriptorInput struct {
	HasValue        bool
	Value           Value
	HasWritable     bool
	Writable        bool
	HasEnumerable   bool
	Enumerable      bool
	HasConfigurable bool
	Configurable    bool
	HasGet          bool
	Get             *Object
	HasSet          bool
	Set             *Object
}

// DefineProperty implements Object.defineProperty's algorithm (ES5
// §8.12.9) against an explicit descriptor, composing with any existing
// property record.
func (h *Heap) DefineProperty(obj *Object, name string, d PropDescriptorInput) *Throw {
	if (d.HasValue || d.HasWritable) && (d.HasGet || d.HasSet) {
		return NewThrow(h.NewError("TypeError", "Invalid property descriptor. Cannot both specify accessors and a value or writable attribute"))
	}

	existing := obj.GetOwn(name)
	if existing != nil && !existing.Attrs.Configurable {
		if d.HasConfigurable && d.Configurable {
			return NewThrow(h.NewError("TypeError", "Cannot redefine property: "+name))
		}
		if d.HasEnumerable && d.Enumerable != existing.Attrs.Enumerable {
			return NewThrow(h.NewError("TypeError", "Cannot redefine property: "+name))
		}
		if existing.IsAccessor() {
			if d.HasValue || d.HasWritable {
				return NewThrow(h.NewError("TypeError", "Cannot redefine property: "+name))
			}
		} else if !existing.Attrs.Writable {
			if d.HasWritable && d.Writable {
				return NewThrow(h.NewError("TypeError", "Cannot redefine property: "+name))
			}
			if d.HasValue && !SameValue(d.Value, existing.Value) {
				return NewThrow(h.NewError("TypeError", "Cannot redefine property: "+name))
			}
		}
	}

	if existing == nil && !obj.Extensible {
		return NewThrow(h.NewError("TypeError", "Cannot define property "+name+", object is not extensible"))
	}

	p := &Property{}
	if existing != nil {
		*p = *existing
	} else {
		p.Attrs = Attrs{Configurable: false, Enumerable: false, Writable: false}
	}
	if d.HasConfigurable {
		p.Attrs.Configurable = d.Configurable
	}
	if d.HasEnumerable {
		p.Attrs.Enumerable = d.Enumerable
	}
	if d.HasGet || d.HasSet {
		if d.HasGet {
			p.Getter = d.Get
		}
		if d.HasSet {
			p.Setter = d.Set
		}
		p.Value = Undefined
	} else {
		if d.HasWritable {
			p.Attrs.Writable = d.Writable
		}
		if d.HasValue {
			p.Value = d.Value
		}
		p.Getter, p.Setter = nil, nil
	}
	obj.DefineOwn(name, p)
	return nil
}
