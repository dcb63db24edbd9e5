package value

import (
	"math"
	"sort"
	"strconv"

	"github.com/robertkrimen/otto/ast"
)

// Attrs is a property's descriptor flags. Outside Object.defineProperty
// they always take one of the fixed combinations below.
type Attrs struct {
	Configurable bool
	Enumerable   bool
	Writable     bool
}

var (
	// Plain is what ordinary assignment and literal construction
	// produce: writable, enumerable, and deletable. Variable is the
	// var-binding kind from the fixed table — the non-configurable bit
	// is what makes `delete x` on a declared variable fail.
	Plain                                = Attrs{Configurable: true, Enumerable: true, Writable: true}
	Variable                             = Attrs{Configurable: false, Enumerable: true, Writable: true}
	Readonly                             = Attrs{Configurable: true, Enumerable: true, Writable: false}
	NonEnumerable                        = Attrs{Configurable: true, Enumerable: false, Writable: true}
	ReadonlyNonEnumerable                = Attrs{Configurable: true, Enumerable: false, Writable: false}
	NonConfigurableReadonlyNonEnumerable = Attrs{Configurable: false, Enumerable: false, Writable: false}
)

// Property is one entry in an Object's own-property table: a stored
// slot value and its attributes, plus optional getter/setter objects.
// If Getter or Setter is non-nil, Value is ignored.
type Property struct {
	Value  Value
	Attrs  Attrs
	Getter *Object
	Setter *Object
}

func (p *Property) IsAccessor() bool { return p.Getter != nil || p.Setter != nil }

// FuncKind discriminates what a callable Object actually runs when
// invoked.
type FuncKind uint8

const (
	FuncNone   FuncKind = iota
	FuncAST             // user-defined function: node + captured parentScope
	FuncNative          // host-implemented synchronous function
	FuncAsync           // host-implemented function with a resume callback
	FuncBound           // Function.prototype.bind result
)

// Throw represents a pending THROW completion. It
// carries the thrown value verbatim — interpreted programs can throw
// any value, not only Error objects.
type Throw struct {
	Value Value
}

func (t *Throw) Error() string { return ToStringPrimitive(t.Value) }

func NewThrow(v Value) *Throw { return &Throw{Value: v} }

// Realm is the callback surface a native function needs to re-enter
// the interpreted world: allocate objects under the right prototypes,
// construct interpreted errors, and synchronously invoke an
// interpreted function value (e.g. a comparator passed to
// Array.prototype.sort, or a replacer passed to String.prototype.replace).
// It is implemented by the evaluator; defining it here (next to
// NativeFunc) avoids builtins depending on the evaluator package.
type Realm interface {
	NewObject(class string, proto *Object) *Object
	NewArray(elems []Value) *Object
	NewError(kind, msg string) Value
	ObjectPrototypeFor(class string) *Object
	Call(fn Value, this Value, args []Value) (Value, *Throw)
	Construct(fn Value, args []Value) (Value, *Throw)
}

// NativeFunc is a host-implemented function invoked synchronously.
type NativeFunc func(r Realm, this Value, args []Value) (Value, *Throw)

// AsyncFunc is a host-implemented function that completes out of band.
// resume must eventually be called exactly once with the function's
// result (or a thrown value); until it fires the evaluator stays
// paused on the call frame that invoked this function.
type AsyncFunc func(r Realm, this Value, args []Value, resume func(Value, *Throw))

// Object is an interpreted-world heap entity.
type Object struct {
	Class              string // "Object", "Array", "Function", "Error", "RegExp", "Date", or a boxed-primitive marker
	proto              *Object
	keys               []string // insertion order, for deterministic enumeration
	props              map[string]*Property
	Extensible         bool
	IllegalConstructor bool
	IsEval             bool
	Data               interface{} // host-side backing value: boxed primitive, time.Time, compiled regexp, ...

	FuncKind        FuncKind
	Native          NativeFunc
	Async           AsyncFunc
	Node            *ast.FunctionLiteral
	ParentScope     *Scope
	BoundTarget     Value
	BoundThis       Value
	BoundArgs       []Value
	FuncID          uint64 // stable identity for native/async wrappers
	FuncDisplayName string
}

// NewRawObject allocates an Object with no properties and the given
// prototype. It installs no properties itself; for an Array-classed
// object, later index writes through DefineOwn still create and raise
// its length, since putOwn keeps that invariant for every Array.
func NewRawObject(class string, proto *Object) *Object {
	return &Object{
		Class:      class,
		proto:      proto,
		props:      make(map[string]*Property),
		Extensible: true,
	}
}

func (o *Object) Proto() *Object     { return o.proto }
func (o *Object) SetProto(p *Object) { o.proto = p }

func (o *Object) IsCallable() bool { return o.FuncKind != FuncNone }

func (o *Object) IsArray() bool { return o.Class == "Array" }

// OwnKeys returns the object's own enumerable-and-non-enumerable keys
// in insertion order, except that Array objects are additionally
// sorted so integer-index keys come first in ascending numeric order
// (ES5 §15.4, observable via for-in and Object.keys ordering tests).
func (o *Object) OwnKeys() []string {
	if !o.IsArray() {
		out := make([]string, len(o.keys))
		copy(out, o.keys)
		return out
	}
	var idx []string
	var rest []string
	for _, k := range o.keys {
		if isArrayIndex(k) {
			idx = append(idx, k)
		} else {
			rest = append(rest, k)
		}
	}
	sort.Slice(idx, func(i, j int) bool {
		a, _ := strconv.ParseUint(idx[i], 10, 32)
		b, _ := strconv.ParseUint(idx[j], 10, 32)
		return a < b
	})
	return append(idx, rest...)
}

func isArrayIndex(key string) bool {
	if key == "" {
		return false
	}
	if key == "0" {
		return true
	}
	if key[0] == '0' {
		return false
	}
	for _, c := range key {
		if c < '0' || c > '9' {
			return false
		}
	}
	n, err := strconv.ParseUint(key, 10, 32)
	return err == nil && n < math.MaxUint32-1
}

// GetOwn returns the own property at name, or nil if absent.
func (o *Object) GetOwn(name string) *Property {
	return o.props[name]
}

// HasOwn reports whether name is an own property.
func (o *Object) HasOwn(name string) bool {
	_, ok := o.props[name]
	return ok
}

// putOwn installs or overwrites an own data property, maintaining key
// insertion order and the Array length invariant.
func (o *Object) putOwn(name string, prop *Property) {
	if _, exists := o.props[name]; !exists {
		o.keys = append(o.keys, name)
	}
	o.props[name] = prop
	if o.IsArray() && isArrayIndex(name) {
		idx, _ := strconv.ParseUint(name, 10, 32)
		o.bumpLength(uint32(idx) + 1)
	}
}

// DefineOwn installs name with exactly the given property record,
// bypassing the setProperty protocol (used for declarations, literal
// construction, and Object.defineProperty once the effective
// descriptor has already been computed).
func (o *Object) DefineOwn(name string, prop *Property) {
	o.putOwn(name, prop)
}

// DeleteOwn removes name if present and configurable. It returns false
// only when name is present and non-configurable (nothing is removed);
// an absent name reports true. Whether a false result throws is the
// caller's decision, since only it knows whether the `delete` ran in
// strict mode.
func (o *Object) DeleteOwn(name string) bool {
	p, ok := o.props[name]
	if !ok {
		return true
	}
	if !p.Attrs.Configurable {
		return false
	}
	delete(o.props, name)
	for i, k := range o.keys {
		if k == name {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
	return true
}

// bumpLength raises an Array's length property to at least n,
// keeping length greater than every integer index. Called whenever an integer index is
// written.
func (o *Object) bumpLength(n uint32) {
	cur := o.props["length"]
	if cur == nil {
		o.keys = append(o.keys, "length")
		cur = &Property{Value: Number(0), Attrs: Attrs{Configurable: false, Enumerable: false, Writable: true}}
		o.props["length"] = cur
	}
	if uint32(cur.Value.AsNumber()) < n {
		cur.Value = Number(float64(n))
	}
}

// ShrinkLength implements the Array invariant's other half: writing
// length=n deletes every integer index >= n.
func (o *Object) ShrinkLength(n uint32) {
	for _, k := range o.OwnKeys() {
		if !isArrayIndex(k) {
			continue
		}
		idx, _ := strconv.ParseUint(k, 10, 32)
		if uint32(idx) >= n {
			delete(o.props, k)
		}
	}
	newKeys := o.keys[:0:0]
	for _, k := range o.keys {
		if _, ok := o.props[k]; ok || k == "length" {
			newKeys = append(newKeys, k)
		}
	}
	o.keys = newKeys
	o.props["length"].Value = Number(float64(n))
}

// ArrayLength returns the current value of an Array object's length
// property as an unsigned integer.
func (o *Object) ArrayLength() uint32 {
	p := o.props["length"]
	if p == nil {
		return 0
	}
	return uint32(p.Value.AsNumber())
}
