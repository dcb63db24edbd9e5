package value

// Scope is one link in the environment-record chain.
// Its variables live as own properties of Object, an interpreted
// object with a null prototype — this is what lets the evaluator reuse
// the same property-table machinery for scopes as for ordinary
// objects, rather than a separate binding-map type.
type Scope struct {
	Parent *Scope
	Strict bool
	Object *Object
	// IsWith marks a scope pushed by a `with` statement: variable
	// *declarations* still target the nearest non-with ancestor, but
	// reads/writes of existing names check WithTarget first.
	IsWith     bool
	WithTarget *Object

	// This is set only on scopes that establish a new `this` binding
	// (global scope, and each function-call scope); a nil pointer means
	// ThisExpression must keep walking outward to find the nearest
	// enclosing binding.
	This *Value
}

// ThisValue walks outward from scope to the nearest enclosing `this`
// binding.
func ThisValue(scope *Scope) Value {
	for s := scope; s != nil; s = s.Parent {
		if s.This != nil {
			return *s.This
		}
	}
	return Undefined
}

// NewScope creates a scope whose variables live in a fresh, null-proto
// object.
func NewScope(parent *Scope, strict bool) *Scope {
	return &Scope{
		Parent: parent,
		Strict: strict,
		Object: &Object{Class: "Object", props: make(map[string]*Property), Extensible: true},
	}
}

// NewWithScope creates the special scope a `with` statement pushes;
// target is the evaluated expression object whose properties shadow
// the enclosing scope during the body.
func NewWithScope(parent *Scope, target *Object) *Scope {
	s := NewScope(parent, parent.Strict)
	s.IsWith = true
	s.WithTarget = target
	return s
}

// DeclareVar installs name with an undefined value if it is not
// already present in this scope — used by hoisting so a later
// `var x = 1` doesn't clobber a binding a FunctionDeclaration already
// installed.
func (s *Scope) DeclareVar(name string) {
	if s.Object.HasOwn(name) {
		return
	}
	s.Object.DefineOwn(name, &Property{Value: Undefined, Attrs: Variable})
}

// DeclareFunctionBinding installs name with fn, overwriting any
// earlier var placeholder — FunctionDeclaration hoisting always wins
// over a same-named var.
func (s *Scope) DeclareFunctionBinding(name string, fn Value) {
	s.Object.DefineOwn(name, &Property{Value: fn, Attrs: Variable})
}

// SetDirect writes name directly into this scope's binding object,
// bypassing setProperty/setter invocation — used for VariableDeclaration
// initializers, which must never trip a same-named setter on the
// global prototype chain.
func (s *Scope) SetDirect(name string, v Value) {
	if p := s.Object.GetOwn(name); p != nil {
		p.Value = v
		return
	}
	s.Object.DefineOwn(name, &Property{Value: v, Attrs: Variable})
}

// Resolution is the result of walking the scope chain for a name: the
// scope (or with-target object) the name was found bound in, and
// whether it was found at all.
type Resolution struct {
	Scope      *Scope  // non-nil when found in a regular scope's own object
	WithTarget *Object // non-nil when found via an enclosing `with` target
	Found      bool
}

// Lookup walks the scope chain outward looking for name, checking a
// `with` scope's target object (and its prototype chain) before its own
// bindings. At the global scope, when h is non-nil, it also walks the
// global object's prototype chain, so an inherited global name resolves
// to the global scope.
func Lookup(scope *Scope, name string, h *Heap) Resolution {
	for s := scope; s != nil; s = s.Parent {
		if s.IsWith {
			if s.WithTarget.HasOwn(name) {
				return Resolution{WithTarget: s.WithTarget, Found: true}
			}
			// Same prototype walk getProperty does, to catch inherited
			// names on the with-target too.
			for cur := s.WithTarget.Proto(); cur != nil; cur = cur.Proto() {
				if cur.HasOwn(name) {
					return Resolution{WithTarget: s.WithTarget, Found: true}
				}
			}
		}
		if s.Object.HasOwn(name) {
			return Resolution{Scope: s, Found: true}
		}
		if s.Parent == nil && h != nil {
			// Global scope: prototype-aware fallback.
			cur := s.Object.Proto()
			for cur != nil {
				if cur.HasOwn(name) {
					return Resolution{Scope: s, Found: true}
				}
				cur = cur.Proto()
			}
		}
	}
	return Resolution{}
}
