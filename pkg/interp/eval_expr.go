package interp

import (
	"github.com/robertkrimen/otto/ast"
	"github.com/robertkrimen/otto/token"

	"sandbox5/pkg/value"
)

// refKind discriminates the two reference shapes a left-hand-side
// expression can yield: a scope binding or an object property.
type refKind uint8

const (
	refScope refKind = iota
	refProperty
	refUnresolved // identifier that resolved to neither a scope binding nor the global object (ReferenceError on read, implicit global create on write)
)

// ref is the evaluator's reification of an ES5 Reference: enough
// information for getValue/setValue to complete the operation,
// including accessor re-entry.
type ref struct {
	kind   refKind
	obj    *value.Object // refScope: scope.Object or with-target; refProperty: the base object
	base   value.Value   // refProperty: the original receiver (may be a string/number primitive)
	name   string
	strict bool
}

// evalReference evaluates expr in *reference* mode, used by
// AssignmentExpression's left side, UpdateExpression's operand, and
// the operands of `delete`/`typeof`.
func (ip *Interpreter) evalReference(expr ast.Expression, scope *value.Scope) (ref, *value.Throw) {
	switch e := expr.(type) {
	case *ast.Identifier:
		res := value.Lookup(scope, e.Name, ip.Heap)
		if res.WithTarget != nil {
			return ref{kind: refScope, obj: res.WithTarget, name: e.Name, strict: scope.Strict}, nil
		}
		if res.Found {
			return ref{kind: refScope, obj: res.Scope.Object, name: e.Name, strict: scope.Strict}, nil
		}
		return ref{kind: refUnresolved, obj: ip.Heap.Global, name: e.Name, strict: scope.Strict}, nil
	case *ast.DotExpression:
		objVal, thrown := ip.evalExpression(e.Left, scope)
		if thrown != nil {
			return ref{}, thrown
		}
		return ip.propertyRef(objVal, e.Identifier.Name, scope), nil
	case *ast.BracketExpression:
		objVal, thrown := ip.evalExpression(e.Left, scope)
		if thrown != nil {
			return ref{}, thrown
		}
		propVal, thrown := ip.evalExpression(e.Member, scope)
		if thrown != nil {
			return ref{}, thrown
		}
		name, thrown := ip.toStr(propVal, scope)
		if thrown != nil {
			return ref{}, thrown
		}
		return ip.propertyRef(objVal, name, scope), nil
	}
	return ref{}, value.NewThrow(ip.Heap.NewError("ReferenceError", "Invalid left-hand side in assignment"))
}

func (ip *Interpreter) propertyRef(objVal value.Value, name string, scope *value.Scope) ref {
	r := ref{kind: refProperty, base: objVal, name: name, strict: scope.Strict}
	if objVal.IsObject() {
		r.obj = objVal.AsObject()
	}
	return r
}

// getValue reads through a reference, completing any pending getter by
// synchronously re-entering the call machinery — a direct recursive
// Call, since the evaluator's continuation is this goroutine's own
// call stack.
func (ip *Interpreter) getValue(r ref) (value.Value, *value.Throw) {
	switch r.kind {
	case refUnresolved:
		return value.Undefined, value.NewThrow(ip.Heap.NewError("ReferenceError", r.name+" is not defined"))
	case refScope:
		v, pending, thrown := ip.Heap.GetProperty(value.FromObject(r.obj), r.name)
		if thrown != nil {
			return value.Undefined, thrown
		}
		if pending != nil {
			return ip.Call(value.FromObject(pending), value.FromObject(r.obj), nil)
		}
		return v, nil
	default: // refProperty
		v, pending, thrown := ip.Heap.GetProperty(r.base, r.name)
		if thrown != nil {
			return value.Undefined, thrown
		}
		if pending != nil {
			return ip.Call(value.FromObject(pending), r.base, nil)
		}
		return v, nil
	}
}

// getValueTypeofSafe behaves like getValue except an unresolved
// identifier yields undefined instead of throwing, matching `typeof x`
// on an unbound x.
func (ip *Interpreter) getValueTypeofSafe(r ref) (value.Value, *value.Throw) {
	if r.kind == refUnresolved {
		return value.Undefined, nil
	}
	return ip.getValue(r)
}

func (ip *Interpreter) setValue(r ref, v value.Value) *value.Throw {
	switch r.kind {
	case refUnresolved:
		if r.strict {
			return value.NewThrow(ip.Heap.NewError("ReferenceError", r.name+" is not defined"))
		}
		_, thrown := ip.Heap.SetProperty(value.FromObject(ip.Heap.Global), r.name, v, false)
		return thrown
	case refScope:
		pending, thrown := ip.Heap.SetProperty(value.FromObject(r.obj), r.name, v, r.strict)
		if thrown != nil {
			return thrown
		}
		if pending != nil {
			_, thrown = ip.Call(value.FromObject(pending), value.FromObject(r.obj), []value.Value{v})
			return thrown
		}
		return nil
	default:
		pending, thrown := ip.Heap.SetProperty(r.base, r.name, v, r.strict)
		if thrown != nil {
			return thrown
		}
		if pending != nil {
			_, thrown = ip.Call(value.FromObject(pending), r.base, []value.Value{v})
			return thrown
		}
		return nil
	}
}

// evalExpression is the evaluator's per-node dispatch for
// expressions. Sub-expressions are evaluated in source order.
func (ip *Interpreter) evalExpression(expr ast.Expression, scope *value.Scope) (value.Value, *value.Throw) {
	switch e := expr.(type) {
	case *ast.NullLiteral:
		return value.Null, nil
	case *ast.BooleanLiteral:
		return value.Bool(e.Value), nil
	case *ast.NumberLiteral:
		switch n := e.Value.(type) {
		case float64:
			return value.Number(n), nil
		case int64:
			return value.Number(float64(n)), nil
		default:
			return value.Number(0), nil
		}
	case *ast.StringLiteral:
		return value.String(e.Value), nil
	case *ast.RegExpLiteral:
		return ip.makeRegExp(e.Pattern, e.Flags)
	case *ast.ThisExpression:
		return value.ThisValue(scope), nil
	case *ast.Identifier:
		r, thrown := ip.evalReference(e, scope)
		if thrown != nil {
			return value.Undefined, thrown
		}
		return ip.getValue(r)
	case *ast.ArrayLiteral:
		return ip.evalArrayLiteral(e, scope)
	case *ast.ObjectLiteral:
		return ip.evalObjectLiteral(e, scope)
	case *ast.FunctionLiteral:
		return value.FromObject(ip.makeFunction(e, scope)), nil
	case *ast.SequenceExpression:
		var last value.Value
		for _, sub := range e.Sequence {
			v, thrown := ip.evalExpression(sub, scope)
			if thrown != nil {
				return value.Undefined, thrown
			}
			last = v
		}
		return last, nil
	case *ast.ConditionalExpression:
		t, thrown := ip.evalExpression(e.Test, scope)
		if thrown != nil {
			return value.Undefined, thrown
		}
		if value.ToBoolean(t) {
			return ip.evalExpression(e.Consequent, scope)
		}
		return ip.evalExpression(e.Alternate, scope)
	case *ast.BinaryExpression:
		return ip.evalBinary(e, scope)
	case *ast.UnaryExpression:
		return ip.evalUnary(e, scope)
	case *ast.AssignExpression:
		return ip.evalAssign(e, scope)
	case *ast.DotExpression, *ast.BracketExpression:
		r, thrown := ip.evalReference(e, scope)
		if thrown != nil {
			return value.Undefined, thrown
		}
		return ip.getValue(r)
	case *ast.CallExpression:
		return ip.evalCall(e, scope)
	case *ast.NewExpression:
		return ip.evalNew(e, scope)
	case *ast.EmptyExpression:
		return value.Undefined, nil
	}
	return value.Undefined, value.NewThrow(ip.Heap.NewError("SyntaxError", "unsupported expression node"))
}

func (ip *Interpreter) evalBinary(e *ast.BinaryExpression, scope *value.Scope) (value.Value, *value.Throw) {
	left, thrown := ip.evalExpression(e.Left, scope)
	if thrown != nil {
		return value.Undefined, thrown
	}
	if e.Operator == token.LOGICAL_AND {
		if !value.ToBoolean(left) {
			return left, nil
		}
		return ip.evalExpression(e.Right, scope)
	}
	if e.Operator == token.LOGICAL_OR {
		if value.ToBoolean(left) {
			return left, nil
		}
		return ip.evalExpression(e.Right, scope)
	}
	right, thrown := ip.evalExpression(e.Right, scope)
	if thrown != nil {
		return value.Undefined, thrown
	}
	return ip.binaryOp(e.Operator, left, right, scope)
}

func (ip *Interpreter) evalUnary(e *ast.UnaryExpression, scope *value.Scope) (value.Value, *value.Throw) {
	switch e.Operator {
	case token.TYPEOF:
		r, thrown := ip.evalReference(e.Operand, scope)
		if thrown != nil {
			return value.Undefined, thrown
		}
		v, thrown := ip.getValueTypeofSafe(r)
		if thrown != nil {
			return value.Undefined, thrown
		}
		return value.String(value.TypeOf(v)), nil
	case token.DELETE:
		return ip.evalDelete(e.Operand, scope)
	case token.VOID:
		_, thrown := ip.evalExpression(e.Operand, scope)
		if thrown != nil {
			return value.Undefined, thrown
		}
		return value.Undefined, nil
	case token.INCREMENT, token.DECREMENT:
		return ip.evalUpdate(e, scope)
	default:
		v, thrown := ip.evalExpression(e.Operand, scope)
		if thrown != nil {
			return value.Undefined, thrown
		}
		return ip.unaryOp(e.Operator, v, scope)
	}
}

func (ip *Interpreter) evalDelete(operand ast.Expression, scope *value.Scope) (value.Value, *value.Throw) {
	switch operand.(type) {
	case *ast.DotExpression, *ast.BracketExpression:
		r, thrown := ip.evalReference(operand, scope)
		if thrown != nil {
			return value.Undefined, thrown
		}
		if r.obj == nil {
			return value.True, nil
		}
		p := r.obj.GetOwn(r.name)
		if p == nil {
			return value.True, nil
		}
		if !p.Attrs.Configurable {
			if r.strict {
				return value.Undefined, value.NewThrow(ip.Heap.NewError("TypeError", "Cannot delete property '"+r.name+"'"))
			}
			return value.False, nil
		}
		r.obj.DeleteOwn(r.name)
		return value.True, nil
	case *ast.Identifier:
		// Deleting an unqualified identifier binding is not supported in
		// non-strict mode by most real programs and is always a no-op
		// here since scope bindings other than globals are never
		// deletable (ES5 §10.2.1.1.1); mirror that: global, configurable
		// bindings are deletable, everything else reports false.
		name := operand.(*ast.Identifier).Name
		res := value.Lookup(scope, name, ip.Heap)
		if !res.Found {
			return value.True, nil
		}
		target := res.Scope.Object
		if res.WithTarget != nil {
			target = res.WithTarget
		}
		p := target.GetOwn(name)
		if p == nil || !p.Attrs.Configurable {
			return value.False, nil
		}
		target.DeleteOwn(name)
		return value.True, nil
	default:
		// delete on a non-reference yields true.
		_, thrown := ip.evalExpression(operand, scope)
		if thrown != nil {
			return value.Undefined, thrown
		}
		return value.True, nil
	}
}

func (ip *Interpreter) evalUpdate(e *ast.UnaryExpression, scope *value.Scope) (value.Value, *value.Throw) {
	r, thrown := ip.evalReference(e.Operand, scope)
	if thrown != nil {
		return value.Undefined, thrown
	}
	old, thrown := ip.getValue(r)
	if thrown != nil {
		return value.Undefined, thrown
	}
	oldNum, thrown := ip.toNumber(old, scope)
	if thrown != nil {
		return value.Undefined, thrown
	}
	var newNum float64
	if e.Operator == token.INCREMENT {
		newNum = oldNum + 1
	} else {
		newNum = oldNum - 1
	}
	newVal := value.Number(newNum)
	if thrown := ip.setValue(r, newVal); thrown != nil {
		return value.Undefined, thrown
	}
	if e.Postfix {
		return value.Number(oldNum), nil
	}
	return newVal, nil
}

func (ip *Interpreter) evalAssign(e *ast.AssignExpression, scope *value.Scope) (value.Value, *value.Throw) {
	r, thrown := ip.evalReference(e.Left, scope)
	if thrown != nil {
		return value.Undefined, thrown
	}
	if e.Operator == token.ASSIGN {
		rv, thrown := ip.evalExpression(e.Right, scope)
		if thrown != nil {
			return value.Undefined, thrown
		}
		if thrown := ip.setValue(r, rv); thrown != nil {
			return value.Undefined, thrown
		}
		return rv, nil
	}
	underlying, ok := compoundAssignOp(e.Operator)
	if !ok {
		return value.Undefined, value.NewThrow(ip.Heap.NewError("SyntaxError", "unsupported assignment operator"))
	}
	cur, thrown := ip.getValue(r)
	if thrown != nil {
		return value.Undefined, thrown
	}
	rv, thrown := ip.evalExpression(e.Right, scope)
	if thrown != nil {
		return value.Undefined, thrown
	}
	result, thrown := ip.binaryOp(underlying, cur, rv, scope)
	if thrown != nil {
		return value.Undefined, thrown
	}
	if thrown := ip.setValue(r, result); thrown != nil {
		return value.Undefined, thrown
	}
	return result, nil
}

func (ip *Interpreter) evalArrayLiteral(e *ast.ArrayLiteral, scope *value.Scope) (value.Value, *value.Throw) {
	elems := make([]value.Value, len(e.Value))
	for i, sub := range e.Value {
		if sub == nil {
			elems[i] = value.Undefined
			continue
		}
		v, thrown := ip.evalExpression(sub, scope)
		if thrown != nil {
			return value.Undefined, thrown
		}
		elems[i] = v
	}
	return value.FromObject(ip.Heap.NewArray(elems)), nil
}

func (ip *Interpreter) evalObjectLiteral(e *ast.ObjectLiteral, scope *value.Scope) (value.Value, *value.Throw) {
	obj := ip.Heap.NewObject("Object", ip.Heap.ObjectProto)
	// Merge multiple get/set/init entries for the same key into a
	// single accessor descriptor, processed in source order.
	for _, prop := range e.Value {
		v, thrown := ip.evalExpression(prop.Value, scope)
		if thrown != nil {
			return value.Undefined, thrown
		}
		switch prop.Kind {
		case "get":
			existing := obj.GetOwn(prop.Key)
			p := &value.Property{Attrs: value.Plain}
			if existing != nil {
				*p = *existing
			}
			p.Getter = v.AsObject()
			obj.DefineOwn(prop.Key, p)
		case "set":
			existing := obj.GetOwn(prop.Key)
			p := &value.Property{Attrs: value.Plain}
			if existing != nil {
				*p = *existing
			}
			p.Setter = v.AsObject()
			obj.DefineOwn(prop.Key, p)
		default:
			obj.DefineOwn(prop.Key, &value.Property{Value: v, Attrs: value.Plain})
		}
	}
	return value.FromObject(obj), nil
}
