package interp

import (
	"github.com/robertkrimen/otto/ast"

	"sandbox5/pkg/value"
)

// makeFunction allocates a callable AST-backed Function object,
// capturing scope as its ParentScope.
func (ip *Interpreter) makeFunction(lit *ast.FunctionLiteral, scope *value.Scope) *value.Object {
	fn := value.NewRawObject("Function", ip.Heap.FunctionProto)
	fn.FuncKind = value.FuncAST
	fn.Node = lit
	fn.ParentScope = scope
	fn.FuncID = ip.Heap.NextFuncID()
	name := ""
	if lit.Name != nil {
		name = lit.Name.Name
	}
	fn.FuncDisplayName = name
	arity := 0
	if lit.ParameterList != nil {
		arity = len(lit.ParameterList.List)
	}
	fn.DefineOwn("name", &value.Property{Value: value.String(name), Attrs: value.NonConfigurableReadonlyNonEnumerable})
	fn.DefineOwn("length", &value.Property{Value: value.Int(arity), Attrs: value.NonConfigurableReadonlyNonEnumerable})

	proto := ip.Heap.NewObject("Object", ip.Heap.ObjectProto)
	proto.DefineOwn("constructor", &value.Property{Value: value.FromObject(fn), Attrs: value.NonEnumerable})
	fn.DefineOwn("prototype", &value.Property{Value: value.FromObject(proto), Attrs: value.NonEnumerable})
	return fn
}

// nameFunctionExpression stamps the intended display name for the
// `var x = function () {}` pattern: called by VariableDeclaration /
// AssignExpression evaluation when the initializer is a bare anonymous
// FunctionLiteral.
func nameFunctionExpression(fnVal value.Value, name string) {
	if !fnVal.IsObject() {
		return
	}
	fn := fnVal.AsObject()
	if p := fn.GetOwn("name"); p == nil || p.Value.AsString() == "" {
		fn.DefineOwn("name", &value.Property{Value: value.String(name), Attrs: value.NonConfigurableReadonlyNonEnumerable})
		fn.FuncDisplayName = name
	}
}

// Call dispatches an invocation on a value already known to be
// callable, used both by the evaluator and by native helpers that
// re-enter the interpreted world (Realm.Call, accessor re-entry,
// Array.prototype.sort comparators, ...).
func (ip *Interpreter) Call(fnVal value.Value, this value.Value, args []value.Value) (value.Value, *value.Throw) {
	if !fnVal.IsObject() || !fnVal.AsObject().IsCallable() {
		return value.Undefined, value.NewThrow(ip.Heap.NewError("TypeError", value.ToStringPrimitive(fnVal)+" is not a function"))
	}
	fn := fnVal.AsObject()
	switch fn.FuncKind {
	case value.FuncNative:
		return fn.Native(ip.realm(), this, args)
	case value.FuncAsync:
		return ip.callAsync(fn, this, args)
	case value.FuncBound:
		boundArgs := append(append([]value.Value{}, fn.BoundArgs...), args...)
		return ip.Call(fn.BoundTarget, fn.BoundThis, boundArgs)
	case value.FuncAST:
		return ip.callAST(fn, this, args, false)
	}
	return value.Undefined, value.NewThrow(ip.Heap.NewError("TypeError", "not callable"))
}

// Construct implements `new`: allocate a fresh object whose
// prototype is callee.prototype (falling back to
// Object.prototype), invoke the callee with that object as `this`,
// and substitute it back in for any non-object return value.
func (ip *Interpreter) Construct(fnVal value.Value, args []value.Value) (value.Value, *value.Throw) {
	if !fnVal.IsObject() || !fnVal.AsObject().IsCallable() {
		return value.Undefined, value.NewThrow(ip.Heap.NewError("TypeError", value.ToStringPrimitive(fnVal)+" is not a constructor"))
	}
	fn := fnVal.AsObject()
	if fn.IllegalConstructor {
		return value.Undefined, value.NewThrow(ip.Heap.NewError("TypeError", "Function is not a constructor"))
	}
	if fn.FuncKind == value.FuncBound {
		boundArgs := append(append([]value.Value{}, fn.BoundArgs...), args...)
		return ip.Construct(fn.BoundTarget, boundArgs)
	}
	proto := ip.Heap.ObjectProto
	if p := fn.GetOwn("prototype"); p != nil && p.Value.IsObject() {
		proto = p.Value.AsObject()
	}
	newObj := value.NewRawObject("Object", proto)

	var result value.Value
	var thrown *value.Throw
	switch fn.FuncKind {
	case value.FuncNative:
		result, thrown = fn.Native(ip.realm(), value.FromObject(newObj), args)
	case value.FuncAsync:
		result, thrown = ip.callAsync(fn, value.FromObject(newObj), args)
	case value.FuncAST:
		result, thrown = ip.callAST(fn, value.FromObject(newObj), args, true)
	default:
		return value.Undefined, value.NewThrow(ip.Heap.NewError("TypeError", "not a constructor"))
	}
	if thrown != nil {
		return value.Undefined, thrown
	}
	if result.IsObject() {
		return result, nil
	}
	return value.FromObject(newObj), nil
}

// callAST runs an AST-backed function body: fresh scope linked to the
// captured parent scope, parameters bound (missing -> undefined),
// `arguments` installed, `this` bound
// (boxed to the global object in non-strict mode when the caller
// passed undefined), body hoisted and executed.
func (ip *Interpreter) callAST(fn *value.Object, this value.Value, args []value.Value, isConstruct bool) (value.Value, *value.Throw) {
	lit := fn.Node
	strict := fn.ParentScope.Strict || bodyStartsWithUseStrict(lit.Body)
	scope := value.NewScope(fn.ParentScope, strict)

	effectiveThis := this
	if !strict && this.IsNullOrUndefined() {
		effectiveThis = value.FromObject(ip.Heap.Global)
	} else if !strict && !this.IsObject() {
		effectiveThis = ip.boxPrimitive(this)
	}
	scope.This = &effectiveThis

	if lit.ParameterList != nil {
		for i, param := range lit.ParameterList.List {
			var v value.Value
			if i < len(args) {
				v = args[i]
			}
			scope.SetDirect(param.Name, v)
		}
	}
	scope.DeclareVar("arguments")
	scope.SetDirect("arguments", value.FromObject(ip.makeArguments(args, fn)))

	block, ok := lit.Body.(*ast.BlockStatement)
	if !ok {
		return value.Undefined, value.NewThrow(ip.Heap.NewError("SyntaxError", "function body must be a block"))
	}
	ip.hoist(scope, block.List)

	completion := ip.execStatements(block.List, scope)
	switch completion.Type {
	case ThrowCompletion:
		return value.Undefined, completion.Throw
	case Return:
		return completion.Value, nil
	default:
		return value.Undefined, nil
	}
}

func bodyStartsWithUseStrict(body ast.Statement) bool {
	block, ok := body.(*ast.BlockStatement)
	if !ok {
		return false
	}
	return stmtsBeginWithUseStrict(block.List)
}

func stmtsBeginWithUseStrict(stmts []ast.Statement) bool {
	if len(stmts) == 0 {
		return false
	}
	es, ok := stmts[0].(*ast.ExpressionStatement)
	if !ok {
		return false
	}
	sl, ok := es.Expression.(*ast.StringLiteral)
	return ok && sl.Value == "use strict"
}

// boxPrimitive wraps a primitive `this` value the way non-strict
// function calls require: undefined/null become the global object,
// other primitives box to their wrapper object (ES5 §10.4.3).
func (ip *Interpreter) boxPrimitive(v value.Value) value.Value {
	switch v.Kind() {
	case value.KindString:
		o := value.NewRawObject("String", ip.Heap.StringProto)
		o.Data = v.AsString()
		return value.FromObject(o)
	case value.KindNumber:
		o := value.NewRawObject("Number", ip.Heap.NumberProto)
		o.Data = v.AsNumber()
		return value.FromObject(o)
	case value.KindBoolean:
		o := value.NewRawObject("Boolean", ip.Heap.BooleanProto)
		o.Data = v.AsBoolean()
		return value.FromObject(o)
	}
	return v
}

// makeArguments builds the Array-classed `arguments` object.
func (ip *Interpreter) makeArguments(args []value.Value, callee *value.Object) *value.Object {
	arr := ip.Heap.NewArray(args)
	arr.Class = "Arguments"
	arr.SetProto(ip.Heap.ObjectProto)
	arr.DefineOwn("length", &value.Property{Value: value.Int(len(args)), Attrs: value.NonEnumerable})
	arr.DefineOwn("callee", &value.Property{Value: value.FromObject(callee), Attrs: value.NonEnumerable})
	return arr
}

// callAsync implements host-async suspension: invoke the async native function
// with a resume callback, then block this interpreter goroutine until
// either the callback has already fired synchronously (common for
// host functions that are conceptually synchronous but exposed through
// the async ABI) or the evaluator must report paused=true to the host.
func (ip *Interpreter) callAsync(fn *value.Object, this value.Value, args []value.Value) (value.Value, *value.Throw) {
	ip.suspension.Begin()
	resultCh := make(chan asyncResultMsg, 1)
	resume := func(v value.Value, t *value.Throw) {
		ip.suspension.Deposit(v, t)
		resultCh <- asyncResultMsg{value: v, thrown: t}
	}
	fn.Async(ip.realm(), this, args, resume)

	select {
	case msg := <-resultCh:
		ip.suspension.TakeIfReady()
		return msg.value, msg.thrown
	default:
	}

	ip.sendEvent(ipEvent{kind: eventPaused})
	msg := <-resultCh
	ip.suspension.TakeIfReady()
	return msg.value, msg.thrown
}

type asyncResultMsg struct {
	value  value.Value
	thrown *value.Throw
}

// evalCall implements CallExpression: evaluate the callee in
// reference mode so `this` can be derived from an object-property
// reference, then evaluate arguments left-to-right, then dispatch.
func (ip *Interpreter) evalCall(e *ast.CallExpression, scope *value.Scope) (value.Value, *value.Throw) {
	fnVal, thisVal, isDirectEval, thrown := ip.evalCallee(e.Callee, scope)
	if thrown != nil {
		return value.Undefined, thrown
	}
	args := make([]value.Value, len(e.ArgumentList))
	for i, a := range e.ArgumentList {
		v, thrown := ip.evalExpression(a, scope)
		if thrown != nil {
			return value.Undefined, thrown
		}
		args[i] = v
	}

	if fnVal.IsObject() && fnVal.AsObject().IsEval {
		evalScope := ip.Heap.GlobalScope
		if isDirectEval {
			evalScope = scope
		}
		return ip.evalEval(args, evalScope)
	}

	return ip.Call(fnVal, thisVal, args)
}

// evalCallee resolves the callee expression, returning the function
// value, the implicit `this` derived from a property reference (or
// undefined otherwise), and whether this is a syntactically direct
// `eval(...)` call (bare identifier naming the eval marker).
func (ip *Interpreter) evalCallee(callee ast.Expression, scope *value.Scope) (value.Value, value.Value, bool, *value.Throw) {
	switch c := callee.(type) {
	case *ast.Identifier:
		r, thrown := ip.evalReference(c, scope)
		if thrown != nil {
			return value.Undefined, value.Undefined, false, thrown
		}
		v, thrown := ip.getValue(r)
		if thrown != nil {
			return value.Undefined, value.Undefined, false, thrown
		}
		return v, value.Undefined, c.Name == "eval", nil
	case *ast.DotExpression, *ast.BracketExpression:
		r, thrown := ip.evalReference(c, scope)
		if thrown != nil {
			return value.Undefined, value.Undefined, false, thrown
		}
		v, thrown := ip.getValue(r)
		if thrown != nil {
			return value.Undefined, value.Undefined, false, thrown
		}
		return v, r.base, false, nil
	default:
		v, thrown := ip.evalExpression(callee, scope)
		return v, value.Undefined, false, thrown
	}
}

func (ip *Interpreter) evalNew(e *ast.NewExpression, scope *value.Scope) (value.Value, *value.Throw) {
	fnVal, thrown := ip.evalExpression(e.Callee, scope)
	if thrown != nil {
		return value.Undefined, thrown
	}
	args := make([]value.Value, len(e.ArgumentList))
	for i, a := range e.ArgumentList {
		v, thrown := ip.evalExpression(a, scope)
		if thrown != nil {
			return value.Undefined, thrown
		}
		args[i] = v
	}
	return ip.Construct(fnVal, args)
}
