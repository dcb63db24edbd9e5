package interp

import (
	"github.com/robertkrimen/otto/ast"
	"github.com/robertkrimen/otto/token"

	"sandbox5/pkg/value"
)

// execStatements runs a statement list to completion, used for
// function bodies, block bodies, and (via execTopLevel) the program
// body. The first abrupt completion short-circuits the rest.
func (ip *Interpreter) execStatements(stmts []ast.Statement, scope *value.Scope) Completion {
	result := normalUndefined
	for _, stmt := range stmts {
		c := ip.execStatement(stmt, scope)
		if c.isAbrupt() {
			return c
		}
		if c.Type == Normal {
			result = c
		}
	}
	return result
}

// execStatement is the per-node statement dispatch, returning the
// Completion the unwind algorithm consumes.
func (ip *Interpreter) execStatement(stmt ast.Statement, scope *value.Scope) Completion {
	switch s := stmt.(type) {
	case *ast.EmptyStatement:
		return normalUndefined
	case *ast.DebuggerStatement:
		return normalUndefined
	case *ast.BlockStatement:
		return ip.execStatements(s.List, scope)
	case *ast.VariableStatement:
		return ip.execVariableStatement(s, scope)
	case *ast.ExpressionStatement:
		v, thrown := ip.evalExpression(s.Expression, scope)
		if thrown != nil {
			return throwCompletion(thrown)
		}
		return normal(v)
	case *ast.FunctionStatement:
		// Already installed by hoisting; nothing to do at execution time.
		return normalUndefined
	case *ast.IfStatement:
		return ip.execIf(s, scope)
	case *ast.ForStatement:
		return ip.execFor(s, scope, "")
	case *ast.ForInStatement:
		return ip.execForIn(s, scope, "")
	case *ast.WhileStatement:
		return ip.execWhile(s, scope, "")
	case *ast.DoWhileStatement:
		return ip.execDoWhile(s, scope, "")
	case *ast.BranchStatement:
		label := ""
		if s.Label != nil {
			label = s.Label.Name
		}
		if s.Token == token.CONTINUE {
			return continueCompletion(label)
		}
		return breakCompletion(label)
	case *ast.ReturnStatement:
		if s.Argument == nil {
			return returnCompletion(value.Undefined)
		}
		v, thrown := ip.evalExpression(s.Argument, scope)
		if thrown != nil {
			return throwCompletion(thrown)
		}
		return returnCompletion(v)
	case *ast.ThrowStatement:
		v, thrown := ip.evalExpression(s.Argument, scope)
		if thrown != nil {
			return throwCompletion(thrown)
		}
		return throwCompletion(value.NewThrow(v))
	case *ast.TryStatement:
		return ip.execTry(s, scope)
	case *ast.SwitchStatement:
		return ip.execSwitch(s, scope, "")
	case *ast.LabelledStatement:
		return ip.execLabelled(s, scope)
	case *ast.WithStatement:
		return ip.execWith(s, scope)
	}
	return throwCompletion(value.NewThrow(ip.Heap.NewError("SyntaxError", "unsupported statement node")))
}

func (ip *Interpreter) execVariableStatement(s *ast.VariableStatement, scope *value.Scope) Completion {
	for _, decl := range s.List {
		ve, ok := decl.(*ast.VariableExpression)
		if !ok {
			continue
		}
		if ve.Initializer == nil {
			continue
		}
		v, thrown := ip.evalExpression(ve.Initializer, scope)
		if thrown != nil {
			return throwCompletion(thrown)
		}
		if fl, ok := ve.Initializer.(*ast.FunctionLiteral); ok && fl.Name == nil {
			nameFunctionExpression(v, ve.Name)
		}
		// Declarations write directly into the binding object, never
		// through setProperty, so a same-named accessor on the global
		// prototype chain is never invoked.
		scope.SetDirect(ve.Name, v)
	}
	return normalUndefined
}

func (ip *Interpreter) execIf(s *ast.IfStatement, scope *value.Scope) Completion {
	t, thrown := ip.evalExpression(s.Test, scope)
	if thrown != nil {
		return throwCompletion(thrown)
	}
	if value.ToBoolean(t) {
		return ip.execStatement(s.Consequent, scope)
	}
	if s.Alternate != nil {
		return ip.execStatement(s.Alternate, scope)
	}
	return normalUndefined
}

// loopAbsorbs implements the unwind algorithm's loop rule:
// an unlabelled Break/Continue is absorbed here; a labelled one is
// absorbed only if it names this loop (ownLabel, set by an enclosing
// LabelledStatement).
func loopAbsorbs(c Completion, ownLabel string) (absorb bool, stop bool) {
	if c.Type == Break && (c.Label == "" || c.Label == ownLabel) {
		return true, true
	}
	if c.Type == Continue && (c.Label == "" || c.Label == ownLabel) {
		return true, false
	}
	return false, false
}

func (ip *Interpreter) execWhile(s *ast.WhileStatement, scope *value.Scope, label string) Completion {
	result := normalUndefined
	for {
		t, thrown := ip.evalExpression(s.Test, scope)
		if thrown != nil {
			return throwCompletion(thrown)
		}
		if !value.ToBoolean(t) {
			return result
		}
		c := ip.execStatement(s.Body, scope)
		if c.isAbrupt() {
			if absorb, stop := loopAbsorbs(c, label); absorb {
				if stop {
					return result
				}
				continue
			}
			return c
		}
		result = c
	}
}

func (ip *Interpreter) execDoWhile(s *ast.DoWhileStatement, scope *value.Scope, label string) Completion {
	result := normalUndefined
	for {
		c := ip.execStatement(s.Body, scope)
		if c.isAbrupt() {
			if absorb, stop := loopAbsorbs(c, label); absorb {
				if stop {
					return result
				}
			} else {
				return c
			}
		} else {
			result = c
		}
		t, thrown := ip.evalExpression(s.Test, scope)
		if thrown != nil {
			return throwCompletion(thrown)
		}
		if !value.ToBoolean(t) {
			return result
		}
	}
}

func (ip *Interpreter) execFor(s *ast.ForStatement, scope *value.Scope, label string) Completion {
	if s.Initializer != nil {
		if ve, ok := s.Initializer.(*ast.VariableExpression); ok {
			if ve.Initializer != nil {
				v, thrown := ip.evalExpression(ve.Initializer, scope)
				if thrown != nil {
					return throwCompletion(thrown)
				}
				scope.SetDirect(ve.Name, v)
			}
		} else if seq, ok := s.Initializer.(*ast.SequenceExpression); ok {
			for _, e := range seq.Sequence {
				if ve, ok := e.(*ast.VariableExpression); ok && ve.Initializer != nil {
					v, thrown := ip.evalExpression(ve.Initializer, scope)
					if thrown != nil {
						return throwCompletion(thrown)
					}
					scope.SetDirect(ve.Name, v)
				}
			}
		} else {
			if _, thrown := ip.evalExpression(s.Initializer, scope); thrown != nil {
				return throwCompletion(thrown)
			}
		}
	}
	result := normalUndefined
	for {
		if s.Test != nil {
			t, thrown := ip.evalExpression(s.Test, scope)
			if thrown != nil {
				return throwCompletion(thrown)
			}
			if !value.ToBoolean(t) {
				return result
			}
		}
		c := ip.execStatement(s.Body, scope)
		if c.isAbrupt() {
			if absorb, stop := loopAbsorbs(c, label); absorb {
				if stop {
					return result
				}
			} else {
				return c
			}
		} else {
			result = c
		}
		if s.Update != nil {
			if _, thrown := ip.evalExpression(s.Update, scope); thrown != nil {
				return throwCompletion(thrown)
			}
		}
	}
}

func (ip *Interpreter) execForIn(s *ast.ForInStatement, scope *value.Scope, label string) Completion {
	rightVal, thrown := ip.evalExpression(s.Source, scope)
	if thrown != nil {
		return throwCompletion(thrown)
	}
	if rightVal.IsNullOrUndefined() {
		return normalUndefined
	}
	var target *value.Object
	if rightVal.IsObject() {
		target = rightVal.AsObject()
	}
	if target == nil {
		return normalUndefined
	}

	seen := map[string]bool{}
	result := normalUndefined
	for cur := target; cur != nil; cur = cur.Proto() {
		for _, key := range cur.OwnKeys() {
			if seen[key] {
				continue
			}
			seen[key] = true
			p := cur.GetOwn(key)
			if p == nil || !p.Attrs.Enumerable {
				continue
			}
			if err := ip.assignForInBinding(s.Into, key, scope); err != nil {
				return throwCompletion(err)
			}
			c := ip.execStatement(s.Body, scope)
			if c.isAbrupt() {
				if absorb, stop := loopAbsorbs(c, label); absorb {
					if stop {
						return result
					}
					continue
				}
				return c
			}
			result = c
		}
	}
	return result
}

func (ip *Interpreter) assignForInBinding(into ast.Expression, key string, scope *value.Scope) *value.Throw {
	if ve, ok := into.(*ast.VariableExpression); ok {
		scope.SetDirect(ve.Name, value.String(key))
		return nil
	}
	r, thrown := ip.evalReference(into, scope)
	if thrown != nil {
		return thrown
	}
	return ip.setValue(r, value.String(key))
}

func (ip *Interpreter) execSwitch(s *ast.SwitchStatement, scope *value.Scope, label string) Completion {
	disc, thrown := ip.evalExpression(s.Discriminant, scope)
	if thrown != nil {
		return throwCompletion(thrown)
	}
	matched := -1
	defaultIdx := -1
	for i, c := range s.Body {
		if c.Test == nil {
			defaultIdx = i
			continue
		}
		tv, thrown := ip.evalExpression(c.Test, scope)
		if thrown != nil {
			return throwCompletion(thrown)
		}
		if value.StrictEquals(disc, tv) {
			matched = i
			break
		}
	}
	if matched == -1 {
		matched = defaultIdx
	}
	if matched == -1 {
		return normalUndefined
	}
	result := normalUndefined
	for i := matched; i < len(s.Body); i++ {
		for _, stmt := range s.Body[i].Consequent {
			c := ip.execStatement(stmt, scope)
			if c.isAbrupt() {
				if c.Type == Break && c.Label == "" {
					return result
				}
				if c.Type == Break && c.Label == label {
					return result
				}
				return c
			}
			result = c
		}
	}
	return result
}

func (ip *Interpreter) execTry(s *ast.TryStatement, scope *value.Scope) Completion {
	result := ip.execStatement(s.Body, scope)
	if result.Type == ThrowCompletion && s.Catch != nil {
		catchScope := value.NewScope(scope, scope.Strict)
		catchScope.SetDirect(s.Catch.Parameter.Name, result.Throw.Value)
		result = ip.execStatement(s.Catch.Body, catchScope)
	}
	if s.Finally != nil {
		finallyResult := ip.execStatement(s.Finally, scope)
		if finallyResult.isAbrupt() {
			return finallyResult
		}
	}
	return result
}

// execLabelled implements LabelledStatement: loop and switch
// bodies consult the label directly so `continue label;` can target an
// outer loop; any other labelled statement just absorbs a matching
// unlabelled-equivalent Break.
func (ip *Interpreter) execLabelled(s *ast.LabelledStatement, scope *value.Scope) Completion {
	label := s.Label.Name
	switch body := s.Statement.(type) {
	case *ast.ForStatement:
		return ip.execFor(body, scope, label)
	case *ast.ForInStatement:
		return ip.execForIn(body, scope, label)
	case *ast.WhileStatement:
		return ip.execWhile(body, scope, label)
	case *ast.DoWhileStatement:
		return ip.execDoWhile(body, scope, label)
	case *ast.SwitchStatement:
		return ip.execSwitch(body, scope, label)
	default:
		c := ip.execStatement(s.Statement, scope)
		if c.Type == Break && c.Label == label {
			return normalUndefined
		}
		return c
	}
}

func (ip *Interpreter) execWith(s *ast.WithStatement, scope *value.Scope) Completion {
	objVal, thrown := ip.evalExpression(s.Object, scope)
	if thrown != nil {
		return throwCompletion(thrown)
	}
	if !objVal.IsObject() {
		return throwCompletion(value.NewThrow(ip.Heap.NewError("TypeError", "with target must be an object")))
	}
	withScope := value.NewWithScope(scope, objVal.AsObject())
	return ip.execStatement(s.Body, withScope)
}
