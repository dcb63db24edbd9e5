package interp

import (
	"github.com/robertkrimen/otto/ast"

	"sandbox5/pkg/value"
)

// hoist implements declaration hoisting: before executing a function body or program
// body, pre-walk the syntactic children (without descending into
// nested function bodies) and install `undefined` for each `var`
// declarator, and a fully constructed function object for each
// FunctionDeclaration. FunctionExpression and inside-expression
// statements are never hoisted.
func (ip *Interpreter) hoist(scope *value.Scope, body []ast.Statement) {
	var varNames []string
	var funcDecls []*ast.FunctionLiteral
	for _, stmt := range body {
		walkHoist(stmt, &varNames, &funcDecls)
	}
	for _, name := range varNames {
		scope.DeclareVar(name)
	}
	for _, lit := range funcDecls {
		fn := ip.makeFunction(lit, scope)
		scope.DeclareFunctionBinding(lit.Name.Name, value.FromObject(fn))
	}
}

func walkHoist(stmt ast.Statement, vars *[]string, funcs *[]*ast.FunctionLiteral) {
	switch s := stmt.(type) {
	case *ast.VariableStatement:
		for _, e := range s.List {
			if ve, ok := e.(*ast.VariableExpression); ok {
				*vars = append(*vars, ve.Name)
			}
		}
	case *ast.FunctionStatement:
		*funcs = append(*funcs, s.Function)
	case *ast.BlockStatement:
		for _, c := range s.List {
			walkHoist(c, vars, funcs)
		}
	case *ast.IfStatement:
		walkHoist(s.Consequent, vars, funcs)
		if s.Alternate != nil {
			walkHoist(s.Alternate, vars, funcs)
		}
	case *ast.ForStatement:
		if vs, ok := s.Initializer.(*ast.VariableExpression); ok {
			*vars = append(*vars, vs.Name)
		}
		walkHoistForInitList(s.Initializer, vars)
		walkHoist(s.Body, vars, funcs)
	case *ast.ForInStatement:
		if ve, ok := s.Into.(*ast.VariableExpression); ok {
			*vars = append(*vars, ve.Name)
		}
		walkHoist(s.Body, vars, funcs)
	case *ast.WhileStatement:
		walkHoist(s.Body, vars, funcs)
	case *ast.DoWhileStatement:
		walkHoist(s.Body, vars, funcs)
	case *ast.TryStatement:
		walkHoist(s.Body, vars, funcs)
		if s.Catch != nil {
			walkHoist(s.Catch.Body, vars, funcs)
		}
		if s.Finally != nil {
			walkHoist(s.Finally, vars, funcs)
		}
	case *ast.SwitchStatement:
		for _, c := range s.Body {
			for _, cs := range c.Consequent {
				walkHoist(cs, vars, funcs)
			}
		}
	case *ast.LabelledStatement:
		walkHoist(s.Statement, vars, funcs)
	case *ast.WithStatement:
		walkHoist(s.Body, vars, funcs)
	case *ast.ExpressionStatement:
		walkHoistExpr(s.Expression, vars)
	}
	// BlockStatement/If/etc already recurse; other leaf statement kinds
	// (Return, Throw, Break, Continue, Empty, Debugger) contribute
	// nothing to hoisting.
}

// walkHoistForInitList covers `for (var a=1, b=2; ...)`, whose
// initializer is a SequenceExpression of VariableExpressions rather
// than a single VariableExpression.
func walkHoistForInitList(init ast.Expression, vars *[]string) {
	if seq, ok := init.(*ast.SequenceExpression); ok {
		for _, e := range seq.Sequence {
			if ve, ok := e.(*ast.VariableExpression); ok {
				*vars = append(*vars, ve.Name)
			}
		}
	}
}

// walkHoistExpr looks for a VariableExpression appearing as a bare
// expression statement — otto's parser represents a VariableStatement
// with multiple declarators as individual VariableExpression nodes in
// its List, already covered above; this handles the degenerate case of
// `var x` parsed as part of a comma expression.
func walkHoistExpr(expr ast.Expression, vars *[]string) {
	if seq, ok := expr.(*ast.SequenceExpression); ok {
		for _, e := range seq.Sequence {
			if ve, ok := e.(*ast.VariableExpression); ok {
				*vars = append(*vars, ve.Name)
			}
		}
	}
}
