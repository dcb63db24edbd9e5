package interp

import (
	"math"

	"github.com/robertkrimen/otto/token"

	"sandbox5/pkg/value"
)

// toPrimitive implements ToPrimitive (ES5 §9.1) for object inputs,
// calling valueOf then toString (or the reverse for a "string" hint),
// both of which may be interpreted functions and so must be invoked
// through the evaluator rather than the pure value.ToNumber/ToString
// helpers in pkg/value.
func (ip *Interpreter) toPrimitive(v value.Value, hint string, scope *value.Scope) (value.Value, *value.Throw) {
	if !v.IsObject() {
		return v, nil
	}
	methods := []string{"valueOf", "toString"}
	if hint == "string" {
		methods = []string{"toString", "valueOf"}
	}
	for _, m := range methods {
		fnVal, pending, thrown := ip.Heap.GetProperty(v, m)
		if thrown != nil {
			return value.Undefined, thrown
		}
		if pending != nil {
			var thrown2 *value.Throw
			fnVal, thrown2 = ip.Call(value.FromObject(pending), v, nil)
			if thrown2 != nil {
				return value.Undefined, thrown2
			}
		}
		if fnVal.IsCallable() {
			result, thrown := ip.Call(fnVal, v, nil)
			if thrown != nil {
				return value.Undefined, thrown
			}
			if !result.IsObject() {
				return result, nil
			}
		}
	}
	return value.Undefined, value.NewThrow(ip.Heap.NewError("TypeError", "Cannot convert object to primitive value"))
}

func (ip *Interpreter) toNumber(v value.Value, scope *value.Scope) (float64, *value.Throw) {
	if v.IsObject() {
		prim, thrown := ip.toPrimitive(v, "number", scope)
		if thrown != nil {
			return math.NaN(), thrown
		}
		return value.ToNumber(prim), nil
	}
	return value.ToNumber(v), nil
}

func (ip *Interpreter) toStr(v value.Value, scope *value.Scope) (string, *value.Throw) {
	if v.IsObject() {
		prim, thrown := ip.toPrimitive(v, "string", scope)
		if thrown != nil {
			return "", thrown
		}
		return value.ToStringPrimitive(prim), nil
	}
	return value.ToStringPrimitive(v), nil
}

// abstractEquals implements the ES5 == algorithm (ES5 §11.9.3).
func (ip *Interpreter) abstractEquals(a, b value.Value, scope *value.Scope) (bool, *value.Throw) {
	if a.Kind() == b.Kind() {
		return value.StrictEquals(a, b), nil
	}
	if a.IsNullOrUndefined() && b.IsNullOrUndefined() {
		return true, nil
	}
	if a.IsNullOrUndefined() || b.IsNullOrUndefined() {
		return false, nil
	}
	if a.IsNumber() && b.IsString() {
		return a.AsNumber() == value.ToNumber(b), nil
	}
	if a.IsString() && b.IsNumber() {
		return value.ToNumber(a) == b.AsNumber(), nil
	}
	if a.IsBoolean() {
		return ip.abstractEquals(value.Number(boolToF(a.AsBoolean())), b, scope)
	}
	if b.IsBoolean() {
		return ip.abstractEquals(a, value.Number(boolToF(b.AsBoolean())), scope)
	}
	if (a.IsNumber() || a.IsString()) && b.IsObject() {
		prim, thrown := ip.toPrimitive(b, "default", scope)
		if thrown != nil {
			return false, thrown
		}
		return ip.abstractEquals(a, prim, scope)
	}
	if a.IsObject() && (b.IsNumber() || b.IsString()) {
		prim, thrown := ip.toPrimitive(a, "default", scope)
		if thrown != nil {
			return false, thrown
		}
		return ip.abstractEquals(prim, b, scope)
	}
	return false, nil
}

func boolToF(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// binaryOp implements BinaryExpression semantics (§4.C, ES5 §11.5-11.10).
func (ip *Interpreter) binaryOp(op token.Token, left, right value.Value, scope *value.Scope) (value.Value, *value.Throw) {
	switch op {
	case token.PLUS:
		lp, thrown := ip.toPrimitive(left, "default", scope)
		if thrown != nil {
			return value.Undefined, thrown
		}
		rp, thrown := ip.toPrimitive(right, "default", scope)
		if thrown != nil {
			return value.Undefined, thrown
		}
		if lp.IsString() || rp.IsString() {
			return value.String(value.ToStringPrimitive(lp) + value.ToStringPrimitive(rp)), nil
		}
		return value.Number(value.ToNumber(lp) + value.ToNumber(rp)), nil
	case token.MINUS:
		ln, rn, thrown := ip.toNumPair(left, right, scope)
		if thrown != nil {
			return value.Undefined, thrown
		}
		return value.Number(ln - rn), nil
	case token.MULTIPLY:
		ln, rn, thrown := ip.toNumPair(left, right, scope)
		if thrown != nil {
			return value.Undefined, thrown
		}
		return value.Number(ln * rn), nil
	case token.SLASH:
		ln, rn, thrown := ip.toNumPair(left, right, scope)
		if thrown != nil {
			return value.Undefined, thrown
		}
		return value.Number(ln / rn), nil
	case token.REMAINDER:
		ln, rn, thrown := ip.toNumPair(left, right, scope)
		if thrown != nil {
			return value.Undefined, thrown
		}
		return value.Number(math.Mod(ln, rn)), nil
	case token.EQUAL:
		eq, thrown := ip.abstractEquals(left, right, scope)
		if thrown != nil {
			return value.Undefined, thrown
		}
		return value.Bool(eq), nil
	case token.NOT_EQUAL:
		eq, thrown := ip.abstractEquals(left, right, scope)
		if thrown != nil {
			return value.Undefined, thrown
		}
		return value.Bool(!eq), nil
	case token.STRICT_EQUAL:
		return value.Bool(value.StrictEquals(left, right)), nil
	case token.STRICT_NOT_EQUAL:
		return value.Bool(!value.StrictEquals(left, right)), nil
	case token.LESS, token.GREATER, token.LESS_OR_EQUAL, token.GREATER_OR_EQUAL:
		return ip.relational(op, left, right, scope)
	case token.AND:
		li, ri, thrown := ip.toInt32Pair(left, right, scope)
		if thrown != nil {
			return value.Undefined, thrown
		}
		return value.Number(float64(li & ri)), nil
	case token.OR:
		li, ri, thrown := ip.toInt32Pair(left, right, scope)
		if thrown != nil {
			return value.Undefined, thrown
		}
		return value.Number(float64(li | ri)), nil
	case token.EXCLUSIVE_OR:
		li, ri, thrown := ip.toInt32Pair(left, right, scope)
		if thrown != nil {
			return value.Undefined, thrown
		}
		return value.Number(float64(li ^ ri)), nil
	case token.SHIFT_LEFT:
		li, thrown := ip.toInt32(left, scope)
		if thrown != nil {
			return value.Undefined, thrown
		}
		rn, thrown := ip.toNumber(right, scope)
		if thrown != nil {
			return value.Undefined, thrown
		}
		shift := uint32(value.ToUint32(rn)) & 0x1F
		return value.Number(float64(li << shift)), nil
	case token.SHIFT_RIGHT:
		li, thrown := ip.toInt32(left, scope)
		if thrown != nil {
			return value.Undefined, thrown
		}
		rn, thrown := ip.toNumber(right, scope)
		if thrown != nil {
			return value.Undefined, thrown
		}
		shift := uint32(value.ToUint32(rn)) & 0x1F
		return value.Number(float64(li >> shift)), nil
	case token.UNSIGNED_SHIFT_RIGHT:
		lu, thrown := ip.toUint32(left, scope)
		if thrown != nil {
			return value.Undefined, thrown
		}
		rn, thrown := ip.toNumber(right, scope)
		if thrown != nil {
			return value.Undefined, thrown
		}
		shift := uint32(value.ToUint32(rn)) & 0x1F
		return value.Number(float64(lu >> shift)), nil
	case token.INSTANCEOF:
		return ip.instanceOf(left, right)
	case token.IN:
		return ip.inOperator(left, right)
	}
	return value.Undefined, value.NewThrow(ip.Heap.NewError("SyntaxError", "unsupported binary operator "+op.String()))
}

func (ip *Interpreter) toNumPair(a, b value.Value, scope *value.Scope) (float64, float64, *value.Throw) {
	an, thrown := ip.toNumber(a, scope)
	if thrown != nil {
		return 0, 0, thrown
	}
	bn, thrown := ip.toNumber(b, scope)
	if thrown != nil {
		return 0, 0, thrown
	}
	return an, bn, nil
}

func (ip *Interpreter) toInt32(v value.Value, scope *value.Scope) (int32, *value.Throw) {
	n, thrown := ip.toNumber(v, scope)
	if thrown != nil {
		return 0, thrown
	}
	return value.ToInt32(n), nil
}

func (ip *Interpreter) toUint32(v value.Value, scope *value.Scope) (uint32, *value.Throw) {
	n, thrown := ip.toNumber(v, scope)
	if thrown != nil {
		return 0, thrown
	}
	return value.ToUint32(n), nil
}

func (ip *Interpreter) toInt32Pair(a, b value.Value, scope *value.Scope) (int32, int32, *value.Throw) {
	ai, thrown := ip.toInt32(a, scope)
	if thrown != nil {
		return 0, 0, thrown
	}
	bi, thrown := ip.toInt32(b, scope)
	if thrown != nil {
		return 0, 0, thrown
	}
	return ai, bi, nil
}

// relational implements the abstract relational comparison (ES5
// §11.8.5), including the string-vs-string lexicographic case.
func (ip *Interpreter) relational(op token.Token, left, right value.Value, scope *value.Scope) (value.Value, *value.Throw) {
	lp, thrown := ip.toPrimitive(left, "number", scope)
	if thrown != nil {
		return value.Undefined, thrown
	}
	rp, thrown := ip.toPrimitive(right, "number", scope)
	if thrown != nil {
		return value.Undefined, thrown
	}
	if lp.IsString() && rp.IsString() {
		ls, rs := lp.AsString(), rp.AsString()
		switch op {
		case token.LESS:
			return value.Bool(ls < rs), nil
		case token.GREATER:
			return value.Bool(ls > rs), nil
		case token.LESS_OR_EQUAL:
			return value.Bool(ls <= rs), nil
		case token.GREATER_OR_EQUAL:
			return value.Bool(ls >= rs), nil
		}
	}
	ln, rn := value.ToNumber(lp), value.ToNumber(rp)
	if math.IsNaN(ln) || math.IsNaN(rn) {
		return value.False, nil
	}
	switch op {
	case token.LESS:
		return value.Bool(ln < rn), nil
	case token.GREATER:
		return value.Bool(ln > rn), nil
	case token.LESS_OR_EQUAL:
		return value.Bool(ln <= rn), nil
	case token.GREATER_OR_EQUAL:
		return value.Bool(ln >= rn), nil
	}
	return value.Undefined, nil
}

func (ip *Interpreter) instanceOf(left, right value.Value) (value.Value, *value.Throw) {
	if !right.IsObject() || !right.AsObject().IsCallable() {
		return value.Undefined, value.NewThrow(ip.Heap.NewError("TypeError", "Right-hand side of 'instanceof' is not callable"))
	}
	if !left.IsObject() {
		return value.False, nil
	}
	protoVal, _, thrown := ip.Heap.GetProperty(right, "prototype")
	if thrown != nil {
		return value.Undefined, thrown
	}
	if !protoVal.IsObject() {
		return value.False, nil
	}
	proto := protoVal.AsObject()
	for cur := left.AsObject().Proto(); cur != nil; cur = cur.Proto() {
		if cur == proto {
			return value.True, nil
		}
	}
	return value.False, nil
}

func (ip *Interpreter) inOperator(left, right value.Value) (value.Value, *value.Throw) {
	if !right.IsObject() {
		return value.Undefined, value.NewThrow(ip.Heap.NewError("TypeError", "Cannot use 'in' operator to search for '"+value.ToStringPrimitive(left)+"' in "+value.ToStringPrimitive(right)))
	}
	name := value.ToStringPrimitive(left)
	for cur := right.AsObject(); cur != nil; cur = cur.Proto() {
		if cur.HasOwn(name) {
			return value.True, nil
		}
	}
	return value.False, nil
}

// unaryOp implements UnaryExpression semantics other than delete/typeof
// (handled in eval_expr.go since they need reference-mode evaluation).
func (ip *Interpreter) unaryOp(op token.Token, v value.Value, scope *value.Scope) (value.Value, *value.Throw) {
	switch op {
	case token.PLUS:
		n, thrown := ip.toNumber(v, scope)
		if thrown != nil {
			return value.Undefined, thrown
		}
		return value.Number(n), nil
	case token.MINUS:
		n, thrown := ip.toNumber(v, scope)
		if thrown != nil {
			return value.Undefined, thrown
		}
		return value.Number(-n), nil
	case token.BITWISE_NOT:
		i, thrown := ip.toInt32(v, scope)
		if thrown != nil {
			return value.Undefined, thrown
		}
		return value.Number(float64(^i)), nil
	case token.NOT:
		return value.Bool(!value.ToBoolean(v)), nil
	}
	return value.Undefined, nil
}

// compoundAssignOp maps a compound-assignment token to its underlying
// binary token for AssignExpression evaluation.
func compoundAssignOp(op token.Token) (token.Token, bool) {
	switch op {
	case token.ADD_ASSIGN:
		return token.PLUS, true
	case token.SUBTRACT_ASSIGN:
		return token.MINUS, true
	case token.MULTIPLY_ASSIGN:
		return token.MULTIPLY, true
	case token.QUOTIENT_ASSIGN:
		return token.SLASH, true
	case token.REMAINDER_ASSIGN:
		return token.REMAINDER, true
	case token.AND_ASSIGN:
		return token.AND, true
	case token.OR_ASSIGN:
		return token.OR, true
	case token.EXCLUSIVE_OR_ASSIGN:
		return token.EXCLUSIVE_OR, true
	case token.SHIFT_LEFT_ASSIGN:
		return token.SHIFT_LEFT, true
	case token.SHIFT_RIGHT_ASSIGN:
		return token.SHIFT_RIGHT, true
	case token.UNSIGNED_SHIFT_RIGHT_ASSIGN:
		return token.UNSIGNED_SHIFT_RIGHT, true
	}
	return 0, false
}
