package builtins

import (
	"math"
	"strconv"
	"strings"

	"sandbox5/pkg/value"
)

// installGlobalFunctions wires the free functions and constants every
// ES5 global object carries directly (parseInt/parseFloat/isNaN/
// isFinite/the URI codec quartet), the NaN/Infinity/undefined
// non-writable bindings, the self-referential window/self/this
// bindings, and the eval marker function whose IsEval flag evalCall
// checks directly rather
// than dispatching through Native (eval needs the caller's own scope
// when called directly, which a native function body has no way to
// observe).
func installGlobalFunctions(h *value.Heap, host Host) {
	// NaN/Infinity/undefined are non-configurable non-writable on the
	// global object, unlike ordinary globals.
	for name, v := range map[string]value.Value{
		"NaN":       value.Number(math.NaN()),
		"Infinity":  value.Number(math.Inf(1)),
		"undefined": value.Undefined,
	} {
		h.Global.DefineOwn(name, &value.Property{Value: v, Attrs: value.NonConfigurableReadonlyNonEnumerable})
	}
	defineGlobal(h, "global", value.FromObject(h.Global))
	defineGlobal(h, "window", value.FromObject(h.Global))
	defineGlobal(h, "self", value.FromObject(h.Global))
	defineGlobal(h, "this", value.FromObject(h.Global))

	evalFn := h.NewNativeFunction("eval", 1, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		// never actually invoked: evalCall intercepts calls to the
		// IsEval-tagged function before reaching Native, so indirect
		// eval (eval.call(...), var e = eval; e(...)) would land here
		// were direct-call interception the whole story; it isn't — an
		// indirect call falls through to evalCall's isDirectEval=false
		// path, which still special-cases fnVal.AsObject().IsEval.
		return value.Undefined, nil
	})
	evalFn.IsEval = true
	defineGlobal(h, "eval", value.FromObject(evalFn))

	method(h, h.Global, "parseInt", 2, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		s := strings.TrimSpace(value.ToStringPrimitive(arg(args, 0)))
		radix := 0
		if len(args) > 1 {
			radix = int(value.ToNumber(args[1]))
		}
		neg := false
		if len(s) > 0 && (s[0] == '+' || s[0] == '-') {
			neg = s[0] == '-'
			s = s[1:]
		}
		if radix == 0 {
			if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
				radix = 16
				s = s[2:]
			} else {
				radix = 10
			}
		} else if radix == 16 && (strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")) {
			s = s[2:]
		}
		if radix < 2 || radix > 36 {
			return value.Number(math.NaN()), nil
		}
		end := 0
		for end < len(s) && digitValue(s[end]) < radix {
			end++
		}
		if end == 0 {
			return value.Number(math.NaN()), nil
		}
		n, err := strconv.ParseInt(s[:end], radix, 64)
		if err != nil {
			// value too large for int64 at this radix: fall back to float accumulation
			f := 0.0
			for i := 0; i < end; i++ {
				f = f*float64(radix) + float64(digitValue(s[i]))
			}
			if neg {
				f = -f
			}
			return value.Number(f), nil
		}
		f := float64(n)
		if neg {
			f = -f
		}
		return value.Number(f), nil
	})

	method(h, h.Global, "parseFloat", 1, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		s := strings.TrimSpace(value.ToStringPrimitive(arg(args, 0)))
		end := 0
		seenDot, seenExp, seenDigit := false, false, false
		if end < len(s) && (s[end] == '+' || s[end] == '-') {
			end++
		}
		for end < len(s) {
			c := s[end]
			if c >= '0' && c <= '9' {
				seenDigit = true
				end++
				continue
			}
			if c == '.' && !seenDot && !seenExp {
				seenDot = true
				end++
				continue
			}
			if (c == 'e' || c == 'E') && !seenExp && seenDigit {
				seenExp = true
				end++
				if end < len(s) && (s[end] == '+' || s[end] == '-') {
					end++
				}
				continue
			}
			break
		}
		if !seenDigit {
			if strings.HasPrefix(s, "Infinity") || strings.HasPrefix(s, "+Infinity") {
				return value.Number(math.Inf(1)), nil
			}
			if strings.HasPrefix(s, "-Infinity") {
				return value.Number(math.Inf(-1)), nil
			}
			return value.Number(math.NaN()), nil
		}
		n, err := strconv.ParseFloat(s[:end], 64)
		if err != nil {
			return value.Number(math.NaN()), nil
		}
		return value.Number(n), nil
	})

	method(h, h.Global, "isNaN", 1, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		return value.Bool(math.IsNaN(value.ToNumber(arg(args, 0)))), nil
	})

	method(h, h.Global, "isFinite", 1, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		n := value.ToNumber(arg(args, 0))
		return value.Bool(!math.IsNaN(n) && !math.IsInf(n, 0)), nil
	})

	method(h, h.Global, "encodeURIComponent", 1, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		return value.String(encodeURI(value.ToStringPrimitive(arg(args, 0)), uriComponentUnreserved)), nil
	})
	method(h, h.Global, "encodeURI", 1, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		return value.String(encodeURI(value.ToStringPrimitive(arg(args, 0)), uriUnreserved)), nil
	})
	method(h, h.Global, "decodeURIComponent", 1, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		out, err := decodeURI(value.ToStringPrimitive(arg(args, 0)))
		if err != nil {
			return value.Undefined, value.NewThrow(h.NewError("URIError", "URI malformed"))
		}
		return value.String(out), nil
	})
	method(h, h.Global, "decodeURI", 1, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		out, err := decodeURI(value.ToStringPrimitive(arg(args, 0)))
		if err != nil {
			return value.Undefined, value.NewThrow(h.NewError("URIError", "URI malformed"))
		}
		return value.String(out), nil
	})
}

func digitValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	}
	return 99
}

const uriComponentUnreserved = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_.!~*'()"
const uriUnreserved = uriComponentUnreserved + ";/?:@&=+$,#"

func encodeURI(s, unreserved string) string {
	var b strings.Builder
	for _, c := range []byte(s) {
		if strings.IndexByte(unreserved, c) >= 0 {
			b.WriteByte(c)
		} else {
			b.WriteByte('%')
			if c < 0x10 {
				b.WriteByte('0')
			}
			b.WriteString(strings.ToUpper(strconv.FormatInt(int64(c), 16)))
		}
	}
	return b.String()
}

func decodeURI(s string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '%' {
			b.WriteByte(s[i])
			continue
		}
		if i+2 >= len(s) {
			return "", strconv.ErrSyntax
		}
		n, err := strconv.ParseUint(s[i+1:i+3], 16, 8)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte(n))
		i += 2
	}
	return b.String(), nil
}
