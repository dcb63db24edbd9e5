package builtins

import (
	"sandbox5/pkg/regexpiso"
	"sandbox5/pkg/value"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// installString wires the String constructor and String.prototype.
// toLowerCase/toUpperCase go through golang.org/x/text/cases rather
// than strings.ToLower/ToUpper so casing follows the full Unicode
// tables instead of ASCII-biased folding (German ß, Turkish dotless i,
// and so on are genuine test262 edge cases).
//
// The regex-consuming methods (split/match/search/replace) call
// regexpiso.Backend.FindFromBlocking directly rather than routing
// through the evaluator's async-call machinery; see the note on
// FindFromBlocking in pkg/regexpiso for why.
func installString(h *value.Heap, host Host) {
	ctor := h.NewNativeFunction("String", 1, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		s := ""
		if len(args) > 0 {
			v, thrown := toStringViaToString(r, h, args[0])
			if thrown != nil {
				return value.Undefined, thrown
			}
			s = v
		}
		// Construct position: this is the freshly allocated instance,
		// stamp it into a boxed String; plain calls return the primitive.
		if this.IsObject() && this.AsObject().Class == "Object" {
			obj := this.AsObject()
			obj.Class = "String"
			obj.Data = s
			return value.FromObject(obj), nil
		}
		return value.String(s), nil
	})
	ctor.DefineOwn("prototype", &value.Property{Value: value.FromObject(h.StringProto), Attrs: value.NonConfigurableReadonlyNonEnumerable})
	h.StringProto.DefineOwn("constructor", &value.Property{Value: value.FromObject(ctor), Attrs: value.NonEnumerable})
	defineGlobal(h, "String", value.FromObject(ctor))

	method(h, ctor, "fromCharCode", 1, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		var b strings.Builder
		for _, a := range args {
			b.WriteRune(rune(uint16(value.ToNumber(a))))
		}
		return value.String(b.String()), nil
	})

	method(h, h.StringProto, "toString", 0, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		s, thrown := thisString(h, this)
		return value.String(s), thrown
	})
	method(h, h.StringProto, "valueOf", 0, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		s, thrown := thisString(h, this)
		return value.String(s), thrown
	})

	method(h, h.StringProto, "charAt", 1, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		s, thrown := thisString(h, this)
		if thrown != nil {
			return value.Undefined, thrown
		}
		runes := []rune(s)
		i := int(value.ToNumber(arg(args, 0)))
		if i < 0 || i >= len(runes) {
			return value.String(""), nil
		}
		return value.String(string(runes[i])), nil
	})

	method(h, h.StringProto, "charCodeAt", 1, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		s, thrown := thisString(h, this)
		if thrown != nil {
			return value.Undefined, thrown
		}
		runes := []rune(s)
		i := int(value.ToNumber(arg(args, 0)))
		if i < 0 || i >= len(runes) {
			return value.Number(nan()), nil
		}
		return value.Number(float64(runes[i])), nil
	})

	method(h, h.StringProto, "indexOf", 1, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		s, thrown := thisString(h, this)
		if thrown != nil {
			return value.Undefined, thrown
		}
		needle := []rune(value.ToStringPrimitive(arg(args, 0)))
		runes := []rune(s)
		start := 0
		if len(args) > 1 {
			start = relativeIndex(args[1], len(runes), 0)
		}
		for i := start; i+len(needle) <= len(runes); i++ {
			if runesEqual(runes[i:i+len(needle)], needle) {
				return value.Number(float64(i)), nil
			}
		}
		return value.Number(-1), nil
	})

	method(h, h.StringProto, "lastIndexOf", 1, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		s, thrown := thisString(h, this)
		if thrown != nil {
			return value.Undefined, thrown
		}
		needle := value.ToStringPrimitive(arg(args, 0))
		idx := strings.LastIndex(s, needle)
		if idx < 0 {
			return value.Number(-1), nil
		}
		return value.Number(float64(len([]rune(s[:idx])))), nil
	})

	method(h, h.StringProto, "slice", 2, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		s, thrown := thisString(h, this)
		if thrown != nil {
			return value.Undefined, thrown
		}
		runes := []rune(s)
		start := relativeIndex(arg(args, 0), len(runes), 0)
		end := relativeIndex(arg(args, 1), len(runes), len(runes))
		if end < start {
			end = start
		}
		return value.String(string(runes[start:end])), nil
	})

	method(h, h.StringProto, "substring", 2, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		s, thrown := thisString(h, this)
		if thrown != nil {
			return value.Undefined, thrown
		}
		runes := []rune(s)
		n := len(runes)
		start := clampInt(int(value.ToNumber(arg(args, 0))), 0, n)
		end := n
		if len(args) > 1 && !args[1].IsUndefined() {
			end = clampInt(int(value.ToNumber(args[1])), 0, n)
		}
		if start > end {
			start, end = end, start
		}
		return value.String(string(runes[start:end])), nil
	})

	method(h, h.StringProto, "substr", 2, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		s, thrown := thisString(h, this)
		if thrown != nil {
			return value.Undefined, thrown
		}
		runes := []rune(s)
		n := len(runes)
		start := relativeIndex(arg(args, 0), n, 0)
		length := n - start
		if len(args) > 1 && !args[1].IsUndefined() {
			length = int(value.ToNumber(args[1]))
		}
		length = clampInt(length, 0, n-start)
		return value.String(string(runes[start : start+length])), nil
	})

	method(h, h.StringProto, "concat", 1, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		s, thrown := thisString(h, this)
		if thrown != nil {
			return value.Undefined, thrown
		}
		var b strings.Builder
		b.WriteString(s)
		for _, a := range args {
			b.WriteString(value.ToStringPrimitive(a))
		}
		return value.String(b.String()), nil
	})

	method(h, h.StringProto, "trim", 0, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		s, thrown := thisString(h, this)
		if thrown != nil {
			return value.Undefined, thrown
		}
		return value.String(strings.TrimSpace(s)), nil
	})

	method(h, h.StringProto, "toLowerCase", 0, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		s, thrown := thisString(h, this)
		if thrown != nil {
			return value.Undefined, thrown
		}
		return value.String(cases.Lower(language.Und).String(s)), nil
	})
	method(h, h.StringProto, "toLocaleLowerCase", 0, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		s, thrown := thisString(h, this)
		if thrown != nil {
			return value.Undefined, thrown
		}
		return value.String(cases.Lower(language.Und).String(s)), nil
	})

	method(h, h.StringProto, "toUpperCase", 0, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		s, thrown := thisString(h, this)
		if thrown != nil {
			return value.Undefined, thrown
		}
		return value.String(cases.Upper(language.Und).String(s)), nil
	})
	method(h, h.StringProto, "toLocaleUpperCase", 0, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		s, thrown := thisString(h, this)
		if thrown != nil {
			return value.Undefined, thrown
		}
		return value.String(cases.Upper(language.Und).String(s)), nil
	})

	method(h, h.StringProto, "localeCompare", 1, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		s, thrown := thisString(h, this)
		if thrown != nil {
			return value.Undefined, thrown
		}
		other := value.ToStringPrimitive(arg(args, 0))
		return value.Number(float64(strings.Compare(s, other))), nil
	})

	method(h, h.StringProto, "split", 2, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		s, thrown := thisString(h, this)
		if thrown != nil {
			return value.Undefined, thrown
		}
		limit := -1
		if len(args) > 1 && !args[1].IsUndefined() {
			limit = int(value.ToNumber(args[1]))
		}
		sep := arg(args, 0)
		if sep.IsUndefined() {
			return value.FromObject(h.NewArray([]value.Value{value.String(s)})), nil
		}
		if sep.IsObject() && sep.AsObject().Class == "RegExp" {
			parts, thrown := splitByRegExp(host, h, sep.AsObject(), s)
			if thrown != nil {
				return value.Undefined, thrown
			}
			return value.FromObject(h.NewArray(clampValues(parts, limit))), nil
		}
		sepStr := value.ToStringPrimitive(sep)
		var parts []value.Value
		if sepStr == "" {
			for _, r := range s {
				parts = append(parts, value.String(string(r)))
			}
		} else {
			for _, p := range strings.Split(s, sepStr) {
				parts = append(parts, value.String(p))
			}
		}
		return value.FromObject(h.NewArray(clampValues(parts, limit))), nil
	})

	method(h, h.StringProto, "match", 1, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		s, thrown := thisString(h, this)
		if thrown != nil {
			return value.Undefined, thrown
		}
		re, thrown := toRegExpObject(host, h, arg(args, 0))
		if thrown != nil {
			return value.Undefined, thrown
		}
		c, _ := re.Data.(*regexpiso.Compiled)
		if !c.Global {
			res := host.RegexBackend().FindFromBlocking(c, s, 0)
			if res.Err != nil {
				return value.Undefined, value.NewThrow(h.NewError("Error", res.Err.Error()))
			}
			if res.Match == nil {
				return value.Null, nil
			}
			return value.FromObject(matchToArray(h, res.Match, s)), nil
		}
		var all []value.Value
		from := 0
		runes := []rune(s)
		for from <= len(runes) {
			res := host.RegexBackend().FindFromBlocking(c, s, from)
			if res.Err != nil {
				return value.Undefined, value.NewThrow(h.NewError("Error", res.Err.Error()))
			}
			if res.Match == nil {
				break
			}
			all = append(all, value.String(res.Match.Text))
			next := res.Match.Index + len([]rune(res.Match.Text))
			if next == from {
				next++
			}
			from = next
		}
		if len(all) == 0 {
			return value.Null, nil
		}
		return value.FromObject(h.NewArray(all)), nil
	})

	method(h, h.StringProto, "search", 1, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		s, thrown := thisString(h, this)
		if thrown != nil {
			return value.Undefined, thrown
		}
		re, thrown := toRegExpObject(host, h, arg(args, 0))
		if thrown != nil {
			return value.Undefined, thrown
		}
		c, _ := re.Data.(*regexpiso.Compiled)
		res := host.RegexBackend().FindFromBlocking(c, s, 0)
		if res.Err != nil {
			return value.Undefined, value.NewThrow(h.NewError("Error", res.Err.Error()))
		}
		if res.Match == nil {
			return value.Number(-1), nil
		}
		return value.Number(float64(res.Match.Index)), nil
	})

	method(h, h.StringProto, "replace", 2, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		s, thrown := thisString(h, this)
		if thrown != nil {
			return value.Undefined, thrown
		}
		pattern := arg(args, 0)
		replacement := arg(args, 1)
		if pattern.IsObject() && pattern.AsObject().Class == "RegExp" {
			return replaceByRegExp(r, host, h, pattern.AsObject(), s, replacement)
		}
		needle := value.ToStringPrimitive(pattern)
		idx := strings.Index(s, needle)
		if idx < 0 {
			return value.String(s), nil
		}
		rep, thrown := expandReplacement(r, h, replacement, needle, idx, s, nil)
		if thrown != nil {
			return value.Undefined, thrown
		}
		return value.String(s[:idx] + rep + s[idx+len(needle):]), nil
	})
}

func runesEqual(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func nan() float64 {
	n := 0.0
	return n / n
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampValues(vs []value.Value, limit int) []value.Value {
	if limit < 0 || limit >= len(vs) {
		return vs
	}
	return vs[:limit]
}

func thisString(h *value.Heap, this value.Value) (string, *value.Throw) {
	if this.IsString() {
		return this.AsString(), nil
	}
	if this.IsObject() && this.AsObject().Class == "String" {
		if s, ok := this.AsObject().Data.(string); ok {
			return s, nil
		}
	}
	return value.ToStringPrimitive(this), nil
}

// toRegExpObject coerces a String.prototype.match/search/replace
// pattern argument to a RegExp object, compiling a literal pattern
// from a plain string per ES5 §15.5.4.10 step 3.
func toRegExpObject(host Host, h *value.Heap, pattern value.Value) (*value.Object, *value.Throw) {
	if pattern.IsObject() && pattern.AsObject().Class == "RegExp" {
		return pattern.AsObject(), nil
	}
	src := ""
	if !pattern.IsUndefined() {
		src = value.ToStringPrimitive(pattern)
	}
	c, err := regexpiso.Compile(src, "")
	if err != nil {
		return nil, value.NewThrow(h.NewError("SyntaxError", "Invalid regular expression: "+err.Error()))
	}
	return newRegExpObject(h, c), nil
}

func splitByRegExp(host Host, h *value.Heap, re *value.Object, s string) ([]value.Value, *value.Throw) {
	c, _ := re.Data.(*regexpiso.Compiled)
	var out []value.Value
	from, last := 0, 0
	runes := []rune(s)
	for from <= len(runes) {
		res := host.RegexBackend().FindFromBlocking(c, s, from)
		if res.Err != nil {
			return nil, value.NewThrow(h.NewError("Error", res.Err.Error()))
		}
		if res.Match == nil {
			break
		}
		matchLen := len([]rune(res.Match.Text))
		if res.Match.Index == last && matchLen == 0 {
			from++
			continue
		}
		out = append(out, value.String(string(runes[last:res.Match.Index])))
		for _, g := range res.Match.Groups {
			if g.Found {
				out = append(out, value.String(g.Text))
			} else {
				out = append(out, value.Undefined)
			}
		}
		last = res.Match.Index + matchLen
		from = last
		if matchLen == 0 {
			from++
		}
	}
	out = append(out, value.String(string(runes[last:])))
	return out, nil
}

func replaceByRegExp(r value.Realm, host Host, h *value.Heap, re *value.Object, s string, replacement value.Value) (value.Value, *value.Throw) {
	c, _ := re.Data.(*regexpiso.Compiled)
	var b strings.Builder
	from, last := 0, 0
	runes := []rune(s)
	for from <= len(runes) {
		res := host.RegexBackend().FindFromBlocking(c, s, from)
		if res.Err != nil {
			return value.Undefined, value.NewThrow(h.NewError("Error", res.Err.Error()))
		}
		if res.Match == nil {
			break
		}
		b.WriteString(string(runes[last:res.Match.Index]))
		rep, thrown := expandReplacement(r, h, replacement, res.Match.Text, res.Match.Index, s, res.Match.Groups)
		if thrown != nil {
			return value.Undefined, thrown
		}
		b.WriteString(rep)
		matchLen := len([]rune(res.Match.Text))
		last = res.Match.Index + matchLen
		from = last
		if matchLen == 0 {
			from++
		}
		if !c.Global {
			break
		}
	}
	b.WriteString(string(runes[last:]))
	return value.String(b.String()), nil
}

// expandReplacement implements ES5 §15.5.4.11's GetSubstitution when
// replacement is a string ($&, $`, $', $1..$9) or invokes it as a
// function when callable.
func expandReplacement(r value.Realm, h *value.Heap, replacement value.Value, matched string, index int, s string, groups []regexpiso.Group) (string, *value.Throw) {
	if replacement.IsCallable() {
		args := []value.Value{value.String(matched)}
		for _, g := range groups {
			if g.Found {
				args = append(args, value.String(g.Text))
			} else {
				args = append(args, value.Undefined)
			}
		}
		args = append(args, value.Number(float64(index)), value.String(s))
		res, thrown := r.Call(replacement, value.Undefined, args)
		if thrown != nil {
			return "", thrown
		}
		return value.ToStringPrimitive(res), nil
	}
	template := value.ToStringPrimitive(replacement)
	var b strings.Builder
	for i := 0; i < len(template); i++ {
		if template[i] != '$' || i+1 >= len(template) {
			b.WriteByte(template[i])
			continue
		}
		switch c := template[i+1]; {
		case c == '$':
			b.WriteByte('$')
			i++
		case c == '&':
			b.WriteString(matched)
			i++
		case c == '`':
			b.WriteString(s[:index])
			i++
		case c == '\'':
			b.WriteString(s[index+len(matched):])
			i++
		case c >= '1' && c <= '9':
			n := int(c - '0')
			if n <= len(groups) && groups[n-1].Found {
				b.WriteString(groups[n-1].Text)
			}
			i++
		default:
			b.WriteByte(template[i])
		}
	}
	return b.String(), nil
}
