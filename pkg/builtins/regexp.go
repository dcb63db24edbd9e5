package builtins

import (
	"sandbox5/pkg/regexpiso"
	"sandbox5/pkg/value"
)

// installRegExp wires the RegExp constructor and RegExp.prototype.
// exec/test route through regexpiso.Backend.FindFromBlocking rather
// than the async pause/resume protocol callAsync uses for genuine
// host-controlled async — see the comment on FindFromBlocking for why
// a regex timeout must not be reported on that channel.
func installRegExp(h *value.Heap, host Host) {
	ctor := h.NewNativeFunction("RegExp", 2, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		pattern, flags := "", ""
		a := arg(args, 0)
		if a.IsObject() && a.AsObject().Class == "RegExp" {
			if c, ok := a.AsObject().Data.(*regexpiso.Compiled); ok {
				pattern, flags = c.Source, c.Flags
			}
		} else if !a.IsUndefined() {
			pattern = value.ToStringPrimitive(a)
		}
		if len(args) > 1 && !args[1].IsUndefined() {
			flags = value.ToStringPrimitive(args[1])
		}
		compiled, err := regexpiso.Compile(pattern, flags)
		if err != nil {
			return value.Undefined, value.NewThrow(h.NewError("SyntaxError", "Invalid regular expression: "+err.Error()))
		}
		return value.FromObject(newRegExpObject(h, compiled)), nil
	})
	ctor.DefineOwn("prototype", &value.Property{Value: value.FromObject(h.RegExpProto), Attrs: value.NonConfigurableReadonlyNonEnumerable})
	h.RegExpProto.DefineOwn("constructor", &value.Property{Value: value.FromObject(ctor), Attrs: value.NonEnumerable})
	defineGlobal(h, "RegExp", value.FromObject(ctor))

	method(h, h.RegExpProto, "exec", 1, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		if !this.IsObject() || this.AsObject().Class != "RegExp" {
			return value.Undefined, value.NewThrow(h.NewError("TypeError", "RegExp.prototype.exec called on incompatible receiver"))
		}
		obj := this.AsObject()
		c, _ := obj.Data.(*regexpiso.Compiled)
		if c == nil {
			return value.Null, nil
		}
		s := value.ToStringPrimitive(arg(args, 0))
		from := 0
		if c.Global {
			from = int(value.ToNumber(mustGet(h, this, "lastIndex")))
		}
		if from < 0 || from > len([]rune(s)) {
			h.SetProperty(this, "lastIndex", value.Int(0), false)
			return value.Null, nil
		}
		res := host.RegexBackend().FindFromBlocking(c, s, from)
		if res.Err != nil {
			return value.Undefined, value.NewThrow(h.NewError("Error", res.Err.Error()))
		}
		if res.Match == nil {
			if c.Global {
				h.SetProperty(this, "lastIndex", value.Int(0), false)
			}
			return value.Null, nil
		}
		if c.Global {
			h.SetProperty(this, "lastIndex", value.Number(float64(res.Match.Index+len([]rune(res.Match.Text)))), false)
		}
		return value.FromObject(matchToArray(h, res.Match, s)), nil
	})

	method(h, h.RegExpProto, "test", 1, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		result, thrown := r.Call(mustGet(h, this, "exec"), this, args)
		if thrown != nil {
			return value.Undefined, thrown
		}
		return value.Bool(!result.IsNull()), nil
	})

	method(h, h.RegExpProto, "toString", 0, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		if !this.IsObject() {
			return value.String("/(?:)/"), nil
		}
		c, _ := this.AsObject().Data.(*regexpiso.Compiled)
		if c == nil {
			return value.String("/(?:)/"), nil
		}
		return value.String("/" + c.Source + "/" + c.Flags), nil
	})
}

func newRegExpObject(h *value.Heap, c *regexpiso.Compiled) *value.Object {
	obj := h.NewObject("RegExp", h.RegExpProto)
	obj.Data = c
	obj.DefineOwn("source", &value.Property{Value: value.String(c.Source), Attrs: value.NonConfigurableReadonlyNonEnumerable})
	obj.DefineOwn("global", &value.Property{Value: value.Bool(c.Global), Attrs: value.NonConfigurableReadonlyNonEnumerable})
	obj.DefineOwn("ignoreCase", &value.Property{Value: value.Bool(c.IgnoreCase), Attrs: value.NonConfigurableReadonlyNonEnumerable})
	obj.DefineOwn("multiline", &value.Property{Value: value.Bool(c.Multiline), Attrs: value.NonConfigurableReadonlyNonEnumerable})
	obj.DefineOwn("lastIndex", &value.Property{Value: value.Int(0), Attrs: value.NonEnumerable})
	return obj
}

// matchToArray converts a regexpiso.Match into the Array-with-extras
// shape RegExp.prototype.exec returns: indexed capture groups plus
// `index` and `input` own properties (ES5 §15.10.6.2 steps 10-15).
func matchToArray(h *value.Heap, m *regexpiso.Match, input string) *value.Object {
	elems := []value.Value{value.String(m.Text)}
	for _, g := range m.Groups {
		if g.Found {
			elems = append(elems, value.String(g.Text))
		} else {
			elems = append(elems, value.Undefined)
		}
	}
	arr := h.NewArray(elems)
	arr.DefineOwn("index", &value.Property{Value: value.Number(float64(m.Index)), Attrs: value.Plain})
	arr.DefineOwn("input", &value.Property{Value: value.String(input), Attrs: value.Plain})
	return arr
}
