package builtins

import (
	"encoding/json"
	"fmt"
	"strings"

	"sandbox5/pkg/value"
)

// installJSON wires JSON.stringify and JSON.parse, both written
// directly against Heap/Object: stringify walks the interpreted
// object graph itself (cycle detection via an active-object set,
// mirroring pkg/bridge's nativeToPseudo), and parse decodes through
// encoding/json into interface{} and rebuilds interpreted values from
// that tree.
func installJSON(h *value.Heap, host Host) {
	j := h.NewObject("Object", h.ObjectProto)
	defineGlobal(h, "JSON", value.FromObject(j))

	method(h, j, "stringify", 3, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		var replacerFn value.Value
		var allowList map[string]bool
		if len(args) > 1 {
			if args[1].IsCallable() {
				replacerFn = args[1]
			} else if args[1].IsObject() && args[1].AsObject().IsArray() {
				allowList = map[string]bool{}
				n := args[1].AsObject().ArrayLength()
				for i := uint32(0); i < n; i++ {
					allowList[value.ToStringPrimitive(mustGet(h, args[1], itoa(int(i))))] = true
				}
			}
		}
		indent := ""
		if len(args) > 2 {
			switch {
			case args[2].IsNumber():
				n := clampInt(int(args[2].AsNumber()), 0, 10)
				indent = strings.Repeat(" ", n)
			case args[2].IsString():
				s := args[2].AsString()
				if len(s) > 10 {
					s = s[:10]
				}
				indent = s
			}
		}
		s := jsonStringifier{h: h, r: r, replacerFn: replacerFn, allowList: allowList, indent: indent, seen: map[*value.Object]bool{}}
		out, thrown := s.stringify(arg(args, 0), "")
		if thrown != nil {
			return value.Undefined, thrown
		}
		if out == nil {
			return value.Undefined, nil
		}
		return value.String(*out), nil
	})

	method(h, j, "parse", 2, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		text := value.ToStringPrimitive(arg(args, 0))
		var raw interface{}
		if err := json.Unmarshal([]byte(text), &raw); err != nil {
			return value.Undefined, value.NewThrow(h.NewError("SyntaxError", "Unexpected token in JSON: "+err.Error()))
		}
		result := jsonToValue(h, raw)
		if reviver := arg(args, 1); reviver.IsCallable() {
			holder := h.NewObject("Object", h.ObjectProto)
			holder.DefineOwn("", &value.Property{Value: result, Attrs: value.Plain})
			return applyReviver(r, h, value.FromObject(holder), "", reviver)
		}
		return result, nil
	})
}

type jsonStringifier struct {
	h          *value.Heap
	r          value.Realm
	replacerFn value.Value
	allowList  map[string]bool
	indent     string
	seen       map[*value.Object]bool
}

func (s *jsonStringifier) stringify(v value.Value, curIndent string) (*string, *value.Throw) {
	if v.IsObject() {
		if toJSON := mustGet(s.h, v, "toJSON"); toJSON.IsCallable() {
			res, thrown := s.r.Call(toJSON, v, nil)
			if thrown != nil {
				return nil, thrown
			}
			v = res
		}
	}
	switch {
	case v.IsNull():
		out := "null"
		return &out, nil
	case v.IsBoolean():
		out := value.ToStringPrimitive(v)
		return &out, nil
	case v.IsNumber():
		n := v.AsNumber()
		if n != n || n > 1.7976931348623157e308 || n < -1.7976931348623157e308 {
			out := "null"
			return &out, nil
		}
		out := value.NumberToString(n)
		return &out, nil
	case v.IsString():
		out := quoteJSONString(v.AsString())
		return &out, nil
	case v.IsObject():
		obj := v.AsObject()
		if obj.IsCallable() {
			return nil, nil
		}
		if obj.Class == "Number" {
			return s.stringify(value.Number(obj.Data.(float64)), curIndent)
		}
		if obj.Class == "String" {
			return s.stringify(value.String(obj.Data.(string)), curIndent)
		}
		if obj.Class == "Boolean" {
			return s.stringify(value.Bool(obj.Data.(bool)), curIndent)
		}
		if s.seen[obj] {
			return nil, value.NewThrow(s.h.NewError("TypeError", "Converting circular structure to JSON"))
		}
		s.seen[obj] = true
		defer delete(s.seen, obj)
		nextIndent := curIndent + s.indent
		if obj.IsArray() {
			return s.stringifyArray(obj, curIndent, nextIndent)
		}
		return s.stringifyObject(obj, curIndent, nextIndent)
	}
	return nil, nil
}

func (s *jsonStringifier) stringifyArray(obj *value.Object, curIndent, nextIndent string) (*string, *value.Throw) {
	n := obj.ArrayLength()
	if n == 0 {
		out := "[]"
		return &out, nil
	}
	var parts []string
	for i := uint32(0); i < n; i++ {
		el := mustGet(s.h, value.FromObject(obj), itoa(int(i)))
		el, thrown := s.applyReplacer(value.FromObject(obj), itoa(int(i)), el)
		if thrown != nil {
			return nil, thrown
		}
		sv, thrown := s.stringify(el, nextIndent)
		if thrown != nil {
			return nil, thrown
		}
		if sv == nil {
			null := "null"
			sv = &null
		}
		parts = append(parts, *sv)
	}
	return joinJSON(parts, "[", "]", curIndent, nextIndent, s.indent), nil
}

func (s *jsonStringifier) stringifyObject(obj *value.Object, curIndent, nextIndent string) (*string, *value.Throw) {
	var parts []string
	for _, k := range obj.OwnKeys() {
		p := obj.GetOwn(k)
		if p == nil || !p.Attrs.Enumerable {
			continue
		}
		if s.allowList != nil && !s.allowList[k] {
			continue
		}
		v := mustGet(s.h, value.FromObject(obj), k)
		v, thrown := s.applyReplacer(value.FromObject(obj), k, v)
		if thrown != nil {
			return nil, thrown
		}
		sv, thrown := s.stringify(v, nextIndent)
		if thrown != nil {
			return nil, thrown
		}
		if sv == nil {
			continue
		}
		sep := ":"
		if s.indent != "" {
			sep = ": "
		}
		parts = append(parts, quoteJSONString(k)+sep+*sv)
	}
	if len(parts) == 0 {
		out := "{}"
		return &out, nil
	}
	return joinJSON(parts, "{", "}", curIndent, nextIndent, s.indent), nil
}

func (s *jsonStringifier) applyReplacer(holder value.Value, key string, v value.Value) (value.Value, *value.Throw) {
	if !s.replacerFn.IsCallable() {
		return v, nil
	}
	return s.r.Call(s.replacerFn, holder, []value.Value{value.String(key), v})
}

func joinJSON(parts []string, open, close_, curIndent, nextIndent, indent string) *string {
	var b strings.Builder
	if indent == "" {
		b.WriteString(open)
		b.WriteString(strings.Join(parts, ","))
		b.WriteString(close_)
		out := b.String()
		return &out
	}
	b.WriteString(open + "\n")
	for i, p := range parts {
		b.WriteString(nextIndent + p)
		if i < len(parts)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(curIndent + close_)
	out := b.String()
	return &out
}

// quoteJSONString implements the Quote algorithm (ES5 §15.12.3):
// escape control characters, backslash, and the quote mark, and pass
// every other code point through untouched.
func quoteJSONString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		default:
			if r < 0x20 {
				fmt.Fprintf(&b, `\u%04x`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}

func jsonToValue(h *value.Heap, raw interface{}) value.Value {
	switch v := raw.(type) {
	case nil:
		return value.Null
	case bool:
		return value.Bool(v)
	case float64:
		return value.Number(v)
	case string:
		return value.String(v)
	case []interface{}:
		elems := make([]value.Value, len(v))
		for i, e := range v {
			elems[i] = jsonToValue(h, e)
		}
		return value.FromObject(h.NewArray(elems))
	case map[string]interface{}:
		obj := h.NewObject("Object", h.ObjectProto)
		for k, e := range v {
			obj.DefineOwn(k, &value.Property{Value: jsonToValue(h, e), Attrs: value.Plain})
		}
		return value.FromObject(obj)
	}
	return value.Undefined
}

// applyReviver implements JSON.parse's Walk algorithm (ES5 §15.12.2).
func applyReviver(r value.Realm, h *value.Heap, holder value.Value, key string, reviver value.Value) (value.Value, *value.Throw) {
	val := mustGet(h, holder, key)
	if val.IsObject() {
		obj := val.AsObject()
		if obj.IsArray() {
			n := obj.ArrayLength()
			for i := uint32(0); i < n; i++ {
				newEl, thrown := applyReviver(r, h, val, itoa(int(i)), reviver)
				if thrown != nil {
					return value.Undefined, thrown
				}
				if newEl.IsUndefined() {
					obj.DeleteOwn(itoa(int(i)))
				} else {
					h.SetProperty(val, itoa(int(i)), newEl, false)
				}
			}
		} else {
			for _, k := range append([]string{}, obj.OwnKeys()...) {
				newEl, thrown := applyReviver(r, h, val, k, reviver)
				if thrown != nil {
					return value.Undefined, thrown
				}
				if newEl.IsUndefined() {
					obj.DeleteOwn(k)
				} else {
					h.SetProperty(val, k, newEl, false)
				}
			}
		}
	}
	return r.Call(reviver, holder, []value.Value{value.String(key), val})
}
