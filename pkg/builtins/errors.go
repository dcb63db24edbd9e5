package builtins

import "sandbox5/pkg/value"

// installErrors wires the Error constructor hierarchy. The prototypes
// themselves (and their name/message own properties) are already
// built by Install before any installXxx function runs, since several
// other builtins (host-thrown TypeErrors, for instance) need
// h.ErrorProtos populated before they can call h.NewError.
func installErrors(h *value.Heap, host Host) {
	for _, kind := range []string{"Error", "EvalError", "RangeError", "ReferenceError", "SyntaxError", "TypeError", "URIError"} {
		proto := h.ErrorProtos[kind]
		ctor := h.NewNativeFunction(kind, 1, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
			msg := ""
			if len(args) > 0 && !args[0].IsUndefined() {
				msg = value.ToStringPrimitive(args[0])
			}
			var obj *value.Object
			if this.IsObject() && this.AsObject().Class == "Object" {
				obj = this.AsObject()
				obj.Class = "Error"
			} else {
				obj = h.NewObject("Error", proto)
			}
			if msg != "" {
				obj.DefineOwn("message", &value.Property{Value: value.String(msg), Attrs: value.NonEnumerable})
			}
			return value.FromObject(obj), nil
		})
		ctor.DefineOwn("prototype", &value.Property{Value: value.FromObject(proto), Attrs: value.NonConfigurableReadonlyNonEnumerable})
		proto.DefineOwn("constructor", &value.Property{Value: value.FromObject(ctor), Attrs: value.NonEnumerable})
		defineGlobal(h, kind, value.FromObject(ctor))
	}

	method(h, h.ErrorProtos["Error"], "toString", 0, func(r value.Realm, this value.Value, args []value.Value) (value.Value, *value.Throw) {
		if !this.IsObject() {
			return value.String("Error"), nil
		}
		name := "Error"
		if nv := mustGet(h, this, "name"); nv.IsString() {
			name = nv.AsString()
		}
		msg := ""
		if mv := mustGet(h, this, "message"); mv.IsString() {
			msg = mv.AsString()
		}
		if msg == "" {
			return value.String(name), nil
		}
		return value.String(name + ": " + msg), nil
	})
}
