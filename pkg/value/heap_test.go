package value

import "testing"

func newTestHeap() *Heap {
	h := NewHeap()
	h.ObjectProto = NewRawObject("Object", nil)
	h.FunctionProto = NewRawObject("Object", h.ObjectProto)
	h.ArrayProto = NewRawObject("Object", h.ObjectProto)
	h.ErrorProtos["Error"] = NewRawObject("Object", h.ObjectProto)
	h.ErrorProtos["TypeError"] = NewRawObject("Object", h.ErrorProtos["Error"])
	h.Global = h.NewObject("Object", h.ObjectProto)
	h.GlobalScope = NewScope(nil, false)
	h.GlobalScope.Object = h.Global
	return h
}

func TestGetPropertyWalksPrototypeChain(t *testing.T) {
	h := newTestHeap()
	proto := h.NewObject("Object", h.ObjectProto)
	proto.DefineOwn("inherited", &Property{Value: String("from proto"), Attrs: Plain})
	child := h.NewObject("Object", proto)
	child.DefineOwn("own", &Property{Value: String("from child"), Attrs: Plain})

	v, pending, thrown := h.GetProperty(FromObject(child), "own")
	if thrown != nil || pending != nil || v.AsString() != "from child" {
		t.Fatalf("GetProperty(own) = %v, %v, %v", v, pending, thrown)
	}

	v, pending, thrown = h.GetProperty(FromObject(child), "inherited")
	if thrown != nil || pending != nil || v.AsString() != "from proto" {
		t.Fatalf("GetProperty(inherited) = %v, %v, %v", v, pending, thrown)
	}

	v, pending, thrown = h.GetProperty(FromObject(child), "missing")
	if thrown != nil || pending != nil || !v.IsUndefined() {
		t.Fatalf("GetProperty(missing) = %v, %v, %v", v, pending, thrown)
	}
}

func TestGetPropertyOnNullThrows(t *testing.T) {
	h := newTestHeap()
	_, _, thrown := h.GetProperty(Null, "x")
	if thrown == nil {
		t.Fatal("GetProperty on null should throw")
	}
}

func TestGetPropertyReturnsPendingGetter(t *testing.T) {
	h := newTestHeap()
	obj := h.NewObject("Object", h.ObjectProto)
	getter := h.NewNativeFunction("get", 0, func(r Realm, this Value, args []Value) (Value, *Throw) {
		return Number(7), nil
	})
	obj.DefineOwn("x", &Property{Getter: getter, Attrs: Plain})

	v, pending, thrown := h.GetProperty(FromObject(obj), "x")
	if thrown != nil {
		t.Fatalf("unexpected throw: %v", thrown)
	}
	if pending != getter {
		t.Fatal("GetProperty should return the getter as the pending object, not invoke it")
	}
	if !v.IsUndefined() {
		t.Errorf("GetProperty's direct value should be zero when a getter is pending, got %v", v)
	}
}

func TestSetPropertyOwnWritable(t *testing.T) {
	h := newTestHeap()
	obj := h.NewObject("Object", h.ObjectProto)
	obj.DefineOwn("x", &Property{Value: Number(1), Attrs: Plain})

	pending, thrown := h.SetProperty(FromObject(obj), "x", Number(2), false)
	if pending != nil || thrown != nil {
		t.Fatalf("SetProperty = %v, %v", pending, thrown)
	}
	if obj.GetOwn("x").Value.AsNumber() != 2 {
		t.Error("SetProperty did not update the value")
	}
}

func TestSetPropertyNonWritableNoopInLooseStrictThrows(t *testing.T) {
	h := newTestHeap()
	obj := h.NewObject("Object", h.ObjectProto)
	obj.DefineOwn("x", &Property{Value: Number(1), Attrs: NonConfigurableReadonlyNonEnumerable})

	if _, thrown := h.SetProperty(FromObject(obj), "x", Number(99), false); thrown != nil {
		t.Errorf("loose-mode write to read-only property should not throw, got %v", thrown)
	}
	if obj.GetOwn("x").Value.AsNumber() != 1 {
		t.Error("loose-mode write to read-only property should be a no-op")
	}
	if _, thrown := h.SetProperty(FromObject(obj), "x", Number(99), true); thrown == nil {
		t.Error("strict-mode write to read-only property should throw")
	}
}

func TestSetPropertyArrayLengthShrinks(t *testing.T) {
	h := newTestHeap()
	arr := h.NewArray([]Value{Number(1), Number(2), Number(3)})
	if _, thrown := h.SetProperty(FromObject(arr), "length", Number(1), false); thrown != nil {
		t.Fatalf("unexpected throw: %v", thrown)
	}
	if arr.ArrayLength() != 1 {
		t.Errorf("length = %d, want 1", arr.ArrayLength())
	}
	if arr.HasOwn("1") || arr.HasOwn("2") {
		t.Error("shrinking length should delete indices beyond it")
	}
}

func TestNewErrorChainsToNamedPrototype(t *testing.T) {
	h := newTestHeap()
	e := h.NewError("TypeError", "bad value")
	if e.AsObject().Proto() != h.ErrorProtos["TypeError"] {
		t.Error("NewError should chain to the named kind's prototype")
	}
	v, _, _ := h.GetProperty(e, "message")
	if v.AsString() != "bad value" {
		t.Errorf("message = %q, want %q", v.AsString(), "bad value")
	}

	unknown := h.NewError("NotARealKind", "x")
	if unknown.AsObject().Proto() != h.ErrorProtos["Error"] {
		t.Error("NewError with an unknown kind should fall back to Error.prototype")
	}
}

func TestDefinePropertyRejectsRedefiningNonConfigurable(t *testing.T) {
	h := newTestHeap()
	obj := h.NewObject("Object", h.ObjectProto)
	if thrown := h.DefineProperty(obj, "x", PropDescriptorInput{
		HasValue: true, Value: Number(1),
		HasConfigurable: true, Configurable: false,
	}); thrown != nil {
		t.Fatalf("initial DefineProperty failed: %v", thrown)
	}

	thrown := h.DefineProperty(obj, "x", PropDescriptorInput{
		HasValue: true, Value: Number(2),
		HasConfigurable: true, Configurable: true,
	})
	if thrown == nil {
		t.Error("redefining a non-configurable property to configurable should throw")
	}
}

func TestDefinePropertyAccessorAndDataAreMutuallyExclusive(t *testing.T) {
	h := newTestHeap()
	obj := h.NewObject("Object", h.ObjectProto)
	getter := h.NewNativeFunction("get", 0, nil)
	thrown := h.DefineProperty(obj, "x", PropDescriptorInput{
		HasValue: true, Value: Number(1),
		HasGet: true, Get: getter,
	})
	if thrown == nil {
		t.Error("a descriptor with both Value and Get should throw")
	}
}
