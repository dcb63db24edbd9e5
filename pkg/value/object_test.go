package value

import "testing"

func TestDefineOwnAndGetOwn(t *testing.T) {
	obj := NewRawObject("Object", nil)
	obj.DefineOwn("a", &Property{Value: Number(1), Attrs: Plain})
	p := obj.GetOwn("a")
	if p == nil || p.Value.AsNumber() != 1 {
		t.Fatalf("GetOwn(a) = %v, want Property{Value: 1}", p)
	}
	if obj.GetOwn("missing") != nil {
		t.Error("GetOwn(missing) should be nil")
	}
	if !obj.HasOwn("a") || obj.HasOwn("missing") {
		t.Error("HasOwn disagrees with GetOwn")
	}
}

func TestDeleteOwnRespectsConfigurable(t *testing.T) {
	obj := NewRawObject("Object", nil)
	obj.DefineOwn("fixed", &Property{Value: Number(1), Attrs: NonConfigurableReadonlyNonEnumerable})
	obj.DefineOwn("free", &Property{Value: Number(2), Attrs: Plain})

	if obj.DeleteOwn("fixed") {
		t.Error("DeleteOwn should refuse to remove a non-configurable property")
	}
	if !obj.HasOwn("fixed") {
		t.Error("non-configurable property was removed despite refusal")
	}
	if !obj.DeleteOwn("free") {
		t.Error("DeleteOwn should remove a configurable property")
	}
	if obj.HasOwn("free") {
		t.Error("configurable property still present after DeleteOwn")
	}
	if !obj.DeleteOwn("never-there") {
		t.Error("DeleteOwn on an absent key should report success (no-op)")
	}
}

func TestOwnKeysPreservesInsertionOrder(t *testing.T) {
	obj := NewRawObject("Object", nil)
	for _, k := range []string{"z", "a", "m"} {
		obj.DefineOwn(k, &Property{Value: String(k), Attrs: Plain})
	}
	got := obj.OwnKeys()
	want := []string{"z", "a", "m"}
	for i, k := range want {
		if got[i] != k {
			t.Fatalf("OwnKeys() = %v, want %v", got, want)
		}
	}
}

func TestArrayOwnKeysOrdersIndicesBeforeNames(t *testing.T) {
	arr := NewRawObject("Array", nil)
	arr.DefineOwn("length", &Property{Value: Number(0), Attrs: Attrs{Writable: true}})
	arr.DefineOwn("foo", &Property{Value: String("bar"), Attrs: Plain})
	arr.putOwn("2", &Property{Value: Number(2), Attrs: Plain})
	arr.putOwn("0", &Property{Value: Number(0), Attrs: Plain})
	arr.putOwn("1", &Property{Value: Number(1), Attrs: Plain})

	got := arr.OwnKeys()
	want := []string{"0", "1", "2", "length", "foo"}
	if len(got) != len(want) {
		t.Fatalf("OwnKeys() = %v, want %v", got, want)
	}
	for i, k := range want {
		if got[i] != k {
			t.Fatalf("OwnKeys() = %v, want %v", got, want)
		}
	}
}

func TestArrayLengthInvariants(t *testing.T) {
	arr := NewRawObject("Array", nil)
	arr.DefineOwn("length", &Property{Value: Number(0), Attrs: Attrs{Writable: true}})

	arr.putOwn("5", &Property{Value: Number(99), Attrs: Plain})
	if arr.ArrayLength() != 6 {
		t.Fatalf("writing index 5 should bump length to 6, got %d", arr.ArrayLength())
	}

	arr.ShrinkLength(2)
	if arr.ArrayLength() != 2 {
		t.Fatalf("ShrinkLength(2) should set length to 2, got %d", arr.ArrayLength())
	}
	if arr.HasOwn("5") {
		t.Error("ShrinkLength(2) should delete index 5")
	}
}

func TestIsCallable(t *testing.T) {
	plain := NewRawObject("Object", nil)
	if plain.IsCallable() {
		t.Error("plain object should not be callable")
	}
	fn := NewRawObject("Function", nil)
	fn.FuncKind = FuncNative
	if !fn.IsCallable() {
		t.Error("FuncNative object should be callable")
	}
}
