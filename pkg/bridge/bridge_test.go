package bridge

import (
	"testing"
	"time"

	"sandbox5/pkg/value"
)

func newTestBridge() *Bridge {
	h := value.NewHeap()
	h.ObjectProto = value.NewRawObject("Object", nil)
	h.ArrayProto = value.NewRawObject("Array", h.ObjectProto)
	h.FunctionProto = value.NewRawObject("Function", h.ObjectProto)
	h.DateProto = value.NewRawObject("Date", h.ObjectProto)
	h.RegExpProto = value.NewRawObject("RegExp", h.ObjectProto)
	return New(h)
}

func TestNativeToPseudoPrimitives(t *testing.T) {
	b := newTestBridge()
	cases := []struct {
		name string
		in   interface{}
		kind value.Kind
	}{
		{"nil", nil, value.KindUndefined},
		{"bool", true, value.KindBoolean},
		{"string", "hello", value.KindString},
		{"int", 7, value.KindNumber},
		{"float", 3.5, value.KindNumber},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			v, err := b.NativeToPseudo(c.in)
			if err != nil {
				t.Fatalf("NativeToPseudo(%v) error: %v", c.in, err)
			}
			if v.Kind() != c.kind {
				t.Errorf("NativeToPseudo(%v).Kind() = %v, want %v", c.in, v.Kind(), c.kind)
			}
		})
	}
}

func TestNativeToPseudoNilPointerBecomesNull(t *testing.T) {
	b := newTestBridge()
	var p *int
	v, err := b.NativeToPseudo(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.IsNull() {
		t.Errorf("nil pointer should convert to Null, got %v", v)
	}
}

func TestNativeToPseudoSlice(t *testing.T) {
	b := newTestBridge()
	v, err := b.NativeToPseudo([]int{1, 2, 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.IsObject() || !v.AsObject().IsArray() {
		t.Fatalf("slice should convert to an Array object, got %v", v)
	}
	arr := v.AsObject()
	if arr.ArrayLength() != 3 {
		t.Errorf("length = %d, want 3", arr.ArrayLength())
	}
	if arr.GetOwn("1").Value.AsNumber() != 2 {
		t.Error("element 1 should be 2")
	}
}

func TestNativeToPseudoMap(t *testing.T) {
	b := newTestBridge()
	v, err := b.NativeToPseudo(map[string]int{"a": 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.IsObject() {
		t.Fatal("map should convert to an object")
	}
	p := v.AsObject().GetOwn("a")
	if p == nil || p.Value.AsNumber() != 1 {
		t.Errorf("property a = %v, want 1", p)
	}
}

func TestNativeToPseudoStructSkipsUnexported(t *testing.T) {
	type pair struct {
		Exported   string
		unexported string
	}
	b := newTestBridge()
	v, err := b.NativeToPseudo(pair{Exported: "x", unexported: "y"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	obj := v.AsObject()
	if obj.GetOwn("Exported") == nil || obj.GetOwn("Exported").Value.AsString() != "x" {
		t.Error("exported field should be copied over")
	}
	if obj.HasOwn("unexported") {
		t.Error("unexported field should not be copied over")
	}
}

func TestNativeToPseudoTime(t *testing.T) {
	b := newTestBridge()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	v, err := b.NativeToPseudo(now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	obj := v.AsObject()
	if obj == nil || obj.Class != "Date" {
		t.Fatalf("time.Time should convert to a Date object, got %v", v)
	}
	if got, ok := obj.Data.(time.Time); !ok || !got.Equal(now) {
		t.Errorf("Date object Data = %v, want %v", obj.Data, now)
	}
}

func TestNativeToPseudoCyclePointerRejected(t *testing.T) {
	type node struct {
		Next *node
	}
	b := newTestBridge()
	n := &node{}
	n.Next = n

	_, err := b.NativeToPseudo(n)
	if err == nil {
		t.Error("a self-referencing pointer cycle should be rejected")
	}
}

func TestNativeToPseudoSharedPointerIsNotACycle(t *testing.T) {
	type leaf struct{ V int }
	type pair struct {
		A *leaf
		B *leaf
	}
	b := newTestBridge()
	shared := &leaf{V: 9}
	v, err := b.NativeToPseudo(pair{A: shared, B: shared})
	if err != nil {
		t.Fatalf("a DAG with a shared (non-cyclic) pointer should convert cleanly: %v", err)
	}
	obj := v.AsObject()
	aVal := obj.GetOwn("A").Value.AsObject().GetOwn("V").Value.AsNumber()
	bVal := obj.GetOwn("B").Value.AsObject().GetOwn("V").Value.AsNumber()
	if aVal != 9 || bVal != 9 {
		t.Errorf("A.V = %v, B.V = %v, want 9, 9", aVal, bVal)
	}
}

func TestPseudoToNativePrimitives(t *testing.T) {
	b := newTestBridge()
	cases := []struct {
		name string
		in   value.Value
		want interface{}
	}{
		{"undefined", value.Undefined, nil},
		{"null", value.Null, nil},
		{"bool", value.True, true},
		{"number", value.Number(5), float64(5)},
		{"string", value.String("hi"), "hi"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := b.PseudoToNative(c.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != c.want {
				t.Errorf("PseudoToNative(%v) = %v, want %v", c.in, got, c.want)
			}
		})
	}
}

func TestPseudoToNativeArray(t *testing.T) {
	b := newTestBridge()
	arr := b.Heap.NewArray([]value.Value{value.Number(1), value.Number(2)})
	got, err := b.PseudoToNative(value.FromObject(arr))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	slice, ok := got.([]interface{})
	if !ok || len(slice) != 2 {
		t.Fatalf("PseudoToNative(array) = %v, want a 2-element []interface{}", got)
	}
	if slice[0] != float64(1) || slice[1] != float64(2) {
		t.Errorf("slice = %v, want [1 2]", slice)
	}
}

func TestPseudoToNativeObject(t *testing.T) {
	b := newTestBridge()
	obj := b.Heap.NewObject("Object", b.Heap.ObjectProto)
	obj.DefineOwn("name", &value.Property{Value: value.String("sandbox"), Attrs: value.Plain})
	got, err := b.PseudoToNative(value.FromObject(obj))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m, ok := got.(map[string]interface{})
	if !ok || m["name"] != "sandbox" {
		t.Fatalf("PseudoToNative(object) = %v, want map with name=sandbox", got)
	}
}

func TestPseudoToNativeCycleIsSharedNotInfinite(t *testing.T) {
	b := newTestBridge()
	obj := b.Heap.NewObject("Object", b.Heap.ObjectProto)
	obj.DefineOwn("self", &value.Property{Value: value.FromObject(obj), Attrs: value.Plain})

	got, err := b.PseudoToNative(value.FromObject(obj))
	if err != nil {
		t.Fatalf("a cyclic interpreted object should convert using shared references, not error: %v", err)
	}
	m := got.(map[string]interface{})
	if _, ok := m["self"].(map[string]interface{}); !ok {
		t.Fatalf("self should resolve back to the same native map, got %v", m["self"])
	}
}

func TestPseudoToNativeDateRoundTrip(t *testing.T) {
	b := newTestBridge()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	pseudo, err := b.NativeToPseudo(now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	native, err := b.PseudoToNative(pseudo)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, ok := native.(time.Time)
	if !ok || !got.Equal(now) {
		t.Errorf("round-tripped time = %v, want %v", native, now)
	}
}
