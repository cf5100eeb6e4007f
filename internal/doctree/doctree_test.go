package doctree

import "testing"

func strVal(s string) Value { return Value{Kind: ValString, Str: []byte(s)} }

func TestAddObjectElementAndFind(t *testing.T) {
	tr := New(16)
	obj := tr.NewNode(KindObject)

	if _, err := tr.AddObjectElement(obj, []byte("a"), Value{Kind: ValInt64, I64: 1}); err != nil {
		t.Fatalf("add: %v", err)
	}

	if _, err := tr.AddObjectElement(obj, []byte("b"), Value{Kind: ValBool, Bool: true}); err != nil {
		t.Fatalf("add: %v", err)
	}

	got := tr.FindValue(obj, []byte("b"))
	if got.IsNil() {
		t.Fatal("FindValue(b) returned nil ref")
	}

	if !tr.Get(got).Value.Equal(Value{Kind: ValBool, Bool: true}) {
		t.Fatalf("value mismatch: %+v", tr.Get(got).Value)
	}

	if miss := tr.FindValue(obj, []byte("nope")); !miss.IsNil() {
		t.Fatal("expected nil ref for missing key")
	}
}

func TestAddObjectElementRejectsNonObject(t *testing.T) {
	tr := New(4)
	arr := tr.NewNode(KindArray)

	if _, err := tr.AddObjectElement(arr, []byte("x"), Value{Kind: ValNull}); err == nil {
		t.Fatal("expected an error adding an object element to an array")
	}
}

func TestAddArrayElementRejectsNonArray(t *testing.T) {
	tr := New(4)
	obj := tr.NewNode(KindObject)

	if _, err := tr.AddArrayElement(obj, Value{Kind: ValNull}); err == nil {
		t.Fatal("expected an error adding an array element to an object")
	}
}

func TestAddUserTypeRequiresKeyOnObject(t *testing.T) {
	tr := New(4)
	obj := tr.NewNode(KindObject)

	if _, err := tr.AddUserType(obj, KindArray, nil); err == nil {
		t.Fatal("expected an error: object child needs a key")
	}

	child, err := tr.AddUserType(obj, KindArray, []byte("items"))
	if err != nil {
		t.Fatalf("add_user_type: %v", err)
	}

	if tr.Get(child).Kind != KindArray {
		t.Fatalf("child kind = %v, want array", tr.Get(child).Kind)
	}

	if len(tr.Get(obj).Children) != 2 {
		t.Fatalf("object should have key+child, got %d children", len(tr.Get(obj).Children))
	}
}

func TestAddUserTypeOnArrayTakesNoKey(t *testing.T) {
	tr := New(4)
	arr := tr.NewNode(KindArray)

	child, err := tr.AddUserType(arr, KindObject, nil)
	if err != nil {
		t.Fatalf("add_user_type: %v", err)
	}

	if len(tr.Get(arr).Children) != 1 {
		t.Fatalf("array should have just the child, got %d children", len(tr.Get(arr).Children))
	}

	if tr.Get(child).Parent.Equal(Ref{}) {
		t.Fatal("child should have a parent set")
	}
}

func TestReservePreSizesObjectDouble(t *testing.T) {
	tr := New(4)
	obj := tr.NewNode(KindObject)

	tr.Reserve(obj, 3)

	if cap(tr.Get(obj).Children) < 6 {
		t.Fatalf("capacity = %d, want at least 6", cap(tr.Get(obj).Children))
	}
}

func TestRemoveAtFreesSubtreeAndPreservesOrder(t *testing.T) {
	tr := New(16)
	arr := tr.NewNode(KindArray)

	tr.AddArrayElement(arr, Value{Kind: ValInt64, I64: 1})
	tr.AddArrayElement(arr, Value{Kind: ValInt64, I64: 2})
	tr.AddArrayElement(arr, Value{Kind: ValInt64, I64: 3})

	if err := tr.RemoveAt(arr, 1); err != nil {
		t.Fatalf("remove_at: %v", err)
	}

	children := tr.Get(arr).Children
	if len(children) != 2 {
		t.Fatalf("expected 2 remaining children, got %d", len(children))
	}

	if tr.Get(children[0]).Value.I64 != 1 || tr.Get(children[1]).Value.I64 != 3 {
		t.Fatalf("order not preserved after removal")
	}
}

func TestRemoveAtOutOfRange(t *testing.T) {
	tr := New(4)
	arr := tr.NewNode(KindArray)

	if err := tr.RemoveAt(arr, 0); err == nil {
		t.Fatal("expected an out-of-range error")
	}
}

func TestCloneIsDeepAndDetached(t *testing.T) {
	tr := New(16)
	obj := tr.NewNode(KindObject)
	tr.AddObjectElement(obj, []byte("k"), strVal("v"))

	clone := tr.Clone(obj)
	if clone.Equal(obj) {
		t.Fatal("clone should be a distinct node")
	}

	if !tr.Get(clone).Parent.IsNil() {
		t.Fatal("clone should be detached (nil parent)")
	}

	cloneChildren := tr.Get(clone).Children
	origChildren := tr.Get(obj).Children

	if len(cloneChildren) != len(origChildren) {
		t.Fatalf("clone child count = %d, want %d", len(cloneChildren), len(origChildren))
	}

	if cloneChildren[0].Equal(origChildren[0]) {
		t.Fatal("clone children should be freshly allocated, not shared refs")
	}

	if !tr.Get(cloneChildren[1]).Value.Equal(strVal("v")) {
		t.Fatal("clone did not preserve value payload")
	}
}

func TestKindHelpers(t *testing.T) {
	if !KindVirtualObject.IsVirtual() || !KindVirtualArray.IsVirtual() {
		t.Fatal("virtual kinds should report IsVirtual")
	}

	if KindObject.IsVirtual() {
		t.Fatal("real object should not report IsVirtual")
	}

	if KindVirtualObject.RealKind() != KindObject {
		t.Fatalf("RealKind(virtual-object) = %v, want object", KindVirtualObject.RealKind())
	}

	if !KindRoot.IsContainer() {
		t.Fatal("root should be a container")
	}

	if KindItem.IsContainer() {
		t.Fatal("item should not be a container")
	}
}

func TestValueEqualAndLess(t *testing.T) {
	if !strVal("abc").Equal(strVal("abc")) {
		t.Fatal("equal strings should compare equal")
	}

	if strVal("abc").Equal(strVal("abd")) {
		t.Fatal("different strings should not compare equal")
	}

	if !strVal("abc").Less(strVal("abd")) {
		t.Fatal("abc should sort before abd")
	}

	a := Value{Kind: ValInt64, I64: 1}
	b := Value{Kind: ValBool, Bool: true}

	if a.Less(b) != (a.Kind < b.Kind) {
		t.Fatal("Less should fall back to kind ordering for mismatched kinds")
	}

	if a.Equal(b) {
		t.Fatal("different kinds should never be equal")
	}
}
