package builder

import (
	"testing"

	"github.com/tapetree/tapetree/internal/arena"
	"github.com/tapetree/tapetree/internal/doctree"
	"github.com/tapetree/tapetree/internal/tape"
)

func objSlot(disc byte, matchIndex int64, childCount uint64) uint64 {
	const matchIndexMask = uint64(1)<<32 - 1
	const childCountShift = 32
	const childCountMax = uint64(1)<<24 - 1

	return uint64(disc)<<56 | (childCount&childCountMax)<<childCountShift | (uint64(matchIndex) & matchIndexMask)
}

// newReaderFor builds a Reader over tapeSlots with a string buffer packing
// each name in order.
func newReaderFor(tapeSlots []uint64, names ...string) *tape.Reader {
	return tape.NewReader(tapeSlots, buildStrbuf(names))
}

func buildStrbuf(names []string) []byte {
	var buf []byte

	for _, n := range names {
		l := uint32(len(n))
		buf = append(buf, byte(l), byte(l>>8), byte(l>>16), byte(l>>24))
		buf = append(buf, n...)
	}

	return buf
}

func strOffset(names []string, idx int) uint64 {
	var off uint64

	for i := 0; i < idx; i++ {
		off += 4 + uint64(len(names[i]))
	}

	return off
}

func TestBuildBalancedObject(t *testing.T) {
	// root, {, key"a", int 1, }
	names := []string{"a"}
	tapeSlots := []uint64{
		uint64('r') << 56,
		objSlot('{', 5, 1),
		uint64('k')<<56 | strOffset(names, 0),
		uint64('l') << 56, 1,
		objSlot('}', 1, 0),
	}

	reader := newReaderFor(tapeSlots, names...)
	a := arena.New[doctree.Node](32)
	cursor := a.NewWorkerCursor(0, 32)

	res, err := Build(reader, 1, int64(len(tapeSlots)), cursor, 0)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if !res.Frontier.Equal(res.Root) {
		t.Fatal("fully balanced object should leave the frontier at the worker's own root")
	}

	root := cursor.Get(res.Root)
	if len(root.Children) != 1 {
		t.Fatalf("expected root to have 1 child (the object), got %d", len(root.Children))
	}

	obj := cursor.Get(root.Children[0])
	if obj.Kind != doctree.KindObject {
		t.Fatalf("child kind = %v, want object", obj.Kind)
	}

	if len(obj.Children) != 2 {
		t.Fatalf("object should have key+value, got %d children", len(obj.Children))
	}

	keyNode := cursor.Get(obj.Children[0])
	if !keyNode.IsKey || string(keyNode.Value.Str) != "a" {
		t.Fatalf("key node mismatch: %+v", keyNode)
	}

	valNode := cursor.Get(obj.Children[1])
	if valNode.Value.I64 != 1 {
		t.Fatalf("value = %d, want 1", valNode.Value.I64)
	}
}

func TestBuildLeavesOpenFrontierOnUnclosedContainer(t *testing.T) {
	// root, [, int 1  (no close: partition boundary lands here)
	tapeSlots := []uint64{
		uint64('r') << 56,
		objSlot('[', tape.NoMatch, 1),
		uint64('l') << 56, 1,
	}

	reader := tape.NewReader(tapeSlots, nil)
	a := arena.New[doctree.Node](32)
	cursor := a.NewWorkerCursor(0, 32)

	res, err := Build(reader, 1, int64(len(tapeSlots)), cursor, 0)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if res.Frontier.IsNil() {
		t.Fatal("expected an open frontier for an unclosed array")
	}

	frontierNode := cursor.Get(res.Frontier)
	if frontierNode.Kind != doctree.KindArray {
		t.Fatalf("frontier kind = %v, want array", frontierNode.Kind)
	}

	if len(frontierNode.Children) != 1 || frontierNode.Children[0].IsNil() {
		t.Fatalf("expected the array to already hold its first element")
	}
}

func TestBuildWrapsStrayCloseInVirtualContainer(t *testing.T) {
	// root, int 1, ]   (a stray close after a scalar)
	tapeSlots := []uint64{
		uint64('r') << 56,
		uint64('l') << 56, 1,
		objSlot(']', tape.NoMatch, 0),
	}

	reader := tape.NewReader(tapeSlots, nil)
	a := arena.New[doctree.Node](32)
	cursor := a.NewWorkerCursor(0, 32)

	res, err := Build(reader, 1, int64(len(tapeSlots)), cursor, 0)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	root := cursor.Get(res.Root)
	if len(root.Children) != 1 {
		t.Fatalf("root should hold exactly the virtual wrapper, got %d children", len(root.Children))
	}

	wrapper := cursor.Get(root.Children[0])
	if wrapper.Kind != doctree.KindVirtualArray {
		t.Fatalf("wrapper kind = %v, want virtual-array", wrapper.Kind)
	}

	if len(wrapper.Children) != 1 || cursor.Get(wrapper.Children[0]).Value.I64 != 1 {
		t.Fatal("virtual wrapper should carry the scalar built before the stray close")
	}

	if res.Frontier.IsNil() {
		t.Fatal("root should still be considered open (it is the worker's own synthetic root)")
	}
}

func TestBuildBuildsLeftmostVirtualChainOnConsecutiveStrayCloses(t *testing.T) {
	// root, ], }  (two consecutive stray closes, no content)
	tapeSlots := []uint64{
		uint64('r') << 56,
		objSlot(']', tape.NoMatch, 0),
		objSlot('}', tape.NoMatch, 0),
	}

	reader := tape.NewReader(tapeSlots, nil)
	a := arena.New[doctree.Node](32)
	cursor := a.NewWorkerCursor(0, 32)

	res, err := Build(reader, 1, int64(len(tapeSlots)), cursor, 0)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	root := cursor.Get(res.Root)
	if len(root.Children) != 1 {
		t.Fatalf("root should hold exactly one (outer) wrapper, got %d", len(root.Children))
	}

	outer := cursor.Get(root.Children[0])
	if outer.Kind != doctree.KindVirtualObject {
		t.Fatalf("outer wrapper kind = %v, want virtual-object (second close was '}')", outer.Kind)
	}

	if len(outer.Children) != 1 {
		t.Fatalf("outer wrapper should hold exactly the inner wrapper, got %d children", len(outer.Children))
	}

	inner := cursor.Get(outer.Children[0])
	if inner.Kind != doctree.KindVirtualArray {
		t.Fatalf("inner wrapper kind = %v, want virtual-array (first close was ']')", inner.Kind)
	}
}
