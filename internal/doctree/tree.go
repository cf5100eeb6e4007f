package doctree

import (
	"github.com/tapetree/tapetree/internal/arena"
	"github.com/tapetree/tapetree/internal/errs"
)

// Tree wraps an arena of Nodes with the structural operations spec'd for
// the document tree: growing containers, querying keys, and pruning.
type Tree struct {
	Arena *arena.Arena[Node]
}

// New creates an empty tree over a fresh arena with the given slab size.
func New(slabSize int) *Tree {
	return &Tree{Arena: arena.New[Node](slabSize)}
}

// Get returns a pointer to the node ref addresses.
func (t *Tree) Get(ref Ref) *Node { return t.Arena.Get(ref) }

// NewNode allocates a node of the given kind with no value and no children.
func (t *Tree) NewNode(kind Kind) Ref {
	ref := t.Arena.Alloc()
	n := t.Arena.Get(ref)
	n.Kind = kind

	return ref
}

// NewItem allocates a scalar Item node carrying value, optionally marked as
// a key.
func (t *Tree) NewItem(value Value, isKey bool) Ref {
	ref := t.Arena.Alloc()
	n := t.Arena.Get(ref)
	n.Kind = KindItem
	n.Value = value
	n.IsKey = isKey

	return ref
}

// appendChild links child under parent, preserving order.
func (t *Tree) appendChild(parent, child Ref) {
	pn := t.Arena.Get(parent)
	cn := t.Arena.Get(child)
	cn.Parent = parent
	pn.Children = append(pn.Children, child)
}

// AddObjectElement appends a (key-Item, value-Item) pair to an Object or
// VirtualObject container. It rejects any other container kind.
func (t *Tree) AddObjectElement(container Ref, name []byte, value Value) (Ref, error) {
	cn := t.Arena.Get(container)
	if cn.Kind != KindObject && cn.Kind != KindVirtualObject {
		return Ref{}, errs.InvalidBoundary(-1, cn.Kind.String(), "add_object_element on a non-object container")
	}

	keyRef := t.NewItem(Value{Kind: ValString, Str: name}, true)
	valRef := t.NewItem(value, false)

	t.appendChild(container, keyRef)
	t.appendChild(container, valRef)

	return valRef, nil
}

// AddArrayElement appends a single value-Item to an Array or VirtualArray
// container. It rejects any other container kind.
func (t *Tree) AddArrayElement(container Ref, value Value) (Ref, error) {
	cn := t.Arena.Get(container)
	if cn.Kind != KindArray && cn.Kind != KindVirtualArray {
		return Ref{}, errs.InvalidBoundary(-1, cn.Kind.String(), "add_array_element on a non-array container")
	}

	valRef := t.NewItem(value, false)
	t.appendChild(container, valRef)

	return valRef, nil
}

// AddUserType creates a new Object or Array child under container. If key
// is non-nil, a key-Item is inserted first (container must be an Object);
// if key is nil, the child is appended directly and only Object containers
// are rejected. The single-child rule of a Root is not checked.
func (t *Tree) AddUserType(container Ref, childKind Kind, key []byte) (Ref, error) {
	cn := t.Arena.Get(container)

	if key != nil {
		if cn.Kind != KindObject && cn.Kind != KindVirtualObject {
			return Ref{}, errs.InvalidBoundary(-1, cn.Kind.String(), "add_user_type with a key on a non-object container")
		}

		keyRef := t.NewItem(Value{Kind: ValString, Str: key}, true)
		t.appendChild(container, keyRef)
	} else if cn.Kind == KindObject || cn.Kind == KindVirtualObject {
		return Ref{}, errs.InvalidBoundary(-1, cn.Kind.String(), "add_user_type without a key on an object container")
	}

	childRef := t.NewNode(childKind)
	t.appendChild(container, childRef)

	return childRef, nil
}

// Find linearly scans container's children for an Item with IsKey=true and
// matching bytes, returning the matching key node itself (not its value
// sibling) per the core contract.
func (t *Tree) Find(container Ref, key []byte) Ref {
	cn := t.Arena.Get(container)

	for _, child := range cn.Children {
		n := t.Arena.Get(child)
		if n.Kind == KindItem && n.IsKey && n.Value.Kind == ValString && string(n.Value.Str) == string(key) {
			return child
		}
	}

	return Ref{}
}

// FindValue is a convenience wrapper returning the value sibling that
// immediately follows the key Find locates, honoring Object alternation.
func (t *Tree) FindValue(container Ref, key []byte) Ref {
	cn := t.Arena.Get(container)

	for i := 0; i+1 < len(cn.Children); i += 2 {
		n := t.Arena.Get(cn.Children[i])
		if n.Kind == KindItem && n.IsKey && n.Value.Kind == ValString && string(n.Value.Str) == string(key) {
			return cn.Children[i+1]
		}
	}

	return Ref{}
}

// Reserve pre-sizes container's children slice: n slots for an Array, 2n
// for an Object (key+value pairs).
func (t *Tree) Reserve(container Ref, n int) {
	cn := t.Arena.Get(container)

	want := n
	if cn.Kind == KindObject || cn.Kind == KindVirtualObject {
		want = 2 * n
	}

	if cap(cn.Children)-len(cn.Children) >= want {
		return
	}

	grown := make([]Ref, len(cn.Children), len(cn.Children)+want)
	copy(grown, cn.Children)
	cn.Children = grown
}

// RemoveAt frees the child subtree at idx and erases its slot, preserving
// the order of the remaining children.
func (t *Tree) RemoveAt(container Ref, idx int) error {
	cn := t.Arena.Get(container)
	if idx < 0 || idx >= len(cn.Children) {
		return errs.New(errs.KindInvalidBoundary, -1, "remove_at index out of range", map[string]any{"index": idx})
	}

	t.freeSubtree(cn.Children[idx])
	cn.Children = append(cn.Children[:idx], cn.Children[idx+1:]...)

	return nil
}

func (t *Tree) freeSubtree(ref Ref) {
	if ref.IsNil() {
		return
	}

	n := t.Arena.Get(ref)
	for _, c := range n.Children {
		t.freeSubtree(c)
	}

	n.Children = nil
	t.Arena.Free(ref)
}

// Clone deep-copies the subtree rooted at ref into freshly allocated nodes,
// detached from any parent.
func (t *Tree) Clone(ref Ref) Ref {
	if ref.IsNil() {
		return Ref{}
	}

	n := t.Arena.Get(ref)
	newRef := t.Arena.Alloc()
	newNode := t.Arena.Get(newRef)
	newNode.Kind = n.Kind
	newNode.Value = n.Value
	newNode.IsKey = n.IsKey

	if len(n.Children) > 0 {
		newNode.Children = make([]Ref, 0, len(n.Children))

		for _, c := range n.Children {
			childClone := t.Clone(c)
			t.Arena.Get(childClone).Parent = newRef
			newNode.Children = append(newNode.Children, childClone)
		}
	}

	return newRef
}
