// Package doctree defines the tagged tree of objects, arrays, items, and
// virtual placeholders assembled from a tape, plus the operations used to
// grow, query, and prune it.
package doctree

import "github.com/tapetree/tapetree/internal/arena"

// Kind identifies the role a node plays in the tree. KindSentinel is the
// zero value so a freshly zeroed arena cell already satisfies the "kind =
// Sentinel" allocation contract without any extra initialization.
type Kind uint8

const (
	KindSentinel Kind = iota
	KindObject
	KindArray
	KindItem
	KindRoot
	KindVirtualObject
	KindVirtualArray
)

func (k Kind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	case KindItem:
		return "item"
	case KindRoot:
		return "root"
	case KindVirtualObject:
		return "virtual-object"
	case KindVirtualArray:
		return "virtual-array"
	default:
		return "sentinel"
	}
}

// IsContainer reports whether k holds children (real or virtual).
func (k Kind) IsContainer() bool {
	switch k {
	case KindObject, KindArray, KindRoot, KindVirtualObject, KindVirtualArray:
		return true
	default:
		return false
	}
}

// IsVirtual reports whether k is a placeholder for a container whose
// opening marker was not seen in this partition.
func (k Kind) IsVirtual() bool {
	return k == KindVirtualObject || k == KindVirtualArray
}

// RealKind maps a virtual container kind to the real kind it stands in for.
func (k Kind) RealKind() Kind {
	switch k {
	case KindVirtualObject:
		return KindObject
	case KindVirtualArray:
		return KindArray
	default:
		return k
	}
}

// ValueKind tags which field of Value is meaningful.
type ValueKind uint8

const (
	ValNone ValueKind = iota
	ValString
	ValInt64
	ValUint64
	ValDouble
	ValBool
	ValNull
)

// Value is the tagged scalar payload a leaf Item carries.
type Value struct {
	Str  []byte
	I64  int64
	U64  uint64
	F64  float64
	Kind ValueKind
	Bool bool
}

// Equal compares by kind first and payload second, the same tie-break the
// tree-builder this package generalizes from uses for its scalar type.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}

	switch v.Kind {
	case ValString:
		return string(v.Str) == string(o.Str)
	case ValInt64:
		return v.I64 == o.I64
	case ValUint64:
		return v.U64 == o.U64
	case ValDouble:
		return v.F64 == o.F64
	case ValBool:
		return v.Bool == o.Bool
	default: // ValNone, ValNull
		return true
	}
}

// Less orders by kind first (as ValueKind's declaration order), then by
// payload for strings. Two non-string values of the same kind are never
// less than each other.
func (v Value) Less(o Value) bool {
	if v.Kind != o.Kind {
		return v.Kind < o.Kind
	}

	if v.Kind == ValString {
		return string(v.Str) < string(o.Str)
	}

	return false
}

// Node is one cell of the document tree.
type Node struct {
	Value    Value
	Children []Ref
	Parent   Ref
	Kind     Kind
	IsKey    bool
}

// Ref addresses a Node inside a Tree's arena.
type Ref = arena.Ref[Node]
