// Package merge stitches the partial trees the builder package produces,
// left to right, into one coherent document.
package merge

import (
	"github.com/tapetree/tapetree/internal/builder"
	"github.com/tapetree/tapetree/internal/doctree"
	"github.com/tapetree/tapetree/internal/errs"
)

// Merge splices partial into the accumulator tree at accFrontier — the
// node where the accumulator is still open — and returns the accumulator's
// new frontier for the next call.
//
// It descends partial.Root's leftmost chain of Virtual children to find
// the first real content, then walks the accumulator's open-ancestor chain
// and partial's virtual-ancestor chain upward in lock-step, at each level
// linking the non-virtual children of the current virtual (or, at the
// outermost level, of partial.Root itself) as children of the matching
// accumulator ancestor. Node identity survives relinking untouched — refs
// are stable arena addresses — so a still-open node inside partial (its
// own Frontier) needs no rewriting once reparented; it is simply returned.
func Merge(t *doctree.Tree, accFrontier doctree.Ref, partial builder.Result) (doctree.Ref, error) {
	a := accFrontier
	b := leftmostVirtualBase(t, partial.Root)

	for {
		aNode := t.Get(a)
		bNode := t.Get(b)

		children := bNode.Children
		bNode.Children = nil

		for _, child := range children {
			cn := t.Get(child)
			if cn.Kind.IsVirtual() {
				continue
			}

			cn.Parent = a
			aNode.Children = append(aNode.Children, child)
		}

		aOpen := !aNode.Parent.IsNil()
		bOpen := !bNode.Parent.IsNil()

		switch {
		case aOpen && bOpen:
			a = aNode.Parent
			b = bNode.Parent

			continue
		case !aOpen && bOpen:
			return doctree.Ref{}, errs.OverClose(-1)
		case aOpen && !bOpen:
			return frontierOf(partial, a), nil
		default:
			return frontierOf(partial, doctree.Ref{}), nil
		}
	}
}

// frontierOf prefers partial's own still-open node, since it remains a
// valid, correctly-positioned ref after splicing regardless of which
// accumulator level the lock-step walk stopped at; only when partial
// closed everything it was given does the accumulator's own level apply.
func frontierOf(partial builder.Result, accLevel doctree.Ref) doctree.Ref {
	if !partial.Frontier.Equal(partial.Root) {
		return partial.Frontier
	}

	return accLevel
}

// leftmostVirtualBase descends root's leftmost chain of Virtual children,
// stopping at the deepest node whose first child is real (or which has no
// children at all). Its children are the first real content partial has to
// contribute.
func leftmostVirtualBase(t *doctree.Tree, root doctree.Ref) doctree.Ref {
	cur := root

	for {
		n := t.Get(cur)
		if len(n.Children) == 0 {
			return cur
		}

		first := n.Children[0]
		if !t.Get(first).Kind.IsVirtual() {
			return cur
		}

		cur = first
	}
}
