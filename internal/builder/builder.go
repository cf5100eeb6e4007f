// Package builder turns one worker's contiguous tape slice into a partial
// document tree that may begin or end mid-structure, for the merger to
// later stitch against its neighbors.
package builder

import (
	"github.com/tapetree/tapetree/internal/arena"
	"github.com/tapetree/tapetree/internal/doctree"
	"github.com/tapetree/tapetree/internal/errs"
	"github.com/tapetree/tapetree/internal/tape"
)

// Result is what one worker hands back to the coordinator.
type Result struct {
	// Root is the worker's synthetic root: from the top it may be a real
	// opener with real children and closers, a Virtual wrapper recording
	// an unmatched close, or both.
	Root doctree.Ref
	// Frontier is the deepest still-open container reachable from Root —
	// the node the next worker's output must attach under. It is never
	// nil: when this worker's output is fully closed it equals Root.
	Frontier doctree.Ref
	// Consumed is how many slab cells this worker bump-allocated from its
	// WorkerCursor's range (overflow cells are not counted).
	Consumed int32
}

// pendingValue is one tape-order entry waiting to be committed as an Item:
// either a plain scalar value, or a key (buffered here only when the value
// that follows it is a scalar, not a container).
type pendingValue struct {
	value doctree.Value
	isKey bool
}

// Build runs the partial builder over the tape slots [start, end) using
// cursor for node allocation, returning the worker's synthetic root,
// frontier, and consumed-cell count.
func Build(r *tape.Reader, start, end int64, cursor *arena.WorkerCursor[doctree.Node], workerID int) (Result, error) {
	b := &partialBuilder{
		reader:   r,
		cursor:   cursor,
		workerID: workerID,
	}

	root := b.alloc(doctree.KindRoot)
	b.stack = append(b.stack, frame{container: root})

	i := start
	for i < end {
		n, err := b.step(i, end)
		if err != nil {
			return Result{}, err
		}

		i += n
	}

	b.flushPending(b.top())

	frontier := doctree.Ref{}
	if len(b.stack) > 0 {
		frontier = b.stack[len(b.stack)-1].container
	}

	return Result{Root: root, Frontier: frontier, Consumed: cursor.Consumed()}, nil
}

// frame is one entry of the container stack S.
type frame struct {
	container doctree.Ref
	// pendingKey holds a key slot whose value turned out to be a
	// container, so it must attach to that child rather than be flushed
	// as an Item ahead of it.
	pendingKey    []byte
	hasPendingKey bool
}

type partialBuilder struct {
	reader   *tape.Reader
	cursor   *arena.WorkerCursor[doctree.Node]
	workerID int
	stack    []frame
	pending  []pendingValue
}

func (b *partialBuilder) top() doctree.Ref { return b.stack[len(b.stack)-1].container }

func (b *partialBuilder) alloc(kind doctree.Kind) doctree.Ref {
	ref := b.cursor.Alloc()
	n := b.cursor.Get(ref)
	n.Kind = kind

	return ref
}

func (b *partialBuilder) appendChild(parent, child doctree.Ref) {
	pn := b.cursor.Get(parent)
	cn := b.cursor.Get(child)
	cn.Parent = parent
	pn.Children = append(pn.Children, child)
}

func (b *partialBuilder) newItem(v doctree.Value, isKey bool) doctree.Ref {
	ref := b.alloc(doctree.KindItem)
	n := b.cursor.Get(ref)
	n.Value = v
	n.IsKey = isKey

	return ref
}

// flushPending commits every buffered pending value into container as
// Items, in tape order, then clears the buffer.
func (b *partialBuilder) flushPending(container doctree.Ref) {
	for _, p := range b.pending {
		item := b.newItem(p.value, p.isKey)
		b.appendChild(container, item)
	}

	b.pending = b.pending[:0]
}

// step decodes one logical unit starting at i and applies it, returning how
// many tape slots were consumed.
func (b *partialBuilder) step(i, end int64) (int64, error) {
	tok, err := b.reader.Decode(i)
	if err != nil {
		return 0, err
	}

	switch {
	case tok.Kind == tape.KindObjectOpen || tok.Kind == tape.KindArrayOpen:
		return tok.Slots, b.openContainer(tok)
	case tok.Kind == tape.KindObjectClose || tok.Kind == tape.KindArrayClose:
		return tok.Slots, b.closeContainer(tok)
	case tok.Kind == tape.KindKey:
		return b.handleKey(tok, i, end)
	default:
		v, err := scalarValue(tok)
		if err != nil {
			return 0, err
		}

		b.pending = append(b.pending, pendingValue{value: v})

		return tok.Slots, nil
	}
}

// handleKey looks ahead one token. If the value is a container, the key is
// stashed on the current frame so it attaches to the about-to-open child
// instead of being flushed as a standalone Item. Otherwise it is pushed
// into the pending buffer as a key.
func (b *partialBuilder) handleKey(tok tape.Token, i, end int64) (int64, error) {
	next := i + tok.Slots
	if next >= end {
		b.pending = append(b.pending, pendingValue{value: doctree.Value{Kind: doctree.ValString, Str: tok.Bytes}, isKey: true})

		return tok.Slots, nil
	}

	nextTok, err := b.reader.Decode(next)
	if err != nil {
		return 0, err
	}

	if nextTok.Kind == tape.KindObjectOpen || nextTok.Kind == tape.KindArrayOpen {
		f := &b.stack[len(b.stack)-1]
		f.hasPendingKey = true
		f.pendingKey = tok.Bytes

		return tok.Slots, nil
	}

	b.pending = append(b.pending, pendingValue{value: doctree.Value{Kind: doctree.ValString, Str: tok.Bytes}, isKey: true})

	return tok.Slots, nil
}

func (b *partialBuilder) openContainer(tok tape.Token) error {
	parent := b.top()
	b.flushPending(parent)

	kind := doctree.KindObject
	if tok.Kind == tape.KindArrayOpen {
		kind = doctree.KindArray
	}

	child := b.alloc(kind)

	f := &b.stack[len(b.stack)-1]
	if f.hasPendingKey {
		keyRef := b.newItem(doctree.Value{Kind: doctree.ValString, Str: f.pendingKey}, true)
		b.appendChild(parent, keyRef)
		f.hasPendingKey = false
		f.pendingKey = nil
	}

	b.appendChild(parent, child)

	want := tok.ChildCountHint
	if kind == doctree.KindObject {
		want *= 2
	}

	if want > 0 {
		cn := b.cursor.Get(child)
		if cap(cn.Children) < want {
			grown := make([]doctree.Ref, 0, want)
			cn.Children = grown
		}
	}

	b.stack = append(b.stack, frame{container: child})

	return nil
}

// closeContainer flushes pending values, then either pops a matching
// opener in this partition, or — when the stack holds only the synthetic
// root with no real opener to match — wraps everything built so far under
// root in a fresh Virtual container recording the unmatched close. A
// second stray close before any real open happens wraps the first
// wrapper in turn, building the leftmost Virtual chain the merger expects.
func (b *partialBuilder) closeContainer(tok tape.Token) error {
	current := b.top()
	b.flushPending(current)

	wantObject := tok.Kind == tape.KindObjectClose
	currentNode := b.cursor.Get(current)

	if currentNode.Kind != doctree.KindRoot {
		matches := (wantObject && currentNode.Kind == doctree.KindObject) || (!wantObject && currentNode.Kind == doctree.KindArray)
		if !matches {
			return errs.SyntaxStateMismatch(-1, b.workerID, "close kind does not match the open container on this worker's stack")
		}

		b.stack = b.stack[:len(b.stack)-1]

		return nil
	}

	virtualKind := doctree.KindVirtualObject
	if !wantObject {
		virtualKind = doctree.KindVirtualArray
	}

	wrapper := b.alloc(virtualKind)
	wn := b.cursor.Get(wrapper)
	wn.Children = currentNode.Children

	for _, c := range wn.Children {
		b.cursor.Get(c).Parent = wrapper
	}

	wn.Parent = current
	currentNode.Children = []doctree.Ref{wrapper}

	return nil
}

func scalarValue(tok tape.Token) (doctree.Value, error) {
	switch tok.Kind {
	case tape.KindString:
		return doctree.Value{Kind: doctree.ValString, Str: tok.Bytes}, nil
	case tape.KindInt64:
		return doctree.Value{Kind: doctree.ValInt64, I64: tok.Int64}, nil
	case tape.KindUint64:
		return doctree.Value{Kind: doctree.ValUint64, U64: tok.Uint64}, nil
	case tape.KindDouble:
		return doctree.Value{Kind: doctree.ValDouble, F64: tok.Float64}, nil
	case tape.KindTrue:
		return doctree.Value{Kind: doctree.ValBool, Bool: true}, nil
	case tape.KindFalse:
		return doctree.Value{Kind: doctree.ValBool, Bool: false}, nil
	case tape.KindNull:
		return doctree.Value{Kind: doctree.ValNull}, nil
	default:
		return doctree.Value{}, errs.New(errs.KindTokenizerFailure, -1, "unexpected scalar kind in partial builder", map[string]any{"kind": tok.Kind.String()})
	}
}
