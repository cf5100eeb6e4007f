// Package serialize walks a document tree in pre-order and emits it as
// JSON text. The round-trip it guarantees is tape-equivalent, not
// byte-equivalent: whitespace is not preserved.
package serialize

import (
	"bufio"
	"io"
	"strconv"

	"github.com/tapetree/tapetree/internal/doctree"
	"github.com/tapetree/tapetree/internal/errs"
)

// Options controls output formatting.
type Options struct {
	// Pretty indents nested containers with two spaces per level instead
	// of emitting the compact single-line form.
	Pretty bool
}

// Write serializes the subtree rooted at ref to w.
func Write(w io.Writer, t *doctree.Tree, ref doctree.Ref, opts Options) error {
	bw := bufio.NewWriter(w)

	s := &serializer{t: t, w: bw, pretty: opts.Pretty}
	if err := s.writeNode(ref, 0); err != nil {
		return err
	}

	return bw.Flush()
}

type serializer struct {
	t      *doctree.Tree
	w      *bufio.Writer
	pretty bool
}

func (s *serializer) writeNode(ref doctree.Ref, depth int) error {
	if ref.IsNil() {
		return errs.New(errs.KindMissingRoot, -1, "nothing to serialize", nil)
	}

	n := s.t.Get(ref)

	switch n.Kind {
	case doctree.KindRoot:
		if len(n.Children) == 0 {
			return nil
		}

		return s.writeNode(n.Children[0], depth)
	case doctree.KindObject, doctree.KindVirtualObject:
		return s.writeObject(n, depth)
	case doctree.KindArray, doctree.KindVirtualArray:
		return s.writeArray(n, depth)
	case doctree.KindItem:
		return s.writeValue(n.Value)
	default:
		return errs.New(errs.KindSyntaxStateMismatch, -1, "unexpected node kind during serialization", map[string]any{"kind": n.Kind.String()})
	}
}

func (s *serializer) writeObject(n *doctree.Node, depth int) error {
	if len(n.Children) == 0 {
		_, err := s.w.WriteString("{}")

		return err
	}

	if err := s.w.WriteByte('{'); err != nil {
		return err
	}

	for i := 0; i+1 < len(n.Children); i += 2 {
		if i > 0 {
			if err := s.w.WriteByte(','); err != nil {
				return err
			}
		}

		s.newlineIndent(depth + 1)

		keyNode := s.t.Get(n.Children[i])
		if err := s.writeValue(keyNode.Value); err != nil {
			return err
		}

		if _, err := s.w.WriteString(" : "); err != nil {
			return err
		}

		if err := s.writeNode(n.Children[i+1], depth+1); err != nil {
			return err
		}
	}

	s.newlineIndent(depth)

	return s.w.WriteByte('}')
}

func (s *serializer) writeArray(n *doctree.Node, depth int) error {
	if len(n.Children) == 0 {
		_, err := s.w.WriteString("[]")

		return err
	}

	if err := s.w.WriteByte('['); err != nil {
		return err
	}

	for i, child := range n.Children {
		if i > 0 {
			if err := s.w.WriteByte(','); err != nil {
				return err
			}
		}

		s.newlineIndent(depth + 1)

		if err := s.writeNode(child, depth+1); err != nil {
			return err
		}
	}

	s.newlineIndent(depth)

	return s.w.WriteByte(']')
}

func (s *serializer) newlineIndent(depth int) {
	if !s.pretty {
		return
	}

	s.w.WriteByte('\n')

	for i := 0; i < depth; i++ {
		s.w.WriteString("  ")
	}
}

func (s *serializer) writeValue(v doctree.Value) error {
	switch v.Kind {
	case doctree.ValString:
		return s.writeString(v.Str)
	case doctree.ValInt64:
		_, err := s.w.WriteString(strconv.FormatInt(v.I64, 10))

		return err
	case doctree.ValUint64:
		_, err := s.w.WriteString(strconv.FormatUint(v.U64, 10))

		return err
	case doctree.ValDouble:
		_, err := s.w.WriteString(strconv.FormatFloat(v.F64, 'f', 6, 64))

		return err
	case doctree.ValBool:
		if v.Bool {
			_, err := s.w.WriteString("true")

			return err
		}

		_, err := s.w.WriteString("false")

		return err
	case doctree.ValNull:
		_, err := s.w.WriteString("null")

		return err
	default:
		_, err := s.w.WriteString("null")

		return err
	}
}

// writeString quotes and escapes str per the fixed escaping rules:
// backslash, double-quote, newline, and any byte in [0x01,0x1F] ∪ {0x7F}
// become \\, \", \n, or \uHHHH respectively.
func (s *serializer) writeString(str []byte) error {
	if err := s.w.WriteByte('"'); err != nil {
		return err
	}

	for _, c := range str {
		switch {
		case c == '\\':
			if _, err := s.w.WriteString(`\\`); err != nil {
				return err
			}
		case c == '"':
			if _, err := s.w.WriteString(`\"`); err != nil {
				return err
			}
		case c == '\n':
			if _, err := s.w.WriteString(`\n`); err != nil {
				return err
			}
		case (c >= 0x01 && c <= 0x1F) || c == 0x7F:
			if _, err := s.w.WriteString(`\u00`); err != nil {
				return err
			}

			if err := s.w.WriteByte(hexDigit(c >> 4)); err != nil {
				return err
			}

			if err := s.w.WriteByte(hexDigit(c & 0x0F)); err != nil {
				return err
			}
		default:
			if err := s.w.WriteByte(c); err != nil {
				return err
			}
		}
	}

	return s.w.WriteByte('"')
}

func hexDigit(n byte) byte {
	if n < 10 {
		return '0' + n
	}

	return 'a' + (n - 10)
}
