// Package tape decodes the flat 64-bit token stream produced by the
// (external, SIMD-accelerated) JSON scanner. Decoding is pure and
// stateless: it never mutates the tape or the string buffer.
package tape

import (
	"math"

	"github.com/tapetree/tapetree/internal/errs"
)

// Discriminant bytes occupy the high byte of a tape slot. The key
// discriminant is distinct from the string discriminant on the wire and
// decodes to its own Kind (KindKey); its bytes resolve against the string
// buffer exactly as a KindString token's do.
const (
	DiscObjectOpen  byte = '{'
	DiscObjectClose byte = '}'
	DiscArrayOpen   byte = '['
	DiscArrayClose  byte = ']'
	DiscKey         byte = 'k'
	DiscString      byte = '"'
	DiscInt64       byte = 'l'
	DiscUint64      byte = 'u'
	DiscDouble      byte = 'd'
	DiscTrue        byte = 't'
	DiscFalse       byte = 'f'
	DiscNull        byte = 'n'
	DiscRoot        byte = 'r'
)

// payloadMask extracts the low 56 bits of a slot.
const payloadMask = uint64(1)<<56 - 1

// NoMatch is the MatchIndex value for a structural slot with no matching
// bracket on the tokenizer's (or partition's) view of the document.
const NoMatch int64 = -1

// matchIndexMask/childCountShift split a structural payload into a 32-bit
// matching-bracket index and a 24-bit saturated child count, per the tape
// format's bit layout (child count lives in bits [32,55]).
const (
	matchIndexMask  = uint64(1)<<32 - 1
	childCountShift = 32
	childCountMax   = uint64(1)<<24 - 1
)

// Kind identifies the decoded meaning of a tape slot.
type Kind int

const (
	KindRoot Kind = iota
	KindObjectOpen
	KindObjectClose
	KindArrayOpen
	KindArrayClose
	KindKey
	KindString
	KindInt64
	KindUint64
	KindDouble
	KindTrue
	KindFalse
	KindNull
)

func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindObjectOpen:
		return "object-open"
	case KindObjectClose:
		return "object-close"
	case KindArrayOpen:
		return "array-open"
	case KindArrayClose:
		return "array-close"
	case KindKey:
		return "key"
	case KindString:
		return "string"
	case KindInt64:
		return "int64"
	case KindUint64:
		return "uint64"
	case KindDouble:
		return "double"
	case KindTrue:
		return "true"
	case KindFalse:
		return "false"
	case KindNull:
		return "null"
	default:
		return "unknown"
	}
}

// IsStructural reports whether k opens or closes a container.
func (k Kind) IsStructural() bool {
	switch k {
	case KindObjectOpen, KindObjectClose, KindArrayOpen, KindArrayClose:
		return true
	default:
		return false
	}
}

// IsOpen reports whether k opens a container.
func (k Kind) IsOpen() bool {
	return k == KindObjectOpen || k == KindArrayOpen
}

// IsClose reports whether k closes a container.
func (k Kind) IsClose() bool {
	return k == KindObjectClose || k == KindArrayClose
}

// Token is the decoded form of one (or, for numbers, two) tape slots.
type Token struct {
	Bytes          []byte // valid for KindKey/KindString: bytes of the string, a view into the string buffer
	Kind           Kind
	Int64          int64   // valid for KindInt64
	Uint64         uint64  // valid for KindUint64
	Float64        float64 // valid for KindDouble
	MatchIndex     int64   // valid for structural kinds: tape index of the matching bracket
	ChildCountHint int     // valid for structural opens: saturated child count
	Slots          int64   // number of tape slots this token consumed (1, except numbers which consume 2)
}

// Reader decodes slots out of a tape/string-buffer pair. It is stateless and
// safe for concurrent use by multiple workers over disjoint index ranges.
type Reader struct {
	Tape   []uint64
	Strbuf []byte
}

// NewReader constructs a Reader over the given tape and string buffer. Both
// slices must outlive every Token produced (string tokens alias Strbuf).
func NewReader(t []uint64, strbuf []byte) *Reader {
	return &Reader{Tape: t, Strbuf: strbuf}
}

// Len returns the number of slots in the tape.
func (r *Reader) Len() int { return len(r.Tape) }

// Decode decodes the slot at index i, returning the token and any error.
// Numbers report Slots == 2 so callers advance past both the discriminant
// and the raw-value slot.
func (r *Reader) Decode(i int64) (Token, error) {
	if i < 0 || int(i) >= len(r.Tape) {
		return Token{}, errs.TokenizerFailure("tape index out of range")
	}

	slot := r.Tape[i]
	disc := byte(slot >> 56)
	payload := slot & payloadMask

	switch disc {
	case DiscRoot:
		return Token{Kind: KindRoot, ChildCountHint: int(payload), Slots: 1}, nil
	case DiscObjectOpen, DiscArrayOpen, DiscObjectClose, DiscArrayClose:
		kind := structuralKind(disc)
		matchIdx := int64(payload & matchIndexMask)

		if uint64(matchIdx) == matchIndexMask {
			matchIdx = NoMatch
		}

		childCount := (payload >> childCountShift) & childCountMax

		return Token{
			Kind:           kind,
			MatchIndex:     matchIdx,
			ChildCountHint: int(childCount),
			Slots:          1,
		}, nil
	case DiscKey, DiscString:
		b, err := r.decodeString(i, payload)
		if err != nil {
			return Token{}, err
		}

		kind := KindString
		if disc == DiscKey {
			kind = KindKey
		}

		return Token{Kind: kind, Bytes: b, Slots: 1}, nil
	case DiscInt64, DiscUint64, DiscDouble:
		if i+1 >= int64(len(r.Tape)) {
			return Token{}, errs.New(errs.KindTokenizerFailure, i, "number slot missing its value slot", nil)
		}

		raw := r.Tape[i+1]

		switch disc {
		case DiscInt64:
			return Token{Kind: KindInt64, Int64: int64(raw), Slots: 2}, nil
		case DiscUint64:
			return Token{Kind: KindUint64, Uint64: raw, Slots: 2}, nil
		default:
			return Token{Kind: KindDouble, Float64: math.Float64frombits(raw), Slots: 2}, nil
		}
	case DiscTrue:
		return Token{Kind: KindTrue, Slots: 1}, nil
	case DiscFalse:
		return Token{Kind: KindFalse, Slots: 1}, nil
	case DiscNull:
		return Token{Kind: KindNull, Slots: 1}, nil
	default:
		return Token{}, errs.New(errs.KindTokenizerFailure, i, "unrecognized tape discriminant", map[string]any{"byte": disc})
	}
}

func (r *Reader) decodeString(i int64, offset uint64) ([]byte, error) {
	if offset+4 > uint64(len(r.Strbuf)) {
		return nil, errs.New(errs.KindTokenizerFailure, i, "string offset out of range", map[string]any{"offset": offset})
	}

	length := uint64(r.Strbuf[offset]) | uint64(r.Strbuf[offset+1])<<8 |
		uint64(r.Strbuf[offset+2])<<16 | uint64(r.Strbuf[offset+3])<<24

	start := offset + 4
	end := start + length

	if end > uint64(len(r.Strbuf)) {
		return nil, errs.New(errs.KindTokenizerFailure, i, "string length overruns buffer", map[string]any{"offset": offset, "length": length})
	}

	return r.Strbuf[start:end], nil
}

func structuralKind(disc byte) Kind {
	switch disc {
	case DiscObjectOpen:
		return KindObjectOpen
	case DiscObjectClose:
		return KindObjectClose
	case DiscArrayOpen:
		return KindArrayOpen
	default:
		return KindArrayClose
	}
}
