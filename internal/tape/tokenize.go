package tape

import (
	"math"
	"strconv"

	"github.com/tapetree/tapetree/internal/errs"
)

// Tokenize is a reference, non-SIMD stand-in for the external scanner this
// module's core treats as a black box (spec §1, §6). It produces the same
// wire format the core consumes: a flat tape of 64-bit slots plus a string
// buffer of length-prefixed UTF-8 strings.
//
// It performs a single linear pass, tracking container nesting to classify
// a string as a key versus a value and to compute matching-bracket indices
// and child counts. It rejects malformed syntax as it goes: an object
// member must be a string key, ':' and a value, container elements must be
// comma-separated, and literals, numbers and strings must be well formed. A
// structural close with no matching open on the whole-document stack is
// tape-d as unmatched (MatchIndex -1) rather than rejected outright, since
// the boundary errors that matter (OverClose/UnderClose) are a concern of
// the merge stage, not this scanner.
func Tokenize(input []byte) ([]uint64, []byte, error) {
	tz := &tokenizer{data: input}
	tz.tapeSlots = append(tz.tapeSlots, 0) // root placeholder, patched at the end

	tz.skipWhitespace()

	if tz.pos >= len(tz.data) {
		return nil, nil, errs.TokenizerFailure("empty input")
	}

	if err := tz.scanValue(); err != nil {
		return nil, nil, err
	}

	tz.skipWhitespace()

	if tz.pos != len(tz.data) {
		return nil, nil, errs.TokenizerFailure("trailing bytes after top-level value")
	}

	tz.tapeSlots[0] = uint64(DiscRoot)<<56 | uint64(len(tz.tapeSlots))&payloadMask

	return tz.tapeSlots, tz.strbuf, nil
}

type containerFrame struct {
	openIndex int  // index into tapeSlots of the opener slot
	isObject  bool
	needKey   bool // true when the next string token is a key, not a value
	children  uint64
}

type tokenizer struct {
	data      []byte
	pos       int
	tapeSlots []uint64
	strbuf    []byte
	stack     []containerFrame
}

func (tz *tokenizer) skipWhitespace() {
	for tz.pos < len(tz.data) {
		switch tz.data[tz.pos] {
		case ' ', '\t', '\n', '\r':
			tz.pos++
		default:
			return
		}
	}
}

// scanValue dispatches on the next byte. It also handles the top-level
// stray-closer case (scanValue called when the next byte is '}'/']') by
// tape-ing an unmatched close and returning, rather than erroring — see the
// package doc comment.
func (tz *tokenizer) scanValue() error {
	if tz.pos >= len(tz.data) {
		return errs.TokenizerFailure("unexpected end of input")
	}

	switch c := tz.data[tz.pos]; {
	case c == '{':
		return tz.scanContainer(true)
	case c == '[':
		return tz.scanContainer(false)
	case c == '}' || c == ']':
		return tz.scanStrayClose()
	case c == '"':
		return tz.scanString(false)
	case c == 't':
		return tz.scanLiteral("true", DiscTrue)
	case c == 'f':
		return tz.scanLiteral("false", DiscFalse)
	case c == 'n':
		return tz.scanLiteral("null", DiscNull)
	case c == '-' || (c >= '0' && c <= '9'):
		return tz.scanNumber()
	default:
		return errs.New(errs.KindTokenizerFailure, int64(len(tz.tapeSlots)), "unexpected byte", map[string]any{"byte": string(c)})
	}
}

// scanStrayClose tapes a structural close that has no opener anywhere on
// the current stack; it is left for the merge stage to report as OverClose.
func (tz *tokenizer) scanStrayClose() error {
	isObjClose := tz.data[tz.pos] == '}'
	tz.pos++

	disc := DiscArrayClose
	if isObjClose {
		disc = DiscObjectClose
	}

	tz.emitStructural(disc, -1, 0)

	return nil
}

func (tz *tokenizer) scanContainer(isObject bool) error {
	openDisc := DiscArrayOpen
	closeDisc := DiscArrayClose

	if isObject {
		openDisc = DiscObjectOpen
		closeDisc = DiscObjectClose
	}

	openIndex := len(tz.tapeSlots)
	tz.emitStructural(openDisc, -1, 0) // patched once the matching close is seen
	tz.stack = append(tz.stack, containerFrame{openIndex: openIndex, isObject: isObject, needKey: isObject})
	tz.pos++ // consume '{' or '['

	tz.skipWhitespace()

	first := true

	for {
		if tz.pos >= len(tz.data) {
			return errs.TokenizerFailure("unterminated container")
		}

		if tz.data[tz.pos] == closeByte(closeDisc) {
			break
		}

		if !first {
			if tz.data[tz.pos] != ',' {
				return errs.TokenizerFailure("expected ',' between container elements")
			}

			tz.pos++
			tz.skipWhitespace()
		}

		first = false

		frame := &tz.stack[len(tz.stack)-1]
		if frame.needKey {
			if tz.pos >= len(tz.data) || tz.data[tz.pos] != '"' {
				return errs.TokenizerFailure("expected string key in object")
			}

			if err := tz.scanString(true); err != nil {
				return err
			}

			tz.skipWhitespace()

			if tz.pos >= len(tz.data) || tz.data[tz.pos] != ':' {
				return errs.TokenizerFailure("expected ':' after object key")
			}

			tz.pos++
			tz.skipWhitespace()
			frame.needKey = false
		}

		if err := tz.scanValue(); err != nil {
			return err
		}

		frame = &tz.stack[len(tz.stack)-1] // a nested container may have regrown tz.stack
		frame.children++
		if frame.isObject {
			frame.needKey = true
		}

		tz.skipWhitespace()
	}

	tz.pos++ // consume closer

	frame := tz.stack[len(tz.stack)-1]
	tz.stack = tz.stack[:len(tz.stack)-1]

	closeIndex := len(tz.tapeSlots)
	childCount := frame.children
	if childCount > childCountMax {
		childCount = childCountMax
	}

	tz.tapeSlots[frame.openIndex] = structuralSlot(openDisc, int64(closeIndex), childCount)
	tz.emitStructural(closeDisc, int64(frame.openIndex), childCount)

	return nil
}

func closeByte(disc byte) byte {
	if disc == DiscObjectClose {
		return '}'
	}

	return ']'
}

func (tz *tokenizer) scanLiteral(lit string, disc byte) error {
	if tz.pos+len(lit) > len(tz.data) || string(tz.data[tz.pos:tz.pos+len(lit)]) != lit {
		return errs.TokenizerFailure("malformed literal")
	}

	tz.pos += len(lit)
	tz.emitStructural(disc, 0, 0)

	return nil
}

func (tz *tokenizer) scanNumber() error {
	start := tz.pos

	if tz.data[tz.pos] == '-' {
		tz.pos++
	}

	for tz.pos < len(tz.data) && isDigit(tz.data[tz.pos]) {
		tz.pos++
	}

	isFloat := false

	if tz.pos < len(tz.data) && tz.data[tz.pos] == '.' {
		isFloat = true
		tz.pos++

		for tz.pos < len(tz.data) && isDigit(tz.data[tz.pos]) {
			tz.pos++
		}
	}

	if tz.pos < len(tz.data) && (tz.data[tz.pos] == 'e' || tz.data[tz.pos] == 'E') {
		isFloat = true
		tz.pos++

		if tz.pos < len(tz.data) && (tz.data[tz.pos] == '+' || tz.data[tz.pos] == '-') {
			tz.pos++
		}

		for tz.pos < len(tz.data) && isDigit(tz.data[tz.pos]) {
			tz.pos++
		}
	}

	lit := string(tz.data[start:tz.pos])

	if !isFloat {
		if iv, err := strconv.ParseInt(lit, 10, 64); err == nil {
			tz.emitInt64(iv)

			return nil
		}

		if uv, err := strconv.ParseUint(lit, 10, 64); err == nil {
			tz.emitUint64(uv)

			return nil
		}
	}

	fv, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return errs.TokenizerFailure("malformed number literal")
	}

	tz.emitDouble(fv)

	return nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// scanString consumes a quoted, possibly-escaped JSON string and appends
// its unescaped bytes to the string buffer, then emits a key or string
// slot pointing at that buffer region.
func (tz *tokenizer) scanString(asKey bool) error {
	tz.pos++ // consume opening quote

	unescaped := make([]byte, 0, 16)

	for {
		if tz.pos >= len(tz.data) {
			return errs.TokenizerFailure("unterminated string")
		}

		c := tz.data[tz.pos]

		switch {
		case c == '"':
			tz.pos++

			goto done
		case c == '\\':
			tz.pos++

			if tz.pos >= len(tz.data) {
				return errs.TokenizerFailure("unterminated escape sequence")
			}

			b, n, err := decodeEscape(tz.data[tz.pos:])
			if err != nil {
				return err
			}

			unescaped = append(unescaped, b...)
			tz.pos += n
		default:
			unescaped = append(unescaped, c)
			tz.pos++
		}
	}

done:
	offset := len(tz.strbuf)
	length := len(unescaped)

	tz.strbuf = append(tz.strbuf,
		byte(length), byte(length>>8), byte(length>>16), byte(length>>24))
	tz.strbuf = append(tz.strbuf, unescaped...)

	disc := DiscString
	if asKey {
		disc = DiscKey
	}

	tz.tapeSlots = append(tz.tapeSlots, uint64(disc)<<56|uint64(offset)&payloadMask)

	return nil
}

// decodeEscape decodes one escape sequence starting right after the
// backslash and returns its UTF-8 bytes plus how many input bytes it
// consumed.
func decodeEscape(rest []byte) ([]byte, int, error) {
	if len(rest) == 0 {
		return nil, 0, errs.TokenizerFailure("unterminated escape sequence")
	}

	switch rest[0] {
	case '"':
		return []byte{'"'}, 1, nil
	case '\\':
		return []byte{'\\'}, 1, nil
	case '/':
		return []byte{'/'}, 1, nil
	case 'b':
		return []byte{'\b'}, 1, nil
	case 'f':
		return []byte{'\f'}, 1, nil
	case 'n':
		return []byte{'\n'}, 1, nil
	case 'r':
		return []byte{'\r'}, 1, nil
	case 't':
		return []byte{'\t'}, 1, nil
	case 'u':
		return decodeUnicodeEscape(rest)
	default:
		return nil, 0, errs.TokenizerFailure("unknown string escape")
	}
}

func decodeUnicodeEscape(rest []byte) ([]byte, int, error) {
	if len(rest) < 5 {
		return nil, 0, errs.TokenizerFailure("truncated \\u escape")
	}

	r, err := hex4(rest[1:5])
	if err != nil {
		return nil, 0, err
	}

	if r >= 0xD800 && r <= 0xDBFF && len(rest) >= 11 && rest[5] == '\\' && rest[6] == 'u' {
		low, err := hex4(rest[7:11])
		if err == nil && low >= 0xDC00 && low <= 0xDFFF {
			combined := 0x10000 + (r-0xD800)<<10 + (low - 0xDC00)

			return []byte(string(rune(combined))), 11, nil
		}
	}

	return []byte(string(rune(r))), 5, nil
}

func hex4(b []byte) (rune, error) {
	var v rune

	for _, c := range b {
		v <<= 4

		switch {
		case c >= '0' && c <= '9':
			v |= rune(c - '0')
		case c >= 'a' && c <= 'f':
			v |= rune(c-'a') + 10
		case c >= 'A' && c <= 'F':
			v |= rune(c-'A') + 10
		default:
			return 0, errs.TokenizerFailure("invalid hex digit in \\u escape")
		}
	}

	return v, nil
}

func (tz *tokenizer) emitStructural(disc byte, matchIndex int64, childCount uint64) {
	tz.tapeSlots = append(tz.tapeSlots, structuralSlot(disc, matchIndex, childCount))
}

func structuralSlot(disc byte, matchIndex int64, childCount uint64) uint64 {
	return uint64(disc)<<56 | (childCount&childCountMax)<<childCountShift | uint64(matchIndex)&matchIndexMask
}

func (tz *tokenizer) emitInt64(v int64) {
	tz.tapeSlots = append(tz.tapeSlots, uint64(DiscInt64)<<56, uint64(v))
}

func (tz *tokenizer) emitUint64(v uint64) {
	tz.tapeSlots = append(tz.tapeSlots, uint64(DiscUint64)<<56, v)
}

func (tz *tokenizer) emitDouble(v float64) {
	tz.tapeSlots = append(tz.tapeSlots, uint64(DiscDouble)<<56, math.Float64bits(v))
}
