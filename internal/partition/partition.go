// Package partition finds safe split points in a tape so it can be divided
// fairly across worker goroutines without cutting inside a multi-slot token.
package partition

import "github.com/tapetree/tapetree/internal/tape"

// Range is a half-open tape slot range [Start, End) handed to one worker.
type Range struct {
	Start int64
	End   int64
}

// Partition computes up to threadCount+1 cut points over tapeSlots (whose
// index 0 is always the root marker, per the fixed wire format) and returns
// the resulting worker ranges over the body [1, L). Initial guesses are
// uniform (ci = L*i/T); each is advanced by a forward scan to the next safe
// boundary, and dropped — shrinking the worker count — if no safe boundary
// precedes the next guess.
func Partition(tapeSlots []uint64, threadCount int) []Range {
	if threadCount < 1 {
		threadCount = 1
	}

	l := int64(len(tapeSlots))
	if l <= 2 {
		return []Range{{Start: 1, End: l}}
	}

	isValue := classifyValueSlots(tapeSlots)

	guesses := make([]int64, threadCount+1)
	for i := 0; i <= threadCount; i++ {
		guesses[i] = (l * int64(i)) / int64(threadCount)
	}

	guesses[0] = 1
	guesses[threadCount] = l

	cuts := []int64{guesses[0]}

	for i := 1; i < threadCount; i++ {
		boundary, ok := scanForSafeBoundary(tapeSlots, isValue, guesses[i], guesses[i+1])
		if !ok {
			continue
		}

		if boundary <= cuts[len(cuts)-1] {
			continue
		}

		cuts = append(cuts, boundary)
	}

	if last := cuts[len(cuts)-1]; last < l {
		cuts = append(cuts, l)
	}

	ranges := make([]Range, 0, len(cuts)-1)
	for i := 0; i+1 < len(cuts); i++ {
		ranges = append(ranges, Range{Start: cuts[i], End: cuts[i+1]})
	}

	return ranges
}

// classifyValueSlots marks every slot that holds the raw 64-bit value
// trailing a number's discriminant slot, so the safe-boundary scan never
// mistakes a number's payload for the start of the next token.
func classifyValueSlots(tapeSlots []uint64) []bool {
	isValue := make([]bool, len(tapeSlots))

	for i := int64(1); i < int64(len(tapeSlots)); i++ {
		if isValue[i] {
			continue
		}

		switch byte(tapeSlots[i] >> 56) {
		case tape.DiscInt64, tape.DiscUint64, tape.DiscDouble:
			if i+1 < int64(len(tapeSlots)) {
				isValue[i+1] = true
			}

			i++
		}
	}

	return isValue
}

// isSafeSuccessor reports whether a is a safe successor boundary: tape[a]
// is a discriminant slot (not a preceding number's trailing value), and
// tape[a+1] is one of object-close, array-close, or key-string — leaving
// the next worker starting either exactly at a container boundary or just
// after a completed scalar preceding a key.
func isSafeSuccessor(tapeSlots []uint64, isValue []bool, a int64) bool {
	if a <= 0 || a+1 >= int64(len(tapeSlots)) {
		return false
	}

	if isValue[a] || isValue[a+1] {
		return false
	}

	switch byte(tapeSlots[a+1] >> 56) {
	case tape.DiscObjectClose, tape.DiscArrayClose, tape.DiscKey:
		return true
	default:
		return false
	}
}

// scanForSafeBoundary scans [from, limit) for a safe successor position a
// and returns the cut point a+1 — the tape index where the next worker's
// range actually begins.
func scanForSafeBoundary(tapeSlots []uint64, isValue []bool, from, limit int64) (int64, bool) {
	for a := from; a < limit; a++ {
		if isSafeSuccessor(tapeSlots, isValue, a) {
			return a + 1, true
		}
	}

	return 0, false
}
