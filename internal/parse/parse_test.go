package parse

import (
	"bytes"
	"testing"

	"github.com/tapetree/tapetree/internal/errs"
	"github.com/tapetree/tapetree/internal/serialize"
	"github.com/tapetree/tapetree/internal/tape"
)

func roundTrip(t *testing.T, input string, threads int) string {
	t.Helper()

	tapeSlots, strbuf, err := tape.Tokenize([]byte(input))
	if err != nil {
		t.Fatalf("tokenize(%q): %v", input, err)
	}

	tree, root, err := Parse(tapeSlots, strbuf, threads)
	if err != nil {
		t.Fatalf("parse(%q, threads=%d): %v", input, threads, err)
	}

	var buf bytes.Buffer
	if err := serialize.Write(&buf, tree, root, serialize.Options{}); err != nil {
		t.Fatalf("serialize(%q): %v", input, err)
	}

	return buf.String()
}

func TestEndToEndEmptyObject(t *testing.T) {
	if got := roundTrip(t, "{}", 4); got != "{}" {
		t.Fatalf("got %q, want {}", got)
	}
}

func TestEndToEndFlatArray(t *testing.T) {
	if got := roundTrip(t, "[1,2,3]", 4); got != "[1,2,3]" {
		t.Fatalf("got %q, want [1,2,3]", got)
	}
}

func TestEndToEndMixedObject(t *testing.T) {
	want := `{"a" : 1,"b" : [true,null]}`
	if got := roundTrip(t, `{"a":1,"b":[true,null]}`, 4); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestEndToEndDeeplyNestedArrayFourThreads(t *testing.T) {
	want := "[[[[42]]]]"
	if got := roundTrip(t, "[[[[42]]]]", 4); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestEndToEndEscapedKeyAndString(t *testing.T) {
	want := `{"k" : "a\"b\n"}`
	if got := roundTrip(t, `{"k":"a\"b\n"}`, 2); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestEndToEndBareCloseIsOverClose(t *testing.T) {
	tapeSlots, strbuf, err := tape.Tokenize([]byte("]"))
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}

	_, _, err = Parse(tapeSlots, strbuf, 1)
	if err == nil {
		t.Fatal("expected an OverClose error for a bare ']'")
	}

	pe, ok := err.(*errs.ParseError)
	if !ok || pe.Kind != errs.KindOverClose {
		t.Fatalf("error = %v, want an OverClose ParseError", err)
	}
}

func TestEndToEndThreadCountIndependence(t *testing.T) {
	input := `{"users":[{"id":1,"name":"a"},{"id":2,"name":"b"},{"id":3,"tags":[1,2,3,4,5,6]}],"meta":{"count":3,"ok":true,"note":null}}`

	threadCounts := []int{1, 2, 3, 4, 8, 16}

	baseline := roundTrip(t, input, 1)

	for _, threads := range threadCounts {
		if got := roundTrip(t, input, threads); got != baseline {
			t.Fatalf("threads=%d: got %q, want %q (baseline from threads=1)", threads, got, baseline)
		}
	}
}

func TestEndToEndMissingRootRejected(t *testing.T) {
	_, _, err := Parse([]uint64{uint64('l') << 56, 1}, nil, 2)
	if err == nil {
		t.Fatal("expected a MissingRoot error when the tape does not start with a root marker")
	}

	pe, ok := err.(*errs.ParseError)
	if !ok || pe.Kind != errs.KindMissingRoot {
		t.Fatalf("error = %v, want a MissingRoot ParseError", err)
	}
}
