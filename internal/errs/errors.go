// Package errs provides standardized error messaging for the tape parser.
package errs

import (
	"errors"
	"fmt"
	"runtime"
)

// Kind represents the category of a parse-time failure.
type Kind string

const (
	KindTokenizerFailure    Kind = "TOKENIZER_FAILURE"
	KindMissingRoot         Kind = "MISSING_ROOT"
	KindSyntaxStateMismatch Kind = "SYNTAX_STATE_MISMATCH"
	KindOverClose           Kind = "OVER_CLOSE"
	KindUnderClose          Kind = "UNDER_CLOSE"
	KindInvalidBoundary     Kind = "STRUCTURAL_INVALID_BOUNDARY"
)

// sentinels allow callers to test the kind of a wrapped error with errors.Is,
// e.g. errors.Is(err, errs.ErrOverClose).
var (
	ErrTokenizerFailure    = errors.New(string(KindTokenizerFailure))
	ErrMissingRoot         = errors.New(string(KindMissingRoot))
	ErrSyntaxStateMismatch = errors.New(string(KindSyntaxStateMismatch))
	ErrOverClose           = errors.New(string(KindOverClose))
	ErrUnderClose          = errors.New(string(KindUnderClose))
	ErrInvalidBoundary     = errors.New(string(KindInvalidBoundary))
)

var sentinelByKind = map[Kind]error{
	KindTokenizerFailure:    ErrTokenizerFailure,
	KindMissingRoot:         ErrMissingRoot,
	KindSyntaxStateMismatch: ErrSyntaxStateMismatch,
	KindOverClose:           ErrOverClose,
	KindUnderClose:          ErrUnderClose,
	KindInvalidBoundary:     ErrInvalidBoundary,
}

// ParseError is the consistent error shape returned by every component in
// this module. It carries the offending tape index where knowable.
type ParseError struct {
	Kind      Kind
	Message   string
	Context   map[string]any
	Caller    string
	TapeIndex int64 // -1 when not knowable
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.TapeIndex >= 0 {
		return fmt.Sprintf("[%s] %s (tape index %d, caller: %s)", e.Kind, e.Message, e.TapeIndex, e.Caller)
	}

	return fmt.Sprintf("[%s] %s (caller: %s)", e.Kind, e.Message, e.Caller)
}

// Unwrap exposes the category sentinel so callers can use errors.Is against
// the exported ErrXxx values without depending on Kind directly.
func (e *ParseError) Unwrap() error {
	return sentinelByKind[e.Kind]
}

// New constructs a ParseError, attaching the offending tape index (-1 if
// unknown) and recording the immediate caller for diagnostics.
func New(kind Kind, tapeIndex int64, message string, context map[string]any) *ParseError {
	pc, _, _, ok := runtime.Caller(1)

	caller := "unknown"
	if ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			caller = fn.Name()
		}
	}

	return &ParseError{
		Kind:      kind,
		Message:   message,
		Context:   context,
		Caller:    caller,
		TapeIndex: tapeIndex,
	}
}

// Common constructors, one per error kind.

func TokenizerFailure(detail string) *ParseError {
	return New(KindTokenizerFailure, -1, fmt.Sprintf("tokenizer rejected input: %s", detail),
		map[string]any{"detail": detail})
}

func MissingRoot() *ParseError {
	return New(KindMissingRoot, 0, "tape did not begin with a root marker", nil)
}

func SyntaxStateMismatch(tapeIndex int64, workerID int, detail string) *ParseError {
	return New(KindSyntaxStateMismatch, tapeIndex,
		fmt.Sprintf("worker %d finished outside the accepting state: %s", workerID, detail),
		map[string]any{"worker_id": workerID, "detail": detail})
}

func OverClose(tapeIndex int64) *ParseError {
	return New(KindOverClose, tapeIndex, "more closes than opens across the document", nil)
}

func UnderClose() *ParseError {
	return New(KindUnderClose, -1, "final accumulator frontier is still open after the last merge", nil)
}

func InvalidBoundary(tapeIndex int64, containerKind string, detail string) *ParseError {
	return New(KindInvalidBoundary, tapeIndex, detail,
		map[string]any{"container_kind": containerKind})
}
