// Package vmferr defines the error taxonomy shared by every VMF ingestion stage.
package vmferr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an ingestion failure by the stage that detected it.
type Kind int

const (
	// LexError reports a malformed token stream.
	LexError Kind = iota + 1
	// SyntaxError reports a malformed block structure.
	SyntaxError
	// SchemaError reports a missing or unexpected field for a known block kind.
	SchemaError
	// FormatError reports a malformed numeric literal or tuple.
	FormatError
	// ConsistencyError reports duplicate IDs, dangling references or degenerate geometry.
	ConsistencyError
)

// String returns the taxonomy name of the kind.
func (k Kind) String() string {
	switch k {
	case LexError:
		return "LexError"
	case SyntaxError:
		return "SyntaxError"
	case SchemaError:
		return "SchemaError"
	case FormatError:
		return "FormatError"
	case ConsistencyError:
		return "ConsistencyError"
	default:
		return "UnknownError"
	}
}

// Position is a 1-based line/column location in the source text.
// The zero Position means "no location available".
type Position struct {
	Line   int
	Column int
}

// IsValid reports whether p carries a location.
func (p Position) IsValid() bool { return p.Line > 0 }

// String renders p as "line:column".
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Error is the structured failure returned by every VMF stage.
type Error struct {
	Kind    Kind
	Message string
	Pos     Position
	// Related holds secondary locations, e.g. the first declaration of a duplicate ID.
	Related []Position
	// BlockKind and Field are set for SchemaError and FormatError.
	BlockKind string
	Field     string
}

// Error renders "<kind> at line:col: message", omitting the location when unknown.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Pos.IsValid() {
		b.WriteString(" at ")
		b.WriteString(e.Pos.String())
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	for _, r := range e.Related {
		if r.IsValid() {
			b.WriteString(" (see ")
			b.WriteString(r.String())
			b.WriteString(")")
		}
	}
	return b.String()
}

// Newf builds an Error of the given kind at pos.
func Newf(kind Kind, pos Position, format string, args ...any) *Error {
	return &Error{Kind: kind, Pos: pos, Message: fmt.Sprintf(format, args...)}
}

// MissingField builds the SchemaError for a required field absent from a block.
func MissingField(blockKind, field string, pos Position) *Error {
	return &Error{
		Kind:      SchemaError,
		Pos:       pos,
		BlockKind: blockKind,
		Field:     field,
		Message:   fmt.Sprintf("%s block is missing required field %q", blockKind, field),
	}
}

// BadFormat builds the FormatError for a field whose value fails to parse.
func BadFormat(blockKind, field, value string, pos Position, reason string) *Error {
	return &Error{
		Kind:      FormatError,
		Pos:       pos,
		BlockKind: blockKind,
		Field:     field,
		Message:   fmt.Sprintf("%s field %q has malformed value %q: %s", blockKind, field, value, reason),
	}
}

// KindOf returns the Kind of the first *Error in err's chain.
//
// Postcondition: ok is false when err is nil or carries no *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// Is reports whether err's chain contains an *Error of kind k.
func Is(err error, k Kind) bool {
	got, ok := KindOf(err)
	return ok && got == k
}
