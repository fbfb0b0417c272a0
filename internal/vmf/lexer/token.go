// Package lexer scans VMF text into a lazy stream of lexical tokens.
package lexer

import (
	"fmt"

	"github.com/cory-johannsen/vmfkit/internal/vmf/vmferr"
)

// Kind is the lexical class of a Token.
type Kind uint8

// Token kinds.
const (
	EOF Kind = iota
	OpenBrace
	CloseBrace
	String     // "quoted text"
	Identifier // bare word
	Comment    // // to end of line
)

// String returns the token kind name.
func (k Kind) String() string {
	switch k {
	case EOF:
		return "EOF"
	case OpenBrace:
		return "{"
	case CloseBrace:
		return "}"
	case String:
		return "STRING"
	case Identifier:
		return "IDENT"
	case Comment:
		return "COMMENT"
	default:
		return "UNKNOWN"
	}
}

// Token is a single lexical unit with its source location.
// Text holds the unescaped contents for String, the bare word for
// Identifier and the comment body (without the leading //) for Comment.
type Token struct {
	Kind Kind
	Text string
	Pos  vmferr.Position
}

// IsWord reports whether t can serve as a key, value or block name.
func (t Token) IsWord() bool {
	return t.Kind == String || t.Kind == Identifier
}

// String returns a debug representation of the token.
func (t Token) String() string {
	switch t.Kind {
	case String, Identifier, Comment:
		return fmt.Sprintf("%s(%q)", t.Kind, t.Text)
	default:
		return t.Kind.String()
	}
}
