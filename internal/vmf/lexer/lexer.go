package lexer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cory-johannsen/vmfkit/internal/vmf/vmferr"
)

const bom = "\uFEFF"

// Lexer produces tokens from an in-memory VMF buffer on demand.
//
// A Lexer is not safe for concurrent use; independent buffers may be
// scanned concurrently by independent Lexers.
type Lexer struct {
	src  string
	pos  int
	line int
	col  int
}

// New returns a Lexer positioned at the first token of text.
//
// Postcondition: a leading UTF-8 byte order mark is skipped.
func New(text string) *Lexer {
	l := &Lexer{src: text}
	l.Reset()
	return l
}

// Reset rewinds the lexer to the start of its input.
func (l *Lexer) Reset() {
	l.pos = 0
	l.line = 1
	l.col = 1
	if strings.HasPrefix(l.src, bom) {
		l.pos = len(bom)
	}
}

// Next returns the next token. After the input is exhausted every call
// returns an EOF token.
//
// Postcondition: on error the lexer does not advance; the error is a
// *vmferr.Error of kind LexError.
func (l *Lexer) Next() (Token, error) {
	l.skipSpace()
	if l.pos >= len(l.src) {
		return Token{Kind: EOF, Pos: l.here()}, nil
	}

	start := l.here()
	switch c := l.src[l.pos]; {
	case c == '{':
		l.advance()
		return Token{Kind: OpenBrace, Text: "{", Pos: start}, nil
	case c == '}':
		l.advance()
		return Token{Kind: CloseBrace, Text: "}", Pos: start}, nil
	case c == '"':
		return l.scanQuoted(start)
	case l.atComment():
		return l.scanComment(start), nil
	default:
		return l.scanBare(start), nil
	}
}

// Tokenize scans text to the end and returns every token including the
// terminating EOF.
func Tokenize(text string) ([]Token, error) {
	l := New(text)
	var toks []Token
	for {
		tok, err := l.Next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Kind == EOF {
			return toks, nil
		}
	}
}

func (l *Lexer) here() vmferr.Position {
	return vmferr.Position{Line: l.line, Column: l.col}
}

// advance consumes one rune and updates line/column bookkeeping.
func (l *Lexer) advance() rune {
	r, size := utf8.DecodeRuneInString(l.src[l.pos:])
	l.pos += size
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func (l *Lexer) skipSpace() {
	for l.pos < len(l.src) {
		r, _ := utf8.DecodeRuneInString(l.src[l.pos:])
		if !unicode.IsSpace(r) {
			return
		}
		l.advance()
	}
}

func (l *Lexer) atComment() bool {
	return strings.HasPrefix(l.src[l.pos:], "//")
}

func (l *Lexer) scanComment(start vmferr.Position) Token {
	l.advance()
	l.advance()
	from := l.pos
	for l.pos < len(l.src) && l.src[l.pos] != '\n' {
		l.advance()
	}
	body := strings.TrimRight(l.src[from:l.pos], "\r")
	return Token{Kind: Comment, Text: strings.TrimSpace(body), Pos: start}
}

func (l *Lexer) scanQuoted(start vmferr.Position) (Token, error) {
	save := *l
	l.advance() // opening quote

	var b strings.Builder
	for {
		if l.pos >= len(l.src) || l.src[l.pos] == '\n' {
			*l = save
			return Token{}, vmferr.Newf(vmferr.LexError, start, "unterminated quoted string")
		}
		r := l.advance()
		switch r {
		case '"':
			return Token{Kind: String, Text: b.String(), Pos: start}, nil
		case '\\':
			if l.pos < len(l.src) && (l.src[l.pos] == '"' || l.src[l.pos] == '\\') {
				b.WriteRune(l.advance())
				continue
			}
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
}

func (l *Lexer) scanBare(start vmferr.Position) Token {
	from := l.pos
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == '{' || c == '}' || c == '"' || l.atComment() {
			break
		}
		r, _ := utf8.DecodeRuneInString(l.src[l.pos:])
		if unicode.IsSpace(r) {
			break
		}
		l.advance()
	}
	return Token{Kind: Identifier, Text: l.src[from:l.pos], Pos: start}
}
