package keyvalues

import (
	"github.com/cory-johannsen/vmfkit/internal/vmf/lexer"
	"github.com/cory-johannsen/vmfkit/internal/vmf/vmferr"
)

// DefaultMaxDepth bounds block nesting when no WithMaxDepth option is given.
// Real maps nest at most five or six levels (world/solid/side/dispinfo/row).
const DefaultMaxDepth = 64

// TokenSource yields tokens one at a time. *lexer.Lexer satisfies it.
type TokenSource interface {
	Next() (lexer.Token, error)
}

// Option configures the block parser.
type Option func(*parser)

// WithMaxDepth sets the maximum block nesting depth. Values below 1 are ignored.
func WithMaxDepth(n int) Option {
	return func(p *parser) {
		if n >= 1 {
			p.maxDepth = n
		}
	}
}

// Parse tokenizes text and builds its generic block tree.
//
// Postcondition: returns the synthetic root block or a *vmferr.Error of
// kind LexError or SyntaxError; never both.
func Parse(text string, opts ...Option) (*Block, error) {
	return ParseTokens(lexer.New(text), opts...)
}

// ParseTokens builds a generic block tree from src. Comment tokens are skipped.
//
// Precondition: src must be positioned at its first token.
// Postcondition: src has been consumed through EOF on success.
func ParseTokens(src TokenSource, opts ...Option) (*Block, error) {
	p := &parser{src: src, maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(p)
	}
	return p.parseRoot()
}

type parser struct {
	src      TokenSource
	maxDepth int
	peeked   *lexer.Token
}

func (p *parser) next() (lexer.Token, error) {
	if p.peeked != nil {
		tok := *p.peeked
		p.peeked = nil
		return tok, nil
	}
	for {
		tok, err := p.src.Next()
		if err != nil {
			return lexer.Token{}, err
		}
		if tok.Kind != lexer.Comment {
			return tok, nil
		}
	}
}

func (p *parser) peek() (lexer.Token, error) {
	if p.peeked != nil {
		return *p.peeked, nil
	}
	tok, err := p.next()
	if err != nil {
		return lexer.Token{}, err
	}
	p.peeked = &tok
	return tok, nil
}

func (p *parser) parseRoot() (*Block, error) {
	root := &Block{Pos: vmferr.Position{Line: 1, Column: 1}}
	for {
		tok, err := p.next()
		if err != nil {
			return nil, err
		}
		switch {
		case tok.Kind == lexer.EOF:
			return root, nil
		case tok.Kind == lexer.CloseBrace:
			return nil, vmferr.Newf(vmferr.SyntaxError, tok.Pos, "unmatched '}'")
		case tok.Kind == lexer.OpenBrace:
			return nil, vmferr.Newf(vmferr.SyntaxError, tok.Pos, "unexpected '{' without a block name")
		case tok.IsWord():
			next, err := p.peek()
			if err != nil {
				return nil, err
			}
			switch {
			case next.Kind == lexer.OpenBrace:
				child, err := p.parseBlock(tok, 1)
				if err != nil {
					return nil, err
				}
				root.Children = append(root.Children, child)
			case next.IsWord():
				return nil, vmferr.Newf(vmferr.SyntaxError, tok.Pos,
					"unexpected key %q outside of any block", tok.Text)
			default:
				return nil, vmferr.Newf(vmferr.SyntaxError, next.Pos,
					"expected '{' after block name %q, got %s", tok.Text, next.Kind)
			}
		}
	}
}

// parseBlock parses the body of a block whose name token has been consumed
// and whose opening brace is the next token.
func (p *parser) parseBlock(name lexer.Token, depth int) (*Block, error) {
	if depth > p.maxDepth {
		return nil, vmferr.Newf(vmferr.SyntaxError, name.Pos,
			"block %q exceeds maximum nesting depth %d", name.Text, p.maxDepth)
	}
	open, err := p.next()
	if err != nil {
		return nil, err
	}

	blk := &Block{Name: name.Text, Pos: name.Pos}
	for {
		tok, err := p.next()
		if err != nil {
			return nil, err
		}
		switch {
		case tok.Kind == lexer.CloseBrace:
			return blk, nil
		case tok.Kind == lexer.EOF:
			return nil, vmferr.Newf(vmferr.SyntaxError, open.Pos,
				"unmatched '{' opening block %q", name.Text)
		case tok.Kind == lexer.OpenBrace:
			return nil, vmferr.Newf(vmferr.SyntaxError, tok.Pos,
				"unexpected '{' without a block name in block %q", name.Text)
		case tok.IsWord():
			next, err := p.peek()
			if err != nil {
				return nil, err
			}
			switch {
			case next.Kind == lexer.OpenBrace:
				child, err := p.parseBlock(tok, depth+1)
				if err != nil {
					return nil, err
				}
				blk.Children = append(blk.Children, child)
			case next.IsWord():
				_, _ = p.next()
				blk.Pairs = append(blk.Pairs, Pair{Key: tok.Text, Value: next.Text, Pos: tok.Pos})
			default:
				return nil, vmferr.Newf(vmferr.SyntaxError, tok.Pos,
					"missing value after key %q in block %q", tok.Text, name.Text)
			}
		}
	}
}
