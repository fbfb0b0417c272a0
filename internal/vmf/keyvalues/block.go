// Package keyvalues builds and writes the generic block tree of a VMF file:
// named blocks holding ordered key/value pairs and nested blocks.
package keyvalues

import (
	"strings"

	"github.com/cory-johannsen/vmfkit/internal/vmf/vmferr"
)

// Pair is one key/value entry of a block. Keys may repeat within a block.
type Pair struct {
	Key   string
	Value string
	Pos   vmferr.Position
}

// Block is a named node of the generic tree.
// The root returned by Parse has an empty Name and holds the file's
// top-level blocks as Children.
type Block struct {
	Name     string
	Pairs    []Pair
	Children []*Block
	Pos      vmferr.Position
}

// NewBlock returns an empty block with the given name.
func NewBlock(name string) *Block {
	return &Block{Name: name}
}

// Add appends a key/value pair and returns b for chaining.
func (b *Block) Add(key, value string) *Block {
	b.Pairs = append(b.Pairs, Pair{Key: key, Value: value})
	return b
}

// AddChild appends child and returns b for chaining. A nil child is ignored.
func (b *Block) AddChild(child *Block) *Block {
	if child != nil {
		b.Children = append(b.Children, child)
	}
	return b
}

// Get returns the first value stored under key. Keys match case-insensitively,
// as the map editors that produce VMF treat them.
func (b *Block) Get(key string) (string, bool) {
	p, ok := b.Lookup(key)
	return p.Value, ok
}

// Lookup returns the first pair stored under key.
func (b *Block) Lookup(key string) (Pair, bool) {
	for _, p := range b.Pairs {
		if strings.EqualFold(p.Key, key) {
			return p, true
		}
	}
	return Pair{}, false
}

// All returns every pair stored under key, in source order.
func (b *Block) All(key string) []Pair {
	var out []Pair
	for _, p := range b.Pairs {
		if strings.EqualFold(p.Key, key) {
			out = append(out, p)
		}
	}
	return out
}

// Child returns the first child block with the given name, or nil.
func (b *Block) Child(name string) *Block {
	for _, c := range b.Children {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}

// ChildrenNamed returns every child block with the given name, in source order.
func (b *Block) ChildrenNamed(name string) []*Block {
	var out []*Block
	for _, c := range b.Children {
		if strings.EqualFold(c.Name, name) {
			out = append(out, c)
		}
	}
	return out
}

// Clone returns a deep copy of b.
func (b *Block) Clone() *Block {
	if b == nil {
		return nil
	}
	out := &Block{Name: b.Name, Pos: b.Pos}
	if b.Pairs != nil {
		out.Pairs = append([]Pair(nil), b.Pairs...)
	}
	for _, c := range b.Children {
		out.Children = append(out.Children, c.Clone())
	}
	return out
}

// Walk calls fn for b and every descendant in depth-first pre-order.
// Returning false from fn skips that block's children.
func (b *Block) Walk(fn func(blk *Block, depth int) bool) {
	b.walk(fn, 0)
}

func (b *Block) walk(fn func(*Block, int) bool, depth int) {
	if !fn(b, depth) {
		return
	}
	for _, c := range b.Children {
		c.walk(fn, depth+1)
	}
}
