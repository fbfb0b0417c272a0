package keyvalues

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
)

// ErrLineBreak is returned by Encode when a block name, key or value contains
// a newline, which quoted strings cannot carry.
var ErrLineBreak = errors.New("text contains a line break")

// Encode writes root in the canonical layout map editors emit: block names
// bare on their own line, braces on their own lines, one tab per nesting level,
// quoted keys and values, pairs before child blocks.
//
// A root with an empty Name is written as its children only.
//
// Postcondition: Parse(output) yields a tree structurally equal to root. A
// tree holding a newline in any name, key or value is rejected with
// ErrLineBreak before anything is written.
func Encode(w io.Writer, root *Block) error {
	if err := checkLineBreaks(root, root.Name == ""); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	if root.Name == "" {
		for _, c := range root.Children {
			writeBlock(bw, c, 0)
		}
	} else {
		writeBlock(bw, root, 0)
	}
	return bw.Flush()
}

func checkLineBreaks(b *Block, synthetic bool) error {
	if !synthetic && strings.Contains(b.Name, "\n") {
		return fmt.Errorf("keyvalues: block name %q: %w", b.Name, ErrLineBreak)
	}
	for _, p := range b.Pairs {
		if strings.Contains(p.Key, "\n") || strings.Contains(p.Value, "\n") {
			return fmt.Errorf("keyvalues: pair %q in block %q: %w", p.Key, b.Name, ErrLineBreak)
		}
	}
	for _, c := range b.Children {
		if err := checkLineBreaks(c, false); err != nil {
			return err
		}
	}
	return nil
}

// String returns the canonical text of b, or "" when Encode rejects it.
func (b *Block) String() string {
	var sb strings.Builder
	_ = Encode(&sb, b)
	return sb.String()
}

func writeBlock(w *bufio.Writer, b *Block, depth int) {
	indent := strings.Repeat("\t", depth)
	w.WriteString(indent)
	w.WriteString(blockName(b.Name))
	w.WriteString("\n")
	w.WriteString(indent)
	w.WriteString("{\n")
	for _, p := range b.Pairs {
		w.WriteString(indent)
		w.WriteString("\t")
		w.WriteString(Quote(p.Key))
		w.WriteString(" ")
		w.WriteString(Quote(p.Value))
		w.WriteString("\n")
	}
	for _, c := range b.Children {
		writeBlock(w, c, depth+1)
	}
	w.WriteString(indent)
	w.WriteString("}\n")
}

// Quote wraps s in double quotes, escaping backslashes and quotes.
func Quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

// blockName leaves ordinary identifiers bare and quotes anything the lexer
// would otherwise split or misread.
func blockName(name string) string {
	if name == "" || strings.Contains(name, "//") {
		return Quote(name)
	}
	for _, r := range name {
		if unicode.IsSpace(r) || r == '{' || r == '}' || r == '"' {
			return Quote(name)
		}
	}
	return name
}
