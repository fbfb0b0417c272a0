package schema

import (
	"strings"

	"github.com/cory-johannsen/vmfkit/internal/vmf/keyvalues"
	"github.com/cory-johannsen/vmfkit/internal/vmf/vmferr"
)

// fields reads the pairs of one block, remembering which were consumed so
// the rest can be carried as Extra. The first failure sticks in err and
// turns every later read into a no-op.
type fields struct {
	kind string
	blk  *keyvalues.Block
	used []bool
	err  error
}

func newFields(kind string, blk *keyvalues.Block) *fields {
	return &fields{kind: kind, blk: blk, used: make([]bool, len(blk.Pairs))}
}

func (f *fields) lookup(key string) (keyvalues.Pair, bool) {
	for i, p := range f.blk.Pairs {
		if !f.used[i] && strings.EqualFold(p.Key, key) {
			f.used[i] = true
			return p, true
		}
	}
	return keyvalues.Pair{}, false
}

func (f *fields) lookupAll(key string) []keyvalues.Pair {
	var out []keyvalues.Pair
	for i, p := range f.blk.Pairs {
		if !f.used[i] && strings.EqualFold(p.Key, key) {
			f.used[i] = true
			out = append(out, p)
		}
	}
	return out
}

func (f *fields) fail(err error) {
	if f.err == nil {
		f.err = err
	}
}

func (f *fields) badFormat(p keyvalues.Pair, err error) {
	f.fail(vmferr.BadFormat(f.kind, p.Key, p.Value, p.Pos, err.Error()))
}

// str returns the value under key, or def when absent.
func (f *fields) str(key, def string) string {
	if f.err != nil {
		return def
	}
	if p, ok := f.lookup(key); ok {
		return p.Value
	}
	return def
}

// requiredStr fails with a SchemaError when key is absent or empty.
func (f *fields) requiredStr(key string) string {
	if f.err != nil {
		return ""
	}
	p, ok := f.lookup(key)
	if !ok || p.Value == "" {
		f.fail(vmferr.MissingField(f.kind, key, f.blk.Pos))
		return ""
	}
	return p.Value
}

// id parses an identifier; optional ids default to zero.
func (f *fields) id(key string, required bool) int64 {
	if f.err != nil {
		return 0
	}
	p, ok := f.lookup(key)
	if !ok {
		if required {
			f.fail(vmferr.MissingField(f.kind, key, f.blk.Pos))
		}
		return 0
	}
	n, err := parseID(p.Value)
	if err != nil {
		f.badFormat(p, err)
		return 0
	}
	return n
}

func (f *fields) integer(key string, def int) int {
	if f.err != nil {
		return def
	}
	p, ok := f.lookup(key)
	if !ok {
		return def
	}
	n, err := parseInteger(p.Value, 32)
	if err != nil {
		f.badFormat(p, err)
		return def
	}
	return int(n)
}

func (f *fields) unsigned32(key string) uint32 {
	if f.err != nil {
		return 0
	}
	p, ok := f.lookup(key)
	if !ok {
		return 0
	}
	n, err := parseUnsigned(p.Value, 32)
	if err != nil {
		f.badFormat(p, err)
		return 0
	}
	return uint32(n)
}

func (f *fields) decimal(key string, def float64) float64 {
	if f.err != nil {
		return def
	}
	p, ok := f.lookup(key)
	if !ok {
		return def
	}
	v, err := parseDecimal(p.Value)
	if err != nil {
		f.badFormat(p, err)
		return def
	}
	return v
}

func (f *fields) boolean(key string, def bool) bool {
	if f.err != nil {
		return def
	}
	p, ok := f.lookup(key)
	if !ok {
		return def
	}
	v, err := parseBool(p.Value)
	if err != nil {
		f.badFormat(p, err)
		return def
	}
	return v
}

func (f *fields) color(key string) (Color, bool) {
	if f.err != nil {
		return Color{}, false
	}
	p, ok := f.lookup(key)
	if !ok {
		return Color{}, false
	}
	c, err := parseColor(p.Value)
	if err != nil {
		f.badFormat(p, err)
		return Color{}, false
	}
	return c, true
}

// extra returns the pairs no read has consumed, in source order.
func (f *fields) extra() []keyvalues.Pair {
	var out []keyvalues.Pair
	for i, p := range f.blk.Pairs {
		if !f.used[i] {
			out = append(out, p)
		}
	}
	return out
}
