// Package query filters map entities with expr-lang boolean expressions.
package query

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/cory-johannsen/vmfkit/internal/vmf/document"
	"github.com/cory-johannsen/vmfkit/internal/vmf/schema"
)

// Vec is an entity origin as seen by expressions.
type Vec struct {
	X float64 `expr:"x"`
	Y float64 `expr:"y"`
	Z float64 `expr:"z"`
}

// Env is the environment one entity presents to an expression.
type Env struct {
	ID        int64  `expr:"id"`
	Classname string `expr:"classname"`
	// Origin is the zero vector when HasOrigin is false.
	Origin    Vec  `expr:"origin"`
	HasOrigin bool `expr:"has_origin"`
	// Props is keyed by lower-cased property name; missing keys read as "".
	Props       map[string]string `expr:"props"`
	Solids      int               `expr:"solids"`
	Connections int               `expr:"connections"`
	Hidden      bool              `expr:"hidden"`
}

// NewEnv builds the expression environment for e.
func NewEnv(e *schema.Entity) Env {
	env := Env{
		ID:          e.ID,
		Classname:   e.Classname,
		Props:       make(map[string]string, e.Properties.Len()),
		Solids:      len(e.Solids),
		Connections: len(e.Connections),
		Hidden:      e.Hidden,
	}
	if e.Origin != nil {
		env.Origin = Vec{X: e.Origin.X, Y: e.Origin.Y, Z: e.Origin.Z}
		env.HasOrigin = true
	}
	for _, k := range e.Properties.Keys {
		env.Props[strings.ToLower(k)] = e.Properties.Values[k]
	}
	return env
}

// Query is a compiled entity filter.
type Query struct {
	Source  string
	program *vm.Program
}

// Compile type-checks source against Env and requires a boolean result.
//
// Postcondition: returns a non-nil Query or a non-nil error.
func Compile(source string) (*Query, error) {
	if strings.TrimSpace(source) == "" {
		return nil, fmt.Errorf("query: empty expression")
	}
	program, err := expr.Compile(source, expr.Env(Env{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("query: compile %q: %w", source, err)
	}
	return &Query{Source: source, program: program}, nil
}

// Match reports whether e satisfies the query.
func (q *Query) Match(e *schema.Entity) (bool, error) {
	out, err := expr.Run(q.program, NewEnv(e))
	if err != nil {
		return false, fmt.Errorf("query: evaluating %q on entity %d: %w", q.Source, e.ID, err)
	}
	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("query: %q returned %T, expected bool", q.Source, out)
	}
	return b, nil
}

// Filter returns the entities of doc matching q, in source order.
// It stops at the first evaluation error.
func (q *Query) Filter(doc *document.MapDocument) ([]*schema.Entity, error) {
	var out []*schema.Entity
	for i := range doc.Entities {
		e := &doc.Entities[i]
		ok, err := q.Match(e)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, e)
		}
	}
	return out, nil
}
