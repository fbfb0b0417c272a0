package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/vmfkit/internal/vmf/document"
	"github.com/cory-johannsen/vmfkit/internal/vmf/schema"
)

// Hook names a rule file may define.
const (
	EntityHook = "lint_entity"
	WorldHook  = "lint_world"
)

// Finding is one problem reported by a lint rule.
type Finding struct {
	// EntityID is zero for findings about the world.
	EntityID  int64  `json:"entity_id" yaml:"entity_id"`
	Classname string `json:"classname" yaml:"classname"`
	Rule      string `json:"rule" yaml:"rule"`
	Message   string `json:"message" yaml:"message"`
}

func (f Finding) String() string {
	if f.EntityID == 0 {
		return fmt.Sprintf("%s: world: %s", f.Rule, f.Message)
	}
	return fmt.Sprintf("%s: entity %d (%s): %s", f.Rule, f.EntityID, f.Classname, f.Message)
}

type rule struct {
	name string
	L    *lua.LState
}

// Linter owns one sandboxed VM per rule.
//
// Linter is safe for concurrent Check calls; they are serialized because each
// LState is single-threaded.
type Linter struct {
	mu        sync.Mutex
	rules     []rule
	instLimit int
	logger    *zap.Logger
}

// NewLinter creates a Linter with no rules loaded.
//
// Precondition: logger must be non-nil; instLimit >= 0 (0 uses DefaultInstructionLimit).
func NewLinter(logger *zap.Logger, instLimit int) *Linter {
	return &Linter{instLimit: instLimit, logger: logger}
}

// LoadDir loads every *.lua file in dir as a rule named after the file,
// in lexicographic order.
//
// Postcondition: on error no rule from dir is registered.
func (l *Linter) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("scripting: reading rule dir %q: %w", dir, err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, e.Name())
		}
	}
	sort.Strings(luaFiles)

	loaded := make([]rule, 0, len(luaFiles))
	for _, name := range luaFiles {
		src, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			closeRules(loaded)
			return fmt.Errorf("scripting: reading rule %q: %w", name, err)
		}
		r, err := l.compile(strings.TrimSuffix(name, ".lua"), string(src))
		if err != nil {
			closeRules(loaded)
			return err
		}
		loaded = append(loaded, r)
	}

	l.mu.Lock()
	l.rules = append(l.rules, loaded...)
	l.mu.Unlock()
	l.logger.Info("lint rules loaded", zap.String("dir", dir), zap.Int("count", len(loaded)))
	return nil
}

// LoadString registers src as a rule called name.
func (l *Linter) LoadString(name, src string) error {
	r, err := l.compile(name, src)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.rules = append(l.rules, r)
	l.mu.Unlock()
	return nil
}

func (l *Linter) compile(name, src string) (rule, error) {
	L := NewSandboxedState()
	err := Limit(L, l.instLimit, func() error { return L.DoString(src) })
	if err != nil {
		L.Close()
		return rule{}, fmt.Errorf("scripting: loading rule %q: %w", name, err)
	}
	if L.GetGlobal(EntityHook) == lua.LNil && L.GetGlobal(WorldHook) == lua.LNil {
		L.Close()
		return rule{}, fmt.Errorf("scripting: rule %q defines neither %s nor %s", name, EntityHook, WorldHook)
	}
	return rule{name: name, L: L}, nil
}

// Rules returns the loaded rule names in load order.
func (l *Linter) Rules() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	names := make([]string, len(l.rules))
	for i, r := range l.rules {
		names[i] = r.name
	}
	return names
}

// Check runs every rule against the world and each entity of doc.
// Results are ordered by rule, then world before entities in source order.
//
// Postcondition: Lua runtime errors and instruction-limit overruns are
// reported as findings; Check never panics on rule misbehaviour.
func (l *Linter) Check(doc *document.MapDocument) []Finding {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Finding
	for _, r := range l.rules {
		if fn := r.L.GetGlobal(WorldHook); fn != lua.LNil {
			ret, err := l.call(r, fn, worldTable(r.L, doc.World))
			out = append(out, l.collect(r, 0, doc.World.Classname, ret, err)...)
		}
		fn := r.L.GetGlobal(EntityHook)
		if fn == lua.LNil {
			continue
		}
		for i := range doc.Entities {
			e := &doc.Entities[i]
			ret, err := l.call(r, fn, entityTable(r.L, e))
			out = append(out, l.collect(r, e.ID, e.Classname, ret, err)...)
		}
	}
	return out
}

func (l *Linter) call(r rule, fn lua.LValue, arg lua.LValue) (lua.LValue, error) {
	var ret lua.LValue = lua.LNil
	err := Limit(r.L, l.instLimit, func() error {
		if err := r.L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, arg); err != nil {
			return err
		}
		ret = r.L.Get(-1)
		r.L.Pop(1)
		return nil
	})
	return ret, err
}

func (l *Linter) collect(r rule, id int64, classname string, ret lua.LValue, err error) []Finding {
	mk := func(msg string) Finding {
		return Finding{EntityID: id, Classname: classname, Rule: r.name, Message: msg}
	}
	if err != nil {
		l.logger.Warn("scripting: Lua runtime error",
			zap.String("rule", r.name),
			zap.Int64("entity", id),
			zap.Error(err),
		)
		return []Finding{mk("rule error: " + err.Error())}
	}
	switch v := ret.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		if !bool(v) {
			return nil
		}
		return []Finding{mk("rule returned true without a message")}
	case lua.LString:
		return []Finding{mk(string(v))}
	case *lua.LTable:
		var out []Finding
		v.ForEach(func(_, val lua.LValue) {
			out = append(out, mk(lua.LVAsString(val)))
		})
		return out
	default:
		return []Finding{mk(fmt.Sprintf("rule returned unsupported %s", ret.Type()))}
	}
}

// Close releases every rule VM.
func (l *Linter) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	closeRules(l.rules)
	l.rules = nil
}

func closeRules(rules []rule) {
	for _, r := range rules {
		r.L.Close()
	}
}

func propertiesTable(L *lua.LState, props schema.Properties) *lua.LTable {
	t := L.CreateTable(0, props.Len())
	for _, k := range props.Keys {
		t.RawSetString(k, lua.LString(props.Values[k]))
	}
	return t
}

func entityTable(L *lua.LState, e *schema.Entity) *lua.LTable {
	t := L.CreateTable(0, 8)
	t.RawSetString("id", lua.LNumber(e.ID))
	t.RawSetString("classname", lua.LString(e.Classname))
	if e.Origin != nil {
		t.RawSetString("origin", vecTable(L, e.Origin.X, e.Origin.Y, e.Origin.Z))
	}
	t.RawSetString("properties", propertiesTable(L, e.Properties))
	t.RawSetString("solids", lua.LNumber(len(e.Solids)))
	t.RawSetString("hidden", lua.LBool(e.Hidden))

	conns := L.CreateTable(len(e.Connections), 0)
	for _, c := range e.Connections {
		ct := L.CreateTable(0, 6)
		ct.RawSetString("output", lua.LString(c.Output))
		ct.RawSetString("target", lua.LString(c.Target))
		ct.RawSetString("input", lua.LString(c.Input))
		ct.RawSetString("param", lua.LString(c.Param))
		ct.RawSetString("delay", lua.LNumber(c.Delay))
		ct.RawSetString("times", lua.LNumber(c.Times))
		conns.Append(ct)
	}
	t.RawSetString("connections", conns)
	return t
}

func worldTable(L *lua.LState, w *schema.World) *lua.LTable {
	t := L.CreateTable(0, 4)
	t.RawSetString("id", lua.LNumber(w.ID))
	t.RawSetString("classname", lua.LString(w.Classname))
	t.RawSetString("properties", propertiesTable(L, w.Properties))
	t.RawSetString("solids", lua.LNumber(len(w.Solids)))
	return t
}
