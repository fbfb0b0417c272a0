// Package scripting runs map lint rules written in Lua inside a sandboxed
// GopherLua VM. Rules see a read-only snapshot of each entity and report
// findings; they cannot touch the filesystem or the host process.
package scripting

import (
	"context"
	"errors"
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// DefaultInstructionLimit is the maximum number of Lua opcodes allowed per
// rule invocation when no override is configured.
const DefaultInstructionLimit = 100_000

// ErrBudgetExceeded wraps the VM error when a call ran out of instructions.
var ErrBudgetExceeded = errors.New("instruction limit exceeded")

// unsafeGlobals are removed after OpenBase.
var unsafeGlobals = []string{"dofile", "loadfile", "load", "loadstring", "collectgarbage", "require"}

// budget is a context whose Done channel closes once it has been polled
// more than n times. GopherLua polls Done once per opcode when a context is
// set, so the poll count is the instruction count. An LState runs on one
// goroutine, so the counter needs no synchronisation.
type budget struct {
	context.Context
	cancel   context.CancelFunc
	left     int
	exceeded bool
}

func newBudget(n int) *budget {
	ctx, cancel := context.WithCancel(context.Background())
	return &budget{Context: ctx, cancel: cancel, left: n}
}

func (b *budget) Done() <-chan struct{} {
	if !b.exceeded {
		b.left--
		if b.left < 0 {
			b.exceeded = true
			b.cancel()
		}
	}
	return b.Context.Done()
}

// NewSandboxedState returns a GopherLua state with only the base, table,
// string and math libraries, the unsafe base functions removed, and the vmf
// helper module registered. It carries no instruction limit; run every call
// through Limit.
//
// Postcondition: The caller owns the state and must Close it.
func NewSandboxedState() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, open := range []lua.LGFunction{lua.OpenBase, lua.OpenTable, lua.OpenString, lua.OpenMath} {
		open(L)
	}
	for _, name := range unsafeGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	RegisterModules(L)
	return L
}

// Limit runs fn with at most instLimit opcodes available to L and removes the
// limit afterwards, so every call starts with a full budget. When the budget
// runs out, the returned error wraps ErrBudgetExceeded.
//
// Precondition: instLimit >= 0; 0 uses DefaultInstructionLimit.
func Limit(L *lua.LState, instLimit int, fn func() error) error {
	if instLimit <= 0 {
		instLimit = DefaultInstructionLimit
	}
	b := newBudget(instLimit)
	defer b.cancel()
	L.SetContext(b)
	defer L.RemoveContext()

	err := fn()
	if err != nil && b.exceeded {
		return fmt.Errorf("%w after %d opcodes: %v", ErrBudgetExceeded, instLimit, err)
	}
	return err
}
