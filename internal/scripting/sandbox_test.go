package scripting_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/vmfkit/internal/scripting"
)

func TestNewSandboxedState_UnsafeLibsNil(t *testing.T) {
	L := scripting.NewSandboxedState()
	require.NotNil(t, L)
	defer L.Close()
	for _, name := range []string{"os", "io", "debug", "package"} {
		assert.Equal(t, lua.LNil, L.GetGlobal(name), "expected %s to be nil", name)
	}
}

func TestNewSandboxedState_DangerousGlobalsNil(t *testing.T) {
	L := scripting.NewSandboxedState()
	require.NotNil(t, L)
	defer L.Close()
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "collectgarbage", "require"} {
		assert.Equal(t, lua.LNil, L.GetGlobal(name), "expected %s to be nil", name)
	}
}

func TestNewSandboxedState_SafeLibsAvailable(t *testing.T) {
	L := scripting.NewSandboxedState()
	require.NotNil(t, L)
	defer L.Close()
	err := L.DoString(`
		local x = math.sqrt(4)
		assert(x == 2.0, "math.sqrt failed")
		local s = string.upper("hello")
		assert(s == "HELLO", "string.upper failed")
		local t = {}
		table.insert(t, 1)
		assert(#t == 1, "table.insert failed")
	`)
	assert.NoError(t, err)
}

func TestNewSandboxedState_VMFModuleRegistered(t *testing.T) {
	L := scripting.NewSandboxedState()
	defer L.Close()
	assert.Equal(t, lua.LTTable, L.GetGlobal("vmf").Type())
}

func TestLimit_InstructionLimitExceeded(t *testing.T) {
	L := scripting.NewSandboxedState()
	defer L.Close()
	err := scripting.Limit(L, 10, func() error {
		return L.DoString(`while true do end`)
	})
	assert.ErrorIs(t, err, scripting.ErrBudgetExceeded)
}

func TestLimit_DefaultLimitNormalScriptRuns(t *testing.T) {
	L := scripting.NewSandboxedState()
	defer L.Close()
	err := scripting.Limit(L, 0, func() error {
		return L.DoString(`local x = 1 + 1`)
	})
	assert.NoError(t, err)
}

func TestLimit_BudgetIsPerCall(t *testing.T) {
	L := scripting.NewSandboxedState()
	defer L.Close()
	require.Error(t, scripting.Limit(L, 10, func() error {
		return L.DoString(`while true do end`)
	}))
	// A fresh budget lets the same state run again.
	assert.NoError(t, scripting.Limit(L, 1000, func() error {
		return L.DoString(`local y = 2 * 3`)
	}))
}

func TestLimit_ReturnsCallbackError(t *testing.T) {
	L := scripting.NewSandboxedState()
	defer L.Close()
	boom := errors.New("boom")
	err := scripting.Limit(L, 0, func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, scripting.ErrBudgetExceeded)
}

func TestProperty_InstructionLimitAlwaysErrors(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		limit := rapid.IntRange(1, 50).Draw(t, "limit")
		L := scripting.NewSandboxedState()
		defer L.Close()
		err := scripting.Limit(L, limit, func() error {
			return L.DoString(`while true do end`)
		})
		if !errors.Is(err, scripting.ErrBudgetExceeded) {
			t.Fatalf("limit=%d: want ErrBudgetExceeded, got %v", limit, err)
		}
	})
}
