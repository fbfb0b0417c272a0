package scripting

import (
	"strconv"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// RegisterModules registers the vmf.* helper table into L:
//
//	vmf.numbers(s)  -> table of numbers, or nil when any field is not numeric
//	vmf.vec(s)      -> {x=, y=, z=}, or nil unless s holds exactly three numbers
//	vmf.split(s)    -> table of whitespace-separated fields
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: vmf global is defined in L.
func RegisterModules(L *lua.LState) {
	mod := L.NewTable()
	L.SetFuncs(mod, map[string]lua.LGFunction{
		"numbers": luaNumbers,
		"vec":     luaVec,
		"split":   luaSplit,
	})
	L.SetGlobal("vmf", mod)
}

func parseNumbers(s string) ([]float64, bool) {
	fields := strings.Fields(s)
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, false
		}
		out = append(out, v)
	}
	return out, true
}

func luaNumbers(L *lua.LState) int {
	nums, ok := parseNumbers(L.CheckString(1))
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	t := L.CreateTable(len(nums), 0)
	for _, n := range nums {
		t.Append(lua.LNumber(n))
	}
	L.Push(t)
	return 1
}

func luaVec(L *lua.LState) int {
	nums, ok := parseNumbers(L.CheckString(1))
	if !ok || len(nums) != 3 {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(vecTable(L, nums[0], nums[1], nums[2]))
	return 1
}

func luaSplit(L *lua.LState) int {
	fields := strings.Fields(L.CheckString(1))
	t := L.CreateTable(len(fields), 0)
	for _, f := range fields {
		t.Append(lua.LString(f))
	}
	L.Push(t)
	return 1
}

func vecTable(L *lua.LState, x, y, z float64) *lua.LTable {
	t := L.CreateTable(0, 3)
	t.RawSetString("x", lua.LNumber(x))
	t.RawSetString("y", lua.LNumber(y))
	t.RawSetString("z", lua.LNumber(z))
	return t
}
