package scripting_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/vmfkit/internal/scripting"
)

func runLua(t *testing.T, src string) {
	t.Helper()
	L := scripting.NewSandboxedState()
	defer L.Close()
	require.NoError(t, scripting.Limit(L, 0, func() error { return L.DoString(src) }))
}

func TestVMFNumbers(t *testing.T) {
	runLua(t, `
		local n = vmf.numbers("1 -2.5 3e2")
		assert(#n == 3, "count")
		assert(n[1] == 1 and n[2] == -2.5 and n[3] == 300, "values")
		assert(vmf.numbers("1 two 3") == nil, "non-numeric field")
		assert(#vmf.numbers("") == 0, "empty input")
	`)
}

func TestVMFVec(t *testing.T) {
	runLua(t, `
		local v = vmf.vec("64 -32 0.5")
		assert(v.x == 64 and v.y == -32 and v.z == 0.5, "components")
		assert(vmf.vec("1 2") == nil, "two fields")
		assert(vmf.vec("1 2 3 4") == nil, "four fields")
		assert(vmf.vec("a b c") == nil, "not numbers")
	`)
}

func TestVMFSplit(t *testing.T) {
	runLua(t, `
		local f = vmf.split("  tools/toolsnodraw   0.25 ")
		assert(#f == 2, "count")
		assert(f[1] == "tools/toolsnodraw" and f[2] == "0.25", "fields")
	`)
}

func TestVMFHelpersRejectNonString(t *testing.T) {
	L := scripting.NewSandboxedState()
	defer L.Close()
	err := scripting.Limit(L, 0, func() error { return L.DoString(`vmf.vec({})`) })
	assert.Error(t, err)
}
