package scripting_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/vmfkit/internal/scripting"
	"github.com/cory-johannsen/vmfkit/internal/vmf"
	"github.com/cory-johannsen/vmfkit/internal/vmf/document"
)

const lintMap = `
world
{
	"id" "1"
	"classname" "worldspawn"
	"mapversion" "3"
}
entity
{
	"id" "2"
	"classname" "light"
	"origin" "0 0 64"
	connections
	{
		"OnUser1" "door,Open,,0,-1"
	}
}
entity
{
	"id" "3"
	"classname" "info_player_start"
}
entity
{
	"id" "4"
	"classname" "prop_static"
	"origin" "20000 0 0"
}
entity
{
	"id" "5"
	"classname" "light"
	"targetname" "lamp"
	"origin" "8 8 8"
	connections
	{
		"OnUser1" "door,Close,,0,-1"
	}
}
`

func parseLintMap(t *testing.T) *document.MapDocument {
	t.Helper()
	doc, err := vmf.Parse(lintMap)
	require.NoError(t, err)
	return doc
}

func newLinter(t *testing.T, limit int) *scripting.Linter {
	t.Helper()
	l := scripting.NewLinter(zaptest.NewLogger(t), limit)
	t.Cleanup(l.Close)
	return l
}

func TestLinter_LoadDirAndCheck(t *testing.T) {
	l := newLinter(t, 0)
	require.NoError(t, l.LoadDir("testdata/rules"))
	assert.Equal(t, []string{"01_lights", "02_origin"}, l.Rules())

	got := l.Check(parseLintMap(t))
	want := []scripting.Finding{
		{EntityID: 2, Classname: "light", Rule: "01_lights", Message: "light has outputs but no targetname"},
		{EntityID: 0, Classname: "worldspawn", Rule: "02_origin", Message: "world has no skyname"},
		{EntityID: 3, Classname: "info_player_start", Rule: "02_origin", Message: "point entity has no origin"},
		{EntityID: 4, Classname: "prop_static", Rule: "02_origin", Message: "origin outside the grid"},
	}
	assert.Equal(t, want, got)
}

func TestLinter_LoadDirFailureRegistersNothing(t *testing.T) {
	l := newLinter(t, 0)
	err := l.LoadDir("testdata/broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "02_syntax")
	assert.Empty(t, l.Rules())
}

func TestLinter_LoadDirMissing(t *testing.T) {
	l := newLinter(t, 0)
	assert.Error(t, l.LoadDir("testdata/does-not-exist"))
}

func TestLinter_RuleWithoutHooksRejected(t *testing.T) {
	l := newLinter(t, 0)
	err := l.LoadString("empty", `local x = 1`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "defines neither")
}

func TestLinter_RuntimeErrorBecomesFinding(t *testing.T) {
	l := newLinter(t, 0)
	require.NoError(t, l.LoadString("crashy", `
		function lint_entity(e)
			if e.id == 3 then error("bad entity") end
		end
	`))
	got := l.Check(parseLintMap(t))
	require.Len(t, got, 1)
	assert.Equal(t, int64(3), got[0].EntityID)
	assert.Equal(t, "crashy", got[0].Rule)
	assert.Contains(t, got[0].Message, "bad entity")
}

func TestLinter_InstructionLimitBecomesFinding(t *testing.T) {
	l := newLinter(t, 50)
	require.NoError(t, l.LoadString("spin", `
		function lint_entity(e)
			while true do end
		end
	`))
	got := l.Check(parseLintMap(t))
	require.Len(t, got, 4)
	for _, f := range got {
		assert.Contains(t, f.Message, "rule error: instruction limit exceeded")
	}
}

func TestLinter_ReturnShapes(t *testing.T) {
	l := newLinter(t, 0)
	require.NoError(t, l.LoadString("shapes", `
		function lint_entity(e)
			if e.id == 2 then return {"a", "b"} end
			if e.id == 3 then return 42 end
			if e.id == 4 then return true end
			return false
		end
	`))
	got := l.Check(parseLintMap(t))
	msgs := make([]string, len(got))
	for i, f := range got {
		msgs[i] = f.Message
	}
	assert.Equal(t, []string{"a", "b", "rule returned unsupported number", "rule returned true without a message"}, msgs)
}

func TestLinter_EntityView(t *testing.T) {
	l := newLinter(t, 0)
	require.NoError(t, l.LoadString("view", `
		function lint_entity(e)
			if e.id ~= 5 then return nil end
			assert(e.classname == "light")
			assert(e.properties.targetname == "lamp")
			assert(e.properties.origin == "8 8 8")
			assert(e.origin.x == 8 and e.origin.y == 8 and e.origin.z == 8)
			assert(e.solids == 0 and e.hidden == false)
			local c = e.connections[1]
			assert(c.output == "OnUser1" and c.target == "door" and c.input == "Close")
			assert(c.delay == 0 and c.times == -1)
			return "seen"
		end
	`))
	got := l.Check(parseLintMap(t))
	require.Len(t, got, 1)
	assert.Equal(t, "seen", got[0].Message)
}

func TestLinter_ConcurrentCheck(t *testing.T) {
	l := newLinter(t, 0)
	require.NoError(t, l.LoadDir("testdata/rules"))
	doc := parseLintMap(t)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Len(t, l.Check(doc), 4)
		}()
	}
	wg.Wait()
}

func TestFinding_String(t *testing.T) {
	assert.Equal(t, "r: world: m", scripting.Finding{Rule: "r", Message: "m"}.String())
	assert.Equal(t, "r: entity 7 (light): m",
		scripting.Finding{EntityID: 7, Classname: "light", Rule: "r", Message: "m"}.String())
}
