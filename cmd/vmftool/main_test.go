package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const roomFixture = "../../internal/vmf/testdata/room.vmf"

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func writeMap(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestVersion(t *testing.T) {
	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "vmftool version "+version)
}

func TestParse_Fixture(t *testing.T) {
	out, _, err := run(t, "parse", roomFixture)
	require.NoError(t, err)
	assert.Contains(t, out, roomFixture)
	assert.Regexp(t, `entities\s+5\s+\(1 brush\)`, out)
	assert.Regexp(t, `solids\s+5\s+\(30 sides\)`, out)
	assert.Contains(t, out, "bounds")
}

func TestParse_ErrorReportQuotesSource(t *testing.T) {
	path := writeMap(t, "dup.vmf", "world\n{\n\t\"id\" \"1\"\n\t\"classname\" \"worldspawn\"\n}\nentity\n{\n\t\"id\" \"1\"\n\t\"classname\" \"info_null\"\n}\n")
	_, errOut, err := run(t, "parse", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1")
	assert.Contains(t, errOut, "ConsistencyError")
	assert.Contains(t, errOut, path+":")
	assert.Contains(t, errOut, "^")
}

func TestParse_MaxDepthFlag(t *testing.T) {
	path := writeMap(t, "deep.vmf", "a { b { c { } } }")
	_, _, err := run(t, "parse", path)
	require.NoError(t, err)

	_, errOut, err := run(t, "--max-depth", "2", "parse", path)
	require.Error(t, err)
	assert.Contains(t, errOut, "SyntaxError")
}

func TestParse_MissingFile(t *testing.T) {
	_, errOut, err := run(t, "parse", filepath.Join(t.TempDir(), "nope.vmf"))
	require.Error(t, err)
	assert.Contains(t, errOut, "nope.vmf")
}

func TestFmt_WriteThenCheck(t *testing.T) {
	data, err := os.ReadFile(roomFixture)
	require.NoError(t, err)
	path := writeMap(t, "room.vmf", string(data))

	out, _, err := run(t, "fmt", path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "versioninfo\n{\n"))

	_, _, err = run(t, "fmt", "-w", path)
	require.NoError(t, err)
	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, out, string(written))

	out, _, err = run(t, "fmt", "--check", path)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestFmt_CheckReportsUnformatted(t *testing.T) {
	path := writeMap(t, "loose.vmf", `world { "id" "1" "classname" "worldspawn" }`)
	out, _, err := run(t, "fmt", "--check", path)
	require.Error(t, err)
	assert.Contains(t, out, "needs formatting")
}

func TestFmt_FlagsExclusive(t *testing.T) {
	_, _, err := run(t, "fmt", "--check", "-w", roomFixture)
	assert.Error(t, err)
}

func TestQuery(t *testing.T) {
	out, _, err := run(t, "query", roomFixture, `classname == "light"`)
	require.NoError(t, err)
	assert.Contains(t, out, "11")
	assert.Contains(t, out, "room_light")

	out, _, err = run(t, "query", "--count", roomFixture, `connections > 0`)
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)

	_, _, err = run(t, "query", roomFixture, `nonsense ==`)
	assert.Error(t, err)
}

func TestLint(t *testing.T) {
	_, _, err := run(t, "lint", roomFixture)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no rule directory")

	rules := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(rules, "lights.lua"), []byte(`
		function lint_entity(e)
			if e.classname == "light" then return "light found" end
		end
	`), 0o644))
	out, _, err := run(t, "lint", "--rules", rules, roomFixture)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 finding(s)")
	assert.Contains(t, out, "lights: entity 11 (light): light found")

	// The shared fixture rules accept the room map.
	out, _, err = run(t, "lint", "--rules", "../../internal/scripting/testdata/rules", roomFixture)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestIngest(t *testing.T) {
	data, err := os.ReadFile(roomFixture)
	require.NoError(t, err)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "room.vmf"), data, 0o644))
	summaries := filepath.Join(t.TempDir(), "out")

	out, _, err := run(t, "ingest", "--out", summaries, dir)
	require.NoError(t, err)
	assert.Contains(t, out, "1 ok, 0 failed")

	entries, err := os.ReadDir(summaries)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "room-"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.vmf"), []byte("world {"), 0o644))
	out, _, err = run(t, "ingest", dir)
	require.Error(t, err)
	assert.Contains(t, out, "FAIL")
	assert.Contains(t, out, "1 ok, 1 failed")
}

func TestConfigFlag(t *testing.T) {
	_, _, err := run(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "parse", roomFixture)
	assert.Error(t, err)

	cfgPath := writeMap(t, "vmftool.yaml", "parser:\n  max_depth: 2\n")
	_, _, err = run(t, "--config", cfgPath, "parse", roomFixture)
	assert.Error(t, err, "room fixture nests deeper than 2")
}
