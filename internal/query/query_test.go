package query_test

import (
	"os"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/vmfkit/internal/query"
	"github.com/cory-johannsen/vmfkit/internal/vmf"
	"github.com/cory-johannsen/vmfkit/internal/vmf/document"
	"github.com/cory-johannsen/vmfkit/internal/vmf/schema"
)

func loadRoom(t *testing.T) *document.MapDocument {
	t.Helper()
	text, err := os.ReadFile("../vmf/testdata/room.vmf")
	require.NoError(t, err)
	doc, err := vmf.Parse(string(text))
	require.NoError(t, err)
	return doc
}

func ids(es []*schema.Entity) []int64 {
	out := make([]int64, len(es))
	for i, e := range es {
		out[i] = e.ID
	}
	return out
}

func TestFilter(t *testing.T) {
	doc := loadRoom(t)
	cases := []struct {
		expr string
		want []int64
	}{
		{`classname == "light"`, []int64{11}},
		{`solids > 0`, []int64{12}},
		{`connections > 0`, []int64{12, 14}},
		{`hidden`, []int64{15}},
		{`origin.z > 50`, []int64{11, 12}},
		{`props["targetname"] startsWith "door"`, []int64{12, 14}},
		{`props["TargetName"] == ""`, []int64{10, 11, 12, 14, 15}},
		{`has_origin && origin.x == 0 && origin.y == 0`, []int64{11, 15}},
		{`classname matches "^info_"`, []int64{10, 15}},
		{`false`, nil},
	}
	for _, tc := range cases {
		t.Run(tc.expr, func(t *testing.T) {
			q, err := query.Compile(tc.expr)
			require.NoError(t, err)
			got, err := q.Filter(doc)
			require.NoError(t, err)
			if tc.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tc.want, ids(got))
		})
	}
}

func TestCompileErrors(t *testing.T) {
	for _, src := range []string{
		"",
		"   ",
		`classname ==`,
		`unknown_field == 1`,
		`id + 1`,
		`classname`,
	} {
		t.Run(src, func(t *testing.T) {
			q, err := query.Compile(src)
			assert.Error(t, err)
			assert.Nil(t, q)
		})
	}
}

func TestRuntimeErrorReturned(t *testing.T) {
	doc := loadRoom(t)
	q, err := query.Compile(`int(props["targetname"]) > 0`)
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		_, err = q.Filter(doc)
	})
	assert.Error(t, err)
}

func TestNewEnv(t *testing.T) {
	doc := loadRoom(t)
	e, ok := doc.EntityByID(11)
	require.True(t, ok)
	env := query.NewEnv(e)
	assert.Equal(t, int64(11), env.ID)
	assert.Equal(t, "light", env.Classname)
	assert.True(t, env.HasOrigin)
	assert.Equal(t, query.Vec{X: 0, Y: 0, Z: 112}, env.Origin)
	assert.Equal(t, "room_light", env.Props["targetname"])
	assert.Equal(t, "255 240 200 300", env.Props["_light"])
	assert.Equal(t, "-1 -1 -1 1", env.Props["_lighthdr"])
}

func TestPropertyIDThreshold(t *testing.T) {
	doc := loadRoom(t)
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.Int64Range(0, 20).Draw(t, "n")
		q, err := query.Compile("id >= " + strconv.FormatInt(n, 10))
		if err != nil {
			t.Fatalf("compile: %v", err)
		}
		got, err := q.Filter(doc)
		if err != nil {
			t.Fatalf("filter: %v", err)
		}
		var want []int64
		for _, e := range doc.Entities {
			if e.ID >= n {
				want = append(want, e.ID)
			}
		}
		if len(want) != len(got) {
			t.Fatalf("id >= %d: got %v, want %v", n, ids(got), want)
		}
		for i := range want {
			if want[i] != got[i].ID {
				t.Fatalf("id >= %d: got %v, want %v", n, ids(got), want)
			}
		}
	})
}
