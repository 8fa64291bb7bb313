package mapping

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePath(t *testing.T) {
	p, err := ParsePath("model.items[2].name")
	require.NoError(t, err)
	require.Equal(t, "model", p.Namespace())
	require.Equal(t, 3, p.Depth())
	require.Equal(t, "model.items[2].name", p.String())

	for _, bad := range []string{"", "a..b", "a[x]", "a[-1]", "[0]", "a]"} {
		_, err := ParsePath(bad)
		require.Error(t, err, bad)
	}
}

func TestView(t *testing.T) {
	for scenario, fn := range map[string]func(t *testing.T, v *View){
		"set creates intermediate maps": testViewSetNested,
		"set pads lists":                testViewSetList,
		"get reads foreign map types":   testViewGetStringMap,
		"remove leaf":                   testViewRemove,
		"nil values are absent":         testViewNilAbsent,
		"reload replaces content":       testViewReload,
	} {
		t.Run(scenario, func(t *testing.T) {
			fn(t, NewView(nil))
		})
	}
}

func testViewSetNested(t *testing.T, v *View) {
	v.Set(MustParsePath("model.user.name"), "peter")
	value, ok := v.Get(MustParsePath("model.user.name"))
	require.True(t, ok)
	require.Equal(t, "peter", value)

	user, ok := v.Get(MustParsePath("model.user"))
	require.True(t, ok)
	require.Equal(t, map[string]any{"name": "peter"}, user)
}

func testViewSetList(t *testing.T, v *View) {
	v.Set(MustParsePath("items[2].id"), 7)
	items, ok := v.Map()["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 3)
	require.Nil(t, items[0])

	value, ok := v.Get(MustParsePath("items[2].id"))
	require.True(t, ok)
	require.Equal(t, 7, value)
}

func testViewGetStringMap(t *testing.T, v *View) {
	v.Set(MustParsePath("header"), map[string]string{"content-type": "text/plain"})
	value, ok := v.Get(MustParsePath("header.content-type"))
	require.True(t, ok)
	require.Equal(t, "text/plain", value)
}

func testViewRemove(t *testing.T, v *View) {
	v.Set(MustParsePath("model.a"), 1)
	v.Set(MustParsePath("model.b"), 2)
	v.Remove(MustParsePath("model.a"))
	v.Remove(MustParsePath("model.missing.deep"))
	require.False(t, v.Exists(MustParsePath("model.a")))
	require.True(t, v.Exists(MustParsePath("model.b")))
}

func testViewNilAbsent(t *testing.T, v *View) {
	v.Set(MustParsePath("a"), nil)
	_, ok := v.Get(MustParsePath("a"))
	require.False(t, ok)
	_, ok = v.Get(MustParsePath("a.b.c"))
	require.False(t, ok)
}

func testViewReload(t *testing.T, v *View) {
	v.Set(MustParsePath("old"), true)
	v.Reload(map[string]any{"new": true})
	require.False(t, v.Exists(MustParsePath("old")))
	require.True(t, v.Exists(MustParsePath("new")))
}
