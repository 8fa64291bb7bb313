package mapping

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func coerce(t *testing.T, typ string, value any, view *View) any {
	c, err := parseCoercion(typ)
	require.NoError(t, err, typ)
	return c.Apply(value, view, "test")
}

func TestSimpleCoercions(t *testing.T) {
	require.Equal(t, "42", coerce(t, "text", 42, nil))
	require.Equal(t, `{"a":"b"}`, coerce(t, "text", map[string]any{"a": "b"}, nil))
	require.Equal(t, "raw", coerce(t, "text", []byte("raw"), nil))
	require.Equal(t, []byte("raw"), coerce(t, "binary", "raw", nil))
	require.Equal(t, 42, coerce(t, "int", "42", nil))
	require.Equal(t, -1, coerce(t, "int", "forty", nil))
	require.Equal(t, int64(42), coerce(t, "long", 42.0, nil))
	require.Equal(t, float32(1.5), coerce(t, "float", "1.5", nil))
	require.Equal(t, 1.5, coerce(t, "double", "1.5", nil))
	require.Equal(t, true, coerce(t, "boolean", "TRUE", nil))
	require.Equal(t, false, coerce(t, "boolean", "yes", nil))
	require.Nil(t, coerce(t, "int", nil, nil))
}

func TestB64Coercion(t *testing.T) {
	require.Equal(t, "aGVsbG8=", coerce(t, "b64", []byte("hello"), nil))
	require.Equal(t, []byte("hello"), coerce(t, "b64", "aGVsbG8=", nil))
	require.Equal(t, "%%%", coerce(t, "b64", "%%%", nil))
	require.Equal(t, 5, coerce(t, "b64", 5, nil))
}

func TestSubstringCoercion(t *testing.T) {
	require.Equal(t, "ell", coerce(t, "substring(1, 4)", "hello", nil))
	require.Equal(t, "llo", coerce(t, "substring(2)", "hello", nil))
	require.Equal(t, "hello", coerce(t, "substring(3, 2)", "hello", nil))
	require.Equal(t, "hello", coerce(t, "substring(0, 10)", "hello", nil))
	require.Equal(t, 12345, coerce(t, "substring(0, 2)", 12345, nil))
}

func TestLogicalCoercions(t *testing.T) {
	view := NewView(map[string]any{"model": map[string]any{"on": true, "off": false}})
	require.Equal(t, true, coerce(t, "and(model.on)", true, view))
	require.Equal(t, false, coerce(t, "and(model.off)", true, view))
	require.Equal(t, true, coerce(t, "or(model.off)", "true", view))
	require.Equal(t, false, coerce(t, "or(model.missing)", nil, view))
}

func TestBooleanMatchCoercion(t *testing.T) {
	require.Equal(t, true, coerce(t, "boolean(ok)", "ok", nil))
	require.Equal(t, false, coerce(t, "boolean(ok)", "failed", nil))
	require.Equal(t, false, coerce(t, "boolean(ok=false)", "ok", nil))
	require.Equal(t, true, coerce(t, "boolean(ok, false)", "failed", nil))
	require.Equal(t, true, coerce(t, "boolean(null)", nil, nil))
}

func TestCoercionSyntax(t *testing.T) {
	for _, bad := range []string{"unknown", "substring(1", "substring(1,2,3)", "substring()", "and(x)", "boolean()", "upper(x)"} {
		_, err := parseCoercion(bad)
		require.Error(t, err, bad)
	}
}
