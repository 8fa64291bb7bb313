package mapping

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompileSources(t *testing.T) {
	rule, err := Compile(Input, "input.header.X-Trace -> header.trace")
	require.NoError(t, err)
	require.Equal(t, SourceNamespace, rule.Source.Kind)
	require.Equal(t, "input.header.x-trace", rule.Source.Path.String())
	require.Equal(t, TargetHeader, rule.Target.Kind)
	require.Equal(t, "trace", rule.Target.Key)

	rule, err = Compile(Output, "model.user:int -> output.header.user_id")
	require.NoError(t, err)
	require.Equal(t, "model.user", rule.Source.Path.String())
	require.Equal(t, CoerceInt, rule.Source.Coercion.Kind)

	constants := map[string]any{
		"text(hello world) -> x": "hello world",
		"int(12) -> x":           12,
		"long(12) -> x":          int64(12),
		"double(1.5) -> x":       1.5,
		"float(2) -> x":          float32(2),
		"boolean(TRUE) -> x":     true,
		"map(a=1, b=two) -> x":   map[string]any{"a": "1", "b": "two"},
	}
	for text, expected := range constants {
		rule, err := Compile(Input, text)
		require.NoError(t, err, text)
		require.Equal(t, SourceConstant, rule.Source.Kind, text)
		require.Equal(t, expected, rule.Source.Value, text)
	}

	rule, err = Compile(Input, "map(app.defaults) -> x")
	require.NoError(t, err)
	require.Equal(t, SourceConfig, rule.Source.Kind)
	require.Equal(t, "app.defaults", rule.Source.Ref)

	rule, err = Compile(Input, "file(text:/tmp/a.txt) -> x")
	require.NoError(t, err)
	require.Equal(t, SourceFile, rule.Source.Kind)
	require.Equal(t, "/tmp/a.txt", rule.Source.Ref)
	require.False(t, rule.Source.Binary)

	rule, err = Compile(Input, "classpath(/templates/a.json) -> x")
	require.NoError(t, err)
	require.Equal(t, SourceClasspath, rule.Source.Kind)
	require.True(t, rule.Source.Binary)
}

func TestCompileTargets(t *testing.T) {
	for text, kind := range map[string]TargetKind{
		"input.body -> *":              TargetAll,
		"input.header -> header":       TargetHeaders,
		"input.body.a -> header.a":     TargetHeader,
		"input.body.a -> ext:counter":  TargetExt,
		"input.body.a -> file(/tmp/x)": TargetFile,
		"input.body.a -> model.a":      TargetPath,
		"input.body.a -> b.c":          TargetPath,
	} {
		rule, err := Compile(Input, text)
		require.NoError(t, err, text)
		require.Equal(t, kind, rule.Target.Kind, text)
	}

	rule, err := Compile(Output, "result.code -> model.code:text")
	require.NoError(t, err)
	require.True(t, rule.Target.IsModel())
	require.Equal(t, CoerceText, rule.Target.Coercion.Kind)

	rule, err = Compile(Output, "status -> output.status")
	require.NoError(t, err)
	require.True(t, rule.Target.IsOutputStatus())

	rule, err = Compile(Output, "header -> output.header")
	require.NoError(t, err)
	require.True(t, rule.Target.IsOutputHeader())

	rule, err = Compile(Output, "result -> header.x")
	require.NoError(t, err)
	require.Equal(t, TargetPath, rule.Target.Kind)
}

func TestCompileErrors(t *testing.T) {
	for _, text := range []string{
		"no separator",
		" -> x",
		"x -> ",
		"unknown.key -> x",
		"text(missing -> x",
		"result.a -> x",
		"input.body -> ext:",
		"model.a:weird -> x",
		"model.a:substring(1 -> x",
		"model.a:and(input.b) -> x",
		"model.a:boolean(a,b,c) -> x",
		"input.a -> model.b:unknown",
	} {
		_, err := Compile(Input, text)
		require.Error(t, err, text)
	}
	_, err := Compile(Output, "result -> *")
	require.Error(t, err)
	_, err = Compile(Output, "error.code -> x")
	require.Error(t, err)
}

func TestCompileAllSkipsInvalid(t *testing.T) {
	rules := CompileAll(Input, "demo", []string{"input.a -> a", "bad", "model.x -> b"})
	require.Len(t, rules, 2)
	require.Equal(t, "model.x -> b", rules[1].String())
}
