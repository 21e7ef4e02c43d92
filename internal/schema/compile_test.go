package schema

import (
	"errors"
	"testing"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/livedb/internal/ir"
)

func TestCompileModelBasic(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		model: Person: {
			primaryKey: "id"
			ignored: ["scratch"]
			properties: {
				id:      {type: "int64"}
				name:    {type: "string", default: "anon"}
				scratch: {type: "int"}
				ratio:   {type: "float", default: 5}
				born:    {type: "date", default: "1970-01-01T00:00:10Z"}
				friend:  {type: "object", target: "Person"}
				all:     {type: "list", target: "Person", default: []}
			}
		}
	`)
	require.NoError(t, v.Err())

	s, err := CompileModel(v.LookupPath(cue.ParsePath("model.Person")))
	require.NoError(t, err)

	assert.Equal(t, "Person", s.Name)
	require.Len(t, s.Properties, 7)

	names := make([]string, len(s.Properties))
	for i, p := range s.Properties {
		names[i] = p.Name
	}
	assert.Equal(t, []string{"id", "name", "scratch", "ratio", "born", "friend", "all"}, names)

	pk, ok := s.PrimaryKey()
	require.True(t, ok)
	assert.Equal(t, "id", pk.Name)
	assert.Equal(t, ir.KindInt64, pk.Kind)

	scratch, _ := s.Property("scratch")
	assert.True(t, scratch.Ignored)
	assert.Equal(t, ir.KindInt64, scratch.Kind)

	name, _ := s.Property("name")
	assert.Equal(t, ir.String("anon"), name.Default)

	ratio, _ := s.Property("ratio")
	assert.Equal(t, ir.KindFloat32, ratio.Kind)
	assert.Equal(t, ir.Float32(5), ratio.Default)

	born, _ := s.Property("born")
	assert.True(t, ir.Equal(ir.Instant(time.Unix(10, 0)), born.Default))

	friend, _ := s.Property("friend")
	assert.Equal(t, ir.KindReference, friend.Kind)
	assert.Equal(t, "Person", friend.Target)
	assert.Nil(t, friend.Default)

	all, _ := s.Property("all")
	assert.Equal(t, ir.KindList, all.Kind)
	assert.Nil(t, all.Default)

	assert.Empty(t, Validate(s))
}

func TestCompileModelErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		field   string
		message string
	}{
		{
			name:    "missing properties",
			src:     `model: M: { primaryKey: "id" }`,
			field:   "properties",
			message: "required",
		},
		{
			name:    "unknown type",
			src:     `model: M: properties: x: {type: "decimal"}`,
			field:   "type",
			message: "decimal",
		},
		{
			name:    "missing type",
			src:     `model: M: properties: x: {target: "M"}`,
			field:   "x.type",
			message: "required",
		},
		{
			name:    "undeclared primary key",
			src:     `model: M: { primaryKey: "nope", properties: x: {type: "int"} }`,
			field:   "primaryKey",
			message: "nope",
		},
		{
			name:    "undeclared ignored property",
			src:     `model: M: { ignored: ["nope"], properties: x: {type: "int"} }`,
			field:   "ignored",
			message: "nope",
		},
		{
			name:    "link default",
			src:     `model: M: properties: x: {type: "object", target: "M", default: 3}`,
			field:   "x.default",
			message: "null",
		},
		{
			name:    "default out of range",
			src:     `model: M: properties: x: {type: "int8", default: 300}`,
			field:   "x.default",
			message: "overflows",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileSource("test.cue", tt.src)
			require.Error(t, err)

			var ce *CompileError
			require.True(t, errors.As(err, &ce), "expected CompileError, got %T", err)
			assert.Equal(t, tt.field, ce.Field)
			assert.Contains(t, ce.Message, tt.message)
		})
	}
}

func TestCompileSourceSyntaxErrorHasPosition(t *testing.T) {
	_, err := CompileSource("broken.cue", "model: {")
	require.Error(t, err)

	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	assert.True(t, ce.Pos.IsValid())
	assert.Contains(t, err.Error(), "broken.cue")
}

func TestCompileSourceMultipleModels(t *testing.T) {
	models, err := CompileSource("two.cue", `
		model: A: properties: a: {type: "bool"}
		model: B: properties: b: {type: "bytes", default: "hi"}
	`)
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "A", models[0].Name)
	assert.Equal(t, "B", models[1].Name)
	assert.Equal(t, ir.Bytes("hi"), models[1].Properties[0].Default)
}

func TestCompileSourceWithoutModels(t *testing.T) {
	models, err := CompileSource("none.cue", `other: 1`)
	require.NoError(t, err)
	assert.Empty(t, models)
}
