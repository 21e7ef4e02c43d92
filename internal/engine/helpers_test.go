package engine

import (
	"io"
	"log/slog"
	"maps"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/livedb/internal/ir"
	"github.com/roach88/livedb/internal/observe"
	"github.com/roach88/livedb/internal/schema"
	"github.com/roach88/livedb/internal/testutil"
)

func kvoSchema() *ir.ObjectSchema {
	return schema.Object("KVOObject",
		schema.Field("pk", ir.KindInt64, schema.PrimaryKey()),
		schema.Field("ignored", ir.KindInt64, schema.Ignored()),
		schema.Field("boolCol", ir.KindBool),
		schema.Field("int8Col", ir.KindInt8, schema.Default(ir.Int8(1))),
		schema.Field("int16Col", ir.KindInt16, schema.Default(ir.Int16(2))),
		schema.Field("int32Col", ir.KindInt32, schema.Default(ir.Int32(3))),
		schema.Field("int64Col", ir.KindInt64, schema.Default(ir.Int64(4))),
		schema.Field("floatCol", ir.KindFloat32, schema.Default(ir.Float32(5))),
		schema.Field("doubleCol", ir.KindFloat64, schema.Default(ir.Float64(6))),
		schema.Field("stringCol", ir.KindString),
		schema.Field("binaryCol", ir.KindBytes),
		schema.Field("dateCol", ir.KindInstant),
		schema.Link("objectCol", "KVOObject"),
		schema.ListOf("arrayCol", "KVOObject"),
	)
}

// noteSchema has no primary key: notes are identified by a generated key.
func noteSchema() *ir.ObjectSchema {
	return schema.Object("Note",
		schema.Field("text", ir.KindString),
		schema.Link("about", "KVOObject"),
	)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	reg := schema.NewRegistry().MustRegister(kvoSchema(), noteSchema())
	base := []Option{WithLogger(discardLogger()), WithIDGenerator(testutil.NewFixedKeys("id"))}
	s, err := New(reg, append(base, opts...)...)
	require.NoError(t, err)
	return s
}

func newKVO(t *testing.T, s *Store, pk int64, init map[string]ir.Value) *Accessor {
	t.Helper()
	values := map[string]ir.Value{"pk": ir.Int64(pk)}
	maps.Copy(values, init)
	a, err := s.Create("KVOObject", values)
	require.NoError(t, err)
	return a
}

// addKVO begins a write transaction if needed and admits a new object.
func addKVO(t *testing.T, s *Store, pk int64, init map[string]ir.Value) *Accessor {
	t.Helper()
	if !s.InWriteTransaction() {
		require.NoError(t, s.BeginWrite())
	}
	a, err := s.Add(newKVO(t, s, pk, init))
	require.NoError(t, err)
	return a
}

type recorder struct {
	changes []observe.Change
}

func (r *recorder) fn(ch observe.Change) {
	r.changes = append(r.changes, ch)
}

func (r *recorder) reset() {
	r.changes = nil
}

func mustObserve(t *testing.T, a *Accessor, keyPath string, r *recorder) *observe.Subscription {
	t.Helper()
	sub, err := Observe(a, keyPath, r.fn)
	require.NoError(t, err)
	return sub
}

type setCase struct {
	prop     string
	old, new ir.Value
}

// scalarCases covers every tracked scalar property of KVOObject, starting
// from its default.
func scalarCases() []setCase {
	return []setCase{
		{"boolCol", ir.Bool(false), ir.Bool(true)},
		{"int8Col", ir.Int8(1), ir.Int8(10)},
		{"int16Col", ir.Int16(2), ir.Int16(10)},
		{"int32Col", ir.Int32(3), ir.Int32(10)},
		{"int64Col", ir.Int64(4), ir.Int64(10)},
		{"floatCol", ir.Float32(5), ir.Float32(10)},
		{"doubleCol", ir.Float64(6), ir.Float64(10)},
		{"stringCol", ir.String(""), ir.String("abc")},
		{"binaryCol", ir.Bytes{}, ir.Bytes("abc")},
		{"dateCol", ir.Epoch(), ir.Instant(time.Unix(1, 0).UTC())},
	}
}
