package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/livedb/internal/ir"
)

func TestLoad_EmptyStore(t *testing.T) {
	s := createTestStore(t)
	objects, seq, err := s.Load(t.Context(), testRegistry().Schemas())
	require.NoError(t, err)
	assert.NotNil(t, objects)
	assert.Empty(t, objects)
	assert.Equal(t, int64(0), seq)
}

func TestLoad_RoundTrip(t *testing.T) {
	for _, driver := range Drivers() {
		t.Run(driver, func(t *testing.T) {
			s := createTestStoreWithDriver(t, driver)
			ctx := t.Context()

			linked := item(1, "a")
			linked.Values["next"] = ir.NewRef("Item", ir.Int32(2))
			linked.Values["parts"] = ir.List{ir.NewRef("Item", ir.Int32(2)), ir.NewRef("Item", ir.Int32(1))}
			tag := ir.StoredObject{Type: "Tag", Key: ir.String("t"), Values: map[string]ir.Value{"label": ir.String("x")}}

			require.NoError(t, s.Commit(ctx, commitRecord(1, linked, item(2, "b"))))
			require.NoError(t, s.Commit(ctx, commitRecord(2, tag)))

			objects, seq, err := s.Load(ctx, testRegistry().Schemas())
			require.NoError(t, err)
			assert.Equal(t, int64(2), seq)
			require.Len(t, objects, 3)

			got := objects[0]
			assert.Equal(t, "Item", got.Type)
			assert.Equal(t, ir.Int32(1), got.Key, "keys come back as the primary key kind")
			for name, want := range linked.Values {
				assert.True(t, ir.Equal(want, got.Values[name]), "%s: want %s, got %s", name, ir.Format(want), ir.Format(got.Values[name]))
			}
			assert.NotContains(t, got.Values, "scratch")

			assert.Equal(t, "Tag", objects[2].Type)
			assert.Equal(t, ir.String("t"), objects[2].Key)
		})
	}
}

func TestLoad_SkipsUnknownTypes(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()
	require.NoError(t, s.Commit(ctx, commitRecord(1, item(1, "a"), ir.StoredObject{
		Type: "Tag", Key: ir.String("t"), Values: map[string]ir.Value{"label": ir.String("x")},
	})))

	objects, seq, err := s.Load(ctx, []*ir.ObjectSchema{tagSchema()})
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)
	require.Len(t, objects, 1)
	assert.Equal(t, "Tag", objects[0].Type)
}

func TestLoad_MissingPropertiesTakeDefaults(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()
	require.NoError(t, s.Commit(ctx, commitRecord(1, ir.StoredObject{
		Type:   "Item",
		Key:    ir.Int32(1),
		Values: map[string]ir.Value{"id": ir.Int32(1)},
	})))

	objects, _, err := s.Load(ctx, []*ir.ObjectSchema{itemSchema()})
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, ir.String(""), objects[0].Values["name"])
	assert.Equal(t, ir.Null{}, objects[0].Values["next"])
	assert.Equal(t, ir.List{}, objects[0].Values["parts"])
}

func TestLoad_DigestMismatch(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()
	require.NoError(t, s.Commit(ctx, commitRecord(1, item(1, "a"))))

	_, err := s.db.ExecContext(ctx, `UPDATE objects SET payload = replace(payload, '"a"', '"z"')`)
	require.NoError(t, err)

	_, _, err = s.Load(ctx, []*ir.ObjectSchema{itemSchema()})
	assert.ErrorIs(t, err, ErrDigestMismatch)
}

func TestLoad_MovedPayloadDoesNotVerify(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()
	require.NoError(t, s.Commit(ctx, commitRecord(1, item(1, "a"))))

	_, err := s.db.ExecContext(ctx, `UPDATE objects SET key = 'i:9'`)
	require.NoError(t, err)

	_, _, err = s.Load(ctx, []*ir.ObjectSchema{itemSchema()})
	assert.ErrorIs(t, err, ErrDigestMismatch)
}

func TestCommitsAndTypes(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	types, err := s.Types(ctx)
	require.NoError(t, err)
	assert.Empty(t, types)

	require.NoError(t, s.Commit(ctx, commitRecord(2, item(1, "a"))))
	require.NoError(t, s.Commit(ctx, commitRecord(1, ir.StoredObject{
		Type: "Tag", Key: ir.String("t"), Values: map[string]ir.Value{"label": ir.String("x")},
	})))

	commits, err := s.Commits(ctx)
	require.NoError(t, err)
	require.Len(t, commits, 2)
	assert.Equal(t, int64(1), commits[0].Seq)
	assert.Equal(t, int64(2), commits[1].Seq)

	types, err = s.Types(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Item", "Tag"}, types)

	seq, err := s.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), seq)
}
