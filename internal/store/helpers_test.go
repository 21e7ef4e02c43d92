package store

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/livedb/internal/ir"
	"github.com/roach88/livedb/internal/schema"
)

// createTestStore opens a fresh database in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	return createTestStoreWithDriver(t, DefaultDriver)
}

func createTestStoreWithDriver(t *testing.T, driver string) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := OpenWithDriver(driver, path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func itemSchema() *ir.ObjectSchema {
	return schema.Object("Item",
		schema.Field("id", ir.KindInt32, schema.PrimaryKey()),
		schema.Field("scratch", ir.KindString, schema.Ignored()),
		schema.Field("name", ir.KindString),
		schema.Field("price", ir.KindFloat64),
		schema.Field("blob", ir.KindBytes),
		schema.Field("at", ir.KindInstant),
		schema.Link("next", "Item"),
		schema.ListOf("parts", "Item"),
	)
}

func tagSchema() *ir.ObjectSchema {
	return schema.Object("Tag",
		schema.Field("label", ir.KindString),
	)
}

func testRegistry() *schema.Registry {
	return schema.NewRegistry().MustRegister(itemSchema(), tagSchema())
}

func item(id int32, name string) ir.StoredObject {
	return ir.StoredObject{
		Type: "Item",
		Key:  ir.Int32(id),
		Values: map[string]ir.Value{
			"id":    ir.Int32(id),
			"name":  ir.String(name),
			"price": ir.Float64(1.5),
			"blob":  ir.Bytes("\x00\x01"),
			"at":    ir.Instant(time.Date(2024, 1, 2, 3, 4, 5, 6, time.UTC)),
			"next":  ir.Null{},
			"parts": ir.List{},
		},
	}
}

func commitRecord(seq int64, objects ...ir.StoredObject) ir.CommitRecord {
	return ir.CommitRecord{ID: fmt.Sprintf("commit-%d", seq), Seq: seq, Objects: objects}
}
