package engine

import (
	"maps"

	"github.com/roach88/livedb/internal/ir"
	"github.com/roach88/livedb/internal/observe"
)

// row is the canonical value holder for one persisted object.
// Only the identity map owns rows; values never include ignored properties.
type row struct {
	schema      *ir.ObjectSchema
	key         ir.Value
	keyStr      string
	incarnation uint64
	values      map[string]ir.Value
}

func (r *row) target() observe.Target {
	return observe.Target{Type: r.schema.Name, Key: r.keyStr}
}

// snapshot copies the tracked values. Values are replaced, never mutated in
// place, so a shallow copy is a stable pre-image.
func (r *row) snapshot() map[string]ir.Value {
	return maps.Clone(r.values)
}

func (r *row) stored() ir.StoredObject {
	values := make(map[string]ir.Value, len(r.values))
	for k, v := range r.values {
		values[k] = ir.Clone(v)
	}
	return ir.StoredObject{Type: r.schema.Name, Key: r.key, Values: values}
}
