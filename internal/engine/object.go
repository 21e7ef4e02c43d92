package engine

import (
	"slices"

	"github.com/roach88/livedb/internal/ir"
	"github.com/roach88/livedb/internal/observe"
)

// standaloneKey is the target key observers of a standalone object are
// registered under. Each standalone object has its own Center, so the key
// only needs to be unique within it.
const standaloneKey = "local"

// object is a standalone instance: it owns its values and is never in an
// identity map. Admission copies it into a row and leaves it unchanged.
type object struct {
	schema    *ir.ObjectSchema
	objectKey ir.Value // generated key for models without a primary key
	values    map[string]ir.Value
	links     map[string][]*Accessor // reference (0 or 1 entry) and list properties
	center    *observe.Center
	admitted  *admission
}

// admission records the row a standalone object became, so linking or
// adding it again reaches the same row instead of a duplicate.
type admission struct {
	store       *Store
	keyStr      string
	incarnation uint64
}

// ObjectOption configures NewObject.
type ObjectOption func(*objectConfig)

type objectConfig struct {
	keys KeyGenerator
}

// WithKeys sets the generator for the object key of models without a
// primary key. Default: UUIDv7Generator.
func WithKeys(gen KeyGenerator) ObjectOption {
	return func(c *objectConfig) {
		c.keys = gen
	}
}

// NewObject creates a standalone object of model s. Every property starts
// at its default; init overrides individual properties, ignored ones
// included. Link properties can only be initialised to null or an empty
// list here; use SetObject and SetList to link objects.
func NewObject(s *ir.ObjectSchema, init map[string]ir.Value, opts ...ObjectOption) (*Accessor, error) {
	cfg := objectConfig{keys: UUIDv7Generator{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	obj := &object{
		schema: s,
		values: make(map[string]ir.Value, len(s.Properties)),
		links:  make(map[string][]*Accessor),
		center: observe.NewCenter(),
	}
	if _, hasPK := s.PrimaryKey(); !hasPK {
		obj.objectKey = ir.String(cfg.keys.Generate())
	}

	a := &Accessor{obj: obj, schema: s, locals: make(map[string]ir.Value)}
	for _, p := range s.Properties {
		switch {
		case p.Ignored:
			a.locals[p.Name] = p.InitialValue()
		case !p.Kind.IsLink():
			obj.values[p.Name] = p.InitialValue()
		}
	}

	for name, v := range init {
		p, ok := s.Property(name)
		if !ok {
			return nil, newInvalidKeyPathError(s.Name, name, "unknown property")
		}
		if p.Kind.IsLink() {
			if !isEmptyLink(p, v) {
				return nil, newTypeMismatchError(s.Name, name, errLinkThroughAccessor)
			}
			continue
		}
		cv, err := coerce(s, p, v)
		if err != nil {
			return nil, err
		}
		if p.Ignored {
			a.locals[name] = cv
		} else {
			obj.values[name] = cv
		}
	}
	return a, nil
}

func (o *object) target() observe.Target {
	return observe.Target{Type: o.schema.Name, Key: standaloneKey}
}

// identityKey is the key the object will be admitted under.
func (o *object) identityKey() ir.Value {
	if pk, ok := o.schema.PrimaryKey(); ok {
		return o.values[pk.Name]
	}
	return o.objectKey
}

// get returns a tracked value; links are projected to references.
func (o *object) get(p ir.Property) ir.Value {
	switch p.Kind {
	case ir.KindReference:
		linked := o.links[p.Name]
		if len(linked) == 0 {
			return ir.Null{}
		}
		return linked[0].Ref()
	case ir.KindList:
		linked := o.links[p.Name]
		list := make(ir.List, len(linked))
		for i, l := range linked {
			list[i] = l.Ref()
		}
		return list
	default:
		return ir.Clone(o.values[p.Name])
	}
}

func (o *object) set(p ir.Property, v ir.Value) error {
	if p.Kind.IsLink() {
		if !isEmptyLink(p, v) {
			return newTypeMismatchError(o.schema.Name, p.Name, errLinkThroughAccessor)
		}
		return o.setLinks(p, nil)
	}
	cv, err := coerce(o.schema, p, v)
	if err != nil {
		return err
	}
	old := o.values[p.Name]
	o.values[p.Name] = cv
	o.center.Notify(observe.Change{Target: o.target(), KeyPath: p.Name, Old: old, New: ir.Clone(cv)})
	return nil
}

func (o *object) setLinks(p ir.Property, targets []*Accessor) error {
	for _, t := range targets {
		if t.schema.Name != p.Target {
			return newTypeMismatchError(o.schema.Name, p.Name, errWrongTarget(p, t))
		}
		if t.store != nil {
			if _, err := t.store.resolve(t); err != nil {
				return err
			}
		}
	}
	old := o.get(p)
	o.links[p.Name] = slices.Clone(targets)
	o.center.Notify(observe.Change{Target: o.target(), KeyPath: p.Name, Old: old, New: o.get(p)})
	return nil
}

// isEmptyLink reports whether v is null for a reference or an empty list
// for a list property.
func isEmptyLink(p ir.Property, v ir.Value) bool {
	if p.Kind == ir.KindReference {
		return ir.IsNull(v)
	}
	l, ok := v.(ir.List)
	return ok && len(l) == 0
}
