package engine

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/livedb/internal/ir"
	"github.com/roach88/livedb/internal/observe"
)

// ErrIndexOutOfRange is returned by the list element helpers.
var ErrIndexOutOfRange = errors.New("list index out of range")

var errLinkThroughAccessor = errors.New("link properties of standalone objects are set with SetObject or SetList")

func errWrongTarget(p ir.Property, t *Accessor) error {
	return fmt.Errorf("property %q expects object %s, got %s", p.Name, p.Target, t.schema.Name)
}

// Accessor is a handle on one object.
//
// A standalone accessor exclusively owns an unshared object. A persisted
// accessor holds only (type, key, incarnation) and resolves the row through
// its store's identity map on every access, so any number of accessors
// with the same identity see the same state and never cache tracked values.
//
// Ignored properties live in per-accessor local slots (Local, SetLocal).
//
// Thread-safety: an Accessor is not safe for concurrent use.
type Accessor struct {
	store       *Store  // nil for standalone
	obj         *object // nil for persisted
	schema      *ir.ObjectSchema
	key         ir.Value
	keyStr      string
	incarnation uint64
	locals      map[string]ir.Value
}

// Type returns the model type name.
func (a *Accessor) Type() string {
	return a.schema.Name
}

// Schema returns the model schema.
func (a *Accessor) Schema() *ir.ObjectSchema {
	return a.schema
}

// Store returns the owning store, or nil for a standalone object.
func (a *Accessor) Store() *Store {
	return a.store
}

// IsPersisted reports whether the accessor is bound to a row.
func (a *Accessor) IsPersisted() bool {
	return a.store != nil
}

// IsDetached reports whether a persisted accessor's row is gone.
// Standalone accessors are never detached.
func (a *Accessor) IsDetached() bool {
	if a.store == nil {
		return false
	}
	_, err := a.store.resolve(a)
	return err != nil
}

// Key returns the identity key: the primary key value, or the generated
// object key for models without one. For a standalone object with a
// primary key this is the current value of that property.
func (a *Accessor) Key() ir.Value {
	if a.obj != nil {
		return a.obj.identityKey()
	}
	return a.key
}

// Ref returns a reference to this object.
func (a *Accessor) Ref() ir.Ref {
	return ir.NewRef(a.schema.Name, a.Key())
}

// Target returns the identity observers of this accessor register under.
func (a *Accessor) Target() observe.Target {
	if a.obj != nil {
		return a.obj.target()
	}
	return observe.Target{Type: a.schema.Name, Key: a.keyStr}
}

// SameObject reports whether a and b address the same object: the same row
// for persisted accessors, the same instance for standalone ones.
func (a *Accessor) SameObject(b *Accessor) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.obj != nil || b.obj != nil {
		return a.obj == b.obj
	}
	return a.store == b.store &&
		a.schema.Name == b.schema.Name &&
		a.keyStr == b.keyStr &&
		a.incarnation == b.incarnation
}

// Get returns the current value of a tracked property. References come
// back as ir.Ref or ir.Null, lists as ir.List.
func (a *Accessor) Get(name string) (ir.Value, error) {
	p, err := trackedProperty(a.schema, name)
	if err != nil {
		return nil, err
	}
	if a.obj != nil {
		return a.obj.get(p), nil
	}
	return a.store.get(a, p)
}

// Values returns a copy of every tracked value.
func (a *Accessor) Values() (map[string]ir.Value, error) {
	out := make(map[string]ir.Value, len(a.schema.Properties))
	for _, p := range a.schema.Tracked() {
		v, err := a.Get(p.Name)
		if err != nil {
			return nil, err
		}
		out[p.Name] = v
	}
	return out, nil
}

// Set writes a tracked property and synchronously notifies its observers
// with the previous and the written value before returning. Equal old and
// new values still notify.
//
// Numeric values convert between widths when the number fits exactly.
// Persisted accessors require an active write transaction, cannot change
// the primary key, and can only reference objects of the same store.
func (a *Accessor) Set(name string, v ir.Value) error {
	p, err := trackedProperty(a.schema, name)
	if err != nil {
		return err
	}
	if a.obj != nil {
		return a.obj.set(p, v)
	}
	return a.store.set(a, p, v)
}

// Object resolves a reference property. Returns nil for null.
func (a *Accessor) Object(name string) (*Accessor, error) {
	p, err := linkProperty(a.schema, name, ir.KindReference)
	if err != nil {
		return nil, err
	}
	if a.obj != nil {
		linked := a.obj.links[p.Name]
		if len(linked) == 0 {
			return nil, nil
		}
		return linked[0], nil
	}
	v, err := a.store.get(a, p)
	if err != nil {
		return nil, err
	}
	ref, ok := v.(ir.Ref)
	if !ok {
		return nil, nil
	}
	return a.store.accessorFor(ref)
}

// List resolves a list property to accessors, in list order.
func (a *Accessor) List(name string) ([]*Accessor, error) {
	p, err := linkProperty(a.schema, name, ir.KindList)
	if err != nil {
		return nil, err
	}
	if a.obj != nil {
		return slices.Clone(a.obj.links[p.Name]), nil
	}
	v, err := a.store.get(a, p)
	if err != nil {
		return nil, err
	}
	list, _ := v.(ir.List)
	out := make([]*Accessor, 0, len(list))
	for _, ref := range list {
		linked, err := a.store.accessorFor(ref)
		if err != nil {
			return nil, err
		}
		if linked != nil {
			out = append(out, linked)
		}
	}
	return out, nil
}

// SetObject links a reference property to target (nil clears it).
// A standalone target assigned through a persisted accessor is admitted
// into the store first.
func (a *Accessor) SetObject(name string, target *Accessor) error {
	p, err := linkProperty(a.schema, name, ir.KindReference)
	if err != nil {
		return err
	}
	var targets []*Accessor
	if target != nil {
		targets = []*Accessor{target}
	}
	if a.obj != nil {
		return a.obj.setLinks(p, targets)
	}
	return a.store.setLinks(a, p, targets)
}

// SetList replaces a list property with targets.
func (a *Accessor) SetList(name string, targets []*Accessor) error {
	p, err := linkProperty(a.schema, name, ir.KindList)
	if err != nil {
		return err
	}
	if slices.Contains(targets, nil) {
		return newInvalidObjectError("list elements cannot be nil")
	}
	if a.obj != nil {
		return a.obj.setLinks(p, targets)
	}
	return a.store.setLinks(a, p, targets)
}

// Append adds target to the end of a list property. Observers see one
// whole-list change.
func (a *Accessor) Append(name string, target *Accessor) error {
	list, err := a.List(name)
	if err != nil {
		return err
	}
	return a.SetList(name, append(list, target))
}

// RemoveAt removes the element at index i of a list property.
func (a *Accessor) RemoveAt(name string, i int) error {
	list, err := a.List(name)
	if err != nil {
		return err
	}
	if i < 0 || i >= len(list) {
		return fmt.Errorf("remove %s[%d] (len %d): %w", name, i, len(list), ErrIndexOutOfRange)
	}
	return a.SetList(name, slices.Delete(list, i, i+1))
}

// Replace swaps the element at index i of a list property for target.
func (a *Accessor) Replace(name string, i int, target *Accessor) error {
	list, err := a.List(name)
	if err != nil {
		return err
	}
	if i < 0 || i >= len(list) {
		return fmt.Errorf("replace %s[%d] (len %d): %w", name, i, len(list), ErrIndexOutOfRange)
	}
	list[i] = target
	return a.SetList(name, list)
}

// Local reads an ignored property from this accessor's local slot.
func (a *Accessor) Local(name string) (ir.Value, error) {
	p, err := ignoredProperty(a.schema, name)
	if err != nil {
		return nil, err
	}
	return ir.Clone(a.locals[p.Name]), nil
}

// SetLocal writes an ignored property. It needs no transaction and never
// notifies.
func (a *Accessor) SetLocal(name string, v ir.Value) error {
	p, err := ignoredProperty(a.schema, name)
	if err != nil {
		return err
	}
	cv, err := coerce(a.schema, p, v)
	if err != nil {
		return err
	}
	a.locals[p.Name] = cv
	return nil
}

func (a *Accessor) cloneLocals() map[string]ir.Value {
	return maps.Clone(a.locals)
}

func trackedProperty(s *ir.ObjectSchema, name string) (ir.Property, error) {
	p, ok := s.Property(name)
	if !ok {
		return p, newInvalidKeyPathError(s.Name, name, "unknown property")
	}
	if p.Ignored {
		return p, newInvalidKeyPathError(s.Name, name, "property is ignored and cannot be tracked")
	}
	return p, nil
}

func ignoredProperty(s *ir.ObjectSchema, name string) (ir.Property, error) {
	p, ok := s.Property(name)
	if !ok {
		return p, newInvalidKeyPathError(s.Name, name, "unknown property")
	}
	if !p.Ignored {
		return p, newInvalidKeyPathError(s.Name, name, "property is tracked; use Get and Set")
	}
	return p, nil
}

func linkProperty(s *ir.ObjectSchema, name string, kind ir.Kind) (ir.Property, error) {
	p, err := trackedProperty(s, name)
	if err != nil {
		return p, err
	}
	if p.Kind != kind {
		return p, newTypeMismatchError(s.Name, name, fmt.Errorf("property %q is %s, not %s", name, p.Kind, kind))
	}
	return p, nil
}

// coerce converts v to the property's kind. Links are checked, not
// converted; null is only valid for references.
func coerce(s *ir.ObjectSchema, p ir.Property, v ir.Value) (ir.Value, error) {
	if v == nil {
		v = ir.Null{}
	}
	if p.Kind.IsLink() {
		if err := p.Check(v); err != nil {
			return nil, newTypeMismatchError(s.Name, p.Name, err)
		}
		return ir.Clone(v), nil
	}
	cv, err := ir.Convert(p.Kind, v)
	if err != nil {
		return nil, newTypeMismatchError(s.Name, p.Name, err)
	}
	return ir.Clone(cv), nil
}
