package engine

import (
	"github.com/roach88/livedb/internal/ir"
)

// Add admits a standalone object into the store and returns a persisted
// accessor for the new row. Requires the write transaction.
//
// Every tracked value is copied into the row; the standalone object is not
// modified and is superseded by the returned accessor, which also carries
// its ignored local slots. Standalone objects reachable through reference
// and list properties are admitted in the same call. Admission is atomic:
// if any object fails (for example with DUPLICATE_KEY) nothing is applied.
// Observers of every admitted object move to the row identity.
//
// Adding an accessor already persisted in this store, or a standalone
// object this store already admitted, returns an accessor for that row.
func (s *Store) Add(a *Accessor) (*Accessor, error) {
	if a == nil {
		return nil, newInvalidObjectError("cannot add a nil object")
	}
	out, err := s.admit([]*Accessor{a})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// admissionPlan is everything admit needs to apply, computed before any
// row is touched.
type admissionPlan struct {
	store   *Store
	order   []*object
	keys    map[*object]ir.Value
	keyStrs map[*object]string
	reuse   map[*object]*row
	taken   map[string]map[string]bool // type -> key strings claimed by this plan
}

// admit persists roots (standalone or persisted accessors) and returns one
// persisted accessor per root, in order.
func (s *Store) admit(roots []*Accessor) ([]*Accessor, error) {
	s.mu.Lock()
	if s.tx == nil {
		s.mu.Unlock()
		return nil, newNoActiveTransactionError("add")
	}

	plan := &admissionPlan{
		store:   s,
		keys:    make(map[*object]ir.Value),
		keyStrs: make(map[*object]string),
		reuse:   make(map[*object]*row),
		taken:   make(map[string]map[string]bool),
	}
	for _, root := range roots {
		if err := plan.visitRoot(root); err != nil {
			s.mu.Unlock()
			return nil, err
		}
	}

	created := make(map[*object]*row, len(plan.order))
	for _, obj := range plan.order {
		s.incarnations++
		r := &row{
			schema:      obj.schema,
			key:         plan.keys[obj],
			keyStr:      plan.keyStrs[obj],
			incarnation: s.incarnations,
		}
		created[obj] = r
	}
	for _, obj := range plan.order {
		r := created[obj]
		r.values = plan.rowValues(obj, created)
		// Conflicts were ruled out while planning.
		if err := s.rows.insert(r); err != nil {
			panic(err)
		}
		s.tx.create(r)
		obj.admitted = &admission{store: s, keyStr: r.keyStr, incarnation: r.incarnation}
	}

	out := make([]*Accessor, len(roots))
	for i, root := range roots {
		var r *row
		switch {
		case root.obj == nil:
			r, _ = s.resolveLocked(root)
		case created[root.obj] != nil:
			r = created[root.obj]
		default:
			r = plan.reuse[root.obj]
		}
		out[i] = newPersistedAccessor(s, r, root.cloneLocals())
	}
	s.mu.Unlock()

	for _, obj := range plan.order {
		r := created[obj]
		obj.center.Transfer(obj.target(), s.center, r.target())
	}
	if len(plan.order) > 0 {
		s.logger.Debug("objects admitted", "tx_id", s.currentTxID(), "count", len(plan.order))
	}
	return out, nil
}

func (s *Store) currentTxID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tx == nil {
		return ""
	}
	return s.tx.id
}

func (p *admissionPlan) visitRoot(a *Accessor) error {
	if a == nil {
		return newInvalidObjectError("cannot add a nil object")
	}
	if a.obj == nil {
		return p.checkPersisted(a)
	}
	return p.visit(a.obj)
}

func (p *admissionPlan) checkPersisted(a *Accessor) error {
	if a.store != p.store {
		return newInvalidObjectError("object belongs to a different store")
	}
	_, err := p.store.resolveLocked(a)
	return err
}

// visit plans obj and, recursively, every standalone object it links to.
func (p *admissionPlan) visit(obj *object) error {
	if _, seen := p.keys[obj]; seen {
		return nil
	}
	if _, seen := p.reuse[obj]; seen {
		return nil
	}
	s := p.store
	if _, ok := s.registry.Lookup(obj.schema.Name); !ok {
		return newUnknownTypeError(obj.schema.Name)
	}

	if adm := obj.admitted; adm != nil && adm.store == s {
		r := s.rows.lookup(obj.schema.Name, adm.keyStr)
		if r != nil && r.incarnation == adm.incarnation {
			p.reuse[obj] = r
			return nil
		}
	}

	key := obj.identityKey()
	keyStr, err := ir.KeyString(key)
	if err != nil {
		return newInvalidObjectError(err.Error())
	}
	typ := obj.schema.Name
	if s.rows.lookup(typ, keyStr) != nil || p.taken[typ][keyStr] {
		return newDuplicateKeyError(typ, keyStr)
	}
	if p.taken[typ] == nil {
		p.taken[typ] = make(map[string]bool)
	}
	p.taken[typ][keyStr] = true
	p.keys[obj] = key
	p.keyStrs[obj] = keyStr
	p.order = append(p.order, obj)

	for _, prop := range obj.schema.Tracked() {
		for _, linked := range obj.links[prop.Name] {
			if linked.obj == nil {
				if err := p.checkPersisted(linked); err != nil {
					return err
				}
				continue
			}
			if err := p.visit(linked.obj); err != nil {
				return err
			}
		}
	}
	return nil
}

// rowValues copies obj's tracked values, turning links into references to
// the rows they now resolve to.
func (p *admissionPlan) rowValues(obj *object, created map[*object]*row) map[string]ir.Value {
	values := make(map[string]ir.Value, len(obj.schema.Properties))
	for _, prop := range obj.schema.Tracked() {
		switch prop.Kind {
		case ir.KindReference:
			linked := obj.links[prop.Name]
			if len(linked) == 0 {
				values[prop.Name] = ir.Null{}
				continue
			}
			values[prop.Name] = p.refTo(linked[0], created)
		case ir.KindList:
			linked := obj.links[prop.Name]
			list := make(ir.List, len(linked))
			for i, l := range linked {
				list[i] = p.refTo(l, created)
			}
			values[prop.Name] = list
		default:
			values[prop.Name] = ir.Clone(obj.values[prop.Name])
		}
	}
	return values
}

func (p *admissionPlan) refTo(a *Accessor, created map[*object]*row) ir.Ref {
	switch {
	case a.obj == nil:
		return ir.NewRef(a.schema.Name, a.key)
	case created[a.obj] != nil:
		return ir.NewRef(a.schema.Name, created[a.obj].key)
	default:
		return ir.NewRef(a.schema.Name, p.reuse[a.obj].key)
	}
}
