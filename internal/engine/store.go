package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/livedb/internal/ir"
	"github.com/roach88/livedb/internal/observe"
	"github.com/roach88/livedb/internal/schema"
)

// Persister receives the record of every committed write transaction.
// Implemented by store.Store (SQLite).
type Persister interface {
	Commit(ctx context.Context, rec ir.CommitRecord) error
}

// Loader supplies previously committed objects when a store is opened,
// together with the last committed seq.
// Implemented by store.Store (SQLite).
type Loader interface {
	Load(ctx context.Context, schemas []*ir.ObjectSchema) ([]ir.StoredObject, int64, error)
}

// Store owns the identity map, the notification center and the single
// write transaction for a set of model types.
//
// Thread-safety model:
//   - BeginWrite/CommitWrite/CancelWrite: state transitions are serialized,
//     so two concurrent BeginWrite calls never both succeed
//   - Reads through accessors are allowed in any state
//   - Writes require the write transaction; the design is single-writer
//   - Observers run on the mutating goroutine, after the store lock is
//     released, so they may read and write objects themselves
//
// INVARIANTS:
//   - At most one write transaction at a time
//   - Rows are inserted, changed and removed only while Writing
type Store struct {
	mu           sync.Mutex
	registry     *schema.Registry
	rows         *identityMap
	center       *observe.Center
	tx           *transaction
	clock        *Clock
	ids          KeyGenerator
	persister    Persister
	logger       *slog.Logger
	incarnations uint64
}

// Option configures a Store.
type Option func(*Store)

// WithPersister sets the durable storage that receives commits.
// Without one, commits are kept in memory only.
func WithPersister(p Persister) Option {
	return func(s *Store) {
		s.persister = p
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// WithIDGenerator sets the generator for commit IDs and for the object
// keys of objects created through Create. Default: UUIDv7Generator.
func WithIDGenerator(gen KeyGenerator) Option {
	return func(s *Store) {
		s.ids = gen
	}
}

// WithClock sets the logical clock that stamps commits.
func WithClock(c *Clock) Option {
	return func(s *Store) {
		s.clock = c
	}
}

// New creates an empty in-memory store for the models in reg.
// Every link target in reg must be registered.
func New(reg *schema.Registry, opts ...Option) (*Store, error) {
	if err := reg.Check(); err != nil {
		return nil, fmt.Errorf("new store: %w", err)
	}
	s := &Store{
		registry: reg,
		rows:     newIdentityMap(),
		center:   observe.NewCenter(),
		clock:    NewClock(),
		ids:      UUIDv7Generator{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Open creates a store and fills it from loader. The clock resumes after
// the last committed seq.
func Open(ctx context.Context, reg *schema.Registry, loader Loader, opts ...Option) (*Store, error) {
	s, err := New(reg, opts...)
	if err != nil {
		return nil, err
	}
	objects, seq, err := loader.Load(ctx, reg.Schemas())
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	for _, so := range objects {
		if err := s.loadObject(so); err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
	}
	s.clock.advanceTo(seq)
	s.logger.Debug("store opened", "objects", len(objects), "seq", seq)
	return s, nil
}

func (s *Store) loadObject(so ir.StoredObject) error {
	sch, ok := s.registry.Lookup(so.Type)
	if !ok {
		return newUnknownTypeError(so.Type)
	}
	key := so.Key
	if pk, ok := sch.PrimaryKey(); ok {
		converted, err := ir.Convert(pk.Kind, key)
		if err != nil {
			return fmt.Errorf("load %s key: %w", so.Type, err)
		}
		key = converted
	}
	keyStr, err := ir.KeyString(key)
	if err != nil {
		return fmt.Errorf("load %s: %w", so.Type, err)
	}

	values := make(map[string]ir.Value, len(sch.Properties))
	for _, p := range sch.Tracked() {
		v, ok := so.Values[p.Name]
		if !ok {
			v = p.InitialValue()
		}
		values[p.Name] = v
	}
	if pk, ok := sch.PrimaryKey(); ok {
		values[pk.Name] = key
	}

	s.incarnations++
	return s.rows.insert(&row{
		schema:      sch,
		key:         key,
		keyStr:      keyStr,
		incarnation: s.incarnations,
		values:      values,
	})
}

// Registry returns the models this store serves.
func (s *Store) Registry() *schema.Registry {
	return s.registry
}

// Seq returns the seq of the last successful commit.
func (s *Store) Seq() int64 {
	return s.clock.Current()
}

// Len returns the number of live rows.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows.len()
}

// Create builds a standalone object of the registered type typ. Object keys
// for models without a primary key come from the store's ID generator.
func (s *Store) Create(typ string, init map[string]ir.Value) (*Accessor, error) {
	sch, ok := s.registry.Lookup(typ)
	if !ok {
		return nil, newUnknownTypeError(typ)
	}
	return NewObject(sch, init, WithKeys(s.ids))
}

// ObjectForPrimaryKey returns a new accessor for the row of typ with the
// given primary key, or (nil, nil) when there is none. Allowed in any
// transaction state.
func (s *Store) ObjectForPrimaryKey(typ string, key ir.Value) (*Accessor, error) {
	sch, ok := s.registry.Lookup(typ)
	if !ok {
		return nil, newUnknownTypeError(typ)
	}
	pk, ok := sch.PrimaryKey()
	if !ok {
		return nil, newNoPrimaryKeyError(typ)
	}
	converted, err := ir.Convert(pk.Kind, key)
	if err != nil {
		return nil, newTypeMismatchError(typ, pk.Name, err)
	}
	keyStr, err := ir.KeyString(converted)
	if err != nil {
		return nil, newTypeMismatchError(typ, pk.Name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.rows.lookup(typ, keyStr)
	if r == nil {
		return nil, nil
	}
	return newPersistedAccessor(s, r, nil), nil
}

// Objects returns an accessor for every row of typ, in key order.
func (s *Store) Objects(typ string) ([]*Accessor, error) {
	if _, ok := s.registry.Lookup(typ); !ok {
		return nil, newUnknownTypeError(typ)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.rows.rowsOf(typ)
	out := make([]*Accessor, len(rows))
	for i, r := range rows {
		out[i] = newPersistedAccessor(s, r, nil)
	}
	return out, nil
}

func newPersistedAccessor(s *Store, r *row, locals map[string]ir.Value) *Accessor {
	a := &Accessor{
		store:       s,
		schema:      r.schema,
		key:         r.key,
		keyStr:      r.keyStr,
		incarnation: r.incarnation,
		locals:      locals,
	}
	if a.locals == nil {
		a.locals = make(map[string]ir.Value)
		for _, p := range r.schema.Ignored() {
			a.locals[p.Name] = p.InitialValue()
		}
	}
	return a
}

// resolve returns the row a persisted accessor is bound to.
func (s *Store) resolve(a *Accessor) (*row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolveLocked(a)
}

func (s *Store) resolveLocked(a *Accessor) (*row, error) {
	r := s.rows.lookup(a.schema.Name, a.keyStr)
	if r == nil || r.incarnation != a.incarnation {
		return nil, newDetachedAccessorError(a.schema.Name, a.keyStr)
	}
	return r, nil
}

// accessorFor resolves a stored reference. Returns nil if the row is gone.
func (s *Store) accessorFor(ref ir.Ref) (*Accessor, error) {
	keyStr, err := ir.KeyString(ref.Key)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.rows.lookup(ref.Type, keyStr)
	if r == nil {
		return nil, nil
	}
	return newPersistedAccessor(s, r, nil), nil
}

func (s *Store) get(a *Accessor, p ir.Property) (ir.Value, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.resolveLocked(a)
	if err != nil {
		return nil, err
	}
	return ir.Clone(r.values[p.Name]), nil
}

// set is the persisted write path: resolve, check, journal, write, then
// notify with the lock released.
func (s *Store) set(a *Accessor, p ir.Property, v ir.Value) error {
	s.mu.Lock()
	r, err := s.resolveLocked(a)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if s.tx == nil {
		s.mu.Unlock()
		return newNoActiveTransactionError("set " + a.schema.Name + "." + p.Name)
	}
	if p.PrimaryKey {
		s.mu.Unlock()
		return newPrimaryKeyImmutableError(a.schema.Name, a.keyStr, p.Name)
	}
	nv, err := coerce(a.schema, p, v)
	if err == nil && p.Kind.IsLink() {
		nv, err = s.canonicalLinksLocked(nv)
	}
	if err != nil {
		s.mu.Unlock()
		return err
	}

	old := r.values[p.Name]
	s.tx.touch(r)
	r.values[p.Name] = nv
	target := r.target()
	s.mu.Unlock()

	s.center.Notify(observe.Change{Target: target, KeyPath: p.Name, Old: old, New: ir.Clone(nv)})
	return nil
}

// canonicalLinksLocked checks that every referenced row exists in this
// store and rewrites keys to the row's own key value.
func (s *Store) canonicalLinksLocked(v ir.Value) (ir.Value, error) {
	switch val := v.(type) {
	case ir.Ref:
		return s.canonicalRefLocked(val)
	case ir.List:
		out := make(ir.List, len(val))
		for i, ref := range val {
			c, err := s.canonicalRefLocked(ref)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	default:
		return v, nil
	}
}

func (s *Store) canonicalRefLocked(ref ir.Ref) (ir.Ref, error) {
	keyStr, err := ir.KeyString(ref.Key)
	if err != nil {
		return ir.Ref{}, newInvalidObjectError(err.Error())
	}
	r := s.rows.lookup(ref.Type, keyStr)
	if r == nil {
		return ir.Ref{}, newInvalidObjectError(fmt.Sprintf("reference to %s which is not in this store", ir.Format(ref)))
	}
	return ir.NewRef(ref.Type, r.key), nil
}

// setLinks admits standalone targets, then writes the references.
func (s *Store) setLinks(a *Accessor, p ir.Property, targets []*Accessor) error {
	if _, err := s.resolve(a); err != nil {
		return err
	}
	if !s.InWriteTransaction() {
		return newNoActiveTransactionError("set " + a.schema.Name + "." + p.Name)
	}
	for _, t := range targets {
		if t.schema.Name != p.Target {
			return newTypeMismatchError(a.schema.Name, p.Name, errWrongTarget(p, t))
		}
	}

	persisted, err := s.admit(targets)
	if err != nil {
		return err
	}
	if p.Kind == ir.KindReference {
		if len(persisted) == 0 {
			return s.set(a, p, ir.Null{})
		}
		return s.set(a, p, persisted[0].Ref())
	}
	list := make(ir.List, len(persisted))
	for i, t := range persisted {
		list[i] = t.Ref()
	}
	return s.set(a, p, list)
}
