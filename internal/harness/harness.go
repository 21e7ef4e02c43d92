package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/roach88/livedb/internal/engine"
	"github.com/roach88/livedb/internal/ir"
	"github.com/roach88/livedb/internal/observe"
	"github.com/roach88/livedb/internal/schema"
	"github.com/roach88/livedb/internal/store"
	"github.com/roach88/livedb/internal/testutil"
)

// Option configures Run.
type Option func(*config)

type config struct {
	logger *slog.Logger
	driver string
}

// WithLogger sets the logger handed to the engine. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithDriver sets the SQLite driver of persisting scenarios.
// Default: store.DefaultDriver.
func WithDriver(driver string) Option {
	return func(c *config) {
		c.driver = driver
	}
}

// Harness holds the state of one scenario run: the store under test,
// the object handles and observers the steps bound, and the trace.
type Harness struct {
	scenario  *Scenario
	reg       *schema.Registry
	db        *store.Store // nil unless the scenario persists
	store     *engine.Store
	keys      *testutil.FixedKeys
	objects   map[string]*engine.Accessor
	observers map[string]*observe.Subscription
	result    *Result
	logger    *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each run gets a fresh registry, store and (for persisting scenarios) an
// in-memory SQLite database. Step and assertion failures are reported in
// the result; the error return is for scenarios that cannot run at all.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := config{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		driver: store.DefaultDriver,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	reg, err := LoadModels(scenario.Models)
	if err != nil {
		return nil, fmt.Errorf("failed to load models: %w", err)
	}

	h := &Harness{
		scenario:  scenario,
		reg:       reg,
		keys:      testutil.NewFixedKeys("id"),
		objects:   make(map[string]*engine.Accessor),
		observers: make(map[string]*observe.Subscription),
		result:    NewResult(),
		logger:    cfg.logger,
	}

	if scenario.Persist {
		db, err := store.OpenWithDriver(cfg.driver, ":memory:")
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory store: %w", err)
		}
		defer db.Close()
		h.db = db
	}

	h.store, err = h.openStore(ctx)
	if err != nil {
		return nil, err
	}

	for i, step := range scenario.Steps {
		if err := h.execute(ctx, step); err != nil {
			h.result.AddError(fmt.Sprintf("step %d (%s): %v", i+1, step.Op, err))
			return h.result, nil
		}
	}

	for _, msg := range EvaluateAssertions(h.result, scenario.Assertions) {
		h.result.AddError(msg)
	}
	return h.result, nil
}

// LoadModels compiles the CUE files and directories in paths into one
// registry.
func LoadModels(paths []string) (*schema.Registry, error) {
	var models []*ir.ObjectSchema
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			res, errs := schema.LoadDir(p, schema.LoadModeFailFast)
			if len(errs) > 0 {
				return nil, errs[0]
			}
			models = append(models, res.Models...)
			continue
		}
		src, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		compiled, err := schema.CompileSource(p, string(src))
		if err != nil {
			return nil, err
		}
		models = append(models, compiled...)
	}

	reg := schema.NewRegistry()
	for _, m := range models {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	if err := reg.Check(); err != nil {
		return nil, err
	}
	return reg, nil
}

func (h *Harness) openStore(ctx context.Context) (*engine.Store, error) {
	opts := []engine.Option{
		engine.WithLogger(h.logger),
		engine.WithIDGenerator(h.keys),
	}
	if h.db == nil {
		return engine.New(h.reg, opts...)
	}
	opts = append(opts, engine.WithPersister(h.db))
	return engine.Open(ctx, h.reg, h.db, opts...)
}

// execute runs one step and checks its expectation.
func (h *Harness) execute(ctx context.Context, step Step) error {
	err := h.apply(ctx, step)
	want := ""
	if step.Expect != nil {
		want = step.Expect.Error
	}
	switch {
	case want == "" && err != nil:
		return err
	case want != "" && err == nil:
		return fmt.Errorf("expected error %s, got none", want)
	case want != "" && string(engine.CodeOf(err)) != want:
		return fmt.Errorf("expected error %s, got %v", want, err)
	}
	if want != "" {
		h.logger.Debug("step failed as expected", "op", step.Op, "code", want)
	}
	return nil
}

func (h *Harness) apply(ctx context.Context, step Step) error {
	switch step.Op {
	case OpBegin:
		return h.store.BeginWrite()
	case OpCommit:
		if err := h.store.CommitWrite(ctx); err != nil {
			return err
		}
		h.result.add(TraceEvent{Kind: EventCommit, CommitSeq: h.store.Seq()})
		return nil
	case OpCancel:
		if err := h.store.CancelWrite(); err != nil {
			return err
		}
		h.result.add(TraceEvent{Kind: EventCancel})
		return nil
	case OpCreate:
		return h.create(step)
	case OpAdd:
		return h.add(step)
	case OpLookup:
		return h.lookup(step)
	case OpSet:
		return h.set(step)
	case OpAppend:
		a, err := h.object(step.Object)
		if err != nil {
			return err
		}
		target, err := h.object(step.Ref)
		if err != nil {
			return err
		}
		return a.Append(step.KeyPath, target)
	case OpGet:
		return h.get(step)
	case OpSetLocal:
		a, err := h.object(step.Object)
		if err != nil {
			return err
		}
		v, err := h.scalar(a, step.KeyPath, step.Value)
		if err != nil {
			return err
		}
		return a.SetLocal(step.KeyPath, v)
	case OpGetLocal:
		a, err := h.object(step.Object)
		if err != nil {
			return err
		}
		v, err := a.Local(step.KeyPath)
		if err != nil {
			return err
		}
		return h.check(a, step, v)
	case OpObserve:
		return h.observe(step)
	case OpUnobserve:
		sub, ok := h.observers[step.Observer]
		if !ok {
			return fmt.Errorf("unknown observer %q", step.Observer)
		}
		engine.Unobserve(sub)
		return nil
	case OpReopen:
		return h.reopen(ctx)
	}
	return fmt.Errorf("unknown op %q", step.Op)
}

func (h *Harness) object(name string) (*engine.Accessor, error) {
	a, ok := h.objects[name]
	if !ok {
		return nil, fmt.Errorf("unknown object %q", name)
	}
	return a, nil
}

func (h *Harness) create(step Step) error {
	init := make(map[string]ir.Value, len(step.Values))
	if sch, ok := h.reg.Lookup(step.Type); ok {
		for name, x := range step.Values {
			p, found := sch.Property(name)
			if !found {
				// The engine reports the unknown key path.
				init[name] = ir.Null{}
				continue
			}
			if p.Kind.IsLink() {
				return fmt.Errorf("link %s cannot be set on create; use set with ref", name)
			}
			v, err := ir.FromGo(p.Kind, x)
			if err != nil {
				return fmt.Errorf("value of %s: %w", name, err)
			}
			init[name] = v
		}
	}
	a, err := h.store.Create(step.Type, init)
	if err != nil {
		return err
	}
	h.objects[step.As] = a
	return nil
}

func (h *Harness) add(step Step) error {
	a, err := h.object(step.Object)
	if err != nil {
		return err
	}
	added, err := h.store.Add(a)
	if err != nil {
		return err
	}
	name := step.As
	if name == "" {
		name = step.Object
	}
	h.objects[name] = added
	return nil
}

func (h *Harness) lookup(step Step) error {
	key, err := plainValue(step.Key)
	if err != nil {
		return fmt.Errorf("key: %w", err)
	}
	a, err := h.store.ObjectForPrimaryKey(step.Type, key)
	if err != nil {
		return err
	}
	missing := step.Expect != nil && step.Expect.Missing
	switch {
	case a == nil && !missing:
		return fmt.Errorf("no %s with key %v", step.Type, step.Key)
	case a != nil && missing:
		return fmt.Errorf("expected no %s with key %v, found one", step.Type, step.Key)
	case a != nil:
		h.objects[step.As] = a
	}
	return nil
}

func (h *Harness) set(step Step) error {
	a, err := h.object(step.Object)
	if err != nil {
		return err
	}
	p, found := a.Schema().Property(step.KeyPath)

	switch {
	case step.Ref != "":
		target, err := h.object(step.Ref)
		if err != nil {
			return err
		}
		return a.SetObject(step.KeyPath, target)
	case step.Refs != nil:
		targets := make([]*engine.Accessor, len(step.Refs))
		for i, name := range step.Refs {
			if targets[i], err = h.object(name); err != nil {
				return err
			}
		}
		return a.SetList(step.KeyPath, targets)
	case step.Clear && found && p.Kind == ir.KindList:
		return a.SetList(step.KeyPath, nil)
	case step.Clear:
		return a.SetObject(step.KeyPath, nil)
	}

	v, err := h.scalar(a, step.KeyPath, step.Value)
	if err != nil {
		return err
	}
	return a.Set(step.KeyPath, v)
}

// scalar converts a YAML value to the kind of keyPath. Unknown properties
// get a plain conversion so the engine reports them.
func (h *Harness) scalar(a *engine.Accessor, keyPath string, x any) (ir.Value, error) {
	p, found := a.Schema().Property(keyPath)
	if !found || p.Kind.IsLink() {
		return plainValue(x)
	}
	v, err := ir.FromGo(p.Kind, x)
	if err != nil {
		// A value of the wrong kind is the engine's TYPE_MISMATCH to report.
		return plainValue(x)
	}
	return v, nil
}

func (h *Harness) get(step Step) error {
	a, err := h.object(step.Object)
	if err != nil {
		return err
	}
	v, err := a.Get(step.KeyPath)
	if err != nil {
		return err
	}
	return h.check(a, step, v)
}

// check compares a read value with the step's expectation.
func (h *Harness) check(a *engine.Accessor, step Step, got ir.Value) error {
	exp := step.Expect
	if exp == nil {
		return nil
	}
	var want ir.Value
	switch {
	case exp.Null:
		want = ir.Null{}
	case exp.Ref != "":
		target, err := h.object(exp.Ref)
		if err != nil {
			return err
		}
		want = target.Ref()
	case exp.Refs != nil:
		list := make(ir.List, len(exp.Refs))
		for i, name := range exp.Refs {
			target, err := h.object(name)
			if err != nil {
				return err
			}
			list[i] = target.Ref()
		}
		want = list
	case exp.Value != nil:
		p, _ := a.Schema().Property(step.KeyPath)
		v, err := ir.FromGo(p.Kind, exp.Value)
		if err != nil {
			return fmt.Errorf("expected value: %w", err)
		}
		want = v
	default:
		return nil
	}
	if !ir.Equal(want, got) {
		return fmt.Errorf("%s: expected %s, got %s", step.KeyPath, ir.Format(want), ir.Format(got))
	}
	return nil
}

func (h *Harness) observe(step Step) error {
	a, err := h.object(step.Object)
	if err != nil {
		return err
	}
	name := step.As
	sub, err := a.Observe(step.KeyPath, func(ch observe.Change) {
		h.result.add(TraceEvent{
			Kind:     EventChange,
			Observer: name,
			Target:   ch.Target.String(),
			KeyPath:  ch.KeyPath,
			Old:      ch.Old,
			New:      ch.New,
		})
	})
	if err != nil {
		return err
	}
	h.observers[name] = sub
	return nil
}

// reopen replaces the store with one loaded from SQLite. Handles and
// observers bound so far belong to the old store and are dropped.
func (h *Harness) reopen(ctx context.Context) error {
	if h.store.InWriteTransaction() {
		return fmt.Errorf("reopen during a write transaction")
	}
	for _, sub := range h.observers {
		engine.Unobserve(sub)
	}
	clear(h.observers)
	clear(h.objects)

	s, err := h.openStore(ctx)
	if err != nil {
		return err
	}
	h.store = s
	h.result.add(TraceEvent{Kind: EventReopen, CommitSeq: s.Seq(), Objects: s.Len()})
	return nil
}

// plainValue converts a YAML scalar without a target kind.
func plainValue(x any) (ir.Value, error) {
	switch v := x.(type) {
	case nil:
		return ir.Null{}, nil
	case bool:
		return ir.Bool(v), nil
	case int:
		return ir.Int64(v), nil
	case float64:
		return ir.Float64(v), nil
	case string:
		return ir.String(v), nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", x)
	}
}
