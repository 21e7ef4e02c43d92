package schema

import (
	"errors"
	"fmt"
	"sync"

	"github.com/roach88/livedb/internal/ir"
)

// Registry holds the declared model types by name.
//
// Models are registered up front, before a store is opened; the registry is
// read-only afterwards. Lookups are safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	models map[string]*ir.ObjectSchema
	order  []string // registration order
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{models: make(map[string]*ir.ObjectSchema)}
}

// Register validates s and adds it. Link targets may name models that are
// registered later; Check resolves them once every model is present.
func (r *Registry) Register(s *ir.ObjectSchema) error {
	if errs := Validate(s); len(errs) > 0 {
		return joinValidation(s.Name, errs)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.models[s.Name]; exists {
		return ValidationError{
			Field:   s.Name,
			Message: fmt.Sprintf("duplicate model name: %q", s.Name),
			Code:    ErrDuplicateModel,
		}
	}
	r.models[s.Name] = s
	r.order = append(r.order, s.Name)
	return nil
}

// MustRegister is Register for package-level declarations. It panics on an
// invalid model.
func (r *Registry) MustRegister(schemas ...*ir.ObjectSchema) *Registry {
	for _, s := range schemas {
		if err := r.Register(s); err != nil {
			panic(err)
		}
	}
	return r
}

// Lookup returns the model named name.
func (r *Registry) Lookup(name string) (*ir.ObjectSchema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.models[name]
	return s, ok
}

// Schemas returns the registered models in registration order.
func (r *Registry) Schemas() []*ir.ObjectSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*ir.ObjectSchema, len(r.order))
	for i, name := range r.order {
		out[i] = r.models[name]
	}
	return out
}

// Check verifies that every link target names a registered model.
func (r *Registry) Check() error {
	if errs := ValidateAll(r.Schemas()); len(errs) > 0 {
		return joinValidation("registry", errs)
	}
	return nil
}

func joinValidation(scope string, errs []ValidationError) error {
	joined := make([]error, len(errs))
	for i, e := range errs {
		joined[i] = e
	}
	return fmt.Errorf("invalid %s: %w", scope, errors.Join(joined...))
}
