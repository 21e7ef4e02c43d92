package engine

import (
	"github.com/roach88/livedb/internal/observe"
)

// Observe registers fn for changes to keyPath on the object behind a.
//
// The registration targets the object's identity, not the accessor: for a
// persisted object every accessor of the same row triggers it, and for a
// standalone object it follows the object into the store on admission.
// Unknown and ignored properties fail with INVALID_KEY_PATH; a detached
// accessor fails with DETACHED_ACCESSOR.
func Observe(a *Accessor, keyPath string, fn observe.Observer) (*observe.Subscription, error) {
	if _, err := trackedProperty(a.schema, keyPath); err != nil {
		return nil, err
	}
	if a.obj != nil {
		return a.obj.center.Register(a.obj.target(), keyPath, fn), nil
	}

	s := a.store
	s.mu.Lock()
	r, err := s.resolveLocked(a)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.center.Register(r.target(), keyPath, fn), nil
}

// Unobserve cancels sub. Idempotent; nil is ignored.
func Unobserve(sub *observe.Subscription) {
	if sub != nil {
		sub.Cancel()
	}
}

// Observe is a method form of the package-level Observe.
func (a *Accessor) Observe(keyPath string, fn observe.Observer) (*observe.Subscription, error) {
	return Observe(a, keyPath, fn)
}
