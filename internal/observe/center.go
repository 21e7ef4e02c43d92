package observe

import (
	"cmp"
	"slices"
	"sync"
	"sync/atomic"
)

// created orders subscriptions across centers.
var created atomic.Uint64

type slot struct {
	target  Target
	keyPath string
}

// Center holds subscriptions and delivers changes to them.
//
// Thread-safety: registration, cancellation and delivery are safe for
// concurrent use. The lock is never held while an observer runs, so
// observers may register, cancel or trigger further notifications.
type Center struct {
	mu    sync.Mutex
	slots map[slot][]*Subscription
}

// NewCenter creates an empty Center.
func NewCenter() *Center {
	return &Center{slots: make(map[slot][]*Subscription)}
}

// Subscription is one registered observer. It follows its target when the
// registration is transferred to another Center.
type Subscription struct {
	mu        sync.Mutex
	seq       uint64
	center    *Center
	target    Target
	keyPath   string
	fn        Observer
	cancelled atomic.Bool
}

// Target returns the identity the subscription currently observes.
func (s *Subscription) Target() Target {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target
}

// KeyPath returns the observed property name.
func (s *Subscription) KeyPath() string {
	return s.keyPath
}

// Active reports whether the subscription still receives changes.
func (s *Subscription) Active() bool {
	return !s.cancelled.Load()
}

// Cancel removes the subscription. Calling it more than once is a no-op.
// A subscription cancelled during a delivery is skipped if its observer
// has not been called yet.
func (s *Subscription) Cancel() {
	if s.cancelled.Swap(true) {
		return
	}
	s.mu.Lock()
	c := s.center
	key := slot{target: s.target, keyPath: s.keyPath}
	s.center = nil
	s.mu.Unlock()
	if c != nil {
		c.remove(key, s)
	}
}

// Register adds an observer for (target, keyPath). Observers registered
// while a delivery is in progress do not receive that delivery.
func (c *Center) Register(target Target, keyPath string, fn Observer) *Subscription {
	sub := &Subscription{seq: created.Add(1), center: c, target: target, keyPath: keyPath, fn: fn}
	key := slot{target: target, keyPath: keyPath}

	c.mu.Lock()
	c.slots[key] = append(c.slots[key], sub)
	c.mu.Unlock()
	return sub
}

// Unregister cancels sub. Idempotent; nil is ignored.
func (c *Center) Unregister(sub *Subscription) {
	if sub != nil {
		sub.Cancel()
	}
}

// Notify delivers ch to every observer of (ch.Target, ch.KeyPath) in
// registration order and returns how many observers were called.
func (c *Center) Notify(ch Change) int {
	c.mu.Lock()
	subs := slices.Clone(c.slots[slot{target: ch.Target, keyPath: ch.KeyPath}])
	c.mu.Unlock()

	delivered := 0
	for _, sub := range subs {
		if sub.cancelled.Load() {
			continue
		}
		sub.fn(ch)
		delivered++
	}
	return delivered
}

// Count returns the number of live observers of (target, keyPath).
func (c *Center) Count(target Target, keyPath string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.slots[slot{target: target, keyPath: keyPath}])
}

// Observed reports whether target has any live observer.
func (c *Center) Observed(target Target) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, subs := range c.slots {
		if key.target == target && len(subs) > 0 {
			return true
		}
	}
	return false
}

// Transfer moves every subscription on from to dst, re-targeted at to.
// Relative registration order is kept, and moved subscriptions are
// appended after any already registered on to. Returns the number moved.
func (c *Center) Transfer(from Target, dst *Center, to Target) int {
	c.mu.Lock()
	var moved []*Subscription
	for key, subs := range c.slots {
		if key.target != from {
			continue
		}
		moved = append(moved, subs...)
		delete(c.slots, key)
	}
	c.mu.Unlock()

	// Map iteration order is random; registration order is restored from
	// the sequence each subscription was created in.
	slices.SortFunc(moved, func(a, b *Subscription) int {
		return cmp.Compare(a.seq, b.seq)
	})

	n := 0
	for _, sub := range moved {
		sub.mu.Lock()
		if !sub.cancelled.Load() {
			sub.center = dst
			sub.target = to
			key := slot{target: to, keyPath: sub.keyPath}
			dst.mu.Lock()
			dst.slots[key] = append(dst.slots[key], sub)
			dst.mu.Unlock()
			n++
		}
		sub.mu.Unlock()
	}
	return n
}

// Drop cancels every subscription on target and returns how many were
// cancelled. Used when the target identity stops existing.
func (c *Center) Drop(target Target) int {
	c.mu.Lock()
	var dropped []*Subscription
	for key, subs := range c.slots {
		if key.target == target {
			dropped = append(dropped, subs...)
		}
	}
	c.mu.Unlock()

	for _, sub := range dropped {
		sub.Cancel()
	}
	return len(dropped)
}

func (c *Center) remove(key slot, sub *Subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()
	subs := c.slots[key]
	i := slices.Index(subs, sub)
	if i < 0 {
		return
	}
	subs = slices.Delete(subs, i, i+1)
	if len(subs) == 0 {
		delete(c.slots, key)
		return
	}
	c.slots[key] = subs
}
