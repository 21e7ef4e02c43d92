// Package observe is the notification engine: a registry of observers keyed
// by (target identity, key path) and synchronous old/new delivery.
//
// A Center never inspects values and never decides whether a change is
// interesting. Every Notify call reaches every live observer registered
// for that exact target and key path, in registration order, on the
// caller's goroutine.
//
// Targets are identities, not objects. A persisted object is addressed by
// (type, key) so every accessor of the same row shares one set of
// observers. A standalone object owns a private Center; on admission its
// subscriptions are moved to the store's Center with Transfer.
package observe
