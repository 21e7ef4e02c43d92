// Package engine implements the livedb object engine: standalone objects,
// the identity map of persisted rows, accessors, the write transaction and
// change notification.
//
// LIFECYCLE:
//
// A standalone object is created with NewObject (or Store.Create) from a
// model schema. It starts at the schema defaults, owns its values, can be
// observed and mutated without a transaction, and never touches a store.
//
// Store.Add, inside a write transaction, copies a standalone object into a
// new row, inserts the row into the identity map under (type, key) and
// returns a persisted Accessor. Standalone objects reachable through links
// are admitted with it. Observers of the standalone object move to the row.
//
// Persisted accessors hold (type, key, incarnation) and resolve the row on
// every access. Any number of them may exist for one row; a write through
// one is immediately visible through all, and each observer of the row is
// notified exactly once.
//
// CommitWrite hands every created and modified row to the Persister and
// keeps the state. CancelWrite removes rows created in the transaction
// (their accessors become detached) and restores the pre-images of the
// others, without notifying.
//
// NOTIFICATION:
//
// Every Set of a tracked property delivers one observe.Change{Old, New} to
// each observer of (object, property), synchronously, after the write and
// before Set returns. There is no de-duplication: writing an equal value
// still notifies. Ignored properties live in per-accessor local slots and
// never notify.
//
// CONCURRENCY:
//
// Single writer per store. State transitions are serialized by a mutex,
// so a second BeginWrite fails fast. Observers run on the mutating
// goroutine and may re-enter the store.
package engine
