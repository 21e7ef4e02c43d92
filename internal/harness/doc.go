// Package harness runs YAML scenarios against the livedb engine.
//
// A scenario loads CUE models, drives a store through a sequence of steps
// and records every notification delivered to the observers it registers.
// The recorded trace is checked by assertions and compared with golden
// files.
//
// # Scenario Format
//
//	name: set_notifies
//	description: "A persisted set notifies the observer"
//	models:
//	  - ../models/kvo.cue
//	persist: true            # commit into an in-memory SQLite store
//	steps:
//	  - op: begin
//	  - op: create
//	    type: KVOObject
//	    values: { pk: 1 }
//	    as: a
//	  - op: add
//	    object: a
//	  - op: observe
//	    object: a
//	    key_path: stringCol
//	    as: watcher
//	  - op: set
//	    object: a
//	    key_path: stringCol
//	    value: "hello"
//	  - op: commit
//	assertions:
//	  - type: event_count
//	    observer: watcher
//	    count: 1
//
// # Steps
//
//   - begin, commit, cancel: transaction control
//   - create: standalone object of type with values, bound to as
//   - add: admit object; as (default: object) is rebound to the row
//   - lookup: object of type with primary key key, bound to as
//   - set: write value, link ref, link refs, or clear a link
//   - append: add ref to the end of a list property
//   - get: read key_path and compare with expect
//   - set_local, get_local: ignored property slots
//   - observe, unobserve: register or cancel the observer named as
//   - reopen: reload the store from SQLite (persist only)
//
// Any step may carry expect.error with an engine error code. A step that
// fails unexpectedly stops the scenario.
//
// # Assertion Types
//
//   - event_count: number of events of a kind (default change), optionally
//     for one observer
//   - events: the exact sequence of change events, optionally for one
//     observer; only the fields given are compared
//
// # Deterministic Testing
//
// Commit IDs and generated object keys come from testutil.FixedKeys, and
// the SQLite store is in memory, so a scenario produces the same trace on
// every run.
package harness
