// Package store provides SQLite-backed durable storage for committed
// objects.
//
// The store keeps the latest committed image of every object:
//   - Commits: one row per committed write transaction, keyed by seq
//   - Objects: one row per (type, key) with the canonical JSON payload of
//     its tracked properties and a digest of it
//
// Store implements engine.Persister and engine.Loader, so a store can be
// handed to engine.Open and engine.WithPersister directly.
//
// # Ordering
//
// All ordering uses the commit seq (logical clock) and the (type, key)
// identity, never timestamps. Queries order by key COLLATE BINARY so
// results are identical across runs.
//
// # Integrity
//
// Payloads are written with ir.MarshalObject and stored with
// ir.ObjectDigest over (type, key, payload). Load recomputes the digest
// and refuses rows that do not verify.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: objects must reference an existing commit
//
// Two drivers are supported: mattn/go-sqlite3 ("sqlite3", cgo, the default)
// and modernc.org/sqlite ("sqlite", pure Go).
package store
