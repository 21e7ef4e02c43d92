// Package ir provides the value and schema types shared by every livedb
// package.
//
// This package contains type definitions, value equality and the canonical
// value codec. All other internal packages import ir; ir imports nothing
// internal, so it stays the foundational layer.
//
// Key design constraints:
//   - Value is a sealed interface; only the kinds a schema can declare
//     implement it, plus Null for unset references
//   - Equality is semantic (numeric across widths, instants by time point,
//     references by type and key), never by Go identity
//   - Identity keys are compared through KeyString so an Int32 and an Int64
//     primary key with the same number address the same row
//   - Canonical JSON (sorted keys, NFC strings) is the only persisted form
package ir
