package engine

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
)

// identityMap maps (type, key) to the canonical row for that identity.
//
// INVARIANTS:
//   - At most one row per (type, key)
//   - Accessors never hold a *row; they hold (type, key, incarnation) and
//     resolve through the map on every access
//   - insert/remove happen only while a write transaction is active
type identityMap struct {
	byType map[string]map[string]*row
}

func newIdentityMap() *identityMap {
	return &identityMap{byType: make(map[string]map[string]*row)}
}

// insert adds r, failing with a duplicate key error if its identity is
// already taken.
func (m *identityMap) insert(r *row) error {
	typ := r.schema.Name
	rows := m.byType[typ]
	if rows == nil {
		rows = make(map[string]*row)
		m.byType[typ] = rows
	}
	if _, exists := rows[r.keyStr]; exists {
		return newDuplicateKeyError(typ, r.keyStr)
	}
	rows[r.keyStr] = r
	return nil
}

func (m *identityMap) lookup(typ, key string) *row {
	return m.byType[typ][key]
}

func (m *identityMap) remove(typ, key string) {
	delete(m.byType[typ], key)
}

// rowsOf returns the rows of typ in key order.
func (m *identityMap) rowsOf(typ string) []*row {
	rows := make([]*row, 0, len(m.byType[typ]))
	for _, r := range m.byType[typ] {
		rows = append(rows, r)
	}
	slices.SortFunc(rows, func(a, b *row) int {
		return compareKeyStrings(a.keyStr, b.keyStr)
	})
	return rows
}

func (m *identityMap) len() int {
	n := 0
	for _, rows := range m.byType {
		n += len(rows)
	}
	return n
}

// compareKeyStrings orders identity keys: integers numerically, then
// strings lexically.
func compareKeyStrings(a, b string) int {
	ai, aInt := intKey(a)
	bi, bInt := intKey(b)
	switch {
	case aInt && bInt:
		return cmp.Compare(ai, bi)
	case aInt:
		return -1
	case bInt:
		return 1
	default:
		return strings.Compare(a, b)
	}
}

func intKey(k string) (int64, bool) {
	if !strings.HasPrefix(k, "i:") {
		return 0, false
	}
	n, err := strconv.ParseInt(k[2:], 10, 64)
	return n, err == nil
}
