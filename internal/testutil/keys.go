package testutil

import (
	"fmt"
	"sync"
)

// FixedKeys generates predictable identifiers: "<prefix>-1", "<prefix>-2", ...
//
// It satisfies engine.KeyGenerator, so stores and standalone objects built
// with it produce byte-identical commit logs and golden traces.
//
// Thread-safety: FixedKeys is safe for concurrent use via internal mutex.
type FixedKeys struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewFixedKeys creates a generator with the given prefix.
// If prefix is empty, "key" is used.
func NewFixedKeys(prefix string) *FixedKeys {
	if prefix == "" {
		prefix = "key"
	}
	return &FixedKeys{prefix: prefix}
}

// Generate returns the next identifier.
func (g *FixedKeys) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
