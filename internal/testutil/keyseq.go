package testutil

import (
	"sync"

	"github.com/roach88/livedb/internal/ir"
)

// KeySequence hands out auto-incrementing primary keys for tests.
//
// Models with an integer primary key need a fresh key per object; tests
// draw them from a KeySequence so every run produces identical keys and
// therefore identical traces.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type KeySequence struct {
	mu   sync.Mutex
	next int64
}

// NewKeySequence creates a sequence whose first key is 1.
func NewKeySequence() *KeySequence {
	return &KeySequence{}
}

// Next returns the next key.
func (s *KeySequence) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return s.next
}

// NextValue returns the next key as an ir.Int64.
func (s *KeySequence) NextValue() ir.Value {
	return ir.Int64(s.Next())
}

// Current returns the last key handed out, or 0 if none.
func (s *KeySequence) Current() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

// Reset restarts the sequence. The next key is 1 again.
func (s *KeySequence) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next = 0
}
