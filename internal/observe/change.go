package observe

import (
	"fmt"

	"github.com/roach88/livedb/internal/ir"
)

// Target identifies the object observers are registered on.
// Key is the ir.KeyString form of the object's identity key.
type Target struct {
	Type string `json:"type"`
	Key  string `json:"key"`
}

func (t Target) String() string {
	return fmt.Sprintf("%s(%s)", t.Type, t.Key)
}

// Change is the payload delivered to observers: one per tracked mutation.
type Change struct {
	Target  Target
	KeyPath string
	Old     ir.Value
	New     ir.Value
}

func (c Change) String() string {
	return fmt.Sprintf("%s.%s: %s -> %s", c.Target, c.KeyPath, ir.Format(c.Old), ir.Format(c.New))
}

// Observer receives changes. It runs synchronously inside the mutating
// call and may itself mutate observed objects.
type Observer func(Change)
