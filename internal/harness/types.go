package harness

import (
	"github.com/roach88/livedb/internal/ir"
)

// Trace event kinds.
const (
	EventChange = "change"
	EventCommit = "commit"
	EventCancel = "cancel"
	EventReopen = "reopen"
)

// TraceEvent is one entry of a scenario trace: a change delivered to a
// named observer, or a transaction boundary.
type TraceEvent struct {
	Seq       int64    `json:"seq"` // position in the trace, from 1
	Kind      string   `json:"kind"`
	Observer  string   `json:"observer,omitempty"`
	Target    string   `json:"target,omitempty"` // Type(key) the observer was registered on at delivery
	KeyPath   string   `json:"key_path,omitempty"`
	Old       ir.Value `json:"-"`
	New       ir.Value `json:"-"`
	CommitSeq int64    `json:"commit_seq,omitempty"` // commit and reopen
	Objects   int      `json:"objects,omitempty"`    // reopen
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every step behaved as expected and every assertion
	// held.
	Pass bool `json:"pass"`

	// Trace contains every event in delivery order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains step and assertion failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) add(ev TraceEvent) {
	ev.Seq = int64(len(r.Trace) + 1)
	r.Trace = append(r.Trace, ev)
}

// Changes returns the change events, optionally only those of observer.
func (r *Result) Changes(observer string) []TraceEvent {
	var out []TraceEvent
	for _, ev := range r.Trace {
		if ev.Kind == EventChange && (observer == "" || ev.Observer == observer) {
			out = append(out, ev)
		}
	}
	return out
}
