package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/livedb/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s\n", event.Seq, event)
	}
	return buf.String()
}

// String renders an event on one line.
func (ev TraceEvent) String() string {
	switch ev.Kind {
	case EventChange:
		return fmt.Sprintf("%s: %s.%s %s -> %s", ev.Observer, ev.Target, ev.KeyPath, ir.Format(ev.Old), ir.Format(ev.New))
	case EventCommit:
		return fmt.Sprintf("commit seq=%d", ev.CommitSeq)
	case EventReopen:
		return fmt.Sprintf("reopen seq=%d objects=%d", ev.CommitSeq, ev.Objects)
	}
	return ev.Kind
}

// assertEventCount checks the number of events of a kind.
func assertEventCount(trace []TraceEvent, a Assertion) error {
	kind := a.Kind
	if kind == "" {
		kind = EventChange
	}
	count := 0
	for _, ev := range trace {
		if ev.Kind == kind && (a.Observer == "" || ev.Observer == a.Observer) {
			count++
		}
	}
	if count == a.Count {
		return nil
	}

	subject := kind + " events"
	if a.Observer != "" {
		subject += " for " + a.Observer
	}
	return &AssertionError{
		Type:     AssertEventCount,
		Expected: fmt.Sprintf("%d %s", a.Count, subject),
		Actual:   fmt.Sprintf("%d %s", count, subject),
		Trace:    trace,
	}
}

// assertEvents checks the change sequence, position by position.
func assertEvents(trace []TraceEvent, a Assertion) error {
	var changes []TraceEvent
	for _, ev := range trace {
		if ev.Kind == EventChange && (a.Observer == "" || ev.Observer == a.Observer) {
			changes = append(changes, ev)
		}
	}

	if len(changes) != len(a.Events) {
		return &AssertionError{
			Type:     AssertEvents,
			Expected: fmt.Sprintf("%d change events", len(a.Events)),
			Actual:   fmt.Sprintf("%d change events", len(changes)),
			Trace:    trace,
		}
	}
	for i, want := range a.Events {
		if msg := matchEvent(changes[i], want); msg != "" {
			return &AssertionError{
				Type:     AssertEvents,
				Expected: fmt.Sprintf("event %d %s", i+1, msg),
				Actual:   changes[i].String(),
				Trace:    trace,
			}
		}
	}
	return nil
}

// matchEvent returns a description of the first mismatching field, or "".
func matchEvent(ev TraceEvent, want ExpectedEvent) string {
	switch {
	case want.Observer != "" && ev.Observer != want.Observer:
		return "observer " + want.Observer
	case want.Target != "" && ev.Target != want.Target:
		return "target " + want.Target
	case want.KeyPath != "" && ev.KeyPath != want.KeyPath:
		return "key_path " + want.KeyPath
	case want.Old != nil && !valueMatches(ev.Old, want.Old):
		return fmt.Sprintf("old %v", want.Old)
	case want.New != nil && !valueMatches(ev.New, want.New):
		return fmt.Sprintf("new %v", want.New)
	}
	return ""
}

// valueMatches compares a delivered value with a YAML expectation.
// Links compare by their Format string ("KVOObject(2)", or a list of
// them); scalars are converted to the delivered kind first.
func valueMatches(got ir.Value, want any) bool {
	switch v := got.(type) {
	case nil, ir.Null:
		return want == nil || want == "null"
	case ir.Ref:
		return fmt.Sprint(want) == ir.Format(v)
	case ir.List:
		items, ok := want.([]any)
		if !ok || len(items) != len(v) {
			return false
		}
		for i, item := range items {
			if fmt.Sprint(item) != ir.Format(v[i]) {
				return false
			}
		}
		return true
	}
	converted, err := ir.FromGo(ir.KindOf(got), want)
	if err != nil {
		return false
	}
	return ir.Equal(converted, got)
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertEventCount:
			err = assertEventCount(result.Trace, assertion)
		case AssertEvents:
			err = assertEvents(result.Trace, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
