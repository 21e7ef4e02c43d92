package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/livedb/internal/ir"
)

// goldenDir holds one <scenario>.golden file per scenario. Regenerate with
//
//	go test ./internal/harness -update
const goldenDir = "testdata/golden"

// eventFields returns the canonical form of one trace event. Only the
// fields meaningful for the event's kind are present.
func eventFields(ev TraceEvent) map[string]any {
	fields := map[string]any{"seq": ev.Seq, "kind": ev.Kind}
	switch ev.Kind {
	case EventChange:
		fields["observer"] = ev.Observer
		fields["target"] = ev.Target
		fields["key_path"] = ev.KeyPath
		fields["old"] = ev.Old
		fields["new"] = ev.New
	case EventReopen:
		fields["objects"] = ev.Objects
		fields["commit_seq"] = ev.CommitSeq
	case EventCommit:
		fields["commit_seq"] = ev.CommitSeq
	}
	return fields
}

// MarshalTrace renders a scenario's trace as canonical JSON: sorted keys,
// no insignificant whitespace. Equal traces always marshal to equal bytes.
func MarshalTrace(scenarioName string, trace []TraceEvent) ([]byte, error) {
	events := make([]any, 0, len(trace))
	for _, ev := range trace {
		events = append(events, eventFields(ev))
	}
	return ir.MarshalCanonical(map[string]any{
		"scenario_name": scenarioName,
		"trace":         events,
	})
}

// RunWithGolden runs scenario and checks its trace against the scenario's
// golden file. A mismatch fails t; the returned error covers execution
// and marshalling only.
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(t.Context(), scenario, opts...)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden checks an already computed result against the golden file
// for scenarioName.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	got, err := MarshalTrace(scenarioName, result.Trace)
	if err != nil {
		return err
	}
	goldie.New(t,
		goldie.WithFixtureDir(goldenDir),
		goldie.WithNameSuffix(".golden"),
	).Assert(t, scenarioName, got)
	return nil
}
