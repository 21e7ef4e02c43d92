package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScenario writes a scenario file next to a copy of the test models
// and returns its path.
func writeScenario(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	models, err := os.ReadFile(filepath.Join("testdata", "models", "kvo.cue"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "kvo.cue"), models, 0o644))

	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario_Valid(t *testing.T) {
	path := writeScenario(t, `
name: valid
description: "A valid scenario"
models: [kvo.cue]
persist: true
steps:
  - op: begin
  - op: create
    type: KVOObject
    values: { pk: 1, stringCol: "x" }
    as: a
  - op: add
    object: a
  - op: set
    object: a
    key_path: stringCol
    value: "y"
    expect:
      error: NO_ACTIVE_TRANSACTION
assertions:
  - type: event_count
    count: 0
`)

	s, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "valid", s.Name)
	assert.True(t, s.Persist)
	assert.Equal(t, []string{filepath.Join(filepath.Dir(path), "kvo.cue")}, s.Models)
	require.Len(t, s.Steps, 4)
	assert.Equal(t, OpCreate, s.Steps[1].Op)
	assert.Equal(t, map[string]any{"pk": 1, "stringCol": "x"}, s.Steps[1].Values)
	require.NotNil(t, s.Steps[3].Expect)
	assert.Equal(t, "NO_ACTIVE_TRANSACTION", s.Steps[3].Expect.Error)
	require.Len(t, s.Assertions, 1)
	assert.Equal(t, AssertEventCount, s.Assertions[0].Type)
}

func TestLoadScenario_CheckedInScenarios(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		_, err := LoadScenario(path)
		assert.NoError(t, err, path)
	}
}

func TestLoadScenario_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "unknown field",
			content: "name: x\ndescription: d\nmodels: [kvo.cue]\nstep: []\n",
			wantErr: "field step not found",
		},
		{
			name:    "missing name",
			content: "description: d\nmodels: [kvo.cue]\nsteps: [{op: begin}]\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			content: "name: x\nmodels: [kvo.cue]\nsteps: [{op: begin}]\n",
			wantErr: "description is required",
		},
		{
			name:    "missing models",
			content: "name: x\ndescription: d\nsteps: [{op: begin}]\n",
			wantErr: "models list is required",
		},
		{
			name:    "model not found",
			content: "name: x\ndescription: d\nmodels: [nope.cue]\nsteps: [{op: begin}]\n",
			wantErr: "model path not found",
		},
		{
			name:    "no steps",
			content: "name: x\ndescription: d\nmodels: [kvo.cue]\n",
			wantErr: "steps list is required",
		},
		{
			name:    "missing op",
			content: "name: x\ndescription: d\nmodels: [kvo.cue]\nsteps: [{object: a}]\n",
			wantErr: "steps[0]: op is required",
		},
		{
			name:    "unknown op",
			content: "name: x\ndescription: d\nmodels: [kvo.cue]\nsteps: [{op: jump}]\n",
			wantErr: `unknown op "jump"`,
		},
		{
			name:    "create without as",
			content: "name: x\ndescription: d\nmodels: [kvo.cue]\nsteps: [{op: create, type: KVOObject}]\n",
			wantErr: "as is required for create",
		},
		{
			name:    "set with two sources",
			content: "name: x\ndescription: d\nmodels: [kvo.cue]\nsteps: [{op: set, object: a, key_path: objectCol, ref: b, clear: true}]\n",
			wantErr: "exactly one of value, ref, refs, clear",
		},
		{
			name:    "lookup without key",
			content: "name: x\ndescription: d\nmodels: [kvo.cue]\nsteps: [{op: lookup, type: KVOObject, as: a}]\n",
			wantErr: "key is required for lookup",
		},
		{
			name:    "reopen without persist",
			content: "name: x\ndescription: d\nmodels: [kvo.cue]\nsteps: [{op: reopen}]\n",
			wantErr: "reopen requires persist",
		},
		{
			name:    "unknown assertion",
			content: "name: x\ndescription: d\nmodels: [kvo.cue]\nsteps: [{op: begin}]\nassertions: [{type: trace_order}]\n",
			wantErr: `unknown assertion type "trace_order"`,
		},
		{
			name:    "negative count",
			content: "name: x\ndescription: d\nmodels: [kvo.cue]\nsteps: [{op: begin}]\nassertions: [{type: event_count, count: -1}]\n",
			wantErr: "count must be non-negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}
