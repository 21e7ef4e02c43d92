package harness

import (
	"bytes"
	"cmp"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines one engine scenario: models, steps and the assertions
// checked against the resulting trace.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Models lists CUE files or directories declaring the models.
	// Relative paths are resolved against the scenario file.
	Models []string `yaml:"models"`

	// Persist commits into an in-memory SQLite store and enables reopen.
	Persist bool `yaml:"persist,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the trace after all steps succeeded.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is a single operation on the store or an object.
type Step struct {
	// Op is one of the Op* constants.
	Op string `yaml:"op"`

	// Type is the model type (create, lookup).
	Type string `yaml:"type,omitempty"`

	// Object names a bound object handle.
	Object string `yaml:"object,omitempty"`

	// As names the handle or observer the step binds.
	As string `yaml:"as,omitempty"`

	// KeyPath is the property the step reads, writes or observes.
	KeyPath string `yaml:"key_path,omitempty"`

	// Key is the primary key (lookup).
	Key any `yaml:"key,omitempty"`

	// Values initialise a created object. Links cannot be set here.
	Values map[string]any `yaml:"values,omitempty"`

	// Value is the scalar written by set and set_local.
	Value any `yaml:"value,omitempty"`

	// Ref names the object linked by set or append.
	Ref string `yaml:"ref,omitempty"`

	// Refs names the objects a list property is set to.
	Refs []string `yaml:"refs,omitempty"`

	// Clear sets a reference to null or a list to empty.
	Clear bool `yaml:"clear,omitempty"`

	// Observer names the observer to cancel (unobserve).
	Observer string `yaml:"observer,omitempty"`

	// Expect checks the outcome of the step.
	Expect *StepExpect `yaml:"expect,omitempty"`
}

// StepExpect specifies the expected outcome of a step.
type StepExpect struct {
	// Error is the expected engine error code, e.g. DUPLICATE_KEY.
	Error string `yaml:"error,omitempty"`

	// Value is the expected scalar (get, get_local).
	Value any `yaml:"value,omitempty"`

	// Ref names the object a reference is expected to point to (get).
	Ref string `yaml:"ref,omitempty"`

	// Refs names the objects a list is expected to hold (get).
	Refs []string `yaml:"refs,omitempty"`

	// Null expects a null reference (get).
	Null bool `yaml:"null,omitempty"`

	// Missing expects lookup to find nothing.
	Missing bool `yaml:"missing,omitempty"`
}

// Assertion validates the trace.
type Assertion struct {
	// Type is AssertEventCount or AssertEvents.
	Type string `yaml:"type"`

	// Observer restricts the assertion to one observer's events.
	Observer string `yaml:"observer,omitempty"`

	// Kind is the event kind counted by event_count. Default: change.
	Kind string `yaml:"kind,omitempty"`

	// Count is the expected number of events (event_count).
	Count int `yaml:"count,omitempty"`

	// Events is the expected change sequence (events).
	Events []ExpectedEvent `yaml:"events,omitempty"`
}

// ExpectedEvent is a change event pattern. Empty fields match anything.
// Old and New are YAML scalars for scalar properties and Format strings
// such as "KVOObject(2)" for links.
type ExpectedEvent struct {
	Observer string `yaml:"observer,omitempty"`
	Target   string `yaml:"target,omitempty"`
	KeyPath  string `yaml:"key_path,omitempty"`
	Old      any    `yaml:"old,omitempty"`
	New      any    `yaml:"new,omitempty"`
}

// Step operations.
const (
	OpBegin     = "begin"
	OpCommit    = "commit"
	OpCancel    = "cancel"
	OpCreate    = "create"
	OpAdd       = "add"
	OpLookup    = "lookup"
	OpSet       = "set"
	OpAppend    = "append"
	OpGet       = "get"
	OpSetLocal  = "set_local"
	OpGetLocal  = "get_local"
	OpObserve   = "observe"
	OpUnobserve = "unobserve"
	OpReopen    = "reopen"
)

// Assertion types.
const (
	AssertEventCount = "event_count"
	AssertEvents     = "events"
)

// LoadScenario reads and parses a scenario YAML file. Model paths are
// resolved against the file's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving model paths relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict decoding catches typos like "step:" vs "steps:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	for i, p := range scenario.Models {
		if !filepath.IsAbs(p) && basePath != "" {
			scenario.Models[i] = filepath.Join(basePath, p)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Models) == 0 {
		return fmt.Errorf("models list is required and must be non-empty")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for _, p := range s.Models {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return fmt.Errorf("model path not found: %s", p)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(step, s.Persist); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateStep(step Step, persist bool) error {
	require := func(field, value string) error {
		if value == "" {
			return fmt.Errorf("%s is required for %s", field, step.Op)
		}
		return nil
	}

	switch step.Op {
	case OpBegin, OpCommit, OpCancel:
		return nil
	case OpReopen:
		if !persist {
			return fmt.Errorf("reopen requires persist: true")
		}
		return nil
	case OpCreate:
		if err := require("type", step.Type); err != nil {
			return err
		}
		return require("as", step.As)
	case OpAdd:
		return require("object", step.Object)
	case OpLookup:
		if err := require("type", step.Type); err != nil {
			return err
		}
		if step.Key == nil {
			return fmt.Errorf("key is required for lookup")
		}
		return require("as", step.As)
	case OpSet:
		if err := cmp.Or(require("object", step.Object), require("key_path", step.KeyPath)); err != nil {
			return err
		}
		n := 0
		for _, given := range []bool{step.Value != nil, step.Ref != "", step.Refs != nil, step.Clear} {
			if given {
				n++
			}
		}
		if n != 1 {
			return fmt.Errorf("set needs exactly one of value, ref, refs, clear")
		}
		return nil
	case OpAppend:
		if err := cmp.Or(require("object", step.Object), require("key_path", step.KeyPath)); err != nil {
			return err
		}
		return require("ref", step.Ref)
	case OpGet, OpGetLocal:
		return cmp.Or(require("object", step.Object), require("key_path", step.KeyPath))
	case OpSetLocal:
		if err := cmp.Or(require("object", step.Object), require("key_path", step.KeyPath)); err != nil {
			return err
		}
		if step.Value == nil {
			return fmt.Errorf("value is required for set_local")
		}
		return nil
	case OpObserve:
		if err := cmp.Or(require("object", step.Object), require("key_path", step.KeyPath)); err != nil {
			return err
		}
		return require("as", step.As)
	case OpUnobserve:
		return require("observer", step.Observer)
	case "":
		return fmt.Errorf("op is required")
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertEventCount:
		if a.Count < 0 {
			return fmt.Errorf("count must be non-negative for event_count")
		}
	case AssertEvents:
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
