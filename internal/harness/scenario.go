package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/ndc-test/internal/report"
	"github.com/roach88/ndc-test/internal/testutil"
)

// Scenario pairs a fake connector with the outcomes a run against it must
// produce.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario covers.
	Description string `yaml:"description"`

	// Fixture names the built-in connector fixture to serve.
	Fixture string `yaml:"fixture"`

	// Capabilities and Schema replace the fixture's documents when set.
	Capabilities string `yaml:"capabilities,omitempty"`
	Schema       string `yaml:"schema,omitempty"`

	// Faults are added to the fixture's faults.
	Faults []testutil.Fault `yaml:"faults,omitempty"`

	// Options tune the run.
	Options RunOptions `yaml:"options,omitempty"`

	// Expect is the required tally.
	Expect *Expectation `yaml:"expect"`

	// Assertions check individual outcomes and connector traffic.
	// Supported types: outcome, trace_order, trace_count, request_count
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// Golden compares the trace against testdata/golden/<name>.golden.
	Golden bool `yaml:"golden,omitempty"`
}

// RunOptions mirror the run flags of the CLI.
type RunOptions struct {
	RowLimit       int    `yaml:"row_limit,omitempty"`
	Concurrency    int    `yaml:"concurrency,omitempty"`
	SkipProcedures bool   `yaml:"skip_procedures,omitempty"`
	Stage          string `yaml:"stage,omitempty"`
}

// Expectation is the summary a scenario must end with.
type Expectation struct {
	Passed  int `yaml:"passed"`
	Failed  int `yaml:"failed"`
	Skipped int `yaml:"skipped"`

	// Unreachable expects the run to abort with report.ErrUnreachable.
	Unreachable bool `yaml:"unreachable,omitempty"`
}

// Assertion checks one aspect of a finished run.
type Assertion struct {
	// Type specifies the assertion type:
	// - "outcome": the outcome for Check has Status (and Kind, Reason)
	// - "trace_order": Checks appear in this relative order
	// - "trace_count": Check is recorded exactly Count times
	// - "request_count": the connector saw Count requests on Path
	Type string `yaml:"type"`

	Check  string `yaml:"check,omitempty"`
	Status string `yaml:"status,omitempty"`
	Kind   string `yaml:"kind,omitempty"`

	// Reason is matched as a substring.
	Reason string `yaml:"reason,omitempty"`

	Checks []string `yaml:"checks,omitempty"`
	Path   string   `yaml:"path,omitempty"`
	Count  int      `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertOutcome      = "outcome"
	AssertTraceOrder   = "trace_order"
	AssertTraceCount   = "trace_count"
	AssertRequestCount = "request_count"
)

var stages = map[string]Stage{
	"":         StageExecute,
	"execute":  StageExecute,
	"validate": StageValidate,
	"plan":     StagePlan,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict decoding catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// ConnectorFixture builds the fixture the scenario's fake connector serves.
func (s *Scenario) ConnectorFixture() (testutil.Fixture, error) {
	f, err := testutil.NamedFixture(s.Fixture)
	if err != nil {
		return testutil.Fixture{}, err
	}
	if s.Capabilities != "" {
		f.Capabilities = s.Capabilities
	}
	if s.Schema != "" {
		f.Schema = s.Schema
	}
	f.Faults = append(f.Faults, s.Faults...)
	return f, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Fixture == "" {
		return fmt.Errorf("fixture is required")
	}

	if s.Expect == nil {
		return fmt.Errorf("expect is required")
	}

	if _, ok := stages[s.Options.Stage]; !ok {
		return fmt.Errorf("options.stage: unknown stage %q", s.Options.Stage)
	}

	for i, f := range s.Faults {
		if f.Path == "" {
			return fmt.Errorf("faults[%d]: path is required", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertOutcome:
		if a.Check == "" {
			return fmt.Errorf("assertions[%d]: check is required for outcome", index)
		}
		switch report.Status(a.Status) {
		case report.StatusPass, report.StatusFail, report.StatusSkip:
		default:
			return fmt.Errorf("assertions[%d]: status must be pass, fail or skip", index)
		}
	case AssertTraceOrder:
		if len(a.Checks) == 0 {
			return fmt.Errorf("assertions[%d]: checks list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Check == "" {
			return fmt.Errorf("assertions[%d]: check is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertRequestCount:
		if a.Path == "" {
			return fmt.Errorf("assertions[%d]: path is required for request_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for request_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
