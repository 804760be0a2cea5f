package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ndc-test/internal/testutil"
)

// writeScenario writes content to a scenario file in a temp directory.
func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	path := writeScenario(t, `
name: test_scenario
description: "Test scenario for validation"
fixture: articles
options:
  row_limit: 5
  concurrency: 2
faults:
  - path: query
    target: articles
    drop_column: title
expect:
  passed: 18
  failed: 2
  skipped: 0
assertions:
  - type: outcome
    check: query articles
    status: fail
    kind: shape_mismatch
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "Test scenario for validation", scenario.Description)
	assert.Equal(t, "articles", scenario.Fixture)
	assert.Equal(t, 5, scenario.Options.RowLimit)
	assert.Equal(t, 2, scenario.Options.Concurrency)
	require.Len(t, scenario.Faults, 1)
	assert.Equal(t, "title", scenario.Faults[0].DropColumn)
	require.NotNil(t, scenario.Expect)
	assert.Equal(t, 2, scenario.Expect.Failed)
	require.Len(t, scenario.Assertions, 1)
	assert.Equal(t, AssertOutcome, scenario.Assertions[0].Type)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := writeScenario(t, `
name: test
description: "Typo in assertions key"
fixture: articles
expect:
  passed: 0
  failed: 0
  skipped: 0
assertion:
  - type: outcome
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_RequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name: "missing name",
			content: `
description: "x"
fixture: articles
expect: {passed: 0, failed: 0, skipped: 0}
`,
			want: "name is required",
		},
		{
			name: "missing description",
			content: `
name: test
fixture: articles
expect: {passed: 0, failed: 0, skipped: 0}
`,
			want: "description is required",
		},
		{
			name: "missing fixture",
			content: `
name: test
description: "x"
expect: {passed: 0, failed: 0, skipped: 0}
`,
			want: "fixture is required",
		},
		{
			name: "missing expect",
			content: `
name: test
description: "x"
fixture: articles
`,
			want: "expect is required",
		},
		{
			name: "unknown stage",
			content: `
name: test
description: "x"
fixture: articles
options: {stage: deploy}
expect: {passed: 0, failed: 0, skipped: 0}
`,
			want: `unknown stage "deploy"`,
		},
		{
			name: "fault without path",
			content: `
name: test
description: "x"
fixture: articles
faults:
  - disconnect: true
expect: {passed: 0, failed: 0, skipped: 0}
`,
			want: "faults[0]: path is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateAssertion(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
		want      string
	}{
		{"missing type", Assertion{}, "type is required"},
		{"unknown type", Assertion{Type: "trace_contains"}, `unknown assertion type "trace_contains"`},
		{"outcome without check", Assertion{Type: AssertOutcome, Status: "pass"}, "check is required for outcome"},
		{"outcome bad status", Assertion{Type: AssertOutcome, Check: "schema", Status: "ok"}, "status must be pass, fail or skip"},
		{"trace_order without checks", Assertion{Type: AssertTraceOrder}, "checks list is required"},
		{"trace_count without check", Assertion{Type: AssertTraceCount}, "check is required for trace_count"},
		{"trace_count negative", Assertion{Type: AssertTraceCount, Check: "schema", Count: -1}, "count must be non-negative"},
		{"request_count without path", Assertion{Type: AssertRequestCount}, "path is required"},
		{"request_count negative", Assertion{Type: AssertRequestCount, Path: "query", Count: -1}, "count must be non-negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateAssertion(3, &tt.assertion)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "assertions[3]")
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	valid := []Assertion{
		{Type: AssertOutcome, Check: "schema", Status: "skip"},
		{Type: AssertTraceOrder, Checks: []string{"capabilities", "schema"}},
		{Type: AssertTraceCount, Check: "schema", Count: 0},
		{Type: AssertRequestCount, Path: "query", Count: 4},
	}
	for i := range valid {
		assert.NoError(t, validateAssertion(i, &valid[i]))
	}
}

func TestScenario_ConnectorFixture(t *testing.T) {
	scenario := &Scenario{
		Fixture:      "articles",
		Capabilities: `{"version": "0.1.6", "capabilities": {}}`,
		Faults:       []testutil.Fault{{Path: "schema", Disconnect: true}},
	}

	f, err := scenario.ConnectorFixture()
	require.NoError(t, err)

	assert.Equal(t, scenario.Capabilities, f.Capabilities)
	assert.Contains(t, f.Schema, "articles", "schema comes from the fixture")
	require.NotEmpty(t, f.Faults)
	assert.Equal(t, "schema", f.Faults[len(f.Faults)-1].Path)
}

func TestScenario_ConnectorFixture_Unknown(t *testing.T) {
	scenario := &Scenario{Fixture: "warehouse"}
	_, err := scenario.ConnectorFixture()
	assert.Error(t, err)
}

func TestLoadScenario_CheckedInScenarios(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	names := make(map[string]string)
	for _, path := range paths {
		scenario, err := LoadScenario(path)
		require.NoError(t, err, path)

		base := filepath.Base(path)
		assert.Equal(t, base[:len(base)-len(".yaml")], scenario.Name, "scenario name matches file name")
		if prev, dup := names[scenario.Name]; dup {
			t.Errorf("scenario %q defined in both %s and %s", scenario.Name, prev, path)
		}
		names[scenario.Name] = path
	}
}
