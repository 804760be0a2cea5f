package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/roach88/ndc-test/internal/report"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Success(map[string]string{"result": "success"})
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error(ErrCodeUnreachable, "connector unreachable", []string{"dial tcp: refused"})
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeUnreachable, resp.Error.Code)
	assert.Equal(t, "connector unreachable", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_YAMLSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "yaml",
		Writer: buf,
	}

	err := formatter.Success(map[string]int{"passed": 20})
	require.NoError(t, err)

	var resp map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, map[string]any{"passed": 20}, resp["data"])
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	require.NoError(t, formatter.Success("connector conforms"))
	assert.Contains(t, buf.String(), "connector conforms")
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	require.NoError(t, formatter.Error(ErrCodeGeneric, "bad flag", map[string]string{"flag": "row-limit"}))
	assert.Contains(t, buf.String(), "Error [E_ERROR]")
	assert.Contains(t, buf.String(), "bad flag")
	assert.NotContains(t, buf.String(), "Details:")
}

func TestOutputFormatter_TextErrorVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: true,
	}

	require.NoError(t, formatter.Error(ErrCodeGeneric, "bad flag", map[string]string{"flag": "row-limit"}))
	assert.Contains(t, buf.String(), "Details:")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			errBuf := &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:    "json",
				Writer:    buf,
				ErrWriter: errBuf,
				Verbose:   tt.verbose,
			}

			formatter.VerboseLog("fetching %s", "schema")

			assert.Empty(t, buf.String(), "diagnostics never corrupt structured output")
			if tt.wantLog {
				assert.Contains(t, errBuf.String(), "fetching schema")
			} else {
				assert.Empty(t, errBuf.String())
			}
		})
	}
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitFailure, GetExitCode(NewExitError(ExitFailure, "2 check(s) failed")))
	assert.Equal(t, ExitCommandError, GetExitCode(WrapExitError(ExitCommandError, "connector unreachable", errors.New("refused"))))

	wrapped := fmt.Errorf("outer: %w", NewExitError(ExitCommandError, "config"))
	assert.Equal(t, ExitCommandError, GetExitCode(wrapped))
}

func TestExitError_Message(t *testing.T) {
	err := WrapExitError(ExitCommandError, "connector unreachable", errors.New("dial tcp: refused"))
	assert.Equal(t, "connector unreachable: dial tcp: refused", err.Error())
	assert.Equal(t, "dial tcp: refused", errors.Unwrap(err).Error())

	assert.Equal(t, "1 check(s) failed", NewExitError(ExitFailure, "1 check(s) failed").Error())
}

func TestOutcomeLine(t *testing.T) {
	assert.Contains(t, OutcomeLine(report.Pass("schema")), "✓ schema")
	assert.Contains(t, OutcomeLine(report.Skip("query x", "requires arguments")), "- query x (skipped: requires arguments)")
	assert.Contains(t, OutcomeLine(report.Fail("query y", report.KindTransport, "status 500")), "✗ query y [transport]: status 500")
}

func TestSummaryLine(t *testing.T) {
	assert.Contains(t, SummaryLine(report.Summary{Passed: 3, Skipped: 1}), "passed: 3, failed: 0, skipped: 1")
	assert.Contains(t, SummaryLine(report.Summary{Failed: 2}), "failed: 2")
}
