package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dacore/internal/dberr"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Success([]string{"cities", "roads"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, []any{"cities", "roads"}, resp.Data)
	assert.Nil(t, resp.Error)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Error(ErrCodeUnknownSource, "unknown data source", nil))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E004", resp.Error.Code)
	assert.Equal(t, "unknown data source", resp.Error.Message)
	assert.Nil(t, resp.Error.Details)
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Error(ErrCodeGeneric, "query failed", map[string]string{"op": "x"}))
	assert.Equal(t, "Error [E001]: query failed\n", buf.String())
}

func TestOutputFormatter_TextErrorVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf, Verbose: true}

	require.NoError(t, formatter.Error(ErrCodeGeneric, "query failed", map[string]string{"op": "x"}))
	assert.Contains(t, buf.String(), "Error [E001]")
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
			out, diag := &bytes.Buffer{}, &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "json", Writer: out, ErrWriter: diag, Verbose: tt.verbose}

			formatter.VerboseLog("opening %s", "local")

			assert.Empty(t, out.String())
			if tt.wantLog {
				assert.Equal(t, "opening local\n", diag.String())
			} else {
				assert.Empty(t, diag.String())
			}
		})
	}
}

func TestOutputFormatter_Table(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Table(
		[]string{"NAME", "POPULATION"},
		[][]string{{"Oslo", "709037"}, {"Tromsø", "77544"}},
	))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "NAME"))
	assert.Equal(t, strings.Index(lines[0], "POPULATION"), strings.Index(lines[1], "709037"))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
		wantExit int
	}{
		{"plain", errors.New("boom"), ErrCodeGeneric, ExitCommandError},
		{"connection", dberr.NewConnectionError("SQLITE", "open", errors.New("refused")), ErrCodeConnection, ExitFailure},
		{"wrapped query", fmt.Errorf("run: %w", dberr.NewQueryError("SQLITE", "query", errors.New("no such table"))), ErrCodeQuery, ExitFailure},
		{"unsupported", dberr.NewUnsupportedError("WFS", "SQL statements"), ErrCodeUnsupported, ExitCommandError},
		{"invalid", dberr.NewInvalidExpressionError("parse", "bad"), ErrCodeInvalidExpr, ExitCommandError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, exit := classify(tt.err, ErrCodeGeneric)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantExit, exit)
		})
	}
}

func TestOutputFormatter_Fail(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	cause := dberr.NewUnsupportedError("WFS", "SQL statements")
	err := formatter.Fail(ErrCodeGeneric, "failed to render", cause)

	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.ErrorIs(t, err, cause)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeUnsupported, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "failed to render")
	assert.Equal(t, map[string]any{
		"category": "UNSUPPORTED_OPERATION",
		"backend":  "WFS",
		"op":       "SQL statements",
	}, resp.Error.Details)
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad flag")))
	assert.Equal(t, ExitFailure, GetExitCode(WrapExitError(ExitFailure, "query failed", errors.New("x"))))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("other")))
	assert.Equal(t, "query failed: x", WrapExitError(ExitFailure, "query failed", errors.New("x")).Error())
}
