package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	data := map[string]string{"result": "success"}
	err := formatter.Success(data)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error("E121", "evaluation failed", nil)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E121", resp.Error.Code)
	assert.Equal(t, "evaluation failed", resp.Error.Message)
	assert.Nil(t, resp.Error.Details)
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	err := formatter.Error("E112", "unknown hardware", map[string]string{"name": "cray"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [E112]: unknown hardware")
	assert.NotContains(t, buf.String(), "Details:")
}

func TestOutputFormatter_TextErrorVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: true,
	}

	err := formatter.Error("E112", "unknown hardware", map[string]string{"name": "cray"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Details:")
}

func TestOutputFormatter_Render(t *testing.T) {
	text := func(w io.Writer) error {
		_, err := fmt.Fprint(w, "human")
		return err
	}

	t.Run("text", func(t *testing.T) {
		buf := &bytes.Buffer{}
		f := &OutputFormatter{Format: "text", Writer: buf}
		require.NoError(t, f.Render(map[string]int{"n": 1}, text))
		assert.Equal(t, "human", buf.String())
	})

	t.Run("json", func(t *testing.T) {
		buf := &bytes.Buffer{}
		f := &OutputFormatter{Format: "json", Writer: buf}
		require.NoError(t, f.Render(map[string]int{"n": 1}, text))
		assert.JSONEq(t, `{"status":"ok","data":{"n":1}}`, buf.String())
	})
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
			out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:    "json",
				Writer:    out,
				ErrWriter: errOut,
				Verbose:   tt.verbose,
			}

			formatter.VerboseLog("Evaluating %s", "q6")

			assert.Empty(t, out.String(), "diagnostics never reach stdout")
			if tt.wantLog {
				assert.Contains(t, errOut.String(), "Evaluating q6")
			} else {
				assert.Empty(t, errOut.String())
			}
		})
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"plain", errors.New("boom"), ExitFailure},
		{"exit error", NewExitError(ExitCommandError, "bad path"), ExitCommandError},
		{"wrapped", fmt.Errorf("outer: %w", WrapExitError(ExitFailure, "failed", errors.New("inner"))), ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestExitErrorMessage(t *testing.T) {
	inner := errors.New("disk full")
	err := WrapExitError(ExitCommandError, "write failed", inner)
	assert.Equal(t, "write failed: disk full", err.Error())
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "bad path", NewExitError(ExitCommandError, "bad path").Error())
}

func TestWriteTable(t *testing.T) {
	buf := &bytes.Buffer{}
	err := writeTable(buf, []string{"NAME", "TOTAL"}, [][]string{
		{"predicated", formatCycles(5000)},
		{"b", formatCycles(6499.97043)},
	})
	require.NoError(t, err)
	assert.Equal(t, "NAME        TOTAL\npredicated  5000.00\nb           6499.97\n", buf.String())
}
