package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenarioHardware = `hardware_config:
  name: test
  clock_frequency: 1000000000
  cache_line_size: 64
  cache_sizes: [8, 64]
  latencies: [1, 4, 40]
  throughputs: [4000000000, 2000000000, 500000000]
`

const scenarioPrograms = `programs:
  - name: branched
    vectors:
      V0: {length: 1000, elem_size: 4}
      V1: {length: 1000, elem_size: 4}
    root:
      op: for
      iters: 1000
      index: i
      body:
        op: if
        selectivity: 0.5
        cond: {op: gt, args: [{op: lookup, vector: V0}, {op: lit}]}
        then: {op: add, args: [{op: lookup, vector: V1}, {op: lit}]}
        else: {op: lit}
  - name: predicated
    vectors:
      V0: {length: 1000, elem_size: 4}
      V1: {length: 1000, elem_size: 4}
    root:
      op: for
      iters: 1000
      index: i
      body:
        op: mul
        args:
          - {op: gt, args: [{op: lookup, vector: V0}, {op: lit}]}
          - {op: add, args: [{op: lookup, vector: V1}, {op: lit}]}
`

// writeScenario writes a scenario asserting that program is cheaper than
// than.
func writeScenario(t *testing.T, dir, name, program, than string) {
	t.Helper()
	content := "name: " + name + "\n" +
		"description: branch against predication\n" +
		scenarioHardware + scenarioPrograms +
		"assertions:\n" +
		"  - {type: cost_less, program: " + program + ", than: " + than + "}\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".yaml"), []byte(content), 0o644))
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := execute(t, "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	_, err := execute(t, "test", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandEmptyScenariosDir(t *testing.T) {
	out, err := execute(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTestCommandEmptyScenariosDirJSON(t *testing.T) {
	out, err := execute(t, "test", t.TempDir(), "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Zero(t, resp.Data.Total)
}

func TestTestCommandPassing(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "predicate_wins", "predicated", "branched")

	out, err := execute(t, "test", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "\u2713 predicate_wins")
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
	assert.Contains(t, out, "\u2713 All scenarios passed")
}

func TestTestCommandFailingAssertion(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "branch_wins", "branched", "predicated")

	out, err := execute(t, "test", dir, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
	assert.Equal(t, 1, resp.Data.Failed)
	require.Len(t, resp.Data.Scenarios, 1)
	require.Len(t, resp.Data.Scenarios[0].Errors, 1)
	assert.Contains(t, resp.Data.Scenarios[0].Errors[0], "cost_less")
}

func TestTestCommandGolden(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "predicate_wins", "predicated", "branched")
	goldenPath := filepath.Join(dir, "golden", "predicate_wins.golden")

	out, err := execute(t, "test", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "(golden updated)")

	golden, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.Contains(t, string(golden), `"name":"predicated"`)
	assert.Contains(t, string(golden), `"total":5000`)

	// The golden directory is not itself scanned for scenarios.
	_, err = execute(t, "test", dir)
	require.NoError(t, err)

	tampered := strings.Replace(string(golden), `"total":5000`, `"total":5001`, 1)
	require.NoError(t, os.WriteFile(goldenPath, []byte(tampered), 0o644))

	out, err = execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "\u2717 predicate_wins")
	assert.Contains(t, out, "does not match golden file")
}

func TestTestCommandFilter(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "predicate_wins", "predicated", "branched")
	writeScenario(t, dir, "branch_wins", "branched", "predicated")

	out, err := execute(t, "test", dir, "--filter", "predicate_*")
	require.NoError(t, err)
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestTestCommandBadScenario(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("name: bad\n"), 0o644))

	out, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "\u2717 bad.yaml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestFindScenarioFiles(t *testing.T) {
	tmpDir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "test1.yaml"), []byte(""), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "test2.yml"), []byte(""), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "ignore.txt"), []byte(""), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, "golden"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "golden", "nested.yaml"), []byte(""), 0o644))

	files, err := findScenarioFiles(tmpDir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(tmpDir, "test1.yaml"),
		filepath.Join(tmpDir, "test2.yml"),
	}, files)
}

func TestFindScenarioFilesWithFilter(t *testing.T) {
	tmpDir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "branch-50.yaml"), []byte(""), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "branch-99.yaml"), []byte(""), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "loops.yaml"), []byte(""), 0o644))

	files, err := findScenarioFiles(tmpDir, "branch-*")
	require.NoError(t, err)
	assert.Len(t, files, 2)
	for _, f := range files {
		assert.True(t, strings.HasPrefix(filepath.Base(f), "branch-"), f)
	}

	_, err = findScenarioFiles(tmpDir, "[")
	assert.ErrorContains(t, err, "invalid filter pattern")
}

func TestGoldenFilePath(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"/path/to/scenario.yaml", "/path/to/golden/scenario.golden"},
		{"/path/to/scenario.yml", "/path/to/golden/scenario.golden"},
		{"scenarios/test.yaml", "scenarios/golden/test.golden"},
	}

	for _, tc := range testCases {
		assert.Equal(t, filepath.FromSlash(tc.expected), goldenFilePath(filepath.FromSlash(tc.input)))
	}
}
