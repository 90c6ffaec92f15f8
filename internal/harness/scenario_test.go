package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/loopcost/internal/hwconfig"
)

func scenarioPath(name string) string {
	return filepath.Join("testdata", "scenarios", name+".yaml")
}

func TestLoadScenario(t *testing.T) {
	s, err := LoadScenario(scenarioPath("branch_vs_predicate"))
	require.NoError(t, err)

	assert.Equal(t, "branch_vs_predicate", s.Name)
	assert.NotEmpty(t, s.Description)
	require.NotNil(t, s.HardwareConfig)
	assert.Equal(t, "test", s.HardwareConfig.Name)
	require.Len(t, s.Programs, 2)
	assert.Equal(t, "branched", s.Programs[0].Name)
	require.NotNil(t, s.Programs[0].Root.Body)
	require.NotNil(t, s.Programs[0].Root.Body.Selectivity)
	assert.Equal(t, 0.5, *s.Programs[0].Root.Body.Selectivity)
	require.Len(t, s.Assertions, 4)
	assert.Equal(t, AssertCostLess, s.Assertions[0].Type)
}

func TestLoadAllScenarios(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			_, err := LoadScenario(path)
			require.NoError(t, err)
		})
	}
}

func TestLoadScenarioErrors(t *testing.T) {
	_, err := LoadScenario(scenarioPath("missing"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenarioValidation(t *testing.T) {
	const program = `
programs:
  - name: p
    vectors: {V: {length: 10}}
    root: {op: for, iters: 10, body: {op: lookup, vector: V}}
`
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing name",
			yaml: "description: d\n" + program + "assertions: [{type: finite}]",
			want: "name is required",
		},
		{
			name: "missing description",
			yaml: "name: n\n" + program + "assertions: [{type: finite}]",
			want: "description is required",
		},
		{
			name: "no programs",
			yaml: "name: n\ndescription: d\nassertions: [{type: finite}]",
			want: "programs or include is required",
		},
		{
			name: "no assertions",
			yaml: "name: n\ndescription: d\n" + program,
			want: "assertions list is required",
		},
		{
			name: "both hardware forms",
			yaml: "name: n\ndescription: d\nhardware: legacy\nhardware_config: {name: x}\n" + program + "assertions: [{type: finite}]",
			want: "mutually exclusive",
		},
		{
			name: "unnamed program",
			yaml: "name: n\ndescription: d\nprograms: [{root: {op: lit}}]\nassertions: [{type: finite}]",
			want: "programs[0]: name is required",
		},
		{
			name: "duplicate program",
			yaml: "name: n\ndescription: d\nprograms: [{name: p, root: {op: lit}}, {name: p, root: {op: lit}}]\nassertions: [{type: finite}]",
			want: `duplicate program "p"`,
		},
		{
			name: "assertion without type",
			yaml: "name: n\ndescription: d\n" + program + "assertions: [{program: p}]",
			want: "type is required",
		},
		{
			name: "unknown assertion",
			yaml: "name: n\ndescription: d\n" + program + "assertions: [{type: cost_greater}]",
			want: `unknown assertion type "cost_greater"`,
		},
		{
			name: "cost_less without than",
			yaml: "name: n\ndescription: d\n" + program + "assertions: [{type: cost_less, program: p}]",
			want: "program and than are required",
		},
		{
			name: "cost_equal with one program",
			yaml: "name: n\ndescription: d\n" + program + "assertions: [{type: cost_equal, programs: [p]}]",
			want: "at least two programs",
		},
		{
			name: "cost_equal negative tolerance",
			yaml: "name: n\ndescription: d\n" + program + "assertions: [{type: cost_equal, programs: [p, p], tolerance: -1}]",
			want: "tolerance must be non-negative",
		},
		{
			name: "cost_between without bounds",
			yaml: "name: n\ndescription: d\n" + program + "assertions: [{type: cost_between, program: p}]",
			want: "min or max is required",
		},
		{
			name: "cost_between inverted",
			yaml: "name: n\ndescription: d\n" + program + "assertions: [{type: cost_between, program: p, min: 2, max: 1}]",
			want: "min exceeds max",
		},
		{
			name: "lookup_sequential without flag",
			yaml: "name: n\ndescription: d\n" + program + "assertions: [{type: lookup_sequential, program: p, vector: V}]",
			want: "sequential are required",
		},
		{
			name: "lookup_level without level",
			yaml: "name: n\ndescription: d\n" + program + "assertions: [{type: lookup_level, program: p, vector: V}]",
			want: "level are required",
		},
		{
			name: "unknown field",
			yaml: "name: n\ndescription: d\n" + program + "assertion: [{type: finite}]",
			want: "failed to parse YAML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenarioMissingInclude(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "s.yaml", `
name: n
description: d
include: [nowhere.cue]
assertions: [{type: finite}]
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "include not found: nowhere.cue")
}

func TestResolveHardware(t *testing.T) {
	t.Run("default profile", func(t *testing.T) {
		c, err := (&Scenario{}).ResolveHardware()
		require.NoError(t, err)
		assert.Equal(t, hwconfig.Reference(), c)
	})

	t.Run("named profile", func(t *testing.T) {
		c, err := (&Scenario{Hardware: "legacy"}).ResolveHardware()
		require.NoError(t, err)
		assert.Equal(t, hwconfig.Legacy(), c)
	})

	t.Run("file relative to scenario", func(t *testing.T) {
		s, err := LoadScenario(scenarioPath("loop_interchange"))
		require.NoError(t, err)
		c, err := s.ResolveHardware()
		require.NoError(t, err)
		assert.Equal(t, "test", c.Name)
		assert.Equal(t, 1, c.CoreCount)
		assert.Equal(t, hwconfig.DefaultInstruction(), c.Instruction)
	})

	t.Run("inline defaults", func(t *testing.T) {
		s, err := LoadScenario(scenarioPath("branch_vs_predicate"))
		require.NoError(t, err)
		c, err := s.ResolveHardware()
		require.NoError(t, err)
		assert.Equal(t, 1, c.CoreCount)
		assert.Equal(t, hwconfig.DefaultInstruction(), c.Instruction)
		assert.Zero(t, s.HardwareConfig.CoreCount, "scenario config is not modified")
	})

	t.Run("inline invalid", func(t *testing.T) {
		s := &Scenario{HardwareConfig: &hwconfig.Config{Name: "bad"}}
		_, err := s.ResolveHardware()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "hardware_config")
	})

	t.Run("unknown profile", func(t *testing.T) {
		_, err := (&Scenario{Hardware: "no-such-profile"}).ResolveHardware()
		require.Error(t, err)
	})
}
