package hwconfig

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldsOf(t *testing.T, err error) []string {
	t.Helper()
	var fields []string
	for _, e := range err.(interface{ Unwrap() []error }).Unwrap() {
		var verr ValidationError
		require.True(t, errors.As(e, &verr))
		fields = append(fields, verr.Field)
	}
	return fields
}

func TestBuiltinProfilesAreValid(t *testing.T) {
	for _, name := range ProfileNames() {
		t.Run(name, func(t *testing.T) {
			c, ok := Profile(name)
			require.True(t, ok)
			assert.Equal(t, name, c.Name)
			assert.NoError(t, c.Validate())
		})
	}
}

func TestProfileNames(t *testing.T) {
	assert.Equal(t, []string{"host", "legacy", "reference"}, ProfileNames())
	_, ok := Profile("mainframe")
	assert.False(t, ok)
}

func TestReferenceConstants(t *testing.T) {
	c := Reference()
	assert.Equal(t, 3, c.Levels())
	assert.Equal(t, 64.0, c.BlockSize(0))
	assert.Equal(t, 64.0, c.BlockSize(3), "DRAM uses the line size")
	assert.Equal(t, 2e9, c.ClockFrequency)
	assert.Equal(t, []float64{1, 7, 19, 36}, c.Latencies)
	assert.Equal(t, DefaultInstruction(), c.Instruction)
}

func TestLegacyBlockSizes(t *testing.T) {
	c := Legacy()
	assert.Equal(t, 8.0, c.BlockSize(0))
	assert.Equal(t, 64.0, c.BlockSize(1))
	assert.Equal(t, 64.0, c.BlockSize(3), "DRAM uses the last level's block size")
	assert.Equal(t, []float64{1, 3, 8, 12}, c.Latencies)
}

func TestHostUsesCPULineSize(t *testing.T) {
	c := Host()
	assert.Greater(t, c.CacheLineSize, 0.0)
	assert.GreaterOrEqual(t, c.CoreCount, 1)
	assert.Equal(t, Reference().CacheSizes, c.CacheSizes)
}

func TestLevelName(t *testing.T) {
	c := Reference()
	assert.Equal(t, "L1", c.LevelName(0))
	assert.Equal(t, "L3", c.LevelName(2))
	assert.Equal(t, "DRAM", c.LevelName(3))
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"no cache levels", func(c *Config) {
			c.CacheSizes = nil
			c.Latencies = []float64{36}
			c.Throughputs = []float64{55e9}
		}, "cache_sizes"},
		{"zero cache size", func(c *Config) { c.CacheSizes[1] = 0 }, "cache_sizes[1]"},
		{"zero line size", func(c *Config) { c.CacheLineSize = 0 }, "cache_line_size"},
		{"zero block size", func(c *Config) { c.BlockSizes = []float64{64, 0, 64} }, "block_sizes[1]"},
		{"block size count", func(c *Config) { c.BlockSizes = []float64{64} }, "block_sizes"},
		{"latency count", func(c *Config) { c.Latencies = c.Latencies[:3] }, "latencies"},
		{"negative latency", func(c *Config) { c.Latencies[0] = -1 }, "latencies[0]"},
		{"throughput count", func(c *Config) { c.Throughputs = append(c.Throughputs, 1) }, "throughputs"},
		{"zero throughput", func(c *Config) { c.Throughputs[3] = 0 }, "throughputs[3]"},
		{"zero clock", func(c *Config) { c.ClockFrequency = 0 }, "clock_frequency"},
		{"no cores", func(c *Config) { c.CoreCount = 0 }, "core_count"},
		{"negative branch latency", func(c *Config) { c.Instruction.BranchLatency = -3 }, "instruction.branch_latency"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Reference().Clone()
			tt.mutate(&c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, fieldsOf(t, err), tt.field)
		})
	}
}

func TestValidateReportsAllErrorsSorted(t *testing.T) {
	c := Reference()
	c.ClockFrequency = 0
	c.CoreCount = 0
	c.CacheLineSize = -1

	err := c.Validate()
	require.Error(t, err)
	assert.Equal(t, []string{"cache_line_size", "clock_frequency", "core_count"}, fieldsOf(t, err))
}

func TestCloneDoesNotAlias(t *testing.T) {
	base := Reference()
	c := base.Clone()
	c.Latencies[0] = 99
	assert.Equal(t, 1.0, base.Latencies[0])
}

func TestHash(t *testing.T) {
	ref1, err := Reference().Hash()
	require.NoError(t, err)
	ref2, err := Reference().Hash()
	require.NoError(t, err)
	assert.Equal(t, ref1, ref2)
	assert.Len(t, ref1, 64)

	renamed := Reference()
	renamed.Name = "renamed"
	h, err := renamed.Hash()
	require.NoError(t, err)
	assert.Equal(t, ref1, h, "name is not part of the identity")

	legacy, err := Legacy().Hash()
	require.NoError(t, err)
	assert.NotEqual(t, ref1, legacy)

	slower := Reference().Clone()
	slower.Latencies[3] = 100
	h, err = slower.Hash()
	require.NoError(t, err)
	assert.NotEqual(t, ref1, h)
}

func TestLoad(t *testing.T) {
	c, err := Load(filepath.Join("testdata", "small.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "small", c.Name)
	assert.Equal(t, 1, c.CoreCount, "core count defaults to 1")
	assert.Equal(t, 1e9, c.ClockFrequency)
	assert.Equal(t, []float64{4, 16}, c.CacheSizes)
	assert.Equal(t, []float64{4e9, 2e9, 5e8}, c.Throughputs)
	assert.Equal(t, 5.0, c.Instruction.BranchLatency)
	assert.Equal(t, 1.0, c.Instruction.BinOpLatency, "omitted instruction constants keep defaults")
	assert.Equal(t, 10.0, c.Instruction.PredictableIterationDistance)
}

func TestLoadInvalid(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "invalid.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid.yaml")
	assert.Contains(t, err.Error(), "clock_frequency")
	assert.Contains(t, err.Error(), "latencies")

	var verr ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("cache_sizes: [1]\nl4_size: 9\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "l4_size")
}

func TestParseJSON(t *testing.T) {
	c, err := Parse([]byte(`{"cache_line_size": 64, "cache_sizes": [8], "latencies": [1, 10],
		"throughputs": [1e9, 1e8], "clock_frequency": 1e9, "core_count": 2}`))
	require.NoError(t, err)
	assert.Equal(t, 2, c.CoreCount)
	assert.Equal(t, 1, c.Levels())
}

func TestResolve(t *testing.T) {
	c, err := Resolve("legacy")
	require.NoError(t, err)
	assert.Equal(t, "legacy", c.Name)

	c, err = Resolve(filepath.Join("testdata", "small.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "small", c.Name)

	_, err = Resolve("no-such-profile")
	require.Error(t, err)
}
