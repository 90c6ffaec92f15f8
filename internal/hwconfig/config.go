package hwconfig

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/roach88/loopcost/internal/ir"
)

// Instruction holds per-instruction cycle constants.
type Instruction struct {
	BinOpLatency float64 `json:"binop_latency" yaml:"binop_latency"`
	// BranchLatency is the full misprediction penalty, charged at
	// selectivity 0.5.
	BranchLatency float64 `json:"branch_latency" yaml:"branch_latency"`
	// PredictableIterationDistance is the number of iterations a branch
	// must keep its outcome for the predictor to learn it.
	PredictableIterationDistance float64 `json:"predictable_iteration_distance" yaml:"predictable_iteration_distance"`
	AtomicAddLatency             float64 `json:"atomic_add_latency" yaml:"atomic_add_latency"`
}

// DefaultInstruction returns the instruction constants of the reference
// machine.
func DefaultInstruction() Instruction {
	return Instruction{
		BinOpLatency:                 1,
		BranchLatency:                3,
		PredictableIterationDistance: 10,
		AtomicAddLatency:             10,
	}
}

// Config is a hardware configuration. Level i < Levels() is cache level
// L(i+1); level Levels() is DRAM.
type Config struct {
	Name           string  `json:"name" yaml:"name"`
	CoreCount      int     `json:"core_count" yaml:"core_count"`
	ClockFrequency float64 `json:"clock_frequency" yaml:"clock_frequency"` // Hz
	CacheLineSize  float64 `json:"cache_line_size" yaml:"cache_line_size"` // bytes
	// BlockSizes optionally overrides CacheLineSize per cache level.
	BlockSizes  []float64   `json:"block_sizes,omitempty" yaml:"block_sizes,omitempty"`
	CacheSizes  []float64   `json:"cache_sizes" yaml:"cache_sizes"` // lines
	Latencies   []float64   `json:"latencies" yaml:"latencies"`     // cycles, one per level plus DRAM
	Throughputs []float64   `json:"throughputs" yaml:"throughputs"` // bytes/sec, one per level plus DRAM
	Instruction Instruction `json:"instruction" yaml:"instruction"`
}

// Levels returns the number of cache levels, excluding DRAM.
func (c Config) Levels() int {
	return len(c.CacheSizes)
}

// BlockSize returns the line size in bytes at level. DRAM uses the line
// size of the last cache level.
func (c Config) BlockSize(level int) float64 {
	if len(c.BlockSizes) > 0 {
		if level >= len(c.BlockSizes) {
			level = len(c.BlockSizes) - 1
		}
		return c.BlockSizes[level]
	}
	return c.CacheLineSize
}

// LevelName returns "L1".."Ln" for cache levels and "DRAM" for the last.
func (c Config) LevelName(level int) string {
	if level >= c.Levels() {
		return "DRAM"
	}
	return fmt.Sprintf("L%d", level+1)
}

// ValidationError reports one invalid field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("hardware %s: %s", e.Field, e.Message)
}

// Validate checks the configuration and returns every problem found,
// joined. A nil result means the config is safe to evaluate against: no
// division by zero and no NaN can arise from it.
func (c Config) Validate() error {
	var errs []error
	fail := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}
	positive := func(v float64) bool {
		return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
	}
	nonNegative := func(v float64) bool {
		return v >= 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
	}

	levels := c.Levels()
	if levels == 0 {
		fail("cache_sizes", "at least one cache level is required")
	}
	for i, s := range c.CacheSizes {
		if !positive(s) {
			fail(fmt.Sprintf("cache_sizes[%d]", i), "must be positive, got %v", s)
		}
	}
	if len(c.BlockSizes) == 0 && !positive(c.CacheLineSize) {
		fail("cache_line_size", "must be positive, got %v", c.CacheLineSize)
	}
	if len(c.BlockSizes) > 0 && len(c.BlockSizes) != levels {
		fail("block_sizes", "expected %d entries (one per cache level), got %d", levels, len(c.BlockSizes))
	}
	for i, s := range c.BlockSizes {
		if !positive(s) {
			fail(fmt.Sprintf("block_sizes[%d]", i), "must be positive, got %v", s)
		}
	}
	if len(c.Latencies) != levels+1 {
		fail("latencies", "expected %d entries (cache levels plus DRAM), got %d", levels+1, len(c.Latencies))
	}
	for i, l := range c.Latencies {
		if !nonNegative(l) {
			fail(fmt.Sprintf("latencies[%d]", i), "must be non-negative, got %v", l)
		}
	}
	if len(c.Throughputs) != levels+1 {
		fail("throughputs", "expected %d entries (cache levels plus DRAM), got %d", levels+1, len(c.Throughputs))
	}
	for i, t := range c.Throughputs {
		if !positive(t) {
			fail(fmt.Sprintf("throughputs[%d]", i), "must be positive, got %v", t)
		}
	}
	if !positive(c.ClockFrequency) {
		fail("clock_frequency", "must be positive, got %v", c.ClockFrequency)
	}
	if c.CoreCount < 1 {
		fail("core_count", "must be at least 1, got %d", c.CoreCount)
	}

	in := c.Instruction
	for field, v := range map[string]float64{
		"instruction.binop_latency":                  in.BinOpLatency,
		"instruction.branch_latency":                 in.BranchLatency,
		"instruction.predictable_iteration_distance": in.PredictableIterationDistance,
		"instruction.atomic_add_latency":             in.AtomicAddLatency,
	} {
		if !nonNegative(v) {
			fail(field, "must be non-negative, got %v", v)
		}
	}

	if len(errs) == 0 {
		return nil
	}
	sortErrors(errs)
	return errors.Join(errs...)
}

// sortErrors orders errors by field so Validate output is deterministic
// despite the map iteration above.
func sortErrors(errs []error) {
	slices.SortStableFunc(errs, func(a, b error) int {
		return strings.Compare(a.(ValidationError).Field, b.(ValidationError).Field)
	})
}

// Hash returns the content hash of the configuration. The name is not
// part of the identity: two profiles with equal constants hash equally.
func (c Config) Hash() (string, error) {
	obj := map[string]any{
		"core_count":      c.CoreCount,
		"clock_frequency": c.ClockFrequency,
		"cache_line_size": c.CacheLineSize,
		"cache_sizes":     orEmpty(c.CacheSizes),
		"latencies":       orEmpty(c.Latencies),
		"throughputs":     orEmpty(c.Throughputs),
		"instruction": map[string]any{
			"binop_latency":                  c.Instruction.BinOpLatency,
			"branch_latency":                 c.Instruction.BranchLatency,
			"predictable_iteration_distance": c.Instruction.PredictableIterationDistance,
			"atomic_add_latency":             c.Instruction.AtomicAddLatency,
		},
	}
	if len(c.BlockSizes) > 0 {
		obj["block_sizes"] = c.BlockSizes
	}
	return ir.HashCanonical(ir.DomainHardware, obj)
}

func orEmpty(v []float64) []float64 {
	if v == nil {
		return []float64{}
	}
	return v
}

// Clone returns a deep copy, so callers can derive a variant of a shared
// profile without aliasing its slices.
func (c Config) Clone() Config {
	out := c
	out.BlockSizes = append([]float64(nil), c.BlockSizes...)
	out.CacheSizes = append([]float64(nil), c.CacheSizes...)
	out.Latencies = append([]float64(nil), c.Latencies...)
	out.Throughputs = append([]float64(nil), c.Throughputs...)
	return out
}
