package compiler

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/loopcost/internal/hwconfig"
)

//go:embed schema.cue
var schemaSource string

// HardwareSchema returns the CUE source of the #Hardware definition.
func HardwareSchema() string {
	return schemaSource
}

// CompileHardware parses a CUE value into a validated hardware
// configuration. The value is unified with #Hardware first, so omitted
// instruction constants take their defaults and unknown fields fail.
func CompileHardware(v cue.Value) (hwconfig.Config, error) {
	var c hwconfig.Config
	if err := v.Err(); err != nil {
		return c, formatCUEError(err)
	}

	schema := v.Context().CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return c, fmt.Errorf("hardware schema: %w", err)
	}
	u := schema.LookupPath(cue.ParsePath("#Hardware")).Unify(v)
	if err := u.Validate(cue.Concrete(true)); err != nil {
		return c, formatCUEError(err)
	}

	c.Name = labelName(v)
	name, err := optionalString(u, "name")
	if err != nil {
		return c, err
	}
	if name != "" {
		c.Name = name
	}

	coreCount, err := defaultedFloat(u, "core_count")
	if err != nil {
		return c, err
	}
	c.CoreCount = int(coreCount)

	if c.ClockFrequency, err = defaultedFloat(u, "clock_frequency"); err != nil {
		return c, err
	}
	if c.CacheLineSize, err = optionalFloat(u, "cache_line_size"); err != nil {
		return c, err
	}

	for _, l := range []struct {
		label string
		dst   *[]float64
	}{
		{"block_sizes", &c.BlockSizes},
		{"cache_sizes", &c.CacheSizes},
		{"latencies", &c.Latencies},
		{"throughputs", &c.Throughputs},
	} {
		if *l.dst, err = floatList(u, l.label); err != nil {
			return c, err
		}
	}

	in := u.LookupPath(cue.ParsePath("instruction"))
	for _, f := range []struct {
		label string
		dst   *float64
	}{
		{"binop_latency", &c.Instruction.BinOpLatency},
		{"branch_latency", &c.Instruction.BranchLatency},
		{"predictable_iteration_distance", &c.Instruction.PredictableIterationDistance},
		{"atomic_add_latency", &c.Instruction.AtomicAddLatency},
	} {
		if *f.dst, err = defaultedFloat(in, f.label); err != nil {
			return c, err
		}
	}

	if err := c.Validate(); err != nil {
		return hwconfig.Config{}, &CompileError{Field: "hardware." + c.Name, Message: err.Error(), Pos: v.Pos()}
	}
	return c, nil
}

// defaultedFloat reads a field the schema guarantees, resolving its default.
func defaultedFloat(v cue.Value, label string) (float64, error) {
	f, _ := v.LookupPath(cue.ParsePath(label)).Default()
	x, err := f.Float64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return x, nil
}

func floatList(v cue.Value, label string) ([]float64, error) {
	listVal := v.LookupPath(cue.ParsePath(label))
	if !listVal.Exists() {
		return nil, nil
	}
	iter, err := listVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []float64
	for iter.Next() {
		x, err := iter.Value().Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, x)
	}
	return out, nil
}
