package hwconfig

import (
	"runtime"
	"sort"
	"unsafe"

	"golang.org/x/sys/cpu"
)

// Reference returns the measured constants of the reference machine.
func Reference() Config {
	return Config{
		Name:           "reference",
		CoreCount:      4,
		ClockFrequency: 2e9,
		CacheLineSize:  64,
		CacheSizes:     []float64{500, 4000, 720000},
		Latencies:      []float64{1, 7, 19, 36},
		Throughputs:    []float64{529e9, 350e9, 120e9, 55e9},
		Instruction:    DefaultInstruction(),
	}
}

// Legacy returns the configuration the early cost tests ran against: small
// first-level blocks and short latencies.
func Legacy() Config {
	return Config{
		Name:           "legacy",
		CoreCount:      4,
		ClockFrequency: 2e9,
		CacheLineSize:  64,
		BlockSizes:     []float64{8, 64, 64},
		CacheSizes:     []float64{500, 4000, 62500},
		Latencies:      []float64{1, 3, 8, 12},
		Throughputs:    []float64{128e9, 64e9, 32e9, 4e9},
		Instruction:    DefaultInstruction(),
	}
}

// Host returns the reference configuration adjusted to the running
// machine: the cache line size the CPU package pads to and the number of
// logical CPUs.
func Host() Config {
	c := Reference()
	c.Name = "host"
	c.CacheLineSize = float64(unsafe.Sizeof(cpu.CacheLinePad{}))
	c.CoreCount = runtime.NumCPU()
	return c
}

var profiles = map[string]func() Config{
	"reference": Reference,
	"legacy":    Legacy,
	"host":      Host,
}

// Profile returns a built-in profile by name.
func Profile(name string) (Config, bool) {
	fn, ok := profiles[name]
	if !ok {
		return Config{}, false
	}
	return fn(), true
}

// ProfileNames returns the built-in profile names, sorted.
func ProfileNames() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
