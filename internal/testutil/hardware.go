package testutil

import (
	"github.com/roach88/loopcost/internal/hwconfig"
)

// Hardware returns a round-numbered two-level profile whose costs can be
// worked out by hand: 1 GHz, 64-byte lines, L1 of 8 lines, L2 of 64 lines,
// latencies 1/4/40 cycles and throughputs 4/2/0.5 GB/s.
func Hardware() hwconfig.Config {
	return hwconfig.Config{
		Name:           "test",
		CoreCount:      1,
		ClockFrequency: 1e9,
		CacheLineSize:  64,
		CacheSizes:     []float64{8, 64},
		Latencies:      []float64{1, 4, 40},
		Throughputs:    []float64{4e9, 2e9, 5e8},
		Instruction:    hwconfig.DefaultInstruction(),
	}
}
