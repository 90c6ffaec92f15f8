package engine

import (
	"math"

	"github.com/roach88/loopcost/internal/hwconfig"
)

// SeqMissProbability is the probability that a line touched with
// per-element probability s by a unit-stride scan is a miss the
// adjacent-line prefetcher can stream: both it and its neighbour are
// touched. b is the number of elements per line.
func SeqMissProbability(s, b float64) float64 {
	return math.Pow(1-math.Pow(1-s, b), 2)
}

// RandMissProbability is the probability that a line is touched but its
// neighbour is not, so the miss is isolated and pays full latency.
func RandMissProbability(s, b float64) float64 {
	t := math.Pow(1-s, b)
	return t - t*t
}

// MissedLines is the expected number of lines missed with probability p
// over a region of width*length bytes, at blockBytes per line.
func MissedLines(p, width, length, blockBytes float64) float64 {
	return p * width * length / blockBytes
}

// memoryCost is the cost of one lookup, split the way the prefetch overlap
// needs it.
type memoryCost struct {
	Level int // level serving the lookup; Levels() is DRAM
	// Faster is cost at levels above DRAM.
	Faster float64
	// SlowRandom is latency-bound DRAM cost; never hidden.
	SlowRandom float64
	// SlowSequential is bandwidth-bound DRAM cost the prefetcher can hide.
	SlowSequential float64
}

// sequentialCost costs a unit-stride stream served by the shallowest level
// whose capacity exceeds the reuse distance. Lines both the stream and the
// prefetcher want move at that level's bandwidth; isolated lines pay its
// latency.
func sequentialCost(hw hwconfig.Config, ann LookupAnnotation, reuseDistance int) memoryCost {
	level := hw.Levels()
	for i, size := range hw.CacheSizes {
		if size > float64(reuseDistance) {
			level = i
			break
		}
	}

	elements := ann.Iterations * ann.Stride
	bytes := elements * ann.Pattern.ElemSize
	blockBytes := hw.BlockSize(level)
	b := elemsPerBlock(blockBytes, ann.Pattern.ElemSize)
	s := ann.ExecProbability

	bandwidth := SeqMissProbability(s, b) * bytes / hw.Throughputs[level] * hw.ClockFrequency
	isolated := MissedLines(RandMissProbability(s, b), ann.Pattern.ElemSize, elements, blockBytes) * hw.Latencies[level]

	if level == hw.Levels() {
		return memoryCost{Level: level, SlowSequential: bandwidth, SlowRandom: isolated}
	}
	return memoryCost{Level: level, Faster: bandwidth + isolated}
}

// randomCost costs independent accesses into the whole vector. Each level
// serves the share of accesses that fit it and not a faster level; what no
// cache holds goes to DRAM.
func randomCost(hw hwconfig.Config, ann LookupAnnotation, vectorLength float64) memoryCost {
	workingSet := vectorLength * ann.Pattern.ElemSize
	resolved := 0.0
	faster := 0.0
	level := hw.Levels()
	for i, size := range hw.CacheSizes {
		lines := workingSet / hw.BlockSize(i)
		fit := 1.0
		if lines > 0 {
			fit = math.Min(1, math.Max(0, size/lines))
		}
		if inc := fit - resolved; inc > 0 {
			faster += inc * hw.Latencies[i]
			resolved = fit
		}
		if fit >= 1 {
			level = i
			break
		}
	}
	dram := (1 - resolved) * hw.Latencies[hw.Levels()]

	accesses := ann.Iterations * ann.ExecProbability * ann.Stride
	return memoryCost{
		Level:      level,
		Faster:     accesses * faster,
		SlowRandom: accesses * dram,
	}
}

// prefetchOverlap returns the part of the slowest sequential stream not
// hidden behind processing and faster-level memory work. All streams
// prefetch in parallel, so only the largest counts.
func prefetchOverlap(processing, faster, maxSlowSequential float64) float64 {
	return math.Max(0, maxSlowSequential-(processing+faster))
}
