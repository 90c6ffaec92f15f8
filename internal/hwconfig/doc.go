// Package hwconfig describes the machine a cost is estimated for.
//
// A Config records the cache hierarchy (sizes in lines, line sizes,
// latencies and sustained throughputs per level, DRAM last), the clock
// frequency and core count, and the instruction-level constants the
// processing-cost recursion charges (binary op, branch, atomic add).
//
// Configs are plain values. Once validated they are read-only and may be
// shared by any number of concurrent evaluations.
//
// Three profiles are built in:
//   - reference: the measured constants of the reference machine
//   - legacy: the block sizes and latencies of the early cost tests
//   - host: reference, with the cache line size of the running CPU
package hwconfig
