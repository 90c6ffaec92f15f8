// Package engine implements the loopcost evaluator.
//
// The evaluator estimates the execution cost of an ir.Tree on a hardware
// configuration, in cycles of a single core. The cost has two components:
//
// Processing cost: cycles spent executing instructions, assuming operands
// are in registers. Computed by one recursive walk of the tree under an
// evaluation context (selectivity, loop-frame stack, let bindings).
//
// Memory cost: cycles spent moving data through the cache hierarchy.
// Every Lookup reached by the walk is annotated (execution probability,
// enclosing loops, sequential flag) and then costed by the memory model:
//   - sequential lookups are bandwidth-bound at the cache level that holds
//     their reuse distance
//   - random lookups are latency-bound, weighted by the probability that
//     the working set fits each level
//   - the slowest level's sequential cost is hidden by the adjacent-line
//     prefetcher up to the processing plus faster-level memory cost
//
// EVALUATION MODEL:
//
// Binary operators cost their operands plus one BinOpLatency per
// iteration; iteration scaling happens once, in For. A branch costs its
// condition plus both arms weighted by selectivity plus an expected
// misprediction penalty. Lookups cost nothing in the processing walk.
//
// Annotations live in a side table owned by one evaluation; the tree is
// never written. A Tree and a hwconfig.Config may therefore be shared by
// concurrent evaluations.
//
// Only loops are costed: a tree whose root is not a For has cost zero.
package engine
