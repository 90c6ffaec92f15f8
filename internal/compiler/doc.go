// Package compiler turns CUE values into loop programs and hardware
// configurations.
//
// A CUE unit declares programs under program.<name> and hardware
// configurations under hardware.<name>:
//
//	program: scan: {
//		vectors: A: length: 1000
//		root: {op: "for", iters: 1000, index: "i", body: {
//			op: "add", args: [{op: "lookup", vector: "A", indices: [{op: "id", name: "i"}]}, {op: "lit"}]
//		}}
//	}
//
//	hardware: laptop: {
//		clock_frequency: 3.2e9
//		cache_line_size: 64
//		cache_sizes: [512, 4096, 131072]
//		latencies: [4, 12, 40, 200]
//		throughputs: [400e9, 200e9, 100e9, 20e9]
//	}
//
// Hardware values are unified with the embedded #Hardware schema, which
// supplies instruction defaults and rejects unknown fields. Errors carry
// the CUE source position when one is known.
package compiler
