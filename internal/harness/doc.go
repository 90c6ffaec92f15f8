// Package harness runs cost scenarios: small YAML files that name a set of
// programs, a hardware configuration and assertions over the costs the
// engine assigns them.
//
// # Scenario Format
//
//	name: branch_vs_predicate
//	description: "Predication beats a 50/50 branch"
//	hardware: reference          # profile name or path, or:
//	hardware_config: { ... }     # inline configuration
//	include:
//	  - ../programs/scan.cue     # relative to the scenario file
//	programs:
//	  - name: branched
//	    vectors: { V0: { length: 1000 } }
//	    root: { op: for, iters: 1000, body: { ... } }
//	assertions:
//	  - type: cost_less
//	    program: predicated
//	    than: branched
//
// # Assertion Types
//
//   - cost_less: program costs strictly less than another
//   - cost_equal: all listed programs cost the same, within a relative tolerance
//   - cost_between: a program's total lies in [min, max]
//   - lookup_sequential: every lookup of a vector has the given classification
//   - lookup_level: every lookup of a vector is served from the given level
//   - finite: every cost component is finite and non-negative
//
// # Deterministic Testing
//
// Each scenario runs against a fresh in-memory store with sequential run
// IDs, so reports are reproducible and can be compared to golden files
// with RunWithGolden.
package harness
