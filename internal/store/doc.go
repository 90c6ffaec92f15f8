// Package store provides a SQLite-backed ledger of cost evaluations.
//
// A plan search evaluates many rewritten variants of the same program, many
// of them more than once. The store records every evaluation as a cost run
// with its per-lookup breakdown, and answers "has this tree already been
// costed on this hardware?" by cache key.
//
// # Tables
//
//   - cost_runs: one row per evaluation, with the cost components of the
//     Result and the identities of what was costed
//   - lookup_costs: the per-lookup memory breakdown of a run
//
// # Identity
//
//   - tree_hash: ir.TreeHash, structural and independent of node IDs
//   - hardware_hash: hwconfig.Config.Hash, independent of the profile name
//   - cache_key: hash of both plus the engine version, so a new engine
//     never serves costs computed by an old one
//
// Runs are ordered by seq, a logical clock assigned on write, never by
// timestamps. Run IDs are UUIDv7 by default.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
