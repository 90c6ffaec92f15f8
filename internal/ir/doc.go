// Package ir provides the loop/array intermediate representation costed by
// the engine.
//
// This package contains the node model only. All other internal packages
// import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Nodes live in an arena (Tree) and are identified by NodeID, assigned
//     at construction time. There is no global identity counter.
//   - Children are always allocated before their parents, so a Tree is
//     acyclic by construction. A node may be shared by several parents.
//   - Expr is a sealed interface: the variant set is closed and consumers
//     dispatch with a type switch.
//   - A Tree is immutable once built. Derived per-evaluation data (lookup
//     annotations) lives in side tables keyed by NodeID, never on the nodes.
//   - All JSON/YAML tags use snake_case.
package ir
