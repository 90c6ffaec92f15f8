package engine

import (
	"github.com/roach88/loopcost/internal/ir"
)

// binder resolves a let-bound identifier to its value expression.
type binder func(name string) (ir.NodeID, bool)

func noBindings(string) (ir.NodeID, bool) { return ir.NoNode, false }

// IsSequential reports whether a lookup walks memory with unit stride in
// the innermost of loopIndices (innermost last). Only the lookup's last
// index is inspected:
//   - no index: implicit access by the loop counter, sequential
//   - Mul or Div mentioning the innermost index: scaled, not sequential
//   - any other operator except Add and Sub: not sequential
//   - Add and Sub: sequential iff every operand is
//   - literals and identifiers: sequential
//
// Anything else, such as an index loaded from another vector, is
// classified not sequential.
func IsSequential(t *ir.Tree, lookup ir.Lookup, loopIndices []string) bool {
	return isSequential(t, lookup, loopIndices, noBindings)
}

func isSequential(t *ir.Tree, lookup ir.Lookup, loopIndices []string, resolve binder) bool {
	if len(lookup.Indices) == 0 {
		return true
	}
	c := &classifier{
		tree:      t,
		resolve:   resolve,
		following: make(map[string]bool),
		done:      make(map[ir.NodeID]bool),
	}
	if len(loopIndices) > 0 {
		c.innermost = loopIndices[len(loopIndices)-1]
	}
	return c.sequential(lookup.Indices[len(lookup.Indices)-1])
}

type classifier struct {
	tree      *ir.Tree
	innermost string
	resolve   binder
	// following guards against a binding whose value mentions its own name
	// through an outer binding.
	following map[string]bool
	// done caches answers reached with no binding being followed.
	done map[ir.NodeID]bool
}

func (c *classifier) sequential(id ir.NodeID) bool {
	if len(c.following) > 0 {
		return c.classify(id)
	}
	if seq, ok := c.done[id]; ok {
		return seq
	}
	seq := c.classify(id)
	c.done[id] = seq
	return seq
}

func (c *classifier) classify(id ir.NodeID) bool {
	switch n := c.tree.Node(id).(type) {
	case ir.Literal:
		return true
	case ir.Ident:
		value, ok := c.resolve(n.Name)
		if !ok || c.following[n.Name] {
			return true
		}
		c.following[n.Name] = true
		defer delete(c.following, n.Name)
		return c.sequential(value)
	case ir.Binary:
		if (n.Op == ir.OpMul || n.Op == ir.OpDiv) && c.mentionsInnermost(id) {
			return false
		}
		if n.Op != ir.OpAdd && n.Op != ir.OpSub {
			return false
		}
		return c.sequential(n.Left) && c.sequential(n.Right)
	default:
		return false
	}
}

// mentionsInnermost reports whether the innermost loop index appears
// anywhere under id, following let bindings.
func (c *classifier) mentionsInnermost(id ir.NodeID) bool {
	found := false
	seen := make(map[string]bool)
	var visit func(ir.NodeID)
	visit = func(start ir.NodeID) {
		c.tree.WalkFrom(start, func(_ ir.NodeID, e ir.Expr) bool {
			if found {
				return false
			}
			ident, ok := e.(ir.Ident)
			if !ok {
				return true
			}
			if ident.Name == c.innermost {
				found = true
				return false
			}
			if value, bound := c.resolve(ident.Name); bound && !seen[ident.Name] {
				seen[ident.Name] = true
				visit(value)
			}
			return true
		})
	}
	visit(id)
	return found
}
