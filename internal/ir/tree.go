package ir

// Tree is an immutable arena of IR nodes with a designated root.
//
// Thread-safety: a built Tree is never mutated, so it may be shared by any
// number of concurrent readers and evaluators.
type Tree struct {
	nodes []Expr // nodes[0] is unused so that NoNode never resolves
	root  NodeID
}

// Root returns the root node ID.
func (t *Tree) Root() NodeID {
	return t.root
}

// Len returns the number of nodes in the arena.
func (t *Tree) Len() int {
	return len(t.nodes) - 1
}

// Node returns the node with the given ID, or nil if the ID is not in the
// arena.
func (t *Tree) Node(id NodeID) Expr {
	if !id.IsValid() || int(id) >= len(t.nodes) {
		return nil
	}
	return t.nodes[id]
}

// IdentName returns the name of an Ident node, or "" if id is not an Ident.
func (t *Tree) IdentName(id NodeID) string {
	if n, ok := t.Node(id).(Ident); ok {
		return n.Name
	}
	return ""
}

// Children returns the ordered immediate sub-expressions of a node. A
// Lookup's vector and a loop's index identifier are attributes, not
// children.
func (t *Tree) Children(id NodeID) []NodeID {
	return childrenOf(t.Node(id))
}

func childrenOf(e Expr) []NodeID {
	switch n := e.(type) {
	case Binary:
		return []NodeID{n.Left, n.Right}
	case For:
		return []NodeID{n.Body}
	case If:
		return []NodeID{n.Cond, n.Then, n.Else}
	case Lookup:
		return append([]NodeID(nil), n.Indices...)
	case Let:
		return []NodeID{n.Value, n.Body}
	case StructLit:
		return append([]NodeID(nil), n.Fields...)
	case GetField:
		return []NodeID{n.Struct}
	case Merge:
		return []NodeID{n.Access, n.Value}
	default:
		return nil
	}
}

// Walk visits every node reachable from the root in pre-order. Shared nodes
// are visited once. Returning false from fn skips the node's children.
func (t *Tree) Walk(fn func(id NodeID, e Expr) bool) {
	t.WalkFrom(t.root, fn)
}

// WalkFrom is Walk starting at an arbitrary node.
func (t *Tree) WalkFrom(start NodeID, fn func(id NodeID, e Expr) bool) {
	seen := make(map[NodeID]bool)
	var visit func(id NodeID)
	visit = func(id NodeID) {
		if seen[id] {
			return
		}
		seen[id] = true
		e := t.Node(id)
		if e == nil {
			return
		}
		if !fn(id, e) {
			return
		}
		for _, c := range childrenOf(e) {
			visit(c)
		}
	}
	visit(start)
}

// Lookups returns the distinct Lookup nodes reachable from the root, in
// pre-order.
func (t *Tree) Lookups() []NodeID {
	var ids []NodeID
	t.Walk(func(id NodeID, e Expr) bool {
		if _, ok := e.(Lookup); ok {
			ids = append(ids, id)
		}
		return true
	})
	return ids
}

// VectorOf returns the Vector a Lookup reads from.
func (t *Tree) VectorOf(lookup NodeID) (Vector, bool) {
	lk, ok := t.Node(lookup).(Lookup)
	if !ok {
		return Vector{}, false
	}
	v, ok := t.Node(lk.Vector).(Vector)
	return v, ok
}

// ElemSizeOf returns the element size in bytes of a Lookup's accesses.
func (t *Tree) ElemSizeOf(lookup NodeID) float64 {
	lk, ok := t.Node(lookup).(Lookup)
	if !ok {
		return 0
	}
	if lk.ElemSize > 0 {
		return lk.ElemSize
	}
	if v, ok := t.Node(lk.Vector).(Vector); ok {
		return v.ElemSize
	}
	return 0
}
