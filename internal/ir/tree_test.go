package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderChildrenPrecedeParents(t *testing.T) {
	b := NewBuilder()
	tree := b.MustBuild(summedLookups(b, 100))

	tree.Walk(func(id NodeID, e Expr) bool {
		for _, c := range tree.Children(id) {
			assert.Less(t, c, id, "child %d of %s node %d", c, KindName(e), id)
		}
		return true
	})
}

func TestTreeChildren(t *testing.T) {
	b := NewBuilder()
	a := b.Vector("A", 10, 4)
	i := b.Ident("i")
	lk := b.Lookup(a, i)
	lit := b.Literal()
	add := b.Add(lk, lit)
	cond := b.GreaterThan(lk, lit)
	branch := b.If(cond, add, lit, 0.5)
	st := b.Struct(add, lit)
	gf := b.GetField(st, 1)
	let := b.Let("x", gf, branch)
	loop := b.For(10, "i", 1, let)
	tree := b.MustBuild(loop)

	assert.Equal(t, []NodeID{i}, tree.Children(lk))
	assert.Equal(t, []NodeID{lk, lit}, tree.Children(add))
	assert.Equal(t, []NodeID{cond, add, lit}, tree.Children(branch))
	assert.Equal(t, []NodeID{add, lit}, tree.Children(st))
	assert.Equal(t, []NodeID{st}, tree.Children(gf))
	assert.Equal(t, []NodeID{gf, branch}, tree.Children(let))
	assert.Equal(t, []NodeID{let}, tree.Children(loop))
	assert.Empty(t, tree.Children(a))
	assert.Empty(t, tree.Children(lit))
	assert.Nil(t, tree.Children(NoNode))
}

func TestMergeCreatesImplicitLookup(t *testing.T) {
	b := NewBuilder()
	acc := b.Vector("acc", 16, 4)
	idx := b.Literal()
	val := b.Literal()
	m := b.Merge(acc, idx, val, 8, false)
	tree := b.MustBuild(b.For(10, "i", 1, m))

	merge, ok := tree.Node(m).(Merge)
	require.True(t, ok)
	access, ok := tree.Node(merge.Access).(Lookup)
	require.True(t, ok)
	assert.Equal(t, acc, access.Vector)
	assert.Equal(t, []NodeID{idx}, access.Indices)
	assert.Equal(t, 8.0, tree.ElemSizeOf(merge.Access), "merge element size overrides the vector's")
	assert.Equal(t, []NodeID{merge.Access, val}, tree.Children(m))
	assert.Equal(t, []NodeID{merge.Access}, tree.Lookups())
}

func TestTreeLookupsDedupesSharedNodes(t *testing.T) {
	b := NewBuilder()
	a := b.Vector("A", 10, 4)
	lk := b.Lookup(a)
	tree := b.MustBuild(b.For(10, "i", 1, b.Add(lk, lk)))

	assert.Equal(t, []NodeID{lk}, tree.Lookups())
}

func TestTreeWalkSkipsChildren(t *testing.T) {
	b := NewBuilder()
	a := b.Vector("A", 10, 4)
	inner := b.For(5, "j", 1, b.Lookup(a, b.Ident("j")))
	tree := b.MustBuild(b.For(10, "i", 1, inner))

	var kinds []string
	tree.Walk(func(id NodeID, e Expr) bool {
		kinds = append(kinds, KindName(e))
		return id != inner
	})
	assert.Equal(t, []string{"for", "for"}, kinds)
}

func TestTreeAccessors(t *testing.T) {
	b := NewBuilder()
	a := b.Vector("A", 10, 0)
	lk := b.Lookup(a)
	loop := b.For(10, "i", 2, lk)
	tree := b.MustBuild(loop)

	assert.Equal(t, loop, tree.Root())
	assert.Equal(t, 4, tree.Len())
	assert.Nil(t, tree.Node(NodeID(99)))
	assert.Equal(t, "i", tree.IdentName(tree.Node(loop).(For).Index))
	assert.Equal(t, "", tree.IdentName(lk))
	assert.Equal(t, 5.0, tree.Node(loop).(For).Iterations())

	v, ok := tree.VectorOf(lk)
	require.True(t, ok)
	assert.Equal(t, "A", v.Name)
	assert.Equal(t, DefaultElemSize, tree.ElemSizeOf(lk))

	_, ok = tree.VectorOf(loop)
	assert.False(t, ok)
	assert.Zero(t, tree.ElemSizeOf(loop))
}

func TestBinaryOpNames(t *testing.T) {
	for op, name := range binaryOpNames {
		parsed, ok := ParseBinaryOp(name)
		require.True(t, ok, name)
		assert.Equal(t, op, parsed)
		assert.Equal(t, name, op.String())
	}

	_, ok := ParseBinaryOp("pow")
	assert.False(t, ok)
	assert.Equal(t, "BinaryOp(99)", BinaryOp(99).String())
}
