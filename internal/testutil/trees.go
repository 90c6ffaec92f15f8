package testutil

import (
	"fmt"

	"github.com/roach88/loopcost/internal/ir"
)

// SummedLookups builds
//
//	for i in 0..iters: V1[i] + V2[i] + ... + Vn[i] + X
//
// over vectors of length iters. With n = 0 the body is a bare literal.
func SummedLookups(iters float64, n int) *ir.Tree {
	b := ir.NewBuilder()
	return b.MustBuild(b.For(iters, "i", 1, summed(b, iters, n)))
}

func summed(b *ir.Builder, length float64, n int) ir.NodeID {
	acc := b.Literal()
	for k := n; k >= 1; k-- {
		v := b.Vector(vectorName(k), length, ir.DefaultElemSize)
		acc = b.Add(b.Lookup(v), acc)
	}
	return acc
}

func vectorName(k int) string {
	return fmt.Sprintf("V%d", k)
}

// Branched builds
//
//	for i in 0..iters: if V0[i] > X { V1[i] + X } else { X }
//
// with the given selectivity for the true arm.
func Branched(iters, selectivity float64) *ir.Tree {
	b := ir.NewBuilder()
	cond := b.GreaterThan(b.Lookup(b.Vector("V0", iters, 4)), b.Literal())
	then := b.Add(b.Lookup(b.Vector("V1", iters, 4)), b.Literal())
	return b.MustBuild(b.For(iters, "i", 1, b.If(cond, then, b.Literal(), selectivity)))
}

// Predicated builds the branch-free form of Branched:
//
//	for i in 0..iters (step stride): (V0[i] > X) * (V1[i] + X)
func Predicated(iters, stride float64) *ir.Tree {
	b := ir.NewBuilder()
	cond := b.GreaterThan(b.Lookup(b.Vector("V0", iters, 4)), b.Literal())
	then := b.Add(b.Lookup(b.Vector("V1", iters, 4)), b.Literal())
	return b.MustBuild(b.For(iters, "i", stride, b.Mul(cond, then)))
}

// NestedLoops builds
//
//	for <outer> in 0..n: for <inner> in 0..m: A[j] + X
//
// where A has the length of the j loop. outer and inner name the loop
// indices, so NestedLoops(n, m, "i", "j") and NestedLoops(m, n, "j", "i")
// are the two nestings of the same computation.
func NestedLoops(outerIters, innerIters float64, outer, inner string) *ir.Tree {
	length := innerIters
	if outer == "j" {
		length = outerIters
	}
	b := ir.NewBuilder()
	a := b.Vector("A", length, 4)
	body := b.Add(b.Lookup(a, b.Ident("j")), b.Literal())
	return b.MustBuild(b.For(outerIters, outer, 1, b.For(innerIters, inner, 1, body)))
}

// RandomLookup builds
//
//	for i in 0..iters: Data[Keys[i]]
//
// where Data has dataLength elements.
func RandomLookup(iters, dataLength float64) *ir.Tree {
	b := ir.NewBuilder()
	keys := b.Vector("Keys", iters, 4)
	data := b.Vector("Data", dataLength, 4)
	return b.MustBuild(b.For(iters, "i", 1, b.Lookup(data, b.Lookup(keys, b.Ident("i")))))
}

// GroupBy builds a hash-aggregation style loop:
//
//	for i in 0..iters: merge(Acc, V[i] & mask, V[i] + 1)
//
// with the value bound once by a let.
func GroupBy(iters, groups float64, global bool) *ir.Tree {
	b := ir.NewBuilder()
	v := b.Vector("V", iters, 4)
	acc := b.Vector("Acc", groups, 8)
	x := b.Ident("x")
	merge := b.Merge(acc, b.BitAnd(x, b.Literal()), b.Add(x, b.Literal()), 8, global)
	body := b.Let("x", b.Lookup(v, b.Ident("i")), merge)
	return b.MustBuild(b.For(iters, "i", 1, body))
}
