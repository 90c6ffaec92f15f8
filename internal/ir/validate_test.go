package ir

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidateAcceptsWellFormedTree(t *testing.T) {
	b := NewBuilder()
	tree, err := b.Build(summedLookups(b, 1000))
	require.NoError(t, err)
	assert.Empty(t, Validate(tree))
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *Builder) NodeID
		code  string
		field string
	}{
		{"zero iterations", func(b *Builder) NodeID {
			return b.For(0, "i", 1, b.Literal())
		}, ErrInvalidIterations, "iters"},
		{"infinite iterations", func(b *Builder) NodeID {
			return b.For(math.Inf(1), "i", 1, b.Literal())
		}, ErrInvalidIterations, "iters"},
		{"zero stride", func(b *Builder) NodeID {
			return b.For(10, "i", 0, b.Literal())
		}, ErrInvalidStride, "stride"},
		{"negative stride", func(b *Builder) NodeID {
			return b.For(10, "i", -2, b.Literal())
		}, ErrInvalidStride, "stride"},
		{"selectivity above one", func(b *Builder) NodeID {
			return b.For(10, "i", 1, b.If(b.Literal(), b.Literal(), b.Literal(), 1.5))
		}, ErrInvalidSelectivity, "selectivity"},
		{"negative selectivity", func(b *Builder) NodeID {
			return b.For(10, "i", 1, b.If(b.Literal(), b.Literal(), b.Literal(), -0.1))
		}, ErrInvalidSelectivity, "selectivity"},
		{"lookup into non-vector", func(b *Builder) NodeID {
			return b.For(10, "i", 1, b.Lookup(b.Literal()))
		}, ErrInvalidVector, "vector"},
		{"zero length vector", func(b *Builder) NodeID {
			return b.For(10, "i", 1, b.Lookup(b.Vector("A", 0, 4)))
		}, ErrInvalidVectorShape, "length"},
		{"unnamed vector", func(b *Builder) NodeID {
			return b.For(10, "i", 1, b.Lookup(b.Vector("", 10, 4)))
		}, ErrEmptyName, "name"},
		{"empty let name", func(b *Builder) NodeID {
			return b.For(10, "i", 1, b.Let("", b.Literal(), b.Literal()))
		}, ErrEmptyName, "name"},
		{"getfield out of range", func(b *Builder) NodeID {
			return b.For(10, "i", 1, b.GetField(b.Struct(b.Literal()), 1))
		}, ErrInvalidField, "field"},
		{"merge into non-vector", func(b *Builder) NodeID {
			return b.For(10, "i", 1, b.Merge(b.Literal(), b.Literal(), b.Literal(), 4, false))
		}, ErrInvalidVector, "accumulator"},
		{"merge zero element size", func(b *Builder) NodeID {
			return b.For(10, "i", 1, b.Merge(b.Vector("acc", 4, 4), b.Literal(), b.Literal(), 0, false))
		}, ErrInvalidVectorShape, "elem_size"},
		{"negative fixed cost", func(b *Builder) NodeID {
			return b.For(10, "i", 1, b.Fixed(-1))
		}, ErrInvalidCost, "cost"},
		{"missing root", func(b *Builder) NodeID {
			return NodeID(42)
		}, ErrMissingRoot, "root"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder()
			root := tt.build(b)
			_, err := b.Build(root)
			require.Error(t, err)

			tree := &Tree{nodes: b.nodes, root: root}
			errs := Validate(tree)
			require.NotEmpty(t, errs)
			assert.Contains(t, codes(errs), tt.code)

			var found bool
			for _, e := range errs {
				if e.Code == tt.code && e.Field == tt.field {
					found = true
				}
			}
			assert.True(t, found, "expected %s on field %q, got %v", tt.code, tt.field, errs)
		})
	}
}

func TestValidateDanglingAndForwardRefs(t *testing.T) {
	tree := &Tree{
		nodes: []Expr{
			nil,
			Binary{Op: OpAdd, Left: 9, Right: 3},
			Literal{},
			Literal{},
			For{Iters: 1, Stride: 1, Body: 1},
		},
		root: 4,
	}

	errs := Validate(tree)
	assert.ElementsMatch(t, []string{ErrDanglingRef, ErrForwardRef}, codes(errs))
}

func TestValidateLoopIndexMustBeIdent(t *testing.T) {
	tree := &Tree{
		nodes: []Expr{nil, Literal{}, For{Iters: 1, Stride: 1, Index: 1, Body: 1}},
		root:  2,
	}

	errs := Validate(tree)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrInvalidLoopIndex, errs[0].Code)
	assert.Equal(t, NodeID(2), errs[0].Node)
}

func TestValidateCollectsAllErrors(t *testing.T) {
	b := NewBuilder()
	root := b.For(0, "i", 0, b.If(b.Literal(), b.Literal(), b.Literal(), 2))
	_, err := b.Build(root)
	require.Error(t, err)

	var verr ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, err.Error(), ErrInvalidIterations)
	assert.Contains(t, err.Error(), ErrInvalidStride)
	assert.Contains(t, err.Error(), ErrInvalidSelectivity)
}

func TestValidationErrorFormat(t *testing.T) {
	e := ValidationError{Code: ErrInvalidStride, Node: 3, Field: "stride", Message: "stride must be positive, got 0"}
	assert.Equal(t, "[E204] node 3: stride: stride must be positive, got 0", e.Error())

	e = ValidationError{Code: ErrMissingRoot, Field: "root", Message: "missing"}
	assert.Equal(t, "[E200] root: missing", e.Error())
}

func TestMustBuildPanics(t *testing.T) {
	b := NewBuilder()
	root := b.For(0, "i", 1, b.Literal())
	assert.Panics(t, func() { b.MustBuild(root) })
}
