package ir

// DefaultElemSize is the element size in bytes used when a vector does not
// declare one.
const DefaultElemSize = 4.0

// Builder constructs a Tree. Every constructor appends to the arena and
// returns the new node's ID; since operands must already exist, IDs of
// children are always smaller than IDs of their parents.
//
// Builder performs no validation until Build.
//
//	b := ir.NewBuilder()
//	a := b.Vector("A", 1000, 4)
//	body := b.Add(b.Lookup(a, b.Ident("i")), b.Literal())
//	tree, err := b.Build(b.For(1000, "i", 1, body))
type Builder struct {
	nodes []Expr
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{nodes: []Expr{nil}}
}

func (b *Builder) add(e Expr) NodeID {
	b.nodes = append(b.nodes, e)
	return NodeID(len(b.nodes) - 1)
}

// Literal adds a constant.
func (b *Builder) Literal() NodeID {
	return b.add(Literal{})
}

// Ident adds an identifier reference.
func (b *Builder) Ident(name string) NodeID {
	return b.add(Ident{Name: name})
}

// Binary adds a binary operation.
func (b *Builder) Binary(op BinaryOp, left, right NodeID) NodeID {
	return b.add(Binary{Op: op, Left: left, Right: right})
}

func (b *Builder) Add(l, r NodeID) NodeID         { return b.Binary(OpAdd, l, r) }
func (b *Builder) Sub(l, r NodeID) NodeID         { return b.Binary(OpSub, l, r) }
func (b *Builder) Mul(l, r NodeID) NodeID         { return b.Binary(OpMul, l, r) }
func (b *Builder) Div(l, r NodeID) NodeID         { return b.Binary(OpDiv, l, r) }
func (b *Builder) Mod(l, r NodeID) NodeID         { return b.Binary(OpMod, l, r) }
func (b *Builder) GreaterThan(l, r NodeID) NodeID { return b.Binary(OpGreaterThan, l, r) }
func (b *Builder) And(l, r NodeID) NodeID         { return b.Binary(OpLogicalAnd, l, r) }
func (b *Builder) BitAnd(l, r NodeID) NodeID      { return b.Binary(OpBitwiseAnd, l, r) }

// For adds a loop of iters iterations with the given stride. An empty index
// name makes an anonymous loop.
func (b *Builder) For(iters float64, index string, stride float64, body NodeID) NodeID {
	var idx NodeID
	if index != "" {
		idx = b.Ident(index)
	}
	return b.add(For{Iters: iters, Stride: stride, Index: idx, Body: body})
}

// If adds a branch whose true arm executes with probability selectivity.
func (b *Builder) If(cond, then, els NodeID, selectivity float64) NodeID {
	return b.add(If{Cond: cond, Then: then, Else: els, Selectivity: selectivity})
}

// Vector adds a named array. A non-positive elemSize selects
// DefaultElemSize.
func (b *Builder) Vector(name string, length, elemSize float64) NodeID {
	if elemSize <= 0 {
		elemSize = DefaultElemSize
	}
	return b.add(Vector{Name: name, Length: length, ElemSize: elemSize})
}

// Lookup adds a memory access. With no indices the access is implicitly
// sequential in the innermost enclosing loop.
func (b *Builder) Lookup(vector NodeID, indices ...NodeID) NodeID {
	return b.add(Lookup{Vector: vector, Indices: append([]NodeID(nil), indices...)})
}

// Let adds a scoped binding.
func (b *Builder) Let(name string, value, body NodeID) NodeID {
	return b.add(Let{Name: name, Value: value, Body: body})
}

// Struct adds a struct literal.
func (b *Builder) Struct(fields ...NodeID) NodeID {
	return b.add(StructLit{Fields: append([]NodeID(nil), fields...)})
}

// GetField adds a struct field projection.
func (b *Builder) GetField(s NodeID, field int) NodeID {
	return b.add(GetField{Struct: s, Field: field})
}

// Merge adds a builder-merge of value into accumulator at index. The
// indexed access is materialized as an implicit Lookup into the
// accumulator with the merge's element size.
func (b *Builder) Merge(accumulator, index, value NodeID, elemSize float64, global bool) NodeID {
	access := b.add(Lookup{Vector: accumulator, Indices: []NodeID{index}, ElemSize: elemSize})
	return b.add(Merge{
		Accumulator: accumulator,
		Access:      access,
		Index:       index,
		Value:       value,
		ElemSize:    elemSize,
		Global:      global,
	})
}

// Fixed adds an opaque expression with a fixed cost.
func (b *Builder) Fixed(cost float64) NodeID {
	return b.add(Fixed{Cost: cost})
}

// Build validates the arena and returns an immutable Tree rooted at root.
// All validation errors are reported, joined.
func (b *Builder) Build(root NodeID) (*Tree, error) {
	t := &Tree{
		nodes: append([]Expr(nil), b.nodes...),
		root:  root,
	}
	if errs := Validate(t); len(errs) > 0 {
		return nil, joinValidationErrors(errs)
	}
	return t, nil
}

// MustBuild is like Build but panics on error.
// Use only in tests or when inputs are known to be valid.
func (b *Builder) MustBuild(root NodeID) *Tree {
	t, err := b.Build(root)
	if err != nil {
		panic(err)
	}
	return t
}
