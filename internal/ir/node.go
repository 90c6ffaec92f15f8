package ir

import "fmt"

// NodeID identifies a node within one Tree. Zero is the invalid sentinel.
type NodeID uint32

// NoNode is the invalid NodeID.
const NoNode NodeID = 0

// IsValid returns true if the ID is non-zero.
func (id NodeID) IsValid() bool { return id != NoNode }

// Expr is a sealed interface over the closed set of IR node variants:
// Literal, Ident, Binary, For, If, Lookup, Vector, Let, StructLit, GetField,
// Merge and Fixed.
type Expr interface {
	exprNode() // Sealed - only the variants below implement it
}

// BinaryOp enumerates the binary operators.
type BinaryOp uint8

const (
	OpAdd BinaryOp = iota + 1
	OpSub
	OpMul
	OpDiv
	OpMod
	OpGreaterThan
	OpLogicalAnd
	OpBitwiseAnd
)

var binaryOpNames = map[BinaryOp]string{
	OpAdd:         "add",
	OpSub:         "sub",
	OpMul:         "mul",
	OpDiv:         "div",
	OpMod:         "mod",
	OpGreaterThan: "gt",
	OpLogicalAnd:  "and",
	OpBitwiseAnd:  "bitand",
}

// String returns the op keyword used in program files.
func (op BinaryOp) String() string {
	if name, ok := binaryOpNames[op]; ok {
		return name
	}
	return fmt.Sprintf("BinaryOp(%d)", uint8(op))
}

// ParseBinaryOp maps a program-file keyword to its operator.
func ParseBinaryOp(s string) (BinaryOp, bool) {
	for op, name := range binaryOpNames {
		if name == s {
			return op, true
		}
	}
	return 0, false
}

// Literal is a constant. It has no cost.
type Literal struct{}

// Ident names a loop index or a let-bound value.
type Ident struct {
	Name string
}

// Binary is an arithmetic, comparison or logical operation.
type Binary struct {
	Op    BinaryOp
	Left  NodeID
	Right NodeID
}

// For is a counted loop. Stride > 1 models vectorization: one instruction
// processes Stride elements, so the loop runs Iters/Stride times.
type For struct {
	Iters  float64
	Stride float64
	Index  NodeID // Ident; NoNode for an anonymous loop
	Body   NodeID
}

// Iterations returns the iteration count after stride.
func (f For) Iterations() float64 {
	return f.Iters / f.Stride
}

// If is a conditional branch. Selectivity is the probability that the true
// arm executes.
type If struct {
	Cond        NodeID
	Then        NodeID
	Else        NodeID
	Selectivity float64
}

// Lookup is a memory access into a Vector. An empty Indices list denotes
// implicit sequential access by the innermost loop counter. The last index
// is the innermost (fastest varying) dimension.
type Lookup struct {
	Vector  NodeID
	Indices []NodeID
	// ElemSize overrides the vector's element size when non-zero. Used by
	// the implicit accumulator access of a Merge.
	ElemSize float64
}

// Vector is a named array.
type Vector struct {
	Name     string
	Length   float64
	ElemSize float64 // bytes
}

// Let binds Name to Value for the evaluation of Body.
type Let struct {
	Name  string
	Value NodeID
	Body  NodeID
}

// StructLit is a fixed-size tuple of field expressions.
type StructLit struct {
	Fields []NodeID
}

// GetField projects one field of a struct-valued expression.
type GetField struct {
	Struct NodeID
	Field  int
}

// Merge is an indexed accumulate-in-place update into an aggregation
// buffer. Access is the implicit Lookup into the accumulator created by
// Builder.Merge; it lets the memory model cost the update like a read.
type Merge struct {
	Accumulator NodeID // Vector
	Access      NodeID // Lookup(Accumulator, Index)
	Index       NodeID
	Value       NodeID
	ElemSize    float64
	// Global marks an accumulator shared by all partitions, as opposed to a
	// per-partition one.
	Global bool
}

// Fixed is an opaque expression with a known per-evaluation cost.
type Fixed struct {
	Cost float64
}

func (Literal) exprNode()   {}
func (Ident) exprNode()     {}
func (Binary) exprNode()    {}
func (For) exprNode()       {}
func (If) exprNode()        {}
func (Lookup) exprNode()    {}
func (Vector) exprNode()    {}
func (Let) exprNode()       {}
func (StructLit) exprNode() {}
func (GetField) exprNode()  {}
func (Merge) exprNode()     {}
func (Fixed) exprNode()     {}

// KindName returns the program-file keyword for a node variant.
func KindName(e Expr) string {
	switch n := e.(type) {
	case Literal:
		return "lit"
	case Ident:
		return "id"
	case Binary:
		return n.Op.String()
	case For:
		return "for"
	case If:
		return "if"
	case Lookup:
		return "lookup"
	case Vector:
		return "vector"
	case Let:
		return "let"
	case StructLit:
		return "struct"
	case GetField:
		return "getfield"
	case Merge:
		return "merge"
	case Fixed:
		return "fixed"
	default:
		return fmt.Sprintf("%T", e)
	}
}
