package ir

import (
	"errors"
	"fmt"
	"math"
)

// Validation error codes (E200-E299)
const (
	ErrMissingRoot        = "E200" // root is not a node of the arena
	ErrDanglingRef        = "E201" // reference to a node that does not exist
	ErrForwardRef         = "E202" // reference to a node allocated after its parent
	ErrInvalidIterations  = "E203" // loop iteration count must be positive
	ErrInvalidStride      = "E204" // loop stride must be positive
	ErrInvalidLoopIndex   = "E205" // loop index must be an identifier
	ErrInvalidSelectivity = "E206" // selectivity must be in [0,1]
	ErrInvalidVector      = "E207" // lookup/merge target must be a vector
	ErrInvalidVectorShape = "E208" // vector length and element size must be positive
	ErrEmptyName          = "E209" // identifier/vector/let name is empty
	ErrInvalidField       = "E210" // struct field out of range
	ErrInvalidCost        = "E211" // fixed cost must be finite and non-negative
	ErrUnknownOp          = "E212" // unknown binary operator
	ErrInvalidAccess      = "E213" // merge access must be a lookup
)

// ValidationError reports a structural problem with one node.
type ValidationError struct {
	Code    string `json:"code"`
	Node    NodeID `json:"node"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Node.IsValid() {
		return fmt.Sprintf("[%s] node %d: %s: %s", e.Code, e.Node, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks every node in the arena and returns all errors found
// (does not fail-fast).
func Validate(t *Tree) []ValidationError {
	var errs []ValidationError

	if t.Node(t.root) == nil {
		errs = append(errs, ValidationError{
			Code:    ErrMissingRoot,
			Field:   "root",
			Message: fmt.Sprintf("root %d is not in the arena", t.root),
		})
	}

	for i := 1; i < len(t.nodes); i++ {
		errs = append(errs, validateNode(t, NodeID(i))...)
	}
	return errs
}

func validateNode(t *Tree, id NodeID) []ValidationError {
	var errs []ValidationError
	fail := func(code, field, format string, args ...any) {
		errs = append(errs, ValidationError{
			Code:    code,
			Node:    id,
			Field:   field,
			Message: fmt.Sprintf(format, args...),
		})
	}
	ref := func(field string, child NodeID) bool {
		if t.Node(child) == nil {
			fail(ErrDanglingRef, field, "references missing node %d", child)
			return false
		}
		if child >= id {
			fail(ErrForwardRef, field, "references node %d allocated after node %d", child, id)
			return false
		}
		return true
	}
	positive := func(v float64) bool {
		return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
	}

	switch n := t.nodes[id].(type) {
	case Literal:
	case Ident:
		if n.Name == "" {
			fail(ErrEmptyName, "name", "identifier name is required")
		}
	case Binary:
		if _, ok := binaryOpNames[n.Op]; !ok {
			fail(ErrUnknownOp, "op", "unknown binary operator %d", n.Op)
		}
		ref("left", n.Left)
		ref("right", n.Right)
	case For:
		if !positive(n.Iters) {
			fail(ErrInvalidIterations, "iters", "iteration count must be positive, got %v", n.Iters)
		}
		if !positive(n.Stride) {
			fail(ErrInvalidStride, "stride", "stride must be positive, got %v", n.Stride)
		}
		if n.Index.IsValid() && ref("index", n.Index) {
			if _, ok := t.nodes[n.Index].(Ident); !ok {
				fail(ErrInvalidLoopIndex, "index", "loop index must be an identifier, got %s", KindName(t.nodes[n.Index]))
			}
		}
		ref("body", n.Body)
	case If:
		if math.IsNaN(n.Selectivity) || n.Selectivity < 0 || n.Selectivity > 1 {
			fail(ErrInvalidSelectivity, "selectivity", "selectivity must be in [0,1], got %v", n.Selectivity)
		}
		ref("cond", n.Cond)
		ref("then", n.Then)
		ref("else", n.Else)
	case Lookup:
		if ref("vector", n.Vector) {
			if _, ok := t.nodes[n.Vector].(Vector); !ok {
				fail(ErrInvalidVector, "vector", "lookup target must be a vector, got %s", KindName(t.nodes[n.Vector]))
			}
		}
		for i, idx := range n.Indices {
			ref(fmt.Sprintf("indices[%d]", i), idx)
		}
		if n.ElemSize < 0 {
			fail(ErrInvalidVectorShape, "elem_size", "element size must not be negative, got %v", n.ElemSize)
		}
	case Vector:
		if n.Name == "" {
			fail(ErrEmptyName, "name", "vector name is required")
		}
		if !positive(n.Length) {
			fail(ErrInvalidVectorShape, "length", "vector length must be positive, got %v", n.Length)
		}
		if !positive(n.ElemSize) {
			fail(ErrInvalidVectorShape, "elem_size", "element size must be positive, got %v", n.ElemSize)
		}
	case Let:
		if n.Name == "" {
			fail(ErrEmptyName, "name", "let binding name is required")
		}
		ref("value", n.Value)
		ref("body", n.Body)
	case StructLit:
		for i, f := range n.Fields {
			ref(fmt.Sprintf("fields[%d]", i), f)
		}
	case GetField:
		if n.Field < 0 {
			fail(ErrInvalidField, "field", "field index must not be negative, got %d", n.Field)
		}
		if ref("struct", n.Struct) {
			if s, ok := t.nodes[n.Struct].(StructLit); ok && n.Field >= len(s.Fields) {
				fail(ErrInvalidField, "field", "field %d out of range for struct of %d fields", n.Field, len(s.Fields))
			}
		}
	case Merge:
		if ref("accumulator", n.Accumulator) {
			if _, ok := t.nodes[n.Accumulator].(Vector); !ok {
				fail(ErrInvalidVector, "accumulator", "merge accumulator must be a vector, got %s", KindName(t.nodes[n.Accumulator]))
			}
		}
		if ref("access", n.Access) {
			if _, ok := t.nodes[n.Access].(Lookup); !ok {
				fail(ErrInvalidAccess, "access", "merge access must be a lookup, got %s", KindName(t.nodes[n.Access]))
			}
		}
		ref("index", n.Index)
		ref("value", n.Value)
		if !positive(n.ElemSize) {
			fail(ErrInvalidVectorShape, "elem_size", "merge element size must be positive, got %v", n.ElemSize)
		}
	case Fixed:
		if n.Cost < 0 || math.IsInf(n.Cost, 0) || math.IsNaN(n.Cost) {
			fail(ErrInvalidCost, "cost", "fixed cost must be finite and non-negative, got %v", n.Cost)
		}
	default:
		fail(ErrUnknownOp, "kind", "unsupported node type %T", n)
	}
	return errs
}

func joinValidationErrors(errs []ValidationError) error {
	wrapped := make([]error, len(errs))
	for i, e := range errs {
		wrapped[i] = e
	}
	return errors.Join(wrapped...)
}
