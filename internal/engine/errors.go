package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/loopcost/internal/ir"
)

// EvalError represents an error detected during evaluation.
//
// Evaluation errors are caller bugs, never transient:
//   - Invalid config: hardware configuration fails validation
//   - No enclosing loop: a lookup is costed outside any For
//   - Unknown node: a node ID that does not resolve, or an unsupported variant
//   - Unbound identifier: an Ident that names neither a loop index nor a let
type EvalError struct {
	// Code identifies the error category.
	Code EvalErrorCode

	// Message is a human-readable description.
	Message string

	// Node is the offending node, if any.
	Node ir.NodeID

	// Err is the underlying cause, if any.
	Err error
}

// EvalErrorCode categorizes evaluation errors.
type EvalErrorCode string

const (
	// ErrCodeInvalidConfig indicates the hardware configuration is unusable.
	ErrCodeInvalidConfig EvalErrorCode = "INVALID_CONFIG"

	// ErrCodeNoEnclosingLoop indicates a lookup with no loop frame.
	ErrCodeNoEnclosingLoop EvalErrorCode = "NO_ENCLOSING_LOOP"

	// ErrCodeUnknownNode indicates a node the evaluator cannot dispatch.
	ErrCodeUnknownNode EvalErrorCode = "UNKNOWN_NODE"

	// ErrCodeUnboundIdent indicates an identifier with no binding in scope.
	ErrCodeUnboundIdent EvalErrorCode = "UNBOUND_IDENT"
)

// Error implements the error interface.
func (e *EvalError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Node.IsValid() {
		msg = fmt.Sprintf("%s (node=%d)", msg, e.Node)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *EvalError) Unwrap() error {
	return e.Err
}

// IsConfigError returns true if the error is a hardware configuration error.
// Uses errors.As to handle wrapped errors.
func IsConfigError(err error) bool {
	var ee *EvalError
	if errors.As(err, &ee) {
		return ee.Code == ErrCodeInvalidConfig
	}
	return false
}

// IsUsageError returns true if the error reports a malformed tree.
func IsUsageError(err error) bool {
	var ee *EvalError
	if errors.As(err, &ee) {
		return ee.Code != ErrCodeInvalidConfig
	}
	return false
}

func newConfigError(err error) *EvalError {
	return &EvalError{
		Code:    ErrCodeInvalidConfig,
		Message: "hardware configuration is invalid",
		Err:     err,
	}
}

func newNoEnclosingLoopError(node ir.NodeID) *EvalError {
	return &EvalError{
		Code:    ErrCodeNoEnclosingLoop,
		Message: "lookup is not nested under any loop",
		Node:    node,
	}
}

func newUnknownNodeError(node ir.NodeID, e ir.Expr) *EvalError {
	return &EvalError{
		Code:    ErrCodeUnknownNode,
		Message: fmt.Sprintf("cannot evaluate node of type %T", e),
		Node:    node,
	}
}

func newUnboundIdentError(node ir.NodeID, name string) *EvalError {
	return &EvalError{
		Code:    ErrCodeUnboundIdent,
		Message: fmt.Sprintf("identifier %q is neither a loop index nor let-bound", name),
		Node:    node,
	}
}
