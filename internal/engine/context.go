package engine

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/loopcost/internal/ir"
)

// LoopFrame describes one active loop: its iteration count after stride,
// the name of its index identifier and its stride.
type LoopFrame struct {
	Iterations float64 `json:"iterations"`
	Index      string  `json:"index"`
	Stride     float64 `json:"stride"`
}

// anonymousIndex names the counter of a loop that declares no index, so
// that implicit lookups still have a loop to match against.
func anonymousIndex(loop ir.NodeID) string {
	return fmt.Sprintf("$loop%d", loop)
}

// evalContext is the propagation state threaded through one processing
// walk. Every mutator returns a restore func; callers defer it so the state
// seen by a sibling is the state before the call, on every exit path.
type evalContext struct {
	selectivity float64
	loops       []LoopFrame // outermost first
	bindings    map[string]ir.NodeID

	// key fingerprints the three fields above. Two visits of a node under
	// equal keys cost the same and record the same annotations.
	key string
}

func newEvalContext() *evalContext {
	c := &evalContext{
		selectivity: 1,
		bindings:    make(map[string]ir.NodeID),
	}
	c.rekey()
	return c
}

// enterLoop pushes a loop frame.
func (c *evalContext) enterLoop(f LoopFrame) (restore func()) {
	c.loops = append(c.loops, f)
	depth := len(c.loops) - 1
	old := c.rekey()
	return func() {
		c.loops = c.loops[:depth]
		c.key = old
	}
}

// withSelectivity replaces the current selectivity.
func (c *evalContext) withSelectivity(s float64) (restore func()) {
	old := c.selectivity
	c.selectivity = s
	oldKey := c.rekey()
	return func() {
		c.selectivity = old
		c.key = oldKey
	}
}

// bind binds name to value, shadowing any outer binding.
func (c *evalContext) bind(name string, value ir.NodeID) (restore func()) {
	prev, had := c.bindings[name]
	c.bindings[name] = value
	old := c.rekey()
	return func() {
		if had {
			c.bindings[name] = prev
		} else {
			delete(c.bindings, name)
		}
		c.key = old
	}
}

// rekey recomputes the fingerprint and returns the previous one.
func (c *evalContext) rekey() (old string) {
	old = c.key
	var sb strings.Builder
	sb.WriteString(strconv.FormatFloat(c.selectivity, 'g', -1, 64))
	for _, f := range c.loops {
		fmt.Fprintf(&sb, "|%q/%g/%g", f.Index, f.Iterations, f.Stride)
	}
	names := make([]string, 0, len(c.bindings))
	for name := range c.bindings {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		fmt.Fprintf(&sb, "|%q=%d", name, c.bindings[name])
	}
	c.key = sb.String()
	return old
}

// lookupBinding returns the value bound to name by an enclosing Let.
func (c *evalContext) lookupBinding(name string) (ir.NodeID, bool) {
	v, ok := c.bindings[name]
	return v, ok
}

// isLoopIndex reports whether name is the index of an active loop.
func (c *evalContext) isLoopIndex(name string) bool {
	for _, f := range c.loops {
		if f.Index == name {
			return true
		}
	}
	return false
}

// frames returns a copy of the loop stack.
func (c *evalContext) frames() []LoopFrame {
	return slices.Clone(c.loops)
}

// loopIndices returns the active index names, innermost last.
func (c *evalContext) loopIndices() []string {
	names := make([]string, len(c.loops))
	for i, f := range c.loops {
		names[i] = f.Index
	}
	return names
}

// totalIterations is the product of all active iteration counts.
func (c *evalContext) totalIterations() float64 {
	return totalIterations(c.loops)
}

func totalIterations(frames []LoopFrame) float64 {
	n := 1.0
	for _, f := range frames {
		n *= f.Iterations
	}
	return n
}

// totalStride is the product of all active strides.
func (c *evalContext) totalStride() float64 {
	n := 1.0
	for _, f := range c.loops {
		n *= f.Stride
	}
	return n
}
