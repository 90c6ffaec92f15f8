package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/loopcost/internal/ir"
)

func TestEvalContextRestore(t *testing.T) {
	c := newEvalContext()
	assert.Equal(t, 1.0, c.selectivity)

	restoreLoop := c.enterLoop(LoopFrame{Iterations: 10, Index: "i", Stride: 1})
	restoreSel := c.withSelectivity(0.25)
	restoreOuter := c.bind("x", ir.NodeID(1))
	restoreInner := c.bind("x", ir.NodeID(2))

	v, ok := c.lookupBinding("x")
	assert.True(t, ok)
	assert.Equal(t, ir.NodeID(2), v)
	assert.True(t, c.isLoopIndex("i"))
	assert.Equal(t, 0.25, c.selectivity)

	restoreInner()
	v, _ = c.lookupBinding("x")
	assert.Equal(t, ir.NodeID(1), v)

	restoreOuter()
	_, ok = c.lookupBinding("x")
	assert.False(t, ok)

	restoreSel()
	assert.Equal(t, 1.0, c.selectivity)

	restoreLoop()
	assert.False(t, c.isLoopIndex("i"))
	assert.Empty(t, c.frames())
}

func TestEvalContextFrames(t *testing.T) {
	c := newEvalContext()
	defer c.enterLoop(LoopFrame{Iterations: 10, Index: "j", Stride: 1})()
	defer c.enterLoop(LoopFrame{Iterations: 4, Index: "i", Stride: 2})()

	assert.Equal(t, []string{"j", "i"}, c.loopIndices())
	assert.Equal(t, 40.0, c.totalIterations())
	assert.Equal(t, 2.0, c.totalStride())

	frames := c.frames()
	frames[0].Index = "mutated"
	assert.Equal(t, "j", c.loops[0].Index)
}

func TestEvalContextKey(t *testing.T) {
	c := newEvalContext()
	base := c.key

	restoreLoop := c.enterLoop(LoopFrame{Iterations: 10, Index: "i", Stride: 1})
	inLoop := c.key
	assert.NotEqual(t, base, inLoop)

	restoreSel := c.withSelectivity(0.5)
	assert.NotEqual(t, inLoop, c.key)
	restoreSel()
	assert.Equal(t, inLoop, c.key)

	restoreX := c.bind("x", ir.NodeID(1))
	bound := c.key
	restoreX()
	restoreY := c.bind("x", ir.NodeID(2))
	assert.NotEqual(t, bound, c.key)
	restoreY()

	restoreLoop()
	assert.Equal(t, base, c.key)
}

func TestAnonymousIndex(t *testing.T) {
	assert.Equal(t, "$loop7", anonymousIndex(ir.NodeID(7)))
}
