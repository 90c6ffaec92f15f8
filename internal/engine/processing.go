package engine

import (
	"math"

	"github.com/roach88/loopcost/internal/hwconfig"
	"github.com/roach88/loopcost/internal/ir"
)

// LookupAnnotation is what the processing walk learns about one Lookup.
// Annotations are outputs of one evaluation and live in its Result.
type LookupAnnotation struct {
	Node ir.NodeID `json:"node"`
	// ExecProbability is the context selectivity when the lookup was
	// reached: the fraction of iterations that perform it.
	ExecProbability float64 `json:"exec_probability"`
	Sequential      bool    `json:"sequential"`
	// Iterations is the product of the enclosing loops' iteration counts.
	Iterations float64 `json:"iterations"`
	// Stride is the product of the enclosing loops' strides, so that
	// Iterations * Stride counts the elements the lookup touches.
	Stride  float64       `json:"stride"`
	Frames  []LoopFrame   `json:"frames"`
	Pattern AccessPattern `json:"pattern"`
}

// procCost is a processing cost split into instruction work and expected
// branch misprediction penalty.
type procCost struct {
	Compute    float64
	Mispredict float64
}

func (p procCost) total() float64 {
	return p.Compute + p.Mispredict
}

func (p procCost) plus(o procCost) procCost {
	return procCost{Compute: p.Compute + o.Compute, Mispredict: p.Mispredict + o.Mispredict}
}

func (p procCost) times(f float64) procCost {
	return procCost{Compute: p.Compute * f, Mispredict: p.Mispredict * f}
}

// walker runs the processing-cost recursion for one evaluation.
type walker struct {
	tree        *ir.Tree
	in          hwconfig.Instruction
	ctx         *evalContext
	annotations map[ir.NodeID]LookupAnnotation
	memo        map[memoKey]procCost
}

// memoKey identifies a node visited under one context, so a subtree with
// several parents is costed once per distinct context.
type memoKey struct {
	node ir.NodeID
	ctx  string
}

func newWalker(t *ir.Tree, in hwconfig.Instruction) *walker {
	return &walker{
		tree:        t,
		in:          in,
		ctx:         newEvalContext(),
		annotations: make(map[ir.NodeID]LookupAnnotation),
		memo:        make(map[memoKey]procCost),
	}
}

func (w *walker) cost(id ir.NodeID) (procCost, error) {
	k := memoKey{node: id, ctx: w.ctx.key}
	if c, ok := w.memo[k]; ok {
		return c, nil
	}
	c, err := w.nodeCost(id)
	if err != nil {
		return procCost{}, err
	}
	w.memo[k] = c
	return c, nil
}

func (w *walker) nodeCost(id ir.NodeID) (procCost, error) {
	switch n := w.tree.Node(id).(type) {
	case ir.Literal, ir.Vector:
		return procCost{}, nil

	case ir.Ident:
		if _, ok := w.ctx.lookupBinding(n.Name); ok || w.ctx.isLoopIndex(n.Name) {
			return procCost{}, nil
		}
		return procCost{}, newUnboundIdentError(id, n.Name)

	case ir.Fixed:
		return procCost{Compute: n.Cost}, nil

	case ir.Binary:
		left, err := w.cost(n.Left)
		if err != nil {
			return procCost{}, err
		}
		right, err := w.cost(n.Right)
		if err != nil {
			return procCost{}, err
		}
		return left.plus(right).plus(procCost{Compute: w.in.BinOpLatency}), nil

	case ir.For:
		return w.loop(id, n)

	case ir.If:
		return w.branch(n)

	case ir.Lookup:
		if err := w.annotate(id, n); err != nil {
			return procCost{}, err
		}
		// Index arithmetic is part of the address computation, which the
		// memory model accounts for; only nested lookups matter here.
		for _, idx := range n.Indices {
			if _, err := w.cost(idx); err != nil {
				return procCost{}, err
			}
		}
		return procCost{}, nil

	case ir.Let:
		value, err := w.cost(n.Value)
		if err != nil {
			return procCost{}, err
		}
		restore := w.ctx.bind(n.Name, n.Value)
		defer restore()
		body, err := w.cost(n.Body)
		if err != nil {
			return procCost{}, err
		}
		return value.plus(body), nil

	case ir.StructLit:
		var sum procCost
		for _, f := range n.Fields {
			c, err := w.cost(f)
			if err != nil {
				return procCost{}, err
			}
			sum = sum.plus(c)
		}
		return sum, nil

	case ir.GetField:
		return w.cost(n.Struct)

	case ir.Merge:
		return w.merge(n)

	default:
		return procCost{}, newUnknownNodeError(id, n)
	}
}

func (w *walker) loop(id ir.NodeID, n ir.For) (procCost, error) {
	index := w.tree.IdentName(n.Index)
	if index == "" {
		index = anonymousIndex(id)
	}
	frame := LoopFrame{Iterations: n.Iterations(), Index: index, Stride: n.Stride}

	restore := w.ctx.enterLoop(frame)
	defer restore()

	body, err := w.cost(n.Body)
	if err != nil {
		return procCost{}, err
	}
	return body.times(frame.Iterations), nil
}

func (w *walker) branch(n ir.If) (procCost, error) {
	cond, err := w.cost(n.Cond)
	if err != nil {
		return procCost{}, err
	}

	s := n.Selectivity
	outer := w.ctx.selectivity
	then, err := w.underSelectivity(outer*s, n.Then)
	if err != nil {
		return procCost{}, err
	}
	els, err := w.underSelectivity(outer*(1-s), n.Else)
	if err != nil {
		return procCost{}, err
	}

	penalty := MispredictPenalty(w.in.BranchLatency, s)
	if dist, ok := w.conditionIterationDistance(n.Cond); ok && dist > w.in.PredictableIterationDistance {
		penalty = 0
	}

	return cond.plus(then.times(s)).plus(els.times(1 - s)).plus(procCost{Mispredict: penalty}), nil
}

func (w *walker) underSelectivity(s float64, id ir.NodeID) (procCost, error) {
	restore := w.ctx.withSelectivity(s)
	defer restore()
	return w.cost(id)
}

// MispredictPenalty is the expected misprediction cost of a branch taken
// with probability s: zero when the outcome never changes, the full latency
// at s = 0.5.
func MispredictPenalty(latency, s float64) float64 {
	return latency * (1 - math.Pow(2*s-1, 2))
}

// conditionIterationDistance is the smallest iteration distance among the
// lookups a branch condition reads, following let-bound identifiers. ok is
// false when the condition reads no memory.
func (w *walker) conditionIterationDistance(cond ir.NodeID) (dist float64, ok bool) {
	frames := w.ctx.loops
	dist = math.Inf(1)
	following := make(map[string]bool)

	var visit func(ir.NodeID)
	visit = func(start ir.NodeID) {
		w.tree.WalkFrom(start, func(id ir.NodeID, e ir.Expr) bool {
			switch n := e.(type) {
			case ir.Lookup:
				p := accessPattern(w.tree, id, frames, w.ctx.lookupBinding)
				dist = math.Min(dist, IterationDistance(frames, p.Indices))
				ok = true
			case ir.Ident:
				if value, bound := w.ctx.lookupBinding(n.Name); bound && !following[n.Name] {
					following[n.Name] = true
					visit(value)
				}
			}
			return true
		})
	}
	visit(cond)
	return dist, ok
}

func (w *walker) merge(n ir.Merge) (procCost, error) {
	// The access lookup carries the memory cost of the update. Like any
	// lookup it charges nothing for its index.
	if _, err := w.cost(n.Access); err != nil {
		return procCost{}, err
	}
	c, err := w.cost(n.Value)
	if err != nil {
		return procCost{}, err
	}
	if n.Global {
		c = c.plus(procCost{Compute: w.in.AtomicAddLatency})
	}
	return c, nil
}

// annotate records a lookup reached under the current context. A lookup
// reached along several paths keeps the highest execution probability.
func (w *walker) annotate(id ir.NodeID, n ir.Lookup) error {
	if len(w.ctx.loops) == 0 {
		return newNoEnclosingLoopError(id)
	}
	frames := w.ctx.frames()
	ann := LookupAnnotation{
		Node:            id,
		ExecProbability: w.ctx.selectivity,
		Sequential:      isSequential(w.tree, n, w.ctx.loopIndices(), w.ctx.lookupBinding),
		Iterations:      w.ctx.totalIterations(),
		Stride:          w.ctx.totalStride(),
		Frames:          frames,
		Pattern:         accessPattern(w.tree, id, frames, w.ctx.lookupBinding),
	}
	if prev, ok := w.annotations[id]; ok && prev.ExecProbability >= ann.ExecProbability {
		return nil
	}
	w.annotations[id] = ann
	return nil
}
