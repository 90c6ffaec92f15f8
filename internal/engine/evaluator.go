package engine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/roach88/loopcost/internal/hwconfig"
	"github.com/roach88/loopcost/internal/ir"
)

// Result is the outcome of one evaluation.
//
// Total = Processing + Memory
// Processing = Compute + Mispredict
// Memory = Faster + SlowRandom + MaskedSlow
type Result struct {
	Total      float64 `json:"total"`
	Processing float64 `json:"processing"`
	Compute    float64 `json:"compute"`
	Mispredict float64 `json:"mispredict"`
	Memory     float64 `json:"memory"`
	Faster     float64 `json:"faster"`
	SlowRandom float64 `json:"slow_random"`
	// SlowSequential is the largest DRAM streaming cost among lookups,
	// before overlap.
	SlowSequential float64 `json:"slow_sequential"`
	// MaskedSlow is the part of SlowSequential the prefetcher could not
	// hide.
	MaskedSlow float64 `json:"masked_slow"`

	// Lookups holds one entry per lookup reached, ordered by node.
	Lookups []LookupCost `json:"lookups"`
	// Annotations is the side table written by the processing walk.
	Annotations map[ir.NodeID]LookupAnnotation `json:"-"`
}

// LookupCost is the memory cost attributed to one lookup.
type LookupCost struct {
	Node            ir.NodeID `json:"node"`
	Vector          string    `json:"vector"`
	Sequential      bool      `json:"sequential"`
	ExecProbability float64   `json:"exec_probability"`
	Iterations      float64   `json:"iterations"`
	// ReuseDistance is in lines; meaningful for sequential lookups only.
	ReuseDistance  int     `json:"reuse_distance"`
	Level          string  `json:"level"`
	Faster         float64 `json:"faster"`
	SlowRandom     float64 `json:"slow_random"`
	SlowSequential float64 `json:"slow_sequential"`
}

// Evaluator estimates costs against one hardware configuration.
//
// Thread-safety: an Evaluator holds no per-evaluation state. Evaluate may be
// called from any number of goroutines, on the same or different trees.
type Evaluator struct {
	hw     hwconfig.Config
	logger *slog.Logger
}

// EvaluatorOption allows configuration of evaluator parameters.
type EvaluatorOption func(*Evaluator)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) EvaluatorOption {
	return func(e *Evaluator) {
		e.logger = l
	}
}

// New creates an Evaluator. The configuration is validated once, here, so
// that no evaluation can divide by a zero block size or throughput.
func New(hw hwconfig.Config, opts ...EvaluatorOption) (*Evaluator, error) {
	if err := hw.Validate(); err != nil {
		return nil, newConfigError(err)
	}
	e := &Evaluator{
		hw:     hw.Clone(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Hardware returns the configuration the evaluator costs against.
func (e *Evaluator) Hardware() hwconfig.Config {
	return e.hw.Clone()
}

// Evaluate estimates the cost of a tree. A tree whose root is not a For
// costs zero.
func (e *Evaluator) Evaluate(t *ir.Tree) (*Result, error) {
	res := &Result{Annotations: map[ir.NodeID]LookupAnnotation{}}
	if _, ok := t.Node(t.Root()).(ir.For); !ok {
		e.logger.Debug("root is not a loop, cost is zero", "root", t.Root())
		return res, nil
	}

	w := newWalker(t, e.hw.Instruction)
	proc, err := w.cost(t.Root())
	if err != nil {
		return nil, err
	}
	res.Compute = proc.Compute
	res.Mispredict = proc.Mispredict
	res.Processing = proc.total()
	res.Annotations = w.annotations

	ids := make([]ir.NodeID, 0, len(w.annotations))
	for id := range w.annotations {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	patterns := make([]AccessPattern, len(ids))
	for i, id := range ids {
		patterns[i] = w.annotations[id].Pattern
	}

	for i, id := range ids {
		lc, err := e.lookupCost(t, w.annotations[id], patterns, i)
		if err != nil {
			return nil, err
		}
		res.Lookups = append(res.Lookups, lc)
		res.Faster += lc.Faster
		res.SlowRandom += lc.SlowRandom
		res.SlowSequential = max(res.SlowSequential, lc.SlowSequential)
	}

	res.MaskedSlow = prefetchOverlap(res.Processing, res.Faster, res.SlowSequential)
	res.Memory = res.Faster + res.SlowRandom + res.MaskedSlow
	res.Total = res.Processing + res.Memory

	e.logger.Info("evaluated",
		"total", res.Total,
		"processing", res.Processing,
		"memory", res.Memory,
		"lookups", len(res.Lookups),
	)
	return res, nil
}

func (e *Evaluator) lookupCost(t *ir.Tree, ann LookupAnnotation, patterns []AccessPattern, self int) (LookupCost, error) {
	if len(ann.Frames) == 0 {
		return LookupCost{}, newNoEnclosingLoopError(ann.Node)
	}
	others := make([]AccessPattern, 0, len(patterns)-1)
	others = append(others, patterns[:self]...)
	others = append(others, patterns[self+1:]...)

	lc := LookupCost{
		Node:            ann.Node,
		Vector:          ann.Pattern.Vector,
		Sequential:      ann.Sequential,
		ExecProbability: ann.ExecProbability,
		Iterations:      ann.Iterations,
	}

	var mc memoryCost
	if ann.Sequential {
		lc.ReuseDistance = ReuseDistance(ann.Pattern, others, ann.Frames, e.hw.BlockSize(0))
		mc = sequentialCost(e.hw, ann, lc.ReuseDistance)
	} else {
		vec, ok := t.VectorOf(ann.Node)
		if !ok {
			return LookupCost{}, newUnknownNodeError(ann.Node, t.Node(ann.Node))
		}
		mc = randomCost(e.hw, ann, vec.Length)
	}
	lc.Level = e.hw.LevelName(mc.Level)
	lc.Faster = mc.Faster
	lc.SlowRandom = mc.SlowRandom
	lc.SlowSequential = mc.SlowSequential

	e.logger.Debug("lookup costed",
		"node", ann.Node,
		"vector", lc.Vector,
		"sequential", lc.Sequential,
		"reuse_distance", lc.ReuseDistance,
		"level", lc.Level,
		"faster", lc.Faster,
		"slow_random", lc.SlowRandom,
		"slow_sequential", lc.SlowSequential,
	)
	return lc, nil
}

// EvaluateAll evaluates trees concurrently, one goroutine per tree, and
// returns results in input order. Trees not yet started when ctx is
// cancelled are skipped and the context error is returned.
func (e *Evaluator) EvaluateAll(ctx context.Context, trees []*ir.Tree) ([]*Result, error) {
	results := make([]*Result, len(trees))
	errs := make([]error, len(trees))

	var wg sync.WaitGroup
	for i, t := range trees {
		wg.Add(1)
		go func(i int, t *ir.Tree) {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return
			}
			results[i], errs[i] = e.Evaluate(t)
		}(i, t)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return results, nil
}

// Cost is a one-shot convenience: it validates hw, evaluates t and returns
// the total.
func Cost(t *ir.Tree, hw hwconfig.Config) (float64, error) {
	e, err := New(hw)
	if err != nil {
		return 0, err
	}
	res, err := e.Evaluate(t)
	if err != nil {
		return 0, err
	}
	return res.Total, nil
}
