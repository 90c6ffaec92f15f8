package store

import (
	"context"
	"fmt"

	"github.com/roach88/loopcost/internal/engine"
	"github.com/roach88/loopcost/internal/ir"
)

// Evaluate returns the cost of t on e's hardware, reusing a stored run when
// the same tree has already been costed there. Otherwise it evaluates t and
// records the run. cached reports whether the run came from the store.
//
// A cached run keeps the program name it was first recorded under.
func (s *Store) Evaluate(ctx context.Context, e *engine.Evaluator, program string, t *ir.Tree) (run Run, cached bool, err error) {
	hw := e.Hardware()
	key, err := newRunKey(program, t, hw)
	if err != nil {
		return Run{}, false, err
	}

	if run, ok, err := s.FindCached(ctx, key.CacheKey); err != nil {
		return Run{}, false, err
	} else if ok {
		return run, true, nil
	}

	res, err := e.Evaluate(t)
	if err != nil {
		return Run{}, false, fmt.Errorf("evaluate %q: %w", program, err)
	}
	run, err = NewRun(program, t, hw, res)
	if err != nil {
		return Run{}, false, err
	}
	run, err = s.WriteRun(ctx, run)
	if err != nil {
		return Run{}, false, err
	}
	return run, false, nil
}
