package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/loopcost/internal/compiler"
	"github.com/roach88/loopcost/internal/engine"
	"github.com/roach88/loopcost/internal/ir"
	"github.com/roach88/loopcost/internal/store"
	"github.com/roach88/loopcost/internal/testutil"
)

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation. Run
// returns an error when the scenario cannot be executed (bad hardware, a
// program that does not compile or evaluate); failed assertions are
// reported in the Result instead.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	hw, err := scenario.ResolveHardware()
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	programs, err := scenario.compile()
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	st, err := store.Open(store.InMemory, store.WithIDGenerator(&testutil.SequentialIDs{}))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	eval, err := engine.New(hw, engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	result := NewResult()
	result.Hardware = hw.Name
	for _, p := range programs {
		run, cached, err := st.Evaluate(ctx, eval, p.Spec.Name, p.Tree)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
		}
		result.Programs = append(result.Programs, ProgramResult{
			Name:   p.Spec.Name,
			Run:    run,
			Cached: cached,
		})
	}

	for i, a := range scenario.Assertions {
		if err := checkAssertion(result, a); err != nil {
			result.AddError(fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return result, nil
}

// compile loads the included files, then builds the inline programs.
// Program names must be unique across both.
func (s *Scenario) compile() ([]compiler.Program, error) {
	unit := &compiler.Unit{}
	for _, inc := range s.Include {
		u, err := compiler.LoadFile(s.resolve(inc))
		if err != nil {
			return nil, err
		}
		unit.Merge(u)
	}

	for _, spec := range s.Programs {
		tree, err := ir.BuildProgram(spec)
		if err != nil {
			return nil, err
		}
		unit.Programs = append(unit.Programs, compiler.Program{Spec: spec, Tree: tree})
	}

	seen := make(map[string]bool, len(unit.Programs))
	for _, p := range unit.Programs {
		if seen[p.Spec.Name] {
			return nil, fmt.Errorf("duplicate program %q", p.Spec.Name)
		}
		seen[p.Spec.Name] = true
	}
	return unit.Programs, nil
}
