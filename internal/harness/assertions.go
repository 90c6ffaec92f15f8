package harness

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"

	"github.com/roach88/loopcost/internal/engine"
	"github.com/roach88/loopcost/internal/store"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Type, e.Expected, e.Actual)
}

func checkAssertion(r *Result, a Assertion) error {
	switch a.Type {
	case AssertCostLess:
		return assertCostLess(r, a)
	case AssertCostEqual:
		return assertCostEqual(r, a)
	case AssertCostBetween:
		return assertCostBetween(r, a)
	case AssertLookupSequential:
		return assertLookups(r, a, func(lc engine.LookupCost) (bool, string) {
			return lc.Sequential == *a.Sequential, pattern(lc.Sequential)
		}, pattern(derefBool(a.Sequential)))
	case AssertLookupLevel:
		return assertLookups(r, a, func(lc engine.LookupCost) (bool, string) {
			return lc.Level == a.Level, lc.Level
		}, a.Level)
	case AssertFinite:
		return assertFinite(r, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func lookupRun(r *Result, name string) (store.Run, error) {
	p, ok := r.Program(name)
	if !ok {
		return store.Run{}, fmt.Errorf("unknown program %q", name)
	}
	return p.Run, nil
}

func assertCostLess(r *Result, a Assertion) error {
	lhs, err := lookupRun(r, a.Program)
	if err != nil {
		return err
	}
	rhs, err := lookupRun(r, a.Than)
	if err != nil {
		return err
	}
	if lhs.Total < rhs.Total {
		return nil
	}
	return &AssertionError{
		Type:     AssertCostLess,
		Expected: fmt.Sprintf("%s < %s (%g)", a.Program, a.Than, rhs.Total),
		Actual:   fmt.Sprintf("%s = %g", a.Program, lhs.Total),
	}
}

func assertCostEqual(r *Result, a Assertion) error {
	tol := a.Tolerance
	if tol == 0 {
		tol = DefaultTolerance
	}

	totals := make([]float64, len(a.Programs))
	for i, name := range a.Programs {
		run, err := lookupRun(r, name)
		if err != nil {
			return err
		}
		totals[i] = run.Total
	}

	for i := 1; i < len(totals); i++ {
		if !closeEnough(totals[0], totals[i], tol) {
			parts := make([]string, len(totals))
			for j, name := range a.Programs {
				parts[j] = fmt.Sprintf("%s = %g", name, totals[j])
			}
			return &AssertionError{
				Type:     AssertCostEqual,
				Expected: fmt.Sprintf("equal totals within %g", tol),
				Actual:   strings.Join(parts, ", "),
			}
		}
	}
	return nil
}

func closeEnough(a, b, rel float64) bool {
	scale := math.Max(math.Abs(a), math.Abs(b))
	return math.Abs(a-b) <= rel*math.Max(scale, 1)
}

func assertCostBetween(r *Result, a Assertion) error {
	run, err := lookupRun(r, a.Program)
	if err != nil {
		return err
	}
	lo, hi := math.Inf(-1), math.Inf(1)
	if a.Min != nil {
		lo = *a.Min
	}
	if a.Max != nil {
		hi = *a.Max
	}
	if run.Total >= lo && run.Total <= hi {
		return nil
	}
	return &AssertionError{
		Type:     AssertCostBetween,
		Expected: fmt.Sprintf("%s in [%g, %g]", a.Program, lo, hi),
		Actual:   fmt.Sprintf("%g", run.Total),
	}
}

// assertLookups checks every lookup of a.Vector in a.Program. A vector the
// program never looks up fails the assertion.
func assertLookups(r *Result, a Assertion, check func(engine.LookupCost) (bool, string), want string) error {
	run, err := lookupRun(r, a.Program)
	if err != nil {
		return err
	}

	found := false
	for _, lc := range run.Lookups {
		if lc.Vector != a.Vector {
			continue
		}
		found = true
		if ok, got := check(lc); !ok {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%s[%s] %s", a.Program, a.Vector, want),
				Actual:   fmt.Sprintf("%s (node %d)", got, lc.Node),
			}
		}
	}
	if !found {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("a lookup of %s in %s", a.Vector, a.Program),
			Actual:   "none",
		}
	}
	return nil
}

func pattern(sequential bool) string {
	if sequential {
		return "sequential"
	}
	return "random"
}

func derefBool(b *bool) bool {
	return b != nil && *b
}

func assertFinite(r *Result, a Assertion) error {
	runs := make([]store.Run, 0, len(r.Programs))
	if a.Program != "" {
		run, err := lookupRun(r, a.Program)
		if err != nil {
			return err
		}
		runs = append(runs, run)
	} else {
		for _, p := range r.Programs {
			runs = append(runs, p.Run)
		}
	}

	for _, run := range runs {
		fields := map[string]float64{
			"total":           run.Total,
			"processing":      run.Processing,
			"compute":         run.Compute,
			"mispredict":      run.Mispredict,
			"memory":          run.Memory,
			"faster":          run.Faster,
			"slow_random":     run.SlowRandom,
			"slow_sequential": run.SlowSequential,
			"masked_slow":     run.MaskedSlow,
		}
		for _, name := range slices.Sorted(maps.Keys(fields)) {
			v := fields[name]
			if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
				return &AssertionError{
					Type:     AssertFinite,
					Expected: fmt.Sprintf("%s.%s finite and non-negative", run.Program, name),
					Actual:   fmt.Sprintf("%g", v),
				}
			}
		}
	}
	return nil
}
