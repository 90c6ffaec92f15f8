package harness

import (
	"math"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/loopcost/internal/ir"
)

// Report renders a result as canonical JSON for golden comparison. Costs
// are rounded to two decimals so the report is stable across platforms
// whose last-bit float rounding differs; run IDs and hashes are left out.
func Report(scenarioName string, r *Result) ([]byte, error) {
	programs := make([]any, len(r.Programs))
	for i, p := range r.Programs {
		lookups := make([]any, len(p.Run.Lookups))
		for j, lc := range p.Run.Lookups {
			lookups[j] = map[string]any{
				"vector":     lc.Vector,
				"sequential": lc.Sequential,
				"level":      lc.Level,
			}
		}
		programs[i] = map[string]any{
			"name":       p.Name,
			"hardware":   p.Run.Hardware,
			"cached":     p.Cached,
			"total":      round2(p.Run.Total),
			"processing": round2(p.Run.Processing),
			"memory":     round2(p.Run.Memory),
			"lookups":    lookups,
		}
	}

	return ir.MarshalCanonical(map[string]any{
		"scenario": scenarioName,
		"pass":     r.Pass,
		"programs": programs,
	})
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// RunWithGolden executes a scenario and compares its report against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against the golden file for
// scenarioName.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	report, err := Report(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, report)
	return nil
}
