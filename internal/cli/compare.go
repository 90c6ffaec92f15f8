package cli

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/loopcost/internal/compiler"
	"github.com/roach88/loopcost/internal/ir"
	"github.com/roach88/loopcost/internal/store"
)

// CompareOptions holds flags for the compare command.
type CompareOptions struct {
	*RootOptions
	Programs []string
}

// CompareRow is one ranked program.
type CompareRow struct {
	Rank    int     `json:"rank"`
	Program string  `json:"program"`
	Total   float64 `json:"total"`
	// Ratio is Total over the cheapest program's total.
	Ratio  float64 `json:"ratio"`
	Cached bool    `json:"cached"`
}

// CompareReport is the output of the compare command.
type CompareReport struct {
	Hardware string       `json:"hardware"`
	Cheapest string       `json:"cheapest"`
	Ranking  []CompareRow `json:"ranking"`
}

// NewCompareCommand creates the compare command.
func NewCompareCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompareOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compare <path>...",
		Short: "Rank alternative programs by cost",
		Long: `Cost several programs on the same hardware and rank them, cheapest first.

This is how an optimizer picks between transformations of one query:
for example a branch against its predicated form, or two loop orders.
Programs missing from the run ledger are evaluated concurrently.

Examples:
  loopcost compare branched.yaml predicated.yaml
  loopcost compare ./variants --hardware ./machines/laptop.yaml`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(opts, args, cmd)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.Programs, "program", "p", nil, "only compare these programs")

	return cmd
}

func runCompare(opts *CompareOptions, paths []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	loaded, loadErrs := LoadPrograms(paths, LoadModeFailFast)
	if len(loadErrs) > 0 {
		return outputLoadError(formatter, loadErrs[0])
	}
	programs, err := selectPrograms(loaded, opts.Programs)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	if len(programs) < 2 {
		return outputLoadError(formatter, &LoadError{
			Code:    ErrCodeGeneric,
			Message: fmt.Sprintf("compare needs at least two programs, found %d", len(programs)),
		})
	}

	sess, err := openSession(opts.RootOptions, cmd, loaded.Hardware)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	defer sess.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	runs, cached, err := evaluateMany(ctx, sess, programs)
	if err != nil {
		_ = formatter.Error(ErrCodeEvalFailed, err.Error(), nil)
		return WrapExitError(ExitFailure, "evaluation failed", err)
	}

	report := rank(sess.hw.Name, programs, runs, cached)
	return formatter.Render(report, func(w io.Writer) error {
		return writeCompareText(w, report)
	})
}

// evaluateMany costs programs, reusing ledger entries and evaluating the
// rest concurrently.
func evaluateMany(ctx context.Context, sess *session, programs []compiler.Program) ([]store.Run, []bool, error) {
	runs := make([]store.Run, len(programs))
	cached := make([]bool, len(programs))

	var missing []int
	var trees []*ir.Tree
	for i, p := range programs {
		key, err := store.TreeCacheKey(p.Tree, sess.hw)
		if err != nil {
			return nil, nil, err
		}
		run, ok, err := sess.store.FindCached(ctx, key)
		if err != nil {
			return nil, nil, err
		}
		if ok {
			runs[i], cached[i] = run, true
			continue
		}
		missing = append(missing, i)
		trees = append(trees, p.Tree)
	}
	sess.logger.Debug("comparing", "programs", len(programs), "cached", len(programs)-len(missing))

	results, err := sess.eval.EvaluateAll(ctx, trees)
	if err != nil {
		return nil, nil, err
	}
	for j, i := range missing {
		run, err := store.NewRun(programs[i].Spec.Name, programs[i].Tree, sess.hw, results[j])
		if err != nil {
			return nil, nil, err
		}
		if runs[i], err = sess.store.WriteRun(ctx, run); err != nil {
			return nil, nil, err
		}
	}
	return runs, cached, nil
}

// rank orders programs by total cost. Ties keep input order.
func rank(hardware string, programs []compiler.Program, runs []store.Run, cached []bool) CompareReport {
	rows := make([]CompareRow, len(programs))
	for i, p := range programs {
		rows[i] = CompareRow{Program: p.Spec.Name, Total: runs[i].Total, Cached: cached[i]}
	}
	slices.SortStableFunc(rows, func(a, b CompareRow) int {
		return cmp.Compare(a.Total, b.Total)
	})

	best := rows[0].Total
	for i := range rows {
		rows[i].Rank = i + 1
		rows[i].Ratio = 1
		if best > 0 {
			rows[i].Ratio = rows[i].Total / best
		}
	}
	return CompareReport{Hardware: hardware, Cheapest: rows[0].Program, Ranking: rows}
}

func writeCompareText(w io.Writer, report CompareReport) error {
	fmt.Fprintf(w, "Hardware: %s\n\n", report.Hardware)
	rows := make([][]string, len(report.Ranking))
	for i, r := range report.Ranking {
		rows[i] = []string{
			strconv.Itoa(r.Rank),
			r.Program,
			formatCycles(r.Total),
			strconv.FormatFloat(r.Ratio, 'f', 2, 64) + "x",
			strconv.FormatBool(r.Cached),
		}
	}
	if err := writeTable(w, []string{"RANK", "PROGRAM", "TOTAL", "RATIO", "CACHED"}, rows); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nCheapest: %s\n", report.Cheapest)
	return nil
}
