package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/loopcost/internal/engine"
	"github.com/roach88/loopcost/internal/store"
)

// CostOptions holds flags for the cost command.
type CostOptions struct {
	*RootOptions
	Programs []string // restrict to these programs
	Lookups  bool     // include the per-lookup breakdown
}

// CostRow is one costed program.
type CostRow struct {
	Program    string              `json:"program"`
	RunID      string              `json:"run_id"`
	Cached     bool                `json:"cached"`
	Total      float64             `json:"total"`
	Processing float64             `json:"processing"`
	Compute    float64             `json:"compute"`
	Mispredict float64             `json:"mispredict"`
	Memory     float64             `json:"memory"`
	Lookups    []engine.LookupCost `json:"lookups,omitempty"`
}

// CostReport is the output of the cost command.
type CostReport struct {
	Hardware string    `json:"hardware"`
	Programs []CostRow `json:"programs"`
}

// NewCostCommand creates the cost command.
func NewCostCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CostOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "cost <path>...",
		Short: "Estimate the cost of programs",
		Long: `Estimate the cost, in cycles, of every program under the given paths.

Paths may be program files (.cue, .yaml, .yml, .json) or directories.
Results are recorded in the run ledger; a program already costed on the
same hardware is served from it.

Examples:
  loopcost cost ./programs
  loopcost cost q6.cue --hardware legacy --lookups
  loopcost cost ./programs --program branched --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCost(opts, args, cmd)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.Programs, "program", "p", nil, "only cost these programs")
	cmd.Flags().BoolVar(&opts.Lookups, "lookups", false, "show the per-lookup breakdown")

	return cmd
}

func runCost(opts *CostOptions, paths []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	loaded, loadErrs := LoadPrograms(paths, LoadModeFailFast)
	if len(loadErrs) > 0 {
		return outputLoadError(formatter, loadErrs[0])
	}
	formatter.VerboseLog("Loaded %d program(s) from %d file(s)", len(loaded.Programs), loaded.FileCount)

	programs, err := selectPrograms(loaded, opts.Programs)
	if err != nil {
		return outputLoadError(formatter, err)
	}

	sess, err := openSession(opts.RootOptions, cmd, loaded.Hardware)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	defer sess.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	report := CostReport{Hardware: sess.hw.Name, Programs: make([]CostRow, 0, len(programs))}
	for _, p := range programs {
		run, cached, err := sess.store.Evaluate(ctx, sess.eval, p.Spec.Name, p.Tree)
		if err != nil {
			_ = formatter.Error(ErrCodeEvalFailed, err.Error(), nil)
			return WrapExitError(ExitFailure, "evaluation failed", err)
		}
		report.Programs = append(report.Programs, costRow(p.Spec.Name, run, cached, opts.Lookups))
	}

	return formatter.Render(report, func(w io.Writer) error {
		return writeCostText(w, report)
	})
}

func costRow(program string, run store.Run, cached, lookups bool) CostRow {
	row := CostRow{
		Program:    program,
		RunID:      run.ID,
		Cached:     cached,
		Total:      run.Total,
		Processing: run.Processing,
		Compute:    run.Compute,
		Mispredict: run.Mispredict,
		Memory:     run.Memory,
	}
	if lookups {
		row.Lookups = run.Lookups
	}
	return row
}

func writeCostText(w io.Writer, report CostReport) error {
	fmt.Fprintf(w, "Hardware: %s\n\n", report.Hardware)

	rows := make([][]string, len(report.Programs))
	for i, r := range report.Programs {
		rows[i] = []string{
			r.Program,
			formatCycles(r.Total),
			formatCycles(r.Processing),
			formatCycles(r.Memory),
			strconv.FormatBool(r.Cached),
		}
	}
	if err := writeTable(w, []string{"PROGRAM", "TOTAL", "PROCESSING", "MEMORY", "CACHED"}, rows); err != nil {
		return err
	}

	for _, r := range report.Programs {
		if len(r.Lookups) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s lookups:\n", r.Program)
		rows := make([][]string, len(r.Lookups))
		for i, lc := range r.Lookups {
			rows[i] = []string{
				strconv.FormatUint(uint64(lc.Node), 10),
				lc.Vector,
				pattern(lc.Sequential),
				lc.Level,
				strconv.Itoa(lc.ReuseDistance),
				formatCycles(lc.Faster),
				formatCycles(lc.SlowRandom + lc.SlowSequential),
			}
		}
		if err := writeTable(w, []string{"NODE", "VECTOR", "PATTERN", "LEVEL", "REUSE", "FASTER", "SLOW"}, rows); err != nil {
			return err
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

// outputLoadError reports a load or setup error and maps it to
// ExitCommandError.
func outputLoadError(formatter *OutputFormatter, err error) error {
	code, msg := ErrCodeGeneric, err.Error()
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		code, msg = loadErr.Code, loadErr.Message
		if loadErr.Pos.IsValid() {
			msg = fmt.Sprintf("%s:%d:%d: %s", loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Pos.Column(), msg)
		}
	}
	_ = formatter.Error(code, msg, nil)
	return WrapExitError(ExitCommandError, "command failed", err)
}
