package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/loopcost/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Program string
	Limit   int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded cost runs",
		Long: `List the most recent runs in the run ledger, oldest first.

Examples:
  loopcost history --db ./runs.db
  loopcost history --db ./runs.db --program q6 --limit 5
  LOOPCOST_DB=./runs.db loopcost history --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Program, "program", "", "only runs of this program")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "number of runs to show (0 for all)")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	if opts.Database == "" {
		return outputLoadError(formatter, &LoadError{
			Code:    ErrCodeStoreFailed,
			Message: "history needs a run ledger: pass --db or set " + EnvDatabase,
		})
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return outputLoadError(formatter, &LoadError{Code: ErrCodeStoreFailed, Message: fmt.Sprintf("failed to open database: %v", err)})
	}
	defer st.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	runs, err := st.ListRuns(ctx, store.ListOptions{Program: opts.Program, Limit: opts.Limit})
	if err != nil {
		return outputLoadError(formatter, &LoadError{Code: ErrCodeStoreFailed, Message: err.Error()})
	}

	return formatter.Render(runs, func(w io.Writer) error {
		if len(runs) == 0 {
			_, err := fmt.Fprintln(w, "No runs recorded.")
			return err
		}
		rows := make([][]string, len(runs))
		for i, r := range runs {
			rows[i] = []string{
				strconv.FormatInt(r.Seq, 10),
				r.ID,
				r.Program,
				r.Hardware,
				formatCycles(r.Total),
				formatCycles(r.Processing),
				formatCycles(r.Memory),
			}
		}
		return writeTable(w, []string{"SEQ", "ID", "PROGRAM", "HARDWARE", "TOTAL", "PROCESSING", "MEMORY"}, rows)
	})
}
