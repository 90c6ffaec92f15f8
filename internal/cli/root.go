package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"
	"github.com/xyproto/env/v2"
)

// Environment variables that provide flag defaults.
const (
	EnvHardware = "LOOPCOST_HARDWARE"
	EnvDatabase = "LOOPCOST_DB"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// Hardware is a built-in profile name or a hardware file (.yaml, .json
	// or .cue).
	Hardware string

	// Database is the SQLite run ledger. Empty means an in-memory store
	// that lives for one command.
	Database string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the loopcost CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "loopcost",
		Short: "loopcost - analytical cost estimates for loop programs",
		Long: `Estimate the CPU cycles a loop program costs on a modelled machine.

Programs are small expression trees (loops, branches, vector lookups,
builder merges) written in CUE, YAML or JSON. The estimate splits into
processing cost and a memory cost derived from access patterns, reuse
distance and the cache hierarchy.`,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Hardware, "hardware", env.Str(EnvHardware, "reference"),
		"hardware profile name or file (env "+EnvHardware+")")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", env.Str(EnvDatabase),
		"path to SQLite run ledger (env "+EnvDatabase+")")

	cmd.AddCommand(NewCostCommand(opts))
	cmd.AddCommand(NewCompareCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewProfilesCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// newLogger returns a text logger on w: Info by default, Debug with
// --verbose.
func (o *RootOptions) newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}
