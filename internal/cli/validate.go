package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/loopcost/internal/engine"
)

// ValidationIssue is one problem found by validate.
type ValidationIssue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Programs int               `json:"programs"`
	Hardware int               `json:"hardware"`
	Errors   []ValidationIssue `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <path>...",
		Short: "Check programs and hardware without recording runs",
		Long: `Check program and hardware files for errors.

Every program is compiled, validated and evaluated once against
--hardware, so unbound identifiers and lookups outside a loop are caught
as well as malformed files. All errors are reported, not just the first.
Nothing is written to the run ledger.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	loaded, loadErrs := LoadPrograms(paths, LoadModeCollectAll)
	if loaded == nil {
		var loadErr *LoadError
		if errors.As(loadErrs[0], &loadErr) {
			return outputValidateError(formatter, loadErr.Code, loadErr.Message)
		}
		return outputValidateError(formatter, ErrCodeGeneric, loadErrs[0].Error())
	}
	formatter.VerboseLog("Found %d file(s), %d program(s), %d hardware configuration(s)",
		loaded.FileCount, len(loaded.Programs), len(loaded.Hardware))

	var issues []ValidationIssue
	for _, err := range loadErrs {
		issues = append(issues, issueFromError(err))
	}

	hw, err := resolveHardware(opts.Hardware, loaded.Hardware)
	if err != nil {
		issues = append(issues, issueFromError(err))
	} else {
		eval, err := engine.New(hw, engine.WithLogger(opts.newLogger(io.Discard)))
		if err != nil {
			issues = append(issues, ValidationIssue{Code: ErrCodeInvalidHardware, Message: err.Error()})
		} else {
			for _, p := range loaded.Programs {
				formatter.VerboseLog("Evaluating program: %s", p.Spec.Name)
				if _, err := eval.Evaluate(p.Tree); err != nil {
					issues = append(issues, ValidationIssue{
						Code:    ErrCodeEvalFailed,
						Message: fmt.Sprintf("program.%s: %v", p.Spec.Name, err),
					})
				}
			}
		}
	}

	result := ValidationResult{
		Valid:    len(issues) == 0,
		Programs: len(loaded.Programs),
		Hardware: len(loaded.Hardware),
		Errors:   issues,
	}
	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

func issueFromError(err error) ValidationIssue {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		issue := ValidationIssue{Code: loadErr.Code, Message: loadErr.Message}
		if loadErr.Pos.IsValid() {
			issue.File = loadErr.Pos.Filename()
			issue.Line = loadErr.Pos.Line()
		}
		return issue
	}
	return ValidationIssue{Code: ErrCodeGeneric, Message: err.Error()}
}

func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	return formatter.Render(result, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "\u2713 %d program(s) and %d hardware configuration(s) valid\n",
			result.Programs, result.Hardware)
		return err
	})
}

// outputValidateError outputs an error that stopped validation before it
// began. These are command errors (exit code 2).
func outputValidateError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs every issue found. Validation failures
// exit with code 1.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	failure := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))

	if formatter.Format == "json" {
		if err := formatter.encode(CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    result.Errors[0].Code,
				Message: result.Errors[0].Message,
			},
		}); err != nil {
			return err
		}
		return failure
	}

	w := formatter.Writer
	fmt.Fprintln(w, "\u2717 Validation failed")
	fmt.Fprintln(w)
	for _, issue := range result.Errors {
		if issue.Line > 0 {
			fmt.Fprintf(w, "%s:%d\n", issue.File, issue.Line)
		}
		fmt.Fprintf(w, "  %s: %s\n\n", issue.Code, issue.Message)
	}
	return failure
}
