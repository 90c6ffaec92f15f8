package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/loopcost/internal/compiler"
	"github.com/roach88/loopcost/internal/engine"
	"github.com/roach88/loopcost/internal/hwconfig"
	"github.com/roach88/loopcost/internal/store"
)

// session is what the costing commands share: the resolved hardware, an
// evaluator for it and the run ledger.
type session struct {
	hw     hwconfig.Config
	eval   *engine.Evaluator
	store  *store.Store
	logger *slog.Logger
}

// openSession resolves --hardware (against built-in profiles, then the
// hardware declared next to the programs, then files) and opens --db, or
// an in-memory ledger when no database is configured.
func openSession(opts *RootOptions, cmd *cobra.Command, declared []hwconfig.Config) (*session, error) {
	logger := opts.newLogger(cmd.ErrOrStderr())

	hw, err := resolveHardware(opts.Hardware, declared)
	if err != nil {
		return nil, err
	}

	eval, err := engine.New(hw, engine.WithLogger(logger))
	if err != nil {
		return nil, &LoadError{Code: ErrCodeInvalidHardware, Message: err.Error()}
	}

	path := opts.Database
	if path == "" {
		path = store.InMemory
	}
	logger.Debug("opening run ledger", "path", path)
	st, err := store.Open(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeStoreFailed, Message: fmt.Sprintf("failed to open database: %v", err)}
	}

	return &session{hw: hw, eval: eval, store: st, logger: logger}, nil
}

func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		s.logger.Error("error closing database", "error", err)
	}
}

// resolveHardware finds the configuration called name.
func resolveHardware(name string, declared []hwconfig.Config) (hwconfig.Config, error) {
	if c, ok := hwconfig.Profile(name); ok {
		return c, nil
	}
	for _, c := range declared {
		if c.Name == name {
			return c, nil
		}
	}

	if _, err := os.Stat(name); err != nil {
		return hwconfig.Config{}, &LoadError{
			Code:    ErrCodeUnknownHardware,
			Message: fmt.Sprintf("unknown hardware %q: not a profile (%s), a declared configuration or a file",
				name, strings.Join(hwconfig.ProfileNames(), ", ")),
		}
	}

	if strings.ToLower(filepath.Ext(name)) == ".cue" {
		u, err := compiler.LoadFile(name)
		if err != nil {
			return hwconfig.Config{}, convertCompileError(err, name)
		}
		if len(u.Hardware) != 1 {
			return hwconfig.Config{}, &LoadError{
				Code:    ErrCodeInvalidHardware,
				Message: fmt.Sprintf("%s declares %d hardware configurations, want 1", name, len(u.Hardware)),
			}
		}
		return u.Hardware[0], nil
	}

	c, err := hwconfig.Load(name)
	if err != nil {
		return hwconfig.Config{}, &LoadError{Code: ErrCodeInvalidHardware, Message: err.Error()}
	}
	return c, nil
}

// commandContext returns the command's context, cancelled on interrupt.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// selectPrograms returns the programs named in names, or all of them.
func selectPrograms(loaded *LoadResult, names []string) ([]compiler.Program, error) {
	if len(names) == 0 {
		return loaded.Programs, nil
	}
	out := make([]compiler.Program, 0, len(names))
	for _, n := range names {
		p, ok := loaded.Program(n)
		if !ok {
			return nil, &LoadError{Code: ErrCodeUnknownProgram, Message: fmt.Sprintf("no program named %q", n)}
		}
		out = append(out, p)
	}
	return out, nil
}
