package store

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/loopcost/internal/engine"
	"github.com/roach88/loopcost/internal/hwconfig"
	"github.com/roach88/loopcost/internal/ir"
	"github.com/roach88/loopcost/internal/testutil"
)

// createTestStore opens a store in a temp dir with sequential run IDs.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithIDGenerator(&testutil.SequentialIDs{}))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testEvaluator(t *testing.T, hw hwconfig.Config) *engine.Evaluator {
	t.Helper()
	e, err := engine.New(hw, engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	return e
}

// createTestRun evaluates t on the test hardware and prepares a Run.
func createTestRun(t *testing.T, program string, tree *ir.Tree) Run {
	t.Helper()
	hw := testutil.Hardware()
	res, err := testEvaluator(t, hw).Evaluate(tree)
	require.NoError(t, err)
	run, err := NewRun(program, tree, hw, res)
	require.NoError(t, err)
	return run
}
