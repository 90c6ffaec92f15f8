package engine

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/loopcost/internal/hwconfig"
	"github.com/roach88/loopcost/internal/ir"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEvaluator(t *testing.T, hw hwconfig.Config) *Evaluator {
	t.Helper()
	e, err := New(hw, WithLogger(quietLogger()))
	require.NoError(t, err)
	return e
}

func mustEvaluate(t *testing.T, e *Evaluator, tree *ir.Tree) *Result {
	t.Helper()
	res, err := e.Evaluate(tree)
	require.NoError(t, err)
	return res
}

// annotationFor returns the annotation of the only lookup into vector.
func annotationFor(t *testing.T, tree *ir.Tree, res *Result, vector string) LookupAnnotation {
	t.Helper()
	var found []LookupAnnotation
	for id, ann := range res.Annotations {
		if v, ok := tree.VectorOf(id); ok && v.Name == vector {
			found = append(found, ann)
		}
	}
	require.Len(t, found, 1, "lookups into %s", vector)
	return found[0]
}
