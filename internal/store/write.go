package store

import (
	"context"
	"fmt"
)

// WriteRun records a run and its lookup breakdown in one transaction and
// returns it with ID and Seq assigned. An empty ID is filled from the
// store's generator; Seq is always the next logical clock value.
//
// Uses ON CONFLICT(id) DO NOTHING for idempotency: writing a run whose ID
// already exists returns the stored run unchanged.
func (s *Store) WriteRun(ctx context.Context, run Run) (Run, error) {
	if run.ID == "" {
		run.ID = s.ids.Generate()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("write run: %w", err)
	}
	defer tx.Rollback()

	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM cost_runs`).Scan(&run.Seq); err != nil {
		return Run{}, fmt.Errorf("write run: next seq: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO cost_runs
		(id, seq, program, tree_hash, hardware, hardware_hash, cache_key, engine_version, ir_version,
		 total, processing, compute, mispredict, memory, faster, slow_random, slow_sequential, masked_slow)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID, run.Seq, run.Program, run.TreeHash, run.Hardware, run.HardwareHash, run.CacheKey,
		run.EngineVersion, run.IRVersion,
		run.Total, run.Processing, run.Compute, run.Mispredict, run.Memory,
		run.Faster, run.SlowRandom, run.SlowSequential, run.MaskedSlow,
	)
	if err != nil {
		return Run{}, fmt.Errorf("write run %s: %w", run.ID, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return Run{}, fmt.Errorf("write run %s: %w", run.ID, err)
	} else if n == 0 {
		if err := tx.Rollback(); err != nil {
			return Run{}, fmt.Errorf("write run %s: %w", run.ID, err)
		}
		return s.ReadRun(ctx, run.ID)
	}

	for _, lc := range run.Lookups {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO lookup_costs
			(run_id, node, vector, sequential, exec_probability, iterations, reuse_distance, level,
			 faster, slow_random, slow_sequential)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			run.ID, lc.Node, lc.Vector, lc.Sequential, lc.ExecProbability, lc.Iterations,
			lc.ReuseDistance, lc.Level, lc.Faster, lc.SlowRandom, lc.SlowSequential,
		)
		if err != nil {
			return Run{}, fmt.Errorf("write run %s: lookup %d: %w", run.ID, lc.Node, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("write run %s: commit: %w", run.ID, err)
	}
	return run, nil
}
