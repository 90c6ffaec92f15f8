package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/loopcost/internal/engine"
)

const runColumns = `id, seq, program, tree_hash, hardware, hardware_hash, cache_key, engine_version, ir_version,
	total, processing, compute, mispredict, memory, faster, slow_random, slow_sequential, masked_slow`

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var r Run
	err := row.Scan(
		&r.ID, &r.Seq, &r.Program, &r.TreeHash, &r.Hardware, &r.HardwareHash, &r.CacheKey,
		&r.EngineVersion, &r.IRVersion,
		&r.Total, &r.Processing, &r.Compute, &r.Mispredict, &r.Memory,
		&r.Faster, &r.SlowRandom, &r.SlowSequential, &r.MaskedSlow,
	)
	return r, err
}

// ReadRun retrieves a single run with its lookups by ID.
// Returns an error wrapping sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM cost_runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", id, err)
	}
	if r.Lookups, err = s.readLookups(ctx, r.ID); err != nil {
		return Run{}, err
	}
	return r, nil
}

// FindCached returns the most recent run with the given cache key. ok is
// false when the tree has not been costed on that hardware by this engine
// version.
func (s *Store) FindCached(ctx context.Context, cacheKey string) (run Run, ok bool, err error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+runColumns+`
		FROM cost_runs
		WHERE cache_key = ?
		ORDER BY seq DESC
		LIMIT 1
	`, cacheKey)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, fmt.Errorf("find cached: %w", err)
	}
	if r.Lookups, err = s.readLookups(ctx, r.ID); err != nil {
		return Run{}, false, err
	}
	return r, true, nil
}

// ListOptions filters ListRuns.
type ListOptions struct {
	// Program restricts the list to one program name; empty lists all.
	Program string
	// Limit keeps only the most recent runs; 0 keeps all.
	Limit int
}

// ListRuns returns runs in seq order, oldest first. Lookups are not
// loaded; use ReadRun for a full run.
//
// Returns an empty slice (not nil) if no runs match.
func (s *Store) ListRuns(ctx context.Context, opts ListOptions) ([]Run, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT * FROM (
			SELECT `+runColumns+`
			FROM cost_runs
			WHERE ? = '' OR program = ?
			ORDER BY seq DESC
			LIMIT ?
		) ORDER BY seq ASC
	`, opts.Program, opts.Program, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// readLookups loads a run's lookup breakdown ordered by node.
func (s *Store) readLookups(ctx context.Context, runID string) ([]engine.LookupCost, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT node, vector, sequential, exec_probability, iterations, reuse_distance, level,
		       faster, slow_random, slow_sequential
		FROM lookup_costs
		WHERE run_id = ?
		ORDER BY node ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query lookups: %w", err)
	}
	defer rows.Close()

	var lookups []engine.LookupCost
	for rows.Next() {
		var lc engine.LookupCost
		if err := rows.Scan(
			&lc.Node, &lc.Vector, &lc.Sequential, &lc.ExecProbability, &lc.Iterations, &lc.ReuseDistance,
			&lc.Level, &lc.Faster, &lc.SlowRandom, &lc.SlowSequential,
		); err != nil {
			return nil, fmt.Errorf("scan lookup: %w", err)
		}
		lookups = append(lookups, lc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lookups: %w", err)
	}
	return lookups, nil
}

// Count returns the number of stored runs.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cost_runs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count runs: %w", err)
	}
	return n, nil
}
