package store

import (
	"fmt"

	"github.com/roach88/loopcost/internal/engine"
	"github.com/roach88/loopcost/internal/hwconfig"
	"github.com/roach88/loopcost/internal/ir"
)

// Run is one stored evaluation.
type Run struct {
	ID  string `json:"id"`
	Seq int64  `json:"seq"`

	Program      string `json:"program"`
	TreeHash     string `json:"tree_hash"`
	Hardware     string `json:"hardware"`
	HardwareHash string `json:"hardware_hash"`
	CacheKey     string `json:"cache_key"`

	EngineVersion string `json:"engine_version"`
	IRVersion     string `json:"ir_version"`

	Total          float64 `json:"total"`
	Processing     float64 `json:"processing"`
	Compute        float64 `json:"compute"`
	Mispredict     float64 `json:"mispredict"`
	Memory         float64 `json:"memory"`
	Faster         float64 `json:"faster"`
	SlowRandom     float64 `json:"slow_random"`
	SlowSequential float64 `json:"slow_sequential"`
	MaskedSlow     float64 `json:"masked_slow"`

	Lookups []engine.LookupCost `json:"lookups"`
}

// CacheKey identifies an evaluation: the same tree on the same hardware
// under the same engine version always costs the same.
func CacheKey(treeHash, hardwareHash string) (string, error) {
	return ir.HashCanonical(ir.DomainRun, map[string]any{
		"engine_version": ir.EngineVersion,
		"hardware_hash":  hardwareHash,
		"tree_hash":      treeHash,
	})
}

// TreeCacheKey returns the cache key of t costed on hw.
func TreeCacheKey(t *ir.Tree, hw hwconfig.Config) (string, error) {
	run, err := newRunKey("", t, hw)
	if err != nil {
		return "", err
	}
	return run.CacheKey, nil
}

// NewRun prepares an unsaved Run for a program costed on hw. ID and Seq
// are assigned by WriteRun.
func NewRun(program string, t *ir.Tree, hw hwconfig.Config, res *engine.Result) (Run, error) {
	run, err := newRunKey(program, t, hw)
	if err != nil {
		return Run{}, err
	}
	run.Total = res.Total
	run.Processing = res.Processing
	run.Compute = res.Compute
	run.Mispredict = res.Mispredict
	run.Memory = res.Memory
	run.Faster = res.Faster
	run.SlowRandom = res.SlowRandom
	run.SlowSequential = res.SlowSequential
	run.MaskedSlow = res.MaskedSlow
	run.Lookups = append([]engine.LookupCost(nil), res.Lookups...)
	return run, nil
}

func newRunKey(program string, t *ir.Tree, hw hwconfig.Config) (Run, error) {
	treeHash, err := ir.TreeHash(t)
	if err != nil {
		return Run{}, fmt.Errorf("run %q: %w", program, err)
	}
	hwHash, err := hw.Hash()
	if err != nil {
		return Run{}, fmt.Errorf("run %q: %w", program, err)
	}
	key, err := CacheKey(treeHash, hwHash)
	if err != nil {
		return Run{}, fmt.Errorf("run %q: %w", program, err)
	}
	return Run{
		Program:       program,
		TreeHash:      treeHash,
		Hardware:      hw.Name,
		HardwareHash:  hwHash,
		CacheKey:      key,
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
	}, nil
}
