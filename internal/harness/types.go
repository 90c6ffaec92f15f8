package harness

import (
	"github.com/roach88/loopcost/internal/store"
)

// ProgramResult is the cost of one scenario program.
type ProgramResult struct {
	Name string `json:"name"`
	// Run is the stored evaluation. A cached run keeps the name of the
	// program it was first recorded for.
	Run    store.Run `json:"run"`
	Cached bool      `json:"cached"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Hardware is the name of the configuration the programs ran on.
	Hardware string `json:"hardware"`

	// Programs holds one entry per program, includes first, in file order.
	Programs []ProgramResult `json:"programs"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Programs: []ProgramResult{},
		Errors:   []string{},
	}
}

// AddError adds an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Program returns the result for the named program.
func (r *Result) Program(name string) (ProgramResult, bool) {
	for _, p := range r.Programs {
		if p.Name == name {
			return p, true
		}
	}
	return ProgramResult{}, false
}
