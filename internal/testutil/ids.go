package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs generates run IDs "run-0001", "run-0002", ... so stored
// runs have predictable identities in golden output.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SequentialIDs struct {
	mu  sync.Mutex
	seq int
}

// Generate returns the next ID.
func (g *SequentialIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("run-%04d", g.seq)
}

// Reset restarts the sequence.
func (g *SequentialIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}
