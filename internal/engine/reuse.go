package engine

import (
	"math"
	"slices"
	"strings"

	"github.com/roach88/loopcost/internal/ir"
)

// AccessPattern is what reuse analysis needs to know about one lookup: the
// loop indices its address depends on.
type AccessPattern struct {
	Vector string `json:"vector"`
	// Indices holds the identifier names used by all index expressions.
	Indices []string `json:"indices"`
	// Innermost holds the names used by the last (fastest varying) index.
	Innermost []string `json:"innermost"`
	ElemSize  float64  `json:"elem_size"`
}

// accessPattern extracts the index names of a lookup. Identifiers are
// followed through let bindings; nested lookups are not descended into.
// A lookup without indices depends on the innermost loop counter.
func accessPattern(t *ir.Tree, id ir.NodeID, frames []LoopFrame, resolve binder) AccessPattern {
	lk, _ := t.Node(id).(ir.Lookup)
	p := AccessPattern{ElemSize: t.ElemSizeOf(id)}
	if v, ok := t.VectorOf(id); ok {
		p.Vector = v.Name
	}

	if len(lk.Indices) == 0 {
		if len(frames) > 0 {
			inner := frames[len(frames)-1].Index
			p.Indices = []string{inner}
			p.Innermost = []string{inner}
		}
		return p
	}

	for i, idx := range lk.Indices {
		names := identNames(t, idx, resolve)
		p.Indices = appendUnique(p.Indices, names...)
		if i == len(lk.Indices)-1 {
			p.Innermost = names
		}
	}
	return p
}

func identNames(t *ir.Tree, id ir.NodeID, resolve binder) []string {
	var names []string
	following := make(map[string]bool)
	var visit func(ir.NodeID)
	visit = func(start ir.NodeID) {
		t.WalkFrom(start, func(_ ir.NodeID, e ir.Expr) bool {
			switch n := e.(type) {
			case ir.Lookup:
				return false
			case ir.Ident:
				if value, ok := resolve(n.Name); ok && !following[n.Name] {
					following[n.Name] = true
					visit(value)
					return false
				}
				names = appendUnique(names, n.Name)
			}
			return true
		})
	}
	visit(id)
	return names
}

func appendUnique(dst []string, names ...string) []string {
	for _, n := range names {
		if !slices.Contains(dst, n) {
			dst = append(dst, n)
		}
	}
	return dst
}

func (p AccessPattern) key() string {
	return p.Vector + "[" + strings.Join(p.Indices, ",") + "]"
}

// IterationDistance returns the number of consecutive iterations for which
// an access keeps the same address: the product of the iteration counts of
// the loops nested inside the innermost loop whose index the access uses.
// frames are outermost first.
func IterationDistance(frames []LoopFrame, indices []string) float64 {
	n := 1.0
	for i := len(frames) - 1; i >= 0; i-- {
		if slices.Contains(indices, frames[i].Index) {
			break
		}
		n *= frames[i].Iterations
	}
	return n
}

// ReuseDistance estimates, in cache lines, how much other data is touched
// between two uses of the same line by access p. others are the remaining
// lookups of the loop nest; those with the same index names as p advance in
// lock-step with it and are ignored. blockBytes is the cache line size
// used to convert elements to lines.
func ReuseDistance(p AccessPattern, others []AccessPattern, frames []LoopFrame, blockBytes float64) int {
	epb := elemsPerBlock(blockBytes, p.ElemSize)
	inner := slices.Clone(frames)
	slices.Reverse(inner)
	interleaved := interleavedAccesses(p, others)

	// Distance until the same element recurs. Only one element per line
	// waits for it.
	dist, seen := distanceToSelf(p, inner, epb, true)
	for _, o := range interleaved {
		d, _ := distanceToSelf(o, seen, epb, false)
		dist += d
	}
	dist /= epb

	// The rest of the line waits only until the next element is touched.
	next, seen := distanceToNext(p, inner, epb, true)
	for _, o := range interleaved {
		d, _ := distanceToNext(o, seen, epb, false)
		next += d
	}
	dist += next * (epb - 1) / epb

	return int(dist)
}

// elemsPerBlock is the number of elements sharing one line, at least 1.
func elemsPerBlock(blockBytes, elemSize float64) float64 {
	if elemSize <= 0 {
		return 1
	}
	return math.Max(1, blockBytes/elemSize)
}

func interleavedAccesses(p AccessPattern, others []AccessPattern) []AccessPattern {
	var out []AccessPattern
	seen := map[string]bool{p.key(): true}
	for _, o := range others {
		if slices.Equal(o.Indices, p.Indices) || seen[o.key()] {
			continue
		}
		seen[o.key()] = true
		out = append(out, o)
	}
	return out
}

// distanceToSelf walks loops innermost first, multiplying the iteration
// counts of loops whose index p uses. When stopAtForeign is set the walk
// ends at the first loop p does not depend on. It returns the distance and
// the loops walked.
func distanceToSelf(p AccessPattern, loops []LoopFrame, epb float64, stopAtForeign bool) (float64, []LoopFrame) {
	dist := 1.0
	var seen []LoopFrame
	for _, f := range loops {
		uses := slices.Contains(p.Indices, f.Index)
		if stopAtForeign && !uses {
			break
		}
		if uses {
			dist *= f.Iterations
		}
		seen = append(seen, f)
	}
	return blocks(dist, p, seen, epb), seen
}

// distanceToNext is distanceToSelf for the next element: with
// stopAtInnermost set the walk ends at the loop that advances p's
// innermost index.
func distanceToNext(p AccessPattern, loops []LoopFrame, epb float64, stopAtInnermost bool) (float64, []LoopFrame) {
	dist := 1.0
	var seen []LoopFrame
	for _, f := range loops {
		if stopAtInnermost && slices.Contains(p.Innermost, f.Index) {
			break
		}
		if slices.Contains(p.Indices, f.Index) {
			dist *= f.Iterations
		}
		seen = append(seen, f)
	}
	return blocks(dist, p, seen, epb), seen
}

// blocks converts an element distance to lines when the walked loops
// traverse p sequentially, and truncates it otherwise.
func blocks(dist float64, p AccessPattern, walked []LoopFrame, epb float64) float64 {
	if walksSequentially(walked, p) {
		return math.Trunc(dist/epb) + 1
	}
	return math.Trunc(dist)
}

// walksSequentially reports whether the innermost walked loop that p
// depends on is the one driving p's innermost index.
func walksSequentially(walked []LoopFrame, p AccessPattern) bool {
	sequential := false
	for _, f := range walked {
		if slices.Contains(p.Innermost, f.Index) {
			sequential = true
		}
		if slices.Contains(p.Indices, f.Index) {
			return sequential
		}
	}
	return sequential
}
