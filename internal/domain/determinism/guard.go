package determinism

import (
	"context"
	"math"
	"sync"
	"sync/atomic"

	"github.com/okian/riskmap/internal/domain/geometry"
	"github.com/okian/riskmap/internal/domain/model"
)

// Report describes how a fresh result compares to the cached result for
// the same content hash.
type Report struct {
	// Hit is true when a prior result existed for the hash.
	Hit bool
	// Diverged is true when any compared coordinate moved more than the
	// tolerance, or the point count changed.
	Diverged bool
	// MaxDeltaPx is the largest coordinate movement observed.
	MaxDeltaPx float64
	// ComparedPoints is how many injection points were compared.
	ComparedPoints int
}

// node is one cache entry in the eviction list, newest at head.
type node struct {
	hash      string
	positions []geometry.Point
	next      *node
}

// Guard keeps a bounded cache of injection point coordinates keyed by
// content hash and reports divergence between repeated analyses of the
// same input. Reads take a shared lock; writes and evictions are
// serialized. The cache stores only coordinate snapshots, never whole
// results, so memory stays proportional to point counts.
type Guard struct {
	mu      sync.RWMutex
	seen    map[string]*node
	head    *node
	maxSize int
	size    atomic.Int64

	tolerancePx float64
}

// NewGuard creates a Guard with configuration options.
func NewGuard(opts ...Option) *Guard {
	g := &Guard{
		maxSize:     defaultMaxSize,
		tolerancePx: defaultTolerancePx,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.seen = make(map[string]*node)
	return g
}

// Check compares the fresh result against the cached snapshot for hash,
// records the snapshot if the hash is new, and returns the comparison
// report. The prior snapshot is kept on a hit so all later analyses are
// compared against the first observation.
func (g *Guard) Check(_ context.Context, hash string, result model.AnalysisResult) Report {
	positions := make([]geometry.Point, len(result.Points))
	for i, p := range result.Points {
		positions[i] = p.Position
	}

	g.mu.RLock()
	prior, exists := g.seen[hash]
	g.mu.RUnlock()

	if exists {
		return g.compare(prior.positions, positions)
	}

	g.record(hash, positions)
	return Report{}
}

// Size returns the current number of cached snapshots.
func (g *Guard) Size() int64 {
	return g.size.Load()
}

func (g *Guard) compare(prior, fresh []geometry.Point) Report {
	report := Report{Hit: true, ComparedPoints: len(fresh)}
	if len(prior) != len(fresh) {
		report.Diverged = true
		return report
	}
	for i := range fresh {
		delta := math.Max(
			math.Abs(fresh[i].X-prior[i].X),
			math.Abs(fresh[i].Y-prior[i].Y),
		)
		if delta > report.MaxDeltaPx {
			report.MaxDeltaPx = delta
		}
	}
	report.Diverged = report.MaxDeltaPx > g.tolerancePx
	return report
}

func (g *Guard) record(hash string, positions []geometry.Point) {
	g.mu.Lock()
	defer g.mu.Unlock()

	// Lost the race with another writer for the same hash.
	if _, exists := g.seen[hash]; exists {
		return
	}

	if g.maxSize > 0 && len(g.seen) >= g.maxSize {
		g.evictOldest()
	}

	n := &node{hash: hash, positions: positions, next: g.head}
	g.head = n
	g.seen[hash] = n
	g.size.Add(1)
}

// evictOldest removes the tail of the list. Must be called with g.mu
// held for writing.
func (g *Guard) evictOldest() {
	if g.head == nil {
		return
	}
	if g.head.next == nil {
		delete(g.seen, g.head.hash)
		g.head = nil
		g.size.Add(-1)
		return
	}
	var prev *node
	current := g.head
	for current.next != nil {
		prev = current
		current = current.next
	}
	prev.next = nil
	delete(g.seen, current.hash)
	g.size.Add(-1)
}
