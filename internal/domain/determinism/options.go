package determinism

// Default guard configuration constants.
const (
	defaultMaxSize     = 1024
	defaultTolerancePx = 2.0
)

// Option applies a configuration option to the Guard.
type Option func(*Guard)

// WithMaxSize bounds the number of cached snapshots. Zero or negative
// disables the bound.
func WithMaxSize(size int) Option {
	return func(g *Guard) {
		g.maxSize = size
	}
}

// WithTolerance sets the pixel tolerance above which a repeated analysis
// counts as diverged.
func WithTolerance(px float64) Option {
	return func(g *Guard) {
		if px >= 0 {
			g.tolerancePx = px
		}
	}
}
