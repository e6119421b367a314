package motion

import "math/rand"

// Option applies a configuration option to the Estimator.
type Option func(*Estimator)

// WithSamples sets how many evenly spaced frames are compared.
func WithSamples(n int) Option {
	return func(e *Estimator) {
		if n >= 2 {
			e.samples = n
		}
	}
}

// WithDownscale sets the comparison resolution.
func WithDownscale(w, h int) Option {
	return func(e *Estimator) {
		if w > 0 && h > 0 {
			e.width, e.height = w, h
		}
	}
}

// WithLowThreshold sets the motion level below which engagement is low.
func WithLowThreshold(level float64) Option {
	return func(e *Estimator) {
		if level >= 0 {
			e.lowThreshold = level
		}
	}
}

// WithBands sets the low-engagement band and the engaged band.
func WithBands(low, high Band) Option {
	return func(e *Estimator) {
		if low.valid() && high.valid() {
			e.low, e.high = low, high
		}
	}
}

// WithStarBreakpoints sets the grade scores for one, two and three stars.
func WithStarBreakpoints(bp [3]float64) Option {
	return func(e *Estimator) {
		e.stars = bp
	}
}

// WithSeed makes band draws reproducible.
func WithSeed(seed int64) Option {
	return func(e *Estimator) {
		e.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // scoring jitter, not security
	}
}
