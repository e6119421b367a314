package targets

import (
	"math/rand"
	"time"

	"github.com/okian/motionplay/internal/domain/model"
)

// Entry is one spawnable kind and its nominal size in render pixels.
type Entry struct {
	Kind model.TargetKind
	Size float64
}

// Option applies a configuration option to the Pool.
type Option func(*Pool)

// WithCatalog replaces the spawn catalog. Entries with a non-positive size are ignored.
func WithCatalog(entries ...Entry) Option {
	return func(p *Pool) {
		catalog := make([]Entry, 0, len(entries))
		for _, e := range entries {
			if e.Size > 0 {
				catalog = append(catalog, e)
			}
		}
		if len(catalog) > 0 {
			p.catalog = catalog
		}
	}
}

// WithMaxAge sets how long a stationary target stays alive.
func WithMaxAge(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.maxAge = d
		}
	}
}

// WithSeed makes spawn placement reproducible.
func WithSeed(seed int64) Option {
	return func(p *Pool) {
		p.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // placement, not security
	}
}

// WithFalling makes spawned targets enter at the top and fall at speed px/s.
// Falling targets leave when they drop out of the visible area instead of aging out.
func WithFalling(speed float64) Option {
	return func(p *Pool) {
		if speed > 0 {
			p.fallSpeed = speed
		}
	}
}
