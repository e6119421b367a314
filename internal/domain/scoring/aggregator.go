// Package scoring accumulates the counters of one session and turns them into
// stars and coins.
package scoring

import (
	"sync"

	"github.com/okian/motionplay/internal/domain/model"
)

// Aggregator holds the live counters of a session. It is safe for concurrent use.
type Aggregator struct {
	mu            sync.Mutex
	opportunities bool
	score         model.Score
}

// NewAggregator creates an empty aggregator.
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RecordHit credits one scoring event worth points.
func (a *Aggregator) RecordHit(points int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.score.EventCount++
	a.score.Points += points
}

// RecordOpportunity counts one spawned target. It is a no-op in raw-count modes.
func (a *Aggregator) RecordOpportunity() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.opportunities {
		a.score.TotalOpportunities++
	}
}

// RecordEngagement counts one secondary movement event.
func (a *Aggregator) RecordEngagement() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.score.SecondaryCount++
}

// Snapshot returns the current counters.
func (a *Aggregator) Snapshot() model.Score {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := a.score
	if !a.opportunities {
		s.TotalOpportunities = 1
	}
	return s
}

// Reset zeroes every counter.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.score = model.Score{}
}
