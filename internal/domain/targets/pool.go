// Package targets keeps the set of live on-screen targets and guarantees each
// one is credited at most once.
package targets

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/motionplay/internal/domain/model"
)

// DefaultMaxAge is how long a stationary target lives before it disappears unscored.
const DefaultMaxAge = 2500 * time.Millisecond

// DefaultCatalog is used when no catalog option is given.
var DefaultCatalog = []Entry{
	{Kind: model.TargetStar, Size: 90},
	{Kind: model.TargetBalloon, Size: 110},
	{Kind: model.TargetFruit, Size: 100},
	{Kind: model.TargetBubble, Size: 80},
}

// Pool owns the live targets. Removal is check-and-remove under one lock, so a
// target handed out by Remove or Claim is never handed out again.
type Pool struct {
	mu      sync.Mutex
	live    map[string]*model.Target
	order   []string // spawn order, for stable Live() output
	rng     *rand.Rand
	catalog []Entry

	maxAge    time.Duration
	fallSpeed float64

	boundsW, boundsH float64
	spawned          int
}

// NewPool creates an empty pool.
func NewPool(opts ...Option) *Pool {
	p := &Pool{
		live:    make(map[string]*model.Target),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // placement, not security
		catalog: DefaultCatalog,
		maxAge:  DefaultMaxAge,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Spawn places one new target fully inside the given bounds.
func (p *Pool) Spawn(boundsW, boundsH float64) (model.Target, error) {
	if boundsW <= 0 || boundsH <= 0 {
		return model.Target{}, ErrBoundsTooSmall
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	entry := p.catalog[p.rng.Intn(len(p.catalog))]
	size := math.Min(entry.Size, math.Min(boundsW, boundsH))

	t := &model.Target{
		ID:       uuid.NewString(),
		Size:     size,
		Kind:     entry.Kind,
		Position: model.Point{X: p.rng.Float64() * (boundsW - size)},
	}
	if p.fallSpeed > 0 {
		t.FallSpeed = p.fallSpeed
	} else {
		t.MaxAge = p.maxAge
		t.Position.Y = p.rng.Float64() * (boundsH - size)
	}

	p.boundsW, p.boundsH = boundsW, boundsH
	p.live[t.ID] = t
	p.order = append(p.order, t.ID)
	p.spawned++
	return *t, nil
}

// Tick ages every live target by delta and returns how many left unscored.
func (p *Pool) Tick(delta time.Duration) int {
	if delta < 0 {
		delta = 0
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	gone := 0
	for id, t := range p.live {
		t.Age += delta
		if t.FallSpeed > 0 {
			t.Position.Y += t.FallSpeed * delta.Seconds()
		}
		if t.Expired() || (t.FallSpeed > 0 && p.boundsH > 0 && t.Position.Y >= p.boundsH) {
			delete(p.live, id)
			gone++
		}
	}
	if gone > 0 {
		p.compact()
	}
	return gone
}

// Remove marks the target hit and removes it. It returns true exactly once per target.
func (p *Pool) Remove(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.live[id]; !ok {
		return false
	}
	delete(p.live, id)
	p.compact()
	return true
}

// Claim removes and returns every live target for which match is true. The
// returned targets have Hit set. match runs under the pool lock and must not
// call back into the pool.
func (p *Pool) Claim(match func(model.Target) bool) []model.Target {
	p.mu.Lock()
	defer p.mu.Unlock()

	var claimed []model.Target
	for _, id := range p.order {
		t, ok := p.live[id]
		if !ok || !match(*t) {
			continue
		}
		t.Hit = true
		claimed = append(claimed, *t)
		delete(p.live, id)
	}
	if len(claimed) > 0 {
		p.compact()
	}
	return claimed
}

// Live returns copies of the live targets in spawn order.
func (p *Pool) Live() []model.Target {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]model.Target, 0, len(p.live))
	for _, id := range p.order {
		if t, ok := p.live[id]; ok {
			out = append(out, *t)
		}
	}
	return out
}

// Len returns the number of live targets.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.live)
}

// Spawned returns how many targets were spawned since the last Reset.
func (p *Pool) Spawned() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.spawned
}

// Reset drops every target and the spawn count.
func (p *Pool) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.live = make(map[string]*model.Target)
	p.order = nil
	p.spawned = 0
}

// compact drops removed IDs from the order slice. Caller holds mu.
func (p *Pool) compact() {
	kept := p.order[:0]
	for _, id := range p.order {
		if _, ok := p.live[id]; ok {
			kept = append(kept, id)
		}
	}
	p.order = kept
}
