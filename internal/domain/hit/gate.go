package hit

import (
	"sync"
	"time"
)

// PunchGate debounces punches per hand so one swing is not counted on every
// sample it spans.
type PunchGate struct {
	mu       sync.Mutex
	debounce time.Duration
	last     map[string]time.Time
}

// NewPunchGate creates a gate; a non-positive debounce uses the default.
func NewPunchGate(debounce time.Duration) *PunchGate {
	if debounce <= 0 {
		debounce = DefaultPunchDebounce
	}
	return &PunchGate{debounce: debounce, last: make(map[string]time.Time)}
}

// Allow reports whether a punch by hand at now should count, and records it if so.
func (g *PunchGate) Allow(hand string, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if last, ok := g.last[hand]; ok && now.Sub(last) < g.debounce {
		return false
	}
	g.last[hand] = now
	return true
}

// Reset forgets all recorded punches.
func (g *PunchGate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.last = make(map[string]time.Time)
}
