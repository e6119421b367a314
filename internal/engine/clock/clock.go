// Package clock abstracts wall time so session timing can be driven in tests.
package clock

import (
	"sync"
	"time"
)

// Clock reports the current time.
type Clock interface {
	Now() time.Time
}

// System is the real clock.
type System struct{}

// Now returns time.Now, with its monotonic reading.
func (System) Now() time.Time { return time.Now() }

// Mock is a manually advanced clock.
type Mock struct {
	mu  sync.RWMutex
	now time.Time
}

// NewMock creates a mock clock at start.
func NewMock(start time.Time) *Mock {
	return &Mock{now: start}
}

// Now returns the mocked time.
func (m *Mock) Now() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.now
}

// Set moves the clock to t.
func (m *Mock) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}

// Advance moves the clock forward by d.
func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}
