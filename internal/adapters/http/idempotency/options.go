package idempotency

import "time"

// Defaults for NewMemory.
const (
	DefaultMaxSize = 50000
	DefaultTTL     = 24 * time.Hour
)

// Option applies a configuration option to the in-memory key set.
type Option func(*memoryKeys)

// WithMaxSize caps how many keys are kept. Zero or less keeps every key
// until it expires.
func WithMaxSize(maxSize int) Option {
	return func(k *memoryKeys) {
		k.maxSize = maxSize
	}
}

// WithTTL sets how long a key is remembered. Zero or less never expires keys.
func WithTTL(ttl time.Duration) Option {
	return func(k *memoryKeys) {
		k.ttl = ttl
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(k *memoryKeys) {
		if now != nil {
			k.now = now
		}
	}
}
