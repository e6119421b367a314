// Package idempotency remembers client request keys so a retried POST is
// refused instead of creating a second session or grading a clip twice.
package idempotency

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Keys tracks request keys seen within a window.
type Keys interface {
	// SeenAndRecord reports whether key was already recorded and records it
	// if not. Check and record are one atomic step.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord forgets key so the request can be retried, e.g. after the
	// handler failed.
	Unrecord(ctx context.Context, key string)

	Size() int
}

type entry struct {
	key string
	at  time.Time
}

// memoryKeys keeps keys in arrival order; the oldest key is evicted first,
// either when maxSize is reached or when it is older than ttl.
type memoryKeys struct {
	mu      sync.Mutex
	index   map[string]*list.Element
	order   *list.List
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

// NewMemory creates an in-memory key set.
func NewMemory(opts ...Option) Keys {
	k := &memoryKeys{
		index:   make(map[string]*list.Element),
		order:   list.New(),
		maxSize: DefaultMaxSize,
		ttl:     DefaultTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

func (k *memoryKeys) SeenAndRecord(_ context.Context, key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	now := k.now()
	k.expire(now)
	if _, ok := k.index[key]; ok {
		return true
	}
	if k.maxSize > 0 && k.order.Len() >= k.maxSize {
		k.remove(k.order.Front())
	}
	k.index[key] = k.order.PushBack(entry{key: key, at: now})
	return false
}

func (k *memoryKeys) Unrecord(_ context.Context, key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if el, ok := k.index[key]; ok {
		k.remove(el)
	}
}

func (k *memoryKeys) Size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.expire(k.now())
	return k.order.Len()
}

// expire drops keys older than ttl. Must hold k.mu.
func (k *memoryKeys) expire(now time.Time) {
	if k.ttl <= 0 {
		return
	}
	for el := k.order.Front(); el != nil; el = k.order.Front() {
		if now.Sub(el.Value.(entry).at) < k.ttl {
			return
		}
		k.remove(el)
	}
}

// remove must hold k.mu.
func (k *memoryKeys) remove(el *list.Element) {
	delete(k.index, el.Value.(entry).key)
	k.order.Remove(el)
}
