// Package queue buffers finished session records until a publisher drains
// them.
//
// Enqueue never blocks: a full or closed queue rejects the record.
package queue

import (
	"context"
	"sync"

	"github.com/okian/motionplay/internal/domain/model"
	"github.com/okian/motionplay/pkg/metrics"
)

const defaultCapacity = 1024

// Record is the payload flowing through the queue.
type Record = model.SessionRecord

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a record to the queue. It returns false if the queue is
	// full or closed.
	Enqueue(ctx context.Context, r Record) bool

	// Dequeue returns a channel that yields records until the queue is
	// closed and drained or ctx ends.
	Dequeue(ctx context.Context) <-chan Record

	// Len returns the current number of queued records.
	Len(ctx context.Context) int

	// Close stops accepting records. Already queued records stay readable.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	records  chan Record
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.records = make(chan Record, q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds a record to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, r Record) bool { //nolint:gocritic // hugeParam: records are passed by value for channel semantics
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return false
	}

	select {
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return false
	default:
	}

	select {
	case q.records <- r:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.records))
		return true
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return false
	}
}

// Dequeue returns a channel that will receive records as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Record {
	out := make(chan Record)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case r, ok := <-q.records:
				if !ok {
					return
				}
				select {
				case out <- r:
					metrics.RecordQueueDequeue()
					metrics.UpdateQueueSize(len(q.records))
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Len returns the current number of queued records.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return len(q.records)
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.records)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
