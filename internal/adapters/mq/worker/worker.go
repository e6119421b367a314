// Package worker drains the record queue and hands each finished session to
// a publisher.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/okian/motionplay/internal/domain/model"
	"github.com/okian/motionplay/pkg/logger"
	"github.com/okian/motionplay/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerCount    = 2
	defaultPublishTimeout = 5 * time.Second
	poolShutdownTimeout   = 30 * time.Second
)

// Record is what workers read off the queue.
type Record = model.SessionRecord

// Publisher delivers one finished session record.
type Publisher interface {
	Publish(ctx context.Context, r Record) error
}

// Queue defines how workers receive records.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Record
}

// Worker publishes records until its queue drains or it is stopped.
type Worker struct {
	queue     Queue
	publisher Publisher
	name      string
	timeout   time.Duration

	shutdown chan struct{}
	once     sync.Once
	done     chan struct{}

	logger logger.Logger
}

// NewWorker creates a new worker with configuration options.
func NewWorker(queue Queue, publisher Publisher, opts ...Option) *Worker {
	w := &Worker{
		queue:     queue,
		publisher: publisher,
		name:      "worker",
		timeout:   defaultPublishTimeout,
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run publishes records until the queue is closed and drained, ctx ends, or
// Stop is called.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	records := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case r, ok := <-records:
			if !ok {
				return
			}
			if err := w.publish(ctx, r); err != nil {
				w.logger.Error(ctx, "error publishing record", logger.String("session_id", r.ID), logger.Error(err))
			}
		}
	}
}

// Stop asks the worker to exit without draining.
func (w *Worker) Stop() {
	w.once.Do(func() { close(w.shutdown) })
}

// Done is closed when Run returns.
func (w *Worker) Done() <-chan struct{} { return w.done }

func (w *Worker) publish(ctx context.Context, r Record) error { //nolint:gocritic // hugeParam: records are passed by value for channel semantics
	start := time.Now()
	pctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	err := w.publisher.Publish(pctx, r)
	metrics.RecordPublishLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordPublishError()
		metrics.RecordErrorByComponent("worker", "publish_error")
		return fmt.Errorf("publish session %s: %w", r.ID, err)
	}
	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers []*Worker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a pool of workerCount workers sharing queue and publisher.
func NewPool(workerCount int, queue Queue, publisher Publisher, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}
	p := &Pool{
		workers: make([]*Worker, workerCount),
		queue:   queue,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		p.workers[i] = NewWorker(queue, publisher, wopts...)
	}
	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue when it can, lets workers drain what is left,
// and stops any worker still busy when ctx or the pool timeout expires.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	for _, w := range p.workers {
		w.Stop()
	}
	metrics.UpdateWorkerCount(0)
	if timedOut {
		return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
	}
	return nil
}
