package worker

import (
	"time"

	"github.com/okian/motionplay/pkg/logger"
)

// Option applies a configuration option to a Worker.
type Option func(*Worker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *Worker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithPublishTimeout bounds a single publish call.
func WithPublishTimeout(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.timeout = d
		}
	}
}
