package session

import (
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/okian/motionplay/internal/engine/clock"
	"github.com/okian/motionplay/internal/engine/pose"
	"github.com/okian/motionplay/internal/engine/render"
	"github.com/okian/motionplay/pkg/logger"
)

// Default cadences.
const (
	DefaultFrameInterval     = time.Second / 30
	DefaultSpawnInterval     = 1500 * time.Millisecond
	DefaultCountdownInterval = time.Second
)

// Option applies a configuration option to the Controller.
type Option func(*Controller)

// WithID sets the session id. A random id is used otherwise.
func WithID(id string) Option {
	return func(c *Controller) {
		if id != "" {
			c.id = id
		}
	}
}

// WithClock sets the clock the countdown and render ages are computed from.
func WithClock(clk clock.Clock) Option {
	return func(c *Controller) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// WithFrameInterval sets the render cadence.
func WithFrameInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.frameInterval = d
		}
	}
}

// WithSpawnInterval sets the target spawn cadence.
func WithSpawnInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.spawnInterval = d
		}
	}
}

// WithCountdownInterval sets how often the remaining time is recomputed.
func WithCountdownInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.countdownInterval = d
		}
	}
}

// WithPoseOptions passes options to every pose loop the controller starts.
func WithPoseOptions(opts ...pose.Option) Option {
	return func(c *Controller) {
		c.poseOpts = append(c.poseOpts, opts...)
	}
}

// WithRenderOptions passes options to the render loop.
func WithRenderOptions(opts ...render.Option) Option {
	return func(c *Controller) {
		c.renderOpts = append(c.renderOpts, opts...)
	}
}

// WithLogger sets the controller logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// WithTracer sets the tracer for session spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *Controller) {
		if t != nil {
			c.tracer = t
		}
	}
}
