// Package pose runs pose estimation beside rendering and publishes the latest
// body position to a shared cell.
package pose

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/motionplay/internal/domain/coords"
	"github.com/okian/motionplay/internal/domain/model"
	"github.com/okian/motionplay/pkg/logger"
	"github.com/okian/motionplay/pkg/metrics"
	"github.com/okian/motionplay/pkg/tracing"
)

// Defaults.
const (
	DefaultInterval     = 50 * time.Millisecond
	DefaultRetryDelay   = 100 * time.Millisecond
	DefaultMinFrameSize = 16
)

// Estimator turns a frame into a pose. A nil pose with a nil error means no
// person was found.
type Estimator interface {
	Ready() bool
	Estimate(ctx context.Context, frame model.Frame) (*model.Pose, error)
}

// FrameSource yields the most recent video frame without blocking.
type FrameSource interface {
	Latest() (model.Frame, bool)
}

// Outcome is the result of one loop iteration.
type Outcome int

// Iteration outcomes.
const (
	OutcomeNotReady Outcome = iota
	OutcomeStaleFrame
	OutcomeMiss
	OutcomePublished
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNotReady:
		return "not_ready"
	case OutcomeStaleFrame:
		return "stale_frame"
	case OutcomeMiss:
		return "miss"
	case OutcomePublished:
		return "published"
	default:
		return "unknown"
	}
}

// Option applies a configuration option to the Loop.
type Option func(*Loop)

// WithInterval sets the pause after an estimate completes.
func WithInterval(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.interval = d
		}
	}
}

// WithRetryDelay sets the pause when the estimator or frame is not ready.
func WithRetryDelay(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.retry = d
		}
	}
}

// WithMinFrameSize sets the smallest usable frame edge in pixels.
func WithMinFrameSize(px int) Option {
	return func(l *Loop) {
		if px > 0 {
			l.minSize = px
		}
	}
}

// WithConfidence sets the keypoint confidence gate.
func WithConfidence(threshold float64) Option {
	return func(l *Loop) {
		if threshold >= 0 {
			l.confidence = threshold
		}
	}
}

// WithLogger sets the loop logger.
func WithLogger(lg logger.Logger) Option {
	return func(l *Loop) {
		if lg != nil {
			l.log = lg
		}
	}
}

// WithTracer sets the tracer used for estimate spans.
func WithTracer(t trace.Tracer) Option {
	return func(l *Loop) {
		if t != nil {
			l.tracer = t
		}
	}
}

// Loop is the self-rescheduling estimation loop. Only one estimate is ever in
// flight: the next iteration is scheduled after the previous one returns.
type Loop struct {
	est  Estimator
	src  FrameSource
	cell *Cell

	interval   time.Duration
	retry      time.Duration
	minSize    int
	confidence float64
	log        logger.Logger
	tracer     trace.Tracer

	lastSeq uint64
	seq     uint64
	active  func() bool // set by Run
}

// NewLoop creates a loop that publishes into cell.
func NewLoop(est Estimator, src FrameSource, cell *Cell, opts ...Option) *Loop {
	l := &Loop{
		est:        est,
		src:        src,
		cell:       cell,
		interval:   DefaultInterval,
		retry:      DefaultRetryDelay,
		minSize:    DefaultMinFrameSize,
		confidence: DefaultConfidence,
		log:        logger.Get().Named("pose"),
		tracer:     tracing.Tracer(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run iterates until ctx is done or active reports false. Misses never stop it.
func (l *Loop) Run(ctx context.Context, active func() bool) {
	l.active = active
	defer func() { l.active = nil }()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		if !active() {
			return
		}

		delay := l.interval
		if out := l.Step(ctx); out == OutcomeNotReady || out == OutcomeStaleFrame {
			delay = l.retry
		}
		timer.Reset(delay)
	}
}

// Step performs one iteration. It is not safe to call concurrently with
// itself; Run never does. An estimate that returns after ctx is done, or
// after Run's session went inactive, is dropped unpublished.
func (l *Loop) Step(ctx context.Context) Outcome {
	if l.est == nil || !l.est.Ready() {
		return OutcomeNotReady
	}

	frame, ok := l.src.Latest()
	if !ok || frame.Width < l.minSize || frame.Height < l.minSize || (frame.Seq != 0 && frame.Seq == l.lastSeq) {
		metrics.RecordStaleFrame()
		return OutcomeStaleFrame
	}
	l.lastSeq = frame.Seq

	ctx, span := l.tracer.Start(ctx, "pose.estimate", trace.WithAttributes(
		attribute.Int("frame.width", frame.Width),
		attribute.Int("frame.height", frame.Height),
		attribute.Int64("frame.seq", int64(frame.Seq)), //nolint:gosec // sequence numbers stay far below MaxInt64
	))
	defer span.End()

	start := time.Now()
	p, err := l.est.Estimate(ctx, frame)
	metrics.RecordInferenceLatency(float64(time.Since(start).Microseconds()) / 1000)

	if err != nil {
		metrics.RecordPoseMiss("error")
		span.RecordError(err)
		span.SetStatus(codes.Error, "estimate failed")
		l.log.Debug(ctx, "pose estimate failed", logger.Error(err))
		return OutcomeMiss
	}
	if p == nil {
		metrics.RecordPoseMiss("no_pose")
		span.SetAttributes(attribute.Bool("pose.found", false))
		return OutcomeMiss
	}

	if ctx.Err() != nil || (l.active != nil && !l.active()) {
		metrics.RecordPoseMiss("cancelled")
		span.SetAttributes(attribute.Bool("pose.dropped", true))
		return OutcomeMiss
	}

	ew, eh := p.Width, p.Height
	if ew <= 0 || eh <= 0 {
		ew, eh = float64(frame.Width), float64(frame.Height)
	}
	body := coords.MapBody(Extract(p, l.confidence), ew, eh, float64(frame.Width), float64(frame.Height))
	l.seq++
	body.Seq = l.seq
	body.At = time.Now()
	l.cell.Store(body)

	metrics.RecordPosePublished()
	span.SetAttributes(attribute.Bool("pose.found", true), attribute.Float64("pose.score", p.Score))
	return OutcomePublished
}
