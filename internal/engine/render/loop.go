// Package render runs the per-frame loop: draw, age targets, hit-test the
// latest body snapshot and the pointer, and present.
package render

import (
	"sync"
	"time"

	"github.com/okian/motionplay/internal/domain/hit"
	"github.com/okian/motionplay/internal/domain/model"
	"github.com/okian/motionplay/internal/domain/targets"
	"github.com/okian/motionplay/internal/engine/pose"
	"github.com/okian/motionplay/pkg/metrics"
)

// DefaultMarkerFrames is how many frames a hit marker stays on screen.
const DefaultMarkerFrames = 6

// Credit receives everything the loop scores. Implementations decide whether
// the session still accepts credit.
type Credit interface {
	CreditHit(source string, h Hit)
	CreditEngagement()
}

// Option applies a configuration option to the Loop.
type Option func(*Loop)

// WithMarkerFrames sets how long hit markers last.
func WithMarkerFrames(n int) Option {
	return func(l *Loop) {
		if n > 0 {
			l.markerFrames = n
		}
	}
}

// WithEngageThreshold sets the wrist displacement counted as engagement.
func WithEngageThreshold(px float64) Option {
	return func(l *Loop) {
		if px > 0 {
			l.engage = px
		}
	}
}

type marker struct {
	at   model.Point
	left int
}

// Loop is the render loop of one session. Tick and Tap may be called from
// different goroutines.
type Loop struct {
	surface  Surface
	pool     *targets.Pool
	detector *hit.Detector
	cell     *pose.Cell
	rule     HitRule
	credit   Credit

	markerFrames int
	engage       float64

	mu       sync.Mutex
	markers  []marker
	prev     *model.BodyPosition
	lastSeq  uint64
	lastTick time.Time
}

// NewLoop creates a render loop.
func NewLoop(surface Surface, pool *targets.Pool, detector *hit.Detector, cell *pose.Cell, rule HitRule, credit Credit, opts ...Option) *Loop {
	if rule == nil {
		rule = NoRule{}
	}
	l := &Loop{
		surface:      surface,
		pool:         pool,
		detector:     detector,
		cell:         cell,
		rule:         rule,
		credit:       credit,
		markerFrames: DefaultMarkerFrames,
		engage:       hit.DefaultEngageThreshold,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Tick renders one frame at now. A zero-sized frame is not drawn.
func (l *Loop) Tick(now time.Time, frame model.Frame) error {
	start := time.Now()
	defer func() {
		metrics.RecordRenderDuration(float64(time.Since(start).Microseconds()) / 1000)
	}()

	l.mu.Lock()
	defer l.mu.Unlock()

	if frame.Width > 0 && frame.Height > 0 {
		if w, h := l.surface.Size(); w != frame.Width || h != frame.Height {
			l.surface.Resize(frame.Width, frame.Height)
		}
		l.surface.DrawFrame(frame)
	}

	var delta time.Duration
	if !l.lastTick.IsZero() {
		delta = now.Sub(l.lastTick)
	}
	l.lastTick = now
	metrics.RecordTargetsExpired(l.pool.Tick(delta))

	body, ok := l.cell.Load()
	if ok {
		fresh := body.Seq != l.lastSeq
		l.evaluate(body, fresh, now)
		if fresh {
			l.prev = body
			l.lastSeq = body.Seq
		}
	}

	for _, t := range l.pool.Live() {
		l.surface.DrawTarget(t)
	}
	l.drawMarkers()
	if ok {
		for _, p := range body.Wrists() {
			l.surface.DrawHand(p)
		}
	}
	return l.surface.Present()
}

// evaluate runs the rule against the latest snapshot, stale or not.
// Engagement compares snapshots, so it only counts fresh ones. Caller holds mu.
func (l *Loop) evaluate(body *model.BodyPosition, fresh bool, now time.Time) {
	w, h := l.surface.Size()
	out := l.rule.Evaluate(HitInput{
		Body:     body,
		Prev:     l.prev,
		Fresh:    fresh,
		Now:      now,
		Width:    float64(w),
		Height:   float64(h),
		Pool:     l.pool,
		Detector: l.detector,
	})
	for _, hh := range out.Hits {
		l.credit.CreditHit(metrics.SourcePose, hh)
		l.markers = append(l.markers, marker{at: hh.At, left: l.markerFrames})
	}
	if !fresh || len(out.Hits) > 0 || l.prev == nil {
		return
	}
	if hit.IsMoving(body.LeftWrist, l.prev.LeftWrist, l.engage) || hit.IsMoving(body.RightWrist, l.prev.RightWrist, l.engage) {
		l.credit.CreditEngagement()
	}
}

// drawMarkers draws live markers and ages them by one frame. Caller holds mu.
func (l *Loop) drawMarkers() {
	kept := l.markers[:0]
	for _, m := range l.markers {
		l.surface.DrawHitMarker(m.at, float64(m.left)/float64(l.markerFrames))
		m.left--
		if m.left > 0 {
			kept = append(kept, m)
		}
	}
	l.markers = kept
}

// Tap hit-tests a pointer position with the same collision test, claim and
// credit path as pose hits. It reports whether anything was hit.
func (l *Loop) Tap(p model.Point) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	hits := claimed(l.pool.Claim(func(t model.Target) bool {
		return l.detector.Collides(p, t)
	}))
	for _, hh := range hits {
		l.credit.CreditHit(metrics.SourceTap, hh)
		l.markers = append(l.markers, marker{at: hh.At, left: l.markerFrames})
	}
	return len(hits) > 0
}

// Reset clears markers, rule state and the previous snapshot.
func (l *Loop) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.markers = nil
	l.prev = nil
	l.lastSeq = 0
	l.lastTick = time.Time{}
	l.rule.Reset()
}
