// Package session drives one exercise session: camera, pose loop, render
// loop, spawn timer and countdown, from start to exactly one callback.
package session

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/motionplay/internal/domain/hit"
	"github.com/okian/motionplay/internal/domain/model"
	"github.com/okian/motionplay/internal/domain/scoring"
	"github.com/okian/motionplay/internal/domain/targets"
	"github.com/okian/motionplay/internal/engine/camera"
	"github.com/okian/motionplay/internal/engine/clock"
	"github.com/okian/motionplay/internal/engine/pose"
	"github.com/okian/motionplay/internal/engine/render"
	"github.com/okian/motionplay/pkg/logger"
	"github.com/okian/motionplay/pkg/metrics"
	"github.com/okian/motionplay/pkg/tracing"
)

// Callbacks are never invoked with the controller lock held. OnComplete and
// OnCancel fire at most once per run, never both. OnHit fires for every
// credited hit, from the render goroutine or the Tap caller.
type Callbacks struct {
	OnComplete func(model.Result)
	OnCancel   func()
	OnHit      func(source string, h render.Hit)
}

// run is one Active period. Loop goroutines only act while their run is the
// controller's current run and the state is Active.
type run struct {
	ctx    context.Context
	cancel context.CancelFunc
	span   trace.Span

	loops         sync.WaitGroup // render, pose, spawn
	countdownDone chan struct{}
	done          chan struct{} // closed once the camera is released
}

// Controller is the session state machine.
type Controller struct {
	id        string
	challenge model.Challenge
	policy    Policy
	cam       *camera.Session
	est       pose.Estimator
	surface   render.Surface
	pool      *targets.Pool
	cb        Callbacks

	clock             clock.Clock
	frameInterval     time.Duration
	spawnInterval     time.Duration
	countdownInterval time.Duration
	poseOpts          []pose.Option
	renderOpts        []render.Option
	log               logger.Logger
	tracer            trace.Tracer

	agg    *scoring.Aggregator
	cell   *pose.Cell
	render *render.Loop

	opMu sync.Mutex // serializes Initialize, Start, Cancel and Close

	mu        sync.Mutex
	state     model.SessionState
	run       *run
	endAt     time.Time
	remaining int
	result    *model.Result
	lastErr   error
	startedAt time.Time
	endedAt   time.Time
	closed    bool
}

// New creates an Idle controller. The camera is not opened until Initialize or Start.
func New(
	challenge model.Challenge,
	policy Policy,
	cam *camera.Session,
	est pose.Estimator,
	surface render.Surface,
	pool *targets.Pool,
	detector *hit.Detector,
	cb Callbacks,
	opts ...Option,
) (*Controller, error) {
	if challenge.DurationSeconds <= 0 {
		return nil, fmt.Errorf("duration %ds: %w", challenge.DurationSeconds, ErrInvalidChallenge)
	}
	if cam == nil || pool == nil {
		return nil, fmt.Errorf("camera and target pool are required: %w", ErrInvalidChallenge)
	}
	if surface == nil {
		surface = &render.NullSurface{}
	}
	if detector == nil {
		detector = hit.NewDetector()
	}

	c := &Controller{
		id:                uuid.NewString(),
		challenge:         challenge,
		policy:            policy,
		cam:               cam,
		est:               est,
		surface:           surface,
		pool:              pool,
		cb:                cb,
		clock:             clock.System{},
		frameInterval:     DefaultFrameInterval,
		spawnInterval:     DefaultSpawnInterval,
		countdownInterval: DefaultCountdownInterval,
		log:               logger.Get().Named("session"),
		tracer:            tracing.Tracer(),
		agg:               scoring.NewAggregator(scoring.WithOpportunities(policy.CountsOpportunities)),
		cell:              &pose.Cell{},
		state:             model.StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With(logger.String("session_id", c.id), logger.String("exercise_kind", string(challenge.Kind)))
	c.render = render.NewLoop(surface, pool, detector, c.cell, policy.Rule, c, c.renderOpts...)
	return c, nil
}

// ID returns the session id.
func (c *Controller) ID() string { return c.id }

// Challenge returns the descriptor the session was created with.
func (c *Controller) Challenge() model.Challenge { return c.challenge }

// Initialize acquires the camera. On failure the session enters Error and the
// call may be retried; the error wraps camera.ErrAcquisition.
func (c *Controller) Initialize(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state == model.StateActive {
		c.mu.Unlock()
		return fmt.Errorf("initialize while %s: %w", c.state, ErrInvalidState)
	}
	c.mu.Unlock()

	err := c.cam.Acquire(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state = model.StateError
		c.lastErr = err
		return err
	}
	c.lastErr = nil
	if c.state != model.StateComplete {
		c.state = model.StateIdle
	}
	return nil
}

// Start enters Active from Idle or Complete. Every counter, the pool, the hit
// rule state, the pose cell and the render markers are reset first.
func (c *Controller) Start(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state != model.StateIdle && c.state != model.StateComplete {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("start while %s: %w", state, ErrInvalidState)
	}
	prev := c.run
	c.mu.Unlock()

	if prev != nil {
		<-prev.done
	}

	if err := c.cam.Acquire(ctx); err != nil {
		c.mu.Lock()
		c.state = model.StateError
		c.lastErr = err
		c.mu.Unlock()
		return err
	}

	c.pool.Reset()
	c.agg.Reset()
	c.render.Reset()
	c.cell.Reset()

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	runCtx, span := c.tracer.Start(runCtx, "session", trace.WithAttributes(
		attribute.String("session.id", c.id),
		attribute.String("session.kind", string(c.challenge.Kind)),
		attribute.Int("session.duration_seconds", c.challenge.DurationSeconds),
	))
	r := &run{
		ctx:           runCtx,
		cancel:        cancel,
		span:          span,
		countdownDone: make(chan struct{}),
		done:          make(chan struct{}),
	}

	c.mu.Lock()
	now := c.clock.Now()
	c.run = r
	c.state = model.StateActive
	c.startedAt = now
	c.endedAt = time.Time{}
	c.endAt = now.Add(time.Duration(c.challenge.DurationSeconds) * time.Second)
	c.remaining = c.challenge.DurationSeconds
	c.result = nil
	c.lastErr = nil
	c.mu.Unlock()

	metrics.RecordSessionStarted(string(c.challenge.Kind))
	c.log.Info(ctx, "session started", logger.Int("duration_seconds", c.challenge.DurationSeconds))

	poseLoop := pose.NewLoop(c.est, c.cam, c.cell, append([]pose.Option{pose.WithLogger(c.log)}, c.poseOpts...)...)
	r.loops.Add(2)
	go func() {
		defer r.loops.Done()
		poseLoop.Run(r.ctx, func() bool { return c.current(r) })
	}()
	go func() {
		defer r.loops.Done()
		c.every(r, c.frameInterval, c.renderTick)
	}()
	if c.policy.SpawnTargets {
		c.spawnTick(r)
		r.loops.Add(1)
		go func() {
			defer r.loops.Done()
			c.every(r, c.spawnInterval, c.spawnTick)
		}()
	}
	go func() {
		defer close(r.countdownDone)
		c.every(r, c.countdownInterval, c.countdownTick)
	}()
	return nil
}

// every calls fn on each tick until the run's context is cancelled.
func (c *Controller) every(r *run, d time.Duration, fn func(*run)) {
	ticker := time.NewTicker(d)
	defer ticker.Stop()
	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			fn(r)
		}
	}
}

// current reports whether r is the live run and the session is Active.
func (c *Controller) current(r *run) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.run == r && c.state == model.StateActive
}

func (c *Controller) renderTick(r *run) {
	if !c.current(r) {
		return
	}
	frame, _ := c.cam.Latest()
	if err := c.render.Tick(c.clock.Now(), frame); err != nil {
		c.log.Debug(r.ctx, "present failed", logger.Error(err))
	}
}

func (c *Controller) spawnTick(r *run) {
	if !c.current(r) {
		return
	}
	w, h := c.surface.Size()
	if w <= 0 || h <= 0 {
		frame, _ := c.cam.Latest()
		w, h = frame.Width, frame.Height
	}
	if _, err := c.pool.Spawn(float64(w), float64(h)); err != nil {
		c.log.Debug(r.ctx, "spawn skipped", logger.Error(err))
		return
	}
	c.agg.RecordOpportunity()
	metrics.RecordTargetSpawned()
}

// countdownTick recomputes the remaining time from the absolute end time. The
// value only ever decreases; reaching zero completes the session.
func (c *Controller) countdownTick(r *run) {
	c.mu.Lock()
	if c.run != r || c.state != model.StateActive {
		c.mu.Unlock()
		return
	}
	left := int(math.Ceil(c.endAt.Sub(c.clock.Now()).Seconds()))
	if left < 0 {
		left = 0
	}
	if left < c.remaining {
		c.remaining = left
	}
	finished := c.remaining == 0
	c.mu.Unlock()

	if finished {
		c.complete(r)
	}
}

// complete ends r naturally. Only the caller that flips the state wins.
func (c *Controller) complete(r *run) {
	c.mu.Lock()
	if c.run != r || c.state != model.StateActive {
		c.mu.Unlock()
		return
	}
	c.state = model.StateComplete
	c.endedAt = c.clock.Now()
	res := scoring.Build(c.agg.Snapshot(), c.policy.Stars, c.policy.CoinsPerStar)
	c.result = &res
	c.mu.Unlock()

	c.stop(r)

	metrics.RecordSessionCompleted(string(c.challenge.Kind), res.Stars)
	r.span.SetAttributes(
		attribute.String("session.outcome", "complete"),
		attribute.Int("session.raw_count", res.RawCount),
		attribute.Int("session.stars", res.Stars),
	)
	r.span.End()
	c.log.Info(r.ctx, "session complete",
		logger.Int("raw_count", res.RawCount),
		logger.Int("total_opportunities", res.TotalOpportunities),
		logger.Int("stars", res.Stars),
	)
	close(r.done)

	if c.cb.OnComplete != nil {
		c.cb.OnComplete(res)
	}
}

// stop halts the loops of r and releases the camera. The countdown goroutine
// may be the caller, so it is not waited for here.
func (c *Controller) stop(r *run) {
	r.cancel()
	r.loops.Wait()
	if err := c.cam.Release(); err != nil {
		c.log.Warn(r.ctx, "camera release failed", logger.Error(err))
	}
}

// Cancel stops an Active session immediately. When it returns no loop is
// running, the camera is released and OnCancel has fired. No result is kept.
func (c *Controller) Cancel() error {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	return c.cancelLocked()
}

// cancelLocked is Cancel with opMu held.
func (c *Controller) cancelLocked() error {
	c.mu.Lock()
	if c.state != model.StateActive {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("cancel while %s: %w", state, ErrInvalidState)
	}
	r := c.run
	c.state = model.StateCancelled
	c.endedAt = c.clock.Now()
	c.result = nil
	c.mu.Unlock()

	c.stop(r)
	<-r.countdownDone

	metrics.RecordSessionCancelled(string(c.challenge.Kind))
	r.span.SetAttributes(attribute.String("session.outcome", "cancelled"))
	r.span.End()
	c.log.Info(r.ctx, "session cancelled")
	close(r.done)

	if c.cb.OnCancel != nil {
		c.cb.OnCancel()
	}
	return nil
}

// Close unmounts the session. An Active session is cancelled first; the
// camera is released in every case.
func (c *Controller) Close() error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	active := c.state == model.StateActive
	c.mu.Unlock()

	if active {
		if err := c.cancelLocked(); err != nil {
			c.log.Debug(context.Background(), "cancel on close", logger.Error(err))
		}
	}

	c.mu.Lock()
	c.closed = true
	prev := c.run
	c.mu.Unlock()

	if prev != nil {
		<-prev.done
	}
	return c.cam.Release()
}

// Tap scores a pointer position against the live targets.
func (c *Controller) Tap(p model.Point) bool {
	c.mu.Lock()
	active := c.state == model.StateActive
	c.mu.Unlock()
	if !active {
		return false
	}
	return c.render.Tap(p)
}

// CreditHit implements render.Credit. Credit arriving outside Active is dropped.
func (c *Controller) CreditHit(source string, h render.Hit) {
	c.mu.Lock()
	if c.state != model.StateActive {
		c.mu.Unlock()
		return
	}
	c.agg.RecordHit(h.Points)
	c.mu.Unlock()
	metrics.RecordHit(source, string(c.challenge.Kind))
	if c.cb.OnHit != nil {
		c.cb.OnHit(source, h)
	}
}

// CreditEngagement implements render.Credit.
func (c *Controller) CreditEngagement() {
	c.mu.Lock()
	if c.state != model.StateActive {
		c.mu.Unlock()
		return
	}
	c.agg.RecordEngagement()
	c.mu.Unlock()
	metrics.RecordEngagement()
}

// State returns the current state.
func (c *Controller) State() model.SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the last acquisition error, if the session is in Error.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Remaining returns the whole seconds left while Active, and 0 otherwise.
func (c *Controller) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != model.StateActive {
		return 0
	}
	return c.remaining
}

// Score returns the live counters.
func (c *Controller) Score() model.Score {
	return c.agg.Snapshot()
}

// Result returns the result of the last completed run.
func (c *Controller) Result() (model.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.result == nil {
		return model.Result{}, false
	}
	return *c.result, true
}

// Times returns when the last run started and ended.
func (c *Controller) Times() (started, ended time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startedAt, c.endedAt
}

// Targets returns the live targets.
func (c *Controller) Targets() []model.Target {
	return c.pool.Live()
}
