// Package service owns the live exercise sessions behind the HTTP API and
// routes every finished session to the record store and the result publishers.
package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/motionplay/internal/adapters/audio"
	camsynth "github.com/okian/motionplay/internal/adapters/camera/synthetic"
	estsynth "github.com/okian/motionplay/internal/adapters/estimator/synthetic"
	"github.com/okian/motionplay/internal/adapters/mq/queue"
	"github.com/okian/motionplay/internal/adapters/mq/worker"
	"github.com/okian/motionplay/internal/adapters/publisher"
	"github.com/okian/motionplay/internal/adapters/repository"
	"github.com/okian/motionplay/internal/domain/hit"
	"github.com/okian/motionplay/internal/domain/model"
	"github.com/okian/motionplay/internal/domain/motion"
	"github.com/okian/motionplay/internal/domain/targets"
	"github.com/okian/motionplay/internal/engine/camera"
	"github.com/okian/motionplay/internal/engine/pose"
	"github.com/okian/motionplay/internal/engine/render"
	"github.com/okian/motionplay/internal/engine/session"
	"github.com/okian/motionplay/pkg/logger"
	"github.com/okian/motionplay/pkg/metrics"
)

const shutdownTimeout = 30 * time.Second

// View is the externally visible state of one session.
type View struct {
	ID        string          `json:"id"`
	Challenge model.Challenge `json:"challenge"`
	State     string          `json:"state"`
	Remaining int             `json:"remaining_seconds"`
	Score     model.Score     `json:"score"`
	Targets   []model.Target  `json:"targets,omitempty"`
	Result    *model.Result   `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	Live      bool            `json:"live"`
}

// Graded is the outcome of grading a recorded clip.
type Graded struct {
	ID string `json:"id"`
	motion.Grade
	Coins int `json:"coins"`
}

// connector is implemented by estimators that hold a connection.
type connector interface {
	Connect(ctx context.Context) error
	KeepDialing()
}

// Service implements the API dependencies for exercise sessions.
type Service struct {
	mu sync.RWMutex

	// Core components
	store     repository.Store
	queue     *queue.InMemoryQueue
	pool      *worker.Pool
	publisher worker.Publisher
	grader    *motion.Estimator
	estimator pose.Estimator
	player    audio.Player
	devices   func() camera.Device
	surfaces  func() render.Surface

	// Configuration
	workerCount    int
	queueSize      int
	maxSessions    int
	maxLive        int
	publishTimeout time.Duration
	policy         session.PolicyConfig
	sessionOpts    []session.Option
	detectorOpts   []hit.Option

	// State
	started bool

	liveMu sync.Mutex
	live   map[string]*session.Controller

	logger logger.Logger
}

// New constructs a new Service with default configuration: synthetic camera
// and estimator, a log publisher and silent audio.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:    2,
		queueSize:      1024,
		maxSessions:    10_000,
		maxLive:        256,
		publishTimeout: 5 * time.Second,
		policy:         session.DefaultPolicyConfig(),
		player:         audio.Silent{},
		devices:        func() camera.Device { return camsynth.NewDevice() },
		surfaces:       func() render.Surface { return &render.NullSurface{} },
		live:           make(map[string]*session.Controller),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.estimator == nil {
		s.estimator = estsynth.New()
	}
	if s.grader == nil {
		s.grader = motion.NewEstimator()
	}
	if s.publisher == nil {
		s.publisher = publisher.NewLog(s.logger.Named("publisher"))
	}
	return s
}

// Start initializes and starts the service components. Publishing runs on a
// context detached from ctx so Stop can drain pending records.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting session service...")

	if c, ok := s.estimator.(connector); ok {
		if err := c.Connect(ctx); err != nil {
			s.logger.Warn(ctx, "estimator not connected yet", logger.Error(err))
			c.KeepDialing()
		}
	}

	s.store = repository.NewMemoryStore(repository.WithCapacity(s.maxSessions))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, s.publisher,
		worker.WithLogger(s.logger.Named("worker")),
		worker.WithPublishTimeout(s.publishTimeout),
	)
	s.pool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "session service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("maxSessions", s.maxSessions),
	)
	return nil
}

// Stop closes every live session, drains the result queue and closes the
// publisher and estimator when they hold resources.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()

	ctx := context.Background()
	s.logger.Info(ctx, "stopping session service...")

	s.liveMu.Lock()
	live := make([]*session.Controller, 0, len(s.live))
	for id, c := range s.live {
		live = append(live, c)
		delete(s.live, id)
	}
	s.liveMu.Unlock()

	for _, c := range live {
		if err := c.Close(); err != nil {
			s.logger.Warn(ctx, "session close failed", logger.String("session_id", c.ID()), logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := s.pool.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown incomplete", logger.Error(err))
	}
	if c, ok := s.publisher.(io.Closer); ok {
		_ = c.Close()
	}
	if c, ok := s.estimator.(io.Closer); ok {
		_ = c.Close()
	}

	s.logger.Info(ctx, "session service stopped")
}

func (s *Service) running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// CreateSession builds an Idle session for ch. The camera is not opened yet.
func (s *Service) CreateSession(ctx context.Context, ch model.Challenge) (View, error) {
	if !s.running() {
		return View{}, ErrNotStarted
	}
	policy, err := session.PolicyFor(ch.Kind, s.policy)
	if err != nil {
		return View{}, err
	}

	id := uuid.NewString()
	cb := session.Callbacks{
		OnComplete: func(res model.Result) {
			s.player.Play(audio.CueComplete)
			s.finish(id, model.StateComplete, &res)
		},
		OnCancel: func() { s.finish(id, model.StateCancelled, nil) },
		OnHit: func(source string, _ render.Hit) {
			if source == metrics.SourceTap {
				s.player.Play(audio.CueTap)
				return
			}
			s.player.Play(audio.CueHit)
		},
	}

	cam := camera.NewSession(s.devices(), camera.WithLogger(s.logger.Named("camera")))
	opts := append([]session.Option{session.WithID(id)}, s.sessionOpts...)
	ctrl, err := session.New(ch, policy, cam, s.estimator, s.surfaces(),
		targets.NewPool(policy.PoolOptions...), hit.NewDetector(s.detectorOpts...), cb, opts...)
	if err != nil {
		return View{}, err
	}

	s.liveMu.Lock()
	if len(s.live) >= s.maxLive {
		s.liveMu.Unlock()
		return View{}, fmt.Errorf("%d live: %w", s.maxLive, ErrTooManySessions)
	}
	s.live[id] = ctrl
	s.liveMu.Unlock()

	s.save(ctx, ctrl)
	s.logger.Debug(ctx, "session created", logger.String("session_id", id), logger.String("exercise_kind", string(ch.Kind)))
	return viewOf(ctrl), nil
}

// InitializeSession acquires the camera of a session. On failure the view is
// still returned, in state error.
func (s *Service) InitializeSession(ctx context.Context, id string) (View, error) {
	ctrl, err := s.controller(id)
	if err != nil {
		return View{}, err
	}
	err = ctrl.Initialize(ctx)
	s.save(ctx, ctrl)
	return viewOf(ctrl), err
}

// StartSession starts or replays a session.
func (s *Service) StartSession(ctx context.Context, id string) (View, error) {
	ctrl, err := s.controller(id)
	if err != nil {
		return View{}, err
	}
	err = ctrl.Start(ctx)
	s.save(ctx, ctrl)
	return viewOf(ctrl), err
}

// CancelSession cancels an Active session.
func (s *Service) CancelSession(_ context.Context, id string) (View, error) {
	ctrl, err := s.controller(id)
	if err != nil {
		return View{}, err
	}
	err = ctrl.Cancel()
	return viewOf(ctrl), err
}

// CloseSession unmounts a session and forgets its controller. Its record stays.
func (s *Service) CloseSession(ctx context.Context, id string) error {
	s.liveMu.Lock()
	ctrl, ok := s.live[id]
	delete(s.live, id)
	s.liveMu.Unlock()
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrSessionNotFound)
	}
	err := ctrl.Close()
	s.logger.Debug(ctx, "session closed", logger.String("session_id", id))
	return err
}

// Tap forwards a pointer position, in render space, to a session.
func (s *Service) Tap(_ context.Context, id string, p model.Point) (bool, error) {
	ctrl, err := s.controller(id)
	if err != nil {
		return false, err
	}
	return ctrl.Tap(p), nil
}

// Session returns the live view of id, or the stored record once the session
// has been closed.
func (s *Service) Session(ctx context.Context, id string) (View, error) {
	if ctrl, err := s.controller(id); err == nil {
		return viewOf(ctrl), nil
	}
	if !s.running() {
		return View{}, ErrNotStarted
	}
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return View{}, fmt.Errorf("%s: %w", id, ErrSessionNotFound)
	}
	v := View{ID: rec.ID, Challenge: rec.Challenge, State: rec.State.String(), Result: rec.Result}
	if rec.Result != nil {
		v.Score = model.Score{
			EventCount:         rec.Result.RawCount,
			SecondaryCount:     rec.Result.SecondaryCount,
			TotalOpportunities: rec.Result.TotalOpportunities,
		}
	}
	return v, nil
}

// Sessions lists up to limit stored records, newest first.
func (s *Service) Sessions(ctx context.Context, limit int) ([]model.SessionRecord, error) {
	if !s.running() {
		return nil, ErrNotStarted
	}
	return s.store.List(ctx, limit)
}

// GradeClip grades a recorded clip and stores the result as a completed
// recorded-kind session.
func (s *Service) GradeClip(ctx context.Context, clip motion.Clip, difficulty float64) (Graded, error) {
	if !s.running() {
		return Graded{}, ErrNotStarted
	}
	g, err := s.grader.Evaluate(clip, difficulty)
	if err != nil {
		return Graded{}, err
	}
	metrics.RecordClipGraded(g.Level, g.LowEngagement)

	now := time.Now()
	out := Graded{ID: uuid.NewString(), Grade: g, Coins: g.Stars * s.policy.CoinsPerStar}
	rec := model.SessionRecord{
		ID:        out.ID,
		Challenge: model.Challenge{Kind: model.ExerciseRecorded, Difficulty: difficulty},
		State:     model.StateComplete,
		StateName: model.StateComplete.String(),
		Result:    &model.Result{RawCount: g.Score, TotalOpportunities: 1, Stars: g.Stars, Coins: out.Coins},
		StartedAt: now,
		EndedAt:   now,
	}
	s.publish(ctx, rec)
	return out, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"maxSessions": s.maxSessions,
	}

	s.liveMu.Lock()
	stats["liveSessions"] = len(s.live)
	s.liveMu.Unlock()

	if s.started {
		queueLen := s.queue.Len(ctx)
		stats["queueLength"] = queueLen
		stats["records"] = s.store.Stats(ctx)

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateWorkerCount(s.pool.Size())
	}
	return stats
}

func (s *Service) controller(id string) (*session.Controller, error) {
	s.liveMu.Lock()
	defer s.liveMu.Unlock()
	ctrl, ok := s.live[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrSessionNotFound)
	}
	return ctrl, nil
}

// save stores the current record of ctrl.
func (s *Service) save(ctx context.Context, ctrl *session.Controller) {
	rec := recordOf(ctrl)
	if err := s.store.Put(ctx, rec); err != nil {
		s.logger.Warn(ctx, "record not stored", logger.String("session_id", rec.ID), logger.Error(err))
	}
}

// finish runs from controller callbacks and must not call controller
// operations that take the operation lock.
func (s *Service) finish(id string, state model.SessionState, res *model.Result) {
	ctx := context.Background()
	s.liveMu.Lock()
	ctrl, ok := s.live[id]
	s.liveMu.Unlock()

	rec := model.SessionRecord{ID: id, State: state, StateName: state.String(), Result: res}
	if ok {
		rec.Challenge = ctrl.Challenge()
		rec.StartedAt, rec.EndedAt = ctrl.Times()
	} else if prev, err := s.store.Get(ctx, id); err == nil {
		rec.Challenge = prev.Challenge
		rec.StartedAt, rec.EndedAt = prev.StartedAt, time.Now()
	}
	s.publish(ctx, rec)
}

// publish stores rec and hands it to the publishing workers.
func (s *Service) publish(ctx context.Context, rec model.SessionRecord) { //nolint:gocritic // hugeParam: stored by value
	if err := s.store.Put(ctx, rec); err != nil {
		s.logger.Warn(ctx, "record not stored", logger.String("session_id", rec.ID), logger.Error(err))
	}
	if !s.queue.Enqueue(ctx, rec) {
		s.logger.Warn(ctx, "record not queued for publishing", logger.String("session_id", rec.ID))
	}
}

func recordOf(ctrl *session.Controller) model.SessionRecord {
	state := ctrl.State()
	started, ended := ctrl.Times()
	rec := model.SessionRecord{
		ID:        ctrl.ID(),
		Challenge: ctrl.Challenge(),
		State:     state,
		StateName: state.String(),
		StartedAt: started,
		EndedAt:   ended,
	}
	if res, ok := ctrl.Result(); ok {
		rec.Result = &res
	}
	return rec
}

func viewOf(ctrl *session.Controller) View {
	state := ctrl.State()
	v := View{
		ID:        ctrl.ID(),
		Challenge: ctrl.Challenge(),
		State:     state.String(),
		Remaining: ctrl.Remaining(),
		Score:     ctrl.Score(),
		Targets:   ctrl.Targets(),
		Live:      true,
	}
	if res, ok := ctrl.Result(); ok {
		v.Result = &res
	}
	if err := ctrl.Err(); err != nil {
		v.Error = err.Error()
	}
	return v
}
