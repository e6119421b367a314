package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/motionplay/internal/domain/model"
	"github.com/okian/motionplay/internal/domain/targets"
	"github.com/okian/motionplay/internal/engine/camera"
	"github.com/okian/motionplay/internal/engine/clock"
	"github.com/okian/motionplay/internal/engine/pose"
	"github.com/okian/motionplay/internal/engine/render"
	"github.com/okian/motionplay/pkg/logger"
	"github.com/okian/motionplay/pkg/metrics"
	. "github.com/smartystreets/goconvey/convey"
)

type testStream struct {
	closes atomic.Int32
}

func (s *testStream) Latest() (model.Frame, bool) {
	return model.Frame{Width: 640, Height: 480}, true
}

func (s *testStream) Close() error {
	s.closes.Add(1)
	return nil
}

type testDevice struct {
	mu      sync.Mutex
	err     error
	streams []*testStream
}

func (d *testDevice) Open(context.Context) (camera.Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	s := &testStream{}
	d.streams = append(d.streams, s)
	return s, nil
}

func (d *testDevice) setErr(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

func (d *testDevice) opens() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.streams)
}

// released reports whether every opened stream was closed exactly once.
func (d *testDevice) released() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range d.streams {
		if s.closes.Load() != 1 {
			return false
		}
	}
	return true
}

type idleEstimator struct{}

func (idleEstimator) Ready() bool { return false }

func (idleEstimator) Estimate(context.Context, model.Frame) (*model.Pose, error) { return nil, nil }

type callbackLog struct {
	mu        sync.Mutex
	completed []model.Result
	cancelled int
	hits      []string
}

func (l *callbackLog) callbacks() Callbacks {
	return Callbacks{
		OnComplete: func(r model.Result) {
			l.mu.Lock()
			defer l.mu.Unlock()
			l.completed = append(l.completed, r)
		},
		OnCancel: func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			l.cancelled++
		},
		OnHit: func(source string, _ render.Hit) {
			l.mu.Lock()
			defer l.mu.Unlock()
			l.hits = append(l.hits, source)
		},
	}
}

func (l *callbackLog) hitSources() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.hits...)
}

func (l *callbackLog) counts() (int, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.completed), l.cancelled
}

var epoch = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

type fixture struct {
	c   *Controller
	dev *testDevice
	clk *clock.Mock
	log *callbackLog
}

func newFixture(kind model.ExerciseKind, seconds int) fixture {
	policy, err := PolicyFor(kind, DefaultPolicyConfig())
	So(err, ShouldBeNil)

	f := fixture{dev: &testDevice{}, clk: clock.NewMock(epoch), log: &callbackLog{}}
	cam := camera.NewSession(f.dev, camera.WithLogger(logger.Nop()))
	pool := targets.NewPool(append(policy.PoolOptions, targets.WithSeed(5))...)

	f.c, err = New(
		model.Challenge{DurationSeconds: seconds, Kind: kind, Difficulty: 1},
		policy, cam, idleEstimator{}, &render.RecordingSurface{}, pool, nil, f.log.callbacks(),
		WithClock(f.clk),
		WithLogger(logger.Nop()),
		WithFrameInterval(time.Hour),
		WithSpawnInterval(time.Hour),
		WithCountdownInterval(time.Hour),
		WithPoseOptions(pose.WithInterval(time.Hour), pose.WithRetryDelay(time.Hour)),
	)
	So(err, ShouldBeNil)
	return f
}

func (c *Controller) currentRun() *run {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.run
}

func TestNew(t *testing.T) {
	Convey("Given a challenge without a duration", t, func() {
		policy, _ := PolicyFor(model.ExerciseJump, DefaultPolicyConfig())
		_, err := New(model.Challenge{Kind: model.ExerciseJump}, policy,
			camera.NewSession(&testDevice{}), idleEstimator{}, nil, targets.NewPool(), nil, Callbacks{})

		So(errors.Is(err, ErrInvalidChallenge), ShouldBeTrue)
	})
}

func TestInitialize(t *testing.T) {
	Convey("Given a camera that refuses access", t, func() {
		f := newFixture(model.ExerciseTargets, 30)
		f.dev.setErr(camera.ErrPermissionDenied)

		err := f.c.Initialize(context.Background())

		Convey("Then the session is in Error with a retriable acquisition error", func() {
			So(errors.Is(err, camera.ErrAcquisition), ShouldBeTrue)
			So(f.c.State(), ShouldEqual, model.StateError)
			So(f.c.Err(), ShouldNotBeNil)
		})

		Convey("Then it cannot start from Error", func() {
			So(errors.Is(f.c.Start(context.Background()), ErrInvalidState), ShouldBeTrue)
		})

		Convey("When access is granted and initialize is retried", func() {
			f.dev.setErr(nil)
			So(f.c.Initialize(context.Background()), ShouldBeNil)

			Convey("Then the session is Idle and can start", func() {
				So(f.c.State(), ShouldEqual, model.StateIdle)
				So(f.c.Err(), ShouldBeNil)
				So(f.c.Start(context.Background()), ShouldBeNil)
				So(f.c.State(), ShouldEqual, model.StateActive)
				So(f.c.Cancel(), ShouldBeNil)
			})
		})
	})
}

func TestCountdown(t *testing.T) {
	Convey("Given an Active 60 second session", t, func() {
		f := newFixture(model.ExerciseJump, 60)
		So(f.c.Initialize(context.Background()), ShouldBeNil)
		So(f.c.Start(context.Background()), ShouldBeNil)
		r := f.c.currentRun()

		So(f.c.Remaining(), ShouldEqual, 60)

		Convey("When 30.5 seconds pass", func() {
			f.clk.Advance(30500 * time.Millisecond)
			f.c.countdownTick(r)

			Convey("Then the remaining time is computed from the end time", func() {
				So(f.c.Remaining(), ShouldEqual, 30)
			})

			Convey("Then a clock step backwards does not raise it", func() {
				f.clk.Set(epoch)
				f.c.countdownTick(r)
				So(f.c.Remaining(), ShouldEqual, 30)
			})

			Reset(func() { _ = f.c.Close() })
		})

		Convey("When the end time is reached", func() {
			f.clk.Advance(60 * time.Second)
			f.c.countdownTick(r)
			f.c.countdownTick(r)

			Convey("Then it completes exactly once and releases the camera", func() {
				completed, cancelled := f.log.counts()
				So(completed, ShouldEqual, 1)
				So(cancelled, ShouldEqual, 0)
				So(f.c.State(), ShouldEqual, model.StateComplete)
				So(f.c.Remaining(), ShouldEqual, 0)
				So(f.dev.released(), ShouldBeTrue)
				res, ok := f.c.Result()
				So(ok, ShouldBeTrue)
				So(res.TotalOpportunities, ShouldEqual, 1)
			})

			Convey("Then cancel is no longer possible", func() {
				So(errors.Is(f.c.Cancel(), ErrInvalidState), ShouldBeTrue)
				_, cancelled := f.log.counts()
				So(cancelled, ShouldEqual, 0)
			})
		})
	})
}

func TestCancel(t *testing.T) {
	Convey("Given an Active session with some hits", t, func() {
		f := newFixture(model.ExerciseBoxing, 30)
		So(f.c.Start(context.Background()), ShouldBeNil)
		r := f.c.currentRun()
		f.c.CreditHit("pose", render.Hit{Points: 1})
		f.c.CreditHit("pose", render.Hit{Points: 1})

		So(f.c.Cancel(), ShouldBeNil)

		Convey("Then OnCancel fired once, no result exists and the camera is released", func() {
			completed, cancelled := f.log.counts()
			So(completed, ShouldEqual, 0)
			So(cancelled, ShouldEqual, 1)
			So(f.c.State(), ShouldEqual, model.StateCancelled)
			_, ok := f.c.Result()
			So(ok, ShouldBeFalse)
			So(f.dev.released(), ShouldBeTrue)
		})

		Convey("Then later credit and timers have no effect", func() {
			before := f.c.Score()
			f.c.CreditHit("pose", render.Hit{Points: 1})
			f.c.CreditEngagement()
			f.clk.Advance(time.Hour)
			f.c.countdownTick(r)
			f.c.renderTick(r)
			So(f.c.Score(), ShouldResemble, before)
			completed, _ := f.log.counts()
			So(completed, ShouldEqual, 0)
		})

		Convey("Then a second cancel is rejected", func() {
			So(errors.Is(f.c.Cancel(), ErrInvalidState), ShouldBeTrue)
			_, cancelled := f.log.counts()
			So(cancelled, ShouldEqual, 1)
		})
	})

	Convey("Given an Idle session", t, func() {
		f := newFixture(model.ExerciseBoxing, 30)
		So(errors.Is(f.c.Cancel(), ErrInvalidState), ShouldBeTrue)
	})
}

func TestCompliance(t *testing.T) {
	Convey("Given a targets session", t, func() {
		f := newFixture(model.ExerciseTargets, 20)
		So(f.c.Start(context.Background()), ShouldBeNil)
		r := f.c.currentRun()

		Convey("Then the first target is spawned on start", func() {
			So(f.c.Targets(), ShouldHaveLength, 1)
			So(f.c.Score().TotalOpportunities, ShouldEqual, 1)
			Reset(func() { _ = f.c.Close() })
		})

		Convey("When a tap lands on the target", func() {
			tg := f.c.Targets()[0]
			So(f.c.Tap(tg.Center()), ShouldBeTrue)

			Convey("Then it is counted and gone", func() {
				So(f.c.Score().EventCount, ShouldEqual, 1)
				So(f.c.Targets(), ShouldBeEmpty)
				So(f.c.Tap(tg.Center()), ShouldBeFalse)
				So(f.log.hitSources(), ShouldResemble, []string{metrics.SourceTap})
			})

			Reset(func() { _ = f.c.Close() })
		})

		Convey("When 4 of 10 opportunities are hit", func() {
			for i := 0; i < 9; i++ {
				f.c.spawnTick(r)
			}
			for i := 0; i < 4; i++ {
				f.c.CreditHit("tap", render.Hit{Points: 1})
			}
			f.clk.Advance(20 * time.Second)
			f.c.countdownTick(r)

			Convey("Then compliance is below one half and no stars are awarded", func() {
				res, ok := f.c.Result()
				So(ok, ShouldBeTrue)
				So(res.RawCount, ShouldEqual, 4)
				So(res.TotalOpportunities, ShouldEqual, 10)
				So(res.Stars, ShouldEqual, 0)
				So(res.Coins, ShouldEqual, 0)
			})
		})
	})
}

func TestJumpSession(t *testing.T) {
	Convey("Given an Active jump session", t, func() {
		f := newFixture(model.ExerciseJump, 30)
		So(f.c.Start(context.Background()), ShouldBeNil)
		r := f.c.currentRun()

		var seq uint64
		sample := func(y float64, after time.Duration) {
			seq++
			f.clk.Advance(after)
			f.c.cell.Store(model.BodyPosition{BodyCenterY: &y, Seq: seq})
			f.c.renderTick(r)
		}

		// Ten jumps, 600ms apart so the landing debounce never merges them.
		sample(300, 0)
		for i := 0; i < 10; i++ {
			sample(240, 300*time.Millisecond)
			sample(300, 300*time.Millisecond)
		}

		Convey("When the session completes", func() {
			f.clk.Advance(time.Minute)
			f.c.countdownTick(r)

			Convey("Then ten jumps earn two stars", func() {
				res, ok := f.c.Result()
				So(ok, ShouldBeTrue)
				So(res.RawCount, ShouldEqual, 10)
				So(res.TotalOpportunities, ShouldEqual, 1)
				So(res.Stars, ShouldEqual, 2)
				So(res.Coins, ShouldEqual, 20)
			})
		})

		Convey("When the session is replayed", func() {
			f.clk.Advance(time.Minute)
			f.c.countdownTick(r)
			So(f.c.Start(context.Background()), ShouldBeNil)
			r2 := f.c.currentRun()

			Convey("Then every counter and the jump baseline start over", func() {
				So(f.c.State(), ShouldEqual, model.StateActive)
				So(f.c.Score().EventCount, ShouldEqual, 0)
				_, ok := f.c.Result()
				So(ok, ShouldBeFalse)
				_, published := f.c.cell.Load()
				So(published, ShouldBeFalse)
				So(f.dev.opens(), ShouldEqual, 2)

				// A new baseline at 100 means 60 is a rise and 100 a landing.
				y := []float64{100, 60, 100}
				for _, v := range y {
					seq++
					v := v
					f.clk.Advance(300 * time.Millisecond)
					f.c.cell.Store(model.BodyPosition{BodyCenterY: &v, Seq: seq})
					f.c.renderTick(r2)
				}
				So(f.c.Score().EventCount, ShouldEqual, 1)

				f.clk.Advance(time.Minute)
				f.c.countdownTick(r2)
				completed, _ := f.log.counts()
				So(completed, ShouldEqual, 2)
				So(f.dev.released(), ShouldBeTrue)
			})
		})
	})
}

func TestClose(t *testing.T) {
	Convey("Given an Active session that is unmounted", t, func() {
		f := newFixture(model.ExerciseFalling, 30)
		So(f.c.Start(context.Background()), ShouldBeNil)

		So(f.c.Close(), ShouldBeNil)
		So(f.c.Close(), ShouldBeNil)

		Convey("Then it was cancelled once and everything is released", func() {
			completed, cancelled := f.log.counts()
			So(completed, ShouldEqual, 0)
			So(cancelled, ShouldEqual, 1)
			So(f.dev.released(), ShouldBeTrue)
		})

		Convey("Then it cannot be restarted", func() {
			So(errors.Is(f.c.Start(context.Background()), ErrClosed), ShouldBeTrue)
			So(errors.Is(f.c.Initialize(context.Background()), ErrClosed), ShouldBeTrue)
		})
	})
}

func TestPolicyFor(t *testing.T) {
	Convey("Given the default policy configuration", t, func() {
		cfg := DefaultPolicyConfig()

		Convey("Then target games count opportunities", func() {
			for _, k := range []model.ExerciseKind{model.ExerciseTargets, model.ExerciseFalling, model.ExerciseBoxingTargets} {
				p, err := PolicyFor(k, cfg)
				So(err, ShouldBeNil)
				So(p.SpawnTargets, ShouldBeTrue)
				So(p.CountsOpportunities, ShouldBeTrue)
			}
		})

		Convey("Then count games do not spawn", func() {
			for _, k := range []model.ExerciseKind{model.ExerciseBoxing, model.ExerciseJump} {
				p, err := PolicyFor(k, cfg)
				So(err, ShouldBeNil)
				So(p.SpawnTargets, ShouldBeFalse)
				So(p.CountsOpportunities, ShouldBeFalse)
			}
		})

		Convey("Then each call gets its own rule state", func() {
			a, _ := PolicyFor(model.ExerciseJump, cfg)
			b, _ := PolicyFor(model.ExerciseJump, cfg)
			So(a.Rule, ShouldNotPointTo, b.Rule)
		})

		Convey("Then recorded and unknown kinds are rejected", func() {
			_, err := PolicyFor(model.ExerciseRecorded, cfg)
			So(errors.Is(err, ErrNotInteractive), ShouldBeTrue)
			_, err = PolicyFor("swim", cfg)
			So(errors.Is(err, ErrUnknownKind), ShouldBeTrue)
		})
	})
}
