package pose_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/motionplay/internal/domain/model"
	"github.com/okian/motionplay/internal/engine/pose"
	"github.com/okian/motionplay/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeEstimator struct {
	ready    atomic.Bool
	pose     *model.Pose
	err      error
	delay    time.Duration
	during   func() // runs inside Estimate
	calls    atomic.Int32
	inflight atomic.Int32
	maxSeen  atomic.Int32
}

func (f *fakeEstimator) Ready() bool { return f.ready.Load() }

func (f *fakeEstimator) Estimate(ctx context.Context, _ model.Frame) (*model.Pose, error) {
	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		m := f.maxSeen.Load()
		if n <= m || f.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	f.calls.Add(1)
	if f.during != nil {
		f.during()
	}
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	return f.pose, f.err
}

type fakeSource struct {
	mu    sync.Mutex
	frame model.Frame
	ok    bool
}

func (s *fakeSource) Latest() (model.Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ok {
		s.frame.Seq++
	}
	return s.frame, s.ok
}

func samplePose() *model.Pose {
	return &model.Pose{
		Width:  100,
		Height: 100,
		Score:  0.9,
		Keypoints: []model.Keypoint{
			{Name: model.LeftWrist, X: 25, Y: 50, Score: 0.9},
			{Name: model.RightWrist, X: 75, Y: 50, Score: 0.1},
			{Name: model.LeftElbow, X: 30, Y: 60, Score: 0.8},
			{Name: model.LeftShoulder, X: 40, Y: 20, Score: 0.9},
			{Name: model.RightShoulder, X: 60, Y: 30, Score: 0.9},
		},
	}
}

func TestExtract(t *testing.T) {
	Convey("Given an estimate with mixed confidence", t, func() {
		b := pose.Extract(samplePose(), 0.3)

		Convey("Then low-confidence parts are absent", func() {
			So(b.LeftWrist, ShouldNotBeNil)
			So(b.RightWrist, ShouldBeNil)
			So(b.LeftElbow, ShouldNotBeNil)
			So(b.RightElbow, ShouldBeNil)
		})

		Convey("Then body centre falls back to the shoulders", func() {
			So(b.BodyCenterY, ShouldNotBeNil)
			So(*b.BodyCenterY, ShouldEqual, 25)
		})
	})

	Convey("Given an estimate with hips", t, func() {
		p := samplePose()
		p.Keypoints = append(p.Keypoints,
			model.Keypoint{Name: model.LeftHip, Y: 70, Score: 0.9},
			model.Keypoint{Name: model.RightHip, Y: 74, Score: 0.9},
		)
		b := pose.Extract(p, 0.3)

		So(*b.BodyCenterY, ShouldEqual, 72)
	})

	Convey("Given no estimate", t, func() {
		b := pose.Extract(nil, 0.3)
		So(b.Wrists(), ShouldBeEmpty)
		So(b.BodyCenterY, ShouldBeNil)
	})
}

func TestCell(t *testing.T) {
	Convey("Given an empty cell", t, func() {
		var c pose.Cell
		_, ok := c.Load()
		So(ok, ShouldBeFalse)

		Convey("When written twice", func() {
			c.Store(model.BodyPosition{Seq: 1})
			c.Store(model.BodyPosition{Seq: 2})

			Convey("Then the last write wins", func() {
				b, ok := c.Load()
				So(ok, ShouldBeTrue)
				So(b.Seq, ShouldEqual, 2)
			})
		})

		Convey("When reset", func() {
			c.Store(model.BodyPosition{Seq: 1})
			c.Reset()
			_, ok := c.Load()
			So(ok, ShouldBeFalse)
		})
	})
}

func TestStep(t *testing.T) {
	Convey("Given a loop over a 200x100 source", t, func() {
		est := &fakeEstimator{pose: samplePose()}
		src := &fakeSource{frame: model.Frame{Width: 200, Height: 100}, ok: true}
		cell := &pose.Cell{}
		l := pose.NewLoop(est, src, cell, pose.WithLogger(logger.Nop()))
		ctx := context.Background()

		Convey("When the estimator is not loaded", func() {
			So(l.Step(ctx), ShouldEqual, pose.OutcomeNotReady)
			So(est.calls.Load(), ShouldEqual, 0)
		})

		Convey("When the frame is not ready", func() {
			est.ready.Store(true)
			src.ok = false
			So(l.Step(ctx), ShouldEqual, pose.OutcomeStaleFrame)
		})

		Convey("When the frame is too small", func() {
			est.ready.Store(true)
			src.frame = model.Frame{Width: 4, Height: 4}
			So(l.Step(ctx), ShouldEqual, pose.OutcomeStaleFrame)
			So(est.calls.Load(), ShouldEqual, 0)
		})

		Convey("When the estimate fails", func() {
			est.ready.Store(true)
			est.err = errors.New("model crashed")
			So(l.Step(ctx), ShouldEqual, pose.OutcomeMiss)
			_, ok := cell.Load()
			So(ok, ShouldBeFalse)
		})

		Convey("When no person is found", func() {
			est.ready.Store(true)
			est.pose = nil
			So(l.Step(ctx), ShouldEqual, pose.OutcomeMiss)
		})

		Convey("When the context ends while the estimate is in flight", func() {
			est.ready.Store(true)
			cctx, cancel := context.WithCancel(ctx)
			est.during = cancel

			Convey("Then the late estimate is dropped", func() {
				So(l.Step(cctx), ShouldEqual, pose.OutcomeMiss)
				_, ok := cell.Load()
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When an estimate succeeds", func() {
			est.ready.Store(true)
			So(l.Step(ctx), ShouldEqual, pose.OutcomePublished)

			Convey("Then the body is published in mirrored render space", func() {
				b, ok := cell.Load()
				So(ok, ShouldBeTrue)
				So(b.Seq, ShouldEqual, 1)
				So(b.LeftWrist.X, ShouldEqual, 150)
				So(b.LeftWrist.Y, ShouldEqual, 50)
				So(b.RightWrist, ShouldBeNil)
				So(*b.BodyCenterY, ShouldEqual, 25)
			})
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a running loop with a slow estimator", t, func() {
		est := &fakeEstimator{pose: samplePose(), delay: 3 * time.Millisecond}
		est.ready.Store(true)
		src := &fakeSource{frame: model.Frame{Width: 200, Height: 100}, ok: true}
		cell := &pose.Cell{}
		l := pose.NewLoop(est, src, cell,
			pose.WithLogger(logger.Nop()),
			pose.WithInterval(time.Millisecond),
			pose.WithRetryDelay(time.Millisecond),
		)

		var active atomic.Bool
		active.Store(true)
		done := make(chan struct{})
		go func() {
			l.Run(context.Background(), active.Load)
			close(done)
		}()

		deadline := time.Now().Add(2 * time.Second)
		for est.calls.Load() < 5 && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}
		active.Store(false)

		Convey("Then it stops once inactive", func() {
			select {
			case <-done:
			case <-time.After(2 * time.Second):
				So("loop did not stop", ShouldBeEmpty)
			}
			So(est.calls.Load(), ShouldBeGreaterThanOrEqualTo, 5)
		})

		Convey("Then estimates never overlap", func() {
			<-done
			So(est.maxSeen.Load(), ShouldEqual, 1)
		})
	})

	Convey("Given a running loop whose session ends during an estimate", t, func() {
		var active atomic.Bool
		active.Store(true)
		est := &fakeEstimator{pose: samplePose(), during: func() { active.Store(false) }}
		est.ready.Store(true)
		cell := &pose.Cell{}
		l := pose.NewLoop(est, &fakeSource{frame: model.Frame{Width: 200, Height: 100}, ok: true}, cell,
			pose.WithLogger(logger.Nop()),
			pose.WithInterval(time.Millisecond),
		)

		done := make(chan struct{})
		go func() {
			l.Run(context.Background(), active.Load)
			close(done)
		}()

		Convey("Then nothing is published after it ends", func() {
			select {
			case <-done:
			case <-time.After(2 * time.Second):
				So("loop did not stop", ShouldBeEmpty)
			}
			So(est.calls.Load(), ShouldEqual, 1)
			_, ok := cell.Load()
			So(ok, ShouldBeFalse)
		})
	})

	Convey("Given a loop whose context is cancelled", t, func() {
		est := &fakeEstimator{}
		l := pose.NewLoop(est, &fakeSource{}, &pose.Cell{}, pose.WithLogger(logger.Nop()))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		done := make(chan struct{})
		go func() {
			l.Run(ctx, func() bool { return true })
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			So("loop did not stop", ShouldBeEmpty)
		}
	})
}
