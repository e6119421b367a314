package render_test

import (
	"sync"
	"testing"
	"time"

	"github.com/okian/motionplay/internal/domain/hit"
	"github.com/okian/motionplay/internal/domain/model"
	"github.com/okian/motionplay/internal/domain/targets"
	"github.com/okian/motionplay/internal/engine/pose"
	"github.com/okian/motionplay/internal/engine/render"
	"github.com/okian/motionplay/pkg/metrics"
	. "github.com/smartystreets/goconvey/convey"
)

type recorder struct {
	mu      sync.Mutex
	sources []string
	hits    []render.Hit
	engaged int
}

func (r *recorder) CreditHit(source string, h render.Hit) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources = append(r.sources, source)
	r.hits = append(r.hits, h)
}

func (r *recorder) CreditEngagement() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.engaged++
}

var (
	t0    = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	frame = model.Frame{Width: 640, Height: 480}
)

type harness struct {
	surface *render.RecordingSurface
	pool    *targets.Pool
	cell    *pose.Cell
	credit  *recorder
	loop    *render.Loop
	seq     uint64
}

func newHarness(rule render.HitRule, poolOpts ...targets.Option) *harness {
	h := &harness{
		surface: &render.RecordingSurface{},
		pool:    targets.NewPool(append([]targets.Option{targets.WithSeed(11)}, poolOpts...)...),
		cell:    &pose.Cell{},
		credit:  &recorder{},
	}
	h.loop = render.NewLoop(h.surface, h.pool, hit.NewDetector(), h.cell, rule, h.credit)
	return h
}

func (h *harness) publish(b model.BodyPosition) {
	h.seq++
	b.Seq = h.seq
	h.cell.Store(b)
}

func pt(x, y float64) *model.Point { return &model.Point{X: x, Y: y} }

func fp(v float64) *float64 { return &v }

func TestTouchRule(t *testing.T) {
	Convey("Given a touch session with one target", t, func() {
		h := newHarness(render.TouchRule{})
		target, err := h.pool.Spawn(640, 480)
		So(err, ShouldBeNil)
		c := target.Center()

		Convey("When both wrists are inside the same target in one snapshot", func() {
			h.publish(model.BodyPosition{LeftWrist: pt(c.X, c.Y), RightWrist: pt(c.X+1, c.Y)})
			So(h.loop.Tick(t0, frame), ShouldBeNil)

			Convey("Then it is credited exactly once and removed", func() {
				So(h.credit.hits, ShouldHaveLength, 1)
				So(h.credit.sources[0], ShouldEqual, metrics.SourcePose)
				So(h.credit.hits[0].Target.ID, ShouldEqual, target.ID)
				So(h.pool.Len(), ShouldEqual, 0)
			})

			Convey("Then the scene has a marker, both hands and no targets", func() {
				scene, ok := h.surface.Last()
				So(ok, ShouldBeTrue)
				So(scene.Frames, ShouldEqual, 1)
				So(scene.Targets, ShouldBeEmpty)
				So(scene.Markers, ShouldHaveLength, 1)
				So(scene.Hands, ShouldHaveLength, 2)
			})
		})

		Convey("When the wrist is far away", func() {
			h.publish(model.BodyPosition{LeftWrist: pt(c.X+500, c.Y+500)})
			So(h.loop.Tick(t0, frame), ShouldBeNil)

			Convey("Then the target stays and is drawn", func() {
				So(h.credit.hits, ShouldBeEmpty)
				scene, _ := h.surface.Last()
				So(scene.Targets, ShouldHaveLength, 1)
				So(scene.Targets[0].Hit, ShouldBeFalse)
			})
		})

		Convey("When the same snapshot is seen on later frames", func() {
			h.publish(model.BodyPosition{LeftWrist: pt(c.X+500, c.Y+500)})
			So(h.loop.Tick(t0, frame), ShouldBeNil)
			_, _ = h.pool.Spawn(640, 480)
			So(h.loop.Tick(t0.Add(16*time.Millisecond), frame), ShouldBeNil)

			Convey("Then no engagement is counted without a new snapshot", func() {
				So(h.credit.engaged, ShouldEqual, 0)
			})
		})
	})
}

func TestFallingTargetMeetsStillHand(t *testing.T) {
	Convey("Given a falling target and a hand seen only once below it", t, func() {
		h := newHarness(render.TouchRule{}, targets.WithFalling(200))
		target, err := h.pool.Spawn(640, 480)
		So(err, ShouldBeNil)
		h.publish(model.BodyPosition{RightWrist: pt(target.Center().X, 400)})

		Convey("When the target falls onto the hand over later frames", func() {
			now := t0
			for i := 0; i < 60; i++ {
				So(h.loop.Tick(now, frame), ShouldBeNil)
				now = now.Add(33 * time.Millisecond)
			}

			Convey("Then it scores once from the stale snapshot", func() {
				So(h.credit.hits, ShouldHaveLength, 1)
				So(h.credit.sources, ShouldResemble, []string{metrics.SourcePose})
				So(h.pool.Len(), ShouldEqual, 0)
			})

			Convey("Then no engagement is counted", func() {
				So(h.credit.engaged, ShouldEqual, 0)
			})
		})
	})
}

func TestTap(t *testing.T) {
	Convey("Given a target and a tap on it", t, func() {
		h := newHarness(render.TouchRule{})
		target, _ := h.pool.Spawn(640, 480)

		first := h.loop.Tap(target.Center())
		second := h.loop.Tap(target.Center())

		Convey("Then only the first tap scores, through the same credit sink", func() {
			So(first, ShouldBeTrue)
			So(second, ShouldBeFalse)
			So(h.credit.sources, ShouldResemble, []string{metrics.SourceTap})
			So(h.pool.Len(), ShouldEqual, 0)
		})

		Convey("Then pose hits can no longer claim it", func() {
			c := target.Center()
			h.publish(model.BodyPosition{LeftWrist: pt(c.X, c.Y)})
			So(h.loop.Tick(t0, frame), ShouldBeNil)
			So(h.credit.hits, ShouldHaveLength, 1)
		})
	})

	Convey("Given a tap on empty space", t, func() {
		h := newHarness(render.TouchRule{})
		So(h.loop.Tap(model.Point{X: 1, Y: 1}), ShouldBeFalse)
		So(h.credit.hits, ShouldBeEmpty)
	})
}

func TestMarkers(t *testing.T) {
	Convey("Given a hit marker", t, func() {
		h := newHarness(render.TouchRule{})
		target, _ := h.pool.Spawn(640, 480)
		So(h.loop.Tap(target.Center()), ShouldBeTrue)

		Convey("Then it is drawn for the default number of frames", func() {
			for i := 0; i < render.DefaultMarkerFrames; i++ {
				So(h.loop.Tick(t0.Add(time.Duration(i)*16*time.Millisecond), frame), ShouldBeNil)
				scene, _ := h.surface.Last()
				So(scene.Markers, ShouldHaveLength, 1)
			}
			So(h.loop.Tick(t0.Add(time.Second), frame), ShouldBeNil)
			scene, _ := h.surface.Last()
			So(scene.Markers, ShouldBeEmpty)
		})
	})
}

func TestResizeAndExpiry(t *testing.T) {
	Convey("Given a loop with short-lived targets", t, func() {
		h := newHarness(render.TouchRule{}, targets.WithMaxAge(time.Second))
		_, _ = h.pool.Spawn(640, 480)

		So(h.loop.Tick(t0, frame), ShouldBeNil)
		So(h.loop.Tick(t0.Add(500*time.Millisecond), frame), ShouldBeNil)

		Convey("Then the surface is sized once to the frame", func() {
			So(h.surface.Resizes(), ShouldEqual, 1)
			w, hh := h.surface.Size()
			So(w, ShouldEqual, 640)
			So(hh, ShouldEqual, 480)
		})

		Convey("Then the target expires without credit", func() {
			So(h.pool.Len(), ShouldEqual, 1)
			So(h.loop.Tick(t0.Add(1500*time.Millisecond), frame), ShouldBeNil)
			So(h.pool.Len(), ShouldEqual, 0)
			So(h.credit.hits, ShouldBeEmpty)
		})

		Convey("Then an empty frame is not drawn", func() {
			So(h.loop.Tick(t0.Add(600*time.Millisecond), model.Frame{}), ShouldBeNil)
			scene, _ := h.surface.Last()
			So(scene.Frames, ShouldEqual, 0)
		})
	})
}

func TestPunchTargetRule(t *testing.T) {
	Convey("Given a boxing-targets session", t, func() {
		h := newHarness(&render.PunchTargetRule{})
		target, _ := h.pool.Spawn(640, 480)
		c := target.Center()

		Convey("When a resting wrist sits inside the target", func() {
			h.publish(model.BodyPosition{LeftWrist: pt(c.X, c.Y), LeftElbow: pt(c.X, c.Y+30)})
			So(h.loop.Tick(t0, frame), ShouldBeNil)
			h.publish(model.BodyPosition{LeftWrist: pt(c.X+1, c.Y), LeftElbow: pt(c.X, c.Y+30)})
			So(h.loop.Tick(t0.Add(50*time.Millisecond), frame), ShouldBeNil)

			Convey("Then it does not score", func() {
				So(h.credit.hits, ShouldBeEmpty)
			})
		})

		Convey("When a fist punches into the target", func() {
			h.publish(model.BodyPosition{RightWrist: pt(c.X-200, c.Y)})
			So(h.loop.Tick(t0, frame), ShouldBeNil)
			h.publish(model.BodyPosition{RightWrist: pt(c.X, c.Y)})
			So(h.loop.Tick(t0.Add(50*time.Millisecond), frame), ShouldBeNil)

			Convey("Then it scores once", func() {
				So(h.credit.hits, ShouldHaveLength, 1)
				So(h.pool.Len(), ShouldEqual, 0)
			})
		})
	})
}

func TestFreePunchRule(t *testing.T) {
	Convey("Given a free boxing session", t, func() {
		h := newHarness(render.NewFreePunchRule(300 * time.Millisecond))

		h.publish(model.BodyPosition{LeftWrist: pt(100, 100)})
		So(h.loop.Tick(t0, frame), ShouldBeNil)
		h.publish(model.BodyPosition{LeftWrist: pt(200, 100)})
		So(h.loop.Tick(t0.Add(50*time.Millisecond), frame), ShouldBeNil)

		Convey("Then the punch scores once", func() {
			So(h.credit.hits, ShouldHaveLength, 1)
			So(h.credit.hits[0].Target, ShouldBeNil)
		})

		Convey("When the hand keeps swinging inside the debounce", func() {
			h.publish(model.BodyPosition{LeftWrist: pt(100, 100)})
			So(h.loop.Tick(t0.Add(100*time.Millisecond), frame), ShouldBeNil)

			Convey("Then it is the same punch", func() {
				So(h.credit.hits, ShouldHaveLength, 1)
			})
		})

		Convey("When the hand swings again after the debounce", func() {
			h.publish(model.BodyPosition{LeftWrist: pt(100, 100)})
			So(h.loop.Tick(t0.Add(400*time.Millisecond), frame), ShouldBeNil)

			Convey("Then it is a second punch", func() {
				So(h.credit.hits, ShouldHaveLength, 2)
			})
		})
	})
}

func TestJumpRule(t *testing.T) {
	Convey("Given a jump session", t, func() {
		h := newHarness(render.NewJumpRule(hit.WithJumpThreshold(40)))

		for i, y := range []float64{300, 250, 300} {
			h.publish(model.BodyPosition{BodyCenterY: fp(y)})
			So(h.loop.Tick(t0.Add(time.Duration(i)*100*time.Millisecond), frame), ShouldBeNil)
		}

		Convey("Then one landing is credited", func() {
			So(h.credit.hits, ShouldHaveLength, 1)
			So(h.credit.hits[0].At.X, ShouldEqual, 320)
		})

		Convey("When the loop is reset", func() {
			h.loop.Reset()
			for i, y := range []float64{100, 50, 100} {
				h.publish(model.BodyPosition{BodyCenterY: fp(y)})
				So(h.loop.Tick(t0.Add(time.Duration(i+3)*100*time.Millisecond), frame), ShouldBeNil)
			}

			Convey("Then a fresh baseline is taken and the debounce is cleared", func() {
				So(h.credit.hits, ShouldHaveLength, 2)
			})
		})
	})
}

func TestEngagement(t *testing.T) {
	Convey("Given a touch session with no targets", t, func() {
		h := newHarness(render.TouchRule{})

		h.publish(model.BodyPosition{RightWrist: pt(100, 100)})
		So(h.loop.Tick(t0, frame), ShouldBeNil)
		h.publish(model.BodyPosition{RightWrist: pt(130, 100)})
		So(h.loop.Tick(t0.Add(50*time.Millisecond), frame), ShouldBeNil)
		h.publish(model.BodyPosition{RightWrist: pt(132, 100)})
		So(h.loop.Tick(t0.Add(100*time.Millisecond), frame), ShouldBeNil)

		Convey("Then only the large move counts as engagement", func() {
			So(h.credit.engaged, ShouldEqual, 1)
			So(h.credit.hits, ShouldBeEmpty)
		})
	})
}
