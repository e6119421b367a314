package targets_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/motionplay/internal/domain/model"
	"github.com/okian/motionplay/internal/domain/targets"
	. "github.com/smartystreets/goconvey/convey"
)

func TestPoolSpawn(t *testing.T) {
	Convey("Given a seeded pool", t, func() {
		p := targets.NewPool(targets.WithSeed(7))

		Convey("When spawning many targets into a 640x480 area", func() {
			for i := 0; i < 200; i++ {
				tg, err := p.Spawn(640, 480)
				So(err, ShouldBeNil)
				So(tg.ID, ShouldNotBeEmpty)
				So(tg.Position.X, ShouldBeGreaterThanOrEqualTo, 0)
				So(tg.Position.Y, ShouldBeGreaterThanOrEqualTo, 0)
				So(tg.Position.X+tg.Size, ShouldBeLessThanOrEqualTo, 640)
				So(tg.Position.Y+tg.Size, ShouldBeLessThanOrEqualTo, 480)
				So(tg.MaxAge, ShouldEqual, targets.DefaultMaxAge)
			}

			Convey("Then every target is live and counted", func() {
				So(p.Len(), ShouldEqual, 200)
				So(p.Spawned(), ShouldEqual, 200)
			})
		})

		Convey("When the area is smaller than the catalog sizes", func() {
			tg, err := p.Spawn(30, 50)

			Convey("Then the target is shrunk to fit", func() {
				So(err, ShouldBeNil)
				So(tg.Size, ShouldEqual, 30)
				So(tg.Position.X, ShouldEqual, 0)
				So(tg.Position.Y+tg.Size, ShouldBeLessThanOrEqualTo, 50)
			})
		})

		Convey("When the area is empty", func() {
			_, err := p.Spawn(0, 480)

			Convey("Then spawning fails", func() {
				So(err, ShouldEqual, targets.ErrBoundsTooSmall)
				So(p.Len(), ShouldEqual, 0)
			})
		})

		Convey("When a custom catalog is used", func() {
			p := targets.NewPool(targets.WithCatalog(
				targets.Entry{Kind: model.TargetBubble, Size: 20},
				targets.Entry{Kind: model.TargetStar, Size: 0},
			))
			tg, err := p.Spawn(640, 480)

			Convey("Then only valid entries are drawn", func() {
				So(err, ShouldBeNil)
				So(tg.Kind, ShouldEqual, model.TargetBubble)
				So(tg.Size, ShouldEqual, 20)
			})
		})
	})
}

func TestPoolTick(t *testing.T) {
	Convey("Given a pool with a one second max age", t, func() {
		p := targets.NewPool(targets.WithSeed(1), targets.WithMaxAge(time.Second))
		_, _ = p.Spawn(640, 480)
		_, _ = p.Spawn(640, 480)

		Convey("When less than the max age passes", func() {
			gone := p.Tick(600 * time.Millisecond)

			Convey("Then nothing expires and age accumulates", func() {
				So(gone, ShouldEqual, 0)
				for _, tg := range p.Live() {
					So(tg.Age, ShouldEqual, 600*time.Millisecond)
				}
			})
		})

		Convey("When the max age is reached", func() {
			p.Tick(600 * time.Millisecond)
			gone := p.Tick(400 * time.Millisecond)

			Convey("Then every target expires without being hit", func() {
				So(gone, ShouldEqual, 2)
				So(p.Len(), ShouldEqual, 0)
				So(p.Spawned(), ShouldEqual, 2)
			})
		})
	})

	Convey("Given a falling pool", t, func() {
		p := targets.NewPool(targets.WithSeed(1), targets.WithFalling(100))
		tg, err := p.Spawn(640, 480)
		So(err, ShouldBeNil)
		So(tg.Position.Y, ShouldEqual, 0)
		So(tg.FallSpeed, ShouldEqual, 100)

		Convey("When half a second passes", func() {
			p.Tick(500 * time.Millisecond)

			Convey("Then the target moved down", func() {
				live := p.Live()
				So(live, ShouldHaveLength, 1)
				So(live[0].Position.Y, ShouldAlmostEqual, 50, 0.001)
			})
		})

		Convey("When it falls out of the area", func() {
			gone := p.Tick(5 * time.Second)

			Convey("Then it is dropped", func() {
				So(gone, ShouldEqual, 1)
				So(p.Len(), ShouldEqual, 0)
			})
		})
	})
}

func TestPoolRemoveAndClaim(t *testing.T) {
	Convey("Given a pool with three targets", t, func() {
		p := targets.NewPool(targets.WithSeed(3))
		a, _ := p.Spawn(640, 480)
		b, _ := p.Spawn(640, 480)
		_, _ = p.Spawn(640, 480)

		Convey("When removing a target twice", func() {
			first := p.Remove(a.ID)
			second := p.Remove(a.ID)

			Convey("Then only the first removal succeeds", func() {
				So(first, ShouldBeTrue)
				So(second, ShouldBeFalse)
				So(p.Len(), ShouldEqual, 2)
			})
		})

		Convey("When claiming a single target", func() {
			claimed := p.Claim(func(t model.Target) bool { return t.ID == b.ID })

			Convey("Then it is returned marked hit and is gone", func() {
				So(claimed, ShouldHaveLength, 1)
				So(claimed[0].ID, ShouldEqual, b.ID)
				So(claimed[0].Hit, ShouldBeTrue)
				So(p.Claim(func(t model.Target) bool { return t.ID == b.ID }), ShouldBeEmpty)
				for _, tg := range p.Live() {
					So(tg.ID, ShouldNotEqual, b.ID)
				}
			})
		})

		Convey("When many goroutines race to claim everything", func() {
			var total atomic.Int64
			var wg sync.WaitGroup
			for i := 0; i < 32; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					total.Add(int64(len(p.Claim(func(model.Target) bool { return true }))))
				}()
			}
			wg.Wait()

			Convey("Then each target is claimed exactly once", func() {
				So(total.Load(), ShouldEqual, 3)
				So(p.Len(), ShouldEqual, 0)
			})
		})

		Convey("When the pool is reset", func() {
			p.Reset()

			Convey("Then it is empty", func() {
				So(p.Len(), ShouldEqual, 0)
				So(p.Spawned(), ShouldEqual, 0)
				So(p.Live(), ShouldBeEmpty)
			})
		})
	})
}
