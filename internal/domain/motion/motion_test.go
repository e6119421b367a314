package motion_test

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/okian/motionplay/internal/domain/motion"
	. "github.com/smartystreets/goconvey/convey"
)

type sliceClip []image.Image

func (c sliceClip) FrameCount() int { return len(c) }

func (c sliceClip) FrameAt(i int) (image.Image, error) { return c[i], nil }

type brokenClip struct{ n int }

func (c brokenClip) FrameCount() int { return c.n }

func (c brokenClip) FrameAt(int) (image.Image, error) { return nil, errBroken }

var errBroken = errors.New("decode failed")

func solid(c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 320, 240))
	for y := 0; y < 240; y++ {
		for x := 0; x < 320; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestLevel(t *testing.T) {
	black := solid(color.Black)
	white := solid(color.White)

	Convey("Given a motion estimator", t, func() {
		e := motion.NewEstimator(motion.WithSeed(1))

		Convey("When the clip is static", func() {
			clip := sliceClip{black, black, black, black, black, black, black, black, black, black}
			level, err := e.Level(clip)

			Convey("Then the level is zero", func() {
				So(err, ShouldBeNil)
				So(level, ShouldEqual, 0)
			})
		})

		Convey("When every sample alternates between black and white", func() {
			clip := sliceClip{black, white}
			level, err := e.Level(clip)

			Convey("Then the level is the full channel range", func() {
				So(err, ShouldBeNil)
				So(level, ShouldEqual, 255)
			})
		})

		Convey("When the clip has a single frame", func() {
			_, err := e.Level(sliceClip{black})
			So(err, ShouldEqual, motion.ErrClipTooShort)
		})

		Convey("When frames cannot be read", func() {
			_, err := e.Level(brokenClip{n: 4})
			So(errors.Is(err, errBroken), ShouldBeTrue)
		})
	})
}

func TestGrade(t *testing.T) {
	Convey("Given a seeded estimator", t, func() {
		e := motion.NewEstimator(motion.WithSeed(9))

		Convey("When the level is below the low threshold", func() {
			for i := 0; i < 50; i++ {
				g := e.Grade(2, 3)
				So(g.LowEngagement, ShouldBeTrue)
				So(g.Score, ShouldBeBetweenOrEqual, 40, 60)
				So(g.Stars, ShouldBeLessThanOrEqualTo, 1)
			}
		})

		Convey("When the level is engaged", func() {
			for i := 0; i < 50; i++ {
				g := e.Grade(30, 1)
				So(g.LowEngagement, ShouldBeFalse)
				So(g.Score, ShouldBeBetweenOrEqual, 70, 100)
				So(g.Stars, ShouldBeGreaterThanOrEqualTo, 1)
			}
		})

		Convey("When a high difficulty pushes past the cap", func() {
			g := e.Grade(30, 2)
			So(g.Score, ShouldEqual, 100)
			So(g.Stars, ShouldEqual, 3)
		})
	})

	Convey("Given two samples of a clip that returns to its start", t, func() {
		e := motion.NewEstimator(motion.WithSeed(2), motion.WithSamples(2))
		g, err := e.Evaluate(sliceClip{solid(color.Black), solid(color.White), solid(color.Black)}, 1)

		So(err, ShouldBeNil)
		So(g.Level, ShouldEqual, 0)
		So(g.LowEngagement, ShouldBeTrue)
	})
}
