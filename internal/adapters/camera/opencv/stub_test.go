//go:build !opencv

package opencv_test

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/motionplay/internal/adapters/camera/opencv"
	"github.com/okian/motionplay/internal/engine/camera"
)

func TestUnavailable(t *testing.T) {
	Convey("Given a build without OpenCV", t, func() {
		So(opencv.Available(), ShouldBeFalse)

		Convey("Then opening a device reports a missing device", func() {
			_, err := opencv.Device{ID: 0}.Open(context.Background())
			So(errors.Is(err, camera.ErrNoDevice), ShouldBeTrue)
			So(errors.Is(err, opencv.ErrUnavailable), ShouldBeTrue)
		})

		Convey("Then clips cannot be opened", func() {
			_, err := opencv.OpenClip("clip.mp4")
			So(err, ShouldEqual, opencv.ErrUnavailable)
		})
	})
}
