package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given a logger writing JSON to a buffer", t, func() {
		var buf bytes.Buffer
		So(Init(WithWriter(&buf), WithFormat("json"), WithSource(false)), ShouldBeNil)
		defer func() { So(Sync(), ShouldBeNil) }()

		Convey("When logging with fields", func() {
			Get().Info(context.Background(), "session started",
				String("session_id", "abc"),
				Int("duration_seconds", 60),
				Bool("replay", true),
				Duration("interval", 50*time.Millisecond),
				Error(errors.New("boom")),
			)

			Convey("Then the record carries every field", func() {
				var rec map[string]any
				So(json.Unmarshal(buf.Bytes(), &rec), ShouldBeNil)
				So(rec["msg"], ShouldEqual, "session started")
				So(rec["session_id"], ShouldEqual, "abc")
				So(rec["duration_seconds"], ShouldEqual, float64(60))
				So(rec["replay"], ShouldEqual, true)
				So(rec["error"], ShouldEqual, "boom")
				So(rec, ShouldNotContainKey, "source")
			})
		})

		Convey("When logging through a named child with bound fields", func() {
			Named("pose").With(String("session_id", "xyz")).Info(context.Background(), "published")

			Convey("Then fields are grouped under the name", func() {
				var rec map[string]any
				So(json.Unmarshal(buf.Bytes(), &rec), ShouldBeNil)
				group, ok := rec["pose"].(map[string]any)
				So(ok, ShouldBeTrue)
				So(group["session_id"], ShouldEqual, "xyz")
			})
		})

		Convey("When the level is raised to warn", func() {
			So(SetLevelString("warn"), ShouldBeNil)
			Get().Info(context.Background(), "hidden")
			Get().Debug(context.Background(), "hidden")

			Convey("Then lower levels are dropped", func() {
				So(buf.Len(), ShouldEqual, 0)
			})
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given level names", t, func() {
		for _, lvl := range []string{"debug", "info", "", "WARN", "warning", " error "} {
			So(SetLevelString(lvl), ShouldBeNil)
		}
		So(SetLevelString("verbose"), ShouldNotBeNil)
	})
}

func TestSource(t *testing.T) {
	Convey("Given a text logger with source enabled", t, func() {
		var buf bytes.Buffer
		So(Init(WithWriter(&buf)), ShouldBeNil)

		Get().Warn(context.Background(), "with source")

		Convey("Then the call site is this test file", func() {
			So(buf.String(), ShouldContainSubstring, "logger_test.go")
		})
	})
}

func TestNop(t *testing.T) {
	Convey("Given a nop logger", t, func() {
		So(func() {
			Nop().Named("x").With(Int("n", 1)).Error(context.Background(), "dropped")
		}, ShouldNotPanic)
	})
}
