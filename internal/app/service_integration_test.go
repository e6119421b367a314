package service_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	camsynth "github.com/okian/motionplay/internal/adapters/camera/synthetic"
	"github.com/okian/motionplay/internal/adapters/publisher"
	service "github.com/okian/motionplay/internal/app"
	"github.com/okian/motionplay/internal/domain/model"
	"github.com/okian/motionplay/internal/engine/camera"
	"github.com/okian/motionplay/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type memWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	closed bool
}

func (w *memWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *memWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *memWriter) records() []model.SessionRecord {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]model.SessionRecord, 0, len(w.msgs))
	for _, m := range w.msgs {
		var r model.SessionRecord
		if err := json.Unmarshal(m.Value, &r); err == nil {
			out = append(out, r)
		}
	}
	return out
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a service with the synthetic camera, the synthetic estimator and a kafka publisher", t, func() {
		w := &memWriter{}
		svc := service.New(
			service.WithWorkerCount(2),
			service.WithQueueSize(64),
			service.WithLogger(logger.Nop()),
			service.WithPublisher(publisher.NewKafkaWithWriter(w)),
			service.WithDevices(func() camera.Device { return camsynth.NewDevice(camsynth.WithFPS(60)) }),
			fastSessions(),
		)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)
		Reset(svc.Stop)

		Convey("When a jump session and a boxing session run to completion", func() {
			jump, err := svc.CreateSession(ctx, model.Challenge{DurationSeconds: 2, Kind: model.ExerciseJump})
			So(err, ShouldBeNil)
			box, err := svc.CreateSession(ctx, model.Challenge{DurationSeconds: 1, Kind: model.ExerciseBoxing})
			So(err, ShouldBeNil)

			for _, id := range []string{jump.ID, box.ID} {
				_, err := svc.InitializeSession(ctx, id)
				So(err, ShouldBeNil)
				_, err = svc.StartSession(ctx, id)
				So(err, ShouldBeNil)
			}

			So(eventually(func() bool {
				j, _ := svc.Session(ctx, jump.ID)
				b, _ := svc.Session(ctx, box.ID)
				return j.State == "complete" && b.State == "complete"
			}), ShouldBeTrue)

			Convey("Then both results are built without opportunities", func() {
				for _, id := range []string{jump.ID, box.ID} {
					v, err := svc.Session(ctx, id)
					So(err, ShouldBeNil)
					So(v.Result, ShouldNotBeNil)
					So(v.Result.TotalOpportunities, ShouldEqual, 1)
					So(v.Result.Stars, ShouldBeBetweenOrEqual, 0, 3)
				}
			})

			Convey("And a replay starts from zero", func() {
				v, err := svc.StartSession(ctx, jump.ID)
				So(err, ShouldBeNil)
				So(v.State, ShouldEqual, "active")
				So(v.Result, ShouldBeNil)
				So(v.Score.EventCount, ShouldEqual, 0)
			})

			Convey("And stopping the service drains every record to kafka", func() {
				svc.Stop()

				byID := map[string]model.SessionRecord{}
				for _, r := range w.records() {
					byID[r.ID] = r
				}
				So(byID[jump.ID].StateName, ShouldEqual, "complete")
				So(byID[box.ID].StateName, ShouldEqual, "complete")
				So(byID[jump.ID].Challenge.Kind, ShouldEqual, model.ExerciseJump)

				w.mu.Lock()
				So(w.closed, ShouldBeTrue)
				w.mu.Unlock()

				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, false)
				So(stats["liveSessions"], ShouldEqual, 0)
			})
		})
	})
}
