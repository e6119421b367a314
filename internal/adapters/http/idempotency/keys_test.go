package idempotency_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/motionplay/internal/adapters/http/idempotency"
)

func TestMemoryKeys(t *testing.T) {
	ctx := context.Background()

	Convey("Given an in-memory key set", t, func() {
		k := idempotency.NewMemory()

		Convey("Then a new key is recorded once", func() {
			So(k.SeenAndRecord(ctx, "a"), ShouldBeFalse)
			So(k.SeenAndRecord(ctx, "a"), ShouldBeTrue)
			So(k.Size(), ShouldEqual, 1)
		})

		Convey("Then an unrecorded key is new again", func() {
			k.SeenAndRecord(ctx, "a")
			k.Unrecord(ctx, "a")
			k.Unrecord(ctx, "missing")
			So(k.Size(), ShouldEqual, 0)
			So(k.SeenAndRecord(ctx, "a"), ShouldBeFalse)
		})
	})

	Convey("Given a bounded key set", t, func() {
		k := idempotency.NewMemory(idempotency.WithMaxSize(2))
		k.SeenAndRecord(ctx, "a")
		k.SeenAndRecord(ctx, "b")
		k.SeenAndRecord(ctx, "c")

		Convey("Then the oldest key is evicted first", func() {
			So(k.Size(), ShouldEqual, 2)
			So(k.SeenAndRecord(ctx, "c"), ShouldBeTrue)
			So(k.SeenAndRecord(ctx, "b"), ShouldBeTrue)
			So(k.SeenAndRecord(ctx, "a"), ShouldBeFalse)
		})
	})

	Convey("Given a key set with a ttl", t, func() {
		now := time.Unix(1000, 0)
		k := idempotency.NewMemory(
			idempotency.WithTTL(time.Minute),
			idempotency.WithClock(func() time.Time { return now }),
		)
		k.SeenAndRecord(ctx, "a")

		Convey("Then keys expire after the window", func() {
			now = now.Add(30 * time.Second)
			So(k.SeenAndRecord(ctx, "a"), ShouldBeTrue)
			now = now.Add(31 * time.Second)
			So(k.Size(), ShouldEqual, 0)
			So(k.SeenAndRecord(ctx, "a"), ShouldBeFalse)
		})
	})

	Convey("Given concurrent callers with the same key", t, func() {
		k := idempotency.NewMemory(idempotency.WithMaxSize(0))
		var wg sync.WaitGroup
		var mu sync.Mutex
		fresh := 0
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if !k.SeenAndRecord(ctx, "same") {
					mu.Lock()
					fresh++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		Convey("Then exactly one records it", func() {
			So(fresh, ShouldEqual, 1)
		})
	})
}

func TestMiddleware(t *testing.T) {
	Convey("Given a handler behind the middleware", t, func() {
		k := idempotency.NewMemory()
		calls := 0
		status := http.StatusCreated
		h := idempotency.Middleware(k, func(w http.ResponseWriter, _ *http.Request) {
			calls++
			w.WriteHeader(status)
		})
		send := func(path, key string) int {
			req := httptest.NewRequest(http.MethodPost, path, nil)
			if key != "" {
				req.Header.Set(idempotency.Header, key)
			}
			w := httptest.NewRecorder()
			h(w, req)
			return w.Code
		}

		Convey("Then requests without a key always pass", func() {
			So(send("/x", ""), ShouldEqual, http.StatusCreated)
			So(send("/x", ""), ShouldEqual, http.StatusCreated)
			So(calls, ShouldEqual, 2)
		})

		Convey("Then a repeated key is refused", func() {
			So(send("/x", "k"), ShouldEqual, http.StatusCreated)
			So(send("/x", "k"), ShouldEqual, http.StatusConflict)
			So(calls, ShouldEqual, 1)
		})

		Convey("Then keys are scoped to the path", func() {
			So(send("/x", "k"), ShouldEqual, http.StatusCreated)
			So(send("/y", "k"), ShouldEqual, http.StatusCreated)
		})

		Convey("Then a failed request releases its key", func() {
			status = http.StatusServiceUnavailable
			So(send("/x", "k"), ShouldEqual, http.StatusServiceUnavailable)
			status = http.StatusCreated
			So(send("/x", "k"), ShouldEqual, http.StatusCreated)
			So(k.Size(), ShouldEqual, 1)
			So(calls, ShouldEqual, 2)
		})
	})
}
