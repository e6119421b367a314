// Package synthetic provides a camera that generates frames in-process, for
// headless runs and tests.
package synthetic

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/motionplay/internal/domain/model"
	"github.com/okian/motionplay/internal/engine/camera"
	"github.com/okian/motionplay/internal/engine/clock"
)

// Defaults.
const (
	DefaultWidth  = 320
	DefaultHeight = 240
	DefaultFPS    = 30
	bandWidth     = 24
)

// Option applies a configuration option to the Device.
type Option func(*Device)

// WithSize sets the frame size.
func WithSize(w, h int) Option {
	return func(d *Device) {
		if w > 0 && h > 0 {
			d.width, d.height = w, h
		}
	}
}

// WithFPS sets the frame rate.
func WithFPS(fps int) Option {
	return func(d *Device) {
		if fps > 0 {
			d.fps = fps
		}
	}
}

// WithClock sets the clock used to stamp frames.
func WithClock(c clock.Clock) Option {
	return func(d *Device) {
		if c != nil {
			d.clock = c
		}
	}
}

// WithOpenError makes every Open fail with err, the way a denied or missing
// device would.
func WithOpenError(err error) Option {
	return func(d *Device) {
		d.openErr = err
	}
}

// Device generates a dark frame with a bright vertical band sweeping across.
type Device struct {
	width, height int
	fps           int
	clock         clock.Clock
	openErr       error
}

// NewDevice creates a synthetic device.
func NewDevice(opts ...Option) *Device {
	d := &Device{
		width:  DefaultWidth,
		height: DefaultHeight,
		fps:    DefaultFPS,
		clock:  clock.System{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Open implements camera.Device. The first frame is available immediately.
func (d *Device) Open(ctx context.Context) (camera.Stream, error) {
	if d.openErr != nil {
		return nil, d.openErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := &Stream{
		device: d,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	s.produce()
	go s.run()
	return s, nil
}

// Stream is an open synthetic stream.
type Stream struct {
	device *Device
	latest atomic.Pointer[model.Frame]
	seq    uint64

	once sync.Once
	stop chan struct{}
	done chan struct{}
}

func (s *Stream) run() {
	defer close(s.done)
	ticker := time.NewTicker(time.Second / time.Duration(s.device.fps))
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.produce()
		}
	}
}

func (s *Stream) produce() {
	s.seq++
	f := Render(s.device.width, s.device.height, s.seq)
	f.At = s.device.clock.Now()
	s.latest.Store(&f)
}

// Latest implements camera.Stream.
func (s *Stream) Latest() (model.Frame, bool) {
	f := s.latest.Load()
	if f == nil {
		return model.Frame{}, false
	}
	return *f, true
}

// Close implements camera.Stream. It is safe to call more than once.
func (s *Stream) Close() error {
	s.once.Do(func() { close(s.stop) })
	<-s.done
	return nil
}

// Render draws frame seq of a w x h stream.
func Render(w, h int, seq uint64) model.Frame {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{R: 16, G: 16, B: 24, A: 255}), image.Point{}, draw.Src)

	x := int(seq*4) % (w + bandWidth)
	band := image.Rect(x-bandWidth, 0, x, h).Intersect(img.Bounds())
	draw.Draw(img, band, image.NewUniform(color.RGBA{R: 230, G: 220, B: 160, A: 255}), image.Point{}, draw.Src)

	return model.Frame{Image: img, Width: w, Height: h, Seq: seq}
}
