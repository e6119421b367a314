//go:build opencv

package opencv

import (
	"context"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"gocv.io/x/gocv"

	"github.com/okian/motionplay/internal/domain/model"
	"github.com/okian/motionplay/internal/engine/camera"
)

// Open implements camera.Device. It returns once the first frame is read.
func (d Device) Open(ctx context.Context) (camera.Stream, error) {
	vc, err := gocv.OpenVideoCapture(d.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", camera.ErrNoDevice, err)
	}
	if !vc.IsOpened() {
		_ = vc.Close()
		return nil, fmt.Errorf("%w: device %d", camera.ErrNoDevice, d.ID)
	}
	if d.Width > 0 && d.Height > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(d.Width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(d.Height))
	}
	if d.FPS > 0 {
		vc.Set(gocv.VideoCaptureFPS, float64(d.FPS))
	}

	s := &Stream{vc: vc, stop: make(chan struct{}), done: make(chan struct{}), first: make(chan struct{})}
	go s.run()

	select {
	case <-s.first:
		return s, nil
	case <-s.done:
		_ = vc.Close()
		return nil, fmt.Errorf("%w: device %d produced no frames", camera.ErrPermissionDenied, d.ID)
	case <-ctx.Done():
		_ = s.Close()
		return nil, ctx.Err()
	}
}

// Stream is an open capture device.
type Stream struct {
	vc     *gocv.VideoCapture
	latest atomic.Pointer[model.Frame]

	firstOnce sync.Once
	first     chan struct{}
	closeOnce sync.Once
	stop      chan struct{}
	done      chan struct{}
}

func (s *Stream) run() {
	defer close(s.done)
	mat := gocv.NewMat()
	defer mat.Close()

	var seq uint64
	for {
		select {
		case <-s.stop:
			return
		default:
		}
		if ok := s.vc.Read(&mat); !ok {
			return
		}
		if mat.Empty() {
			continue
		}
		img, err := mat.ToImage()
		if err != nil {
			continue
		}
		seq++
		b := img.Bounds()
		s.latest.Store(&model.Frame{Image: img, Width: b.Dx(), Height: b.Dy(), Seq: seq, At: time.Now()})
		s.firstOnce.Do(func() { close(s.first) })
	}
}

// Latest implements camera.Stream.
func (s *Stream) Latest() (model.Frame, bool) {
	f := s.latest.Load()
	if f == nil {
		return model.Frame{}, false
	}
	return *f, true
}

// Close implements camera.Stream.
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stop)
		<-s.done
		err = s.vc.Close()
	})
	return err
}

// Clip is a recorded video file. It implements motion.Clip.
type Clip struct {
	mu    sync.Mutex
	vc    *gocv.VideoCapture
	count int
}

// Available reports whether OpenCV support is compiled in.
func Available() bool { return true }

// OpenClip opens the video file at path.
func OpenClip(path string) (*Clip, error) {
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("open clip %s: %w", path, err)
	}
	if !vc.IsOpened() {
		_ = vc.Close()
		return nil, fmt.Errorf("open clip %s: not readable", path)
	}
	return &Clip{vc: vc, count: int(vc.Get(gocv.VideoCaptureFrameCount))}, nil
}

// FrameCount returns the number of frames the container reports.
func (c *Clip) FrameCount() int { return c.count }

// FrameAt seeks to frame i and decodes it.
func (c *Clip) FrameAt(i int) (img image.Image, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.vc.Set(gocv.VideoCapturePosFrames, float64(i))
	mat := gocv.NewMat()
	defer mat.Close()
	if ok := c.vc.Read(&mat); !ok || mat.Empty() {
		return nil, fmt.Errorf("read clip frame %d", i)
	}
	return mat.ToImage()
}

// Close releases the file.
func (c *Clip) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.vc.Close()
}
