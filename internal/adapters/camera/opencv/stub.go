//go:build !opencv

package opencv

import (
	"context"
	"fmt"
	"image"

	"github.com/okian/motionplay/internal/engine/camera"
)

// Open implements camera.Device.
func (d Device) Open(context.Context) (camera.Stream, error) {
	return nil, fmt.Errorf("%w: %w", camera.ErrNoDevice, ErrUnavailable)
}

// Clip is a recorded video file.
type Clip struct{}

// Available reports whether OpenCV support is compiled in.
func Available() bool { return false }

// OpenClip always fails without OpenCV.
func OpenClip(string) (*Clip, error) { return nil, ErrUnavailable }

// FrameCount implements motion.Clip.
func (*Clip) FrameCount() int { return 0 }

// FrameAt implements motion.Clip.
func (*Clip) FrameAt(int) (image.Image, error) { return nil, ErrUnavailable }

// Close releases the file.
func (*Clip) Close() error { return nil }
