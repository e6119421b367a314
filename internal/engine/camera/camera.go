// Package camera owns the video stream of a session and guarantees it is
// released exactly once per acquisition.
package camera

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/okian/motionplay/internal/domain/model"
	"github.com/okian/motionplay/pkg/logger"
	"github.com/okian/motionplay/pkg/metrics"
)

// Device opens a video stream.
type Device interface {
	Open(ctx context.Context) (Stream, error)
}

// Stream is an open video stream. Latest never blocks; it returns false until
// the first frame arrives.
type Stream interface {
	Latest() (model.Frame, bool)
	Close() error
}

// Option applies a configuration option to the Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// Session holds at most one open stream.
type Session struct {
	device Device
	log    logger.Logger

	mu     sync.RWMutex
	stream Stream
}

// NewSession creates a session over device. Nothing is opened until Acquire.
func NewSession(device Device, opts ...Option) *Session {
	s := &Session{device: device, log: logger.Get().Named("camera")}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Acquire opens the device unless a stream is already held. Failures wrap ErrAcquisition.
func (s *Session) Acquire(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream != nil {
		return nil
	}
	if s.device == nil {
		metrics.RecordAcquisitionFailure(reason(ErrNoDevice))
		return fmt.Errorf("%w: %w", ErrAcquisition, ErrNoDevice)
	}

	stream, err := s.device.Open(ctx)
	if err != nil {
		metrics.RecordAcquisitionFailure(reason(err))
		s.log.Warn(ctx, "camera acquisition failed", logger.Error(err))
		return fmt.Errorf("%w: %w", ErrAcquisition, err)
	}
	s.stream = stream
	s.log.Debug(ctx, "camera acquired")
	return nil
}

// Latest returns the most recent frame of the held stream.
func (s *Session) Latest() (model.Frame, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stream == nil {
		return model.Frame{}, false
	}
	return s.stream.Latest()
}

// Held reports whether a stream is open.
func (s *Session) Held() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stream != nil
}

// Release closes the held stream. Calling it with no stream held is a no-op.
func (s *Session) Release() error {
	s.mu.Lock()
	stream := s.stream
	s.stream = nil
	s.mu.Unlock()

	if stream == nil {
		return nil
	}
	if err := stream.Close(); err != nil {
		return fmt.Errorf("close camera stream: %w", err)
	}
	s.log.Debug(context.Background(), "camera released")
	return nil
}

func reason(err error) string {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, ErrNoDevice):
		return "no_device"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "other"
	}
}
