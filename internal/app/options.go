package service

import (
	"time"

	"github.com/okian/motionplay/internal/adapters/audio"
	"github.com/okian/motionplay/internal/adapters/mq/worker"
	"github.com/okian/motionplay/internal/domain/hit"
	"github.com/okian/motionplay/internal/domain/motion"
	"github.com/okian/motionplay/internal/engine/camera"
	"github.com/okian/motionplay/internal/engine/pose"
	"github.com/okian/motionplay/internal/engine/render"
	"github.com/okian/motionplay/internal/engine/session"
	"github.com/okian/motionplay/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of publishing workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the finished-session queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithMaxSessions caps how many session records are retained.
func WithMaxSessions(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxSessions = n
		}
	}
}

// WithMaxLiveSessions caps how many controllers may exist at once.
func WithMaxLiveSessions(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxLive = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDevices sets the factory that gives every new session its camera.
func WithDevices(f func() camera.Device) Option {
	return func(s *Service) {
		if f != nil {
			s.devices = f
		}
	}
}

// WithSurfaces sets the factory that gives every new session its drawing surface.
func WithSurfaces(f func() render.Surface) Option {
	return func(s *Service) {
		if f != nil {
			s.surfaces = f
		}
	}
}

// WithEstimator sets the pose estimator shared by all sessions.
func WithEstimator(e pose.Estimator) Option {
	return func(s *Service) {
		if e != nil {
			s.estimator = e
		}
	}
}

// WithPublisher sets where finished session records are delivered.
func WithPublisher(p worker.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithPublishTimeout bounds a single publish call.
func WithPublishTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.publishTimeout = d
		}
	}
}

// WithGrader sets the estimator used for recorded clips.
func WithGrader(g *motion.Estimator) Option {
	return func(s *Service) {
		if g != nil {
			s.grader = g
		}
	}
}

// WithPlayer sets the sound cue player.
func WithPlayer(p audio.Player) Option {
	return func(s *Service) {
		if p != nil {
			s.player = p
		}
	}
}

// WithPolicyConfig sets the tuning of the built-in exercise policies.
func WithPolicyConfig(cfg session.PolicyConfig) Option {
	return func(s *Service) {
		s.policy = cfg
	}
}

// WithSessionOptions appends options applied to every controller.
func WithSessionOptions(opts ...session.Option) Option {
	return func(s *Service) {
		s.sessionOpts = append(s.sessionOpts, opts...)
	}
}

// WithDetectorOptions appends options applied to every hit detector.
func WithDetectorOptions(opts ...hit.Option) Option {
	return func(s *Service) {
		s.detectorOpts = append(s.detectorOpts, opts...)
	}
}
