package service

import (
	"fmt"

	"github.com/okian/motionplay/internal/adapters/camera/opencv"
	camsynth "github.com/okian/motionplay/internal/adapters/camera/synthetic"
	"github.com/okian/motionplay/internal/adapters/estimator/remote"
	"github.com/okian/motionplay/internal/adapters/publisher"
	"github.com/okian/motionplay/internal/config"
	"github.com/okian/motionplay/internal/domain/hit"
	"github.com/okian/motionplay/internal/domain/motion"
	"github.com/okian/motionplay/internal/engine/camera"
	"github.com/okian/motionplay/internal/engine/pose"
	"github.com/okian/motionplay/internal/engine/session"
	"github.com/okian/motionplay/pkg/logger"
)

// FromConfig translates process configuration into service options.
func FromConfig(cfg *config.Config, l logger.Logger) ([]Option, error) {
	if l == nil {
		l = logger.Get()
	}
	opts := []Option{
		WithLogger(l.Named("service")),
		WithWorkerCount(cfg.WorkerCount),
		WithQueueSize(cfg.QueueSize),
		WithMaxSessions(cfg.MaxSessions),
		WithMaxLiveSessions(cfg.MaxLiveSessions),
		WithPublishTimeout(cfg.Publisher.Timeout),
		WithPolicyConfig(cfg.Policy),
		WithSessionOptions(
			session.WithFrameInterval(cfg.Session.FrameInterval),
			session.WithSpawnInterval(cfg.Session.SpawnInterval),
			session.WithCountdownInterval(cfg.Session.CountdownInterval),
			session.WithPoseOptions(
				pose.WithInterval(cfg.Session.PoseInterval),
				pose.WithRetryDelay(cfg.Session.PoseRetry),
				pose.WithConfidence(cfg.Session.Confidence),
				pose.WithMinFrameSize(cfg.Session.MinFrameSize),
			),
		),
		WithDetectorOptions(
			hit.WithHitRadiusScale(cfg.Detector.HitRadiusScale),
			hit.WithPunchMoveThreshold(cfg.Detector.PunchMoveThreshold),
			hit.WithPunchExtensionThreshold(cfg.Detector.PunchExtensionThreshold),
		),
		WithGrader(motion.NewEstimator(
			motion.WithSamples(cfg.Motion.Samples),
			motion.WithDownscale(cfg.Motion.Width, cfg.Motion.Height),
			motion.WithLowThreshold(cfg.Motion.LowThreshold),
			motion.WithBands(cfg.Motion.LowBand, cfg.Motion.HighBand),
			motion.WithStarBreakpoints(cfg.Motion.StarBreakpoints),
		)),
	}

	cam := cfg.Camera
	switch cam.Source {
	case config.CameraSynthetic:
		opts = append(opts, WithDevices(func() camera.Device {
			return camsynth.NewDevice(camsynth.WithSize(cam.Width, cam.Height), camsynth.WithFPS(cam.FPS))
		}))
	case config.CameraOpenCV:
		opts = append(opts, WithDevices(func() camera.Device {
			return opencv.Device{ID: cam.DeviceID, Width: cam.Width, Height: cam.Height, FPS: cam.FPS}
		}))
	default:
		return nil, fmt.Errorf("camera %q: %w", cam.Source, ErrUnknownSource)
	}

	if cfg.Estimator.URL != "" {
		opts = append(opts, WithEstimator(remote.New(cfg.Estimator.URL,
			remote.WithTimeout(cfg.Estimator.Timeout),
			remote.WithJPEGQuality(cfg.Estimator.JPEGQuality),
			remote.WithLogger(l.Named("estimator")),
		)))
	}

	switch cfg.Publisher.Kind {
	case config.PublisherLog:
		opts = append(opts, WithPublisher(publisher.NewLog(l.Named("publisher"))))
	case config.PublisherKafka:
		opts = append(opts, WithPublisher(publisher.NewKafka(cfg.Publisher.Brokers, cfg.Publisher.Topic, cfg.Publisher.Timeout)))
	default:
		return nil, fmt.Errorf("publisher %q: %w", cfg.Publisher.Kind, ErrUnknownSource)
	}
	return opts, nil
}
