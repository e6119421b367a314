// Package config defines process configuration and how it is loaded.
//
// Conventions:
// - New() returns a Config populated with defaults.
// - Load(ctx) layers a YAML file and environment variables on top.
// - Nested sections map to dotted keys (camera.source, policy.fall_speed).
package config

import (
	"runtime"
	"time"

	"github.com/okian/motionplay/internal/domain/hit"
	"github.com/okian/motionplay/internal/domain/motion"
	"github.com/okian/motionplay/internal/engine/pose"
	"github.com/okian/motionplay/internal/engine/session"
	"github.com/okian/motionplay/pkg/tracing"
)

// Camera sources.
const (
	CameraSynthetic = "synthetic"
	CameraOpenCV    = "opencv"
)

// Publisher kinds.
const (
	PublisherLog   = "log"
	PublisherKafka = "kafka"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: json or text.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory queue of finished session records.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of result publishing workers.
	WorkerCount int `koanf:"worker_count"`

	// MaxSessions caps how many session records are retained.
	MaxSessions int `koanf:"max_sessions"`

	// MaxLiveSessions caps how many sessions may be open at once.
	MaxLiveSessions int `koanf:"max_live_sessions"`

	Camera    CameraConfig         `koanf:"camera"`
	Estimator EstimatorConfig      `koanf:"estimator"`
	Session   SessionConfig        `koanf:"session"`
	Detector  DetectorConfig       `koanf:"detector"`
	Policy    session.PolicyConfig `koanf:"policy"`
	Motion    MotionConfig         `koanf:"motion"`
	Publisher PublisherConfig      `koanf:"publisher"`
	Upload    UploadConfig         `koanf:"upload"`
	Tracing   tracing.Config       `koanf:"tracing"`
}

// CameraConfig selects and sizes the video source.
type CameraConfig struct {
	Source   string `koanf:"source"`
	DeviceID int    `koanf:"device_id"`
	Width    int    `koanf:"width"`
	Height   int    `koanf:"height"`
	FPS      int    `koanf:"fps"`
}

// EstimatorConfig points at a remote pose estimator. An empty URL selects the
// built-in synthetic estimator.
type EstimatorConfig struct {
	URL         string        `koanf:"url"`
	Timeout     time.Duration `koanf:"timeout"`
	JPEGQuality int           `koanf:"jpeg_quality"`
}

// SessionConfig holds loop cadences and pose gating.
type SessionConfig struct {
	FrameInterval     time.Duration `koanf:"frame_interval"`
	SpawnInterval     time.Duration `koanf:"spawn_interval"`
	CountdownInterval time.Duration `koanf:"countdown_interval"`
	PoseInterval      time.Duration `koanf:"pose_interval"`
	PoseRetry         time.Duration `koanf:"pose_retry"`
	Confidence        float64       `koanf:"confidence"`
	MinFrameSize      int           `koanf:"min_frame_size"`
}

// DetectorConfig tunes hit geometry.
type DetectorConfig struct {
	HitRadiusScale          float64 `koanf:"hit_radius_scale"`
	PunchMoveThreshold      float64 `koanf:"punch_move_threshold"`
	PunchExtensionThreshold float64 `koanf:"punch_extension_threshold"`
}

// MotionConfig tunes recorded-clip grading.
type MotionConfig struct {
	Samples         int         `koanf:"samples"`
	Width           int         `koanf:"width"`
	Height          int         `koanf:"height"`
	LowThreshold    float64     `koanf:"low_threshold"`
	LowBand         motion.Band `koanf:"low_band"`
	HighBand        motion.Band `koanf:"high_band"`
	StarBreakpoints [3]float64  `koanf:"star_breakpoints"`
}

// PublisherConfig selects where finished session records go.
type PublisherConfig struct {
	Kind    string        `koanf:"kind"`
	Brokers []string      `koanf:"brokers"`
	Topic   string        `koanf:"topic"`
	Timeout time.Duration `koanf:"timeout"`
}

// UploadConfig bounds recorded-clip uploads. Zero values keep the API defaults.
type UploadConfig struct {
	MaxBytes     int64 `koanf:"max_bytes"`
	MaxFrames    int   `koanf:"max_frames"`
	MaxFrameSide int   `koanf:"max_frame_side"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		LogFormat:       "json",
		Addr:            ":9080",
		QueueSize:       1024,
		WorkerCount:     runtime.NumCPU(),
		MaxSessions:     10_000,
		MaxLiveSessions: 256,
		Camera: CameraConfig{
			Source: CameraSynthetic,
			Width:  640,
			Height: 480,
			FPS:    30,
		},
		Estimator: EstimatorConfig{
			Timeout:     2 * time.Second,
			JPEGQuality: 80,
		},
		Session: SessionConfig{
			FrameInterval:     session.DefaultFrameInterval,
			SpawnInterval:     session.DefaultSpawnInterval,
			CountdownInterval: session.DefaultCountdownInterval,
			PoseInterval:      pose.DefaultInterval,
			PoseRetry:         pose.DefaultRetryDelay,
			Confidence:        pose.DefaultConfidence,
			MinFrameSize:      pose.DefaultMinFrameSize,
		},
		Detector: DetectorConfig{
			HitRadiusScale:          hit.DefaultHitRadiusScale,
			PunchMoveThreshold:      hit.DefaultPunchMoveThreshold,
			PunchExtensionThreshold: hit.DefaultPunchExtensionThreshold,
		},
		Policy: session.DefaultPolicyConfig(),
		Motion: MotionConfig{
			Samples:         motion.DefaultSamples,
			Width:           motion.DefaultWidth,
			Height:          motion.DefaultHeight,
			LowThreshold:    motion.DefaultLowThreshold,
			LowBand:         motion.DefaultLowBand,
			HighBand:        motion.DefaultHighBand,
			StarBreakpoints: motion.DefaultStarBreakpoints,
		},
		Publisher: PublisherConfig{
			Kind:    PublisherLog,
			Topic:   "motionplay.sessions",
			Timeout: 5 * time.Second,
		},
		Tracing: tracing.Config{
			ServiceName: "motionplay",
			SampleRatio: 1,
		},
	}
}
