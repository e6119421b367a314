package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variable names.
const (
	EnvPrefix = "MOTION_"
	EnvFile   = "MOTION_CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if MOTION_CONFIG is set
//  3. env (prefix MOTION_); a double underscore descends into a section,
//     so MOTION_CAMERA__SOURCE sets camera.source
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(EnvFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	envProvider := env.Provider(EnvPrefix, ".", envKey)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps MOTION_QUEUE_SIZE to queue_size and MOTION_POLICY__FALL_SPEED
// to policy.fall_speed. The file selector itself is not a config key.
func envKey(s string) string {
	if s == EnvFile {
		return ""
	}
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.LogFormat != "json" && c.LogFormat != "text":
		return fmt.Errorf("%w: log_format %q must be json or text", ErrInvalidConfig, c.LogFormat)
	case c.Camera.Source != CameraSynthetic && c.Camera.Source != CameraOpenCV:
		return fmt.Errorf("%w: camera.source %q: %w", ErrInvalidConfig, c.Camera.Source, ErrUnknownAdapter)
	case c.Camera.Width <= 0 || c.Camera.Height <= 0:
		return fmt.Errorf("%w: camera size must be positive", ErrInvalidConfig)
	case c.Publisher.Kind != PublisherLog && c.Publisher.Kind != PublisherKafka:
		return fmt.Errorf("%w: publisher.kind %q: %w", ErrInvalidConfig, c.Publisher.Kind, ErrUnknownAdapter)
	case c.Publisher.Kind == PublisherKafka && len(c.Publisher.Brokers) == 0:
		return fmt.Errorf("%w: publisher.brokers required for kafka", ErrInvalidConfig)
	case c.Session.FrameInterval <= 0 || c.Session.SpawnInterval <= 0 || c.Session.CountdownInterval <= 0:
		return fmt.Errorf("%w: session intervals must be positive", ErrInvalidConfig)
	case c.Session.Confidence < 0 || c.Session.Confidence > 1:
		return fmt.Errorf("%w: session.confidence must be within [0,1]", ErrInvalidConfig)
	}
	return nil
}
