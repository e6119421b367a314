package config

import "errors"

// Sentinel errors. Validation failures wrap ErrInvalidConfig, and an unknown
// adapter name additionally wraps ErrUnknownAdapter.
var (
	ErrInvalidConfig  = errors.New("invalid config")
	ErrLoadConfig     = errors.New("load config failed")
	ErrUnknownAdapter = errors.New("unknown adapter")
)
