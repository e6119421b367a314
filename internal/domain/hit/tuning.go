package hit

import "time"

// Default thresholds, in render-space pixels unless noted.
const (
	DefaultHitRadiusScale          = 1.0  // hit radius as a multiple of the target size
	DefaultPunchMoveThreshold      = 40.0 // wrist displacement between samples
	DefaultPunchExtensionThreshold = 80.0 // wrist-to-elbow distance
	DefaultEngageThreshold         = 15.0 // wrist displacement that counts as moving
	DefaultJumpThreshold           = 35.0 // body-centre rise above baseline
	DefaultLandDebounce            = 500 * time.Millisecond
	DefaultPunchDebounce           = 300 * time.Millisecond
	baselineAlpha                  = 0.1 // baseline adaptation while grounded
)
