// Package hit holds the geometric and heuristic tests used to decide whether
// a body part scored: target collision, punches, movement and jumps.
package hit

import "github.com/okian/motionplay/internal/domain/model"

// Option applies a configuration option to the Detector.
type Option func(*Detector)

// WithHitRadiusScale sets the hit radius as a multiple of the target size.
func WithHitRadiusScale(scale float64) Option {
	return func(d *Detector) {
		if scale > 0 {
			d.radiusScale = scale
		}
	}
}

// WithPunchMoveThreshold sets the wrist displacement that counts as a punch.
func WithPunchMoveThreshold(px float64) Option {
	return func(d *Detector) {
		if px > 0 {
			d.punchMove = px
		}
	}
}

// WithPunchExtensionThreshold sets the wrist-to-elbow extension that counts as a punch.
func WithPunchExtensionThreshold(px float64) Option {
	return func(d *Detector) {
		if px > 0 {
			d.punchExtension = px
		}
	}
}

// Detector performs the stateless hit tests. It is safe for concurrent use.
type Detector struct {
	radiusScale    float64
	punchMove      float64
	punchExtension float64
}

// NewDetector creates a detector with default thresholds.
func NewDetector(opts ...Option) *Detector {
	d := &Detector{
		radiusScale:    DefaultHitRadiusScale,
		punchMove:      DefaultPunchMoveThreshold,
		punchExtension: DefaultPunchExtensionThreshold,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Radius returns the hit radius for t. It is generous on purpose: estimates
// lag and jitter behind the real hand.
func (d *Detector) Radius(t model.Target) float64 {
	return t.Size * d.radiusScale
}

// Collides reports whether p is within the hit radius of the target centre.
func (d *Detector) Collides(p model.Point, t model.Target) bool {
	return p.Dist(t.Center()) < d.Radius(t)
}

// IsPunch reports whether the wrist moved far enough since prev, or is
// extended far enough from a known elbow. Without a previous sample it is
// never a punch.
func (d *Detector) IsPunch(wrist, elbow, prev *model.Point) bool {
	if wrist == nil || prev == nil {
		return false
	}
	if wrist.Dist(*prev) > d.punchMove {
		return true
	}
	return elbow != nil && wrist.Dist(*elbow) > d.punchExtension
}

// IsMoving is a plain displacement-over-threshold test.
func IsMoving(p, prev *model.Point, threshold float64) bool {
	if p == nil || prev == nil {
		return false
	}
	return p.Dist(*prev) > threshold
}
