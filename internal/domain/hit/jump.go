package hit

import (
	"math"
	"sync"
	"time"
)

// JumpPhase is the outcome of a single jump sample.
type JumpPhase int

// Jump phases.
const (
	JumpNone JumpPhase = iota
	JumpRising
	JumpLanded
)

func (p JumpPhase) String() string {
	switch p {
	case JumpRising:
		return "rising"
	case JumpLanded:
		return "landed"
	default:
		return "none"
	}
}

// DidJump classifies one body-centre sample. Image y grows downward, so a
// rise is a smaller y than the baseline. A landing needs a previous rise and
// a return to within half the threshold.
func DidJump(centerY, baselineY, threshold float64, inAir bool) JumpPhase {
	if !inAir {
		if baselineY-centerY > threshold {
			return JumpRising
		}
		return JumpNone
	}
	if math.Abs(centerY-baselineY) <= threshold/2 {
		return JumpLanded
	}
	return JumpNone
}

// JumpOption configures a JumpCounter.
type JumpOption func(*JumpCounter)

// WithJumpThreshold sets the rise above baseline that marks "in air".
func WithJumpThreshold(px float64) JumpOption {
	return func(j *JumpCounter) {
		if px > 0 {
			j.threshold = px
		}
	}
}

// WithLandDebounce sets the minimum time between two counted landings.
func WithLandDebounce(d time.Duration) JumpOption {
	return func(j *JumpCounter) {
		if d >= 0 {
			j.debounce = d
		}
	}
}

// JumpCounter tracks the baseline, the in-air flag and the landing debounce.
type JumpCounter struct {
	mu        sync.Mutex
	threshold float64
	debounce  time.Duration

	baseline    float64
	hasBaseline bool
	inAir       bool
	lastLanding time.Time
	count       int
}

// NewJumpCounter creates a counter with default thresholds.
func NewJumpCounter(opts ...JumpOption) *JumpCounter {
	j := &JumpCounter{
		threshold: DefaultJumpThreshold,
		debounce:  DefaultLandDebounce,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Update feeds one body-centre sample taken at now. It returns JumpLanded
// only for landings that are counted.
func (j *JumpCounter) Update(centerY float64, now time.Time) JumpPhase {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.hasBaseline {
		j.baseline = centerY
		j.hasBaseline = true
		return JumpNone
	}

	phase := DidJump(centerY, j.baseline, j.threshold, j.inAir)
	switch phase {
	case JumpRising:
		j.inAir = true
	case JumpLanded:
		j.inAir = false
		if !j.lastLanding.IsZero() && now.Sub(j.lastLanding) < j.debounce {
			return JumpNone
		}
		j.lastLanding = now
		j.count++
	case JumpNone:
		if !j.inAir {
			j.baseline += (centerY - j.baseline) * baselineAlpha
		}
	}
	return phase
}

// Count returns the number of counted landings.
func (j *JumpCounter) Count() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.count
}

// InAir reports whether the last sample left the body in the air.
func (j *JumpCounter) InAir() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.inAir
}

// Reset clears baseline, in-air and debounce state.
func (j *JumpCounter) Reset() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.baseline = 0
	j.hasBaseline = false
	j.inAir = false
	j.lastLanding = time.Time{}
	j.count = 0
}
