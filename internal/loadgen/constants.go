package loadgen

import (
	"time"

	"github.com/okian/motionplay/internal/domain/model"
)

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Runner configuration constants.
const (
	DefaultPollInterval  = 100 * time.Millisecond
	DefaultTaps          = 20
	PercentageMultiplier = 100
	recordsLimit         = 1000
	maxInitRetries       = 3
	maxCreateRetries     = 2
	initRetryDelay       = 500 * time.Millisecond
)

// DefaultKinds are the live exercise kinds a run rotates through.
var DefaultKinds = []model.ExerciseKind{
	model.ExerciseTargets,
	model.ExerciseFalling,
	model.ExerciseBoxing,
	model.ExerciseBoxingTargets,
	model.ExerciseJump,
}

// interactive reports whether taps can score for k.
func interactive(k model.ExerciseKind) bool {
	return k == model.ExerciseTargets || k == model.ExerciseFalling || k == model.ExerciseBoxingTargets
}
