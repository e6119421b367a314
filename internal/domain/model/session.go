package model

import "time"

// SessionState is the lifecycle state of a session.
type SessionState int

// Session states.
const (
	StateIdle SessionState = iota
	StateActive
	StateComplete
	StateCancelled
	StateError
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateComplete:
		return "complete"
	case StateCancelled:
		return "cancelled"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// ExerciseKind selects the game variant.
type ExerciseKind string

// Exercise kinds.
const (
	ExerciseTargets       ExerciseKind = "targets"        // touch stationary targets
	ExerciseFalling       ExerciseKind = "falling"        // catch falling objects
	ExerciseBoxing        ExerciseKind = "boxing"         // unconstrained punches
	ExerciseBoxingTargets ExerciseKind = "boxing_targets" // punch stationary targets
	ExerciseJump          ExerciseKind = "jump"           // count jumps
	ExerciseRecorded      ExerciseKind = "recorded"       // graded from a recorded clip
)

// Valid reports whether k is a known exercise kind.
func (k ExerciseKind) Valid() bool {
	switch k {
	case ExerciseTargets, ExerciseFalling, ExerciseBoxing, ExerciseBoxingTargets, ExerciseJump, ExerciseRecorded:
		return true
	}
	return false
}

// Challenge is the descriptor handed in by the surrounding application.
type Challenge struct {
	DurationSeconds int          `json:"duration_seconds"`
	Kind            ExerciseKind `json:"exercise_kind"`
	Difficulty      float64      `json:"difficulty"`
}

// Score holds the running counts of a session.
type Score struct {
	Points             int `json:"points"`
	EventCount         int `json:"event_count"`         // hits, punches or jumps
	SecondaryCount     int `json:"secondary_count"`     // engagement moves that did not score
	TotalOpportunities int `json:"total_opportunities"` // targets spawned, or 1 when not applicable
}

// Result is built once when a session completes.
type Result struct {
	RawCount           int `json:"raw_count"`
	SecondaryCount     int `json:"secondary_count"`
	TotalOpportunities int `json:"total_opportunities"`
	Stars              int `json:"stars"`
	Coins              int `json:"coins"`
}

// SessionRecord is what gets published when a session ends.
type SessionRecord struct {
	ID        string       `json:"id"`
	Challenge Challenge    `json:"challenge"`
	State     SessionState `json:"-"`
	StateName string       `json:"state"`
	Result    *Result      `json:"result,omitempty"`
	StartedAt time.Time    `json:"started_at"`
	EndedAt   time.Time    `json:"ended_at"`
}
