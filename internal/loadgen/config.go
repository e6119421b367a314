package loadgen

import (
	"time"

	"github.com/okian/motionplay/internal/domain/model"
)

// Config holds configuration for a load run.
type Config struct {
	BaseURL      string               // Base URL of the service
	Sessions     int                  // Number of sessions to play
	Workers      int                  // Number of concurrent players
	Duration     int                  // Challenge length in seconds
	Difficulty   float64              // Challenge difficulty
	Kinds        []model.ExerciseKind // Kinds to rotate through
	Taps         int                  // Taps attempted per interactive session
	PollInterval time.Duration        // Delay between session polls
	Timeout      time.Duration        // HTTP request timeout
	OutputFile   string               // Output file for session outcomes
	LogFile      string               // Log file for run output
	Verbose      bool                 // Enable per-session logging
}

// Outcome is what one played session ended with.
type Outcome struct {
	ID     string             `json:"id"`
	Kind   model.ExerciseKind `json:"exercise_kind"`
	State  string             `json:"state"`
	Taps   int                `json:"taps"`
	Hits   int                `json:"tap_hits"`
	Result *model.Result      `json:"result,omitempty"`
	Error  string             `json:"error,omitempty"`
}

// Stats holds run statistics.
type Stats struct {
	SessionsStarted   int
	SessionsCompleted int
	SessionsCancelled int
	SessionsFailed    int
	Taps              int
	TapHits           int
	Stars             int
	RecordsListed     int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}

// view mirrors the session document served by the API.
type view struct {
	ID        string          `json:"id"`
	State     string          `json:"state"`
	Remaining int             `json:"remaining_seconds"`
	Score     model.Score     `json:"score"`
	Targets   []model.Target  `json:"targets"`
	Result    *model.Result   `json:"result"`
	Error     string          `json:"error"`
	Challenge model.Challenge `json:"challenge"`
}

type tapResponse struct {
	Hit bool `json:"hit"`
}

type errorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retriable bool   `json:"retriable"`
}
