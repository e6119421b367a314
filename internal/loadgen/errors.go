package loadgen

import "errors"

// Sentinel errors for load runs.
var (
	ErrUnhealthy     = errors.New("service unhealthy")
	ErrUnexpected    = errors.New("unexpected response")
	ErrNoSessions    = errors.New("no sessions completed")
	ErrMissingRecord = errors.New("finished session missing from records")
)
