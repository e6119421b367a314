package session

import "errors"

var (
	// ErrInvalidState is returned when an operation is not allowed in the current state.
	ErrInvalidState = errors.New("invalid session state")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("session closed")
	// ErrInvalidChallenge is returned for a challenge without a positive duration.
	ErrInvalidChallenge = errors.New("invalid challenge")
	// ErrUnknownKind is returned for an exercise kind with no policy.
	ErrUnknownKind = errors.New("unknown exercise kind")
	// ErrNotInteractive is returned for kinds graded from recordings, not live.
	ErrNotInteractive = errors.New("exercise kind is not interactive")
)
