package service

import "errors"

var (
	// ErrNotStarted is returned by session operations before Start or after Stop.
	ErrNotStarted = errors.New("service not started")
	// ErrSessionNotFound is returned for an unknown session id.
	ErrSessionNotFound = errors.New("session not found")
	// ErrTooManySessions is returned when the live session limit is reached.
	ErrTooManySessions = errors.New("too many live sessions")
	// ErrUnknownSource is returned by FromConfig for an unknown camera or publisher.
	ErrUnknownSource = errors.New("unknown source")
)
