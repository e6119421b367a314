package motion

import "errors"

var (
	// ErrClipTooShort is returned when a clip has fewer than two frames.
	ErrClipTooShort = errors.New("clip too short")
	// ErrNilFrame is returned when a clip yields a nil frame.
	ErrNilFrame = errors.New("nil frame")
)
