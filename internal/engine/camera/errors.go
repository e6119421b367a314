package camera

import "errors"

var (
	// ErrAcquisition wraps every failure to obtain a video stream. It is retriable.
	ErrAcquisition = errors.New("camera acquisition failed")
	// ErrPermissionDenied is returned by devices when access was refused.
	ErrPermissionDenied = errors.New("camera permission denied")
	// ErrNoDevice is returned by devices when no camera is present.
	ErrNoDevice = errors.New("no camera device")
)
