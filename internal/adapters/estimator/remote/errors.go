package remote

import "errors"

// Sentinel errors.
var (
	ErrNotConnected = errors.New("estimator not connected")
	ErrClosed       = errors.New("estimator client closed")
	ErrRemote       = errors.New("estimator reported an error")
	ErrSeqMismatch  = errors.New("estimator response out of sequence")
	ErrNilFrame     = errors.New("frame has no image")
)
