package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrNoFrames   = errors.New("no frame or video parts in upload")
	ErrTooLarge   = errors.New("upload too large")
)
