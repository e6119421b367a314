// Package opencv reads camera devices and recorded clips through OpenCV.
// Build with -tags opencv and an OpenCV 4 installation; without the tag
// every call reports ErrUnavailable.
package opencv

import "errors"

// ErrUnavailable is returned by builds without the opencv tag.
var ErrUnavailable = errors.New("opencv support not compiled in")

// Device opens a local capture device by index.
type Device struct {
	ID     int
	Width  int
	Height int
	FPS    int
}
