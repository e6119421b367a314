package targets

import "errors"

// ErrBoundsTooSmall is returned by Spawn when the visible area has no room.
var ErrBoundsTooSmall = errors.New("spawn bounds too small")
