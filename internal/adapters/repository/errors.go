package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound     = errors.New("session not found")
	ErrInvalidLimit = errors.New("invalid list limit")
	ErrInvalidID    = errors.New("session id must not be empty")
)
