package model

import "time"

// TargetKind names a catalog entry for spawned targets.
type TargetKind string

// Built-in target kinds.
const (
	TargetStar    TargetKind = "star"
	TargetBalloon TargetKind = "balloon"
	TargetFruit   TargetKind = "fruit"
	TargetBubble  TargetKind = "bubble"
)

// Target is a transient on-screen entity. Position is the top-left corner of
// its square bounding box.
type Target struct {
	ID        string        `json:"id"`
	Position  Point         `json:"position"`
	Size      float64       `json:"size"`
	Kind      TargetKind    `json:"kind"`
	Hit       bool          `json:"hit"`
	Age       time.Duration `json:"age"`
	MaxAge    time.Duration `json:"max_age"`
	FallSpeed float64       `json:"fall_speed"` // pixels per second, zero for stationary targets
}

// Center returns the centre of the target.
func (t Target) Center() Point {
	return Point{X: t.Position.X + t.Size/2, Y: t.Position.Y + t.Size/2}
}

// Expired reports whether the target has outlived its max age.
func (t Target) Expired() bool {
	return t.MaxAge > 0 && t.Age >= t.MaxAge
}
