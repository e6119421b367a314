// Package model contains domain models passed between layers.
package model

import (
	"image"
	"math"
	"time"
)

// Point is a 2-D coordinate. Which space it lives in (estimator or render)
// depends on the producer.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Keypoint is one named body part returned by a pose estimate.
type Keypoint struct {
	Name  string  `msgpack:"name" json:"name"`
	X     float64 `msgpack:"x" json:"x"`
	Y     float64 `msgpack:"y" json:"y"`
	Score float64 `msgpack:"score" json:"score"`
}

// Pose is a confidence-scored set of keypoints in estimator space.
// Width and Height describe the estimator input the coordinates refer to.
type Pose struct {
	Keypoints []Keypoint
	Score     float64
	Width     float64
	Height    float64
}

// Keypoint names understood by the engine.
const (
	LeftWrist     = "left_wrist"
	RightWrist    = "right_wrist"
	LeftElbow     = "left_elbow"
	RightElbow    = "right_elbow"
	LeftHip       = "left_hip"
	RightHip      = "right_hip"
	LeftShoulder  = "left_shoulder"
	RightShoulder = "right_shoulder"
)

// BodyPosition is the latest known snapshot of the tracked body parts.
// A nil part is absent: it was not detected or fell below the confidence gate.
type BodyPosition struct {
	LeftWrist   *Point
	RightWrist  *Point
	LeftElbow   *Point
	RightElbow  *Point
	BodyCenterY *float64

	Seq uint64    // increases with every published estimate
	At  time.Time // when the estimate completed
}

// Wrists returns the detected wrists, left first.
func (b *BodyPosition) Wrists() []Point {
	if b == nil {
		return nil
	}
	out := make([]Point, 0, 2)
	if b.LeftWrist != nil {
		out = append(out, *b.LeftWrist)
	}
	if b.RightWrist != nil {
		out = append(out, *b.RightWrist)
	}
	return out
}

// Frame is one video frame from the camera.
type Frame struct {
	Image  image.Image
	Width  int
	Height int
	Seq    uint64
	At     time.Time
}
