// Package synthetic provides a pose estimator that scripts a person waving
// and hopping, derived from the frame sequence number.
package synthetic

import (
	"context"
	"math"

	"github.com/okian/motionplay/internal/domain/model"
)

// Defaults, in frames.
const (
	DefaultWavePeriod = 60
	DefaultJumpEvery  = 90
	jumpFrames        = 15
	defaultScore      = 0.9
)

// Option applies a configuration option to the Estimator.
type Option func(*Estimator)

// WithWavePeriod sets how many frames one arm circle takes.
func WithWavePeriod(frames int) Option {
	return func(e *Estimator) {
		if frames > 0 {
			e.wavePeriod = frames
		}
	}
}

// WithJumpEvery sets how many frames pass between hops. Values shorter than
// a hop disable hopping.
func WithJumpEvery(frames int) Option {
	return func(e *Estimator) {
		if frames >= 0 {
			e.jumpEvery = frames
		}
	}
}

// WithScore sets the confidence reported for every keypoint.
func WithScore(score float64) Option {
	return func(e *Estimator) {
		if score >= 0 && score <= 1 {
			e.score = score
		}
	}
}

// Estimator implements pose.Estimator without a model.
type Estimator struct {
	wavePeriod int
	jumpEvery  int
	score      float64
}

// New creates a synthetic estimator.
func New(opts ...Option) *Estimator {
	e := &Estimator{
		wavePeriod: DefaultWavePeriod,
		jumpEvery:  DefaultJumpEvery,
		score:      defaultScore,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Ready always reports true.
func (*Estimator) Ready() bool { return true }

// Estimate returns the scripted pose for frame.Seq in frame coordinates.
func (e *Estimator) Estimate(ctx context.Context, frame model.Frame) (*model.Pose, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w, h := float64(frame.Width), float64(frame.Height)
	if w <= 0 || h <= 0 {
		return nil, nil
	}

	phase := 2 * math.Pi * float64(frame.Seq%uint64(e.wavePeriod)) / float64(e.wavePeriod)
	lift := e.lift(frame.Seq) * h

	cx := w / 2
	shoulderY := 0.35*h - lift
	hipY := 0.6*h - lift
	lw := model.Point{X: cx - 0.3*w + 0.1*w*math.Cos(phase), Y: 0.3*h + 0.15*h*math.Sin(phase) - lift}
	rw := model.Point{X: cx + 0.3*w - 0.1*w*math.Cos(phase), Y: 0.3*h + 0.15*h*math.Sin(phase) - lift}
	ls := model.Point{X: cx - 0.12*w, Y: shoulderY}
	rs := model.Point{X: cx + 0.12*w, Y: shoulderY}

	kp := func(name string, p model.Point) model.Keypoint {
		return model.Keypoint{Name: name, X: p.X, Y: p.Y, Score: e.score}
	}
	return &model.Pose{
		Keypoints: []model.Keypoint{
			kp(model.LeftWrist, lw),
			kp(model.RightWrist, rw),
			kp(model.LeftElbow, midpoint(ls, lw)),
			kp(model.RightElbow, midpoint(rs, rw)),
			kp(model.LeftShoulder, ls),
			kp(model.RightShoulder, rs),
			kp(model.LeftHip, model.Point{X: cx - 0.08*w, Y: hipY}),
			kp(model.RightHip, model.Point{X: cx + 0.08*w, Y: hipY}),
		},
		Score:  e.score,
		Width:  w,
		Height: h,
	}, nil
}

// lift is the hop height as a fraction of the frame height. Each cycle
// stands still first and hops during its last jumpFrames frames.
func (e *Estimator) lift(seq uint64) float64 {
	if e.jumpEvery < jumpFrames {
		return 0
	}
	k := int(seq%uint64(e.jumpEvery)) - (e.jumpEvery - jumpFrames)
	if k < 0 {
		return 0
	}
	return 0.25 * math.Sin(math.Pi*float64(k)/jumpFrames)
}

func midpoint(a, b model.Point) model.Point {
	return model.Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}
