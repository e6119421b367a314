// Package motion grades recorded clips by coarse frame difference. It has no
// notion of targets or hits.
package motion

import (
	"fmt"
	"image"
	"math"
	"math/rand"
	"sync"
	"time"
)

// Defaults.
const (
	DefaultSamples      = 8
	DefaultWidth        = 64
	DefaultHeight       = 48
	DefaultLowThreshold = 6.0
	maxScore            = 100.0
)

// Default bands and breakpoints.
var (
	DefaultLowBand         = Band{Min: 40, Max: 60}
	DefaultHighBand        = Band{Min: 70, Max: 100}
	DefaultStarBreakpoints = [3]float64{50, 75, 90}
)

// Clip is a recorded sequence of frames.
type Clip interface {
	FrameCount() int
	FrameAt(i int) (image.Image, error)
}

// Band is an inclusive score range.
type Band struct {
	Min float64 `koanf:"min" json:"min"`
	Max float64 `koanf:"max" json:"max"`
}

func (b Band) valid() bool { return b.Min >= 0 && b.Max >= b.Min }

func (b Band) draw(r *rand.Rand) float64 {
	return b.Min + r.Float64()*(b.Max-b.Min)
}

// Grade is the outcome of grading one clip.
type Grade struct {
	Level         float64 `json:"level"`
	LowEngagement bool    `json:"low_engagement"`
	Score         int     `json:"score"`
	Stars         int     `json:"stars"`
}

// Estimator computes motion levels and grades. It is safe for concurrent use.
type Estimator struct {
	samples       int
	width, height int
	lowThreshold  float64
	low, high     Band
	stars         [3]float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewEstimator creates an estimator with default tuning.
func NewEstimator(opts ...Option) *Estimator {
	e := &Estimator{
		samples:      DefaultSamples,
		width:        DefaultWidth,
		height:       DefaultHeight,
		lowThreshold: DefaultLowThreshold,
		low:          DefaultLowBand,
		high:         DefaultHighBand,
		stars:        DefaultStarBreakpoints,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // scoring jitter, not security
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Level samples evenly spaced frames and returns the mean absolute per-channel
// difference between consecutive samples, on a 0..255 scale.
func (e *Estimator) Level(clip Clip) (float64, error) {
	n := clip.FrameCount()
	if n < 2 {
		return 0, ErrClipTooShort
	}
	samples := e.samples
	if samples > n {
		samples = n
	}

	var (
		prev  []uint8
		total float64
	)
	for i := 0; i < samples; i++ {
		idx := i * (n - 1) / (samples - 1)
		img, err := clip.FrameAt(idx)
		if err != nil {
			return 0, fmt.Errorf("read frame %d: %w", idx, err)
		}
		if img == nil {
			return 0, fmt.Errorf("read frame %d: %w", idx, ErrNilFrame)
		}
		cur := downscale(img, e.width, e.height)
		if prev != nil {
			total += meanAbsDiff(prev, cur)
		}
		prev = cur
	}
	return total / float64(samples-1), nil
}

// Grade turns a motion level into a score and stars. Low engagement caps the
// score to the low band; otherwise the high band is scaled by difficulty.
func (e *Estimator) Grade(level, difficulty float64) Grade {
	if difficulty <= 0 {
		difficulty = 1
	}

	e.mu.Lock()
	var score float64
	low := level < e.lowThreshold
	if low {
		score = e.low.draw(e.rng)
	} else {
		score = math.Min(maxScore, e.high.draw(e.rng)*difficulty)
	}
	e.mu.Unlock()

	g := Grade{Level: level, LowEngagement: low, Score: int(math.Round(score))}
	for _, bp := range e.stars {
		if float64(g.Score) >= bp {
			g.Stars++
		}
	}
	return g
}

// Evaluate is Level followed by Grade.
func (e *Estimator) Evaluate(clip Clip, difficulty float64) (Grade, error) {
	level, err := e.Level(clip)
	if err != nil {
		return Grade{}, err
	}
	return e.Grade(level, difficulty), nil
}

// downscale samples img at w×h by nearest neighbour into packed RGB.
func downscale(img image.Image, w, h int) []uint8 {
	b := img.Bounds()
	out := make([]uint8, 0, w*h*3)
	for y := 0; y < h; y++ {
		sy := b.Min.Y + y*b.Dy()/h
		for x := 0; x < w; x++ {
			sx := b.Min.X + x*b.Dx()/w
			r, g, bl, _ := img.At(sx, sy).RGBA()
			out = append(out, uint8(r>>8), uint8(g>>8), uint8(bl>>8))
		}
	}
	return out
}

func meanAbsDiff(a, b []uint8) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var sum int
	for i := range a {
		d := int(a[i]) - int(b[i])
		if d < 0 {
			d = -d
		}
		sum += d
	}
	return float64(sum) / float64(len(a))
}
