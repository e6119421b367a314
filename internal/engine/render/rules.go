package render

import (
	"time"

	"github.com/okian/motionplay/internal/domain/hit"
	"github.com/okian/motionplay/internal/domain/model"
	"github.com/okian/motionplay/internal/domain/targets"
)

// HitInput is what a rule sees on one frame. Body is the latest snapshot,
// which may be stale; Fresh is set on the first frame that sees it.
type HitInput struct {
	Body     *model.BodyPosition
	Prev     *model.BodyPosition // snapshot before Body, nil on the first one
	Fresh    bool
	Now      time.Time
	Width    float64
	Height   float64
	Pool     *targets.Pool
	Detector *hit.Detector
}

// Hit is one credited event. Target is nil for events that hit no target,
// such as free punches and jumps.
type Hit struct {
	Target *model.Target
	At     model.Point
	Points int
}

// HitOutcome is the result of evaluating a rule.
type HitOutcome struct {
	Hits []Hit
}

// HitRule decides which body motion scores. Evaluate runs on every frame;
// position tests run against stale snapshots too, while anything comparing
// Body with Prev must only run when Fresh. Rules that hit targets must take
// them through Pool.Claim so a target is credited at most once.
type HitRule interface {
	Evaluate(in HitInput) HitOutcome
	Reset()
}

func claimed(ts []model.Target) []Hit {
	hits := make([]Hit, 0, len(ts))
	for i := range ts {
		t := ts[i]
		hits = append(hits, Hit{Target: &t, At: t.Center(), Points: 1})
	}
	return hits
}

// TouchRule scores any target either wrist is inside, on every frame.
type TouchRule struct{}

// Evaluate implements HitRule.
func (TouchRule) Evaluate(in HitInput) HitOutcome {
	wrists := in.Body.Wrists()
	if len(wrists) == 0 {
		return HitOutcome{}
	}
	return HitOutcome{Hits: claimed(in.Pool.Claim(func(t model.Target) bool {
		for _, w := range wrists {
			if in.Detector.Collides(w, t) {
				return true
			}
		}
		return false
	}))}
}

// Reset implements HitRule.
func (TouchRule) Reset() {}

type hand struct {
	name         string
	wrist, elbow *model.Point
	prev         *model.Point
}

func hands(in HitInput) []hand {
	var prevL, prevR *model.Point
	if in.Prev != nil {
		prevL, prevR = in.Prev.LeftWrist, in.Prev.RightWrist
	}
	return []hand{
		{name: "left", wrist: in.Body.LeftWrist, elbow: in.Body.LeftElbow, prev: prevL},
		{name: "right", wrist: in.Body.RightWrist, elbow: in.Body.RightElbow, prev: prevR},
	}
}

// PunchTargetRule scores a target only when a punching wrist is inside it.
// The punching wrists of a snapshot stay armed until the next snapshot, so
// a target moving into a fist between estimates still scores.
type PunchTargetRule struct {
	fists []model.Point
}

// Evaluate implements HitRule.
func (r *PunchTargetRule) Evaluate(in HitInput) HitOutcome {
	if in.Fresh {
		r.fists = r.fists[:0]
		for _, h := range hands(in) {
			if in.Detector.IsPunch(h.wrist, h.elbow, h.prev) {
				r.fists = append(r.fists, *h.wrist)
			}
		}
	}
	if len(r.fists) == 0 {
		return HitOutcome{}
	}
	return HitOutcome{Hits: claimed(in.Pool.Claim(func(t model.Target) bool {
		for _, f := range r.fists {
			if in.Detector.Collides(f, t) {
				return true
			}
		}
		return false
	}))}
}

// Reset implements HitRule.
func (r *PunchTargetRule) Reset() { r.fists = nil }

// FreePunchRule scores punches without targets, debounced per hand.
type FreePunchRule struct {
	Gate *hit.PunchGate
}

// NewFreePunchRule creates a rule with the given per-hand debounce.
func NewFreePunchRule(debounce time.Duration) *FreePunchRule {
	return &FreePunchRule{Gate: hit.NewPunchGate(debounce)}
}

// Evaluate implements HitRule.
func (r *FreePunchRule) Evaluate(in HitInput) HitOutcome {
	var out HitOutcome
	if !in.Fresh {
		return out
	}
	for _, h := range hands(in) {
		if in.Detector.IsPunch(h.wrist, h.elbow, h.prev) && r.Gate.Allow(h.name, in.Now) {
			out.Hits = append(out.Hits, Hit{At: *h.wrist, Points: 1})
		}
	}
	return out
}

// Reset implements HitRule.
func (r *FreePunchRule) Reset() { r.Gate.Reset() }

// JumpRule scores counted landings.
type JumpRule struct {
	Counter *hit.JumpCounter
}

// NewJumpRule creates a rule over a fresh counter.
func NewJumpRule(opts ...hit.JumpOption) *JumpRule {
	return &JumpRule{Counter: hit.NewJumpCounter(opts...)}
}

// Evaluate implements HitRule.
func (r *JumpRule) Evaluate(in HitInput) HitOutcome {
	if !in.Fresh || in.Body.BodyCenterY == nil {
		return HitOutcome{}
	}
	y := *in.Body.BodyCenterY
	if r.Counter.Update(y, in.Now) != hit.JumpLanded {
		return HitOutcome{}
	}
	return HitOutcome{Hits: []Hit{{At: model.Point{X: in.Width / 2, Y: y}, Points: 1}}}
}

// Reset implements HitRule.
func (r *JumpRule) Reset() { r.Counter.Reset() }

// NoRule scores nothing. Used by exercises graded outside the render path.
type NoRule struct{}

// Evaluate implements HitRule.
func (NoRule) Evaluate(HitInput) HitOutcome { return HitOutcome{} }

// Reset implements HitRule.
func (NoRule) Reset() {}
