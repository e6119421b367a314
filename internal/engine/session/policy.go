package session

import (
	"fmt"
	"time"

	"github.com/okian/motionplay/internal/domain/hit"
	"github.com/okian/motionplay/internal/domain/model"
	"github.com/okian/motionplay/internal/domain/scoring"
	"github.com/okian/motionplay/internal/domain/targets"
	"github.com/okian/motionplay/internal/engine/render"
)

// Policy is what distinguishes one exercise from another: how hits are
// detected, whether targets spawn, and how the score becomes stars.
type Policy struct {
	Kind                model.ExerciseKind
	Rule                render.HitRule
	SpawnTargets        bool
	CountsOpportunities bool
	Stars               scoring.StarPolicy
	CoinsPerStar        int
	PoolOptions         []targets.Option
}

// PolicyConfig holds the tunable numbers behind the built-in policies.
type PolicyConfig struct {
	JumpBreakpoints  [3]int     `koanf:"jump_breakpoints"`
	PunchBreakpoints [3]int     `koanf:"punch_breakpoints"`
	InstantFail      float64    `koanf:"instant_fail"`
	ComplianceTiers  [3]float64 `koanf:"compliance_tiers"`
	CoinsPerStar     int        `koanf:"coins_per_star"`

	PunchDebounce time.Duration `koanf:"punch_debounce"`
	JumpThreshold float64       `koanf:"jump_threshold"`
	LandDebounce  time.Duration `koanf:"land_debounce"`
	TargetMaxAge  time.Duration `koanf:"target_max_age"`
	FallSpeed     float64       `koanf:"fall_speed"`
}

// DefaultPolicyConfig returns the stock tuning.
func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		JumpBreakpoints:  scoring.DefaultJumpBreakpoints,
		PunchBreakpoints: scoring.DefaultPunchBreakpoints,
		InstantFail:      scoring.DefaultInstantFail,
		ComplianceTiers:  scoring.DefaultComplianceTiers,
		CoinsPerStar:     scoring.DefaultCoinsPerStar,
		PunchDebounce:    hit.DefaultPunchDebounce,
		JumpThreshold:    hit.DefaultJumpThreshold,
		LandDebounce:     hit.DefaultLandDebounce,
		TargetMaxAge:     targets.DefaultMaxAge,
		FallSpeed:        180,
	}
}

// PolicyFor builds the policy of an interactive exercise kind. Every call
// returns fresh rule state.
func PolicyFor(kind model.ExerciseKind, cfg PolicyConfig) (Policy, error) {
	compliance := scoring.ComplianceRatio{InstantFail: cfg.InstantFail, Tiers: cfg.ComplianceTiers}
	p := Policy{Kind: kind, CoinsPerStar: cfg.CoinsPerStar}

	switch kind {
	case model.ExerciseTargets:
		p.Rule = render.TouchRule{}
		p.SpawnTargets, p.CountsOpportunities, p.Stars = true, true, compliance
		p.PoolOptions = []targets.Option{targets.WithMaxAge(cfg.TargetMaxAge)}
	case model.ExerciseFalling:
		p.Rule = render.TouchRule{}
		p.SpawnTargets, p.CountsOpportunities, p.Stars = true, true, compliance
		p.PoolOptions = []targets.Option{targets.WithFalling(cfg.FallSpeed)}
	case model.ExerciseBoxingTargets:
		p.Rule = &render.PunchTargetRule{}
		p.SpawnTargets, p.CountsOpportunities, p.Stars = true, true, compliance
		p.PoolOptions = []targets.Option{targets.WithMaxAge(cfg.TargetMaxAge)}
	case model.ExerciseBoxing:
		p.Rule = render.NewFreePunchRule(cfg.PunchDebounce)
		p.Stars = scoring.CountThreshold{Breakpoints: cfg.PunchBreakpoints}
	case model.ExerciseJump:
		p.Rule = render.NewJumpRule(hit.WithJumpThreshold(cfg.JumpThreshold), hit.WithLandDebounce(cfg.LandDebounce))
		p.Stars = scoring.CountThreshold{Breakpoints: cfg.JumpBreakpoints}
	case model.ExerciseRecorded:
		return Policy{}, fmt.Errorf("%s: %w", kind, ErrNotInteractive)
	default:
		return Policy{}, fmt.Errorf("%q: %w", kind, ErrUnknownKind)
	}
	return p, nil
}
