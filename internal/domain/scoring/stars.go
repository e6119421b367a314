package scoring

import "github.com/okian/motionplay/internal/domain/model"

// DefaultCoinsPerStar converts stars to the derived coin score.
const DefaultCoinsPerStar = 10

// Default breakpoints.
var (
	DefaultJumpBreakpoints  = [3]int{5, 10, 20}
	DefaultPunchBreakpoints = [3]int{3, 6, 16}
	DefaultComplianceTiers  = [3]float64{0.5, 0.7, 0.9}
)

// DefaultInstantFail is the compliance ratio below which no stars are awarded.
const DefaultInstantFail = 0.5

// StarPolicy maps final counters to 0..3 stars.
type StarPolicy interface {
	Stars(s model.Score) int
}

// CountThreshold awards one star per breakpoint reached by the raw event count.
type CountThreshold struct {
	Breakpoints [3]int
}

// Stars implements StarPolicy.
func (c CountThreshold) Stars(s model.Score) int {
	stars := 0
	for _, bp := range c.Breakpoints {
		if s.EventCount >= bp {
			stars++
		}
	}
	return stars
}

// ComplianceRatio awards stars by hits over opportunities. A ratio below
// InstantFail scores zero without looking at the tiers.
type ComplianceRatio struct {
	InstantFail float64
	Tiers       [3]float64
}

// Stars implements StarPolicy.
func (c ComplianceRatio) Stars(s model.Score) int {
	ratio := Ratio(s)
	if ratio < c.InstantFail {
		return 0
	}
	stars := 0
	for _, tier := range c.Tiers {
		if ratio >= tier {
			stars++
		}
	}
	return stars
}

// Ratio is EventCount over TotalOpportunities; zero when there were none.
func Ratio(s model.Score) float64 {
	if s.TotalOpportunities <= 0 {
		return 0
	}
	return float64(s.EventCount) / float64(s.TotalOpportunities)
}

// Build freezes the counters into a Result.
func Build(s model.Score, policy StarPolicy, coinsPerStar int) model.Result {
	stars := 0
	if policy != nil {
		stars = clampStars(policy.Stars(s))
	}
	total := s.TotalOpportunities
	if total <= 0 {
		total = 1
	}
	return model.Result{
		RawCount:           s.EventCount,
		SecondaryCount:     s.SecondaryCount,
		TotalOpportunities: total,
		Stars:              stars,
		Coins:              stars * coinsPerStar,
	}
}

func clampStars(n int) int {
	switch {
	case n < 0:
		return 0
	case n > 3:
		return 3
	default:
		return n
	}
}
