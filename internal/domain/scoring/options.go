package scoring

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithOpportunities makes the aggregator count spawned targets as the
// denominator. Raw-count modes leave it off and report a denominator of 1.
func WithOpportunities(enabled bool) Option {
	return func(a *Aggregator) {
		a.opportunities = enabled
	}
}
