// Package publisher delivers finished session records to the outside world.
package publisher

import (
	"context"

	"github.com/okian/motionplay/internal/domain/model"
	"github.com/okian/motionplay/pkg/logger"
)

// Log writes each record to the structured log. It is the default when no
// broker is configured.
type Log struct {
	log logger.Logger
}

// NewLog creates a log publisher. A nil logger uses the global one.
func NewLog(l logger.Logger) *Log {
	if l == nil {
		l = logger.Get().Named("publisher")
	}
	return &Log{log: l}
}

// Publish implements worker.Publisher.
func (p *Log) Publish(ctx context.Context, r model.SessionRecord) error { //nolint:gocritic // hugeParam: matches worker.Publisher
	fields := []logger.Field{
		logger.String("session_id", r.ID),
		logger.String("kind", string(r.Challenge.Kind)),
		logger.String("state", r.StateName),
		logger.Duration("played", r.EndedAt.Sub(r.StartedAt)),
	}
	if r.Result != nil {
		fields = append(fields,
			logger.Int("raw_count", r.Result.RawCount),
			logger.Int("opportunities", r.Result.TotalOpportunities),
			logger.Int("stars", r.Result.Stars),
			logger.Int("coins", r.Result.Coins),
		)
	}
	p.log.Info(ctx, "session finished", fields...)
	return nil
}

// Close implements io.Closer.
func (*Log) Close() error { return nil }
