package loadgen

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/okian/motionplay/internal/domain/model"
	"github.com/okian/motionplay/pkg/logger"
)

const randomFloatDivisor = 1000000

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// pickTarget returns the centre of a random live target.
func pickTarget(ts []model.Target) (model.Point, bool) {
	live := make([]model.Target, 0, len(ts))
	for _, t := range ts {
		if !t.Hit {
			live = append(live, t)
		}
	}
	if len(live) == 0 {
		return model.Point{}, false
	}
	i := int(getRandomFloat() * float64(len(live)))
	return live[min(i, len(live)-1)].Center(), true
}

// player drives one session through its whole lifecycle over the API.
type player struct {
	client *HTTPClient
	cfg    *Config
	log    logger.Logger
}

func (p *player) play(ctx context.Context, kind model.ExerciseKind) Outcome {
	out := Outcome{Kind: kind}

	var v view
	ch := model.Challenge{DurationSeconds: p.cfg.Duration, Kind: kind, Difficulty: p.cfg.Difficulty}
	if err := p.create(ctx, ch, &v); err != nil {
		out.Error = err.Error()
		return out
	}
	out.ID = v.ID
	path := "/sessions/" + v.ID
	defer func() {
		if _, err := p.client.Delete(context.WithoutCancel(ctx), path); err != nil {
			p.log.Warn(ctx, "failed to close session", logger.String("id", out.ID), logger.Error(err))
		}
	}()

	if err := p.initialize(ctx, path); err != nil {
		out.Error = err.Error()
		return out
	}
	if _, err := p.client.Post(ctx, path+"/start", nil, &v); err != nil {
		out.Error = err.Error()
		return out
	}

	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()
	for v.State == model.StateActive.String() {
		if interactive(kind) && out.Taps < p.cfg.Taps {
			if pt, ok := pickTarget(v.Targets); ok {
				var tr tapResponse
				if _, err := p.client.Post(ctx, path+"/tap", pt, &tr); err == nil {
					out.Taps++
					if tr.Hit {
						out.Hits++
					}
				}
			}
		}
		select {
		case <-ctx.Done():
			out.State = v.State
			out.Error = ctx.Err().Error()
			return out
		case <-ticker.C:
		}
		if _, err := p.client.Get(ctx, path, &v); err != nil {
			out.Error = err.Error()
			return out
		}
	}

	out.State = v.State
	out.Result = v.Result
	out.Error = v.Error
	if p.cfg.Verbose {
		p.log.Info(ctx, "session finished",
			logger.String("id", out.ID),
			logger.String("kind", string(kind)),
			logger.String("state", out.State),
			logger.Int("events", v.Score.EventCount),
			logger.Int("taps", out.Taps),
			logger.Int("hits", out.Hits))
	}
	return out
}

// create posts the challenge, retrying transport failures under one
// idempotency key.
func (p *player) create(ctx context.Context, ch model.Challenge, v *view) error {
	key := uuid.NewString()
	var err error
	for attempt := 0; attempt < maxCreateRetries; attempt++ {
		var status int
		status, err = p.client.PostOnce(ctx, "/sessions", key, ch, v)
		if err == nil || status != 0 {
			return err
		}
	}
	return err
}

// initialize acquires the camera, retrying while the service reports it busy.
func (p *player) initialize(ctx context.Context, path string) error {
	var err error
	for attempt := 0; attempt < maxInitRetries; attempt++ {
		var status int
		status, err = p.client.Post(ctx, path+"/initialize", nil, nil)
		if err == nil || status != http.StatusServiceUnavailable {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(initRetryDelay):
		}
	}
	if errors.Is(err, ErrUnexpected) {
		return fmt.Errorf("camera unavailable after %d attempts: %w", maxInitRetries, err)
	}
	return err
}
