// Package loadgen plays many exercise sessions against a running service
// through its HTTP API and reports what came back.
package loadgen

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/okian/motionplay/internal/domain/model"
	"github.com/okian/motionplay/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	filePermission      = 0600
)

// Run executes the complete load run.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	applyDefaults(config)
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("loadgen")
	client := newHTTPClient(config.BaseURL, config.Timeout)

	log.Info(ctx, "starting motionplay load run",
		logger.String("baseURL", config.BaseURL),
		logger.Int("sessions", config.Sessions),
		logger.Int("workers", config.Workers),
		logger.Int("durationSeconds", config.Duration),
		logger.String("timeout", config.Timeout.String()),
		logger.Bool("verbose", config.Verbose))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, client); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Play sessions concurrently
	outcomes := playSessions(ctx, config, client, log)
	tally(outcomes, stats)

	// Step 3: Check finished sessions made it into the records
	if err := verifyRecords(ctx, client, outcomes, stats, log); err != nil {
		log.Warn(ctx, "record verification warning", logger.Error(err))
	}

	// Step 4: Read service statistics
	var svcStats map[string]any
	if _, err := client.Get(ctx, "/stats", &svcStats); err != nil {
		log.Warn(ctx, "failed to read service stats", logger.Error(err))
	} else {
		log.Info(ctx, "service statistics", logger.Any("stats", svcStats))
	}

	// Step 5: Save outcomes
	if config.OutputFile != "" {
		if err := saveOutcomes(ctx, config.OutputFile, outcomes); err != nil {
			log.Warn(ctx, "failed to save outcomes to file", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)

	if stats.SessionsCompleted == 0 {
		return stats, ErrNoSessions
	}
	log.Info(ctx, "run completed successfully")
	return stats, nil
}

func applyDefaults(c *Config) {
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.Duration <= 0 {
		c.Duration = 1
	}
	if c.Difficulty <= 0 {
		c.Difficulty = 1
	}
	if len(c.Kinds) == 0 {
		c.Kinds = DefaultKinds
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient) error {
	var body struct {
		Status string `json:"status"`
	}
	status, err := client.Get(ctx, "/healthz", &body)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if status != http.StatusOK || body.Status != "ok" {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, status)
	}
	return nil
}

// playSessions fans sessions out to a fixed pool of players.
func playSessions(ctx context.Context, config *Config, client *HTTPClient, log logger.Logger) []Outcome {
	outcomes := make([]Outcome, config.Sessions)
	jobs := make(chan int, config.Workers*WorkerChannelMultiplier)

	var wg sync.WaitGroup
	for w := 0; w < config.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := &player{client: client, cfg: config, log: log}
			for i := range jobs {
				outcomes[i] = p.play(ctx, config.Kinds[i%len(config.Kinds)])
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := 0; i < config.Sessions; i++ {
			select {
			case <-ctx.Done():
				return
			case jobs <- i:
			}
		}
	}()

	wg.Wait()
	return outcomes
}

func tally(outcomes []Outcome, stats *Stats) {
	for _, o := range outcomes {
		if o.ID != "" {
			stats.SessionsStarted++
		}
		stats.Taps += o.Taps
		stats.TapHits += o.Hits
		switch o.State {
		case model.StateComplete.String():
			stats.SessionsCompleted++
			if o.Result != nil {
				stats.Stars += o.Result.Stars
			}
		case model.StateCancelled.String():
			stats.SessionsCancelled++
		default:
			stats.SessionsFailed++
		}
	}
}

// verifyRecords checks every completed session appears in the record listing.
func verifyRecords(ctx context.Context, client *HTTPClient, outcomes []Outcome, stats *Stats, log logger.Logger) error {
	var recs []model.SessionRecord
	if _, err := client.Get(ctx, "/sessions?limit="+strconv.Itoa(recordsLimit), &recs); err != nil {
		return err
	}
	stats.RecordsListed = len(recs)

	seen := make(map[string]string, len(recs))
	for _, r := range recs {
		seen[r.ID] = r.StateName
	}
	missing := 0
	for _, o := range outcomes {
		if o.State != model.StateComplete.String() {
			continue
		}
		if _, ok := seen[o.ID]; !ok {
			missing++
		}
	}
	// The listing is capped, so only a short listing proves a record is gone.
	if missing > 0 && len(recs) < recordsLimit {
		return fmt.Errorf("%w: %d sessions", ErrMissingRecord, missing)
	}
	log.Info(ctx, "records verified", logger.Int("records", len(recs)))
	return nil
}

// saveOutcomes writes the session outcomes as a JSON array.
func saveOutcomes(ctx context.Context, filename string, outcomes []Outcome) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(outcomes, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal outcomes: %w", err)
	}
	if err := os.WriteFile(filename, data, filePermission); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	logger.Get().Info(ctx, "outcomes saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var completionRate, hitRate, sessionsPerSecond float64
	if stats.SessionsStarted > 0 {
		completionRate = float64(stats.SessionsCompleted) / float64(stats.SessionsStarted) * PercentageMultiplier
	}
	if stats.Taps > 0 {
		hitRate = float64(stats.TapHits) / float64(stats.Taps) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		sessionsPerSecond = float64(stats.SessionsStarted) / stats.Duration.Seconds()
	}

	log.Info(ctx, "final statistics",
		logger.Int("sessionsStarted", stats.SessionsStarted),
		logger.Int("sessionsCompleted", stats.SessionsCompleted),
		logger.Int("sessionsCancelled", stats.SessionsCancelled),
		logger.Int("sessionsFailed", stats.SessionsFailed),
		logger.Int("taps", stats.Taps),
		logger.Int("tapHits", stats.TapHits),
		logger.Int("stars", stats.Stars),
		logger.Int("recordsListed", stats.RecordsListed),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("completionRate", completionRate),
		logger.Float64("hitRate", hitRate),
		logger.Float64("sessionsPerSecond", sessionsPerSecond))
}
