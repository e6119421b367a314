package main

import (
	"context"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/okian/motionplay/internal/domain/model"
	"github.com/okian/motionplay/internal/loadgen"
)

// Default configuration constants.
const (
	defaultSessions   = 50
	defaultWorkers    = 8
	defaultDuration   = 5
	defaultTimeout    = 30 * time.Second
	defaultRunTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		sessions   = flag.Int("sessions", defaultSessions, "Number of sessions to play")
		workers    = flag.Int("workers", defaultWorkers, "Number of concurrent players")
		duration   = flag.Int("duration", defaultDuration, "Challenge length in seconds")
		difficulty = flag.Float64("difficulty", 1, "Challenge difficulty")
		kinds      = flag.String("kinds", "", "Comma separated exercise kinds")
		taps       = flag.Int("taps", loadgen.DefaultTaps, "Taps attempted per interactive session")
		poll       = flag.Duration("poll", loadgen.DefaultPollInterval, "Delay between session polls")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile = flag.String("output", "", "Output file for session outcomes")
		logFile    = flag.String("log", "", "Log file for run output (default: loadgen_TIMESTAMP.log)")
		verbose    = flag.Bool("verbose", false, "Log every finished session")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		loadgen.ShowHelp()
		return
	}

	closer, err := loadgen.SetupLogging(*logFile)
	if err != nil {
		_, _ = os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = closer.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	config := &loadgen.Config{
		BaseURL:      strings.TrimRight(*baseURL, "/"),
		Sessions:     *sessions,
		Workers:      *workers,
		Duration:     *duration,
		Difficulty:   *difficulty,
		Kinds:        parseKinds(*kinds),
		Taps:         *taps,
		PollInterval: *poll,
		Timeout:      *timeout,
		OutputFile:   *outputFile,
		LogFile:      *logFile,
		Verbose:      *verbose,
	}

	if _, err := loadgen.Run(ctx, config); err != nil {
		_, _ = os.Stderr.WriteString("Run failed: " + err.Error() + "\n")
		cancel()
		os.Exit(1) //nolint:gocritic // exitAfterDefer
	}
}

func parseKinds(raw string) []model.ExerciseKind {
	var out []model.ExerciseKind
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, model.ExerciseKind(k))
		}
	}
	return out
}
