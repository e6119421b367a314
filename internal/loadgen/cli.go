package loadgen

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/motionplay/pkg/logger"
)

const logFilePermission = 0600

// SetupLogging sends log output to both the console and a file. If logFile
// is empty, a timestamped filename is generated. The returned closer
// releases the file.
func SetupLogging(logFile string) (io.Closer, error) {
	if logFile == "" {
		logFile = "loadgen_" + time.Now().Format("20060102_150405") + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}
	if err := logger.Init(logger.WithWriter(io.MultiWriter(os.Stdout, file))); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return file, nil
}

// ShowHelp prints usage information for the load generator.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`motionplay load generator
=========================

Plays exercise sessions against a running motionplay service through its
HTTP API: create, initialize, start, tap live targets, poll until the
session ends, then close it.

Usage:
  loadgen [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -sessions int
        Number of sessions to play (default 50)
  -workers int
        Number of concurrent players (default 8)
  -duration int
        Challenge length in seconds (default 5)
  -difficulty float
        Challenge difficulty (default 1)
  -kinds string
        Comma separated exercise kinds (default all live kinds)
  -taps int
        Taps attempted per interactive session (default 20)
  -poll duration
        Delay between session polls (default 100ms)
  -timeout duration
        HTTP request timeout (default 30s)
  -output string
        Output file for session outcomes
  -log string
        Log file for run output (default: loadgen_TIMESTAMP.log)
  -verbose
        Log every finished session
  -help
        Show this help message

Examples:
  loadgen -sessions 200 -workers 32
  loadgen -kinds jump,boxing -duration 10 -output outcomes.json
`)
}
