package loadtest

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/budgetgm/pkg/logger"
)

const logFilePermission = 0600

// SetupLogging logs to stdout and to logFile. An empty logFile gets a
// timestamped name.
func SetupLogging(logFile string, verbose bool) (io.Closer, error) {
	if logFile == "" {
		logFile = "loadtest_" + time.Now().Format("20060102_150405") + ".log"
	}
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}
	level := "info"
	if verbose {
		level = "debug"
	}
	if err := logger.Init(logger.WithOutput(io.MultiWriter(os.Stdout, file)), logger.WithLevel(level)); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return file, nil
}

// Usage is printed for -help.
const Usage = `Budget GM load tool

Submits random valid rosters for many player names concurrently, then checks
that the leaderboard ranks every entrant's latest submission correctly.

Usage:
  go run ./cmd/loadtest [options]

Examples:
  go run ./cmd/loadtest -entrants 2000 -workers 32
  go run ./cmd/loadtest -date 2024-03-01 -resubmit 5 -output entries.json

Options:
`
