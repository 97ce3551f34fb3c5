package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/budgetgm/internal/loadtest"
)

// Default configuration constants.
const (
	defaultEntrants    = 1000
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:8080", "Base URL of the service")
		date     = flag.String("date", "today", "Challenge date (YYYY-MM-DD or today)")
		entrants = flag.Int("entrants", defaultEntrants, "Number of distinct player names")
		resubmit = flag.Int("resubmit", 0, "Every Nth entrant submits a second roster (0 disables)")
		workers  = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent submitters")
		timeout  = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		seed     = flag.Int64("seed", time.Now().UnixNano(), "Roster generation seed")
		output   = flag.String("output", "", "Write generated entries to this JSON file")
		logFile  = flag.String("log", "", "Log file (default: loadtest_TIMESTAMP.log)")
		verbose  = flag.Bool("verbose", false, "Log every rejected or failed submission")
	)
	flag.Usage = func() {
		os.Stderr.WriteString(loadtest.Usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	closer, err := loadtest.SetupLogging(*logFile, *verbose)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = closer.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	cfg := &loadtest.Config{
		BaseURL:       *baseURL,
		Date:          *date,
		Entrants:      *entrants,
		ResubmitEvery: *resubmit,
		Workers:       *workers,
		Timeout:       *timeout,
		Seed:          *seed,
		OutputFile:    *output,
		Verbose:       *verbose,
	}
	if _, err := loadtest.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("Load run failed: " + err.Error() + "\n")
		cancel()
		os.Exit(1)
	}
}
