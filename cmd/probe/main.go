package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/riskmap/internal/probe"
)

// Default configuration constants.
const (
	defaultRepeats      = 20
	defaultTimeout      = 30 * time.Second
	defaultProbeTimeout = 10 * time.Minute
	defaultDimension    = 1024
)

func main() {
	var (
		baseURL = flag.String("url", "http://localhost:9080", "Base URL of the service")
		area    = flag.String("area", "", "Treatment area to probe (default: all areas)")
		repeats = flag.Int("repeats", defaultRepeats, "Number of identical analyses per area")
		workers = flag.Int("workers", runtime.NumCPU(), "Number of concurrent workers")
		timeout = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		width   = flag.Int("width", defaultDimension, "Synthetic image width in pixels")
		height  = flag.Int("height", defaultDimension, "Synthetic image height in pixels")
		logFile = flag.String("log", "", "Log file for probe output (default: probe_log_TIMESTAMP.log)")
		verbose = flag.Bool("verbose", false, "Enable verbose logging")
		help    = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		probe.ShowHelp()
		return
	}

	// Setup logging
	if err := probe.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), defaultProbeTimeout)
	defer cancel()

	// Create probe configuration
	config := &probe.Config{
		BaseURL:     *baseURL,
		Area:        *area,
		Repeats:     *repeats,
		Workers:     *workers,
		Timeout:     *timeout,
		ImageWidth:  *width,
		ImageHeight: *height,
		LogFile:     *logFile,
		Verbose:     *verbose,
	}

	// Run the probe
	if err := probe.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Probe failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
