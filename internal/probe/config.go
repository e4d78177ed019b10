// Package probe exercises a running risk map service with synthetic
// landmark sets and verifies that repeated analyses of identical input
// return identical coordinates.
package probe

import (
	"time"
)

// Config holds the probe run configuration.
type Config struct {
	BaseURL     string
	Area        string // empty means every area the service reports
	Repeats     int
	Workers     int
	Timeout     time.Duration
	ImageWidth  int
	ImageHeight int
	LogFile     string
	Verbose     bool
}

// Stats tracks probe run statistics.
type Stats struct {
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	AreasProbed         int
	AnalysesSubmitted   int
	AnalysesSuccessful  int
	AnalysesFailed      int
	DivergentResponses  int
	FallbackChecks      int
	UnknownAreaChecks   int
	VerificationsFailed int
}
