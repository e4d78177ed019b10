package probe

import "time"

// HTTP status constants used when interpreting service responses.
const (
	StatusOK       = 200
	StatusNotFound = 404
)

// Timing constants.
const (
	ProgressReportInterval = 1 * time.Second
	PercentageMultiplier   = 100.0
)
