package rules

import "errors"

// Sentinel kinds for rule errors. ErrUnknownArea and ErrConfiguration are
// hard failures (deployment bugs); ErrDegenerateGeometry is absorbed into
// per-rule warnings and never aborts an evaluation.
var (
	ErrUnknownArea        = errors.New("unknown treatment area")
	ErrConfiguration      = errors.New("invalid rule configuration")
	ErrDegenerateGeometry = errors.New("degenerate geometry")
)
