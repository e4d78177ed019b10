// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Keep fields unexported where possible and use functional options.
// - Provide New(...Option) initializer to build a Config with defaults.
// - All future functions must accept context.Context as the first parameter.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"context"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// RulesDir overrides the embedded rule files with a directory of
	// YAML rule sets. Empty means embedded rules.
	RulesDir string `koanf:"rules_dir"`

	// StrictSafety drops unsafe injection points instead of flagging them.
	StrictSafety bool `koanf:"strict_safety"`

	// ConfidenceThreshold is the minimum landmark confidence before the
	// engine falls back to template positioning.
	ConfidenceThreshold float64 `koanf:"confidence_threshold"`

	// GuardCacheSize bounds the determinism guard snapshot cache.
	GuardCacheSize int `koanf:"guard_cache_size"`

	// GuardTolerancePx is the coordinate drift tolerance for repeated
	// analyses of identical input.
	GuardTolerancePx float64 `koanf:"guard_tolerance_px"`

	// AlignFaces enables eye-line rotation correction before rule
	// evaluation.
	AlignFaces bool `koanf:"align_faces"`

	// MaxImageDimension caps the longest edge of processed images.
	MaxImageDimension int `koanf:"max_image_dimension"`
}

// New creates a Config using provided options. Context is accepted first to
// satisfy the project-wide convention; it is reserved for future use (e.g.,
// loading from env/files) and is currently unused.
func New(_ context.Context) *Config {
	c := &Config{
		LogLevel:            "info",
		Addr:                ":9080",
		RulesDir:            "",
		StrictSafety:        false,
		ConfidenceThreshold: 0.5,
		GuardCacheSize:      1024,
		GuardTolerancePx:    2.0,
		AlignFaces:          true,
		MaxImageDimension:   1024,
	}
	return c
}
