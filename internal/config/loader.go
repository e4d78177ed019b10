package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New(ctx))
//  2. file (YAML) if RISKMAP_CONFIG is set
//  3. env (prefix RISKMAP_)
func Load(ctx context.Context) (*Config, error) {
	// Start with defaults
	base := New(ctx)

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("RISKMAP_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: RISKMAP_ADDR, RISKMAP_STRICT_SAFETY, ...
	// Map env keys like RISKMAP_STRICT_SAFETY -> strict_safety (flat keys)
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("RISKMAP_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "riskmap_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Basic validation
	if cfg.Addr == "" {
		return nil, fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if cfg.ConfidenceThreshold < 0 || cfg.ConfidenceThreshold > 1 {
		return nil, fmt.Errorf("%w: confidence_threshold must be within [0, 1]", ErrInvalidConfig)
	}
	if cfg.GuardTolerancePx < 0 {
		return nil, fmt.Errorf("%w: guard_tolerance_px must not be negative", ErrInvalidConfig)
	}
	if cfg.MaxImageDimension <= 0 {
		return nil, fmt.Errorf("%w: max_image_dimension must be positive", ErrInvalidConfig)
	}
	return &cfg, nil
}
