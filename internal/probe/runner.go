package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/riskmap/pkg/logger"
)

// Run executes the complete probe: a health check, a determinism sweep
// over every requested area, a fallback totality check and an unknown
// area check.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting risk map probe",
		logger.String("baseURL", config.BaseURL),
		logger.String("area", config.Area),
		logger.Int("repeats", config.Repeats),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.Int("imageWidth", config.ImageWidth),
		logger.Int("imageHeight", config.ImageHeight),
		logger.Any("verbose", config.Verbose))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Discover areas
	areas, err := resolveAreas(ctx, config)
	if err != nil {
		return fmt.Errorf("area discovery failed: %w", err)
	}

	// Step 3: Determinism sweep per area
	for _, area := range areas {
		if err := probeArea(ctx, config, area, stats); err != nil {
			return fmt.Errorf("determinism probe for %s failed: %w", area, err)
		}
		stats.AreasProbed++
	}

	// Step 4: Fallback totality check
	if err := verifyFallbackTotality(ctx, config, areas[0], stats); err != nil {
		return fmt.Errorf("fallback verification failed: %w", err)
	}

	// Step 5: Unknown area check
	if err := verifyUnknownArea(ctx, config, stats); err != nil {
		return fmt.Errorf("unknown area verification failed: %w", err)
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	if stats.VerificationsFailed > 0 || stats.DivergentResponses > 0 {
		return fmt.Errorf("probe found %d verification failures and %d divergent responses",
			stats.VerificationsFailed, stats.DivergentResponses)
	}

	logger.Get().Info(ctx, "probe completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/healthz"

	resp, err := client.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	// Accept any 200 response as healthy (the service returns Prometheus metrics)
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// resolveAreas returns the configured area, or every area the service
// reports when none was configured.
func resolveAreas(ctx context.Context, config *Config) ([]string, error) {
	if config.Area != "" {
		return []string{config.Area}, nil
	}

	client := newHTTPClient(config.Timeout)
	resp, err := client.Get(ctx, config.BaseURL+"/areas")
	if err != nil {
		return nil, fmt.Errorf("failed to list areas: %w", err)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != StatusOK {
		return nil, fmt.Errorf("area listing failed with status: %d", resp.StatusCode)
	}

	var parsed areasResponse
	if err := jsonAPI.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse area listing: %w", err)
	}
	if len(parsed.Areas) == 0 {
		return nil, fmt.Errorf("service reports no areas")
	}

	logger.Get().Info(ctx, "discovered areas", logger.Any("areas", parsed.Areas))
	return parsed.Areas, nil
}

// displayFinalStats prints the final probe statistics.
func displayFinalStats(stats *Stats) {
	var successRate float64
	if stats.AnalysesSubmitted > 0 {
		successRate = float64(stats.AnalysesSuccessful) / float64(stats.AnalysesSubmitted) * PercentageMultiplier
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("areasProbed", stats.AreasProbed),
		logger.Int("analysesSubmitted", stats.AnalysesSubmitted),
		logger.Int("analysesSuccessful", stats.AnalysesSuccessful),
		logger.Int("analysesFailed", stats.AnalysesFailed),
		logger.Int("divergentResponses", stats.DivergentResponses),
		logger.Int("fallbackChecks", stats.FallbackChecks),
		logger.Int("unknownAreaChecks", stats.UnknownAreaChecks),
		logger.Int("verificationsFailed", stats.VerificationsFailed),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("successRate", successRate))
}
