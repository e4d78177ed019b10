package probe

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/okian/riskmap/pkg/logger"
)

// probeArea submits the same synthetic landmark set Repeats times with
// the configured worker count and verifies every response is coordinate
// identical to the first.
func probeArea(ctx context.Context, config *Config, area string, stats *Stats) error {
	logger.Get().Info(ctx, "probing area for determinism",
		logger.String("area", area),
		logger.Int("repeats", config.Repeats))

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/analyze"

	request := analyzeRequest{
		Area:        area,
		ImageWidth:  config.ImageWidth,
		ImageHeight: config.ImageHeight,
		Landmarks:   GenerateLandmarks(config.ImageWidth, config.ImageHeight),
		Confidence:  0.95,
	}

	// Counters for statistics
	var (
		successful int64
		failed     int64
	)

	bodies := make([][]byte, config.Repeats)

	// Create worker pool
	indexChan := make(chan int, config.Workers*2)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for idx := range indexChan {
				select {
				case <-ctx.Done():
					return
				default:
					body, ok := submitSingleAnalysis(ctx, client, url, request)
					if ok {
						atomic.AddInt64(&successful, 1)
						bodies[idx] = body
					} else {
						atomic.AddInt64(&failed, 1)
					}
				}
			}
		}()
	}

	// Send indices to workers
	go func() {
		defer close(indexChan)
		for i := 0; i < config.Repeats; i++ {
			select {
			case <-ctx.Done():
				return
			case indexChan <- i:
			}
		}
	}()

	// Wait for all workers to complete
	wg.Wait()

	stats.AnalysesSubmitted += config.Repeats
	stats.AnalysesSuccessful += int(atomic.LoadInt64(&successful))
	stats.AnalysesFailed += int(atomic.LoadInt64(&failed))

	return compareResponses(ctx, area, bodies, stats)
}

// submitSingleAnalysis submits one analysis and returns the raw body.
func submitSingleAnalysis(ctx context.Context, client *HTTPClient, url string, request analyzeRequest) ([]byte, bool) {
	resp, err := client.Post(ctx, url, request)
	if err != nil {
		return nil, false
	}
	body, err := readResponseBody(resp)
	if err != nil || resp.StatusCode != StatusOK {
		return nil, false
	}
	return body, true
}

// compareResponses checks that every successful response carries the
// same content hash and byte-identical injection point coordinates as
// the first one. AnalysisID and processing time legitimately differ, so
// the comparison re-serializes only the coordinate-bearing fields.
func compareResponses(ctx context.Context, area string, bodies [][]byte, stats *Stats) error {
	var reference []byte
	var referenceHash string

	for _, body := range bodies {
		if body == nil {
			continue
		}
		var parsed analyzeResponse
		if err := jsonAPI.Unmarshal(body, &parsed); err != nil {
			stats.VerificationsFailed++
			logger.Get().Error(ctx, "unparseable analyze response", logger.String("area", area), logger.Error(err))
			continue
		}
		if parsed.Fallback {
			stats.VerificationsFailed++
			logger.Get().Error(ctx, "high-confidence synthetic face triggered fallback", logger.String("area", area))
			continue
		}

		comparable, err := jsonAPI.Marshal(struct {
			Points []injectionPoint `json:"points"`
			Zones  []riskZone       `json:"zones"`
		}{parsed.Points, parsed.Zones})
		if err != nil {
			stats.VerificationsFailed++
			continue
		}

		if reference == nil {
			reference = comparable
			referenceHash = parsed.ContentHash
			continue
		}
		if parsed.ContentHash != referenceHash {
			stats.DivergentResponses++
			logger.Get().Error(ctx, "content hash diverged between identical requests",
				logger.String("area", area),
				logger.String("expected", referenceHash),
				logger.String("got", parsed.ContentHash))
			continue
		}
		if !bytes.Equal(comparable, reference) {
			stats.DivergentResponses++
			logger.Get().Error(ctx, "coordinates diverged between identical requests",
				logger.String("area", area))
		}
	}

	if reference == nil {
		return fmt.Errorf("no successful responses for area %s", area)
	}

	logger.Get().Info(ctx, "determinism verified",
		logger.String("area", area),
		logger.String("contentHash", referenceHash))
	return nil
}

// verifyFallbackTotality submits an empty landmark set and expects a
// successful, clearly flagged template response with no risk zones.
func verifyFallbackTotality(ctx context.Context, config *Config, area string, stats *Stats) error {
	logger.Get().Info(ctx, "verifying fallback totality", logger.String("area", area))
	stats.FallbackChecks++

	client := newHTTPClient(config.Timeout)
	request := analyzeRequest{
		Area:        area,
		ImageWidth:  config.ImageWidth,
		ImageHeight: config.ImageHeight,
		Landmarks:   nil,
		Confidence:  0.0,
	}

	resp, err := client.Post(ctx, config.BaseURL+"/analyze", request)
	if err != nil {
		return fmt.Errorf("fallback request failed: %w", err)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return err
	}
	if resp.StatusCode != StatusOK {
		stats.VerificationsFailed++
		return fmt.Errorf("fallback request returned status %d, want %d", resp.StatusCode, StatusOK)
	}

	var parsed analyzeResponse
	if err := jsonAPI.Unmarshal(body, &parsed); err != nil {
		return fmt.Errorf("failed to parse fallback response: %w", err)
	}
	if !parsed.Fallback {
		stats.VerificationsFailed++
		return fmt.Errorf("empty landmark set did not trigger fallback")
	}
	if len(parsed.Zones) != 0 {
		stats.VerificationsFailed++
		return fmt.Errorf("fallback response carries %d risk zones, want none", len(parsed.Zones))
	}

	logger.Get().Info(ctx, "fallback totality verified", logger.Int("templatePoints", len(parsed.Points)))
	return nil
}

// verifyUnknownArea submits a nonexistent area and expects a 404.
func verifyUnknownArea(ctx context.Context, config *Config, stats *Stats) error {
	logger.Get().Info(ctx, "verifying unknown area handling")
	stats.UnknownAreaChecks++

	client := newHTTPClient(config.Timeout)
	request := analyzeRequest{
		Area:        "earlobes",
		ImageWidth:  config.ImageWidth,
		ImageHeight: config.ImageHeight,
		Landmarks:   GenerateLandmarks(config.ImageWidth, config.ImageHeight),
		Confidence:  0.95,
	}

	resp, err := client.Post(ctx, config.BaseURL+"/analyze", request)
	if err != nil {
		return fmt.Errorf("unknown area request failed: %w", err)
	}
	if _, err := readResponseBody(resp); err != nil {
		return err
	}
	if resp.StatusCode != StatusNotFound {
		stats.VerificationsFailed++
		return fmt.Errorf("unknown area returned status %d, want %d", resp.StatusCode, StatusNotFound)
	}

	logger.Get().Info(ctx, "unknown area handling verified")
	return nil
}
