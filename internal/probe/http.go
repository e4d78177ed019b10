package probe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// jsonAPI is the codec for probe request and response bodies.
var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals // shared codec instance

// HTTPClient wraps http.Client with timeout.
type HTTPClient struct {
	client  *http.Client
	timeout time.Duration
}

// newHTTPClient creates a new HTTP client with timeout.
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// Post performs a POST request with JSON body.
func (c *HTTPClient) Post(ctx context.Context, url string, body interface{}) (*http.Response, error) {
	jsonData, err := jsonAPI.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// readResponseBody reads and closes the response body.
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

// analyzeRequest mirrors the service's POST /analyze schema.
type analyzeRequest struct {
	Area        string  `json:"area"`
	ImageWidth  int     `json:"image_width"`
	ImageHeight int     `json:"image_height"`
	Landmarks   []Point `json:"landmarks"`
	Confidence  float64 `json:"confidence"`
}

// analyzeResponse carries the result fields the probe verifies.
type analyzeResponse struct {
	AnalysisID  string           `json:"analysis_id"`
	Area        string           `json:"area"`
	Points      []injectionPoint `json:"injection_points"`
	Zones       []riskZone       `json:"risk_zones"`
	Confidence  float64          `json:"confidence"`
	Fallback    bool             `json:"fallback"`
	ContentHash string           `json:"content_hash"`
	RuleVersion string           `json:"rule_version"`
}

type injectionPoint struct {
	RuleID   string `json:"rule_id"`
	Code     string `json:"code"`
	Position Point  `json:"position"`
}

type riskZone struct {
	RuleID   string  `json:"rule_id"`
	Severity string  `json:"severity"`
	Polygon  []Point `json:"polygon"`
}

type areasResponse struct {
	Areas []string `json:"areas"`
}
