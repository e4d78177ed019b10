// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/riskmap/internal/adapters/imageproc"
	"github.com/okian/riskmap/internal/domain/geometry"
	"github.com/okian/riskmap/internal/domain/rules"
)

// Processed mirrors the image processor output shape.
type Processed = imageproc.Processed

// analyzeRequest mirrors the OpenAPI schema for POST /analyze. Either
// an image payload or explicit image dimensions must be present;
// landmark coordinates are pixels in the submitted image space.
type analyzeRequest struct {
	Area        string           `json:"area"`
	Image       string           `json:"image,omitempty"`
	ImageWidth  int              `json:"image_width,omitempty"`
	ImageHeight int              `json:"image_height,omitempty"`
	Landmarks   []geometry.Point `json:"landmarks"`
	Confidence  float64          `json:"confidence"`
}

func (a analyzeRequest) validate() error {
	switch {
	case strings.TrimSpace(a.Area) == "":
		return errors.New("missing area")
	case a.Image == "" && (a.ImageWidth <= 0 || a.ImageHeight <= 0):
		return errors.New("missing image or image dimensions")
	case a.Confidence < 0 || a.Confidence > 1:
		return errors.New("confidence must be within [0, 1]")
	}
	return nil
}

// AnalyzeHandler handles analysis requests.
type AnalyzeHandler struct {
	deps      Dependencies
	processor ImageProcessor
}

// NewAnalyzeHandler creates a new analyze handler.
func NewAnalyzeHandler(deps Dependencies, processor ImageProcessor) *AnalyzeHandler {
	return &AnalyzeHandler{deps: deps, processor: processor}
}

// HandleAnalyze handles POST /analyze requests. Landmark-quality
// problems never fail the request; the pipeline degrades to a template
// fallback and the response says so. Only malformed input, oversized
// payloads and unknown areas produce error statuses.
func (h *AnalyzeHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req analyzeRequest
	if err := jsonAPI.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}

	input := AnalyzeRequest{
		Area:        req.Area,
		Landmarks:   req.Landmarks,
		ImageWidth:  req.ImageWidth,
		ImageHeight: req.ImageHeight,
		Confidence:  req.Confidence,
	}

	var proc Processed
	if req.Image != "" {
		var err error
		proc, err = h.processor.Process(r.Context(), req.Image)
		if err != nil {
			writeError(w, imageStatus(err), "bad_image", err)
			return
		}
		input.Landmarks = h.processor.ScaleLandmarks(req.Landmarks, proc)
		input.ImageWidth = proc.Width
		input.ImageHeight = proc.Height
	}

	result, err := h.deps.Analyze(r.Context(), input)
	if err != nil {
		if errors.Is(err, rules.ErrUnknownArea) {
			writeError(w, http.StatusNotFound, "unknown_area", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", err)
		return
	}

	if req.Image != "" {
		result = h.processor.RestoreResult(result, proc)
	}
	writeJSON(w, http.StatusOK, result)
}

// imageStatus maps image pipeline failures to HTTP statuses.
func imageStatus(err error) int {
	if errors.Is(err, imageproc.ErrPayloadTooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}
