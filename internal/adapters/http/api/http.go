// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	service "github.com/okian/riskmap/internal/app"
	"github.com/okian/riskmap/internal/domain/geometry"
	"github.com/okian/riskmap/internal/domain/model"
)

// jsonAPI is the codec for all request and response bodies.
var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals // shared codec instance

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Analyze runs the rule pipeline for one landmark set.
	Analyze(ctx context.Context, req AnalyzeRequest) (model.AnalysisResult, error)

	// Areas lists the treatment areas with a loaded rule set.
	Areas(ctx context.Context) []string
}

// AnalyzeRequest mirrors the pipeline input shape built by handlers.
type AnalyzeRequest = service.AnalyzeRequest

// ImageProcessor prepares uploaded images and maps results between the
// original and processed coordinate spaces.
type ImageProcessor interface {
	Process(ctx context.Context, payload string) (Processed, error)
	ScaleLandmarks(points []geometry.Point, proc Processed) []geometry.Point
	RestoreResult(result model.AnalysisResult, proc Processed) model.AnalysisResult
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	analyzeHandler *AnalyzeHandler
	areasHandler   *AreasHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, processor ImageProcessor) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		analyzeHandler: NewAnalyzeHandler(deps, processor),
		areasHandler:   NewAreasHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/analyze", MetricsMiddleware(s.analyzeHandler.HandleAnalyze, "analyze"))
	mux.HandleFunc("/areas", MetricsMiddleware(s.areasHandler.HandleGetAreas, "areas"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = jsonAPI.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
