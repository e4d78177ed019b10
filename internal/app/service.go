// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/riskmap/internal/domain/determinism"
	"github.com/okian/riskmap/internal/domain/fallback"
	"github.com/okian/riskmap/internal/domain/geometry"
	"github.com/okian/riskmap/internal/domain/landmark"
	"github.com/okian/riskmap/internal/domain/model"
	"github.com/okian/riskmap/internal/domain/rules"
	"github.com/okian/riskmap/internal/domain/safety"
	"github.com/okian/riskmap/pkg/logger"
	"github.com/okian/riskmap/pkg/metrics"
)

// ErrNotStarted is returned when Analyze is called before Start.
var ErrNotStarted = errors.New("service not started")

// AnalyzeRequest carries one analysis input. Landmarks are pixel
// coordinates in the processed image space.
type AnalyzeRequest struct {
	Area        string
	Landmarks   []geometry.Point
	ImageWidth  int
	ImageHeight int
	Confidence  float64
}

// Service wires the rule store, landmark normalizer, rule engine,
// safety validator, determinism guard and fallback provider into one
// analysis pipeline.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      *rules.Store
	engine     *rules.Engine
	normalizer *landmark.Normalizer
	validator  *safety.Validator
	guard      *determinism.Guard
	templates  *fallback.Provider
	topo       *landmark.Topology

	// Configuration
	rulesDir            string
	strictSafety        bool
	confidenceThreshold float64
	guardCacheSize      int
	guardTolerancePx    float64
	alignFaces          bool

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRulesDir loads rule files from a directory instead of the
// embedded defaults.
func WithRulesDir(dir string) Option {
	return func(s *Service) {
		s.rulesDir = dir
	}
}

// WithStrictSafety drops unsafe points instead of flagging them.
func WithStrictSafety(strict bool) Option {
	return func(s *Service) {
		s.strictSafety = strict
	}
}

// WithConfidenceThreshold sets the landmark confidence below which the
// service falls back to template positioning.
func WithConfidenceThreshold(threshold float64) Option {
	return func(s *Service) {
		if threshold >= 0 && threshold <= 1 {
			s.confidenceThreshold = threshold
		}
	}
}

// WithGuardCacheSize bounds the determinism guard snapshot cache.
func WithGuardCacheSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.guardCacheSize = size
		}
	}
}

// WithGuardTolerance sets the pixel drift tolerance for repeated
// analyses of identical input.
func WithGuardTolerance(px float64) Option {
	return func(s *Service) {
		if px >= 0 {
			s.guardTolerancePx = px
		}
	}
}

// WithAlignment enables or disables eye-line rotation correction.
func WithAlignment(align bool) Option {
	return func(s *Service) {
		s.alignFaces = align
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		confidenceThreshold: 0.5,
		guardCacheSize:      1024,
		guardTolerancePx:    2.0,
		alignFaces:          true,
		logger:              nil, // Will be replaced when service starts
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components. Rule files are
// loaded and validated here so a malformed rule set fails the process
// at startup.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	// Initialize logger if not already set
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting risk map service...")

	s.topo = landmark.FaceMesh()

	var storeOpts []rules.Option
	if s.rulesDir != "" {
		storeOpts = append(storeOpts, rules.WithRulesDir(s.rulesDir))
	}
	store, err := rules.NewStore(s.topo, storeOpts...)
	if err != nil {
		return fmt.Errorf("load rule store: %w", err)
	}
	s.store = store

	var safetyOpts []safety.Option
	if s.strictSafety {
		safetyOpts = append(safetyOpts, safety.WithStrictMode())
	}

	s.engine = rules.NewEngine()
	s.normalizer = landmark.NewNormalizer(s.topo)
	s.validator = safety.NewValidator(safetyOpts...)
	s.guard = determinism.NewGuard(
		determinism.WithMaxSize(s.guardCacheSize),
		determinism.WithTolerance(s.guardTolerancePx),
	)
	s.templates = fallback.NewProvider()

	metrics.UpdateRuleAreasLoaded(len(s.store.Areas()))

	s.started = true
	s.logger.Info(ctx, "risk map service started",
		logger.Int("areas", len(s.store.Areas())),
		logger.Bool("strictSafety", s.strictSafety),
		logger.Float64("confidenceThreshold", s.confidenceThreshold),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.started = false
	s.logger.Info(context.Background(), "risk map service stopped")
}

// Analyze runs the full pipeline for one landmark set. It fails only
// for an unknown area or an unstarted service; every landmark-quality
// problem degrades to the template fallback instead.
func (s *Service) Analyze(ctx context.Context, req AnalyzeRequest) (model.AnalysisResult, error) {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return model.AnalysisResult{}, ErrNotStarted
	}

	start := time.Now()
	area := strings.ToLower(strings.TrimSpace(req.Area))

	set, err := s.store.Get(area)
	if err != nil {
		metrics.RecordAnalysis(area, "error")
		return model.AnalysisResult{}, err
	}

	if len(req.Landmarks) < s.topo.MinCount() || req.Confidence < s.confidenceThreshold {
		s.logger.Info(ctx, "falling back to template positioning",
			logger.String("area", area),
			logger.Int("landmarks", len(req.Landmarks)),
			logger.Float64("confidence", req.Confidence),
		)
		return s.fallbackResult(start, area, set, req), nil
	}

	face, err := s.normalizer.Normalize(landmark.Set{
		Points:     req.Landmarks,
		Width:      req.ImageWidth,
		Height:     req.ImageHeight,
		Confidence: req.Confidence,
	}, s.alignFaces)
	if err != nil {
		s.logger.Warn(ctx, "landmark normalization failed, using template fallback",
			logger.String("area", area),
			logger.Error(err),
		)
		return s.fallbackResult(start, area, set, req), nil
	}

	ev := s.engine.Evaluate(face, set)
	metrics.RecordRulesEvaluated(len(set.Points) + len(set.Zones))
	for range ev.Warnings {
		metrics.RecordRuleSkipped()
	}

	kept, flags := s.validator.Validate(ev.Points, ev.Zones, set)
	for _, flag := range flags {
		metrics.RecordSafetyFlag(string(flag.Kind))
	}
	if dropped := len(ev.Points) - len(kept); dropped > 0 {
		for i := 0; i < dropped; i++ {
			metrics.RecordPointDropped()
		}
	}

	result := model.AnalysisResult{
		AnalysisID:  uuid.NewString(),
		Area:        area,
		ImageWidth:  req.ImageWidth,
		ImageHeight: req.ImageHeight,
		Points:      kept,
		Zones:       ev.Zones,
		Confidence:  face.Confidence,
		Fallback:    false,
		ContentHash: determinism.ContentHash(face.Points, area, set.Version),
		RuleVersion: set.Version,
		Warnings:    ev.Warnings,
	}
	for _, flag := range flags {
		result.Warnings = append(result.Warnings, flag.Detail)
	}

	report := s.guard.Check(ctx, result.ContentHash, result)
	if report.Hit {
		metrics.RecordGuardHit()
	}
	if report.Diverged {
		metrics.RecordGuardDivergence()
		s.logger.Error(ctx, "repeated analysis diverged beyond tolerance",
			logger.String("contentHash", result.ContentHash),
			logger.Float64("maxDeltaPx", report.MaxDeltaPx),
			logger.Int("comparedPoints", report.ComparedPoints),
		)
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"Repeat analysis moved coordinates by %.2fpx", report.MaxDeltaPx))
	}
	metrics.UpdateGuardCacheSize(s.guard.Size())

	result.ProcessingMS = time.Since(start).Milliseconds()
	metrics.RecordAnalysis(area, "ok")
	metrics.RecordAnalysisLatency(float64(result.ProcessingMS))

	return result, nil
}

// Areas returns the treatment areas with a loaded rule set.
func (s *Service) Areas(_ context.Context) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return nil
	}
	return s.store.Areas()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":             s.started,
		"strictSafety":        s.strictSafety,
		"confidenceThreshold": s.confidenceThreshold,
		"alignFaces":          s.alignFaces,
	}

	if s.started {
		stats["areas"] = s.store.Areas()
		stats["guardCacheSize"] = s.guard.Size()
		metrics.UpdateGuardCacheSize(s.guard.Size())
	}

	return stats
}

// fallbackResult builds a template-based result with identity fields
// filled in so the response shape matches the landmark-driven path.
func (s *Service) fallbackResult(start time.Time, area string, set *rules.RuleSet, req AnalyzeRequest) model.AnalysisResult {
	result := s.templates.Layout(area, req.ImageWidth, req.ImageHeight)
	result.AnalysisID = uuid.NewString()
	result.RuleVersion = set.Version
	result.ContentHash = determinism.ContentHash(imageUnitPoints(req), area, set.Version)
	result.ProcessingMS = time.Since(start).Milliseconds()

	metrics.RecordAnalysis(area, "fallback")
	metrics.RecordAnalysisLatency(float64(result.ProcessingMS))
	return result
}

// imageUnitPoints scales raw landmarks by image dimensions so fallback
// hashes stay resolution-independent too.
func imageUnitPoints(req AnalyzeRequest) []geometry.Point {
	if req.ImageWidth <= 0 || req.ImageHeight <= 0 {
		return nil
	}
	unit := make([]geometry.Point, len(req.Landmarks))
	for i, p := range req.Landmarks {
		unit[i] = geometry.Point{
			X: p.X / float64(req.ImageWidth),
			Y: p.Y / float64(req.ImageHeight),
		}
	}
	return unit
}
