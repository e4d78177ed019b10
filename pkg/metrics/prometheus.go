// Package metrics provides Prometheus metrics for the risk map service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the risk map service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         prometheus.Registerer

	// Analysis Metrics - What really matters for a rule engine
	analysesTotal   *prometheus.CounterVec
	analysisLatency prometheus.Histogram
	rulesEvaluated  prometheus.Counter
	rulesSkipped    prometheus.Counter

	// Safety Metrics
	safetyFlags   *prometheus.CounterVec
	pointsDropped prometheus.Counter

	// Determinism Metrics
	guardHits       prometheus.Counter
	guardDivergence prometheus.Counter
	guardCacheSize  prometheus.Gauge

	// Image Pipeline Metrics
	imagesProcessed    prometheus.Counter
	imagesRejected     *prometheus.CounterVec
	imageDecodeLatency prometheus.Histogram

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Rule Store Metrics
	ruleAreasLoaded prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "riskmap",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	// Initialize metrics
	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	// Ensure metrics are registered on the configured registry (custom by default)
	auto := promauto.With(m.registry)

	// Analysis Metrics - Core engine throughput and quality
	m.analysesTotal = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "analyses_total",
			Help:      "Total number of analyses by treatment area and outcome",
		},
		[]string{"area", "outcome"},
	)

	m.analysisLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "analysis_latency_milliseconds",
		Help:      "Histogram of end-to-end analysis latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.rulesEvaluated = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rules_evaluated_total",
		Help:      "Total number of placement rules evaluated",
	})

	m.rulesSkipped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rules_skipped_total",
		Help:      "Total number of rules skipped due to degenerate or invalid geometry",
	})

	// Safety Metrics - Validation outcomes
	m.safetyFlags = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "safety_flags_total",
			Help:      "Total number of safety flags raised by flag kind",
		},
		[]string{"kind"},
	)

	m.pointsDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "points_dropped_total",
		Help:      "Total number of injection points dropped by safety validation",
	})

	// Determinism Metrics - Repeat-analysis stability
	m.guardHits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "determinism_cache_hits_total",
		Help:      "Total number of analyses whose content hash was seen before",
	})

	m.guardDivergence = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "determinism_divergence_total",
		Help:      "Total number of repeated analyses that moved beyond the pixel tolerance",
	})

	m.guardCacheSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "determinism_cache_size",
		Help:      "Current number of cached coordinate snapshots",
	})

	// Image Pipeline Metrics
	m.imagesProcessed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "images_processed_total",
		Help:      "Total number of images decoded and normalized",
	})

	m.imagesRejected = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "images_rejected_total",
			Help:      "Total number of images rejected by the preprocessing pipeline",
		},
		[]string{"reason"},
	)

	m.imageDecodeLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "image_decode_latency_milliseconds",
		Help:      "Image decode and resize latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	// HTTP Performance Metrics - User experience indicators
	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds (user experience)",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	// Rule Store Metrics
	m.ruleAreasLoaded = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rule_areas_loaded",
		Help:      "Number of treatment areas with a loaded rule set",
	})
}

// RecordAnalysis increments the analyses counter for an area and outcome.
// Outcome is one of "ok", "fallback" or "error".
func RecordAnalysis(area, outcome string) {
	globalManager.analysesTotal.WithLabelValues(area, outcome).Inc()
}

// RecordAnalysisLatency records end-to-end analysis latency in milliseconds.
func RecordAnalysisLatency(latencyMs float64) {
	globalManager.analysisLatency.Observe(latencyMs)
}

// RecordRulesEvaluated adds to the evaluated rules counter.
func RecordRulesEvaluated(count int) {
	globalManager.rulesEvaluated.Add(float64(count))
}

// RecordRuleSkipped increments the skipped rules counter.
func RecordRuleSkipped() {
	globalManager.rulesSkipped.Inc()
}

// RecordSafetyFlag increments the safety flag counter for a flag kind.
func RecordSafetyFlag(kind string) {
	globalManager.safetyFlags.WithLabelValues(kind).Inc()
}

// RecordPointDropped increments the dropped points counter.
func RecordPointDropped() {
	globalManager.pointsDropped.Inc()
}

// RecordGuardHit increments the determinism cache hit counter.
func RecordGuardHit() {
	globalManager.guardHits.Inc()
}

// RecordGuardDivergence increments the determinism divergence counter.
func RecordGuardDivergence() {
	globalManager.guardDivergence.Inc()
}

// UpdateGuardCacheSize sets the current determinism cache size.
func UpdateGuardCacheSize(size int64) {
	globalManager.guardCacheSize.Set(float64(size))
}

// RecordImageProcessed increments the processed images counter.
func RecordImageProcessed() {
	globalManager.imagesProcessed.Inc()
}

// RecordImageRejected increments the rejected images counter for a reason.
func RecordImageRejected(reason string) {
	globalManager.imagesRejected.WithLabelValues(reason).Inc()
}

// RecordImageDecodeLatency records image decode latency in milliseconds.
func RecordImageDecodeLatency(latencyMs float64) {
	globalManager.imageDecodeLatency.Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// UpdateRuleAreasLoaded sets the number of loaded rule areas.
func UpdateRuleAreasLoaded(count int) {
	globalManager.ruleAreasLoaded.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
