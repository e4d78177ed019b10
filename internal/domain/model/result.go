// Package model contains the result value objects passed between layers.
// Everything here is created fresh per analysis and never mutated after
// the façade returns it, so results are safe to cache by content hash.
package model

import "github.com/okian/riskmap/internal/domain/geometry"

// InjectionPoint is one recommended point in source-image pixel space,
// with the clinical metadata copied from the point rule that produced it.
type InjectionPoint struct {
	RuleID     string         `json:"rule_id"`
	Label      string         `json:"label"`
	Code       string         `json:"code,omitempty"`
	Position   geometry.Point `json:"position"`
	Depth      string         `json:"depth,omitempty"`
	Technique  string         `json:"technique,omitempty"`
	Volume     string         `json:"volume,omitempty"`
	Tool       string         `json:"tool,omitempty"`
	Notes      string         `json:"notes,omitempty"`
	Confidence float64        `json:"confidence"`
	Warnings   []string       `json:"warnings,omitempty"`
}

// Circle describes a circular zone in pixel space.
type Circle struct {
	Center geometry.Point `json:"center"`
	Radius float64        `json:"radius"`
}

// RiskZone is an anatomical danger area in source-image pixel space. The
// polygon is always populated (circles are approximated); the circle
// descriptor is additionally set for circular zones so renderers can draw
// an exact circle.
type RiskZone struct {
	RuleID           string           `json:"rule_id"`
	Name             string           `json:"name"`
	Severity         string           `json:"severity"`
	Polygon          []geometry.Point `json:"polygon"`
	Circle           *Circle          `json:"circle,omitempty"`
	FillColor        string           `json:"fill_color"`
	Opacity          float64          `json:"opacity"`
	StrokeStyle      string           `json:"stroke_style,omitempty"`
	Rationale        string           `json:"rationale,omitempty"`
	MedicalReference string           `json:"medical_reference,omitempty"`
}

// AnalysisResult is the aggregate the façade returns: pixel coordinates
// in the original, unscaled source image space plus the image dimensions
// so consumers can rescale to their own display size.
type AnalysisResult struct {
	AnalysisID   string           `json:"analysis_id"`
	Area         string           `json:"area"`
	ImageWidth   int              `json:"image_width"`
	ImageHeight  int              `json:"image_height"`
	Points       []InjectionPoint `json:"injection_points"`
	Zones        []RiskZone       `json:"risk_zones"`
	Confidence   float64          `json:"confidence"`
	Fallback     bool             `json:"fallback"`
	ContentHash  string           `json:"content_hash"`
	RuleVersion  string           `json:"rule_version,omitempty"`
	Warnings     []string         `json:"warnings,omitempty"`
	ProcessingMS int64            `json:"processing_ms"`
}
