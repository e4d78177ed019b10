// Package fallback supplies a pre-scaled, low-confidence approximate
// layout when landmark detection fails or is unreliable. Templates are
// expressed as proportions of the image frame, assuming a centered,
// frontally framed face; they never depend on landmarks and never fail.
package fallback

import (
	"math"

	"github.com/okian/riskmap/internal/domain/geometry"
	"github.com/okian/riskmap/internal/domain/model"
)

// Template scaling constants: a frontal portrait face typically occupies
// about 30% of the frame width and 40% of its height.
const (
	faceWidthFraction  = 0.30
	faceHeightFraction = 0.40
)

// Every template point carries this fixed low confidence.
const templateConfidence = 0.3

// Template points are kept at least this many pixels inside the frame.
const edgeMarginPx = 10.0

// Warnings attached verbatim to every template point so the caller can
// surface them to the end user.
var templateWarnings = []string{
	"Template-based positioning - verification required",
	"Anatomical landmarks not detected",
}

// templatePoint is one fallback point as offsets from the assumed face
// center, in face-size fractions.
type templatePoint struct {
	label     string
	code      string
	xOffset   float64
	yOffset   float64
	depth     string
	technique string
	volume    string
}

// Provider holds the per-area fallback templates.
type Provider struct {
	templates map[string][]templatePoint
}

// NewProvider creates a Provider with the built-in area templates.
func NewProvider() *Provider {
	return &Provider{
		templates: map[string][]templatePoint{
			"lips": {
				{label: "Upper Lip Center (Template)", code: "LP2", xOffset: 0.0, yOffset: 0.10,
					depth: "dermal", technique: "linear threading", volume: "0.1-0.2 ml"},
				{label: "Lower Lip Center (Template)", code: "LP3", xOffset: 0.0, yOffset: 0.15,
					depth: "subcutaneous", technique: "linear threading", volume: "0.2-0.3 ml"},
			},
			"cheeks": {
				{label: "Left High Malar (Template)", code: "CK1", xOffset: -0.12, yOffset: -0.05,
					depth: "supraperiosteal", technique: "bolus injection", volume: "0.3-0.5 ml"},
				{label: "Right High Malar (Template)", code: "CK1", xOffset: 0.12, yOffset: -0.05,
					depth: "supraperiosteal", technique: "bolus injection", volume: "0.3-0.5 ml"},
			},
			"chin": {
				{label: "Central Pogonion (Template)", code: "CH1", xOffset: 0.0, yOffset: 0.25,
					depth: "supraperiosteal", technique: "bolus injection", volume: "0.3-0.8 ml"},
			},
			"forehead": {
				{label: "Left Medial Frontalis (Template)", code: "FH2", xOffset: -0.08, yOffset: -0.15,
					depth: "muscle belly", technique: "intramuscular injection", volume: "4-6 units"},
				{label: "Right Medial Frontalis (Template)", code: "FH2", xOffset: 0.08, yOffset: -0.15,
					depth: "muscle belly", technique: "intramuscular injection", volume: "4-6 units"},
			},
		},
	}
}

// Layout returns an approximate, clearly flagged result for the area.
// It always succeeds: an unknown area yields a valid result with no
// points and an extra warning. Risk zones are deliberately omitted in
// fallback mode; without landmark evidence the engine makes no zone
// claims.
func (p *Provider) Layout(area string, imageWidth, imageHeight int) model.AnalysisResult {
	result := model.AnalysisResult{
		Area:        area,
		ImageWidth:  imageWidth,
		ImageHeight: imageHeight,
		Confidence:  templateConfidence,
		Fallback:    true,
		Warnings: []string{
			"Automated landmark detection failed; showing template approximation",
		},
	}

	points, ok := p.templates[area]
	if !ok {
		result.Warnings = append(result.Warnings, "No fallback template for area "+area)
		return result
	}

	w := float64(imageWidth)
	h := float64(imageHeight)
	faceWidth := w * faceWidthFraction
	faceHeight := h * faceHeightFraction
	center := geometry.Point{X: w / 2, Y: h / 2}

	for _, tp := range points {
		warnings := make([]string, len(templateWarnings))
		copy(warnings, templateWarnings)

		result.Points = append(result.Points, model.InjectionPoint{
			RuleID: "template-" + tp.code,
			Label:  tp.label,
			Code:   tp.code,
			Position: geometry.Point{
				X: clamp(center.X+tp.xOffset*faceWidth, edgeMarginPx, w-edgeMarginPx),
				Y: clamp(center.Y+tp.yOffset*faceHeight, edgeMarginPx, h-edgeMarginPx),
			},
			Depth:      tp.depth,
			Technique:  tp.technique,
			Volume:     tp.volume,
			Tool:       "needle",
			Notes:      "Scaled from fallback template",
			Confidence: templateConfidence,
			Warnings:   warnings,
		})
	}
	return result
}

// Areas returns the area names a template exists for.
func (p *Provider) Areas() []string {
	areas := make([]string, 0, len(p.templates))
	for area := range p.templates {
		areas = append(areas, area)
	}
	return areas
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
