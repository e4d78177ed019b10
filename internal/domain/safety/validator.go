// Package safety filters and annotates engine output against
// minimum-distance and volume-sanity constraints. The validator never
// fabricates points or zones; it only removes or flags what the engine
// produced.
package safety

import (
	"fmt"
	"sort"

	"github.com/okian/riskmap/internal/domain/geometry"
	"github.com/okian/riskmap/internal/domain/model"
	"github.com/okian/riskmap/internal/domain/rules"
)

// Minimum pixel distance from an injection point to a risk zone boundary,
// per severity tier, at the processed image resolution. Tiers missing
// from the table carry no distance constraint.
const (
	minDistanceHighPx     = 15.0
	minDistanceCriticalPx = 20.0
)

// Confidence is halved for points kept despite a distance violation so
// the flag is visible in the numbers as well as the warnings.
const violationConfidenceFactor = 0.5

// FlagKind classifies a safety finding.
type FlagKind string

// Safety flag kinds.
const (
	FlagDistance FlagKind = "distance"
	FlagVolume   FlagKind = "volume"
	FlagLimit    FlagKind = "limit"
)

// Flag records one safety finding, addressed by rule ID so callers can
// correlate findings with result items.
type Flag struct {
	RuleID string
	Kind   FlagKind
	Detail string
}

// Option applies a configuration option to the Validator.
type Option func(*Validator)

// WithStrictMode makes the validator drop violating points instead of
// keeping them flagged.
func WithStrictMode() Option {
	return func(v *Validator) {
		v.strict = true
	}
}

// WithMinDistance overrides the minimum distance for a severity tier.
func WithMinDistance(severity rules.Severity, px float64) Option {
	return func(v *Validator) {
		if px >= 0 {
			v.minDistance[severity] = px
		}
	}
}

// Validator checks injection points against risk zone geometry and
// declared volumes against the per-area ceiling. The default mode is
// permissive: violating points are kept but explicitly flagged, since
// silently dropping them would hide a safety-relevant signal from the
// caller.
type Validator struct {
	minDistance map[rules.Severity]float64
	strict      bool
}

// NewValidator creates a Validator with the default distance table.
func NewValidator(opts ...Option) *Validator {
	v := &Validator{
		minDistance: map[rules.Severity]float64{
			rules.SeverityHigh:     minDistanceHighPx,
			rules.SeverityCritical: minDistanceCriticalPx,
		},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate returns the vetted injection points plus every safety finding.
// In permissive mode the returned slice keeps violating points with
// warnings appended and confidence reduced; in strict mode they are
// dropped. Declared volumes above the area ceiling are always flagged,
// never clamped, because clamping would misrepresent the rule's intent.
func (v *Validator) Validate(points []model.InjectionPoint, zones []model.RiskZone, set *rules.RuleSet) ([]model.InjectionPoint, []Flag) {
	var flags []Flag
	kept := make([]model.InjectionPoint, 0, len(points))

	for _, point := range points {
		violations := v.distanceViolations(point, zones)
		for _, violation := range violations {
			flags = append(flags, Flag{RuleID: point.RuleID, Kind: FlagDistance, Detail: violation})
		}
		if len(violations) > 0 {
			if v.strict {
				continue
			}
			point.Warnings = append(point.Warnings, violations...)
			point.Confidence *= violationConfidenceFactor
		}

		if detail, exceeded := volumeExceedsCeiling(point.Volume, set.VolumeCeilingML); exceeded {
			flags = append(flags, Flag{RuleID: point.RuleID, Kind: FlagVolume, Detail: detail})
			point.Warnings = append(point.Warnings, detail)
		}

		kept = append(kept, point)
	}

	if set.MaxPoints > 0 && len(kept) > set.MaxPoints {
		// Keep the most confident points; the sort is stable so equal
		// confidences preserve rule order and stay deterministic.
		sort.SliceStable(kept, func(i, j int) bool {
			return kept[i].Confidence > kept[j].Confidence
		})
		for _, dropped := range kept[set.MaxPoints:] {
			flags = append(flags, Flag{
				RuleID: dropped.RuleID,
				Kind:   FlagLimit,
				Detail: fmt.Sprintf("dropped: area limited to %d points", set.MaxPoints),
			})
		}
		kept = kept[:set.MaxPoints]
	}

	return kept, flags
}

// distanceViolations returns one message per high/critical zone the point
// sits too close to. Distance is measured to the zone boundary.
func (v *Validator) distanceViolations(point model.InjectionPoint, zones []model.RiskZone) []string {
	var violations []string
	for _, zone := range zones {
		minDist, constrained := v.minDistance[rules.Severity(zone.Severity)]
		if !constrained || minDist <= 0 {
			continue
		}
		dist := distanceToZone(point.Position, zone)
		if dist < minDist {
			violations = append(violations, fmt.Sprintf(
				"Too close to %s (%.1fpx < %.0fpx required)", zone.Name, dist, minDist))
		}
	}
	return violations
}

// distanceToZone measures to the exact circle boundary when the zone has
// a circle descriptor, otherwise to the nearest polygon edge.
func distanceToZone(p geometry.Point, zone model.RiskZone) float64 {
	if zone.Circle != nil {
		d := geometry.Distance(p, zone.Circle.Center) - zone.Circle.Radius
		if d < 0 {
			return 0
		}
		return d
	}
	if geometry.PointInPolygon(p, zone.Polygon) {
		return 0
	}
	return geometry.PointToPolygonDistance(p, zone.Polygon)
}
