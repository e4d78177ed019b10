package rules

import (
	"fmt"

	"github.com/okian/riskmap/internal/domain/geometry"
	"github.com/okian/riskmap/internal/domain/landmark"
	"github.com/okian/riskmap/internal/domain/model"
)

// Per-item confidence is the detector confidence slightly reduced for the
// indirection of rule application.
const ruleConfidenceFactor = 0.9

// Evaluation is the engine output for one (face, rule set) pair. Items
// appear in rule-definition order, so two evaluations of the same input
// are identical item for item. Near-coincident points from distinct rules
// are deliberately not merged; consumers differentiate by code.
type Evaluation struct {
	Points   []model.InjectionPoint
	Zones    []model.RiskZone
	Warnings []string
}

// Engine interprets rule definitions against a normalized face. All rule
// arithmetic happens in unit space; scaling back to source-image pixels
// is the final step, which keeps rules resolution-independent. The Engine
// is stateless and safe for concurrent use.
type Engine struct{}

// NewEngine creates a rule engine.
func NewEngine() *Engine { return &Engine{} }

// Evaluate emits geometric result items for every rule in the set. A rule
// whose anchors resolve to non-finite coordinates is skipped and recorded
// as a warning; partial results are preferred to total failure.
func (e *Engine) Evaluate(face landmark.NormalizedFace, set *RuleSet) Evaluation {
	var ev Evaluation
	for i := range set.Points {
		rule := &set.Points[i]
		point, err := e.evaluatePoint(face, set, rule)
		if err != nil {
			ev.Warnings = append(ev.Warnings, fmt.Sprintf("rule %s skipped: %v", rule.ID, err))
			continue
		}
		ev.Points = append(ev.Points, point)
	}
	for i := range set.Zones {
		rule := &set.Zones[i]
		zone, err := e.evaluateZone(face, rule)
		if err != nil {
			ev.Warnings = append(ev.Warnings, fmt.Sprintf("rule %s skipped: %v", rule.ID, err))
			continue
		}
		ev.Zones = append(ev.Zones, zone)
	}
	return ev
}

func (e *Engine) evaluatePoint(face landmark.NormalizedFace, set *RuleSet, rule *PointRule) (model.InjectionPoint, error) {
	centroid, err := e.anchorCentroid(face, rule.Anchors)
	if err != nil {
		return model.InjectionPoint{}, err
	}

	pos := centroid.Add(geometry.Point{X: rule.Offset.X, Y: rule.Offset.Y})

	switch rule.Kind {
	case PointAnchorOffset, PointCircleAroundAnchor:
		// Position is the offset centroid; circle rules carry an
		// advisory radius in metadata only.
	case PointBoneProjected:
		bone, err := face.Landmark(rule.BoneAnchor)
		if err != nil {
			return model.InjectionPoint{}, err
		}
		pos = geometry.Lerp(pos, bone, rule.BlendFactor)
	}

	if rule.ClampRegion != "" {
		hull, err := e.regionHull(face, set.ClampRegions[rule.ClampRegion])
		if err != nil {
			return model.InjectionPoint{}, err
		}
		pos = geometry.ClipToConvexHull(pos, hull)
	}

	pixel := toPixel(face.BBox, pos)
	if !pixel.IsFinite() {
		return model.InjectionPoint{}, fmt.Errorf("point resolves to non-finite coordinates: %w", ErrDegenerateGeometry)
	}

	notes := rule.Notes
	if rule.Kind == PointCircleAroundAnchor && rule.RadiusUnit > 0 {
		radius := rule.RadiusUnit * face.BBox.Width
		if notes != "" {
			notes += "; "
		}
		notes += fmt.Sprintf("coverage radius %.0fpx", radius)
	}

	warnings := make([]string, len(rule.Warnings))
	copy(warnings, rule.Warnings)

	return model.InjectionPoint{
		RuleID:     rule.ID,
		Label:      rule.Label,
		Code:       rule.Code,
		Position:   pixel,
		Depth:      rule.Depth,
		Technique:  rule.Technique,
		Volume:     rule.Volume,
		Tool:       rule.Tool,
		Notes:      notes,
		Confidence: face.Confidence * ruleConfidenceFactor,
		Warnings:   warnings,
	}, nil
}

func (e *Engine) evaluateZone(face landmark.NormalizedFace, rule *ZoneRule) (model.RiskZone, error) {
	zone := model.RiskZone{
		RuleID:           rule.ID,
		Name:             rule.Name,
		Severity:         string(rule.Severity),
		FillColor:        rule.Style.FillColor,
		Opacity:          rule.Style.Opacity,
		StrokeStyle:      rule.Style.StrokeStyle,
		Rationale:        rule.Rationale,
		MedicalReference: rule.MedicalReference,
	}

	switch rule.Kind {
	case ZonePolylineBuffer:
		line := make([]geometry.Point, 0, len(rule.Anchors))
		for _, name := range rule.Anchors {
			unit, err := face.Landmark(name)
			if err != nil {
				return model.RiskZone{}, err
			}
			pixel := toPixel(face.BBox, unit)
			if !pixel.IsFinite() {
				return model.RiskZone{}, fmt.Errorf("anchor %q resolves to non-finite coordinates: %w", name, ErrDegenerateGeometry)
			}
			line = append(line, pixel)
		}
		polygon := geometry.PolylineBuffer(line, rule.BufferPx)
		if len(polygon) < 3 {
			return model.RiskZone{}, fmt.Errorf("buffer polygon collapsed: %w", ErrDegenerateGeometry)
		}
		zone.Polygon = polygon

	case ZoneCircleAroundAnchor:
		centroid, err := e.anchorCentroid(face, rule.Anchors)
		if err != nil {
			return model.RiskZone{}, err
		}
		center := toPixel(face.BBox, centroid)
		radius := rule.RadiusPx
		if radius <= 0 {
			radius = rule.RadiusUnit * face.BBox.Width
		}
		if !center.IsFinite() || radius <= 0 {
			return model.RiskZone{}, fmt.Errorf("circle resolves to non-finite geometry: %w", ErrDegenerateGeometry)
		}
		zone.Polygon = geometry.CirclePolygon(center, radius)
		zone.Circle = &model.Circle{Center: center, Radius: radius}
	}

	return zone, nil
}

// anchorCentroid resolves the unit-space centroid of the named anchors.
func (e *Engine) anchorCentroid(face landmark.NormalizedFace, anchors []string) (geometry.Point, error) {
	pts := make([]geometry.Point, 0, len(anchors))
	for _, name := range anchors {
		p, err := face.Landmark(name)
		if err != nil {
			return geometry.Point{}, err
		}
		pts = append(pts, p)
	}
	c := geometry.Centroid(pts)
	if !c.IsFinite() {
		return geometry.Point{}, fmt.Errorf("anchor centroid is non-finite: %w", ErrDegenerateGeometry)
	}
	return c, nil
}

// regionHull builds the convex hull of a clamp region in unit space.
func (e *Engine) regionHull(face landmark.NormalizedFace, members []string) ([]geometry.Point, error) {
	pts := make([]geometry.Point, 0, len(members))
	for _, name := range members {
		p, err := face.Landmark(name)
		if err != nil {
			return nil, err
		}
		pts = append(pts, p)
	}
	return geometry.ConvexHull(pts), nil
}

// toPixel maps a unit-space point back into source-image pixels via the
// face bounding box.
func toPixel(bbox geometry.Rect, unit geometry.Point) geometry.Point {
	return geometry.Point{
		X: bbox.X + unit.X*bbox.Width,
		Y: bbox.Y + unit.Y*bbox.Height,
	}
}
