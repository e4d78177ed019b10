// Package rules holds the declarative, versioned rule definitions per
// treatment area and the engine that interprets them against a normalized
// face. Rule behavior is data-driven: adding or changing a rule means
// editing a YAML file, not the engine.
package rules

// PointKind is the closed set of point rule kinds. An unknown kind is a
// configuration error caught at load time.
type PointKind string

// Point rule kinds.
const (
	// PointAnchorOffset places the point at the anchor centroid plus a
	// unit-space offset vector.
	PointAnchorOffset PointKind = "anchor-offset"
	// PointBoneProjected is anchor-offset additionally blended toward a
	// skeletal reference landmark, modelling supraperiosteal placement.
	PointBoneProjected PointKind = "bone-projected"
	// PointCircleAroundAnchor marks a point at an anchor centre with an
	// advisory coverage radius.
	PointCircleAroundAnchor PointKind = "circle-around-anchor"
)

// ZoneKind is the closed set of zone rule kinds.
type ZoneKind string

// Zone rule kinds.
const (
	// ZonePolylineBuffer builds a constant-width buffer polygon around
	// the polyline through the anchor sequence.
	ZonePolylineBuffer ZoneKind = "polyline-buffer"
	// ZoneCircleAroundAnchor builds a circular zone centred on the
	// anchor centroid.
	ZoneCircleAroundAnchor ZoneKind = "circle-around-anchor"
)

// Severity is a risk zone's tier. The safety validator keys its
// minimum-distance constraints off this value.
type Severity string

// Severity tiers, mildest first.
const (
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Offset is a displacement expressed as fractions of the face bounding
// box, keeping rules resolution-independent.
type Offset struct {
	X float64 `koanf:"x"`
	Y float64 `koanf:"y"`
}

// PointRule declares how to derive one injection point from landmarks.
type PointRule struct {
	ID          string    `koanf:"id" validate:"required"`
	Label       string    `koanf:"label" validate:"required"`
	Code        string    `koanf:"code"`
	Kind        PointKind `koanf:"kind" validate:"required,oneof=anchor-offset bone-projected circle-around-anchor"`
	Anchors     []string  `koanf:"anchors" validate:"required,min=1"`
	Offset      Offset    `koanf:"offset"`
	ClampRegion string    `koanf:"clamp_region"`
	// BoneAnchor and BlendFactor apply to bone-projected rules only.
	// BlendFactor defaults to 0.5 at load time.
	BoneAnchor  string  `koanf:"bone_anchor"`
	BlendFactor float64 `koanf:"blend_factor" validate:"gte=0,lte=1"`
	// RadiusUnit applies to circle-around-anchor rules: advisory coverage
	// radius as a fraction of face bounding box width.
	RadiusUnit float64 `koanf:"radius_unit" validate:"gte=0"`
	Depth      string  `koanf:"depth"`
	Technique  string  `koanf:"technique"`
	Volume     string  `koanf:"volume"`
	Tool       string  `koanf:"tool"`
	Notes      string  `koanf:"notes"`
	Warnings   []string `koanf:"warnings"`
}

// ZoneStyle controls how a renderer paints the zone.
type ZoneStyle struct {
	FillColor   string  `koanf:"fill_color" validate:"omitempty,hexcolor"`
	Opacity     float64 `koanf:"opacity" validate:"gte=0,lte=1"`
	StrokeStyle string  `koanf:"stroke_style"`
}

// ZoneRule declares how to derive one risk zone from landmarks.
type ZoneRule struct {
	ID       string   `koanf:"id" validate:"required"`
	Name     string   `koanf:"name" validate:"required"`
	Severity Severity `koanf:"severity" validate:"required,oneof=low moderate high critical"`
	Kind     ZoneKind `koanf:"kind" validate:"required,oneof=polyline-buffer circle-around-anchor"`
	Anchors  []string `koanf:"anchors" validate:"required,min=1"`
	// BufferPx applies to polyline-buffer rules; the distance is in
	// pixels at the processed image resolution.
	BufferPx float64 `koanf:"buffer_px" validate:"gte=0"`
	// Exactly one of RadiusPx / RadiusUnit applies to circle rules.
	RadiusPx         float64   `koanf:"radius_px" validate:"gte=0"`
	RadiusUnit       float64   `koanf:"radius_unit" validate:"gte=0"`
	Style            ZoneStyle `koanf:"style"`
	Rationale        string    `koanf:"rationale"`
	MedicalReference string    `koanf:"medical_reference"`
}

// RuleSet is the validated, immutable rule collection for one treatment
// area. It is safe to share read-only across concurrent analyses. The
// version string participates in every derived content hash so a rule
// change intentionally invalidates cached comparisons.
type RuleSet struct {
	Area    string      `koanf:"area" validate:"required"`
	Version string      `koanf:"version" validate:"required"`
	Points  []PointRule `koanf:"points" validate:"dive"`
	Zones   []ZoneRule  `koanf:"zones" validate:"dive"`
	// ClampRegions names landmark groups whose convex hull point rules
	// may clip against.
	ClampRegions map[string][]string `koanf:"clamp_regions"`
	// VolumeCeilingML is the conservative per-area ceiling the safety
	// validator flags declared volumes against.
	VolumeCeilingML float64 `koanf:"volume_ceiling_ml" validate:"gte=0"`
	// MaxPoints caps how many injection points one analysis may emit.
	MaxPoints int `koanf:"max_points" validate:"gte=0"`
}
