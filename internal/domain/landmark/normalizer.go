package landmark

import (
	"fmt"
	"math"

	"github.com/okian/riskmap/internal/domain/geometry"
)

// Rotations below this magnitude are noise on an already-level face and
// are not applied, so repeated detections of the same photo do not jitter.
const alignmentDeadzoneDegrees = 2.0

// NormalizedFace re-expresses a landmark set relative to a unit-square
// face bounding box. Coordinates normally lie in [0,1] but landmarks
// outside the box (forehead extrapolation, ears) may exceed the range;
// that is expected, not an error.
type NormalizedFace struct {
	Points     []geometry.Point
	BBox       geometry.Rect
	Rotation   float64
	Confidence float64

	topo *Topology
}

// Landmark resolves a named landmark in unit coordinates.
func (f NormalizedFace) Landmark(name string) (geometry.Point, error) {
	return f.topo.Resolve(f.Points, name)
}

// Topology returns the topology the face was normalized against.
func (f NormalizedFace) Topology() *Topology { return f.topo }

// Option applies a configuration option to the Normalizer.
type Option func(*Normalizer)

// WithDeadzone overrides the alignment dead-zone threshold in degrees.
func WithDeadzone(degrees float64) Option {
	return func(n *Normalizer) {
		if degrees >= 0 {
			n.deadzone = degrees
		}
	}
}

// Normalizer converts pixel-space landmark sets into unit-space faces.
// It is a pure transformation: same input always yields identical output.
type Normalizer struct {
	topo     *Topology
	deadzone float64
}

// NewNormalizer creates a Normalizer for the given topology.
func NewNormalizer(topo *Topology, opts ...Option) *Normalizer {
	n := &Normalizer{
		topo:     topo,
		deadzone: alignmentDeadzoneDegrees,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize converts set into a NormalizedFace. When align is true the
// landmarks are first rotated about the eye midpoint so the eye line is
// level, provided the measured angle exceeds the dead-zone threshold.
// Fails with ErrInsufficientLandmarks when the set is below the topology
// minimum or the face bounding box collapses.
func (n *Normalizer) Normalize(set Set, align bool) (NormalizedFace, error) {
	if len(set.Points) < n.topo.MinCount() {
		return NormalizedFace{}, fmt.Errorf("got %d landmarks, need %d: %w",
			len(set.Points), n.topo.MinCount(), ErrInsufficientLandmarks)
	}

	points := make([]geometry.Point, len(set.Points))
	copy(points, set.Points)

	var rotation float64
	if align {
		angle, err := n.eyeLineAngle(points)
		if err != nil {
			return NormalizedFace{}, err
		}
		if math.Abs(angle) > n.deadzone {
			pivot, err := n.eyeMidpoint(points)
			if err != nil {
				return NormalizedFace{}, err
			}
			rotatePoints(points, pivot, -angle)
			rotation = -angle
		}
	}

	bbox, err := n.faceBounds(points)
	if err != nil {
		return NormalizedFace{}, err
	}
	if bbox.IsDegenerate() {
		return NormalizedFace{}, fmt.Errorf("degenerate face bounding box %+v: %w", bbox, ErrInsufficientLandmarks)
	}

	unit := make([]geometry.Point, len(points))
	for i, p := range points {
		unit[i] = geometry.Point{
			X: (p.X - bbox.X) / bbox.Width,
			Y: (p.Y - bbox.Y) / bbox.Height,
		}
	}

	return NormalizedFace{
		Points:     unit,
		BBox:       bbox,
		Rotation:   rotation,
		Confidence: set.Confidence,
		topo:       n.topo,
	}, nil
}

// faceBounds computes the face bounding box from the topology's
// documented landmark subset.
func (n *Normalizer) faceBounds(points []geometry.Point) (geometry.Rect, error) {
	subset := make([]geometry.Point, 0, len(n.topo.bboxNames))
	for _, name := range n.topo.bboxNames {
		p, err := n.topo.Resolve(points, name)
		if err != nil {
			return geometry.Rect{}, err
		}
		subset = append(subset, p)
	}
	return geometry.BoundingBox(subset), nil
}

// eyeLineAngle returns the angle of the line between the eye centers in
// degrees. Positive means the right eye sits lower than the left.
func (n *Normalizer) eyeLineAngle(points []geometry.Point) (float64, error) {
	left, err := n.topo.Resolve(points, "left_eye_center")
	if err != nil {
		return 0, err
	}
	right, err := n.topo.Resolve(points, "right_eye_center")
	if err != nil {
		return 0, err
	}
	return math.Atan2(right.Y-left.Y, right.X-left.X) * 180 / math.Pi, nil
}

func (n *Normalizer) eyeMidpoint(points []geometry.Point) (geometry.Point, error) {
	left, err := n.topo.Resolve(points, "left_eye_center")
	if err != nil {
		return geometry.Point{}, err
	}
	right, err := n.topo.Resolve(points, "right_eye_center")
	if err != nil {
		return geometry.Point{}, err
	}
	return geometry.Lerp(left, right, 0.5), nil
}

// rotatePoints rotates every point about pivot by degrees, in place.
func rotatePoints(points []geometry.Point, pivot geometry.Point, degrees float64) {
	rad := degrees * math.Pi / 180
	sin, cos := math.Sincos(rad)
	for i, p := range points {
		dx := p.X - pivot.X
		dy := p.Y - pivot.Y
		points[i] = geometry.Point{
			X: pivot.X + dx*cos - dy*sin,
			Y: pivot.Y + dx*sin + dy*cos,
		}
	}
}
