// Package landmark converts raw detector output into a face-relative unit
// coordinate frame that the rule engine consumes.
package landmark

import (
	"fmt"
	"sort"

	"github.com/okian/riskmap/internal/domain/geometry"
)

// MediaPipe face mesh indices for the anatomical points the rule files
// reference. The indices are fixed by the detector topology; they are
// configuration constants, never inferred from the data.
const (
	idxLeftEyeInner     = 133
	idxLeftEyeOuter     = 33
	idxRightEyeInner    = 362
	idxRightEyeOuter    = 263
	idxNoseTip          = 1
	idxNoseBridgeHigh   = 6
	idxLeftAlae         = 31
	idxRightAlae        = 261
	idxUpperLipCenter   = 13
	idxLowerLipCenter   = 14
	idxLowerLipBottom   = 17
	idxLeftMouthCorner  = 61
	idxRightMouthCorner = 291
	idxLeftCupidsBow    = 185
	idxRightCupidsBow   = 40
	idxLeftBrowInner    = 70
	idxLeftBrowCenter   = 107
	idxLeftBrowPeak     = 105
	idxRightBrowInner   = 300
	idxRightBrowCenter  = 336
	idxRightBrowPeak    = 334
	idxChinTip          = 175
	idxLeftJaw          = 172
	idxRightJaw         = 397
	idxForeheadCenter   = 9
	idxLeftTemple       = 162
	idxRightTemple      = 389
	meshLandmarkCount   = 468
)

// Topology maps anatomical landmark names onto indices of a fixed-length
// detector mesh. A Topology is immutable after construction and safe to
// share across concurrent analyses.
type Topology struct {
	name     string
	minCount int
	indices  map[string]int
	// derived landmarks are midpoints of two named base landmarks.
	derived map[string][2]string
	// bboxNames is the documented landmark subset the face bounding box
	// is computed from.
	bboxNames []string
}

// FaceMesh returns the topology for the 468-point face mesh detector.
func FaceMesh() *Topology {
	return &Topology{
		name:     "face-mesh-468",
		minCount: meshLandmarkCount,
		indices: map[string]int{
			"left_eye_inner":       idxLeftEyeInner,
			"left_eye_outer":       idxLeftEyeOuter,
			"right_eye_inner":      idxRightEyeInner,
			"right_eye_outer":      idxRightEyeOuter,
			"nose_tip":             idxNoseTip,
			"nose_bridge_high":     idxNoseBridgeHigh,
			"left_alae":            idxLeftAlae,
			"right_alae":           idxRightAlae,
			"upper_lip_center":     idxUpperLipCenter,
			"lower_lip_center":     idxLowerLipCenter,
			"lower_lip_bottom":     idxLowerLipBottom,
			"left_mouth_corner":    idxLeftMouthCorner,
			"right_mouth_corner":   idxRightMouthCorner,
			"left_cupids_bow":      idxLeftCupidsBow,
			"right_cupids_bow":     idxRightCupidsBow,
			"left_eyebrow_inner":   idxLeftBrowInner,
			"left_eyebrow_center":  idxLeftBrowCenter,
			"left_eyebrow_peak":    idxLeftBrowPeak,
			"right_eyebrow_inner":  idxRightBrowInner,
			"right_eyebrow_center": idxRightBrowCenter,
			"right_eyebrow_peak":   idxRightBrowPeak,
			"chin_tip":             idxChinTip,
			"left_jaw":             idxLeftJaw,
			"right_jaw":            idxRightJaw,
			"forehead_center":      idxForeheadCenter,
			"left_temple":          idxLeftTemple,
			"right_temple":         idxRightTemple,
		},
		derived: map[string][2]string{
			"left_eye_center":         {"left_eye_inner", "left_eye_outer"},
			"right_eye_center":        {"right_eye_inner", "right_eye_outer"},
			"eyebrow_center_midpoint": {"left_eyebrow_center", "right_eyebrow_center"},
			"jaw_midpoint":            {"left_jaw", "right_jaw"},
		},
		bboxNames: []string{
			"left_eye_outer", "right_eye_outer",
			"left_mouth_corner", "right_mouth_corner",
			"left_temple", "right_temple",
			"chin_tip", "forehead_center",
		},
	}
}

// Name returns the topology identifier.
func (t *Topology) Name() string { return t.name }

// MinCount returns the minimum number of landmarks a detector output must
// carry to be usable with this topology.
func (t *Topology) MinCount() int { return t.minCount }

// Names returns all resolvable landmark names, sorted.
func (t *Topology) Names() []string {
	names := make([]string, 0, len(t.indices)+len(t.derived))
	for n := range t.indices {
		names = append(names, n)
	}
	for n := range t.derived {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Knows reports whether name resolves to a landmark, either directly or as
// a derived midpoint. Rule validation uses this at load time so a bad
// anchor reference fails at startup, not mid-request.
func (t *Topology) Knows(name string) bool {
	if _, ok := t.indices[name]; ok {
		return true
	}
	_, ok := t.derived[name]
	return ok
}

// Resolve returns the coordinate for the named landmark within pts.
func (t *Topology) Resolve(pts []geometry.Point, name string) (geometry.Point, error) {
	if idx, ok := t.indices[name]; ok {
		if idx >= len(pts) {
			return geometry.Point{}, fmt.Errorf("landmark %q index %d out of range: %w", name, idx, ErrUnknownLandmark)
		}
		return pts[idx], nil
	}
	if base, ok := t.derived[name]; ok {
		a, err := t.Resolve(pts, base[0])
		if err != nil {
			return geometry.Point{}, err
		}
		b, err := t.Resolve(pts, base[1])
		if err != nil {
			return geometry.Point{}, err
		}
		return geometry.Lerp(a, b, 0.5), nil
	}
	return geometry.Point{}, fmt.Errorf("landmark %q: %w", name, ErrUnknownLandmark)
}
