package probe

import (
	"math"
)

// Landmark mesh constants matching the 468-point face mesh topology the
// service consumes. The probe is a stand-in for a real detector, so the
// named indices below must land on anatomically sensible spots.
const (
	meshLandmarkCount = 468

	idxNoseTip          = 1
	idxNoseBridgeHigh   = 6
	idxForeheadCenter   = 9
	idxUpperLipCenter   = 13
	idxLowerLipCenter   = 14
	idxLowerLipBottom   = 17
	idxLeftAlae         = 31
	idxLeftEyeOuter     = 33
	idxRightCupidsBow   = 40
	idxLeftMouthCorner  = 61
	idxLeftBrowInner    = 70
	idxLeftBrowPeak     = 105
	idxLeftBrowCenter   = 107
	idxLeftEyeInner     = 133
	idxLeftTemple       = 162
	idxLeftJaw          = 172
	idxChinTip          = 175
	idxLeftCupidsBow    = 185
	idxRightAlae        = 261
	idxRightEyeOuter    = 263
	idxRightMouthCorner = 291
	idxRightBrowInner   = 300
	idxRightBrowPeak    = 334
	idxRightBrowCenter  = 336
	idxRightEyeInner    = 362
	idxRightTemple      = 389
	idxRightJaw         = 397
)

// Synthetic face proportions relative to the image frame.
const (
	faceWidthFraction  = 0.5
	faceHeightFraction = 0.6
)

// Point mirrors the service's wire coordinate shape.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// namedPlacements positions the topology's named indices inside the
// synthetic face box, as (x, y) fractions of the box.
var namedPlacements = map[int][2]float64{
	idxForeheadCenter:   {0.50, 0.12},
	idxLeftTemple:       {0.05, 0.30},
	idxRightTemple:      {0.95, 0.30},
	idxLeftBrowPeak:     {0.20, 0.28},
	idxLeftBrowCenter:   {0.28, 0.27},
	idxLeftBrowInner:    {0.38, 0.29},
	idxRightBrowInner:   {0.62, 0.29},
	idxRightBrowCenter:  {0.72, 0.27},
	idxRightBrowPeak:    {0.80, 0.28},
	idxLeftEyeOuter:     {0.18, 0.38},
	idxLeftEyeInner:     {0.38, 0.38},
	idxRightEyeInner:    {0.62, 0.38},
	idxRightEyeOuter:    {0.82, 0.38},
	idxNoseBridgeHigh:   {0.50, 0.40},
	idxNoseTip:          {0.50, 0.58},
	idxLeftAlae:         {0.42, 0.60},
	idxRightAlae:        {0.58, 0.60},
	idxLeftCupidsBow:    {0.45, 0.70},
	idxRightCupidsBow:   {0.55, 0.70},
	idxUpperLipCenter:   {0.50, 0.72},
	idxLowerLipCenter:   {0.50, 0.76},
	idxLowerLipBottom:   {0.50, 0.79},
	idxLeftMouthCorner:  {0.35, 0.74},
	idxRightMouthCorner: {0.65, 0.74},
	idxLeftJaw:          {0.12, 0.78},
	idxRightJaw:         {0.88, 0.78},
	idxChinTip:          {0.50, 0.97},
}

// GenerateLandmarks builds a deterministic 468-point landmark set for a
// frontally framed synthetic face in an imageWidth x imageHeight frame.
// Two calls with the same dimensions return identical coordinates, which
// is exactly what the determinism verification needs.
func GenerateLandmarks(imageWidth, imageHeight int) []Point {
	w := float64(imageWidth)
	h := float64(imageHeight)
	faceWidth := w * faceWidthFraction
	faceHeight := h * faceHeightFraction
	faceX := (w - faceWidth) / 2
	faceY := (h - faceHeight) / 2

	points := make([]Point, meshLandmarkCount)

	// Fill every index with a point on one of three concentric ellipses
	// inside the face box. The formula is a pure function of the index,
	// so the filler points are deterministic too.
	cx := faceX + faceWidth/2
	cy := faceY + faceHeight/2
	for i := range points {
		angle := 2 * math.Pi * float64(i) / meshLandmarkCount
		ring := 0.15 + 0.1*float64(i%3)
		points[i] = Point{
			X: cx + math.Cos(angle)*ring*faceWidth,
			Y: cy + math.Sin(angle)*ring*faceHeight,
		}
	}

	// Pin the named indices to their anatomical spots.
	for idx, frac := range namedPlacements {
		points[idx] = Point{
			X: faceX + frac[0]*faceWidth,
			Y: faceY + frac[1]*faceHeight,
		}
	}

	return points
}
