package landmark

import "github.com/okian/riskmap/internal/domain/geometry"

// Set is one detector output: an ordered, fixed-topology sequence of
// points in source-image pixel coordinates plus the image dimensions and
// the detector's confidence in [0,1]. A Set is owned by the caller for the
// duration of a single analysis and is never retained by the core.
type Set struct {
	Points     []geometry.Point
	Width      int
	Height     int
	Confidence float64
}
