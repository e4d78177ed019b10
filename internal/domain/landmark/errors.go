package landmark

import "errors"

// Sentinel kinds for landmark errors.
var (
	ErrInsufficientLandmarks = errors.New("insufficient landmarks")
	ErrUnknownLandmark       = errors.New("unknown landmark")
)
