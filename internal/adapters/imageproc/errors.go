package imageproc

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrPayloadTooLarge = errors.New("image payload too large")
	ErrDecodeFailed    = errors.New("image decode failed")
	ErrImageTooSmall   = errors.New("image below minimum dimensions")
)
