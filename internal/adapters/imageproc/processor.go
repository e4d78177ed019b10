// Package imageproc normalizes uploaded images into the engine's
// processed coordinate space and maps results back to the original
// resolution. Geometry must round-trip: the engine only ever sees
// images at or below the target dimension, while callers get
// coordinates in their own image space.
package imageproc

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"github.com/okian/riskmap/internal/domain/geometry"
	"github.com/okian/riskmap/internal/domain/model"
	"github.com/okian/riskmap/pkg/metrics"
)

// Default processing bounds.
const (
	defaultTargetDimension = 1024
	defaultMinDimension    = 320
	defaultMaxPayloadBytes = 10 << 20
)

// Processed describes one decoded, resized image.
type Processed struct {
	Width          int
	Height         int
	OriginalWidth  int
	OriginalHeight int
	// Scale maps original-space coordinates into processed space.
	// Processed = Original * Scale.
	Scale float64
}

// Option applies a configuration option to the Processor.
type Option func(*Processor)

// WithTargetDimension caps the longest edge of processed images.
func WithTargetDimension(px int) Option {
	return func(p *Processor) {
		if px > 0 {
			p.targetDimension = px
		}
	}
}

// WithMaxPayloadBytes caps the accepted encoded payload size.
func WithMaxPayloadBytes(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.maxPayloadBytes = n
		}
	}
}

// Processor decodes base64 image payloads, honors EXIF orientation and
// downscales to the target dimension. It is stateless and safe for
// concurrent use.
type Processor struct {
	targetDimension int
	minDimension    int
	maxPayloadBytes int
}

// NewProcessor creates a Processor with default bounds.
func NewProcessor(opts ...Option) *Processor {
	p := &Processor{
		targetDimension: defaultTargetDimension,
		minDimension:    defaultMinDimension,
		maxPayloadBytes: defaultMaxPayloadBytes,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process decodes payload and returns the processed image geometry.
// Payload may be a bare base64 string or a data URL. Images already at
// or below the target dimension keep their size and get Scale 1.
func (p *Processor) Process(_ context.Context, payload string) (Processed, error) {
	start := time.Now()

	raw, err := decodeBase64(payload, p.maxPayloadBytes)
	if err != nil {
		metrics.RecordImageRejected(rejectionReason(err))
		return Processed{}, err
	}

	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		metrics.RecordImageRejected("decode")
		return Processed{}, fmt.Errorf("%w: %w", ErrDecodeFailed, err)
	}

	bounds := img.Bounds()
	originalWidth := bounds.Dx()
	originalHeight := bounds.Dy()
	if originalWidth < p.minDimension || originalHeight < p.minDimension {
		metrics.RecordImageRejected("too_small")
		return Processed{}, fmt.Errorf("%dx%d below %dpx minimum: %w",
			originalWidth, originalHeight, p.minDimension, ErrImageTooSmall)
	}

	width, height := originalWidth, originalHeight
	if originalWidth > p.targetDimension || originalHeight > p.targetDimension {
		// Fit preserves aspect ratio; Lanczos keeps landmark-scale detail.
		resized := imaging.Fit(img, p.targetDimension, p.targetDimension, imaging.Lanczos)
		width = resized.Bounds().Dx()
		height = resized.Bounds().Dy()
	}

	metrics.RecordImageProcessed()
	metrics.RecordImageDecodeLatency(float64(time.Since(start).Milliseconds()))

	return Processed{
		Width:          width,
		Height:         height,
		OriginalWidth:  originalWidth,
		OriginalHeight: originalHeight,
		Scale:          float64(width) / float64(originalWidth),
	}, nil
}

// ScaleLandmarks maps original-space landmarks into processed space.
func (p *Processor) ScaleLandmarks(points []geometry.Point, proc Processed) []geometry.Point {
	if proc.Scale == 1 || proc.Scale == 0 {
		return points
	}
	scaled := make([]geometry.Point, len(points))
	for i, pt := range points {
		scaled[i] = pt.Scale(proc.Scale)
	}
	return scaled
}

// RestoreResult maps a processed-space result back into the caller's
// original image space, including zone polygons and circle descriptors.
func (p *Processor) RestoreResult(result model.AnalysisResult, proc Processed) model.AnalysisResult {
	if proc.Scale == 1 || proc.Scale == 0 {
		return result
	}
	inv := 1 / proc.Scale

	result.ImageWidth = proc.OriginalWidth
	result.ImageHeight = proc.OriginalHeight
	for i := range result.Points {
		result.Points[i].Position = result.Points[i].Position.Scale(inv)
	}
	for i := range result.Zones {
		zone := &result.Zones[i]
		for j := range zone.Polygon {
			zone.Polygon[j] = zone.Polygon[j].Scale(inv)
		}
		if zone.Circle != nil {
			restored := model.Circle{
				Center: zone.Circle.Center.Scale(inv),
				Radius: zone.Circle.Radius * inv,
			}
			zone.Circle = &restored
		}
	}
	return result
}

// decodeBase64 strips an optional data-URL prefix and decodes the
// payload, enforcing the size cap on the encoded form so oversized
// uploads are rejected before any allocation proportional to them.
func decodeBase64(payload string, maxBytes int) ([]byte, error) {
	if idx := strings.Index(payload, ";base64,"); idx >= 0 && strings.HasPrefix(payload, "data:") {
		payload = payload[idx+len(";base64,"):]
	}
	if len(payload) > maxBytes {
		return nil, fmt.Errorf("%d bytes encoded: %w", len(payload), ErrPayloadTooLarge)
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		raw, err = base64.RawStdEncoding.DecodeString(payload)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecodeFailed, err)
	}
	return raw, nil
}

func rejectionReason(err error) string {
	if errors.Is(err, ErrPayloadTooLarge) {
		return "too_large"
	}
	return "decode"
}
