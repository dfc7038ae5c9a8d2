// Package remote declares the external image services the editor calls.
// Implementations live outside this module; the editor treats them as
// opaque, possibly slow, calls.
package remote

import (
	"context"
	"errors"

	"photo-editor/internal/imaging"
)

// ErrUnavailable is returned when no service is configured.
var ErrUnavailable = errors.New("remote service unavailable")

// BackgroundRemover returns a copy of an image with its background made
// transparent.
type BackgroundRemover interface {
	RemoveBackground(ctx context.Context, img imaging.ImageData) (imaging.ImageData, error)
}

// Compressor re-encodes an image at the given quality (0-100).
type Compressor interface {
	Compress(ctx context.Context, img imaging.ImageData, quality int) ([]byte, error)
}

// BackgroundRemoverFunc adapts a function to BackgroundRemover.
type BackgroundRemoverFunc func(ctx context.Context, img imaging.ImageData) (imaging.ImageData, error)

func (f BackgroundRemoverFunc) RemoveBackground(ctx context.Context, img imaging.ImageData) (imaging.ImageData, error) {
	return f(ctx, img)
}

// CompressorFunc adapts a function to Compressor.
type CompressorFunc func(ctx context.Context, img imaging.ImageData, quality int) ([]byte, error)

func (f CompressorFunc) Compress(ctx context.Context, img imaging.ImageData, quality int) ([]byte, error) {
	return f(ctx, img, quality)
}
