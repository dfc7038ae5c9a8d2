// Package imaging provides image source loading and decoding for layers.
package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrEmptyImage is returned for image data without pixels.
var ErrEmptyImage = errors.New("image has no pixels")

// ImageData is the serializable source of an image layer.
type ImageData struct {
	Name   string `json:"name"`
	URL    string `json:"url,omitempty"`    // Original location, if any
	Source []byte `json:"source,omitempty"` // Encoded bytes
	Width  int    `json:"width"`            // Natural width in pixels
	Height int    `json:"height"`           // Natural height in pixels
}

// FromBytes decodes the header of data to learn its natural size.
func FromBytes(name string, data []byte) (ImageData, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ImageData{}, fmt.Errorf("failed to decode image %q: %w", name, err)
	}
	return ImageData{
		Name:   name,
		Source: data,
		Width:  cfg.Width,
		Height: cfg.Height,
	}, nil
}

// Load reads an image from the specified path.
func Load(path string) (ImageData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ImageData{}, fmt.Errorf("failed to open image: %w", err)
	}
	d, err := FromBytes(filepath.Base(path), data)
	if err != nil {
		return ImageData{}, err
	}
	d.URL = path
	return d, nil
}

// FromBase64 decodes base64 payloads such as those returned by remote services.
func FromBase64(name, payload string) (ImageData, error) {
	payload = strings.TrimSpace(payload)
	if i := strings.Index(payload, ";base64,"); i >= 0 {
		payload = payload[i+len(";base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return ImageData{}, fmt.Errorf("failed to decode base64 image: %w", err)
	}
	return FromBytes(name, data)
}

// Decode returns the pixel data.
func (d ImageData) Decode() (image.Image, error) {
	if len(d.Source) == 0 {
		return nil, fmt.Errorf("image %q has no source data", d.Name)
	}
	img, _, err := image.Decode(bytes.NewReader(d.Source))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %q: %w", d.Name, err)
	}
	return img, nil
}

// Clone returns a copy that shares no memory with d.
func (d ImageData) Clone() ImageData {
	c := d
	if d.Source != nil {
		c.Source = append([]byte(nil), d.Source...)
	}
	return c
}

// Empty reports whether the image has no pixels.
func (d ImageData) Empty() bool {
	return d.Width <= 0 || d.Height <= 0
}

// SupportedFormats returns the list of supported image formats.
func SupportedFormats() []string {
	return []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tiff", ".tif", ".webp"}
}

// IsSupportedFormat checks if the given path has a supported image format.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}
