// Package ocr recognizes text in image layers using Tesseract.
package ocr

import (
	"context"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
	"gocv.io/x/gocv"
)

// Word is one recognized word in image pixel coordinates.
type Word struct {
	Text       string
	Bounds     image.Rectangle
	Confidence float64
}

// Engine provides OCR using a single Tesseract client. It is safe for
// concurrent use; calls are serialized.
type Engine struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// NewEngine creates an engine for the given Tesseract language ("" means eng).
func NewEngine(lang string) (*Engine, error) {
	if lang == "" {
		lang = "eng"
	}
	client := gosseract.NewClient()
	if err := client.SetLanguage(lang); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set OCR language: %w", err)
	}
	return &Engine{client: client}, nil
}

// Close releases OCR resources.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client != nil {
		err := e.client.Close()
		e.client = nil
		return err
	}
	return nil
}

// Words finds and recognizes all words in an encoded image.
func (e *Engine) Words(ctx context.Context, encoded []byte) ([]Word, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	png, err := preprocess(encoded)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client == nil {
		return nil, fmt.Errorf("ocr engine closed")
	}
	if err := e.client.SetPageSegMode(gosseract.PSM_SPARSE_TEXT); err != nil {
		return nil, fmt.Errorf("failed to set PSM: %w", err)
	}
	if err := e.client.SetImageFromBytes(png); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}
	boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("failed to get boxes: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var words []Word
	for _, box := range boxes {
		text := strings.TrimSpace(box.Word)
		if text == "" {
			continue
		}
		words = append(words, Word{Text: text, Bounds: box.Box, Confidence: box.Confidence})
	}
	return words, nil
}

// preprocess converts an encoded image to a binarized grayscale PNG, which
// Tesseract reads more reliably than photographs.
func preprocess(encoded []byte) ([]byte, error) {
	gray, err := gocv.IMDecode(encoded, gocv.IMReadGrayScale)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	defer gray.Close()
	if gray.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(gray, &binary, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)

	buf, err := gocv.IMEncode(gocv.PNGFileExt, binary)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()
	return append([]byte(nil), buf.GetBytes()...), nil
}

// Text joins words into lines, breaking where a word starts below the
// previous word's baseline.
func Text(words []Word) string {
	var sb strings.Builder
	for i, w := range words {
		if i > 0 {
			if w.Bounds.Min.Y >= words[i-1].Bounds.Max.Y {
				sb.WriteByte('\n')
			} else {
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(w.Text)
	}
	return sb.String()
}

// Bounds returns the union of the words' bounds.
func Bounds(words []Word) image.Rectangle {
	var r image.Rectangle
	for _, w := range words {
		r = r.Union(w.Bounds)
	}
	return r
}
