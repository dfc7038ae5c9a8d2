// Command ocrtext runs text extraction on an image and prints the words found.
//
// Usage: ocrtext -image <path> [-lang eng] [-min-conf 0] [-timeout 30s]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"photo-editor/internal/imaging"
	"photo-editor/internal/ocr"
)

func main() {
	imagePath := flag.String("image", "", "Path to image (PNG, JPEG, TIFF, BMP, WebP)")
	lang := flag.String("lang", "eng", "Tesseract language")
	minConf := flag.Float64("min-conf", 0, "Minimum word confidence to print")
	timeout := flag.Duration("timeout", 30*time.Second, "Recognition timeout")
	flag.Parse()

	if *imagePath == "" {
		fmt.Println("Usage: ocrtext -image <path> [-lang eng] [-min-conf 0] [-timeout 30s]")
		os.Exit(1)
	}

	data, err := imaging.Load(*imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load image: %v\n", err)
		os.Exit(1)
	}

	engine, err := ocr.NewEngine(*lang)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start OCR: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	start := time.Now()
	words, err := engine.Words(ctx, data.Source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Recognition failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Found %d words in %v\n\n", len(words), time.Since(start).Round(time.Millisecond))

	var kept []ocr.Word
	for _, w := range words {
		if w.Confidence < *minConf {
			continue
		}
		kept = append(kept, w)
		fmt.Printf("  %-20q conf=%5.1f  at %v\n", w.Text, w.Confidence, w.Bounds)
	}
	if len(kept) == 0 {
		return
	}
	fmt.Printf("\nBounds: %v\n", ocr.Bounds(kept))
	fmt.Printf("Text:\n%s\n", ocr.Text(kept))
}
