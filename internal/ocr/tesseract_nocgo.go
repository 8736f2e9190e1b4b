//go:build !cgo

package ocr

import (
	"context"
	"fmt"
)

// TesseractDetector is unavailable without CGO.
type TesseractDetector struct {
	Language       string
	TessdataPrefix string
	MinConfidence  float64
}

// Detect always fails: gosseract needs CGO.
func (d *TesseractDetector) Detect(ctx context.Context, imageBytes []byte) ([]TextAnnotation, error) {
	return nil, fmt.Errorf("tesseract backend requires a cgo build")
}

// TesseractVersion reports that Tesseract is not linked.
func TesseractVersion() string {
	return "unavailable (built without cgo)"
}
