//go:build cgo

package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// TesseractDetector runs local Tesseract OCR and reports word-level boxes.
//
// Each call creates its own gosseract client, so one detector may be used
// from several goroutines.
type TesseractDetector struct {
	// Language is the Tesseract language code. Defaults to "eng".
	Language string

	// TessdataPrefix overrides the directory holding *.traineddata files.
	TessdataPrefix string

	// MinConfidence drops words below this confidence (0.0 to 1.0).
	MinConfidence float64
}

// Detect runs OCR on the encoded image. The first annotation is the
// aggregate of all words spanning the full image.
func (d *TesseractDetector) Detect(ctx context.Context, imageBytes []byte) ([]TextAnnotation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(imageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read image header: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if d.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(d.TessdataPrefix); err != nil {
			return nil, fmt.Errorf("failed to set tessdata path: %w", err)
		}
	}

	language := d.Language
	if language == "" {
		language = "eng"
	}
	if err := client.SetLanguage(language); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}

	if err := client.SetImageFromBytes(imageBytes); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	words := make([]TextAnnotation, 0, len(boxes))
	for _, box := range boxes {
		word := strings.TrimSpace(box.Word)
		if word == "" {
			continue
		}
		if float64(box.Confidence)/100.0 < d.MinConfidence {
			continue
		}
		words = append(words, NewAnnotation(word, box.Box))
	}

	return withAggregate(words, image.Rect(0, 0, cfg.Width, cfg.Height)), nil
}

// TesseractVersion returns the linked Tesseract version.
func TesseractVersion() string {
	client := gosseract.NewClient()
	defer client.Close()
	return client.Version()
}
