package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
)

// CropResult contains the cropped image data
type CropResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// CropRGBA extracts rect from img. The result has its origin at (0,0).
func CropRGBA(img image.Image, rect image.Rectangle) (*image.RGBA, error) {
	if err := checkRegion(img.Bounds(), rect); err != nil {
		return nil, err
	}
	return ToRGBA(imaging.Crop(img, rect)), nil
}

// Crop extracts rect from img, optionally scales it, and returns it as a
// base64 PNG.
func Crop(img image.Image, rect image.Rectangle, scale float64) (*CropResult, error) {
	if err := checkRegion(img.Bounds(), rect); err != nil {
		return nil, err
	}

	cropped := imaging.Crop(img, rect)

	if scale != 1.0 && scale > 0 {
		newWidth := int(float64(cropped.Bounds().Dx()) * scale)
		newHeight := int(float64(cropped.Bounds().Dy()) * scale)
		cropped = imaging.Resize(cropped, newWidth, newHeight, imaging.Lanczos)
	}

	data, err := EncodePNG(cropped)
	if err != nil {
		return nil, err
	}

	return &CropResult{
		Width:       cropped.Bounds().Dx(),
		Height:      cropped.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(data),
		MimeType:    "image/png",
	}, nil
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

func checkRegion(bounds, rect image.Rectangle) error {
	if rect.Min.X >= rect.Max.X || rect.Min.Y >= rect.Max.Y {
		return fmt.Errorf("invalid crop region: x1 must be < x2, y1 must be < y2")
	}
	if !rect.In(bounds) {
		return fmt.Errorf("crop region (%d,%d)-(%d,%d) outside image bounds (%d,%d)-(%d,%d)",
			rect.Min.X, rect.Min.Y, rect.Max.X, rect.Max.Y,
			bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
	}
	return nil
}
