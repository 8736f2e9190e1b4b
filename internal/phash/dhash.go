// Package phash computes a 256-bit perceptual hash straight from raw RGBA
// pixel bytes.
//
// The hash samples a 16×16 grid over the centred square of a region,
// converts each sample to luma and sets a bit for every sample at or above
// the mean. Similar images produce hashes with a small Hamming distance.
// Sampling is nearest-pixel at each block centre, so the cost is 256 pixel
// reads regardless of region size.
package phash

import (
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"math/bits"
)

// GridSize is the number of samples per side.
const GridSize = 16

// Bits is the hash length in bits.
const Bits = GridSize * GridSize

// ErrEmptyRegion is returned for regions without pixels.
var ErrEmptyRegion = errors.New("empty hash region")

// Hash is a 256-bit difference hash. Bit k (row-major sample order) is the
// most-significant-first bit k%8 of byte k/8.
type Hash [Bits / 8]byte

// String encodes the hash as 64 lowercase hex characters.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Parse decodes a 64-character hex string.
func Parse(s string) (Hash, error) {
	var h Hash
	if len(s) != hex.EncodedLen(len(h)) {
		return h, fmt.Errorf("hash must be %d hex characters, got %d", hex.EncodedLen(len(h)), len(s))
	}
	if _, err := hex.Decode(h[:], []byte(s)); err != nil {
		return h, fmt.Errorf("invalid hash: %w", err)
	}
	return h, nil
}

// Distance is the Hamming distance between two hashes (0-256).
func Distance(a, b Hash) int {
	d := 0
	for i := range a {
		d += bits.OnesCount8(a[i] ^ b[i])
	}
	return d
}

// FromRGBA hashes rect inside a raw RGBA buffer laid out like image.RGBA:
// 4 bytes per pixel, stride bytes per row, pixel (0,0) at offset 0.
//
// rect is in buffer coordinates and must lie inside the buffer.
func FromRGBA(pix []byte, stride int, rect image.Rectangle) (Hash, error) {
	var h Hash
	if rect.Empty() || rect.Min.X < 0 || rect.Min.Y < 0 {
		return h, ErrEmptyRegion
	}
	if stride < rect.Max.X*4 {
		return h, fmt.Errorf("stride %d too small for x=%d", stride, rect.Max.X)
	}
	if need := (rect.Max.Y-1)*stride + rect.Max.X*4; len(pix) < need {
		return h, fmt.Errorf("pixel buffer too short: %d < %d", len(pix), need)
	}

	// Cover crop: the centred square of the smaller side.
	side := rect.Dx()
	if rect.Dy() < side {
		side = rect.Dy()
	}
	ox := rect.Min.X + (rect.Dx()-side)/2
	oy := rect.Min.Y + (rect.Dy()-side)/2

	var samples [Bits]float64
	var sum float64
	for row := 0; row < GridSize; row++ {
		y := oy + int((float64(row)+0.5)*float64(side)/GridSize)
		for col := 0; col < GridSize; col++ {
			x := ox + int((float64(col)+0.5)*float64(side)/GridSize)
			i := y*stride + x*4
			gray := 0.299*float64(pix[i]) + 0.587*float64(pix[i+1]) + 0.114*float64(pix[i+2])
			samples[row*GridSize+col] = gray
			sum += gray
		}
	}

	mean := sum / Bits
	for k, v := range samples {
		if v >= mean {
			h[k/8] |= 0x80 >> (k % 8)
		}
	}
	return h, nil
}

// FromImage hashes rect of img, given in img's coordinate space.
func FromImage(img *image.RGBA, rect image.Rectangle) (Hash, error) {
	if !rect.In(img.Bounds()) {
		return Hash{}, fmt.Errorf("region %v outside image bounds %v", rect, img.Bounds())
	}
	local := rect.Sub(img.Rect.Min)
	return FromRGBA(img.Pix, img.Stride, local)
}
