package phash

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"testing"
)

// createHalfImage creates an image whose left half is left and right half is right.
func createHalfImage(width, height int, left, right color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x < width/2 {
				img.SetRGBA(x, y, left)
			} else {
				img.SetRGBA(x, y, right)
			}
		}
	}
	return img
}

// createNoiseImage creates a deterministic pseudo-random image.
func createNoiseImage(width, height int, seed uint32) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	s := seed
	for i := range img.Pix {
		s = s*1664525 + 1013904223
		img.Pix[i] = byte(s >> 24)
	}
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	return img
}

var (
	black = color.RGBA{0, 0, 0, 255}
	white = color.RGBA{255, 255, 255, 255}
)

func TestFromRGBA_Deterministic(t *testing.T) {
	img := createNoiseImage(120, 90, 7)

	a, err := FromImage(img, img.Bounds())
	if err != nil {
		t.Fatalf("FromImage failed: %v", err)
	}
	b, err := FromImage(img, img.Bounds())
	if err != nil {
		t.Fatalf("FromImage failed: %v", err)
	}

	if a.String() != b.String() {
		t.Errorf("hash not deterministic: %s vs %s", a, b)
	}
	if len(a.String()) != 64 {
		t.Errorf("hex length: got %d, want 64", len(a.String()))
	}
	if a.String() != strings.ToLower(a.String()) {
		t.Error("hex must be lowercase")
	}
}

func TestFromRGBA_HalfImage(t *testing.T) {
	img := createHalfImage(64, 64, black, white)

	h, err := FromImage(img, img.Bounds())
	if err != nil {
		t.Fatalf("FromImage failed: %v", err)
	}

	// Each row is 8 dark samples then 8 bright ones.
	want := strings.Repeat("00ff", 16)
	if h.String() != want {
		t.Errorf("got %s, want %s", h, want)
	}
}

func TestFromRGBA_UniformSetsAllBits(t *testing.T) {
	img := createHalfImage(32, 32, black, black)

	h, err := FromImage(img, img.Bounds())
	if err != nil {
		t.Fatalf("FromImage failed: %v", err)
	}
	if h.String() != strings.Repeat("f", 64) {
		t.Errorf("uniform image should set every bit, got %s", h)
	}
}

func TestFromRGBA_CoverCrop(t *testing.T) {
	square := createNoiseImage(80, 80, 3)

	// Same square centred in a wider canvas with different side bars.
	wide := createNoiseImage(120, 80, 99)
	draw.Draw(wide, image.Rect(20, 0, 100, 80), square, image.Point{}, draw.Src)

	a, err := FromImage(square, square.Bounds())
	if err != nil {
		t.Fatalf("FromImage failed: %v", err)
	}
	b, err := FromImage(wide, wide.Bounds())
	if err != nil {
		t.Fatalf("FromImage failed: %v", err)
	}

	if d := Distance(a, b); d != 0 {
		t.Errorf("cover crop should ignore side bars, distance %d", d)
	}
}

func TestFromImage_SubImageOffset(t *testing.T) {
	img := createNoiseImage(200, 200, 11)
	region := image.Rect(40, 60, 140, 160)

	direct, err := FromImage(img, region)
	if err != nil {
		t.Fatalf("FromImage failed: %v", err)
	}

	sub := img.SubImage(region).(*image.RGBA)
	viaSub, err := FromImage(sub, region)
	if err != nil {
		t.Fatalf("FromImage on sub-image failed: %v", err)
	}

	if direct != viaSub {
		t.Errorf("sub-image hash differs: %s vs %s", direct, viaSub)
	}
}

func TestFromRGBA_Errors(t *testing.T) {
	img := createNoiseImage(50, 50, 1)

	tests := []struct {
		name string
		pix  []byte
		rect image.Rectangle
	}{
		{"empty rect", img.Pix, image.Rect(10, 10, 10, 20)},
		{"negative origin", img.Pix, image.Rect(-1, 0, 10, 10)},
		{"past right edge", img.Pix, image.Rect(0, 0, 51, 10)},
		{"short buffer", img.Pix[:100], image.Rect(0, 0, 50, 50)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := FromRGBA(tt.pix, img.Stride, tt.rect); err == nil {
				t.Error("FromRGBA should fail")
			}
		})
	}

	if _, err := FromRGBA(img.Pix, img.Stride, image.Rectangle{}); !errors.Is(err, ErrEmptyRegion) {
		t.Errorf("expected ErrEmptyRegion, got %v", err)
	}
}

func TestFromImage_OutsideBounds(t *testing.T) {
	img := createNoiseImage(50, 50, 1)
	if _, err := FromImage(img, image.Rect(40, 40, 60, 60)); err == nil {
		t.Error("FromImage should fail for out-of-bounds region")
	}
}

func TestDistance(t *testing.T) {
	a, _ := FromImage(createNoiseImage(64, 64, 1), image.Rect(0, 0, 64, 64))
	b, _ := FromImage(createNoiseImage(64, 64, 2), image.Rect(0, 0, 64, 64))

	if Distance(a, a) != 0 {
		t.Error("distance must be reflexive")
	}
	if Distance(a, b) != Distance(b, a) {
		t.Error("distance must be symmetric")
	}

	bw := createHalfImage(64, 64, black, white)
	wb := createHalfImage(64, 64, white, black)
	h1, _ := FromImage(bw, bw.Bounds())
	h2, _ := FromImage(wb, wb.Bounds())
	if d := Distance(h1, h2); d != Bits {
		t.Errorf("inverted halves: got distance %d, want %d", d, Bits)
	}
}

func TestParse(t *testing.T) {
	h, _ := FromImage(createNoiseImage(64, 64, 5), image.Rect(0, 0, 64, 64))

	got, err := Parse(h.String())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got != h {
		t.Errorf("Parse: got %s, want %s", got, h)
	}

	for _, bad := range []string{"", "abc", strings.Repeat("z", 64)} {
		if _, err := Parse(bad); err == nil {
			t.Errorf("Parse(%q) should fail", bad)
		}
	}
}
