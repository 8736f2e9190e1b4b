package imaging

import (
	"fmt"
	"image"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// RGBColor represents an RGB color with 8-bit components.
type RGBColor struct {
	R uint8 `json:"r"` // Red component (0-255)
	G uint8 `json:"g"` // Green component (0-255)
	B uint8 `json:"b"` // Blue component (0-255)
}

// HSLColor represents a color in HSL (Hue, Saturation, Lightness) color space.
type HSLColor struct {
	H int `json:"h"` // Hue: 0-360 degrees (0=red, 120=green, 240=blue)
	S int `json:"s"` // Saturation: 0-100 percent (0=gray, 100=vivid)
	L int `json:"l"` // Lightness: 0-100 percent (0=black, 50=normal, 100=white)
}

// ColorResult contains a color value in multiple representations.
type ColorResult struct {
	Hex string   `json:"hex"` // Hex format "#RRGGBB" (no alpha)
	RGB RGBColor `json:"rgb"` // RGB components
	HSL HSLColor `json:"hsl"` // HSL representation
}

// SampleColor extracts the color value at a specific pixel coordinate.
//
// Transparent pixels sample as black.
func SampleColor(img image.Image, x, y int) (*ColorResult, error) {
	if !(image.Point{X: x, Y: y}).In(img.Bounds()) {
		return nil, fmt.Errorf("coordinates (%d,%d) outside image bounds", x, y)
	}

	c, _ := colorful.MakeColor(img.At(x, y))
	r, g, b := c.RGB255()
	h, s, l := c.Hsl()

	return &ColorResult{
		Hex: fmt.Sprintf("#%02X%02X%02X", r, g, b),
		RGB: RGBColor{R: r, G: g, B: b},
		HSL: HSLColor{
			H: int(math.Round(h)) % 360,
			S: int(math.Round(s * 100)),
			L: int(math.Round(l * 100)),
		},
	}, nil
}

// HueSample is the outcome of SampleHue.
type HueSample struct {
	// Hue is the chroma-weighted circular mean hue in degrees [0, 360).
	// Zero when every sample is gray.
	Hue float64 `json:"hue"`

	// Colors lists the sampled colors as "#rrggbb", row-major.
	Colors []string `json:"colors"`
}

// SampleHue samples a grid×grid lattice of block centres inside rect and
// reports their colors and dominant hue.
//
// Each sample's hue is weighted by saturation × value, so gray and dark
// pixels barely move the mean.
func SampleHue(img image.Image, rect image.Rectangle, grid int) (*HueSample, error) {
	if grid < 1 {
		return nil, fmt.Errorf("grid must be at least 1, got %d", grid)
	}
	if err := checkRegion(img.Bounds(), rect); err != nil {
		return nil, err
	}

	out := &HueSample{Colors: make([]string, 0, grid*grid)}
	var sumSin, sumCos float64
	for row := 0; row < grid; row++ {
		y := rect.Min.Y + int((float64(row)+0.5)*float64(rect.Dy())/float64(grid))
		for col := 0; col < grid; col++ {
			x := rect.Min.X + int((float64(col)+0.5)*float64(rect.Dx())/float64(grid))
			c, ok := colorful.MakeColor(img.At(x, y))
			if !ok {
				continue
			}
			out.Colors = append(out.Colors, c.Hex())

			h, s, v := c.Hsv()
			w := s * v
			rad := h * math.Pi / 180
			sumSin += w * math.Sin(rad)
			sumCos += w * math.Cos(rad)
		}
	}

	if math.Abs(sumSin) > 1e-9 || math.Abs(sumCos) > 1e-9 {
		hue := math.Atan2(sumSin, sumCos) * 180 / math.Pi
		if hue < 0 {
			hue += 360
		}
		out.Hue = hue
	}
	return out, nil
}
