package geometry

import (
	"image"
	"math"
)

// Rect is an axis-aligned rectangle in source-image pixel space.
//
// Unlike image.Rectangle it is expressed as origin plus size, which is how
// cells and crops are reported to callers. X and Y may be negative for
// cells at the edge of the grid.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// RectFromImage converts an image.Rectangle.
func RectFromImage(r image.Rectangle) Rect {
	return Rect{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// Image returns the equivalent image.Rectangle (Max exclusive).
func (r Rect) Image() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Crop returns the sub-rectangle described by ratio, rounded to pixels.
func (r Rect) Crop(ratio CropRatio) Rect {
	return Rect{
		X:      r.X + round(ratio.X*float64(r.Width)),
		Y:      r.Y + round(ratio.Y*float64(r.Height)),
		Width:  round(ratio.W * float64(r.Width)),
		Height: round(ratio.H * float64(r.Height)),
	}
}

// Within reports whether r is non-empty and lies entirely inside bounds.
func (r Rect) Within(bounds image.Rectangle) bool {
	if r.Width <= 0 || r.Height <= 0 {
		return false
	}
	return r.Image().In(bounds)
}

func round(v float64) int {
	return int(math.Round(v))
}
