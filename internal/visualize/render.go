// Package visualize draws recognition overlays onto a screenshot for
// tuning the geometry ratios. Nothing in recognition depends on it.
package visualize

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/Ondrej-Sulc/cerebro-roster/internal/geometry"
	rimaging "github.com/Ondrej-Sulc/cerebro-roster/internal/imaging"
	"github.com/Ondrej-Sulc/cerebro-roster/internal/roster"
)

// Overlay colors.
var (
	HeaderColor    = color.RGBA{255, 0, 255, 255}
	CellColor      = color.RGBA{0, 255, 0, 255}
	ClassIconColor = color.RGBA{255, 165, 0, 255}
	PortraitColor  = color.RGBA{0, 160, 255, 255}
	StarBandColor  = color.RGBA{255, 255, 0, 255}
	AscensionColor = color.RGBA{160, 0, 255, 255}
	PIColor        = color.RGBA{255, 0, 0, 255}

	labelFG = color.RGBA{255, 255, 255, 255}
	labelBG = color.RGBA{0, 0, 0, 180}
)

// Render decodes src and draws the header line, every cell with its
// sub-crops and power-rating box, a label of the recognized fields and a
// thumbnail of the best reference match. The result is PNG.
//
// src is returned unchanged when there is nothing to draw.
func Render(src []byte, cells []roster.Cell, dims roster.CellDims, headerMinY *int, geo geometry.Config) ([]byte, error) {
	if len(cells) == 0 && headerMinY == nil {
		return src, nil
	}

	decoded, _, err := rimaging.Decode(src)
	if err != nil {
		return nil, err
	}
	canvas := image.NewRGBA(decoded.Bounds())
	draw.Draw(canvas, canvas.Bounds(), decoded, decoded.Bounds().Min, draw.Src)

	if headerMinY != nil {
		b := canvas.Bounds()
		for t := 0; t < 2; t++ {
			hline(canvas, b.Min.X, b.Max.X, *headerMinY+t, HeaderColor)
		}
	}

	for i := range cells {
		drawCell(canvas, &cells[i], dims, geo)
	}

	return rimaging.EncodePNG(canvas)
}

func drawCell(img *image.RGBA, c *roster.Cell, dims roster.CellDims, geo geometry.Config) {
	strokeRect(img, c.Bounds.Image(), CellColor, 2)
	strokeRect(img, c.Bounds.Crop(geo.ClassIconCrop).Image(), ClassIconColor, 1)
	strokeRect(img, c.Bounds.Crop(geo.PortraitCrop).Image(), PortraitColor, 1)
	strokeRect(img, c.Bounds.Crop(geo.StarBandCrop).Image(), StarBandColor, 1)
	strokeRect(img, c.Bounds.Crop(geo.AscensionIconCrop).Image(), AscensionColor, 1)
	if c.PIBounds != nil {
		strokeRect(img, c.PIBounds.Image(), PIColor, 1)
	}

	label := Label(c)
	lx, ly := c.Bounds.X+3, c.Bounds.Y+c.Bounds.Height-4
	drawLabel(img, lx, ly, label)

	if c.Debug != nil && c.Debug.BestMatchImage != nil {
		side := int(dims.Width / 3)
		if side <= 0 {
			side = c.Bounds.Width / 3
		}
		if side > 0 {
			thumb := imaging.Fit(c.Debug.BestMatchImage, side, side, imaging.Lanczos)
			at := image.Pt(c.Bounds.X+c.Bounds.Width-thumb.Bounds().Dx()-2, c.Bounds.Y+2)
			draw.Draw(img, thumb.Bounds().Add(at), thumb, image.Point{}, draw.Over)
		}
	}
}

// Label summarizes the recognized fields of a cell, for example
// "PI 1234 R4 S20 Wolverine". An unidentified cell with a best candidate
// shows "?Name(d)" instead of the name.
func Label(c *roster.Cell) string {
	var parts []string
	if c.PowerRating != nil {
		parts = append(parts, fmt.Sprintf("PI %d", *c.PowerRating))
	}
	if c.Rank != nil {
		parts = append(parts, fmt.Sprintf("R%d", *c.Rank))
	}
	if c.SigLevel != nil {
		parts = append(parts, fmt.Sprintf("S%d", *c.SigLevel))
	}
	switch {
	case c.ChampionName != "":
		parts = append(parts, c.ChampionName)
	case c.Debug != nil && c.Debug.BestMatch != "" && c.Debug.BestDistance != nil:
		parts = append(parts, fmt.Sprintf("?%s(%d)", c.Debug.BestMatch, *c.Debug.BestDistance))
	}
	return strings.Join(parts, " ")
}

// drawLabel draws text with its baseline at y on a translucent background.
func drawLabel(img *image.RGBA, x, y int, text string) {
	if text == "" {
		return
	}
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(labelFG),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	w := d.MeasureString(text).Ceil()
	m := face.Metrics()
	bg := image.Rect(x-1, y-m.Ascent.Ceil()-1, x+w+1, y+m.Descent.Ceil()+1).Intersect(img.Bounds())
	draw.Draw(img, bg, image.NewUniform(labelBG), image.Point{}, draw.Over)
	d.DrawString(text)
}

func strokeRect(img *image.RGBA, r image.Rectangle, c color.RGBA, width int) {
	for t := 0; t < width; t++ {
		hline(img, r.Min.X, r.Max.X, r.Min.Y+t, c)
		hline(img, r.Min.X, r.Max.X, r.Max.Y-1-t, c)
		vline(img, r.Min.X+t, r.Min.Y, r.Max.Y, c)
		vline(img, r.Max.X-1-t, r.Min.Y, r.Max.Y, c)
	}
}

func hline(img *image.RGBA, x0, x1, y int, c color.RGBA) {
	b := img.Bounds()
	if y < b.Min.Y || y >= b.Max.Y {
		return
	}
	for x := max(x0, b.Min.X); x < min(x1, b.Max.X); x++ {
		img.SetRGBA(x, y, c)
	}
}

func vline(img *image.RGBA, x, y0, y1 int, c color.RGBA) {
	b := img.Bounds()
	if x < b.Min.X || x >= b.Max.X {
		return
	}
	for y := max(y0, b.Min.Y); y < min(y1, b.Max.Y); y++ {
		img.SetRGBA(x, y, c)
	}
}
