// Package geometry holds the ratios and thresholds that map a roster card
// onto pixel rectangles.
package geometry

import (
	"fmt"
)

// CropRatio describes a sub-rectangle as fractions of a parent rectangle.
//
// X and Y are the offset of the top-left corner, W and H the size, all in
// the range 0-1 relative to the parent's width and height.
type CropRatio struct {
	X float64 `json:"x" mapstructure:"x"`
	Y float64 `json:"y" mapstructure:"y"`
	W float64 `json:"w" mapstructure:"w"`
	H float64 `json:"h" mapstructure:"h"`
}

// Config is the single table of geometry ratios and thresholds used by the
// layout estimator, the portrait matcher and the debug visualizer.
//
// A Config is built once with Default (optionally overlaid from
// configuration) and passed around by value. Nothing mutates it afterwards.
type Config struct {
	// MinPIValue is the power rating a numeric text must exceed to be
	// considered an anchor.
	MinPIValue int `json:"min_pi_value" mapstructure:"min_pi_value"`

	// ColumnTolerance is the x distance in pixels under which two anchors
	// belong to the same column.
	ColumnTolerance float64 `json:"column_tolerance" mapstructure:"column_tolerance"`

	// FallbackColumns divides the image width when fewer than two columns
	// can be found.
	FallbackColumns int `json:"fallback_columns" mapstructure:"fallback_columns"`

	// CellWidthRatio and CellHeightRatio scale the average column distance
	// into cell dimensions.
	CellWidthRatio  float64 `json:"cell_width_ratio" mapstructure:"cell_width_ratio"`
	CellHeightRatio float64 `json:"cell_height_ratio" mapstructure:"cell_height_ratio"`

	// PIOffsetXRatio is the distance from the card's left edge to the power
	// rating text, as a fraction of the average column distance.
	PIOffsetXRatio float64 `json:"pi_offset_x_ratio" mapstructure:"pi_offset_x_ratio"`

	// PIOffsetYRatio is the distance from the card's top edge to the power
	// rating text, as a fraction of the cell height.
	PIOffsetYRatio float64 `json:"pi_offset_y_ratio" mapstructure:"pi_offset_y_ratio"`

	// LeadingGlyphShift moves the anchor x right by this multiple of the
	// text height when the detection starts with a non-digit glyph.
	// Empirical; needs recalibration when the game UI changes.
	LeadingGlyphShift float64 `json:"leading_glyph_shift" mapstructure:"leading_glyph_shift"`

	// NearbyTextRatio bounds the horizontal search for rank/sig text as a
	// fraction of the cell width.
	NearbyTextRatio float64 `json:"nearby_text_ratio" mapstructure:"nearby_text_ratio"`

	// SameRowRatio is the fraction of the cell height under which two cells
	// are on the same row.
	SameRowRatio float64 `json:"same_row_ratio" mapstructure:"same_row_ratio"`

	// HeaderKeywords mark UI chrome above the roster grid.
	HeaderKeywords []string `json:"header_keywords" mapstructure:"header_keywords"`

	ClassIconCrop     CropRatio `json:"class_icon_crop" mapstructure:"class_icon_crop"`
	PortraitCrop      CropRatio `json:"portrait_crop" mapstructure:"portrait_crop"`
	StarBandCrop      CropRatio `json:"star_band_crop" mapstructure:"star_band_crop"`
	AscensionIconCrop CropRatio `json:"ascension_icon_crop" mapstructure:"ascension_icon_crop"`

	// ReferenceCrop is applied to reference artwork, whose framing differs
	// from the in-game card.
	ReferenceCrop CropRatio `json:"reference_crop" mapstructure:"reference_crop"`

	// MatchThreshold is the largest accepted Hamming distance out of 256 bits.
	MatchThreshold int `json:"match_threshold" mapstructure:"match_threshold"`
}

// Default returns the geometry tuned against current roster screenshots.
func Default() Config {
	return Config{
		MinPIValue:        300,
		ColumnTolerance:   50,
		FallbackColumns:   7,
		CellWidthRatio:    0.92,
		CellHeightRatio:   1.45,
		PIOffsetXRatio:    0.22,
		PIOffsetYRatio:    0.80,
		LeadingGlyphShift: 1.15,
		NearbyTextRatio:   0.6,
		SameRowRatio:      0.5,
		HeaderKeywords:    []string{"CHAMPIONS", "SORT", "FILTER", "PROGRESSION"},

		ClassIconCrop:     CropRatio{X: 0.04, Y: 0.04, W: 0.18, H: 0.13},
		PortraitCrop:      CropRatio{X: 0.10, Y: 0.12, W: 0.80, H: 0.55},
		StarBandCrop:      CropRatio{X: 0.10, Y: 0.02, W: 0.80, H: 0.09},
		AscensionIconCrop: CropRatio{X: 0.78, Y: 0.04, W: 0.18, H: 0.13},
		ReferenceCrop:     CropRatio{X: 0.15, Y: 0.10, W: 0.70, H: 0.70},

		MatchThreshold: 90,
	}
}

// Validate reports a field that cannot produce a usable grid.
func (c Config) Validate() error {
	if c.MinPIValue < 0 {
		return fmt.Errorf("min_pi_value must be >= 0, got %d", c.MinPIValue)
	}
	if c.ColumnTolerance <= 0 {
		return fmt.Errorf("column_tolerance must be > 0, got %g", c.ColumnTolerance)
	}
	if c.FallbackColumns <= 0 {
		return fmt.Errorf("fallback_columns must be > 0, got %d", c.FallbackColumns)
	}
	positive := map[string]float64{
		"cell_width_ratio":  c.CellWidthRatio,
		"cell_height_ratio": c.CellHeightRatio,
		"nearby_text_ratio": c.NearbyTextRatio,
		"same_row_ratio":    c.SameRowRatio,
	}
	for name, v := range positive {
		if v <= 0 {
			return fmt.Errorf("%s must be > 0, got %g", name, v)
		}
	}
	if c.PIOffsetXRatio < 0 || c.PIOffsetYRatio < 0 || c.LeadingGlyphShift < 0 {
		return fmt.Errorf("offset ratios must be >= 0")
	}
	crops := map[string]CropRatio{
		"class_icon_crop":     c.ClassIconCrop,
		"portrait_crop":       c.PortraitCrop,
		"star_band_crop":      c.StarBandCrop,
		"ascension_icon_crop": c.AscensionIconCrop,
		"reference_crop":      c.ReferenceCrop,
	}
	for name, r := range crops {
		if r.W <= 0 || r.H <= 0 {
			return fmt.Errorf("%s must have positive size", name)
		}
	}
	if c.MatchThreshold < 0 || c.MatchThreshold > 256 {
		return fmt.Errorf("match_threshold must be within 0-256, got %d", c.MatchThreshold)
	}
	return nil
}
