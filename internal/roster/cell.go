// Package roster defines the recognized roster grid returned to callers.
//
// Optional fields are pointers (or empty strings) so that "not detected"
// never collapses into a zero value: a cell with Rank == nil had no rank
// text nearby, which is different from rank 0.
package roster

import (
	"image"

	"github.com/Ondrej-Sulc/cerebro-roster/internal/geometry"
)

// Class is a champion class as resolved by the upstream feature classifier.
// The empty Class means unresolved.
type Class string

const (
	ClassCosmic  Class = "COSMIC"
	ClassTech    Class = "TECH"
	ClassMutant  Class = "MUTANT"
	ClassSkill   Class = "SKILL"
	ClassScience Class = "SCIENCE"
	ClassMystic  Class = "MYSTIC"
)

// Cell is one roster card recognized in a screenshot.
type Cell struct {
	// Bounds is always set. It may extend past the image at the grid edges.
	Bounds geometry.Rect `json:"bounds"`

	// PIBounds is the bounding box of the power rating detection.
	PIBounds *geometry.Rect `json:"piBounds,omitempty"`

	PowerRating *int `json:"powerRating,omitempty"`
	Rank        *int `json:"rank,omitempty"`
	SigLevel    *int `json:"sigLevel,omitempty"`

	// Stars, IsAscended and Class are filled in by the feature classifier.
	Stars      *int  `json:"stars,omitempty"`
	IsAscended *bool `json:"isAscended,omitempty"`
	Class      Class `json:"class,omitempty"`

	// ChampionName is set only when a portrait match was accepted.
	ChampionName string `json:"championName,omitempty"`

	// Debug is populated only in debug mode.
	Debug *Diagnostics `json:"debugInfo,omitempty"`
}

// Identified reports whether a champion was accepted for the cell.
func (c *Cell) Identified() bool {
	return c.ChampionName != ""
}

// Diagnostics is tuning scratch space attached to a cell in debug mode.
// Nothing in recognition reads it back.
type Diagnostics struct {
	BestMatch     string   `json:"bestMatch,omitempty"`
	BestDistance  *int     `json:"bestDistance,omitempty"`
	PortraitHash  string   `json:"portraitHash,omitempty"`
	Candidates    int      `json:"candidates"`
	PortraitHue   *float64 `json:"portraitHue,omitempty"`
	SampledColors []string `json:"sampledColors,omitempty"`

	// BestMatchImage is the best candidate's reference crop, for overlays.
	BestMatchImage image.Image `json:"-"`
}

// CellDims is the uniform card size of a grid.
type CellDims struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Layout is the reconstructed grid plus the measurements that produced it.
type Layout struct {
	Cells      []Cell   `json:"cells"`
	AvgColDist float64  `json:"avgColDist"`
	CellDims   CellDims `json:"cellDims"`

	// HeaderMinY is the bottom of the lowest header keyword, if any.
	HeaderMinY *int `json:"headerMinY,omitempty"`
}

// StripDiagnostics removes debug info from every cell.
func StripDiagnostics(cells []Cell) {
	for i := range cells {
		cells[i].Debug = nil
	}
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}
