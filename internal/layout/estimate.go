package layout

import (
	"errors"
	"fmt"
	"image"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/rs/zerolog/log"

	"github.com/Ondrej-Sulc/cerebro-roster/internal/geometry"
	"github.com/Ondrej-Sulc/cerebro-roster/internal/ocr"
	"github.com/Ondrej-Sulc/cerebro-roster/internal/roster"
)

// ErrAnchorNotFound means no power rating could anchor a grid.
var ErrAnchorNotFound = errors.New("grid could not be anchored")

var (
	// An optional single glyph (icon merged into the detection), then digits
	// with thousands separators.
	powerRatingPattern = regexp.MustCompile(`^[^\d\s]?\d[\d,.]*$`)

	rankPattern = regexp.MustCompile(`(?i)\brank\s*(\d+)`)
	sigPattern  = regexp.MustCompile(`(?i)\bsig\.?\s*(\d+)`)
)

// anchor is a power rating detection that will become one cell.
type anchor struct {
	index int // position in the word list
	box   image.Rectangle
	value int
	x     float64 // corrected left edge
	y     float64 // top edge
}

// Estimate builds the roster grid from text annotations.
//
// annotations must follow the detector convention: index 0 is the
// full-page aggregate and is skipped. imageWidth is the source width in
// pixels, used only for the single-column fallback.
//
// Returns an error wrapping ErrAnchorNotFound when no power rating
// survives filtering. Every other shortfall degrades to absent fields.
func Estimate(annotations []ocr.TextAnnotation, imageWidth int, geo geometry.Config) (*roster.Layout, error) {
	var words []ocr.TextAnnotation
	if len(annotations) > 1 {
		words = annotations[1:]
	}

	anchors := findAnchors(words, geo)
	if len(anchors) == 0 {
		return nil, fmt.Errorf("%w: no power rating above %d", ErrAnchorNotFound, geo.MinPIValue)
	}

	headerMinY, hasHeader := headerCutoff(words, geo.HeaderKeywords)

	// Anchors printed inside the header itself never take part in column
	// inference.
	columnSource := anchors
	if hasHeader {
		below := make([]anchor, 0, len(anchors))
		for _, a := range anchors {
			if a.y >= float64(headerMinY) {
				below = append(below, a)
			}
		}
		if len(below) > 0 {
			columnSource = below
		}
	}

	xs := make([]float64, len(columnSource))
	for i, a := range columnSource {
		xs[i] = a.x
	}
	columns := uniqueColumns(xs, geo.ColumnTolerance)
	avgColDist := averageSpacing(columns)
	if len(columns) < 2 {
		avgColDist = float64(imageWidth) / float64(geo.FallbackColumns)
	}

	dims := roster.CellDims{
		Width:  avgColDist * geo.CellWidthRatio,
		Height: avgColDist * geo.CellHeightRatio,
	}

	cells := make([]roster.Cell, 0, len(anchors))
	for _, a := range anchors {
		cellX, cellY := CellOrigin(a.x, a.y, avgColDist, dims.Height, geo)
		if hasHeader && cellY < float64(headerMinY) {
			log.Debug().
				Int("power", a.value).
				Float64("cell_y", cellY).
				Int("header_min_y", headerMinY).
				Msg("Discarding anchor above header cutoff")
			continue
		}

		piBounds := geometry.RectFromImage(a.box)
		cell := roster.Cell{
			Bounds: geometry.Rect{
				X:      int(math.Round(cellX)),
				Y:      int(math.Round(cellY)),
				Width:  int(math.Round(dims.Width)),
				Height: int(math.Round(dims.Height)),
			},
			PIBounds:    &piBounds,
			PowerRating: roster.IntPtr(a.value),
		}

		text := nearbyText(words, a, cellY, dims.Width*geo.NearbyTextRatio)
		cell.Rank = matchInt(rankPattern, text)
		cell.SigLevel = matchInt(sigPattern, text)

		cells = append(cells, cell)
	}

	if len(cells) == 0 {
		return nil, fmt.Errorf("%w: every anchor is above the header at y=%d", ErrAnchorNotFound, headerMinY)
	}

	sortReadingOrder(cells, dims.Height*geo.SameRowRatio)

	result := &roster.Layout{
		Cells:      cells,
		AvgColDist: avgColDist,
		CellDims:   dims,
	}
	if hasHeader {
		result.HeaderMinY = roster.IntPtr(headerMinY)
	}

	log.Debug().
		Int("anchors", len(anchors)).
		Int("columns", len(columns)).
		Float64("avg_col_dist", avgColDist).
		Int("cells", len(cells)).
		Msg("Estimated roster grid")

	return result, nil
}

// CellOrigin walks back from an anchor's corrected position to the top-left
// corner of its card.
func CellOrigin(anchorX, anchorY, avgColDist, cellHeight float64, geo geometry.Config) (x, y float64) {
	return anchorX - geo.PIOffsetXRatio*avgColDist, anchorY - geo.PIOffsetYRatio*cellHeight
}

// AnchorPosition is the inverse of CellOrigin.
func AnchorPosition(cellX, cellY, avgColDist, cellHeight float64, geo geometry.Config) (x, y float64) {
	return cellX + geo.PIOffsetXRatio*avgColDist, cellY + geo.PIOffsetYRatio*cellHeight
}

// ParsePowerRating extracts the numeric value of a power rating text.
// The second result reports whether the text starts with a non-digit glyph.
func ParsePowerRating(text string) (value int, leadingGlyph bool, ok bool) {
	text = strings.TrimSpace(text)
	if !powerRatingPattern.MatchString(text) {
		return 0, false, false
	}

	var digits strings.Builder
	for i, r := range text {
		if unicode.IsDigit(r) {
			digits.WriteRune(r)
		} else if i == 0 {
			leadingGlyph = true
		}
	}

	v, err := strconv.Atoi(digits.String())
	if err != nil {
		return 0, false, false
	}
	return v, leadingGlyph, true
}

func findAnchors(words []ocr.TextAnnotation, geo geometry.Config) []anchor {
	var anchors []anchor
	for i, w := range words {
		value, glyph, ok := ParsePowerRating(w.Description)
		if !ok || value <= geo.MinPIValue {
			continue
		}
		box := w.Bounds()
		x := float64(box.Min.X)
		if glyph {
			x += geo.LeadingGlyphShift * float64(box.Dy())
		}
		anchors = append(anchors, anchor{
			index: i,
			box:   box,
			value: value,
			x:     x,
			y:     float64(box.Min.Y),
		})
	}
	return anchors
}

// headerCutoff returns the lowest bottom edge among header keyword matches.
func headerCutoff(words []ocr.TextAnnotation, keywords []string) (int, bool) {
	cutoff, found := 0, false
	for _, w := range words {
		desc := strings.ToUpper(w.Description)
		for _, kw := range keywords {
			if kw == "" || !strings.Contains(desc, strings.ToUpper(kw)) {
				continue
			}
			if bottom := w.Bounds().Max.Y; !found || bottom > cutoff {
				cutoff = bottom
			}
			found = true
			break
		}
	}
	return cutoff, found
}

// uniqueColumns clusters x positions. A position joins the current column
// when it is within tol of the column's running mean.
func uniqueColumns(xs []float64, tol float64) []float64 {
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)

	var columns []float64
	var sum float64
	var n int
	for _, x := range sorted {
		if n > 0 && x-sum/float64(n) <= tol {
			sum += x
			n++
			columns[len(columns)-1] = sum / float64(n)
			continue
		}
		columns = append(columns, x)
		sum, n = x, 1
	}
	return columns
}

// averageSpacing is the mean distance between adjacent columns.
func averageSpacing(columns []float64) float64 {
	if len(columns) < 2 {
		return 0
	}
	var total float64
	for i := 1; i < len(columns); i++ {
		total += columns[i] - columns[i-1]
	}
	return total / float64(len(columns)-1)
}

// nearbyText joins every detection whose top lies between the card top and
// the anchor top and whose left edge is within maxDX of the anchor.
func nearbyText(words []ocr.TextAnnotation, a anchor, cellTop, maxDX float64) string {
	var parts []string
	for i, w := range words {
		if i == a.index {
			continue
		}
		box := w.Bounds()
		top := float64(box.Min.Y)
		if top < cellTop || top > a.y {
			continue
		}
		if math.Abs(float64(box.Min.X)-a.x) > maxDX {
			continue
		}
		parts = append(parts, w.Description)
	}
	return strings.Join(parts, " ")
}

func matchInt(re *regexp.Regexp, text string) *int {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &v
}

// sortReadingOrder sorts cells row by row, left to right. A cell starts a
// new row when its top is at least rowTol below the first cell of the
// current row.
func sortReadingOrder(cells []roster.Cell, rowTol float64) {
	sort.SliceStable(cells, func(i, j int) bool {
		return cells[i].Bounds.Y < cells[j].Bounds.Y
	})

	rows := make([]int, len(cells))
	row, rowStart := 0, 0
	for i := range cells {
		if i > 0 && float64(cells[i].Bounds.Y-rowStart) >= rowTol {
			row++
			rowStart = cells[i].Bounds.Y
		} else if i == 0 {
			rowStart = cells[i].Bounds.Y
		}
		rows[i] = row
	}

	idx := make([]int, len(cells))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ia, ib := idx[a], idx[b]
		if rows[ia] != rows[ib] {
			return rows[ia] < rows[ib]
		}
		return cells[ia].Bounds.X < cells[ib].Bounds.X
	})

	sorted := make([]roster.Cell, len(cells))
	for i, k := range idx {
		sorted[i] = cells[k]
	}
	copy(cells, sorted)
}
