// Package layout reconstructs the roster card grid from text detections.
//
// Power rating numbers are the only reliable landmarks on a roster
// screenshot: every card prints one at the same relative position. The
// estimator treats each such number as an anchor, infers the column pitch
// from the anchors' x positions, scales a uniform card size from that
// pitch, and walks back from each anchor to its card's top-left corner.
//
// # Algorithm
//
//  1. Skip the full-page aggregate at index 0.
//  2. Anchor candidates: power-rating shaped texts whose value exceeds
//     Config.MinPIValue. None is fatal (ErrAnchorNotFound).
//  3. Header cutoff: the lowest bottom edge of any header keyword.
//  4. Anchor x is the text's left edge, shifted right by
//     LeadingGlyphShift × text height when a glyph precedes the digits.
//  5. Columns: anchor x positions clustered within ColumnTolerance;
//     avgColDist is the mean spacing between adjacent columns, or
//     imageWidth / FallbackColumns with fewer than two columns.
//  6. Cell size is avgColDist × CellWidthRatio/CellHeightRatio; the card
//     origin is the anchor minus the configured offsets.
//  7. Text between the card top and the anchor, horizontally near the
//     anchor, is searched for "Rank N" and "Sig N".
//  8. Cells are returned in reading order.
//
// Cells whose top falls above the header cutoff are discarded as UI
// chrome. Cells may extend past the image edges; consumers skip crops
// that fall outside.
package layout
