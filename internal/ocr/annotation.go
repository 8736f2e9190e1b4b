package ocr

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"strings"

	"github.com/tidwall/gjson"
)

// Vertex is one corner of a bounding polygon.
type Vertex struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// BoundingPoly is the quadrilateral around a detected text.
type BoundingPoly struct {
	Vertices []Vertex `json:"vertices"`
}

// TextAnnotation is a single detected text fragment.
type TextAnnotation struct {
	Description  string       `json:"description"`
	BoundingPoly BoundingPoly `json:"boundingPoly"`
}

// Detector produces text annotations for an encoded image.
type Detector interface {
	Detect(ctx context.Context, imageBytes []byte) ([]TextAnnotation, error)
}

// NewAnnotation builds an annotation whose polygon is the rectangle r,
// listed clockwise from the top-left corner.
func NewAnnotation(text string, r image.Rectangle) TextAnnotation {
	return TextAnnotation{
		Description: text,
		BoundingPoly: BoundingPoly{Vertices: []Vertex{
			{X: r.Min.X, Y: r.Min.Y},
			{X: r.Max.X, Y: r.Min.Y},
			{X: r.Max.X, Y: r.Max.Y},
			{X: r.Min.X, Y: r.Max.Y},
		}},
	}
}

// Bounds returns the axis-aligned hull of the polygon. An annotation
// without vertices has empty bounds.
func (a TextAnnotation) Bounds() image.Rectangle {
	v := a.BoundingPoly.Vertices
	if len(v) == 0 {
		return image.Rectangle{}
	}
	r := image.Rectangle{Min: image.Pt(v[0].X, v[0].Y), Max: image.Pt(v[0].X, v[0].Y)}
	for _, p := range v[1:] {
		if p.X < r.Min.X {
			r.Min.X = p.X
		}
		if p.Y < r.Min.Y {
			r.Min.Y = p.Y
		}
		if p.X > r.Max.X {
			r.Max.X = p.X
		}
		if p.Y > r.Max.Y {
			r.Max.Y = p.Y
		}
	}
	return r
}

// withAggregate prepends the full-page annotation that Vision places at
// index 0, so every backend has the same output convention.
func withAggregate(words []TextAnnotation, page image.Rectangle) []TextAnnotation {
	texts := make([]string, 0, len(words))
	for _, w := range words {
		texts = append(texts, w.Description)
	}
	out := make([]TextAnnotation, 0, len(words)+1)
	out = append(out, NewAnnotation(strings.Join(texts, " "), page))
	return append(out, words...)
}

// ParseAnnotations decodes recorded text detections.
//
// Accepted shapes:
//   - {"responses": [{"textAnnotations": [...]}]} (images:annotate batch response)
//   - {"textAnnotations": [...]} (a single AnnotateImageResponse)
//   - [...] (a bare annotation array)
//
// A response without textAnnotations means no text was found and yields an
// empty slice. A response carrying an error object is returned as an error.
func ParseAnnotations(data []byte) ([]TextAnnotation, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid annotation JSON")
	}
	root := gjson.ParseBytes(data)

	var list gjson.Result
	switch {
	case root.IsArray():
		list = root
	case root.Get("responses.0.error.message").Exists():
		return nil, fmt.Errorf("vision error: %s", root.Get("responses.0.error.message").String())
	case root.Get("error.message").Exists():
		return nil, fmt.Errorf("vision error: %s", root.Get("error.message").String())
	case root.Get("responses.0.textAnnotations").Exists():
		list = root.Get("responses.0.textAnnotations")
	case root.Get("textAnnotations").Exists():
		list = root.Get("textAnnotations")
	default:
		return []TextAnnotation{}, nil
	}

	annotations := make([]TextAnnotation, 0, len(list.Array()))
	if err := json.Unmarshal([]byte(list.Raw), &annotations); err != nil {
		return nil, fmt.Errorf("failed to decode annotations: %w", err)
	}
	return annotations, nil
}

// StaticDetector returns the same recorded annotations for every image.
type StaticDetector struct {
	Annotations []TextAnnotation
}

// Detect returns a copy of the recorded annotations.
func (d *StaticDetector) Detect(ctx context.Context, _ []byte) ([]TextAnnotation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]TextAnnotation, len(d.Annotations))
	copy(out, d.Annotations)
	return out, nil
}
