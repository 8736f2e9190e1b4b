// Package pipeline turns a roster screenshot into a recognized grid:
// decode, detect text, reconstruct the grid, classify and match every
// cell, and optionally render a debug overlay.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/Ondrej-Sulc/cerebro-roster/internal/geometry"
	"github.com/Ondrej-Sulc/cerebro-roster/internal/imaging"
	"github.com/Ondrej-Sulc/cerebro-roster/internal/layout"
	"github.com/Ondrej-Sulc/cerebro-roster/internal/ocr"
	"github.com/Ondrej-Sulc/cerebro-roster/internal/roster"
	"github.com/Ondrej-Sulc/cerebro-roster/internal/visualize"
)

// ErrNoGrid is returned when no roster grid could be anchored.
var ErrNoGrid = errors.New("could not read a roster grid from this image")

// Classifier resolves per-cell features such as class, stars and
// ascension. Errors are cell-local.
type Classifier interface {
	Classify(ctx context.Context, img *image.RGBA, cell *roster.Cell) error
}

// NopClassifier leaves cells unclassified.
type NopClassifier struct{}

// Classify implements Classifier.
func (NopClassifier) Classify(context.Context, *image.RGBA, *roster.Cell) error { return nil }

// FixedClass assigns the same class to every cell that has none.
type FixedClass roster.Class

// Classify implements Classifier.
func (f FixedClass) Classify(_ context.Context, _ *image.RGBA, cell *roster.Cell) error {
	if cell.Class == "" {
		cell.Class = roster.Class(f)
	}
	return nil
}

// Matcher names the champion of a classified cell.
type Matcher interface {
	Match(ctx context.Context, img *image.RGBA, cell *roster.Cell, debug bool) error
}

// Options controls a single run.
type Options struct {
	// Debug keeps per-cell diagnostics and renders DebugImage.
	Debug bool
}

// Result is the outcome of processing one screenshot.
type Result struct {
	Grid       []roster.Cell  `json:"grid"`
	DebugImage []byte         `json:"-"`
	Layout     *roster.Layout `json:"layout"`
}

// BatchItem pairs one batch input with its outcome.
type BatchItem struct {
	Result *Result
	Err    error
}

// Service runs the recognition pipeline. It is safe for concurrent use
// when its detector, classifier and matcher are.
type Service struct {
	detector   ocr.Detector
	classifier Classifier
	matcher    Matcher
	geo        geometry.Config
}

// New returns a Service. A nil classifier means NopClassifier; a nil
// matcher skips champion identification.
func New(detector ocr.Detector, classifier Classifier, matcher Matcher, geo geometry.Config) *Service {
	if classifier == nil {
		classifier = NopClassifier{}
	}
	return &Service{
		detector:   detector,
		classifier: classifier,
		matcher:    matcher,
		geo:        geo,
	}
}

// Geometry returns the geometry the service was built with.
func (s *Service) Geometry() geometry.Config {
	return s.geo
}

// Layout decodes data and reconstructs its grid without classifying or
// matching cells.
func (s *Service) Layout(ctx context.Context, data []byte) (*roster.Layout, error) {
	img, _, err := imaging.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}
	return s.layout(ctx, data, img)
}

func (s *Service) layout(ctx context.Context, data []byte, img *image.RGBA) (*roster.Layout, error) {
	annotations, err := s.detector.Detect(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("text detection: %w", err)
	}
	lay, err := layout.Estimate(annotations, img.Bounds().Dx(), s.geo)
	if err != nil {
		if errors.Is(err, layout.ErrAnchorNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrNoGrid, err)
		}
		return nil, err
	}
	return lay, nil
}

// Process recognizes the roster grid in one screenshot.
//
// Only decoding, text detection, anchoring and cancellation fail the run.
// Per-cell problems leave the affected fields unset.
func (s *Service) Process(ctx context.Context, data []byte, opts Options) (*Result, error) {
	img, _, err := imaging.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}

	lay, err := s.layout(ctx, data, img)
	if err != nil {
		return nil, err
	}

	cells := lay.Cells
	for i := range cells {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cell := &cells[i]

		if err := s.classifier.Classify(ctx, img, cell); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			log.Warn().Err(err).Int("cell", i).Msg("classification failed")
		}

		if s.matcher != nil {
			if err := s.matcher.Match(ctx, img, cell, opts.Debug); err != nil {
				return nil, fmt.Errorf("match cell %d: %w", i, err)
			}
		}
	}

	res := &Result{Grid: cells, Layout: lay}
	if opts.Debug {
		out, err := visualize.Render(data, cells, lay.CellDims, lay.HeaderMinY, s.geo)
		if err != nil {
			log.Warn().Err(err).Msg("debug render failed")
		} else {
			res.DebugImage = out
		}
	} else {
		roster.StripDiagnostics(cells)
	}

	identified := 0
	for i := range cells {
		if cells[i].Identified() {
			identified++
		}
	}
	log.Info().Int("cells", len(cells)).Int("identified", identified).
		Float64("avg_col_dist", lay.AvgColDist).Msg("roster processed")
	return res, nil
}

// ProcessBatch runs Process over images with at most parallelism runs in
// flight. Item i of the result belongs to images[i].
func (s *Service) ProcessBatch(ctx context.Context, images [][]byte, opts Options, parallelism int) []BatchItem {
	if parallelism <= 0 {
		parallelism = 1
	}
	items := make([]BatchItem, len(images))
	sem := make(chan struct{}, parallelism)
	var wg sync.WaitGroup

	for i, data := range images {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			for j := i; j < len(images); j++ {
				items[j].Err = ctx.Err()
			}
			wg.Wait()
			return items
		}
		wg.Add(1)
		go func(i int, data []byte) {
			defer wg.Done()
			defer func() { <-sem }()
			res, err := s.Process(ctx, data, opts)
			items[i] = BatchItem{Result: res, Err: err}
		}(i, data)
	}
	wg.Wait()
	return items
}
