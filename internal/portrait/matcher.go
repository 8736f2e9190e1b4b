package portrait

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/Ondrej-Sulc/cerebro-roster/internal/champions"
	"github.com/Ondrej-Sulc/cerebro-roster/internal/geometry"
	"github.com/Ondrej-Sulc/cerebro-roster/internal/imaging"
	"github.com/Ondrej-Sulc/cerebro-roster/internal/phash"
	"github.com/Ondrej-Sulc/cerebro-roster/internal/roster"
)

// DefaultWorkers bounds concurrent reference population per class.
const DefaultWorkers = 8

// hueGrid is the side of the color sampling lattice used in diagnostics.
const hueGrid = 4

// Options tunes a Matcher.
type Options struct {
	// Workers bounds concurrent reference loads. Zero means DefaultWorkers.
	Workers int
}

// Matcher assigns champion names to classified cells.
type Matcher struct {
	catalog champions.Catalog
	source  ReferenceSource
	geo     geometry.Config
	cache   *HashCache
	workers int
}

// NewMatcher returns a Matcher with an empty hash cache.
func NewMatcher(catalog champions.Catalog, source ReferenceSource, geo geometry.Config, opts Options) *Matcher {
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Matcher{
		catalog: catalog,
		source:  source,
		geo:     geo,
		cache:   &HashCache{},
		workers: workers,
	}
}

// Cache exposes the matcher's reference hash cache.
func (m *Matcher) Cache() *HashCache {
	return m.cache
}

type candidate struct {
	champ champions.Champion
	hash  phash.Hash
}

// Match sets cell.ChampionName when the portrait's closest reference is
// within the configured distance threshold.
//
// Every failure short of context cancellation leaves the cell unidentified
// and returns nil: an unresolved class, a portrait crop outside the image,
// a catalog lookup error, or no usable references.
func (m *Matcher) Match(ctx context.Context, img *image.RGBA, cell *roster.Cell, debug bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if cell.Class == "" {
		return nil
	}

	crop := cell.Bounds.Crop(m.geo.PortraitCrop)
	if !crop.Within(img.Bounds()) {
		log.Debug().Interface("crop", crop).Msg("portrait crop outside image")
		return nil
	}
	query, err := phash.FromImage(img, crop.Image())
	if err != nil {
		log.Warn().Err(err).Msg("failed to hash portrait")
		return nil
	}

	candidates, err := m.candidates(ctx, cell.Class)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		log.Warn().Err(err).Str("class", string(cell.Class)).Msg("failed to resolve candidates")
		return nil
	}

	best, bestDist := -1, phash.Bits+1
	for i, c := range candidates {
		if d := phash.Distance(query, c.hash); d < bestDist {
			best, bestDist = i, d
		}
	}

	if debug {
		m.diagnose(ctx, img, crop, cell, query, candidates, best, bestDist)
	}

	if best >= 0 && bestDist <= m.geo.MatchThreshold {
		cell.ChampionName = candidates[best].champ.Name
	}
	return nil
}

// candidates returns the hashed references of class in catalog order.
// Champions whose reference cannot be loaded are excluded.
func (m *Matcher) candidates(ctx context.Context, class roster.Class) ([]candidate, error) {
	champs, err := m.catalog.ChampionsByClass(ctx, class)
	if err != nil {
		return nil, fmt.Errorf("catalog lookup for %s: %w", class, err)
	}

	slots := make([]*candidate, len(champs))
	var missing []int
	for i, c := range champs {
		if h, ok := m.cache.Get(class, c.Name); ok {
			slots[i] = &candidate{champ: c, hash: h}
		} else {
			missing = append(missing, i)
		}
	}

	if len(missing) > 0 {
		m.populate(ctx, class, champs, missing, slots)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	out := make([]candidate, 0, len(champs))
	for _, s := range slots {
		if s != nil {
			out = append(out, *s)
		}
	}
	return out, nil
}

// populate hashes the missing champions with at most m.workers loads in
// flight. Each goroutine writes only its own slot.
func (m *Matcher) populate(ctx context.Context, class roster.Class, champs []champions.Champion, missing []int, slots []*candidate) {
	sem := make(chan struct{}, m.workers)
	var wg sync.WaitGroup

	for _, i := range missing {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			return
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			c := champs[i]
			h, err := m.ReferenceHash(ctx, c)
			if err != nil {
				log.Warn().Err(err).Str("champion", c.Name).Str("class", string(class)).
					Msg("excluding champion from candidates")
				return
			}
			slots[i] = &candidate{champ: c, hash: m.cache.Put(class, c.Name, h)}
		}(i)
	}
	wg.Wait()

	log.Debug().Str("class", string(class)).Int("loaded", len(missing)).
		Int("cached", m.cache.Len(class)).Msg("populated reference hashes")
}

// ReferenceHash loads, crops and hashes champ's reference portrait.
func (m *Matcher) ReferenceHash(ctx context.Context, champ champions.Champion) (phash.Hash, error) {
	img, rect, err := m.reference(ctx, champ)
	if err != nil {
		return phash.Hash{}, err
	}
	return phash.FromImage(img, rect)
}

// ReferenceCrop returns the cropped reference portrait of champ.
func (m *Matcher) ReferenceCrop(ctx context.Context, champ champions.Champion) (*image.RGBA, error) {
	img, rect, err := m.reference(ctx, champ)
	if err != nil {
		return nil, err
	}
	return imaging.CropRGBA(img, rect)
}

func (m *Matcher) reference(ctx context.Context, champ champions.Champion) (*image.RGBA, image.Rectangle, error) {
	data, err := m.source.Load(ctx, champ)
	if err != nil {
		return nil, image.Rectangle{}, err
	}
	img, _, err := imaging.Decode(data)
	if err != nil {
		return nil, image.Rectangle{}, fmt.Errorf("reference for %s: %w", champ.Name, err)
	}
	rect := geometry.RectFromImage(img.Bounds()).Crop(m.geo.ReferenceCrop)
	if !rect.Within(img.Bounds()) {
		return nil, image.Rectangle{}, fmt.Errorf("reference crop for %s outside image", champ.Name)
	}
	return img, rect.Image(), nil
}

func (m *Matcher) diagnose(ctx context.Context, img *image.RGBA, crop geometry.Rect, cell *roster.Cell,
	query phash.Hash, candidates []candidate, best, bestDist int) {
	if cell.Debug == nil {
		cell.Debug = &roster.Diagnostics{}
	}
	d := cell.Debug
	d.PortraitHash = query.String()
	d.Candidates = len(candidates)

	if hue, err := imaging.SampleHue(img, crop.Image(), hueGrid); err == nil {
		d.PortraitHue = &hue.Hue
		d.SampledColors = hue.Colors
	}

	if best < 0 {
		return
	}
	d.BestMatch = candidates[best].champ.Name
	d.BestDistance = roster.IntPtr(bestDist)
	if thumb, err := m.ReferenceCrop(ctx, candidates[best].champ); err == nil {
		d.BestMatchImage = thumb
	}
}
