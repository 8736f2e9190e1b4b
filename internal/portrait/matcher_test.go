package portrait

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Ondrej-Sulc/cerebro-roster/internal/champions"
	"github.com/Ondrej-Sulc/cerebro-roster/internal/geometry"
	"github.com/Ondrej-Sulc/cerebro-roster/internal/imaging"
	"github.com/Ondrej-Sulc/cerebro-roster/internal/roster"
)

// createNoiseImage creates a deterministic pseudo-random opaque image.
func createNoiseImage(width, height int, seed uint32) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	s := seed
	for i := range img.Pix {
		s = s*1664525 + 1013904223
		img.Pix[i] = byte(s >> 24)
	}
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	return img
}

func createSolidImage(width, height int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

func encode(t *testing.T, img image.Image) []byte {
	t.Helper()
	data, err := imaging.EncodePNG(img)
	if err != nil {
		t.Fatalf("failed to encode: %v", err)
	}
	return data
}

// testGeometry maps a 200×200 cell at (100,100) to the portrait (150,150)
// 100×100, and a 250×250 reference to the crop (25,25) 100×100.
func testGeometry() geometry.Config {
	geo := geometry.Default()
	geo.PortraitCrop = geometry.CropRatio{X: 0.25, Y: 0.25, W: 0.5, H: 0.5}
	geo.ReferenceCrop = geometry.CropRatio{X: 0.1, Y: 0.1, W: 0.4, H: 0.4}
	return geo
}

func testCell(class roster.Class) *roster.Cell {
	return &roster.Cell{
		Bounds: geometry.Rect{X: 100, Y: 100, Width: 200, Height: 200},
		Class:  class,
	}
}

// screenshotWith pastes the reference crop of ref over the test cell's portrait.
func screenshotWith(ref *image.RGBA) *image.RGBA {
	shot := createNoiseImage(400, 400, 42)
	draw.Draw(shot, image.Rect(150, 150, 250, 250), ref, image.Pt(25, 25), draw.Src)
	return shot
}

type fakeCatalog struct {
	champs map[roster.Class][]champions.Champion
	err    error
}

func (f *fakeCatalog) ChampionsByClass(ctx context.Context, class roster.Class) ([]champions.Champion, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.champs[class], nil
}

type fakeSource struct {
	images map[string][]byte
	fail   map[string]bool
	delay  time.Duration

	mu       sync.Mutex
	loads    map[string]int
	inFlight int32
	maxIn    int32
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		images: make(map[string][]byte),
		fail:   make(map[string]bool),
		loads:  make(map[string]int),
	}
}

func (f *fakeSource) Load(ctx context.Context, champ champions.Champion) ([]byte, error) {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		max := atomic.LoadInt32(&f.maxIn)
		if n <= max || atomic.CompareAndSwapInt32(&f.maxIn, max, n) {
			break
		}
	}

	f.mu.Lock()
	f.loads[champ.Name]++
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.fail[champ.Name] {
		return nil, errors.New("reference unavailable")
	}
	return f.images[champ.Name], nil
}

func (f *fakeSource) loadCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loads[name]
}

func mutants(names ...string) *fakeCatalog {
	list := make([]champions.Champion, len(names))
	for i, n := range names {
		list[i] = champions.Champion{Name: n, Class: roster.ClassMutant}
	}
	return &fakeCatalog{champs: map[roster.Class][]champions.Champion{roster.ClassMutant: list}}
}

func TestMatch_IdenticalPortrait(t *testing.T) {
	wolverine := createNoiseImage(250, 250, 1)
	src := newFakeSource()
	src.images["Storm"] = encode(t, createNoiseImage(250, 250, 2))
	src.images["Wolverine"] = encode(t, wolverine)

	m := NewMatcher(mutants("Storm", "Wolverine"), src, testGeometry(), Options{})
	cell := testCell(roster.ClassMutant)

	if err := m.Match(context.Background(), screenshotWith(wolverine), cell, true); err != nil {
		t.Fatalf("Match failed: %v", err)
	}

	if cell.ChampionName != "Wolverine" {
		t.Errorf("ChampionName: got %q, want Wolverine", cell.ChampionName)
	}
	if cell.Debug == nil {
		t.Fatal("expected diagnostics in debug mode")
	}
	if cell.Debug.BestDistance == nil || *cell.Debug.BestDistance != 0 {
		t.Errorf("BestDistance: got %v, want 0", cell.Debug.BestDistance)
	}
	if cell.Debug.Candidates != 2 {
		t.Errorf("Candidates: got %d, want 2", cell.Debug.Candidates)
	}
	if len(cell.Debug.PortraitHash) != 64 {
		t.Errorf("PortraitHash length: got %d", len(cell.Debug.PortraitHash))
	}
	if cell.Debug.PortraitHue == nil || len(cell.Debug.SampledColors) != hueGrid*hueGrid {
		t.Errorf("expected hue diagnostics, got hue=%v colors=%d", cell.Debug.PortraitHue, len(cell.Debug.SampledColors))
	}
	if cell.Debug.BestMatchImage == nil || cell.Debug.BestMatchImage.Bounds().Dx() != 100 {
		t.Error("expected a 100px best-match thumbnail")
	}
}

func TestMatch_NoDiagnosticsOutsideDebug(t *testing.T) {
	wolverine := createNoiseImage(250, 250, 1)
	src := newFakeSource()
	src.images["Wolverine"] = encode(t, wolverine)

	m := NewMatcher(mutants("Wolverine"), src, testGeometry(), Options{})
	cell := testCell(roster.ClassMutant)

	if err := m.Match(context.Background(), screenshotWith(wolverine), cell, false); err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if cell.ChampionName != "Wolverine" {
		t.Errorf("ChampionName: got %q, want Wolverine", cell.ChampionName)
	}
	if cell.Debug != nil {
		t.Error("diagnostics should not be set outside debug mode")
	}
}

func TestMatch_UnresolvedClass(t *testing.T) {
	src := newFakeSource()
	m := NewMatcher(mutants("Wolverine"), src, testGeometry(), Options{})
	cell := testCell("")

	if err := m.Match(context.Background(), createNoiseImage(400, 400, 1), cell, true); err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if cell.Identified() || cell.Debug != nil {
		t.Error("cell without class must be left untouched")
	}
	if src.loadCount("Wolverine") != 0 {
		t.Error("no references should be loaded for an unresolved class")
	}
}

func TestMatch_CropOutsideImage(t *testing.T) {
	src := newFakeSource()
	m := NewMatcher(mutants("Wolverine"), src, testGeometry(), Options{})
	cell := testCell(roster.ClassMutant)
	cell.Bounds = geometry.Rect{X: 300, Y: 300, Width: 200, Height: 200}

	if err := m.Match(context.Background(), createNoiseImage(400, 400, 1), cell, false); err != nil {
		t.Fatalf("Match should not fail for an out-of-bounds crop: %v", err)
	}
	if cell.Identified() {
		t.Error("cell should stay unidentified")
	}
}

func TestMatch_FailingCandidateExcluded(t *testing.T) {
	wolverine := createNoiseImage(250, 250, 1)
	src := newFakeSource()
	src.fail["Storm"] = true
	src.images["Cyclops"] = []byte("not an image")
	src.images["Wolverine"] = encode(t, wolverine)

	m := NewMatcher(mutants("Cyclops", "Storm", "Wolverine"), src, testGeometry(), Options{})
	cell := testCell(roster.ClassMutant)

	if err := m.Match(context.Background(), screenshotWith(wolverine), cell, true); err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if cell.ChampionName != "Wolverine" {
		t.Errorf("ChampionName: got %q, want Wolverine", cell.ChampionName)
	}
	if cell.Debug.Candidates != 1 {
		t.Errorf("Candidates: got %d, want 1", cell.Debug.Candidates)
	}
}

func TestMatch_AboveThreshold(t *testing.T) {
	// Uniform reference sets every bit; a half black, half white portrait
	// sets exactly half, so the distance is 128.
	src := newFakeSource()
	src.images["Storm"] = encode(t, createSolidImage(250, 250, color.RGBA{0, 0, 0, 255}))

	shot := createSolidImage(400, 400, color.RGBA{0, 0, 0, 255})
	draw.Draw(shot, image.Rect(200, 150, 250, 250), &image.Uniform{C: color.White}, image.Point{}, draw.Src)

	m := NewMatcher(mutants("Storm"), src, testGeometry(), Options{})
	cell := testCell(roster.ClassMutant)

	if err := m.Match(context.Background(), shot, cell, true); err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if cell.Identified() {
		t.Errorf("distance above threshold must not be accepted, got %q", cell.ChampionName)
	}
	if cell.Debug.BestMatch != "Storm" || *cell.Debug.BestDistance != 128 {
		t.Errorf("best: got %s/%d, want Storm/128", cell.Debug.BestMatch, *cell.Debug.BestDistance)
	}
}

func TestMatch_CatalogError(t *testing.T) {
	m := NewMatcher(&fakeCatalog{err: errors.New("catalog down")}, newFakeSource(), testGeometry(), Options{})
	cell := testCell(roster.ClassMutant)

	if err := m.Match(context.Background(), createNoiseImage(400, 400, 1), cell, false); err != nil {
		t.Fatalf("catalog failure should not fail the cell: %v", err)
	}
	if cell.Identified() {
		t.Error("cell should stay unidentified")
	}
}

func TestMatch_CancelledContext(t *testing.T) {
	m := NewMatcher(mutants("Wolverine"), newFakeSource(), testGeometry(), Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.Match(ctx, createNoiseImage(400, 400, 1), testCell(roster.ClassMutant), false)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestMatch_CachesReferenceHashes(t *testing.T) {
	wolverine := createNoiseImage(250, 250, 1)
	src := newFakeSource()
	src.images["Storm"] = encode(t, createNoiseImage(250, 250, 2))
	src.images["Wolverine"] = encode(t, wolverine)

	m := NewMatcher(mutants("Storm", "Wolverine"), src, testGeometry(), Options{})
	shot := screenshotWith(wolverine)

	for i := 0; i < 3; i++ {
		if err := m.Match(context.Background(), shot, testCell(roster.ClassMutant), false); err != nil {
			t.Fatalf("Match %d failed: %v", i, err)
		}
	}

	for _, name := range []string{"Storm", "Wolverine"} {
		if got := src.loadCount(name); got != 1 {
			t.Errorf("%s loaded %d times, want 1", name, got)
		}
	}
	if m.Cache().Len(roster.ClassMutant) != 2 {
		t.Errorf("cache size: got %d, want 2", m.Cache().Len(roster.ClassMutant))
	}
}

func TestMatch_FailedReferenceRetried(t *testing.T) {
	src := newFakeSource()
	src.fail["Storm"] = true
	m := NewMatcher(mutants("Storm"), src, testGeometry(), Options{})
	shot := createNoiseImage(400, 400, 1)

	for i := 0; i < 2; i++ {
		if err := m.Match(context.Background(), shot, testCell(roster.ClassMutant), false); err != nil {
			t.Fatalf("Match failed: %v", err)
		}
	}
	if got := src.loadCount("Storm"); got != 2 {
		t.Errorf("failed reference should be retried, loaded %d times", got)
	}
}

func TestMatch_BoundedWorkers(t *testing.T) {
	names := []string{"A", "B", "C", "D", "E", "F", "G", "H"}
	src := newFakeSource()
	src.delay = 20 * time.Millisecond
	for i, n := range names {
		src.images[n] = encode(t, createNoiseImage(250, 250, uint32(i+10)))
	}

	m := NewMatcher(mutants(names...), src, testGeometry(), Options{Workers: 2})
	if err := m.Match(context.Background(), createNoiseImage(400, 400, 1), testCell(roster.ClassMutant), false); err != nil {
		t.Fatalf("Match failed: %v", err)
	}

	if max := atomic.LoadInt32(&src.maxIn); max > 2 {
		t.Errorf("observed %d concurrent loads, want at most 2", max)
	}
	if m.Cache().Len(roster.ClassMutant) != len(names) {
		t.Errorf("cache size: got %d, want %d", m.Cache().Len(roster.ClassMutant), len(names))
	}
}

func TestReferenceHash_CropOutside(t *testing.T) {
	src := newFakeSource()
	src.images["Tiny"] = encode(t, createNoiseImage(2, 2, 1))

	geo := testGeometry()
	geo.ReferenceCrop = geometry.CropRatio{X: 0.9, Y: 0.9, W: 0.5, H: 0.5}
	m := NewMatcher(mutants("Tiny"), src, geo, Options{})

	if _, err := m.ReferenceHash(context.Background(), champions.Champion{Name: "Tiny"}); err == nil {
		t.Error("ReferenceHash should fail when the crop leaves the image")
	}
}
