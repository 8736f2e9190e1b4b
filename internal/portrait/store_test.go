package portrait

import (
	"bytes"
	"context"
	"errors"
	"image"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Ondrej-Sulc/cerebro-roster/internal/champions"
	"github.com/Ondrej-Sulc/cerebro-roster/internal/phash"
	"github.com/Ondrej-Sulc/cerebro-roster/internal/roster"
)

func TestReferenceStore_DownloadsOnce(t *testing.T) {
	payload := encode(t, createNoiseImage(20, 20, 3))
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "image/png")
		w.Write(payload)
	}))
	defer srv.Close()

	dir := t.TempDir()
	store := NewReferenceStore(dir, srv.Client())
	champ := champions.Champion{Name: "Spider-Man (Classic)", ImageURL: srv.URL + "/portraits/spiderman.png"}

	for i := 0; i < 2; i++ {
		data, err := store.Load(context.Background(), champ)
		if err != nil {
			t.Fatalf("Load %d failed: %v", i, err)
		}
		if !bytes.Equal(data, payload) {
			t.Fatalf("Load %d returned unexpected bytes", i)
		}
	}

	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Errorf("expected 1 download, got %d", got)
	}

	want := filepath.Join(dir, "spidermanclassic.png")
	if store.Path(champ) != want {
		t.Errorf("Path: got %s, want %s", store.Path(champ), want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Errorf("reference not persisted: %v", err)
	}

	leftovers, _ := filepath.Glob(filepath.Join(dir, ".ref-*"))
	if len(leftovers) != 0 {
		t.Errorf("temp files left behind: %v", leftovers)
	}
}

func TestReferenceStore_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	dir := t.TempDir()
	store := NewReferenceStore(dir, srv.Client())
	champ := champions.Champion{Name: "Hulk", ImageURL: srv.URL + "/hulk.png"}

	if _, err := store.Load(context.Background(), champ); err == nil {
		t.Fatal("Load should fail on a 404")
	}
	if _, err := os.Stat(store.Path(champ)); !os.IsNotExist(err) {
		t.Error("failed download must not be cached")
	}
}

func TestReferenceStore_Errors(t *testing.T) {
	store := NewReferenceStore(t.TempDir(), nil)

	if _, err := store.Load(context.Background(), champions.Champion{Name: "Hulk"}); !errors.Is(err, ErrNoImageURL) {
		t.Errorf("expected ErrNoImageURL, got %v", err)
	}
	if _, err := store.Load(context.Background(), champions.Champion{Name: "!!!", ImageURL: "http://x/y.png"}); err == nil {
		t.Error("Load should fail for a name without a cache key")
	}
}

func TestReferenceStore_ServesExistingFile(t *testing.T) {
	dir := t.TempDir()
	store := NewReferenceStore(dir, nil)
	champ := champions.Champion{Name: "Storm", ImageURL: "http://unreachable.invalid/storm.jpg"}

	if err := os.WriteFile(filepath.Join(dir, "storm.jpg"), []byte("cached"), 0644); err != nil {
		t.Fatalf("failed to seed cache: %v", err)
	}

	data, err := store.Load(context.Background(), champ)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if string(data) != "cached" {
		t.Errorf("got %q, want cached bytes", data)
	}
}

func TestImageExt(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://cdn.example/a/b.png", ".png"},
		{"https://cdn.example/a/b.JPG?size=full", ".jpg"},
		{"https://cdn.example/a/b.webp", ".webp"},
		{"https://cdn.example/a/b", ".png"},
		{"https://cdn.example/a/b.exe", ".png"},
		{"", ".png"},
	}

	for _, tt := range tests {
		if got := imageExt(tt.url); got != tt.want {
			t.Errorf("imageExt(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestMatcher_WithReferenceStore(t *testing.T) {
	ref := createNoiseImage(250, 250, 1)
	payload := encode(t, ref)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	catalog := &fakeCatalog{champs: map[roster.Class][]champions.Champion{
		roster.ClassTech: {{Name: "Iron Man", Class: roster.ClassTech, ImageURL: srv.URL + "/ironman.png"}},
	}}
	store := NewReferenceStore(t.TempDir(), srv.Client())
	m := NewMatcher(catalog, store, testGeometry(), Options{})

	cell := testCell(roster.ClassTech)
	if err := m.Match(context.Background(), screenshotWith(ref), cell, false); err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if cell.ChampionName != "Iron Man" {
		t.Errorf("ChampionName: got %q, want Iron Man", cell.ChampionName)
	}

	h, err := m.ReferenceHash(context.Background(), catalog.champs[roster.ClassTech][0])
	if err != nil {
		t.Fatalf("ReferenceHash failed: %v", err)
	}
	want, _ := phash.FromImage(ref, image.Rect(25, 25, 125, 125))
	if h != want {
		t.Errorf("ReferenceHash: got %s, want %s", h, want)
	}
}

func TestHashCache(t *testing.T) {
	var c HashCache
	a := phash.Hash{1}
	b := phash.Hash{2}

	if _, ok := c.Get(roster.ClassCosmic, "Thanos"); ok {
		t.Error("empty cache should miss")
	}
	if got := c.Put(roster.ClassCosmic, "Thanos", a); got != a {
		t.Error("first Put should store its value")
	}
	if got := c.Put(roster.ClassCosmic, "Thanos", b); got != a {
		t.Error("second Put should keep the first value")
	}
	if got, _ := c.Get(roster.ClassCosmic, "Thanos"); got != a {
		t.Error("Get should return the first value")
	}
	if _, ok := c.Get(roster.ClassMystic, "Thanos"); ok {
		t.Error("classes must be separate partitions")
	}
	if c.Len(roster.ClassCosmic) != 1 || c.Len(roster.ClassMystic) != 0 {
		t.Error("unexpected partition sizes")
	}
}

func TestHashCache_ConcurrentPut(t *testing.T) {
	var c HashCache
	var wg sync.WaitGroup
	results := make([]phash.Hash, 16)

	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.Put(roster.ClassSkill, "Blade", phash.Hash{byte(i + 1)})
		}(i)
	}
	wg.Wait()

	for i := 1; i < len(results); i++ {
		if results[i] != results[0] {
			t.Fatalf("concurrent Put returned different winners: %v vs %v", results[i], results[0])
		}
	}
	if c.Len(roster.ClassSkill) != 1 {
		t.Errorf("Len: got %d, want 1", c.Len(roster.ClassSkill))
	}
}
