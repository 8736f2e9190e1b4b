// Package portrait identifies the champion in a roster cell by comparing the
// perceptual hash of its portrait against reference artwork of every
// champion of the cell's class.
//
// Reference images are fetched once, kept on disk, and their hashes held in
// memory for the process lifetime.
package portrait

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Ondrej-Sulc/cerebro-roster/internal/champions"
)

// maxReferenceBytes caps a single reference download.
const maxReferenceBytes = 20 << 20

// ErrNoImageURL is returned for champions without reference artwork.
var ErrNoImageURL = errors.New("champion has no reference image URL")

// ReferenceSource provides encoded reference portrait bytes.
type ReferenceSource interface {
	Load(ctx context.Context, champ champions.Champion) ([]byte, error)
}

// ReferenceStore is a disk-backed ReferenceSource. Images are stored under
// dir keyed by the normalized champion name and downloaded on a miss.
type ReferenceStore struct {
	dir    string
	client *http.Client
}

// NewReferenceStore returns a store rooted at dir. A nil client gets a
// 30 second timeout.
func NewReferenceStore(dir string, client *http.Client) *ReferenceStore {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &ReferenceStore{dir: dir, client: client}
}

// Path is where champ's reference image is cached.
func (s *ReferenceStore) Path(champ champions.Champion) string {
	return filepath.Join(s.dir, champions.NormalizeName(champ.Name)+imageExt(champ.ImageURL))
}

// Load returns champ's reference bytes, downloading and persisting them on
// a cache miss. A failed disk write is logged; the downloaded bytes are
// still returned.
func (s *ReferenceStore) Load(ctx context.Context, champ champions.Champion) ([]byte, error) {
	if champions.NormalizeName(champ.Name) == "" {
		return nil, fmt.Errorf("champion %q has no usable cache key", champ.Name)
	}

	p := s.Path(champ)
	data, err := os.ReadFile(p)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read cached reference: %w", err)
	}

	if champ.ImageURL == "" {
		return nil, ErrNoImageURL
	}
	data, err = s.download(ctx, champ.ImageURL)
	if err != nil {
		return nil, err
	}

	if err := s.persist(p, data); err != nil {
		log.Warn().Err(err).Str("champion", champ.Name).Msg("could not cache reference image")
	}
	return data, nil
}

func (s *ReferenceStore) download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build reference request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download reference: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("reference download %s: status %d", rawURL, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReferenceBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read reference body: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("reference download %s: empty body", rawURL)
	}
	return data, nil
}

// persist writes data to p through a temp file and rename, so readers
// never observe a partial image.
func (s *ReferenceStore) persist(p string, data []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, ".ref-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

// imageExt picks the cache file extension from the URL path.
func imageExt(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ".png"
	}
	switch ext := strings.ToLower(path.Ext(u.Path)); ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		return ext
	default:
		return ".png"
	}
}
