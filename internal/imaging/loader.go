package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"sync"

	"github.com/anthonynsimon/bild/clone"
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// Decode decodes encoded image bytes into an RGBA buffer.
//
// Returns the decoded image and the format name reported by the registered
// decoder ("png", "jpeg", "gif" or "webp").
func Decode(data []byte) (*image.RGBA, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("failed to decode image: empty input")
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return ToRGBA(img), format, nil
}

// ToRGBA returns img as *image.RGBA, converting when needed.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	return clone.AsRGBA(img)
}

// Screenshot is a decoded image together with its encoded bytes.
type Screenshot struct {
	Data   []byte
	Image  *image.RGBA
	Format string
}

// Info summarizes the screenshot.
func (s *Screenshot) Info() ImageInfo {
	b := s.Image.Bounds()
	return ImageInfo{
		Width:         b.Dx(),
		Height:        b.Dy(),
		Format:        s.Format,
		FileSizeBytes: int64(len(s.Data)),
	}
}

// ImageInfo contains metadata about a loaded screenshot.
type ImageInfo struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is the decoder format name.
	Format string `json:"format"`

	// FileSizeBytes is the size of the encoded image in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// ImageCache provides thread-safe caching of loaded screenshots to avoid
// redundant disk reads and decodes.
//
// Screenshots are keyed by the exact path string passed to Load. Different
// paths to the same file (e.g., relative vs absolute) are separate entries.
// Cached entries remain in memory until Evict or Clear is called.
//
//	cache := imaging.NewImageCache()
//	shot, err := cache.Load("/path/to/roster.png")
//	if err != nil {
//	    return err
//	}
//	// Use shot.Data / shot.Image...
//	cache.Evict("/path/to/roster.png") // Optional: free memory
type ImageCache struct {
	mu    sync.RWMutex
	shots map[string]*Screenshot
}

// NewImageCache creates and initializes a new empty image cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		shots: make(map[string]*Screenshot),
	}
}

// Load retrieves a screenshot from the cache or reads and decodes it from
// disk if not cached.
//
// # Errors
//
//   - Returns error if the file does not exist or cannot be read
//   - Returns error if the file is not a supported image
func (c *ImageCache) Load(path string) (*Screenshot, error) {
	c.mu.RLock()
	if shot, ok := c.shots[path]; ok {
		c.mu.RUnlock()
		return shot, nil
	}
	c.mu.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}

	img, format, err := Decode(data)
	if err != nil {
		return nil, err
	}
	shot := &Screenshot{Data: data, Image: img, Format: format}

	c.mu.Lock()
	c.shots[path] = shot
	c.mu.Unlock()

	return shot, nil
}

// Len reports the number of cached screenshots.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.shots)
}

// Clear removes all screenshots from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.shots = make(map[string]*Screenshot)
	c.mu.Unlock()
}

// Evict removes a specific screenshot from the cache by its path.
//
// If the path is not in the cache, this method does nothing.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.shots, path)
	c.mu.Unlock()
}
