// Package champions provides the champion reference catalog consulted by the
// portrait matcher.
package champions

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"

	"github.com/tidwall/gjson"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/Ondrej-Sulc/cerebro-roster/internal/roster"
)

// Champion is one entry of the reference catalog.
type Champion struct {
	Name     string       `json:"name"`
	Class    roster.Class `json:"class"`
	ImageURL string       `json:"imageUrl"`
}

// Catalog resolves the candidate set for a class.
type Catalog interface {
	ChampionsByClass(ctx context.Context, class roster.Class) ([]Champion, error)
}

// JSONCatalog is an in-memory catalog loaded from a JSON export.
type JSONCatalog struct {
	byClass map[roster.Class][]Champion
	byName  map[string]Champion
}

// LoadJSONCatalog reads a catalog export from disk.
func LoadJSONCatalog(path string) (*JSONCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a catalog export.
//
// The export is either {"champions": [...]} or a bare array. Each item needs
// a name and class; the portrait URL is taken from images.full_primary, or
// imageUrl when absent. Items without a name are skipped.
func ParseCatalog(data []byte) (*JSONCatalog, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid catalog JSON")
	}
	root := gjson.ParseBytes(data)
	list := root
	if !root.IsArray() {
		list = root.Get("champions")
		if !list.IsArray() {
			return nil, fmt.Errorf("catalog has no champions array")
		}
	}

	c := &JSONCatalog{
		byClass: make(map[roster.Class][]Champion),
		byName:  make(map[string]Champion),
	}
	list.ForEach(func(_, v gjson.Result) bool {
		name := strings.TrimSpace(v.Get("name").String())
		if name == "" {
			return true
		}
		url := v.Get("images.full_primary").String()
		if url == "" {
			url = v.Get("imageUrl").String()
		}
		champ := Champion{
			Name:     name,
			Class:    roster.Class(strings.ToUpper(strings.TrimSpace(v.Get("class").String()))),
			ImageURL: url,
		}
		c.byClass[champ.Class] = append(c.byClass[champ.Class], champ)
		c.byName[NormalizeName(name)] = champ
		return true
	})

	for class := range c.byClass {
		champs := c.byClass[class]
		sort.Slice(champs, func(i, j int) bool { return champs[i].Name < champs[j].Name })
	}
	return c, nil
}

// ChampionsByClass returns the champions of class sorted by name.
func (c *JSONCatalog) ChampionsByClass(ctx context.Context, class roster.Class) ([]Champion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	champs := c.byClass[class]
	out := make([]Champion, len(champs))
	copy(out, champs)
	return out, nil
}

// Find looks a champion up by name, ignoring case, accents and punctuation.
func (c *JSONCatalog) Find(name string) (Champion, bool) {
	champ, ok := c.byName[NormalizeName(name)]
	return champ, ok
}

// Len is the number of champions in the catalog.
func (c *JSONCatalog) Len() int {
	return len(c.byName)
}

// NormalizeName folds a champion name into a stable cache key: accents
// removed, lowercased, only [a-z0-9] kept.
//
//	NormalizeName("Spider-Man (Stark Enhanced)") == "spidermanstarkenhanced"
func NormalizeName(name string) string {
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
