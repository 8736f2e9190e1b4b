package portrait

import (
	"sync"

	"github.com/Ondrej-Sulc/cerebro-roster/internal/phash"
	"github.com/Ondrej-Sulc/cerebro-roster/internal/roster"
)

// HashCache holds reference hashes partitioned by class.
//
// Entries are insert-if-absent. Two requests populating the same champion
// at once both compute the hash and the first store wins; the results are
// identical, so no further locking is needed.
type HashCache struct {
	classes sync.Map // roster.Class -> *sync.Map (name -> phash.Hash)
}

func (c *HashCache) partition(class roster.Class) *sync.Map {
	if p, ok := c.classes.Load(class); ok {
		return p.(*sync.Map)
	}
	p, _ := c.classes.LoadOrStore(class, &sync.Map{})
	return p.(*sync.Map)
}

// Get returns the cached hash of name within class.
func (c *HashCache) Get(class roster.Class, name string) (phash.Hash, bool) {
	v, ok := c.partition(class).Load(name)
	if !ok {
		return phash.Hash{}, false
	}
	return v.(phash.Hash), true
}

// Put stores h unless an entry exists and returns the stored hash.
func (c *HashCache) Put(class roster.Class, name string, h phash.Hash) phash.Hash {
	v, _ := c.partition(class).LoadOrStore(name, h)
	return v.(phash.Hash)
}

// Len is the number of cached hashes for class.
func (c *HashCache) Len(class roster.Class) int {
	n := 0
	c.partition(class).Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
