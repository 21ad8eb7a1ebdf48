package catalog

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Source produces the raw reference data. Implementations: embedded static
// files, postgres, or a redis snapshot wrapping either.
type Source interface {
	Load(ctx context.Context) (Data, error)
}

// Cache memoizes the catalog for the lifetime of the process. Concurrent form
// mounts share one in-flight load via singleflight; a failed load leaves the
// cache empty so a later mount can retry. Dependent fields treat an empty
// catalog as manual-entry mode.
type Cache struct {
	source Source
	group  singleflight.Group

	mu      sync.RWMutex
	catalog *Catalog
}

// NewCache wraps a source with load-once memoization.
func NewCache(source Source) *Cache {
	return &Cache{source: source}
}

// Load returns the memoized catalog, fetching it on first use.
func (c *Cache) Load(ctx context.Context) (*Catalog, error) {
	c.mu.RLock()
	if cat := c.catalog; cat != nil {
		c.mu.RUnlock()
		return cat, nil
	}
	c.mu.RUnlock()

	v, err, _ := c.group.Do("catalog", func() (any, error) {
		data, err := c.source.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("load reference catalog: %w", err)
		}
		cat := New(data)
		c.mu.Lock()
		c.catalog = cat
		c.mu.Unlock()
		return cat, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Catalog), nil
}

// Loaded reports whether a catalog is already memoized.
func (c *Cache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.catalog != nil
}
