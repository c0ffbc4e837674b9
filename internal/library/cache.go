package library

import (
	"context"
	"sync"

	"mangako/pkg/models"
)

// SearchCache stores search result pages keyed by exact (query, offset).
type SearchCache interface {
	Get(ctx context.Context, query string, offset int) ([]models.Manga, bool)
	Put(ctx context.Context, query string, offset int, page []models.Manga)
	// Invalidate drops every page whose query equals query exactly.
	Invalidate(ctx context.Context, query string)
	Clear(ctx context.Context)
}

type cacheKey struct {
	query  string
	offset int
}

// MemoryCache is an in-process SearchCache. With maxEntries > 0 the oldest
// inserted page is evicted once the bound is reached; 0 means unbounded.
type MemoryCache struct {
	mu         sync.Mutex
	entries    map[cacheKey][]models.Manga
	order      []cacheKey
	maxEntries int
}

var _ SearchCache = (*MemoryCache)(nil)

func NewMemoryCache(maxEntries int) *MemoryCache {
	if maxEntries < 0 {
		maxEntries = 0
	}
	return &MemoryCache{
		entries:    make(map[cacheKey][]models.Manga),
		maxEntries: maxEntries,
	}
}

func (c *MemoryCache) Get(_ context.Context, query string, offset int) ([]models.Manga, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	page, ok := c.entries[cacheKey{query, offset}]
	if !ok {
		return nil, false
	}
	return clonePage(page), true
}

func (c *MemoryCache) Put(_ context.Context, query string, offset int, page []models.Manga) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey{query, offset}
	if _, ok := c.entries[key]; !ok {
		if c.maxEntries > 0 {
			for len(c.entries) >= c.maxEntries && len(c.order) > 0 {
				oldest := c.order[0]
				c.order = c.order[1:]
				delete(c.entries, oldest)
			}
		}
		c.order = append(c.order, key)
	}
	c.entries[key] = clonePage(page)
}

func (c *MemoryCache) Invalidate(_ context.Context, query string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.order[:0]
	for _, key := range c.order {
		if key.query == query {
			delete(c.entries, key)
			continue
		}
		kept = append(kept, key)
	}
	c.order = kept
}

func (c *MemoryCache) Clear(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[cacheKey][]models.Manga)
	c.order = nil
}

// Len returns the number of cached pages.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func clonePage(page []models.Manga) []models.Manga {
	out := make([]models.Manga, len(page))
	copy(out, page)
	return out
}
