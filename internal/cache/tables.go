package cache

import (
	"time"

	"sheetcharts/internal/tabular"
)

// TableCache holds parsed tables keyed by uploaded file ID so projections
// do not re-decode the workbook on every request.
type TableCache struct {
	*LRUCache[*tabular.Table]
}

// NewTableCache creates a table cache bounded by size and TTL
func NewTableCache(maxSize int, ttl time.Duration) *TableCache {
	return &TableCache{LRUCache: NewLRUCache[*tabular.Table](maxSize, ttl)}
}

// GetOrLoad returns the cached table for fileID or calls load and caches its result.
// Load errors are not cached.
func (c *TableCache) GetOrLoad(fileID string, load func() (*tabular.Table, error)) (*tabular.Table, bool, error) {
	if t, ok := c.Get(fileID); ok {
		return t, true, nil
	}
	t, err := load()
	if err != nil {
		return nil, false, err
	}
	c.Set(fileID, t)
	return t, false, nil
}

var _ Cache[*tabular.Table] = (*TableCache)(nil)
