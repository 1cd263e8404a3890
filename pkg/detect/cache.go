package detect

import (
	"strings"
	"sync"
)

// SelectorCache caches detection results per host
type SelectorCache struct {
	mu    sync.RWMutex
	cache map[string]DetectionResult
}

// NewSelectorCache creates a new selector cache
func NewSelectorCache() *SelectorCache {
	return &SelectorCache{
		cache: make(map[string]DetectionResult),
	}
}

// cacheKey folds "www." and case so both spellings of a host share an entry
func cacheKey(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}

// Get retrieves a cached detection result for a host
func (c *SelectorCache) Get(host string) (DetectionResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result, ok := c.cache[cacheKey(host)]
	return result, ok
}

// Set stores a detection result for a host
func (c *SelectorCache) Set(host string, result DetectionResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[cacheKey(host)] = result
}

// Len returns the number of cached hosts
func (c *SelectorCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}
