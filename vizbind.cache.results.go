package vizbind

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/zeebo/xxh3"
)

// ResultCache stores rendered output by key. Engine.Render consults it
// before rendering and fills it after a successful render.
type ResultCache interface {
	// Get returns the cached output for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key.
	Set(ctx context.Context, key, value string) error
}

// ResultCacheKey derives the cache key of a render from the template bytes
// and the data. Map keys are encoded in sorted order, so equal data yields
// equal keys. Data that cannot be encoded as JSON has no key.
func ResultCacheKey(template []byte, data map[string]any) (string, error) {
	encoded, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x%016x", xxh3.Hash(template), xxh3.Hash(encoded)), nil
}

// ResultCacheConfig configures MemoryResultCache.
type ResultCacheConfig struct {
	// TTL is how long results are cached. Default: 5 minutes.
	TTL time.Duration

	// MaxEntries is the maximum number of cached results. Default: 1000.
	MaxEntries int

	// MaxResultSize is the largest output cached, in bytes. Default: 1MB.
	MaxResultSize int
}

// DefaultResultCacheConfig returns the default result cache configuration.
func DefaultResultCacheConfig() ResultCacheConfig {
	return ResultCacheConfig{
		TTL:           DefaultCacheTTL,
		MaxEntries:    DefaultCacheMaxEntries,
		MaxResultSize: DefaultMaxResultSize,
	}
}

// ResultCacheStats tracks cache performance.
type ResultCacheStats struct {
	Hits       int64
	Misses     int64
	Evictions  int64
	TotalSize  int64
	EntryCount int
}

// MemoryResultCache is an in-process ResultCache with TTL expiry and
// oldest-first eviction.
type MemoryResultCache struct {
	mu        sync.Mutex
	entries   map[string]*resultCacheEntry
	config    ResultCacheConfig
	stats     ResultCacheStats
	evictList []string // insertion order
}

type resultCacheEntry struct {
	result    string
	expiresAt time.Time
}

// NewMemoryResultCache creates an empty in-memory result cache.
func NewMemoryResultCache(config ResultCacheConfig) *MemoryResultCache {
	if config.TTL == 0 {
		config.TTL = DefaultCacheTTL
	}
	if config.MaxEntries == 0 {
		config.MaxEntries = DefaultCacheMaxEntries
	}
	if config.MaxResultSize == 0 {
		config.MaxResultSize = DefaultMaxResultSize
	}
	return &MemoryResultCache{
		entries:   make(map[string]*resultCacheEntry),
		config:    config,
		evictList: make([]string, 0, config.MaxEntries),
	}
}

// Get returns an unexpired result.
func (c *MemoryResultCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		return "", false, nil
	}
	if time.Now().After(entry.expiresAt) {
		c.remove(key)
		c.stats.Misses++
		return "", false, nil
	}
	c.stats.Hits++
	return entry.result, true, nil
}

// Set stores a result. Results larger than MaxResultSize are skipped.
func (c *MemoryResultCache) Set(_ context.Context, key, value string) error {
	if len(value) > c.config.MaxResultSize {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		c.remove(key)
	}
	for len(c.entries) >= c.config.MaxEntries && len(c.evictList) > 0 {
		c.evictOldest()
	}

	c.entries[key] = &resultCacheEntry{
		result:    value,
		expiresAt: time.Now().Add(c.config.TTL),
	}
	c.evictList = append(c.evictList, key)
	c.stats.TotalSize += int64(len(value))
	c.stats.EntryCount = len(c.entries)
	return nil
}

// Clear removes all entries.
func (c *MemoryResultCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*resultCacheEntry)
	c.evictList = make([]string, 0, c.config.MaxEntries)
	c.stats.TotalSize = 0
	c.stats.EntryCount = 0
}

// Cleanup removes expired entries and returns how many were removed.
func (c *MemoryResultCache) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			c.remove(key)
			removed++
		}
	}
	return removed
}

// Stats returns current cache statistics.
func (c *MemoryResultCache) Stats() ResultCacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// HitRate returns the cache hit rate (0.0 to 1.0).
func (c *MemoryResultCache) HitRate() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.stats.Hits + c.stats.Misses
	if total == 0 {
		return 0
	}
	return float64(c.stats.Hits) / float64(total)
}

// remove deletes key from the entries and the eviction order
func (c *MemoryResultCache) remove(key string) {
	entry, ok := c.entries[key]
	if !ok {
		return
	}
	c.stats.TotalSize -= int64(len(entry.result))
	delete(c.entries, key)
	for i, k := range c.evictList {
		if k == key {
			c.evictList = append(c.evictList[:i], c.evictList[i+1:]...)
			break
		}
	}
	c.stats.EntryCount = len(c.entries)
}

func (c *MemoryResultCache) evictOldest() {
	oldest := c.evictList[0]
	c.remove(oldest)
	c.stats.Evictions++
}
