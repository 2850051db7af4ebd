package vizbind

import (
	"context"
	"sync"
	"time"
)

// CachedStorage wraps a TemplateStorage and keeps recently used template
// versions in memory together with their parsed documents. An Engine
// configured with a CachedStorage renders stored templates from a clone of
// the cached document instead of reading and parsing the source on every
// call.
//
// Writes through the wrapper invalidate every cached version of the
// affected name. Writes that bypass it become visible after TTL.
type CachedStorage struct {
	storage TemplateStorage
	config  CacheConfig

	mu      sync.Mutex
	entries map[versionKey]*cacheEntry
	hits    int64
	misses  int64
	parses  int64
	closed  bool
}

// CacheConfig configures CachedStorage.
type CacheConfig struct {
	// TTL is how long a loaded version stays cached. Default: 5 minutes.
	TTL time.Duration

	// MaxEntries bounds the cache; the least recently used version is
	// evicted. Default: 1000.
	MaxEntries int

	// NegativeCacheTTL caches not-found results. 0 disables negative caching.
	NegativeCacheTTL time.Duration
}

// DefaultCacheConfig returns the default cache configuration.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		TTL:              DefaultCacheTTL,
		MaxEntries:       DefaultCacheMaxEntries,
		NegativeCacheTTL: DefaultNegativeCacheTTL,
	}
}

// CacheStats reports the state of a CachedStorage.
type CacheStats struct {
	Entries         int
	ValidEntries    int
	NegativeEntries int
	// Compiled counts valid entries holding a parsed document
	Compiled int
	Hits     int64
	Misses   int64
	// Parses counts template sources parsed by the cache
	Parses int64
}

// versionKey addresses a cached version; version 0 is the latest
type versionKey struct {
	name    string
	version int
}

func (k versionKey) notFound() error {
	if k.version == 0 {
		return NewStorageTemplateNotFoundError(k.name)
	}
	return NewStorageVersionNotFoundError(k.name, k.version)
}

type cacheEntry struct {
	template *StoredTemplate // nil for a cached miss
	compiled *CompiledTemplate
	loadedAt time.Time
	usedAt   time.Time
}

// NewCachedStorage wraps storage with a cache.
func NewCachedStorage(storage TemplateStorage, config CacheConfig) *CachedStorage {
	if config.TTL == 0 {
		config.TTL = DefaultCacheTTL
	}
	if config.MaxEntries == 0 {
		config.MaxEntries = DefaultCacheMaxEntries
	}
	return &CachedStorage{
		storage: storage,
		config:  config,
		entries: make(map[versionKey]*cacheEntry),
	}
}

// Get returns the latest version, from the cache when possible.
func (s *CachedStorage) Get(ctx context.Context, name string) (*StoredTemplate, error) {
	entry, err := s.lookup(ctx, versionKey{name: name})
	if err != nil {
		return nil, err
	}
	return copyStoredTemplate(entry.template), nil
}

// GetVersion returns a specific version, from the cache when possible.
func (s *CachedStorage) GetVersion(ctx context.Context, name string, version int) (*StoredTemplate, error) {
	entry, err := s.lookup(ctx, versionKey{name: name, version: version})
	if err != nil {
		return nil, err
	}
	return copyStoredTemplate(entry.template), nil
}

// GetByID answers from any cached version with that ID and falls through
// to the wrapped storage otherwise.
func (s *CachedStorage) GetByID(ctx context.Context, id TemplateID) (*StoredTemplate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, NewStorageClosedError()
	}
	for _, entry := range s.entries {
		if entry.template != nil && entry.template.ID == id && s.fresh(entry) {
			entry.usedAt = time.Now()
			s.hits++
			tmpl := copyStoredTemplate(entry.template)
			s.mu.Unlock()
			return tmpl, nil
		}
	}
	s.mu.Unlock()

	return s.storage.GetByID(ctx, id)
}

// Compiled returns the latest version of name with its parsed document.
// The source is parsed once per cached version.
func (s *CachedStorage) Compiled(ctx context.Context, name string) (*CompiledTemplate, error) {
	return s.compiled(ctx, versionKey{name: name})
}

// CompiledVersion is Compiled for a specific version.
func (s *CachedStorage) CompiledVersion(ctx context.Context, name string, version int) (*CompiledTemplate, error) {
	return s.compiled(ctx, versionKey{name: name, version: version})
}

// Save stores tmpl and invalidates its name.
func (s *CachedStorage) Save(ctx context.Context, tmpl *StoredTemplate) error {
	if err := s.storage.Save(ctx, tmpl); err != nil {
		return err
	}
	s.Invalidate(tmpl.Name)
	return nil
}

// Delete removes the template and invalidates its name.
func (s *CachedStorage) Delete(ctx context.Context, name string) error {
	if err := s.storage.Delete(ctx, name); err != nil {
		return err
	}
	s.Invalidate(name)
	return nil
}

// DeleteVersion removes one version and invalidates its name.
func (s *CachedStorage) DeleteVersion(ctx context.Context, name string, version int) error {
	if err := s.storage.DeleteVersion(ctx, name, version); err != nil {
		return err
	}
	s.Invalidate(name)
	return nil
}

// List is not cached.
func (s *CachedStorage) List(ctx context.Context, query *TemplateQuery) ([]*StoredTemplate, error) {
	return s.storage.List(ctx, query)
}

// Exists answers from a valid latest-version entry when present.
func (s *CachedStorage) Exists(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, NewStorageClosedError()
	}
	if entry, ok := s.entries[versionKey{name: name}]; ok && s.fresh(entry) {
		s.mu.Unlock()
		return entry.template != nil, nil
	}
	s.mu.Unlock()

	return s.storage.Exists(ctx, name)
}

// ListVersions is not cached.
func (s *CachedStorage) ListVersions(ctx context.Context, name string) ([]int, error) {
	return s.storage.ListVersions(ctx, name)
}

// Close drops the cache and closes the wrapped storage.
func (s *CachedStorage) Close() error {
	s.mu.Lock()
	s.closed = true
	s.entries = nil
	s.mu.Unlock()

	return s.storage.Close()
}

// Invalidate drops every cached version of name.
func (s *CachedStorage) Invalidate(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.entries {
		if key.name == name {
			delete(s.entries, key)
		}
	}
}

// InvalidateAll drops every cached entry.
func (s *CachedStorage) InvalidateAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.entries = make(map[versionKey]*cacheEntry)
	}
}

// Stats returns a snapshot of the cache.
func (s *CachedStorage) Stats() CacheStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := CacheStats{
		Entries: len(s.entries),
		Hits:    s.hits,
		Misses:  s.misses,
		Parses:  s.parses,
	}
	for _, entry := range s.entries {
		switch {
		case !s.fresh(entry):
		case entry.template == nil:
			stats.NegativeEntries++
		default:
			stats.ValidEntries++
			if entry.compiled != nil {
				stats.Compiled++
			}
		}
	}
	return stats
}

// lookup returns the entry for key, loading it from the wrapped storage on
// a miss. The returned entry's template is never mutated.
func (s *CachedStorage) lookup(ctx context.Context, key versionKey) (*cacheEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, NewStorageClosedError()
	}
	if entry, ok := s.entries[key]; ok && s.fresh(entry) {
		entry.usedAt = time.Now()
		s.hits++
		s.mu.Unlock()
		if entry.template == nil {
			return nil, key.notFound()
		}
		return entry, nil
	}
	s.misses++
	s.mu.Unlock()

	var (
		tmpl *StoredTemplate
		err  error
	)
	if key.version == 0 {
		tmpl, err = s.storage.Get(ctx, key.name)
	} else {
		tmpl, err = s.storage.GetVersion(ctx, key.name, key.version)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, NewStorageClosedError()
	}
	if err != nil {
		if s.config.NegativeCacheTTL > 0 && IsTemplateNotFound(err) {
			s.put(key, nil)
		}
		return nil, err
	}
	return s.put(key, copyStoredTemplate(tmpl)), nil
}

// compiled parses the entry's source on first use. Parsing happens
// outside the lock; a concurrent parse of the same entry keeps the first
// result.
func (s *CachedStorage) compiled(ctx context.Context, key versionKey) (*CompiledTemplate, error) {
	entry, err := s.lookup(ctx, key)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	c := entry.compiled
	s.mu.Unlock()
	if c != nil {
		return c, nil
	}

	c, err = compileTemplate(entry.template)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.parses++
	if entry.compiled == nil {
		entry.compiled = c
	}
	return entry.compiled, nil
}

func (s *CachedStorage) fresh(entry *cacheEntry) bool {
	ttl := s.config.TTL
	if entry.template == nil {
		ttl = s.config.NegativeCacheTTL
	}
	return time.Since(entry.loadedAt) < ttl
}

func (s *CachedStorage) put(key versionKey, tmpl *StoredTemplate) *cacheEntry {
	delete(s.entries, key)
	if len(s.entries) >= s.config.MaxEntries {
		s.evictLeastRecent()
	}

	now := time.Now()
	entry := &cacheEntry{template: tmpl, loadedAt: now, usedAt: now}
	s.entries[key] = entry
	return entry
}

func (s *CachedStorage) evictLeastRecent() {
	var (
		oldestKey versionKey
		oldest    *cacheEntry
	)
	for key, entry := range s.entries {
		if oldest == nil || entry.usedAt.Before(oldest.usedAt) {
			oldestKey, oldest = key, entry
		}
	}
	if oldest != nil {
		delete(s.entries, oldestKey)
	}
}
