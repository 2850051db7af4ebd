package vizbind

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"
)

// MemoryStorage keeps template versions in process memory. Every saved
// version records the directive inventory of its source, so listings can
// show what a template binds without parsing it again. Versions are lost
// when the process exits.
type MemoryStorage struct {
	mu     sync.RWMutex
	names  map[string]*memoryTemplate
	closed bool
}

// memoryTemplate holds the versions of one name, oldest first
type memoryTemplate struct {
	versions []*StoredTemplate
}

func (m *memoryTemplate) latest() *StoredTemplate {
	return m.versions[len(m.versions)-1]
}

func (m *memoryTemplate) index(version int) (int, bool) {
	return slices.BinarySearchFunc(m.versions, version, func(t *StoredTemplate, v int) int {
		return cmp.Compare(t.Version, v)
	})
}

func (m *memoryTemplate) nextVersion() int {
	if len(m.versions) == 0 {
		return 1
	}
	return m.latest().Version + 1
}

// MemoryStorageDriver opens MemoryStorage instances. The connection string is ignored.
type MemoryStorageDriver struct{}

func init() {
	RegisterStorageDriver(StorageDriverNameMemory, &MemoryStorageDriver{})
}

// Open creates a new empty MemoryStorage.
func (d *MemoryStorageDriver) Open(string) (TemplateStorage, error) {
	return NewMemoryStorage(), nil
}

// NewMemoryStorage creates a new empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{names: make(map[string]*memoryTemplate)}
}

// view runs fn under the read lock when ctx is live and the storage open
func (s *MemoryStorage) view(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return NewStorageClosedError()
	}
	return fn()
}

// update is view under the write lock
func (s *MemoryStorage) update(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return NewStorageClosedError()
	}
	return fn()
}

// Get retrieves the latest version of a template.
func (s *MemoryStorage) Get(ctx context.Context, name string) (*StoredTemplate, error) {
	var found *StoredTemplate
	err := s.view(ctx, func() error {
		entry, ok := s.names[name]
		if !ok {
			return NewStorageTemplateNotFoundError(name)
		}
		found = copyStoredTemplate(entry.latest())
		return nil
	})
	return found, err
}

// GetByID retrieves a template version by ID.
func (s *MemoryStorage) GetByID(ctx context.Context, id TemplateID) (*StoredTemplate, error) {
	var found *StoredTemplate
	err := s.view(ctx, func() error {
		for _, entry := range s.names {
			if i := slices.IndexFunc(entry.versions, func(t *StoredTemplate) bool { return t.ID == id }); i >= 0 {
				found = copyStoredTemplate(entry.versions[i])
				return nil
			}
		}
		return NewStorageTemplateNotFoundError(string(id))
	})
	return found, err
}

// GetVersion retrieves a specific version of a template.
func (s *MemoryStorage) GetVersion(ctx context.Context, name string, version int) (*StoredTemplate, error) {
	var found *StoredTemplate
	err := s.view(ctx, func() error {
		entry, ok := s.names[name]
		if !ok {
			return NewStorageVersionNotFoundError(name, version)
		}
		i, ok := entry.index(version)
		if !ok {
			return NewStorageVersionNotFoundError(name, version)
		}
		found = copyStoredTemplate(entry.versions[i])
		return nil
	})
	return found, err
}

// Save appends tmpl as the next version of its name and records the
// directive inventory of its source.
func (s *MemoryStorage) Save(ctx context.Context, tmpl *StoredTemplate) error {
	if err := ValidateTemplateName(tmpl.Name); err != nil {
		return err
	}
	info := templateInventory(tmpl.Source)

	return s.update(ctx, func() error {
		entry, ok := s.names[tmpl.Name]
		if !ok {
			entry = &memoryTemplate{}
			s.names[tmpl.Name] = entry
		}

		stored := copyStoredTemplate(tmpl)
		stored.ID = generateTemplateID()
		stored.Version = entry.nextVersion()
		stored.CreatedAt = time.Now()
		stored.UpdatedAt = stored.CreatedAt
		stored.Info = info
		entry.versions = append(entry.versions, stored)

		tmpl.ID = stored.ID
		tmpl.Version = stored.Version
		tmpl.CreatedAt = stored.CreatedAt
		tmpl.UpdatedAt = stored.UpdatedAt
		tmpl.Info = cloneTemplateInfo(info)
		return nil
	})
}

// Delete removes all versions of a template.
func (s *MemoryStorage) Delete(ctx context.Context, name string) error {
	return s.update(ctx, func() error {
		if _, ok := s.names[name]; !ok {
			return NewStorageTemplateNotFoundError(name)
		}
		delete(s.names, name)
		return nil
	})
}

// DeleteVersion removes one version. Removing the only version removes
// the template.
func (s *MemoryStorage) DeleteVersion(ctx context.Context, name string, version int) error {
	return s.update(ctx, func() error {
		entry, ok := s.names[name]
		if !ok {
			return NewStorageVersionNotFoundError(name, version)
		}
		i, ok := entry.index(version)
		if !ok {
			return NewStorageVersionNotFoundError(name, version)
		}
		entry.versions = slices.Delete(entry.versions, i, i+1)
		if len(entry.versions) == 0 {
			delete(s.names, name)
		}
		return nil
	})
}

// List returns templates matching query.
func (s *MemoryStorage) List(ctx context.Context, query *TemplateQuery) ([]*StoredTemplate, error) {
	if query == nil {
		query = &TemplateQuery{}
	}

	var results []*StoredTemplate
	err := s.view(ctx, func() error {
		for _, entry := range s.names {
			candidates := entry.versions[len(entry.versions)-1:]
			if query.IncludeAllVersions {
				candidates = entry.versions
			}
			for _, tmpl := range candidates {
				if matchesTemplateQuery(tmpl, query) {
					results = append(results, copyStoredTemplate(tmpl))
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sortAndPage(results, query), nil
}

// Exists checks if a template exists.
func (s *MemoryStorage) Exists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.view(ctx, func() error {
		_, exists = s.names[name]
		return nil
	})
	return exists, err
}

// ListVersions returns the versions of a template, newest first.
func (s *MemoryStorage) ListVersions(ctx context.Context, name string) ([]int, error) {
	versions := []int{}
	err := s.view(ctx, func() error {
		if entry, ok := s.names[name]; ok {
			for i := len(entry.versions) - 1; i >= 0; i-- {
				versions = append(versions, entry.versions[i].Version)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return versions, nil
}

// Close drops every version. Later calls fail with a closed error.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.names = nil
	return nil
}
