package vizbind

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// FilesystemStorage stores each template version as an SVG file next to a
// YAML sidecar holding its metadata.
//
// Directory structure:
//
//	<root>/
//	  <template-name>/
//	    v1.svg
//	    v1.meta.yaml
//	    v2.svg
//	    v2.meta.yaml
type FilesystemStorage struct {
	mu     sync.RWMutex
	root   string
	closed bool
}

// Filesystem storage error messages
const (
	ErrMsgInvalidStorageRoot = "storage root directory is empty"
	ErrMsgCreateStorageDir   = "failed to create storage directory"
	ErrMsgReadStorageDir     = "failed to read storage directory"
	ErrMsgReadTemplate       = "failed to read template file"
	ErrMsgWriteTemplate      = "failed to write template file"
	ErrMsgDeleteTemplate     = "failed to delete template"
	ErrMsgMarshalTemplate    = "failed to encode template metadata"
	ErrMsgUnmarshalTemplate  = "failed to decode template metadata"
)

// FilesystemStorageDriver opens FilesystemStorage instances.
type FilesystemStorageDriver struct{}

func init() {
	RegisterStorageDriver(StorageDriverNameFilesystem, &FilesystemStorageDriver{})
}

// Open creates a FilesystemStorage. The connection string is the root directory.
func (d *FilesystemStorageDriver) Open(connectionString string) (TemplateStorage, error) {
	return NewFilesystemStorage(connectionString)
}

// NewFilesystemStorage creates a filesystem storage rooted at root.
// The directory is created if it doesn't exist.
func NewFilesystemStorage(root string) (*FilesystemStorage, error) {
	if root == "" {
		return nil, &StorageError{Message: ErrMsgInvalidStorageRoot}
	}
	if err := os.MkdirAll(root, FilesystemDirPermissions); err != nil {
		return nil, &StorageError{Message: ErrMsgCreateStorageDir, Name: root, Cause: err}
	}
	return &FilesystemStorage{root: root}, nil
}

// Get retrieves the latest version of a template.
func (s *FilesystemStorage) Get(ctx context.Context, name string) (*StoredTemplate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ValidateTemplateName(name); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, NewStorageClosedError()
	}

	versions, err := s.versions(name)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, NewStorageTemplateNotFoundError(name)
	}
	return s.load(name, versions[0])
}

// GetByID scans every stored version for id.
func (s *FilesystemStorage) GetByID(ctx context.Context, id TemplateID) (*StoredTemplate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, NewStorageClosedError()
	}

	all, err := s.loadAll(true)
	if err != nil {
		return nil, err
	}
	for _, tmpl := range all {
		if tmpl.ID == id {
			return tmpl, nil
		}
	}
	return nil, NewStorageTemplateNotFoundError(string(id))
}

// GetVersion retrieves a specific version of a template.
func (s *FilesystemStorage) GetVersion(ctx context.Context, name string, version int) (*StoredTemplate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ValidateTemplateName(name); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, NewStorageClosedError()
	}
	return s.load(name, version)
}

// Save writes tmpl as the next version of its name.
func (s *FilesystemStorage) Save(ctx context.Context, tmpl *StoredTemplate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateTemplateName(tmpl.Name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return NewStorageClosedError()
	}

	dir := filepath.Join(s.root, tmpl.Name)
	if err := os.MkdirAll(dir, FilesystemDirPermissions); err != nil {
		return &StorageError{Message: ErrMsgCreateStorageDir, Name: dir, Cause: err}
	}

	versions, err := s.versions(tmpl.Name)
	if err != nil {
		return err
	}
	nextVersion := 1
	if len(versions) > 0 {
		nextVersion = versions[0] + 1
	}

	now := time.Now()
	stored := copyStoredTemplate(tmpl)
	stored.ID = generateTemplateID()
	stored.Version = nextVersion
	stored.CreatedAt = now
	stored.UpdatedAt = now
	stored.Info = templateInventory(stored.Source)

	meta, err := yaml.Marshal(stored)
	if err != nil {
		return &StorageError{Message: ErrMsgMarshalTemplate, Name: tmpl.Name, Cause: err}
	}

	sourcePath, metaPath := s.paths(tmpl.Name, nextVersion)
	if err := os.WriteFile(sourcePath, []byte(stored.Source), FilesystemFilePermissions); err != nil {
		return &StorageError{Message: ErrMsgWriteTemplate, Name: sourcePath, Cause: err}
	}
	if err := os.WriteFile(metaPath, meta, FilesystemFilePermissions); err != nil {
		_ = os.Remove(sourcePath)
		return &StorageError{Message: ErrMsgWriteTemplate, Name: metaPath, Cause: err}
	}

	tmpl.ID = stored.ID
	tmpl.Version = stored.Version
	tmpl.CreatedAt = stored.CreatedAt
	tmpl.UpdatedAt = stored.UpdatedAt
	tmpl.Info = cloneTemplateInfo(stored.Info)
	return nil
}

// Delete removes the template directory with every version.
func (s *FilesystemStorage) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateTemplateName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return NewStorageClosedError()
	}

	dir := filepath.Join(s.root, name)
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return NewStorageTemplateNotFoundError(name)
	}
	if err := os.RemoveAll(dir); err != nil {
		return &StorageError{Message: ErrMsgDeleteTemplate, Name: name, Cause: err}
	}
	return nil
}

// DeleteVersion removes one version. The template directory goes with the
// last version.
func (s *FilesystemStorage) DeleteVersion(ctx context.Context, name string, version int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateTemplateName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return NewStorageClosedError()
	}

	sourcePath, metaPath := s.paths(name, version)
	if _, err := os.Stat(sourcePath); errors.Is(err, fs.ErrNotExist) {
		return NewStorageVersionNotFoundError(name, version)
	}
	if err := os.Remove(sourcePath); err != nil {
		return &StorageError{Message: ErrMsgDeleteTemplate, Name: sourcePath, Cause: err}
	}
	_ = os.Remove(metaPath)

	remaining, err := s.versions(name)
	if err == nil && len(remaining) == 0 {
		_ = os.RemoveAll(filepath.Join(s.root, name))
	}
	return nil
}

// List returns templates matching query.
func (s *FilesystemStorage) List(ctx context.Context, query *TemplateQuery) ([]*StoredTemplate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if query == nil {
		query = &TemplateQuery{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, NewStorageClosedError()
	}

	all, err := s.loadAll(query.IncludeAllVersions)
	if err != nil {
		return nil, err
	}
	results := make([]*StoredTemplate, 0, len(all))
	for _, tmpl := range all {
		if matchesTemplateQuery(tmpl, query) {
			results = append(results, tmpl)
		}
	}
	return sortAndPage(results, query), nil
}

// Exists checks if a template has at least one version on disk.
func (s *FilesystemStorage) Exists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if ValidateTemplateName(name) != nil {
		return false, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, NewStorageClosedError()
	}

	versions, err := s.versions(name)
	if err != nil {
		return false, err
	}
	return len(versions) > 0, nil
}

// ListVersions returns the versions of a template, newest first.
func (s *FilesystemStorage) ListVersions(ctx context.Context, name string) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ValidateTemplateName(name); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, NewStorageClosedError()
	}
	return s.versions(name)
}

// Close marks the storage closed. Files on disk are kept.
func (s *FilesystemStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

func (s *FilesystemStorage) paths(name string, version int) (string, string) {
	base := filepath.Join(s.root, name, FilesystemVersionPrefix+strconv.Itoa(version))
	return base + FilesystemSourceSuffix, base + FilesystemMetaSuffix
}

// versions lists the versions found on disk, newest first. Caller holds the lock.
func (s *FilesystemStorage) versions(name string) ([]int, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, name))
	if errors.Is(err, fs.ErrNotExist) {
		return []int{}, nil
	}
	if err != nil {
		return nil, &StorageError{Message: ErrMsgReadStorageDir, Name: name, Cause: err}
	}

	versions := make([]int, 0, len(entries))
	for _, entry := range entries {
		file := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(file, FilesystemVersionPrefix) || !strings.HasSuffix(file, FilesystemSourceSuffix) {
			continue
		}
		v, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(file, FilesystemVersionPrefix), FilesystemSourceSuffix))
		if err != nil || v <= 0 {
			continue
		}
		versions = append(versions, v)
	}
	slices.Sort(versions)
	slices.Reverse(versions)
	return versions, nil
}

// load reads one version and its sidecar. Caller holds the lock.
func (s *FilesystemStorage) load(name string, version int) (*StoredTemplate, error) {
	sourcePath, metaPath := s.paths(name, version)

	source, err := os.ReadFile(sourcePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, NewStorageVersionNotFoundError(name, version)
	}
	if err != nil {
		return nil, &StorageError{Message: ErrMsgReadTemplate, Name: sourcePath, Cause: err}
	}

	tmpl := &StoredTemplate{}
	meta, err := os.ReadFile(metaPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// hand-placed source without a sidecar
		info, statErr := os.Stat(sourcePath)
		if statErr == nil {
			tmpl.CreatedAt = info.ModTime()
			tmpl.UpdatedAt = info.ModTime()
		}
	case err != nil:
		return nil, &StorageError{Message: ErrMsgReadTemplate, Name: metaPath, Cause: err}
	default:
		if err := yaml.Unmarshal(meta, tmpl); err != nil {
			return nil, &StorageError{Message: ErrMsgUnmarshalTemplate, Name: metaPath, Cause: err}
		}
	}

	tmpl.Name = name
	tmpl.Version = version
	tmpl.Source = string(source)
	return tmpl, nil
}

// loadAll reads every template, or only the latest versions. Caller holds the lock.
func (s *FilesystemStorage) loadAll(allVersions bool) ([]*StoredTemplate, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, &StorageError{Message: ErrMsgReadStorageDir, Name: s.root, Cause: err}
	}

	var out []*StoredTemplate
	for _, entry := range entries {
		if !entry.IsDir() || ValidateTemplateName(entry.Name()) != nil {
			continue
		}
		versions, err := s.versions(entry.Name())
		if err != nil {
			return nil, err
		}
		if !allVersions && len(versions) > 1 {
			versions = versions[:1]
		}
		for _, v := range versions {
			tmpl, err := s.load(entry.Name(), v)
			if err != nil {
				return nil, err
			}
			out = append(out, tmpl)
		}
	}
	return out, nil
}
