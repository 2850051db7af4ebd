package vizbind

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const storedChart = `<svg><text data-bind="title"/></svg>`

// runStorageContract exercises the behavior every TemplateStorage shares.
func runStorageContract(t *testing.T, open func(t *testing.T) TemplateStorage) {
	ctx := context.Background()

	t.Run("save assigns identity and versions", func(t *testing.T) {
		s := open(t)
		first := &StoredTemplate{Name: "chart", Source: "<v1/>", CreatedBy: "ana", Tags: []string{"bar"}, Metadata: map[string]string{"k": "v"}}
		require.NoError(t, s.Save(ctx, first))
		assert.Equal(t, 1, first.Version)
		assert.Contains(t, string(first.ID), TemplateIDPrefix)
		assert.False(t, first.CreatedAt.IsZero())

		second := &StoredTemplate{Name: "chart", Source: "<v2/>"}
		require.NoError(t, s.Save(ctx, second))
		assert.Equal(t, 2, second.Version)
		assert.NotEqual(t, first.ID, second.ID)

		latest, err := s.Get(ctx, "chart")
		require.NoError(t, err)
		assert.Equal(t, "<v2/>", latest.Source)
		assert.Equal(t, 2, latest.Version)

		v1, err := s.GetVersion(ctx, "chart", 1)
		require.NoError(t, err)
		assert.Equal(t, "<v1/>", v1.Source)
		assert.Equal(t, "ana", v1.CreatedBy)
		assert.Equal(t, []string{"bar"}, v1.Tags)
		assert.Equal(t, map[string]string{"k": "v"}, v1.Metadata)

		byID, err := s.GetByID(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, byID.Version)

		versions, err := s.ListVersions(ctx, "chart")
		require.NoError(t, err)
		assert.Equal(t, []int{2, 1}, versions)
	})

	t.Run("not found", func(t *testing.T) {
		s := open(t)
		_, err := s.Get(ctx, "missing")
		assert.True(t, IsTemplateNotFound(err))
		assert.Equal(t, ErrCodeStorage, ErrorCode(err))

		_, err = s.GetVersion(ctx, "missing", 3)
		assert.True(t, errors.Is(err, ErrTemplateNotFound))

		_, err = s.GetByID(ctx, "tmpl_nope")
		assert.True(t, IsTemplateNotFound(err))

		assert.True(t, IsTemplateNotFound(s.Delete(ctx, "missing")))
		assert.True(t, IsTemplateNotFound(s.DeleteVersion(ctx, "missing", 1)))

		exists, err := s.Exists(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, exists)

		versions, err := s.ListVersions(ctx, "missing")
		require.NoError(t, err)
		assert.Empty(t, versions)
	})

	t.Run("invalid names", func(t *testing.T) {
		s := open(t)
		for _, name := range []string{"", "../escape", "a/b", ".hidden"} {
			err := s.Save(ctx, &StoredTemplate{Name: name, Source: "<x/>"})
			assert.Error(t, err, name)
		}
	})

	t.Run("delete", func(t *testing.T) {
		s := open(t)
		for i := 0; i < 3; i++ {
			require.NoError(t, s.Save(ctx, &StoredTemplate{Name: "d", Source: fmt.Sprintf("<v%d/>", i+1)}))
		}

		require.NoError(t, s.DeleteVersion(ctx, "d", 3))
		latest, err := s.Get(ctx, "d")
		require.NoError(t, err)
		assert.Equal(t, 2, latest.Version)

		require.NoError(t, s.Delete(ctx, "d"))
		exists, err := s.Exists(ctx, "d")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("delete last version removes template", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Save(ctx, &StoredTemplate{Name: "single", Source: "<x/>"}))
		require.NoError(t, s.DeleteVersion(ctx, "single", 1))

		exists, err := s.Exists(ctx, "single")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("list", func(t *testing.T) {
		s := open(t)
		saves := []*StoredTemplate{
			{Name: "bar-chart", Source: "<a/>", Tags: []string{"chart", "bar"}, CreatedBy: "ana"},
			{Name: "bar-chart", Source: "<b/>", Tags: []string{"chart", "bar"}, CreatedBy: "ana"},
			{Name: "pie-chart", Source: "<c/>", Tags: []string{"chart"}, CreatedBy: "ben"},
			{Name: "scoreboard", Source: "<d/>", CreatedBy: "ben"},
		}
		for _, tmpl := range saves {
			require.NoError(t, s.Save(ctx, tmpl))
		}

		all, err := s.List(ctx, nil)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, []string{"bar-chart", "pie-chart", "scoreboard"}, names(all))
		assert.Equal(t, 2, all[0].Version)

		withVersions, err := s.List(ctx, &TemplateQuery{IncludeAllVersions: true, NamePrefix: "bar"})
		require.NoError(t, err)
		require.Len(t, withVersions, 2)
		assert.Equal(t, 2, withVersions[0].Version)
		assert.Equal(t, 1, withVersions[1].Version)

		tagged, err := s.List(ctx, &TemplateQuery{Tags: []string{"chart", "bar"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"bar-chart"}, names(tagged))

		byCreator, err := s.List(ctx, &TemplateQuery{CreatedBy: "ben"})
		require.NoError(t, err)
		assert.Equal(t, []string{"pie-chart", "scoreboard"}, names(byCreator))

		contains, err := s.List(ctx, &TemplateQuery{NameContains: "chart"})
		require.NoError(t, err)
		assert.Equal(t, []string{"bar-chart", "pie-chart"}, names(contains))

		paged, err := s.List(ctx, &TemplateQuery{Offset: 1, Limit: 1})
		require.NoError(t, err)
		assert.Equal(t, []string{"pie-chart"}, names(paged))

		past, err := s.List(ctx, &TemplateQuery{Offset: 10})
		require.NoError(t, err)
		assert.Empty(t, past)
	})

	t.Run("returned templates are copies", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Save(ctx, &StoredTemplate{Name: "copy", Source: "<x/>", Tags: []string{"a"}}))

		got, err := s.Get(ctx, "copy")
		require.NoError(t, err)
		got.Tags[0] = "mutated"
		got.Source = "<mutated/>"

		again, err := s.Get(ctx, "copy")
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, again.Tags)
		assert.Equal(t, "<x/>", again.Source)
	})

	t.Run("concurrent saves get distinct versions", func(t *testing.T) {
		s := open(t)
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, s.Save(ctx, &StoredTemplate{Name: "busy", Source: "<x/>"}))
			}()
		}
		wg.Wait()

		versions, err := s.ListVersions(ctx, "busy")
		require.NoError(t, err)
		assert.Len(t, versions, 10)
		assert.Equal(t, 10, versions[0])
	})

	t.Run("cancelled context", func(t *testing.T) {
		s := open(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := s.Get(cctx, "x")
		assert.True(t, errors.Is(err, context.Canceled))
		assert.True(t, errors.Is(s.Save(cctx, &StoredTemplate{Name: "x", Source: "<x/>"}), context.Canceled))
	})

	t.Run("records directive inventory", func(t *testing.T) {
		s := open(t)
		tmpl := &StoredTemplate{Name: "inventory", Source: storedChart}
		require.NoError(t, s.Save(ctx, tmpl))
		require.NotNil(t, tmpl.Info)

		want := []DirectiveInfo{{Directive: "bind", Attribute: AttrBind, Expression: "title", Tag: "text", Path: "/svg/text"}}
		got, err := s.Get(ctx, "inventory")
		require.NoError(t, err)
		require.NotNil(t, got.Info)
		assert.Equal(t, "svg", got.Info.Root)
		assert.Equal(t, 2, got.Info.Elements)
		assert.Equal(t, want, got.Info.Directives)

		got.Info.Directives[0].Expression = "mutated"
		again, err := s.Get(ctx, "inventory")
		require.NoError(t, err)
		assert.Equal(t, want, again.Info.Directives)

		require.NoError(t, s.Save(ctx, &StoredTemplate{Name: "plain", Source: "<svg><rect/></svg>"}))
		plain, err := s.Get(ctx, "plain")
		require.NoError(t, err)
		require.NotNil(t, plain.Info)
		assert.False(t, plain.Info.HasDirectives())

		require.NoError(t, s.Save(ctx, &StoredTemplate{Name: "unparsed", Source: "<svg>"}))
		unparsed, err := s.Get(ctx, "unparsed")
		require.NoError(t, err)
		assert.Nil(t, unparsed.Info)
	})

	t.Run("closed", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Close())
		_, err := s.Get(ctx, "x")
		assert.Error(t, err)
	})
}

func names(templates []*StoredTemplate) []string {
	out := make([]string, len(templates))
	for i, tmpl := range templates {
		out[i] = tmpl.Name
	}
	return out
}

func TestMemoryStorage(t *testing.T) {
	runStorageContract(t, func(t *testing.T) TemplateStorage {
		return NewMemoryStorage()
	})
}

func TestFilesystemStorage(t *testing.T) {
	runStorageContract(t, func(t *testing.T) TemplateStorage {
		s, err := NewFilesystemStorage(t.TempDir())
		require.NoError(t, err)
		return s
	})
}

func TestCachedStorage_Contract(t *testing.T) {
	runStorageContract(t, func(t *testing.T) TemplateStorage {
		return NewCachedStorage(NewMemoryStorage(), DefaultCacheConfig())
	})
}

func TestStorageDrivers(t *testing.T) {
	assert.Equal(t,
		[]string{StorageDriverNameFilesystem, StorageDriverNameMemory, StorageDriverNamePostgres},
		ListStorageDrivers())

	s, err := OpenStorage(StorageDriverNameMemory, "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStorage{}, s)

	s, err = OpenStorage(StorageDriverNameFilesystem, t.TempDir())
	require.NoError(t, err)
	assert.IsType(t, &FilesystemStorage{}, s)

	_, err = OpenStorage("nosql", "")
	var se *StorageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, ErrMsgStorageDriverNotFound, se.Message)

	assert.Panics(t, func() { RegisterStorageDriver(StorageDriverNameMemory, &MemoryStorageDriver{}) })
	assert.Panics(t, func() { RegisterStorageDriver("nil", nil) })

	_, err = OpenStorage(StorageDriverNamePostgres, "")
	assert.Error(t, err)
}

func TestValidateTemplateName(t *testing.T) {
	for _, name := range []string{"chart", "bar-chart.v2", "A_1"} {
		assert.NoError(t, ValidateTemplateName(name), name)
	}
	for _, name := range []string{"", "-x", "a b", "a/b", "a..b", "ünï"} {
		assert.Error(t, ValidateTemplateName(name), name)
	}
}

func TestStorageError(t *testing.T) {
	err := NewStorageVersionNotFoundError("chart", 3)
	assert.Equal(t, "template version not found: chart v3", err.Error())
	assert.True(t, errors.Is(err, ErrTemplateNotFound))

	wrapped := &StorageError{Message: "failed", Name: "x", Cause: errors.New("disk")}
	assert.Equal(t, "failed: x: disk", wrapped.Error())
}

func TestEngine_StoredTemplates(t *testing.T) {
	ctx := context.Background()

	t.Run("without storage", func(t *testing.T) {
		engine := MustNew()
		_, err := engine.RenderStored(ctx, "chart", nil)
		assert.True(t, errors.Is(err, ErrNoStorage))
		assert.Equal(t, ErrCodeStorage, ErrorCode(err))
		assert.True(t, errors.Is(engine.SaveTemplate(ctx, &StoredTemplate{Name: "x"}), ErrNoStorage))
	})

	engine := MustNew(WithStorage(NewMemoryStorage()))

	require.NoError(t, engine.SaveTemplate(ctx, &StoredTemplate{Name: "chart", Source: storedChart}))
	require.NoError(t, engine.SaveTemplate(ctx, &StoredTemplate{Name: "chart", Source: `<svg><text data-bind="uppercase(title)"/></svg>`}))

	out, err := engine.RenderStored(ctx, "chart", map[string]any{"title": "cup"})
	require.NoError(t, err)
	assert.Equal(t, `<svg><text>CUP</text></svg>`, out)

	out, err = engine.RenderStoredVersion(ctx, "chart", 1, map[string]any{"title": "cup"})
	require.NoError(t, err)
	assert.Equal(t, `<svg><text>cup</text></svg>`, out)

	_, err = engine.RenderStored(ctx, "missing", nil)
	assert.True(t, IsTemplateNotFound(err))

	t.Run("invalid template is rejected", func(t *testing.T) {
		err := engine.SaveTemplate(ctx, &StoredTemplate{Name: "broken", Source: `<svg><text data-bind="1 +"/></svg>`})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrExpression))
		assert.Equal(t, "broken", ErrorMetadata(err)[MetaKeyTemplate])

		exists, err := engine.Storage().Exists(ctx, "broken")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("nil template", func(t *testing.T) {
		assert.Error(t, engine.SaveTemplate(ctx, nil))
	})
}
