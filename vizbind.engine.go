package vizbind

import (
	"bytes"
	"context"
	"time"

	"github.com/itsatony/go-vizbind/internal"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

// Engine is the main entry point for rendering vizbind templates.
// It owns the function registry, the renderer and the optional storage,
// result cache and metrics. An Engine is safe for concurrent use.
type Engine struct {
	funcs    *internal.FuncRegistry
	renderer *internal.Renderer
	config   *engineConfig
	logger   *zap.Logger
	storage  TemplateStorage
	cache    ResultCache
	metrics  *Metrics
}

// New creates a new vizbind Engine with the given options.
func New(opts ...Option) (*Engine, error) {
	config := defaultEngineConfig()
	for _, opt := range opts {
		opt(config)
	}

	logger := config.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if config.maxDepth < 0 {
		return nil, NewConfigError(ErrMsgInvalidMaxDepth)
	}

	funcs := internal.NewFuncRegistry()
	internal.RegisterBuiltinFuncs(funcs)
	for _, f := range config.funcs {
		if err := funcs.Register(f.toInternal()); err != nil {
			name := ""
			if f != nil {
				name = f.Name
			}
			return nil, NewFuncRegistrationError(name, err)
		}
	}
	funcs.Freeze()

	rendererConfig := internal.RendererConfig{
		MaxDepth:    config.maxDepth,
		OnDirective: config.metrics.directiveHook(),
	}

	e := &Engine{
		funcs:    funcs,
		renderer: internal.NewRenderer(funcs, rendererConfig, logger),
		config:   config,
		logger:   logger,
		storage:  config.storage,
		cache:    config.cache,
		metrics:  config.metrics,
	}

	logger.Debug(LogMsgEngineCreated,
		zap.Int(LogFieldFuncs, funcs.Count()),
		zap.Int(LogFieldMaxDepth, config.maxDepth),
		zap.Bool(LogFieldHasCache, config.cache != nil),
		zap.Bool(LogFieldHasStore, config.storage != nil))

	return e, nil
}

// MustNew creates a new Engine and panics if there's an error.
func MustNew(opts ...Option) *Engine {
	engine, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return engine
}

// compiledStorage is implemented by storages that keep parsed documents,
// such as CachedStorage.
type compiledStorage interface {
	Compiled(ctx context.Context, name string) (*CompiledTemplate, error)
	CompiledVersion(ctx context.Context, name string, version int) (*CompiledTemplate, error)
}

// documentLoader produces the tree a render mutates
type documentLoader func() (*internal.Node, error)

func parseSource(template []byte) documentLoader {
	return func() (*internal.Node, error) {
		return internal.ParseDocument(bytes.NewReader(template))
	}
}

// Render parses template, resolves its directives against data and returns
// the serialized document. Nothing is returned when any directive fails.
func (e *Engine) Render(ctx context.Context, template string, data map[string]any) (string, error) {
	src := []byte(template)
	return e.render(ctx, src, data, parseSource(src))
}

// RenderBytes is Render for a template held in a byte slice.
func (e *Engine) RenderBytes(ctx context.Context, template []byte, data map[string]any) ([]byte, error) {
	out, err := e.render(ctx, template, data, parseSource(template))
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

// RenderValue renders with data taken from any mapping or struct value.
// Structs are decoded into a map honouring `mapstructure` field tags.
func (e *Engine) RenderValue(ctx context.Context, template string, data any) (string, error) {
	m, err := toDataMap(data)
	if err != nil {
		return "", err
	}
	src := []byte(template)
	return e.render(ctx, src, m, parseSource(src))
}

// RenderStored renders the latest version of a stored template. With a
// CachedStorage the parsed document is reused across calls.
func (e *Engine) RenderStored(ctx context.Context, name string, data map[string]any) (string, error) {
	return e.renderStored(ctx, name, 0, data)
}

// RenderStoredVersion renders a specific version of a stored template.
func (e *Engine) RenderStoredVersion(ctx context.Context, name string, version int, data map[string]any) (string, error) {
	return e.renderStored(ctx, name, version, data)
}

// renderStored loads name at version, 0 meaning the latest
func (e *Engine) renderStored(ctx context.Context, name string, version int, data map[string]any) (string, error) {
	if e.storage == nil {
		return "", NewNoStorageError()
	}

	if cs, ok := e.storage.(compiledStorage); ok {
		var (
			c   *CompiledTemplate
			err error
		)
		if version == 0 {
			c, err = cs.Compiled(ctx, name)
		} else {
			c, err = cs.CompiledVersion(ctx, name, version)
		}
		if err != nil {
			return "", err
		}
		e.logger.Debug(LogMsgStoredTemplate,
			zap.String(LogFieldTemplate, name),
			zap.Int(LogFieldVersion, c.Version()),
			zap.Bool(LogFieldCompiled, true))
		return e.render(ctx, c.source(), data, c.document)
	}

	var (
		tmpl *StoredTemplate
		err  error
	)
	if version == 0 {
		tmpl, err = e.storage.Get(ctx, name)
	} else {
		tmpl, err = e.storage.GetVersion(ctx, name, version)
	}
	if err != nil {
		return "", err
	}
	e.logger.Debug(LogMsgStoredTemplate,
		zap.String(LogFieldTemplate, name),
		zap.Int(LogFieldVersion, tmpl.Version),
		zap.Bool(LogFieldCompiled, false))
	src := []byte(tmpl.Source)
	return e.render(ctx, src, data, parseSource(src))
}

// SaveTemplate validates tmpl.Source and stores it as a new version.
func (e *Engine) SaveTemplate(ctx context.Context, tmpl *StoredTemplate) error {
	if e.storage == nil {
		return NewNoStorageError()
	}
	if tmpl == nil {
		return &StorageError{Message: ErrMsgNilTemplate}
	}
	if _, err := e.Validate(tmpl.Source); err != nil {
		return NewInvalidTemplateError(tmpl.Name, err)
	}
	if err := e.storage.Save(ctx, tmpl); err != nil {
		return err
	}
	e.logger.Debug(LogMsgTemplateSaved,
		zap.String(LogFieldTemplate, tmpl.Name),
		zap.Int(LogFieldVersion, tmpl.Version))
	return nil
}

// EvaluateProps evaluates a "name: expr; name2: expr2" specification
// against data and returns the values by name.
func (e *Engine) EvaluateProps(ctx context.Context, spec string, data map[string]any) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	props, err := e.renderer.Evaluator().ParseProps(spec, internal.NewScope(data))
	if err != nil {
		return nil, NewRenderError(err)
	}
	return props, nil
}

// Directives returns the directive attributes the engine acts on, in
// evaluation order.
func (e *Engine) Directives() []string {
	handled := internal.HandledDirectives()
	attrs := make([]string, len(handled))
	for i, d := range handled {
		attrs[i] = d.Attr()
	}
	return attrs
}

// Storage returns the configured template storage, or nil.
func (e *Engine) Storage() TemplateStorage {
	return e.storage
}

// render serves from the result cache keyed on the template source, and
// otherwise renders the tree produced by load.
func (e *Engine) render(ctx context.Context, template []byte, data map[string]any, load documentLoader) (string, error) {
	start := time.Now()

	key := e.cacheLookupKey(template, data)
	if key != "" {
		if out, ok := e.cacheGet(ctx, key); ok {
			e.metrics.observeRender(renderOutcomeCached, time.Since(start))
			return out, nil
		}
	}

	out, err := e.renderUncached(ctx, load, data)
	if err != nil {
		e.metrics.observeRender(renderOutcomeError, time.Since(start))
		e.logger.Debug(LogMsgRenderFailed,
			zap.Duration(LogFieldDuration, time.Since(start)),
			zap.Error(err))
		return "", err
	}
	e.metrics.observeRender(renderOutcomeSuccess, time.Since(start))

	if key != "" {
		if err := e.cache.Set(ctx, key, out); err != nil {
			e.logger.Warn(LogMsgCacheSetFailed, zap.Error(err))
		}
	}
	return out, nil
}

func (e *Engine) renderUncached(ctx context.Context, load documentLoader, data map[string]any) (string, error) {
	root, err := load()
	if err != nil {
		return "", NewRenderError(err)
	}
	if err := e.renderer.Render(ctx, root, internal.NewScope(data)); err != nil {
		return "", NewRenderError(err)
	}
	out, err := internal.Serialize(root)
	if err != nil {
		return "", NewRenderError(err)
	}
	return string(out), nil
}

func (e *Engine) cacheLookupKey(template []byte, data map[string]any) string {
	if e.cache == nil {
		return ""
	}
	key, err := ResultCacheKey(template, data)
	if err != nil {
		e.logger.Debug(LogMsgCacheKeyFailed, zap.Error(err))
		return ""
	}
	return key
}

func (e *Engine) cacheGet(ctx context.Context, key string) (string, bool) {
	out, ok, err := e.cache.Get(ctx, key)
	if err != nil {
		e.logger.Warn(LogMsgCacheGetFailed, zap.Error(err))
		e.metrics.observeCache(cacheResultError)
		return "", false
	}
	if !ok {
		e.metrics.observeCache(cacheResultMiss)
		return "", false
	}
	e.logger.Debug(LogMsgCacheHit, zap.Int(LogFieldBytes, len(out)))
	e.metrics.observeCache(cacheResultHit)
	return out, true
}

// toDataMap converts render data into the top-level scope mapping
func toDataMap(data any) (map[string]any, error) {
	switch v := data.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return v, nil
	}

	var m map[string]any
	if err := mapstructure.Decode(data, &m); err != nil {
		return nil, NewInvalidDataError(err)
	}
	return m, nil
}
