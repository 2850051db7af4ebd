package vizbind

import (
	"go.uber.org/zap"
)

// Option is a functional option for configuring the Engine.
type Option func(*engineConfig)

// engineConfig holds the internal configuration for an Engine.
type engineConfig struct {
	maxDepth int
	logger   *zap.Logger
	funcs    []*Func
	storage  TemplateStorage
	cache    ResultCache
	metrics  *Metrics
}

// defaultEngineConfig returns the default engine configuration.
func defaultEngineConfig() *engineConfig {
	return &engineConfig{
		maxDepth: DefaultMaxDepth,
	}
}

// WithMaxDepth sets the maximum element nesting depth a render may reach.
// Use 0 for unlimited depth.
// Default: 512
func WithMaxDepth(depth int) Option {
	return func(c *engineConfig) {
		c.maxDepth = depth
	}
}

// WithLogger sets the logger for the engine.
// Default: nil (no logging)
func WithLogger(logger *zap.Logger) Option {
	return func(c *engineConfig) {
		c.logger = logger
	}
}

// WithFunc adds a function callable from expressions. Names must not clash
// with the builtins or with other custom functions.
func WithFunc(f *Func) Option {
	return func(c *engineConfig) {
		c.funcs = append(c.funcs, f)
	}
}

// WithStorage attaches a template store used by RenderStored and SaveTemplate.
func WithStorage(storage TemplateStorage) Option {
	return func(c *engineConfig) {
		c.storage = storage
	}
}

// WithResultCache caches successful render output keyed by template and data.
func WithResultCache(cache ResultCache) Option {
	return func(c *engineConfig) {
		c.cache = cache
	}
}

// WithMetrics reports renders, directives and cache lookups to m.
func WithMetrics(m *Metrics) Option {
	return func(c *engineConfig) {
		c.metrics = m
	}
}
