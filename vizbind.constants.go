package vizbind

import (
	"time"

	"github.com/itsatony/go-vizbind/internal"
)

// Directive attributes
const (
	AttrBind   = internal.AttrBind
	AttrAttr   = internal.AttrAttr
	AttrStyle  = internal.AttrStyle
	AttrIf     = internal.AttrIf
	AttrRepeat = internal.AttrRepeat
)

// Engine defaults
const (
	DefaultMaxDepth = internal.DefaultMaxDepth
)

// Error metadata keys
const (
	MetaKeyDirective   = "directive"
	MetaKeyExpression  = "expression"
	MetaKeyTag         = "tag"
	MetaKeyName        = "name"
	MetaKeyType        = "type"
	MetaKeyLine        = "line"
	MetaKeySuggestions = "suggestions"
	MetaKeyKind        = "kind"
	MetaKeyFuncName    = "func_name"
	MetaKeyTemplate    = "template_name"
	MetaKeyVersion     = "version"
	MetaKeyDriverName  = "driver"
)

// MetaKeys lists the metadata keys vizbind attaches to errors
var MetaKeys = []string{
	MetaKeyKind,
	MetaKeyDirective,
	MetaKeyExpression,
	MetaKeyTag,
	MetaKeyName,
	MetaKeyType,
	MetaKeyLine,
	MetaKeySuggestions,
	MetaKeyFuncName,
	MetaKeyTemplate,
	MetaKeyVersion,
	MetaKeyDriverName,
}

// Log message constants
const (
	LogMsgEngineCreated  = "engine created"
	LogMsgRenderFailed   = "render failed"
	LogMsgCacheHit       = "result cache hit"
	LogMsgCacheKeyFailed = "result cache key could not be computed"
	LogMsgCacheGetFailed = "result cache lookup failed"
	LogMsgCacheSetFailed = "result cache store failed"
	LogMsgTemplateSaved  = "template saved"
	LogMsgStoredTemplate = "rendering stored template"
)

// Log field constants
const (
	LogFieldFuncs    = "funcs"
	LogFieldMaxDepth = "max_depth"
	LogFieldTemplate = "template"
	LogFieldVersion  = "version"
	LogFieldDuration = "duration"
	LogFieldError    = "error"
	LogFieldBytes    = "bytes"
	LogFieldHasCache = "result_cache"
	LogFieldHasStore = "storage"
	LogFieldCompiled = "compiled"
)

// Storage driver names
const (
	StorageDriverNameMemory     = "memory"
	StorageDriverNameFilesystem = "filesystem"
	StorageDriverNamePostgres   = "postgres"
)

// Filesystem storage layout
const (
	FilesystemDirPermissions  = 0755
	FilesystemFilePermissions = 0644
	FilesystemVersionPrefix   = "v"
	FilesystemSourceSuffix    = ".svg"
	FilesystemMetaSuffix      = ".meta.yaml"
)

// PostgreSQL storage defaults
const (
	PostgresTablePrefix            = "vizbind_"
	PostgresDefaultMaxOpenConns    = 25
	PostgresDefaultMaxIdleConns    = 5
	PostgresDefaultConnMaxLifetime = 5 * time.Minute
	PostgresDefaultConnMaxIdleTime = 5 * time.Minute
	PostgresDefaultQueryTimeout    = 30 * time.Second
)

// Cache defaults
const (
	DefaultCacheTTL             = 5 * time.Minute
	DefaultCacheMaxEntries      = 1000
	DefaultNegativeCacheTTL     = 30 * time.Second
	DefaultMaxResultSize        = 1 << 20
	DefaultRedisResultKeyPrefix = "vizbind:render:"
	TemplateIDPrefix            = "tmpl_"
)
