package main

import "time"

// CLI metadata
const (
	CLIName        = "vizbind"
	CLIDescription = "Data-driven SVG template renderer"
)

// Exit codes
const (
	ExitCodeSuccess     = 0
	ExitCodeRenderError = 1
	ExitCodeUsageError  = 2
	ExitCodeInputError  = 3
)

// Input and output sources
const (
	InputSourceStdin   = "-"
	OutputTargetStdout = "-"
)

// Data formats
const (
	DataFormatAuto = "auto"
	DataFormatJSON = "json"
	DataFormatYAML = "yaml"
)

// Output formats
const (
	OutputFormatText = "text"
	OutputFormatJSON = "json"
)

// Log settings
const (
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
)

// Server defaults
const (
	DefaultServerAddr      = ":8080"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultReadTimeout     = 15 * time.Second
	DefaultMaxBodyBytes    = 4 << 20
)

// Error messages
const (
	ErrMsgReadFileFailed     = "failed to read file"
	ErrMsgReadStdinFailed    = "failed to read from stdin"
	ErrMsgWriteOutputFailed  = "failed to write output"
	ErrMsgInvalidData        = "invalid data file"
	ErrMsgDataNotMapping     = "data must be a mapping at the top level"
	ErrMsgStdinTwice         = "template and data cannot both come from stdin"
	ErrMsgRenderFailed       = "render failed"
	ErrMsgValidateFailed     = "template is invalid"
	ErrMsgEngineFailed       = "failed to create engine"
	ErrMsgStorageFailed      = "failed to open storage"
	ErrMsgRedisFailed        = "failed to reach redis"
	ErrMsgServerFailed       = "server failed"
	ErrMsgLoggerFailed       = "failed to build logger"
	ErrMsgInvalidRequestBody = "invalid request body"
	ErrMsgEncodeFailed       = "failed to encode response"
	ErrMsgRequestTooLarge    = "request body exceeds the size limit"
)

// HTTP error codes outside the library's codes
const (
	ErrCodeRequest  = "VIZBIND_REQUEST"
	ErrCodeInternal = "VIZBIND_INTERNAL"

	// MetaKeyLimit carries the body size limit of a 413 response
	MetaKeyLimit = "limit"
)

// HTTP routes and parameters
const (
	RouteRender         = "/v1/render"
	RouteTemplates      = "/v1/templates"
	RouteTemplate       = "/v1/templates/{name}"
	RouteTemplateRender = "/v1/templates/{name}/render"
	RouteFunctions      = "/v1/functions"
	RouteHealth         = "/healthz"
	RouteMetrics        = "/metrics"

	URLParamName = "name"

	QueryParamPrefix    = "prefix"
	QueryParamContains  = "contains"
	QueryParamTag       = "tag"
	QueryParamCreatedBy = "created_by"
	QueryParamLimit     = "limit"
	QueryParamOffset    = "offset"
	QueryParamVersion   = "version"
	QueryParamAll       = "all"
)

// Content types
const (
	ContentTypeSVG  = "image/svg+xml"
	ContentTypeJSON = "application/json"

	HeaderContentType = "Content-Type"
)

// Log messages and fields
const (
	LogMsgServerStarting = "server starting"
	LogMsgServerStopping = "server stopping"
	LogMsgRequest        = "request"
	LogMsgRequestFailed  = "request failed"
	LogMsgStorageOpened  = "storage opened"
	LogMsgRedisEnabled   = "redis result cache enabled"

	LogFieldAddr     = "addr"
	LogFieldMethod   = "method"
	LogFieldPath     = "path"
	LogFieldStatus   = "status"
	LogFieldDuration = "duration"
	LogFieldDriver   = "driver"
	LogFieldError    = "error"
	LogFieldCode     = "code"
)

// Output templates
const (
	VersionTextTemplate  = "vizbind version %s\nCommit: %s\nBranch: %s\nBuilt: %s\nGo: %s\n"
	VersionUnknown       = "unknown"
	ValidateTextSummary  = "%s: %d elements, %d directives\n"
	ValidateTextLine     = "  %-12s %-28s %s\n"
	ValidateTextReserved = " (reserved)"
	FmtError             = "%s: %v\n"
	FilePermissions      = 0644
)
