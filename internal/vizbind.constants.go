package internal

// Directive attribute names. These are part of the template format and must
// match existing templates byte for byte.
const (
	AttrBind   = "data-bind"
	AttrAttr   = "data-attr"
	AttrStyle  = "data-style"
	AttrIf     = "data-if"
	AttrRepeat = "data-repeat"
)

// Directive names used in logs, metrics and error metadata
const (
	DirectiveNameBind   = "bind"
	DirectiveNameAttr   = "attr"
	DirectiveNameStyle  = "style"
	DirectiveNameIf     = "if"
	DirectiveNameRepeat = "repeat"
)

// Reserved scope names
const (
	ScopeKeyIndex = "index"
)

// data-attr segment separators
const (
	AttrSegmentSeparator = ";"
	AttrKeySeparator     = ":"
)

// Defaults
const (
	DefaultMaxDepth       = 512
	DefaultMaxSuggestions = 3
)

// Log message constants
const (
	LogMsgRendererCreated  = "renderer created"
	LogMsgRenderStart      = "starting render"
	LogMsgRenderEnd        = "render complete"
	LogMsgDirectiveApplied = "directive applied"
	LogMsgNodeDetached     = "node detached by condition"
	LogMsgRepeatStart      = "starting repeat"
	LogMsgRepeatIteration  = "repeat iteration"
	LogMsgRepeatEnd        = "repeat complete"
	LogMsgDocumentParsed   = "document parsed"
	LogMsgExpressionFailed = "expression evaluation failed"
	LogMsgFuncShadowed     = "function shadowed by context value"
	LogMsgEmptyDirective   = "empty directive removed"
)

// Log field constants
const (
	LogFieldDirective  = "directive"
	LogFieldExpression = "expression"
	LogFieldTag        = "tag"
	LogFieldDepth      = "depth"
	LogFieldIndex      = "index"
	LogFieldItems      = "items"
	LogFieldChildren   = "children"
	LogFieldNodes      = "node_count"
	LogFieldFunc       = "func"
	LogFieldError      = "error"
)

// Error message constants
const (
	ErrMsgParseFailed        = "document parsing failed"
	ErrMsgMismatchedTag      = "mismatched closing tag"
	ErrMsgUnclosedElement    = "unclosed element"
	ErrMsgNoRootElement      = "document has no root element"
	ErrMsgMultipleRoots      = "document has more than one root element"
	ErrMsgTextOutsideRoot    = "character data outside the root element"
	ErrMsgUnresolvedName     = "unresolved name"
	ErrMsgUnresolvedMember   = "unresolved member"
	ErrMsgMemberOfNil        = "member access on nil value"
	ErrMsgNotBoolean         = "directive expression must evaluate to a boolean"
	ErrMsgNotSequence        = "directive expression must evaluate to a sequence"
	ErrMsgExpressionFailed   = "expression evaluation failed"
	ErrMsgMalformedAttrSeg   = "attribute segment must have the form name: expression"
	ErrMsgEmptyAttrName      = "attribute name cannot be empty"
	ErrMsgMaxDepthExceeded   = "maximum nesting depth exceeded"
	ErrMsgSerializeFailed    = "document serialization failed"
	ErrMsgDetachedRoot       = "cannot serialize a detached node"
	ErrMsgInconsistentParent = "child does not point back to its parent"
	ErrMsgInvalidItem        = "repeat item could not be converted to a mapping"
)
