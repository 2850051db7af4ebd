package vizbind

import (
	"errors"
	"strconv"
	"strings"

	"github.com/itsatony/go-cuserr"
	"github.com/itsatony/go-vizbind/internal"
)

// Error message constants
const (
	ErrMsgRenderFailed        = "template rendering failed"
	ErrMsgNoStorage           = "no template storage configured"
	ErrMsgInvalidData         = "render data could not be converted to a mapping"
	ErrMsgFuncRegistration    = "function registration failed"
	ErrMsgInvalidMaxDepth     = "max depth cannot be negative"
	ErrMsgInvalidTemplate     = "template failed validation"
	ErrMsgTemplateNotFound    = "template not found"
	ErrMsgVersionNotFound     = "template version not found"
	ErrMsgInvalidTemplateName = "invalid template name"
	ErrMsgNilTemplate         = "template is nil"
)

// Error codes
const (
	ErrCodeParse                = "VIZBIND_PARSE"
	ErrCodeUnresolvedReference  = "VIZBIND_UNRESOLVED_REFERENCE"
	ErrCodeInvalidDirectiveType = "VIZBIND_INVALID_DIRECTIVE_TYPE"
	ErrCodeSerialize            = "VIZBIND_SERIALIZE"
	ErrCodeExpression           = "VIZBIND_EXPRESSION"
	ErrCodeMaxDepth             = "VIZBIND_MAX_DEPTH"
	ErrCodeConfig               = "VIZBIND_CONFIG"
	ErrCodeData                 = "VIZBIND_DATA"
	ErrCodeStorage              = "VIZBIND_STORAGE"
)

// Sentinel errors. Every error returned by Render matches exactly one of the
// render kinds with errors.Is.
var (
	ErrParse                = internal.ErrParse
	ErrUnresolvedReference  = internal.ErrUnresolvedReference
	ErrInvalidDirectiveType = internal.ErrInvalidDirectiveType
	ErrSerialize            = internal.ErrSerialize
	ErrExpression           = internal.ErrExpression
	ErrMaxDepth             = internal.ErrMaxDepth

	ErrTemplateNotFound = errors.New(ErrMsgTemplateNotFound)
	ErrNoStorage        = errors.New(ErrMsgNoStorage)
	ErrInvalidConfig    = errors.New("invalid engine configuration")
	ErrInvalidData      = errors.New(ErrMsgInvalidData)
)

// kindCodes maps render error kinds to cuserr codes
var kindCodes = map[internal.ErrorKind]string{
	internal.KindParse:                ErrCodeParse,
	internal.KindUnresolvedReference:  ErrCodeUnresolvedReference,
	internal.KindInvalidDirectiveType: ErrCodeInvalidDirectiveType,
	internal.KindSerialize:            ErrCodeSerialize,
	internal.KindExpression:           ErrCodeExpression,
	internal.KindMaxDepth:             ErrCodeMaxDepth,
}

// NewRenderError wraps a render failure into a cuserr error carrying the
// directive context as metadata. Context cancellation passes through
// unchanged.
func NewRenderError(err error) error {
	if err == nil {
		return nil
	}
	var re *internal.RenderError
	if !errors.As(err, &re) {
		return err
	}

	ce := cuserr.WrapStdError(err, kindCodes[re.Kind], ErrMsgRenderFailed).
		WithMetadata(MetaKeyKind, re.Kind.String())
	if re.Directive != "" {
		ce = ce.WithMetadata(MetaKeyDirective, re.Directive).
			WithMetadata(MetaKeyExpression, re.Expression)
	}
	if re.Tag != "" {
		ce = ce.WithMetadata(MetaKeyTag, re.Tag)
	}
	if re.Name != "" {
		ce = ce.WithMetadata(MetaKeyName, re.Name)
	}
	if re.Type != "" {
		ce = ce.WithMetadata(MetaKeyType, re.Type)
	}
	if re.Line > 0 {
		ce = ce.WithMetadata(MetaKeyLine, strconv.Itoa(re.Line))
	}
	if len(re.Suggestions) > 0 {
		ce = ce.WithMetadata(MetaKeySuggestions, strings.Join(re.Suggestions, ","))
	}
	return ce
}

// NewFuncRegistrationError creates an error for a rejected custom function
func NewFuncRegistrationError(name string, cause error) error {
	return cuserr.WrapStdError(errors.Join(ErrInvalidConfig, cause), ErrCodeConfig, ErrMsgFuncRegistration).
		WithMetadata(MetaKeyFuncName, name)
}

// NewConfigError creates an error for an invalid engine option
func NewConfigError(msg string) error {
	return cuserr.WrapStdError(ErrInvalidConfig, ErrCodeConfig, msg)
}

// NewInvalidDataError creates an error for data that cannot become a scope
func NewInvalidDataError(cause error) error {
	return cuserr.WrapStdError(errors.Join(ErrInvalidData, cause), ErrCodeData, ErrMsgInvalidData)
}

// NewNoStorageError creates an error for storage operations on an engine
// without storage.
func NewNoStorageError() error {
	return cuserr.WrapStdError(ErrNoStorage, ErrCodeStorage, ErrMsgNoStorage)
}

// NewInvalidTemplateError creates an error for a template rejected on save
func NewInvalidTemplateError(name string, cause error) error {
	return cuserr.WrapStdError(cause, ErrCodeStorage, ErrMsgInvalidTemplate).
		WithMetadata(MetaKeyTemplate, name)
}

// ErrorCode returns the vizbind error code matching err, or "" when err is
// not a vizbind error.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrParse):
		return ErrCodeParse
	case errors.Is(err, ErrUnresolvedReference):
		return ErrCodeUnresolvedReference
	case errors.Is(err, ErrInvalidDirectiveType):
		return ErrCodeInvalidDirectiveType
	case errors.Is(err, ErrSerialize):
		return ErrCodeSerialize
	case errors.Is(err, ErrMaxDepth):
		return ErrCodeMaxDepth
	case errors.Is(err, ErrExpression):
		return ErrCodeExpression
	case errors.Is(err, ErrTemplateNotFound), errors.Is(err, ErrNoStorage):
		return ErrCodeStorage
	case errors.Is(err, ErrInvalidConfig):
		return ErrCodeConfig
	case errors.Is(err, ErrInvalidData):
		return ErrCodeData
	}

	var se *StorageError
	if errors.As(err, &se) {
		return ErrCodeStorage
	}
	return ""
}

// ErrorMetadata collects the vizbind metadata attached to err
func ErrorMetadata(err error) map[string]string {
	var ce *cuserr.CustomError
	if !errors.As(err, &ce) {
		return nil
	}
	meta := make(map[string]string)
	for _, key := range MetaKeys {
		if v, ok := ce.GetMetadata(key); ok {
			meta[key] = v
		}
	}
	return meta
}

// IsParseError reports whether err is a template parse failure
func IsParseError(err error) bool {
	return errors.Is(err, ErrParse)
}

// IsUnresolvedReference reports whether err names something that does not
// exist in the render data.
func IsUnresolvedReference(err error) bool {
	return errors.Is(err, ErrUnresolvedReference)
}

// IsInvalidDirectiveType reports whether a directive produced a value of the
// wrong type.
func IsInvalidDirectiveType(err error) bool {
	return errors.Is(err, ErrInvalidDirectiveType)
}
