package internal

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies render failures.
type ErrorKind int

// Error kinds
const (
	KindParse ErrorKind = iota
	KindUnresolvedReference
	KindInvalidDirectiveType
	KindSerialize
	KindExpression
	KindMaxDepth
)

// Error kind names
const (
	KindNameParse                = "ParseError"
	KindNameUnresolvedReference  = "UnresolvedReference"
	KindNameInvalidDirectiveType = "InvalidDirectiveType"
	KindNameSerialize            = "SerializeError"
	KindNameExpression           = "ExpressionError"
	KindNameMaxDepth             = "MaxDepthError"
)

// String returns the kind name
func (k ErrorKind) String() string {
	switch k {
	case KindParse:
		return KindNameParse
	case KindUnresolvedReference:
		return KindNameUnresolvedReference
	case KindInvalidDirectiveType:
		return KindNameInvalidDirectiveType
	case KindSerialize:
		return KindNameSerialize
	case KindMaxDepth:
		return KindNameMaxDepth
	default:
		return KindNameExpression
	}
}

// Sentinel errors, one per kind. RenderError matches them with errors.Is.
var (
	ErrParse                = errors.New("parse error")
	ErrUnresolvedReference  = errors.New("unresolved reference")
	ErrInvalidDirectiveType = errors.New("invalid directive type")
	ErrSerialize            = errors.New("serialize error")
	ErrExpression           = errors.New("expression error")
	ErrMaxDepth             = errors.New("max depth exceeded")
)

func (k ErrorKind) sentinel() error {
	switch k {
	case KindParse:
		return ErrParse
	case KindUnresolvedReference:
		return ErrUnresolvedReference
	case KindInvalidDirectiveType:
		return ErrInvalidDirectiveType
	case KindSerialize:
		return ErrSerialize
	case KindMaxDepth:
		return ErrMaxDepth
	default:
		return ErrExpression
	}
}

// RenderError describes a failure while parsing, rendering or serializing
// a document.
type RenderError struct {
	Kind        ErrorKind
	Message     string
	Directive   string // directive name, empty outside directive handling
	Expression  string
	Tag         string
	Name        string // unresolved name or member
	Type        string // actual result type for InvalidDirectiveType
	Line        int    // source line for parse errors
	Suggestions []string
	Cause       error
}

// NewRenderError creates a render error of the given kind
func NewRenderError(kind ErrorKind, message string) *RenderError {
	return &RenderError{Kind: kind, Message: message}
}

// Error implements the error interface
func (e *RenderError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)
	if e.Name != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Name)
	}
	if e.Type != "" {
		fmt.Fprintf(&sb, " (got %s)", e.Type)
	}
	if e.Directive != "" {
		fmt.Fprintf(&sb, " [%s=%q]", e.Directive, e.Expression)
	}
	if e.Tag != "" {
		fmt.Fprintf(&sb, " on <%s>", e.Tag)
	}
	if e.Line > 0 {
		fmt.Fprintf(&sb, " at line %d", e.Line)
	}
	if len(e.Suggestions) > 0 {
		sb.WriteString(FormatSuggestions(e.Suggestions))
	}
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

// Unwrap returns the underlying cause
func (e *RenderError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the sentinel for this error's kind
func (e *RenderError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// withDirective annotates the error with directive context unless a nested
// render already did.
func (e *RenderError) withDirective(directive, expression, tag string) *RenderError {
	if e.Directive == "" {
		e.Directive = directive
		e.Expression = expression
	}
	if e.Tag == "" {
		e.Tag = tag
	}
	return e
}

// asRenderError converts any error into a RenderError, keeping existing ones.
func asRenderError(err error, kind ErrorKind, message string) *RenderError {
	var re *RenderError
	if errors.As(err, &re) {
		return re
	}
	return &RenderError{Kind: kind, Message: message, Cause: err}
}
