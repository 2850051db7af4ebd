package internal

// Directive identifies one of the template directives. The set is closed.
type Directive int

// Directives in declaration order
const (
	DirectiveBind Directive = iota
	DirectiveAttr
	DirectiveStyle
	DirectiveIf
	DirectiveRepeat
)

// directiveOrder is the fixed evaluation order per node. Style is reserved
// and has no handler, so its attribute passes through untouched.
var directiveOrder = [...]Directive{
	DirectiveBind,
	DirectiveAttr,
	DirectiveIf,
	DirectiveRepeat,
}

// String returns the directive name
func (d Directive) String() string {
	switch d {
	case DirectiveBind:
		return DirectiveNameBind
	case DirectiveAttr:
		return DirectiveNameAttr
	case DirectiveStyle:
		return DirectiveNameStyle
	case DirectiveIf:
		return DirectiveNameIf
	case DirectiveRepeat:
		return DirectiveNameRepeat
	default:
		return ""
	}
}

// Attr returns the attribute that carries the directive
func (d Directive) Attr() string {
	switch d {
	case DirectiveBind:
		return AttrBind
	case DirectiveAttr:
		return AttrAttr
	case DirectiveStyle:
		return AttrStyle
	case DirectiveIf:
		return AttrIf
	case DirectiveRepeat:
		return AttrRepeat
	default:
		return ""
	}
}

// Handled reports whether the renderer acts on the directive
func (d Directive) Handled() bool {
	return d != DirectiveStyle
}

// AllDirectives returns every directive, reserved ones included
func AllDirectives() []Directive {
	return []Directive{DirectiveBind, DirectiveAttr, DirectiveStyle, DirectiveIf, DirectiveRepeat}
}

// HandledDirectives returns the directives with handlers in evaluation order
func HandledDirectives() []Directive {
	out := make([]Directive, len(directiveOrder))
	copy(out, directiveOrder[:])
	return out
}

// DirectiveForAttr maps an attribute name back to its directive
func DirectiveForAttr(name string) (Directive, bool) {
	for _, d := range AllDirectives() {
		if d.Attr() == name {
			return d, true
		}
	}
	return 0, false
}
