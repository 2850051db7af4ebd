package vizbind

import (
	"strings"

	"github.com/itsatony/go-vizbind/internal"
)

// TemplateInfo describes a parsed template without rendering it.
type TemplateInfo struct {
	// Root is the tag of the document element
	Root string `json:"root" yaml:"root"`
	// Elements is the number of elements in the document
	Elements int `json:"elements" yaml:"elements"`
	// Directives lists every directive attribute in document order
	Directives []DirectiveInfo `json:"directives" yaml:"directives"`
}

// DirectiveInfo is one directive attribute found in a template.
type DirectiveInfo struct {
	Directive  string `json:"directive" yaml:"directive"`
	Attribute  string `json:"attribute" yaml:"attribute"`
	Expression string `json:"expression" yaml:"expression"`
	Tag        string `json:"tag" yaml:"tag"`
	Path       string `json:"path" yaml:"path"`
	// Reserved is set for directives that pass through unrendered
	Reserved bool `json:"reserved,omitempty" yaml:"reserved,omitempty"`
}

// Validate parses template and checks the syntax of every directive
// expression. Names are not resolved, so no data is needed.
func (e *Engine) Validate(template string) (*TemplateInfo, error) {
	root, err := internal.ParseDocument(strings.NewReader(template))
	if err != nil {
		return nil, NewRenderError(err)
	}
	info, err := templateInfo(root)
	if err != nil {
		return nil, NewRenderError(err)
	}
	return info, nil
}

// HasDirectives reports whether the template uses any directive.
func (i *TemplateInfo) HasDirectives() bool {
	return i != nil && len(i.Directives) > 0
}
