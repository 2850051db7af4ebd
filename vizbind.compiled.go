package vizbind

import (
	"slices"
	"strings"

	"github.com/itsatony/go-vizbind/internal"
)

// CompiledTemplate is a stored template version together with its parsed
// document. The document is shared between renders and never mutated;
// every render works on a clone.
type CompiledTemplate struct {
	template *StoredTemplate
	root     *internal.Node
}

// compileTemplate parses the source of tmpl. The directive inventory is
// attached when every directive expression compiles.
func compileTemplate(tmpl *StoredTemplate) (*CompiledTemplate, error) {
	root, err := internal.ParseDocument(strings.NewReader(tmpl.Source))
	if err != nil {
		return nil, NewRenderError(err)
	}
	stored := copyStoredTemplate(tmpl)
	if info, err := templateInfo(root); err == nil {
		stored.Info = info
	}
	return &CompiledTemplate{template: stored, root: root}, nil
}

// Name returns the template name.
func (c *CompiledTemplate) Name() string {
	return c.template.Name
}

// Version returns the stored version the document was parsed from.
func (c *CompiledTemplate) Version() int {
	return c.template.Version
}

// Template returns a copy of the stored template.
func (c *CompiledTemplate) Template() *StoredTemplate {
	return copyStoredTemplate(c.template)
}

// Info returns the directive inventory, or nil when a directive expression
// does not compile.
func (c *CompiledTemplate) Info() *TemplateInfo {
	return cloneTemplateInfo(c.template.Info)
}

func (c *CompiledTemplate) source() []byte {
	return []byte(c.template.Source)
}

// document returns a private copy of the parsed tree
func (c *CompiledTemplate) document() (*internal.Node, error) {
	return c.root.Clone(), nil
}

// templateInfo builds the inventory of a parsed document
func templateInfo(root *internal.Node) (*TemplateInfo, error) {
	uses, err := internal.Inspect(root)
	if err != nil {
		return nil, err
	}

	info := &TemplateInfo{
		Root:       root.Tag,
		Directives: make([]DirectiveInfo, 0, len(uses)),
	}
	root.Walk(func(n *internal.Node) bool {
		if n.Kind == internal.NodeElement {
			info.Elements++
		}
		return true
	})
	for _, u := range uses {
		info.Directives = append(info.Directives, DirectiveInfo{
			Directive:  u.Directive.String(),
			Attribute:  u.Directive.Attr(),
			Expression: u.Expression,
			Tag:        u.Tag,
			Path:       u.Path,
			Reserved:   !u.Directive.Handled(),
		})
	}
	return info, nil
}

// templateInventory describes source for storage drivers. Sources that do
// not parse, or whose expressions do not compile, get no inventory.
func templateInventory(source string) *TemplateInfo {
	root, err := internal.ParseDocument(strings.NewReader(source))
	if err != nil {
		return nil
	}
	info, err := templateInfo(root)
	if err != nil {
		return nil
	}
	return info
}

func cloneTemplateInfo(info *TemplateInfo) *TemplateInfo {
	if info == nil {
		return nil
	}
	c := *info
	c.Directives = slices.Clone(info.Directives)
	return &c
}
