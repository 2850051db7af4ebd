package internal

import (
	"github.com/expr-lang/expr/parser"
)

// ParseProps evaluates every "name: expr" segment of spec into a map.
// An empty spec yields an empty map.
func (ev *Evaluator) ParseProps(spec string, scope *Scope) (map[string]any, error) {
	props := make(map[string]any)
	err := eachSegment(spec, func(name, expression string) error {
		v, err := ev.Evaluate(expression, scope)
		if err != nil {
			return err
		}
		props[name] = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return props, nil
}

// DirectiveUse is one directive found in a template
type DirectiveUse struct {
	Directive  Directive
	Expression string
	Tag        string
	Path       string
}

// Inspect lists the directives of the tree in document order and checks the
// syntax of every expression. No expression is evaluated.
func Inspect(root *Node) ([]DirectiveUse, error) {
	var (
		uses     []DirectiveUse
		firstErr error
	)

	var visit func(n *Node, path string)
	visit = func(n *Node, path string) {
		if n.Kind != NodeElement {
			return
		}
		path = path + "/" + n.Tag
		for _, d := range AllDirectives() {
			expression, ok := n.Attr(d.Attr())
			if !ok {
				continue
			}
			uses = append(uses, DirectiveUse{Directive: d, Expression: expression, Tag: n.Tag, Path: path})
			if firstErr == nil && d.Handled() && expression != "" {
				if err := checkSyntax(d, expression); err != nil {
					firstErr = asRenderError(err, KindExpression, ErrMsgExpressionFailed).
						withDirective(d.Attr(), expression, n.Tag)
				}
			}
		}
		for _, c := range n.Children {
			visit(c, path)
		}
	}
	visit(root, "")

	return uses, firstErr
}

func checkSyntax(d Directive, expression string) error {
	if d == DirectiveAttr {
		return eachSegment(expression, func(_, e string) error {
			return parseOnly(e)
		})
	}
	return parseOnly(expression)
}

func parseOnly(expression string) error {
	if _, err := parser.Parse(expression); err != nil {
		return &RenderError{
			Kind:       KindExpression,
			Message:    ErrMsgExpressionFailed,
			Expression: expression,
			Cause:      err,
		}
	}
	return nil
}
