package internal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspect(t *testing.T) {
	root := parseString(t, `<svg data-if="show"><g data-repeat="teams"><text data-bind="name" data-attr="y: 20 + index" data-style="fill: red"/></g><rect data-bind=""/></svg>`)

	uses, err := Inspect(root)
	require.NoError(t, err)

	assert.Equal(t, []DirectiveUse{
		{Directive: DirectiveIf, Expression: "show", Tag: "svg", Path: "/svg"},
		{Directive: DirectiveRepeat, Expression: "teams", Tag: "g", Path: "/svg/g"},
		{Directive: DirectiveBind, Expression: "name", Tag: "text", Path: "/svg/g/text"},
		{Directive: DirectiveAttr, Expression: "y: 20 + index", Tag: "text", Path: "/svg/g/text"},
		{Directive: DirectiveStyle, Expression: "fill: red", Tag: "text", Path: "/svg/g/text"},
		{Directive: DirectiveBind, Expression: "", Tag: "rect", Path: "/svg/rect"},
	}, uses)

	// inspection leaves the tree untouched
	assert.True(t, root.HasAttr(AttrIf))
}

func TestInspect_SyntaxErrors(t *testing.T) {
	tests := []struct {
		name      string
		template  string
		directive string
	}{
		{"bind", `<svg><text data-bind="a +"/></svg>`, AttrBind},
		{"attr segment", `<svg><rect data-attr="x: 1; y: (2"/></svg>`, AttrAttr},
		{"attr malformed", `<svg><rect data-attr="x"/></svg>`, AttrAttr},
		{"repeat", `<svg><g data-repeat="[1,"/></svg>`, AttrRepeat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Inspect(parseString(t, tt.template))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrExpression))

			var re *RenderError
			require.True(t, errors.As(err, &re))
			assert.Equal(t, tt.directive, re.Directive)
		})
	}
}

func TestInspect_UnknownNamesAreNotErrors(t *testing.T) {
	uses, err := Inspect(parseString(t, `<text data-bind="not_defined_anywhere.x"/>`))
	require.NoError(t, err)
	assert.Len(t, uses, 1)
}
