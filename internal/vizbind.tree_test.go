package internal

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseString(t *testing.T, src string) *Node {
	t.Helper()
	root, err := ParseDocument(strings.NewReader(src))
	require.NoError(t, err)
	return root
}

func serializeString(t *testing.T, n *Node) string {
	t.Helper()
	out, err := Serialize(n)
	require.NoError(t, err)
	return string(out)
}

func TestParseDocument_RoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"empty root", `<svg/>`},
		{"nested", `<svg width="10" height="20"><g id="a"><rect x="1"/></g><text>hi</text></svg>`},
		{"whitespace kept", "<svg>\n  <g/>\n  <rect/>\n</svg>"},
		{"comment", `<svg><!-- note --><rect/></svg>`},
		{"namespaces", `<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink"><use xlink:href="#a"/></svg>`},
		{"mixed content", `<text>a<tspan>b</tspan>c</text>`},
		{"escaped text", `<text>a &amp; b &lt; c</text>`},
		{"unknown data attributes", `<rect data-style="fill: red" data-foo="bar"/>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := parseString(t, tt.source)
			assert.Equal(t, tt.source, serializeString(t, root))
		})
	}
}

func TestParseDocument_DropsProlog(t *testing.T) {
	root := parseString(t, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<!-- header -->\n<svg><rect/></svg>\n")
	assert.Equal(t, `<svg><rect/></svg>`, serializeString(t, root))
}

func TestParseDocument_Charset(t *testing.T) {
	src := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?><svg><text>caf\xe9</text></svg>"
	root := parseString(t, src)

	require.Len(t, root.Children, 1)
	assert.Equal(t, "café", root.Children[0].Text)
}

func TestParseDocument_Errors(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"empty", ``},
		{"mismatched", `<svg><g></svg>`},
		{"unclosed", `<svg><g/>`},
		{"bad attribute", `<svg><g attr=></g></svg>`},
		{"two roots", `<svg/><svg/>`},
		{"text outside root", `<svg/>trailing`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDocument(strings.NewReader(tt.source))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrParse))

			var re *RenderError
			require.True(t, errors.As(err, &re))
			assert.Equal(t, KindParse, re.Kind)
		})
	}
}

func TestNode_Attributes(t *testing.T) {
	n := NewElement("rect")
	n.SetAttr("x", "1")
	n.SetAttr("y", "2")
	n.SetAttr("x", "3")

	v, ok := n.Attr("x")
	assert.True(t, ok)
	assert.Equal(t, "3", v)
	assert.Equal(t, []Attr{{"x", "3"}, {"y", "2"}}, n.Attrs)

	old, ok := n.RemoveAttr("x")
	assert.True(t, ok)
	assert.Equal(t, "3", old)
	assert.False(t, n.HasAttr("x"))

	_, ok = n.RemoveAttr("missing")
	assert.False(t, ok)
}

func TestNode_CloneIsDeep(t *testing.T) {
	root := parseString(t, `<g id="a"><rect x="1"/>tail</g>`)
	clone := root.Clone()

	assert.Nil(t, clone.Parent)
	require.Len(t, clone.Children, 1)
	assert.Same(t, clone, clone.Children[0].Parent)

	clone.Children[0].SetAttr("x", "2")
	clone.SetAttr("id", "b")

	assert.Equal(t, `<g id="a"><rect x="1"/>tail</g>`, serializeString(t, root))
	assert.Equal(t, `<g id="b"><rect x="2"/>tail</g>`, serializeString(t, clone))
}

func TestNode_DetachAndAttached(t *testing.T) {
	root := parseString(t, `<svg><g><rect/></g><circle/></svg>`)
	g := root.Children[0]
	rect := g.Children[0]

	assert.True(t, rect.Attached(root))

	g.Detach()
	assert.Nil(t, g.Parent)
	assert.False(t, g.Attached(root))
	assert.False(t, rect.Attached(root))
	assert.Equal(t, `<svg><circle/></svg>`, serializeString(t, root))

	// detaching a root is a no-op
	root.Detach()
	assert.True(t, root.Attached(root))
}

func TestNode_RemoveChildrenKeepsText(t *testing.T) {
	root := parseString(t, `<g>label<rect/><rect/></g>`)
	children := root.Children

	root.RemoveChildren()

	assert.Empty(t, root.Children)
	for _, c := range children {
		assert.Nil(t, c.Parent)
	}
	assert.Equal(t, `<g>label</g>`, serializeString(t, root))
}

func TestSerialize_Escaping(t *testing.T) {
	n := NewElement("text")
	n.SetAttr("title", "say \"hi\" & <bye>\n")
	n.Text = "1 < 2 & 3 > 2"

	assert.Equal(t,
		`<text title="say &quot;hi&quot; &amp; &lt;bye&gt;&#10;">1 &lt; 2 &amp; 3 &gt; 2</text>`,
		serializeString(t, n))
}

func TestSerialize_InconsistentTree(t *testing.T) {
	root := NewElement("svg")
	child := NewElement("rect")
	root.Children = append(root.Children, child) // parent link missing

	_, err := Serialize(root)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSerialize))

	_, err = Serialize(nil)
	assert.True(t, errors.Is(err, ErrSerialize))
}

func TestNode_Count(t *testing.T) {
	root := parseString(t, `<svg><g><rect/><rect/></g><!-- c --></svg>`)
	assert.Equal(t, 5, root.Count())
}
