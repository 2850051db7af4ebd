package internal

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// NodeKind identifies document tree node types
type NodeKind int

// Node kind constants
const (
	NodeElement NodeKind = iota
	NodeComment
	NodeProcInst
)

// Attr is a single attribute. Names keep their namespace prefix verbatim.
type Attr struct {
	Name  string
	Value string
}

// Node is an element, comment or processing instruction in a document tree.
//
// Text holds character data before the first child; Tail holds character data
// that follows the node inside its parent. For comments Text is the comment
// body; for processing instructions Tag is the target and Text the
// instruction.
type Node struct {
	Kind     NodeKind
	Tag      string
	Attrs    []Attr
	Text     string
	Tail     string
	Children []*Node
	Parent   *Node
}

// NewElement creates a detached element node
func NewElement(tag string) *Node {
	return &Node{Kind: NodeElement, Tag: tag}
}

// Attr returns the value of the named attribute
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// HasAttr checks if the named attribute is present
func (n *Node) HasAttr(name string) bool {
	_, ok := n.Attr(name)
	return ok
}

// SetAttr sets an attribute, keeping the position of an existing one.
func (n *Node) SetAttr(name, value string) {
	for i := range n.Attrs {
		if n.Attrs[i].Name == name {
			n.Attrs[i].Value = value
			return
		}
	}
	n.Attrs = append(n.Attrs, Attr{Name: name, Value: value})
}

// RemoveAttr deletes an attribute and returns its previous value.
func (n *Node) RemoveAttr(name string) (string, bool) {
	for i, a := range n.Attrs {
		if a.Name == name {
			n.Attrs = append(n.Attrs[:i], n.Attrs[i+1:]...)
			return a.Value, true
		}
	}
	return "", false
}

// AppendChild attaches child as the last child of n
func (n *Node) AppendChild(child *Node) {
	if child.Parent != nil {
		child.Detach()
	}
	child.Parent = n
	n.Children = append(n.Children, child)
}

// RemoveChildren detaches all children. Text is kept.
func (n *Node) RemoveChildren() {
	for _, c := range n.Children {
		c.Parent = nil
	}
	n.Children = nil
}

// Detach removes n (with its tail) from its parent. It is a no-op for
// nodes without a parent.
func (n *Node) Detach() {
	p := n.Parent
	if p == nil {
		return
	}
	for i, c := range p.Children {
		if c == n {
			p.Children = append(p.Children[:i], p.Children[i+1:]...)
			break
		}
	}
	n.Parent = nil
}

// Attached reports whether n is still part of the tree rooted at root.
func (n *Node) Attached(root *Node) bool {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur == root {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of n without a parent.
func (n *Node) Clone() *Node {
	c := &Node{
		Kind: n.Kind,
		Tag:  n.Tag,
		Text: n.Text,
		Tail: n.Tail,
	}
	if len(n.Attrs) > 0 {
		c.Attrs = make([]Attr, len(n.Attrs))
		copy(c.Attrs, n.Attrs)
	}
	if len(n.Children) > 0 {
		c.Children = make([]*Node, len(n.Children))
		for i, child := range n.Children {
			cc := child.Clone()
			cc.Parent = c
			c.Children[i] = cc
		}
	}
	return c
}

// Walk visits n and its descendants depth-first. Returning false from fn
// skips the node's children.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Count returns the number of nodes in the subtree rooted at n
func (n *Node) Count() int {
	count := 0
	n.Walk(func(*Node) bool {
		count++
		return true
	})
	return count
}

// ParseDocument reads an XML document and returns its root element.
// Namespace prefixes are kept as written; the prolog is dropped.
func ParseDocument(r io.Reader) (*Node, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel
	dec.Entity = xml.HTMLEntity
	dec.Strict = true

	var (
		root  *Node
		stack []*Node
	)

	for {
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, newParseError(err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := NewElement(rawName(t.Name))
			for _, a := range t.Attr {
				n.Attrs = append(n.Attrs, Attr{Name: rawName(a.Name), Value: a.Value})
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, parseErrorAt(ErrMsgMultipleRoots, dec)
				}
				root = n
			} else {
				stack[len(stack)-1].AppendChild(n)
			}
			stack = append(stack, n)

		case xml.EndElement:
			if len(stack) == 0 {
				return nil, parseErrorAt(ErrMsgMismatchedTag, dec)
			}
			top := stack[len(stack)-1]
			if name := rawName(t.Name); name != top.Tag {
				e := parseErrorAt(ErrMsgMismatchedTag, dec)
				e.Name = name
				e.Tag = top.Tag
				return nil, e
			}
			stack = stack[:len(stack)-1]

		case xml.CharData:
			if len(stack) == 0 {
				if len(bytes.TrimSpace(t)) > 0 {
					return nil, parseErrorAt(ErrMsgTextOutsideRoot, dec)
				}
				continue
			}
			appendText(stack[len(stack)-1], string(t))

		case xml.Comment:
			if len(stack) > 0 {
				stack[len(stack)-1].AppendChild(&Node{Kind: NodeComment, Text: string(t)})
			}

		case xml.ProcInst:
			if len(stack) > 0 {
				stack[len(stack)-1].AppendChild(&Node{Kind: NodeProcInst, Tag: t.Target, Text: string(t.Inst)})
			}
		}
	}

	if len(stack) > 0 {
		e := parseErrorAt(ErrMsgUnclosedElement, dec)
		e.Tag = stack[len(stack)-1].Tag
		return nil, e
	}
	if root == nil {
		return nil, NewRenderError(KindParse, ErrMsgNoRootElement)
	}
	return root, nil
}

// appendText adds character data to the text of n or the tail of its last
// child.
func appendText(n *Node, s string) {
	if len(n.Children) == 0 {
		n.Text += s
		return
	}
	last := n.Children[len(n.Children)-1]
	last.Tail += s
}

func rawName(name xml.Name) string {
	if name.Space == "" {
		return name.Local
	}
	return name.Space + ":" + name.Local
}

func newParseError(err error) *RenderError {
	e := &RenderError{Kind: KindParse, Message: ErrMsgParseFailed, Cause: err}
	var syn *xml.SyntaxError
	if errors.As(err, &syn) {
		e.Line = syn.Line
	}
	return e
}

func parseErrorAt(msg string, dec *xml.Decoder) *RenderError {
	line, _ := dec.InputPos()
	return &RenderError{Kind: KindParse, Message: msg, Line: line}
}

// Serialize writes the subtree rooted at n as UTF-8 XML. The tail of n itself
// is not written.
func Serialize(n *Node) ([]byte, error) {
	if n == nil {
		return nil, NewRenderError(KindSerialize, ErrMsgDetachedRoot)
	}
	var buf bytes.Buffer
	if err := writeNode(&buf, n); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeNode(buf *bytes.Buffer, n *Node) error {
	switch n.Kind {
	case NodeComment:
		buf.WriteString("<!--")
		buf.WriteString(n.Text)
		buf.WriteString("-->")
		return nil
	case NodeProcInst:
		buf.WriteString("<?")
		buf.WriteString(n.Tag)
		if n.Text != "" {
			buf.WriteByte(' ')
			buf.WriteString(n.Text)
		}
		buf.WriteString("?>")
		return nil
	}

	buf.WriteByte('<')
	buf.WriteString(n.Tag)
	for _, a := range n.Attrs {
		buf.WriteByte(' ')
		buf.WriteString(a.Name)
		buf.WriteString(`="`)
		attrEscaper.WriteString(buf, a.Value)
		buf.WriteByte('"')
	}

	if n.Text == "" && len(n.Children) == 0 {
		buf.WriteString("/>")
		return nil
	}

	buf.WriteByte('>')
	textEscaper.WriteString(buf, n.Text)
	for _, c := range n.Children {
		if c.Parent != n {
			e := NewRenderError(KindSerialize, ErrMsgInconsistentParent)
			e.Tag = c.Tag
			return e
		}
		if err := writeNode(buf, c); err != nil {
			return err
		}
		textEscaper.WriteString(buf, c.Tail)
	}
	buf.WriteString("</")
	buf.WriteString(n.Tag)
	buf.WriteByte('>')
	return nil
}

// encoding/xml's EscapeText also rewrites newlines and quotes in text
// content, which changes the output of untouched template text.
var (
	textEscaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
	)
	attrEscaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"\n", "&#10;",
		"\r", "&#13;",
		"\t", "&#9;",
	)
)
