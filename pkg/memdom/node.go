package memdom

import (
	"strings"

	"github.com/vango-dev/vdiff/pkg/render"
	"github.com/vango-dev/vdiff/pkg/vdom"
)

// Document creates memdom nodes.
type Document struct {
	created int
}

// NewDocument creates an empty document.
func NewDocument() *Document {
	return &Document{}
}

// Created returns the number of nodes created so far.
func (d *Document) Created() int {
	return d.created
}

// CreateElement implements vdom.Document.
func (d *Document) CreateElement(tag string) vdom.Node {
	d.created++
	return &Node{tag: tag}
}

// CreateElementNS implements vdom.Document.
func (d *Document) CreateElementNS(namespace, tag string) vdom.Node {
	d.created++
	return &Node{tag: tag, namespace: namespace}
}

// CreateTextNode implements vdom.Document.
func (d *Document) CreateTextNode(text string) vdom.Node {
	d.created++
	return &Node{text: text, isText: true}
}

type registration struct {
	listener vdom.EventListener
	passive  bool
}

// Node is an element or text node.
type Node struct {
	tag       string
	namespace string
	text      string
	isText    bool

	parent   *Node
	children []*Node

	attrs     map[string]string
	attrNS    map[string]string
	styles    map[string]string
	props     map[string]any
	listeners map[string][]registration
}

// Tag returns the tag name, empty for text nodes.
func (n *Node) Tag() string { return n.tag }

// Namespace returns the element namespace.
func (n *Node) Namespace() string { return n.namespace }

// IsText reports whether n is a text node.
func (n *Node) IsText() bool { return n.isText }

// Parent returns the parent element or nil.
func (n *Node) Parent() *Node { return n.parent }

// Children returns the child nodes. Callers must not modify the slice.
func (n *Node) Children() []*Node { return n.children }

// ParentNode implements vdom.Node.
func (n *Node) ParentNode() vdom.Node {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

// ChildCount implements vdom.Node.
func (n *Node) ChildCount() int { return len(n.children) }

// ChildAt implements vdom.Node.
func (n *Node) ChildAt(i int) vdom.Node {
	if i < 0 || i >= len(n.children) {
		return nil
	}
	return n.children[i]
}

// AppendChild implements vdom.Node. A child attached elsewhere is moved.
func (n *Node) AppendChild(child vdom.Node) {
	c := child.(*Node)
	c.detach()
	c.parent = n
	n.children = append(n.children, c)
}

// InsertBefore implements vdom.Node.
func (n *Node) InsertBefore(child, ref vdom.Node) {
	if ref == nil {
		n.AppendChild(child)
		return
	}
	c, r := child.(*Node), ref.(*Node)
	if c == r {
		return
	}
	c.detach()
	i := n.indexOf(r)
	if i < 0 {
		panic("memdom: reference node is not a child")
	}
	c.parent = n
	n.children = append(n.children, nil)
	copy(n.children[i+1:], n.children[i:])
	n.children[i] = c
}

// RemoveChild implements vdom.Node.
func (n *Node) RemoveChild(child vdom.Node) {
	c := child.(*Node)
	if c.parent != n {
		panic("memdom: node is not a child")
	}
	c.detach()
}

// ReplaceChild implements vdom.Node.
func (n *Node) ReplaceChild(newChild, oldChild vdom.Node) {
	nc, oc := newChild.(*Node), oldChild.(*Node)
	if nc == oc {
		return
	}
	i := n.indexOf(oc)
	if i < 0 {
		panic("memdom: node is not a child")
	}
	nc.detach()
	// detaching nc may have shifted oc
	i = n.indexOf(oc)
	n.children[i] = nc
	nc.parent = n
	oc.parent = nil
}

func (n *Node) indexOf(c *Node) int {
	for i, kid := range n.children {
		if kid == c {
			return i
		}
	}
	return -1
}

func (n *Node) detach() {
	p := n.parent
	if p == nil {
		return
	}
	if i := p.indexOf(n); i >= 0 {
		p.children = append(p.children[:i], p.children[i+1:]...)
	}
	n.parent = nil
}

// Text returns the content of a text node, or the concatenated text of
// an element's descendants.
func (n *Node) Text() string {
	if n.isText {
		return n.text
	}
	var b strings.Builder
	for _, kid := range n.children {
		b.WriteString(kid.Text())
	}
	return b.String()
}

// SetText implements vdom.Node.
func (n *Node) SetText(text string) { n.text = text }

// Attribute returns a plain or namespaced attribute value.
func (n *Node) Attribute(key string) (string, bool) {
	v, ok := n.attrs[key]
	return v, ok
}

// SetAttribute implements vdom.Node.
func (n *Node) SetAttribute(key, value string) {
	if n.attrs == nil {
		n.attrs = make(map[string]string)
	}
	n.attrs[key] = value
}

// RemoveAttribute implements vdom.Node.
func (n *Node) RemoveAttribute(key string) {
	delete(n.attrs, key)
	delete(n.attrNS, key)
}

// SetAttributeNS implements vdom.Node.
func (n *Node) SetAttributeNS(namespace, key, value string) {
	n.SetAttribute(key, value)
	if n.attrNS == nil {
		n.attrNS = make(map[string]string)
	}
	n.attrNS[key] = namespace
}

// RemoveAttributeNS implements vdom.Node.
func (n *Node) RemoveAttributeNS(namespace, key string) {
	if n.attrNS[key] == namespace {
		n.RemoveAttribute(key)
	}
}

// Style returns one style value.
func (n *Node) Style(key string) string { return n.styles[key] }

// SetStyle implements vdom.Node.
func (n *Node) SetStyle(key, value string) {
	if value == "" {
		delete(n.styles, key)
		return
	}
	if n.styles == nil {
		n.styles = make(map[string]string)
	}
	n.styles[key] = value
}

// Property implements vdom.Node.
func (n *Node) Property(key string) (any, bool) {
	v, ok := n.props[key]
	return v, ok
}

// SetProperty implements vdom.Node.
func (n *Node) SetProperty(key string, value any) {
	if n.props == nil {
		n.props = make(map[string]any)
	}
	n.props[key] = value
}

// RemoveProperty implements vdom.Node.
func (n *Node) RemoveProperty(key string) { delete(n.props, key) }

// AddEventListener implements vdom.Node.
func (n *Node) AddEventListener(event string, l vdom.EventListener, passive bool) {
	if n.listeners == nil {
		n.listeners = make(map[string][]registration)
	}
	for _, r := range n.listeners[event] {
		if r.listener == l {
			return
		}
	}
	n.listeners[event] = append(n.listeners[event], registration{listener: l, passive: passive})
}

// RemoveEventListener implements vdom.Node.
func (n *Node) RemoveEventListener(event string, l vdom.EventListener) {
	regs := n.listeners[event]
	for i, r := range regs {
		if r.listener == l {
			n.listeners[event] = append(regs[:i:i], regs[i+1:]...)
			break
		}
	}
	if len(n.listeners[event]) == 0 {
		delete(n.listeners, event)
	}
}

// ListenerCount returns the number of listeners for event.
func (n *Node) ListenerCount(event string) int {
	return len(n.listeners[event])
}

// OuterHTML serializes the subtree in the same form as render.HTML.
func (n *Node) OuterHTML() string {
	var b strings.Builder
	n.writeHTML(&b)
	return b.String()
}

func (n *Node) writeHTML(b *strings.Builder) {
	if n.isText {
		b.WriteString(render.EscapeHTML(n.text))
		return
	}
	b.WriteString("<" + n.tag)
	render.WriteAttributes(b, render.Attributes{Attrs: n.attrs, Styles: n.styles, Props: n.props})
	b.WriteString(">")
	if vdom.IsVoidElement(n.tag) && len(n.children) == 0 {
		return
	}
	for _, kid := range n.children {
		kid.writeHTML(b)
	}
	b.WriteString("</" + n.tag + ">")
}

var (
	_ vdom.Document   = (*Document)(nil)
	_ vdom.Node       = (*Node)(nil)
	_ vdom.ValueEvent = (*Event)(nil)
)
