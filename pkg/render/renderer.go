package render

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/vango-dev/vdiff/pkg/vdom"
)

// ErrCustomNode is returned when a tree contains a Custom node, whose
// content only exists once its renderer runs against a live document.
var ErrCustomNode = errors.New("render: custom nodes have no static HTML")

// RendererConfig configures the HTML renderer.
type RendererConfig struct {
	// Pretty enables pretty-printed HTML output with indentation.
	// Pretty output is not comparable with live tree snapshots.
	Pretty bool

	// Indent is the string used for each indentation level in pretty mode.
	// Defaults to two spaces if not specified.
	Indent string
}

// Renderer serializes VNode trees to HTML.
type Renderer struct {
	config RendererConfig
}

// NewRenderer creates a new Renderer with the given configuration.
func NewRenderer(config RendererConfig) *Renderer {
	if config.Indent == "" {
		config.Indent = "  "
	}
	return &Renderer{config: config}
}

// HTML renders v in compact form, the same form a live tree serializes to.
func HTML(v vdom.VNode) (string, error) {
	return NewRenderer(RendererConfig{}).RenderToString(v)
}

// RenderToString renders a VNode tree to an HTML string.
func (r *Renderer) RenderToString(v vdom.VNode) (string, error) {
	var buf bytes.Buffer
	if err := r.RenderToWriter(&buf, v); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderToWriter streams a VNode tree to the given writer.
func (r *Renderer) RenderToWriter(w io.Writer, v vdom.VNode) error {
	return r.renderNode(w, v, 0)
}

// renderNode dispatches rendering based on node kind.
func (r *Renderer) renderNode(w io.Writer, v vdom.VNode, depth int) error {
	switch n := v.(type) {
	case nil:
		return nil
	case *vdom.TextNode:
		_, err := io.WriteString(w, EscapeHTML(n.Value()))
		return err
	case *vdom.ElementNode:
		return r.renderElement(w, n.Tag(), n.Facts(), n.Children(), depth)
	case *vdom.KeyedNode:
		kids := make([]vdom.VNode, len(n.Children()))
		for i, kid := range n.Children() {
			kids[i] = kid.Node
		}
		return r.renderElement(w, n.Tag(), n.Facts(), kids, depth)
	case *vdom.TaggedNode:
		return r.renderNode(w, n.Child(), depth)
	case *vdom.LazyNode:
		return r.renderNode(w, n.Force(), depth)
	case *vdom.CustomNode:
		return ErrCustomNode
	default:
		return fmt.Errorf("render: unknown node kind %v", v.Kind())
	}
}

// renderElement renders an element with its attributes and children.
func (r *Renderer) renderElement(w io.Writer, tag string, facts vdom.Facts, children []vdom.VNode, depth int) error {
	if r.config.Pretty && depth > 0 {
		r.writeIndent(w, depth)
	}

	if _, err := io.WriteString(w, "<"+tag); err != nil {
		return err
	}
	if err := WriteAttributes(w, FactAttributes(facts)); err != nil {
		return err
	}
	if _, err := io.WriteString(w, ">"); err != nil {
		return err
	}

	if vdom.IsVoidElement(tag) && len(children) == 0 {
		if r.config.Pretty {
			io.WriteString(w, "\n")
		}
		return nil
	}

	block := r.config.Pretty && len(children) > 0 && !isInlineElement(tag)
	if block {
		io.WriteString(w, "\n")
	}
	for _, child := range children {
		if err := r.renderNode(w, child, depth+1); err != nil {
			return err
		}
	}
	if block {
		r.writeIndent(w, depth)
	}

	if _, err := io.WriteString(w, "</"+tag+">"); err != nil {
		return err
	}
	if r.config.Pretty {
		io.WriteString(w, "\n")
	}
	return nil
}

// FactAttributes converts normalized facts to their serializable form.
// Events have no HTML representation and are dropped.
func FactAttributes(facts vdom.Facts) Attributes {
	a := Attributes{Styles: facts.Styles, Props: facts.Properties}
	if len(facts.Attributes) > 0 || len(facts.AttributesNS) > 0 {
		a.Attrs = make(map[string]string, len(facts.Attributes)+len(facts.AttributesNS))
		for key, value := range facts.Attributes {
			a.Attrs[key] = value
		}
		for key, attr := range facts.AttributesNS {
			a.Attrs[key] = attr.Value
		}
	}
	return a
}

// writeIndent writes indentation for pretty printing.
func (r *Renderer) writeIndent(w io.Writer, depth int) {
	for i := 0; i < depth; i++ {
		io.WriteString(w, r.config.Indent)
	}
}
