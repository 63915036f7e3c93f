package fixture

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/vdiff/internal/errors"
	"github.com/vango-dev/vdiff/pkg/vdom"
)

// Load reads a fixture file holding exactly one tree.
func Load(path string) (vdom.VNode, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("E311").Wrap(err)
	}
	return Parse(path, data)
}

// LoadAll reads every document of a multi-document fixture file.
func LoadAll(path string) ([]vdom.VNode, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("E311").Wrap(err)
	}
	return ParseAll(path, data)
}

// Parse decodes a single-document fixture. name is used in error locations.
func Parse(name string, data []byte) (vdom.VNode, error) {
	trees, err := ParseAll(name, data)
	if err != nil {
		return nil, err
	}
	if len(trees) != 1 {
		return nil, errors.New("E311").
			WithDetail(fmt.Sprintf("%s holds %d documents; expected one tree", name, len(trees)))
	}
	return trees[0], nil
}

// ParseAll decodes every document in data.
func ParseAll(name string, data []byte) ([]vdom.VNode, error) {
	p := &parser{name: name}
	dec := yaml.NewDecoder(bytes.NewReader(data))

	var trees []vdom.VNode
	for {
		var doc yaml.Node
		err := dec.Decode(&doc)
		if stderrors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			e := errors.New("E311").Wrap(err)
			if line := syntaxErrorLine(err); line > 0 {
				e = e.WithLocation(name, line, 0)
			}
			return nil, e
		}
		if len(doc.Content) == 0 {
			continue
		}
		tree, err := p.node(doc.Content[0])
		if err != nil {
			return nil, err
		}
		trees = append(trees, tree)
	}
	return trees, nil
}

var lineRe = regexp.MustCompile(`line (\d+)`)

// syntaxErrorLine extracts the line number yaml embeds in its messages.
func syntaxErrorLine(err error) int {
	m := lineRe.FindStringSubmatch(err.Error())
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

type parser struct {
	name string
}

func (p *parser) invalid(n *yaml.Node, format string, args ...any) error {
	return errors.New("E312").
		WithDetail(fmt.Sprintf(format, args...)).
		WithLocation(p.name, n.Line, n.Column)
}

// node converts one fixture node. A bare scalar is a text node.
func (p *parser) node(n *yaml.Node) (vdom.VNode, error) {
	if n.Kind == yaml.AliasNode {
		return p.node(n.Alias)
	}
	if n.Kind == yaml.ScalarNode {
		return vdom.Text(n.Value), nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, p.invalid(n, "a node must be a mapping or a string")
	}

	fields, err := p.fields(n)
	if err != nil {
		return nil, err
	}

	var kinds []string
	for _, k := range []string{"text", "el", "keyed", "lazy"} {
		if _, ok := fields[k]; ok {
			kinds = append(kinds, k)
		}
	}
	if len(kinds) != 1 {
		return nil, p.invalid(n, "a node must have exactly one of text, el, keyed or lazy; found %v", kinds)
	}

	switch kinds[0] {
	case "text":
		if err := p.only(fields, "text"); err != nil {
			return nil, err
		}
		v, err := p.scalar(fields["text"])
		if err != nil {
			return nil, err
		}
		return vdom.Text(v), nil

	case "lazy":
		if err := p.only(fields, "lazy"); err != nil {
			return nil, err
		}
		child, err := p.node(fields["lazy"].value)
		if err != nil {
			return nil, err
		}
		return vdom.Lazy(func() vdom.VNode { return child }), nil

	case "el":
		if err := p.only(fields, "el", "ns", "attrs", "styles", "props", "children"); err != nil {
			return nil, err
		}
		ns, tag, facts, err := p.element(fields, "el")
		if err != nil {
			return nil, err
		}
		var kids []vdom.VNode
		if f, ok := fields["children"]; ok {
			if kids, err = p.children(f); err != nil {
				return nil, err
			}
		}
		return vdom.ElementNS(ns, tag, facts, kids...), nil

	default:
		if err := p.only(fields, "keyed", "ns", "attrs", "styles", "props", "children"); err != nil {
			return nil, err
		}
		ns, tag, facts, err := p.element(fields, "keyed")
		if err != nil {
			return nil, err
		}
		var kids []vdom.KeyedChild
		if f, ok := fields["children"]; ok {
			if kids, err = p.keyedChildren(f); err != nil {
				return nil, err
			}
		}
		return vdom.KeyedNS(ns, tag, facts, kids...), nil
	}
}

type field struct {
	key   *yaml.Node
	value *yaml.Node
}

func (p *parser) fields(n *yaml.Node) (map[string]field, error) {
	fields := make(map[string]field, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if _, dup := fields[k.Value]; dup {
			return nil, p.invalid(k, "duplicate field %q", k.Value)
		}
		fields[k.Value] = field{key: k, value: v}
	}
	return fields, nil
}

// only rejects fields outside allowed.
func (p *parser) only(fields map[string]field, allowed ...string) error {
	for name, f := range fields {
		ok := false
		for _, a := range allowed {
			if name == a {
				ok = true
				break
			}
		}
		if !ok {
			return p.invalid(f.key, "unknown field %q", name)
		}
	}
	return nil
}

func (p *parser) scalar(f field) (string, error) {
	if f.value.Kind != yaml.ScalarNode {
		return "", p.invalid(f.value, "%s must be a string", f.key.Value)
	}
	return f.value.Value, nil
}

func (p *parser) element(fields map[string]field, tagField string) (string, string, []vdom.Fact, error) {
	tag, err := p.scalar(fields[tagField])
	if err != nil {
		return "", "", nil, err
	}
	if tag == "" {
		return "", "", nil, p.invalid(fields[tagField].value, "empty tag")
	}
	var ns string
	if f, ok := fields["ns"]; ok {
		if ns, err = p.scalar(f); err != nil {
			return "", "", nil, err
		}
	}

	var facts []vdom.Fact
	if f, ok := fields["styles"]; ok {
		err := p.pairs(f, func(k string, v *yaml.Node) error {
			facts = append(facts, vdom.Style(k, v.Value))
			return nil
		})
		if err != nil {
			return "", "", nil, err
		}
	}
	if f, ok := fields["attrs"]; ok {
		err := p.pairs(f, func(k string, v *yaml.Node) error {
			facts = append(facts, vdom.Attribute(k, v.Value))
			return nil
		})
		if err != nil {
			return "", "", nil, err
		}
	}
	if f, ok := fields["props"]; ok {
		err := p.pairs(f, func(k string, v *yaml.Node) error {
			var value any
			if err := v.Decode(&value); err != nil {
				return p.invalid(v, "property %q: %v", k, err)
			}
			facts = append(facts, vdom.Property(k, value))
			return nil
		})
		if err != nil {
			return "", "", nil, err
		}
	}
	return ns, tag, facts, nil
}

// pairs walks a mapping of scalar values in document order.
func (p *parser) pairs(f field, fn func(key string, value *yaml.Node) error) error {
	if f.value.Kind != yaml.MappingNode {
		return p.invalid(f.value, "%s must be a mapping", f.key.Value)
	}
	for i := 0; i+1 < len(f.value.Content); i += 2 {
		k, v := f.value.Content[i], f.value.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			return p.invalid(v, "%s.%s must be a scalar", f.key.Value, k.Value)
		}
		if err := fn(k.Value, v); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) children(f field) ([]vdom.VNode, error) {
	if f.value.Kind != yaml.SequenceNode {
		return nil, p.invalid(f.value, "children must be a list")
	}
	kids := make([]vdom.VNode, 0, len(f.value.Content))
	for _, c := range f.value.Content {
		kid, err := p.node(c)
		if err != nil {
			return nil, err
		}
		kids = append(kids, kid)
	}
	return kids, nil
}

// keyedChildren reads children of a keyed node. Each child carries a key
// field next to its node fields.
func (p *parser) keyedChildren(f field) ([]vdom.KeyedChild, error) {
	if f.value.Kind != yaml.SequenceNode {
		return nil, p.invalid(f.value, "children must be a list")
	}
	kids := make([]vdom.KeyedChild, 0, len(f.value.Content))
	for _, c := range f.value.Content {
		if c.Kind != yaml.MappingNode {
			return nil, p.invalid(c, "keyed children must be mappings with a key")
		}
		var key *yaml.Node
		rest := &yaml.Node{Kind: yaml.MappingNode, Line: c.Line, Column: c.Column}
		for i := 0; i+1 < len(c.Content); i += 2 {
			if c.Content[i].Value == "key" {
				key = c.Content[i+1]
				continue
			}
			rest.Content = append(rest.Content, c.Content[i], c.Content[i+1])
		}
		if key == nil || key.Kind != yaml.ScalarNode {
			return nil, p.invalid(c, "keyed child has no key")
		}
		kid, err := p.node(rest)
		if err != nil {
			return nil, err
		}
		kids = append(kids, vdom.K(key.Value, kid))
	}
	return kids, nil
}
