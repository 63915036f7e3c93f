package protocol

import (
	"fmt"
	"maps"
	"slices"

	"github.com/vango-dev/vdiff/pkg/vdom"
)

// nilNode marks an absent node.
const nilNode byte = 0xFF

// Property value tags.
const (
	valueNil byte = iota
	valueString
	valueBool
	valueInt
	valueFloat
)

// identityTagger stands in for decoded taggers. Decoded trees keep their
// Tagged layers so patch indices recorded against the original still line up.
var identityTagger = vdom.NewTagger(func(msg any) any { return msg })

// EncodeOption configures an encoding call.
type EncodeOption func(*writer)

// DropHandlers makes the encoder skip event handlers instead of failing.
// Decoded trees then carry no listeners.
func DropHandlers() EncodeOption {
	return func(w *writer) { w.dropHandlers = true }
}

// writer encodes trees and patch lists into one payload.
type writer struct {
	e            *Encoder
	dropHandlers bool
	// entries assigns ids to keyed entries in the order they first appear.
	entries map[*vdom.KeyedEntry]int
}

func newWriter(opts []EncodeOption) *writer {
	w := &writer{e: NewEncoder(), entries: make(map[*vdom.KeyedEntry]int)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// reader mirrors writer.
type reader struct {
	d       *Decoder
	entries []*vdom.KeyedEntry
	nodes   *depthContext
	patches *depthContext
}

func newReader(data []byte) *reader {
	return &reader{
		d:       NewDecoder(data),
		nodes:   newDepthContext(MaxVNodeDepth),
		patches: newDepthContext(MaxPatchDepth),
	}
}

func (r *reader) finish() error {
	if !r.d.EOF() {
		return ErrTrailingBytes
	}
	return nil
}

// EncodeVNode encodes a tree. Lazy nodes are forced.
func EncodeVNode(v vdom.VNode, opts ...EncodeOption) ([]byte, error) {
	w := newWriter(opts)
	if err := w.writeNode(v); err != nil {
		return nil, err
	}
	return w.e.Bytes(), nil
}

// DecodeVNode decodes a tree written by EncodeVNode.
func DecodeVNode(data []byte) (vdom.VNode, error) {
	r := newReader(data)
	v, err := r.readNode()
	if err != nil {
		return nil, err
	}
	return v, r.finish()
}

func (w *writer) writeNode(v vdom.VNode) error {
	switch n := v.(type) {
	case nil:
		w.e.WriteByte(nilNode)

	case *vdom.TextNode:
		w.e.WriteByte(byte(vdom.KindText))
		w.e.WriteString(n.Value())

	case *vdom.ElementNode:
		w.e.WriteByte(byte(vdom.KindElement))
		w.e.WriteString(n.Namespace())
		w.e.WriteString(n.Tag())
		if err := w.writeFacts(n.Facts()); err != nil {
			return err
		}
		w.e.WriteLen(len(n.Children()))
		for _, kid := range n.Children() {
			if err := w.writeNode(kid); err != nil {
				return err
			}
		}

	case *vdom.KeyedNode:
		w.e.WriteByte(byte(vdom.KindKeyed))
		w.e.WriteString(n.Namespace())
		w.e.WriteString(n.Tag())
		if err := w.writeFacts(n.Facts()); err != nil {
			return err
		}
		w.e.WriteLen(len(n.Children()))
		for _, kid := range n.Children() {
			w.e.WriteString(kid.Key)
			if err := w.writeNode(kid.Node); err != nil {
				return err
			}
		}

	case *vdom.TaggedNode:
		w.e.WriteByte(byte(vdom.KindTagged))
		return w.writeNode(n.Child())

	case *vdom.LazyNode:
		w.e.WriteByte(byte(vdom.KindLazy))
		return w.writeNode(n.Force())

	case *vdom.CustomNode:
		return fmt.Errorf("%w: custom node", ErrNotEncodable)

	default:
		return fmt.Errorf("%w: %T", ErrNotEncodable, v)
	}
	return nil
}

func (r *reader) readNode() (vdom.VNode, error) {
	if err := r.nodes.enter(); err != nil {
		return nil, err
	}
	defer r.nodes.leave()

	kind, err := r.d.ReadByte()
	if err != nil {
		return nil, err
	}
	if kind == nilNode {
		return nil, nil
	}

	switch vdom.Kind(kind) {
	case vdom.KindText:
		s, err := r.d.ReadString()
		if err != nil {
			return nil, err
		}
		return vdom.Text(s), nil

	case vdom.KindElement:
		ns, tag, facts, err := r.readElementHeader()
		if err != nil {
			return nil, err
		}
		count, err := r.d.ReadCollectionCount()
		if err != nil {
			return nil, err
		}
		kids := make([]vdom.VNode, 0, count)
		for i := 0; i < count; i++ {
			kid, err := r.readNode()
			if err != nil {
				return nil, err
			}
			kids = append(kids, kid)
		}
		return vdom.ElementNS(ns, tag, facts, kids...), nil

	case vdom.KindKeyed:
		ns, tag, facts, err := r.readElementHeader()
		if err != nil {
			return nil, err
		}
		count, err := r.d.ReadCollectionCount()
		if err != nil {
			return nil, err
		}
		kids := make([]vdom.KeyedChild, 0, count)
		for i := 0; i < count; i++ {
			key, err := r.d.ReadString()
			if err != nil {
				return nil, err
			}
			kid, err := r.readNode()
			if err != nil {
				return nil, err
			}
			kids = append(kids, vdom.K(key, kid))
		}
		return vdom.KeyedNS(ns, tag, facts, kids...), nil

	case vdom.KindTagged:
		child, err := r.readNode()
		if err != nil {
			return nil, err
		}
		return vdom.Map(identityTagger, child), nil

	case vdom.KindLazy:
		child, err := r.readNode()
		if err != nil {
			return nil, err
		}
		lazy := vdom.Lazy(func() vdom.VNode { return child })
		lazy.Force()
		return lazy, nil

	default:
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownKind, kind)
	}
}

func (r *reader) readElementHeader() (string, string, []vdom.Fact, error) {
	ns, err := r.d.ReadString()
	if err != nil {
		return "", "", nil, err
	}
	tag, err := r.d.ReadString()
	if err != nil {
		return "", "", nil, err
	}
	facts, err := r.readFacts()
	if err != nil {
		return "", "", nil, err
	}
	return ns, tag, facts, nil
}

// writeFacts writes each category with keys in sorted order so equal trees
// encode to equal bytes.
func (w *writer) writeFacts(f vdom.Facts) error {
	if len(f.Events) > 0 && !w.dropHandlers {
		return fmt.Errorf("%w: event handlers", ErrNotEncodable)
	}

	w.e.WriteLen(len(f.Styles))
	for _, k := range sortedKeys(f.Styles) {
		w.e.WriteString(k)
		w.e.WriteString(f.Styles[k])
	}
	w.e.WriteLen(len(f.Attributes))
	for _, k := range sortedKeys(f.Attributes) {
		w.e.WriteString(k)
		w.e.WriteString(f.Attributes[k])
	}
	w.e.WriteLen(len(f.AttributesNS))
	for _, k := range sortedKeys(f.AttributesNS) {
		a := f.AttributesNS[k]
		w.e.WriteString(k)
		w.e.WriteString(a.Namespace)
		w.e.WriteString(a.Value)
	}
	w.e.WriteLen(len(f.Properties))
	for _, k := range sortedKeys(f.Properties) {
		w.e.WriteString(k)
		if err := w.writeValue(f.Properties[k]); err != nil {
			return fmt.Errorf("property %q: %w", k, err)
		}
	}
	return nil
}

func (r *reader) readFacts() ([]vdom.Fact, error) {
	var facts []vdom.Fact

	pairs := func(mk func(k, v string) vdom.Fact) error {
		n, err := r.d.ReadCollectionCount()
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			k, err := r.d.ReadString()
			if err != nil {
				return err
			}
			v, err := r.d.ReadString()
			if err != nil {
				return err
			}
			facts = append(facts, mk(k, v))
		}
		return nil
	}
	if err := pairs(vdom.Style); err != nil {
		return nil, err
	}
	if err := pairs(vdom.Attribute); err != nil {
		return nil, err
	}

	n, err := r.d.ReadCollectionCount()
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		k, err := r.d.ReadString()
		if err != nil {
			return nil, err
		}
		ns, err := r.d.ReadString()
		if err != nil {
			return nil, err
		}
		v, err := r.d.ReadString()
		if err != nil {
			return nil, err
		}
		facts = append(facts, vdom.AttributeNS(ns, k, v))
	}

	n, err = r.d.ReadCollectionCount()
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		k, err := r.d.ReadString()
		if err != nil {
			return nil, err
		}
		v, err := r.readValue()
		if err != nil {
			return nil, err
		}
		facts = append(facts, vdom.Property(k, v))
	}
	return facts, nil
}

func (w *writer) writeValue(v any) error {
	switch v := v.(type) {
	case nil:
		w.e.WriteByte(valueNil)
	case string:
		w.e.WriteByte(valueString)
		w.e.WriteString(v)
	case bool:
		w.e.WriteByte(valueBool)
		w.e.WriteBool(v)
	case int:
		w.e.WriteByte(valueInt)
		w.e.WriteSvarint(int64(v))
	case int32:
		w.e.WriteByte(valueInt)
		w.e.WriteSvarint(int64(v))
	case int64:
		w.e.WriteByte(valueInt)
		w.e.WriteSvarint(v)
	case float32:
		w.e.WriteByte(valueFloat)
		w.e.WriteFloat64(float64(v))
	case float64:
		w.e.WriteByte(valueFloat)
		w.e.WriteFloat64(v)
	default:
		return fmt.Errorf("%w: %T", ErrNotEncodable, v)
	}
	return nil
}

// readValue decodes scalars. Integers come back as int and floats as float64.
func (r *reader) readValue() (any, error) {
	tag, err := r.d.ReadByte()
	if err != nil {
		return nil, err
	}
	switch tag {
	case valueNil:
		return nil, nil
	case valueString:
		return r.d.ReadString()
	case valueBool:
		return r.d.ReadBool()
	case valueInt:
		v, err := r.d.ReadSvarint()
		return int(v), err
	case valueFloat:
		return r.d.ReadFloat64()
	default:
		return nil, fmt.Errorf("%w: value tag 0x%02x", ErrUnknownKind, tag)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
