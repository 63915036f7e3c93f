package vdom

// Kind is the node type discriminator.
type Kind uint8

const (
	KindText    Kind = iota // Plain text node
	KindElement             // <div>, <button>, etc.
	KindKeyed               // Element whose children carry keys
	KindTagged              // Message-mapping wrapper around a subtree
	KindCustom              // Externally managed node
	KindLazy                // Memoized subtree
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "Text"
	case KindElement:
		return "Element"
	case KindKeyed:
		return "Keyed"
	case KindTagged:
		return "Tagged"
	case KindCustom:
		return "Custom"
	case KindLazy:
		return "Lazy"
	default:
		return "Unknown"
	}
}

// VNode is an immutable description of a UI node.
//
// The set of implementations is closed: *TextNode, *ElementNode, *KeyedNode,
// *TaggedNode, *CustomNode and *LazyNode.
type VNode interface {
	Kind() Kind

	// descendants is the number of nodes below this one, fixed at construction.
	descendants() int
}

// TextNode is a plain text node.
type TextNode struct {
	text string
}

// Text creates a text node.
func Text(content string) *TextNode {
	return &TextNode{text: content}
}

// Kind implements VNode.
func (t *TextNode) Kind() Kind { return KindText }

// Value returns the text content.
func (t *TextNode) Value() string { return t.text }

func (t *TextNode) descendants() int { return 0 }

// ElementNode is an element with positional children.
type ElementNode struct {
	tag       string
	namespace string
	facts     Facts
	children  []VNode
	size      int
}

// Element creates an element with the given tag, facts and children.
// Nil children are dropped.
func Element(tag string, facts []Fact, children ...VNode) *ElementNode {
	return ElementNS("", tag, facts, children...)
}

// ElementNS creates an element in the given namespace (e.g. SVG).
func ElementNS(namespace, tag string, facts []Fact, children ...VNode) *ElementNode {
	kids := make([]VNode, 0, len(children))
	size := 0
	for _, child := range children {
		if child == nil {
			continue
		}
		kids = append(kids, child)
		size += 1 + child.descendants()
	}
	return &ElementNode{
		tag:       tag,
		namespace: namespace,
		facts:     Normalize(facts),
		children:  kids,
		size:      size,
	}
}

// Kind implements VNode.
func (e *ElementNode) Kind() Kind { return KindElement }

// Tag returns the element tag name.
func (e *ElementNode) Tag() string { return e.tag }

// Namespace returns the element namespace, empty for HTML elements.
func (e *ElementNode) Namespace() string { return e.namespace }

// Facts returns the normalized facts. Callers must not modify them.
func (e *ElementNode) Facts() Facts { return e.facts }

// Children returns the child nodes. Callers must not modify the slice.
func (e *ElementNode) Children() []VNode { return e.children }

func (e *ElementNode) descendants() int { return e.size }

// KeyedChild is one entry of a keyed child list.
type KeyedChild struct {
	Key  string
	Node VNode
}

// K builds a KeyedChild.
func K(key string, node VNode) KeyedChild {
	return KeyedChild{Key: key, Node: node}
}

// KeyedNode is an element whose children carry stable keys, so moves can be
// detected instead of destroying and recreating nodes.
type KeyedNode struct {
	tag       string
	namespace string
	facts     Facts
	children  []KeyedChild
	size      int
}

// Keyed creates a keyed element.
func Keyed(tag string, facts []Fact, children ...KeyedChild) *KeyedNode {
	return KeyedNS("", tag, facts, children...)
}

// KeyedNS creates a keyed element in the given namespace.
func KeyedNS(namespace, tag string, facts []Fact, children ...KeyedChild) *KeyedNode {
	kids := make([]KeyedChild, 0, len(children))
	size := 0
	for _, child := range children {
		if child.Node == nil {
			continue
		}
		kids = append(kids, child)
		size += 1 + child.Node.descendants()
	}
	return &KeyedNode{
		tag:       tag,
		namespace: namespace,
		facts:     Normalize(facts),
		children:  kids,
		size:      size,
	}
}

// Kind implements VNode.
func (k *KeyedNode) Kind() Kind { return KindKeyed }

// Tag returns the element tag name.
func (k *KeyedNode) Tag() string { return k.tag }

// Namespace returns the element namespace.
func (k *KeyedNode) Namespace() string { return k.namespace }

// Facts returns the normalized facts.
func (k *KeyedNode) Facts() Facts { return k.facts }

// Children returns the keyed children.
func (k *KeyedNode) Children() []KeyedChild { return k.children }

func (k *KeyedNode) descendants() int { return k.size }

// dekey strips keys so a keyed node can be diffed against a plain one.
func (k *KeyedNode) dekey() *ElementNode {
	kids := make([]VNode, len(k.children))
	for i, child := range k.children {
		kids[i] = child.Node
	}
	return &ElementNode{
		tag:       k.tag,
		namespace: k.namespace,
		facts:     k.facts,
		children:  kids,
		size:      k.size,
	}
}

// Tagger transforms messages produced inside a subtree into the parent's
// message type. Taggers are compared by identity, so create them once
// (typically as package-level variables) rather than per render.
type Tagger struct {
	fn func(any) any
}

// NewTagger wraps fn as a Tagger.
func NewTagger(fn func(any) any) *Tagger {
	return &Tagger{fn: fn}
}

// Apply maps a message.
func (t *Tagger) Apply(msg any) any {
	return t.fn(msg)
}

// TaggedNode wraps a subtree so its messages pass through a tagger.
type TaggedNode struct {
	tagger *Tagger
	child  VNode
	size   int
}

// Map wraps child so that its messages go through tagger.
// A nil child is replaced by an empty text node.
func Map(tagger *Tagger, child VNode) *TaggedNode {
	if child == nil {
		child = Text("")
	}
	return &TaggedNode{tagger: tagger, child: child, size: 1 + child.descendants()}
}

// Kind implements VNode.
func (t *TaggedNode) Kind() Kind { return KindTagged }

// Tagger returns the wrapping tagger.
func (t *TaggedNode) Tagger() *Tagger { return t.tagger }

// Child returns the wrapped node.
func (t *TaggedNode) Child() VNode { return t.child }

func (t *TaggedNode) descendants() int { return t.size }

// flatten collects consecutive Tagged layers into one chain, outermost first,
// and returns the first non-Tagged node below them.
func (t *TaggedNode) flatten() ([]*Tagger, VNode) {
	chain := []*Tagger{t.tagger}
	sub := t.child
	for {
		inner, ok := sub.(*TaggedNode)
		if !ok {
			return chain, sub
		}
		chain = append(chain, inner.tagger)
		sub = inner.child
	}
}

// CustomPatch updates an externally managed live node. It returns the node
// that should occupy the position afterwards, normally the same one.
type CustomPatch func(Node) Node

// CustomRenderer renders and patches an externally managed node.
// Implementations are compared by identity: two Custom nodes with different
// renderers are never diffed against each other.
type CustomRenderer interface {
	Render(doc Document, state any) Node
	// Diff returns nil when nothing needs to change.
	Diff(oldState, newState any) CustomPatch
}

// CustomNode is an escape hatch for nodes managed outside the engine.
type CustomNode struct {
	facts    Facts
	state    any
	renderer CustomRenderer
}

// Custom creates a node rendered and patched by renderer.
func Custom(renderer CustomRenderer, facts []Fact, state any) *CustomNode {
	return &CustomNode{facts: Normalize(facts), state: state, renderer: renderer}
}

// Kind implements VNode.
func (c *CustomNode) Kind() Kind { return KindCustom }

// Facts returns the normalized facts.
func (c *CustomNode) Facts() Facts { return c.facts }

// State returns the renderer state.
func (c *CustomNode) State() any { return c.state }

// Renderer returns the custom renderer.
func (c *CustomNode) Renderer() CustomRenderer { return c.renderer }

func (c *CustomNode) descendants() int { return 0 }

// LazyNode is a memoized subtree. The thunk runs only when refs differ from
// the previous render's refs (compared pairwise by identity), and at most
// once per node.
type LazyNode struct {
	refs   []any
	thunk  func() VNode
	cached VNode
}

// Lazy creates a memoized node. refs must include every input the thunk
// reads.
//
// The thunk itself is not compared. Swapping Lazy(viewA, m) for
// Lazy(viewB, m) at the same position keeps showing viewA's output; pass a
// ref that changes with the thunk (e.g. a view name) when one position can
// render different views.
func Lazy(thunk func() VNode, refs ...any) *LazyNode {
	return &LazyNode{refs: refs, thunk: thunk}
}

// Kind implements VNode.
func (l *LazyNode) Kind() Kind { return KindLazy }

// Refs returns the memoization inputs.
func (l *LazyNode) Refs() []any { return l.refs }

// Force returns the memoized child, running the thunk if needed.
func (l *LazyNode) Force() VNode {
	if l.cached == nil {
		l.cached = l.thunk()
	}
	return l.cached
}

// Cached returns the memoized child, or nil if the thunk has not run.
func (l *LazyNode) Cached() VNode { return l.cached }

// descendants is zero: the forced child is diffed and located as its own scope.
func (l *LazyNode) descendants() int { return 0 }

// Descendants returns the number of nodes below v as counted by the differ.
func Descendants(v VNode) int {
	if v == nil {
		return 0
	}
	return v.descendants()
}
