package vdom

import "log/slog"

// Engine renders VNodes into live nodes of a Document and applies patches.
// It is also the event-dispatch context: live listeners route decoded
// messages to the Dispatcher given at construction.
//
// An Engine is not safe for concurrent use; a render cycle runs to
// completion on one goroutine.
type Engine struct {
	doc    Document
	root   *eventRoot
	logger *slog.Logger

	// layers maps a live node to the event roots of the Tagged chains whose
	// subtree it is the root of, outermost first.
	layers map[Node][]*eventRoot
	// listeners maps a live node to its registered listeners by event name.
	listeners map[Node]map[string]*listener
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates an engine for doc delivering messages to dispatch.
func NewEngine(doc Document, dispatch Dispatcher, opts ...EngineOption) *Engine {
	if dispatch == nil {
		dispatch = func(any, bool) {}
	}
	e := &Engine{
		doc:       doc,
		root:      &eventRoot{dispatch: dispatch},
		logger:    slog.Default(),
		layers:    make(map[Node][]*eventRoot),
		listeners: make(map[Node]map[string]*listener),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Document returns the engine's document.
func (e *Engine) Document() Document {
	return e.doc
}

// Render builds a fresh live tree for v.
func (e *Engine) Render(v VNode) Node {
	return e.render(v, e.root)
}

func (e *Engine) render(v VNode, events *eventRoot) Node {
	switch n := v.(type) {
	case *LazyNode:
		return e.render(n.Force(), events)

	case *TextNode:
		return e.doc.CreateTextNode(n.text)

	case *TaggedNode:
		chain, sub := n.flatten()
		inner := &eventRoot{taggers: chain, parent: events}
		node := e.render(sub, inner)
		e.layers[node] = append([]*eventRoot{inner}, e.layers[node]...)
		return node

	case *CustomNode:
		node := n.renderer.Render(e.doc, n.state)
		e.applyFacts(node, events, n.facts)
		return node

	case *ElementNode:
		node := e.createElement(n.namespace, n.tag)
		e.applyFacts(node, events, n.facts)
		for _, kid := range n.children {
			node.AppendChild(e.render(kid, events))
		}
		return node

	case *KeyedNode:
		node := e.createElement(n.namespace, n.tag)
		e.applyFacts(node, events, n.facts)
		for _, kid := range n.children {
			node.AppendChild(e.render(kid.Node, events))
		}
		return node

	case nil:
		return e.doc.CreateTextNode("")

	default:
		panic(internalError("E101", "render", v.Kind()))
	}
}

func (e *Engine) createElement(namespace, tag string) Node {
	if namespace != "" {
		return e.doc.CreateElementNS(namespace, tag)
	}
	return e.doc.CreateElement(tag)
}

// applyFacts applies a complete fact set to a freshly created node.
func (e *Engine) applyFacts(node Node, events *eventRoot, facts Facts) {
	for key, value := range facts.Styles {
		node.SetStyle(key, value)
	}
	for key, handler := range facts.Events {
		e.applyEvent(node, events, key, handler, false)
	}
	for key, value := range facts.Attributes {
		node.SetAttribute(key, value)
	}
	for key, attr := range facts.AttributesNS {
		node.SetAttributeNS(attr.Namespace, key, attr.Value)
	}
	for key, value := range facts.Properties {
		setProperty(node, key, value)
	}
}

// applyFactsDiff applies only the changed categories.
func (e *Engine) applyFactsDiff(node Node, events *eventRoot, d FactsDiff) {
	for key, c := range d.Styles {
		node.SetStyle(key, c.Value)
	}
	for key, c := range d.Events {
		e.applyEvent(node, events, key, c.Value, c.Remove)
	}
	for key, c := range d.Attributes {
		if c.Remove {
			node.RemoveAttribute(key)
		} else {
			node.SetAttribute(key, c.Value)
		}
	}
	for key, c := range d.AttributesNS {
		if c.Remove {
			node.RemoveAttributeNS(c.Value.Namespace, key)
		} else {
			node.SetAttributeNS(c.Value.Namespace, key, c.Value.Value)
		}
	}
	for key, c := range d.Properties {
		if c.Remove {
			node.RemoveProperty(key)
		} else {
			setProperty(node, key, c.Value)
		}
	}
}

// setProperty skips writing value and checked when the live node already
// holds them, so a caret or selection is not disturbed.
func setProperty(node Node, key string, value any) {
	if key == "value" || key == "checked" {
		if cur, ok := node.Property(key); ok && valuesEqual(cur, value) {
			return
		}
	}
	node.SetProperty(key, value)
}

// applyEvent registers, updates or removes the listener for one event.
// A listener whose handler kind is unchanged is reused with the new handler.
func (e *Engine) applyEvent(node Node, events *eventRoot, name string, handler Handler, remove bool) {
	all := e.listeners[node]
	old := all[name]

	if remove {
		if old != nil {
			node.RemoveEventListener(name, old)
			delete(all, name)
			if len(all) == 0 {
				delete(e.listeners, node)
			}
		}
		return
	}

	if old != nil {
		if old.handler.Kind == handler.Kind {
			old.handler = handler
			return
		}
		node.RemoveEventListener(name, old)
	}

	l := &listener{engine: e, handler: handler, events: events}
	node.AddEventListener(name, l, handler.Kind.passive())
	if all == nil {
		all = make(map[string]*listener)
		e.listeners[node] = all
	}
	all[name] = l
}

// forget drops side-table entries for a detached subtree.
func (e *Engine) forget(node Node) {
	delete(e.layers, node)
	delete(e.listeners, node)
	for i, n := 0, node.ChildCount(); i < n; i++ {
		e.forget(node.ChildAt(i))
	}
}

// eventRootAt returns the event root of the layer-th Tagged chain rooted at node.
func (e *Engine) eventRootAt(node Node, layer int) *eventRoot {
	roots := e.layers[node]
	if layer >= len(roots) {
		panic(internalError("E103", "tagger", node))
	}
	return roots[layer]
}
