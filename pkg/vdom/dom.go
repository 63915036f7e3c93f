package vdom

// Document creates live nodes for a platform.
type Document interface {
	CreateElement(tag string) Node
	CreateElementNS(namespace, tag string) Node
	CreateTextNode(text string) Node
}

// Node is a mutable platform node. Implementations must be comparable
// (typically pointers): the engine keys its side tables by node identity.
//
// ParentNode must return an untyped nil for detached nodes.
type Node interface {
	ParentNode() Node
	ChildCount() int
	// ChildAt returns nil when i is out of range.
	ChildAt(i int) Node
	AppendChild(child Node)
	// InsertBefore appends when ref is nil.
	InsertBefore(child, ref Node)
	RemoveChild(child Node)
	ReplaceChild(newChild, oldChild Node)

	// SetText replaces the content of a text node.
	SetText(text string)

	SetAttribute(key, value string)
	RemoveAttribute(key string)
	SetAttributeNS(namespace, key, value string)
	RemoveAttributeNS(namespace, key string)
	// SetStyle sets one style property; an empty value removes it.
	SetStyle(key, value string)
	SetProperty(key string, value any)
	RemoveProperty(key string)
	Property(key string) (any, bool)

	AddEventListener(event string, l EventListener, passive bool)
	RemoveEventListener(event string, l EventListener)
}

// EventListener receives events fired on a live node.
type EventListener interface {
	HandleEvent(ev Event)
}
