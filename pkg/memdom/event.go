package memdom

// Event is a synthetic event dispatched through a memdom tree.
type Event struct {
	typ    string
	value  *string
	target *Node

	stopped   bool
	prevented bool
	passive   bool
}

// NewEvent creates an event of the given type.
func NewEvent(typ string) *Event {
	return &Event{typ: typ}
}

// WithValue sets the value reported by TargetValue, overriding the
// target's value property.
func (e *Event) WithValue(v string) *Event {
	e.value = &v
	return e
}

// Type implements vdom.Event.
func (e *Event) Type() string { return e.typ }

// StopPropagation implements vdom.Event.
func (e *Event) StopPropagation() { e.stopped = true }

// PreventDefault implements vdom.Event. It has no effect inside passive
// listeners.
func (e *Event) PreventDefault() {
	if !e.passive {
		e.prevented = true
	}
}

// Stopped reports whether a listener stopped propagation.
func (e *Event) Stopped() bool { return e.stopped }

// DefaultPrevented reports whether a non-passive listener cancelled the event.
func (e *Event) DefaultPrevented() bool { return e.prevented }

// Target returns the node the event was dispatched on.
func (e *Event) Target() *Node { return e.target }

// TargetValue implements vdom.ValueEvent.
func (e *Event) TargetValue() (string, bool) {
	if e.value != nil {
		return *e.value, true
	}
	if e.target == nil {
		return "", false
	}
	v, ok := e.target.props["value"].(string)
	return v, ok
}

// Dispatch fires ev on n and bubbles it to the root until a listener stops
// propagation. It reports whether the default action may proceed.
func (n *Node) Dispatch(ev *Event) bool {
	ev.target = n
	for cur := n; cur != nil && !ev.stopped; cur = cur.parent {
		regs := append([]registration(nil), cur.listeners[ev.typ]...)
		for _, r := range regs {
			ev.passive = r.passive
			r.listener.HandleEvent(ev)
		}
		ev.passive = false
	}
	return !ev.prevented
}

// Click dispatches a click event on n.
func (n *Node) Click() bool {
	return n.Dispatch(NewEvent("click"))
}

// Input simulates typing: the value property is set, then an input event
// is dispatched.
func (n *Node) Input(value string) bool {
	n.SetProperty("value", value)
	return n.Dispatch(NewEvent("input"))
}
