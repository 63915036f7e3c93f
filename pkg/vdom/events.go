package vdom

// HandlerKind selects which flags of a decoded event are honoured.
type HandlerKind uint8

const (
	// Normal handlers only produce a message.
	Normal HandlerKind = iota
	// MayStopPropagation handlers may stop the event from bubbling.
	MayStopPropagation
	// MayPreventDefault handlers may cancel the platform default action.
	MayPreventDefault
	// CustomHandler handlers control both flags.
	CustomHandler
)

// String returns the string representation of the HandlerKind.
func (k HandlerKind) String() string {
	switch k {
	case Normal:
		return "Normal"
	case MayStopPropagation:
		return "MayStopPropagation"
	case MayPreventDefault:
		return "MayPreventDefault"
	case CustomHandler:
		return "Custom"
	default:
		return "Unknown"
	}
}

// passive reports whether listeners for this kind never cancel the event.
func (k HandlerKind) passive() bool {
	return k < MayPreventDefault
}

// Event is a platform event delivered to a listener.
type Event interface {
	// Type is the event name, e.g. "click".
	Type() string
	StopPropagation()
	PreventDefault()
}

// Decoded is the result of decoding a platform event.
type Decoded struct {
	Message         any
	StopPropagation bool
	PreventDefault  bool
}

// Decoder extracts an application message from a platform event.
// Decoders are compared by identity, except constant decoders created with
// Succeed, which compare by message value.
type Decoder struct {
	fn       func(Event) (Decoded, error)
	constant bool
	msg      any
}

// NewDecoder wraps fn as a Decoder.
func NewDecoder(fn func(Event) (Decoded, error)) *Decoder {
	return &Decoder{fn: fn}
}

// MessageDecoder wraps a decoder that only produces a message.
func MessageDecoder(fn func(Event) (any, error)) *Decoder {
	return &Decoder{fn: func(ev Event) (Decoded, error) {
		msg, err := fn(ev)
		if err != nil {
			return Decoded{}, err
		}
		return Decoded{Message: msg}, nil
	}}
}

// Succeed returns a decoder that ignores the event and yields msg.
func Succeed(msg any) *Decoder {
	return &Decoder{
		fn:       func(Event) (Decoded, error) { return Decoded{Message: msg}, nil },
		constant: true,
		msg:      msg,
	}
}

// Decode runs the decoder.
func (d *Decoder) Decode(ev Event) (Decoded, error) {
	return d.fn(ev)
}

// Equal reports whether two decoders are interchangeable.
func (d *Decoder) Equal(other *Decoder) bool {
	if d == other {
		return true
	}
	if d == nil || other == nil {
		return false
	}
	return d.constant && other.constant && valuesEqual(d.msg, other.msg)
}

// Handler pairs a decoder with the flags it may control.
type Handler struct {
	Kind    HandlerKind
	Decoder *Decoder
}

// NormalHandler creates a Normal handler.
func NormalHandler(d *Decoder) Handler { return Handler{Kind: Normal, Decoder: d} }

// MayStopPropagationHandler creates a handler that may stop propagation.
func MayStopPropagationHandler(d *Decoder) Handler {
	return Handler{Kind: MayStopPropagation, Decoder: d}
}

// MayPreventDefaultHandler creates a handler that may prevent the default action.
func MayPreventDefaultHandler(d *Decoder) Handler {
	return Handler{Kind: MayPreventDefault, Decoder: d}
}

// CustomEventHandler creates a handler controlling both flags.
func CustomEventHandler(d *Decoder) Handler {
	return Handler{Kind: CustomHandler, Decoder: d}
}

// equalHandlers reports whether a listener for a can keep serving b.
func equalHandlers(a, b Handler) bool {
	return a.Kind == b.Kind && a.Decoder.Equal(b.Decoder)
}

// Dispatcher receives decoded messages at the application root. sync is
// true when the handler stopped propagation; such messages must be rendered
// immediately instead of on the next frame.
type Dispatcher func(msg any, sync bool)

// eventRoot routes messages from listeners below a Tagged node upward.
// The root of the chain has no taggers and a non-nil dispatch.
type eventRoot struct {
	taggers  []*Tagger // outermost first
	parent   *eventRoot
	dispatch Dispatcher
}

// deliver threads msg through every tagger up to the root.
func (r *eventRoot) deliver(msg any, sync bool) {
	for r.dispatch == nil {
		for i := len(r.taggers) - 1; i >= 0; i-- {
			msg = r.taggers[i].Apply(msg)
		}
		r = r.parent
	}
	r.dispatch(msg, sync)
}

// listener is the EventListener registered on live nodes. Its handler is
// swapped in place when a later render keeps the same handler kind.
type listener struct {
	engine  *Engine
	handler Handler
	events  *eventRoot
}

// HandleEvent implements EventListener.
func (l *listener) HandleEvent(ev Event) {
	res, err := l.handler.Decoder.Decode(ev)
	if err != nil {
		l.engine.logger.Debug("event decode failed", "event", ev.Type(), "error", err)
		return
	}
	kind := l.handler.Kind
	stop := res.StopPropagation && (kind == MayStopPropagation || kind == CustomHandler)
	prevent := res.PreventDefault && (kind == MayPreventDefault || kind == CustomHandler)
	if stop {
		ev.StopPropagation()
	}
	if prevent {
		ev.PreventDefault()
	}
	l.events.deliver(res.Message, stop)
}
