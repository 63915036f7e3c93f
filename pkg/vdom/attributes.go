package vdom

import (
	"errors"
	"strconv"
)

// ErrNoTargetValue is returned by value decoders when the event carries no
// target value.
var ErrNoTargetValue = errors.New("vdom: event has no target value")

// ValueEvent is implemented by events whose target has a value, such as
// input and change events.
type ValueEvent interface {
	Event
	TargetValue() (string, bool)
}

// TargetValue decodes the target value of an event into a message.
func TargetValue(toMsg func(string) any) *Decoder {
	return MessageDecoder(func(ev Event) (any, error) {
		ve, ok := ev.(ValueEvent)
		if !ok {
			return nil, ErrNoTargetValue
		}
		v, ok := ve.TargetValue()
		if !ok {
			return nil, ErrNoTargetValue
		}
		return toMsg(v), nil
	})
}

// OnWith attaches a decoder with an explicit handler kind.
func OnWith(event string, kind HandlerKind, d *Decoder) Fact {
	return On(event, Handler{Kind: kind, Decoder: d})
}

// OnChange decodes change events with d.
func OnChange(d *Decoder) Fact { return On("change", NormalHandler(d)) }

// OnSubmit dispatches msg on submit and prevents the default navigation.
func OnSubmit(msg any) Fact {
	return On("submit", MayPreventDefaultHandler(NewDecoder(func(Event) (Decoded, error) {
		return Decoded{Message: msg, PreventDefault: true}, nil
	})))
}

// Accessibility attributes

// Role sets the role attribute.
func Role(role string) Fact { return Attribute("role", role) }

// AriaLabel sets the aria-label attribute.
func AriaLabel(label string) Fact { return Attribute("aria-label", label) }

// AriaHidden sets the aria-hidden attribute.
func AriaHidden(hidden bool) Fact { return Attribute("aria-hidden", strconv.FormatBool(hidden)) }

// TabIndex sets the tabindex attribute.
func TabIndex(index int) Fact { return Attribute("tabindex", strconv.Itoa(index)) }

// Link attributes

// Target sets the target attribute.
func Target(target string) Fact { return Attribute("target", target) }

// Rel sets the rel attribute.
func Rel(rel string) Fact { return Attribute("rel", rel) }

// Form input attributes

// Name sets the name attribute.
func Name(name string) Fact { return Attribute("name", name) }

// For sets the for attribute of a label.
func For(id string) Fact { return Attribute("for", id) }

// Disabled sets the disabled property.
func Disabled(disabled bool) Fact { return Property("disabled", disabled) }

// Src sets the src attribute.
func Src(url string) Fact { return Attribute("src", url) }

// Alt sets the alt attribute.
func Alt(text string) Fact { return Attribute("alt", text) }

// SVG attributes

// XLinkNamespace is the namespace of xlink attributes.
const XLinkNamespace = "http://www.w3.org/1999/xlink"

// XLinkHref sets xlink:href on SVG elements.
func XLinkHref(url string) Fact { return AttributeNS(XLinkNamespace, "xlink:href", url) }

// ViewBox sets the viewBox attribute.
func ViewBox(box string) Fact { return Attribute("viewBox", box) }
