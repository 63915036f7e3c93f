package vdom

import (
	"fmt"
	"reflect"
	"strconv"
)

// factKind is the category of a single Fact.
type factKind uint8

const (
	factNone factKind = iota
	factStyle
	factEvent
	factAttribute
	factAttributeNS
	factProperty
)

// Fact is a single attribute, property, style or event entry on a node.
// The zero Fact is ignored by Normalize.
type Fact struct {
	kind      factKind
	key       string
	namespace string
	value     any
}

// IsEmpty returns true if this fact carries nothing.
func (f Fact) IsEmpty() bool {
	return f.kind == factNone || f.key == ""
}

// Key returns the fact key.
func (f Fact) Key() string { return f.key }

// NSAttr is a namespaced attribute value.
type NSAttr struct {
	Namespace string
	Value     string
}

// Facts is the normalized, categorized form of a fact list.
type Facts struct {
	Styles       map[string]string
	Events       map[string]Handler
	Attributes   map[string]string
	AttributesNS map[string]NSAttr
	Properties   map[string]any
}

// IsEmpty returns true if no category holds an entry.
func (f Facts) IsEmpty() bool {
	return len(f.Styles) == 0 && len(f.Events) == 0 && len(f.Attributes) == 0 &&
		len(f.AttributesNS) == 0 && len(f.Properties) == 0
}

// Normalize groups facts by category. Later entries override earlier ones
// with the same key, except the "className" property and the "class"
// attribute, which accumulate space-separated.
func Normalize(facts []Fact) Facts {
	var out Facts
	for _, f := range facts {
		if f.IsEmpty() {
			continue
		}
		switch f.kind {
		case factStyle:
			if out.Styles == nil {
				out.Styles = make(map[string]string)
			}
			out.Styles[f.key] = f.value.(string)
		case factEvent:
			if out.Events == nil {
				out.Events = make(map[string]Handler)
			}
			out.Events[f.key] = f.value.(Handler)
		case factAttribute:
			if out.Attributes == nil {
				out.Attributes = make(map[string]string)
			}
			v := f.value.(string)
			if f.key == "class" {
				addClass(out.Attributes, f.key, v)
			} else {
				out.Attributes[f.key] = v
			}
		case factAttributeNS:
			if out.AttributesNS == nil {
				out.AttributesNS = make(map[string]NSAttr)
			}
			out.AttributesNS[f.key] = NSAttr{Namespace: f.namespace, Value: f.value.(string)}
		case factProperty:
			if out.Properties == nil {
				out.Properties = make(map[string]any)
			}
			if s, ok := f.value.(string); ok && f.key == "className" {
				addClassAny(out.Properties, f.key, s)
			} else {
				out.Properties[f.key] = f.value
			}
		}
	}
	return out
}

func addClass(m map[string]string, key, class string) {
	if prev, ok := m[key]; ok && prev != "" {
		m[key] = prev + " " + class
		return
	}
	m[key] = class
}

func addClassAny(m map[string]any, key, class string) {
	if prev, ok := m[key].(string); ok && prev != "" {
		m[key] = prev + " " + class
		return
	}
	m[key] = class
}

// Attribute sets a plain attribute.
func Attribute(key, value string) Fact {
	return Fact{kind: factAttribute, key: key, value: value}
}

// AttributeNS sets a namespaced attribute (e.g. xlink:href).
func AttributeNS(namespace, key, value string) Fact {
	return Fact{kind: factAttributeNS, key: key, namespace: namespace, value: value}
}

// Style sets a single style property.
func Style(key, value string) Fact {
	return Fact{kind: factStyle, key: key, value: value}
}

// Property sets a live-node property.
func Property(key string, value any) Fact {
	return Fact{kind: factProperty, key: key, value: value}
}

// On attaches a handler for the named event (without the "on" prefix).
func On(event string, handler Handler) Fact {
	if handler.Decoder == nil {
		return Fact{}
	}
	return Fact{kind: factEvent, key: event, value: handler}
}

// OnClick dispatches msg on click.
func OnClick(msg any) Fact { return On("click", NormalHandler(Succeed(msg))) }

// OnInput decodes input events with d. The decoder may request stopping
// propagation, which makes the resulting render cycle synchronous.
func OnInput(d *Decoder) Fact { return On("input", MayStopPropagationHandler(d)) }

// ClassName sets the className property. Repeated uses accumulate.
func ClassName(class string) Fact { return Property("className", class) }

// Class sets the class attribute. Repeated uses accumulate.
func Class(class string) Fact { return Attribute("class", class) }

// ClassIf adds a class conditionally.
func ClassIf(condition bool, class string) Fact {
	if condition {
		return Class(class)
	}
	return Fact{}
}

// ID sets the id attribute.
func ID(id string) Fact { return Attribute("id", id) }

// Href sets the href attribute.
func Href(url string) Fact { return Attribute("href", url) }

// Type sets the type attribute.
func Type(t string) Fact { return Attribute("type", t) }

// Placeholder sets the placeholder attribute.
func Placeholder(text string) Fact { return Attribute("placeholder", text) }

// Title sets the title attribute.
func Title(title string) Fact { return Attribute("title", title) }

// Data creates a data-* attribute.
// Example: Data("id", "123") → data-id="123"
func Data(key, value string) Fact { return Attribute("data-"+key, value) }

// Value sets the value property.
func Value(value string) Fact { return Property("value", value) }

// Checked sets the checked property.
func Checked(checked bool) Fact { return Property("checked", checked) }

// valuesEqual compares two property values structurally.
func valuesEqual(a, b any) bool {
	// Fast path for common types
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case int:
		bv, ok := b.(int)
		return ok && av == bv
	case int64:
		bv, ok := b.(int64)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case nil:
		return b == nil
	}
	// Fallback to reflect for complex types
	return reflect.DeepEqual(a, b)
}

// PropertyString formats a property value for serialization.
func PropertyString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}
