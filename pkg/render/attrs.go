package render

import (
	"io"
	"sort"
	"strings"

	"github.com/vango-dev/vdiff/pkg/vdom"
)

// Attributes is the serializable state of one element. Attrs holds plain
// and namespaced attributes by qualified name.
type Attributes struct {
	Attrs  map[string]string
	Styles map[string]string
	Props  map[string]any
}

// propertyAttrs maps property names to the attribute they reflect.
var propertyAttrs = map[string]string{
	"className": "class",
	"htmlFor":   "for",
}

type attrValue struct {
	text string
	bare bool
}

// WriteAttributes writes attributes in name order, each preceded by a space.
// Properties override attributes of the same name: true booleans render
// bare, false booleans and nil values are omitted. Styles are collected
// into a single style attribute.
func WriteAttributes(w io.Writer, a Attributes) error {
	merged := make(map[string]attrValue, len(a.Attrs)+len(a.Props)+1)
	for key, value := range a.Attrs {
		merged[key] = attrValue{text: value}
	}
	for key, value := range a.Props {
		name := key
		if mapped, ok := propertyAttrs[key]; ok {
			name = mapped
		}
		switch v := value.(type) {
		case nil:
			continue
		case bool:
			if !v {
				delete(merged, name)
				continue
			}
			merged[name] = attrValue{bare: true}
		default:
			merged[name] = attrValue{text: vdom.PropertyString(v)}
		}
	}
	if style := StyleString(a.Styles); style != "" {
		merged["style"] = attrValue{text: style}
	}

	keys := make([]string, 0, len(merged))
	for key := range merged {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		v := merged[key]
		var err error
		if v.bare {
			_, err = io.WriteString(w, " "+key)
		} else {
			_, err = io.WriteString(w, " "+key+`="`+EscapeAttr(v.text)+`"`)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// StyleString joins styles as "key: value" pairs in key order.
// Empty values are skipped.
func StyleString(styles map[string]string) string {
	if len(styles) == 0 {
		return ""
	}
	keys := make([]string, 0, len(styles))
	for key, value := range styles {
		if value != "" {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, key := range keys {
		parts[i] = key + ": " + styles[key]
	}
	return strings.Join(parts, "; ")
}

// inlineElements don't get newlines in pretty-printed output.
var inlineElements = map[string]bool{
	"a":      true,
	"b":      true,
	"br":     true,
	"code":   true,
	"em":     true,
	"i":      true,
	"label":  true,
	"small":  true,
	"span":   true,
	"strong": true,
}

func isInlineElement(tag string) bool {
	return inlineElements[tag]
}
