package vdom

// SVGNamespace is the namespace of SVG elements.
const SVGNamespace = "http://www.w3.org/2000/svg"

// voidElements are elements that cannot have children.
var voidElements = map[string]bool{
	"area":   true,
	"base":   true,
	"br":     true,
	"col":    true,
	"embed":  true,
	"hr":     true,
	"img":    true,
	"input":  true,
	"link":   true,
	"meta":   true,
	"param":  true,
	"source": true,
	"track":  true,
	"wbr":    true,
}

// IsVoidElement returns true if the tag is a void element.
func IsVoidElement(tag string) bool {
	return voidElements[tag]
}

// splitArgs sorts builder arguments into facts and children.
// Arguments can be: nil, Fact, []Fact, VNode, []VNode, string.
func splitArgs(args []any) ([]Fact, []VNode) {
	var facts []Fact
	var children []VNode
	for _, arg := range args {
		switch v := arg.(type) {
		case nil:
			continue
		case Fact:
			facts = append(facts, v)
		case []Fact:
			facts = append(facts, v...)
		case string:
			children = append(children, Text(v))
		case []VNode:
			children = append(children, v...)
		case KeyedChild:
			// keyed children only make sense under Keyed builders
			children = append(children, v.Node)
		case VNode:
			children = append(children, v)
		}
	}
	return facts, children
}

func createElement(tag string, args []any) *ElementNode {
	facts, children := splitArgs(args)
	return Element(tag, facts, children...)
}

// CustomElement creates an element with a custom tag name.
func CustomElement(tag string, args ...any) *ElementNode {
	return createElement(tag, args)
}

// SVG creates an element in the SVG namespace.
func SVG(tag string, args ...any) *ElementNode {
	facts, children := splitArgs(args)
	return ElementNS(SVGNamespace, tag, facts, children...)
}

// KeyedElement creates a keyed element. Arguments can be Fact, []Fact,
// KeyedChild and []KeyedChild.
func KeyedElement(tag string, args ...any) *KeyedNode {
	var facts []Fact
	var children []KeyedChild
	for _, arg := range args {
		switch v := arg.(type) {
		case Fact:
			facts = append(facts, v)
		case []Fact:
			facts = append(facts, v...)
		case KeyedChild:
			children = append(children, v)
		case []KeyedChild:
			children = append(children, v...)
		}
	}
	return Keyed(tag, facts, children...)
}

// KeyedUl creates a keyed <ul>.
func KeyedUl(args ...any) *KeyedNode { return KeyedElement("ul", args...) }

// KeyedOl creates a keyed <ol>.
func KeyedOl(args ...any) *KeyedNode { return KeyedElement("ol", args...) }

// KeyedTbody creates a keyed <tbody>.
func KeyedTbody(args ...any) *KeyedNode { return KeyedElement("tbody", args...) }

// Sectioning elements

func Header(args ...any) *ElementNode  { return createElement("header", args) }
func Footer(args ...any) *ElementNode  { return createElement("footer", args) }
func Main(args ...any) *ElementNode    { return createElement("main", args) }
func Nav(args ...any) *ElementNode     { return createElement("nav", args) }
func Section(args ...any) *ElementNode { return createElement("section", args) }
func Article(args ...any) *ElementNode { return createElement("article", args) }
func Aside(args ...any) *ElementNode   { return createElement("aside", args) }
func H1(args ...any) *ElementNode      { return createElement("h1", args) }
func H2(args ...any) *ElementNode      { return createElement("h2", args) }
func H3(args ...any) *ElementNode      { return createElement("h3", args) }

// Grouping elements

func Div(args ...any) *ElementNode  { return createElement("div", args) }
func P(args ...any) *ElementNode    { return createElement("p", args) }
func Span(args ...any) *ElementNode { return createElement("span", args) }
func Pre(args ...any) *ElementNode  { return createElement("pre", args) }
func Ul(args ...any) *ElementNode   { return createElement("ul", args) }
func Ol(args ...any) *ElementNode   { return createElement("ol", args) }
func Li(args ...any) *ElementNode   { return createElement("li", args) }
func Hr(args ...any) *ElementNode   { return createElement("hr", args) }

// Inline text semantics

func A(args ...any) *ElementNode      { return createElement("a", args) }
func Strong(args ...any) *ElementNode { return createElement("strong", args) }
func Em(args ...any) *ElementNode     { return createElement("em", args) }
func Code(args ...any) *ElementNode   { return createElement("code", args) }
func Br(args ...any) *ElementNode     { return createElement("br", args) }

// Form elements

func Form(args ...any) *ElementNode     { return createElement("form", args) }
func Input(args ...any) *ElementNode    { return createElement("input", args) }
func Textarea(args ...any) *ElementNode { return createElement("textarea", args) }
func Select(args ...any) *ElementNode   { return createElement("select", args) }
func Option(args ...any) *ElementNode   { return createElement("option", args) }
func Button(args ...any) *ElementNode   { return createElement("button", args) }
func Label(args ...any) *ElementNode    { return createElement("label", args) }

// Table elements

func Table(args ...any) *ElementNode { return createElement("table", args) }
func Thead(args ...any) *ElementNode { return createElement("thead", args) }
func Tbody(args ...any) *ElementNode { return createElement("tbody", args) }
func Tr(args ...any) *ElementNode    { return createElement("tr", args) }
func Th(args ...any) *ElementNode    { return createElement("th", args) }
func Td(args ...any) *ElementNode    { return createElement("td", args) }

// Media elements

func Img(args ...any) *ElementNode    { return createElement("img", args) }
func Canvas(args ...any) *ElementNode { return createElement("canvas", args) }
