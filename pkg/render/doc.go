// Package render serializes VNode trees to HTML.
//
// The compact form produced by HTML is the same form pkg/memdom produces for
// live trees, so a patched live tree can be compared with a fresh rendering
// of the new VNode tree:
//
//	want, _ := render.HTML(next)
//	got := root.OuterHTML()
//
// Attributes are written in name order. Properties are reflected as
// attributes (className as class), styles are folded into one style
// attribute, and event handlers are omitted.
//
// To pretty-print for humans:
//
//	renderer := render.NewRenderer(render.RendererConfig{Pretty: true})
//	html, err := renderer.RenderToString(node)
//
// # Security
//
// All text content and attribute values are escaped.
package render
