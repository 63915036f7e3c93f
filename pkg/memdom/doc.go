// Package memdom is an in-memory implementation of vdom.Document.
//
// It backs tests, benchmarks, the CLI and the dev server. Nodes support
// event listeners with bubbling and serialize to the same compact HTML as
// render.HTML, so a patched tree can be checked against a fresh rendering:
//
//	doc := memdom.NewDocument()
//	engine := vdom.NewEngine(doc, dispatch)
//	root := engine.Render(tree).(*memdom.Node)
//	root.Find(memdom.ByTag("button")).Click()
package memdom
