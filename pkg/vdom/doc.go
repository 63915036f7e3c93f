// Package vdom provides the virtual DOM diffing and patching engine.
//
// A VNode is an immutable description of a UI tree. Diff compares two trees
// and returns a list of Patch values addressed by the pre-order index of
// their target in the old tree. An Engine renders trees into the live nodes
// of a Document and applies patch lists to them.
//
// # Core Types
//
// There are six node kinds: Text, Element, Keyed (element whose children
// carry stable keys), Tagged (maps messages produced below it), Custom
// (externally managed) and Lazy (memoized by reference equality of its
// inputs). Attributes, styles, properties and event handlers are Facts.
//
// # Element API
//
// Elements are created using variadic factory functions:
//
//	Div(Class("card"), ID("main"),
//	    H1(Text("Title")),
//	    P(Text("Content")),
//	    Button(OnClick(Increment{}), Text("+")),
//	)
//
// # Patching
//
//	engine := vdom.NewEngine(doc, dispatch)
//	root := engine.Render(oldTree)
//	root = engine.Apply(root, oldTree, vdom.Diff(oldTree, newTree))
//
// Apply locates every patch target before mutating anything. A live tree
// must only be modified through the engine that rendered it.
//
// # Events
//
// Handlers decode platform events into messages. Messages bubble through
// the taggers of every enclosing Tagged node and reach the Dispatcher.
// A handler that stops propagation marks its message synchronous.
package vdom
