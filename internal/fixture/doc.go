// Package fixture reads vdom trees from YAML.
//
// A node is a mapping with exactly one of text, el, keyed or lazy. A bare
// string is shorthand for a text node.
//
//	el: div
//	attrs: {class: app}
//	styles: {color: red}
//	props: {hidden: true}
//	children:
//	  - text: hello
//	  - keyed: ul
//	    children:
//	      - {key: a, el: li, children: [alpha]}
//	  - lazy: {el: footer, children: [done]}
//
// Elements also accept ns. Keyed children carry a key field next to their
// node fields. A file may hold several documents separated by ---.
//
// Read and syntax errors are E311; malformed nodes are E312. Both carry the
// file and line.
package fixture
