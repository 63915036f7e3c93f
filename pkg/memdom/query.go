package memdom

// Matcher selects nodes in Find and FindAll.
type Matcher func(*Node) bool

// ByTag matches elements with the given tag.
func ByTag(tag string) Matcher {
	return func(n *Node) bool { return !n.isText && n.tag == tag }
}

// ByID matches the element whose id attribute is id.
func ByID(id string) Matcher {
	return func(n *Node) bool { return n.attrs["id"] == id && id != "" }
}

// ByText matches text nodes with exactly the given content.
func ByText(text string) Matcher {
	return func(n *Node) bool { return n.isText && n.text == text }
}

// Find returns the first node in pre-order matching m, or nil.
func (n *Node) Find(m Matcher) *Node {
	if m(n) {
		return n
	}
	for _, kid := range n.children {
		if found := kid.Find(m); found != nil {
			return found
		}
	}
	return nil
}

// FindAll returns every node in pre-order matching m.
func (n *Node) FindAll(m Matcher) []*Node {
	var out []*Node
	n.walk(func(c *Node) {
		if m(c) {
			out = append(out, c)
		}
	})
	return out
}

// Count returns the number of nodes in the subtree, n included.
func (n *Node) Count() int {
	count := 0
	n.walk(func(*Node) { count++ })
	return count
}

func (n *Node) walk(fn func(*Node)) {
	fn(n)
	for _, kid := range n.children {
		kid.walk(fn)
	}
}
