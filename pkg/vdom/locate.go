package vdom

// target is the resolved position of one patch in the live tree.
type target struct {
	node   Node
	events *eventRoot
	// layer is the number of Tagged chains rooted at node that enclose the
	// patched position.
	layer int
}

// locator resolves patch indices to live nodes in one pre-order walk of the
// old tree. It runs to completion before the applier mutates anything.
type locator struct {
	engine  *Engine
	targets map[*Patch]target
}

// scope locates a complete patch list whose indices start at 0 at v.
func (l *locator) scope(node Node, v VNode, patches []Patch, events *eventRoot, layer int) {
	if len(patches) == 0 {
		return
	}
	i := l.locate(node, v, patches, 0, 0, Descendants(v), events, layer)
	if i != len(patches) {
		panic(internalError("E102", "unresolved patch index", patches[i].Index))
	}
}

// locate consumes the patches whose indices fall in [low, high], the range
// covered by v, and returns the index of the first patch it did not consume.
func (l *locator) locate(node Node, v VNode, patches []Patch, i, low, high int, events *eventRoot, layer int) int {
	for i < len(patches) && patches[i].Index == low {
		p := &patches[i]
		l.targets[p] = target{node: node, events: events, layer: layer}

		switch op := p.Op.(type) {
		case *RedrawNested:
			lazy, ok := v.(*LazyNode)
			if !ok || lazy.cached == nil {
				panic(internalError("E102", "nested patches without a memoized node", v))
			}
			l.scope(node, lazy.cached, op.Patches, events, layer)

		case *KeyedReorder:
			l.nested(node, v, op.Patches, low, high, events, layer)

		case *KeyedRemove:
			l.nested(node, v, op.Patches, low, high, events, layer)
		}

		i++
	}
	if i >= len(patches) || patches[i].Index > high {
		return i
	}

	switch n := v.(type) {
	case *TaggedNode:
		_, sub := n.flatten()
		inner := l.engine.eventRootAt(node, layer)
		return l.locate(node, sub, patches, i, low+1, high, inner, layer+1)

	case *ElementNode:
		for j, kid := range n.children {
			low++
			next := low + kid.descendants()
			if idx := patches[i].Index; low <= idx && idx <= next {
				i = l.locate(l.child(node, j), kid, patches, i, low, next, events, 0)
				if i >= len(patches) || patches[i].Index > high {
					return i
				}
			}
			low = next
		}

	case *KeyedNode:
		for j, kid := range n.children {
			low++
			next := low + kid.Node.descendants()
			if idx := patches[i].Index; low <= idx && idx <= next {
				i = l.locate(l.child(node, j), kid.Node, patches, i, low, next, events, 0)
				if i >= len(patches) || patches[i].Index > high {
					return i
				}
			}
			low = next
		}
	}
	return i
}

// nested locates sub-patches sharing the enclosing patch's scope.
func (l *locator) nested(node Node, v VNode, patches []Patch, low, high int, events *eventRoot, layer int) {
	if len(patches) == 0 {
		return
	}
	if i := l.locate(node, v, patches, 0, low, high, events, layer); i != len(patches) {
		panic(internalError("E102", "unresolved patch index", patches[i].Index))
	}
}

func (l *locator) child(node Node, j int) Node {
	kid := node.ChildAt(j)
	if kid == nil {
		panic(internalError("E102", "missing child node", j))
	}
	return kid
}
