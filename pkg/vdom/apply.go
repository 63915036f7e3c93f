package vdom

// Apply patches the live tree rooted at root, which must have been rendered
// from old, and returns the root afterwards. The root changes when the
// whole tree is redrawn.
func (e *Engine) Apply(root Node, old VNode, patches []Patch) Node {
	if len(patches) == 0 {
		return root
	}
	l := &locator{engine: e, targets: make(map[*Patch]target)}
	l.scope(root, old, patches, e.root, 0)

	a := &applier{
		engine:  e,
		targets: l.targets,
		moved:   make(map[*KeyedEntry]Node),
	}
	return a.applyAll(root, patches)
}

type applier struct {
	engine  *Engine
	targets map[*Patch]target
	// moved holds detached keyed nodes waiting for their insert.
	moved map[*KeyedEntry]Node
}

func (a *applier) applyAll(root Node, patches []Patch) Node {
	for i := range patches {
		p := &patches[i]
		t, ok := a.targets[p]
		if !ok {
			panic(internalError("E102", "unresolved patch index", p.Index))
		}
		node := a.apply(t, p.Op)
		if t.node == root {
			root = node
		}
	}
	return root
}

// apply runs one op and returns the node occupying the target's position.
func (a *applier) apply(t target, op Op) Node {
	e := a.engine
	node := t.node

	switch op := op.(type) {
	case *Redraw:
		return a.redraw(t, op.Node)

	case *RedrawNested:
		return a.applyAll(node, op.Patches)

	case *RemapTagger:
		e.eventRootAt(node, t.layer).taggers = op.Taggers
		return node

	case *UpdateText:
		node.SetText(op.Text)
		return node

	case *UpdateFacts:
		e.applyFactsDiff(node, t.events, op.Diff)
		return node

	case *CallCustomDiff:
		next := op.Patch(node)
		if next == nil || next == node {
			return node
		}
		if parent := node.ParentNode(); parent != nil {
			parent.ReplaceChild(next, node)
		}
		e.adopt(node, next)
		return next

	case *AppendChildren:
		for _, kid := range op.Children {
			node.AppendChild(e.render(kid, t.events))
		}
		return node

	case *RemoveChildren:
		for n := 0; n < op.Count; n++ {
			kid := node.ChildAt(op.From)
			if kid == nil {
				panic(internalError("E102", "missing child node", op.From))
			}
			node.RemoveChild(kid)
			e.forget(kid)
		}
		return node

	case *KeyedReorder:
		return a.reorder(t, op)

	case *KeyedRemove:
		if parent := node.ParentNode(); parent != nil {
			parent.RemoveChild(node)
		}
		if op.Entry.State != EntryMoved {
			e.forget(node)
			return node
		}
		a.moved[op.Entry] = a.applyAll(node, op.Patches)
		return node

	default:
		panic(internalError("E101", "apply", op))
	}
}

// redraw replaces the target with a fresh rendering of v. Tagger layers of
// chains enclosing the target carry over to the new node.
func (a *applier) redraw(t target, v VNode) Node {
	e := a.engine
	old := t.node

	layers := e.layers[old]
	if t.layer > len(layers) {
		panic(internalError("E103", "tagger", old))
	}
	outer := append([]*eventRoot(nil), layers[:t.layer]...)

	node := e.render(v, t.events)
	if len(outer) > 0 {
		e.layers[node] = append(outer, e.layers[node]...)
	}
	if parent := old.ParentNode(); parent != nil {
		parent.ReplaceChild(node, old)
	}
	e.forget(old)
	return node
}

// reorder applies local patches (pair diffs and removals) first, then
// inserts at their recorded positions, then end inserts.
func (a *applier) reorder(t target, op *KeyedReorder) Node {
	node := t.node
	a.applyAll(node, op.Patches)

	for _, ins := range op.Inserts {
		node.InsertBefore(a.insertNode(t, ins.Entry), node.ChildAt(ins.Position))
	}
	for _, ins := range op.EndInserts {
		node.AppendChild(a.insertNode(t, ins.Entry))
	}
	return node
}

func (a *applier) insertNode(t target, entry *KeyedEntry) Node {
	if entry.State != EntryMoved {
		return a.engine.render(entry.Node, t.events)
	}
	node, ok := a.moved[entry]
	if !ok {
		panic(internalError("E102", "moved node not detached", entry.Key))
	}
	delete(a.moved, entry)
	return node
}

// adopt moves the side-table entries of old to its replacement.
func (e *Engine) adopt(old, node Node) {
	if layers, ok := e.layers[old]; ok {
		e.layers[node] = layers
		delete(e.layers, old)
	}
	if all, ok := e.listeners[old]; ok {
		for name, l := range all {
			old.RemoveEventListener(name, l)
			node.AddEventListener(name, l, l.handler.Kind.passive())
		}
		e.listeners[node] = all
		delete(e.listeners, old)
	}
}
