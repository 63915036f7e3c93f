package vdom

import "reflect"

// Diff compares two VNode trees and returns the patches needed to transform
// prev into next. Neither tree is modified, except that Lazy nodes in next
// memoize their forced child.
func Diff(prev, next VNode) []Patch {
	var patches []Patch
	diff(prev, next, &patches, 0)
	return patches
}

func pushPatch(patches *[]Patch, index int, op Op) {
	*patches = append(*patches, Patch{Index: index, Op: op})
}

// diff recursively compares nodes and appends patches. index is the
// pre-order position of prev in the current scope.
func diff(prev, next VNode, patches *[]Patch, index int) {
	if prev == next {
		return
	}
	if prev == nil || next == nil {
		pushPatch(patches, index, &Redraw{Node: next})
		return
	}

	if prev.Kind() != next.Kind() {
		// Only plain → keyed is reconciled; every other change redraws.
		keyed, ok := next.(*KeyedNode)
		if !ok || prev.Kind() != KindElement {
			pushPatch(patches, index, &Redraw{Node: next})
			return
		}
		next = keyed.dekey()
	}

	switch x := prev.(type) {
	case *LazyNode:
		diffLazy(x, next.(*LazyNode), patches, index)
	case *TaggedNode:
		diffTagged(x, next.(*TaggedNode), patches, index)
	case *TextNode:
		if y := next.(*TextNode); x.text != y.text {
			pushPatch(patches, index, &UpdateText{Text: y.text})
		}
	case *ElementNode:
		y := next.(*ElementNode)
		if x.tag != y.tag || x.namespace != y.namespace {
			pushPatch(patches, index, &Redraw{Node: next})
			return
		}
		diffFactsPatch(x.facts, y.facts, patches, index)
		diffChildren(x, y, patches, index)
	case *KeyedNode:
		y := next.(*KeyedNode)
		if x.tag != y.tag || x.namespace != y.namespace {
			pushPatch(patches, index, &Redraw{Node: next})
			return
		}
		diffFactsPatch(x.facts, y.facts, patches, index)
		diffKeyedChildren(x, y, patches, index)
	case *CustomNode:
		y := next.(*CustomNode)
		if !sameRef(x.renderer, y.renderer) {
			pushPatch(patches, index, &Redraw{Node: next})
			return
		}
		diffFactsPatch(x.facts, y.facts, patches, index)
		if p := y.renderer.Diff(x.state, y.state); p != nil {
			pushPatch(patches, index, &CallCustomDiff{Patch: p})
		}
	default:
		pushPatch(patches, index, &Redraw{Node: next})
	}
}

// diffLazy reuses the memoized child when refs match, otherwise diffs the
// forced children as a nested scope.
func diffLazy(x, y *LazyNode, patches *[]Patch, index int) {
	if sameRefs(x.refs, y.refs) && x.cached != nil {
		if y.cached == nil {
			y.cached = x.cached
		}
		return
	}
	if x.cached == nil {
		pushPatch(patches, index, &Redraw{Node: y})
		return
	}
	var sub []Patch
	diff(x.cached, y.Force(), &sub, 0)
	if len(sub) > 0 {
		pushPatch(patches, index, &RedrawNested{Patches: sub})
	}
}

// diffTagged compares flattened tagger chains, then the wrapped nodes.
// A whole chain occupies a single index.
func diffTagged(x, y *TaggedNode, patches *[]Patch, index int) {
	xChain, xSub := x.flatten()
	yChain, ySub := y.flatten()
	if len(xChain) != len(yChain) {
		pushPatch(patches, index, &Redraw{Node: y})
		return
	}
	for i := range xChain {
		if xChain[i] != yChain[i] {
			pushPatch(patches, index, &RemapTagger{Taggers: yChain})
			break
		}
	}
	diff(xSub, ySub, patches, index+1)
}

// diffChildren matches children positionally. Excess removals or appends
// are emitted at the parent's index, before any child patch.
func diffChildren(x, y *ElementNode, patches *[]Patch, index int) {
	xKids, yKids := x.children, y.children
	xLen, yLen := len(xKids), len(yKids)

	if xLen > yLen {
		pushPatch(patches, index, &RemoveChildren{From: yLen, Count: xLen - yLen})
	} else if xLen < yLen {
		pushPatch(patches, index, &AppendChildren{From: xLen, Children: yKids[xLen:]})
	}

	minLen := min(xLen, yLen)
	for i := 0; i < minLen; i++ {
		index++
		kid := xKids[i]
		diff(kid, yKids[i], patches, index)
		index += kid.descendants()
	}
}

func diffFactsPatch(x, y Facts, patches *[]Patch, index int) {
	if d := diffFacts(x, y); !d.IsEmpty() {
		pushPatch(patches, index, &UpdateFacts{Diff: d})
	}
}

// diffFacts compares facts category by category.
func diffFacts(x, y Facts) FactsDiff {
	return FactsDiff{
		Styles:       diffCategory(x.Styles, y.Styles, eqString, clearString),
		Events:       diffCategory(x.Events, y.Events, equalHandlers, clearHandler),
		Attributes:   diffCategory(x.Attributes, y.Attributes, eqString, clearString),
		AttributesNS: diffCategory(x.AttributesNS, y.AttributesNS, eqNSAttr, clearNSAttr),
		Properties:   diffProperties(x.Properties, y.Properties),
	}
}

func eqString(a, b string) bool { return a == b }
func eqNSAttr(a, b NSAttr) bool { return a == b }

func clearString(string) string    { return "" }
func clearHandler(Handler) Handler { return Handler{} }

// clearNSAttr keeps the namespace so the attribute can be removed from it.
func clearNSAttr(old NSAttr) NSAttr { return NSAttr{Namespace: old.Namespace} }

// diffCategory returns nil when nothing changed.
func diffCategory[T any](x, y map[string]T, eq func(a, b T) bool, clear func(T) T) map[string]Change[T] {
	var out map[string]Change[T]
	set := func(key string, c Change[T]) {
		if out == nil {
			out = make(map[string]Change[T])
		}
		out[key] = c
	}
	for key, xv := range x {
		yv, ok := y[key]
		if !ok {
			set(key, Change[T]{Value: clear(xv), Remove: true})
			continue
		}
		if !eq(xv, yv) {
			set(key, Change[T]{Value: yv})
		}
	}
	for key, yv := range y {
		if _, ok := x[key]; !ok {
			set(key, Change[T]{Value: yv})
		}
	}
	return out
}

// diffProperties is diffCategory for properties, except that "value" and
// "checked" are always re-sent: user input may have changed the live node.
func diffProperties(x, y map[string]any) map[string]Change[any] {
	var out map[string]Change[any]
	set := func(key string, c Change[any]) {
		if out == nil {
			out = make(map[string]Change[any])
		}
		out[key] = c
	}
	for key, xv := range x {
		yv, ok := y[key]
		if !ok {
			var cleared any
			if _, isString := xv.(string); isString {
				cleared = ""
			}
			set(key, Change[any]{Value: cleared, Remove: true})
			continue
		}
		if key == "value" || key == "checked" || !valuesEqual(xv, yv) {
			set(key, Change[any]{Value: yv})
		}
	}
	for key, yv := range y {
		if _, ok := x[key]; !ok {
			set(key, Change[any]{Value: yv})
		}
	}
	return out
}

// sameRefs compares memoization inputs pairwise.
func sameRefs(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !sameRef(a[i], b[i]) {
			return false
		}
	}
	return true
}

// sameRef reports reference equality: pointers, maps, slices and channels
// by identity, comparable scalars by value. Functions are never equal.
func sameRef(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	switch va.Kind() {
	case reflect.Func:
		return false
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	}
	if !va.Type().Comparable() {
		return false
	}
	return comparableEqual(a, b)
}

// comparableEqual is a == b, false when an interface field inside a
// comparable type holds an uncomparable value.
func comparableEqual(a, b any) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = false
		}
	}()
	return a == b
}
