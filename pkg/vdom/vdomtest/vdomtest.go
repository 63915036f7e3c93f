// Package vdomtest provides helpers for testing code built on vdom.
package vdomtest

import (
	"math/rand"
	"strconv"

	"github.com/vango-dev/vdiff/pkg/vdom"
)

// Canvas is a CustomRenderer that renders an empty <canvas> and never
// patches it.
type Canvas struct{}

// Render implements vdom.CustomRenderer.
func (Canvas) Render(doc vdom.Document, state any) vdom.Node { return doc.CreateElement("canvas") }

// Diff implements vdom.CustomRenderer.
func (Canvas) Diff(oldState, newState any) vdom.CustomPatch { return nil }

var (
	tags    = []string{"div", "span", "p", "ul", "li", "section"}
	keys    = []string{"a", "b", "c", "d", "e", "f"}
	classes = []string{"", "x", "y"}
	words   = []string{"one", "two", "three"}

	identity = vdom.NewTagger(func(msg any) any { return msg })
)

// RandomTree builds a pseudo-random tree of at most the given depth. Trees
// from different seeds draw tags, keys and facts from small shared sets,
// so diffs between them hit facts updates, keyed moves, duplicate keys,
// tagger chains and lazy nodes.
func RandomTree(seed int64, depth int) vdom.VNode {
	g := generator{r: rand.New(rand.NewSource(seed))}
	return g.node(depth)
}

type generator struct {
	r *rand.Rand
}

func (g *generator) pick(s []string) string { return s[g.r.Intn(len(s))] }

func (g *generator) node(depth int) vdom.VNode {
	if depth <= 0 {
		return vdom.Text(g.pick(words))
	}
	switch g.r.Intn(8) {
	case 0:
		return vdom.Text(g.pick(words))
	case 1:
		return g.keyed(depth)
	case 2:
		child := g.node(depth - 1)
		for n := g.r.Intn(3); n >= 0; n-- {
			child = vdom.Map(identity, child)
		}
		return child
	case 3:
		ref := g.r.Intn(3)
		return vdom.Lazy(func() vdom.VNode { return lazyView(ref) }, ref)
	default:
		return g.element(depth)
	}
}

func (g *generator) facts() []vdom.Fact {
	var facts []vdom.Fact
	if c := g.pick(classes); c != "" {
		facts = append(facts, vdom.Class(c))
	}
	if g.r.Intn(2) == 0 {
		facts = append(facts, vdom.Style("color", g.pick([]string{"red", "blue"})))
	}
	if g.r.Intn(3) == 0 {
		facts = append(facts, vdom.Data("n", strconv.Itoa(g.r.Intn(3))))
	}
	return facts
}

func (g *generator) element(depth int) vdom.VNode {
	tag := g.pick(tags)
	facts := g.facts()
	kids := make([]vdom.VNode, g.r.Intn(4))
	for i := range kids {
		kids[i] = g.node(depth - 1)
	}
	return vdom.Element(tag, facts, kids...)
}

func (g *generator) keyed(depth int) vdom.VNode {
	facts := g.facts()
	kids := make([]vdom.KeyedChild, g.r.Intn(6))
	for i := range kids {
		k := g.pick(keys)
		kids[i] = vdom.K(k, vdom.Element("li", []vdom.Fact{vdom.ID("li-" + k)}, g.node(depth-1)))
	}
	return vdom.Keyed("ul", facts, kids...)
}

// lazyView depends only on ref, so equal refs always mean equal output.
func lazyView(ref int) vdom.VNode {
	kids := make([]vdom.VNode, ref+1)
	for i := range kids {
		kids[i] = vdom.Text(words[(ref+i)%len(words)])
	}
	return vdom.Element("p", []vdom.Fact{vdom.Class("lazy")}, kids...)
}
