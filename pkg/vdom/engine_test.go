package vdom_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/vango-dev/vdiff/pkg/memdom"
	"github.com/vango-dev/vdiff/pkg/render"
	"github.com/vango-dev/vdiff/pkg/vdom"
)

type dispatched struct {
	msg  any
	sync bool
}

type harness struct {
	t      *testing.T
	engine *vdom.Engine
	root   vdom.Node
	tree   vdom.VNode
	msgs   []dispatched
}

func mount(t *testing.T, tree vdom.VNode) *harness {
	t.Helper()
	h := &harness{t: t, tree: tree}
	h.engine = vdom.NewEngine(memdom.NewDocument(), func(msg any, sync bool) {
		h.msgs = append(h.msgs, dispatched{msg: msg, sync: sync})
	})
	h.root = h.engine.Render(tree)
	h.check()
	return h
}

func (h *harness) update(next vdom.VNode) []vdom.Patch {
	h.t.Helper()
	patches := vdom.Diff(h.tree, next)
	h.root = h.engine.Apply(h.root, h.tree, patches)
	h.tree = next
	h.check()
	return patches
}

func (h *harness) dom() *memdom.Node {
	return h.root.(*memdom.Node)
}

func (h *harness) check() {
	h.t.Helper()
	want, err := render.HTML(h.tree)
	if err != nil {
		h.t.Fatalf("render: %v", err)
	}
	if got := h.dom().OuterHTML(); got != want {
		h.t.Fatalf("live tree mismatch\n got: %s\nwant: %s", got, want)
	}
}

func items(keys ...string) vdom.VNode {
	kids := make([]vdom.KeyedChild, len(keys))
	for i, k := range keys {
		kids[i] = vdom.K(k, vdom.Li(vdom.ID("li-"+k), vdom.Text(k)))
	}
	return vdom.KeyedUl(vdom.Class("list"), kids)
}

func TestApplyRoundTrip(t *testing.T) {
	tagger := vdom.NewTagger(func(m any) any { return m })
	model := &struct{ n int }{n: 1}

	tests := []struct {
		name string
		prev vdom.VNode
		next vdom.VNode
	}{
		{name: "text", prev: vdom.Text("a"), next: vdom.Text("b")},
		{name: "root tag change", prev: vdom.Div(vdom.Text("a")), next: vdom.Span(vdom.Text("a"))},
		{
			name: "attributes",
			prev: vdom.Div(vdom.ID("x"), vdom.Class("a"), vdom.Title("t")),
			next: vdom.Div(vdom.ID("y"), vdom.Class("a"), vdom.Data("k", "v")),
		},
		{
			name: "styles and properties",
			prev: vdom.Div(vdom.Style("color", "red"), vdom.ClassName("c"), vdom.Property("tabIndex", 1)),
			next: vdom.Div(vdom.Style("margin", "0"), vdom.Property("tabIndex", 2)),
		},
		{
			name: "append children",
			prev: vdom.Element("ul", nil, vdom.Text("a"), vdom.Text("b")),
			next: vdom.Element("ul", nil, vdom.Text("a"), vdom.Text("b"), vdom.Text("c")),
		},
		{
			name: "remove children",
			prev: vdom.Div(vdom.P(vdom.Text("a")), vdom.P(vdom.Text("b")), vdom.P(vdom.Text("c"))),
			next: vdom.Div(vdom.P(vdom.Text("A"))),
		},
		{
			name: "nested changes",
			prev: vdom.Div(vdom.Header(vdom.H1(vdom.Text("t"))), vdom.Main(vdom.P(vdom.Text("x")), vdom.Ul(vdom.Li(vdom.Text("1"))))),
			next: vdom.Div(vdom.Header(vdom.H1(vdom.Text("T"))), vdom.Main(vdom.P(vdom.Text("x"), vdom.Em(vdom.Text("!"))), vdom.Ul())),
		},
		{name: "keyed append", prev: items("a", "b"), next: items("a", "b", "c")},
		{name: "keyed prepend", prev: items("b", "c"), next: items("a", "b", "c")},
		{name: "keyed remove", prev: items("a", "b", "c"), next: items("a", "c")},
		{name: "keyed replace", prev: items("a", "b", "c"), next: items("a", "x", "c")},
		{name: "keyed swap", prev: items("a", "b", "c", "d"), next: items("b", "a", "d", "c")},
		{name: "keyed rotate", prev: items("a", "b", "c"), next: items("c", "a", "b")},
		{name: "keyed reverse", prev: items("a", "b", "c", "d", "e"), next: items("e", "d", "c", "b", "a")},
		{name: "keyed shuffle", prev: items("a", "b", "c", "d", "e", "f"), next: items("f", "c", "x", "a", "e")},
		{name: "keyed clear", prev: items("a", "b"), next: items()},
		{name: "keyed duplicates", prev: items("a", "a", "b"), next: items("b", "a", "a", "a")},
		{
			name: "plain to keyed",
			prev: vdom.Ul(vdom.Class("list"), vdom.Li(vdom.ID("li-a"), vdom.Text("a"))),
			next: items("a", "b"),
		},
		{
			name: "keyed to plain",
			prev: items("a", "b"),
			next: vdom.Ul(vdom.Class("list"), vdom.Li(vdom.Text("a"))),
		},
		{
			name: "tagged child",
			prev: vdom.Div(vdom.Map(tagger, vdom.P(vdom.Text("a")))),
			next: vdom.Div(vdom.Map(tagger, vdom.P(vdom.Text("b"), vdom.Text("c")))),
		},
		{
			name: "tagged chain length change",
			prev: vdom.Div(vdom.Map(tagger, vdom.Text("a"))),
			next: vdom.Div(vdom.Map(tagger, vdom.Map(tagger, vdom.Text("a")))),
		},
		{
			name: "lazy refs change",
			prev: vdom.Div(vdom.Lazy(func() vdom.VNode { return vdom.P(vdom.Text("1")) }, 1)),
			next: vdom.Div(vdom.Lazy(func() vdom.VNode { return vdom.P(vdom.Text("2"), vdom.Text("3")) }, 2)),
		},
		{
			name: "lazy refs equal",
			prev: vdom.Div(vdom.Lazy(func() vdom.VNode { return vdom.P(vdom.Text("1")) }, model)),
			next: vdom.Div(vdom.Lazy(func() vdom.VNode { return vdom.P(vdom.Text("1")) }, model)),
		},
		{
			name: "svg",
			prev: vdom.SVG("svg", vdom.ViewBox("0 0 1 1"), vdom.SVG("use", vdom.XLinkHref("#a"))),
			next: vdom.SVG("svg", vdom.ViewBox("0 0 2 2"), vdom.SVG("use", vdom.XLinkHref("#b"))),
		},
		{
			name: "keyed inside tagged inside keyed",
			prev: vdom.KeyedUl(vdom.K("x", vdom.Map(tagger, items("a", "b"))), vdom.K("y", vdom.Li())),
			next: vdom.KeyedUl(vdom.K("y", vdom.Li()), vdom.K("x", vdom.Map(tagger, items("b", "a")))),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := mount(t, tt.prev)
			h.update(tt.next)
		})
	}
}

func TestApplyEmptyPatchesKeepsRoot(t *testing.T) {
	tree := vdom.Div(vdom.Text("a"))
	h := mount(t, tree)
	root := h.root
	if got := h.engine.Apply(root, tree, nil); got != root {
		t.Error("empty patch list should return the root unchanged")
	}
}

func TestApplyRootRedraw(t *testing.T) {
	h := mount(t, vdom.Div())
	old := h.dom()
	h.update(vdom.Span())
	if h.dom() == old {
		t.Error("root should be replaced")
	}
	if h.dom().Tag() != "span" {
		t.Errorf("root tag = %q", h.dom().Tag())
	}
}

func TestKeyedReorderReusesNodes(t *testing.T) {
	h := mount(t, items("a", "b", "c"))
	before := map[string]*memdom.Node{}
	for _, k := range []string{"a", "b", "c"} {
		before[k] = h.dom().Find(memdom.ByID("li-" + k))
	}

	h.update(items("c", "a", "b"))

	for _, k := range []string{"a", "b", "c"} {
		if got := h.dom().Find(memdom.ByID("li-" + k)); got != before[k] {
			t.Errorf("node %q was recreated", k)
		}
	}
}

func TestKeyedReverseReusesNodes(t *testing.T) {
	doc := memdom.NewDocument()
	engine := vdom.NewEngine(doc, nil)
	prev := items("a", "b", "c", "d")
	root := engine.Render(prev)
	created := doc.Created()

	next := items("d", "c", "b", "a")
	root = engine.Apply(root, prev, vdom.Diff(prev, next))

	if doc.Created() != created {
		t.Errorf("reverse created %d nodes", doc.Created()-created)
	}
	if got, want := root.(*memdom.Node).OuterHTML(), mustHTML(t, next); got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func mustHTML(t *testing.T, v vdom.VNode) string {
	t.Helper()
	html, err := render.HTML(v)
	if err != nil {
		t.Fatal(err)
	}
	return html
}

func TestLazyMemoization(t *testing.T) {
	calls := 0
	view := func(n int) vdom.VNode {
		return vdom.Div(vdom.Lazy(func() vdom.VNode {
			calls++
			return vdom.Text(fmt.Sprint(n))
		}, n))
	}

	h := mount(t, view(1))
	h.update(view(1))
	h.update(view(1))
	if calls != 1 {
		t.Errorf("thunk ran %d times, want 1", calls)
	}
	h.update(view(2))
	if calls != 2 {
		t.Errorf("thunk ran %d times, want 2", calls)
	}
	if h.dom().Text() != "2" {
		t.Errorf("text = %q", h.dom().Text())
	}
}

func TestValueIsRestoredAfterInput(t *testing.T) {
	view := vdom.Input(vdom.Value("a"))
	h := mount(t, view)
	h.dom().SetProperty("value", "ab")

	h.update(vdom.Input(vdom.Value("a")))
	if v, _ := h.dom().Property("value"); v != "a" {
		t.Errorf("value = %v, want a", v)
	}
}

func TestUnresolvedIndexPanics(t *testing.T) {
	tree := vdom.Div()
	h := mount(t, tree)
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	h.engine.Apply(h.root, tree, []vdom.Patch{{Index: 7, Op: &vdom.UpdateText{Text: "x"}}})
}

type counterRenderer struct{}

func (counterRenderer) Render(doc vdom.Document, state any) vdom.Node {
	n := doc.CreateElement("output")
	n.AppendChild(doc.CreateTextNode(fmt.Sprint(state)))
	return n
}

func (counterRenderer) Diff(oldState, newState any) vdom.CustomPatch {
	if oldState == newState {
		return nil
	}
	return func(n vdom.Node) vdom.Node {
		n.ChildAt(0).SetText(fmt.Sprint(newState))
		return n
	}
}

func TestCustomNode(t *testing.T) {
	r := counterRenderer{}
	engine := vdom.NewEngine(memdom.NewDocument(), nil)
	prev := vdom.Div(vdom.Custom(r, []vdom.Fact{vdom.ID("c")}, 1))
	root := engine.Render(prev)
	out := root.(*memdom.Node).Find(memdom.ByTag("output"))

	next := vdom.Div(vdom.Custom(r, []vdom.Fact{vdom.ID("c")}, 2))
	patches := vdom.Diff(prev, next)
	if len(patches) != 1 {
		t.Fatalf("Expected 1 patch, got %d", len(patches))
	}
	root = engine.Apply(root, prev, patches)

	if got := root.(*memdom.Node).OuterHTML(); got != `<div><output id="c">2</output></div>` {
		t.Errorf("got %s", got)
	}
	if root.(*memdom.Node).Find(memdom.ByTag("output")) != out {
		t.Error("custom node should be patched in place")
	}
}

func TestEventDispatch(t *testing.T) {
	h := mount(t, vdom.Button(vdom.OnClick("inc"), vdom.Text("+")))
	h.dom().Click()
	if len(h.msgs) != 1 || h.msgs[0].msg != "inc" || h.msgs[0].sync {
		t.Fatalf("msgs = %+v", h.msgs)
	}

	// same kind: listener updated in place
	h.update(vdom.Button(vdom.OnClick("dec"), vdom.Text("+")))
	if n := h.dom().ListenerCount("click"); n != 1 {
		t.Errorf("ListenerCount = %d, want 1", n)
	}
	h.dom().Click()
	if h.msgs[1].msg != "dec" {
		t.Errorf("msg = %v, want dec", h.msgs[1].msg)
	}

	h.update(vdom.Button(vdom.Text("+")))
	if n := h.dom().ListenerCount("click"); n != 0 {
		t.Errorf("ListenerCount = %d, want 0", n)
	}
}

func TestEventStopPropagationIsSync(t *testing.T) {
	stop := vdom.NewDecoder(func(vdom.Event) (vdom.Decoded, error) {
		return vdom.Decoded{Message: "inner", StopPropagation: true}, nil
	})
	tree := vdom.Div(vdom.OnClick("outer"),
		vdom.Button(vdom.OnWith("click", vdom.MayStopPropagation, stop)),
	)
	h := mount(t, tree)
	h.dom().Find(memdom.ByTag("button")).Click()

	if len(h.msgs) != 1 {
		t.Fatalf("msgs = %+v, want only the inner message", h.msgs)
	}
	if h.msgs[0].msg != "inner" || !h.msgs[0].sync {
		t.Errorf("got %+v, want sync inner", h.msgs[0])
	}
}

func TestEventNormalHandlerCannotStop(t *testing.T) {
	stop := vdom.NewDecoder(func(vdom.Event) (vdom.Decoded, error) {
		return vdom.Decoded{Message: "inner", StopPropagation: true}, nil
	})
	h := mount(t, vdom.Div(vdom.OnClick("outer"), vdom.Button(vdom.OnWith("click", vdom.Normal, stop))))
	h.dom().Find(memdom.ByTag("button")).Click()
	if len(h.msgs) != 2 || h.msgs[0].sync {
		t.Errorf("msgs = %+v, want two async messages", h.msgs)
	}
}

func TestEventDecodeFailureDropped(t *testing.T) {
	failing := vdom.NewDecoder(func(vdom.Event) (vdom.Decoded, error) {
		return vdom.Decoded{}, errors.New("bad event")
	})
	h := mount(t, vdom.Button(vdom.OnWith("click", vdom.Normal, failing)))
	h.dom().Click()
	if len(h.msgs) != 0 {
		t.Errorf("msgs = %+v, want none", h.msgs)
	}
}

func TestEventTargetValue(t *testing.T) {
	h := mount(t, vdom.Input(vdom.OnInput(vdom.TargetValue(func(v string) any { return "typed:" + v }))))
	h.dom().Input("hello")
	if len(h.msgs) != 1 || h.msgs[0].msg != "typed:hello" {
		t.Errorf("msgs = %+v", h.msgs)
	}
}

type wrapped struct {
	tag string
	msg any
}

func TestTaggersMapMessages(t *testing.T) {
	outer := vdom.NewTagger(func(m any) any { return wrapped{"outer", m} })
	inner := vdom.NewTagger(func(m any) any { return wrapped{"inner", m} })

	h := mount(t, vdom.Div(vdom.Map(outer, vdom.Div(vdom.Map(inner, vdom.Button(vdom.OnClick("x")))))))
	h.dom().Find(memdom.ByTag("button")).Click()

	want := wrapped{"outer", wrapped{"inner", "x"}}
	if len(h.msgs) != 1 || h.msgs[0].msg != want {
		t.Errorf("msgs = %+v, want %+v", h.msgs, want)
	}
}

func TestTaggerChainFlattened(t *testing.T) {
	a := vdom.NewTagger(func(m any) any { return wrapped{"a", m} })
	b := vdom.NewTagger(func(m any) any { return wrapped{"b", m} })

	h := mount(t, vdom.Map(a, vdom.Map(b, vdom.Button(vdom.OnClick("x")))))
	h.dom().Click()

	want := wrapped{"a", wrapped{"b", "x"}}
	if len(h.msgs) != 1 || h.msgs[0].msg != want {
		t.Errorf("msgs = %+v, want %+v", h.msgs, want)
	}
}

func TestRemapTagger(t *testing.T) {
	first := vdom.NewTagger(func(m any) any { return wrapped{"first", m} })
	second := vdom.NewTagger(func(m any) any { return wrapped{"second", m} })

	h := mount(t, vdom.Div(vdom.Map(first, vdom.Button(vdom.OnClick("x")))))
	button := h.dom().Find(memdom.ByTag("button"))

	patches := h.update(vdom.Div(vdom.Map(second, vdom.Button(vdom.OnClick("x")))))
	if len(patches) != 1 {
		t.Fatalf("Expected 1 patch, got %d", len(patches))
	}
	if _, ok := patches[0].Op.(*vdom.RemapTagger); !ok {
		t.Fatalf("Op = %T, want *vdom.RemapTagger", patches[0].Op)
	}
	if h.dom().Find(memdom.ByTag("button")) != button {
		t.Error("button should not be re-rendered")
	}

	button.Click()
	if want := (wrapped{"second", "x"}); len(h.msgs) != 1 || h.msgs[0].msg != want {
		t.Errorf("msgs = %+v, want %+v", h.msgs, want)
	}
}

func TestRemapTaggerAtRootOfNestedChain(t *testing.T) {
	outer := vdom.NewTagger(func(m any) any { return wrapped{"outer", m} })
	inner1 := vdom.NewTagger(func(m any) any { return wrapped{"inner1", m} })
	inner2 := vdom.NewTagger(func(m any) any { return wrapped{"inner2", m} })

	// both chains are rooted at the same live button
	view := func(inner *vdom.Tagger) vdom.VNode {
		return vdom.Map(outer, vdom.Lazy(func() vdom.VNode {
			return vdom.Map(inner, vdom.Button(vdom.OnClick("x")))
		}, inner))
	}

	h := mount(t, view(inner1))
	h.update(view(inner2))
	h.dom().Click()

	want := wrapped{"outer", wrapped{"inner2", "x"}}
	if len(h.msgs) != 1 || h.msgs[0].msg != want {
		t.Errorf("msgs = %+v, want %+v", h.msgs, want)
	}
}

func TestRedrawKeepsEnclosingTaggers(t *testing.T) {
	outer := vdom.NewTagger(func(m any) any { return wrapped{"outer", m} })
	h := mount(t, vdom.Map(outer, vdom.Button(vdom.OnClick("x"))))
	h.update(vdom.Map(outer, vdom.A(vdom.OnClick("y"))))

	h.dom().Click()
	want := wrapped{"outer", "y"}
	if len(h.msgs) != 1 || h.msgs[0].msg != want {
		t.Errorf("msgs = %+v, want %+v", h.msgs, want)
	}
}

func TestMovedKeyedNodeKeepsHandlers(t *testing.T) {
	row := func(k string) vdom.KeyedChild {
		return vdom.K(k, vdom.Li(vdom.ID(k), vdom.OnClick("click-"+k)))
	}
	h := mount(t, vdom.KeyedUl(row("a"), row("b"), row("c")))
	h.update(vdom.KeyedUl(row("c"), row("a"), row("b")))

	h.dom().Find(memdom.ByID("c")).Click()
	if len(h.msgs) != 1 || h.msgs[0].msg != "click-c" {
		t.Errorf("msgs = %+v", h.msgs)
	}
}
