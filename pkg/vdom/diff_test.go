package vdom

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDiffSameReference(t *testing.T) {
	tree := Div(Class("card"), Ul(Li(Text("a")), Li(Text("b"))))
	if patches := Diff(tree, tree); len(patches) != 0 {
		t.Errorf("Expected 0 patches, got %d", len(patches))
	}
}

func TestDiffStructurallyEqual(t *testing.T) {
	build := func() VNode {
		return Div(Class("card"), Style("color", "red"), OnClick("clicked"),
			Input(Value("x"), Type("text")),
			Keyed("ul", nil, K("a", Li(Text("a"))), K("b", Li(Text("b")))),
		)
	}
	patches := Diff(build(), build())
	// value is always re-sent
	if len(patches) != 1 {
		t.Fatalf("Expected 1 patch, got %d: %v", len(patches), patches)
	}
	uf, ok := patches[0].Op.(*UpdateFacts)
	if !ok {
		t.Fatalf("Op = %T, want *UpdateFacts", patches[0].Op)
	}
	if patches[0].Index != 1 || len(uf.Diff.Properties) != 1 {
		t.Errorf("unexpected patch %+v", patches[0])
	}
}

func TestDiffStylesStructurallyEqual(t *testing.T) {
	prev := Div(Style("color", "red"), Style("margin", "0"))
	next := Div(Style("margin", "0"), Style("color", "red"))
	if patches := Diff(prev, next); len(patches) != 0 {
		t.Errorf("Expected 0 patches, got %v", patches)
	}
}

func TestDiffTextChange(t *testing.T) {
	patches := Diff(Text("Hello"), Text("World"))
	want := []Patch{{Index: 0, Op: &UpdateText{Text: "World"}}}
	if diff := cmp.Diff(want, patches); diff != "" {
		t.Errorf("patches mismatch (-want +got):\n%s", diff)
	}
}

func TestDiffAppendChildren(t *testing.T) {
	prev := Element("ul", nil, Text("a"), Text("b"))
	c := Text("c")
	next := Element("ul", nil, Text("a"), Text("b"), c)

	if Descendants(prev) != 2 {
		t.Fatalf("Descendants = %d, want 2", Descendants(prev))
	}
	patches := Diff(prev, next)
	if len(patches) != 1 {
		t.Fatalf("Expected 1 patch, got %d", len(patches))
	}
	op, ok := patches[0].Op.(*AppendChildren)
	if !ok {
		t.Fatalf("Op = %T, want *AppendChildren", patches[0].Op)
	}
	if patches[0].Index != 0 || op.From != 2 || len(op.Children) != 1 || op.Children[0] != c {
		t.Errorf("unexpected patch %+v", op)
	}
}

func TestDiffRemoveChildren(t *testing.T) {
	prev := Div(P(Text("a")), P(Text("b")), P(Text("c")))
	next := Div(P(Text("a")))
	want := []Patch{{Index: 0, Op: &RemoveChildren{From: 1, Count: 2}}}
	if diff := cmp.Diff(want, Diff(prev, next)); diff != "" {
		t.Errorf("patches mismatch (-want +got):\n%s", diff)
	}
}

func TestDiffStyleChange(t *testing.T) {
	prev := Div(Style("color", "red"))
	next := Div(Style("color", "blue"))
	want := []Patch{{Index: 0, Op: &UpdateFacts{Diff: FactsDiff{
		Styles: map[string]Change[string]{"color": {Value: "blue"}},
	}}}}
	if diff := cmp.Diff(want, Diff(prev, next)); diff != "" {
		t.Errorf("patches mismatch (-want +got):\n%s", diff)
	}
}

func TestDiffFactRemoval(t *testing.T) {
	prev := Div(Style("color", "red"), ID("x"), Property("title", "t"), Property("tabIndex", 1))
	next := Div()
	patches := Diff(prev, next)
	if len(patches) != 1 {
		t.Fatalf("Expected 1 patch, got %d", len(patches))
	}
	d := patches[0].Op.(*UpdateFacts).Diff
	want := FactsDiff{
		Styles:     map[string]Change[string]{"color": {Value: "", Remove: true}},
		Attributes: map[string]Change[string]{"id": {Value: "", Remove: true}},
		Properties: map[string]Change[any]{
			"title":    {Value: "", Remove: true},
			"tabIndex": {Value: nil, Remove: true},
		},
	}
	if diff := cmp.Diff(want, d); diff != "" {
		t.Errorf("facts diff mismatch (-want +got):\n%s", diff)
	}
}

func TestDiffKindChange(t *testing.T) {
	tests := []struct {
		name string
		prev VNode
		next VNode
	}{
		{name: "text to element", prev: Text("a"), next: Div()},
		{name: "tag change", prev: Div(), next: Span()},
		{name: "namespace change", prev: Element("a", nil), next: SVG("a")},
		{name: "keyed to plain", prev: Keyed("ul", nil, K("a", Li())), next: Ul(Li())},
		{name: "nil next", prev: Div(), next: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			patches := Diff(tt.prev, tt.next)
			if len(patches) != 1 {
				t.Fatalf("Expected 1 patch, got %d", len(patches))
			}
			if _, ok := patches[0].Op.(*Redraw); !ok || patches[0].Index != 0 {
				t.Errorf("got %+v, want Redraw at 0", patches[0])
			}
		})
	}
}

func TestDiffPlainToKeyedDekeys(t *testing.T) {
	prev := Ul(Li(Text("a")), Li(Text("b")))
	next := Keyed("ul", nil, K("a", Li(Text("a"))), K("b", Li(Text("B"))))
	want := []Patch{{Index: 4, Op: &UpdateText{Text: "B"}}}
	if diff := cmp.Diff(want, Diff(prev, next)); diff != "" {
		t.Errorf("patches mismatch (-want +got):\n%s", diff)
	}
}

func TestDiffIndicesPreOrder(t *testing.T) {
	// indices: div 0, p 1, "a" 2, p 3, "b" 4, span 5, "c" 6
	prev := Div(P(Text("a")), P(Text("b")), Span(Text("c")))
	next := Div(P(Text("A")), P(Text("b")), Span(Text("C")))
	patches := Diff(prev, next)
	want := []int{2, 6}
	if len(patches) != len(want) {
		t.Fatalf("Expected %d patches, got %d", len(want), len(patches))
	}
	for i, p := range patches {
		if p.Index != want[i] {
			t.Errorf("patches[%d].Index = %d, want %d", i, p.Index, want[i])
		}
	}
}

func TestDiffIndicesNonDecreasing(t *testing.T) {
	prev := Div(Class("a"), P(Style("color", "red"), Text("x")), Ul(Li(Text("1"))), Text("t"))
	next := Div(Class("b"), P(Style("color", "blue"), Text("y")), Ul(Li(Text("2")), Li(Text("3"))), Text("u"), Br())
	patches := Diff(prev, next)
	for i := 1; i < len(patches); i++ {
		if patches[i].Index < patches[i-1].Index {
			t.Fatalf("indices decrease at %d: %d after %d", i, patches[i].Index, patches[i-1].Index)
		}
	}
	if len(patches) == 0 {
		t.Fatal("expected patches")
	}
}

func TestDiffUnchangedSubtreeUntouched(t *testing.T) {
	shared := P(Text("same"), Span(Text("deep")))
	prev := Div(Text("x"), shared, Text("y"))
	next := Div(Text("X"), P(Text("same"), Span(Text("deep"))), Text("Y"))

	low := 2 // div 0, "x" 1, p 2
	high := low + Descendants(shared)
	for _, p := range Diff(prev, next) {
		if p.Index >= low && p.Index <= high {
			t.Errorf("patch %+v falls in unchanged range [%d, %d]", p, low, high)
		}
	}
}

func TestDiffEventHandlers(t *testing.T) {
	d := NewDecoder(func(Event) (Decoded, error) { return Decoded{}, nil })

	tests := []struct {
		name    string
		prev    VNode
		next    VNode
		patches int
	}{
		{name: "same constant message", prev: Button(OnClick(1)), next: Button(OnClick(1)), patches: 0},
		{name: "different message", prev: Button(OnClick(1)), next: Button(OnClick(2)), patches: 1},
		{name: "same decoder", prev: Input(OnInput(d)), next: Input(OnInput(d)), patches: 0},
		{name: "kind change", prev: Input(OnWith("input", Normal, d)), next: Input(OnInput(d)), patches: 1},
		{name: "handler removed", prev: Button(OnClick(1)), next: Button(), patches: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(Diff(tt.prev, tt.next)); got != tt.patches {
				t.Errorf("got %d patches, want %d", got, tt.patches)
			}
		})
	}
}

func TestDiffValueAlwaysResent(t *testing.T) {
	patches := Diff(Input(Value("a")), Input(Value("a")))
	if len(patches) != 1 {
		t.Fatalf("Expected 1 patch, got %d", len(patches))
	}
	props := patches[0].Op.(*UpdateFacts).Diff.Properties
	if props["value"].Value != "a" {
		t.Errorf("value = %v, want a", props["value"].Value)
	}
}

func TestDiffClassAccumulates(t *testing.T) {
	facts := Normalize([]Fact{Class("a"), ClassIf(false, "x"), Class("b"), ClassName("c"), ClassName("d")})
	if facts.Attributes["class"] != "a b" {
		t.Errorf("class = %q", facts.Attributes["class"])
	}
	if facts.Properties["className"] != "c d" {
		t.Errorf("className = %v", facts.Properties["className"])
	}
}

func TestDiffLazyComparesRefsOnly(t *testing.T) {
	model := &struct{ n int }{n: 1}
	viewA := func() VNode { return P(Text("a")) }
	calledB := false
	viewB := func() VNode { calledB = true; return P(Text("b")) }

	lazy := Lazy(viewA, model)
	lazy.Force()
	if patches := Diff(Div(lazy), Div(Lazy(viewB, model))); len(patches) != 0 {
		t.Errorf("same refs, different thunk: got %d patches; want 0", len(patches))
	}
	if calledB {
		t.Error("thunk ran although refs were unchanged")
	}

	lazy = Lazy(viewA, "a", model)
	lazy.Force()
	if patches := Diff(Div(lazy), Div(Lazy(viewB, "b", model))); len(patches) == 0 {
		t.Error("changing the view ref should re-render")
	}
}
