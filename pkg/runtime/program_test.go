package runtime

import (
	"bytes"
	"context"
	stderrors "errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/vango-dev/vdiff/internal/errors"
	"github.com/vango-dev/vdiff/pkg/memdom"
	"github.com/vango-dev/vdiff/pkg/render"
	"github.com/vango-dev/vdiff/pkg/vdom"
)

type model struct {
	count int
	label string
}

type increment struct{}

type setLabel string

func update(m model, msg any) model {
	switch msg := msg.(type) {
	case increment:
		m.count++
	case setLabel:
		m.label = string(msg)
	}
	return m
}

// stopInput decodes input events into setLabel and stops propagation.
var stopInput = vdom.NewDecoder(func(ev vdom.Event) (vdom.Decoded, error) {
	v, _ := ev.(vdom.ValueEvent).TargetValue()
	return vdom.Decoded{Message: setLabel(v), StopPropagation: true}, nil
})

func view(m model) vdom.VNode {
	if m.count == 13 {
		panic("unlucky")
	}
	if m.count < 0 {
		return nil
	}
	tag := vdom.Div
	if m.count >= 100 {
		tag = vdom.Section
	}
	return tag(
		vdom.Button(vdom.ID("inc"), vdom.OnClick(increment{}), "+"),
		vdom.Input(vdom.ID("label"), vdom.Value(m.label), vdom.On("input", vdom.MayStopPropagationHandler(stopInput))),
		vdom.Span(vdom.ID("count"), vdom.Textf("%d", m.count)),
		vdom.P(m.label),
	)
}

type fixture struct {
	t      *testing.T
	ctx    context.Context
	p      *Program[model]
	sched  *ManualScheduler
	reg    *prometheus.Registry
	logs   *bytes.Buffer
	doc    *memdom.Document
	cycles []Cycle
	done   chan error
}

func start(t *testing.T, init model, opts ...Option) *fixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	f := &fixture{
		t:     t,
		ctx:   ctx,
		sched: NewManualScheduler(),
		reg:   prometheus.NewRegistry(),
		logs:  &bytes.Buffer{},
		doc:   memdom.NewDocument(),
		done:  make(chan error, 1),
	}
	opts = append([]Option{
		WithScheduler(f.sched),
		WithRegistry(f.reg),
		WithLogger(slog.New(slog.NewTextHandler(f.logs, nil))),
		WithObserver(func(c Cycle) { f.cycles = append(f.cycles, c) }),
	}, opts...)
	f.p = New(f.doc, init, update, view, opts...)

	go func() { f.done <- f.p.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-f.done
	})
	return f
}

func (f *fixture) do(fn func(root *memdom.Node)) {
	f.t.Helper()
	ctx, cancel := context.WithTimeout(f.ctx, 5*time.Second)
	defer cancel()
	if err := f.p.Do(ctx, func(root vdom.Node) { fn(root.(*memdom.Node)) }); err != nil {
		f.t.Fatalf("Do: %v", err)
	}
}

// draws returns the number of completed draws after the initial one.
func (f *fixture) draws() int {
	f.t.Helper()
	var n int
	f.do(func(*memdom.Node) { n = len(f.cycles) - 1 })
	return n
}

func (f *fixture) html() string {
	f.t.Helper()
	var s string
	f.do(func(root *memdom.Node) { s = root.OuterHTML() })
	return s
}

func (f *fixture) wantState(m model) {
	f.t.Helper()
	want, err := render.HTML(view(m))
	if err != nil {
		f.t.Fatal(err)
	}
	if got := f.html(); got != want {
		f.t.Errorf("live tree\n got: %s\nwant: %s", got, want)
	}
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return metricValue(mf.GetMetric()[0])
		}
	}
	t.Fatalf("metric %s not registered", name)
	return 0
}

func metricValue(m *dto.Metric) float64 {
	if c := m.GetCounter(); c != nil {
		return c.GetValue()
	}
	return float64(m.GetHistogram().GetSampleCount())
}

func TestInitialDraw(t *testing.T) {
	f := start(t, model{count: 2})
	f.wantState(model{count: 2})

	f.do(func(root *memdom.Node) {
		if len(f.cycles) != 1 {
			t.Fatalf("cycles = %d; want 1", len(f.cycles))
		}
		c := f.cycles[0]
		if c.Seq != 0 || c.Old != nil || len(c.Patches) != 0 || c.Root != vdom.Node(root) {
			t.Errorf("initial cycle = %+v", c)
		}
	})
}

func TestAsyncUpdatesCoalesce(t *testing.T) {
	f := start(t, model{})

	f.do(func(*memdom.Node) {
		for i := 1; i <= 5; i++ {
			f.p.Update(model{count: i}, false)
		}
	})
	if got := f.draws(); got != 0 {
		t.Fatalf("draws before frame = %d; want 0", got)
	}

	f.sched.Tick()
	if got := f.draws(); got != 1 {
		t.Fatalf("draws after frame = %d; want 1", got)
	}
	f.wantState(model{count: 5})

	// The extra frame and later idle frames draw nothing.
	f.sched.Tick()
	f.sched.Tick()
	if got := f.draws(); got != 1 {
		t.Errorf("draws after idle frames = %d; want 1", got)
	}

	if got := counterValue(t, f.reg, "vdiff_cycles_total"); got != 1 {
		t.Errorf("vdiff_cycles_total = %v; want 1", got)
	}
	if got := counterValue(t, f.reg, "vdiff_diff_duration_seconds"); got != 1 {
		t.Errorf("diff duration samples = %v; want 1", got)
	}
}

func histogramSum(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf.GetMetric()[0].GetHistogram().GetSampleSum()
		}
	}
	t.Fatalf("metric %s not registered", name)
	return 0
}

func TestDiffDurationExcludesView(t *testing.T) {
	const viewTime = 50 * time.Millisecond
	reg := prometheus.NewRegistry()
	slow := func(m model) vdom.VNode {
		if m.count > 0 {
			time.Sleep(viewTime)
		}
		return view(m)
	}
	p := New(memdom.NewDocument(), model{}, update, slow,
		WithScheduler(NewManualScheduler()), WithRegistry(reg))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	wait, stop := context.WithTimeout(ctx, 5*time.Second)
	defer stop()
	if err := p.Do(wait, func(vdom.Node) { p.Update(model{count: 1}, true) }); err != nil {
		t.Fatal(err)
	}
	if err := p.Do(wait, func(vdom.Node) {}); err != nil {
		t.Fatal(err)
	}

	if got := counterValue(t, reg, "vdiff_diff_duration_seconds"); got != 1 {
		t.Fatalf("diff duration samples = %v; want 1", got)
	}
	if got := histogramSum(t, reg, "vdiff_diff_duration_seconds"); got >= viewTime.Seconds() {
		t.Errorf("diff duration = %vs; includes the %v spent in view", got, viewTime)
	}
}

func TestSyncUpdateDrawsImmediately(t *testing.T) {
	f := start(t, model{})

	f.do(func(*memdom.Node) { f.p.Update(model{count: 7}, true) })
	if got := f.draws(); got != 1 {
		t.Fatalf("draws = %d; want 1", got)
	}
	f.wantState(model{count: 7})

	f.sched.Tick()
	if got := f.draws(); got != 1 {
		t.Errorf("draws after frame = %d; want 1", got)
	}
	if got := counterValue(t, f.reg, "vdiff_sync_draws_total"); got != 1 {
		t.Errorf("vdiff_sync_draws_total = %v; want 1", got)
	}
}

func TestSyncUpdateSupersedesPendingFrame(t *testing.T) {
	f := start(t, model{})

	f.do(func(*memdom.Node) {
		f.p.Update(model{count: 1}, false)
		f.p.Update(model{count: 2}, true)
	})
	f.sched.Tick()
	f.sched.Tick()

	if got := f.draws(); got != 1 {
		t.Errorf("draws = %d; want 1", got)
	}
	f.wantState(model{count: 2})
}

func TestEventDispatchDrawsOnNextFrame(t *testing.T) {
	f := start(t, model{})

	f.do(func(root *memdom.Node) {
		root.Find(memdom.ByID("inc")).Click()
		root.Find(memdom.ByID("inc")).Click()
	})
	if got := f.draws(); got != 0 {
		t.Fatalf("draws before frame = %d; want 0", got)
	}

	f.sched.Tick()
	if got := f.draws(); got != 1 {
		t.Fatalf("draws = %d; want 1", got)
	}
	f.wantState(model{count: 2})
}

func TestStoppedEventDrawsSynchronously(t *testing.T) {
	f := start(t, model{})

	f.do(func(root *memdom.Node) {
		root.Find(memdom.ByID("label")).Input("hello")
	})
	if got := f.draws(); got != 1 {
		t.Fatalf("draws = %d; want 1", got)
	}
	f.do(func(*memdom.Node) {
		if c := f.cycles[1]; !c.Sync {
			t.Errorf("cycle %d Sync = false; want true", c.Seq)
		}
	})
	f.wantState(model{label: "hello"})
}

func TestDispatchFromAnotherGoroutine(t *testing.T) {
	f := start(t, model{})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.p.Dispatch(increment{}, false)
		}()
	}
	wg.Wait()

	f.do(func(*memdom.Node) {})
	f.sched.Tick()
	if got := f.draws(); got != 1 {
		t.Errorf("draws = %d; want 1", got)
	}
	f.wantState(model{count: 10})
}

func TestFailedCycleKeepsPreviousTree(t *testing.T) {
	f := start(t, model{count: 12})

	f.do(func(*memdom.Node) { f.p.Update(model{count: 13}, true) })
	if got := f.draws(); got != 0 {
		t.Fatalf("draws = %d; want 0", got)
	}
	f.wantState(model{count: 12})
	if got := counterValue(t, f.reg, "vdiff_cycle_failures_total"); got != 1 {
		t.Errorf("vdiff_cycle_failures_total = %v; want 1", got)
	}

	var logs string
	f.do(func(*memdom.Node) { logs = f.logs.String() })
	if !strings.Contains(logs, "render cycle failed") || !strings.Contains(logs, "E001") {
		t.Errorf("logs = %q; want an E001 render cycle failure", logs)
	}

	// The next change diffs against the last good tree.
	f.do(func(*memdom.Node) { f.p.Update(model{count: 14}, true) })
	if got := f.draws(); got != 1 {
		t.Fatalf("draws = %d; want 1", got)
	}
	f.wantState(model{count: 14})
}

func TestNilViewFailsCycle(t *testing.T) {
	f := start(t, model{})
	f.do(func(*memdom.Node) { f.p.Update(model{count: -1}, true) })

	if got := counterValue(t, f.reg, "vdiff_cycle_failures_total"); got != 1 {
		t.Errorf("vdiff_cycle_failures_total = %v; want 1", got)
	}
	f.wantState(model{})
}

func TestRootRedrawInsideContainer(t *testing.T) {
	doc := memdom.NewDocument()
	body := doc.CreateElement("body").(*memdom.Node)
	f := start(t, model{count: 99}, WithContainer(body))

	f.do(func(*memdom.Node) { f.p.Update(model{count: 100}, true) })
	f.do(func(root *memdom.Node) {
		if root.Tag() != "section" {
			t.Errorf("root tag = %q; want section", root.Tag())
		}
		if kids := body.Children(); len(kids) != 1 || kids[0] != root {
			t.Errorf("container children = %v; want the new root", kids)
		}
	})
}

func TestRunFailsOnInitialNilView(t *testing.T) {
	p := New(memdom.NewDocument(), model{count: -1}, update, view, WithScheduler(NewManualScheduler()))
	err := p.Run(context.Background())
	if !stderrors.Is(err, errors.New("E002")) {
		t.Errorf("Run() error = %v; want E002", err)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	p := New(memdom.NewDocument(), model{}, update, view, WithScheduler(NewManualScheduler()))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	if err := p.Do(context.Background(), func(vdom.Node) {}); err != nil {
		t.Fatal(err)
	}
	cancel()
	select {
	case err := <-done:
		if !stderrors.Is(err, context.Canceled) {
			t.Errorf("Run() = %v; want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestDoBeforeRunHonorsContext(t *testing.T) {
	p := New(memdom.NewDocument(), model{}, update, view, WithScheduler(NewManualScheduler()))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := p.Do(ctx, func(vdom.Node) {}); !stderrors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Do() = %v; want context.DeadlineExceeded", err)
	}
}

type recordingProvider struct {
	noop.TracerProvider
	mu    sync.Mutex
	spans []string
}

func (p *recordingProvider) Tracer(string, ...trace.TracerOption) trace.Tracer {
	return recordingTracer{provider: p}
}

func (p *recordingProvider) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.spans...)
}

type recordingTracer struct {
	noop.Tracer
	provider *recordingProvider
}

func (t recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	t.provider.mu.Lock()
	t.provider.spans = append(t.provider.spans, name)
	t.provider.mu.Unlock()
	return t.Tracer.Start(ctx, name, opts...)
}

func TestCycleSpans(t *testing.T) {
	tp := &recordingProvider{}
	f := start(t, model{}, WithTracerProvider(tp))
	f.do(func(*memdom.Node) { f.p.Update(model{count: 1}, true) })

	want := []string{"vdiff.cycle", "vdiff.diff", "vdiff.apply"}
	got := tp.names()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("spans = %v; want %v", got, want)
	}
}
