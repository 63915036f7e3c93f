package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/vdiff/internal/errors"
	"github.com/vango-dev/vdiff/pkg/vdom"
)

const tracerName = "github.com/vango-dev/vdiff/pkg/runtime"

// Cycle describes one completed draw. The first draw of a program has
// Seq 0, a nil Old tree and no patches.
type Cycle struct {
	Seq      uint64
	Old      vdom.VNode
	New      vdom.VNode
	Patches  []vdom.Patch
	Root     vdom.Node
	Sync     bool
	Duration time.Duration
}

// Option configures a Program.
type Option func(*options)

type options struct {
	logger    *slog.Logger
	scheduler FrameScheduler
	registry  prometheus.Registerer
	namespace string
	tracer    trace.TracerProvider
	container vdom.Node
	observers []func(Cycle)
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithScheduler sets the frame source. The default is a TickerScheduler
// at DefaultFrameInterval.
func WithScheduler(s FrameScheduler) Option {
	return func(o *options) { o.scheduler = s }
}

// WithRegistry registers the program's metrics with reg.
// Without it the metrics are collected but not registered.
func WithRegistry(reg prometheus.Registerer) Option {
	return func(o *options) { o.registry = reg }
}

// WithNamespace sets the metrics namespace (default "vdiff").
func WithNamespace(namespace string) Option {
	return func(o *options) { o.namespace = namespace }
}

// WithTracerProvider sets the tracer provider. The default is the global
// provider from otel.GetTracerProvider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracer = tp }
}

// WithContainer appends the live root to container on the first draw.
// Root replacements then happen in place inside it.
func WithContainer(container vdom.Node) Option {
	return func(o *options) { o.container = container }
}

// WithObserver registers fn to run on the program goroutine after every
// completed draw.
func WithObserver(fn func(Cycle)) Option {
	return func(o *options) { o.observers = append(o.observers, fn) }
}

type envelope struct {
	msg  any
	sync bool
}

type task struct {
	fn   func(root vdom.Node)
	done chan struct{}
}

// Program keeps a live tree in step with application state. Messages from
// event handlers go through update; the resulting state is drawn at most
// once per frame, or immediately when the change is synchronous.
//
// All drawing happens on the goroutine running Run. Dispatch may be called
// from any goroutine. Update must be called on the program goroutine, for
// example from a Do callback.
type Program[S any] struct {
	engine    *vdom.Engine
	update    func(S, any) S
	view      func(S) vdom.VNode
	scheduler FrameScheduler
	logger    *slog.Logger
	metrics   *metrics
	tracer    trace.Tracer
	container vdom.Node
	observers []func(Cycle)

	mu      sync.Mutex
	queue   []envelope
	wake    chan struct{}
	tasks   chan task
	started chan struct{}

	// Owned by the program goroutine.
	state S
	tree  vdom.VNode
	root  vdom.Node
	seq   uint64
	anim  animator
}

// New creates a program. update may be nil when the program is driven only
// through Update.
func New[S any](doc vdom.Document, init S, update func(S, any) S, view func(S) vdom.VNode, opts ...Option) *Program[S] {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.scheduler == nil {
		o.scheduler = NewTickerScheduler(DefaultFrameInterval)
	}
	if o.tracer == nil {
		o.tracer = otel.GetTracerProvider()
	}

	p := &Program[S]{
		update:    update,
		view:      view,
		scheduler: o.scheduler,
		logger:    o.logger,
		metrics:   newMetrics(o.registry, o.namespace),
		tracer:    o.tracer.Tracer(tracerName),
		container: o.container,
		observers: o.observers,
		wake:      make(chan struct{}, 1),
		tasks:     make(chan task),
		started:   make(chan struct{}),
		state:     init,
	}
	p.engine = vdom.NewEngine(doc, p.Dispatch, vdom.WithLogger(o.logger))
	p.anim.draw = p.draw
	return p
}

// Run draws the initial tree and processes messages and frames until ctx
// is done. It returns ctx.Err(), or the error of a failed initial draw.
func (p *Program[S]) Run(ctx context.Context) error {
	defer p.scheduler.Stop()

	if err := p.mount(); err != nil {
		return err
	}
	close(p.started)

	frames := p.scheduler.Frames()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.wake:
			p.drain()
		case t := <-p.tasks:
			t.fn(p.root)
			p.drain()
			close(t.done)
		case <-frames:
			p.drain()
			p.anim.frame()
		}
	}
}

// Dispatch queues a message for update. sync requests an immediate draw.
// It implements vdom.Dispatcher.
func (p *Program[S]) Dispatch(msg any, sync bool) {
	p.mu.Lock()
	p.queue = append(p.queue, envelope{msg: msg, sync: sync})
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Update replaces the state. An asynchronous change is drawn on the next
// frame together with any later changes; a synchronous one is drawn now.
// It must be called on the program goroutine.
func (p *Program[S]) Update(state S, sync bool) {
	p.state = state
	p.anim.change(sync)
}

// Do runs fn on the program goroutine with the current live root and waits
// for it, including any messages fn dispatches. It blocks until Run has
// drawn the initial tree.
func (p *Program[S]) Do(ctx context.Context, fn func(root vdom.Node)) error {
	select {
	case <-p.started:
	case <-ctx.Done():
		return ctx.Err()
	}

	t := task{fn: fn, done: make(chan struct{})}
	select {
	case p.tasks <- t:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the latest state. It must be called on the program
// goroutine.
func (p *Program[S]) State() S {
	return p.state
}

// Tree returns the last drawn tree. It must be called on the program
// goroutine.
func (p *Program[S]) Tree() vdom.VNode {
	return p.tree
}

// drain feeds queued messages through update in order.
func (p *Program[S]) drain() {
	for {
		p.mu.Lock()
		queue := p.queue
		p.queue = nil
		p.mu.Unlock()
		if len(queue) == 0 {
			return
		}
		for _, env := range queue {
			if p.update == nil {
				p.logger.Warn("message dropped: program has no update function", "msg", fmt.Sprintf("%T", env.msg))
				continue
			}
			p.Update(p.update(p.state, env.msg), env.sync)
		}
	}
}

func (p *Program[S]) mount() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = cycleError(r)
		}
	}()

	start := time.Now()
	tree := p.view(p.state)
	if tree == nil {
		return errors.New("E002")
	}
	p.root = p.engine.Render(tree)
	p.tree = tree
	if p.container != nil {
		p.container.AppendChild(p.root)
	}
	p.notify(Cycle{Seq: 0, New: tree, Root: p.root, Duration: time.Since(start)})
	return nil
}

// draw runs one render cycle against the latest state. A failed cycle keeps
// the previous tree and live root and is not retried.
func (p *Program[S]) draw(sync bool) {
	ctx, span := p.tracer.Start(context.Background(), "vdiff.cycle",
		trace.WithAttributes(attribute.Bool("vdiff.sync", sync)))
	defer span.End()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err := cycleError(r)
			p.metrics.failures.Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			p.logger.Error("render cycle failed", "seq", p.seq+1, "error", err)
		}
	}()

	next := p.view(p.state)
	if next == nil {
		panic(errors.New("E002"))
	}

	diffStart := time.Now()
	_, diffSpan := p.tracer.Start(ctx, "vdiff.diff")
	patches := vdom.Diff(p.tree, next)
	diffSpan.SetAttributes(attribute.Int("vdiff.patch_count", len(patches)))
	diffSpan.End()
	p.metrics.diffDuration.Observe(time.Since(diffStart).Seconds())

	applyStart := time.Now()
	_, applySpan := p.tracer.Start(ctx, "vdiff.apply")
	root := p.engine.Apply(p.root, p.tree, patches)
	applySpan.End()
	p.metrics.applyDuration.Observe(time.Since(applyStart).Seconds())

	old := p.tree
	p.tree, p.root = next, root
	p.seq++

	p.metrics.cycles.Inc()
	p.metrics.patches.Add(float64(len(patches)))
	if sync {
		p.metrics.syncDraws.Inc()
	}
	span.SetAttributes(attribute.Int64("vdiff.seq", int64(p.seq)))
	span.SetStatus(codes.Ok, "")

	p.logger.Debug("render cycle", "seq", p.seq, "patches", len(patches), "sync", sync)
	p.notify(Cycle{
		Seq:      p.seq,
		Old:      old,
		New:      next,
		Patches:  patches,
		Root:     root,
		Sync:     sync,
		Duration: time.Since(start),
	})
}

func (p *Program[S]) notify(c Cycle) {
	for _, fn := range p.observers {
		fn(c)
	}
}

// cycleError converts a recovered panic into an E001 error wrapping the
// original cause.
func cycleError(r any) *errors.Error {
	err := errors.FromPanic(r, "E001")
	if err.Code == "E001" {
		return err
	}
	return errors.New("E001").Wrap(err)
}
