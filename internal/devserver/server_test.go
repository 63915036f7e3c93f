package devserver

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/vdiff/pkg/journal"
	"github.com/vango-dev/vdiff/pkg/memdom"
	"github.com/vango-dev/vdiff/pkg/protocol"
	"github.com/vango-dev/vdiff/pkg/render"
	"github.com/vango-dev/vdiff/pkg/runtime"
	"github.com/vango-dev/vdiff/pkg/vdom"
	"github.com/vango-dev/vdiff/pkg/vdom/vdomtest"
)

type todos []string

func view(items todos) vdom.VNode {
	kids := make([]vdom.KeyedChild, len(items))
	for i, item := range items {
		kids[i] = vdom.K(item, vdom.Li(item))
	}
	return vdom.Div(vdom.H1("todo"), vdom.KeyedUl(kids))
}

type env struct {
	t       *testing.T
	ctx     context.Context
	srv     *Server
	http    *httptest.Server
	program *runtime.Program[todos]
	reg     *prometheus.Registry
}

func setup(t *testing.T, opts Options) *env {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	reg := prometheus.NewRegistry()
	opts.Gatherer = reg
	srv := New(opts)

	p := runtime.New(memdom.NewDocument(), todos{"a", "b"}, nil, view,
		runtime.WithScheduler(runtime.NewManualScheduler()),
		runtime.WithRegistry(reg),
		runtime.WithObserver(srv.Observer()),
	)
	srv.SetProgram(p)

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.hub.closeAll()
		hs.Close()
		cancel()
		<-done
	})

	e := &env{t: t, ctx: ctx, srv: srv, http: hs, program: p, reg: reg}
	if err := p.Do(ctx, func(vdom.Node) {}); err != nil {
		t.Fatal(err)
	}
	return e
}

func (e *env) update(items todos) {
	e.t.Helper()
	err := e.program.Do(e.ctx, func(vdom.Node) { e.program.Update(items, true) })
	if err != nil {
		e.t.Fatal(err)
	}
}

func (e *env) get(path string) (*http.Response, string) {
	e.t.Helper()
	resp, err := http.Get(e.http.URL + path)
	if err != nil {
		e.t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		e.t.Fatal(err)
	}
	return resp, string(body)
}

func (e *env) dial(header http.Header) *websocket.Conn {
	e.t.Helper()
	url := "ws" + strings.TrimPrefix(e.http.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		e.t.Fatalf("Dial() error: %v", err)
	}
	e.t.Cleanup(func() { conn.Close() })

	// The handler registers the client after the handshake completes.
	deadline := time.Now().Add(5 * time.Second)
	for e.srv.hub.count() == 0 {
		if time.Now().After(deadline) {
			e.t.Fatal("client never registered")
		}
		time.Sleep(time.Millisecond)
	}
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) *protocol.Frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	typ, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error: %v", err)
	}
	if typ != websocket.BinaryMessage {
		t.Fatalf("message type = %d; want binary", typ)
	}
	f, n, err := protocol.DecodeFrame(msg)
	if err != nil || n != len(msg) {
		t.Fatalf("DecodeFrame() = %d bytes, %v", n, err)
	}
	return f
}

func wantHTML(t *testing.T, v vdom.VNode) string {
	t.Helper()
	s, err := render.HTML(v)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestSnapshot(t *testing.T) {
	e := setup(t, Options{})
	e.update(todos{"b", "c"})

	resp, body := e.get("/snapshot")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d; body %s", resp.StatusCode, body)
	}
	if want := wantHTML(t, view(todos{"b", "c"})); body != want {
		t.Errorf("snapshot\n got: %s\nwant: %s", body, want)
	}
	if seq := resp.Header.Get("X-Vdiff-Seq"); seq != "1" {
		t.Errorf("X-Vdiff-Seq = %q; want 1", seq)
	}
}

func TestSnapshotWithoutProgram(t *testing.T) {
	srv := New(Options{Gatherer: prometheus.NewRegistry()})
	hs := httptest.NewServer(srv.Handler())
	defer hs.Close()

	resp, err := http.Get(hs.URL + "/snapshot")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status before any cycle = %d; want 503", resp.StatusCode)
	}

	srv.Observer()(runtime.Cycle{Seq: 0, New: vdom.P("hello")})
	resp, err = http.Get(hs.URL + "/snapshot")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "<p>hello</p>" {
		t.Errorf("snapshot = %q; want <p>hello</p>", body)
	}
}

func TestMetrics(t *testing.T) {
	e := setup(t, Options{})
	e.update(todos{"x"})

	resp, body := e.get("/metrics")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	for _, want := range []string{"vdiff_cycles_total 1", "vdiff_patches_total", "vdiff_diff_duration_seconds_bucket"} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestHealthz(t *testing.T) {
	e := setup(t, Options{})
	resp, body := e.get("/healthz")
	if resp.StatusCode != http.StatusOK || body != "ok\n" {
		t.Errorf("healthz = %d %q", resp.StatusCode, body)
	}
}

func TestWebSocketStream(t *testing.T) {
	e := setup(t, Options{})
	conn := e.dial(nil)

	f := readFrame(t, conn)
	if f.Type != protocol.FrameSnapshot {
		t.Fatalf("first frame = %v; want Snapshot", f.Type)
	}
	snap, err := protocol.DecodeSnapshot(f.Payload)
	if err != nil {
		t.Fatal(err)
	}
	if snap.HTML != wantHTML(t, view(todos{"a", "b"})) {
		t.Errorf("snapshot HTML = %s", snap.HTML)
	}

	// Follow the stream on a local copy.
	engine := vdom.NewEngine(memdom.NewDocument(), func(any, bool) {})
	tree := snap.Tree
	root := engine.Render(tree)

	steps := []todos{{"b", "a"}, {"b", "c", "a"}, {}}
	for i, items := range steps {
		e.update(items)
		f := readFrame(t, conn)
		if f.Type != protocol.FramePatches {
			t.Fatalf("step %d frame = %v; want Patches", i, f.Type)
		}
		pf, err := protocol.DecodePatches(f.Payload)
		if err != nil {
			t.Fatal(err)
		}
		if pf.Seq != snap.Seq+uint64(i)+1 {
			t.Errorf("step %d seq = %d", i, pf.Seq)
		}
		root = engine.Apply(root, tree, pf.Patches)
		tree = view(items)
		if got, want := root.(*memdom.Node).OuterHTML(), wantHTML(t, tree); got != want {
			t.Errorf("step %d follower HTML\n got: %s\nwant: %s", i, got, want)
		}
	}
}

func TestWebSocketCustomNodeSendsError(t *testing.T) {
	srv := New(Options{Gatherer: prometheus.NewRegistry()})
	hs := httptest.NewServer(srv.Handler())
	defer hs.Close()
	defer srv.hub.closeAll()

	srv.Observer()(runtime.Cycle{Seq: 0, New: vdom.P("ok")})
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(hs.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	readFrame(t, conn)
	for srv.hub.count() == 0 {
		time.Sleep(time.Millisecond)
	}

	next := vdom.P(vdom.Custom(vdomtest.Canvas{}, nil, 1))
	srv.Observer()(runtime.Cycle{Seq: 1, Old: vdom.P("ok"), New: next, Patches: vdom.Diff(vdom.P("ok"), next)})
	f := readFrame(t, conn)
	if f.Type != protocol.FrameError {
		t.Fatalf("frame = %v; want Error", f.Type)
	}
	em, err := protocol.DecodeErrorMessage(f.Payload)
	if err != nil || em.Code != "E202" {
		t.Errorf("error message = %+v, %v; want E202", em, err)
	}
}

func TestWebSocketOrigin(t *testing.T) {
	e := setup(t, Options{AllowedOrigins: []string{"http://allowed.test"}})
	url := "ws" + strings.TrimPrefix(e.http.URL, "http") + "/ws"

	tests := []struct {
		name   string
		origin string
		ok     bool
	}{
		{"none", "", true},
		{"same", e.http.URL, true},
		{"allowed", "http://allowed.test", true},
		{"foreign", "http://evil.test", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.origin != "" {
				header.Set("Origin", tt.origin)
			}
			conn, resp, err := websocket.DefaultDialer.Dial(url, header)
			if conn != nil {
				conn.Close()
			}
			if tt.ok && err != nil {
				t.Fatalf("Dial() error: %v", err)
			}
			if !tt.ok && (err == nil || resp == nil || resp.StatusCode != http.StatusForbidden) {
				t.Errorf("Dial() = %v; want 403", err)
			}
		})
	}
}

func TestJournalEndpoint(t *testing.T) {
	j, err := journal.Open(filepath.Join(t.TempDir(), "j.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()
	if _, err := j.Append(runtime.Cycle{Seq: 0, New: vdom.P("a")}); err != nil {
		t.Fatal(err)
	}
	if _, err := j.Append(runtime.Cycle{Seq: 1, New: vdom.P("b"), Sync: true, Patches: vdom.Diff(vdom.P("a"), vdom.P("b"))}); err != nil {
		t.Fatal(err)
	}

	e := setup(t, Options{Journal: j})
	resp, body := e.get("/journal?from=2")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d %s", resp.StatusCode, body)
	}
	var entries []journalEntry
	if err := json.Unmarshal([]byte(body), &entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Key != 2 || entries[0].Seq != 1 || !entries[0].Sync {
		t.Errorf("entries = %+v", entries)
	}

	if resp, _ := e.get("/journal?from=x"); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad query status = %d; want 400", resp.StatusCode)
	}
}

func TestJournalEndpointDisabled(t *testing.T) {
	e := setup(t, Options{})
	if resp, _ := e.get("/journal"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d; want 404", resp.StatusCode)
	}
}

func TestServeShutdown(t *testing.T) {
	srv := New(Options{Gatherer: prometheus.NewRegistry()})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/healthz"
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never answered: %v", err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() = %v; want nil after shutdown", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Serve did not return")
	}
}
