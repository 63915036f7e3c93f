package devserver

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/vdiff/internal/errors"
	"github.com/vango-dev/vdiff/pkg/journal"
	"github.com/vango-dev/vdiff/pkg/protocol"
	"github.com/vango-dev/vdiff/pkg/render"
	"github.com/vango-dev/vdiff/pkg/runtime"
	"github.com/vango-dev/vdiff/pkg/vdom"
)

// ShutdownTimeout bounds graceful shutdown in ListenAndServe.
const ShutdownTimeout = 5 * time.Second

// Live gives access to a running program's live tree. *runtime.Program
// implements it.
type Live interface {
	Do(ctx context.Context, fn func(root vdom.Node)) error
}

// Options configures the development server.
type Options struct {
	// Addr is the listen address for ListenAndServe.
	Addr string

	// Program serves /snapshot from the live tree. Without it the snapshot
	// is rendered from the last observed tree.
	Program Live

	// Gatherer serves /metrics. Defaults to prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer

	// Journal serves /journal when set.
	Journal *journal.Journal

	// AllowedOrigins lists origins accepted on /ws. Empty means
	// same-origin only.
	AllowedOrigins []string

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Server exposes a program's render cycles over HTTP and WebSocket.
type Server struct {
	opts     Options
	logger   *slog.Logger
	upgrader websocket.Upgrader
	hub      *hub

	mu   sync.Mutex
	seq  uint64
	tree vdom.VNode
}

// New creates a server. Attach Observer to the program to feed it.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	logger := opts.Logger.With("component", "devserver")

	s := &Server{
		opts:   opts,
		logger: logger,
		hub:    newHub(logger),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// SetProgram sets the program served by /snapshot. It must be called
// before the server starts handling requests.
func (s *Server) SetProgram(p Live) {
	s.opts.Program = p
}

// Observer returns a runtime observer that records every cycle and
// broadcasts it to /ws clients: a snapshot for an initial draw, a patch
// batch otherwise.
func (s *Server) Observer() func(runtime.Cycle) {
	return func(c runtime.Cycle) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.seq, s.tree = c.Seq, c.New

		var frame *protocol.Frame
		var err error
		if c.Seq == 0 {
			frame, err = s.snapshotFrameLocked()
		} else {
			frame, err = protocol.EncodePatchesFrame(&protocol.PatchesFrame{Seq: c.Seq, Patches: c.Patches}, protocol.DropHandlers())
		}
		if err != nil {
			s.logger.Warn("cycle not broadcast", "seq", c.Seq, "error", err)
			frame = errorFrame(err)
		}
		s.hub.broadcast(frame.Encode())
	}
}

func (s *Server) snapshotFrameLocked() (*protocol.Frame, error) {
	html, err := render.HTML(s.tree)
	if err != nil {
		return nil, err
	}
	payload, err := protocol.EncodeSnapshot(&protocol.Snapshot{Seq: s.seq, HTML: html, Tree: s.tree}, protocol.DropHandlers())
	if err != nil {
		return nil, err
	}
	return protocol.NewFrame(protocol.FrameSnapshot, payload), nil
}

func errorFrame(err error) *protocol.Frame {
	code := "E201"
	if stderrors.Is(err, protocol.ErrNotEncodable) {
		code = "E202"
	}
	return protocol.NewFrame(protocol.FrameError, protocol.EncodeErrorMessage(protocol.NewError(code, err.Error())))
}

// Handler returns the HTTP routes:
//
//	GET /healthz   liveness
//	GET /snapshot  HTML of the live tree
//	GET /metrics   Prometheus metrics
//	GET /journal   recorded cycles as JSON (when a journal is set)
//	GET /ws        binary frame stream
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok\n"))
	})
	r.Get("/snapshot", s.handleSnapshot)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))
	if s.opts.Journal != nil {
		r.Get("/journal", s.handleJournal)
	}
	r.Get("/ws", s.handleWebSocket)
	return r
}

// ListenAndServe serves Handler on opts.Addr until ctx is done, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return errors.New("E403").Wrap(err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	s.logger.Info("dev server listening", "addr", ln.Addr().String())

	select {
	case err := <-errc:
		return errors.New("E403").Wrap(err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	s.hub.closeAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.New("E403").Wrap(err)
	}
	return nil
}

// htmler is implemented by live nodes that can serialize themselves, such
// as *memdom.Node.
type htmler interface {
	OuterHTML() string
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	var html string
	var err error
	if s.opts.Program != nil {
		var renderErr error
		err = s.opts.Program.Do(r.Context(), func(root vdom.Node) {
			if h, ok := root.(htmler); ok {
				html = h.OuterHTML()
				return
			}
			html, renderErr = s.lastHTML()
		})
		if err == nil {
			err = renderErr
		}
	} else {
		html, err = s.lastHTML()
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	s.mu.Lock()
	seq := s.seq
	s.mu.Unlock()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Vdiff-Seq", strconv.FormatUint(seq, 10))
	w.Write([]byte(html))
}

var errNoTree = stderrors.New("no cycle observed yet")

func (s *Server) lastHTML() (string, error) {
	s.mu.Lock()
	tree := s.tree
	s.mu.Unlock()
	if tree == nil {
		return "", errNoTree
	}
	return render.HTML(tree)
}

type journalEntry struct {
	Key          uint64    `json:"key"`
	Seq          uint64    `json:"seq"`
	Sync         bool      `json:"sync"`
	Time         time.Time `json:"time"`
	TreeBytes    int       `json:"tree_bytes"`
	PatchesBytes int       `json:"patches_bytes"`
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	from, err := queryUint(r.URL.Query(), "from")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	upto, err := queryUint(r.URL.Query(), "upto")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	entries := []journalEntry{}
	err = s.opts.Journal.Iterate(from, upto, func(e journal.Entry) error {
		entries = append(entries, journalEntry{
			Key:          e.Key,
			Seq:          e.Seq,
			Sync:         e.Sync,
			Time:         e.Time,
			TreeBytes:    len(e.Tree),
			PatchesBytes: len(e.Patches),
		})
		return nil
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}

func queryUint(q url.Values, name string) (uint64, error) {
	v := q.Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, stderrors.New("invalid " + name + ": " + v)
	}
	return n, nil
}

// checkOrigin accepts same-origin requests, requests without an Origin
// header and the configured allowed origins.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.opts.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host == r.Host
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := newClient(conn)
	s.mu.Lock()
	if s.tree != nil {
		frame, err := s.snapshotFrameLocked()
		if err != nil {
			frame = errorFrame(err)
		}
		c.send <- frame.Encode()
	}
	s.hub.add(c)
	s.mu.Unlock()

	s.logger.Debug("websocket client connected", "remote", r.RemoteAddr)
	go s.hub.writeLoop(c)
	s.hub.readLoop(c)
}
