package remote

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/reconciler/pkg/engine"
	"github.com/vango-dev/reconciler/pkg/middleware"
	"github.com/vango-dev/reconciler/pkg/render"
	"github.com/vango-dev/reconciler/pkg/snapshot"
	"github.com/vango-dev/reconciler/pkg/vdom"
)

//go:embed client.js
var clientJS []byte

// ServerConfig configures a Server.
type ServerConfig struct {
	// Addr is the listen address for Run.
	Addr string

	// SocketPath is the WebSocket route. Default "/ws".
	SocketPath string

	// Title is the page title.
	Title string

	// MaxSessions limits concurrent sessions; 0 means no limit.
	MaxSessions int

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration

	// CheckOrigin validates the Origin header of upgrade requests. Nil
	// accepts same-origin requests only.
	CheckOrigin func(r *http.Request) bool

	// Session configures each session.
	Session SessionConfig
}

// DefaultServerConfig returns a ServerConfig with sensible defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:            ":8080",
		SocketPath:      "/ws",
		Title:           "reconciler",
		ShutdownTimeout: 10 * time.Second,
		Session:         DefaultSessionConfig(),
	}
}

// ErrTooManySessions is returned when MaxSessions is reached.
var ErrTooManySessions = errors.New("remote: too many sessions")

// Server serves an app to browsers: each WebSocket connection gets its own
// session and engine.
type Server struct {
	config      ServerConfig
	app         func() *vdom.VNode
	logger      *slog.Logger
	metrics     *engine.Metrics
	httpMetrics *middleware.Metrics
	registry    *prometheus.Registry
	store       snapshot.Store
	upgrader    websocket.Upgrader

	mu       sync.Mutex
	sessions map[string]*Session

	ctx        context.Context
	cancel     context.CancelFunc
	httpServer *http.Server
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerLogger sets the logger.
func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRegistry sets the registry exposed on /metrics. Engine metrics are
// registered on it unless WithEngineMetrics is also given.
func WithRegistry(reg *prometheus.Registry) ServerOption {
	return func(s *Server) {
		s.registry = reg
	}
}

// WithEngineMetrics shares m between all session engines.
func WithEngineMetrics(m *engine.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithHTTPMetrics sets the request metrics. By default they are
// registered on the server registry.
func WithHTTPMetrics(m *middleware.Metrics) ServerOption {
	return func(s *Server) {
		s.httpMetrics = m
	}
}

// WithSnapshotStore enables saving snapshots through the HTTP API.
func WithSnapshotStore(store snapshot.Store) ServerOption {
	return func(s *Server) {
		s.store = store
	}
}

// NewServer creates a server for app. app is called once per session.
func NewServer(app func() *vdom.VNode, config ServerConfig, opts ...ServerOption) *Server {
	def := DefaultServerConfig()
	if config.SocketPath == "" {
		config.SocketPath = def.SocketPath
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = def.ShutdownTimeout
	}
	if config.Session.HeartbeatInterval <= 0 {
		config.Session.HeartbeatInterval = def.Session.HeartbeatInterval
	}
	if config.Session.ReadTimeout <= 0 {
		config.Session.ReadTimeout = def.Session.ReadTimeout
	}
	if config.Session.WriteTimeout <= 0 {
		config.Session.WriteTimeout = def.Session.WriteTimeout
	}
	if config.Session.ContainerTag == "" {
		config.Session.ContainerTag = def.Session.ContainerTag
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config:   config,
		app:      app,
		logger:   slog.Default(),
		sessions: make(map[string]*Session),
		ctx:      ctx,
		cancel:   cancel,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     config.CheckOrigin,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}
	if s.metrics == nil {
		s.metrics = engine.NewMetrics(engine.WithRegistry(s.registry))
	}
	if s.httpMetrics == nil {
		s.httpMetrics = middleware.NewMetrics(middleware.WithRegistry(s.registry))
	}
	return s
}

// Handler returns the HTTP routes:
//
//	GET  /                          page shell
//	GET  /client.js                 client script
//	GET  <SocketPath>               WebSocket endpoint
//	GET  /metrics                   Prometheus metrics
//	GET  /sessions                  live session IDs
//	GET  /sessions/{id}/snapshot    rendered tree of a session
//	POST /sessions/{id}/snapshot    save it to the store (?key=)
//	GET  /snapshots                 stored snapshot keys
//	GET  /snapshots/{key}           stored snapshot HTML
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(s.httpMetrics.Handler)
	r.Use(middleware.OpenTelemetry(middleware.WithRequestFilter(func(r *http.Request) bool {
		return r.URL.Path != "/metrics"
	})))

	r.Get("/", s.handlePage)
	r.Get("/client.js", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
		w.Write(clientJS)
	})
	r.Get(s.config.SocketPath, s.HandleWebSocket)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.handleListSessions)
		r.Get("/{id}/snapshot", s.handleSessionSnapshot)
		r.Post("/{id}/snapshot", s.handleSaveSnapshot)
	})
	r.Route("/snapshots", func(r chi.Router) {
		r.Get("/", s.handleListSnapshots)
		r.Get("/{key}", s.handleGetSnapshot)
	})
	return r
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := render.NewRenderer(render.RendererConfig{}).RenderPage(w, render.PageData{
		Title:        s.config.Title,
		ContainerTag: s.config.Session.ContainerTag,
		RootID:       "n1",
		SocketPath:   s.config.SocketPath,
	})
	if err != nil {
		s.logger.Error("render page", "error", err)
	}
}

// HandleWebSocket upgrades the request and serves a session on it until
// the connection closes.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	full := s.config.MaxSessions > 0 && len(s.sessions) >= s.config.MaxSessions
	s.mu.Unlock()
	if full {
		s.httpMetrics.RecordUpgrade("rejected")
		http.Error(w, ErrTooManySessions.Error(), http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.httpMetrics.RecordUpgrade("failed")
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	s.httpMetrics.RecordUpgrade("ok")

	sess := newSession(conn, s.app, s.config.Session, s.logger, s.metrics)
	s.mu.Lock()
	s.sessions[sess.ID()] = sess
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.sessions, sess.ID())
		s.mu.Unlock()
	}()

	if err := sess.Serve(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("session failed", "session_id", sess.ID(), "error", err)
	}
}

// Session returns the live session with the given ID, or nil.
func (s *Server) Session(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[id]
}

// SessionIDs returns the IDs of live sessions, sorted.
func (s *Server) SessionIDs() []string {
	s.mu.Lock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	sort.Strings(ids)
	return ids
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sessions": s.SessionIDs()})
}

func (s *Server) handleSessionSnapshot(w http.ResponseWriter, r *http.Request) {
	sess := s.Session(chi.URLParam(r, "id"))
	if sess == nil {
		http.NotFound(w, r)
		return
	}
	snap, err := sess.Capture(r.Context(), "live")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(snap.HTML))
}

func (s *Server) handleSaveSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "snapshot store not configured", http.StatusNotImplemented)
		return
	}
	sess := s.Session(chi.URLParam(r, "id"))
	if sess == nil {
		http.NotFound(w, r)
		return
	}
	key := r.URL.Query().Get("key")
	if key == "" {
		key = sess.ID()
	}

	snap, err := sess.Capture(r.Context(), key)
	if errors.Is(err, snapshot.ErrInvalidKey) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err == nil {
		err = s.store.Put(r.Context(), snap)
	}
	if err != nil {
		s.logger.Error("save snapshot", "session_id", sess.ID(), "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"key": snap.Key, "epoch": snap.Epoch, "nodes": snap.Nodes})
}

func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "snapshot store not configured", http.StatusNotImplemented)
		return
	}
	keys, err := s.store.List(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"snapshots": keys})
}

func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "snapshot store not configured", http.StatusNotImplemented)
		return
	}
	snap, err := s.store.Get(r.Context(), chi.URLParam(r, "key"))
	switch {
	case errors.Is(err, snapshot.ErrNotFound), errors.Is(err, snapshot.ErrInvalidKey):
		http.NotFound(w, r)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(snap.HTML))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Run listens on Addr until ctx is cancelled, then shuts down.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", s.config.Addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		s.logger.Info("shutting down...")
		return s.Shutdown(context.Background())
	}
}

// Shutdown closes all sessions and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.cancel()
	s.mu.Lock()
	for _, sess := range s.sessions {
		sess.Close()
	}
	s.mu.Unlock()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}
	s.logger.Info("server shutdown complete")
	return nil
}
