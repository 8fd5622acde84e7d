// Package devserver serves build output during development, rebuilds on
// source changes and tells connected browsers to reload.
package devserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/assetpipe/internal/config"
	"git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
	"git.home.luguber.info/inful/assetpipe/internal/logfields"
	"git.home.luguber.info/inful/assetpipe/internal/metrics"
	"git.home.luguber.info/inful/assetpipe/internal/pipeline"
)

// Auxiliary endpoints.
const (
	MetricsPath = "/__metrics"
	StatusPath  = "/__status"
)

const shutdownTimeout = 5 * time.Second

// Builder runs one build pass.
type Builder interface {
	Build(ctx context.Context) (*pipeline.BuildReport, error)
}

// Config describes what to serve and watch.
type Config struct {
	Server config.ServerConfig
	Root   string       // project root, for .gitignore
	Paths  config.Paths // absolute
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger; the default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records live reload metrics into recorder and serves reg at
// MetricsPath.
func WithMetrics(recorder metrics.Recorder, reg *prom.Registry) Option {
	return func(s *Server) {
		if recorder != nil {
			s.recorder = recorder
		}
		s.registry = reg
	}
}

// buildStatus tracks the latest build for the status endpoint.
type buildStatus struct {
	mu           sync.RWMutex
	report       *pipeline.BuildReport
	lastError    error
	hasGoodBuild bool
}

func (bs *buildStatus) set(report *pipeline.BuildReport, err error) {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	bs.report = report
	bs.lastError = err
	if err == nil {
		bs.hasGoodBuild = true
	}
}

// statusPayload is the JSON body of StatusPath.
type statusPayload struct {
	BuildID      string `json:"build_id,omitempty"`
	Hash         string `json:"hash,omitempty"`
	Outcome      string `json:"outcome,omitempty"`
	Warnings     int    `json:"warnings"`
	Error        string `json:"error,omitempty"`
	HasGoodBuild bool   `json:"has_good_build"`
}

func (bs *buildStatus) payload() statusPayload {
	bs.mu.RLock()
	defer bs.mu.RUnlock()
	p := statusPayload{HasGoodBuild: bs.hasGoodBuild}
	if bs.report != nil {
		p.BuildID = bs.report.ID
		p.Hash = bs.report.Hash
		p.Outcome = string(bs.report.Outcome)
		p.Warnings = len(bs.report.Warnings)
	}
	if bs.lastError != nil {
		p.Error = bs.lastError.Error()
	}
	return p
}

// Server is the development server.
type Server struct {
	cfg      Config
	builder  Builder
	logger   *slog.Logger
	recorder metrics.Recorder
	registry *prom.Registry
	hub      *LiveReloadHub
	status   buildStatus
}

// New returns a Server for cfg that rebuilds with builder.
func New(cfg Config, builder Builder, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		builder:  builder,
		logger:   slog.Default(),
		recorder: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.hub = NewLiveReloadHub(s.recorder, s.logger)
	return s
}

// Hub exposes the live reload hub.
func (s *Server) Hub() *LiveReloadHub { return s.hub }

// Handler returns the full request handler.
func (s *Server) Handler() (http.Handler, error) {
	content, err := s.contentHandler()
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle(LiveReloadPath, s.hub)
	mux.HandleFunc(LiveReloadScriptPath, serveLiveReloadScript)
	mux.HandleFunc(StatusPath, s.serveStatus)
	if s.registry != nil {
		mux.Handle(MetricsPath, metrics.HTTPHandler(s.registry))
	}
	mux.Handle("/", injectLiveReload(content))
	return chain(s.logger, mux), nil
}

// contentHandler serves dist, falling back to the proxy target for paths
// that are not build outputs.
func (s *Server) contentHandler() (http.Handler, error) {
	files := http.FileServer(http.Dir(s.cfg.Paths.Dist))
	if s.cfg.Server.Proxy == "" {
		return files, nil
	}
	target, err := url.Parse(s.cfg.Server.Proxy)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, errors.ConfigError("invalid proxy target").
			WithCause(err).
			WithContext("proxy", s.cfg.Server.Proxy).Build()
	}
	proxy := httputil.NewSingleHostReverseProxy(target)
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DisableCompression = true
	proxy.Transport = transport
	director := proxy.Director
	proxy.Director = func(r *http.Request) {
		director(r)
		r.Host = target.Host
		// Uncompressed bodies keep the live reload injection possible.
		r.Header.Del("Accept-Encoding")
	}
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		s.logger.Warn("Proxy request failed", logfields.URL(r.URL.String()), logfields.Error(err))
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.isBuildOutput(r.URL.Path) {
			files.ServeHTTP(w, r)
			return
		}
		proxy.ServeHTTP(w, r)
	}), nil
}

func (s *Server) isBuildOutput(urlPath string) bool {
	rel := path.Clean("/" + urlPath)
	if rel == "/" {
		return false
	}
	fi, err := os.Stat(filepath.Join(s.cfg.Paths.Dist, filepath.FromSlash(rel)))
	return err == nil && !fi.IsDir()
}

func (s *Server) serveStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	_ = json.NewEncoder(w).Encode(s.status.payload())
}

// Rebuild runs one build and notifies browsers. Successful builds broadcast a
// token made of the build hash and build ID, so template-only changes that
// keep the hash still reload; failed builds broadcast an error marker.
func (s *Server) Rebuild(ctx context.Context) {
	report, err := s.builder.Build(ctx)
	s.status.set(report, err)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		id := ""
		if report != nil {
			id = report.ID
		}
		s.logger.Warn("Rebuild failed", logfields.Error(err))
		s.hub.Broadcast("error:" + id)
		return
	}
	s.hub.Broadcast(reloadToken(report))
}

func reloadToken(report *pipeline.BuildReport) string {
	id := report.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return report.Hash + "-" + id
}

// Run performs the initial build, serves until ctx is done and rebuilds on
// changes below the source and public dirs.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	handler, err := s.Handler()
	if err != nil {
		return err
	}
	if s.cfg.Server.Proxy == "" {
		if err := os.MkdirAll(s.cfg.Paths.Dist, 0o755); err != nil {
			return errors.FileSystemError("create output dir").WithCause(err).Build()
		}
	}

	s.Rebuild(ctx)

	rules := NewIgnoreRules(s.cfg.Root, s.cfg.Paths.Dist, s.cfg.Paths.SpriteOutputDir())
	watcher, err := NewWatcher(rules, s.logger, s.cfg.Paths.Source, s.cfg.Paths.Public)
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	deb := newDebouncer(DebounceInterval)
	defer deb.Stop()
	go runRebuilds(ctx, deb.out, s.Rebuild)
	go watcher.Run(ctx, func(string) { deb.Trigger() })

	ln, err := net.Listen("tcp", s.cfg.Server.Addr())
	if err != nil {
		return errors.ServerError("listen").WithCause(err).
			WithContext("addr", s.cfg.Server.Addr()).Build()
	}
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second, IdleTimeout: 300 * time.Second}
	serveErr := make(chan error, 1)
	go func() {
		var err error
		if s.cfg.Server.HTTPS() {
			err = srv.ServeTLS(ln, s.cfg.Server.TLSCert, s.cfg.Server.TLSKey)
		} else {
			err = srv.Serve(ln)
		}
		if err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
		close(serveErr)
	}()
	s.logger.Info("Development server listening",
		logfields.Addr(s.cfg.Server.Addr()),
		logfields.URL(s.cfg.Server.URL()),
		slog.String("proxy", s.cfg.Server.Proxy))

	var runErr error
	select {
	case <-ctx.Done():
	case err, ok := <-serveErr:
		if ok {
			runErr = errors.ServerError("serve").WithCause(err).Build()
		}
	}

	s.logger.Info("Shutting down development server")
	s.hub.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("HTTP server shutdown error", logfields.Error(err))
	}
	return runErr
}
