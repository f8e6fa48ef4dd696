// Package gateway serves the daemon's HTTP surface: uploaded media, the
// websocket push channel, Prometheus metrics and a health probe.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/matheus3301/lcchat/internal/app"
	"github.com/matheus3301/lcchat/internal/apperr"
	"github.com/matheus3301/lcchat/internal/metrics"
	"github.com/matheus3301/lcchat/internal/ratelimit"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server is the HTTP gateway.
type Server struct {
	app      *app.App
	metrics  *metrics.Metrics
	connects *ratelimit.Keyed
	logger   *zap.Logger

	httpSrv  *http.Server
	listener net.Listener

	mu    sync.Mutex
	conns map[*client]struct{}
}

// New creates a gateway. connects limits websocket upgrades per client IP.
func New(a *app.App, m *metrics.Metrics, connects *ratelimit.Keyed, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		app:      a,
		metrics:  m,
		connects: connects,
		logger:   logger,
		conns:    make(map[*client]struct{}),
	}
}

// Handler returns the gateway's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /media/{id}", s.handleMedia)
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, "ok\n")
	})
	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))
	}
	return mux
}

// Start listens on addr and serves in the background.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	s.listener = ln
	s.httpSrv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("http gateway starting", zap.String("addr", ln.Addr().String()))
	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http gateway stopped", zap.Error(err))
		}
	}()
	return nil
}

// Addr returns the listening address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down and closes open websockets.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	conns := make([]*client, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()
	for _, c := range conns {
		c.close()
	}
	if s.httpSrv == nil {
		return nil
	}
	s.logger.Info("http gateway stopping")
	return s.httpSrv.Shutdown(ctx)
}

// Clients returns the number of open websocket connections.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	rc, obj, err := s.app.Media.Open(r.Context(), r.PathValue("id"))
	if err != nil {
		httpError(w, err)
		return
	}
	defer func() { _ = rc.Close() }()

	w.Header().Set("Content-Type", obj.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	if _, err := io.Copy(w, rc); err != nil {
		s.logger.Debug("media write aborted", zap.String("media_id", obj.ID), zap.Error(err))
	}
}

func httpError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch apperr.KindOf(err) {
	case apperr.InvalidInput:
		code = http.StatusBadRequest
	case apperr.NotFound, apperr.TargetNotFound:
		code = http.StatusNotFound
	case apperr.AlreadyExists:
		code = http.StatusConflict
	case apperr.BackingStore:
		code = http.StatusServiceUnavailable
	case apperr.Unauthenticated:
		code = http.StatusUnauthorized
	case apperr.RateLimited:
		code = http.StatusTooManyRequests
	}
	http.Error(w, apperr.Message(err), code)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func bearerToken(r *http.Request) string {
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	h := r.Header.Get("Authorization")
	if t, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(t)
	}
	return ""
}
