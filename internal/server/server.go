// Package server exposes editing sessions and saved records over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/dealmachine/internal/config"
	"github.com/sells-group/dealmachine/internal/session"
	"github.com/sells-group/dealmachine/internal/store"
)

// DefaultMaxUploadBytes caps document uploads.
const DefaultMaxUploadBytes = 50 << 20

// entry guards one session. Handlers hold mu for the whole operation.
type entry struct {
	mu sync.Mutex
	s  *session.Session
}

// Server owns the live sessions. The registry is guarded by an RWMutex and
// each session by its own mutex.
type Server struct {
	deps      session.Deps
	store     store.Store
	cfg       config.ServerConfig
	maxUpload int64

	mu       sync.RWMutex
	sessions map[string]*entry

	router chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithMaxUpload overrides the document upload limit.
func WithMaxUpload(n int64) Option {
	return func(s *Server) { s.maxUpload = n }
}

// New creates a Server. st may be nil, in which case the record routes
// answer 503.
func New(deps session.Deps, st store.Store, cfg config.ServerConfig, opts ...Option) *Server {
	s := &Server{
		deps:      deps,
		store:     st,
		cfg:       cfg,
		maxUpload: DefaultMaxUploadBytes,
		sessions:  make(map[string]*entry),
	}
	for _, o := range opts {
		o(s)
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(instrument)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.createSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getSession)
			r.Delete("/", s.closeSession)
			r.Post("/text", s.applyText)
			r.Post("/document", s.uploadDocument)
			r.Put("/fields/{field}", s.setField)
			r.Delete("/fields/{field}", s.clearField)
			r.Post("/reset", s.resetSession)
			r.Get("/diff", s.diffSession)
			r.Get("/export", s.exportSession)
			r.Post("/save", s.saveSession)
		})
	})

	r.Route("/records", func(r chi.Router) {
		r.Get("/", s.listRecords)
		r.Get("/{id}", s.getRecord)
		r.Post("/{id}/open", s.openRecord)
		r.Delete("/{id}", s.deleteRecord)
	})
	return r
}

// instrument logs each request and records its Prometheus metrics.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)

		RequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		RequestDuration.WithLabelValues(route, r.Method).Observe(elapsed.Seconds())
		zap.L().Debug("server: request",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("elapsed", elapsed),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	zap.L().Info("starting server", zap.Int("port", s.cfg.Port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server: listen")
	}
	return nil
}

func (s *Server) add(sess *session.Session) {
	s.mu.Lock()
	s.sessions[sess.ID()] = &entry{s: sess}
	n := len(s.sessions)
	s.mu.Unlock()
	OpenSessions.Set(float64(n))
}

func (s *Server) remove(id string) bool {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	n := len(s.sessions)
	s.mu.Unlock()
	OpenSessions.Set(float64(n))
	return ok
}

// withSession runs fn with the session locked.
func (s *Server) withSession(id string, fn func(*session.Session) error) error {
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return eris.Wrapf(errSessionNotFound, "server: session %s", id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.s)
}
