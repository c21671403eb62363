// Package http serves the operational endpoints and a small JSON API over
// the intake service.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"waterbot/internal/core"
	"waterbot/internal/log"
	"waterbot/internal/services"
)

// Tracker is the part of the intake service the API exposes.
type Tracker interface {
	Add(ctx context.Context, user core.UserID, amountML int) (services.AddResult, error)
	Undo(ctx context.Context, user core.UserID) (services.UndoResult, error)
	SetGoal(ctx context.Context, user core.UserID, goalML int) (core.Summary, error)
	Summary(ctx context.Context, user core.UserID) (core.Summary, error)
	History(ctx context.Context, user core.UserID, limit int) ([]core.Entry, error)
	Calendar() core.Calendar
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

const (
	requestTimeout = 15 * time.Second
	readyTimeout   = 2 * time.Second
)

type Server struct {
	http.Server
	tracker Tracker
	ready   Pinger
	logger  *log.Logger
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
// ready may be nil, in which case /readyz always succeeds.
func NewServer(addr string, tracker Tracker, ready Pinger, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		tracker: tracker,
		ready:   ready,
		logger:  logger,
	}
	s.Handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(log.Middleware(s.logger))
	r.Use(log.RequestIDMiddleware(func(r *http.Request) string {
		return middleware.GetReqID(r.Context())
	}))
	r.Use(logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api/users/{id}", func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		r.Get("/summary", s.handleSummary)
		r.Get("/history", s.handleHistory)
		r.Post("/intake", s.handleAdd)
		r.Post("/undo", s.handleUndo)
		r.Put("/goal", s.handleSetGoal)
	})

	return r
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.Server.Shutdown(ctx)
}

// logRequests records one line per request once the response is written,
// tagged with the request ID carried by the context logger.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		log.NewStructuredLogger(log.FromContext(r.Context())).LogHTTPEnd(r.Context(), r, status, time.Since(start).Milliseconds(), r.RemoteAddr)
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := s.ready.Ping(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed",
				log.FieldErrorType, log.ErrorTypeDatabase,
				log.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
