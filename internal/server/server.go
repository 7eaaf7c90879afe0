// Package server exposes a read-only monitor over a running
// simulation: current tick, per-CPU occupancy, and ready-queue
// contents. It observes the scheduling core only through snapshots and
// never mutates it.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/me/ossim/internal/sched"
)

// Snapshotter is the slice of the scheduling core the monitor needs.
type Snapshotter interface {
	Snapshot() sched.Snapshot
}

// Server is the simulation monitor HTTP server.
type Server struct {
	router    chi.Router
	logger    *slog.Logger
	sched     Snapshotter
	startTime time.Time

	http *http.Server
}

// New creates a Server with all routes registered.
func New(sched Snapshotter, logger *slog.Logger) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		logger:    logger.With("component", "monitor"),
		sched:     sched,
		startTime: time.Now(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router

	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))

	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)
}

// ServeHTTP makes the Server usable as an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start begins serving on addr in a background goroutine. Errors other
// than a clean shutdown are logged, not returned; the monitor must
// never take the simulation down with it.
func (s *Server) Start(addr string) {
	s.http = &http.Server{Addr: addr, Handler: s.router}
	s.logger.Info("monitor listening", "addr", addr)

	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("monitor serve", "error", err)
		}
	}()
}

// Shutdown stops the HTTP server, waiting up to the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

type healthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Uptime    string `json:"uptime"`
	Simulator string `json:"simulator"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	respondOK(w, reqID, healthResponse{
		Status:    "healthy",
		Version:   "0.1.0",
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Simulator: "running",
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	respondOK(w, reqID, s.sched.Snapshot())
}
