// Package server exposes the marker store over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/UnknownOlympus/waypoint/internal/metrics"
	"github.com/UnknownOlympus/waypoint/internal/repository"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	readTimeout     = 5 * time.Second
	writeTimeout    = 10 * time.Second
	shutdownTimeout = 5 * time.Second
	maxBodyBytes    = 10 << 20
)

// Server serves the marker API together with health and metrics endpoints.
type Server struct {
	repo     repository.Interface
	log      *slog.Logger
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	router   chi.Router
}

// New builds the router. gatherer backs /metrics.
func New(
	repo repository.Interface,
	log *slog.Logger,
	appMetrics *metrics.Metrics,
	gatherer prometheus.Gatherer,
) *Server {
	srv := &Server{
		repo:     repo,
		log:      log,
		metrics:  appMetrics,
		gatherer: gatherer,
	}
	srv.router = srv.routes()

	return srv
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(s.instrument)

	router.Get("/healthz", s.handleHealth)
	router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	router.Route("/api/markers", func(r chi.Router) {
		r.Get("/{filename}", s.handleGetMarkers)
		r.Post("/{filename}", s.handleSaveMarkers)
	})

	return router
}

// Run listens on port until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, port int) error {
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.InfoContext(ctx, "Starting marker API server", "port", port)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("marker API server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	s.log.InfoContext(shutdownCtx, "Stopping marker API server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down marker API server: %w", err)
	}

	return nil
}
