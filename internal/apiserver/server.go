// Package apiserver exposes the engine's HTTP surface: a liveness/readiness
// health endpoint for the "hes status" CLI and process supervisors, and the
// Prometheus /metrics endpoint when metrics are enabled.
//
// Grounded on the teacher's pkg/api Server/router split
// (NewServer/Start/Stop, chi middleware stack, health handler), generalized
// from filesystem-share readiness to gateway-session readiness.
package apiserver

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rfmesh/hes/internal/gateway"
	"github.com/rfmesh/hes/internal/logger"
	"github.com/rfmesh/hes/pkg/metrics"
)

// Config controls the HTTP server's listener and timeouts.
type Config struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

func (c *Config) applyDefaults() {
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 60 * time.Second
	}
}

// Server serves /health and, when metrics are enabled, /metrics.
type Server struct {
	server       *http.Server
	config       Config
	shutdownOnce sync.Once
}

// NewServer builds a Server. registry is consulted for readiness (at least
// one gateway connected is not required for readiness; registry being
// non-nil is). startedAt feeds the health response's uptime field.
func NewServer(config Config, registry *gateway.Registry, startedAt time.Time) *Server {
	config.applyDefaults()

	router := newRouter(registry, startedAt)

	return &Server{
		config: config,
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", config.Port),
			Handler:      router,
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  config.IdleTimeout,
		},
	}
}

// Handler returns the server's HTTP handler, exposed for testing without
// binding a real listener.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func newRouter(registry *gateway.Registry, startedAt time.Time) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	h := newHealthHandler(registry, startedAt)
	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.liveness)
		r.Get("/ready", h.readiness)
	})

	if metrics.IsEnabled() {
		r.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	}

	return r
}

// Start blocks until ctx is cancelled, then gracefully shuts the server down.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		logger.InfoCtx(ctx, "api server listening", "port", s.config.Port)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			select {
			case errChan <- err:
			default:
			}
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("api server failed: %w", err)
	}
}

// Stop initiates graceful shutdown. Safe to call more than once.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("api server shutdown: %w", err)
		}
	})
	return shutdownErr
}
