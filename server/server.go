// Package server wires the HTTP surface of the LocalMind AI backend:
// routing, middleware, the listener lifecycle, and hot configuration
// reloads.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/localmind-ai/localmind/config"
	"github.com/localmind-ai/localmind/server/metrics"
	"github.com/localmind-ai/localmind/server/middleware"
)

// HealthResponse is the fixed body served on /health. It reports only
// that the process is up; no upstream check is performed.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// Router handles HTTP routing
type Router struct {
	router  chi.Router
	analyze http.Handler
	metrics *metrics.Metrics
}

// NewRouter creates the router with the full middleware stack mounted.
func NewRouter(analyze http.Handler, m *metrics.Metrics, logger *zap.Logger, corsOrigin string) *Router {
	r := chi.NewRouter()

	// Add our middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTimer)
	r.Use(middleware.PanicRecovery)
	r.Use(middleware.CORS(corsOrigin))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.PrometheusMetrics(m))

	router := &Router{
		router:  r,
		analyze: analyze,
		metrics: m,
	}

	// Mount routes
	r.Post("/analyze", analyze.ServeHTTP)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(HealthResponse{
			Status:  "healthy",
			Service: "LocalMind AI",
		})
	})
	r.Get("/metrics", m.Handler().ServeHTTP)

	return router
}

// ServeHTTP implements http.Handler
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.router.ServeHTTP(w, req)
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	cfg        config.ServerConfig
	logger     *zap.Logger
}

// NewServer creates a new server instance. WriteTimeout may be zero:
// the analyze path blocks on the upstream model and must not be cut off.
func NewServer(cfg config.ServerConfig, handler http.Handler, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		httpServer: &http.Server{
			Addr:           fmt.Sprintf(":%d", cfg.Port),
			Handler:        handler,
			ReadTimeout:    cfg.ReadTimeout,
			WriteTimeout:   cfg.WriteTimeout,
			MaxHeaderBytes: cfg.MaxHeaderBytes,
		},
		cfg:    cfg,
		logger: logger,
	}
}

// Start starts the server and blocks until ctx is cancelled or the
// listener fails.
func (s *Server) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("Server started", zap.String("address", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()

		s.logger.Info("Shutting down server")
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error during server shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// Run serves with the watcher's current configuration and restarts the
// listener whenever the watcher delivers a new one. newHandler builds
// the full handler chain for a given configuration so reloads can swap
// the model, prompt, and CORS settings in one step. Run returns when
// ctx is cancelled or a server fails.
func Run(ctx context.Context, w config.Watcher, newHandler func(*config.Config) (http.Handler, error), logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	updates := w.Subscribe()
	cfg := w.GetCurrentConfig()

	for {
		handler, err := newHandler(cfg)
		if err != nil {
			return fmt.Errorf("build handler: %w", err)
		}

		srv := NewServer(cfg.Server, handler, logger)

		srvCtx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() {
			done <- srv.Start(srvCtx)
		}()

		select {
		case newCfg, ok := <-updates:
			cancel()
			if err := <-done; err != nil {
				return err
			}
			if !ok {
				return nil
			}
			logger.Info("Configuration changed, restarting server",
				zap.Int("port", newCfg.Server.Port),
				zap.String("model", newCfg.Gemini.Model),
			)
			cfg = newCfg

		case err := <-done:
			// Start only returns without error when ctx was cancelled,
			// which is a clean shutdown.
			cancel()
			return err
		}
	}
}
